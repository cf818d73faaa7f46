package receipt

import (
	"time"

	"gorm.io/datatypes"
)

type Receipt struct {
	ID            int64          `gorm:"primaryKey"`
	TransactionID int64          `gorm:"column:transaction_id;uniqueIndex;not null"`
	ReceiptNumber string         `gorm:"column:receipt_number;uniqueIndex;not null"`
	ReceiptData   datatypes.JSON `gorm:"column:receipt_data;not null"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (Receipt) TableName() string {
	return "receipts"
}
