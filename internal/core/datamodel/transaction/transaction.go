package transaction

import (
	"time"

	"github.com/frahmantamala/voucher-store/internal/core/datamodel/catalog"
	"github.com/frahmantamala/voucher-store/internal/core/datamodel/user"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusRefunded   = "refunded"
)

// Statuses is the full status vocabulary, in lifecycle order.
var Statuses = []string{StatusPending, StatusProcessing, StatusSuccess, StatusFailed, StatusRefunded}

// InFlightStatuses are the statuses eligible for fulfillment and supplier polling.
var InFlightStatuses = []string{StatusPending, StatusProcessing}

func IsValidStatus(status string) bool {
	for _, s := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

func IsInFlight(status string) bool {
	return status == StatusPending || status == StatusProcessing
}

type Transaction struct {
	ID            int64            `gorm:"primaryKey"`
	TransactionID string           `gorm:"column:transaction_id;uniqueIndex;not null"`
	UserID        int64            `gorm:"column:user_id;not null;index"`
	User          *user.User       `gorm:"foreignKey:UserID"`
	VoucherID     int64            `gorm:"column:voucher_id;not null"`
	Voucher       *catalog.Voucher `gorm:"foreignKey:VoucherID"`
	SupplierRef   string           `gorm:"column:supplier_ref;uniqueIndex;not null"`
	TargetNumber  string           `gorm:"column:target_number;not null"`
	PriceOriginal int64            `gorm:"column:price_original;not null"`
	PriceSell     int64            `gorm:"column:price_sell;not null"`
	AdminFee      int64            `gorm:"column:admin_fee;not null"`
	TotalAmount   int64            `gorm:"column:total_amount;not null"`
	Status        string           `gorm:"column:status;not null;index"`
	Message       string           `gorm:"column:message"`
	SerialNumber  string           `gorm:"column:serial_number"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (Transaction) TableName() string {
	return "transactions"
}
