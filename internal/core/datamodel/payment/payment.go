package payment

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusExpired = "expired"
	StatusFailed  = "failed"

	MethodQRIS = "qris"
)

type Payment struct {
	ID              int64          `gorm:"primaryKey"`
	TransactionID   int64          `gorm:"column:transaction_id;uniqueIndex;not null"`
	OrderID         string         `gorm:"column:order_id;uniqueIndex;not null"`
	PaymentMethod   string         `gorm:"column:payment_method;not null"`
	QRString        string         `gorm:"column:qr_string"`
	QRImageURL      string         `gorm:"column:qr_image_url"`
	Amount          int64          `gorm:"column:amount;not null"`
	Status          string         `gorm:"column:status;not null;index"`
	GatewayStatus   string         `gorm:"column:gateway_status"`
	ExpiresAt       *time.Time     `gorm:"column:expires_at"`
	PaidAt          *time.Time     `gorm:"column:paid_at"`
	WebhookMetadata datatypes.JSON `gorm:"column:webhook_metadata"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (Payment) TableName() string {
	return "payments"
}
