package payment

import (
	"time"

	paymentDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/payment"
)

const (
	StatusPending = paymentDatamodel.StatusPending
	StatusPaid    = paymentDatamodel.StatusPaid
	StatusExpired = paymentDatamodel.StatusExpired
	StatusFailed  = paymentDatamodel.StatusFailed

	// ChargeExpiryMinutes is the QRIS validity window.
	ChargeExpiryMinutes = 30
)

type ChargeInfo struct {
	OrderID    string    `json:"orderId"`
	QRString   string    `json:"qrString"`
	QRImageURL string    `json:"qrImageUrl"`
	Amount     int64     `json:"amount"`
	ExpiryTime time.Time `json:"expiryTime"`
}

type TransactionRef struct {
	ID            int64  `json:"id"`
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
}

type ProcessPaymentResponse struct {
	Payment     ChargeInfo     `json:"payment"`
	Transaction TransactionRef `json:"transaction"`
}

type PaymentStatus struct {
	OrderID string     `json:"orderId"`
	Status  string     `json:"status"`
	Amount  int64      `json:"amount"`
	PaidAt  *time.Time `json:"paidAt"`
}

type PollResponse struct {
	Payment PaymentStatus `json:"payment"`
}

// ReconcileResult describes what one webhook delivery or poll changed.
type ReconcileResult struct {
	Processed            bool   `json:"processed"`
	PaymentStatus        string `json:"paymentStatus,omitempty"`
	FulfillmentTriggered bool   `json:"fulfillmentTriggered"`
	FulfillmentError     string `json:"fulfillmentError,omitempty"`
}

type CallbackAck struct {
	Received  bool   `json:"received"`
	Processed bool   `json:"processed"`
	OrderID   string `json:"orderId,omitempty"`
}
