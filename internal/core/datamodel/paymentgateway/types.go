package paymentgateway

import (
	"errors"
)

type Customer struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type ChargeRequest struct {
	OrderID       string `json:"order_id"`
	Amount        int64  `json:"amount"`
	Customer      Customer
	ExpiryMinutes int
}

func (r *ChargeRequest) Validate() error {
	if r.OrderID == "" {
		return errors.New("order_id is required")
	}
	if r.Amount <= 0 {
		return errors.New("amount must be greater than 0")
	}
	if r.ExpiryMinutes < 0 {
		return errors.New("expiry must not be negative")
	}
	return nil
}

type ChargeData struct {
	OrderID    string `json:"order_id"`
	QRString   string `json:"qr_string"`
	QRImageURL string `json:"qr_image_url"`
	Amount     int64  `json:"amount"`
	ExpiryTime string `json:"expiry_time"`
}

type StatusData struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Amount  int64  `json:"amount"`
	PaidAt  string `json:"paid_at,omitempty"`
}
