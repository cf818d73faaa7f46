package transaction

import (
	"time"

	paymentDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/payment"
	transactionDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/transaction"
)

type VoucherSummary struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Nominal      string `json:"nominal"`
	Category     string `json:"category"`
	ProviderName string `json:"providerName,omitempty"`
}

type Transaction struct {
	ID            int64           `json:"id"`
	TransactionID string          `json:"transactionId"`
	UserID        int64           `json:"userId"`
	Voucher       *VoucherSummary `json:"voucher,omitempty"`
	TargetNumber  string          `json:"targetNumber"`
	PriceSell     int64           `json:"priceSell"`
	AdminFee      int64           `json:"adminFee"`
	TotalAmount   int64           `json:"totalAmount"`
	Status        string          `json:"status"`
	Message       string          `json:"message,omitempty"`
	SerialNumber  string          `json:"serialNumber,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func FromDataModel(t *transactionDatamodel.Transaction) *Transaction {
	if t == nil {
		return nil
	}
	out := &Transaction{
		ID:            t.ID,
		TransactionID: t.TransactionID,
		UserID:        t.UserID,
		TargetNumber:  t.TargetNumber,
		PriceSell:     t.PriceSell,
		AdminFee:      t.AdminFee,
		TotalAmount:   t.TotalAmount,
		Status:        t.Status,
		Message:       t.Message,
		SerialNumber:  t.SerialNumber,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
	if v := t.Voucher; v != nil {
		out.Voucher = &VoucherSummary{
			Code:     v.VoucherCode,
			Name:     v.Name,
			Nominal:  v.Nominal,
			Category: v.Category,
		}
		if v.Provider != nil {
			out.Voucher.ProviderName = v.Provider.ProviderName
		}
	}
	return out
}

type PollOutcome string

const (
	// PollSkipped: the transaction was not in flight so the supplier was not asked.
	PollSkipped PollOutcome = "skipped"
	// PollUnchanged: the supplier answered and nothing needed to change.
	PollUnchanged PollOutcome = "unchanged"
	// PollUpdated: a terminal supplier result was applied.
	PollUpdated PollOutcome = "updated"
	// PollUnreachable: the supplier could not be reached; the returned status may be stale.
	PollUnreachable PollOutcome = "unreachable"
	// PollUnrecognised: the supplier returned a status outside the known vocabulary.
	PollUnrecognised PollOutcome = "unrecognised"
)

type PollResult struct {
	Outcome        PollOutcome `json:"outcome"`
	SupplierStatus string      `json:"supplierStatus,omitempty"`
	Error          string      `json:"error,omitempty"`
}

type PaymentSummary struct {
	OrderID    string     `json:"orderId"`
	Status     string     `json:"status"`
	QRImageURL string     `json:"qrImageUrl,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	PaidAt     *time.Time `json:"paidAt,omitempty"`
}

func paymentSummaryFrom(p *paymentDatamodel.Payment) *PaymentSummary {
	if p == nil {
		return nil
	}
	return &PaymentSummary{
		OrderID:    p.OrderID,
		Status:     p.Status,
		QRImageURL: p.QRImageURL,
		ExpiresAt:  p.ExpiresAt,
		PaidAt:     p.PaidAt,
	}
}

type StatusResponse struct {
	Transaction *Transaction    `json:"transaction"`
	Payment     *PaymentSummary `json:"payment,omitempty"`
	Poll        PollResult      `json:"poll"`
}
