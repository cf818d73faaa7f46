package receipt

import (
	"encoding/json"
	"fmt"
	"time"

	receiptDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/receipt"
	transactionDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/transaction"
)

const DefaultMerchantName = "Vexa Cell"

// Extra carries fulfillment details not yet stored on the transaction.
type Extra struct {
	SerialNumber string
	Meta         map[string]interface{}
}

type DocumentVoucher struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Nominal  string `json:"nominal"`
	Category string `json:"category"`
	Provider string `json:"provider"`
}

type DocumentPricing struct {
	PriceOriginal int64 `json:"priceOriginal"`
	PriceSell     int64 `json:"priceSell"`
	AdminFee      int64 `json:"adminFee"`
	TotalAmount   int64 `json:"totalAmount"`
}

type DocumentCustomer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Document is the JSON body stored with each receipt.
type Document struct {
	Merchant      string                 `json:"merchant"`
	GeneratedAt   time.Time              `json:"generatedAt"`
	TransactionID string                 `json:"transactionId"`
	Voucher       DocumentVoucher        `json:"voucher"`
	TargetNumber  string                 `json:"targetNumber"`
	SerialNumber  string                 `json:"serialNumber,omitempty"`
	Pricing       DocumentPricing        `json:"pricing"`
	Status        string                 `json:"status"`
	Customer      DocumentCustomer       `json:"customer"`
	Meta          map[string]interface{} `json:"meta,omitempty"`
}

type Receipt struct {
	ReceiptNumber string    `json:"receiptNumber"`
	TransactionID string    `json:"transactionId"`
	Document      Document  `json:"data"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NumberFor builds RCP-{unix ms}-{last 8 characters of the transaction id}.
func NumberFor(transactionRef string, now time.Time) string {
	suffix := transactionRef
	if len(suffix) > 8 {
		suffix = suffix[len(suffix)-8:]
	}
	return fmt.Sprintf("RCP-%d-%s", now.UnixMilli(), suffix)
}

func buildDocument(merchant string, tx *transactionDatamodel.Transaction, extra Extra, now time.Time) Document {
	serial := extra.SerialNumber
	if serial == "" {
		serial = tx.SerialNumber
	}

	doc := Document{
		Merchant:      merchant,
		GeneratedAt:   now,
		TransactionID: tx.TransactionID,
		TargetNumber:  tx.TargetNumber,
		SerialNumber:  serial,
		Pricing: DocumentPricing{
			PriceOriginal: tx.PriceOriginal,
			PriceSell:     tx.PriceSell,
			AdminFee:      tx.AdminFee,
			TotalAmount:   tx.TotalAmount,
		},
		Status: tx.Status,
		Meta:   extra.Meta,
	}

	if v := tx.Voucher; v != nil {
		doc.Voucher = DocumentVoucher{
			Code:     v.VoucherCode,
			Name:     v.Name,
			Nominal:  v.Nominal,
			Category: v.Category,
		}
		if v.Provider != nil {
			doc.Voucher.Provider = v.Provider.ProviderName
		}
	}
	if u := tx.User; u != nil {
		doc.Customer = DocumentCustomer{Name: u.FullName, Email: u.Email, Phone: u.Phone}
	}
	return doc
}

func FromDataModel(r *receiptDatamodel.Receipt) (*Receipt, error) {
	if r == nil {
		return nil, nil
	}
	var doc Document
	if len(r.ReceiptData) > 0 {
		if err := json.Unmarshal(r.ReceiptData, &doc); err != nil {
			return nil, fmt.Errorf("decode receipt %s: %w", r.ReceiptNumber, err)
		}
	}
	return &Receipt{
		ReceiptNumber: r.ReceiptNumber,
		TransactionID: doc.TransactionID,
		Document:      doc,
		CreatedAt:     r.CreatedAt,
	}, nil
}
