package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentPaid    = "payment.paid"
	EventTypeCatalogChanged = "catalog.changed"
)

// PaymentPaidEvent is raised once the gateway confirms a payment for a transaction that is still in flight.
type PaymentPaidEvent struct {
	BaseEvent
	TransactionID  int64  `json:"transaction_id"`
	TransactionRef string `json:"transaction_ref"`
	OrderID        string `json:"order_id"`
	Amount         int64  `json:"amount"`
}

func NewPaymentPaidEvent(transactionID int64, transactionRef, orderID string, amount int64) *PaymentPaidEvent {
	return &PaymentPaidEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentPaid,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"transaction_id":  transactionID,
				"transaction_ref": transactionRef,
				"order_id":        orderID,
				"amount":          amount,
			},
		},
		TransactionID:  transactionID,
		TransactionRef: transactionRef,
		OrderID:        orderID,
		Amount:         amount,
	}
}

type CatalogChangedEvent struct {
	BaseEvent
	Reason    string `json:"reason"`
	Processed int    `json:"processed"`
}

func NewCatalogChangedEvent(reason string, processed int) *CatalogChangedEvent {
	return &CatalogChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeCatalogChanged,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"reason":    reason,
				"processed": processed,
			},
		},
		Reason:    reason,
		Processed: processed,
	}
}

// TransactionIDFrom extracts the transaction primary key from a payment.paid event, typed or generic.
func TransactionIDFrom(event Event) (int64, bool) {
	switch e := event.(type) {
	case *PaymentPaidEvent:
		return e.TransactionID, true
	case PaymentPaidEvent:
		return e.TransactionID, true
	}
	data, ok := event.Payload().(map[string]interface{})
	if !ok {
		return 0, false
	}
	switch v := data["transaction_id"].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}
