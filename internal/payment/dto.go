package payment

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/frahmantamala/voucher-store/internal"
)

// ContactDTO optionally overrides the customer contact sent to the gateway.
type ContactDTO struct {
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"omitempty,max=20"`
}

// WebhookPayload is a gateway callback. Raw keeps every field for the payment's metadata.
type WebhookPayload struct {
	OrderID string
	Status  string
	PaidAt  string
	Raw     map[string]interface{}
}

// ParseWebhookPayload accepts both camelCase and snake_case keys for the order id and paid timestamp.
func ParseWebhookPayload(body []byte) (*WebhookPayload, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, internal.NewValidationError("Invalid callback payload", internal.ErrCodeValidationFailed)
	}

	p := &WebhookPayload{
		OrderID: firstString(raw, "orderId", "order_id"),
		Status:  firstString(raw, "status"),
		PaidAt:  firstString(raw, "paid_at", "paidAt"),
		Raw:     raw,
	}
	if p.OrderID == "" {
		return nil, internal.NewValidationFieldError("orderId", "orderId is required", internal.ErrCodeValidationFailed)
	}
	return p, nil
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}
