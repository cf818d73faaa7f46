package paymentgateway

import (
	"strings"

	paymentDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/payment"
)

type StatusKind int

const (
	StatusUnknown StatusKind = iota
	StatusPending
	StatusPaid
	StatusExpired
	StatusFailed
)

// Status is a parsed gateway payment status. Raw keeps the value as received.
type Status struct {
	Kind StatusKind
	Raw  string
}

func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return Status{Kind: StatusPending, Raw: raw}
	case "paid":
		return Status{Kind: StatusPaid, Raw: raw}
	case "expired":
		return Status{Kind: StatusExpired, Raw: raw}
	case "failed", "cancelled":
		return Status{Kind: StatusFailed, Raw: raw}
	default:
		return Status{Kind: StatusUnknown, Raw: raw}
	}
}

func (s Status) IsKnown() bool {
	return s.Kind != StatusUnknown
}

// Local returns the payment row status for a known kind, and false for Unknown.
func (s Status) Local() (string, bool) {
	switch s.Kind {
	case StatusPending:
		return paymentDatamodel.StatusPending, true
	case StatusPaid:
		return paymentDatamodel.StatusPaid, true
	case StatusExpired:
		return paymentDatamodel.StatusExpired, true
	case StatusFailed:
		return paymentDatamodel.StatusFailed, true
	default:
		return "", false
	}
}
