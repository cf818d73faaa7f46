package transaction

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/voucher-store/internal"
)

const DefaultRefPrefix = "VXC"

func randomHex(n int) string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:n])
}

// NewTransactionID returns TRX-{unix ms}-{8 upper-case hex}.
func NewTransactionID(now time.Time) string {
	return fmt.Sprintf("TRX-%d-%s", now.UnixMilli(), randomHex(8))
}

// NewSupplierRef returns {prefix}-{unix ms}-{6 upper-case hex}.
func NewSupplierRef(prefix string, now time.Time) string {
	if prefix == "" {
		prefix = DefaultRefPrefix
	}
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), randomHex(6))
}

// NormalizeTarget strips everything but digits and requires 10 to 15 of them.
func NormalizeTarget(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 10 || len(digits) > 15 {
		return "", internal.ErrInvalidTargetNumber
	}
	return digits, nil
}
