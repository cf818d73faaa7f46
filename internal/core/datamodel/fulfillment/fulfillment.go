package fulfillment

import "time"

const (
	AttemptStarted   = "started"
	AttemptCompleted = "completed"
	AttemptFailed    = "failed"
)

// Attempt is the durable claim on a transaction's supplier purchase. At most one row exists per transaction.
type Attempt struct {
	ID            int64      `gorm:"primaryKey"`
	TransactionID int64      `gorm:"column:transaction_id;uniqueIndex;not null"`
	SupplierRef   string     `gorm:"column:supplier_ref;not null"`
	Status        string     `gorm:"column:status;not null"`
	Error         string     `gorm:"column:error"`
	StartedAt     time.Time  `gorm:"column:started_at;not null"`
	FinishedAt    *time.Time `gorm:"column:finished_at"`
}

func (Attempt) TableName() string {
	return "fulfillment_attempts"
}
