package scheduler

import (
	"context"
	"time"

	"github.com/frahmantamala/voucher-store/internal"
	"github.com/frahmantamala/voucher-store/internal/catalog"
)

const (
	JobCatalogSync      = "catalog-sync"
	JobPaymentSweep     = "payment-sweep"
	JobFulfillmentSweep = "fulfillment-sweep"

	// PendingPaymentAge is how long a payment stays pending before the sweep polls it.
	PendingPaymentAge = time.Minute
	sweepBatchSize    = 100
)

type CatalogSyncer interface {
	Sync(ctx context.Context) (*catalog.SyncResult, error)
}

type PaymentSweeper interface {
	SweepPending(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

type InFlightSyncer interface {
	SyncInFlight(ctx context.Context, limit int) (int, error)
}

type Dependencies struct {
	Catalog      CatalogSyncer
	Payments     PaymentSweeper
	Transactions InFlightSyncer
}

// DefaultJobs builds the catalog sync, payment sweep and fulfillment sweep jobs from config.
// A job whose dependency is nil is left out.
func DefaultJobs(cfg internal.SchedulerConfig, deps Dependencies) []Job {
	var jobs []Job
	if deps.Catalog != nil {
		jobs = append(jobs, Job{
			Name:    JobCatalogSync,
			Spec:    cfg.CatalogSyncSpec,
			Timeout: 10 * time.Minute,
			Run: func(ctx context.Context) error {
				_, err := deps.Catalog.Sync(ctx)
				return err
			},
		})
	}
	if deps.Payments != nil {
		jobs = append(jobs, Job{
			Name:    JobPaymentSweep,
			Spec:    cfg.PaymentSweepSpec,
			Timeout: 2 * time.Minute,
			Run: func(ctx context.Context) error {
				_, err := deps.Payments.SweepPending(ctx, PendingPaymentAge, sweepBatchSize)
				return err
			},
		})
	}
	if deps.Transactions != nil {
		jobs = append(jobs, Job{
			Name:    JobFulfillmentSweep,
			Spec:    cfg.FulfillmentSweepSpec,
			Timeout: 2 * time.Minute,
			Run: func(ctx context.Context) error {
				_, err := deps.Transactions.SyncInFlight(ctx, sweepBatchSize)
				return err
			},
		})
	}
	return jobs
}
