package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/frahmantamala/voucher-store/internal/admin"
	transactionDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/transaction"
)

type DashboardRepository struct {
	db *sqlx.DB
}

func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

var _ admin.DashboardRepository = (*DashboardRepository)(nil)

const countsQuery = `
SELECT
	(SELECT COUNT(*) FROM transactions) AS total_transactions,
	(SELECT COUNT(*) FROM transactions WHERE status = ?) AS success_transactions,
	(SELECT COALESCE(SUM(total_amount), 0) FROM transactions WHERE status = ? AND created_at >= ?) AS today_sales,
	(SELECT COUNT(*) FROM users WHERE is_admin = ?) AS total_users
`

func (r *DashboardRepository) Counts(ctx context.Context, since time.Time) (admin.Counts, error) {
	var c admin.Counts
	err := r.db.GetContext(ctx, &c, r.db.Rebind(countsQuery), transactionDatamodel.StatusSuccess, transactionDatamodel.StatusSuccess, since, false)
	return c, err
}
