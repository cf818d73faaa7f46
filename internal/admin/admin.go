package admin

import "math"

type DashboardStats struct {
	TotalTransactions   int64   `json:"totalTransactions"`
	SuccessTransactions int64   `json:"successTransactions"`
	TodaySales          int64   `json:"todaySales"`
	TotalUsers          int64   `json:"totalUsers"`
	SuccessRate         float64 `json:"successRate"`
}

// Counts is the raw aggregate row read by the dashboard repository.
type Counts struct {
	TotalTransactions   int64 `db:"total_transactions"`
	SuccessTransactions int64 `db:"success_transactions"`
	TodaySales          int64 `db:"today_sales"`
	TotalUsers          int64 `db:"total_users"`
}

// SuccessRate is the share of successful transactions as a percentage rounded to two decimals.
func SuccessRate(success, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(success)/float64(total)*10000) / 100
}

func statsFromCounts(c Counts) *DashboardStats {
	return &DashboardStats{
		TotalTransactions:   c.TotalTransactions,
		SuccessTransactions: c.SuccessTransactions,
		TodaySales:          c.TodaySales,
		TotalUsers:          c.TotalUsers,
		SuccessRate:         SuccessRate(c.SuccessTransactions, c.TotalTransactions),
	}
}
