package transaction

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type CreateTransactionDTO struct {
	VoucherCode  string `json:"voucherCode" validate:"required,max=100"`
	TargetNumber string `json:"targetNumber" validate:"required,max=32"`
}

type StatusOverrideDTO struct {
	Status  string `json:"status" validate:"required"`
	Message string `json:"message" validate:"omitempty,max=500"`
}

// Filter selects transactions for customer and admin listings. Zero fields do not filter.
type Filter struct {
	UserID   int64
	Status   string
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	Limit    int
}

func (f Filter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Normalize applies paging defaults: page 1 and limit 20, capped at 100.
func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	f.Status = strings.ToLower(strings.TrimSpace(f.Status))
	return f
}

// FilterFromQuery reads status, page, limit, userId, dateFrom and dateTo (YYYY-MM-DD or RFC 3339).
func FilterFromQuery(q url.Values) Filter {
	f := Filter{Status: q.Get("status")}
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		f.Page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		f.Limit = v
	}
	if v, err := strconv.ParseInt(q.Get("userId"), 10, 64); err == nil && v > 0 {
		f.UserID = v
	}
	f.DateFrom = parseDate(q.Get("dateFrom"), false)
	f.DateTo = parseDate(q.Get("dateTo"), true)
	return f.Normalize()
}

func parseDate(value string, endOfDay bool) *time.Time {
	if value == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t
}

type ListResult struct {
	Transactions []*Transaction
	Total        int64
	Page         int
	Limit        int
}
