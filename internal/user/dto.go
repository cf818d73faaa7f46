package user

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"

	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filter selects customer accounts. Admin accounts are never listed.
type Filter struct {
	Search string
	Status string
	Page   int
	Limit  int
}

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
	f.Search = strings.TrimSpace(f.Search)
	f.Status = strings.ToLower(strings.TrimSpace(f.Status))
	return f
}

func (f Filter) Offset() int {
	return (f.Page - 1) * f.Limit
}

func FilterFromQuery(q url.Values) Filter {
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return Filter{
		Search: q.Get("search"),
		Status: q.Get("status"),
		Page:   page,
		Limit:  limit,
	}
}
