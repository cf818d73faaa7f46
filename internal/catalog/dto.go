package catalog

import (
	"net/url"
	"strconv"
	"strings"
)

// MaxListSize caps ListVouchers results.
const MaxListSize = 100

type VoucherFilter struct {
	Category     string `json:"category,omitempty"`
	ProviderCode string `json:"provider,omitempty"`
	Search       string `json:"search,omitempty"`
	MinPrice     int64  `json:"minPrice,omitempty"`
	MaxPrice     int64  `json:"maxPrice,omitempty"`
}

// FilterFromQuery reads the list filter from query parameters. Unparseable prices are ignored.
func FilterFromQuery(q url.Values) VoucherFilter {
	f := VoucherFilter{
		Category:     strings.ToLower(strings.TrimSpace(q.Get("category"))),
		ProviderCode: strings.TrimSpace(q.Get("provider")),
		Search:       strings.TrimSpace(q.Get("search")),
	}
	if v, err := strconv.ParseInt(q.Get("minPrice"), 10, 64); err == nil && v > 0 {
		f.MinPrice = v
	}
	if v, err := strconv.ParseInt(q.Get("maxPrice"), 10, 64); err == nil && v > 0 {
		f.MaxPrice = v
	}
	return f
}

func (f VoucherFilter) cacheKey() string {
	return "vouchers:" + strings.Join([]string{
		f.Category,
		f.ProviderCode,
		strings.ToLower(f.Search),
		strconv.FormatInt(f.MinPrice, 10),
		strconv.FormatInt(f.MaxPrice, 10),
	}, "|")
}

type ItemError struct {
	SKU   string `json:"sku"`
	Error string `json:"error"`
}

// SyncResult summarises one catalog sync run.
type SyncResult struct {
	Processed int         `json:"processed"`
	Failed    int         `json:"failed"`
	Errors    []ItemError `json:"errors,omitempty"`
}

type RecalculateResult struct {
	Updated int `json:"updated"`
}
