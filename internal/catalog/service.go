package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/voucher-store/internal"
	catalogDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/catalog"
	"github.com/frahmantamala/voucher-store/internal/core/events"
	"github.com/frahmantamala/voucher-store/internal/pricing"
	"github.com/frahmantamala/voucher-store/internal/supplier"
)

type RepositoryAPI interface {
	ListVouchers(ctx context.Context, filter VoucherFilter, limit int) ([]*catalogDatamodel.Voucher, error)
	// FindVoucherByCode returns the voucher regardless of its active flag, or nil.
	FindVoucherByCode(ctx context.Context, code string) (*catalogDatamodel.Voucher, error)
	ListCategories(ctx context.Context) ([]string, error)
	ListProviders(ctx context.Context, category string) ([]*catalogDatamodel.Provider, error)
	UpsertProvider(ctx context.Context, p *catalogDatamodel.Provider) error
	UpsertVoucher(ctx context.Context, v *catalogDatamodel.Voucher) error
	ListActiveVouchers(ctx context.Context) ([]*catalogDatamodel.Voucher, error)
	UpdateVoucherPrice(ctx context.Context, id int64, margin decimal.Decimal, priceSell int64) error
}

type Service struct {
	repo      RepositoryAPI
	supplier  supplier.API
	pricing   pricing.Resolver
	cache     Cache
	publisher events.Publisher
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, supplierAPI supplier.API, resolver pricing.Resolver, cache Cache, publisher events.Publisher, logger *slog.Logger) *Service {
	if cache == nil {
		cache = noopCache{}
	}
	return &Service{
		repo:      repo,
		supplier:  supplierAPI,
		pricing:   resolver,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *Service) ListVouchers(ctx context.Context, filter VoucherFilter) ([]*Voucher, error) {
	key := filter.cacheKey()
	var cached []*Voucher
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	rows, err := s.repo.ListVouchers(ctx, filter, MaxListSize)
	if err != nil {
		return nil, fmt.Errorf("list vouchers: %w", err)
	}

	out := make([]*Voucher, 0, len(rows))
	for _, v := range rows {
		out = append(out, VoucherFromDataModel(v))
	}
	s.cache.Set(ctx, key, out)
	return out, nil
}

// GetVoucher returns an active voucher by code.
func (s *Service) GetVoucher(ctx context.Context, code string) (*Voucher, error) {
	v, err := s.repo.FindVoucherByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("find voucher: %w", err)
	}
	if v == nil || !v.IsActive {
		return nil, internal.ErrVoucherNotFound
	}
	return VoucherFromDataModel(v), nil
}

func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	var cached []Category
	if s.cache.Get(ctx, "categories", &cached) {
		return cached, nil
	}

	codes, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]Category, 0, len(codes))
	for _, code := range codes {
		out = append(out, Category{Code: code, Name: CategoryDisplayName(code)})
	}
	s.cache.Set(ctx, "categories", out)
	return out, nil
}

func (s *Service) Providers(ctx context.Context, category string) ([]*Provider, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	key := "providers:" + category
	var cached []*Provider
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	rows, err := s.repo.ListProviders(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	out := make([]*Provider, 0, len(rows))
	for _, p := range rows {
		out = append(out, ProviderFromDataModel(p))
	}
	s.cache.Set(ctx, key, out)
	return out, nil
}

// Sync pulls the supplier price list and upserts providers and vouchers one item at a time.
// A failing item is recorded in the result and does not stop the run.
func (s *Service) Sync(ctx context.Context) (*SyncResult, error) {
	start := time.Now()
	items, err := s.supplier.PriceList(ctx)
	if err != nil {
		s.logger.Error("catalog sync: price list fetch failed", "error", err)
		return nil, err
	}

	result := &SyncResult{}
	for _, item := range items {
		if err := s.syncItem(ctx, item); err != nil {
			s.logger.Warn("catalog sync: item failed", "sku", item.Code(), "error", err)
			result.Failed++
			result.Errors = append(result.Errors, ItemError{SKU: item.Code(), Error: err.Error()})
			continue
		}
		result.Processed++
	}

	s.logger.Info("catalog sync finished",
		"processed", result.Processed,
		"failed", result.Failed,
		"duration_ms", time.Since(start).Milliseconds())

	s.publishChanged(ctx, "sync", result.Processed)
	return result, nil
}

func (s *Service) syncItem(ctx context.Context, item supplier.PriceItem) error {
	sku := item.Code()
	if sku == "" {
		return fmt.Errorf("item has no sku")
	}
	if item.Brand == "" {
		return fmt.Errorf("item has no brand")
	}

	category := strings.ToLower(strings.TrimSpace(item.Category))
	providerName := item.BrandName
	if providerName == "" {
		providerName = item.Brand
	}

	provider := &catalogDatamodel.Provider{
		ProviderCode: item.Brand,
		ProviderName: providerName,
		Category:     category,
		IsActive:     true,
	}
	if err := s.repo.UpsertProvider(ctx, provider); err != nil {
		return fmt.Errorf("upsert provider %s: %w", item.Brand, err)
	}

	rule := s.pricing.Resolve(ctx, category, item.Brand)

	name := item.ProductName
	if name == "" {
		name = sku
	}
	nominal := item.Nominal
	if nominal == "" {
		nominal = "-"
	}

	voucher := &catalogDatamodel.Voucher{
		VoucherCode:   sku,
		ProviderID:    provider.ID,
		Category:      category,
		Name:          name,
		Nominal:       nominal,
		Description:   item.Desc,
		PriceOriginal: item.Price,
		PriceSell:     pricing.SellPrice(item.Price, rule),
		Margin:        rule.Value,
		IsActive:      item.Available(),
	}
	if err := s.repo.UpsertVoucher(ctx, voucher); err != nil {
		return fmt.Errorf("upsert voucher %s: %w", sku, err)
	}
	return nil
}

// RecalculatePrices re-resolves the margin for every active voucher and stores the new sell price.
func (s *Service) RecalculatePrices(ctx context.Context) (*RecalculateResult, error) {
	vouchers, err := s.repo.ListActiveVouchers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active vouchers: %w", err)
	}

	result := &RecalculateResult{}
	for _, v := range vouchers {
		providerCode := ""
		if v.Provider != nil {
			providerCode = v.Provider.ProviderCode
		}
		rule := s.pricing.Resolve(ctx, v.Category, providerCode)
		sell := pricing.SellPrice(v.PriceOriginal, rule)

		if err := s.repo.UpdateVoucherPrice(ctx, v.ID, rule.Value, sell); err != nil {
			return result, fmt.Errorf("update voucher %s price: %w", v.VoucherCode, err)
		}
		result.Updated++
	}

	s.logger.Info("voucher prices recalculated", "updated", result.Updated)
	s.publishChanged(ctx, "recalculate", result.Updated)
	return result, nil
}

func (s *Service) publishChanged(ctx context.Context, reason string, processed int) {
	if s.publisher == nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("catalog cache invalidation failed", "error", err)
		}
		return
	}
	if err := s.publisher.PublishSync(ctx, events.NewCatalogChangedEvent(reason, processed)); err != nil {
		s.logger.Warn("failed to publish catalog changed event", "reason", reason, "error", err)
	}
}
