package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/frahmantamala/voucher-store/internal"
	"github.com/frahmantamala/voucher-store/internal/core/common/validation"
	pricingDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/pricing"
)

type RepositoryAPI interface {
	// FindActive returns the newest active margin for the exact (category, providerCode) pair, or nil.
	FindActive(ctx context.Context, category, providerCode string) (*pricingDatamodel.PriceMargin, error)
	Upsert(ctx context.Context, m *pricingDatamodel.PriceMargin) error
	List(ctx context.Context) ([]*pricingDatamodel.PriceMargin, error)
}

// Resolver is the narrow view the catalog depends on.
type Resolver interface {
	Resolve(ctx context.Context, category, providerCode string) Rule
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Resolve picks the most specific active margin: provider-specific, then category-wide, then the 5% default.
// Lookup failures fall through to the next tier.
func (s *Service) Resolve(ctx context.Context, category, providerCode string) Rule {
	category = strings.ToLower(strings.TrimSpace(category))

	if providerCode != "" {
		m, err := s.repo.FindActive(ctx, category, providerCode)
		if err != nil {
			s.logger.Warn("provider margin lookup failed", "category", category, "provider_code", providerCode, "error", err)
		} else if m != nil {
			return ruleFrom(m)
		}
	}

	m, err := s.repo.FindActive(ctx, category, "")
	if err != nil {
		s.logger.Warn("category margin lookup failed", "category", category, "error", err)
	} else if m != nil {
		return ruleFrom(m)
	}

	return DefaultRule()
}

func (s *Service) UpsertMargin(ctx context.Context, dto MarginDTO) (*Margin, error) {
	if appErr := validation.Struct(&dto); appErr != nil {
		return nil, appErr
	}
	if dto.Value.IsNegative() {
		return nil, internal.NewValidationFieldError("value", "value must not be negative", internal.ErrCodeInvalidMargin)
	}

	marginType := dto.Type
	if marginType == "" {
		marginType = TypePercentage
	}
	isActive := true
	if dto.IsActive != nil {
		isActive = *dto.IsActive
	}

	m := &pricingDatamodel.PriceMargin{
		Category:     strings.ToLower(strings.TrimSpace(dto.Category)),
		ProviderCode: strings.TrimSpace(dto.ProviderCode),
		MarginType:   marginType,
		MarginValue:  *dto.Value,
		IsActive:     isActive,
	}

	if err := s.repo.Upsert(ctx, m); err != nil {
		return nil, fmt.Errorf("upsert margin: %w", err)
	}

	s.logger.Info("margin upserted",
		"category", m.Category,
		"provider_code", m.ProviderCode,
		"type", m.MarginType,
		"value", m.MarginValue.String())

	return FromDataModel(m), nil
}

func (s *Service) ListMargins(ctx context.Context) ([]*Margin, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list margins: %w", err)
	}
	out := make([]*Margin, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromDataModel(r))
	}
	return out, nil
}
