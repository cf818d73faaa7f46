package admin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/voucher-store/internal"
	"github.com/frahmantamala/voucher-store/internal/catalog"
	"github.com/frahmantamala/voucher-store/internal/pricing"
	"github.com/frahmantamala/voucher-store/internal/transaction"
)

type DashboardRepository interface {
	// Counts aggregates totals; today sales cover successful transactions created at or after since.
	Counts(ctx context.Context, since time.Time) (Counts, error)
}

type TransactionAdminAPI interface {
	ListAll(ctx context.Context, filter transaction.Filter) (*transaction.ListResult, error)
	OverrideStatus(ctx context.Context, id int64, dto transaction.StatusOverrideDTO, actor *internal.User) (*transaction.Transaction, error)
}

type MarginAPI interface {
	UpsertMargin(ctx context.Context, dto pricing.MarginDTO) (*pricing.Margin, error)
	ListMargins(ctx context.Context) ([]*pricing.Margin, error)
}

type PriceRecalculator interface {
	RecalculatePrices(ctx context.Context) (*catalog.RecalculateResult, error)
}

type MarginUpsertResult struct {
	Margin       *pricing.Margin            `json:"margin"`
	Recalculated *catalog.RecalculateResult `json:"recalculated"`
}

type Service struct {
	dashboard    DashboardRepository
	transactions TransactionAdminAPI
	margins      MarginAPI
	prices       PriceRecalculator
	logger       *slog.Logger
	now          func() time.Time
}

func NewService(dashboard DashboardRepository, transactions TransactionAdminAPI, margins MarginAPI, prices PriceRecalculator, logger *slog.Logger) *Service {
	return &Service{
		dashboard:    dashboard,
		transactions: transactions,
		margins:      margins,
		prices:       prices,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *Service) Dashboard(ctx context.Context) (*DashboardStats, error) {
	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	counts, err := s.dashboard.Counts(ctx, startOfDay)
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard counts: %w", err)
	}
	return statsFromCounts(counts), nil
}

func (s *Service) ListTransactions(ctx context.Context, filter transaction.Filter) (*transaction.ListResult, error) {
	return s.transactions.ListAll(ctx, filter)
}

func (s *Service) UpdateTransactionStatus(ctx context.Context, id int64, dto transaction.StatusOverrideDTO, actor *internal.User) (*transaction.Transaction, error) {
	return s.transactions.OverrideStatus(ctx, id, dto, actor)
}

func (s *Service) ListMargins(ctx context.Context) ([]*pricing.Margin, error) {
	return s.margins.ListMargins(ctx)
}

// UpsertMargin stores the margin and reprices the catalog so sell prices follow immediately.
func (s *Service) UpsertMargin(ctx context.Context, dto pricing.MarginDTO) (*MarginUpsertResult, error) {
	m, err := s.margins.UpsertMargin(ctx, dto)
	if err != nil {
		return nil, err
	}

	recalculated, err := s.prices.RecalculatePrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("margin saved but repricing failed: %w", err)
	}
	return &MarginUpsertResult{Margin: m, Recalculated: recalculated}, nil
}

func (s *Service) RecalculatePrices(ctx context.Context) (*catalog.RecalculateResult, error) {
	return s.prices.RecalculatePrices(ctx)
}
