package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/voucher-store/internal"
	userDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/user"
)

type Repository interface {
	// FindByID returns nil when the user does not exist.
	FindByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	ListCustomers(ctx context.Context, filter Filter) ([]*userDatamodel.User, int64, error)
	// DeactivateCustomer reports false when no non-admin user with that id exists.
	DeactivateCustomer(ctx context.Context, id int64) (bool, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	if u == nil {
		return nil, internal.ErrUserNotFound
	}
	p := ProfileFromDataModel(u)
	return &p, nil
}

func (s *Service) ListCustomers(ctx context.Context, filter Filter) (*ListResult, error) {
	filter = filter.Normalize()
	if filter.Status != "" && filter.Status != StatusActive && filter.Status != StatusInactive {
		return nil, internal.NewValidationFieldError("status", "status must be one of [active inactive]", internal.ErrCodeInvalidStatus)
	}

	users, total, err := s.repo.ListCustomers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	out := make([]Profile, 0, len(users))
	for _, u := range users {
		out = append(out, ProfileFromDataModel(u))
	}
	return &ListResult{Users: out, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// Deactivate soft-deletes a customer account. Admin accounts cannot be deactivated.
func (s *Service) Deactivate(ctx context.Context, id int64, actor *internal.User) error {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get user by id: %w", err)
	}
	if u == nil {
		return internal.ErrUserNotFound
	}
	if u.IsAdmin {
		return internal.NewForbiddenError("Admin accounts cannot be deactivated", internal.ErrCodeAdminRequired)
	}

	ok, err := s.repo.DeactivateCustomer(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	if !ok {
		return internal.ErrUserNotFound
	}

	actorID := int64(0)
	if actor != nil {
		actorID = actor.ID
	}
	s.logger.Info("user deactivated", "user_id", id, "actor_id", actorID)
	return nil
}
