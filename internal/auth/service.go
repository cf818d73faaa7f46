package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/voucher-store/internal"
	"github.com/frahmantamala/voucher-store/internal/core/common/validation"
	userDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/user"
	"github.com/frahmantamala/voucher-store/internal/user"
)

type UserRepository interface {
	// FindByEmail and FindByID return nil when there is no such user.
	FindByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	FindByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	// Create returns internal.ErrEmailTaken on a duplicate email.
	Create(ctx context.Context, u *userDatamodel.User) error
}

type Service struct {
	users      UserRepository
	tokens     TokenGenerator
	bcryptCost int
	logger     *slog.Logger
}

func NewService(users UserRepository, tokens TokenGenerator, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*AuthResponse, error) {
	dto = dto.Normalize()
	if appErr := validation.Struct(&dto); appErr != nil {
		return nil, appErr
	}

	existing, err := s.users.FindByEmail(ctx, dto.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}
	if existing != nil {
		return nil, internal.ErrEmailTaken
	}

	hash, err := HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &userDatamodel.User{
		Email:        dto.Email,
		PasswordHash: hash,
		FullName:     dto.FullName,
		Phone:        dto.Phone,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, internal.ErrEmailTaken) {
			return nil, internal.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", u.ID)
	return s.issue(u)
}

// Authenticate validates credentials and returns tokens
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (*AuthResponse, error) {
	dto.Email = strings.ToLower(strings.TrimSpace(dto.Email))
	if appErr := validation.Struct(&dto); appErr != nil {
		return nil, appErr
	}

	u, err := s.users.FindByEmail(ctx, dto.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if u == nil {
		return nil, internal.ErrInvalidCredentials
	}
	if err := VerifyPassword(u.PasswordHash, dto.Password); err != nil {
		return nil, internal.ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, internal.ErrUserInactive
	}

	return s.issue(u)
}

// RefreshTokens exchanges a refresh token for a new pair. The account must still be active.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	u, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if u == nil {
		return nil, internal.ErrInvalidToken
	}
	if !u.IsActive {
		return nil, internal.ErrUserInactive
	}

	return s.pair(u)
}

func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokens.ValidateAccessToken(tokenString)
}

// GetActiveUser loads the caller for the auth middleware. Missing and inactive accounts are both unauthorized.
func (s *Service) GetActiveUser(ctx context.Context, id int64) (*internal.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if u == nil {
		return nil, internal.ErrInvalidToken
	}
	if !u.IsActive {
		return nil, internal.ErrUserInactive
	}
	return &internal.User{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Phone:    u.Phone,
		IsAdmin:  u.IsAdmin,
	}, nil
}

func (s *Service) issue(u *userDatamodel.User) (*AuthResponse, error) {
	tokens, err := s.pair(u)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		User:   user.ProfileFromDataModel(u),
		Token:  tokens.AccessToken,
		Tokens: *tokens,
	}, nil
}

func (s *Service) pair(u *userDatamodel.User) (*AuthTokens, error) {
	access, err := s.tokens.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(u.ID, u.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return &AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
