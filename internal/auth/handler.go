package auth

import (
	"context"
	"net/http"

	"github.com/frahmantamala/voucher-store/internal"
	"github.com/frahmantamala/voucher-store/internal/core/common/validation"
	"github.com/frahmantamala/voucher-store/internal/transport"
	"github.com/frahmantamala/voucher-store/pkg/logger"
)

type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO) (*AuthResponse, error)
	Authenticate(ctx context.Context, dto LoginDTO) (*AuthResponse, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*AuthTokens, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	GetActiveUser(ctx context.Context, id int64) (*internal.User, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	resp, err := h.Service.Register(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err, "Register")
		return
	}

	h.WriteSuccess(w, http.StatusCreated, "Registration successful", resp)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	resp, err := h.Service.Authenticate(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err, "Login")
		return
	}

	h.WriteSuccess(w, http.StatusOK, "Login successful", resp)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}
	if appErr := validation.Struct(&dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	tokens, err := h.Service.RefreshTokens(r.Context(), dto.RefreshToken)
	if err != nil {
		h.HandleServiceError(w, err, "RefreshToken")
		return
	}

	h.WriteSuccess(w, http.StatusOK, "Token refreshed", tokens)
}

// AuthMiddleware validates the bearer token and loads the user on every request,
// so deactivated accounts lose access before their token expires.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteAppError(w, internal.NewUnauthorizedError("Missing authorization token", internal.ErrCodeInvalidToken))
			return
		}

		claims, err := h.Service.ValidateAccessToken(token)
		if err != nil {
			h.HandleServiceError(w, err, "AuthMiddleware")
			return
		}

		user, err := h.Service.GetActiveUser(r.Context(), claims.UserID)
		if err != nil {
			h.HandleServiceError(w, err, "AuthMiddleware")
			return
		}

		ctx := internal.ContextWithUser(r.Context(), user)
		ctx = logger.With(ctx, "user_id", user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
