package user

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/voucher-store/internal"
	"github.com/frahmantamala/voucher-store/internal/transport"
)

type ServiceAPI interface {
	GetProfile(ctx context.Context, userID int64) (*Profile, error)
	ListCustomers(ctx context.Context, filter Filter) (*ListResult, error)
	Deactivate(ctx context.Context, id int64, actor *internal.User) error
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

// GetCurrentUser handles GET /auth/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}

	profile, err := h.Service.GetProfile(r.Context(), user.ID)
	if err != nil {
		h.HandleServiceError(w, err, "GetCurrentUser")
		return
	}

	h.WriteSuccess(w, http.StatusOK, "Profile retrieved", profile)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.ListCustomers(r.Context(), FilterFromQuery(r.URL.Query()))
	if err != nil {
		h.HandleServiceError(w, err, "ListUsers")
		return
	}

	h.WriteSuccessWithMeta(w, http.StatusOK, "Users retrieved", result.Users,
		transport.NewPageMeta(result.Total, result.Page, result.Limit))
}

func (h *Handler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.WriteAppError(w, internal.NewValidationFieldError("id", "id must be a positive integer", internal.ErrCodeValidationFailed))
		return
	}

	if err := h.Service.Deactivate(r.Context(), id, actor); err != nil {
		h.HandleServiceError(w, err, "DeactivateUser")
		return
	}

	h.WriteSuccess(w, http.StatusOK, "User deactivated", map[string]interface{}{"id": id, "isActive": false})
}
