package middleware

import (
	"net/http"

	"github.com/frahmantamala/voucher-store/internal"
	"github.com/frahmantamala/voucher-store/pkg/logger"
)

// UserLogContext tags the request logger with the authenticated user. Mount it after the auth middleware.
func UserLogContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := internal.UserFromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := logger.With(r.Context(), "user_id", user.ID, "is_admin", user.IsAdmin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
