package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/voucher-store/internal"
)

// RequireAdmin rejects callers that are not administrators. It expects the auth middleware to have run.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := internal.UserFromContext(r.Context())
		if !ok {
			writeEnvelopeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		if !user.IsAdmin {
			slog.Warn("access denied: admin required", "user_id", user.ID, "path", r.URL.Path)
			writeEnvelopeError(w, http.StatusForbidden, internal.ErrAdminRequired.Message)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeEnvelopeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success":   false,
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
