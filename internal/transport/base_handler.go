package transport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/voucher-store/internal"
	"github.com/frahmantamala/voucher-store/pkg/logger"
)

// SuccessEnvelope is the body of every 2xx response.
type SuccessEnvelope struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Meta      interface{} `json:"meta,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ErrorEnvelope is the body of every non-2xx response.
type ErrorEnvelope struct {
	Success   bool                       `json:"success"`
	Error     string                     `json:"error"`
	Code      internal.ErrorCode         `json:"code,omitempty"`
	Errors    []internal.ValidationError `json:"errors,omitempty"`
	Timestamp time.Time                  `json:"timestamp"`
}

// PageMeta is attached to paginated list responses.
type PageMeta struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

func NewPageMeta(total int64, page, limit int) PageMeta {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return PageMeta{Total: total, Page: page, Limit: limit, Pages: pages}
}

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

func (h *BaseHandler) WriteSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	h.WriteSuccessWithMeta(w, status, message, data, nil)
}

func (h *BaseHandler) WriteSuccessWithMeta(w http.ResponseWriter, status int, message string, data, meta interface{}) {
	h.WriteJSON(w, status, SuccessEnvelope{
		Success:   true,
		Message:   message,
		Data:      data,
		Meta:      meta,
		Timestamp: time.Now().UTC(),
	})
}

// WriteError writes an error envelope
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	if status >= http.StatusInternalServerError {
		h.Logger.Error("http error", "status", status, "message", message)
	} else {
		h.Logger.Warn("http error", "status", status, "message", message)
	}
	h.WriteJSON(w, status, ErrorEnvelope{
		Success:   false,
		Error:     message,
		Timestamp: time.Now().UTC(),
	})
}

func (h *BaseHandler) WriteAppError(w http.ResponseWriter, appErr *internal.AppError) {
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	env := ErrorEnvelope{
		Success:   false,
		Error:     appErr.Message,
		Code:      appErr.Code,
		Timestamp: time.Now().UTC(),
	}
	if details, ok := appErr.Details.(internal.ValidationErrors); ok {
		env.Errors = details.Errors
	}

	if status >= http.StatusInternalServerError {
		h.Logger.Error("request failed", "status", status, "code", appErr.Code, "error", appErr)
		// internal causes are not exposed to callers
		if appErr.Type == internal.ErrorTypeInternal {
			env.Error = "Internal server error"
		}
	} else {
		h.Logger.Warn("request rejected", "status", status, "code", appErr.Code, "message", appErr.Message)
	}

	h.WriteJSON(w, status, env)
}

// HandleServiceError converts any service error into the error envelope.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, err error, operation string) {
	if appErr, ok := internal.IsAppError(err); ok {
		h.WriteAppError(w, appErr)
		return
	}
	h.Logger.Error(operation+": unexpected error", "error", err)
	h.WriteAppError(w, internal.NewInternalError("Internal server error", err))
}

// DecodeJSON decodes the request body into dst, rejecting malformed payloads with a validation error.
func (h *BaseHandler) DecodeJSON(r *http.Request, dst interface{}) *internal.AppError {
	if r.Body == nil {
		return internal.NewValidationError("Request body is required", internal.ErrCodeValidationFailed)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) || strings.Contains(err.Error(), "EOF") {
			return internal.NewValidationError("Invalid request body", internal.ErrCodeValidationFailed)
		}
		return internal.NewValidationError("Invalid request body: "+err.Error(), internal.ErrCodeValidationFailed)
	}
	return nil
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ""
	}

	return authHeader[7:]
}

// CurrentUser returns the authenticated user or writes a 401 and returns false.
func (h *BaseHandler) CurrentUser(w http.ResponseWriter, r *http.Request) (*internal.User, bool) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewUnauthorizedError("Authentication required", internal.ErrCodeInvalidToken))
		return nil, false
	}
	return user, true
}
