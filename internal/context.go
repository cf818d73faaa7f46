package internal

import (
	"context"
	"time"
)

type ctxKey string

const ContextUserKey ctxKey = "user"

// User is the authenticated caller attached to the request context.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	IsAdmin  bool   `json:"is_admin"`
}

func UserFromContext(ctx context.Context) (*User, bool) {
	if ctx == nil {
		return nil, false
	}
	u, ok := ctx.Value(ContextUserKey).(*User)
	return u, ok && u != nil
}

func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, ContextUserKey, user)
}

// CanAccess reports whether the user owns the resource or is an admin.
func (u *User) CanAccess(ownerID int64) bool {
	if u == nil {
		return false
	}
	return u.IsAdmin || u.ID == ownerID
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
