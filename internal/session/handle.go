package session

import (
	"context"

	"rentals/internal/core"
)

// Handle is one browser's view of the Store.
type Handle struct {
	store *Store
	id    string
}

func (h *Handle) ID() string {
	if h == nil {
		return ""
	}
	return h.id
}

// Session returns the current session, possibly empty. Backend failures are
// logged and read as no session.
func (h *Handle) Session(ctx context.Context) core.Session {
	if h == nil || h.store == nil {
		return core.Session{}
	}
	sess, err := h.store.Get(ctx, h.id)
	if err != nil {
		h.store.logger.ErrorContext(ctx, "Session lookup failed", "error", err)
		return core.Session{}
	}
	return sess
}

// Present reports whether the handle currently holds a session.
func (h *Handle) Present(ctx context.Context) bool {
	return h.Session(ctx).Present()
}

// Set replaces the session and persists it.
func (h *Handle) Set(ctx context.Context, token string, user core.User) error {
	if h == nil || h.store == nil {
		return ErrNoSessionID
	}
	return h.store.Set(ctx, h.id, token, user)
}

// Clear empties the session and removes the persisted copy.
func (h *Handle) Clear(ctx context.Context) error {
	if h == nil || h.store == nil {
		return nil
	}
	return h.store.Clear(ctx, h.id)
}

type contextKey struct{}

// WithHandle stores h in ctx.
func WithHandle(ctx context.Context, h *Handle) context.Context {
	return context.WithValue(ctx, contextKey{}, h)
}

// FromContext returns the handle stored by WithHandle, or nil.
func FromContext(ctx context.Context) *Handle {
	h, _ := ctx.Value(contextKey{}).(*Handle)
	return h
}
