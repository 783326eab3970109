// Package session holds the per-browser authentication state: an opaque API
// token plus the identity it belongs to.
package session

import (
	"context"
	"sync"
	"time"

	"rentals/internal/core"
)

// Backend persists sessions so they survive page reloads and restarts.
// Load returns core.ErrSessionNotFound for unknown ids.
type Backend interface {
	Load(ctx context.Context, id string) (core.Session, error)
	Save(ctx context.Context, id string, s core.Session) error
	Delete(ctx context.Context, id string) error
	// LoadAll returns every session not expired at now.
	LoadAll(ctx context.Context, now time.Time) (map[string]core.Session, error)
	// DeleteExpired removes sessions expired at now and reports how many.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
	Close() error
}

// MemoryBackend keeps sessions in process memory. Nothing survives a restart.
type MemoryBackend struct {
	mu       sync.RWMutex
	sessions map[string]core.Session
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{sessions: make(map[string]core.Session)}
}

func (m *MemoryBackend) Load(_ context.Context, id string) (core.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return core.Session{}, core.ErrSessionNotFound
	}
	return s, nil
}

func (m *MemoryBackend) Save(_ context.Context, id string, s core.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = s
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryBackend) LoadAll(_ context.Context, now time.Time) (map[string]core.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]core.Session, len(m.sessions))
	for id, s := range m.sessions {
		if !s.Expired(now) {
			out[id] = s
		}
	}
	return out, nil
}

func (m *MemoryBackend) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryBackend) Close() error { return nil }
