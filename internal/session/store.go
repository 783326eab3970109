package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rentals/internal/cache"
	"rentals/internal/core"
)

// ErrNoSessionID is returned when writing through a handle without an id.
var ErrNoSessionID = errors.New("session id is empty")

// Options tune a Store.
type Options struct {
	TTL       time.Duration
	CacheSize int
	Logger    *slog.Logger
}

// Store is the process-wide session accessor. Reads are served from an LRU
// in front of the backend; writes go to the backend first.
type Store struct {
	backend Backend
	cache   *cache.LRUCache[core.Session]
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

func NewStore(backend Backend, opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1000
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store{
		backend: backend,
		cache:   cache.NewLRUCache[core.Session](opts.CacheSize, opts.TTL),
		ttl:     opts.TTL,
		now:     time.Now,
		logger:  opts.Logger,
	}
}

// TTL is how long a new session lives.
func (s *Store) TTL() time.Duration { return s.ttl }

// Cached is the number of sessions held in memory.
func (s *Store) Cached() int { return s.cache.Size() }

// Get returns the session for id, or an empty session when there is none or
// it has expired.
func (s *Store) Get(ctx context.Context, id string) (core.Session, error) {
	if id == "" {
		return core.Session{}, nil
	}
	if sess, ok := s.cache.Get(id); ok {
		return sess, nil
	}

	sess, err := s.backend.Load(ctx, id)
	if errors.Is(err, core.ErrSessionNotFound) {
		return core.Session{}, nil
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("load session: %w", err)
	}
	if sess.Expired(s.now()) || !sess.Present() {
		return core.Session{}, nil
	}
	s.cache.SetUntil(id, sess, sess.ExpiresAt)
	return sess, nil
}

// Set replaces the session for id with token and user and persists it.
// Partial sessions are refused and leave the previous state untouched.
func (s *Store) Set(ctx context.Context, id, token string, user core.User) error {
	if id == "" {
		return ErrNoSessionID
	}
	sess, err := core.NewSession(token, user)
	if err != nil {
		return err
	}
	sess.ExpiresAt = s.now().Add(s.ttl)

	if err := s.backend.Save(ctx, id, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.cache.SetUntil(id, sess, sess.ExpiresAt)
	return nil
}

// Clear empties the session for id and removes the persisted copy.
func (s *Store) Clear(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	s.cache.Delete(id)
	if err := s.backend.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Hydrate loads every live persisted session into the cache. Call it once at
// startup.
func (s *Store) Hydrate(ctx context.Context) (int, error) {
	all, err := s.backend.LoadAll(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("hydrate sessions: %w", err)
	}
	loaded := 0
	for id, sess := range all {
		if !sess.Present() {
			continue
		}
		s.cache.SetUntil(id, sess, sess.ExpiresAt)
		loaded++
	}
	s.logger.InfoContext(ctx, "Sessions hydrated", "loaded", loaded, "cached", s.cache.Size())
	return loaded, nil
}

// Sweep drops expired sessions from the backend and the cache.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	removed, err := s.backend.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	s.cache.CleanExpired()
	return removed, nil
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			removed, err := s.Sweep(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "Session sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				s.logger.DebugContext(ctx, "Expired sessions removed", "removed", removed)
			}
		}
	}
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Handle binds the store to one browser session.
func (s *Store) Handle(id string) *Handle {
	return &Handle{store: s, id: id}
}
