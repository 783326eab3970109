package backend

import (
	"context"

	"rentals/internal/session"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BackendResult contains the session backend and an optional cleanup function.
type BackendResult struct {
	Backend session.Backend
	Cleanup CleanupFunc
}

// Factory creates session backends from configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation.
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Redis specific
	RedisURL string
}

// BackendType names where sessions are persisted.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	RedisBackend  BackendType = "redis"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is known.
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, RedisBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
