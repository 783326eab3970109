package backend

import (
	"context"
	"path/filepath"
	"testing"

	"rentals/internal/config"
	"rentals/internal/session"
	"rentals/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{SessionBackend: "redis", RedisURL: "redis://cache:6379/0", SQLiteDBPath: "x.db"}
	got, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if got.Type != RedisBackend || got.RedisURL != cfg.RedisURL {
		t.Fatalf("unexpected config: %+v", got)
	}

	if _, err := FromAppConfig(&config.Config{SessionBackend: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite with path", Config{Type: SQLiteBackend, SQLiteDBPath: "a.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"redis without url", Config{Type: RedisBackend}, true},
		{"unknown", Config{Type: "bolt"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if _, ok := res.Backend.(*session.MemoryBackend); !ok {
		t.Fatalf("expected memory backend, got %T", res.Backend)
	}
	if res.Cleanup != nil {
		t.Fatal("memory backend needs no cleanup")
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Cleanup()
	if _, ok := res.Backend.(*storage.SQLiteSessionRepository); !ok {
		t.Fatalf("expected sqlite repository, got %T", res.Backend)
	}
}
