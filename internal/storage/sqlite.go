package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"rentals/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteSessionRepository persists sessions in a local SQLite file so they
// survive restarts.
type SQLiteSessionRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteSessionRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteSessionRepository{db: db}, nil
}

func (r *SQLiteSessionRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteSessionRepository) Load(ctx context.Context, id string) (core.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT token, user_json, expires_at FROM sessions WHERE id = ?`, id)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Session{}, core.ErrSessionNotFound
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("load session %s: %w", shortID(id), err)
	}
	return sess, nil
}

func (r *SQLiteSessionRepository) Save(ctx context.Context, id string, sess core.Session) error {
	userJSON, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, token, user_json, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			user_json = excluded.user_json,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP`,
		id, sess.Token, string(userJSON), toMillis(sess.ExpiresAt))
	if err != nil {
		return fmt.Errorf("save session %s: %w", shortID(id), err)
	}
	return nil
}

func (r *SQLiteSessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session %s: %w", shortID(id), err)
	}
	return nil
}

func (r *SQLiteSessionRepository) LoadAll(ctx context.Context, now time.Time) (map[string]core.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, token, user_json, expires_at FROM sessions WHERE expires_at = 0 OR expires_at > ?`, now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]core.Session)
	for rows.Next() {
		var id string
		var token, userJSON string
		var expiresAt int64
		if err := rows.Scan(&id, &token, &userJSON, &expiresAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess, err := decodeSession(token, userJSON, expiresAt)
		if err != nil {
			return nil, err
		}
		out[id] = sess
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

func (r *SQLiteSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <> 0 AND expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func scanSession(row *sql.Row) (core.Session, error) {
	var token, userJSON string
	var expiresAt int64
	if err := row.Scan(&token, &userJSON, &expiresAt); err != nil {
		return core.Session{}, err
	}
	return decodeSession(token, userJSON, expiresAt)
}

func decodeSession(token, userJSON string, expiresAtMillis int64) (core.Session, error) {
	var user core.User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return core.Session{}, fmt.Errorf("decode session user: %w", err)
	}
	return core.Session{
		Token:     token,
		User:      user,
		ExpiresAt: fromMillis(expiresAtMillis),
	}, nil
}

// A session without a deadline is stored with expires_at = 0.
func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// shortID keeps session ids out of error strings that end up in logs.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
