package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"rentals/internal/core"
)

// RedisKeyPrefix namespaces session keys so the database can be shared.
const RedisKeyPrefix = "rentals:session:"

// RedisSessionRepository stores each session as a JSON value whose key
// expires together with the session.
type RedisSessionRepository struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisRepository connects to addr, which is either host:port or a
// redis:// URL.
func NewRedisRepository(ctx context.Context, addr string) (*RedisSessionRepository, error) {
	opts, err := redisOptions(addr)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	return NewRedisRepositoryFromClient(client), nil
}

// NewRedisRepositoryFromClient wraps an existing client.
func NewRedisRepositoryFromClient(client *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client, now: time.Now}
}

func redisOptions(addr string) (*redis.Options, error) {
	if addr == "" {
		addr = "localhost:6379"
	}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: addr}, nil
}

func (r *RedisSessionRepository) Close() error {
	return r.client.Close()
}

func (r *RedisSessionRepository) Load(ctx context.Context, id string) (core.Session, error) {
	raw, err := r.client.Get(ctx, RedisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.Session{}, core.ErrSessionNotFound
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("load session %s: %w", shortID(id), err)
	}
	var sess core.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return core.Session{}, fmt.Errorf("decode session %s: %w", shortID(id), err)
	}
	return sess, nil
}

func (r *RedisSessionRepository) Save(ctx context.Context, id string, sess core.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	var ttl time.Duration
	if !sess.ExpiresAt.IsZero() {
		ttl = sess.ExpiresAt.Sub(r.now())
		if ttl <= 0 {
			return r.Delete(ctx, id)
		}
	}
	if err := r.client.Set(ctx, RedisKeyPrefix+id, raw, ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", shortID(id), err)
	}
	return nil
}

func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, RedisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", shortID(id), err)
	}
	return nil
}

func (r *RedisSessionRepository) LoadAll(ctx context.Context, now time.Time) (map[string]core.Session, error) {
	out := make(map[string]core.Session)
	iter := r.client.Scan(ctx, 0, RedisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		id := strings.TrimPrefix(key, RedisKeyPrefix)
		sess, err := r.Load(ctx, id)
		if errors.Is(err, core.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if sess.Expired(now) {
			continue
		}
		out[id] = sess
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}
	return out, nil
}

// DeleteExpired is a no-op: Redis expires keys on its own.
func (r *RedisSessionRepository) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}
