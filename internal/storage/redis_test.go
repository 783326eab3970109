package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentals/internal/core"
)

func newRedisRepo(t *testing.T) (*RedisSessionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	repo := NewRedisRepositoryFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { repo.Close() })
	return repo, mr
}

func TestRedisSaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRedisRepo(t)

	_, err := repo.Load(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	sess := core.Session{
		Token:     "t1",
		User:      core.User{ID: "1", Email: "a@b.com", FirstName: "Ada"},
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, repo.Save(ctx, "sid", sess))
	assert.True(t, mr.Exists(RedisKeyPrefix+"sid"))
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL(RedisKeyPrefix+"sid").Seconds(), 5)

	got, err := repo.Load(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.Token)
	assert.Equal(t, sess.User, got.User)
	assert.True(t, sess.ExpiresAt.Equal(got.ExpiresAt))

	require.NoError(t, repo.Delete(ctx, "sid"))
	_, err = repo.Load(ctx, "sid")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestRedisKeyExpiresWithSession(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRedisRepo(t)

	require.NoError(t, repo.Save(ctx, "sid", core.Session{Token: "t1", User: core.User{ID: "1"}, ExpiresAt: time.Now().Add(time.Minute)}))
	mr.FastForward(2 * time.Minute)

	_, err := repo.Load(ctx, "sid")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestRedisSessionWithoutDeadlineHasNoTTL(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRedisRepo(t)

	require.NoError(t, repo.Save(ctx, "forever", core.Session{Token: "t1", User: core.User{ID: "1"}}))
	assert.Zero(t, mr.TTL(RedisKeyPrefix+"forever"))

	got, err := repo.Load(ctx, "forever")
	require.NoError(t, err)
	assert.True(t, got.ExpiresAt.IsZero())
}

func TestRedisSavingPastDeadlineRemovesSession(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRedisRepo(t)

	require.NoError(t, repo.Save(ctx, "sid", core.Session{Token: "t1", User: core.User{ID: "1"}, ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, repo.Save(ctx, "sid", core.Session{Token: "t1", User: core.User{ID: "1"}, ExpiresAt: time.Now().Add(-time.Second)}))

	assert.False(t, mr.Exists(RedisKeyPrefix+"sid"))
}

func TestRedisLoadAll(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRedisRepo(t)
	now := time.Now()

	require.NoError(t, repo.Save(ctx, "a", core.Session{Token: "ta", User: core.User{ID: "1"}, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.Save(ctx, "b", core.Session{Token: "tb", User: core.User{ID: "2"}, ExpiresAt: now.Add(10 * time.Minute)}))
	require.NoError(t, repo.Save(ctx, "c", core.Session{Token: "tc", User: core.User{ID: "3"}}))
	require.NoError(t, mr.Set("unrelated:key", "x"))

	all, err := repo.LoadAll(ctx, now)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "ta", all["a"].Token)

	// A deadline that passed before Redis dropped the key still hides it.
	all, err = repo.LoadAll(ctx, now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.NotContains(t, all, "b")
	assert.Contains(t, all, "c")

	removed, err := repo.DeleteExpired(ctx, now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestRedisCorruptValue(t *testing.T) {
	repo, mr := newRedisRepo(t)
	require.NoError(t, mr.Set(RedisKeyPrefix+"bad", "not json"))

	_, err := repo.Load(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrSessionNotFound)

	_, err = repo.LoadAll(context.Background(), time.Now())
	assert.Error(t, err)
}
