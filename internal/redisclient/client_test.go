package redisclient

import (
	"context"
	"testing"
	"time"

	"backoffice/internal/auth"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}))
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestRevokeStoresKeyWithTTL(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))
	require.NoError(t, c.Revoke(ctx, "tok-1", 10*time.Minute))

	assert.True(t, mr.Exists("revoked:tok-1"))
	assert.Equal(t, 10*time.Minute, mr.TTL("revoked:tok-1"))

	revoked, err := c.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = c.IsRevoked(ctx, "tok-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevokedKeyExpires(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Revoke(ctx, "tok-1", time.Minute))
	mr.FastForward(time.Minute + time.Second)

	revoked, err := c.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestDenylistErrorsWhenRedisIsDown(t *testing.T) {
	c, mr := newTestClient(t)
	mr.Close()

	_, err := c.IsRevoked(context.Background(), "tok-1")
	assert.ErrorContains(t, err, "failed to check revoked token")

	err = c.Revoke(context.Background(), "tok-1", time.Minute)
	assert.ErrorContains(t, err, "failed to revoke token")
}

func TestTokenManagerUsesRedisDenylist(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()
	tm := auth.NewTokenManager("secret", time.Hour, c)

	raw, err := tm.Issue(7, "ana@x.com", "customer")
	require.NoError(t, err)

	claims, err := tm.Parse(ctx, raw)
	require.NoError(t, err)
	require.NoError(t, tm.Revoke(ctx, claims))
	assert.True(t, mr.Exists("revoked:"+claims.ID))

	_, err = tm.Parse(ctx, raw)
	assert.ErrorIs(t, err, auth.ErrTokenRevoked)

	mr.Close()
	_, err = tm.Parse(ctx, raw)
	assert.ErrorIs(t, err, auth.ErrDenylistUnavailable)
}
