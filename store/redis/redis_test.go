package redis

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresClient(t *testing.T) {
	_, err := New(Config{})
	require.ErrorIs(t, err, ErrNilClient)
}

// Runs against a live server when UNIBILL_REDIS_ADDR is set.
func TestRoundTrip(t *testing.T) {
	addr := os.Getenv("UNIBILL_REDIS_ADDR")
	if addr == "" {
		t.Skip("UNIBILL_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	require.NoError(t, rdb.Ping(ctx).Err())

	prefix := "unibill:test:" + time.Now().Format("150405.000000") + ":"
	s, err := New(Config{Client: rdb, Prefix: prefix, DefaultTTL: time.Minute, CloseClient: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close(ctx))
		require.NoError(t, s.Close(ctx))
	})

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
	ttl, err := rdb.TTL(ctx, prefix+"k").Result()
	require.NoError(t, err)
	require.Positive(t, ttl)

	b, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), b)

	require.NoError(t, s.Del(ctx, "k"))
	_, ok, _ = s.Get(ctx, "k")
	require.False(t, ok)
}
