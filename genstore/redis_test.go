package genstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// Runs against a live server when UNIBILL_REDIS_ADDR is set.
func TestRedisBumpAndExpire(t *testing.T) {
	addr := os.Getenv("UNIBILL_REDIS_ADDR")
	if addr == "" {
		t.Skip("UNIBILL_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	ns := "unibill-test-" + time.Now().Format("150405.000000")
	s := NewRedis(rdb, ns, time.Minute)
	t.Cleanup(func() { rdb.Del(ctx, s.key("skus")) })

	g, err := s.Current(ctx, "skus")
	if err != nil || g != 0 {
		t.Fatalf("Current = %d, %v; want 0, nil", g, err)
	}
	for want := uint64(1); want <= 2; want++ {
		g, err := s.Bump(ctx, "skus")
		if err != nil || g != want {
			t.Fatalf("Bump = %d, %v; want %d", g, err, want)
		}
	}
	if g, _ := s.Current(ctx, "skus"); g != 2 {
		t.Fatalf("Current = %d, want 2", g)
	}
	if ttl := rdb.TTL(ctx, s.key("skus")).Val(); ttl <= 0 {
		t.Fatalf("ttl = %s, want > 0", ttl)
	}
}
