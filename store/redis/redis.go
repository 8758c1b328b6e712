// Package redis adapts a go-redis client to store.Store so cached sku details
// are shared between processes.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/unibill/store"
)

var ErrNilClient = errors.New("redis store: nil client")

type Config struct {
	Client goredis.UniversalClient

	// Prefix is prepended to every key, e.g. "app:prod:".
	Prefix string

	// DefaultTTL applies when Set is called with ttl <= 0. Zero keeps keys
	// without expiry.
	DefaultTTL time.Duration

	// CloseClient closes Client on Close. Set only when the store owns it.
	CloseClient bool
}

type Store struct {
	rdb         goredis.UniversalClient
	prefix      string
	defaultTTL  time.Duration
	closeClient bool
}

var _ store.Store = (*Store)(nil)

func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Store{
		rdb:         cfg.Client,
		prefix:      cfg.Prefix,
		defaultTTL:  cfg.DefaultTTL,
		closeClient: cfg.CloseClient,
	}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	return s.rdb.Set(ctx, s.prefix+key, value, ttl).Err()
}

func (s *Store) Del(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.prefix+key).Err()
}

// Close is idempotent.
func (s *Store) Close(context.Context) error {
	if !s.closeClient {
		return nil
	}
	if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
		return err
	}
	return nil
}
