// Package ristretto adapts dgraph-io/ristretto to store.Store.
package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/unibill/store"
)

var ErrInvalidConfig = errors.New("ristretto store: invalid config")

type Config struct {
	NumCounters int64 // ~10x the expected number of entries
	MaxCost     int64 // total bytes; each entry costs len(value)
	BufferItems int64 // 64 is the upstream recommendation
	Metrics     bool

	// Sync waits for each write to be applied before Set returns. Ristretto
	// buffers writes, so without it a Get right after Set may miss.
	Sync bool
}

type Store struct {
	c    *rc.Cache
	sync bool
}

var _ store.Store = (*Store)(nil)

func New(cfg Config) (*Store, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, ErrInvalidConfig
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Store{c: c, sync: cfg.Sync}, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, isBytes := v.([]byte)
	if !isBytes {
		s.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	// rejected writes are not an error: the entry is simply not cached
	s.c.SetWithTTL(key, value, int64(len(value)), ttl)
	if s.sync {
		s.c.Wait()
	}
	return nil
}

func (s *Store) Del(_ context.Context, key string) error {
	s.c.Del(key)
	return nil
}

func (s *Store) Close(context.Context) error {
	s.c.Wait()
	s.c.Close()
	return nil
}

// Metrics is nil unless Config.Metrics was set.
func (s *Store) Metrics() *rc.Metrics { return s.c.Metrics }
