package genstore

import (
	"context"
	"sync"
)

// Local keeps generations in process memory. Generations restart at 0 with
// the process, so a shared store must be paired with Redis instead.
type Local struct {
	mu   sync.RWMutex
	gens map[string]uint64
}

var _ GenStore = (*Local)(nil)

func NewLocal() *Local {
	return &Local{gens: make(map[string]uint64)}
}

func (s *Local) Current(_ context.Context, scope string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gens[scope], nil
}

func (s *Local) Bump(_ context.Context, scope string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[scope]++
	return s.gens[scope], nil
}

func (s *Local) Close(context.Context) error { return nil }
