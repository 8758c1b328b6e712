// Package asynchook moves unibill.Hooks calls off the bus and scheduler
// goroutines onto a small worker pool.
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    QueuedEvery:  100, // ~every 100th enqueue
//	    DroppedEvery: 1,
//	})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 calls
//	defer hooks.Close()
//
//	cfg, err := unibill.NewConfiguration(unibill.Config{Providers: ps, Hooks: hooks})
//	...
//	err = svc.Init(ctx, cfg)
//
// Calls are dropped when the queue is full; Dropped reports how many.
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/unibill"
)

type Hooks struct {
	inner unibill.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ unibill.Hooks = (*Hooks)(nil)

func New(inner unibill.Hooks, workers, qlen int) *Hooks {
	if inner == nil {
		inner = unibill.NopHooks{}
	}
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued calls and stops the workers. Calls after Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped is the number of calls lost to a full queue or a closed pool.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) RequestQueued(t unibill.RequestType, depth int) {
	h.try(func() { h.inner.RequestQueued(t, depth) })
}
func (h *Hooks) RequestDispatched(t unibill.RequestType, waited time.Duration) {
	h.try(func() { h.inner.RequestDispatched(t, waited) })
}
func (h *Hooks) SetupFinished(s unibill.SetupStatus, name string, took time.Duration) {
	h.try(func() { h.inner.SetupFinished(s, name, took) })
}
func (h *Hooks) ProviderUnavailable(name string, recovering bool) {
	h.try(func() { h.inner.ProviderUnavailable(name, recovering) })
}
func (h *Hooks) EventDropped(k unibill.Kind)           { h.try(func() { h.inner.EventDropped(k) }) }
func (h *Hooks) SubscriberPanic(k unibill.Kind, r any) { h.try(func() { h.inner.SubscriberPanic(k, r) }) }
