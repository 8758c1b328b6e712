// Package sloghooks implements unibill.Hooks on top of log/slog.
package sloghooks

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/unibill"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	QueuedEvery     uint64
	DispatchedEvery uint64
	DroppedEvery    uint64

	// SlowQueue raises RequestDispatched to Warn when a request waited longer.
	// Zero disables it.
	SlowQueue time.Duration
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	queuedCtr     atomic.Uint64
	dispatchedCtr atomic.Uint64
	droppedCtr    atomic.Uint64
}

var _ unibill.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) RequestQueued(t unibill.RequestType, depth int) {
	if h.l == nil || !sample(h.opts.QueuedEvery, &h.queuedCtr) {
		return
	}
	h.l.Debug("unibill.request_queued",
		"type", t.String(),
		"depth", depth)
}

func (h *Hooks) RequestDispatched(t unibill.RequestType, waited time.Duration) {
	if h.l == nil {
		return
	}
	if h.opts.SlowQueue > 0 && waited > h.opts.SlowQueue {
		h.l.Warn("unibill.request_slow",
			"type", t.String(),
			"waited", waited)
		return
	}
	if !sample(h.opts.DispatchedEvery, &h.dispatchedCtr) {
		return
	}
	h.l.Debug("unibill.request_dispatched",
		"type", t.String(),
		"waited", waited)
}

func (h *Hooks) SetupFinished(status unibill.SetupStatus, providerName string, took time.Duration) {
	if h.l == nil {
		return
	}
	lvl := slog.LevelInfo
	if status == unibill.SetupFailed {
		lvl = slog.LevelWarn
	}
	h.l.Log(context.Background(), lvl, "unibill.setup_finished",
		"status", status.String(),
		"provider", providerName,
		"took", took)
}

func (h *Hooks) ProviderUnavailable(providerName string, recovering bool) {
	if h.l == nil {
		return
	}
	h.l.Warn("unibill.provider_unavailable",
		"provider", providerName,
		"recovering", recovering)
}

func (h *Hooks) EventDropped(k unibill.Kind) {
	if h.l == nil || !sample(h.opts.DroppedEvery, &h.droppedCtr) {
		return
	}
	h.l.Debug("unibill.event_dropped",
		"kind", k.String())
}

func (h *Hooks) SubscriberPanic(k unibill.Kind, recovered any) {
	if h.l == nil {
		return
	}
	h.l.Error("unibill.subscriber_panic",
		"kind", k.String(),
		"panic", recovered)
}
