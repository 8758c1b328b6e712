package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	asynchook "github.com/unkn0wn-root/unibill/hooks/async"
	"github.com/unkn0wn-root/unibill/sloghooks"
)

// newHooks builds the hooks selected by UNIBILL_HOOKS: "" or "off" disables
// them, "slog" writes text lines to w and "slog-json" JSON lines. Calls go
// through a worker so a slow writer never stalls the bus. The caller closes
// the result once billing is closed.
func newHooks(mode string, w io.Writer) (*asynchook.Hooks, error) {
	var h slog.Handler
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	switch mode {
	case "", "off":
		return nil, nil
	case "slog":
		h = slog.NewTextHandler(w, opts)
	case "slog-json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown UNIBILL_HOOKS %q (want off, slog or slog-json)", mode)
	}
	raw := sloghooks.New(slog.New(h), sloghooks.Options{
		QueuedEvery:     10,
		DispatchedEvery: 10,
		SlowQueue:       time.Second,
	})
	return asynchook.New(raw, 1, 1024), nil
}
