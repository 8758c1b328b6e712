package asynchook

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/unibill"
)

type recordingHooks struct {
	unibill.NopHooks

	mu    sync.Mutex
	calls []string
	block chan struct{}
}

func (r *recordingHooks) add(s string) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	r.calls = append(r.calls, s)
	r.mu.Unlock()
}

func (r *recordingHooks) RequestQueued(t unibill.RequestType, _ int) { r.add("queued:" + t.String()) }
func (r *recordingHooks) EventDropped(k unibill.Kind)                { r.add("dropped:" + k.String()) }
func (r *recordingHooks) SetupFinished(s unibill.SetupStatus, _ string, _ time.Duration) {
	r.add("setup:" + s.String())
}

func (r *recordingHooks) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestForwardsInOrderWithOneWorker(t *testing.T) {
	rec := &recordingHooks{}
	h := New(rec, 1, 16)

	h.RequestQueued(unibill.RequestPurchase, 1)
	h.SetupFinished(unibill.SetupSuccess, "mem", time.Millisecond)
	h.EventDropped(unibill.KindPurchaseResponse)
	h.Close()

	require.Equal(t, []string{
		"queued:" + unibill.RequestPurchase.String(),
		"setup:" + unibill.SetupSuccess.String(),
		"dropped:" + unibill.KindPurchaseResponse.String(),
	}, rec.snapshot())
	require.Zero(t, h.Dropped())
}

func TestFullQueueDrops(t *testing.T) {
	rec := &recordingHooks{block: make(chan struct{})}
	h := New(rec, 1, 1)

	// the worker takes the first call and blocks; the second fills the queue
	h.RequestQueued(unibill.RequestSetup, 1)
	require.Eventually(t, func() bool { return len(h.q) == 0 }, time.Second, time.Millisecond)
	h.RequestQueued(unibill.RequestSetup, 2)
	h.RequestQueued(unibill.RequestSetup, 3)
	require.EqualValues(t, 1, h.Dropped())

	close(rec.block)
	h.Close()
	require.Len(t, rec.snapshot(), 2)
}

func TestCallsAfterCloseAreDropped(t *testing.T) {
	h := New(nil, 0, 0)
	h.Close()
	h.Close()
	require.NotPanics(t, func() { h.SubscriberPanic(unibill.KindSetup, "x") })
	require.EqualValues(t, 1, h.Dropped())
}
