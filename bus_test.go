package unibill

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/unibill/provider"
)

// trace collects handler invocations in delivery order.
type trace struct {
	mu  sync.Mutex
	got []string
}

func (tr *trace) add(name string) {
	tr.mu.Lock()
	tr.got = append(tr.got, name)
	tr.mu.Unlock()
}

func (tr *trace) handler(name string) Handler {
	return HandlerFunc(func(Event) { tr.add(name) })
}

func (tr *trace) list() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.got...)
}

func newTestBus(t *testing.T, hooks Hooks, onPanic PanicHandler) *Bus {
	t.Helper()
	b := newBus(nil, hooks, onPanic)
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	return b
}

// flush waits until everything posted so far has been delivered.
func flush(t *testing.T, b *Bus) {
	t.Helper()
	require.NoError(t, b.Close(context.Background()))
}

func purchaseResponse(sku string) *PurchaseResponse {
	return NewPurchaseResponse(NewPurchaseRequest(sku, provider.SkuTypeUnknown), nil, provider.Result{Status: provider.StatusSuccess})
}

func TestBusPriorityOrder(t *testing.T) {
	b := newTestBus(t, nil, nil)
	tr := &trace{}

	b.Register([]Topic{TopicAll}, tr.handler("low"), 1)
	b.Register([]Topic{TopicAll}, tr.handler("mid-a"), 5)
	b.Register([]Topic{TopicAll}, tr.handler("high"), 10)
	b.Register([]Topic{TopicAll}, tr.handler("mid-b"), 5)

	require.True(t, b.Post(&SetupStartedEvent{}))
	flush(t, b)

	require.Equal(t, []string{"high", "mid-a", "mid-b", "low"}, tr.list())
}

func TestBusTopicMatching(t *testing.T) {
	b := newTestBus(t, nil, nil)
	tr := &trace{}

	b.Register([]Topic{TopicPurchaseResponse}, tr.handler("purchase"), 0)
	b.Register([]Topic{TopicResponse}, tr.handler("response"), 0)
	b.Register([]Topic{TopicAll}, tr.handler("all"), 0)
	// one subscription on overlapping topics is delivered once
	b.Register([]Topic{TopicResponse, TopicAll}, tr.handler("both"), 0)

	b.Post(purchaseResponse("a"))
	b.Post(NewConsumeResponse(NewConsumeRequest(provider.Purchase{}), nil, provider.Result{}))
	b.Post(&SetupStartedEvent{})
	flush(t, b)

	require.Equal(t, []string{
		"purchase", "response", "all", "both",
		"response", "all", "both",
		"all", "both",
	}, tr.list())
}

func TestBusDropsWithoutSubscribers(t *testing.T) {
	hooks := &countingHooks{}
	b := newTestBus(t, hooks, nil)

	b.Register([]Topic{TopicSetup}, HandlerFunc(func(Event) {}), 0)
	require.False(t, b.Post(purchaseResponse("a")))
	require.EqualValues(t, 1, hooks.dropped.Load())
	require.False(t, b.Post(nil))

	require.True(t, b.Post(newSetupEvent(SetupFailed, nil, false)))
}

func TestBusPostAfterClose(t *testing.T) {
	b := newTestBus(t, nil, nil)
	b.Register([]Topic{TopicAll}, HandlerFunc(func(Event) {}), 0)
	flush(t, b)
	require.False(t, b.Post(&SetupStartedEvent{}))
}

func TestBusCancel(t *testing.T) {
	b := newTestBus(t, nil, nil)
	tr := &trace{}

	b.Register([]Topic{TopicAll}, HandlerFunc(func(e Event) {
		if _, ok := e.(*SetupStartedEvent); ok {
			b.Cancel(e)
		}
	}), 10)
	b.Register([]Topic{TopicAll}, tr.handler("after"), 0)

	b.Post(&SetupStartedEvent{})
	b.Post(purchaseResponse("a"))
	flush(t, b)

	// only the second event reaches the low priority subscriber
	require.Equal(t, []string{"after"}, tr.list())
}

func TestBusCancelOtherEventIsNoop(t *testing.T) {
	b := newTestBus(t, nil, nil)
	tr := &trace{}

	other := &SetupStartedEvent{}
	b.Register([]Topic{TopicAll}, HandlerFunc(func(Event) { b.Cancel(other) }), 10)
	b.Register([]Topic{TopicAll}, tr.handler("after"), 0)

	b.Post(&SetupStartedEvent{})
	flush(t, b)
	require.Equal(t, []string{"after"}, tr.list())
}

func TestBusSerializesNestedPosts(t *testing.T) {
	b := newTestBus(t, nil, nil)
	tr := &trace{}

	b.Register([]Topic{TopicSetupStarted}, HandlerFunc(func(Event) {
		tr.add("started-1")
		// nested post is queued, not delivered inline
		b.Post(newSetupEvent(SetupSuccess, nil, false))
		tr.add("started-1-end")
	}), 10)
	b.Register([]Topic{TopicSetupStarted}, tr.handler("started-2"), 0)
	b.Register([]Topic{TopicSetup}, tr.handler("setup"), 0)

	b.Post(&SetupStartedEvent{})
	flush(t, b)

	require.Equal(t, []string{"started-1", "started-1-end", "started-2", "setup"}, tr.list())
}

func TestBusCloseDeliversHandlerPosts(t *testing.T) {
	b := newTestBus(t, nil, nil)
	tr := &trace{}

	b.Register([]Topic{TopicSetupRequest}, HandlerFunc(func(Event) {
		tr.add("setup-request")
		b.Post(&SetupStartedEvent{})
		b.Post(newSetupEvent(SetupFailed, nil, false))
	}), 0)
	b.Register([]Topic{TopicSetupStarted}, tr.handler("started"), 0)
	b.Register([]Topic{TopicSetup}, tr.handler("setup"), 0)

	require.True(t, b.Post(NewSetupRequest()))
	flush(t, b)

	require.Equal(t, []string{"setup-request", "started", "setup"}, tr.list())
	require.False(t, b.Post(&SetupStartedEvent{}), "external posts after close are rejected")
}

// listEvent is not comparable.
type listEvent struct{ tags []string }

func (listEvent) Kind() Kind { return KindSetupStarted }

func TestBusCancelNonComparableEvent(t *testing.T) {
	b := newTestBus(t, nil, nil)
	tr := &trace{}

	b.Register([]Topic{TopicAll}, HandlerFunc(func(e Event) { b.Cancel(e) }), 10)
	b.Register([]Topic{TopicAll}, tr.handler("after"), 0)

	require.NotPanics(t, func() { b.Cancel(listEvent{tags: []string{"x"}}) })
	b.Post(listEvent{tags: []string{"a"}})
	flush(t, b)

	// value events cannot be cancelled; delivery goes on
	require.Equal(t, []string{"after"}, tr.list())
}

func TestBusUnregister(t *testing.T) {
	b := newTestBus(t, nil, nil)
	tr := &trace{}

	keep := b.Register([]Topic{TopicAll}, tr.handler("keep"), 0)
	drop := b.Register([]Topic{TopicAll}, tr.handler("drop"), 0)
	require.True(t, drop.Active())
	require.True(t, b.Unregister(drop))
	require.False(t, b.Unregister(drop))
	require.False(t, drop.Active())
	require.True(t, keep.Active())

	b.Post(&SetupStartedEvent{})
	flush(t, b)
	require.Equal(t, []string{"keep"}, tr.list())
}

func TestBusUnregisterDuringDelivery(t *testing.T) {
	b := newTestBus(t, nil, nil)
	tr := &trace{}

	var late *Subscription
	b.Register([]Topic{TopicAll}, HandlerFunc(func(Event) { b.Unregister(late) }), 10)
	late = b.Register([]Topic{TopicAll}, tr.handler("late"), 0)

	b.Post(&SetupStartedEvent{})
	flush(t, b)
	require.Empty(t, tr.list())
}

func TestBusRegisterRejectsEmpty(t *testing.T) {
	b := newTestBus(t, nil, nil)
	require.Nil(t, b.Register(nil, HandlerFunc(func(Event) {}), 0))
	require.Nil(t, b.Register([]Topic{TopicAll}, nil, 0))
}

func TestBusPanicHandler(t *testing.T) {
	hooks := &countingHooks{}
	var (
		mu        sync.Mutex
		recovered []any
	)
	b := newTestBus(t, hooks, func(_ Event, r any) {
		mu.Lock()
		recovered = append(recovered, r)
		mu.Unlock()
	})
	tr := &trace{}

	b.Register([]Topic{TopicAll}, HandlerFunc(func(Event) { panic("boom") }), 10)
	b.Register([]Topic{TopicAll}, tr.handler("after"), 0)

	b.Post(&SetupStartedEvent{})
	b.Post(&SetupStartedEvent{})
	flush(t, b)

	require.Equal(t, []string{"after", "after"}, tr.list())
	require.Equal(t, []any{"boom", "boom"}, recovered)
	require.EqualValues(t, 2, hooks.panics.Load())
}

func TestBusDeliverLast(t *testing.T) {
	b := newTestBus(t, nil, nil)
	tr := &trace{}

	b.Register([]Topic{TopicSetup}, tr.handler("other"), 0)
	target := b.Register([]Topic{TopicSetup}, tr.handler("target"), 0)

	last := newSetupEvent(SetupSuccess, nil, false)
	require.True(t, b.deliverLast(target, func() Event { return last }))
	require.True(t, b.deliverLast(target, func() Event { return nil }))
	require.False(t, b.deliverLast(nil, func() Event { return last }))
	flush(t, b)

	require.Equal(t, []string{"target"}, tr.list())
}
