package unibill

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/unibill/provider"
)

const waitFor = 2 * time.Second

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, waitFor, time.Millisecond, msg)
}

type fakeCall struct {
	op      string
	sku     string
	skuType provider.SkuType
	at      time.Time
}

// fakeProvider completes every operation on its own goroutine with status.
type fakeProvider struct {
	info       provider.Info
	authorised atomic.Bool
	available  atomic.Bool
	envErr     error

	mu     sync.Mutex
	status provider.Status
	hold   chan struct{} // non-nil: completions wait until it is closed
	calls  []fakeCall
}

func newFake(name string, authorised, available bool) *fakeProvider {
	p := &fakeProvider{info: provider.Info{Name: name, Package: "test." + name}}
	p.authorised.Store(authorised)
	p.available.Store(available)
	return p
}

func (p *fakeProvider) Info() provider.Info                 { return p.info }
func (p *fakeProvider) CheckEnvironment() error             { return p.envErr }
func (p *fakeProvider) IsAuthorised(_ context.Context) bool { return p.authorised.Load() }
func (p *fakeProvider) IsAvailable(_ context.Context) bool  { return p.available.Load() }

func (p *fakeProvider) setStatus(s provider.Status) {
	p.mu.Lock()
	p.status = s
	p.mu.Unlock()
}

func (p *fakeProvider) holdCompletions() chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hold = make(chan struct{})
	return p.hold
}

func (p *fakeProvider) recorded() []fakeCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]fakeCall(nil), p.calls...)
}

func (p *fakeProvider) record(c fakeCall, done provider.Done, res func(provider.Status) provider.Result) {
	c.at = time.Now()
	p.mu.Lock()
	p.calls = append(p.calls, c)
	status, hold := p.status, p.hold
	p.mu.Unlock()

	r := res(status)
	go func() {
		if hold != nil {
			<-hold
		}
		done(r)
	}()
}

func (p *fakeProvider) Purchase(_ context.Context, sku string, t provider.SkuType, done provider.Done) {
	p.record(fakeCall{op: "purchase", sku: sku, skuType: t}, done, func(s provider.Status) provider.Result {
		return provider.Result{Status: s, Purchase: &provider.Purchase{SKU: sku, Type: t, Token: "tok-" + sku}}
	})
}

func (p *fakeProvider) Consume(_ context.Context, pur provider.Purchase, done provider.Done) {
	p.record(fakeCall{op: "consume", sku: pur.SKU}, done, func(s provider.Status) provider.Result {
		return provider.Result{Status: s, Purchase: &pur}
	})
}

func (p *fakeProvider) Inventory(_ context.Context, _ bool, done provider.Done) {
	p.record(fakeCall{op: "inventory"}, done, func(s provider.Status) provider.Result {
		return provider.Result{Status: s}
	})
}

func (p *fakeProvider) SkuDetails(_ context.Context, skus []string, done provider.Done) {
	p.record(fakeCall{op: "sku_details"}, done, func(s provider.Status) provider.Result {
		out := make([]provider.SkuDetails, 0, len(skus))
		for _, sku := range skus {
			out = append(out, provider.SkuDetails{SKU: sku})
		}
		return provider.Result{Status: s, SkuDetails: out}
	})
}

// recorder is a Listener that keeps everything it sees.
type recorder struct {
	NopListener

	mu     sync.Mutex
	events []Event
}

func (r *recorder) add(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) OnSetupStarted(e *SetupStartedEvent) { r.add(e) }
func (r *recorder) OnSetup(e *SetupEvent)               { r.add(e) }
func (r *recorder) OnRequest(e Request)                 { r.add(e) }
func (r *recorder) OnResponse(e Response)               { r.add(e) }

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) setups() []*SetupEvent {
	var out []*SetupEvent
	for _, e := range r.all() {
		if s, ok := e.(*SetupEvent); ok {
			out = append(out, s)
		}
	}
	return out
}

func (r *recorder) responses() []Response {
	var out []Response
	for _, e := range r.all() {
		if s, ok := e.(Response); ok {
			out = append(out, s)
		}
	}
	return out
}

func (r *recorder) count(k Kind) int {
	n := 0
	for _, e := range r.all() {
		if e.Kind() == k {
			n++
		}
	}
	return n
}

type countingHooks struct {
	NopHooks

	dropped  atomic.Int32
	panics   atomic.Int32
	queued   atomic.Int32
	released atomic.Int32
	setups   atomic.Int32
	outages  atomic.Int32
}

func (h *countingHooks) EventDropped(Kind)                                { h.dropped.Add(1) }
func (h *countingHooks) SubscriberPanic(Kind, any)                        { h.panics.Add(1) }
func (h *countingHooks) RequestQueued(RequestType, int)                   { h.queued.Add(1) }
func (h *countingHooks) RequestDispatched(RequestType, time.Duration)     { h.released.Add(1) }
func (h *countingHooks) SetupFinished(SetupStatus, string, time.Duration) { h.setups.Add(1) }
func (h *countingHooks) ProviderUnavailable(string, bool)                 { h.outages.Add(1) }

// newTestBilling builds and initializes a Billing owned by a fresh owner.
func newTestBilling(t *testing.T, c Config) (Billing, context.Context) {
	t.Helper()
	owner := NewOwner()
	ctx := WithOwner(context.Background(), owner)
	if c.SubsequentRequestDelay == 0 {
		c.SubsequentRequestDelay = 5 * time.Millisecond
	}
	cfg, err := NewConfiguration(c)
	require.NoError(t, err)

	b := New(owner)
	require.NoError(t, b.Init(ctx, cfg))
	t.Cleanup(func() { _ = b.Close(ctx) })
	return b, ctx
}
