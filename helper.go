package unibill

import (
	"context"
	"sync"

	"github.com/unkn0wn-root/unibill/provider"
)

// Helper groups listeners that come and go together, typically with a single
// screen or session. A new Helper is registered: listeners added to it start
// receiving events right away. Unregister detaches all of them at once and
// Register attaches them again.
//
// Helper also forwards billing requests to the instance it was created from.
type Helper struct {
	svc *service

	mu         sync.Mutex
	entries    []*helperEntry
	registered bool
}

type helperEntry struct {
	topics  []Topic
	handler Handler
	sub     *Subscription

	// set for setup listeners that want the last SetupEvent on attach
	deliverLast bool
}

func (h *Helper) add(topics []Topic, handler Handler, deliverLast bool) {
	e := &helperEntry{topics: topics, handler: handler, deliverLast: deliverLast}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
	if h.registered {
		h.attachLocked(e)
	}
}

func (h *Helper) attachLocked(e *helperEntry) {
	bus := h.svc.bus
	e.sub = bus.Register(e.topics, e.handler, priorityListeners)
	if !e.deliverLast {
		return
	}
	reg := h.svc.registry
	bus.deliverLast(e.sub, func() Event {
		// a typed nil *SetupEvent must not leak out as a non-nil Event
		if last := reg.LastSetup(); last != nil {
			return last
		}
		return nil
	})
}

// AddSetupListener calls fn for every SetupEvent. With deliverLast set, fn
// also receives the most recent SetupEvent, if any, without a new setup round.
func (h *Helper) AddSetupListener(fn func(*SetupEvent), deliverLast bool) {
	h.add([]Topic{TopicSetup}, typedHandler(fn), deliverLast)
}

func (h *Helper) AddSetupStartedListener(fn func(*SetupStartedEvent)) {
	h.add([]Topic{TopicSetupStarted}, typedHandler(fn), false)
}

func (h *Helper) AddPurchaseListener(fn func(*PurchaseResponse)) {
	h.add([]Topic{TopicPurchaseResponse}, typedHandler(fn), false)
}

func (h *Helper) AddConsumeListener(fn func(*ConsumeResponse)) {
	h.add([]Topic{TopicConsumeResponse}, typedHandler(fn), false)
}

func (h *Helper) AddInventoryListener(fn func(*InventoryResponse)) {
	h.add([]Topic{TopicInventoryResponse}, typedHandler(fn), false)
}

func (h *Helper) AddSkuDetailsListener(fn func(*SkuDetailsResponse)) {
	h.add([]Topic{TopicSkuDetailsResponse}, typedHandler(fn), false)
}

// AddBillingListener attaches every callback of l.
func (h *Helper) AddBillingListener(l Listener) {
	if l == nil {
		return
	}
	h.add(listenerTopics, listenerHandler{l: l}, false)
}

// Register attaches all listeners. It is a no-op when already registered.
// Setup listeners added with deliverLast get the last SetupEvent again.
func (h *Helper) Register() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.registered {
		return
	}
	h.registered = true
	for _, e := range h.entries {
		h.attachLocked(e)
	}
}

// Unregister detaches all listeners. Events already queued on the bus are not
// delivered to them.
func (h *Helper) Unregister() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.registered {
		return
	}
	h.registered = false
	for _, e := range h.entries {
		h.svc.bus.Unregister(e.sub)
		e.sub = nil
	}
}

// Registered reports whether the helper's listeners are attached.
func (h *Helper) Registered() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registered
}

func (h *Helper) Setup(ctx context.Context) error { return h.svc.Setup(ctx) }

func (h *Helper) Purchase(ctx context.Context, sku string) error { return h.svc.Purchase(ctx, sku) }

func (h *Helper) Subscribe(ctx context.Context, sku string) error { return h.svc.Subscribe(ctx, sku) }

func (h *Helper) Consume(ctx context.Context, purchase provider.Purchase) error {
	return h.svc.Consume(ctx, purchase)
}

func (h *Helper) Inventory(ctx context.Context, startOver bool) error {
	return h.svc.Inventory(ctx, startOver)
}

func (h *Helper) SkuDetails(ctx context.Context, skus ...string) error {
	return h.svc.SkuDetails(ctx, skus...)
}

// ActiveProvider is Billing.ActiveProvider.
func (h *Helper) ActiveProvider() provider.Provider { return h.svc.ActiveProvider() }
