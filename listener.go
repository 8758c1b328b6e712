package unibill

// Listener receives every category of billing event. Embed NopListener to
// implement only the callbacks you need.
//
// Callbacks run on the bus goroutine, one at a time. They must return quickly
// and must not panic: a panicking listener brings the bus down unless a
// PanicHandler is configured.
type Listener interface {
	OnSetupStarted(e *SetupStartedEvent)
	OnSetup(e *SetupEvent)

	// OnRequest sees every billing request (not setup) as it is dispatched.
	OnRequest(r Request)

	// OnResponse sees every response, right before the typed callback below.
	OnResponse(r Response)
	OnPurchase(r *PurchaseResponse)
	OnConsume(r *ConsumeResponse)
	OnInventory(r *InventoryResponse)
	OnSkuDetails(r *SkuDetailsResponse)
}

// NopListener is a Listener that ignores everything.
type NopListener struct{}

func (NopListener) OnSetupStarted(*SetupStartedEvent) {}
func (NopListener) OnSetup(*SetupEvent)               {}
func (NopListener) OnRequest(Request)                 {}
func (NopListener) OnResponse(Response)               {}
func (NopListener) OnPurchase(*PurchaseResponse)      {}
func (NopListener) OnConsume(*ConsumeResponse)        {}
func (NopListener) OnInventory(*InventoryResponse)    {}
func (NopListener) OnSkuDetails(*SkuDetailsResponse)  {}

var listenerTopics = []Topic{TopicSetupStarted, TopicSetup, TopicRequest, TopicResponse}

// listenerHandler fans a bus event out to the matching Listener callbacks.
type listenerHandler struct {
	l Listener
}

func (h listenerHandler) OnEvent(e Event) {
	switch ev := e.(type) {
	case *SetupStartedEvent:
		h.l.OnSetupStarted(ev)
	case *SetupEvent:
		h.l.OnSetup(ev)
	case Request:
		if ev.Type() != RequestSetup {
			h.l.OnRequest(ev)
		}
	case Response:
		h.l.OnResponse(ev)
		switch r := ev.(type) {
		case *PurchaseResponse:
			h.l.OnPurchase(r)
		case *ConsumeResponse:
			h.l.OnConsume(r)
		case *InventoryResponse:
			h.l.OnInventory(r)
		case *SkuDetailsResponse:
			h.l.OnSkuDetails(r)
		}
	}
}

// typedHandler adapts a single-category callback.
func typedHandler[E Event](fn func(E)) Handler {
	return HandlerFunc(func(e Event) {
		if ev, ok := e.(E); ok {
			fn(ev)
		}
	})
}
