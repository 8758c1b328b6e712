package unibill

import (
	"sync/atomic"

	"github.com/unkn0wn-root/unibill/provider"
)

// registry is the base state every other component reads: the active provider
// and the last setup outcome. It changes only when a SetupEvent is delivered
// to it, so the active provider can never switch without a SetupEvent on the bus.
type registry struct {
	active    atomic.Pointer[providerRef]
	lastSetup atomic.Pointer[SetupEvent]
}

type providerRef struct {
	p provider.Provider
}

func (r *registry) OnEvent(e Event) {
	ev, ok := e.(*SetupEvent)
	if !ok {
		return
	}
	r.lastSetup.Store(ev)
	if ev.Provider() == nil {
		r.active.Store(nil)
		return
	}
	r.active.Store(&providerRef{p: ev.Provider()})
}

// Active returns the selected provider or nil.
func (r *registry) Active() provider.Provider {
	if ref := r.active.Load(); ref != nil {
		return ref.p
	}
	return nil
}

// LastSetup returns the most recent SetupEvent or nil before the first setup.
func (r *registry) LastSetup() *SetupEvent {
	return r.lastSetup.Load()
}

func sameProvider(a, b provider.Provider) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Info() == b.Info()
}
