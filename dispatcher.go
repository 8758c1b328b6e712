package unibill

import (
	"context"
	"sync"

	"github.com/unkn0wn-root/unibill/provider"
)

// dispatcher runs on the bus goroutine. It forwards released billing requests
// to the active provider and turns provider completions into Response events.
type dispatcher struct {
	ctx      context.Context
	registry *registry
	bus      *Bus
	log      Logger
}

func (d *dispatcher) OnEvent(e Event) {
	req, ok := e.(Request)
	if !ok || req.Type() == RequestSetup {
		return
	}

	p := d.registry.Active()
	if p == nil {
		d.log.Warn("no active provider; failing request", Fields{"type": req.Type().String()})
		d.bus.Post(newFailedResponse(req, provider.StatusFailed))
		return
	}

	done := d.completion(req, p)
	switch r := req.(type) {
	case *PurchaseRequest:
		p.Purchase(d.ctx, r.SKU(), r.SkuType(), done)
	case *ConsumeRequest:
		p.Consume(d.ctx, r.Purchase(), done)
	case *InventoryRequest:
		p.Inventory(d.ctx, r.StartOver(), done)
	case *SkuDetailsRequest:
		p.SkuDetails(d.ctx, r.SKUs(), done)
	}
}

// completion returns the provider.Done for req. It may be called from any
// goroutine; only the first call counts.
func (d *dispatcher) completion(req Request, p provider.Provider) provider.Done {
	var once sync.Once
	return func(res provider.Result) {
		once.Do(func() {
			if res.Status.Unavailable() {
				f := providerFields(p).with("status", res.Status.String())
				if res.Err != nil {
					f["err"] = res.Err
				}
				d.log.Warn("provider reported unavailable", f)
				d.bus.Post(newResponse(req, p, res))
				d.bus.Post(&ProviderUnavailableEvent{provider: p})
				return
			}
			if res.Err != nil {
				d.log.Debug("provider operation failed", providerFields(p).with("err", res.Err))
			}
			d.bus.Post(newResponse(req, p, res))
		})
	}
}
