// Package unibill puts several in-app-purchase backends behind one
// request/response API. The caller asks for a purchase, a consume, an inventory
// page or sku details without knowing which backend serves it.
//
// Components:
//   - Bus: priority pub/sub; every event is delivered on one goroutine, in order.
//   - Setup manager: picks the active provider on each SetupRequest and reports
//     the outcome as a SetupEvent.
//   - Scheduler: FIFO request queue. Same-type requests are spaced by
//     SubsequentRequestDelay and billing requests wait for a successful setup.
//   - Dispatcher: sends released requests to the active provider and posts the
//     provider's completion back as a Response.
//
// Flow:
//
//	Billing.Purchase -> scheduler -> bus(PurchaseRequest) -> dispatcher
//	  -> provider.Purchase -> Done -> bus(PurchaseResponse) -> listeners
//
// Usage:
//
//	owner := unibill.NewOwner()
//	ctx = unibill.WithOwner(ctx, owner)
//	b := unibill.New(owner)
//	cfg, _ := unibill.NewConfiguration(unibill.Config{Providers: ps, Listener: l})
//	_ = b.Init(ctx, cfg)
//	_ = b.Setup(ctx)
//	_ = b.Purchase(ctx, "coins_100")
package unibill
