package unibill

import (
	"context"

	"github.com/unkn0wn-root/unibill/provider"
)

// Billing is the caller-facing API. Every method taking a context must be
// called with a context carrying the owner token (see WithOwner); other
// callers get ErrWrongContext.
//
// Request methods only enqueue: results arrive as events on listeners.
type Billing interface {
	// Init validates providers and starts the bus and the scheduler. It must be
	// called exactly once, before anything else.
	Init(ctx context.Context, cfg Configuration) error
	Close(ctx context.Context) error

	Setup(ctx context.Context) error
	Purchase(ctx context.Context, sku string) error
	Subscribe(ctx context.Context, sku string) error
	Consume(ctx context.Context, purchase provider.Purchase) error
	Inventory(ctx context.Context, startOver bool) error
	SkuDetails(ctx context.Context, skus ...string) error

	// NewHelper returns a listener group bound to this instance.
	NewHelper(ctx context.Context) (*Helper, error)

	// ActiveProvider returns the provider selected by the last delivered
	// SetupEvent, or nil. Safe from any goroutine.
	ActiveProvider() provider.Provider
}

// New returns an uninitialized Billing owned by owner.
func New(owner Owner) Billing {
	return newService(owner)
}
