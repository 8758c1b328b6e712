// Package provider defines the billing backend abstraction used by unibill.
//
// A Provider wraps one in-app-purchase SDK (a store, a carrier billing service,
// an in-memory fake, ...). unibill never talks to an SDK directly: it selects one
// Provider during setup and routes every request to it.
//
// Operations are asynchronous. Implementations MUST call the supplied Done exactly
// once per operation, from any goroutine, and MUST NOT block the caller while the
// backend works. Calling Done synchronously from inside the method is allowed.
//
// A provider that discovers it can no longer serve requests reports it through
// StatusBillingUnavailable or StatusServiceUnavailable on the Result; unibill
// treats that as a signal to re-run provider selection when auto-recovery is on.
package provider

import (
	"context"
)

// Info is the immutable identity of a provider.
type Info struct {
	Name    string `json:"name" msgpack:"name" cbor:"name" yaml:"name"`
	Package string `json:"package,omitempty" msgpack:"package,omitempty" cbor:"package,omitempty" yaml:"package,omitempty"`
}

func (i Info) String() string {
	if i.Package == "" {
		return i.Name
	}
	return i.Name + "(" + i.Package + ")"
}

// Done receives the outcome of one asynchronous operation.
type Done func(Result)

// Provider is the capability contract every billing backend implements.
type Provider interface {
	// Info returns the provider identity. It must be stable for the process lifetime.
	Info() Info

	// CheckEnvironment validates deployment prerequisites (credentials present,
	// SDK linked, ...). A non-nil error is fatal for initialization.
	CheckEnvironment() error

	// IsAuthorised reports whether the user/device is authorised with the backend.
	// Queried live on every setup attempt.
	IsAuthorised(ctx context.Context) bool

	// IsAvailable reports whether the backend can serve requests right now.
	// Queried live on every setup attempt.
	IsAvailable(ctx context.Context) bool

	Purchase(ctx context.Context, sku string, skuType SkuType, done Done)
	Consume(ctx context.Context, purchase Purchase, done Done)
	Inventory(ctx context.Context, startOver bool, done Done)
	SkuDetails(ctx context.Context, skus []string, done Done)
}
