package unibill

import (
	"context"
	"sync/atomic"
)

var ownerSeq atomic.Uint64

// Owner identifies the execution context that owns a Billing instance (in an
// app, the UI loop). Every call into Billing must carry the owner's token in its
// context; calls from anywhere else fail with ErrWrongContext.
type Owner struct {
	id uint64
}

// NewOwner returns a fresh, unique owner token.
func NewOwner() Owner {
	return Owner{id: ownerSeq.Add(1)}
}

func (o Owner) valid() bool { return o.id != 0 }

type ownerKey struct{}

// WithOwner returns a copy of ctx carrying o.
func WithOwner(ctx context.Context, o Owner) context.Context {
	return context.WithValue(ctx, ownerKey{}, o)
}

// OwnerFrom extracts the owner token carried by ctx.
func OwnerFrom(ctx context.Context) (Owner, bool) {
	if ctx == nil {
		return Owner{}, false
	}
	o, ok := ctx.Value(ownerKey{}).(Owner)
	return o, ok && o.valid()
}
