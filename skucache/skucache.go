// Package skucache decorates a provider.Provider with a sku details cache.
//
// SkuDetails requests whose skus are all cached (including skus the provider
// reported as unknown) complete synchronously without reaching the provider.
// Otherwise only the missing skus are forwarded and the successful result is
// stored per sku. Every other operation passes through untouched.
//
// Entries carry the generation of their namespace. Invalidate bumps it, which
// drops every entry at once without touching the store:
//
//	obs := gen(ns)              // before the provider call
//	details := inner.SkuDetails // may take seconds
//	store(entry{obs, details})  // written under obs
//	Invalidate()                // gen(ns) = obs+1; the entry above is now stale
package skucache

import (
	"context"
	"errors"
	"time"

	"github.com/unkn0wn-root/unibill"
	"github.com/unkn0wn-root/unibill/codec"
	"github.com/unkn0wn-root/unibill/genstore"
	"github.com/unkn0wn-root/unibill/internal/keys"
	"github.com/unkn0wn-root/unibill/internal/wire"
	"github.com/unkn0wn-root/unibill/provider"
	"github.com/unkn0wn-root/unibill/store"
)

const DefaultTTL = time.Hour

var ErrNoStore = errors.New("skucache: Store is required")

type Options struct {
	// Namespace separates entries of different providers sharing one store.
	// Defaults to the wrapped provider's Info().String().
	Namespace string

	Store    store.Store                      // required
	Codec    codec.Codec[provider.SkuDetails] // default codec.JSON
	GenStore genstore.GenStore                // default genstore.NewLocal()
	TTL      time.Duration                    // 0 => DefaultTTL
	Logger   unibill.Logger                   // nil => unibill.NopLogger
}

// Provider is the caching decorator. It reports the wrapped provider's Info,
// so selection and responses are unaffected by the wrapping.
type Provider struct {
	provider.Provider

	ns    string
	scope string
	store store.Store
	codec codec.Codec[provider.SkuDetails]
	gens  genstore.GenStore
	ttl   time.Duration
	log   unibill.Logger
	now   func() time.Time
}

var _ provider.Provider = (*Provider)(nil)

func Wrap(inner provider.Provider, opt Options) (*Provider, error) {
	if inner == nil {
		return nil, errors.New("skucache: nil provider")
	}
	if opt.Store == nil {
		return nil, ErrNoStore
	}
	if opt.TTL < 0 {
		return nil, errors.New("skucache: negative TTL")
	}
	ns := opt.Namespace
	if ns == "" {
		ns = inner.Info().String()
	}
	p := &Provider{
		Provider: inner,
		ns:       ns,
		scope:    keys.Scope(ns),
		store:    opt.Store,
		codec:    opt.Codec,
		gens:     opt.GenStore,
		ttl:      opt.TTL,
		log:      opt.Logger,
		now:      time.Now,
	}
	if p.codec == nil {
		p.codec = codec.JSON[provider.SkuDetails]{}
	}
	if p.gens == nil {
		p.gens = genstore.NewLocal()
	}
	if p.ttl == 0 {
		p.ttl = DefaultTTL
	}
	if p.log == nil {
		p.log = unibill.NopLogger{}
	}
	return p, nil
}

// Unwrap returns the decorated provider.
func (p *Provider) Unwrap() provider.Provider { return p.Provider }

// Invalidate drops every cached entry of this namespace.
func (p *Provider) Invalidate(ctx context.Context) error {
	g, err := p.gens.Bump(ctx, p.scope)
	if err != nil {
		p.log.Error("skucache invalidate failed", unibill.Fields{"ns": p.ns, "err": err})
		return err
	}
	p.log.Debug("skucache invalidated", unibill.Fields{"ns": p.ns, "gen": g})
	return nil
}

// lookup is the cached view of one sku.
type lookup struct {
	details provider.SkuDetails
	hit     bool
	absent  bool
}

func (p *Provider) SkuDetails(ctx context.Context, skus []string, done provider.Done) {
	gen, err := p.gens.Current(ctx, p.scope)
	if err != nil {
		p.log.Warn("skucache generation unavailable; bypassing cache", unibill.Fields{"ns": p.ns, "err": err})
		p.Provider.SkuDetails(ctx, skus, done)
		return
	}

	found := make(map[string]lookup, len(skus))
	var missing []string
	for _, sku := range skus {
		if _, seen := found[sku]; seen {
			continue
		}
		l := p.read(ctx, sku, gen)
		found[sku] = l
		if !l.hit {
			missing = append(missing, sku)
		}
	}

	if len(missing) == 0 {
		done(provider.Result{Status: provider.StatusSuccess, SkuDetails: merge(skus, found)})
		return
	}

	p.Provider.SkuDetails(ctx, missing, func(res provider.Result) {
		if res.Status != provider.StatusSuccess {
			done(res)
			return
		}
		returned := make(map[string]provider.SkuDetails, len(res.SkuDetails))
		for _, d := range res.SkuDetails {
			returned[d.SKU] = d
		}
		for _, sku := range missing {
			d, ok := returned[sku]
			p.write(ctx, sku, d, !ok, gen)
			found[sku] = lookup{details: d, hit: ok, absent: !ok}
		}
		res.SkuDetails = merge(skus, found)
		done(res)
	})
}

// read returns a hit only for a well-formed entry of the current generation.
// Anything else is deleted and reported as a miss.
func (p *Provider) read(ctx context.Context, sku string, gen uint64) lookup {
	key := keys.Entry(p.ns, sku)
	raw, ok, err := p.store.Get(ctx, key)
	if err != nil {
		p.log.Warn("skucache read failed", unibill.Fields{"ns": p.ns, "sku": sku, "err": err})
		return lookup{}
	}
	if !ok {
		return lookup{}
	}

	f, err := wire.Decode(raw)
	switch {
	case err != nil:
		p.heal(ctx, key, "corrupt")
		return lookup{}
	case f.Gen != gen:
		p.heal(ctx, key, "stale")
		return lookup{}
	case f.Absent:
		return lookup{hit: true, absent: true}
	}

	d, err := p.codec.Decode(f.Payload)
	if err != nil {
		p.heal(ctx, key, "undecodable")
		return lookup{}
	}
	return lookup{details: d, hit: true}
}

func (p *Provider) write(ctx context.Context, sku string, d provider.SkuDetails, absent bool, gen uint64) {
	var frame []byte
	if absent {
		frame = wire.EncodeAbsent(gen, p.now())
	} else {
		b, err := p.codec.Encode(d)
		if err != nil {
			p.log.Warn("skucache encode failed", unibill.Fields{"ns": p.ns, "sku": sku, "err": err})
			return
		}
		frame = wire.EncodePresent(gen, p.now(), b)
	}
	if err := p.store.Set(ctx, keys.Entry(p.ns, sku), frame, p.ttl); err != nil {
		p.log.Warn("skucache write failed", unibill.Fields{"ns": p.ns, "sku": sku, "err": err})
	}
}

func (p *Provider) heal(ctx context.Context, key, reason string) {
	p.log.Debug("skucache dropping entry", unibill.Fields{"ns": p.ns, "key": key, "reason": reason})
	_ = p.store.Del(ctx, key)
}

// merge lists details in request order, once per sku, skipping absent skus.
func merge(skus []string, found map[string]lookup) []provider.SkuDetails {
	out := make([]provider.SkuDetails, 0, len(found))
	seen := make(map[string]struct{}, len(found))
	for _, sku := range skus {
		if _, dup := seen[sku]; dup {
			continue
		}
		seen[sku] = struct{}{}
		if l := found[sku]; l.hit && !l.absent {
			out = append(out, l.details)
		}
	}
	return out
}
