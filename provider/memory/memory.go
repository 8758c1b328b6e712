// Package memory is an in-process billing backend. It keeps a catalog and the
// owned purchases in memory and is meant for tests, demos and the simulator.
package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/unibill/provider"
)

// ErrBroken is reported by CheckEnvironment when Options.Broken is set.
var ErrBroken = errors.New("memory: environment check failed")

type Options struct {
	Name    string // required
	Package string

	Catalog    []provider.SkuDetails
	Authorised bool
	Available  bool

	// Latency delays each completion. Zero completes on a fresh goroutine
	// without waiting.
	Latency time.Duration

	// PageSize splits Inventory results; 0 returns everything in one page.
	PageSize int

	Broken bool // CheckEnvironment fails
}

// Provider implements provider.Provider over in-memory state.
type Provider struct {
	info     provider.Info
	latency  time.Duration
	pageSize int
	broken   bool

	authorised atomic.Bool
	available  atomic.Bool
	failNext   atomic.Int32

	mu      sync.Mutex
	catalog map[string]provider.SkuDetails
	owned   []provider.Purchase
	cursor  int
	seq     int

	calls sync.WaitGroup
}

var _ provider.Provider = (*Provider)(nil)

func New(opt Options) (*Provider, error) {
	if opt.Name == "" {
		return nil, fmt.Errorf("memory: name is required")
	}
	if opt.PageSize < 0 {
		return nil, fmt.Errorf("memory: negative page size %d", opt.PageSize)
	}
	p := &Provider{
		info:     provider.Info{Name: opt.Name, Package: opt.Package},
		latency:  opt.Latency,
		pageSize: opt.PageSize,
		broken:   opt.Broken,
		catalog:  make(map[string]provider.SkuDetails, len(opt.Catalog)),
	}
	for _, d := range opt.Catalog {
		p.catalog[d.SKU] = d
	}
	p.authorised.Store(opt.Authorised)
	p.available.Store(opt.Available)
	return p, nil
}

func (p *Provider) Info() provider.Info { return p.info }

func (p *Provider) CheckEnvironment() error {
	if p.broken {
		return ErrBroken
	}
	return nil
}

func (p *Provider) IsAuthorised(context.Context) bool { return p.authorised.Load() }
func (p *Provider) IsAvailable(context.Context) bool  { return p.available.Load() }

func (p *Provider) SetAuthorised(v bool) { p.authorised.Store(v) }

// SetAvailable toggles availability. While unavailable every operation
// completes with StatusBillingUnavailable.
func (p *Provider) SetAvailable(v bool) { p.available.Store(v) }

// FailNext makes the next n operations complete with StatusFailed.
func (p *Provider) FailNext(n int) { p.failNext.Store(int32(n)) }

// Owned returns a copy of the owned purchases.
func (p *Provider) Owned() []provider.Purchase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.owned)
}

// Wait blocks until every completion started so far has run.
func (p *Provider) Wait() { p.calls.Wait() }

func (p *Provider) Purchase(ctx context.Context, sku string, skuType provider.SkuType, done provider.Done) {
	p.complete(ctx, done, func() provider.Result {
		p.mu.Lock()
		defer p.mu.Unlock()

		d, ok := p.catalog[sku]
		if !ok {
			return provider.Result{Status: provider.StatusItemUnavailable}
		}
		if skuType == provider.SkuTypeUnknown {
			skuType = d.Type
		}
		if skuType != provider.SkuTypeConsumable && p.ownsLocked(sku) {
			return provider.Result{Status: provider.StatusItemAlreadyOwned}
		}
		p.seq++
		pur := provider.Purchase{
			SKU:          sku,
			Type:         skuType,
			Token:        fmt.Sprintf("%s-%d", p.info.Name, p.seq),
			OrderID:      fmt.Sprintf("order-%d", p.seq),
			PurchaseTime: time.Now(),
		}
		p.owned = append(p.owned, pur)
		return provider.Result{Status: provider.StatusSuccess, Purchase: &pur}
	})
}

func (p *Provider) Consume(ctx context.Context, purchase provider.Purchase, done provider.Done) {
	p.complete(ctx, done, func() provider.Result {
		p.mu.Lock()
		defer p.mu.Unlock()

		i := slices.IndexFunc(p.owned, func(o provider.Purchase) bool { return o.Token == purchase.Token })
		if i < 0 {
			return provider.Result{Status: provider.StatusItemUnavailable, Purchase: &purchase}
		}
		if p.owned[i].Type != provider.SkuTypeConsumable {
			return provider.Result{Status: provider.StatusFailed, Purchase: &purchase,
				Err: fmt.Errorf("memory: %s is not consumable", purchase.SKU)}
		}
		consumed := p.owned[i]
		p.owned = slices.Delete(p.owned, i, i+1)
		return provider.Result{Status: provider.StatusSuccess, Purchase: &consumed}
	})
}

func (p *Provider) Inventory(ctx context.Context, startOver bool, done provider.Done) {
	p.complete(ctx, done, func() provider.Result {
		p.mu.Lock()
		defer p.mu.Unlock()

		if startOver || p.cursor >= len(p.owned) {
			p.cursor = 0
		}
		end := len(p.owned)
		if p.pageSize > 0 && p.cursor+p.pageSize < end {
			end = p.cursor + p.pageSize
		}
		page := slices.Clone(p.owned[p.cursor:end])
		p.cursor = end
		return provider.Result{
			Status:    provider.StatusSuccess,
			Purchases: page,
			HasMore:   end < len(p.owned),
		}
	})
}

func (p *Provider) SkuDetails(ctx context.Context, skus []string, done provider.Done) {
	p.complete(ctx, done, func() provider.Result {
		p.mu.Lock()
		defer p.mu.Unlock()

		out := make([]provider.SkuDetails, 0, len(skus))
		for _, sku := range skus {
			if d, ok := p.catalog[sku]; ok {
				out = append(out, d)
			}
		}
		return provider.Result{Status: provider.StatusSuccess, SkuDetails: out}
	})
}

func (p *Provider) ownsLocked(sku string) bool {
	return slices.ContainsFunc(p.owned, func(o provider.Purchase) bool { return o.SKU == sku })
}

// complete runs op and hands its result to done on a separate goroutine.
// Availability and FailNext are evaluated when the operation completes.
func (p *Provider) complete(ctx context.Context, done provider.Done, op func() provider.Result) {
	p.calls.Add(1)
	go func() {
		defer p.calls.Done()
		if p.latency > 0 {
			t := time.NewTimer(p.latency)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				done(provider.Result{Status: provider.StatusFailed, Err: ctx.Err()})
				return
			}
		}
		if !p.available.Load() {
			done(provider.Result{Status: provider.StatusBillingUnavailable})
			return
		}
		if p.takeFailure() {
			done(provider.Result{Status: provider.StatusFailed, Err: errors.New("memory: injected failure")})
			return
		}
		done(op())
	}()
}

func (p *Provider) takeFailure() bool {
	for {
		n := p.failNext.Load()
		if n <= 0 {
			return false
		}
		if p.failNext.CompareAndSwap(n, n-1) {
			return true
		}
	}
}
