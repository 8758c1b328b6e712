package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/unibill"
	"github.com/unkn0wn-root/unibill/codec"
	"github.com/unkn0wn-root/unibill/genstore"
	ubzap "github.com/unkn0wn-root/unibill/log/zap"
	"github.com/unkn0wn-root/unibill/provider"
	"github.com/unkn0wn-root/unibill/provider/memory"
	"github.com/unkn0wn-root/unibill/skucache"
	"github.com/unkn0wn-root/unibill/store"
	"github.com/unkn0wn-root/unibill/store/bigcache"
	redisstore "github.com/unkn0wn-root/unibill/store/redis"
	"github.com/unkn0wn-root/unibill/store/ristretto"
)

// Summary is what a finished run observed.
type Summary struct {
	Setups    []unibill.SetupStatus
	Responses map[string]int // "<kind>/<status>" -> count
	Active    string
}

type runner struct {
	sc    Scenario
	log   *zap.Logger
	hooks unibill.Hooks // nil => none

	mems   map[string]*memory.Provider
	caches map[string]*skucache.Provider
	stores []store.Store

	svc unibill.Billing
	ctx context.Context

	mu        sync.Mutex
	changed   chan struct{}
	submitted int
	answered  int
	setups    []unibill.SetupStatus
	responses map[string]int
	purchases map[string]provider.Purchase
}

func newRunner(sc Scenario, log *zap.Logger) *runner {
	return &runner{
		sc:        sc,
		log:       log,
		mems:      make(map[string]*memory.Provider),
		caches:    make(map[string]*skucache.Provider),
		changed:   make(chan struct{}, 1),
		responses: make(map[string]int),
		purchases: make(map[string]provider.Purchase),
	}
}

func (r *runner) buildProviders(ctx context.Context) ([]provider.Provider, error) {
	out := make([]provider.Provider, 0, len(r.sc.Providers))
	for _, ps := range r.sc.Providers {
		mp, err := memory.New(memory.Options{
			Name:       ps.Name,
			Package:    ps.Package,
			Catalog:    ps.catalog(),
			Authorised: orTrue(ps.Authorised),
			Available:  orTrue(ps.Available),
			Latency:    ps.Latency,
			PageSize:   ps.PageSize,
			Broken:     ps.Broken,
		})
		if err != nil {
			return nil, err
		}
		mp.FailNext(ps.FailNext)
		r.mems[ps.Name] = mp

		if ps.Cache == nil {
			out = append(out, mp)
			continue
		}
		cp, err := r.wrap(ctx, mp, *ps.Cache)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", ps.Name, err)
		}
		r.caches[ps.Name] = cp
		out = append(out, cp)
	}
	return out, nil
}

func (r *runner) wrap(ctx context.Context, mp *memory.Provider, cs CacheSpec) (*skucache.Provider, error) {
	ttl := cs.TTL
	if ttl <= 0 {
		ttl = skucache.DefaultTTL
	}

	var (
		st   store.Store
		gens genstore.GenStore
		err  error
	)
	switch cs.Store {
	case "", "ristretto":
		st, err = ristretto.New(ristretto.Config{NumCounters: 10_000, MaxCost: 1 << 20, BufferItems: 64, Sync: true})
	case "bigcache":
		st, err = bigcache.New(ctx, bigcache.Config{LifeWindow: ttl, Shards: 16})
	case "redis":
		rdb := goredis.NewClient(&goredis.Options{Addr: cs.Addr})
		if err = rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis %s: %w", cs.Addr, err)
		}
		st, err = redisstore.New(redisstore.Config{Client: rdb, Prefix: "unibill:", CloseClient: true})
		gens = genstore.NewRedis(rdb, "unibill", 24*time.Hour)
	}
	if err != nil {
		return nil, err
	}
	r.stores = append(r.stores, st)

	c, ok := codec.ByName[provider.SkuDetails](cs.Codec)
	if !ok {
		return nil, fmt.Errorf("unknown codec %q", cs.Codec)
	}
	return skucache.Wrap(mp, skucache.Options{
		Store:    st,
		Codec:    c,
		GenStore: gens,
		TTL:      ttl,
		Logger:   ubzap.New(r.log),
	})
}

// Run executes the scenario and waits until every request is answered or the
// scenario timeout expires.
func (r *runner) Run(parent context.Context) (Summary, error) {
	ctx, cancel := context.WithTimeout(parent, r.sc.Timeout)
	defer cancel()

	providers, err := r.buildProviders(ctx)
	if err != nil {
		return Summary{}, err
	}
	defer r.closeStores()

	cfg, err := unibill.NewConfiguration(unibill.Config{
		Providers:              providers,
		Listener:               r,
		SubsequentRequestDelay: r.sc.Delay,
		SkipUnauthorised:       r.sc.SkipUnauthorised,
		AutoRecover:            r.sc.AutoRecover,
		Logger:                 ubzap.New(r.log),
		Hooks:                  r.hooks,
	})
	if err != nil {
		return Summary{}, err
	}

	owner := unibill.NewOwner()
	r.ctx = unibill.WithOwner(ctx, owner)
	r.svc = unibill.New(owner)
	if err := r.svc.Init(r.ctx, cfg); err != nil {
		return Summary{}, err
	}
	defer func() {
		// r.ctx may already be expired; closing still has to drain the bus
		if err := r.svc.Close(unibill.WithOwner(context.Background(), owner)); err != nil {
			r.log.Warn("closing billing", zap.Error(err))
		}
	}()

	for i, st := range r.sc.Script {
		if err := r.step(st); err != nil {
			return r.summary(), fmt.Errorf("step %d (%s): %w", i, st.Op, err)
		}
	}
	if err := r.waitFor(func() bool { return r.answered >= r.submitted }); err != nil {
		return r.summary(), fmt.Errorf("waiting for responses: %w", err)
	}
	return r.summary(), nil
}

func (r *runner) step(st Step) error {
	switch st.Op {
	case "sleep":
		select {
		case <-time.After(st.Duration):
			return nil
		case <-r.ctx.Done():
			return r.ctx.Err()
		}
	case "available", "unavailable":
		r.mems[st.Provider].SetAvailable(st.Op == "available")
		return nil
	case "authorise", "unauthorise":
		r.mems[st.Provider].SetAuthorised(st.Op == "authorise")
		return nil
	case "fail":
		r.mems[st.Provider].FailNext(max(st.Count, 1))
		return nil
	case "invalidate":
		return r.caches[st.Provider].Invalidate(r.ctx)
	case "await_setups":
		return r.waitFor(func() bool { return len(r.setups) >= st.Count })
	case "setup":
		r.mu.Lock()
		seen := len(r.setups)
		r.mu.Unlock()
		if err := r.svc.Setup(r.ctx); err != nil {
			return err
		}
		if st.Await {
			return r.waitFor(func() bool { return len(r.setups) > seen })
		}
		return nil
	}

	var err error
	switch st.Op {
	case "purchase":
		err = r.svc.Purchase(r.ctx, st.SKU)
	case "subscribe":
		err = r.svc.Subscribe(r.ctx, st.SKU)
	case "consume":
		r.mu.Lock()
		p, ok := r.purchases[st.SKU]
		r.mu.Unlock()
		if !ok {
			return fmt.Errorf("no purchase of %q to consume", st.SKU)
		}
		err = r.svc.Consume(r.ctx, p)
	case "inventory":
		err = r.svc.Inventory(r.ctx, st.StartOver)
	case "sku_details":
		err = r.svc.SkuDetails(r.ctx, st.SKUs...)
	}
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.submitted++
	want := r.submitted
	r.mu.Unlock()
	if st.Await {
		return r.waitFor(func() bool { return r.answered >= want })
	}
	return nil
}

// waitFor blocks until cond (evaluated under r.mu) holds.
func (r *runner) waitFor(cond func() bool) error {
	for {
		r.mu.Lock()
		ok := cond()
		r.mu.Unlock()
		if ok {
			return nil
		}
		select {
		case <-r.changed:
		case <-r.ctx.Done():
			return r.ctx.Err()
		}
	}
}

func (r *runner) notify() {
	select {
	case r.changed <- struct{}{}:
	default:
	}
}

func (r *runner) summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Summary{
		Setups:    append([]unibill.SetupStatus(nil), r.setups...),
		Responses: make(map[string]int, len(r.responses)),
	}
	for k, v := range r.responses {
		s.Responses[k] = v
	}
	if r.svc != nil {
		if p := r.svc.ActiveProvider(); p != nil {
			s.Active = p.Info().Name
		}
	}
	return s
}

func (r *runner) closeStores() {
	for _, st := range r.stores {
		if err := st.Close(context.Background()); err != nil {
			r.log.Warn("closing store", zap.Error(err))
		}
	}
}

// Listener callbacks run on the bus goroutine.

func (r *runner) OnSetupStarted(*unibill.SetupStartedEvent) {
	r.log.Info("setup started")
}

func (r *runner) OnSetup(e *unibill.SetupEvent) {
	name := ""
	if p := e.Provider(); p != nil {
		name = p.Info().String()
	}
	r.log.Info("setup", zap.Stringer("status", e.Status()), zap.String("provider", name))

	r.mu.Lock()
	r.setups = append(r.setups, e.Status())
	r.mu.Unlock()
	r.notify()
}

func (r *runner) OnRequest(req unibill.Request) {
	r.log.Debug("request dispatched", zap.Stringer("type", req.Type()))
}

func (r *runner) OnResponse(resp unibill.Response) {
	name := ""
	if info := resp.Provider(); info != nil {
		name = info.String()
	}
	r.log.Info("response",
		zap.Stringer("kind", resp.Kind()),
		zap.Stringer("status", resp.Status()),
		zap.String("provider", name))

	r.mu.Lock()
	// purchases are tracked before the response counts as answered, so an
	// awaited purchase can be consumed by the next step
	if resp.IsSuccessful() {
		switch v := resp.(type) {
		case *unibill.PurchaseResponse:
			if p := v.Purchase(); p != nil {
				r.purchases[p.SKU] = *p
			}
		case *unibill.ConsumeResponse:
			delete(r.purchases, v.Request().Purchase().SKU)
		}
	}
	r.answered++
	r.responses[resp.Kind().String()+"/"+resp.Status().String()]++
	r.mu.Unlock()
	r.notify()
}

func (r *runner) OnPurchase(resp *unibill.PurchaseResponse) {
	if p := resp.Purchase(); resp.IsSuccessful() && p != nil {
		r.log.Info("purchased", zap.String("sku", p.SKU), zap.String("token", p.Token))
	}
}

func (r *runner) OnConsume(resp *unibill.ConsumeResponse) {
	if resp.IsSuccessful() {
		r.log.Info("consumed", zap.String("sku", resp.Request().Purchase().SKU))
	}
}

func (r *runner) OnInventory(resp *unibill.InventoryResponse) {
	for _, p := range resp.Purchases() {
		r.log.Info("owned", zap.String("sku", p.SKU), zap.Stringer("type", p.Type))
	}
	if resp.HasMore() {
		r.log.Info("inventory has more pages")
	}
}

func (r *runner) OnSkuDetails(resp *unibill.SkuDetailsResponse) {
	for _, d := range resp.SkuDetails() {
		r.log.Info("sku", zap.String("sku", d.SKU), zap.String("title", d.Title), zap.String("price", d.Price))
	}
}

var _ unibill.Listener = (*runner)(nil)
