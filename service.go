package unibill

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/unkn0wn-root/unibill/provider"
)

// Internal subscribers run before any listener so that listeners always see
// the state a SetupEvent produced. Order matches: base state, setup, dispatch,
// scheduling.
const (
	priorityRegistry  = math.MaxInt
	prioritySetup     = math.MaxInt - 1
	priorityDispatch  = math.MaxInt - 2
	prioritySchedule  = math.MaxInt - 3
	priorityGlobal    = 1000
	priorityListeners = 0
)

var (
	errEmptySKU     = errors.New("sku is required")
	errEmptySkuList = errors.New("at least one sku is required")
)

type serviceState uint8

const (
	stateNew serviceState = iota
	stateReady
	stateClosed
)

type service struct {
	owner Owner

	mu    sync.Mutex
	state serviceState

	cfg      Configuration
	log      Logger
	bus      *Bus
	registry *registry
	sched    *scheduler
	internal []*Subscription

	ctx    context.Context
	cancel context.CancelFunc
}

func newService(owner Owner) *service {
	return &service{owner: owner, registry: &registry{}, log: NopLogger{}}
}

func (s *service) checkOwner(ctx context.Context, op string) error {
	o, ok := OwnerFrom(ctx)
	if !ok || o != s.owner {
		return usageError(op, ErrWrongContext)
	}
	return nil
}

// ready checks owner and state for every entry point except Init.
func (s *service) ready(ctx context.Context, op string) error {
	if err := s.checkOwner(ctx, op); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case stateNew:
		return usageError(op, ErrNotInitialized)
	case stateClosed:
		return usageError(op, ErrClosed)
	}
	return nil
}

func (s *service) Init(ctx context.Context, cfg Configuration) error {
	const op = "unibill.Init"
	if err := s.checkOwner(ctx, op); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case stateReady:
		return usageError(op, ErrAlreadyInitialized)
	case stateClosed:
		return usageError(op, ErrClosed)
	}
	if !cfg.valid() {
		return fmt.Errorf("%s: configuration must be built with NewConfiguration", op)
	}

	var envErr EnvironmentError
	for _, p := range cfg.providers {
		if err := p.CheckEnvironment(); err != nil {
			envErr.Providers = append(envErr.Providers, p.Info().String())
			envErr.Errs = append(envErr.Errs, err)
		}
	}
	if len(envErr.Errs) > 0 {
		return &envErr
	}

	s.cfg = cfg
	s.log = cfg.log
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.bus = newBus(cfg.log, cfg.hooks, cfg.onPanic)

	setup := &setupManager{
		ctx:              s.ctx,
		providers:        cfg.providers,
		skipUnauthorised: cfg.skipUnauthorised,
		autoRecover:      cfg.autoRecover,
		bus:              s.bus,
		log:              cfg.log,
		hooks:            cfg.hooks,
	}
	disp := &dispatcher{ctx: s.ctx, registry: s.registry, bus: s.bus, log: cfg.log}
	s.sched = newScheduler(cfg.delay, func(r Request, _ time.Time) { s.bus.Post(r) }, cfg.log, cfg.hooks)

	s.internal = []*Subscription{
		s.bus.Register([]Topic{TopicSetup}, s.registry, priorityRegistry),
		s.bus.Register([]Topic{TopicSetupRequest, TopicProviderUnavailable}, setup, prioritySetup),
		s.bus.Register([]Topic{TopicRequest}, disp, priorityDispatch),
		s.bus.Register([]Topic{TopicSetup}, s.sched, prioritySchedule),
	}
	if cfg.listener != nil {
		s.internal = append(s.internal, s.bus.Register(listenerTopics, listenerHandler{l: cfg.listener}, priorityGlobal))
	}

	s.state = stateReady
	s.log.Info("billing initialized", Fields{
		"providers":         len(cfg.providers),
		"delay":             cfg.delay,
		"skip_unauthorised": cfg.skipUnauthorised,
		"auto_recover":      cfg.autoRecover,
	})
	return nil
}

func (s *service) Close(ctx context.Context) error {
	const op = "unibill.Close"
	if err := s.ready(ctx, op); err != nil {
		return err
	}
	s.mu.Lock()
	s.state = stateClosed
	s.mu.Unlock()

	s.cancel()
	// scheduler first: nothing new reaches the bus once it is stopped
	err := s.sched.Close(ctx)
	if berr := s.bus.Close(ctx); berr != nil && err == nil {
		err = berr
	}
	s.log.Info("billing closed", nil)
	return err
}

func (s *service) submit(ctx context.Context, op string, r Request) error {
	if err := s.ready(ctx, op); err != nil {
		return err
	}
	s.sched.Enqueue(r)
	return nil
}

func (s *service) Setup(ctx context.Context) error {
	return s.submit(ctx, "unibill.Setup", NewSetupRequest())
}

func (s *service) Purchase(ctx context.Context, sku string) error {
	if sku == "" {
		return usageError("unibill.Purchase", errEmptySKU)
	}
	return s.submit(ctx, "unibill.Purchase", NewPurchaseRequest(sku, provider.SkuTypeUnknown))
}

func (s *service) Subscribe(ctx context.Context, sku string) error {
	if sku == "" {
		return usageError("unibill.Subscribe", errEmptySKU)
	}
	return s.submit(ctx, "unibill.Subscribe", NewPurchaseRequest(sku, provider.SkuTypeSubscription))
}

func (s *service) Consume(ctx context.Context, purchase provider.Purchase) error {
	return s.submit(ctx, "unibill.Consume", NewConsumeRequest(purchase))
}

func (s *service) Inventory(ctx context.Context, startOver bool) error {
	return s.submit(ctx, "unibill.Inventory", NewInventoryRequest(startOver))
}

func (s *service) SkuDetails(ctx context.Context, skus ...string) error {
	if len(skus) == 0 {
		return usageError("unibill.SkuDetails", errEmptySkuList)
	}
	return s.submit(ctx, "unibill.SkuDetails", NewSkuDetailsRequest(skus...))
}

func (s *service) NewHelper(ctx context.Context) (*Helper, error) {
	if err := s.ready(ctx, "unibill.NewHelper"); err != nil {
		return nil, err
	}
	return &Helper{svc: s, registered: true}, nil
}

func (s *service) ActiveProvider() provider.Provider {
	return s.registry.Active()
}
