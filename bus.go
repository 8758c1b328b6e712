package unibill

import (
	"context"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
)

// Handler receives events from the bus. Handlers run on the bus goroutine and
// must not block; they may Post further events.
type Handler interface {
	OnEvent(e Event)
}

// HandlerFunc is an adapter to allow the use of ordinary
// functions as Handlers.
type HandlerFunc func(Event)

// OnEvent calls f(e).
func (f HandlerFunc) OnEvent(e Event) {
	f(e)
}

// PanicHandler is called when a subscriber panics. When none is configured the
// bus re-panics on its goroutine, which terminates the process.
type PanicHandler func(e Event, recovered any)

// Subscription is the handle returned by Bus.Register.
type Subscription struct {
	id       uint64
	topics   []Topic
	priority int
	handler  Handler
	active   atomic.Bool
}

// Active reports whether the subscription still receives events.
func (s *Subscription) Active() bool { return s.active.Load() }

// Priority is the priority the subscription was registered with.
func (s *Subscription) Priority() int { return s.priority }

type busItem struct {
	ev Event

	// targeted delivery: only target receives the event returned by resolve.
	target  *Subscription
	resolve func() Event
}

// Bus delivers events to subscriptions in descending priority, ties broken by
// registration order. Delivery happens on one goroutine and is strictly
// serialized: a handler for event N returns before any handler sees event N+1.
type Bus struct {
	log     Logger
	hooks   Hooks
	onPanic PanicHandler

	mu     sync.Mutex
	subs   map[Topic][]*Subscription
	seq    uint64
	queue  []busItem
	closed bool

	// in-flight fan-out, guarded by mu
	current    Event
	cancelled  bool
	delivering bool

	wake   chan struct{}
	stopCh chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newBus(log Logger, hooks Hooks, onPanic PanicHandler) *Bus {
	b := &Bus{
		log:     coalesce[Logger](log, NopLogger{}),
		hooks:   coalesce[Hooks](hooks, NopHooks{}),
		onPanic: onPanic,
		subs:    make(map[Topic][]*Subscription),
		wake:    make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go b.loop()
	return b
}

// Register subscribes h to topics. Higher priority handlers run first.
func (b *Bus) Register(topics []Topic, h Handler, priority int) *Subscription {
	if h == nil || len(topics) == 0 {
		return nil
	}
	topics = slices.Clone(topics)
	slices.Sort(topics)
	topics = slices.Compact(topics)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	s := &Subscription{id: b.seq, topics: topics, priority: priority, handler: h}
	s.active.Store(true)
	for _, t := range topics {
		list := b.subs[t]
		// keep (priority desc, id asc); s has the highest id so it goes after
		// every subscription with priority >= its own.
		i, _ := slices.BinarySearchFunc(list, s, func(a, target *Subscription) int {
			if a.priority >= target.priority {
				return -1
			}
			return 1
		})
		b.subs[t] = slices.Insert(list, i, s)
	}
	return s
}

// Unregister removes s. Events already queued are not delivered to s.
func (b *Bus) Unregister(s *Subscription) bool {
	if s == nil || !s.active.Swap(false) {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range s.topics {
		list := slices.DeleteFunc(b.subs[t], func(x *Subscription) bool { return x == s })
		if len(list) == 0 {
			delete(b.subs, t)
			continue
		}
		b.subs[t] = list
	}
	return true
}

// Post queues e for delivery and returns immediately. Events nobody is
// subscribed to are dropped without a hop to the bus goroutine; a subscriber
// registered later never sees them.
//
// After Close only handlers may post: what they post while the remaining
// queue drains is delivered before the bus stops.
func (b *Bus) Post(e Event) bool {
	if e == nil {
		return false
	}
	b.mu.Lock()
	if b.closed && !b.delivering {
		b.mu.Unlock()
		return false
	}
	if !b.hasSubscriberLocked(e.Kind()) {
		b.mu.Unlock()
		b.hooks.EventDropped(e.Kind())
		return false
	}
	b.queue = append(b.queue, busItem{ev: e})
	b.mu.Unlock()
	b.signal()
	return true
}

// Cancel stops delivery of e to the subscribers it has not reached yet. It only
// has an effect while e is being delivered, typically from one of its handlers.
// Events are matched by pointer identity; non-pointer events cannot be cancelled.
func (b *Bus) Cancel(e Event) {
	b.mu.Lock()
	if b.current != nil && sameEvent(b.current, e) {
		b.cancelled = true
	}
	b.mu.Unlock()
}

// sameEvent compares pointer identity. Interface equality would panic on
// events of non-comparable types.
func sameEvent(a, c Event) bool {
	va, vc := reflect.ValueOf(a), reflect.ValueOf(c)
	if va.Kind() != reflect.Pointer || va.Type() != vc.Type() {
		return false
	}
	return va.Pointer() == vc.Pointer()
}

// deliverLast queues a delivery to s alone. resolve runs on the bus goroutine,
// so it can read state owned by other subscribers; a nil result delivers nothing.
func (b *Bus) deliverLast(s *Subscription, resolve func() Event) bool {
	if s == nil || resolve == nil {
		return false
	}
	b.mu.Lock()
	if b.closed && !b.delivering {
		b.mu.Unlock()
		return false
	}
	b.queue = append(b.queue, busItem{target: s, resolve: resolve})
	b.mu.Unlock()
	b.signal()
	return true
}

// Close stops accepting external events, delivers what is already queued
// (including events its handlers post meanwhile) and stops the bus goroutine.
// It must not be called from a handler.
func (b *Bus) Close(ctx context.Context) error {
	b.once.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()
		close(b.stopCh)
	})
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bus) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *Bus) hasSubscriberLocked(k Kind) bool {
	for _, t := range topicsFor(k) {
		if len(b.subs[t]) > 0 {
			return true
		}
	}
	return false
}

func (b *Bus) loop() {
	defer close(b.done)
	for {
		select {
		case <-b.wake:
			b.drain()
		case <-b.stopCh:
			b.drain()
			b.log.Debug("event bus stopped", nil)
			return
		}
	}
}

func (b *Bus) drain() {
	for {
		b.mu.Lock()
		b.delivering = false
		if len(b.queue) == 0 {
			b.mu.Unlock()
			return
		}
		item := b.queue[0]
		b.queue[0] = busItem{}
		b.queue = b.queue[1:]
		b.delivering = true
		b.mu.Unlock()

		b.deliver(item)
	}
}

func (b *Bus) deliver(item busItem) {
	if item.target != nil {
		if !item.target.Active() {
			return
		}
		if ev := item.resolve(); ev != nil {
			b.invoke(item.target, ev)
		}
		return
	}

	subs := b.match(item.ev)

	b.mu.Lock()
	b.current, b.cancelled = item.ev, false
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.current, b.cancelled = nil, false
		b.mu.Unlock()
	}()

	for _, s := range subs {
		b.mu.Lock()
		stop := b.cancelled
		b.mu.Unlock()
		if stop {
			return
		}
		if !s.Active() {
			continue
		}
		b.invoke(s, item.ev)
	}
}

// match snapshots the subscriptions for e across all its topics.
func (b *Bus) match(e Event) []*Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []*Subscription
	seen := make(map[uint64]struct{})
	for _, t := range topicsFor(e.Kind()) {
		for _, s := range b.subs[t] {
			if _, dup := seen[s.id]; dup {
				continue
			}
			seen[s.id] = struct{}{}
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, c *Subscription) int {
		if a.priority != c.priority {
			if a.priority > c.priority {
				return -1
			}
			return 1
		}
		if a.id < c.id {
			return -1
		}
		return 1
	})
	return out
}

func (b *Bus) invoke(s *Subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.hooks.SubscriberPanic(e.Kind(), r)
			b.log.Error("subscriber panicked", Fields{"kind": e.Kind().String(), "panic": r})
			if b.onPanic == nil {
				panic(r)
			}
			b.onPanic(e, r)
		}
	}()
	s.handler.OnEvent(e)
}
