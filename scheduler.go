package unibill

import (
	"context"
	"slices"
	"sync"
	"time"
)

type queued struct {
	req Request
	at  time.Time
}

// scheduler gates caller requests before they reach the dispatcher:
//   - two requests of the same type are released at least delay apart;
//   - non-setup requests wait until a setup round has succeeded once.
//
// The queue is strict FIFO across types. An ineligible head blocks everything
// behind it, with one exception: while the setup gate is closed, the first
// queued setup request is released past the gated billing requests ahead of
// it. Billing requests are never reordered and nothing is dropped.
type scheduler struct {
	delay    time.Duration
	tick     time.Duration
	dispatch func(r Request, at time.Time)
	now      func() time.Time
	log      Logger
	hooks    Hooks

	mu      sync.Mutex
	queue   []queued
	last    [len(requestTypes)]time.Time
	setupOK bool

	wake   chan struct{}
	stopCh chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newScheduler(delay time.Duration, dispatch func(Request, time.Time), log Logger, hooks Hooks) *scheduler {
	s := &scheduler{
		delay:    delay,
		tick:     schedulerTick(delay),
		dispatch: dispatch,
		now:      time.Now,
		log:      coalesce[Logger](log, NopLogger{}),
		hooks:    coalesce[Hooks](hooks, NopHooks{}),
		wake:     make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.loop()
	return s
}

// OnEvent observes setup outcomes on the bus.
func (s *scheduler) OnEvent(e Event) {
	ev, ok := e.(*SetupEvent)
	if !ok || !ev.IsSuccessful() {
		return
	}
	s.mu.Lock()
	first := !s.setupOK
	s.setupOK = true
	s.mu.Unlock()
	if first {
		s.log.Debug("setup succeeded; releasing billing requests", nil)
		s.signal()
	}
}

// Enqueue appends r to the queue and returns the new queue depth.
func (s *scheduler) Enqueue(r Request) int {
	s.mu.Lock()
	s.queue = append(s.queue, queued{req: r, at: s.now()})
	depth := len(s.queue)
	s.mu.Unlock()

	s.hooks.RequestQueued(r.Type(), depth)
	s.signal()
	return depth
}

// Len returns the number of queued requests.
func (s *scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *scheduler) Close(ctx context.Context) error {
	s.once.Do(func() { close(s.stopCh) })
	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if n := s.Len(); n > 0 {
		s.log.Warn("scheduler closed with pending requests", Fields{"pending": n})
	}
	return nil
}

func (s *scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *scheduler) loop() {
	defer close(s.done)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
		case <-s.wake:
		case <-s.stopCh:
			return
		}
		s.release()
	}
}

// release hands over queued requests for as long as one is eligible. The lock
// is dropped before dispatch.
func (s *scheduler) release() {
	for {
		s.mu.Lock()
		now := s.now()
		i := s.nextLocked(now)
		if i < 0 {
			s.mu.Unlock()
			return
		}
		head := s.queue[i]
		if i == 0 {
			s.queue[0] = queued{}
			s.queue = s.queue[1:]
		} else {
			s.queue = slices.Delete(s.queue, i, i+1)
		}
		s.last[head.req.Type()] = now
		s.mu.Unlock()

		s.hooks.RequestDispatched(head.req.Type(), now.Sub(head.at))
		s.dispatch(head.req, now)
	}
}

// nextLocked returns the index of the request to release now, or -1.
func (s *scheduler) nextLocked(now time.Time) int {
	if len(s.queue) == 0 {
		return -1
	}
	if s.eligibleLocked(s.queue[0].req, now) {
		return 0
	}
	if s.setupOK {
		return -1
	}
	// gated billing requests must not hold back the setup that opens the gate
	i := slices.IndexFunc(s.queue, func(q queued) bool { return q.req.Type() == RequestSetup })
	if i < 0 || !s.eligibleLocked(s.queue[i].req, now) {
		return -1
	}
	return i
}

func (s *scheduler) eligibleLocked(r Request, now time.Time) bool {
	t := r.Type()
	if t != RequestSetup && !s.setupOK {
		return false
	}
	last := s.last[t]
	return last.IsZero() || now.Sub(last) >= s.delay
}
