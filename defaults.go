package unibill

import "time"

const (
	// DefaultRequestDelay is the minimum gap between two dispatches of the same
	// request type when Config.SubsequentRequestDelay is zero.
	DefaultRequestDelay = 50 * time.Millisecond

	minSchedulerTick = time.Millisecond
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// schedulerTick is how often the scheduler re-inspects its queue head. It never
// exceeds the request delay so an eligible head waits at most one tick.
func schedulerTick(delay time.Duration) time.Duration {
	tick := delay / 4
	if tick < minSchedulerTick {
		tick = minSchedulerTick
	}
	if delay > 0 && tick > delay {
		tick = delay
	}
	return tick
}
