package unibill

import "time"

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking: most of them run on the bus
// goroutine or under the scheduler loop. Wrap slow sinks with hooks/async.
type Hooks interface {
	// A request entered the scheduler queue; depth is the queue length after insert.
	RequestQueued(t RequestType, depth int)

	// A request left the queue; waited is the time spent queued.
	RequestDispatched(t RequestType, waited time.Duration)

	// A setup round finished. providerName is empty when nothing was selected.
	SetupFinished(status SetupStatus, providerName string, took time.Duration)

	// The active provider reported itself unavailable. recovering is true when
	// auto-recovery re-runs setup.
	ProviderUnavailable(providerName string, recovering bool)

	// An event was posted with nobody subscribed to it and was dropped.
	EventDropped(k Kind)

	// A subscriber panicked while handling an event of kind k.
	SubscriberPanic(k Kind, recovered any)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) RequestQueued(RequestType, int)                   {}
func (NopHooks) RequestDispatched(RequestType, time.Duration)     {}
func (NopHooks) SetupFinished(SetupStatus, string, time.Duration) {}
func (NopHooks) ProviderUnavailable(string, bool)                 {}
func (NopHooks) EventDropped(Kind)                                {}
func (NopHooks) SubscriberPanic(Kind, any)                        {}
