package unibill

import (
	"time"

	"github.com/unkn0wn-root/unibill/provider"
)

// SetupStatus is the outcome of a provider selection round.
type SetupStatus uint8

const (
	SetupSuccess SetupStatus = iota
	// SetupProviderChanged is a success where a different provider than the
	// previously active one was selected.
	SetupProviderChanged
	// SetupUnauthorised means the selected provider is available but the user is
	// not authorised with it. Only produced when skip-unauthorised is off.
	SetupUnauthorised
	SetupFailed
)

func (s SetupStatus) String() string {
	switch s {
	case SetupSuccess:
		return "SUCCESS"
	case SetupProviderChanged:
		return "PROVIDER_CHANGED"
	case SetupUnauthorised:
		return "UNAUTHORISED"
	case SetupFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// SetupStartedEvent is posted right before a provider selection round.
type SetupStartedEvent struct {
	at time.Time
}

func (*SetupStartedEvent) Kind() Kind { return KindSetupStarted }

// Time is when the round started.
func (e *SetupStartedEvent) Time() time.Time { return e.at }

// SetupEvent is the outcome of one provider selection round.
type SetupEvent struct {
	status           SetupStatus
	provider         provider.Provider
	skipUnauthorised bool
}

func newSetupEvent(status SetupStatus, p provider.Provider, skipUnauthorised bool) *SetupEvent {
	if status == SetupFailed {
		p = nil
	}
	return &SetupEvent{status: status, provider: p, skipUnauthorised: skipUnauthorised}
}

func (*SetupEvent) Kind() Kind { return KindSetup }

// Status is the outcome of the round.
func (e *SetupEvent) Status() SetupStatus { return e.status }

// Provider is the selected provider; nil iff Status is SetupFailed.
func (e *SetupEvent) Provider() provider.Provider { return e.provider }

// IsSuccessful reports whether the selected provider can be used. An
// unauthorised selection counts only when unauthorised providers are not skipped.
func (e *SetupEvent) IsSuccessful() bool {
	switch e.status {
	case SetupSuccess, SetupProviderChanged:
		return true
	case SetupUnauthorised:
		return !e.skipUnauthorised
	default:
		return false
	}
}

// ProviderUnavailableEvent is posted by the dispatcher when the active provider
// reports it can no longer serve requests.
type ProviderUnavailableEvent struct {
	provider provider.Provider
}

func (*ProviderUnavailableEvent) Kind() Kind { return KindProviderUnavailable }

// Provider is the provider that reported itself unavailable.
func (e *ProviderUnavailableEvent) Provider() provider.Provider { return e.provider }
