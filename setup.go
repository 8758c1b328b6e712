package unibill

import (
	"context"
	"time"

	"github.com/unkn0wn-root/unibill/provider"
)

// setupManager runs provider selection. It only ever runs on the bus
// goroutine, so overlapping setup requests queue behind each other in the bus.
type setupManager struct {
	ctx              context.Context
	providers        []provider.Provider
	skipUnauthorised bool
	autoRecover      bool

	bus   *Bus
	log   Logger
	hooks Hooks

	// selected is the provider chosen by the latest round. It can run ahead of
	// the registry, which only switches once the SetupEvent is delivered.
	selected provider.Provider
}

func (m *setupManager) OnEvent(e Event) {
	switch ev := e.(type) {
	case *SetupRequest:
		m.run()
	case *ProviderUnavailableEvent:
		m.onUnavailable(ev.Provider())
	}
}

func (m *setupManager) onUnavailable(p provider.Provider) {
	if p == nil || !sameProvider(p, m.selected) {
		// stale report about a provider that is no longer selected
		return
	}
	name := p.Info().Name
	m.hooks.ProviderUnavailable(name, m.autoRecover)
	if !m.autoRecover {
		m.log.Warn("active provider unavailable; waiting for explicit setup", providerFields(p))
		return
	}
	m.log.Info("active provider unavailable; re-running setup", providerFields(p))
	m.run()
}

func (m *setupManager) run() {
	start := time.Now()
	m.bus.Post(&SetupStartedEvent{at: start})

	status, chosen := m.selectProvider()
	prev := m.selected
	m.selected = chosen

	ev := newSetupEvent(status, chosen, m.skipUnauthorised)
	m.bus.Post(ev)

	took := time.Since(start)
	name := ""
	if chosen != nil {
		name = chosen.Info().Name
	}
	m.hooks.SetupFinished(status, name, took)

	f := providerFields(chosen).with("status", status.String()).with("took", took)
	if prev != nil {
		f["previous"] = prev.Info().Name
	}
	if status == SetupFailed {
		m.log.Warn("setup found no usable provider", f)
		return
	}
	m.log.Info("setup finished", f)
}

// selectProvider walks providers in configured order. The first one that is
// available and either authorised or allowed unauthorised wins.
func (m *setupManager) selectProvider() (SetupStatus, provider.Provider) {
	for _, p := range m.providers {
		authorised := p.IsAuthorised(m.ctx)
		if !authorised && m.skipUnauthorised {
			m.log.Debug("skipping unauthorised provider", providerFields(p))
			continue
		}
		if !p.IsAvailable(m.ctx) {
			m.log.Debug("provider unavailable", providerFields(p))
			continue
		}
		switch {
		case !authorised:
			return SetupUnauthorised, p
		case m.selected != nil && !sameProvider(p, m.selected):
			return SetupProviderChanged, p
		default:
			return SetupSuccess, p
		}
	}
	return SetupFailed, nil
}
