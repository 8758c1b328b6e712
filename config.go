package unibill

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/unkn0wn-root/unibill/provider"
)

// Config is the input for NewConfiguration.
// Only Providers is required; others have sensible defaults.
type Config struct {
	// Providers in preference order. Duplicates (same Info) are dropped, the
	// first occurrence wins.
	Providers []provider.Provider

	Listener               Listener      // optional global listener, receives every event
	SubsequentRequestDelay time.Duration // min gap between same-type requests; 0 => DefaultRequestDelay
	SkipUnauthorised       bool          // skip unauthorised providers during setup
	AutoRecover            bool          // re-run setup when the active provider becomes unavailable

	Logger       Logger       // if nil, NopLogger is used
	Hooks        Hooks        // if nil, NopHooks is used
	PanicHandler PanicHandler // if nil, a panicking subscriber crashes the bus goroutine
}

// Configuration is the validated, immutable form of Config.
type Configuration struct {
	providers        []provider.Provider
	listener         Listener
	delay            time.Duration
	skipUnauthorised bool
	autoRecover      bool
	log              Logger
	hooks            Hooks
	onPanic          PanicHandler
}

// NewConfiguration validates c and fills in defaults for unset fields.
func NewConfiguration(c Config) (Configuration, error) {
	if len(c.Providers) == 0 {
		return Configuration{}, fmt.Errorf("unibill: at least one provider is required")
	}
	if c.SubsequentRequestDelay < 0 {
		return Configuration{}, fmt.Errorf("unibill: negative subsequent request delay %s", c.SubsequentRequestDelay)
	}

	log := coalesce[Logger](c.Logger, NopLogger{})

	providers := make([]provider.Provider, 0, len(c.Providers))
	seen := make(map[provider.Info]struct{}, len(c.Providers))
	for i, p := range c.Providers {
		if p == nil {
			return Configuration{}, fmt.Errorf("unibill: provider #%d is nil", i)
		}
		info := p.Info()
		if strings.TrimSpace(info.Name) == "" {
			return Configuration{}, fmt.Errorf("unibill: provider #%d has no name", i)
		}
		if _, dup := seen[info]; dup {
			log.Debug("dropping duplicate provider", Fields{"provider": info.Name, "package": info.Package})
			continue
		}
		seen[info] = struct{}{}
		providers = append(providers, p)
	}

	return Configuration{
		providers:        providers,
		listener:         c.Listener,
		delay:            coalesce[time.Duration](c.SubsequentRequestDelay, DefaultRequestDelay),
		skipUnauthorised: c.SkipUnauthorised,
		autoRecover:      c.AutoRecover,
		log:              log,
		hooks:            coalesce[Hooks](c.Hooks, NopHooks{}),
		onPanic:          c.PanicHandler,
	}, nil
}

// Providers returns a copy of the provider list in preference order.
func (c Configuration) Providers() []provider.Provider { return slices.Clone(c.providers) }

func (c Configuration) Listener() Listener                    { return c.listener }
func (c Configuration) SubsequentRequestDelay() time.Duration { return c.delay }
func (c Configuration) SkipUnauthorised() bool                { return c.skipUnauthorised }
func (c Configuration) AutoRecover() bool                     { return c.autoRecover }

func (c Configuration) valid() bool { return len(c.providers) > 0 }
