package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/unibill/provider"
)

// Scenario is the YAML input of the simulator.
type Scenario struct {
	Delay            time.Duration  `yaml:"delay"` // 0 = library default
	SkipUnauthorised bool           `yaml:"skip_unauthorised"`
	AutoRecover      bool           `yaml:"auto_recover"`
	Timeout          time.Duration  `yaml:"timeout"`
	Providers        []ProviderSpec `yaml:"providers"`
	Script           []Step         `yaml:"script"`
}

type ProviderSpec struct {
	Name       string        `yaml:"name"`
	Package    string        `yaml:"package"`
	Authorised *bool         `yaml:"authorised"` // default true
	Available  *bool         `yaml:"available"`  // default true
	Broken     bool          `yaml:"broken"`
	Latency    time.Duration `yaml:"latency"`
	PageSize   int           `yaml:"page_size"`
	FailNext   int           `yaml:"fail_next"`
	Catalog    []CatalogItem `yaml:"catalog"`
	Cache      *CacheSpec    `yaml:"cache"`
}

type CatalogItem struct {
	SKU         string `yaml:"sku"`
	Type        string `yaml:"type"` // consumable | entitlement | subscription
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Price       string `yaml:"price"`
}

// CacheSpec wraps the provider with skucache.
type CacheSpec struct {
	Store string        `yaml:"store"` // ristretto (default) | bigcache | redis
	Codec string        `yaml:"codec"` // json (default) | msgpack | cbor
	TTL   time.Duration `yaml:"ttl"`

	// Addr is the redis server for store: redis. Generations are then kept in
	// redis too, so every process sharing the server sees Invalidate.
	Addr string `yaml:"addr"`
}

// Step is one scripted action. Request ops: setup, purchase, subscribe,
// consume, inventory, sku_details. Control ops: sleep, available,
// unavailable, authorise, unauthorise, fail, invalidate, await_setups.
type Step struct {
	Op        string        `yaml:"op"`
	SKU       string        `yaml:"sku"`
	SKUs      []string      `yaml:"skus"`
	StartOver bool          `yaml:"start_over"`
	Provider  string        `yaml:"provider"`
	Count     int           `yaml:"count"` // fail: failures to inject; await_setups: total setup events
	Duration  time.Duration `yaml:"duration"`

	// Await blocks the script until this request is answered.
	Await bool `yaml:"await"`
}

const defaultTimeout = 30 * time.Second

func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return Scenario{}, fmt.Errorf("scenario: load: %w", err)
	}
	return ParseScenario([]byte(os.ExpandEnv(string(data))))
}

func ParseScenario(data []byte) (Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("scenario: parse: %w", err)
	}
	if sc.Timeout <= 0 {
		sc.Timeout = defaultTimeout
	}
	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

var knownOps = map[string]bool{
	"setup": true, "purchase": true, "subscribe": true, "consume": true,
	"inventory": true, "sku_details": true,
	"sleep": true, "available": true, "unavailable": true,
	"authorise": true, "unauthorise": true, "fail": true, "invalidate": true,
	"await_setups": true,
}

// Validate checks that the scenario is internally consistent.
func (sc Scenario) Validate() error {
	if len(sc.Providers) == 0 {
		return fmt.Errorf("scenario: at least one provider is required")
	}
	names := make(map[string]ProviderSpec, len(sc.Providers))
	for _, p := range sc.Providers {
		if p.Name == "" {
			return fmt.Errorf("scenario: provider name is required")
		}
		if _, dup := names[p.Name]; dup {
			return fmt.Errorf("scenario: duplicate provider name %q", p.Name)
		}
		names[p.Name] = p
		for _, it := range p.Catalog {
			if it.SKU == "" {
				return fmt.Errorf("scenario: provider %q: catalog item without sku", p.Name)
			}
			if _, err := parseSkuType(it.Type); err != nil {
				return fmt.Errorf("scenario: provider %q: %w", p.Name, err)
			}
		}
		if c := p.Cache; c != nil {
			switch c.Store {
			case "", "ristretto", "bigcache":
			case "redis":
				if c.Addr == "" {
					return fmt.Errorf("scenario: provider %q: redis cache needs addr", p.Name)
				}
			default:
				return fmt.Errorf("scenario: provider %q: unknown cache store %q", p.Name, c.Store)
			}
		}
	}

	for i, st := range sc.Script {
		if !knownOps[st.Op] {
			return fmt.Errorf("scenario: step %d: unknown op %q", i, st.Op)
		}
		switch st.Op {
		case "purchase", "subscribe", "consume":
			if st.SKU == "" {
				return fmt.Errorf("scenario: step %d: %s needs sku", i, st.Op)
			}
		case "sku_details":
			if len(st.SKUs) == 0 {
				return fmt.Errorf("scenario: step %d: sku_details needs skus", i)
			}
		case "available", "unavailable", "authorise", "unauthorise", "fail":
			if _, ok := names[st.Provider]; !ok {
				return fmt.Errorf("scenario: step %d: unknown provider %q", i, st.Provider)
			}
		case "await_setups":
			if st.Count < 1 {
				return fmt.Errorf("scenario: step %d: await_setups needs count >= 1", i)
			}
		case "invalidate":
			p, ok := names[st.Provider]
			if !ok || p.Cache == nil {
				return fmt.Errorf("scenario: step %d: provider %q has no cache", i, st.Provider)
			}
		}
	}
	return nil
}

func parseSkuType(s string) (provider.SkuType, error) {
	switch s {
	case "", "consumable":
		return provider.SkuTypeConsumable, nil
	case "entitlement":
		return provider.SkuTypeEntitlement, nil
	case "subscription":
		return provider.SkuTypeSubscription, nil
	default:
		return provider.SkuTypeUnknown, fmt.Errorf("unknown sku type %q", s)
	}
}

func (p ProviderSpec) catalog() []provider.SkuDetails {
	out := make([]provider.SkuDetails, 0, len(p.Catalog))
	for _, it := range p.Catalog {
		t, _ := parseSkuType(it.Type)
		out = append(out, provider.SkuDetails{
			SKU:         it.SKU,
			Type:        t,
			Title:       it.Title,
			Description: it.Description,
			Price:       it.Price,
		})
	}
	return out
}

func orTrue(b *bool) bool { return b == nil || *b }
