package ailink

import (
	"fmt"
	"strings"
	"sync"

	"github.com/vhdlcheck/vhdlcheck/internal/ailink/driver"
	"github.com/vhdlcheck/vhdlcheck/internal/ailink/driver/anthropic"
	"github.com/vhdlcheck/vhdlcheck/internal/ailink/driver/gemini"
	"github.com/vhdlcheck/vhdlcheck/internal/models"
)

// Registry resolves a model id to a configured provider driver.
// Drivers are built lazily and cached per provider and credential.
type Registry struct {
	cfg Config

	mu        sync.Mutex
	drivers   map[string]driver.Driver
	overrides map[string]driver.Driver
	rr        map[string]int
}

// ResolvedProvider is the driver and model selected for a request.
type ResolvedProvider struct {
	ProviderID string
	Model      models.Model
	Driver     driver.Driver
	Credential string
}

func NewRegistry(cfg Config) *Registry {
	return &Registry{cfg: cfg}
}

// SetDriver forces a driver for a provider id, bypassing configuration.
func (r *Registry) SetDriver(providerID string, drv driver.Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.overrides == nil {
		r.overrides = map[string]driver.Driver{}
	}
	r.overrides[strings.ToLower(strings.TrimSpace(providerID))] = drv
}

// Resolve looks up modelID and returns the driver for its provider.
func (r *Registry) Resolve(modelID string) (*ResolvedProvider, error) {
	if r == nil {
		return nil, fmt.Errorf("ailink registry not configured")
	}
	model, ok := models.Lookup(modelID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, strings.TrimSpace(modelID))
	}

	r.mu.Lock()
	override, hasOverride := r.overrides[model.Provider]
	r.mu.Unlock()
	if hasOverride {
		return &ResolvedProvider{ProviderID: model.Provider, Model: model, Driver: override}, nil
	}

	providerCfg := r.cfg.Providers[model.Provider]
	cred, credKey, err := selectCredential(providerCfg, func(groupKey string, n int) int {
		return r.rrIndex(model.Provider+":"+groupKey, n)
	})
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", model.Provider, err)
	}

	drv, err := r.driverFor(model.Provider, providerCfg, cred, credKey)
	if err != nil {
		return nil, err
	}

	return &ResolvedProvider{
		ProviderID: model.Provider,
		Model:      model,
		Driver:     drv,
		Credential: credKey,
	}, nil
}

// Configured reports whether a provider has at least one usable credential.
func (r *Registry) Configured(providerID string) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	_, hasOverride := r.overrides[providerID]
	r.mu.Unlock()
	if hasOverride {
		return true
	}
	for _, cred := range r.cfg.Providers[providerID].credentials() {
		if strings.TrimSpace(cred.APIKey) != "" {
			return true
		}
	}
	return false
}

func selectCredential(cfg ProviderConfig, rrNext func(groupKey string, n int) int) (CredentialConfig, string, error) {
	all := cfg.credentials()
	if len(all) == 0 {
		return CredentialConfig{}, "", fmt.Errorf("%w: no credentials configured", driver.ErrMissingAPIKey)
	}

	enabled := make([]CredentialConfig, 0, len(all))
	for _, cred := range all {
		if !cred.Enabled && strings.TrimSpace(cred.Label) != "" {
			continue
		}
		if strings.TrimSpace(cred.APIKey) == "" {
			continue
		}
		enabled = append(enabled, cred)
	}
	if len(enabled) == 0 {
		// Credentials exist but are not usable; return first so the driver reports the missing key.
		cred := all[0]
		key := strings.TrimSpace(cred.Label)
		if key == "" {
			key = "0"
		}
		return cred, key, nil
	}

	if label := strings.TrimSpace(cfg.DefaultCredential); label != "" {
		for _, cred := range enabled {
			if strings.EqualFold(strings.TrimSpace(cred.Label), label) {
				return cred, strings.TrimSpace(cred.Label), nil
			}
		}
	}

	policy := strings.ToLower(strings.TrimSpace(cfg.SelectionPolicy))
	if policy == "" {
		policy = "priority"
	}

	highest := enabled[0].Priority
	for _, cred := range enabled[1:] {
		if cred.Priority > highest {
			highest = cred.Priority
		}
	}
	group := make([]CredentialConfig, 0, len(enabled))
	for _, cred := range enabled {
		if cred.Priority == highest {
			group = append(group, cred)
		}
	}

	idx := 0
	if policy == "round_robin" && rrNext != nil {
		idx = rrNext(fmt.Sprintf("%d", highest), len(group))
	}
	cred := group[idx]
	key := strings.TrimSpace(cred.Label)
	if key == "" {
		key = fmt.Sprintf("p%d-%d", highest, idx)
	}
	return cred, key, nil
}

func (r *Registry) driverFor(providerID string, providerCfg ProviderConfig, cred CredentialConfig, credKey string) (driver.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drivers == nil {
		r.drivers = map[string]driver.Driver{}
	}
	driverKey := providerID
	if strings.TrimSpace(credKey) != "" {
		driverKey += ":" + credKey
	}
	if drv, ok := r.drivers[driverKey]; ok {
		return drv, nil
	}

	var drv driver.Driver
	switch providerID {
	case models.ProviderAnthropic:
		client := anthropic.NewClient(providerCfg.BaseURL, cred.APIKey)
		client.Timeout = r.cfg.Timeout()
		drv = client
	case models.ProviderGoogle:
		client := gemini.NewClient(providerCfg.BaseURL, cred.APIKey)
		client.Timeout = r.cfg.Timeout()
		drv = client
	default:
		return nil, fmt.Errorf("unsupported provider %q", providerID)
	}
	r.drivers[driverKey] = drv
	return drv, nil
}

func (r *Registry) rrIndex(key string, n int) int {
	if n <= 1 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rr == nil {
		r.rr = map[string]int{}
	}
	idx := r.rr[key] % n
	r.rr[key]++
	return idx
}
