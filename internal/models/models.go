// Package models holds the static table of selectable review models.
package models

import "strings"

// Provider identifiers used to select a driver.
const (
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
)

// Model describes a selectable model.
type Model struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Default  bool   `json:"default,omitempty"`

	// UseDefaultTemperature models reject or degrade with an explicit temperature.
	UseDefaultTemperature bool `json:"-"`
}

var registry = []Model{
	{ID: "claude-haiku-4-5", Name: "Claude Haiku 4.5", Provider: ProviderAnthropic, Default: true},
	{ID: "claude-sonnet-4-5", Name: "Claude Sonnet 4.5", Provider: ProviderAnthropic},
	{ID: "claude-opus-4-1", Name: "Claude Opus 4.1", Provider: ProviderAnthropic},
	{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash", Provider: ProviderGoogle},
	{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro", Provider: ProviderGoogle},
	{ID: "gemini-3-pro-preview", Name: "Gemini 3 Pro (Preview)", Provider: ProviderGoogle, UseDefaultTemperature: true},
}

// Lookup returns the model with the given id.
func Lookup(id string) (Model, bool) {
	id = strings.TrimSpace(id)
	for _, m := range registry {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// All returns a copy of the registry in display order.
func All() []Model {
	out := make([]Model, len(registry))
	copy(out, registry)
	return out
}

// Default returns the model preselected for new sessions.
func Default() Model {
	for _, m := range registry {
		if m.Default {
			return m
		}
	}
	return registry[0]
}

// ByProvider returns the models served by provider.
func ByProvider(provider string) []Model {
	provider = strings.ToLower(strings.TrimSpace(provider))
	var out []Model
	for _, m := range registry {
		if m.Provider == provider {
			out = append(out, m)
		}
	}
	return out
}

// Providers returns the distinct provider ids in registry order.
func Providers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range registry {
		if seen[m.Provider] {
			continue
		}
		seen[m.Provider] = true
		out = append(out, m.Provider)
	}
	return out
}
