package prompt

import (
	"embed"
	"fmt"
)

//go:embed prompts/*.md
var defaultPromptsFS embed.FS

// LoadDefaults loads the embedded prompt set.
func LoadDefaults() ([]*Prompt, error) {
	entries, err := defaultPromptsFS.ReadDir("prompts")
	if err != nil {
		return nil, fmt.Errorf("read embedded prompts: %w", err)
	}
	results := make([]*Prompt, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := defaultPromptsFS.ReadFile("prompts/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read embedded prompt %s: %w", entry.Name(), err)
		}
		prompt, err := Load(entry.Name(), data)
		if err != nil {
			return nil, err
		}
		results = append(results, prompt)
	}
	return results, nil
}

// DefaultRegistry builds a registry from embedded prompts, overlaid with any
// prompts found in overrideDir. Overrides replace embedded prompts by slug.
func DefaultRegistry(overrideDir string) (Registry, error) {
	prompts, err := LoadDefaults()
	if err != nil {
		return nil, err
	}
	if overrideDir != "" {
		overrides, err := LoadFromDir(overrideDir)
		if err != nil {
			return nil, err
		}
		prompts = overlay(prompts, overrides)
	}
	reg, err := NewRegistry(prompts)
	if err != nil {
		return nil, err
	}
	if err := Require(reg, RequiredSlugs...); err != nil {
		return nil, err
	}
	return reg, nil
}

func overlay(base, overrides []*Prompt) []*Prompt {
	bySlug := make(map[string]int, len(base))
	out := append([]*Prompt(nil), base...)
	for i, p := range out {
		bySlug[p.Config.Slug] = i
	}
	for _, p := range overrides {
		if i, ok := bySlug[p.Config.Slug]; ok {
			out[i] = p
			continue
		}
		bySlug[p.Config.Slug] = len(out)
		out = append(out, p)
	}
	return out
}
