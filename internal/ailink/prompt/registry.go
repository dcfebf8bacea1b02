package prompt

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned when no prompt matches a slug.
var ErrNotFound = errors.New("prompt not found")

// RequiredSlugs are the prompts the review service cannot run without.
var RequiredSlugs = []string{SlugAnalyze, SlugTestbench}

// Registry resolves prompt definitions by slug.
type Registry interface {
	Get(slug string) (*Prompt, error)
	List() []*Prompt
}

type slugRegistry map[string]*Prompt

// NewRegistry indexes prompts by slug. Slugs must be unique.
func NewRegistry(prompts []*Prompt) (Registry, error) {
	reg := make(slugRegistry, len(prompts))
	for _, p := range prompts {
		if p == nil {
			continue
		}
		slug := strings.TrimSpace(p.Config.Slug)
		if slug == "" {
			return nil, errors.New("prompt missing slug")
		}
		if _, dup := reg[slug]; dup {
			return nil, fmt.Errorf("duplicate prompt slug: %s", slug)
		}
		reg[slug] = p
	}
	return reg, nil
}

func (r slugRegistry) Get(slug string) (*Prompt, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, errors.New("prompt slug is required")
	}
	p, ok := r[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, slug)
	}
	return p, nil
}

// List returns prompts sorted by slug.
func (r slugRegistry) List() []*Prompt {
	slugs := make([]string, 0, len(r))
	for slug := range r {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	out := make([]*Prompt, 0, len(slugs))
	for _, slug := range slugs {
		out = append(out, r[slug])
	}
	return out
}

// Require reports every slug missing from reg.
func Require(reg Registry, slugs ...string) error {
	var missing []string
	for _, slug := range slugs {
		if _, err := reg.Get(slug); err != nil {
			missing = append(missing, slug)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, strings.Join(missing, ", "))
	}
	return nil
}
