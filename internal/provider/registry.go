package provider

import (
	"fmt"
	"sort"

	"github.com/procureflow/agent/internal/orcherr"
)

// preferenceOrder is the documented tie-break order (3) consulted when
// more than one provider has credentials configured and neither an
// explicit override nor an environment pin decided the question.
var preferenceOrder = []string{"anthropic", "openai"}

// Registry holds the configured Provider instances and implements the
// selection precedence from spec.md §4.2: explicit override, then an
// environment pin, then credential presence in preferenceOrder, then
// NoProviderConfigured.
type Registry struct {
	providers map[string]Provider
	forced    string
}

// NewRegistry builds a Registry from the given providers, keyed by
// Provider.Name(). forced is the environment-pinned provider name
// (config.ProviderConfig.Forced); empty means no pin.
func NewRegistry(providers []Provider, forced string) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers)), forced: forced}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Select resolves a Provider using the documented precedence. override,
// when non-empty, is the per-request explicit choice and always wins.
func (r *Registry) Select(override string) (Provider, error) {
	if override != "" {
		p, ok := r.providers[override]
		if !ok {
			return nil, orcherr.New(orcherr.CodeProviderUnavailable, fmt.Sprintf("provider %q is not configured", override))
		}
		return p, nil
	}

	if r.forced != "" {
		p, ok := r.providers[r.forced]
		if !ok {
			return nil, orcherr.New(orcherr.CodeProviderUnavailable, fmt.Sprintf("pinned provider %q is not configured", r.forced))
		}
		return p, nil
	}

	for _, name := range preferenceOrder {
		if p, ok := r.providers[name]; ok {
			return p, nil
		}
	}
	// Preference order exhausted; fall back to whatever remains so a
	// provider registered under a name outside preferenceOrder is not
	// stranded.
	if names := r.sortedNames(); len(names) > 0 {
		return r.providers[names[0]], nil
	}

	return nil, orcherr.New(orcherr.CodeProviderUnavailable,
		fmt.Sprintf("no provider configured; set one of: %s", requiredCredentialNames()))
}

// GetProviderInfo returns the Descriptor for name, or an error if name
// is not configured.
func (r *Registry) GetProviderInfo(name string) (Descriptor, error) {
	p, ok := r.providers[name]
	if !ok {
		return Descriptor{}, orcherr.New(orcherr.CodeProviderUnavailable, fmt.Sprintf("provider %q is not configured", name))
	}
	return p.Descriptor(), nil
}

// GetAllProviders returns the Descriptor of every configured provider,
// sorted by name for deterministic output.
func (r *Registry) GetAllProviders() []Descriptor {
	names := r.sortedNames()
	out := make([]Descriptor, 0, len(names))
	for _, name := range names {
		out = append(out, r.providers[name].Descriptor())
	}
	return out
}

func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func requiredCredentialNames() string {
	return "ANTHROPIC_API_KEY, OPENAI_API_KEY"
}
