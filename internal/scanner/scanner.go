package scanner

import (
	"fmt"
	"sort"

	"PriceNewsScanner/internal/ports"
)

// Registry keeps a mapping from site names to their NewsSite implementations.
type Registry struct {
	sites map[string]ports.NewsSite
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{sites: map[string]ports.NewsSite{}}
}

// Register adds or replaces a site implementation.
func (r *Registry) Register(site ports.NewsSite) {
	if r.sites == nil {
		r.sites = map[string]ports.NewsSite{}
	}
	r.sites[site.Name()] = site
}

// Resolve returns a site by name or an error if it is absent.
func (r *Registry) Resolve(name string) (ports.NewsSite, error) {
	if site, ok := r.sites[name]; ok {
		return site, nil
	}
	return nil, fmt.Errorf("news site %s is not registered (known: %v)", name, r.Names())
}

// Names lists registered sites in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sites))
	for name := range r.sites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
