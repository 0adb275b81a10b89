package graph

import (
	"sort"
	"sync"
)

// Factory returns a fresh, unconfigured computer.
type Factory func() Computer

// OpInfo describes a registered operation type.
type OpInfo struct {
	Name        string
	Category    string
	Description string
	// Hidden types can be built by name but are left out of listings.
	Hidden bool
}

type registration struct {
	info    OpInfo
	factory Factory
}

// Registry maps operation type names to factories. Registering a name twice
// replaces the earlier entry.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registration
}

func NewRegistry() *Registry {
	return &Registry{entries: map[string]registration{}}
}

func (r *Registry) Register(info OpInfo, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if info.Category == "" {
		info.Category = "Uncategorized"
	}
	r.entries[info.Name] = registration{info: info, factory: f}
}

// Lookup returns the factory and info registered under name.
func (r *Registry) Lookup(name string) (Factory, OpInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[name]
	return reg.factory, reg.info, ok
}

// Names returns every registered name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for name := range r.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Infos returns every listed registration sorted by category, then name.
func (r *Registry) Infos() []OpInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]OpInfo, 0, len(r.entries))
	for _, reg := range r.entries {
		if reg.info.Hidden {
			continue
		}
		out = append(out, reg.info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Categories groups the sorted names by category.
func (r *Registry) Categories() map[string][]string {
	out := map[string][]string{}
	for _, info := range r.Infos() {
		out[info.Category] = append(out[info.Category], info.Name)
	}
	return out
}
