package speech

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is a thread-safe table of provider descriptors. It answers the
// single question the router asks: "which providers can serve this
// operation right now, and in what order?". It deliberately holds no
// circuit-breaker state; breakers are owned by the router so that flipping
// a provider's availability never discards accumulated failure history.
type Registry struct {
	mu      sync.RWMutex
	entries []*registryEntry
	byName  map[string]*registryEntry
}

type registryEntry struct {
	desc     Descriptor
	provider Provider
}

// Candidate pairs a descriptor snapshot with the provider to invoke.
type Candidate struct {
	Descriptor Descriptor
	Provider   Provider
}

// ProviderStatus is the health-reporting view of one registry entry.
type ProviderStatus struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Available bool   `json:"available"`
	Priority  int    `json:"priority"`
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*registryEntry),
	}
}

// Register adds a provider under desc.Name. Registration order is retained
// and breaks priority ties, so registering A before C at equal priority
// makes A win.
func (r *Registry) Register(provider Provider, desc Descriptor) error {
	if provider == nil {
		return fmt.Errorf("register %q: nil provider", desc.Name)
	}
	if desc.Name == "" {
		desc.Name = provider.Name()
	}
	if len(desc.Operations) == 0 {
		return fmt.Errorf("register %q: no supported operations", desc.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[desc.Name]; exists {
		return fmt.Errorf("register %q: already registered", desc.Name)
	}

	e := &registryEntry{desc: desc, provider: provider}
	r.entries = append(r.entries, e)
	r.byName[desc.Name] = e
	return nil
}

// SetAvailability flips the availability flag of a named provider. The
// change is visible to the next AvailableFor call; iterations already in
// flight keep their snapshot. Returns false if the provider is unknown.
func (r *Registry) SetAvailability(name string, available bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byName[name]
	if !ok {
		return false
	}
	e.desc.Available = available
	return true
}

// AvailableFor returns the candidates able to serve op, highest priority
// first. The sort is stable: equal priorities keep registration order.
// The returned slice is a snapshot; later registry mutations do not
// affect it.
func (r *Registry) AvailableFor(op Operation) []Candidate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Candidate
	for _, e := range r.entries {
		if e.desc.Available && e.desc.Supports(op) {
			out = append(out, Candidate{Descriptor: e.desc, Provider: e.provider})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Descriptor.Priority > out[j].Descriptor.Priority
	})
	return out
}

// Get retrieves a provider by name.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return e.provider, true
}

// Snapshot returns the status of every registered provider in
// registration order, for the administrative surface.
func (r *Registry) Snapshot() []ProviderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProviderStatus, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, ProviderStatus{
			Name:      e.desc.Name,
			Kind:      e.desc.Kind,
			Available: e.desc.Available,
			Priority:  e.desc.Priority,
		})
	}
	return out
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
