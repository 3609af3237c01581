package registry

import (
	"github.com/timmy/hakconsole/internal/domain"
)

// Registry is an immutable snapshot of the provider and publisher plugins
// installed on the backend. It is built once per bootstrap and only read
// afterwards, so it is safe for concurrent use.
type Registry struct {
	providers  []domain.PluginDescriptor
	publishers []domain.PluginDescriptor
}

// New creates a registry from the two plugin listings. The slices are copied.
// Parameters:
//   - providers: provider plugins reported by the backend.
//   - publishers: publisher plugins reported by the backend.
//
// Returns:
//   - *Registry: read-only registry.
func New(providers, publishers []domain.PluginDescriptor) *Registry {
	return &Registry{
		providers:  clonePlugins(providers),
		publishers: clonePlugins(publishers),
	}
}

// Empty returns a registry with no plugins.
func Empty() *Registry {
	return &Registry{}
}

func (r *Registry) collection(kind domain.PluginKind) []domain.PluginDescriptor {
	if r == nil {
		return nil
	}
	switch kind {
	case domain.PluginProvider:
		return r.providers
	case domain.PluginPublisher:
		return r.publishers
	default:
		return nil
	}
}

// Lookup finds the plugin of the given kind by class. Class keys are matched
// exactly and the first match wins.
func (r *Registry) Lookup(kind domain.PluginKind, class string) (domain.PluginDescriptor, bool) {
	for _, p := range r.collection(kind) {
		if p.Class == class {
			return p, true
		}
	}
	return domain.PluginDescriptor{}, false
}

// HasConsole reports whether the plugin exposes a console view. Unknown and
// empty classes report false.
func (r *Registry) HasConsole(kind domain.PluginKind, class string) bool {
	if class == "" {
		return false
	}
	p, ok := r.Lookup(kind, class)
	return ok && p.Console
}

// Providers returns a copy of the provider listing in backend order.
func (r *Registry) Providers() []domain.PluginDescriptor {
	return clonePlugins(r.collection(domain.PluginProvider))
}

// Publishers returns a copy of the publisher listing in backend order.
func (r *Registry) Publishers() []domain.PluginDescriptor {
	return clonePlugins(r.collection(domain.PluginPublisher))
}

// Len returns the number of plugins of the given kind.
func (r *Registry) Len(kind domain.PluginKind) int {
	return len(r.collection(kind))
}

// Duplicates returns class keys that appear more than once within a kind.
// Lookup still resolves them to the first entry.
func (r *Registry) Duplicates(kind domain.PluginKind) []string {
	seen := make(map[string]int)
	var dups []string
	for _, p := range r.collection(kind) {
		seen[p.Class]++
		if seen[p.Class] == 2 {
			dups = append(dups, p.Class)
		}
	}
	return dups
}

func clonePlugins(in []domain.PluginDescriptor) []domain.PluginDescriptor {
	if in == nil {
		return nil
	}
	out := make([]domain.PluginDescriptor, len(in))
	copy(out, in)
	return out
}
