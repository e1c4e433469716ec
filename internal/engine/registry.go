package engine

import (
	"fmt"
	"sort"
	"sync"

	"prefabforge/internal/prefab"
)

// Descriptor is the behaviour registered for one component type.
type Descriptor struct {
	Name              string
	DefaultProperties map[string]any
	View              ViewFunc
	Editor            EditorFunc
	// NonComposable views wrap the node's other visuals instead of being
	// layered next to them.
	NonComposable bool
}

// Registry maps component type names to descriptors. It is filled once at
// startup and read from then on.
type Registry struct {
	mu    sync.RWMutex
	descs map[string]Descriptor
}

// NewRegistry builds a registry from descs, panicking on duplicates.
func NewRegistry(descs ...Descriptor) *Registry {
	r := &Registry{descs: make(map[string]Descriptor, len(descs))}
	for _, d := range descs {
		r.Register(d)
	}
	return r
}

// Register adds a descriptor. Registering a name twice is a programming
// error and panics.
func (r *Registry) Register(d Descriptor) {
	if d.Name == "" {
		panic("component descriptor without a name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.descs[d.Name]; exists {
		panic(fmt.Sprintf("component %q already registered", d.Name))
	}
	r.descs[d.Name] = d
}

// Get looks up a descriptor. ok=false means the type is unknown, which
// callers must tolerate.
func (r *Registry) Get(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descs[name]
	return d, ok
}

// All returns a copy of the registry contents.
func (r *Registry) All() map[string]Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Descriptor, len(r.descs))
	for k, v := range r.descs {
		out[k] = v
	}
	return out
}

// Names returns the registered type names sorted for stable UI ordering.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.descs))
	for name := range r.descs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewComponent returns fresh component data for a registered type, with a
// private copy of its default properties.
func (r *Registry) NewComponent(name string) (*prefab.ComponentData, bool) {
	d, ok := r.Get(name)
	if !ok {
		return nil, false
	}
	props := map[string]any{}
	if d.DefaultProperties != nil {
		props = prefab.CloneProperties(d.DefaultProperties)
	}
	return &prefab.ComponentData{Type: d.Name, Properties: props}, true
}
