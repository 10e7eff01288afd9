package registry

import (
	"slices"
	"sort"

	"github.com/vk/psyexpgo/internal/experiment"
)

// Module is the interface that all component modules must implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds all the registered component constructors and param
// defaults for a single application instance.
type Registry struct {
	ComponentRegistry map[string]*RegisteredComponent
	DefaultsRegistry  map[string]map[string]string
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		ComponentRegistry: make(map[string]*RegisteredComponent),
		DefaultsRegistry:  make(map[string]map[string]string),
	}
}

// Types returns the registered component types in lexical order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.ComponentRegistry))
	for typ := range r.ComponentRegistry {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

// NewComponent builds a component of the given type with the configured
// defaults applied. It reports false for unregistered types.
func (r *Registry) NewComponent(typ, name string) (experiment.Component, bool) {
	rc, ok := r.ComponentRegistry[typ]
	if !ok {
		return nil, false
	}
	comp := rc.New(name)
	for param, val := range r.DefaultsRegistry[typ] {
		if param == "name" {
			continue
		}
		comp.Params().SetVal(param, val)
	}
	return comp, true
}

// Categories returns the distinct component categories.
func (r *Registry) Categories() []string {
	var out []string
	for _, typ := range r.Types() {
		if c := r.ComponentRegistry[typ].Category; !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}
