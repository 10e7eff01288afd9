package registry

import (
	"fmt"
	"log/slog"

	"github.com/vk/psyexpgo/internal/experiment"
)

// RegisteredComponent holds the constructor of a component type.
type RegisteredComponent struct {
	New      func(name string) experiment.Component
	Category string
}

// RegisterComponent registers the constructor for a component type.
func (r *Registry) RegisterComponent(typ string, handler *RegisteredComponent) {
	if _, exists := r.ComponentRegistry[typ]; exists {
		panic(fmt.Sprintf("component with type '%s' already registered", typ))
	}
	slog.Debug("Registering component.", "type", typ)
	r.ComponentRegistry[typ] = handler
}

// SetDefaults stores param defaults for a component type, replacing any
// earlier value of the same param.
func (r *Registry) SetDefaults(typ string, params map[string]string) {
	defaults, ok := r.DefaultsRegistry[typ]
	if !ok {
		defaults = make(map[string]string, len(params))
		r.DefaultsRegistry[typ] = defaults
	}
	for k, v := range params {
		defaults[k] = v
	}
}
