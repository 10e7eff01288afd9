package testutil

import (
	"github.com/vk/psyexpgo/internal/experiment"
	"github.com/vk/psyexpgo/internal/registry"
)

// SimpleModule is a test helper for registering a single component
// constructor under an arbitrary type name.
type SimpleModule struct {
	Type     string
	Category string
	New      func(name string) experiment.Component
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	if m.Type != "" && m.New != nil {
		r.RegisterComponent(m.Type, &registry.RegisteredComponent{New: m.New, Category: m.Category})
	}
}
