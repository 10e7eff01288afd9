package testutil

import (
	"github.com/vk/psyexpgo/internal/codegen"
	"github.com/vk/psyexpgo/internal/experiment"
	"github.com/vk/psyexpgo/internal/registry"
)

// NoopType is the component type registered by NoopModule.
const NoopType = "NoopComponent"

// NoopModule registers a timed component that writes nothing and only
// supports the Python target. It is useful for tests of Routine timing and
// target filtering that should not depend on a real component.
type NoopModule struct{}

// Register implements the registry.Module interface.
func (m *NoopModule) Register(r *registry.Registry) {
	r.RegisterComponent(NoopType, &registry.RegisteredComponent{
		New: func(name string) experiment.Component {
			return experiment.NewBaseComponent(NoopType, name, "Testing", codegen.PsychoPy)
		},
		Category: "Testing",
	})
}
