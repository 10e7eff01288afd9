package app

import (
	"github.com/vk/psyexpgo/internal/registry"
	"github.com/vk/psyexpgo/modules/code"
	"github.com/vk/psyexpgo/modules/keyboard"
	"github.com/vk/psyexpgo/modules/static"
	"github.com/vk/psyexpgo/modules/text"
)

// coreModules is the definitive list of all component modules that are
// compiled into the psyexpc binary.
var coreModules = []registry.Module{
	&text.Module{},
	&keyboard.Module{},
	&code.Module{},
	&static.Module{},
}

// NewRegistry returns a registry populated by the given modules, or by the
// core modules when none are given.
func NewRegistry(modules ...registry.Module) *registry.Registry {
	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	return reg
}
