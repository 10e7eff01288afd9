package registry

import "github.com/vk/psyexpgo/internal/config"

// PopulateDefaultsFromModel stores the component param defaults declared in
// the project model, such as
//
//	component "TextComponent" {
//	  params = { font = "Open Sans", letterHeight = 0.05 }
//	}
func (r *Registry) PopulateDefaultsFromModel(model *config.Model) {
	if model == nil {
		return
	}
	for typ, params := range model.ComponentDefaults {
		r.SetDefaults(typ, params)
	}
}
