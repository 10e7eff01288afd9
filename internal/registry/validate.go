package registry

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/vk/psyexpgo/internal/ctxlog"
	"github.com/vk/psyexpgo/internal/experiment"
)

const probeName = "registryProbe"

// ValidateRegistry performs a strict parity check between registrations,
// the components they construct and the configured defaults.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, typ := range r.Types() {
		rc := r.ComponentRegistry[typ]
		if rc.New == nil {
			errs = append(errs, fmt.Sprintf("component '%s': no constructor", typ))
			continue
		}
		comp := rc.New(probeName)
		if comp.Type() != typ {
			errs = append(errs, fmt.Sprintf("component '%s': constructor builds type '%s'", typ, comp.Type()))
		}
		if comp.Name() != probeName {
			errs = append(errs, fmt.Sprintf("component '%s': constructor ignores the name", typ))
		}
		ps := comp.Params()
		if ps.Has("startType") != ps.Has("stopType") {
			errs = append(errs, fmt.Sprintf("component '%s': has only one of startType and stopType", typ))
		}
		if len(comp.Targets()) == 0 {
			logger.Warn("Component cannot be written for any target.", "type", typ)
		}
	}

	for typ, defaults := range r.DefaultsRegistry {
		rc, ok := r.ComponentRegistry[typ]
		if !ok {
			errs = append(errs, fmt.Sprintf("defaults given for unknown component type '%s'", typ))
			continue
		}
		ps := rc.New(probeName).Params()
		for param, val := range defaults {
			p := ps.Get(param)
			if p == nil {
				errs = append(errs, fmt.Sprintf("component '%s': default for unknown param '%s'", typ, param))
				continue
			}
			if len(p.AllowedVals) > 0 && !slices.Contains(p.AllowedVals, val) {
				errs = append(errs, fmt.Sprintf("component '%s', param '%s': default %q is not one of %v", typ, param, val, p.AllowedVals))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

var _ experiment.ComponentFactory = (*Registry)(nil)
