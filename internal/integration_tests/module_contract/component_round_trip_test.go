package integration_tests

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/vk/psyexpgo/internal/app"
	"github.com/vk/psyexpgo/internal/codegen"
	"github.com/vk/psyexpgo/internal/experiment"
	"github.com/vk/psyexpgo/internal/testutil"
)

func paramValues(comp experiment.Component) map[string]string {
	out := make(map[string]string)
	ps := comp.Params()
	for _, name := range ps.Names() {
		p := ps.Get(name)
		out[name] = p.Val + "|" + p.Updates
	}
	return out
}

// TestModuleContract_EveryCoreComponent_RoundTripsAndCompiles checks that a
// freshly created component of every registered type survives a save/load
// cycle unchanged and compiles for every target it declares.
func TestModuleContract_EveryCoreComponent_RoundTripsAndCompiles(t *testing.T) {
	reg := app.NewRegistry()

	for _, typ := range reg.Types() {
		t.Run(typ, func(t *testing.T) {
			// --- Arrange ---
			ctx, _ := testutil.Context(t)
			exp := testutil.NewExperiment(t)
			routine := exp.NewRoutine("trial")
			comp := exp.NewComponent(typ, "probe")
			routine.Add(comp)
			exp.AddRoutine(routine)
			exp.Flow.AddRoutine(routine, 0)

			// --- Act ---
			doc := testutil.SaveXML(t, exp)
			loaded := testutil.NewExperiment(t)
			err := loaded.LoadFromXML(ctx, strings.NewReader(doc))

			// --- Assert ---
			require.NoError(t, err)
			got := loaded.ComponentByName("probe")
			require.NotNil(t, got, "component lost on reload:\n%s", doc)
			require.Equal(t, typ, got.Type())
			if diff := cmp.Diff(paramValues(comp), paramValues(got)); diff != "" {
				t.Errorf("params changed by a save/load cycle (-want +got):\n%s", diff)
			}

			for _, target := range []codegen.Target{codegen.PsychoPy, codegen.PsychoJS} {
				if !experiment.Supports(got, target) {
					continue
				}
				_, err := loaded.WriteScript(ctx, target)
				require.NoError(t, err, "target %s", target)
			}
		})
	}
}
