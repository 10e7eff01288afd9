package integration_tests

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/psyexpgo/internal/app"
	"github.com/vk/psyexpgo/internal/experiment"
	"github.com/vk/psyexpgo/internal/testutil"
)

// TestStartupValidation_ConstructorMismatch_Fails validates that the app
// panics on startup if a registration and the component it builds disagree.
func TestStartupValidation_ConstructorMismatch_Fails(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	mismatched := &testutil.SimpleModule{
		Type:     "ButtonComponent",
		Category: "Responses",
		New: func(name string) experiment.Component {
			return experiment.NewBaseComponent("MouseComponent", name, "Responses")
		},
	}
	files := map[string]string{"hello.psyexp": testutil.HelloXML}

	// --- Act ---
	result := testutil.RunCompileTest(t, files, func(dir string) *app.Config {
		return &app.Config{ExperimentPath: dir}
	}, mismatched)

	// --- Assert ---
	require.Error(t, result.Err, "app.NewApp() should have panicked, but it did not")
	errStr := result.Err.Error()
	require.True(t, strings.Contains(errStr, "registry validation failed"))
	require.True(t, strings.Contains(errStr, "component 'ButtonComponent': constructor builds type 'MouseComponent'"))
}

// TestStartupValidation_ProjectDefaultForUnknownParam_Fails validates that
// project defaults are checked against the registered components.
func TestStartupValidation_ProjectDefaultForUnknownParam_Fails(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	project := `
		component "KeyboardComponent" {
			params = {
				store       = "last key"
				deviceIndex = 2
			}
		}
	`

	// --- Act ---
	result := testutil.RunProjectTest(t, project, nil)

	// --- Assert ---
	require.Error(t, result.Err)
	require.Contains(t, result.Err.Error(), "component 'KeyboardComponent': default for unknown param 'deviceIndex'")
	require.NotContains(t, result.Err.Error(), "'store'")
}
