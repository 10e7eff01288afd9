package integration_tests

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/psyexpgo/internal/app"
	"github.com/vk/psyexpgo/internal/testutil"
)

// Test for: a project directory merges every HCL file below it
func TestHCL_ProjectDirectory_IsLoadedAsOne(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"project/jobs.hcl": `
			compile "hello" {
				experiment = "../exps/hello.psyexp"
			}
		`,
		"project/web/jobs.hcl": `
			compile "stroop" {
				experiment = "../../exps/stroop.psyexp"
				target     = "PsychoJS"
			}
		`,
		"project/defaults.hcl": `
			defaults {
				output_dir = "../build"
			}

			component "KeyboardComponent" {
				params = {
					"discard previous" = false
				}
			}
		`,
		"exps/hello.psyexp":  testutil.HelloXML,
		"exps/stroop.psyexp": testutil.StroopXML,
	}

	// --- Act ---
	result := testutil.RunCompileTest(t, files, func(dir string) *app.Config {
		return &app.Config{ProjectPath: filepath.Join(dir, "project")}
	})

	// --- Assert ---
	require.NoError(t, result.Err)
	require.Len(t, result.App.Project().Jobs, 2)
	testutil.AssertCompiled(t, result, filepath.Join(result.Dir, "build", "hello.py"))
	testutil.AssertCompiled(t, result, filepath.Join(result.Dir, "build", "stroop.js"))
	js := result.Output(t, "build/stroop.js")
	assert.Contains(t, js, "resp = new core.Keyboard(")
	assert.NotContains(t, js, "resp.clearEvents()", "the project default turns off discarding earlier keys")
}
