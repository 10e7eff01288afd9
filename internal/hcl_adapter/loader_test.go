package hcl_adapter

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/psyexpgo/internal/config"
	"github.com/vk/psyexpgo/internal/ctxlog"
)

func testContext() context.Context {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(context.Background(), logger)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoader_Load(t *testing.T) {
	// --- Arrange ---
	tempDir := t.TempDir()
	projectPath := filepath.Join(tempDir, "project.hcl")
	writeFile(t, projectPath, `
		defaults {
			target     = "PsychoPy"
			output_dir = env.BUILD_DIR
		}

		compile "Stroop" {
			experiment = "exps/stroop.psyexp"
			target     = "PsychoJS"
			output     = format("web/%s.js", lower(name))
		}

		compile "posner" {
			experiment = "/abs/posner.psyexp"
		}

		component "TextComponent" {
			params = {
				font         = upper("arial")
				letterHeight = 0.05
			}
		}
	`)

	loader := &Loader{Environ: func() []string { return []string{"BUILD_DIR=/build", "EMPTY="} }}

	// --- Act ---
	model, err := loader.Load(testContext(), projectPath, filepath.Join(tempDir, "missing"))

	// --- Assert ---
	require.NoError(t, err)

	expected := &config.Model{
		Defaults: &config.Defaults{Target: "PsychoPy", OutputDir: "/build"},
		Jobs: []*config.Job{
			{
				Name:       "Stroop",
				Experiment: filepath.Join(tempDir, "exps", "stroop.psyexp"),
				Target:     "PsychoJS",
				Output:     filepath.Join(tempDir, "web", "stroop.js"),
			},
			{
				Name:       "posner",
				Experiment: "/abs/posner.psyexp",
			},
		},
		ComponentDefaults: map[string]map[string]string{
			"TextComponent": {"font": "ARIAL", "letterHeight": "0.05"},
		},
	}
	if diff := cmp.Diff(expected, model); diff != "" {
		t.Errorf("Model mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_LoadDirectory(t *testing.T) {
	// --- Arrange ---
	tempDir := t.TempDir()
	writeFile(t, filepath.Join(tempDir, "a.hcl"), `compile "a" { experiment = "a.psyexp" }`)
	writeFile(t, filepath.Join(tempDir, "nested", "b.hcl"), `
		component "KeyboardComponent" { params = { store = "first key" } }
		component "KeyboardComponent" { params = { forceEndRoutine = false } }
	`)
	writeFile(t, filepath.Join(tempDir, "README.md"), "not hcl")

	// --- Act ---
	model, err := NewLoader().Load(testContext(), tempDir)

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, model.Jobs, 1)
	assert.Equal(t, filepath.Join(tempDir, "a.psyexp"), model.Jobs[0].Experiment)
	assert.Equal(t, map[string]string{"store": "first key", "forceEndRoutine": "false"},
		model.ComponentDefaults["KeyboardComponent"])
}

func TestLoader_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		hcl     string
		wantErr string
	}{
		{
			name:    "syntax error",
			hcl:     `compile "a" {`,
			wantErr: "failed to parse HCL file",
		},
		{
			name:    "missing experiment",
			hcl:     `compile "a" { target = "PsychoJS" }`,
			wantErr: "in compile 'a': 'experiment' must not be empty",
		},
		{
			name:    "duplicate compile block",
			hcl:     "compile \"a\" { experiment = \"a.psyexp\" }\ncompile \"a\" { experiment = \"b.psyexp\" }",
			wantErr: "duplicate compile block 'a'",
		},
		{
			name:    "unknown function",
			hcl:     `compile "a" { experiment = shout("a") }`,
			wantErr: "in compile 'a'",
		},
		{
			name:    "params must be an object",
			hcl:     `component "TextComponent" { params = "font" }`,
			wantErr: "'params' must be an object",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			path := filepath.Join(t.TempDir(), "project.hcl")
			writeFile(t, path, tc.hcl)

			// --- Act ---
			_, err := NewLoader().Load(testContext(), path)

			// --- Assert ---
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
