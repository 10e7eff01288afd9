package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/psyexpgo/internal/app"
	"github.com/vk/psyexpgo/internal/config"
	"github.com/vk/psyexpgo/internal/testutil"
)

// stubLoader returns a fixed project model.
type stubLoader struct {
	model *config.Model
}

func (l *stubLoader) Load(context.Context, ...string) (*config.Model, error) {
	return l.model, nil
}

func TestRun_SingleExperiment(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{"hello.psyexp": testutil.HelloXML}

	// --- Act ---
	result := testutil.RunCompileTest(t, files, func(dir string) *app.Config {
		return &app.Config{ExperimentPath: filepath.Join(dir, "hello.psyexp")}
	})

	// --- Assert ---
	require.NoError(t, result.Err)
	testutil.AssertCompiled(t, result, filepath.Join(result.Dir, "hello.py"))
	assert.Contains(t, result.LogOutput, "🚀 Compiling experiments...")
	assert.Contains(t, result.LogOutput, "🏁 Compilation finished.")
	script := result.Output(t, "hello.py")
	assert.Contains(t, script, "greeting = visual.TextStim(win=win, name='greeting',\n")
	assert.Contains(t, script, "expName = 'hello'")
}

func TestRun_SingleExperimentWithOutFile(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{"hello.psyexp": testutil.HelloXML}

	// --- Act ---
	result := testutil.RunCompileTest(t, files, func(dir string) *app.Config {
		return &app.Config{
			ExperimentPath: filepath.Join(dir, "hello.psyexp"),
			OutFile:        filepath.Join(dir, "web", "index.js"),
			Target:         "PsychoJS",
		}
	})

	// --- Assert ---
	require.NoError(t, result.Err)
	script := result.Output(t, filepath.Join("web", "index.js"))
	assert.Contains(t, script, "greeting = new visual.TextStim({")
}

func TestRun_DirectoryWithOutputDir(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"exps/hello.psyexp":        testutil.HelloXML,
		"exps/stroop/task.psyexp":  testutil.StroopXML,
		"exps/notes/readme.txt":    "not an experiment",
		"exps/stroop/conds.psyexp": testutil.HelloXML,
	}

	// --- Act ---
	result := testutil.RunCompileTest(t, files, func(dir string) *app.Config {
		return &app.Config{
			ExperimentPath: filepath.Join(dir, "exps"),
			OutFile:        filepath.Join(dir, "out"),
			Target:         "js",
		}
	})

	// --- Assert ---
	require.NoError(t, result.Err)
	assert.Contains(t, result.Output(t, "out/hello.js"), "psychoJS")
	assert.Contains(t, result.Output(t, "out/stroop/task.js"), "trialsLoopScheduler")
	assert.Contains(t, result.Output(t, "out/stroop/conds.js"), "greeting")
	_, err := os.Stat(filepath.Join(result.Dir, "out", "notes"))
	assert.True(t, os.IsNotExist(err), "no output is written for directories without experiments")
}

func TestRun_NoExperiments(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{"readme.txt": "nothing here"}

	// --- Act ---
	result := testutil.RunCompileTest(t, files, func(dir string) *app.Config {
		return &app.Config{ExperimentPath: dir}
	})

	// --- Assert ---
	require.NoError(t, result.Err)
	assert.Contains(t, result.LogOutput, "No experiments found, nothing to compile.")
	assert.NotContains(t, result.LogOutput, "🚀 Compiling experiments...")
}

func TestRun_CompileErrorStopsTheRun(t *testing.T) {
	testCases := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "malformed document",
			doc:     `<PsychoPy2experiment><Routines>`,
			wantErr: "failed to parse experiment",
		},
		{
			name:    "wrong root element",
			doc:     `<?xml version="1.0" ?><Experiment/>`,
			wantErr: "expected root <PsychoPy2experiment>, found <Experiment>",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			files := map[string]string{"broken.psyexp": tc.doc}

			// --- Act ---
			result := testutil.RunCompileTest(t, files, func(dir string) *app.Config {
				return &app.Config{ExperimentPath: filepath.Join(dir, "broken.psyexp")}
			})

			// --- Assert ---
			require.Error(t, result.Err)
			assert.Contains(t, result.Err.Error(), "failed to compile "+filepath.Join(result.Dir, "broken.psyexp"))
			assert.Contains(t, result.Err.Error(), tc.wantErr)
			assert.NotContains(t, result.LogOutput, "🏁 Compilation finished.")
		})
	}
}

func TestRun_Project(t *testing.T) {
	// --- Arrange ---
	project := `
		defaults {
			output_dir = "build"
		}

		compile "hello" {
			experiment = "hello.psyexp"
		}

		compile "stroop" {
			experiment = "stroop.psyexp"
			target     = "PsychoJS"
			output     = "web/${name}.js"
		}

		component "TextComponent" {
			params = {
				font = "Open Sans"
			}
		}
	`
	files := map[string]string{
		"hello.psyexp":  testutil.HelloXML,
		"stroop.psyexp": testutil.StroopXML,
	}

	// --- Act ---
	result := testutil.RunProjectTest(t, project, files)

	// --- Assert ---
	require.NoError(t, result.Err)
	hello := result.Output(t, "build/hello.py")
	assert.Contains(t, hello, "greeting = visual.TextStim(")
	assert.Contains(t, result.Output(t, "web/stroop.js"), "new TrialHandler({")
	assert.Equal(t, "Open Sans", result.App.Registry().DefaultsRegistry["TextComponent"]["font"])
}

func TestApp_Jobs_TargetPrecedence(t *testing.T) {
	testCases := []struct {
		name       string
		cliTarget  string
		jobTarget  string
		defaults   string
		wantTarget string
		wantExt    string
	}{
		{name: "fallback", wantTarget: "PsychoPy", wantExt: ".py"},
		{name: "project default", defaults: "PsychoJS", wantTarget: "PsychoJS", wantExt: ".js"},
		{name: "job beats default", jobTarget: "PsychoPy", defaults: "PsychoJS", wantTarget: "PsychoPy", wantExt: ".py"},
		{name: "command line beats job", cliTarget: "PsychoJS", jobTarget: "PsychoPy", wantTarget: "PsychoJS", wantExt: ".js"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			loader := &stubLoader{model: &config.Model{
				Defaults:          &config.Defaults{Target: tc.defaults},
				Jobs:              []*config.Job{{Name: "a", Experiment: "/exps/a.psyexp", Target: tc.jobTarget}},
				ComponentDefaults: map[string]map[string]string{},
			}}
			cfg := &app.Config{ProjectPath: "/project.hcl", Target: tc.cliTarget}
			a, _ := app.SetupAppTest(t, cfg, loader)

			// --- Act ---
			jobs, err := a.Jobs()

			// --- Assert ---
			require.NoError(t, err)
			require.Len(t, jobs, 1)
			assert.Equal(t, tc.wantTarget, jobs[0].Target)
			assert.Equal(t, "/exps/a"+tc.wantExt, jobs[0].Output)
		})
	}
}

func TestApp_Jobs_OutputDirMirrorsSourceTree(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	for _, rel := range []string{"src/a/exp.psyexp", "src/b/exp.psyexp"} {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(testutil.HelloXML), 0o644))
	}
	build := filepath.Join(dir, "build")
	loader := &stubLoader{model: &config.Model{
		Defaults:          &config.Defaults{OutputDir: build},
		ComponentDefaults: map[string]map[string]string{},
	}}
	cfg := &app.Config{ProjectPath: filepath.Join(dir, "project.hcl"), ExperimentPath: filepath.Join(dir, "src")}
	a, _ := app.SetupAppTest(t, cfg, loader)

	// --- Act ---
	jobs, err := a.Jobs()

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	outputs := []string{jobs[0].Output, jobs[1].Output}
	assert.ElementsMatch(t, []string{
		filepath.Join(build, "a", "exp.py"),
		filepath.Join(build, "b", "exp.py"),
	}, outputs)
}

func TestApp_Jobs_InvalidJobTarget(t *testing.T) {
	// --- Arrange ---
	loader := &stubLoader{model: &config.Model{
		Defaults:          &config.Defaults{},
		Jobs:              []*config.Job{{Name: "a", Experiment: "a.psyexp", Target: "Matlab"}},
		ComponentDefaults: map[string]map[string]string{},
	}}
	a, _ := app.SetupAppTest(t, &app.Config{ProjectPath: "p.hcl"}, loader)

	// --- Act ---
	_, err := a.Jobs()

	// --- Assert ---
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile 'a':")
	assert.Contains(t, err.Error(), `unknown target "Matlab"`)
}

func TestNewApp_StartupFailures(t *testing.T) {
	testCases := []struct {
		name    string
		project string
		wantErr string
	}{
		{
			name:    "unparsable project",
			project: `compile "a" {`,
			wantErr: "failed to load configuration",
		},
		{
			name:    "defaults for an unregistered component",
			project: `component "SliderComponent" { params = { ticks = "(1, 2, 3)" } }`,
			wantErr: "defaults given for unknown component type 'SliderComponent'",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Act ---
			result := testutil.RunProjectTest(t, tc.project, nil)

			// --- Assert ---
			require.Error(t, result.Err)
			assert.Contains(t, result.Err.Error(), "application startup panicked")
			assert.Contains(t, result.Err.Error(), tc.wantErr)
		})
	}
}

func TestNewApp_LogFile(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{"hello.psyexp": testutil.HelloXML}
	var logFile string

	// --- Act ---
	result := testutil.RunCompileTest(t, files, func(dir string) *app.Config {
		logFile = filepath.Join(dir, "psyexpc.log")
		return &app.Config{ExperimentPath: filepath.Join(dir, "hello.psyexp"), LogFile: logFile}
	})

	// --- Assert ---
	require.NoError(t, result.Err)
	require.NoError(t, result.App.Close())
	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Compiled experiment."`)
	assert.Contains(t, result.LogOutput, "msg=\"Compiled experiment.\"")
}

func TestNewConfig(t *testing.T) {
	testCases := []struct {
		name       string
		cfg        app.Config
		wantTarget string
		wantErr    string
	}{
		{name: "nothing to compile", cfg: app.Config{}, wantErr: "an experiment path or a project file is required"},
		{name: "alias is canonicalised", cfg: app.Config{ExperimentPath: "a.psyexp", Target: "js"}, wantTarget: "PsychoJS"},
		{name: "empty target defers", cfg: app.Config{ProjectPath: "p.hcl"}, wantTarget: ""},
		{name: "unknown target", cfg: app.Config{ExperimentPath: "a.psyexp", Target: "matlab"}, wantErr: "invalid target"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Act ---
			cfg, err := app.NewConfig(tc.cfg)

			// --- Assert ---
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantTarget, cfg.Target)
		})
	}
}
