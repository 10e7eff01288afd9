package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/psyexpgo/internal/app"
	"github.com/vk/psyexpgo/internal/hcl_adapter"
	"github.com/vk/psyexpgo/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of a compile run.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
	// Dir is the temporary directory the files were written to.
	Dir string
}

// Output reads a file produced by the run, relative to Dir.
func (r *HarnessResult) Output(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(r.Dir, name))
	require.NoError(t, err, "expected output %s to exist", name)
	return string(data)
}

// RunCompileTest writes files into a temporary directory, builds an App
// whose config is produced by configure (paths relative to the directory
// are resolved by the caller through dir) and runs it to completion.
// Startup panics are recovered into Err.
func RunCompileTest(t *testing.T, files map[string]string, configure func(dir string) *app.Config, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunCompileTestWithContext(context.Background(), t, files, configure, modules...)
}

// RunCompileTestWithContext is RunCompileTest with a caller-provided
// context.
func RunCompileTestWithContext(ctx context.Context, t *testing.T, files map[string]string, configure func(dir string) *app.Config, modules ...registry.Module) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	}

	appConfig := configure(tmpDir)
	appConfig.LogLevel = "debug"
	if appConfig.LogFormat == "" {
		appConfig.LogFormat = "text"
	}

	logBuffer := &SafeBuffer{}
	var testApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		testApp = app.NewApp(logBuffer, appConfig, hcl_adapter.NewLoader(), modules...)
	}()

	if panicErr != nil {
		return &HarnessResult{
			LogOutput: logBuffer.String(),
			Err:       fmt.Errorf("application startup panicked | %v", panicErr),
			Dir:       tmpDir,
		}
	}
	t.Cleanup(func() { _ = testApp.Close() })

	runErr := testApp.Run(ctx)

	if os.Getenv("PSYEXP_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		App:       testApp,
		Dir:       tmpDir,
	}
}

// RunProjectTest compiles the experiments listed by a project file. The
// project is written as project.hcl next to the given files.
func RunProjectTest(t *testing.T, projectHCL string, files map[string]string) *HarnessResult {
	t.Helper()

	all := map[string]string{"project.hcl": projectHCL}
	for name, content := range files {
		all[name] = content
	}
	return RunCompileTest(t, all, func(dir string) *app.Config {
		return &app.Config{ProjectPath: filepath.Join(dir, "project.hcl")}
	})
}
