package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/psyexpgo/internal/app"
	"github.com/vk/psyexpgo/internal/codegen"
	"github.com/vk/psyexpgo/internal/ctxlog"
	"github.com/vk/psyexpgo/internal/experiment"
	"github.com/vk/psyexpgo/internal/registry"
)

// FixedTime is the timestamp written into scripts generated by tests.
var FixedTime = time.Date(2021, time.September, 1, 12, 0, 0, 0, time.UTC)

// Context returns a context carrying a debug logger that writes to the
// returned buffer.
func Context(t *testing.T) (context.Context, *SafeBuffer) {
	t.Helper()
	logs := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(context.Background(), logger), logs
}

// NewExperiment returns an empty experiment that creates components through
// a registry of the given modules, or of every core module when none are
// given. Its clock is fixed to FixedTime.
func NewExperiment(t *testing.T, modules ...registry.Module) *experiment.Experiment {
	t.Helper()
	exp := experiment.New(app.NewRegistry(modules...))
	exp.Now = func() time.Time { return FixedTime }
	return exp
}

// LoadExperiment parses an experiment document with the core modules.
func LoadExperiment(t *testing.T, doc string) (*experiment.Experiment, *SafeBuffer) {
	t.Helper()
	ctx, logs := Context(t)
	exp := NewExperiment(t)
	require.NoError(t, exp.LoadFromXML(ctx, strings.NewReader(doc)))
	return exp, logs
}

// WriteScript generates the script for target and fails the test on error.
func WriteScript(t *testing.T, exp *experiment.Experiment, target codegen.Target) string {
	t.Helper()
	ctx, _ := Context(t)
	script, err := exp.WriteScript(ctx, target)
	require.NoError(t, err)
	return script
}

// SaveXML serialises exp and fails the test on error.
func SaveXML(t *testing.T, exp *experiment.Experiment) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, exp.SaveToXML(&buf))
	return buf.String()
}

var volatileLines = regexp.MustCompile(`(?m)^(    on .*|.*\(v[0-9][0-9a-z.]*\),?|import .* from './lib/psychojs-.*)\n`)

// StripVolatile removes the generation timestamp and the version lines from
// a script so that scripts generated at different times compare equal.
func StripVolatile(script string) string {
	return volatileLines.ReplaceAllString(script, "")
}
