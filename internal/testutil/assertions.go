package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertCompiled checks the log output within a HarnessResult to confirm
// that the given output file was written.
func AssertCompiled(t *testing.T, result *HarnessResult, output string) {
	t.Helper()

	require.True(t,
		strings.Contains(result.LogOutput, "Compiled experiment.") && strings.Contains(result.LogOutput, "output="+output),
		"expected a log entry for output '%s' but none was found", output,
	)
}

// AssertContainsInOrder fails unless every part occurs in s, each after the
// previous one.
func AssertContainsInOrder(t *testing.T, s string, parts ...string) {
	t.Helper()

	rest := s
	for _, part := range parts {
		i := strings.Index(rest, part)
		require.True(t, i >= 0, "expected %q after the previous parts in:\n%s", part, s)
		rest = rest[i+len(part):]
	}
}
