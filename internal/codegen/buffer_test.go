package codegen

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_WriteIndentedLines(t *testing.T) {
	testCases := []struct {
		name     string
		target   Target
		level    int
		input    string
		expected string
	}{
		{
			name:     "python single level",
			target:   PsychoPy,
			level:    1,
			input:    "a = 1\nb = 2",
			expected: "    a = 1\n    b = 2\n",
		},
		{
			name:     "javascript two levels",
			target:   PsychoJS,
			level:    2,
			input:    "let a = 1;\n",
			expected: "    let a = 1;\n",
		},
		{
			name:     "blank lines carry no indentation",
			target:   PsychoPy,
			level:    1,
			input:    "x = 1\n\ny = 2\n",
			expected: "    x = 1\n\n    y = 2\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			b := NewBuffer(tc.target)
			b.SetIndentLevel(tc.level, false)

			// --- Act ---
			b.WriteIndentedLines(tc.input)

			// --- Assert ---
			assert.Equal(t, tc.expected, b.String())
		})
	}
}

func TestBuffer_SetIndentLevel(t *testing.T) {
	b := NewBuffer(PsychoPy)

	assert.Equal(t, 2, b.SetIndentLevel(2, true))
	assert.Equal(t, 1, b.SetIndentLevel(-1, true))
	assert.Equal(t, 0, b.SetIndentLevel(-5, true), "indent level must clamp at zero")
	assert.Equal(t, 3, b.SetIndentLevel(3, false))
}

func TestBuffer_WriteOnceIndentedLines(t *testing.T) {
	b := NewBuffer(PsychoPy)

	require.True(t, b.WriteOnceIndentedLines("import os\n"))
	require.False(t, b.WriteOnceIndentedLines("import os\n"))
	assert.Equal(t, "import os\n", b.String())
}

func TestParseTarget(t *testing.T) {
	testCases := []struct {
		input     string
		expected  Target
		expectErr bool
	}{
		{input: "PsychoPy", expected: PsychoPy},
		{input: "py", expected: PsychoPy},
		{input: "JavaScript", expected: PsychoJS},
		{input: " psychojs ", expected: PsychoJS},
		{input: "matlab", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseTarget(tc.input)
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestCodeGenerationError(t *testing.T) {
	var err error = NewError("resp", "Allowed keys list is invalid.")

	var cgErr *CodeGenerationError
	require.True(t, errors.As(err, &cgErr))
	assert.Equal(t, "resp", cgErr.Component)
	assert.Equal(t, "resp: Allowed keys list is invalid.", err.Error())
}
