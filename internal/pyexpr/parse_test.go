package pyexpr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLiteral(t *testing.T) {
	testCases := []struct {
		name     string
		src      string
		expected any
	}{
		{name: "int", src: "42", expected: int64(42)},
		{name: "negative float", src: "-0.5", expected: -0.5},
		{name: "string", src: "'left'", expected: "left"},
		{name: "bool", src: "True", expected: true},
		{name: "none", src: "None", expected: nil},
		{name: "list", src: "['a', 1]", expected: []any{"a", int64(1)}},
		{name: "tuple", src: "(0, 0.5)", expected: []any{int64(0), 0.5}},
		{
			name:     "dict keeps order",
			src:      "{'b': 1, 'a': 2}",
			expected: Dict{{Key: "b", Value: int64(1)}, {Key: "a", Value: int64(2)}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseLiteral(tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestDict_Get(t *testing.T) {
	// --- Arrange ---
	d := Dict{
		{Key: []any{int64(1)}, Value: int64(2)},
		{Key: "a", Value: int64(3)},
		{Key: int64(1), Value: "one"},
	}

	testCases := []struct {
		name   string
		key    any
		want   any
		wantOK bool
	}{
		{name: "string key", key: "a", want: int64(3), wantOK: true},
		{name: "int key", key: int64(1), want: "one", wantOK: true},
		{name: "missing key", key: "b"},
		{name: "list key", key: []any{int64(1)}},
		{name: "dict key", key: Dict{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Act ---
			got, ok := d.Get(tc.key)

			// --- Assert ---
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseLiteral_RejectsCode(t *testing.T) {
	testCases := []struct {
		name string
		src  string
	}{
		{name: "function call", src: "__import__('os').system('rm -rf /')"},
		{name: "variable", src: "[x, 1]"},
		{name: "arithmetic", src: "1 + 2"},
		{name: "attribute", src: "os.environ"},
		{name: "comprehension", src: "[i for i in range(3)]"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseLiteral(tc.src)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNotLiteral), "expected ErrNotLiteral, got %v", err)
		})
	}
}

func TestParseLiteral_SyntaxError(t *testing.T) {
	_, err := ParseLiteral("[1, 2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse expression")
}

func TestParseConditions(t *testing.T) {
	// --- Arrange ---
	src := `[{'ori': 0, 'text': 'red'}, {'ori': 90, 'text': 'blue', 'corr': 'left'}]`

	// --- Act ---
	conds, err := ParseConditions(src)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"ori", "text", "corr"}, conds.Fields)
	require.Len(t, conds.Rows, 2)
	assert.Equal(t, int64(90), conds.Rows[1]["ori"])
	assert.Equal(t, "blue", conds.Rows[1]["text"])
}

func TestParseConditions_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		src  string
	}{
		{name: "not a list", src: "{'a': 1}"},
		{name: "row not a dict", src: "[1, 2]"},
		{name: "non-string key", src: "[{1: 'a'}]"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseConditions(tc.src)
			require.Error(t, err)
		})
	}
}

func TestParseStringList(t *testing.T) {
	keys, err := ParseStringList("['left', 'right', 'space']")
	require.NoError(t, err)
	assert.Equal(t, []string{"left", "right", "space"}, keys)

	single, err := ParseStringList("'y'")
	require.NoError(t, err)
	assert.Equal(t, []string{"y"}, single)

	_, err = ParseStringList("['a', 2]")
	require.Error(t, err)
}

func TestNames(t *testing.T) {
	testCases := []struct {
		name     string
		src      string
		expected []string
	}{
		{name: "simple", src: "ori + 1", expected: []string{"ori"}},
		{name: "attribute excluded", src: "trials.thisN * step", expected: []string{"trials", "step"}},
		{name: "keyword excluded", src: "f(a, size=b)", expected: []string{"f", "a", "b"}},
		{name: "deduplicated", src: "[x, x, y]", expected: []string{"x", "y"}},
		{name: "literal only", src: "'abc'", expected: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Names(tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestIsValidVariable(t *testing.T) {
	assert.True(t, IsValidVariable("thisTrial"))
	assert.True(t, IsValidVariable("_x1"))
	assert.False(t, IsValidVariable("1abc"))
	assert.False(t, IsValidVariable("a-b"))
	assert.False(t, IsValidVariable(""))
}
