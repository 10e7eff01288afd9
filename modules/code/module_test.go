package code_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/psyexpgo/internal/codegen"
	"github.com/vk/psyexpgo/internal/pyexpr"
	"github.com/vk/psyexpgo/internal/testutil"
	"github.com/vk/psyexpgo/modules/code"
)

func TestTranslate(t *testing.T) {
	testCases := []struct {
		name    string
		src     string
		want    string
		wantErr string
	}{
		{name: "assignment", src: "x = 1", want: "x = 1;"},
		{name: "augmented assignment", src: "count += 1", want: "count += 1;"},
		{name: "indexed assignment", src: "keys[0] = 'x'", want: `keys[0] = "x";`},
		{name: "comment", src: "# reset the counter", want: "// reset the counter"},
		{name: "expression statement", src: "thisExp.addData('rt', t)", want: `thisExp.addData("rt", t);`},
		{name: "comparison is not an assignment", src: "a == b", want: "a === b;"},
		{name: "builtins", src: "print(len(items))", want: "console.log(items.length);"},
		{name: "conditional expression", src: "msg = 'hi' if ok else 'no'", want: `msg = (ok ? "hi" : "no");`},
		{name: "booleans", src: "done = True and not failed", want: "done = true && (!failed);"},
		{name: "blank lines are kept", src: "x = 1\n\ny = 2\n", want: "x = 1;\n\ny = 2;"},
		{name: "windows line endings", src: "x = 1\r\ny = 2", want: "x = 1;\ny = 2;"},
		{name: "compound statement", src: "if x:\n    y = 1", wantErr: "line 1: compound statements are not supported"},
		{name: "indented line", src: "x = 1\n  y = 1", wantErr: "line 2: indented blocks are not supported"},
		{name: "keyword arguments", src: "f(a=1)", wantErr: "line 1:"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Act ---
			got, err := code.Translate(tc.src)

			// --- Assert ---
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTranslate_UnsupportedIsWrapped(t *testing.T) {
	_, err := code.Translate("f(*args)")
	assert.ErrorIs(t, err, pyexpr.ErrUnsupported)
}

func TestCodeComponent_Sections(t *testing.T) {
	testCases := []struct {
		name     string
		codeType string
		params   map[string]string
		target   codegen.Target
		want     []string
		wantNot  []string
	}{
		{
			name: "python sections in script order", codeType: code.CodeTypeAuto, target: codegen.PsychoPy,
			params: map[string]string{
				"Before Experiment": "import random",
				"Begin Experiment":  "score = 0",
				"Begin Routine":     "random.shuffle(items)",
				"Each Frame":        "if frameN > 10:\n    continueRoutine = False",
				"End Routine":       "score += 1",
				"End Experiment":    "print(score)",
			},
			want: []string{
				"import random\n",
				"win = visual.Window(",
				"score = 0\n",
				"random.shuffle(items)\n",
				"while continueRoutine",
				"    if frameN > 10:\n        continueRoutine = False\n",
				"score += 1\n",
				"print(score)\n",
				"core.quit()",
			},
		},
		{
			name: "auto translation", codeType: code.CodeTypeAuto, target: codegen.PsychoJS,
			params: map[string]string{
				"Begin Experiment": "score = 0",
				"End Routine":      "score += 1",
			},
			want: []string{"score = 0;\n", "function trialRoutineEnd(snapshot) {", "score += 1;\n"},
		},
		{
			name: "explicit javascript wins", codeType: code.CodeTypeBoth, target: codegen.PsychoJS,
			params: map[string]string{
				"Begin Routine":    "bonusPoints = 1",
				"Begin JS Routine": "bonusPoints = 2;",
			},
			want:    []string{"bonusPoints = 2;\n"},
			wantNot: []string{"bonusPoints = 1"},
		},
		{
			name: "python only code is not translated", codeType: code.CodeTypePy, target: codegen.PsychoJS,
			params:  map[string]string{"Begin Routine": "bonusPoints = 1"},
			wantNot: []string{"bonusPoints = 1"},
		},
		{
			name: "untranslatable code is skipped", codeType: code.CodeTypeAuto, target: codegen.PsychoJS,
			params:  map[string]string{"Each Frame": "for i in range(3):\n    pass"},
			wantNot: []string{"for i in range"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			comp := code.New("code")
			comp.Params().SetVal("Code Type", tc.codeType)
			for name, val := range tc.params {
				require.True(t, comp.Params().SetVal(name, val), "param %q", name)
			}
			exp := testutil.NewExperiment(t)
			r := exp.NewRoutine("trial")
			r.Add(comp)
			exp.Flow.AddRoutine(r, 0)

			// --- Act ---
			script := testutil.WriteScript(t, exp, tc.target)

			// --- Assert ---
			testutil.AssertContainsInOrder(t, script, tc.want...)
			for _, s := range tc.wantNot {
				assert.NotContains(t, script, s)
			}
		})
	}
}

func TestCodeComponent_TranslationFailureIsLogged(t *testing.T) {
	// --- Arrange ---
	comp := code.New("code")
	comp.Params().SetVal("Each Frame", "while True:\n    pass")
	exp := testutil.NewExperiment(t)
	r := exp.NewRoutine("trial")
	r.Add(comp)
	exp.Flow.AddRoutine(r, 0)
	ctx, logs := testutil.Context(t)

	// --- Act ---
	_, err := exp.WriteScript(ctx, codegen.PsychoJS)

	// --- Assert ---
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "Python code could not be translated to JavaScript.")
	assert.Contains(t, logs.String(), `section="Each Frame"`)
}
