package keyboard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/psyexpgo/internal/codegen"
	"github.com/vk/psyexpgo/internal/experiment"
	"github.com/vk/psyexpgo/internal/testutil"
	"github.com/vk/psyexpgo/modules/keyboard"
)

func newExperiment(t *testing.T, comps ...experiment.Component) *experiment.Experiment {
	t.Helper()
	exp := testutil.NewExperiment(t)
	r := exp.NewRoutine("trial")
	r.Add(comps...)
	exp.Flow.AddRoutine(r, 0)
	return exp
}

func TestKeyboard_Defaults(t *testing.T) {
	exp := newExperiment(t, keyboard.New("key_resp"))

	t.Run("PsychoPy", func(t *testing.T) {
		script := testutil.WriteScript(t, exp, codegen.PsychoPy)

		testutil.AssertContainsInOrder(t, script,
			"key_resp = keyboard.Keyboard()\n",
			"key_resp.keys = []\n",
			"_key_resp_allKeys = []\n",
			"# *key_resp* updates",
			"waitOnFlip = False",
			"if t >= 0.0 and key_resp.status == NOT_STARTED:",
			"key_resp.status = STARTED",
			"win.callOnFlip(key_resp.clock.reset)  # t=0 on next screen flip",
			"win.callOnFlip(key_resp.clearEvents, eventType='keyboard')",
			"if key_resp.status == STARTED and not waitOnFlip:",
			"theseKeys = key_resp.getKeys(keyList=['y', 'n', 'left', 'right', 'space'], waitRelease=False)",
			"key_resp.keys = _key_resp_allKeys[-1].name  # just the last key pressed",
			"# a response ends the routine\n",
			"continueRoutine = False\n",
			"# store data for thisExp (ExperimentHandler)",
			"thisExp.addData('key_resp.keys',key_resp.keys)",
			"thisExp.nextEntry()",
		)
		assert.NotContains(t, script, "key_resp.status = FINISHED", "a keyboard without stop value never stops")
		assert.NotContains(t, script, "key_resp.corr")
	})

	t.Run("PsychoJS", func(t *testing.T) {
		script := testutil.WriteScript(t, exp, codegen.PsychoJS)

		testutil.AssertContainsInOrder(t, script,
			"var _key_resp_allKeys;",
			"key_resp = new core.Keyboard({psychoJS: psychoJS, clock: new util.Clock(), waitForStart: true});",
			"key_resp.keys = undefined;",
			"psychoJS.window.callOnFlip(function() { key_resp.clock.reset(); });  // t=0 on next screen flip",
			"psychoJS.window.callOnFlip(function() { key_resp.clearEvents(); });",
			"if (key_resp.status === PsychoJS.Status.STARTED) {",
			"let theseKeys = key_resp.getKeys({keyList: ['y', 'n', 'left', 'right', 'space'], waitRelease: false});",
			"continueRoutine = false;",
			"psychoJS.experiment.addData('key_resp.keys', key_resp.keys);",
			"routineTimer.reset();",
			"key_resp.stop();",
		)
	})
}

func TestKeyboard_Store(t *testing.T) {
	testCases := []struct {
		store   string
		want    string
		wantNot string
	}{
		{store: keyboard.StoreFirst, want: "key_resp.keys = _key_resp_allKeys[0].name  # just the first key pressed"},
		{store: keyboard.StoreAll, want: "key_resp.keys = [key.name for key in _key_resp_allKeys]  # storing all keys"},
		{store: keyboard.StoreNothing, want: "key_resp.keys = _key_resp_allKeys[-1].name", wantNot: "addData('key_resp.keys'"},
	}

	for _, tc := range testCases {
		t.Run(tc.store, func(t *testing.T) {
			// --- Arrange ---
			kb := keyboard.New("key_resp")
			kb.Params().SetVal("store", tc.store)
			exp := newExperiment(t, kb)

			// --- Act ---
			script := testutil.WriteScript(t, exp, codegen.PsychoPy)

			// --- Assert ---
			assert.Contains(t, script, tc.want)
			if tc.wantNot != "" {
				assert.NotContains(t, script, tc.wantNot)
			}
		})
	}
}

func TestKeyboard_AllowedKeys(t *testing.T) {
	testCases := []struct {
		name    string
		keys    string
		target  codegen.Target
		want    []string
		wantErr string
	}{
		{name: "python empty list", keys: "", target: codegen.PsychoPy,
			want: []string{"getKeys(keyList=None, waitRelease=False)"}},
		{name: "js empty list", keys: "None", target: codegen.PsychoJS,
			want: []string{"getKeys({keyList: [], waitRelease: false})"}},
		{name: "python list literal", keys: "['space']", target: codegen.PsychoPy,
			want: []string{"getKeys(keyList=['space'], waitRelease=False)"}},
		{name: "python variable", keys: "$keys", target: codegen.PsychoPy,
			want: []string{
				"# AllowedKeys looks like a variable named `keys`",
				"if not type(keys) in [list, tuple, np.ndarray]:",
				"getKeys(keyList=list(keys), waitRelease=False)",
			}},
		{name: "js variable", keys: "keys", target: codegen.PsychoJS,
			wantErr: "Variables for allowKeys aren't supported for JS yet"},
		{name: "invalid list", keys: "'a', 3", target: codegen.PsychoPy,
			wantErr: "Allowed keys list is invalid."},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			kb := keyboard.New("key_resp")
			kb.Params().SetVal("allowedKeys", tc.keys)
			exp := newExperiment(t, kb)
			ctx, _ := testutil.Context(t)

			// --- Act ---
			script, err := exp.WriteScript(ctx, tc.target)

			// --- Assert ---
			if tc.wantErr != "" {
				var cgErr *codegen.CodeGenerationError
				require.ErrorAs(t, err, &cgErr)
				assert.Equal(t, "key_resp", cgErr.Component)
				assert.Equal(t, tc.wantErr, cgErr.Message)
				return
			}
			require.NoError(t, err)
			testutil.AssertContainsInOrder(t, script, tc.want...)
		})
	}
}

func TestKeyboard_StoresIntoInnermostLoop(t *testing.T) {
	testCases := []struct {
		name     string
		loopType string
		want     []string
	}{
		{name: "trial handler", loopType: experiment.TrialHandlerType, want: []string{
			"# store data for trials (TrialHandler)",
			"trials.addData('key_resp.keys',key_resp.keys)",
			"trials.addData('key_resp.corr', key_resp.corr)",
			"if key_resp.keys != None:  # we had a response\n",
			"    trials.addData('key_resp.rt', key_resp.rt)",
		}},
		{name: "staircase", loopType: experiment.StairHandlerType, want: []string{
			"# store data for trials (StairHandler)",
			"trials.addResponse(key_resp.corr)",
			"trials.addOtherData('key_resp.rt', key_resp.rt)",
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			kb := keyboard.New("key_resp")
			kb.Params().SetVal("storeCorrect", "True")
			kb.Params().SetVal("correctAns", "$corrAns")
			exp := newExperiment(t, kb)
			loop, err := experiment.NewLoop(tc.loopType, "trials")
			require.NoError(t, err)
			exp.Flow.AddLoop(loop, 0, 1)

			// --- Act ---
			script := testutil.WriteScript(t, exp, codegen.PsychoPy)

			// --- Assert ---
			testutil.AssertContainsInOrder(t, script, append([]string{
				"if (key_resp.keys == str(corrAns)) or (key_resp.keys == corrAns):",
				"# was no response the correct answer?!",
			}, tc.want...)...)
			assert.NotContains(t, script, "thisExp.addData('key_resp")
		})
	}
}
