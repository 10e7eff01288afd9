package experiment

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/psyexpgo/internal/codegen"
)

func testContext(target codegen.Target) *Context {
	return newContext(New(nil), target, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func timedComponent(startType, startVal, stopType, stopVal string) *BaseComponent {
	b := NewBaseComponent("TextComponent", "stim", "Stimuli")
	b.Params().SetVal("startType", startType)
	b.Params().SetVal("startVal", startVal)
	b.Params().SetVal("stopType", stopType)
	b.Params().SetVal("stopVal", stopVal)
	return b
}

func TestWriteStartTestCode(t *testing.T) {
	testCases := []struct {
		name      string
		startType string
		startVal  string
		target    codegen.Target
		want      string
		wantOpen  bool
		wantErr   bool
	}{
		{name: "time", startType: TimeS, startVal: "0.0", target: codegen.PsychoPy, wantOpen: true,
			want: "if t >= 0.0 and stim.status == NOT_STARTED:\n"},
		{name: "blank time starts at zero", startType: TimeS, startVal: "", target: codegen.PsychoPy, wantOpen: true,
			want: "if t >= 0.0 and stim.status == NOT_STARTED:\n"},
		{name: "frame", startType: FrameN, startVal: "10", target: codegen.PsychoPy, wantOpen: true,
			want: "if frameN >= 10 and stim.status == NOT_STARTED:\n"},
		{name: "condition", startType: Condition, startVal: "resp.status == STARTED", target: codegen.PsychoPy, wantOpen: true,
			want: "if (resp.status == STARTED) and stim.status == NOT_STARTED:\n"},
		{name: "blank frame never starts", startType: FrameN, startVal: "", target: codegen.PsychoPy},
		{name: "unknown start type", startType: "whenever", startVal: "1", target: codegen.PsychoPy, wantErr: true},
		{name: "js time", startType: TimeS, startVal: "0.5", target: codegen.PsychoJS, wantOpen: true,
			want: "if (t >= 0.5 && stim.status === PsychoJS.Status.NOT_STARTED) {\n"},
		{name: "js condition", startType: Condition, startVal: "a and b", target: codegen.PsychoJS, wantOpen: true,
			want: "if ((a && b) && stim.status === PsychoJS.Status.NOT_STARTED) {\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			c := testContext(tc.target)
			comp := timedComponent(tc.startType, tc.startVal, DurationS, "1.0")

			// --- Act ---
			opened, err := comp.WriteStartTestCode(c)

			// --- Assert ---
			if tc.wantErr {
				var cgErr *codegen.CodeGenerationError
				require.True(t, errors.As(err, &cgErr))
				assert.Equal(t, "stim", cgErr.Component)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantOpen, opened)
			if !tc.wantOpen {
				assert.Empty(t, c.Buf.String())
				return
			}
			assert.True(t, strings.HasPrefix(c.Buf.String(), tc.want), "got:\n%s", c.Buf.String())
			assert.Contains(t, c.Buf.String(), "stim.frameNStart = frameN")
			assert.Equal(t, 1, c.Buf.IndentLevel())
		})
	}
}

func TestWriteStopTestCode(t *testing.T) {
	testCases := []struct {
		name      string
		startType string
		stopType  string
		stopVal   string
		target    codegen.Target
		want      string
		wantOpen  bool
	}{
		{name: "duration from time start", startType: TimeS, stopType: DurationS, stopVal: "1.0", target: codegen.PsychoPy, wantOpen: true,
			want: "if stim.status == STARTED and t >= (0.0 + (1.0-win.monitorFramePeriod*0.75)):  # most of one frame period left\n"},
		{name: "absolute time", startType: TimeS, stopType: TimeS, stopVal: "2.0", target: codegen.PsychoPy, wantOpen: true,
			want: "if stim.status == STARTED and t >= (2.0-win.monitorFramePeriod*0.75):  # most of one frame period left\n"},
		{name: "duration from frame start", startType: FrameN, stopType: DurationS, stopVal: "1.0", target: codegen.PsychoPy, wantOpen: true,
			want: "if stim.status == STARTED and t >= (stim.tStart + 1.0):\n"},
		{name: "duration in frames", startType: TimeS, stopType: DurationFrames, stopVal: "60", target: codegen.PsychoPy, wantOpen: true,
			want: "if stim.status == STARTED and frameN >= (stim.frameNStart + 60):\n"},
		{name: "frame", startType: TimeS, stopType: FrameN, stopVal: "100", target: codegen.PsychoPy, wantOpen: true,
			want: "if stim.status == STARTED and frameN >= 100:\n"},
		{name: "condition", startType: TimeS, stopType: Condition, stopVal: "done", target: codegen.PsychoPy, wantOpen: true,
			want: "if stim.status == STARTED and bool(done):\n"},
		{name: "blank stop never stops", startType: TimeS, stopType: DurationS, stopVal: "", target: codegen.PsychoPy},
		{name: "js duration", startType: TimeS, stopType: DurationS, stopVal: "1.0", target: codegen.PsychoJS, wantOpen: true,
			want: "frameRemains = 0.0 + 1.0 - psychoJS.window.monitorFramePeriod * 0.75;  // most of one frame period left\n" +
				"if (stim.status === PsychoJS.Status.STARTED && t >= frameRemains) {\n"},
		{name: "js condition", startType: TimeS, stopType: Condition, stopVal: "done", target: codegen.PsychoJS, wantOpen: true,
			want: "if (stim.status === PsychoJS.Status.STARTED && Boolean(done)) {\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			c := testContext(tc.target)
			comp := timedComponent(tc.startType, "0.0", tc.stopType, tc.stopVal)

			// --- Act ---
			opened, err := comp.WriteStopTestCode(c)

			// --- Assert ---
			require.NoError(t, err)
			assert.Equal(t, tc.wantOpen, opened)
			assert.Equal(t, tc.want, c.Buf.String())
		})
	}
}

func TestWriteStopTestCode_UnknownType(t *testing.T) {
	c := testContext(codegen.PsychoPy)
	comp := timedComponent(TimeS, "0.0", "eventually", "1.0")

	_, err := comp.WriteStopTestCode(c)

	var cgErr *codegen.CodeGenerationError
	require.ErrorAs(t, err, &cgErr)
	assert.Contains(t, cgErr.Message, "stopType=eventually")
}

func TestWriteParamUpdates(t *testing.T) {
	// --- Arrange ---
	comp := NewBaseComponent("TextComponent", "stim", "Stimuli")
	ps := comp.Params()
	ps.Set("text", &Param{Val: "Hello", ValType: ValStr, Updates: UpdateConstant})
	ps.Set("pos", &Param{Val: "$(x, 0)", ValType: ValList, Updates: UpdateFrame})
	ps.Set("letterHeight", &Param{Val: "h", ValType: ValCode, Updates: UpdateFrame})
	ps.Set("color", &Param{Val: "$col", ValType: ValColor, Updates: UpdateRepeat})
	ps.Set("colorSpace", &Param{Val: "rgb", ValType: ValStr, Updates: UpdateConstant})
	ps.Set("advancedParams", &Param{Val: "x", ValType: ValCode, Updates: UpdateFrame})

	testCases := []struct {
		name    string
		target  codegen.Target
		updates string
		want    string
	}{
		{name: "python per frame", target: codegen.PsychoPy, updates: UpdateFrame,
			want: "stim.setPos((x, 0), log=False)\nstim.setHeight(h, log=False)\n"},
		{name: "python per repeat", target: codegen.PsychoPy, updates: UpdateRepeat,
			want: "stim.setColor(col, colorSpace='rgb')\n"},
		{name: "js per frame", target: codegen.PsychoJS, updates: UpdateFrame,
			want: "stim.setPos([x, 0], false);\nstim.setHeight(h, false);\n"},
		{name: "js per repeat", target: codegen.PsychoJS, updates: UpdateRepeat,
			want: "stim.setColor(new util.Color(col));\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			c := testContext(tc.target)

			// --- Act ---
			err := comp.WriteParamUpdates(c, tc.updates)

			// --- Assert ---
			require.NoError(t, err)
			assert.Equal(t, tc.want, c.Buf.String())
			assert.NotContains(t, c.Buf.String(), "setText", "constant params must never be updated")
		})
	}
}

func TestParamCaps(t *testing.T) {
	assert.Equal(t, "Height", paramCaps("TextComponent", "letterHeight"))
	assert.Equal(t, "Tex", paramCaps("PatchComponent", "image"))
	assert.Equal(t, "Image", paramCaps("ImageComponent", "image"))
	assert.Equal(t, "SF", paramCaps("GratingComponent", "sf"))
	assert.Equal(t, "FieldCoherence", paramCaps("DotsComponent", "coherence"))
	assert.Equal(t, "Ori", paramCaps("TextComponent", "ori"))
}

func TestSpan(t *testing.T) {
	testCases := []struct {
		name string
		comp *BaseComponent
		want Span
	}{
		{name: "time and duration", comp: timedComponent(TimeS, "0.5", DurationS, "1.0"),
			want: Span{Start: 0.5, HasStart: true, Duration: 1.0, HasDuration: true, NonSlipSafe: true}},
		{name: "absolute stop", comp: timedComponent(TimeS, "1", TimeS, "3"),
			want: Span{Start: 1, HasStart: true, Duration: 2, HasDuration: true, NonSlipSafe: true}},
		{name: "endless", comp: timedComponent(TimeS, "0.5", DurationS, ""),
			want: Span{Start: 0.5, HasStart: true, Forever: true}},
		{name: "code start", comp: timedComponent(TimeS, "onset", DurationS, "1.0"),
			want: Span{Duration: 1.0, HasDuration: true}},
		{name: "untimed", comp: NewBareComponent("CodeComponent", "code", "Custom"),
			want: Span{NonSlipSafe: true}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.comp.Span())
		})
	}
}
