package experiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namedComponent(name, startVal, stopType, stopVal string) *BaseComponent {
	b := NewBaseComponent("TextComponent", name, "Stimuli")
	b.Params().SetVal("startVal", startVal)
	b.Params().SetVal("stopType", stopType)
	b.Params().SetVal("stopVal", stopVal)
	return b
}

func TestRoutine_MaxTime(t *testing.T) {
	disabled := namedComponent("off", "0.0", DurationS, "30.0")
	disabled.Params().SetVal("disabled", "True")

	testCases := []struct {
		name        string
		comps       []Component
		wantTime    float64
		wantNonSlip bool
	}{
		{name: "empty routine", wantTime: 10, wantNonSlip: false},
		{name: "single timed component",
			comps:    []Component{namedComponent("a", "0.0", DurationS, "1.0")},
			wantTime: 1.0, wantNonSlip: true},
		{name: "latest end wins",
			comps: []Component{
				namedComponent("a", "0.0", DurationS, "1.0"),
				namedComponent("b", "1.0", TimeS, "3.5"),
			},
			wantTime: 3.5, wantNonSlip: true},
		{name: "endless component counts one second past its start",
			comps:    []Component{namedComponent("a", "0.5", DurationS, "")},
			wantTime: 1.5, wantNonSlip: false},
		{name: "code start is not placed",
			comps:    []Component{namedComponent("a", "onset", DurationS, "1.0")},
			wantTime: 10, wantNonSlip: false},
		{name: "disabled components are ignored",
			comps:    []Component{namedComponent("a", "0.0", DurationS, "2.0"), disabled},
			wantTime: 2.0, wantNonSlip: true},
		{name: "untimed components are ignored",
			comps:    []Component{NewBareComponent("CodeComponent", "code", "Custom"), namedComponent("a", "0.0", DurationS, "2.0")},
			wantTime: 2.0, wantNonSlip: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			r := NewRoutine("trial", tc.comps...)

			// --- Act ---
			got, nonSlip := r.MaxTime()

			// --- Assert ---
			assert.InDelta(t, tc.wantTime, got, 1e-9)
			assert.Equal(t, tc.wantNonSlip, nonSlip)
		})
	}
}

func TestRoutine_Components(t *testing.T) {
	// --- Arrange ---
	a := namedComponent("a", "0", DurationS, "1")
	b := namedComponent("b", "0", DurationS, "1")
	c := namedComponent("c", "0", DurationS, "1")
	r := NewRoutine("trial", a, c)

	// --- Act ---
	r.Insert(1, b)
	r.Insert(99, namedComponent("d", "0", DurationS, "1"))

	// --- Assert ---
	require.Equal(t, 4, len(r.Components()))
	assert.Equal(t, 1, r.Index("b"))
	assert.Equal(t, 3, r.Index("d"))
	assert.Same(t, c, r.Component("c"))
	assert.True(t, r.Remove("b"))
	assert.False(t, r.Remove("b"))
	assert.Nil(t, r.Component("b"))
	assert.Equal(t, "trialClock", r.ClockName())
}
