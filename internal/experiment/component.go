package experiment

import (
	"fmt"
	"slices"
	"strings"

	"github.com/vk/psyexpgo/internal/codegen"
)

// Start and stop types understood by the timing guards.
const (
	TimeS          = "time (s)"
	FrameN         = "frame N"
	Condition      = "condition"
	DurationS      = "duration (s)"
	DurationFrames = "duration (frames)"
)

// Component is one stimulus, response or code element inside a Routine.
// Each Write hook appends the code for one phase of the generated script.
type Component interface {
	Type() string
	Name() string
	Params() *Params
	Category() string
	Targets() []codegen.Target
	Disabled() bool
	Span() Span

	WriteStartCode(c *Context) error
	WriteInitCode(c *Context) error
	WriteRoutineStartCode(c *Context) error
	WriteFrameCode(c *Context) error
	WriteRoutineEndCode(c *Context) error
	WriteExperimentEndCode(c *Context) error
}

// LibRequirer is implemented by components that need extra psychopy
// libraries imported by the Python script.
type LibRequirer interface {
	PsychopyLibs() []string
}

// Supports reports whether comp can be written for target.
func Supports(comp Component, target codegen.Target) bool {
	return slices.Contains(comp.Targets(), target)
}

// IsTimed reports whether comp carries start and stop params.
func IsTimed(comp Component) bool {
	ps := comp.Params()
	return ps.Has("startType") && ps.Has("stopType")
}

// Span is the estimated placement of a component on the Routine timeline.
type Span struct {
	Start       float64
	HasStart    bool
	Duration    float64
	HasDuration bool
	Forever     bool // no stop condition
	NonSlipSafe bool
}

// BaseComponent implements the parts shared by every component: the
// standard params, timing guards and parameter updates. Concrete components
// embed it and override the Write hooks they need.
type BaseComponent struct {
	typ      string
	category string
	targets  []codegen.Target
	params   *Params
}

// NewBareComponent returns a component with only name and disabled params.
func NewBareComponent(typ, name, category string, targets ...codegen.Target) *BaseComponent {
	if len(targets) == 0 {
		targets = []codegen.Target{codegen.PsychoPy, codegen.PsychoJS}
	}
	b := &BaseComponent{typ: typ, category: category, targets: targets, params: NewParams()}
	b.params.Set("name", &Param{
		Val: name, ValType: ValCode, Label: "Name", Categ: "Basic",
		Hint: "Name of this component (alphanumeric or _, no spaces)",
	})
	b.params.Set("disabled", &Param{
		Val: "False", ValType: ValBool, Label: "Disable component", Categ: "Testing",
		Hint: "Disable this component",
	})
	return b
}

// NewBaseComponent returns a component with the standard timing params.
func NewBaseComponent(typ, name, category string, targets ...codegen.Target) *BaseComponent {
	b := NewBareComponent(typ, name, category, targets...)
	ps := b.params
	ps.Set("startType", &Param{
		Val: TimeS, ValType: ValStr, Categ: "Basic", Label: "start type",
		AllowedVals: []string{TimeS, FrameN, Condition},
		Hint:        "How do you want to define your start point?",
	})
	ps.Set("stopType", &Param{
		Val: DurationS, ValType: ValStr, Categ: "Basic", Label: "stop type",
		AllowedVals: []string{DurationS, DurationFrames, TimeS, FrameN, Condition},
		Hint:        "How do you want to define your end point?",
	})
	ps.Set("startVal", &Param{
		Val: "0.0", ValType: ValCode, Categ: "Basic", Label: "Start",
		Hint: "When does the component start?",
	})
	ps.Set("stopVal", &Param{
		Val: "1.0", ValType: ValCode, Categ: "Basic", Label: "Stop",
		Updates: UpdateConstant, AllowedUpdates: []string{},
		Hint: "When does the component end? (blank is endless)",
	})
	ps.Set("startEstim", &Param{
		Val: "", ValType: ValCode, Categ: "Basic", Label: "Expected start (s)",
		Hint: "(Optional) expected start (s), purely for representing in the timeline",
	})
	ps.Set("durationEstim", &Param{
		Val: "", ValType: ValCode, Categ: "Basic", Label: "Expected duration (s)",
		Hint: "(Optional) expected duration (s), purely for representing in the timeline",
	})
	ps.Set("saveStartStop", &Param{
		Val: "True", ValType: ValBool, Categ: "Data", Label: "Save onset/offset times",
		Hint: "Store the onset/offset times in the data file (as well as in the log file).",
	})
	ps.Set("syncScreenRefresh", &Param{
		Val: "False", ValType: ValBool, Categ: "Data", Label: "Sync timing with screen refresh",
		Hint: "Synchronize times with screen refresh (good for visual stimuli and responses based on them)",
	})
	return b
}

// Type returns the component type, which is also its XML tag.
func (b *BaseComponent) Type() string { return b.typ }

// Name returns the value of the name param.
func (b *BaseComponent) Name() string { return b.params.Val("name") }

func (b *BaseComponent) Params() *Params { return b.params }

func (b *BaseComponent) Category() string { return b.category }

// Targets lists the code targets the component can be written for.
func (b *BaseComponent) Targets() []codegen.Target { return b.targets }

// Disabled reports whether the component is excluded from the script.
func (b *BaseComponent) Disabled() bool {
	return b.params.Has("disabled") && b.params.Get("disabled").Bool()
}

func (b *BaseComponent) WriteStartCode(*Context) error { return nil }

func (b *BaseComponent) WriteInitCode(*Context) error { return nil }

func (b *BaseComponent) WriteFrameCode(*Context) error { return nil }

func (b *BaseComponent) WriteRoutineEndCode(*Context) error { return nil }

func (b *BaseComponent) WriteExperimentEndCode(*Context) error { return nil }

// WriteRoutineStartCode applies the params that change on every repeat.
func (b *BaseComponent) WriteRoutineStartCode(c *Context) error {
	return b.WriteParamUpdates(c, UpdateRepeat)
}

// Span estimates the start and duration of the component.
func (b *BaseComponent) Span() Span {
	ps := b.params
	if !ps.Has("startType") || !ps.Has("stopType") {
		return Span{NonSlipSafe: true}
	}
	startType := ps.Val("startType")
	stopType := ps.Val("stopType")
	startVal, numericStart := canBeNumeric(ps.Val("startVal"))
	stopVal, numericStop := canBeNumeric(ps.Val("stopVal"))

	var s Span
	if est, ok := canBeNumeric(ps.Val("startEstim")); ok {
		s.Start, s.HasStart = est, true
	} else if startType == TimeS && numericStart {
		s.Start, s.HasStart = startVal, true
	}

	switch {
	case stopType == TimeS && numericStop && s.HasStart:
		s.Duration, s.HasDuration = stopVal-s.Start, true
	case stopType == DurationS && numericStop:
		s.Duration, s.HasDuration = stopVal, true
	default:
		if est, ok := canBeNumeric(ps.Val("durationEstim")); ok {
			s.Duration, s.HasDuration = est, true
		} else if isBlank(ps.Val("stopVal")) {
			s.Forever = true
		}
	}
	s.NonSlipSafe = numericStop && (numericStart || stopType == TimeS)
	return s
}

// NeedsUpdate reports whether any param changes at the given rate.
func (b *BaseComponent) NeedsUpdate(updates string) bool {
	for _, name := range b.params.Names() {
		if b.params.Get(name).Updates == updates {
			return true
		}
	}
	return false
}

// WriteStartTestCode opens a block that runs once when the component should
// start. It reports false, writing nothing, when there is no start value.
func (b *BaseComponent) WriteStartTestCode(c *Context) (bool, error) {
	name := b.Name()
	ps := b.params
	startType := ps.Val("startType")
	startVal, err := ps.Get("startVal").Code(c.Target)
	if err != nil {
		return false, codegen.NewError(name, "bad start value: %v", err)
	}
	if isBlank(ps.Val("startVal")) {
		if startType != TimeS {
			return false, nil
		}
		startVal = "0.0"
	}

	var cond string
	switch startType {
	case TimeS:
		cond = "t >= " + startVal
	case FrameN:
		cond = "frameN >= " + startVal
	case Condition:
		cond = "(" + startVal + ")"
	default:
		return false, codegen.NewError(name, "not a known startType (%s)", startType)
	}

	if c.JS() {
		c.In(fmt.Sprintf("if (%s && %s.status === PsychoJS.Status.NOT_STARTED) {\n", cond, name))
		c.Lines(fmt.Sprintf("// keep track of start time/frame for later\n"+
			"%[1]s.tStart = t;  // (not accounting for frame time here)\n"+
			"%[1]s.frameNStart = frameN;  // exact frame index\n", name))
		return true, nil
	}
	c.In(fmt.Sprintf("if %s and %s.status == NOT_STARTED:\n", cond, name))
	c.Lines(fmt.Sprintf("# keep track of start time/frame for later\n"+
		"%[1]s.tStart = t  # underestimates by a little under one frame\n"+
		"%[1]s.frameNStart = frameN  # exact frame index\n", name))
	return true, nil
}

// HasStop reports whether a stop test will be written.
func (b *BaseComponent) HasStop() bool {
	return !isBlank(b.params.Val("stopVal"))
}

// WriteStopTestCode opens a block that runs once when the component should
// stop. It reports false, writing nothing, for components that never stop.
func (b *BaseComponent) WriteStopTestCode(c *Context) (bool, error) {
	if !b.HasStop() {
		return false, nil
	}
	name := b.Name()
	ps := b.params
	stopType := ps.Val("stopType")
	stopVal, err := ps.Get("stopVal").Code(c.Target)
	if err != nil {
		return false, codegen.NewError(name, "bad stop value: %v", err)
	}
	startVal := "0.0"
	if !isBlank(ps.Val("startVal")) {
		if startVal, err = ps.Get("startVal").Code(c.Target); err != nil {
			return false, codegen.NewError(name, "bad start value: %v", err)
		}
	}
	startIsTime := ps.Val("startType") == TimeS

	if c.JS() {
		var cond string
		switch {
		case stopType == TimeS:
			c.Lines(fmt.Sprintf("frameRemains = %s - psychoJS.window.monitorFramePeriod * 0.75;  // most of one frame period left\n", stopVal))
			cond = "t >= frameRemains"
		case stopType == DurationS && startIsTime:
			c.Lines(fmt.Sprintf("frameRemains = %s + %s - psychoJS.window.monitorFramePeriod * 0.75;  // most of one frame period left\n", startVal, stopVal))
			cond = "t >= frameRemains"
		case stopType == DurationS:
			cond = fmt.Sprintf("t >= (%s.tStart + %s)", name, stopVal)
		case stopType == DurationFrames:
			cond = fmt.Sprintf("frameN >= (%s.frameNStart + %s)", name, stopVal)
		case stopType == FrameN:
			cond = "frameN >= " + stopVal
		case stopType == Condition:
			cond = "Boolean(" + stopVal + ")"
		default:
			return false, codegen.NewError(name, "didn't write any stop line for stopType=%s", stopType)
		}
		c.In(fmt.Sprintf("if (%s.status === PsychoJS.Status.STARTED && %s) {\n", name, cond))
		return true, nil
	}

	var cond string
	switch {
	case stopType == TimeS:
		cond = fmt.Sprintf("t >= (%s-win.monitorFramePeriod*0.75):  # most of one frame period left", stopVal)
	case stopType == DurationS && startIsTime:
		cond = fmt.Sprintf("t >= (%s + (%s-win.monitorFramePeriod*0.75)):  # most of one frame period left", startVal, stopVal)
	case stopType == DurationS:
		cond = fmt.Sprintf("t >= (%s.tStart + %s):", name, stopVal)
	case stopType == DurationFrames:
		cond = fmt.Sprintf("frameN >= (%s.frameNStart + %s):", name, stopVal)
	case stopType == FrameN:
		cond = fmt.Sprintf("frameN >= %s:", stopVal)
	case stopType == Condition:
		cond = fmt.Sprintf("bool(%s):", stopVal)
	default:
		return false, codegen.NewError(name, "didn't write any stop line for stopType=%s", stopType)
	}
	c.In(fmt.Sprintf("if %s.status == STARTED and %s\n", name, cond))
	return true, nil
}

// WriteParamUpdates emits a setter call for every param changing at the
// given rate.
func (b *BaseComponent) WriteParamUpdates(c *Context, updates string) error {
	for _, pname := range b.params.Names() {
		if pname == "advancedParams" {
			continue
		}
		p := b.params.Get(pname)
		if p.Updates != updates {
			continue
		}
		if err := b.writeParamUpdate(c, pname, p, updates); err != nil {
			return err
		}
	}
	return nil
}

func (b *BaseComponent) writeParamUpdate(c *Context, pname string, p *Param, updates string) error {
	name := b.Name()
	val, err := p.Code(c.Target)
	if err != nil {
		return codegen.NewError(name, "param %s: %v", pname, err)
	}
	caps := paramCaps(b.typ, pname)

	if c.JS() {
		logging := ""
		if updates == UpdateFrame {
			logging = ", false"
		}
		if strings.HasPrefix(val, "(") && strings.HasSuffix(val, ")") {
			val = "[" + val[1:len(val)-1] + "]"
		}
		if pname == "color" {
			c.Buf.WriteIndented(fmt.Sprintf("%s.setColor(new util.Color(%s)%s);\n", name, val, logging))
			return nil
		}
		c.Buf.WriteIndented(fmt.Sprintf("%s.set%s(%s%s);\n", name, caps, val, logging))
		return nil
	}

	logging := ""
	if updates == UpdateFrame {
		logging = ", log=False"
	}
	if pname == "color" {
		space := "'rgb'"
		if b.params.Has("colorSpace") {
			if space, err = b.params.Get("colorSpace").Code(c.Target); err != nil {
				return codegen.NewError(name, "param colorSpace: %v", err)
			}
		}
		c.Buf.WriteIndented(fmt.Sprintf("%s.setColor(%s, colorSpace=%s%s)\n", name, val, space, logging))
		return nil
	}
	c.Buf.WriteIndented(fmt.Sprintf("%s.set%s(%s%s)\n", name, caps, val, logging))
	return nil
}

// paramCaps returns the setter suffix for a param name.
func paramCaps(typ, name string) string {
	switch {
	case name == "letterHeight":
		return "Height"
	case name == "image" && typ == "PatchComponent":
		return "Tex"
	case name == "sf":
		return "SF"
	case name == "coherence":
		return "FieldCoherence"
	case name == "fieldPos":
		return "FieldPos"
	case name == "":
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
