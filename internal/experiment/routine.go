package experiment

import (
	"fmt"
	"slices"
	"strings"
)

// Routine is an ordered set of components that run together, sharing one
// clock and one frame loop.
type Routine struct {
	name       string
	components []Component
}

// NewRoutine returns an empty Routine.
func NewRoutine(name string, comps ...Component) *Routine {
	return &Routine{name: name, components: comps}
}

func (r *Routine) Name() string { return r.name }

// SetName renames the Routine. Callers are responsible for the namespace.
func (r *Routine) SetName(name string) { r.name = name }

// EntryType identifies a Routine on the Flow.
func (r *Routine) EntryType() string { return "Routine" }

// Components returns the components in timeline order.
func (r *Routine) Components() []Component {
	return slices.Clone(r.components)
}

// Add appends components to the Routine.
func (r *Routine) Add(comps ...Component) {
	r.components = append(r.components, comps...)
}

// Insert places comp at pos, clamped to the valid range.
func (r *Routine) Insert(pos int, comp Component) {
	pos = max(0, min(pos, len(r.components)))
	r.components = slices.Insert(r.components, pos, comp)
}

// Remove deletes the named component and reports whether it was found.
func (r *Routine) Remove(name string) bool {
	i := r.Index(name)
	if i < 0 {
		return false
	}
	r.components = slices.Delete(r.components, i, i+1)
	return true
}

// Component returns the named component or nil.
func (r *Routine) Component(name string) Component {
	if i := r.Index(name); i >= 0 {
		return r.components[i]
	}
	return nil
}

// Index returns the position of the named component, or -1.
func (r *Routine) Index(name string) int {
	return slices.IndexFunc(r.components, func(c Component) bool { return c.Name() == name })
}

// ClockName is the name of the clock variable the Routine runs on.
func (r *Routine) ClockName() string {
	return r.name + "Clock"
}

// MaxTime returns the time at which the last component is expected to end
// and whether the Routine can run against the countdown timer. A Routine
// without any timed component is reported as 10s long and not non-slip safe.
func (r *Routine) MaxTime() (float64, bool) {
	maxTime := 0.0
	nonSlip := true
	for _, comp := range r.components {
		if comp.Disabled() || !IsTimed(comp) {
			continue
		}
		s := comp.Span()
		if !s.NonSlipSafe {
			nonSlip = false
		}
		dur, hasDur := s.Duration, s.HasDuration
		if s.Forever {
			// only the start of an unlimited component counts
			dur, hasDur = 1, true
		}
		if s.HasStart && hasDur {
			maxTime = max(maxTime, s.Start+dur)
		}
	}
	if maxTime == 0 {
		return 10, false
	}
	return maxTime, nonSlip
}

// active returns the components written for the current target.
func (r *Routine) active(c *Context) []Component {
	var out []Component
	for _, comp := range r.components {
		if comp.Disabled() {
			continue
		}
		if !Supports(comp, c.Target) {
			c.Logger.Debug("Component not supported by target, skipped.",
				"routine", r.name, "component", comp.Name(), "type", comp.Type(), "target", c.Target)
			continue
		}
		out = append(out, comp)
	}
	return out
}

// timedNames lists the components tracked for completion by the frame loop.
func (r *Routine) timedNames(comps []Component) []string {
	var names []string
	for _, comp := range comps {
		if IsTimed(comp) {
			names = append(names, comp.Name())
		}
	}
	return names
}

func (r *Routine) each(c *Context, write func(Component) error) error {
	prev := c.Routine
	c.Routine = r
	defer func() { c.Routine = prev }()
	for _, comp := range r.active(c) {
		if err := write(comp); err != nil {
			return err
		}
	}
	return nil
}

// WriteStartCode writes code needed before the window is opened.
func (r *Routine) WriteStartCode(c *Context) error {
	return r.each(c, func(comp Component) error { return comp.WriteStartCode(c) })
}

// WriteInitCode creates the Routine clock and initialises its components.
func (r *Routine) WriteInitCode(c *Context) error {
	if c.JS() {
		c.Lines(fmt.Sprintf("// Initialize components for Routine %q\n%s = new util.Clock();\n", r.name, r.ClockName()))
	} else {
		c.Lines(fmt.Sprintf("\n# Initialize components for Routine %q\n%s = core.Clock()\n", r.name, r.ClockName()))
	}
	return r.each(c, func(comp Component) error { return comp.WriteInitCode(c) })
}

// WriteExperimentEndCode writes the components' end-of-experiment code.
func (r *Routine) WriteExperimentEndCode(c *Context) error {
	return r.each(c, func(comp Component) error { return comp.WriteExperimentEndCode(c) })
}

// WriteMainCode writes the code that runs the Routine once: preparation, the
// frame loop and the ending. For JavaScript it writes the three scheduler
// functions instead.
func (r *Routine) WriteMainCode(c *Context) error {
	if c.JS() {
		return r.writeMainCodeJS(c)
	}
	maxTime, nonSlip := r.MaxTime()
	comps := r.active(c)
	list := r.name + "Components"

	c.Lines(fmt.Sprintf("\n# ------Prepare to start Routine %q-------\n"+
		"t = 0\n"+
		"%s.reset()  # clock\n"+
		"frameN = -1\n"+
		"continueRoutine = True\n", r.name, r.ClockName()))
	if nonSlip {
		c.Lines(fmt.Sprintf("routineTimer.add(%f)\n", maxTime))
	}
	c.Lines("# update component parameters for each repeat\n")
	if err := r.each(c, func(comp Component) error { return comp.WriteRoutineStartCode(c) }); err != nil {
		return err
	}
	c.Lines(fmt.Sprintf("# keep track of which components have finished\n"+
		"%[1]s = [%[2]s]\n"+
		"for thisComponent in %[1]s:\n"+
		"    if hasattr(thisComponent, 'status'):\n"+
		"        thisComponent.status = NOT_STARTED\n", list, strings.Join(r.timedNames(comps), ", ")))

	c.Lines(fmt.Sprintf("\n# -------Start Routine %q-------\n", r.name))
	if nonSlip {
		c.In("while continueRoutine and routineTimer.getTime() > 0:\n")
	} else {
		c.In("while continueRoutine:\n")
	}
	c.Lines(fmt.Sprintf("# get current time\n"+
		"t = %s.getTime()\n"+
		"frameN = frameN + 1  # number of completed frames (so 0 is the first frame)\n"+
		"# update/draw components on each frame\n", r.ClockName()))
	if err := r.each(c, func(comp Component) error { return comp.WriteFrameCode(c) }); err != nil {
		return err
	}
	if c.Exp.Settings.Params().Get("Enable Escape").Bool() {
		c.Lines("\n# check for quit (typically the Esc key)\n" +
			"if endExpNow or event.getKeys(keyList=[\"escape\"]):\n" +
			"    core.quit()\n")
	}
	c.Lines(fmt.Sprintf("\n# check if all components have finished\n"+
		"if not continueRoutine:  # a component has requested a forced-end of Routine\n"+
		"    break\n"+
		"continueRoutine = False  # will revert to True if at least one component still running\n"+
		"for thisComponent in %s:\n"+
		"    if hasattr(thisComponent, \"status\") and thisComponent.status != FINISHED:\n"+
		"        continueRoutine = True\n"+
		"        break  # at least one component has not yet finished\n\n"+
		"# refresh the screen\n"+
		"if continueRoutine:  # don't flip if this routine is over or we'll get a blank screen\n"+
		"    win.flip()\n", list))
	c.Buf.SetIndentLevel(-1, true)

	c.Lines(fmt.Sprintf("\n# -------Ending Routine %q-------\n"+
		"for thisComponent in %s:\n"+
		"    if hasattr(thisComponent, \"setAutoDraw\"):\n"+
		"        thisComponent.setAutoDraw(False)\n", r.name, list))
	if err := r.each(c, func(comp Component) error { return comp.WriteRoutineEndCode(c) }); err != nil {
		return err
	}
	if !nonSlip {
		c.Lines(fmt.Sprintf("# the Routine %q was not non-slip safe, so reset the non-slip timer\n"+
			"routineTimer.reset()\n", r.name))
	}
	return nil
}

func (r *Routine) writeMainCodeJS(c *Context) error {
	maxTime, nonSlip := r.MaxTime()
	comps := r.active(c)
	list := r.name + "Components"

	c.Lines(fmt.Sprintf("\nvar %s;\n", list))
	c.In(fmt.Sprintf("function %sRoutineBegin(snapshot) {\n", r.name))
	c.In("return async function () {\n")
	c.Lines(fmt.Sprintf("TrialHandler.fromSnapshot(snapshot); // ensure that .thisN vals are up to date\n\n"+
		"//------Prepare to start Routine '%s'-------\n"+
		"t = 0;\n"+
		"%s.reset(); // clock\n"+
		"frameN = -1;\n"+
		"continueRoutine = true; // until we're told otherwise\n", r.name, r.ClockName()))
	if nonSlip {
		c.Lines(fmt.Sprintf("routineTimer.add(%f);\n", maxTime))
	}
	c.Lines("// update component parameters for each repeat\n")
	if err := r.each(c, func(comp Component) error { return comp.WriteRoutineStartCode(c) }); err != nil {
		return err
	}
	c.Lines(fmt.Sprintf("// keep track of which components have finished\n%s = [];\n", list))
	for _, name := range r.timedNames(comps) {
		c.Lines(fmt.Sprintf("%s.push(%s);\n", list, name))
	}
	c.Lines(fmt.Sprintf("\nfor (const thisComponent of %s)\n"+
		"  if ('status' in thisComponent)\n"+
		"    thisComponent.status = PsychoJS.Status.NOT_STARTED;\n"+
		"return Scheduler.Event.NEXT;\n", list))
	c.Buf.SetIndentLevel(-1, true)
	c.Buf.WriteIndented("};\n")
	c.Out()

	c.Lines("\n")
	c.In(fmt.Sprintf("function %sRoutineEachFrame() {\n", r.name))
	c.In("return async function () {\n")
	c.Lines(fmt.Sprintf("//------Loop for each frame of Routine '%s'-------\n"+
		"// get current time\n"+
		"t = %s.getTime();\n"+
		"frameN = frameN + 1;// number of completed frames (so 0 is the first frame)\n"+
		"// update/draw components on each frame\n", r.name, r.ClockName()))
	if err := r.each(c, func(comp Component) error { return comp.WriteFrameCode(c) }); err != nil {
		return err
	}
	if c.Exp.Settings.Params().Get("Enable Escape").Bool() {
		c.Lines("// check for quit (typically the Esc key)\n" +
			"if (psychoJS.experiment.experimentEnded || psychoJS.eventManager.getKeys({keyList:['escape']}).length > 0) {\n" +
			"  return quitPsychoJS('The [Escape] key was pressed. Goodbye!', false);\n" +
			"}\n\n")
	}
	refresh := "if (continueRoutine) {\n"
	if nonSlip {
		refresh = "if (continueRoutine && routineTimer.getTime() > 0) {\n"
	}
	c.Lines(fmt.Sprintf("// check if the Routine should terminate\n"+
		"if (!continueRoutine) {  // a component has requested a forced-end of Routine\n"+
		"  return Scheduler.Event.NEXT;\n"+
		"}\n\n"+
		"continueRoutine = false;  // reverts to True if at least one component still running\n"+
		"for (const thisComponent of %s)\n"+
		"  if ('status' in thisComponent && thisComponent.status !== PsychoJS.Status.FINISHED) {\n"+
		"    continueRoutine = true;\n"+
		"    break;\n"+
		"  }\n\n"+
		"// refresh the screen if continuing\n"+
		"%s"+
		"  return Scheduler.Event.FLIP_REPEAT;\n"+
		"} else {\n"+
		"  return Scheduler.Event.NEXT;\n"+
		"}\n", list, refresh))
	c.Buf.SetIndentLevel(-1, true)
	c.Buf.WriteIndented("};\n")
	c.Out()

	c.Lines("\n")
	c.In(fmt.Sprintf("function %sRoutineEnd(snapshot) {\n", r.name))
	c.In("return async function () {\n")
	c.Lines(fmt.Sprintf("//------Ending Routine '%s'-------\n"+
		"for (const thisComponent of %s) {\n"+
		"  if (typeof thisComponent.setAutoDraw === 'function') {\n"+
		"    thisComponent.setAutoDraw(false);\n"+
		"  }\n"+
		"}\n", r.name, list))
	if err := r.each(c, func(comp Component) error { return comp.WriteRoutineEndCode(c) }); err != nil {
		return err
	}
	if !nonSlip {
		c.Lines(fmt.Sprintf("// the Routine %q was not non-slip safe, so reset the non-slip timer\n"+
			"routineTimer.reset();\n", r.name))
	}
	c.Lines("\nreturn Scheduler.Event.NEXT;\n")
	c.Buf.SetIndentLevel(-1, true)
	c.Buf.WriteIndented("};\n")
	c.Out()
	return nil
}
