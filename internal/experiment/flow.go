package experiment

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vk/psyexpgo/internal/namespace"
)

var (
	// ErrRoutineNotFound is returned when a name does not refer to a Routine.
	ErrRoutineNotFound = errors.New("routine not found")
	// ErrUnbalancedFlow is returned when loop markers on the Flow do not nest.
	ErrUnbalancedFlow = errors.New("loop initiators and terminators are not balanced")
)

// FlowEntry is one element of the Flow: a Routine or a loop marker.
type FlowEntry interface {
	EntryType() string
	Name() string
}

// LoopInitiator marks the start of a loop on the Flow.
type LoopInitiator struct {
	Loop Loop
}

func (l *LoopInitiator) EntryType() string { return "LoopInitiator" }
func (l *LoopInitiator) Name() string      { return l.Loop.Name() }

// LoopTerminator marks the end of a loop on the Flow.
type LoopTerminator struct {
	Loop Loop
}

func (l *LoopTerminator) EntryType() string { return "LoopTerminator" }
func (l *LoopTerminator) Name() string      { return l.Loop.Name() }

// Flow is the ordered sequence of Routines and loop markers that defines
// the run order of an experiment.
type Flow struct {
	entries []FlowEntry
	ns      *namespace.NameSpace
}

// NewFlow returns an empty Flow registering loop names in ns.
func NewFlow(ns *namespace.NameSpace) *Flow {
	return &Flow{ns: ns}
}

// Entries returns a copy of the Flow entries.
func (f *Flow) Entries() []FlowEntry {
	return slices.Clone(f.entries)
}

// Len returns the number of entries.
func (f *Flow) Len() int {
	return len(f.entries)
}

func (f *Flow) insert(pos int, e FlowEntry) {
	pos = max(0, min(pos, len(f.entries)))
	f.entries = slices.Insert(f.entries, pos, e)
}

// Append adds an entry at the end of the Flow.
func (f *Flow) Append(e FlowEntry) {
	f.entries = append(f.entries, e)
}

// AddRoutine inserts r at pos.
func (f *Flow) AddRoutine(r *Routine, pos int) {
	f.insert(pos, r)
}

// AddLoop wraps the entries between start and end in loop. The terminator
// is inserted first so that start still refers to the original position.
func (f *Flow) AddLoop(loop Loop, start, end int) {
	f.insert(end, &LoopTerminator{Loop: loop})
	f.insert(start, &LoopInitiator{Loop: loop})
	if f.ns != nil {
		f.ns.Add(loop.Name())
	}
}

// RemoveLoop deletes both markers of loop.
func (f *Flow) RemoveLoop(loop Loop) {
	f.entries = slices.DeleteFunc(f.entries, func(e FlowEntry) bool {
		switch e := e.(type) {
		case *LoopInitiator:
			return e.Loop == loop
		case *LoopTerminator:
			return e.Loop == loop
		}
		return false
	})
	if f.ns != nil {
		f.ns.Remove(loop.Name())
	}
}

// RemoveRoutine deletes every occurrence of r.
func (f *Flow) RemoveRoutine(r *Routine) {
	f.entries = slices.DeleteFunc(f.entries, func(e FlowEntry) bool {
		return e == FlowEntry(r)
	})
}

// RemoveAt deletes the Routine at index i.
func (f *Flow) RemoveAt(i int) error {
	if i < 0 || i >= len(f.entries) {
		return fmt.Errorf("flow index %d out of range", i)
	}
	if _, ok := f.entries[i].(*Routine); !ok {
		return fmt.Errorf("flow index %d: %w", i, ErrRoutineNotFound)
	}
	f.entries = slices.Delete(f.entries, i, i+1)
	return nil
}

// Routines returns each Routine on the Flow once, in first-use order.
func (f *Flow) Routines() []*Routine {
	var out []*Routine
	for _, e := range f.entries {
		if r, ok := e.(*Routine); ok && !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}

// Loops returns the loops on the Flow in order of their initiators.
func (f *Flow) Loops() []Loop {
	var out []Loop
	for _, e := range f.entries {
		if l, ok := e.(*LoopInitiator); ok {
			out = append(out, l.Loop)
		}
	}
	return out
}

// Validate checks that loop markers are properly nested.
func (f *Flow) Validate() error {
	var stack []Loop
	for i, e := range f.entries {
		switch e := e.(type) {
		case *LoopInitiator:
			stack = append(stack, e.Loop)
		case *LoopTerminator:
			if len(stack) == 0 || stack[len(stack)-1] != e.Loop {
				return fmt.Errorf("%w: unexpected end of loop %q at position %d", ErrUnbalancedFlow, e.Name(), i)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return fmt.Errorf("%w: loop %q is never closed", ErrUnbalancedFlow, stack[len(stack)-1].Name())
	}
	return nil
}

// children returns the entries directly inside the loop started at index i.
// Nested loops are represented by their initiator.
func (f *Flow) children(i int) []FlowEntry {
	var out []FlowEntry
	depth := 0
	for _, e := range f.entries[i+1:] {
		switch e.(type) {
		case *LoopInitiator:
			if depth == 0 {
				out = append(out, e)
			}
			depth++
		case *LoopTerminator:
			if depth == 0 {
				return out
			}
			depth--
		default:
			if depth == 0 {
				out = append(out, e)
			}
		}
	}
	return out
}

// topLevel returns the entries outside any loop, nested loops represented by
// their initiator.
func (f *Flow) topLevel() []FlowEntry {
	var out []FlowEntry
	depth := 0
	for _, e := range f.entries {
		switch e.(type) {
		case *LoopInitiator:
			if depth == 0 {
				out = append(out, e)
			}
			depth++
		case *LoopTerminator:
			depth--
		default:
			if depth == 0 {
				out = append(out, e)
			}
		}
	}
	return out
}

// WriteBody writes the Routine initialisation, the handy timers and the main
// code of every entry. For JavaScript it writes the loop and Routine
// scheduler functions.
func (f *Flow) WriteBody(c *Context) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if c.JS() {
		return f.writeBodyJS(c)
	}

	for _, r := range f.Routines() {
		if err := r.WriteInitCode(c); err != nil {
			return err
		}
	}
	c.Lines("\n# Create some handy timers\n" +
		"globalClock = core.Clock()  # to track the time since experiment started\n" +
		"routineTimer = core.CountdownTimer()  # to track time remaining of each (non-slip) routine \n")

	for _, e := range f.entries {
		var err error
		switch e := e.(type) {
		case *Routine:
			err = e.WriteMainCode(c)
		case *LoopInitiator:
			err = e.Loop.WriteLoopStartCode(c)
			c.pushLoop(e.Loop)
		case *LoopTerminator:
			err = e.Loop.WriteLoopEndCode(c)
			c.popLoop()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteInitJS writes the experimentInit function creating every Routine
// clock and component.
func (f *Flow) WriteInitJS(c *Context) error {
	routines := f.Routines()
	var vars []string
	for _, r := range routines {
		vars = append(vars, r.ClockName())
		for _, comp := range r.active(c) {
			vars = append(vars, comp.Name())
		}
	}
	vars = append(vars, "globalClock", "routineTimer")
	for _, v := range vars {
		c.Lines("var " + v + ";\n")
	}
	c.In("async function experimentInit() {\n")
	for _, r := range routines {
		if err := r.WriteInitCode(c); err != nil {
			return err
		}
	}
	c.Lines("// Create some handy timers\n" +
		"globalClock = new util.Clock();  // to track the time since experiment started\n" +
		"routineTimer = new util.CountdownTimer();  // to track time remaining of each (non-slip) routine\n\n" +
		"return Scheduler.Event.NEXT;\n")
	c.Out()
	return nil
}

// WriteSchedulerJS adds the top-level entries to the flow scheduler.
func (f *Flow) WriteSchedulerJS(c *Context) {
	writeSchedulerAdds(c, "flowScheduler", f.topLevel(), false)
}

func writeSchedulerAdds(c *Context, scheduler string, entries []FlowEntry, snapshot bool) {
	arg := ""
	if snapshot {
		arg = "snapshot"
	}
	for _, e := range entries {
		switch e := e.(type) {
		case *Routine:
			c.Lines(fmt.Sprintf("%[1]s.add(%[2]sRoutineBegin(%[3]s));\n"+
				"%[1]s.add(%[2]sRoutineEachFrame());\n"+
				"%[1]s.add(%[2]sRoutineEnd(%[3]s));\n", scheduler, e.Name(), arg))
		case *LoopInitiator:
			sep := ""
			if snapshot {
				sep = ", snapshot"
			}
			name := e.Name()
			c.Lines(fmt.Sprintf("const %[2]sLoopScheduler = new Scheduler(psychoJS);\n"+
				"%[1]s.add(%[2]sLoopBegin(%[2]sLoopScheduler%[3]s));\n"+
				"%[1]s.add(%[2]sLoopScheduler);\n"+
				"%[1]s.add(%[2]sLoopEnd);\n", scheduler, name, sep))
		}
	}
}

func (f *Flow) writeBodyJS(c *Context) error {
	var written []*Routine
	for i, e := range f.entries {
		switch e := e.(type) {
		case *LoopInitiator:
			if err := writeLoopBeginJS(c, e.Loop, f.children(i)); err != nil {
				return err
			}
		case *LoopTerminator:
			writeLoopEndJS(c, e.Loop)
		case *Routine:
			if slices.Contains(written, e) {
				continue
			}
			written = append(written, e)
			if err := e.WriteMainCode(c); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeLoopBeginJS(c *Context, loop Loop, children []FlowEntry) error {
	name := loop.Name()
	index := c.Exp.NameSpace.MakeLoopIndex(name)
	scheduler := name + "LoopScheduler"

	c.Lines(fmt.Sprintf("\nvar %s;\n", name))
	c.In(fmt.Sprintf("function %sLoopBegin(%s, snapshot) {\n", name, scheduler))
	c.In("return async function() {\n")
	c.Lines("TrialHandler.fromSnapshot(snapshot); // update internal variables (.thisN etc) of the loop\n\n")
	if err := loop.WriteHandlerJS(c); err != nil {
		return err
	}
	c.Lines(fmt.Sprintf("psychoJS.experiment.addLoop(%[1]s); // add the loop to the experiment\n"+
		"currentLoop = %[1]s;  // we're now in the loop\n\n"+
		"// Schedule all the trials in the trialList:\n", name))
	c.In(fmt.Sprintf("for (const %s of %s) {\n", index, name))
	c.Lines(fmt.Sprintf("snapshot = %s.getSnapshot();\n%s.add(importConditions(snapshot));\n", name, scheduler))
	writeSchedulerAdds(c, scheduler, children, true)
	c.Lines(fmt.Sprintf("%[1]s.add(%[2]sLoopEndIteration(%[1]s, snapshot));\n", scheduler, name))
	c.Out()
	c.Lines("\nreturn Scheduler.Event.NEXT;\n")
	c.Buf.SetIndentLevel(-1, true)
	c.Buf.WriteIndented("}\n")
	c.Out()
	return nil
}

func writeLoopEndJS(c *Context, loop Loop) {
	name := loop.Name()
	c.Lines(fmt.Sprintf("\nasync function %[1]sLoopEnd() {\n"+
		"  // terminate loop\n"+
		"  psychoJS.experiment.removeLoop(%[1]s);\n"+
		"  // update the current loop from the ExperimentHandler\n"+
		"  if (psychoJS.experiment._unfinishedLoops.length>0)\n"+
		"    currentLoop = psychoJS.experiment._unfinishedLoops.at(-1);\n"+
		"  else\n"+
		"    currentLoop = psychoJS.experiment;  // so we use addData from the experiment\n"+
		"  return Scheduler.Event.NEXT;\n"+
		"}\n\n", name))
	c.Lines(fmt.Sprintf("function %sLoopEndIteration(scheduler, snapshot) {\n"+
		"  // ------Prepare for next entry------\n"+
		"  return async function () {\n"+
		"    if (typeof snapshot !== 'undefined') {\n"+
		"      // ------Check if user ended loop early------\n"+
		"      if (snapshot.finished) {\n"+
		"        // Check for and save orphaned data\n"+
		"        if (psychoJS.experiment.isEntryEmpty()) {\n"+
		"          psychoJS.experiment.nextEntry(snapshot);\n"+
		"        }\n"+
		"        scheduler.stop();\n"+
		"      } else {\n", name))
	if isTrials(loop) {
		c.Lines("        psychoJS.experiment.nextEntry(snapshot);\n")
	}
	c.Lines("      }\n" +
		"    return Scheduler.Event.NEXT;\n" +
		"    }\n" +
		"  };\n" +
		"}\n")
}
