package keyboard

import (
	"fmt"
	"strings"

	"github.com/vk/psyexpgo/internal/codegen"
	"github.com/vk/psyexpgo/internal/experiment"
	"github.com/vk/psyexpgo/internal/pyexpr"
	"github.com/vk/psyexpgo/internal/registry"
)

// Type is the component type name used in experiment files.
const Type = "KeyboardComponent"

// Ways of storing the keys pressed during a Routine.
const (
	StoreLast    = "last key"
	StoreFirst   = "first key"
	StoreAll     = "all keys"
	StoreNothing = "nothing"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the keyboard component with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterComponent(Type, &registry.RegisteredComponent{
		New:      func(name string) experiment.Component { return New(name) },
		Category: "Responses",
	})
}

// Component collects key presses and stores them in the data file.
type Component struct {
	*experiment.BaseComponent
}

// New returns a keyboard component that waits for one of y, n, left, right
// or space and then ends the Routine.
func New(name string) *Component {
	b := experiment.NewBaseComponent(Type, name, "Responses")
	ps := b.Params()
	ps.Get("stopVal").Val = ""
	ps.Get("syncScreenRefresh").Val = "True"
	ps.Set("allowedKeys", &experiment.Param{
		Val: "'y','n','left','right','space'", ValType: experiment.ValCode, Categ: "Basic",
		Updates: experiment.UpdateConstant, AllowedUpdates: []string{experiment.UpdateConstant},
		Label: "Allowed keys",
		Hint:  "A comma-separated list of keys (with quotes), such as 'q','right','space','left'",
	})
	ps.Set("store", &experiment.Param{
		Val: StoreLast, ValType: experiment.ValStr, Categ: "Data", Label: "Store",
		AllowedVals: []string{StoreLast, StoreFirst, StoreAll, StoreNothing},
		Hint:        "Choose which (if any) keys to store at end of trial",
	})
	ps.Set("forceEndRoutine", &experiment.Param{
		Val: "True", ValType: experiment.ValBool, Categ: "Basic", Label: "Force end of Routine",
		Hint: "Should a response force the end of the Routine (e.g end the trial)?",
	})
	ps.Set("storeCorrect", &experiment.Param{
		Val: "False", ValType: experiment.ValBool, Categ: "Data", Label: "Store correct",
		Hint: "Do you want to save the response as correct/incorrect?",
	})
	ps.Set("correctAns", &experiment.Param{
		Val: "", ValType: experiment.ValStr, Categ: "Data", Label: "Correct answer",
		Hint: "What is the 'correct' key? Might be helpful to add a correctAns column and use $correctAns to compare to the key press.",
	})
	ps.Set("discard previous", &experiment.Param{
		Val: "True", ValType: experiment.ValBool, Categ: "Data", Label: "Discard previous",
		Hint: "Do you want to discard all responses occurring before the onset of this component?",
	})
	return &Component{BaseComponent: b}
}

// keyList renders allowedKeys as a list literal. A bare variable name is
// reported through isVar and rendered as list(name) for Python.
func (k *Component) keyList(ctx *experiment.Context) (list string, isVar bool, err error) {
	raw := strings.TrimPrefix(strings.TrimSpace(k.Params().Val("allowedKeys")), "$")
	switch raw {
	case "", "none", "None", "[]", "()":
		if ctx.JS() {
			return "[]", false, nil
		}
		return "None", false, nil
	}
	if pyexpr.IsValidVariable(raw) {
		if ctx.JS() {
			return "", true, codegen.NewError(k.Name(), "Variables for allowKeys aren't supported for JS yet")
		}
		return "list(" + raw + ")", true, nil
	}
	keys, err := pyexpr.ParseStringList(raw)
	if err != nil {
		return "", false, codegen.NewError(k.Name(), "Allowed keys list is invalid.")
	}
	quoted := make([]string, len(keys))
	for i, key := range keys {
		quoted[i] = pyexpr.Repr(key)
	}
	return "[" + strings.Join(quoted, ", ") + "]", false, nil
}

// WriteStartCode declares the key buffer used by the JavaScript routine
// functions.
func (k *Component) WriteStartCode(ctx *experiment.Context) error {
	if ctx.JS() {
		ctx.Lines(fmt.Sprintf("var _%s_allKeys;\n", k.Name()))
	}
	return nil
}

func (k *Component) WriteInitCode(ctx *experiment.Context) error {
	if ctx.JS() {
		ctx.Lines(fmt.Sprintf("%s = new core.Keyboard({psychoJS: psychoJS, clock: new util.Clock(), waitForStart: true});\n\n", k.Name()))
		return nil
	}
	ctx.Lines(fmt.Sprintf("%s = keyboard.Keyboard()\n", k.Name()))
	return nil
}

// WriteRoutineStartCode clears the responses of the previous repeat.
func (k *Component) WriteRoutineStartCode(ctx *experiment.Context) error {
	name := k.Name()
	if ctx.JS() {
		ctx.Lines(fmt.Sprintf("%[1]s.keys = undefined;\n%[1]s.rt = undefined;\n_%[1]s_allKeys = [];\n", name))
	} else {
		ctx.Lines(fmt.Sprintf("%[1]s.keys = []\n%[1]s.rt = []\n_%[1]s_allKeys = []\n", name))
	}
	return k.WriteParamUpdates(ctx, experiment.UpdateRepeat)
}

// WriteFrameCode starts the keyboard clock and polls for keys while the
// component is running.
func (k *Component) WriteFrameCode(ctx *experiment.Context) error {
	if ctx.JS() {
		return k.writeFrameCodeJS(ctx)
	}
	name := k.Name()
	ps := k.Params()
	sync := ps.Get("syncScreenRefresh").Bool()
	keyStr, isVar, err := k.keyList(ctx)
	if err != nil {
		return err
	}

	ctx.Lines(fmt.Sprintf("\n# *%s* updates\n", name))
	if sync {
		ctx.Lines("waitOnFlip = False\n")
	}
	started, err := k.WriteStartTestCode(ctx)
	if err != nil {
		return err
	}
	if started {
		ctx.Lines(fmt.Sprintf("%s.status = STARTED\n", name))
		if isVar {
			v := strings.TrimPrefix(strings.TrimSpace(ps.Val("allowedKeys")), "$")
			ctx.Lines(fmt.Sprintf("# AllowedKeys looks like a variable named `%[1]s`\n"+
				"if not type(%[1]s) in [list, tuple, np.ndarray]:\n"+
				"    if not isinstance(%[1]s, str):\n"+
				"        logging.error('AllowedKeys variable `%[1]s` is not string- or list-like.')\n"+
				"        core.quit()\n"+
				"    elif not ',' in %[1]s:\n"+
				"        %[1]s = (%[1]s,)\n"+
				"    else:\n"+
				"        %[1]s = eval(%[1]s)\n", v))
		}
		ctx.Lines("# keyboard checking is just starting\n")
		if sync {
			ctx.Lines(fmt.Sprintf("waitOnFlip = True\nwin.callOnFlip(%s.clock.reset)  # t=0 on next screen flip\n", name))
		} else {
			ctx.Lines(fmt.Sprintf("%s.clock.reset()  # now t=0\n", name))
		}
		if ps.Get("discard previous").Bool() {
			if sync {
				ctx.Lines(fmt.Sprintf("win.callOnFlip(%s.clearEvents, eventType='keyboard')  # clear events on next screen flip\n", name))
			} else {
				ctx.Lines(fmt.Sprintf("%s.clearEvents(eventType='keyboard')\n", name))
			}
		}
		ctx.Out()
	}

	stopped, err := k.WriteStopTestCode(ctx)
	if err != nil {
		return err
	}
	if stopped {
		ctx.Lines(fmt.Sprintf("%s.status = FINISHED\n", name))
		ctx.Out()
	}

	waiting := ""
	if sync {
		waiting = " and not waitOnFlip"
	}
	ctx.In(fmt.Sprintf("if %s.status == STARTED%s:\n", name, waiting))
	ctx.Lines(fmt.Sprintf("theseKeys = %[1]s.getKeys(keyList=%[2]s, waitRelease=False)\n"+
		"_%[1]s_allKeys.extend(theseKeys)\n", name, keyStr))
	ctx.In(fmt.Sprintf("if len(_%s_allKeys):\n", name))
	switch ps.Val("store") {
	case StoreFirst:
		ctx.Lines(fmt.Sprintf("%[1]s.keys = _%[1]s_allKeys[0].name  # just the first key pressed\n"+
			"%[1]s.rt = _%[1]s_allKeys[0].rt\n", name))
	case StoreAll:
		ctx.Lines(fmt.Sprintf("%[1]s.keys = [key.name for key in _%[1]s_allKeys]  # storing all keys\n"+
			"%[1]s.rt = [key.rt for key in _%[1]s_allKeys]\n", name))
	default:
		ctx.Lines(fmt.Sprintf("%[1]s.keys = _%[1]s_allKeys[-1].name  # just the last key pressed\n"+
			"%[1]s.rt = _%[1]s_allKeys[-1].rt\n", name))
	}
	if ps.Get("storeCorrect").Bool() {
		corr, err := ps.Get("correctAns").Code(ctx.Target)
		if err != nil {
			return codegen.NewError(name, "param correctAns: %v", err)
		}
		ctx.Lines(fmt.Sprintf("# was this correct?\n"+
			"if (%[1]s.keys == str(%[2]s)) or (%[1]s.keys == %[2]s):\n"+
			"    %[1]s.corr = 1\n"+
			"else:\n"+
			"    %[1]s.corr = 0\n", name, corr))
	}
	if ps.Get("forceEndRoutine").Bool() {
		ctx.Lines("# a response ends the routine\ncontinueRoutine = False\n")
	}
	ctx.Out()
	ctx.Out()
	return nil
}

func (k *Component) writeFrameCodeJS(ctx *experiment.Context) error {
	name := k.Name()
	ps := k.Params()
	sync := ps.Get("syncScreenRefresh").Bool()
	keyStr, _, err := k.keyList(ctx)
	if err != nil {
		return err
	}

	ctx.Lines(fmt.Sprintf("\n// *%s* updates\n", name))
	started, err := k.WriteStartTestCode(ctx)
	if err != nil {
		return err
	}
	if started {
		ctx.Lines("// keyboard checking is just starting\n")
		if sync {
			ctx.Lines(fmt.Sprintf("psychoJS.window.callOnFlip(function() { %[1]s.clock.reset(); });  // t=0 on next screen flip\n"+
				"psychoJS.window.callOnFlip(function() { %[1]s.start(); }); // start on screen flip\n", name))
		} else {
			ctx.Lines(fmt.Sprintf("%[1]s.clock.reset();\n%[1]s.start();\n", name))
		}
		if ps.Get("discard previous").Bool() {
			if sync {
				ctx.Lines(fmt.Sprintf("psychoJS.window.callOnFlip(function() { %s.clearEvents(); });\n", name))
			} else {
				ctx.Lines(fmt.Sprintf("%s.clearEvents();\n", name))
			}
		}
		ctx.Out()
	}

	stopped, err := k.WriteStopTestCode(ctx)
	if err != nil {
		return err
	}
	if stopped {
		ctx.Lines(fmt.Sprintf("%s.status = PsychoJS.Status.FINISHED;\n", name))
		ctx.Out()
	}

	ctx.Lines("\n")
	ctx.In(fmt.Sprintf("if (%s.status === PsychoJS.Status.STARTED) {\n", name))
	ctx.Lines(fmt.Sprintf("let theseKeys = %[1]s.getKeys({keyList: %[2]s, waitRelease: false});\n"+
		"_%[1]s_allKeys = _%[1]s_allKeys.concat(theseKeys);\n", name, keyStr))
	ctx.In(fmt.Sprintf("if (_%s_allKeys.length > 0) {\n", name))
	switch ps.Val("store") {
	case StoreFirst:
		ctx.Lines(fmt.Sprintf("%[1]s.keys = _%[1]s_allKeys[0].name;  // just the first key pressed\n"+
			"%[1]s.rt = _%[1]s_allKeys[0].rt;\n", name))
	case StoreAll:
		ctx.Lines(fmt.Sprintf("%[1]s.keys = _%[1]s_allKeys.map((key) => key.name);  // storing all keys\n"+
			"%[1]s.rt = _%[1]s_allKeys.map((key) => key.rt);\n", name))
	default:
		ctx.Lines(fmt.Sprintf("%[1]s.keys = _%[1]s_allKeys[_%[1]s_allKeys.length - 1].name;  // just the last key pressed\n"+
			"%[1]s.rt = _%[1]s_allKeys[_%[1]s_allKeys.length - 1].rt;\n", name))
	}
	if ps.Get("storeCorrect").Bool() {
		corr, err := ps.Get("correctAns").Code(ctx.Target)
		if err != nil {
			return codegen.NewError(name, "param correctAns: %v", err)
		}
		ctx.Lines(fmt.Sprintf("// was this correct?\n"+
			"if (%[1]s.keys == %[2]s) {\n"+
			"    %[1]s.corr = 1;\n"+
			"} else {\n"+
			"    %[1]s.corr = 0;\n"+
			"}\n", name, corr))
	}
	if ps.Get("forceEndRoutine").Bool() {
		ctx.Lines("// a response ends the routine\ncontinueRoutine = false;\n")
	}
	ctx.Out()
	ctx.Out()
	ctx.Lines("\n")
	return nil
}

// WriteRoutineEndCode stores the response in the innermost loop, or in the
// experiment handler when the Routine is not inside a loop.
func (k *Component) WriteRoutineEndCode(ctx *experiment.Context) error {
	name := k.Name()
	ps := k.Params()
	if ctx.JS() {
		return k.writeRoutineEndCodeJS(ctx)
	}
	if ps.Val("store") == StoreNothing {
		return nil
	}
	storeCorr := ps.Get("storeCorrect").Bool()
	corr, err := ps.Get("correctAns").Code(ctx.Target)
	if err != nil {
		return codegen.NewError(name, "param correctAns: %v", err)
	}

	loopName, loopType := "thisExp", "ExperimentHandler"
	if loop := ctx.Loop(); loop != nil {
		loopName, loopType = loop.Name(), loop.Type()
	}

	ctx.Lines(fmt.Sprintf("# check responses\n"+
		"if %[1]s.keys in ['', [], None]:  # No response was made\n"+
		"    %[1]s.keys = None\n", name))
	if storeCorr {
		ctx.Lines(fmt.Sprintf("    # was no response the correct answer?!\n"+
			"    if str(%[2]s).lower() == 'none':\n"+
			"       %[1]s.corr = 1;  # correct non-response\n"+
			"    else:\n"+
			"       %[1]s.corr = 0;  # failed to respond (incorrectly)\n", name, corr))
	}
	ctx.Lines(fmt.Sprintf("# store data for %s (%s)\n", loopName, loopType))

	switch loopType {
	case experiment.StairHandlerType:
		if storeCorr {
			ctx.Lines(fmt.Sprintf("%[1]s.addResponse(%[2]s.corr)\n%[1]s.addOtherData('%[2]s.rt', %[2]s.rt)\n", loopName, name))
		}
	case experiment.MultiStairHandlerType:
		if storeCorr {
			ctx.Lines(fmt.Sprintf("%[1]s.addResponse(%[2]s.corr, level)\n%[1]s.addOtherData('%[2]s.rt', %[2]s.rt)\n", loopName, name))
		}
	default:
		ctx.Lines(fmt.Sprintf("%[1]s.addData('%[2]s.keys',%[2]s.keys)\n", loopName, name))
		if storeCorr {
			ctx.Lines(fmt.Sprintf("%[1]s.addData('%[2]s.corr', %[2]s.corr)\n", loopName, name))
		}
		ctx.Lines(fmt.Sprintf("if %[2]s.keys != None:  # we had a response\n"+
			"    %[1]s.addData('%[2]s.rt', %[2]s.rt)\n", loopName, name))
	}
	if loopName == "thisExp" {
		ctx.Lines("thisExp.nextEntry()\n")
	}
	return nil
}

func (k *Component) writeRoutineEndCodeJS(ctx *experiment.Context) error {
	name := k.Name()
	ps := k.Params()
	if ps.Val("store") == StoreNothing {
		ctx.Lines(fmt.Sprintf("%s.stop();\n", name))
		return nil
	}
	storeCorr := ps.Get("storeCorrect").Bool()
	if storeCorr {
		corr, err := ps.Get("correctAns").Code(ctx.Target)
		if err != nil {
			return codegen.NewError(name, "param correctAns: %v", err)
		}
		ctx.Lines(fmt.Sprintf("// was no response the correct answer?!\n"+
			"if (%[1]s.keys === undefined) {\n"+
			"  if (['None','none',undefined].includes(%[2]s)) {\n"+
			"     %[1]s.corr = 1;  // correct non-response\n"+
			"  } else {\n"+
			"     %[1]s.corr = 0;  // failed to respond (incorrectly)\n"+
			"  }\n"+
			"}\n"+
			"// store data for thisExp (ExperimentHandler)\n", name, corr))
	}
	ctx.Lines(fmt.Sprintf("psychoJS.experiment.addData('%[1]s.keys', %[1]s.keys);\n", name))
	if storeCorr {
		ctx.Lines(fmt.Sprintf("psychoJS.experiment.addData('%[1]s.corr', %[1]s.corr);\n", name))
	}
	reset := ""
	if ps.Get("forceEndRoutine").Bool() {
		reset = "    routineTimer.reset();\n"
	}
	ctx.Lines(fmt.Sprintf("if (typeof %[1]s.keys !== 'undefined') {  // we had a response\n"+
		"    psychoJS.experiment.addData('%[1]s.rt', %[1]s.rt);\n"+
		"%[2]s"+
		"    }\n\n"+
		"%[1]s.stop();\n", name, reset))
	return nil
}
