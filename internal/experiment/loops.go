package experiment

import (
	"fmt"
	"strings"

	"github.com/vk/psyexpgo/internal/codegen"
	"github.com/vk/psyexpgo/internal/pyexpr"
)

// Loop types, which are also the loopType attribute in experiment files.
const (
	TrialHandlerType      = "TrialHandler"
	StairHandlerType      = "StairHandler"
	MultiStairHandlerType = "MultiStairHandler"
)

// Loop repeats the Flow entries between its initiator and terminator.
type Loop interface {
	Type() string
	Name() string
	Params() *Params

	// WriteLoopStartCode opens the Python for-loop; the caller writes the
	// body one indent level deeper.
	WriteLoopStartCode(c *Context) error
	// WriteLoopEndCode closes the Python for-loop and saves loop data.
	WriteLoopEndCode(c *Context) error
	// WriteHandlerJS creates the PsychoJS handler inside the loop's begin
	// function.
	WriteHandlerJS(c *Context) error
}

// NewLoop returns a loop of the named type with default params.
func NewLoop(loopType, name string) (Loop, error) {
	switch loopType {
	case TrialHandlerType:
		return NewTrialHandler(name), nil
	case StairHandlerType:
		return NewStairHandler(name), nil
	case MultiStairHandlerType:
		return NewMultiStairHandler(name), nil
	}
	return nil, fmt.Errorf("unknown loop type %q", loopType)
}

type baseLoop struct {
	typ    string
	params *Params
}

func newBaseLoop(typ, name string) baseLoop {
	ps := NewParams()
	ps.Set("name", &Param{
		Val: name, ValType: ValCode, Label: "Name",
		Hint: "Name of this loop",
	})
	ps.Set("isTrials", &Param{
		Val: "True", ValType: ValBool, Label: "Is trials",
		Hint: "Indicates that this loop generates TRIALS, rather than BLOCKS of trials or stimuli within a trial. It alters how data files are output",
	})
	return baseLoop{typ: typ, params: ps}
}

func (l *baseLoop) Type() string    { return l.typ }
func (l *baseLoop) Name() string    { return l.params.Val("name") }
func (l *baseLoop) Params() *Params { return l.params }

func (l *baseLoop) code(c *Context, name string) (string, error) {
	p := l.params.Get(name)
	if p == nil {
		return noneLiteral(c.Target), nil
	}
	val, err := p.Code(c.Target)
	if err != nil {
		return "", codegen.NewError(l.Name(), "param %s: %v", name, err)
	}
	return val, nil
}

func (l *baseLoop) codes(c *Context, names ...string) ([]any, error) {
	out := make([]any, len(names))
	for i, n := range names {
		v, err := l.code(c, n)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func isTrials(l Loop) bool {
	p := l.Params().Get("isTrials")
	return p == nil || p.Bool()
}

// writeEndCommon closes the Python loop body and writes the completion line.
func writeEndCommon(c *Context, l Loop, completed string) {
	if isTrials(l) {
		c.Lines("thisExp.nextEntry()\n\n")
	}
	c.Buf.SetIndentLevel(-1, true)
	c.Lines("# " + completed + "\n\n")
}

func settingBool(c *Context, name string) bool {
	p := c.Exp.Settings.Params().Get(name)
	return p != nil && p.Bool()
}

// TrialHandler runs its body once per row of a conditions list, nReps times.
type TrialHandler struct {
	baseLoop
}

// NewTrialHandler returns a TrialHandler with default params.
func NewTrialHandler(name string) *TrialHandler {
	l := &TrialHandler{baseLoop: newBaseLoop(TrialHandlerType, name)}
	ps := l.params
	ps.Set("nReps", &Param{Val: "5", ValType: ValNum, Label: "nReps", Hint: "Number of repeats (for each condition)"})
	ps.Set("conditions", &Param{Val: "", ValType: ValStr, Label: "Conditions", Hint: "A list of dictionaries describing the parameters in each condition"})
	ps.Set("conditionsFile", &Param{Val: "", ValType: ValFile, Label: "Conditions", Hint: "Name of a file specifying the parameters for each condition (.csv, .xlsx, or .pkl). Browse to select a file. Right-click to preview file contents, or create a new file."})
	ps.Set("endPoints", &Param{Val: "[0, 1]", ValType: ValNum, Label: "endPoints", Hint: "The start and end of the loop (see flow timeline)"})
	ps.Set("Selected rows", &Param{Val: "", ValType: ValStr, Label: "Selected rows", Hint: "Select just a subset of rows from your condition file (the first is 0 not 1!). Examples: 0, 0:5, 5:-1"})
	ps.Set("loopType", &Param{Val: "random", ValType: ValStr, Label: "loopType", AllowedVals: []string{"random", "sequential", "fullRandom"}, Hint: "How should the next condition value(s) be chosen?"})
	ps.Set("random seed", &Param{Val: "", ValType: ValCode, Label: "random seed", Hint: "To have a fixed random sequence provide an integer of your choosing here. Leave blank to have a new random sequence on each run of the experiment."})
	return l
}

func (l *TrialHandler) trialList(c *Context) (string, error) {
	if file := strings.TrimSpace(l.params.Val("conditionsFile")); file != "" && file != "None" {
		f, err := l.code(c, "conditionsFile")
		if err != nil {
			return "", err
		}
		if c.JS() {
			return f, nil
		}
		if rows := strings.TrimSpace(l.params.Val("Selected rows")); rows != "" && rows != "None" {
			sel, err := l.code(c, "Selected rows")
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("data.importConditions(%s, selection=%s)", f, sel), nil
		}
		return fmt.Sprintf("data.importConditions(%s)", f), nil
	}
	if inline := strings.TrimSpace(l.params.Val("conditions")); inline != "" && inline != "None" {
		if _, err := pyexpr.ParseConditions(inline); err == nil {
			if c.JS() {
				return translateCode(inline, c.Target), nil
			}
			return inline, nil
		}
		c.Logger.Warn("Ignoring unparseable inline conditions.", "loop", l.Name())
	}
	if c.JS() {
		return "undefined", nil
	}
	return "[None]", nil
}

func (l *TrialHandler) WriteLoopStartCode(c *Context) error {
	name := l.Name()
	index := c.Exp.NameSpace.MakeLoopIndex(name)
	vals, err := l.codes(c, "nReps", "loopType", "random seed")
	if err != nil {
		return err
	}
	if strings.TrimSpace(l.params.Val("random seed")) == "" {
		vals[2] = "None"
	}
	trialList, err := l.trialList(c)
	if err != nil {
		return err
	}
	c.Lines(fmt.Sprintf("\n# set up handler to look after randomisation of conditions etc\n"+
		"%[1]s = data.TrialHandler(nReps=%[2]s, method=%[3]s, \n"+
		"    extraInfo=expInfo, originPath=-1,\n"+
		"    trialList=%[5]s,\n"+
		"    seed=%[4]s, name='%[1]s')\n"+
		"thisExp.addLoop(%[1]s)  # add the loop to the experiment\n"+
		"%[6]s = %[1]s.trialList[0]  # so we can initialise stimuli with some values\n"+
		"# abbreviate parameter names if possible (e.g. rgb = %[6]s.rgb)\n"+
		"if %[6]s != None:\n"+
		"    for paramName in %[6]s:\n"+
		"        exec('{} = %[6]s[paramName]'.format(paramName))\n\n",
		name, vals[0], vals[1], vals[2], trialList, index))
	c.In(fmt.Sprintf("for %s in %s:\n", index, name))
	c.Lines(fmt.Sprintf("currentLoop = %[2]s\n"+
		"# abbreviate parameter names if possible (e.g. rgb = %[1]s.rgb)\n"+
		"if %[1]s != None:\n"+
		"    for paramName in %[1]s:\n"+
		"        exec('{} = %[1]s[paramName]'.format(paramName))\n", index, name))
	return nil
}

func (l *TrialHandler) WriteLoopEndCode(c *Context) error {
	name := l.Name()
	nReps, err := l.code(c, "nReps")
	if err != nil {
		return err
	}
	writeEndCommon(c, l, fmt.Sprintf("completed %s repeats of '%s'", nReps, name))

	excel, csv := settingBool(c, "Save excel file"), settingBool(c, "Save csv file")
	if !excel && !csv {
		return nil
	}
	c.Lines(fmt.Sprintf("# get names of stimulus parameters\n"+
		"if %[1]s.trialList in ([], [None], None):\n"+
		"    params = []\n"+
		"else:\n"+
		"    params = %[1]s.trialList[0].keys()\n", name))
	if excel {
		c.Lines(fmt.Sprintf("# save data for this loop\n"+
			"%[1]s.saveAsExcel(filename + '.xlsx', sheetName='%[1]s',\n"+
			"    stimOut=params,\n"+
			"    dataOut=['n','all_mean','all_std', 'all_raw'])\n", name))
	}
	if csv {
		c.Lines(fmt.Sprintf("%[1]s.saveAsText(filename + '%[1]s.csv', delim=',',\n"+
			"    stimOut=params,\n"+
			"    dataOut=['n','all_mean','all_std', 'all_raw'])\n", name))
	}
	return nil
}

func (l *TrialHandler) WriteHandlerJS(c *Context) error {
	name := l.Name()
	nReps, err := l.code(c, "nReps")
	if err != nil {
		return err
	}
	seed := "undefined"
	if strings.TrimSpace(l.params.Val("random seed")) != "" {
		if seed, err = l.code(c, "random seed"); err != nil {
			return err
		}
	}
	trialList, err := l.trialList(c)
	if err != nil {
		return err
	}
	method := strings.ToUpper(l.params.Val("loopType"))
	c.Lines(fmt.Sprintf("// set up handler to look after randomisation of conditions etc\n"+
		"%[1]s = new TrialHandler({\n"+
		"  psychoJS: psychoJS,\n"+
		"  nReps: %[2]s, method: TrialHandler.Method.%[3]s,\n"+
		"  extraInfo: expInfo, originPath: undefined,\n"+
		"  trialList: %[4]s,\n"+
		"  seed: %[5]s, name: '%[1]s'\n"+
		"});\n", name, nReps, method, trialList, seed))
	return nil
}

// StairHandler adjusts a single value up or down depending on responses.
type StairHandler struct {
	baseLoop
}

// NewStairHandler returns a StairHandler with default params.
func NewStairHandler(name string) *StairHandler {
	l := &StairHandler{baseLoop: newBaseLoop(StairHandlerType, name)}
	ps := l.params
	ps.Set("nReps", &Param{Val: "50", ValType: ValNum, Label: "nReps", Hint: "(Minimum) number of trials in the staircase"})
	ps.Set("start value", &Param{Val: "0.5", ValType: ValNum, Label: "start value", Hint: "The initial value of the parameter"})
	ps.Set("max value", &Param{Val: "1", ValType: ValNum, Label: "max value", Hint: "The maximum value the parameter can take"})
	ps.Set("min value", &Param{Val: "0", ValType: ValNum, Label: "min value", Hint: "The minimum value the parameter can take"})
	ps.Set("step sizes", &Param{Val: "[0.8, 0.8, 0.4, 0.4, 0.2]", ValType: ValList, Label: "step sizes", Hint: "The size of the jump at each step (can change on each 'reversal')"})
	ps.Set("step type", &Param{Val: "db", ValType: ValStr, Label: "step type", AllowedVals: []string{"db", "log", "lin"}, Hint: "The units of the step size (e.g. 'linear' will add/subtract that value each step, whereas 'log' will ad that many log units)"})
	ps.Set("N up", &Param{Val: "1", ValType: ValInt, Label: "N up", Hint: "The number of 'incorrect' answers before the value goes up"})
	ps.Set("N down", &Param{Val: "3", ValType: ValInt, Label: "N down", Hint: "The number of 'correct' answers before the value goes down"})
	ps.Set("N reversals", &Param{Val: "0", ValType: ValInt, Label: "N reversals", Hint: "Minimum number of times the staircase must change direction before ending"})
	ps.Set("endPoints", &Param{Val: "[0, 1]", ValType: ValNum, Label: "endPoints", Hint: "Where to loop from and to (see values currently shown in the flow view)"})
	return l
}

func (l *StairHandler) WriteLoopStartCode(c *Context) error {
	name := l.Name()
	index := c.Exp.NameSpace.MakeLoopIndex(name)
	v, err := l.codes(c, "start value", "step sizes", "step type", "N reversals", "nReps", "N up", "N down", "min value", "max value")
	if err != nil {
		return err
	}
	c.Lines(fmt.Sprintf("\n# --------Prepare to start Staircase %q --------\n"+
		"# set up handler to look after next chosen value etc\n"+
		"%s = data.StairHandler(startVal=%s, extraInfo=expInfo,\n"+
		"    stepSizes=%s, stepType=%s,\n"+
		"    nReversals=%s, nTrials=%s, \n"+
		"    nUp=%s, nDown=%s,\n"+
		"    minVal=%s, maxVal=%s,\n"+
		"    originPath=-1, name='%s')\n",
		name, name, v[0], v[1], v[2], v[3], v[4], v[5], v[6], v[7], v[8], name))
	c.Lines(fmt.Sprintf("thisExp.addLoop(%[1]s)  # add the loop to the experiment\n"+
		"level = %[2]s = %[3]s  # initialise some vals\n\n", name, index, v[0]))
	c.In(fmt.Sprintf("for %s in %s:\n", index, name))
	c.Lines(fmt.Sprintf("currentLoop = %s\nlevel = %s\n", name, index))
	return nil
}

func (l *StairHandler) WriteLoopEndCode(c *Context) error {
	name := l.Name()
	writeEndCommon(c, l, "staircase completed")
	if settingBool(c, "Save excel file") {
		c.Lines(fmt.Sprintf("%[1]s.saveAsExcel(filename + '.xlsx', sheetName='%[1]s')\n", name))
	}
	if settingBool(c, "Save csv file") {
		c.Lines(fmt.Sprintf("%[1]s.saveAsText(filename + '%[1]s.csv', delim=',')\n", name))
	}
	return nil
}

func (l *StairHandler) WriteHandlerJS(*Context) error {
	return codegen.NewError(l.Name(), "StairHandler loops are not supported by PsychoJS")
}

// MultiStairHandler interleaves several staircases defined in a conditions
// file.
type MultiStairHandler struct {
	baseLoop
}

// NewMultiStairHandler returns a MultiStairHandler with default params.
func NewMultiStairHandler(name string) *MultiStairHandler {
	l := &MultiStairHandler{baseLoop: newBaseLoop(MultiStairHandlerType, name)}
	ps := l.params
	ps.Set("nReps", &Param{Val: "50", ValType: ValNum, Label: "nReps", Hint: "(Minimum) number of trials in *each* staircase"})
	ps.Set("stairType", &Param{Val: "simple", ValType: ValStr, Label: "stairType", AllowedVals: []string{"simple", "QUEST", "questplus"}, Hint: "How to select the next staircase to run"})
	ps.Set("switchStairs", &Param{Val: "random", ValType: ValStr, Label: "switchStairs", AllowedVals: []string{"random", "sequential", "fullRandom"}, Hint: "How to select the next staircase to run"})
	ps.Set("conditions", &Param{Val: "", ValType: ValStr, Label: "conditions", Hint: "A list of dictionaries describing the differences between each staircase"})
	ps.Set("conditionsFile", &Param{Val: "", ValType: ValFile, Label: "conditions", Hint: "An xlsx or csv file specifying the parameters for each condition"})
	ps.Set("endPoints", &Param{Val: "[0, 1]", ValType: ValNum, Label: "endPoints", Hint: "Where to loop from and to (see values currently shown in the flow view)"})
	return l
}

func (l *MultiStairHandler) WriteLoopStartCode(c *Context) error {
	name := l.Name()
	v, err := l.codes(c, "conditionsFile", "stairType", "nReps", "switchStairs")
	if err != nil {
		return err
	}
	c.Lines(fmt.Sprintf("\n# set up handler to look after randomisation of trials etc\n"+
		"conditions = data.importConditions(%s)\n"+
		"%s = data.MultiStairHandler(stairType=%s, name='%s',\n"+
		"    nTrials=%s,\n"+
		"    conditions=conditions,\n"+
		"    method=%s,\n"+
		"    originPath=-1)\n", v[0], name, v[1], name, v[2], v[3]))
	c.Lines(fmt.Sprintf("thisExp.addLoop(%[1]s)  # add the loop to the experiment\n"+
		"# initialise values for first condition\n"+
		"level = %[1]s._nextIntensity  # initialise some vals\n"+
		"condition = %[1]s.currentStaircase.condition\n\n", name))
	c.In(fmt.Sprintf("for level, condition in %s:\n", name))
	c.Lines(fmt.Sprintf("currentLoop = %s\n"+
		"# abbreviate parameter names if possible (e.g. rgb=condition.rgb)\n"+
		"for paramName in condition:\n"+
		"    exec(paramName + '= condition[paramName]')\n", name))
	return nil
}

func (l *MultiStairHandler) WriteLoopEndCode(c *Context) error {
	name := l.Name()
	writeEndCommon(c, l, "all staircases completed")
	if settingBool(c, "Save excel file") {
		c.Lines(fmt.Sprintf("%[1]s.saveAsExcel(filename + '.xlsx', sheetName='%[1]s')\n", name))
	}
	if settingBool(c, "Save csv file") {
		c.Lines(fmt.Sprintf("%[1]s.saveAsText(filename + '%[1]s', delim=',')\n", name))
	}
	return nil
}

func (l *MultiStairHandler) WriteHandlerJS(c *Context) error {
	name := l.Name()
	v, err := l.codes(c, "conditionsFile", "nReps")
	if err != nil {
		return err
	}
	stairType := strings.ToUpper(l.params.Val("stairType"))
	method := strings.ToUpper(l.params.Val("switchStairs"))
	c.Lines(fmt.Sprintf("// set up handler to look after randomisation of trials etc\n"+
		"%[1]s = new data.MultiStairHandler({\n"+
		"  stairType: MultiStairHandler.StaircaseType.%[2]s,\n"+
		"  psychoJS: psychoJS,\n"+
		"  name: '%[1]s',\n"+
		"  varName: 'intensity',\n"+
		"  nTrials: %[3]s,\n"+
		"  conditions: %[4]s,\n"+
		"  method: TrialHandler.Method.%[5]s\n"+
		"});\n", name, stairType, v[1], v[0], method))
	return nil
}
