package experiment

import (
	"fmt"
	"strings"

	"github.com/vk/psyexpgo/internal/codegen"
	"github.com/vk/psyexpgo/internal/pyexpr"
)

// SettingsType is the XML tag and type name of the experiment settings.
const SettingsType = "SettingsComponent"

// Settings holds the experiment-wide params and writes the script preamble,
// the window setup and the closing code.
type Settings struct {
	*BaseComponent
}

// NewSettings returns settings populated with their default params.
func NewSettings(expName string) *Settings {
	b := NewBareComponent(SettingsType, "settings", "Custom")
	ps := b.params
	ps.Delete("disabled")
	set := func(name, val string, vt ValType, categ, hint string) {
		ps.Set(name, &Param{Val: val, ValType: vt, Categ: categ, Label: name, Hint: hint})
	}
	set("expName", expName, ValStr, "Basic", "Name of the entire experiment (taken by default from the filename on save)")
	set("Show info dlg", "True", ValBool, "Basic", "Start the experiment with a dialog to set info (e.g.participant or condition)")
	set("Enable Escape", "True", ValBool, "Basic", "Enable the <esc> key, to allow subjects to quit / break out of the experiment")
	set("Experiment info", "{'participant':'', 'session':'001'}", ValCode, "Basic",
		"The info to present in a dialog box. Right-click to check syntax and preview the dialog box.")
	set("Use version", "", ValStr, "Basic", "The version of PsychoPy to use when running the experiment.")
	set("Data filename", "u'data/%s_%s_%s' % (expInfo['participant'], expName, expInfo['date'])", ValCode, "Data",
		"Code to create your custom file name base. Don't give a file extension - this will be added.")
	set("Save log file", "True", ValBool, "Data", "Save a detailed log (more detailed than the excel/csv files) of the entire experiment")
	set("Save wide csv file", "True", ValBool, "Data", "Save data from loops in comma-separated-value (.csv) format for maximum portability")
	set("Save csv file", "False", ValBool, "Data", "Save data from loops in comma-separated-value (.csv) format for maximum portability")
	set("Save excel file", "False", ValBool, "Data", "Save data from loops in Excel (.xlsx) format")
	set("Save psydat file", "True", ValBool, "Data", "Save data from loops in psydat format. This is useful for python programmers to generate analysis scripts.")
	set("logging level", "exp", ValCode, "Data", "How much output do you want in the log files? ('error' is fewest messages, 'debug' is most)")
	set("Full-screen window", "True", ValBool, "Screen", "Run the experiment full-screen (recommended)")
	set("Window size (pixels)", "[1024, 768]", ValCode, "Screen", "Size of window (if not fullscreen)")
	set("Screen", "1", ValNum, "Screen", "Which physical screen to run on (1 or 2)")
	set("Monitor", "testMonitor", ValStr, "Screen", "Name of the monitor (from Monitor Center). Right-click to go there, then copy & paste a monitor name here.")
	set("color", "$[0,0,0]", ValStr, "Screen", "Color of the screen (e.g. black, $[1.0,1.0,1.0], $variable. Right-click to bring up a color-picker.)")
	set("colorSpace", "rgb", ValStr, "Screen", "Needed if color is defined numerically (see, PsychoPy documentation on color spaces)")
	set("Units", "height", ValStr, "Screen", "Units to use for window/stimulus coordinates (e.g. cm, pix, deg)")
	set("blendMode", "avg", ValStr, "Screen", "Should new stimuli be added or averaged with the stimuli that have been drawn already")
	set("Show mouse", "False", ValBool, "Screen", "Should the mouse be visible on screen?")
	set("winBackend", "pyglet", ValStr, "Screen", "What Python package should be used behind the scenes for drawing windows?")
	set("HTML path", "html", ValStr, "Online", "Place the HTML files will be saved locally ")
	return &Settings{BaseComponent: b}
}

// PsychopyLibs lists the libraries the preamble and window code use.
func (s *Settings) PsychopyLibs() []string {
	return []string{"gui", "visual", "core", "data", "event", "logging"}
}

// ExpName returns the experiment name, falling back to "untitled".
func (s *Settings) ExpName() string {
	if name := strings.TrimSpace(s.params.Val("expName")); name != "" {
		return name
	}
	return "untitled"
}

func (s *Settings) expInfo(c *Context) (string, error) {
	src := strings.TrimSpace(s.params.Val("Experiment info"))
	if src == "" {
		src = "{}"
	}
	v, err := pyexpr.ParseLiteral(src)
	if err != nil {
		return "", codegen.NewError("settings", "error in \"Experiment info\" settings (expected a dict): %v", err)
	}
	if _, ok := v.(pyexpr.Dict); !ok {
		return "", codegen.NewError("settings", "error in \"Experiment info\" settings (expected a dict)")
	}
	if c.JS() {
		return pyexpr.ToJS(src)
	}
	return pyexpr.FormatValue(v), nil
}

func (s *Settings) code(c *Context, name string) (string, error) {
	p := s.params.Get(name)
	if p == nil {
		return noneLiteral(c.Target), nil
	}
	val, err := p.Code(c.Target)
	if err != nil {
		return "", codegen.NewError("settings", "param %s: %v", name, err)
	}
	return val, nil
}

// WriteStartCode writes the session preamble: experiment info, the optional
// dialog and, for Python, the data handler and log file.
func (s *Settings) WriteStartCode(c *Context) error {
	info, err := s.expInfo(c)
	if err != nil {
		return err
	}
	expName := s.ExpName()
	version := c.Exp.PsychopyVersion

	if c.JS() {
		c.Lines(fmt.Sprintf("// store info about the experiment session:\n"+
			"let expName = %s;  // from the Builder filename that created this script\n"+
			"let expInfo = %s;\n\n", pyexpr.JSQuote(expName), info))
		return nil
	}

	c.Lines("# Ensure that relative paths start from the same directory as this script\n" +
		"_thisDir = os.path.dirname(os.path.abspath(__file__))\n" +
		"os.chdir(_thisDir)\n\n" +
		"# Store info about the experiment session\n")
	c.Lines(fmt.Sprintf("psychopyVersion = %s\n"+
		"expName = %s  # from the Builder filename that created this script\n"+
		"expInfo = %s\n", pyexpr.Repr(version), pyexpr.Repr(expName), info))
	if s.params.Get("Show info dlg").Bool() {
		c.Lines("dlg = gui.DlgFromDict(dictionary=expInfo, sortKeys=False, title=expName)\n" +
			"if dlg.OK == False:\n" +
			"    core.quit()  # user pressed cancel\n")
	}
	c.Lines("expInfo['date'] = data.getDateStr()  # add a simple timestamp\n" +
		"expInfo['expName'] = expName\n" +
		"expInfo['psychopyVersion'] = psychopyVersion\n\n")

	filename, err := s.code(c, "Data filename")
	if err != nil {
		return err
	}
	c.Lines("# Data file name stem = absolute path + name; later add .psyexp, .csv, .log, etc\n" +
		"filename = _thisDir + os.sep + " + filename + "\n\n")

	c.Lines(fmt.Sprintf("# An ExperimentHandler isn't essential but helps with data saving\n"+
		"thisExp = data.ExperimentHandler(name=expName, version='',\n"+
		"    extraInfo=expInfo, runtimeInfo=None,\n"+
		"    savePickle=%s, saveWideText=%s,\n"+
		"    dataFileName=filename)\n",
		pyBool(s.params.Get("Save psydat file").Bool()), pyBool(s.params.Get("Save wide csv file").Bool())))
	if s.params.Get("Save log file").Bool() {
		level := strings.ToUpper(strings.TrimSpace(s.params.Val("logging level")))
		if level == "" {
			level = "EXP"
		}
		c.Lines("# save a log file for detail verbose info\n" +
			"logFile = logging.LogFile(filename+'.log', level=logging." + level + ")\n")
	}
	c.Lines("logging.console.setLevel(logging.WARNING)  # this outputs to the screen, not a file\n\n" +
		"endExpNow = False  # flag for 'escape' or other condition => quit the exp\n" +
		"frameTolerance = 0.001  # how close to onset before 'same' frame\n")
	return nil
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// WriteInitCode opens the window. For JavaScript it also creates the
// PsychoJS instance and the schedulers the Flow is added to.
func (s *Settings) WriteInitCode(c *Context) error {
	size, err := s.code(c, "Window size (pixels)")
	if err != nil {
		return err
	}
	color, err := s.code(c, "color")
	if err != nil {
		return err
	}
	colorSpace, err := s.code(c, "colorSpace")
	if err != nil {
		return err
	}
	units, err := s.code(c, "Units")
	if err != nil {
		return err
	}
	fullScr := s.params.Get("Full-screen window").Bool()

	if c.JS() {
		c.Lines(fmt.Sprintf("// init psychoJS:\n"+
			"const psychoJS = new PsychoJS({\n"+
			"  debug: true\n"+
			"});\n\n"+
			"// open window:\n"+
			"psychoJS.openWindow({\n"+
			"  fullscr: %t,\n"+
			"  color: new util.Color(%s),\n"+
			"  units: %s,\n"+
			"  waitBlanking: true\n"+
			"});\n", fullScr, color, units))
		if s.params.Get("Show info dlg").Bool() {
			c.Lines("// schedule the experiment:\n" +
				"psychoJS.schedule(psychoJS.gui.DlgFromDict({\n" +
				"  dictionary: expInfo,\n" +
				"  title: expName\n" +
				"}));\n")
		}
		c.Lines("\nconst flowScheduler = new Scheduler(psychoJS);\n" +
			"const dialogCancelScheduler = new Scheduler(psychoJS);\n" +
			"psychoJS.scheduleCondition(function() { return (psychoJS.gui.dialogComponent.button === 'OK'); }, flowScheduler, dialogCancelScheduler);\n\n" +
			"// flowScheduler gets run if the participants presses OK\n" +
			"flowScheduler.add(updateInfo); // add timeStamp\n" +
			"flowScheduler.add(experimentInit);\n")
		return nil
	}

	screen := s.screenIndex()
	winType, err := s.code(c, "winBackend")
	if err != nil {
		return err
	}
	blend, err := s.code(c, "blendMode")
	if err != nil {
		return err
	}
	monitor, err := s.code(c, "Monitor")
	if err != nil {
		return err
	}
	c.Lines("\n# Setup the Window\n")
	c.Lines(fmt.Sprintf("win = visual.Window(\n"+
		"    size=%s, fullscr=%s, screen=%d, \n"+
		"    winType=%s, allowGUI=%s, allowStencil=False,\n"+
		"    monitor=%s, color=%s, colorSpace=%s,\n"+
		"    blendMode=%s, useFBO=True, \n"+
		"    units=%s)\n",
		size, pyBool(fullScr), screen, winType, pyBool(s.params.Get("Show mouse").Bool()),
		monitor, color, colorSpace, blend, units))
	c.Lines("# store frame rate of monitor if we can measure it\n" +
		"expInfo['frameRate'] = win.getActualFrameRate()\n" +
		"if expInfo['frameRate'] != None:\n" +
		"    frameDur = 1.0 / round(expInfo['frameRate'])\n" +
		"else:\n" +
		"    frameDur = 1.0 / 60.0  # could not measure, so guess\n")
	return nil
}

// WriteSetupCodeJS finishes the scheduler set up and starts PsychoJS with the
// given resources.
func (s *Settings) WriteSetupCodeJS(c *Context, resources []string) {
	c.Lines("flowScheduler.add(quitPsychoJS, '', true);\n\n" +
		"// quit if user presses Cancel in dialog box:\n" +
		"dialogCancelScheduler.add(quitPsychoJS, '', false);\n\n" +
		"psychoJS.start({\n" +
		"  expName: expName,\n" +
		"  expInfo: expInfo,\n")
	if len(resources) == 0 {
		c.Lines("  resources: []\n")
	} else {
		c.Lines("  resources: [\n")
		for i, r := range resources {
			sep := ","
			if i == len(resources)-1 {
				sep = ""
			}
			c.Lines(fmt.Sprintf("    {'name': %s, 'path': %s}%s\n", pyexpr.JSQuote(r), pyexpr.JSQuote(r), sep))
		}
		c.Lines("  ]\n")
	}
	c.Lines("});\n\n" +
		"psychoJS.experimentLogger.setLevel(core.Logger.ServerLevel.EXP);\n\n")

	c.Lines(fmt.Sprintf("var frameDur;\n"+
		"async function updateInfo() {\n"+
		"  expInfo['date'] = util.MonotonicClock.getDateStr();  // add a simple timestamp\n"+
		"  expInfo['expName'] = expName;\n"+
		"  expInfo['psychopyVersion'] = %s;\n"+
		"  expInfo['OS'] = window.navigator.platform;\n\n"+
		"  // store frame rate of monitor if we can measure it successfully\n"+
		"  expInfo['frameRate'] = psychoJS.window.getActualFrameRate();\n"+
		"  if (typeof expInfo['frameRate'] !== 'undefined')\n"+
		"    frameDur = 1.0 / Math.round(expInfo['frameRate']);\n"+
		"  else\n"+
		"    frameDur = 1.0 / 60.0; // couldn't get a reliable measure so guess\n\n"+
		"  // add info from the URL:\n"+
		"  util.addInfoFromUrl(expInfo);\n\n"+
		"  return Scheduler.Event.NEXT;\n"+
		"}\n\n", pyexpr.JSQuote(c.Exp.PsychopyVersion)))
}

// WriteExperimentEndCode saves the data files and closes the window.
func (s *Settings) WriteExperimentEndCode(c *Context) error {
	if c.JS() {
		c.Lines("psychoJS.window.close();\n" +
			"psychoJS.quit({message: message, isCompleted: isCompleted});\n\n" +
			"return Scheduler.Event.QUIT;\n")
		return nil
	}
	c.Lines("\n# Flip one final time so any remaining win.callOnFlip() \n" +
		"# and win.timeOnFlip() tasks get executed before quitting\n" +
		"win.flip()\n\n" +
		"# these shouldn't be strictly necessary (should auto-save)\n")
	if s.params.Get("Save wide csv file").Bool() {
		c.Lines("thisExp.saveAsWideText(filename+'.csv', delim='auto')\n")
	}
	if s.params.Get("Save psydat file").Bool() {
		c.Lines("thisExp.saveAsPickle(filename)\n")
	}
	if s.params.Get("Save log file").Bool() {
		c.Lines("logging.flush()\n")
	}
	c.Lines("# make sure everything is closed down\n" +
		"thisExp.abort()  # or data files will save again on exit\n" +
		"win.close()\n" +
		"core.quit()\n")
	return nil
}

// screenIndex converts the one-based Screen param to a window index.
func (s *Settings) screenIndex() int {
	f, ok := s.params.Get("Screen").Float()
	if !ok || f < 1 {
		return 0
	}
	return int(f) - 1
}
