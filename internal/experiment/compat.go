package experiment

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/vk/psyexpgo/internal/pyexpr"
)

// codeSections are the Code component params that older files stored with
// the plain "code" type.
var codeSections = []string{
	"Before Experiment", "Begin Experiment", "Begin Routine", "Each Frame",
	"End Routine", "End Experiment",
	"Before JS Experiment", "Begin JS Experiment", "Begin JS Routine", "Each JS Frame",
	"End JS Routine", "End JS Experiment",
}

// ignoredParams were removed from the format and are dropped on load.
var ignoredParams = []string{
	"storeResponseTime", "choiceLabelsAboveLine", "lowAnchorText", "highAnchorText",
	"customize_everything",
}

// quietParams are known to newer or older files and are kept without a
// warning.
var quietParams = []string{
	"JS libs", "OSF Project ID", "Force stereo", "Save hdf5 file", "Resources",
	"Completed URL", "Incomplete URL", "Export HTML", "mgMove", "mgBlink", "mgSaccade",
	"gazeCursor", "eyetracker", "keyboardBackend", "Window scaling", "frameRate",
	"backgroundImg", "backgroundFit", "measureFrameRate", "runMode", "Data file delimiter",
	"clockFormat", "elDataFileName", "elLiveFiltering", "elTrackingMode", "elTrackEyes",
	"elPupilAlgorithm", "elPupilMeasure", "elSampleRate", "elAddress", "elModel",
	"Experiment info", "tbLicenseFile", "tbModel", "tbSampleRate", "tbSerialNo",
	"ecSampleRate", "gpAddress", "gpPort", "plPupillometryOnly", "plSurfaceName",
	"plConfidenceThreshold", "plPupilRemoteAddress", "plPupilRemotePort",
	"plPupilRemoteTimeoutMs", "plPupilCaptureRecordingEnabled",
	"plPupilCaptureRecordingLocation", "Audio latency priority", "Audio lib",
}

// ensureParam returns the named param, creating an unknown one if needed.
func ensureParam(params *Params, name string, valType ValType) *Param {
	if p := params.Get(name); p != nil {
		return p
	}
	p := &Param{ValType: valType, InputType: "inv", Categ: "Unknown", Label: name,
		Hint: "This parameter is not known by this version of PsychoPy."}
	params.Set(name, p)
	return p
}

func hasParam(nodes []xmlParam, name string) bool {
	return slices.ContainsFunc(nodes, func(p xmlParam) bool { return p.Name == name })
}

// applyXMLParam stores one loaded param, migrating names and values written
// by older versions of the format.
func applyXMLParam(logger *slog.Logger, params *Params, node xmlParam, siblings []xmlParam) {
	name := node.Name
	val := deref(node.Val)
	valType := deref(node.ValType)
	if name != "advancedParams" {
		val = strings.ReplaceAll(val, "&#10;", "\n")
	}

	migrated := func(to string) {
		logger.Debug("Migrated legacy param.", "from", name, "to", to)
	}

	switch {
	case slices.Contains(ignoredParams, name):
		logger.Debug("Dropped legacy param.", "param", name)
		return

	case name == "startTime":
		ensureParam(params, "startType", ValStr).Val = TimeS
		ensureParam(params, "startVal", ValCode).Val = val
		migrated("startVal")
		return

	case name == "duration":
		ensureParam(params, "stopType", ValStr).Val = DurationS
		ensureParam(params, "stopVal", ValCode).Val = val
		migrated("stopVal")
		return

	case name == "times":
		times, err := pyexpr.ParseLiteral(val)
		items, ok := times.([]any)
		if err != nil || !ok || len(items) != 2 {
			logger.Warn("Could not migrate legacy times param.", "value", val)
			return
		}
		ensureParam(params, "startType", ValStr).Val = TimeS
		ensureParam(params, "startVal", ValCode).Val = pyexpr.FormatValue(items[0])
		ensureParam(params, "stopType", ValStr).Val = TimeS
		ensureParam(params, "stopVal", ValCode).Val = pyexpr.FormatValue(items[1])
		migrated("startVal/stopVal")
		return

	case name == "forceEndTrial":
		ensureParam(params, "forceEndRoutine", ValBool).Val = pyBool(parseBool(val))
		migrated("forceEndRoutine")
		return

	case name == "forceEndTrialOnPress":
		ensureParam(params, "forceEndRoutineOnPress", ValStr).Val = pressRule(val)
		migrated("forceEndRoutineOnPress")
		return

	case name == "forceEndRoutineOnPress":
		ensureParam(params, name, ValStr).Val = pressRule(val)
		return

	case name == "trialList":
		ensureParam(params, "conditions", ValStr).Val = val
		migrated("conditions")
		return

	case name == "trialListFile":
		ensureParam(params, "conditionsFile", ValFile).Val = val
		migrated("conditionsFile")
		return

	case slices.Contains(codeSections, name):
		p := ensureParam(params, name, ValExtendedCode)
		p.Val = val
		p.ValType = ValExtendedCode
		return

	case name == "nVertices":
		if !hasParam(siblings, "shape") {
			shape := "regular polygon..."
			switch val {
			case "2":
				shape = "line"
			case "3":
				shape = "triangle"
			case "4":
				shape = "rectangle"
			}
			ensureParam(params, "shape", ValStr).Val = shape
			migrated("shape")
		}
		ensureParam(params, name, ValType(valType)).Val = val

	case name == "allowedKeys" && valType == string(ValStr):
		ensureParam(params, name, ValCode).Val = migrateAllowedKeys(val)
		migrated("allowedKeys (code)")

	case name == "correctIf":
		corrAns := val
		for _, prefix := range []string{"resp.keys==unicode(", "resp.keys==str("} {
			corrAns = strings.ReplaceAll(corrAns, prefix, "")
		}
		corrAns = strings.ReplaceAll(corrAns, ")", "")
		name = "correctAns"
		ensureParam(params, name, ValStr).Val = corrAns
		migrated(name)

	case strings.Contains(name, "olour"):
		name = strings.ReplaceAll(name, "olour", "olor")
		ensureParam(params, name, ValType(valType)).Val = val
		migrated(name)

	case name == "Saved data folder":
		params.Set(name, &Param{Val: val, ValType: ValCode, Categ: "Data", Label: name,
			Hint: "Name of the folder in which to save data and log files (blank defaults to the builder pref)"})

	default:
		if val == "window units" {
			val = "from exp settings"
		}
		if p := params.Get(name); p != nil {
			p.Val = val
		} else {
			p := ensureParam(params, name, ValType(valType))
			p.Val = val
			if !slices.Contains(quietParams, name) {
				logger.Warn("Parameter is not known to this version but has come from the experiment file. The experiment may not run correctly.", "param", name)
			}
		}
	}

	p := params.Get(name)
	if p == nil {
		return
	}
	if node.ValType != nil {
		p.ValType = ValType(valType)
		switch {
		case name == "allowedKeys" && valType == string(ValStr):
			p.ValType = ValCode
		case name == "Selected rows":
			p.ValType = ValStr
		}
		if p.ValType == ValBool {
			p.Val = pyBool(parseBool(p.Val))
		}
	}
	if node.Updates != nil {
		u := *node.Updates
		if u == "None" {
			u = ""
		}
		p.Updates = u
	}
}

func pressRule(val string) string {
	switch val {
	case "True":
		return "any click"
	case "False":
		return "never"
	}
	return val
}

// migrateAllowedKeys converts the old string form of allowed keys, such as
// "ynq", into a code expression.
func migrateAllowedKeys(val string) string {
	switch {
	case val == "":
		return val
	case strings.HasPrefix(val, "$"):
		return val[1:]
	case strings.HasPrefix(val, "[") && strings.HasSuffix(val, "]"):
		return val[1 : len(val)-1]
	case slices.Contains([]string{"return", "space", "left", "right", "escape"}, val):
		return val
	}
	keys := make([]string, 0, len(val))
	for _, r := range val {
		keys = append(keys, string(r))
	}
	return pyexpr.FormatValue(keys)
}
