package namespace

var numpyNames = []string{
	"sin", "cos", "tan", "log", "log10", "pi", "average", "sqrt", "std",
	"deg2rad", "rad2deg", "linspace", "asarray",
	"random", "randint", "normal", "shuffle", "randchoice",
	"np",
}

var keywordNames = []string{
	// Python keywords.
	"False", "None", "True", "and", "as", "assert", "async", "await",
	"break", "class", "continue", "def", "del", "elif", "else", "except",
	"finally", "for", "from", "global", "if", "import", "in", "is",
	"lambda", "nonlocal", "not", "or", "pass", "raise", "return", "try",
	"while", "with", "yield",
	// Builtins.
	"abs", "all", "any", "bin", "bool", "bytearray", "bytes", "callable",
	"chr", "classmethod", "compile", "complex", "copyright", "credits",
	"delattr", "dict", "dir", "divmod", "enumerate", "eval", "exec", "exit",
	"filter", "float", "format", "frozenset", "getattr", "globals",
	"hasattr", "hash", "help", "hex", "id", "input", "int", "isinstance",
	"issubclass", "iter", "len", "license", "list", "locals", "map", "max",
	"memoryview", "min", "next", "object", "oct", "open", "ord", "pow",
	"print", "property", "quit", "range", "repr", "reversed", "round", "set",
	"setattr", "slice", "sorted", "staticmethod", "str", "sum", "super",
	"tuple", "type", "vars", "zip", "Exception",
	"self",
}

var psychopyNames = []string{
	"core", "data", "event", "gui", "logging", "visual", "sound", "monitors",
	"hardware", "misc", "clock", "colors", "constants", "filters", "info",
	"layout", "microphone", "parallel", "plugins", "preferences", "session",
	"tools", "web", "iohub", "locale_setup", "prefs",
	"psychopy", "os",
}

var constantNames = []string{
	"NOT_STARTED", "STARTED", "PLAYING", "PAUSED", "STOPPED", "FINISHED",
	"PRESSED", "RELEASED", "FOREVER",
}

var builderNames = []string{
	"KeyResponse", "keyboard", "buttons", "continueRoutine", "expInfo",
	"expName", "thisExp", "filename", "logFile", "paramName", "t", "frameN",
	"currentLoop", "dlg", "_thisDir", "endExpNow", "globalClock",
	"routineTimer", "frameDur", "theseKeys", "win", "x", "y", "level",
	"component", "thisComponent",
}
