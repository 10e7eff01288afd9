package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/psyexpgo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("psyexpc", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
psyexpc - Compiles Builder experiments into PsychoPy or PsychoJS scripts.

Usage:
  psyexpc [options] [EXPERIMENT_PATH]

Arguments:
  EXPERIMENT_PATH
    Path to a single .psyexp file or a directory containing .psyexp files.
    May be omitted when a project file lists the experiments to compile.

Options:
`)
		flagSet.PrintDefaults()
	}

	outFlag := flagSet.String("outfile", "", "Output script, or output directory when compiling a directory.")
	oFlag := flagSet.String("o", "", "Output script (shorthand).")
	targetFlag := flagSet.String("target", "", "Script target. Options: 'PsychoPy' or 'PsychoJS' (default from project, else PsychoPy).")
	tFlag := flagSet.String("t", "", "Script target (shorthand).")
	configFlag := flagSet.String("config", "", "Path to the HCL project file or directory.")
	cFlag := flagSet.String("c", "", "Path to the HCL project file (shorthand).")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	logFileFlag := flagSet.String("log-file", "", "Also write JSON logs to this file.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	projectPath := firstNonEmpty(*configFlag, *cFlag)
	slog.Debug("Input paths determined.", "path", path, "project", projectPath)

	if path == "" && projectPath == "" {
		slog.Debug("No experiment path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ExperimentPath: path,
		ProjectPath:    projectPath,
		OutFile:        firstNonEmpty(*outFlag, *oFlag),
		Target:         firstNonEmpty(*targetFlag, *tFlag),
		LogFormat:      logFormat,
		LogLevel:       logLevel,
		LogFile:        *logFileFlag,
	})

	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
