package codegen

import (
	"fmt"
	"strings"
)

// Target identifies the language a script is generated for.
type Target string

const (
	// PsychoPy is the Python target run by the desktop runtime.
	PsychoPy Target = "PsychoPy"
	// PsychoJS is the JavaScript target run in the browser.
	PsychoJS Target = "PsychoJS"
)

// ParseTarget resolves a user-supplied target name. It accepts the canonical
// names and a few common aliases, case-insensitively.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "psychopy", "py", "python":
		return PsychoPy, nil
	case "psychojs", "js", "javascript":
		return PsychoJS, nil
	default:
		return "", fmt.Errorf("unknown target %q: must be 'PsychoPy' or 'PsychoJS'", s)
	}
}

// Indent returns one level of indentation for the target.
func (t Target) Indent() string {
	if t == PsychoJS {
		return "  "
	}
	return "    "
}

// Comment returns the line-comment prefix for the target.
func (t Target) Comment() string {
	if t == PsychoJS {
		return "//"
	}
	return "#"
}

// Ext returns the file extension of scripts generated for the target.
func (t Target) Ext() string {
	if t == PsychoJS {
		return ".js"
	}
	return ".py"
}

func (t Target) String() string {
	return string(t)
}
