package code

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vk/psyexpgo/internal/experiment"
	"github.com/vk/psyexpgo/internal/pyexpr"
	"github.com/vk/psyexpgo/internal/registry"
)

// Type is the component type name used in experiment files.
const Type = "CodeComponent"

// Code Type values.
const (
	CodeTypePy   = "Py"
	CodeTypeJS   = "JS"
	CodeTypeBoth = "Both"
	CodeTypeAuto = "Auto->JS"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the code component with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterComponent(Type, &registry.RegisteredComponent{
		New:      func(name string) experiment.Component { return New(name) },
		Category: "Custom",
	})
}

// sections pairs each Python code param with its JavaScript twin.
var sections = []struct {
	py, js, hint string
}{
	{"Before Experiment", "Before JS Experiment", "Code to run before the experiment starts (initialization)"},
	{"Begin Experiment", "Begin JS Experiment", "Code at the start of the experiment"},
	{"Begin Routine", "Begin JS Routine", "Code to be run at the start of each repeat of the Routine (e.g. each trial)"},
	{"Each Frame", "Each JS Frame", "Code to be run on every video frame during for the duration of this Routine"},
	{"End Routine", "End JS Routine", "Code at the end of this repeat of the Routine (e.g. getting/storing responses)"},
	{"End Experiment", "End JS Experiment", "Code at the end of the entire experiment (e.g. saving files, resetting computer)"},
}

// Component inserts user code into each phase of the script.
type Component struct {
	*experiment.BaseComponent
}

// New returns an empty code component.
func New(name string) *Component {
	b := experiment.NewBareComponent(Type, name, "Custom")
	ps := b.Params()
	ps.Set("Code Type", &experiment.Param{
		Val: CodeTypeAuto, ValType: experiment.ValStr, Label: "Code Type",
		AllowedVals: []string{CodeTypePy, CodeTypeJS, CodeTypeBoth, CodeTypeAuto},
		Hint:        "Display Python or JS Code",
	})
	for _, s := range sections {
		for _, name := range []string{s.py, s.js} {
			ps.Set(name, &experiment.Param{
				Val: "", ValType: experiment.ValExtendedCode, Label: name,
				Updates: experiment.UpdateConstant, AllowedUpdates: []string{},
				Hint: s.hint,
			})
		}
	}
	return &Component{BaseComponent: b}
}

// section returns the code written for the phase whose Python param is
// named py.
func (c *Component) section(ctx *experiment.Context, py string) string {
	ps := c.Params()
	if !ctx.JS() {
		return ps.Val(py)
	}
	var js string
	for _, s := range sections {
		if s.py == py {
			js = ps.Val(s.js)
		}
	}
	if strings.TrimSpace(js) != "" || ps.Val("Code Type") != CodeTypeAuto {
		return js
	}
	src := ps.Val(py)
	if strings.TrimSpace(src) == "" {
		return ""
	}
	out, err := Translate(src)
	if err != nil {
		ctx.Logger.Warn("Python code could not be translated to JavaScript.",
			"component", c.Name(), "section", py, "error", err)
		return ""
	}
	return out
}

func (c *Component) write(ctx *experiment.Context, py string) {
	if src := c.section(ctx, py); src != "" {
		ctx.Lines(src + "\n")
	}
}

func (c *Component) WriteStartCode(ctx *experiment.Context) error {
	c.write(ctx, "Before Experiment")
	return nil
}

func (c *Component) WriteInitCode(ctx *experiment.Context) error {
	c.write(ctx, "Begin Experiment")
	return nil
}

func (c *Component) WriteRoutineStartCode(ctx *experiment.Context) error {
	c.write(ctx, "Begin Routine")
	return nil
}

func (c *Component) WriteFrameCode(ctx *experiment.Context) error {
	c.write(ctx, "Each Frame")
	return nil
}

func (c *Component) WriteRoutineEndCode(ctx *experiment.Context) error {
	c.write(ctx, "End Routine")
	return nil
}

func (c *Component) WriteExperimentEndCode(ctx *experiment.Context) error {
	c.write(ctx, "End Experiment")
	return nil
}

var (
	assignRe  = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.]*(?:\[[^\]]*\])?)\s*(=|\+=|-=|\*=|/=)\s*([^=].*)$`)
	commentRe = regexp.MustCompile(`^#\s?(.*)$`)
)

// Translate converts straight-line Python code into JavaScript. Each line
// must be a comment, an assignment or an expression; blocks such as if or
// for statements are not supported.
func Translate(src string) (string, error) {
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			out = append(out, "")
			continue
		case line != strings.TrimLeft(line, " \t"):
			return "", fmt.Errorf("line %d: indented blocks are not supported", i+1)
		case strings.HasSuffix(trimmed, ":"):
			return "", fmt.Errorf("line %d: compound statements are not supported", i+1)
		}
		if m := commentRe.FindStringSubmatch(trimmed); m != nil {
			out = append(out, "// "+m[1])
			continue
		}
		if m := assignRe.FindStringSubmatch(trimmed); m != nil {
			rhs, err := pyexpr.ToJS(m[3])
			if err != nil {
				return "", fmt.Errorf("line %d: %w", i+1, err)
			}
			out = append(out, m[1]+" "+m[2]+" "+rhs+";")
			continue
		}
		expr, err := pyexpr.ToJS(trimmed)
		if err != nil {
			return "", fmt.Errorf("line %d: %w", i+1, err)
		}
		out = append(out, expr+";")
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n"), nil
}
