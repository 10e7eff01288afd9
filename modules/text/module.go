package text

import (
	"fmt"
	"strings"

	"github.com/vk/psyexpgo/internal/codegen"
	"github.com/vk/psyexpgo/internal/experiment"
	"github.com/vk/psyexpgo/internal/registry"
)

// Type is the component type name used in experiment files.
const Type = "TextComponent"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the text component with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterComponent(Type, &registry.RegisteredComponent{
		New:      func(name string) experiment.Component { return New(name) },
		Category: "Stimuli",
	})
}

var allUpdates = []string{experiment.UpdateConstant, experiment.UpdateRepeat, experiment.UpdateFrame}

// Component draws a piece of text.
type Component struct {
	*experiment.BaseComponent
}

// New returns a text component with default params.
func New(name string) *Component {
	b := experiment.NewBaseComponent(Type, name, "Stimuli")
	ps := b.Params()
	set := func(name, val string, vt experiment.ValType, updates, label, hint string, allowed ...string) {
		p := &experiment.Param{Val: val, ValType: vt, Updates: updates, Label: label, Hint: hint, Categ: "Basic", AllowedVals: allowed}
		if updates != "" {
			p.AllowedUpdates = allUpdates
		}
		ps.Set(name, p)
	}
	set("text", "Any text\n\nincluding line breaks", experiment.ValExtendedStr, experiment.UpdateConstant, "Text", "The text to be displayed")
	set("font", "Arial", experiment.ValStr, experiment.UpdateConstant, "Font", "The font name (e.g. Comic Sans)")
	set("units", "from exp settings", experiment.ValStr, "", "Units", "Units of dimensions for this stimulus",
		"from exp settings", "deg", "cm", "pix", "norm", "height", "degFlatPos", "degFlat")
	set("pos", "(0, 0)", experiment.ValList, experiment.UpdateConstant, "Position [x,y]", "Position of this stimulus (e.g. [1,2] )")
	set("letterHeight", "0.1", experiment.ValCode, experiment.UpdateConstant, "Letter height", "Specifies the height of the letter (the width is then determined by the font)")
	set("wrapWidth", "", experiment.ValCode, experiment.UpdateConstant, "Wrap width", "How wide should the text get when it wraps? (in the specified units)")
	set("ori", "0", experiment.ValNum, experiment.UpdateConstant, "Orientation", "Orientation of this stimulus (in deg)")
	set("color", "white", experiment.ValColor, experiment.UpdateConstant, "Color", "Color of this stimulus (e.g. $[1,1,0], red )")
	set("colorSpace", "rgb", experiment.ValStr, experiment.UpdateConstant, "Color space", "Choice of color space for the color (rgb, dkl, lms, hsv)",
		"rgb", "dkl", "lms", "hsv")
	set("opacity", "1", experiment.ValNum, experiment.UpdateConstant, "Opacity", "Opacity of the stimulus (1=opaque, 0=fully transparent, 0.5=translucent)")
	set("flip", "None", experiment.ValStr, "", "Flip (mirror)", "horiz = left-right reversed; vert = up-down reversed; $var = variable",
		"None", "horiz", "vert")
	set("languageStyle", "LTR", experiment.ValStr, "", "Language style", "Handle right-to-left (RTL) languages and Arabic reshaping",
		"LTR", "RTL", "Arabic")
	return &Component{BaseComponent: b}
}

// PsychopyLibs lists the libraries the component uses.
func (c *Component) PsychopyLibs() []string {
	return []string{"visual"}
}

func depth(ctx *experiment.Context, name string) float64 {
	if ctx.Routine == nil {
		return 0
	}
	return float64(-max(ctx.Routine.Index(name), 0))
}

// WriteInitCode creates the TextStim with placeholder values for params
// that change during the run.
func (c *Component) WriteInitCode(ctx *experiment.Context) error {
	inits, err := c.Params().InitValues(ctx.Target)
	if err != nil {
		return codegen.NewError(c.Name(), "%v", err)
	}
	name := c.Name()
	units := c.Params().Val("units")
	flip := strings.ToLower(c.Params().Val("flip"))
	d := depth(ctx, name)

	if ctx.JS() {
		unitsJS := "undefined"
		if units != "from exp settings" {
			unitsJS = inits["units"]
		}
		ctx.Lines(fmt.Sprintf("%s = new visual.TextStim({\n"+
			"  win: psychoJS.window,\n"+
			"  name: '%s',\n"+
			"  text: %s,\n"+
			"  font: %s,\n"+
			"  units: %s, \n"+
			"  pos: %s, height: %s,  wrapWidth: %s, ori: %s,\n"+
			"  languageStyle: %s,\n"+
			"  color: new util.Color(%s),  opacity: %s,\n"+
			"  flipHoriz: %t, flipVert: %t,\n"+
			"  depth: %.1f \n"+
			"});\n\n",
			name, name, inits["text"], inits["font"], unitsJS,
			inits["pos"], inits["letterHeight"], inits["wrapWidth"], inits["ori"],
			inits["languageStyle"], inits["color"], inits["opacity"],
			strings.Contains(flip, "horiz"), strings.Contains(flip, "vert"), d))
		return nil
	}

	unitsStr := ""
	if units != "from exp settings" {
		unitsStr = "units=" + inits["units"] + ", "
	}
	ctx.Lines(fmt.Sprintf("%s = visual.TextStim(win=win, name='%s',\n"+
		"    text=%s,\n"+
		"    font=%s,\n"+
		"    %spos=%s, height=%s, wrapWidth=%s, ori=%s, \n"+
		"    color=%s, colorSpace=%s, opacity=%s, \n"+
		"    languageStyle=%s,\n"+
		"    flipHoriz=%s, flipVert=%s,\n"+
		"    depth=%.1f)\n",
		name, name, inits["text"], inits["font"],
		unitsStr, inits["pos"], inits["letterHeight"], inits["wrapWidth"], inits["ori"],
		inits["color"], inits["colorSpace"], inits["opacity"],
		inits["languageStyle"], pyBool(strings.Contains(flip, "horiz")), pyBool(strings.Contains(flip, "vert")), d))
	return nil
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// WriteFrameCode starts and stops drawing and applies per-frame updates.
func (c *Component) WriteFrameCode(ctx *experiment.Context) error {
	name := c.Name()
	if ctx.JS() {
		ctx.Lines(fmt.Sprintf("\n// *%s* updates\n", name))
	} else {
		ctx.Lines(fmt.Sprintf("\n# *%s* updates\n", name))
	}

	started, err := c.WriteStartTestCode(ctx)
	if err != nil {
		return err
	}
	if started {
		if ctx.JS() {
			ctx.Lines(fmt.Sprintf("\n%s.setAutoDraw(true);\n", name))
		} else {
			ctx.Lines(fmt.Sprintf("%s.setAutoDraw(True)\n", name))
		}
		ctx.Out()
	}

	stopped, err := c.WriteStopTestCode(ctx)
	if err != nil {
		return err
	}
	if stopped {
		if ctx.JS() {
			ctx.Lines(fmt.Sprintf("%s.setAutoDraw(false);\n", name))
		} else {
			ctx.Lines(fmt.Sprintf("%s.setAutoDraw(False)\n", name))
		}
		ctx.Out()
	}

	if !c.NeedsUpdate(experiment.UpdateFrame) {
		return nil
	}
	if ctx.JS() {
		ctx.Lines("\n")
		ctx.In(fmt.Sprintf("if (%s.status === PsychoJS.Status.STARTED){ // only update if being drawn\n", name))
	} else {
		ctx.In(fmt.Sprintf("if %s.status == STARTED:  # only update if being drawn\n", name))
	}
	if err := c.WriteParamUpdates(ctx, experiment.UpdateFrame); err != nil {
		return err
	}
	ctx.Out()
	return nil
}
