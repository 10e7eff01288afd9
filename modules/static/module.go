package static

import (
	"fmt"

	"github.com/vk/psyexpgo/internal/codegen"
	"github.com/vk/psyexpgo/internal/experiment"
	"github.com/vk/psyexpgo/internal/registry"
)

// Type is the component type name used in experiment files.
const Type = "StaticComponent"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the static period component with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterComponent(Type, &registry.RegisteredComponent{
		New:      func(name string) experiment.Component { return New(name) },
		Category: "Custom",
	})
}

// SetDuring returns the updates value of a param that is applied while the
// named static period in routine is running.
func SetDuring(routine, name string) string {
	return "set during: " + routine + "." + name
}

type paramUpdater interface {
	WriteParamUpdates(c *experiment.Context, updates string) error
}

// Component is a static screen period, such as an inter-stimulus interval,
// during which other components can load their next values.
type Component struct {
	*experiment.BaseComponent
}

// New returns a half-second static period.
func New(name string) *Component {
	b := experiment.NewBaseComponent(Type, name, "Custom")
	ps := b.Params()
	ps.Get("stopVal").Val = "0.5"
	ps.Set("code", &experiment.Param{
		Val: "", ValType: experiment.ValCode, InputType: "multi", Categ: "Custom",
		Label: "Custom code",
		Hint:  "Custom code to be run during the static period (after updates)",
	})
	return &Component{BaseComponent: b}
}

// PsychopyLibs lists the libraries the component uses.
func (s *Component) PsychopyLibs() []string {
	return []string{"clock"}
}

func (s *Component) WriteInitCode(ctx *experiment.Context) error {
	name := s.Name()
	if ctx.JS() {
		ctx.Lines(fmt.Sprintf("%[1]s = new core.MinimalStim({\n"+
			"  name: \"%[1]s\", \n"+
			"  win: psychoJS.window,\n"+
			"  autoDraw: false, \n"+
			"  autoLog: true, \n"+
			"});\n", name))
		return nil
	}
	ctx.Lines(fmt.Sprintf("%[1]s = clock.StaticPeriod(win=win, screenHz=expInfo['frameRate'], name='%[1]s')\n", name))
	return nil
}

// WriteRoutineStartCode does nothing: a static period has no params of its
// own that change on each repeat.
func (s *Component) WriteRoutineStartCode(*experiment.Context) error {
	return nil
}

// durations returns the expression passed to StaticPeriod.start and the
// one recording the stop time.
func (s *Component) durations(ctx *experiment.Context) (string, string, error) {
	name := s.Name()
	stopVal, err := s.Params().Get("stopVal").Code(ctx.Target)
	if err != nil {
		return "", "", codegen.NewError(name, "bad stop value: %v", err)
	}
	switch stopType := s.Params().Val("stopType"); stopType {
	case experiment.TimeS:
		return stopVal + "-t", stopVal, nil
	case experiment.DurationS:
		return stopVal, name + ".tStart + " + stopVal, nil
	case experiment.DurationFrames:
		return stopVal + "*frameDur", name + ".tStart + " + stopVal + "*frameDur", nil
	case experiment.FrameN:
		return "(" + stopVal + "-frameN)*frameDur", stopVal + "*frameDur", nil
	default:
		return "", "", codegen.NewError(name, "Couldn't deduce end point for startType=%s, stopType=%s",
			s.Params().Val("startType"), stopType)
	}
}

// writeOtherUpdates applies the params of other components in the Routine
// that are set during this period, followed by the custom code.
func (s *Component) writeOtherUpdates(ctx *experiment.Context) error {
	if ctx.Routine == nil {
		return nil
	}
	updates := SetDuring(ctx.Routine.Name(), s.Name())
	comment := ctx.Target.Comment()
	wrote := false
	for _, comp := range ctx.Routine.Components() {
		if comp.Disabled() || !experiment.Supports(comp, ctx.Target) {
			continue
		}
		u, ok := comp.(paramUpdater)
		if !ok {
			continue
		}
		uses := false
		for _, pname := range comp.Params().Names() {
			if comp.Params().Get(pname).Updates == updates {
				uses = true
				break
			}
		}
		if !uses {
			continue
		}
		if !wrote {
			ctx.Lines(fmt.Sprintf("%s Updating other components during *%s*\n", comment, s.Name()))
			wrote = true
		}
		if err := u.WriteParamUpdates(ctx, updates); err != nil {
			return err
		}
	}
	if wrote {
		ctx.Lines(comment + " Component updates done\n")
	}
	if code := s.Params().Val("code"); code != "" && !ctx.JS() {
		ctx.Lines(fmt.Sprintf("# Adding custom code for %s\n%s\n", s.Name(), code))
	}
	return nil
}

// WriteFrameCode starts the period and, one frame later, applies the
// pending updates and completes it.
func (s *Component) WriteFrameCode(ctx *experiment.Context) error {
	name := s.Name()
	if ctx.JS() {
		return s.writeFrameCodeJS(ctx)
	}
	startDur, stopTime, err := s.durations(ctx)
	if err != nil {
		return err
	}
	ctx.Lines(fmt.Sprintf("# *%s* period\n", name))
	started, err := s.WriteStartTestCode(ctx)
	if err != nil {
		return err
	}
	if !started {
		return codegen.NewError(name, "a static period needs a start value")
	}
	ctx.Lines(fmt.Sprintf("%s.start(%s)\n", name, startDur))
	ctx.Out()

	ctx.In(fmt.Sprintf("elif %s.status == STARTED:  # one frame should pass before updating params and completing\n", name))
	if err := s.writeOtherUpdates(ctx); err != nil {
		return err
	}
	ctx.Lines(fmt.Sprintf("%[1]s.complete()  # finish the static period\n"+
		"%[1]s.tStop = %[2]s  # record stop time\n", name, stopTime))
	ctx.Out()
	return nil
}

func (s *Component) writeFrameCodeJS(ctx *experiment.Context) error {
	name := s.Name()
	started, err := s.WriteStartTestCode(ctx)
	if err != nil {
		return err
	}
	if started {
		ctx.Lines(fmt.Sprintf("%s.status = PsychoJS.Status.STARTED;\n", name))
		if err := s.writeOtherUpdates(ctx); err != nil {
			return err
		}
		ctx.Out()
	}
	stopped, err := s.WriteStopTestCode(ctx)
	if err != nil {
		return err
	}
	if stopped {
		ctx.Lines(fmt.Sprintf("%s.status = PsychoJS.Status.FINISHED;\n", name))
		ctx.Out()
	}
	return nil
}
