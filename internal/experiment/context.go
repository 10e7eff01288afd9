package experiment

import (
	"log/slog"

	"github.com/vk/psyexpgo/internal/codegen"
)

// Context carries the state shared by all writers during one compilation.
type Context struct {
	Buf     *codegen.Buffer
	Target  codegen.Target
	Exp     *Experiment
	Logger  *slog.Logger
	Routine *Routine

	loops []Loop
}

func newContext(exp *Experiment, target codegen.Target, logger *slog.Logger) *Context {
	return &Context{
		Buf:    codegen.NewBuffer(target),
		Target: target,
		Exp:    exp,
		Logger: logger,
	}
}

// JS reports whether the browser target is being written.
func (c *Context) JS() bool {
	return c.Target == codegen.PsychoJS
}

// Loop returns the innermost loop being written, or nil at the top level.
func (c *Context) Loop() Loop {
	if len(c.loops) == 0 {
		return nil
	}
	return c.loops[len(c.loops)-1]
}

func (c *Context) pushLoop(l Loop) {
	c.loops = append(c.loops, l)
}

func (c *Context) popLoop() {
	if len(c.loops) > 0 {
		c.loops = c.loops[:len(c.loops)-1]
	}
}

// In writes text at the current indent and then indents one more level.
func (c *Context) In(text string) {
	c.Buf.WriteIndented(text)
	c.Buf.SetIndentLevel(1, true)
}

// Out dedents one level and, for JavaScript, closes the block.
func (c *Context) Out() {
	c.Buf.SetIndentLevel(-1, true)
	if c.JS() {
		c.Buf.WriteIndented("}\n")
	}
}

// Lines writes each line of text at the current indent.
func (c *Context) Lines(text string) {
	c.Buf.WriteIndentedLines(text)
}
