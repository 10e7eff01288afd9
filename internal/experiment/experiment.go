package experiment

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/vk/psyexpgo/internal/codegen"
	"github.com/vk/psyexpgo/internal/ctxlog"
	"github.com/vk/psyexpgo/internal/namespace"
)

// DefaultVersion is the PsychoPy version new experiments are written for.
const DefaultVersion = "2021.2.3"

// ComponentFactory creates components by their type name.
type ComponentFactory interface {
	NewComponent(typ, name string) (Component, bool)
}

// Experiment is the root of the model: settings, Routines and the Flow that
// orders them.
type Experiment struct {
	Filename        string
	PsychopyVersion string
	Settings        *Settings
	Flow            *Flow
	NameSpace       *namespace.NameSpace

	// Now stamps generated scripts; nil means time.Now.
	Now func() time.Time

	routines []*Routine
	libs     []string
	factory  ComponentFactory
}

// New returns an empty experiment creating components with factory, which
// may be nil.
func New(factory ComponentFactory) *Experiment {
	e := &Experiment{factory: factory}
	e.reset()
	return e
}

func (e *Experiment) reset() {
	e.PsychopyVersion = DefaultVersion
	e.NameSpace = namespace.New()
	e.Settings = NewSettings("")
	e.Flow = NewFlow(e.NameSpace)
	e.routines = nil
	e.libs = []string{"core", "data", "event"}
}

// Name returns the experiment name from the settings.
func (e *Experiment) Name() string {
	return e.Settings.ExpName()
}

// SetName sets the experiment name.
func (e *Experiment) SetName(name string) {
	e.Settings.Params().SetVal("expName", name)
}

// RequirePsychopyLibs adds libraries to the Python import line.
func (e *Experiment) RequirePsychopyLibs(libs ...string) {
	for _, lib := range libs {
		if !slices.Contains(e.libs, lib) {
			e.libs = append(e.libs, lib)
		}
	}
}

// NewComponent creates a component of type typ. Types unknown to the
// factory produce an UnknownComponent that preserves its params.
func (e *Experiment) NewComponent(typ, name string) Component {
	if e.factory != nil {
		if comp, ok := e.factory.NewComponent(typ, name); ok {
			return comp
		}
	}
	return NewUnknownComponent(typ, name)
}

// Routines returns the Routines in creation order.
func (e *Experiment) Routines() []*Routine {
	return slices.Clone(e.routines)
}

// Routine returns the named Routine or nil.
func (e *Experiment) Routine(name string) *Routine {
	for _, r := range e.routines {
		if r.Name() == name {
			return r
		}
	}
	return nil
}

// AddRoutine stores r, replacing any Routine of the same name, and
// registers its name and component names in the namespace.
func (e *Experiment) AddRoutine(r *Routine) *Routine {
	if i := slices.IndexFunc(e.routines, func(x *Routine) bool { return x.Name() == r.Name() }); i >= 0 {
		e.routines[i] = r
	} else {
		e.routines = append(e.routines, r)
	}
	e.NameSpace.Add(r.Name())
	for _, comp := range r.components {
		e.NameSpace.Add(comp.Name())
	}
	return r
}

// NewRoutine creates and stores an empty Routine with a valid, unique name
// derived from name.
func (e *Experiment) NewRoutine(name string) *Routine {
	return e.AddRoutine(NewRoutine(e.NameSpace.MakeValid(name)))
}

// RemoveRoutine deletes the named Routine and every Flow reference to it.
func (e *Experiment) RemoveRoutine(name string) error {
	r := e.Routine(name)
	if r == nil {
		return fmt.Errorf("%w: %q", ErrRoutineNotFound, name)
	}
	e.Flow.RemoveRoutine(r)
	e.routines = slices.DeleteFunc(e.routines, func(x *Routine) bool { return x == r })
	e.NameSpace.Remove(name)
	for _, comp := range r.components {
		e.NameSpace.Remove(comp.Name())
	}
	return nil
}

// Components returns the components of every Routine.
func (e *Experiment) Components() []Component {
	var out []Component
	for _, r := range e.routines {
		out = append(out, r.components...)
	}
	return out
}

// ComponentByName searches every Routine for the named component.
func (e *Experiment) ComponentByName(name string) Component {
	for _, r := range e.routines {
		if comp := r.Component(name); comp != nil {
			return comp
		}
	}
	return nil
}

func (e *Experiment) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// WriteScript generates the complete script for target.
func (e *Experiment) WriteScript(ctx context.Context, target codegen.Target) (string, error) {
	logger := ctxlog.FromContext(ctx).With("experiment", e.Name(), "target", target)
	c := newContext(e, target, logger)

	var err error
	switch target {
	case codegen.PsychoPy:
		err = e.writePython(c)
	case codegen.PsychoJS:
		err = e.writeJS(c)
	default:
		err = fmt.Errorf("unknown target %q", target)
	}
	if err != nil {
		return "", err
	}
	logger.Debug("Script generated.", "bytes", c.Buf.Len(), "routines", len(e.Flow.Routines()))
	return c.Buf.String(), nil
}

func (e *Experiment) pythonLibs() []string {
	libs := slices.Clone(e.libs)
	add := func(more []string) {
		for _, lib := range more {
			if !slices.Contains(libs, lib) {
				libs = append(libs, lib)
			}
		}
	}
	add(e.Settings.PsychopyLibs())
	for _, r := range e.Flow.Routines() {
		for _, comp := range r.components {
			if req, ok := comp.(LibRequirer); ok && !comp.Disabled() {
				add(req.PsychopyLibs())
			}
		}
	}
	slices.Sort(libs)
	return libs
}

func (e *Experiment) writePython(c *Context) error {
	c.Lines(fmt.Sprintf("#!/usr/bin/env python\n"+
		"# -*- coding: utf-8 -*-\n"+
		"\"\"\"\n"+
		"This experiment was created using PsychoPy3 Experiment Builder (v%s),\n"+
		"    on %s\n"+
		"If you publish work using this script the most relevant publication is:\n\n"+
		"    Peirce J, Gray JR, Simpson S, MacAskill M, Höchenberger R, Sogo H, Kastman E, Lindeløv JK. (2019) \n"+
		"        PsychoPy2: Experiments in behavior made easy Behav Res 51: 195. \n"+
		"        https://doi.org/10.3758/s13428-018-01193-y\n\n"+
		"\"\"\"\n\n", e.PsychopyVersion, e.now().Format("Mon Jan _2 15:04:05 2006")))
	c.Lines("from __future__ import absolute_import, division\n\n" +
		"from psychopy import locale_setup\n" +
		"from psychopy import prefs\n" +
		"from psychopy import " + strings.Join(e.pythonLibs(), ", ") + "\n" +
		"from psychopy.constants import (NOT_STARTED, STARTED, PLAYING, PAUSED,\n" +
		"                                STOPPED, FINISHED, PRESSED, RELEASED, FOREVER)\n\n" +
		"import numpy as np  # whole numpy lib is available, prepend 'np.'\n" +
		"from numpy import (sin, cos, tan, log, log10, pi, average,\n" +
		"                   sqrt, std, deg2rad, rad2deg, linspace, asarray)\n" +
		"from numpy.random import random, randint, normal, shuffle, choice as randchoice\n" +
		"import os  # handy system and path functions\n" +
		"import sys  # to get file system encoding\n\n" +
		"from psychopy.hardware import keyboard\n\n\n\n")

	if err := e.Settings.WriteStartCode(c); err != nil {
		return err
	}
	routines := e.Flow.Routines()
	for _, r := range routines {
		if err := r.WriteStartCode(c); err != nil {
			return err
		}
	}
	if err := e.Settings.WriteInitCode(c); err != nil {
		return err
	}
	if err := e.Flow.WriteBody(c); err != nil {
		return err
	}
	for _, r := range routines {
		if err := r.WriteExperimentEndCode(c); err != nil {
			return err
		}
	}
	return e.Settings.WriteExperimentEndCode(c)
}

// resources lists the files PsychoJS must download before the run.
func (e *Experiment) resources() []string {
	var out []string
	for _, loop := range e.Flow.Loops() {
		p := loop.Params().Get("conditionsFile")
		if p == nil || p.IsBlank() || p.IsCode() {
			continue
		}
		file := strings.ReplaceAll(p.Val, `\`, "/")
		if !slices.Contains(out, file) {
			out = append(out, file)
		}
	}
	return out
}

func (e *Experiment) writeJS(c *Context) error {
	title := " * " + e.Name() + " Test *"
	stars := strings.Repeat("*", len(title)-2)
	c.Lines(fmt.Sprintf("/*%s \n%s\n %s/\n\n", stars, title, stars))
	c.Lines(fmt.Sprintf("import { core, data, sound, util, visual } from './lib/psychojs-%s.js';\n", e.PsychopyVersion) +
		"const { PsychoJS } = core;\n" +
		"const { TrialHandler, MultiStairHandler } = data;\n" +
		"const { Scheduler } = util;\n" +
		"//some handy aliases as in the psychopy scripts;\n" +
		"const { abs, sin, cos, PI: pi, sqrt } = Math;\n" +
		"const { round } = util;\n\n")

	if err := e.Settings.WriteStartCode(c); err != nil {
		return err
	}
	routines := e.Flow.Routines()
	for _, r := range routines {
		if err := r.WriteStartCode(c); err != nil {
			return err
		}
	}
	if err := e.Settings.WriteInitCode(c); err != nil {
		return err
	}
	if err := e.Flow.Validate(); err != nil {
		return err
	}
	e.Flow.WriteSchedulerJS(c)
	e.Settings.WriteSetupCodeJS(c, e.resources())
	if err := e.Flow.WriteInitJS(c); err != nil {
		return err
	}
	c.Lines("\nvar t;\n" +
		"var frameN;\n" +
		"var continueRoutine;\n" +
		"var frameRemains;\n" +
		"var currentLoop;\n")
	if err := e.Flow.WriteBody(c); err != nil {
		return err
	}

	c.Lines("\nfunction importConditions(currentLoop) {\n" +
		"  return async function () {\n" +
		"    psychoJS.importAttributes(currentLoop.getCurrentTrial());\n" +
		"    return Scheduler.Event.NEXT;\n" +
		"    };\n" +
		"}\n\n")
	c.In("async function quitPsychoJS(message, isCompleted) {\n")
	c.Lines("// Check for and save orphaned data\n" +
		"if (psychoJS.experiment.isEntryEmpty()) {\n" +
		"  psychoJS.experiment.nextEntry();\n" +
		"}\n")
	for _, r := range routines {
		if err := r.WriteExperimentEndCode(c); err != nil {
			return err
		}
	}
	if err := e.Settings.WriteExperimentEndCode(c); err != nil {
		return err
	}
	c.Out()
	return nil
}
