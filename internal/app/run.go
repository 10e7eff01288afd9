package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/psyexpgo/internal/codegen"
	"github.com/vk/psyexpgo/internal/config"
	"github.com/vk/psyexpgo/internal/ctxlog"
	"github.com/vk/psyexpgo/internal/experiment"
	"github.com/vk/psyexpgo/internal/fsutil"
)

// Run compiles every experiment the configuration names. The first failure
// stops the run.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	jobs, err := a.Jobs()
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		a.logger.Warn("No experiments found, nothing to compile.")
		return nil
	}

	a.logger.Info("🚀 Compiling experiments...", "count", len(jobs), "component_types", a.registry.Types())
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.compile(ctx, job); err != nil {
			return fmt.Errorf("failed to compile %s: %w", job.Experiment, err)
		}
	}
	a.logger.Info("🏁 Compilation finished.")

	a.logger.Debug("App.Run method finished.")
	return nil
}

// Jobs resolves the configuration into concrete compile jobs with their
// target and output path filled in. An experiment path given on the command
// line takes precedence over the project's compile blocks.
func (a *App) Jobs() ([]*config.Job, error) {
	if path := a.config.ExperimentPath; path != "" {
		return a.pathJobs(path)
	}

	jobs := make([]*config.Job, 0, len(a.project.Jobs))
	for _, j := range a.project.Jobs {
		target, err := a.target(j.Target)
		if err != nil {
			return nil, fmt.Errorf("compile '%s': %w", j.Name, err)
		}
		job := &config.Job{Name: j.Name, Experiment: j.Experiment, Target: target.String(), Output: j.Output}
		if job.Output == "" {
			job.Output = a.defaultOutput(job.Experiment, "", "", target)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (a *App) pathJobs(path string) ([]*config.Job, error) {
	files, err := fsutil.FindExperiments(path)
	if err != nil {
		return nil, fmt.Errorf("failed to find experiments: %w", err)
	}
	target, err := a.target("")
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	jobs := make([]*config.Job, 0, len(files))
	for _, file := range files {
		job := &config.Job{
			Name:       strings.TrimSuffix(filepath.Base(file), fsutil.ExperimentExt),
			Experiment: file,
			Target:     target.String(),
		}
		switch {
		case a.config.OutFile != "" && !info.IsDir():
			job.Output = a.config.OutFile
		case info.IsDir():
			rel, err := filepath.Rel(path, file)
			if err != nil {
				return nil, err
			}
			job.Output = a.defaultOutput(file, rel, a.config.OutFile, target)
		default:
			job.Output = a.defaultOutput(file, "", "", target)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// target picks the first target set by the command line, the job, or the
// project defaults, falling back to PsychoPy.
func (a *App) target(jobTarget string) (codegen.Target, error) {
	for _, name := range []string{a.config.Target, jobTarget, a.project.Defaults.Target} {
		if name != "" {
			return codegen.ParseTarget(name)
		}
	}
	return codegen.PsychoPy, nil
}

// defaultOutput places the script next to the experiment, or under dir
// (or the project's output_dir) when one is set. Under an output directory
// the script keeps rel, the experiment's path below the compiled directory,
// so experiments sharing a file name do not collide.
func (a *App) defaultOutput(experimentPath, rel, dir string, target codegen.Target) string {
	if dir == "" {
		dir = a.project.Defaults.OutputDir
	}
	if dir == "" {
		return withExt(experimentPath, target)
	}
	if rel == "" {
		rel = filepath.Base(experimentPath)
	}
	return filepath.Join(dir, withExt(rel, target))
}

func withExt(path string, target codegen.Target) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + target.Ext()
}

func (a *App) compile(ctx context.Context, job *config.Job) error {
	ctx, logger := ctxlog.With(ctx, "experiment", job.Experiment)
	target, err := codegen.ParseTarget(job.Target)
	if err != nil {
		return err
	}

	exp := experiment.New(a.registry)
	if err := exp.LoadFile(ctx, job.Experiment); err != nil {
		return err
	}
	script, err := exp.WriteScript(ctx, target)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(job.Output); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(job.Output, []byte(script), 0o644); err != nil {
		return fmt.Errorf("failed to write script: %w", err)
	}
	logger.Info("Compiled experiment.", "target", target, "output", job.Output)
	return nil
}
