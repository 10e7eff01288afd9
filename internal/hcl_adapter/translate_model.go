// This file contains the logic for translating HCL schema structs into the
// format-agnostic project model defined in the config package.

package hcl_adapter

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/psyexpgo/internal/config"
	"github.com/vk/psyexpgo/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// resolve makes a relative path relative to the project file's directory.
func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// translateCompile converts a compile block into a job. The block label is
// available to its expressions as `name`.
func (l *Loader) translateCompile(ctx context.Context, c *Compile, dir string, evalCtx *hcl.EvalContext) (*config.Job, error) {
	logger := ctxlog.FromContext(ctx).With("compile", c.Name)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Translating HCL compile block to internal config model.")

	blockCtx := evalCtx.NewChild()
	blockCtx.Variables = map[string]cty.Value{"name": cty.StringVal(c.Name)}

	job := &config.Job{Name: c.Name}
	var err error
	if job.Experiment, err = evalString(ctx, c.Experiment, "experiment", blockCtx); err != nil {
		return nil, fmt.Errorf("in compile '%s': %w", c.Name, err)
	}
	if job.Experiment == "" {
		return nil, fmt.Errorf("in compile '%s': 'experiment' must not be empty", c.Name)
	}
	if job.Target, err = evalString(ctx, c.Target, "target", blockCtx); err != nil {
		return nil, fmt.Errorf("in compile '%s': %w", c.Name, err)
	}
	if job.Output, err = evalString(ctx, c.Output, "output", blockCtx); err != nil {
		return nil, fmt.Errorf("in compile '%s': %w", c.Name, err)
	}
	job.Experiment = resolve(dir, job.Experiment)
	job.Output = resolve(dir, job.Output)
	return job, nil
}

// translateDefaults merges a defaults block into the model's defaults.
// Later blocks override earlier ones attribute by attribute.
func (l *Loader) translateDefaults(ctx context.Context, d *Defaults, dir string, evalCtx *hcl.EvalContext, into *config.Defaults) error {
	target, err := evalString(ctx, d.Target, "target", evalCtx)
	if err != nil {
		return fmt.Errorf("in defaults: %w", err)
	}
	if target != "" {
		into.Target = target
	}
	outDir, err := evalString(ctx, d.OutputDir, "output_dir", evalCtx)
	if err != nil {
		return fmt.Errorf("in defaults: %w", err)
	}
	if outDir != "" {
		into.OutputDir = resolve(dir, outDir)
	}
	return nil
}

// translateComponent converts a component block into param defaults.
func (l *Loader) translateComponent(c *Component, evalCtx *hcl.EvalContext) (map[string]string, error) {
	params, err := evalStringMap(c.Params, "params", evalCtx)
	if err != nil {
		return nil, fmt.Errorf("in component '%s': %w", c.Type, err)
	}
	return params, nil
}
