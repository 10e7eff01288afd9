package hcl_adapter

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/psyexpgo/internal/config"
	"github.com/vk/psyexpgo/internal/ctxlog"
	"github.com/vk/psyexpgo/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	// Environ supplies the variables exposed as `env`. nil means os.Environ.
	Environ func() []string
}

// NewLoader creates a new HCL project loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load orchestrates the entire HCL loading process. Every path may be a
// single file or a directory searched recursively for .hcl files.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	model := config.NewModel()

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	environ := os.Environ
	if l.Environ != nil {
		environ = l.Environ
	}
	evalCtx := newEvalContext(environ())
	parser := hclparse.NewParser()

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		dir := filepath.Dir(file)
		for _, d := range root.Defaults {
			if err := l.translateDefaults(ctx, d, dir, evalCtx, model.Defaults); err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
		}
		for _, c := range root.Compiles {
			if model.Job(c.Name) != nil {
				return nil, fmt.Errorf("%s: duplicate compile block '%s'", file, c.Name)
			}
			job, err := l.translateCompile(ctx, c, dir, evalCtx)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			model.Jobs = append(model.Jobs, job)
		}
		for _, c := range root.Components {
			params, err := l.translateComponent(c, evalCtx)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			if model.ComponentDefaults[c.Type] == nil {
				model.ComponentDefaults[c.Type] = make(map[string]string, len(params))
			}
			maps.Copy(model.ComponentDefaults[c.Type], params)
		}
	}

	logger.Debug("HCL loading complete.", "jobs", len(model.Jobs), "component_defaults", len(model.ComponentDefaults))
	return model, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl files found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // It's not an error if a configured path doesn't exist.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			files, err := fsutil.FindFilesByExtension(path, ".hcl")
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				add(f)
			}
		} else if filepath.Ext(path) == ".hcl" {
			add(path)
		}
	}
	return allFiles, nil
}
