package app

import (
	"errors"
	"fmt"

	"github.com/vk/psyexpgo/internal/codegen"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ExperimentPath string // .psyexp file or a directory of them
	ProjectPath    string // hcl project file or directory
	OutFile        string // output file, or output directory for a directory of experiments
	Target         string // empty defers to the project file

	LogFormat string
	LogLevel  string
	LogFile   string
}

// NewConfig validates cfg and canonicalises its target name.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ExperimentPath == "" && cfg.ProjectPath == "" {
		return nil, errors.New("an experiment path or a project file is required")
	}
	if cfg.Target != "" {
		target, err := codegen.ParseTarget(cfg.Target)
		if err != nil {
			return nil, fmt.Errorf("invalid target: %w", err)
		}
		cfg.Target = target.String()
	}
	return &cfg, nil
}
