package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/vk/psyexpgo/internal/config"
	"github.com/vk/psyexpgo/internal/ctxlog"
	"github.com/vk/psyexpgo/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	logFile  *os.File
	registry *registry.Registry
	config   *Config
	project  *config.Model
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// Startup failures panic; the entrypoint recovers them.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, modules ...registry.Module) *App {
	var logFile *os.File
	var fileW io.Writer
	if appConfig.LogFile != "" {
		f, err := os.OpenFile(appConfig.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			panic(fmt.Errorf("failed to open log file: %w", err))
		}
		logFile, fileW = f, f
	}
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW, fileW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.", "log_file", appConfig.LogFile)

	project := config.NewModel()
	if appConfig.ProjectPath != "" {
		m, err := loader.Load(ctx, appConfig.ProjectPath)
		if err != nil {
			// A failure to load config is a fatal startup error.
			panic(fmt.Errorf("failed to load configuration: %w", err))
		}
		project = m
		logger.Debug("Project loaded and translated into unified model.", "jobs", len(project.Jobs))
	}

	reg := NewRegistry(modules...)
	logger.Debug("All Go modules registered.", "count", len(reg.ComponentRegistry))

	reg.PopulateDefaultsFromModel(project)
	logger.Debug("Registry defaults populated from config model.")

	if err := reg.ValidateRegistry(ctx); err != nil {
		// A mismatch between code and project file is not recoverable.
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	return &App{
		outW:     outW,
		logger:   logger,
		logFile:  logFile,
		registry: reg,
		config:   appConfig,
		project:  project,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Project returns the loaded project model.
func (a *App) Project() *config.Model {
	return a.project
}

// Close releases the log file, if one was opened.
func (a *App) Close() error {
	if a.logFile == nil {
		return nil
	}
	err := a.logFile.Close()
	a.logFile = nil
	return err
}
