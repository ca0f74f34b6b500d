package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/vk/wiresim/internal/ctxlog"
	"github.com/vk/wiresim/internal/scenario"
	"github.com/vk/wiresim/modules/world"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	scenario *scenario.Scenario
	model    *world.Model

	// lastYear is the most recently settled year, for the health endpoint.
	lastYear atomic.Int64
	settled  atomic.Bool
}

// NewApp is the constructor for the main application. It configures an
// isolated logger, loads the scenario and assembles the model.
func NewApp(outW io.Writer, cfg *Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	s, err := scenario.Load(ctx, cfg.ScenarioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario: %w", err)
	}
	logger.Debug("Scenario loaded.", "path", s.Path, "start_year", s.StartYear, "end_year", s.EndYear)

	model, err := newModel()
	if err != nil {
		return nil, fmt.Errorf("failed to assemble model: %w", err)
	}
	logger.Debug("Model assembled.", "modules", len(model.Modules), "transforms", len(model.Transforms), "lags", len(model.Lags))

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		scenario: s,
		model:    model,
	}, nil
}

// Scenario returns the loaded scenario. This is primarily for testing.
func (a *App) Scenario() *scenario.Scenario {
	return a.scenario
}
