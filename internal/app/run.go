package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/vk/wiresim/internal/ctxlog"
	"github.com/vk/wiresim/internal/engine"
	"github.com/vk/wiresim/internal/results"
	"github.com/vk/wiresim/internal/stream"
)

// Run simulates the scenario from its start year to its end year.
// Cancellation takes effect between years.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(a.config.HealthcheckPort)
	}

	s := a.scenario
	e, err := engine.New(
		a.model.Config(s.StartYear, s.EndYear, s.Overrides, s.Lags),
		engine.Options{
			MaxIterations:       s.MaxIterations,
			Tolerance:           s.Tolerance,
			TrackTransformReads: s.TrackTransformReads,
			Logger:              a.logger,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to configure simulation: %w", err)
	}

	var pub *stream.Publisher
	if a.config.StreamURL != "" {
		pub, err = stream.Connect(ctx, stream.Config{URL: a.config.StreamURL})
		if err != nil {
			return fmt.Errorf("failed to open result stream: %w", err)
		}
		defer pub.Close()
	}

	c, err := e.Start()
	if err != nil {
		return fmt.Errorf("failed to start simulation: %w", err)
	}

	a.logger.Info("Starting simulation.", "start_year", s.StartYear, "end_year", s.EndYear, "modules", len(e.Plan().Order))
	for !c.Done() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("simulation stopped before year %d: %w", c.NextYear(), err)
		}
		rec, err := c.Step()
		if err != nil {
			return fmt.Errorf("simulation failed: %w", err)
		}
		a.lastYear.Store(int64(rec.Year))
		a.settled.Store(true)
		a.logger.Debug("Year complete.", "year", rec.Year, "iterations", rec.Iterations, "converged", rec.Converged)

		if pub != nil {
			if err := pub.Publish(rec); err != nil {
				return err
			}
		}
	}
	res := c.Finalize()
	a.logger.Info("Simulation finished.", "years", res.Len(), "warnings", len(res.Warnings))

	if err := a.writeResult(res); err != nil {
		return err
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

func (a *App) writeResult(res *results.Result) error {
	switch a.config.OutPath {
	case "":
		return nil
	case "-":
		return res.WriteYAML(a.outW)
	}

	f, err := os.Create(a.config.OutPath)
	if err != nil {
		return fmt.Errorf("failed to create result file: %w", err)
	}
	if err := writeAndClose(f, res); err != nil {
		return fmt.Errorf("failed to write result file %s: %w", a.config.OutPath, err)
	}
	a.logger.Info("Result written.", "path", a.config.OutPath)
	return nil
}

func writeAndClose(f io.WriteCloser, res *results.Result) error {
	if err := res.WriteYAML(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
