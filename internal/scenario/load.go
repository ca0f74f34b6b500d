package scenario

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/wiresim/internal/ctxlog"
	"github.com/vk/wiresim/internal/lag"
	"github.com/vk/wiresim/internal/value"
)

// ErrNoSimulation is returned for a file without a simulation block.
var ErrNoSimulation = errors.New("scenario has no simulation block")

// Load parses and decodes a scenario file.
func Load(ctx context.Context, path string) (*Scenario, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Scenario loader started.", "path", path)

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("error accessing scenario %s: %w", path, err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	s, err := translate(ctx, &root)
	if err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	s.Path = path

	logger.Debug("Scenario loading complete.",
		"start_year", s.StartYear,
		"end_year", s.EndYear,
		"overrides", len(s.Overrides),
		"lags", len(s.Lags),
	)
	return s, nil
}

func translate(ctx context.Context, root *fileRoot) (*Scenario, error) {
	if root.Simulation == nil {
		return nil, ErrNoSimulation
	}
	sim := root.Simulation
	if sim.EndYear < sim.StartYear {
		return nil, fmt.Errorf("end_year %d is before start_year %d", sim.EndYear, sim.StartYear)
	}

	s := &Scenario{
		StartYear: sim.StartYear,
		EndYear:   sim.EndYear,
		Overrides: make(map[string]value.Record, len(root.Modules)),
	}
	if sim.MaxIterations != nil {
		if *sim.MaxIterations < 1 {
			return nil, fmt.Errorf("max_iterations must be at least 1, got %d", *sim.MaxIterations)
		}
		s.MaxIterations = *sim.MaxIterations
	}
	if sim.Tolerance != nil {
		if *sim.Tolerance <= 0 {
			return nil, fmt.Errorf("tolerance must be positive, got %v", *sim.Tolerance)
		}
		s.Tolerance = *sim.Tolerance
	}
	if sim.TrackTransformReads != nil {
		s.TrackTransformReads = *sim.TrackTransformReads
	}

	for _, m := range root.Modules {
		if _, dup := s.Overrides[m.Name]; dup {
			return nil, fmt.Errorf("module %q is configured more than once", m.Name)
		}
		params := value.Record{}
		if isExprDefined(ctx, m.Params, "params") {
			v, err := evalExpr(m.Params)
			if err != nil {
				return nil, fmt.Errorf("module %q params: %w", m.Name, err)
			}
			if v.Kind() != value.KindRecord {
				return nil, fmt.Errorf("module %q params must be an object, got %s", m.Name, v.Kind())
			}
			params = v.Fields()
		}
		s.Overrides[m.Name] = params
	}

	lags := make([]lag.Lag, 0, len(root.Lags))
	for _, b := range root.Lags {
		initial := value.Null()
		if isExprDefined(ctx, b.Initial, "initial") {
			v, err := evalExpr(b.Initial)
			if err != nil {
				return nil, fmt.Errorf("lag %q initial: %w", b.Name, err)
			}
			initial = v
		}
		l := lag.New(b.Name, b.Source, initial)
		if b.Delay != nil {
			l.Delay = *b.Delay
		}
		lags = append(lags, l)
	}
	set, err := lag.NewSet(lags...)
	if err != nil {
		return nil, err
	}
	s.Lags = set

	return s, nil
}
