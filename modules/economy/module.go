// Package economy models world output from population and labour
// productivity, dragged down by energy costs.
package economy

import (
	"fmt"
	"math"

	"github.com/vk/wiresim/internal/module"
	"github.com/vk/wiresim/internal/value"
)

// Name is the module name used in scenarios.
const Name = "economy"

var sectors = []string{"agriculture", "industry", "services"}

// Defaults are the baseline parameters. Productivity is output per person in
// thousands of dollars, so gdp comes out in billions.
func Defaults() value.Record {
	return value.Record{
		"initial_productivity": value.Number(13),
		"productivity_growth":  value.Number(0.015),
		"energy_cost_drag":     value.Number(0.1),
		"sector_shares": value.Object(value.Record{
			"agriculture": value.Number(0.05),
			"industry":    value.Number(0.30),
			"services":    value.Number(0.65),
		}),
	}
}

type params struct {
	productivity float64
	growth       float64
	drag         float64
	shares       map[string]float64
}

func readParams(p value.Record) (params, []string) {
	var (
		out  params
		errs []string
	)
	read := func(path string) float64 {
		f, err := module.Param(p, path)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return f
	}
	out.productivity = read("initial_productivity")
	out.growth = read("productivity_growth")
	out.drag = read("energy_cost_drag")
	out.shares = make(map[string]float64, len(sectors))
	for _, s := range sectors {
		out.shares[s] = read("sector_shares." + s)
	}
	return out, errs
}

func validate(p value.Record) module.Validation {
	pp, errs := readParams(p)
	v := module.Validation{Errors: errs}
	if len(errs) > 0 {
		return v
	}
	if pp.productivity <= 0 {
		v.Errors = append(v.Errors, "initial_productivity must be positive")
	}
	if pp.drag < 0 || pp.drag >= 1 {
		v.Errors = append(v.Errors, fmt.Sprintf("energy_cost_drag must be in [0, 1), got %g", pp.drag))
	}
	var sum float64
	for _, s := range sectors {
		sum += pp.shares[s]
	}
	if math.Abs(sum-1) > 1e-6 {
		v.Errors = append(v.Errors, fmt.Sprintf("sector_shares must sum to 1, got %g", sum))
	}
	if pp.growth > 0.05 {
		v.Warnings = append(v.Warnings, fmt.Sprintf("productivity_growth %g is unusually high for a multi-decade run", pp.growth))
	}
	return v
}

// New returns the economy module. It consumes the current-year energy cost
// estimate, which feeds back from the energy module within the year.
func New() *module.Module {
	return &module.Module{
		Name:     Name,
		Inputs:   []string{"population", "energy_cost_estimate"},
		Outputs:  []string{"gdp", "sectors"},
		Defaults: Defaults(),
		Validate: validate,
		Init: func(p value.Record) (module.State, error) {
			return module.Param(p, "initial_productivity")
		},
		Step: step,
	}
}

func step(ctx module.StepContext) (module.State, value.Record, error) {
	pp, errs := readParams(ctx.Params)
	if len(errs) > 0 {
		return nil, nil, fmt.Errorf("reading parameters: %s", errs[0])
	}
	pop, err := ctx.Inputs.Number("population")
	if err != nil {
		return nil, nil, err
	}
	cost, err := ctx.Inputs.Number("energy_cost_estimate")
	if err != nil {
		return nil, nil, err
	}

	productivity := ctx.State.(float64)
	gdp := pop * productivity * (1 - pp.drag*(cost-1))

	split := make(value.Record, len(sectors))
	for _, s := range sectors {
		split[s] = value.Number(gdp * pp.shares[s])
	}
	return productivity * (1 + pp.growth), value.Record{
		"gdp":     value.Number(gdp),
		"sectors": value.Object(split),
	}, nil
}
