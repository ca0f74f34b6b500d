// Package demographics models world population and its age structure.
package demographics

import (
	"fmt"
	"math"

	"github.com/vk/wiresim/internal/module"
	"github.com/vk/wiresim/internal/value"
)

// Name is the module name used in scenarios.
const Name = "demographics"

var cohorts = []string{"young", "working", "elderly"}

// Defaults are the baseline parameters. Population is in millions.
func Defaults() value.Record {
	return value.Record{
		"initial_population": value.Number(8100),
		"growth_rate":        value.Number(0.009),
		"emissions_penalty":  value.Number(0.00005),
		"affluence_slowdown": value.Number(0.004),
		"reference_income":   value.Number(13),
		"cohort_shares": value.Object(value.Record{
			"young":   value.Number(0.25),
			"working": value.Number(0.65),
			"elderly": value.Number(0.10),
		}),
	}
}

type params struct {
	initial   float64
	rate      float64
	penalty   float64
	slowdown  float64
	reference float64
	shares    map[string]float64
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
	out.initial = read("initial_population")
	out.rate = read("growth_rate")
	out.penalty = read("emissions_penalty")
	out.slowdown = read("affluence_slowdown")
	out.reference = read("reference_income")
	out.shares = make(map[string]float64, len(cohorts))
	for _, c := range cohorts {
		out.shares[c] = read("cohort_shares." + c)
	}
	return out, errs
}

func validate(p value.Record) module.Validation {
	pp, errs := readParams(p)
	v := module.Validation{Errors: errs}
	if len(errs) > 0 {
		return v
	}
	if pp.initial <= 0 {
		v.Errors = append(v.Errors, "initial_population must be positive")
	}
	if pp.reference <= 0 {
		v.Errors = append(v.Errors, "reference_income must be positive")
	}
	var sum float64
	for _, c := range cohorts {
		if pp.shares[c] < 0 {
			v.Errors = append(v.Errors, fmt.Sprintf("cohort_shares.%s must not be negative", c))
		}
		sum += pp.shares[c]
	}
	if math.Abs(sum-1) > 1e-6 {
		v.Errors = append(v.Errors, fmt.Sprintf("cohort_shares must sum to 1, got %g", sum))
	}
	if pp.rate > 0.03 || pp.rate < -0.02 {
		v.Warnings = append(v.Warnings, fmt.Sprintf("growth_rate %g is outside the historically observed range", pp.rate))
	}
	return v
}

// New returns the demographics module. It reads last year's emissions and
// income level, so both reach it through lags.
func New() *module.Module {
	return &module.Module{
		Name:     Name,
		Inputs:   []string{"lagged_emissions", "lagged_gdp_per_capita"},
		Outputs:  []string{"population", "cohorts"},
		Defaults: Defaults(),
		Validate: validate,
		Init: func(p value.Record) (module.State, error) {
			return module.Param(p, "initial_population")
		},
		Step: step,
	}
}

func step(ctx module.StepContext) (module.State, value.Record, error) {
	pp, errs := readParams(ctx.Params)
	if len(errs) > 0 {
		return nil, nil, fmt.Errorf("reading parameters: %s", errs[0])
	}
	emissions, err := ctx.Inputs.Number("lagged_emissions")
	if err != nil {
		return nil, nil, err
	}
	income, err := ctx.Inputs.Number("lagged_gdp_per_capita")
	if err != nil {
		return nil, nil, err
	}

	pop := ctx.State.(float64)
	growth := pp.rate - pp.penalty*emissions - pp.slowdown*(income-pp.reference)/pp.reference
	next := pop * (1 + growth)

	split := make(value.Record, len(cohorts))
	for _, c := range cohorts {
		split[c] = value.Number(pop * pp.shares[c])
	}
	return next, value.Record{
		"population": value.Number(pop),
		"cohorts":    value.Object(split),
	}, nil
}
