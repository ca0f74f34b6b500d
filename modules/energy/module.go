// Package energy models energy demand, its cost and the resulting emissions.
package energy

import (
	"fmt"
	"math"

	"github.com/vk/wiresim/internal/module"
	"github.com/vk/wiresim/internal/value"
)

// Name is the module name used in scenarios.
const Name = "energy"

// Defaults are the baseline parameters. Demand is in exajoules and emissions
// in gigatonnes of CO2.
func Defaults() value.Record {
	return value.Record{
		"initial_intensity": value.Number(0.005),
		"efficiency_gain":   value.Number(0.01),
		"price_response":    value.Number(0.02),
		"capacity":          value.Number(900),
		"scarcity":          value.Number(0.5),
		"emission_factor":   value.Number(0.07),
		"renewables": value.Object(value.Record{
			"initial_share": value.Number(0.2),
			"annual_gain":   value.Number(0.01),
		}),
	}
}

// State carries the slowly moving structure of the energy system.
type State struct {
	Intensity      float64
	RenewableShare float64
}

type params struct {
	intensity      float64
	efficiency     float64
	priceResponse  float64
	capacity       float64
	scarcity       float64
	emissionFactor float64
	renewables     float64
	renewableGain  float64
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
	out.intensity = read("initial_intensity")
	out.efficiency = read("efficiency_gain")
	out.priceResponse = read("price_response")
	out.capacity = read("capacity")
	out.scarcity = read("scarcity")
	out.emissionFactor = read("emission_factor")
	out.renewables = read("renewables.initial_share")
	out.renewableGain = read("renewables.annual_gain")
	return out, errs
}

func validate(p value.Record) module.Validation {
	pp, errs := readParams(p)
	v := module.Validation{Errors: errs}
	if len(errs) > 0 {
		return v
	}
	if pp.intensity <= 0 {
		v.Errors = append(v.Errors, "initial_intensity must be positive")
	}
	if pp.capacity <= 0 {
		v.Errors = append(v.Errors, "capacity must be positive")
	}
	if pp.renewables < 0 || pp.renewables > 1 {
		v.Errors = append(v.Errors, fmt.Sprintf("renewables.initial_share must be in [0, 1], got %g", pp.renewables))
	}
	if pp.renewableGain > 0.05 {
		v.Warnings = append(v.Warnings, fmt.Sprintf("renewables.annual_gain %g implies a very fast transition", pp.renewableGain))
	}
	return v
}

// New returns the energy module. Last year's cost drives efficiency
// improvements, so it is read through a lag.
func New() *module.Module {
	return &module.Module{
		Name:     Name,
		Inputs:   []string{"gdp", "lagged_energy_cost"},
		Outputs:  []string{"energy_demand", "energy_cost", "emissions", "energy_mix"},
		Defaults: Defaults(),
		Validate: validate,
		Init: func(p value.Record) (module.State, error) {
			pp, errs := readParams(p)
			if len(errs) > 0 {
				return nil, fmt.Errorf("reading parameters: %s", errs[0])
			}
			return State{Intensity: pp.intensity, RenewableShare: pp.renewables}, nil
		},
		Step: step,
	}
}

func step(ctx module.StepContext) (module.State, value.Record, error) {
	pp, errs := readParams(ctx.Params)
	if len(errs) > 0 {
		return nil, nil, fmt.Errorf("reading parameters: %s", errs[0])
	}
	gdp, err := ctx.Inputs.Number("gdp")
	if err != nil {
		return nil, nil, err
	}
	lastCost, err := ctx.Inputs.Number("lagged_energy_cost")
	if err != nil {
		return nil, nil, err
	}

	s := ctx.State.(State)
	demand := gdp * s.Intensity
	cost := 1 + pp.scarcity*demand/pp.capacity
	emissions := demand * (1 - s.RenewableShare) * pp.emissionFactor

	improvement := pp.efficiency + pp.priceResponse*(lastCost-1)
	next := State{
		Intensity:      s.Intensity * (1 - math.Max(0, math.Min(improvement, 0.5))),
		RenewableShare: math.Min(1, s.RenewableShare+pp.renewableGain),
	}

	return next, value.Record{
		"energy_demand": value.Number(demand),
		"energy_cost":   value.Number(cost),
		"emissions":     value.Number(emissions),
		"energy_mix": value.Object(value.Record{
			"renewable": value.Number(s.RenewableShare),
			"fossil":    value.Number(1 - s.RenewableShare),
		}),
	}, nil
}
