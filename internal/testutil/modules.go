package testutil

import (
	"github.com/vk/wiresim/internal/module"
	"github.com/vk/wiresim/internal/value"
)

// Root is the reference root module "R": no inputs, output
// value = state + yearIndex, with state starting at params.start (100) and
// growing by one each year.
func Root() *module.Module {
	return &module.Module{
		Name:     "R",
		Outputs:  []string{"value"},
		Defaults: value.Record{"start": value.Number(100)},
		Init: func(p value.Record) (module.State, error) {
			return module.Param(p, "start")
		},
		Step: func(ctx module.StepContext) (module.State, value.Record, error) {
			cur := ctx.State.(float64)
			return cur + 1, value.Record{"value": value.Number(cur + float64(ctx.YearIndex))}, nil
		},
	}
}

// Scaled is the reference dependent module "D": result = value * multiplier.
func Scaled() *module.Module {
	return &module.Module{
		Name:     "D",
		Inputs:   []string{"value"},
		Outputs:  []string{"result"},
		Defaults: value.Record{"multiplier": value.Number(10)},
		Validate: func(p value.Record) module.Validation {
			var v module.Validation
			if _, err := module.Param(p, "multiplier"); err != nil {
				v.Errors = append(v.Errors, err.Error())
			}
			return v
		},
		Step: func(ctx module.StepContext) (module.State, value.Record, error) {
			in, err := ctx.Inputs.Number("value")
			if err != nil {
				return nil, nil, err
			}
			m, err := module.Param(ctx.Params, "multiplier")
			if err != nil {
				return nil, nil, err
			}
			return ctx.State, value.Record{"result": value.Number(in * m)}, nil
		},
	}
}

// Accumulator is the reference feedback module "F": accumulated is the
// running total plus value plus the lagged previous total.
func Accumulator() *module.Module {
	return &module.Module{
		Name:    "F",
		Inputs:  []string{"value", "laggedResult"},
		Outputs: []string{"accumulated"},
		Init: func(value.Record) (module.State, error) {
			return 0.0, nil
		},
		Step: func(ctx module.StepContext) (module.State, value.Record, error) {
			total := ctx.State.(float64)
			in, err := ctx.Inputs.Number("value")
			if err != nil {
				return nil, nil, err
			}
			lagged, err := ctx.Inputs.Number("laggedResult")
			if err != nil {
				return nil, nil, err
			}
			acc := total + in + lagged
			return acc, value.Record{"accumulated": value.Number(acc)}, nil
		},
	}
}

// StepFunc computes a stateless module's outputs.
type StepFunc func(in value.Record, yearIndex int) (value.Record, error)

// Func returns a stateless module built around fn.
func Func(name string, inputs, outputs []string, fn StepFunc) *module.Module {
	return &module.Module{
		Name:    name,
		Inputs:  inputs,
		Outputs: outputs,
		Step: func(ctx module.StepContext) (module.State, value.Record, error) {
			out, err := fn(ctx.Inputs, ctx.YearIndex)
			return nil, out, err
		},
	}
}

// Const returns a stateless module that emits fixed outputs every year.
func Const(name string, outputs value.Record, inputs ...string) *module.Module {
	return Func(name, inputs, outputs.Keys(), func(value.Record, int) (value.Record, error) {
		return outputs.Clone(), nil
	})
}
