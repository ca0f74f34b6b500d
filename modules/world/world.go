// Package world assembles the demo modules into a runnable model: the
// module list, the derived transforms and the lags that close its feedback
// loops.
package world

import (
	"github.com/vk/wiresim/internal/engine"
	"github.com/vk/wiresim/internal/lag"
	"github.com/vk/wiresim/internal/module"
	"github.com/vk/wiresim/internal/transform"
	"github.com/vk/wiresim/internal/value"
	"github.com/vk/wiresim/modules/demographics"
	"github.com/vk/wiresim/modules/economy"
	"github.com/vk/wiresim/modules/energy"
)

// Model is the wired world model.
type Model struct {
	Modules    []*module.Module
	Transforms transform.Set
	Lags       lag.Set
}

// New assembles the model.
func New() (*Model, error) {
	ts, err := transform.NewSet(
		transform.WithDeps("gdp_per_capita", gdpPerCapita, "gdp", "population"),
		transform.WithDeps("emissions_per_capita", emissionsPerCapita, "emissions", "population"),
		transform.CycleBreaker("energy_cost_estimate", energyCostEstimate),
	)
	if err != nil {
		return nil, err
	}

	lags, err := lag.NewSet(
		lag.New("lagged_energy_cost", "energy_cost", value.Number(1)),
		lag.New("lagged_emissions", "emissions", value.Number(37)),
		lag.New("lagged_gdp_per_capita", "gdp_per_capita", value.Number(13)),
	)
	if err != nil {
		return nil, err
	}

	return &Model{
		Modules:    []*module.Module{demographics.New(), economy.New(), energy.New()},
		Transforms: ts,
		Lags:       lags,
	}, nil
}

// Config returns an engine configuration for the model. Extra lags replace
// built-in ones of the same name.
func (m *Model) Config(startYear, endYear int, overrides map[string]value.Record, extra lag.Set) engine.Config {
	return engine.Config{
		Modules:    m.Modules,
		Transforms: m.Transforms,
		Lags:       m.Lags.Merge(extra),
		StartYear:  startYear,
		EndYear:    endYear,
		Overrides:  overrides,
	}
}

// gdpPerCapita is in thousands of dollars per person.
func gdpPerCapita(r *transform.Reader) (value.Value, error) {
	gdp, err := r.Number("gdp")
	if err != nil {
		return value.Null(), err
	}
	pop, err := r.Number("population")
	if err != nil {
		return value.Null(), err
	}
	return value.Number(gdp / pop), nil
}

// emissionsPerCapita is in tonnes per person.
func emissionsPerCapita(r *transform.Reader) (value.Value, error) {
	emissions, err := r.Number("emissions")
	if err != nil {
		return value.Null(), err
	}
	pop, err := r.Number("population")
	if err != nil {
		return value.Null(), err
	}
	return value.Number(emissions * 1000 / pop), nil
}

// energyCostEstimate lets the economy see this year's energy cost before the
// energy module has run: the latest cost available, or parity on the first
// pass.
func energyCostEstimate(r *transform.Reader) (value.Value, error) {
	if v, ok := r.Get("energy_cost"); ok {
		return v, nil
	}
	return value.Number(1), nil
}
