package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/wiresim/internal/module"
	"github.com/vk/wiresim/internal/value"
)

func TestStep(t *testing.T) {
	m := New()
	params, _, err := m.MergeParams(nil)
	require.NoError(t, err)
	state, err := m.InitState(params)
	require.NoError(t, err)

	t.Run("cost at parity has no drag", func(t *testing.T) {
		next, out, err := m.Step(module.StepContext{
			State:  state,
			Params: params,
			Inputs: value.Record{"population": value.Number(100), "energy_cost_estimate": value.Number(1)},
		})
		require.NoError(t, err)
		gdp, _ := out["gdp"].Float()
		assert.InDelta(t, 1300, gdp, 1e-9)
		industry, _ := out["sectors"].Lookup("industry")
		f, _ := industry.Float()
		assert.InDelta(t, 390, f, 1e-9)
		assert.InDelta(t, 13*1.015, next.(float64), 1e-9)
	})

	t.Run("expensive energy drags output", func(t *testing.T) {
		_, out, err := m.Step(module.StepContext{
			State:  state,
			Params: params,
			Inputs: value.Record{"population": value.Number(100), "energy_cost_estimate": value.Number(1.5)},
		})
		require.NoError(t, err)
		gdp, _ := out["gdp"].Float()
		assert.InDelta(t, 1300*0.95, gdp, 1e-9)
	})

	t.Run("missing input", func(t *testing.T) {
		_, _, err := m.Step(module.StepContext{State: state, Params: params, Inputs: value.Record{}})
		assert.ErrorContains(t, err, "population")
	})
}

func TestValidate(t *testing.T) {
	m := New()
	_, _, err := m.MergeParams(value.Record{"energy_cost_drag": value.Number(1.5)})
	assert.ErrorContains(t, err, "energy_cost_drag must be in [0, 1)")

	_, warnings, err := m.MergeParams(value.Record{"productivity_growth": value.Number(0.08)})
	require.NoError(t, err)
	assert.Len(t, warnings, 1)
}
