package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/wiresim/internal/module"
	"github.com/vk/wiresim/internal/value"
)

func mod(name string, outputs ...string) *module.Module {
	return &module.Module{
		Name:    name,
		Outputs: outputs,
		Step: func(ctx module.StepContext) (module.State, value.Record, error) {
			return nil, value.Record{}, nil
		},
	}
}

func TestBuild(t *testing.T) {
	t.Run("maps outputs to owners", func(t *testing.T) {
		r, err := Build([]*module.Module{mod("root", "value"), mod("dep", "result", "extra")})
		require.NoError(t, err)

		owner, ok := r.Producer("result")
		require.True(t, ok)
		assert.Equal(t, "dep", owner)

		_, ok = r.Producer("missing")
		assert.False(t, ok)

		assert.Equal(t, []string{"value", "result", "extra"}, r.Outputs())
		assert.Len(t, r.Modules(), 2)
		m, ok := r.Module("root")
		require.True(t, ok)
		assert.Equal(t, "root", m.Name)
	})

	t.Run("collision names both modules", func(t *testing.T) {
		_, err := Build([]*module.Module{mod("first", "gdp"), mod("second", "gdp")})
		require.ErrorIs(t, err, ErrOutputCollision)
		assert.ErrorContains(t, err, "output \"gdp\" already provided by first, cannot also be provided by second")
	})

	t.Run("duplicate module names rejected", func(t *testing.T) {
		_, err := Build([]*module.Module{mod("a", "x"), mod("a", "y")})
		assert.ErrorIs(t, err, ErrDuplicateModule)
	})

	t.Run("malformed module rejected", func(t *testing.T) {
		bad := mod("bad", "x")
		bad.Step = nil
		_, err := Build([]*module.Module{bad})
		assert.ErrorContains(t, err, "step function is nil")
	})
}
