package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/wiresim/internal/value"
)

func sourceOf(r value.Record) Source {
	return func(name string) (value.Value, bool) {
		v, ok := r[name]
		return v, ok
	}
}

func ratio(num, den string) Func {
	return func(r *Reader) (value.Value, error) {
		n, err := r.Number(num)
		if err != nil {
			return value.Null(), err
		}
		d, err := r.Number(den)
		if err != nil {
			return value.Null(), err
		}
		return value.Number(n / d), nil
	}
}

func TestNewSet(t *testing.T) {
	_, err := NewSet(New("a", ratio("x", "y")), New("a", ratio("x", "y")))
	assert.ErrorContains(t, err, `transform "a" defined twice`)

	_, err = NewSet(New("b", nil))
	assert.ErrorContains(t, err, `transform "b" has no function`)

	s, err := NewSet(New("z", ratio("x", "y")), CycleBreaker("a", ratio("x", "y")))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "z"}, s.Names())
	assert.True(t, s.IsCycleBreaker("a"))
	assert.False(t, s.IsCycleBreaker("z"))
	assert.False(t, s.IsCycleBreaker("missing"))
}

func TestDependsOn(t *testing.T) {
	deps, declared := New("a", ratio("x", "y")).DependsOn()
	assert.False(t, declared)
	assert.Empty(t, deps)

	deps, declared = WithDeps("b", ratio("x", "y"), "x", "y").DependsOn()
	assert.True(t, declared)
	assert.Equal(t, []string{"x", "y"}, deps)

	assert.True(t, WithDeps("c", ratio("x", "y")).IsCycleBreaker())
}

func TestEvaluator(t *testing.T) {
	record := value.Record{"gdp": value.Number(200), "population": value.Number(4)}

	t.Run("evaluates and caches", func(t *testing.T) {
		calls := 0
		s, err := NewSet(WithDeps("per_capita", func(r *Reader) (value.Value, error) {
			calls++
			return ratio("gdp", "population")(r)
		}, "gdp", "population"))
		require.NoError(t, err)

		ev := s.NewEvaluator(sourceOf(record), false)
		v, err := ev.Eval("per_capita")
		require.NoError(t, err)
		assert.True(t, v.Equal(value.Number(50)))

		_, err = ev.Eval("per_capita")
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.Contains(t, ev.Evaluated(), "per_capita")
	})

	t.Run("transforms can read other transforms", func(t *testing.T) {
		s, err := NewSet(
			WithDeps("per_capita", ratio("gdp", "population"), "gdp", "population"),
			WithDeps("doubled", func(r *Reader) (value.Value, error) {
				pc, err := r.Number("per_capita")
				return value.Number(2 * pc), err
			}, "per_capita"),
		)
		require.NoError(t, err)

		v, err := s.NewEvaluator(sourceOf(record), false).Eval("doubled")
		require.NoError(t, err)
		assert.True(t, v.Equal(value.Number(100)))
	})

	t.Run("missing input is an error", func(t *testing.T) {
		s, err := NewSet(New("bad", ratio("gdp", "capital")))
		require.NoError(t, err)
		_, err = s.NewEvaluator(sourceOf(record), false).Eval("bad")
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.ErrorContains(t, err, `"capital" is not available`)
	})

	t.Run("pending nested transform reads as unavailable", func(t *testing.T) {
		s, err := NewSet(
			WithDeps("per_capita", ratio("gdp", "capital"), "gdp", "capital"),
			CycleBreaker("estimate", func(r *Reader) (value.Value, error) {
				if v, ok := r.Get("per_capita"); ok {
					return v, nil
				}
				return value.Number(1), nil
			}),
		)
		require.NoError(t, err)

		ev := s.NewEvaluator(sourceOf(record), false)
		v, err := ev.Eval("estimate")
		require.NoError(t, err)
		assert.True(t, v.Equal(value.Number(1)))

		_, err = ev.Eval("per_capita")
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("nested failure other than unavailability is fatal", func(t *testing.T) {
		s, err := NewSet(
			New("label", func(*Reader) (value.Value, error) { return value.String("n/a"), nil }),
			WithDeps("scaled", func(r *Reader) (value.Value, error) {
				v, err := r.Number("label")
				return value.Number(2 * v), err
			}, "label"),
			CycleBreaker("estimate", func(r *Reader) (value.Value, error) {
				if v, ok := r.Get("scaled"); ok {
					return v, nil
				}
				return value.Number(1), nil
			}),
		)
		require.NoError(t, err)

		_, err = s.NewEvaluator(sourceOf(record), false).Eval("estimate")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
		assert.ErrorContains(t, err, `"label" is string, not a number`)
	})

	t.Run("transform cycle is an error", func(t *testing.T) {
		s, err := NewSet(
			New("a", func(r *Reader) (value.Value, error) { v, _ := r.Get("b"); return v, nil }),
			New("b", func(r *Reader) (value.Value, error) { v, _ := r.Get("a"); return v, nil }),
		)
		require.NoError(t, err)
		_, err = s.NewEvaluator(sourceOf(record), false).Eval("a")
		assert.ErrorContains(t, err, "transform cycle: a -> b -> a")
	})
}

func TestUndeclared(t *testing.T) {
	record := value.Record{"gdp": value.Number(200), "population": value.Number(4), "energy": value.Number(9)}

	s, err := NewSet(
		// Declares only gdp but also reads population and the cycle-breaker.
		WithDeps("sloppy", func(r *Reader) (value.Value, error) {
			r.Get("population")
			r.Get("estimate")
			return ratio("gdp", "population")(r)
		}, "gdp"),
		CycleBreaker("estimate", func(r *Reader) (value.Value, error) {
			v, _ := r.Get("energy")
			return v, nil
		}),
		New("undeclared", func(r *Reader) (value.Value, error) {
			v, _ := r.Get("energy")
			return v, nil
		}),
	)
	require.NoError(t, err)

	ev := s.NewEvaluator(sourceOf(record), true)
	for _, n := range s.Names() {
		_, err := ev.Eval(n)
		require.NoError(t, err)
	}

	got := ev.Undeclared()
	require.Len(t, got, 1)
	assert.Equal(t, UndeclaredRead{Transform: "sloppy", Key: "population"}, got[0])
	assert.Contains(t, got[0].String(), `transform "sloppy" read "population"`)

	untracked := s.NewEvaluator(sourceOf(record), false)
	_, err = untracked.Eval("sloppy")
	require.NoError(t, err)
	assert.Empty(t, untracked.Undeclared())
}
