package engine

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/wiresim/internal/dag"
	"github.com/vk/wiresim/internal/lag"
	"github.com/vk/wiresim/internal/module"
	"github.com/vk/wiresim/internal/registry"
	"github.com/vk/wiresim/internal/testutil"
	"github.com/vk/wiresim/internal/transform"
	"github.com/vk/wiresim/internal/value"
	"github.com/vk/wiresim/internal/wiring"
)

func rootAndScaled() Config {
	return Config{
		Modules:   []*module.Module{testutil.Scaled(), testutil.Root()},
		StartYear: 2000,
		EndYear:   2002,
	}
}

func feedback(t *testing.T) Config {
	t.Helper()
	lags, err := lag.NewSet(lag.New("laggedResult", "accumulated", value.Number(0)))
	require.NoError(t, err)
	return Config{
		Modules:   []*module.Module{testutil.Root(), testutil.Accumulator()},
		Lags:      lags,
		StartYear: 2000,
		EndYear:   2002,
	}
}

func TestRun_AcyclicChain(t *testing.T) {
	logger, _ := testutil.Logger(t)
	res, err := Run(context.Background(), rootAndScaled(), Options{Logger: logger})
	require.NoError(t, err)

	assert.Equal(t, []int{2000, 2001, 2002}, res.Years)

	values, err := res.Numbers("R", "value")
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 102, 104}, values)

	results, err := res.Numbers("D", "result")
	require.NoError(t, err)
	assert.Equal(t, []float64{1000, 1020, 1040}, results)
	assert.Empty(t, res.Warnings)
}

func TestRun_LagFeedback(t *testing.T) {
	res, err := Run(context.Background(), feedback(t), Options{})
	require.NoError(t, err)

	acc, err := res.Numbers("F", "accumulated")
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 302, 708}, acc)
}

func TestRun_Overrides(t *testing.T) {
	cfg := rootAndScaled()
	cfg.Overrides = map[string]value.Record{"D": {"multiplier": value.Number(3)}}

	res, err := Run(context.Background(), cfg, Options{})
	require.NoError(t, err)

	results, err := res.Numbers("D", "result")
	require.NoError(t, err)
	assert.Equal(t, []float64{300, 306, 312}, results)
}

func TestStep_MatchesRun(t *testing.T) {
	cfg := feedback(t)

	batch, err := Run(context.Background(), cfg, Options{})
	require.NoError(t, err)

	e, err := New(cfg, Options{})
	require.NoError(t, err)
	c, err := e.Start()
	require.NoError(t, err)

	var years []int
	for !c.Done() {
		rec, err := c.Step()
		require.NoError(t, err)
		years = append(years, rec.Year)
		assert.True(t, rec.Converged)
		assert.Equal(t, 2, rec.Iterations)
	}
	stepped := c.Finalize()
	assert.Equal(t, []int{2000, 2001, 2002}, years)

	var a, b bytes.Buffer
	require.NoError(t, batch.WriteYAML(&a))
	require.NoError(t, stepped.WriteYAML(&b))
	if diff := cmp.Diff(a.String(), b.String()); diff != "" {
		t.Errorf("stepped result differs from batch result (-batch +stepped):\n%s", diff)
	}

	_, err = c.Step()
	assert.ErrorIs(t, err, ErrFinished)
}

func TestStep_YearRecord(t *testing.T) {
	e, err := New(rootAndScaled(), Options{})
	require.NoError(t, err)
	c, err := e.Start()
	require.NoError(t, err)

	assert.Equal(t, 2000, c.NextYear())
	_, err = c.Step()
	require.NoError(t, err)
	rec, err := c.Step()
	require.NoError(t, err)

	assert.Equal(t, 2001, rec.Year)
	assert.Equal(t, 1, rec.YearIndex)
	assert.True(t, rec.Record["result"].Equal(value.Number(1020)))
	assert.True(t, rec.Outputs["R"]["value"].Equal(value.Number(102)))
	assert.Equal(t, 2, c.Result().Len())
}

func TestNew_ConfigurationErrors(t *testing.T) {
	t.Run("cycle", func(t *testing.T) {
		cfg := Config{
			Modules: []*module.Module{
				testutil.Func("A", []string{"b"}, []string{"a"}, nil),
				testutil.Func("B", []string{"a"}, []string{"b"}, nil),
			},
			StartYear: 2000,
			EndYear:   2000,
		}
		_, err := New(cfg, Options{})
		require.Error(t, err)
		assert.ErrorIs(t, err, dag.ErrCycle)
	})

	t.Run("unresolved input", func(t *testing.T) {
		cfg := Config{
			Modules:   []*module.Module{testutil.Scaled()},
			StartYear: 2000,
			EndYear:   2000,
		}
		_, err := New(cfg, Options{})
		require.Error(t, err)
		assert.ErrorIs(t, err, wiring.ErrInvalidWiring)
		assert.Contains(t, err.Error(), `"value"`)
	})

	t.Run("output collision", func(t *testing.T) {
		cfg := Config{
			Modules: []*module.Module{
				testutil.Const("A", value.Record{"x": value.Number(1)}),
				testutil.Const("B", value.Record{"x": value.Number(2)}),
			},
			StartYear: 2000,
			EndYear:   2000,
		}
		_, err := New(cfg, Options{})
		require.Error(t, err)
		assert.ErrorIs(t, err, wiring.ErrInvalidWiring)
		assert.ErrorIs(t, err, registry.ErrOutputCollision)
	})

	t.Run("transform cycle without consumer", func(t *testing.T) {
		read := func(name string) transform.Func {
			return func(r *transform.Reader) (value.Value, error) {
				v, _ := r.Get(name)
				return v, nil
			}
		}
		ts, err := transform.NewSet(
			transform.WithDeps("x", read("y"), "y"),
			transform.WithDeps("y", read("x"), "x"),
		)
		require.NoError(t, err)
		cfg := rootAndScaled()
		cfg.Transforms = ts
		_, err = New(cfg, Options{})
		require.Error(t, err)
		assert.ErrorIs(t, err, wiring.ErrInvalidWiring)
		assert.ErrorContains(t, err, "transform dependency cycle: x -> y -> x")
	})

	t.Run("years reversed", func(t *testing.T) {
		cfg := rootAndScaled()
		cfg.StartYear, cfg.EndYear = 2010, 2000
		_, err := New(cfg, Options{})
		assert.ErrorContains(t, err, "before start year")
	})

	t.Run("override for unknown module", func(t *testing.T) {
		cfg := rootAndScaled()
		cfg.Overrides = map[string]value.Record{"nope": {}}
		_, err := New(cfg, Options{})
		assert.ErrorContains(t, err, `unknown module "nope"`)
	})

	t.Run("invalid parameters", func(t *testing.T) {
		cfg := rootAndScaled()
		cfg.Overrides = map[string]value.Record{"D": {"multiplier": value.String("ten")}}
		_, err := New(cfg, Options{})
		assert.ErrorContains(t, err, `invalid parameters for module "D"`)
	})
}

func TestNew_ParameterWarnings(t *testing.T) {
	m := testutil.Const("W", value.Record{"w": value.Number(1)})
	m.Defaults = value.Record{"rate": value.Number(0.9)}
	m.Validate = func(p value.Record) module.Validation {
		return module.Validation{Warnings: []string{"rate is unusually high"}}
	}

	logger, buf := testutil.Logger(t)
	res, err := Run(context.Background(), Config{Modules: []*module.Module{m}, StartYear: 1, EndYear: 1}, Options{Logger: logger})
	require.NoError(t, err)
	assert.Equal(t, []string{`module "W": rate is unusually high`}, res.Warnings)
	assert.Contains(t, buf.String(), "rate is unusually high")
}

func TestRun_OutputValidation(t *testing.T) {
	cases := []struct {
		name    string
		out     value.Record
		path    string
		wantErr error
	}{
		{
			name:    "missing output",
			out:     value.Record{"a": value.Number(1)},
			path:    "b",
			wantErr: ErrMissingOutput,
		},
		{
			name:    "NaN",
			out:     value.Record{"a": value.Number(math.NaN()), "b": value.Number(1)},
			path:    "a",
			wantErr: ErrNonFinite,
		},
		{
			name: "nested infinity",
			out: value.Record{
				"a": value.Number(1),
				"b": value.Object(value.Record{
					"copper": value.Object(value.Record{"cumulative": value.Number(math.Inf(1))}),
				}),
			},
			path:    "b.copper.cumulative",
			wantErr: ErrNonFinite,
		},
		{
			name:    "infinity in list",
			out:     value.Record{"a": value.List(value.Number(1), value.Number(math.Inf(-1))), "b": value.Null()},
			path:    "a.1",
			wantErr: ErrNonFinite,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := testutil.Func("M", nil, []string{"a", "b"}, func(value.Record, int) (value.Record, error) {
				return tc.out, nil
			})
			_, err := Run(context.Background(), Config{Modules: []*module.Module{m}, StartYear: 1990, EndYear: 1995}, Options{})
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)

			var oe *OutputError
			require.True(t, errors.As(err, &oe))
			assert.Equal(t, "M", oe.Module)
			assert.Equal(t, tc.path, oe.Path)
			assert.Equal(t, 1990, oe.Year)
		})
	}
}

func TestRun_StepErrorNamesModuleAndYear(t *testing.T) {
	boom := errors.New("boom")
	m := testutil.Func("M", nil, []string{"a"}, func(_ value.Record, yearIndex int) (value.Record, error) {
		if yearIndex == 1 {
			return nil, boom
		}
		return value.Record{"a": value.Number(1)}, nil
	})
	_, err := Run(context.Background(), Config{Modules: []*module.Module{m}, StartYear: 2000, EndYear: 2005}, Options{})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `module "M" failed in year 2001`)
}

// halfway converges on x = 2 through a cycle-breaker estimate of x.
func halfway(t *testing.T) Config {
	t.Helper()
	est := transform.CycleBreaker("x_estimate", func(r *transform.Reader) (value.Value, error) {
		if v, ok := r.Get("x"); ok {
			return v, nil
		}
		return value.Number(0), nil
	})
	ts, err := transform.NewSet(est)
	require.NoError(t, err)

	m := testutil.Func("A", []string{"x_estimate"}, []string{"x"}, func(in value.Record, _ int) (value.Record, error) {
		e, err := in.Number("x_estimate")
		if err != nil {
			return nil, err
		}
		return value.Record{"x": value.Number(e/2 + 1)}, nil
	})
	return Config{Modules: []*module.Module{m}, Transforms: ts, StartYear: 2000, EndYear: 2000}
}

func TestStep_Convergence(t *testing.T) {
	t.Run("iterates to a fixed point", func(t *testing.T) {
		e, err := New(halfway(t), Options{MaxIterations: 50})
		require.NoError(t, err)
		c, err := e.Start()
		require.NoError(t, err)

		rec, err := c.Step()
		require.NoError(t, err)
		assert.True(t, rec.Converged)
		assert.Greater(t, rec.Iterations, 2)
		assert.Less(t, rec.Iterations, 50)

		x, ok := rec.Record["x"].Float()
		require.True(t, ok)
		assert.InDelta(t, 2.0, x, 1e-5)
		assert.Empty(t, c.Finalize().Warnings)
	})

	t.Run("commits at the cap with a warning", func(t *testing.T) {
		e, err := New(halfway(t), Options{MaxIterations: 3})
		require.NoError(t, err)
		c, err := e.Start()
		require.NoError(t, err)

		rec, err := c.Step()
		require.NoError(t, err)
		assert.False(t, rec.Converged)
		assert.Equal(t, 3, rec.Iterations)
		assert.True(t, rec.Record["x"].Equal(value.Number(1.75)))
		assert.Equal(t, []string{"year 2000 did not converge within 3 iterations"}, c.Finalize().Warnings)
	})

	t.Run("single pass never warns", func(t *testing.T) {
		res, err := Run(context.Background(), halfway(t), Options{MaxIterations: 1})
		require.NoError(t, err)
		xs, err := res.Numbers("A", "x")
		require.NoError(t, err)
		assert.Equal(t, []float64{1}, xs)
		assert.Empty(t, res.Warnings)
	})
}

func TestRun_TransformReadTracking(t *testing.T) {
	double := transform.WithDeps("double", func(r *transform.Reader) (value.Value, error) {
		v, err := r.Number("value")
		if err != nil {
			return value.Null(), err
		}
		r.Get("result")
		return value.Number(2 * v), nil
	}, "value")
	ts, err := transform.NewSet(double)
	require.NoError(t, err)

	cfg := rootAndScaled()
	cfg.Transforms = ts

	t.Run("tracking on", func(t *testing.T) {
		res, err := Run(context.Background(), cfg, Options{TrackTransformReads: true})
		require.NoError(t, err)
		assert.Equal(t, []string{`transform "double" read "result" without declaring it as a dependency`}, res.Warnings)

		var got []float64
		for _, v := range res.Transforms["double"] {
			f, _ := v.Float()
			got = append(got, f)
		}
		assert.Equal(t, []float64{200, 204, 208}, got)
	})

	t.Run("tracking off", func(t *testing.T) {
		res, err := Run(context.Background(), cfg, Options{})
		require.NoError(t, err)
		assert.Empty(t, res.Warnings)
	})
}

func TestRun_TransformFeedsModule(t *testing.T) {
	half := transform.WithDeps("half", func(r *transform.Reader) (value.Value, error) {
		v, err := r.Number("result")
		if err != nil {
			return value.Null(), err
		}
		return value.Number(v / 2), nil
	}, "result")
	ts, err := transform.NewSet(half)
	require.NoError(t, err)

	sink := testutil.Func("S", []string{"half"}, []string{"halved"}, func(in value.Record, _ int) (value.Record, error) {
		return value.Record{"halved": in["half"]}, nil
	})
	cfg := rootAndScaled()
	cfg.Modules = append(cfg.Modules, sink)
	cfg.Transforms = ts

	e, err := New(cfg, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"R", "D", "S"}, e.Plan().Order)

	res, err := Run(context.Background(), cfg, Options{})
	require.NoError(t, err)
	halved, err := res.Numbers("S", "halved")
	require.NoError(t, err)
	assert.Equal(t, []float64{500, 510, 520}, halved)
}

func TestRun_CycleBreakerFallsBackWhenDerivedInputIsPending(t *testing.T) {
	gdpPerCapita := transform.WithDeps("gdp_per_capita", func(r *transform.Reader) (value.Value, error) {
		gdp, err := r.Number("gdp")
		if err != nil {
			return value.Null(), err
		}
		return value.Number(gdp / 10), nil
	}, "gdp")
	estimate := transform.CycleBreaker("estimate", func(r *transform.Reader) (value.Value, error) {
		if v, ok := r.Get("gdp_per_capita"); ok {
			return v, nil
		}
		return value.Number(1), nil
	})
	ts, err := transform.NewSet(gdpPerCapita, estimate)
	require.NoError(t, err)

	a := testutil.Func("A", []string{"estimate"}, []string{"x"}, func(in value.Record, _ int) (value.Record, error) {
		return value.Record{"x": in["estimate"]}, nil
	})
	b := testutil.Func("B", []string{"x"}, []string{"gdp"}, func(in value.Record, _ int) (value.Record, error) {
		x, _ := in["x"].Float()
		return value.Record{"gdp": value.Number(x * 10)}, nil
	})
	cfg := Config{
		Modules:    []*module.Module{a, b},
		Transforms: ts,
		StartYear:  2000,
		EndYear:    2001,
	}

	e, err := New(cfg, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, e.Plan().Order)

	res, err := Run(context.Background(), cfg, Options{})
	require.NoError(t, err)
	gdp, err := res.Numbers("B", "gdp")
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 10}, gdp)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, rootAndScaled(), Options{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "before year 2000")
}
