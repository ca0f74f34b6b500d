package engine

import (
	"errors"
	"fmt"

	"github.com/vk/wiresim/internal/builder"
	"github.com/vk/wiresim/internal/module"
	"github.com/vk/wiresim/internal/results"
	"github.com/vk/wiresim/internal/transform"
	"github.com/vk/wiresim/internal/value"
)

// YearRecord is the settled outcome of one simulated year.
type YearRecord struct {
	Year       int
	YearIndex  int
	Iterations int
	// Converged is true when two consecutive passes agreed within tolerance.
	// A year that ran into the iteration cap is still committed.
	Converged bool
	// Outputs holds the declared outputs per module.
	Outputs map[string]value.Record
	// Transforms holds every transform evaluated over the final pass.
	Transforms value.Record
	// Record is the flat view: every output and transform by bare name.
	Record value.Record
}

// Cursor steps a started simulation one year at a time. It is not safe for
// concurrent use.
type Cursor struct {
	e         *Engine
	yearIndex int
	states    map[string]module.State
	history   []value.Record
	result    *results.Result
	warned    map[string]bool
	finished  bool
}

// Done reports whether every year has been simulated.
func (c *Cursor) Done() bool {
	return c.finished || c.e.cfg.StartYear+c.yearIndex > c.e.cfg.EndYear
}

// NextYear returns the calendar year the next Step simulates.
func (c *Cursor) NextYear() int {
	return c.e.cfg.StartYear + c.yearIndex
}

// Committed implements lag.History over the years settled so far.
func (c *Cursor) Committed(yearIndex int, name string) (value.Value, bool) {
	if yearIndex < 0 || yearIndex >= len(c.history) {
		return value.Null(), false
	}
	v, ok := c.history[yearIndex][name]
	return v, ok
}

// Result returns the result accumulated so far. It stays owned by the
// cursor until Finalize.
func (c *Cursor) Result() *results.Result {
	return c.result
}

// Finalize ends the run and hands over the result. Further Step calls fail
// with ErrFinished.
func (c *Cursor) Finalize() *results.Result {
	c.finished = true
	return c.result
}

// pass is one execution of every module in plan order.
type pass struct {
	outputs map[string]value.Record
	states  map[string]module.State
	// merged is the pass accumulator: outputs by bare name plus transforms.
	merged  value.Record
	derived value.Record
}

// Step simulates the next year: passes until convergence or the iteration
// cap, then commits module state and appends the year to the result.
func (c *Cursor) Step() (*YearRecord, error) {
	if c.Done() {
		return nil, ErrFinished
	}
	e := c.e
	year := c.NextYear()
	logger := e.logger.With("year", year)

	lags, err := e.cfg.Lags.Resolve(c, c.yearIndex)
	if err != nil {
		return nil, fmt.Errorf("year %d: %w", year, err)
	}

	var (
		prev      *pass
		cur       *pass
		converged bool
		passes    int
	)
	for passes < e.opts.MaxIterations {
		passes++
		var prevMerged value.Record
		if prev != nil {
			prevMerged = prev.merged
		}
		cur, err = c.runPass(year, lags, prevMerged)
		if err != nil {
			return nil, err
		}
		if prev != nil && value.Converged(prev.merged, cur.merged, e.opts.Tolerance) {
			converged = true
			break
		}
		prev = cur
	}
	logger.Debug("Year settled.", "passes", passes, "converged", converged)

	if !converged && e.opts.MaxIterations > 1 {
		c.warn(fmt.Sprintf("year %d did not converge within %d iterations", year, e.opts.MaxIterations))
	}

	for name, s := range cur.states {
		c.states[name] = s
	}
	c.history = append(c.history, cur.merged)
	if err := c.result.Append(year, cur.outputs, cur.derived); err != nil {
		return nil, err
	}

	rec := &YearRecord{
		Year:       year,
		YearIndex:  c.yearIndex,
		Iterations: passes,
		Converged:  converged,
		Outputs:    cur.outputs,
		Transforms: cur.derived,
		Record:     cur.merged,
	}
	c.yearIndex++
	return rec, nil
}

func (c *Cursor) runPass(year int, lags, prev value.Record) (*pass, error) {
	e := c.e
	p := &pass{
		outputs: make(map[string]value.Record, len(e.plan.Order)),
		states:  make(map[string]module.State, len(e.plan.Order)),
		merged:  make(value.Record),
	}

	// Transforms consumed mid-pass see this pass's accumulator, then the
	// previous pass.
	lazy := e.cfg.Transforms.NewEvaluator(func(name string) (value.Value, bool) {
		if v, ok := p.merged[name]; ok {
			return v, true
		}
		v, ok := prev[name]
		return v, ok
	}, e.opts.TrackTransformReads)

	for _, name := range e.plan.Order {
		m, _ := e.reg.Module(name)

		inputs := make(value.Record, len(m.Inputs))
		for _, in := range m.Inputs {
			v, err := c.resolveInput(m.Name, in, p.merged, prev, lags, lazy)
			if err != nil {
				return nil, fmt.Errorf("year %d, module %q, input %q: %w", year, m.Name, in, err)
			}
			inputs[in] = v
		}

		state, out, err := m.Step(module.StepContext{
			State:     c.states[m.Name],
			Inputs:    inputs,
			Params:    e.params[m.Name],
			Year:      year,
			YearIndex: c.yearIndex,
		})
		if err != nil {
			return nil, fmt.Errorf("module %q failed in year %d: %w", m.Name, year, err)
		}

		declared := make(value.Record, len(m.Outputs))
		for _, o := range m.Outputs {
			v, ok := out[o]
			if !ok {
				return nil, &OutputError{Module: m.Name, Path: o, Year: year, Err: ErrMissingOutput}
			}
			if err := v.CheckFinite(o); err != nil {
				return nil, nonFinite(m.Name, year, err)
			}
			declared[o] = v
			p.merged[o] = v
		}
		p.outputs[m.Name] = declared
		p.states[m.Name] = state
	}

	// Every transform is evaluated again over the complete accumulator so the
	// recorded values do not depend on when they were first consumed.
	full := e.cfg.Transforms.NewEvaluator(func(name string) (value.Value, bool) {
		v, ok := p.merged[name]
		return v, ok
	}, e.opts.TrackTransformReads)
	for _, name := range e.cfg.Transforms.Names() {
		v, err := full.Eval(name)
		if err != nil {
			return nil, fmt.Errorf("year %d: %w", year, err)
		}
		if err := v.CheckFinite(name); err != nil {
			return nil, nonFinite(name, year, err)
		}
	}
	p.derived = full.Evaluated()
	for k, v := range p.derived {
		p.merged[k] = v
	}

	if e.opts.TrackTransformReads {
		for _, u := range append(lazy.Undeclared(), full.Undeclared()...) {
			c.warn(u.String())
		}
	}
	return p, nil
}

func (c *Cursor) resolveInput(moduleName, input string, current, prev, lags value.Record, lazy *transform.Evaluator) (value.Value, error) {
	src, ok := c.e.plan.Source(moduleName, input)
	if !ok {
		return value.Null(), errors.New("no source in plan")
	}
	switch src.Kind {
	case builder.FromLag:
		return lags[src.Name], nil
	case builder.FromTransform:
		return lazy.Eval(src.Name)
	default:
		if v, ok := current[input]; ok {
			return v, nil
		}
		if v, ok := prev[input]; ok {
			return v, nil
		}
		return value.Null(), nil
	}
}

// warn logs and records a warning once per run.
func (c *Cursor) warn(msg string) {
	if c.warned[msg] {
		return
	}
	c.warned[msg] = true
	c.e.logger.Warn(msg)
	c.result.Warn(msg)
}

func nonFinite(owner string, year int, err error) error {
	var nf *value.NonFiniteError
	if errors.As(err, &nf) {
		return &OutputError{
			Module: owner,
			Path:   nf.Path,
			Year:   year,
			Err:    fmt.Errorf("%w: %v", ErrNonFinite, nf.Value),
		}
	}
	return err
}
