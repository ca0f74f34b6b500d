package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/vk/wiresim/internal/builder"
	"github.com/vk/wiresim/internal/ctxlog"
	"github.com/vk/wiresim/internal/lag"
	"github.com/vk/wiresim/internal/module"
	"github.com/vk/wiresim/internal/registry"
	"github.com/vk/wiresim/internal/results"
	"github.com/vk/wiresim/internal/transform"
	"github.com/vk/wiresim/internal/value"
	"github.com/vk/wiresim/internal/wiring"
)

const (
	DefaultMaxIterations = 10
	DefaultTolerance     = 1e-6
)

// Config is the registration surface: everything that defines a run.
type Config struct {
	Modules    []*module.Module
	Transforms transform.Set
	Lags       lag.Set
	StartYear  int
	EndYear    int
	// Overrides holds partial parameter records keyed by module name.
	Overrides map[string]value.Record
}

// Options tune how a run executes without changing what it computes.
type Options struct {
	// MaxIterations caps the passes per year. Zero means DefaultMaxIterations.
	MaxIterations int
	// Tolerance is the relative change below which consecutive passes are
	// considered converged. Zero means DefaultTolerance.
	Tolerance float64
	// TrackTransformReads records every key each transform reads and warns
	// about reads outside its declared dependency set.
	TrackTransformReads bool
	// Logger receives progress and warnings. Nil discards everything, which
	// is how quiet runs are expressed.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.Logger == nil {
		o.Logger = ctxlog.Discard()
	}
	return o
}

// Engine is a wired, validated configuration ready to be started.
type Engine struct {
	cfg      Config
	opts     Options
	logger   *slog.Logger
	reg      *registry.Registry
	plan     *builder.Plan
	params   map[string]value.Record
	warnings []string
}

// New validates the wiring, builds the output registry and execution plan and
// merges module parameters. Every failure here is a configuration error.
func New(cfg Config, opts Options) (*Engine, error) {
	opts = opts.withDefaults()
	logger := opts.Logger
	ctx := ctxlog.WithLogger(context.Background(), logger)

	if cfg.EndYear < cfg.StartYear {
		return nil, fmt.Errorf("end year %d is before start year %d", cfg.EndYear, cfg.StartYear)
	}

	if err := wiring.Validate(cfg.Modules, cfg.Transforms, cfg.Lags); err != nil {
		return nil, err
	}
	logger.Debug("Wiring validation passed.")

	reg, err := registry.Build(cfg.Modules)
	if err != nil {
		return nil, fmt.Errorf("failed to build output registry: %w", err)
	}

	plan, err := builder.Build(ctx, reg, cfg.Transforms, cfg.Lags)
	if err != nil {
		return nil, fmt.Errorf("failed to build execution plan: %w", err)
	}
	logger.Debug("Execution plan ready.", "plan", plan.Describe())

	e := &Engine{
		cfg:    cfg,
		opts:   opts,
		logger: logger,
		reg:    reg,
		plan:   plan,
		params: make(map[string]value.Record, len(cfg.Modules)),
	}

	overrideNames := make([]string, 0, len(cfg.Overrides))
	for name := range cfg.Overrides {
		overrideNames = append(overrideNames, name)
	}
	sort.Strings(overrideNames)
	for _, name := range overrideNames {
		if _, ok := reg.Module(name); !ok {
			return nil, fmt.Errorf("parameter overrides given for unknown module %q", name)
		}
	}

	for _, m := range reg.Modules() {
		params, warnings, err := m.MergeParams(cfg.Overrides[m.Name])
		if err != nil {
			return nil, err
		}
		for _, w := range warnings {
			msg := fmt.Sprintf("module %q: %s", m.Name, w)
			logger.Warn("Parameter warning.", "module", m.Name, "warning", w)
			e.warnings = append(e.warnings, msg)
		}
		e.params[m.Name] = params
	}

	return e, nil
}

// Plan returns the execution plan.
func (e *Engine) Plan() *builder.Plan {
	return e.plan
}

// Params returns the merged parameters of a module.
func (e *Engine) Params(moduleName string) (value.Record, bool) {
	p, ok := e.params[moduleName]
	return p, ok
}

// Start initializes every module's state and returns a cursor positioned at
// the start year. Each call starts an independent run.
func (e *Engine) Start() (*Cursor, error) {
	states := make(map[string]module.State, len(e.plan.Order))
	for _, m := range e.reg.Modules() {
		s, err := m.InitState(e.params[m.Name])
		if err != nil {
			return nil, err
		}
		states[m.Name] = s
	}

	res := results.New(e.reg.Modules())
	for _, w := range e.warnings {
		res.Warn(w)
	}

	return &Cursor{
		e:      e,
		states: states,
		result: res,
		warned: make(map[string]bool),
	}, nil
}

// Run executes a configuration from start year to end year in one call. It is
// a loop over Cursor.Step, so it yields exactly what stepping would. ctx is
// checked before each year; a year in progress always completes.
func Run(ctx context.Context, cfg Config, opts Options) (*results.Result, error) {
	e, err := New(cfg, opts)
	if err != nil {
		return nil, err
	}
	c, err := e.Start()
	if err != nil {
		return nil, err
	}

	for !c.Done() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("simulation stopped before year %d: %w", c.NextYear(), err)
		}
		if _, err := c.Step(); err != nil {
			return nil, err
		}
	}
	return c.Finalize(), nil
}
