package builder

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/wiresim/internal/ctxlog"
	"github.com/vk/wiresim/internal/dag"
	"github.com/vk/wiresim/internal/lag"
	"github.com/vk/wiresim/internal/registry"
	"github.com/vk/wiresim/internal/transform"
)

// Plan is the fixed execution order for a run plus the resolution of every
// module input.
type Plan struct {
	Order   []string
	nodes   map[string]*Node
	sources map[string]map[string]Source
}

// Build constructs a complete, validated execution plan.
func Build(ctx context.Context, reg *registry.Registry, transforms transform.Set, lags lag.Set) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.")

	g := dag.New()
	plan := &Plan{
		nodes:   make(map[string]*Node),
		sources: make(map[string]map[string]Source),
	}

	// First pass: one node per module.
	for _, m := range reg.Modules() {
		g.AddNode(m.Name)
	}
	logger.Debug("Build: Node creation complete.", "node_count", g.Len())

	// Second pass: link dependencies.
	r := &resolver{reg: reg, transforms: transforms, lags: lags}
	for _, m := range reg.Modules() {
		plan.sources[m.Name] = make(map[string]Source, len(m.Inputs))
		for _, input := range m.Inputs {
			src, producers, err := r.resolve(input)
			if err != nil {
				return nil, fmt.Errorf("module %q: %w", m.Name, err)
			}
			plan.sources[m.Name][input] = src
			for _, p := range producers {
				logger.Debug("Linking dependency.", "from", p, "to", m.Name, "via", input)
				if err := g.AddEdge(p, m.Name); err != nil {
					return nil, fmt.Errorf("error linking dependency: %w", err)
				}
			}
		}
	}
	logger.Debug("Build: Node linking complete.")

	// Final validation: ordering with cycle detection.
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("error validating dependency graph: %w", err)
	}
	plan.Order = order
	logger.Debug("Build: Cycle detection passed.")

	for _, name := range order {
		deps, _ := g.Dependencies(name)
		dependents, _ := g.Dependents(name)
		plan.nodes[name] = &Node{Name: name, DependsOn: deps, ProvidesTo: dependents}
	}

	logger.Info("Build: Graph construction successful.", "modules", len(order), "transforms", len(transforms), "lags", len(lags))
	return plan, nil
}

// Node returns the graph node for a module.
func (p *Plan) Node(name string) (*Node, bool) {
	n, ok := p.nodes[name]
	return n, ok
}

// Source returns how a module input was resolved.
func (p *Plan) Source(moduleName, input string) (Source, bool) {
	s, ok := p.sources[moduleName][input]
	return s, ok
}

// Describe renders the plan one module per line, in execution order.
func (p *Plan) Describe() string {
	var b strings.Builder
	for i, name := range p.Order {
		deps := "-"
		if n := p.nodes[name]; len(n.DependsOn) > 0 {
			deps = strings.Join(n.DependsOn, ", ")
		}
		fmt.Fprintf(&b, "%d. %s (after: %s)\n", i+1, name, deps)
	}
	return b.String()
}

type resolver struct {
	reg        *registry.Registry
	transforms transform.Set
	lags       lag.Set
}

// resolve maps an input name to its source and to the modules that must run
// before any consumer of it.
func (r *resolver) resolve(input string) (Source, []string, error) {
	if producer, ok := r.reg.Producer(input); ok {
		return Source{Kind: FromModule, Name: producer}, []string{producer}, nil
	}
	if t, ok := r.transforms[input]; ok {
		producers, err := r.transformProducers(t, nil)
		if err != nil {
			return Source{}, nil, err
		}
		return Source{Kind: FromTransform, Name: input, Deferred: t.IsCycleBreaker()}, producers, nil
	}
	if r.lags.Has(input) {
		return Source{Kind: FromLag, Name: input, Deferred: true}, nil, nil
	}
	return Source{}, nil, fmt.Errorf("%w %q", ErrUnresolvedInput, input)
}

// transformProducers follows a transform's declared dependencies, through
// other transforms, down to the modules producing the underlying values.
// Undeclared and empty dependency sets contribute nothing.
func (r *resolver) transformProducers(t *transform.Transform, path []string) ([]string, error) {
	for _, p := range path {
		if p == t.Name {
			return nil, fmt.Errorf("transform dependency cycle: %s -> %s", strings.Join(path, " -> "), t.Name)
		}
	}
	path = append(path, t.Name)

	deps, _ := t.DependsOn()
	var producers []string
	seen := make(map[string]bool)
	for _, dep := range deps {
		if producer, ok := r.reg.Producer(dep); ok {
			if !seen[producer] {
				seen[producer] = true
				producers = append(producers, producer)
			}
			continue
		}
		next, ok := r.transforms[dep]
		if !ok {
			return nil, fmt.Errorf("transform %q depends on %q which doesn't exist", t.Name, dep)
		}
		nested, err := r.transformProducers(next, path)
		if err != nil {
			return nil, err
		}
		for _, p := range nested {
			if !seen[p] {
				seen[p] = true
				producers = append(producers, p)
			}
		}
	}
	return producers, nil
}
