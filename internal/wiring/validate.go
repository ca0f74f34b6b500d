package wiring

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/vk/wiresim/internal/lag"
	"github.com/vk/wiresim/internal/module"
	"github.com/vk/wiresim/internal/registry"
	"github.com/vk/wiresim/internal/transform"
)

// ErrInvalidWiring wraps every validation failure.
var ErrInvalidWiring = errors.New("wiring validation failed")

// issuesError lists every validation issue. It unwraps to ErrInvalidWiring
// and to the sentinel of any issue kind that has its own.
type issuesError struct {
	issues []string
	causes []error
}

func (e *issuesError) Error() string {
	return ErrInvalidWiring.Error() + ":\n- " + strings.Join(e.issues, "\n- ")
}

func (e *issuesError) Unwrap() []error { return e.causes }

// Validate checks modules, transforms and lags against each other:
//   - every module input resolves to a producer, a transform or a lag;
//   - every declared transform dependency names an output or transform, and
//     declared dependencies between transforms form no cycle;
//   - every lag source names an output or transform;
//   - no module directly consumes a cycle-breaker transform that is also a
//     lag source; such values must be read through the lag.
//
// It also rejects output collisions, names that shadow each other and lag
// delays below one. An output collision also matches
// registry.ErrOutputCollision.
func Validate(modules []*module.Module, transforms transform.Set, lags lag.Set) error {
	var errs []string
	causes := []error{ErrInvalidWiring}

	owners := make(map[string]string)
	for _, m := range modules {
		for _, out := range m.Outputs {
			if owner, exists := owners[out]; exists {
				errs = append(errs, fmt.Sprintf("output %q already provided by %s, cannot also be provided by %s", out, owner, m.Name))
				if !slices.Contains(causes, registry.ErrOutputCollision) {
					causes = append(causes, registry.ErrOutputCollision)
				}
				continue
			}
			owners[out] = m.Name
		}
	}
	exists := func(name string) bool {
		_, isOutput := owners[name]
		return isOutput || transforms.Has(name)
	}

	for _, m := range modules {
		for _, in := range m.Inputs {
			if !exists(in) && !lags.Has(in) {
				errs = append(errs, fmt.Sprintf("module %q: unresolved input %q", m.Name, in))
			}
		}
	}

	for _, name := range transforms.Names() {
		if owner, ok := owners[name]; ok {
			errs = append(errs, fmt.Sprintf("transform %q shadows an output of module %q", name, owner))
		}
		deps, _ := transforms[name].DependsOn()
		for _, dep := range deps {
			if !exists(dep) {
				errs = append(errs, fmt.Sprintf("transform %q depends on '%s' which doesn't exist", name, dep))
			}
		}
	}
	errs = append(errs, transformCycles(transforms)...)

	for _, name := range lags.Names() {
		l := lags[name]
		if exists(name) {
			errs = append(errs, fmt.Sprintf("lag %q shadows an existing output or transform", name))
		}
		if !exists(l.Source) {
			errs = append(errs, fmt.Sprintf("lag %q reads source '%s' which doesn't exist", name, l.Source))
		}
		if l.Delay < 1 {
			errs = append(errs, fmt.Sprintf("lag %q has delay %d, must be at least 1", name, l.Delay))
		}
	}

	errs = append(errs, lintCycleBreakers(modules, transforms, lags)...)

	if len(errs) > 0 {
		return &issuesError{issues: errs, causes: causes}
	}
	return nil
}

// transformCycles walks declared dependencies between transforms depth first
// and reports each cycle once, as the path that closes it.
func transformCycles(transforms transform.Set) []string {
	var errs []string
	done := make(map[string]bool)
	onStack := make(map[string]bool)
	var stack []string

	var visit func(name string)
	visit = func(name string) {
		onStack[name] = true
		stack = append(stack, name)
		deps, _ := transforms[name].DependsOn()
		for _, dep := range deps {
			if !transforms.Has(dep) || done[dep] {
				continue
			}
			if onStack[dep] {
				path := append(slices.Clone(stack[slices.Index(stack, dep):]), dep)
				errs = append(errs, "transform dependency cycle: "+strings.Join(path, " -> "))
				continue
			}
			visit(dep)
		}
		stack = stack[:len(stack)-1]
		onStack[name] = false
		done[name] = true
	}

	for _, name := range transforms.Names() {
		if !done[name] {
			visit(name)
		}
	}
	return errs
}

// lintCycleBreakers flags modules that list a lag-sourced cycle-breaker
// transform among their inputs. A cycle-breaker recomputes from the current,
// possibly unsettled year; only the lag guarantees settled data. A
// cycle-breaker that no lag reads is a constant or parameter injection and is
// exempt.
func lintCycleBreakers(modules []*module.Module, transforms transform.Set, lags lag.Set) []string {
	var errs []string
	for _, name := range transforms.Names() {
		if !transforms.IsCycleBreaker(name) {
			continue
		}
		via := lags.Sources(name)
		if len(via) == 0 {
			continue
		}
		for _, m := range modules {
			for _, in := range m.Inputs {
				if in == name {
					errs = append(errs, fmt.Sprintf("module %q directly consumes cycle-breaker %q; declare lag %q as its input instead", m.Name, name, via[0]))
				}
			}
		}
	}
	return errs
}
