// Package transform implements derived values: named pure functions computed
// from the outputs available so far in the current year.
//
// A transform may declare the names it reads. A non-empty declaration makes it
// graph-aware: its consumers are ordered after the modules producing those
// names. An explicitly empty declaration marks a cycle-breaker, which adds no
// ordering edges and therefore may read values from modules that would
// otherwise form a cycle.
package transform

import (
	"fmt"
	"sort"

	"github.com/vk/wiresim/internal/value"
)

// Func computes a transform's value from a Reader over the current record.
type Func func(r *Reader) (value.Value, error)

// Transform is a named derived value.
type Transform struct {
	Name     string
	Fn       Func
	deps     []string
	declared bool
}

// New returns a transform with no declared dependency set. It adds no
// ordering edges and is not subject to read tracking.
func New(name string, fn Func) *Transform {
	return &Transform{Name: name, Fn: fn}
}

// WithDeps returns a transform that declares the names it reads. Calling it
// with no deps declares an empty set, which makes a cycle-breaker.
func WithDeps(name string, fn Func, deps ...string) *Transform {
	d := make([]string, len(deps))
	copy(d, deps)
	return &Transform{Name: name, Fn: fn, deps: d, declared: true}
}

// CycleBreaker returns a transform with an explicitly empty dependency set.
func CycleBreaker(name string, fn Func) *Transform {
	return WithDeps(name, fn)
}

// DependsOn returns the declared dependency names and whether a set was
// declared at all.
func (t *Transform) DependsOn() ([]string, bool) {
	return t.deps, t.declared
}

// IsCycleBreaker reports whether the transform declares an empty dependency set.
func (t *Transform) IsCycleBreaker() bool {
	return t.declared && len(t.deps) == 0
}

func (t *Transform) declares(name string) bool {
	for _, d := range t.deps {
		if d == name {
			return true
		}
	}
	return false
}

// Set is the transform map, keyed by the output name each transform computes.
type Set map[string]*Transform

// NewSet indexes transforms by name, rejecting duplicates and nil functions.
func NewSet(ts ...*Transform) (Set, error) {
	s := make(Set, len(ts))
	for _, t := range ts {
		if t.Name == "" {
			return nil, fmt.Errorf("transform has no name")
		}
		if t.Fn == nil {
			return nil, fmt.Errorf("transform %q has no function", t.Name)
		}
		if _, exists := s[t.Name]; exists {
			return nil, fmt.Errorf("transform %q defined twice", t.Name)
		}
		s[t.Name] = t
	}
	return s, nil
}

// Names returns the transform names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a transform with the given name exists.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// IsCycleBreaker reports whether name is a cycle-breaker transform.
func (s Set) IsCycleBreaker(name string) bool {
	t, ok := s[name]
	return ok && t.IsCycleBreaker()
}
