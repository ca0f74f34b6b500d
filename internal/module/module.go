// Package module defines the contract every simulation module satisfies.
//
// A module is a named bundle of default parameters, parameter validation and
// merging, state initialization and a per-year step function, together with
// the names of the inputs it requires and the outputs it guarantees to
// produce. The engine treats module state as opaque.
package module

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vk/wiresim/internal/value"
)

// State is a module's private, engine-opaque state. It is created by Init and
// replaced wholesale after every simulated year.
type State any

// Validation is the outcome of checking a parameter record.
type Validation struct {
	Errors   []string
	Warnings []string
}

// Valid reports whether no errors were found.
func (v Validation) Valid() bool { return len(v.Errors) == 0 }

// StepContext is everything a module's step function may look at.
type StepContext struct {
	// State is the module's state as committed at the end of the previous year.
	State State
	// Inputs holds exactly the module's declared inputs, resolved for this pass.
	Inputs value.Record
	Params value.Record
	// Year is the calendar year; YearIndex counts from zero at the start year.
	Year      int
	YearIndex int
}

// Module is one pluggable computation unit.
type Module struct {
	Name     string
	Inputs   []string
	Outputs  []string
	Defaults value.Record

	// Validate checks a complete parameter record. Optional.
	Validate func(params value.Record) Validation
	// Merge builds complete parameters from a partial record. Optional; when
	// nil the partial record is deep-merged over Defaults.
	Merge func(partial value.Record) (value.Record, error)
	// Init creates the state for year zero. Optional; a nil Init yields a nil
	// state.
	Init func(params value.Record) (State, error)
	// Step advances one year. It returns the new state and an output record
	// that must contain every declared output.
	Step func(ctx StepContext) (State, value.Record, error)
}

// Check verifies that the module definition itself is usable.
func (m *Module) Check() error {
	var errs []string
	if m.Name == "" {
		errs = append(errs, "module has no name")
	}
	if m.Step == nil {
		errs = append(errs, "step function is nil")
	}
	errs = append(errs, duplicates("input", m.Inputs)...)
	errs = append(errs, duplicates("output", m.Outputs)...)

	if len(errs) > 0 {
		return fmt.Errorf("module %q is malformed:\n- %s", m.Name, strings.Join(errs, "\n- "))
	}
	return nil
}

// MergeParams produces the complete parameters for a run from a partial
// override record, then validates them. Validation errors make the returned
// error non-nil; warnings are returned for the caller to surface.
func (m *Module) MergeParams(partial value.Record) (value.Record, []string, error) {
	var params value.Record
	if m.Merge != nil {
		merged, err := m.Merge(partial)
		if err != nil {
			return nil, nil, fmt.Errorf("merging parameters for module %q: %w", m.Name, err)
		}
		params = merged
	} else {
		params = value.Merge(m.Defaults, partial)
	}

	if m.Validate == nil {
		return params, nil, nil
	}
	v := m.Validate(params)
	if !v.Valid() {
		return nil, v.Warnings, fmt.Errorf("invalid parameters for module %q:\n- %s", m.Name, strings.Join(v.Errors, "\n- "))
	}
	return params, v.Warnings, nil
}

// InitState runs Init, tolerating a nil Init.
func (m *Module) InitState(params value.Record) (State, error) {
	if m.Init == nil {
		return nil, nil
	}
	s, err := m.Init(params)
	if err != nil {
		return nil, fmt.Errorf("initializing state for module %q: %w", m.Name, err)
	}
	return s, nil
}

// ErrNoSuchParam is returned by Param when the key is absent or not numeric.
var ErrNoSuchParam = errors.New("parameter not found")

// Param reads a numeric parameter by dotted path.
func Param(params value.Record, path string) (float64, error) {
	v, ok := params.Lookup(path)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoSuchParam, path)
	}
	f, ok := v.Float()
	if !ok {
		return 0, fmt.Errorf("%w: %s is %s, not a number", ErrNoSuchParam, path, v.Kind())
	}
	return f, nil
}

func duplicates(kind string, names []string) []string {
	var errs []string
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" {
			errs = append(errs, fmt.Sprintf("empty %s name", kind))
			continue
		}
		if seen[n] {
			errs = append(errs, fmt.Sprintf("%s %q declared twice", kind, n))
		}
		seen[n] = true
	}
	return errs
}
