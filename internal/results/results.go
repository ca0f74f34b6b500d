// Package results holds the persistent record of a simulation run and the
// query surface reporting code reads it through.
//
// A Result is append-only: every simulated year is written exactly once, in
// calendar order, after the engine has settled that year.
package results

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/vk/wiresim/internal/module"
	"github.com/vk/wiresim/internal/value"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownSeries is returned when a module/output pair was never declared.
	ErrUnknownSeries = errors.New("unknown series")
	// ErrYearOutOfRange is returned for a year index that has not been recorded.
	ErrYearOutOfRange = errors.New("year index out of range")
)

// Result is the accumulated output of a run.
type Result struct {
	Years []int
	// ByModule holds, per module and declared output, one value per year.
	ByModule map[string]map[string][]value.Value
	// Transforms holds one value per year for every transform.
	Transforms map[string][]value.Value
	Warnings   []string

	modules []string
	outputs map[string][]string
	owners  map[string]string
}

// New prepares an empty result for the given modules.
func New(modules []*module.Module) *Result {
	r := &Result{
		ByModule:   make(map[string]map[string][]value.Value, len(modules)),
		Transforms: make(map[string][]value.Value),
		outputs:    make(map[string][]string, len(modules)),
		owners:     make(map[string]string),
	}
	for _, m := range modules {
		r.modules = append(r.modules, m.Name)
		r.outputs[m.Name] = append([]string(nil), m.Outputs...)
		r.ByModule[m.Name] = make(map[string][]value.Value, len(m.Outputs))
		for _, out := range m.Outputs {
			r.ByModule[m.Name][out] = nil
			r.owners[out] = m.Name
		}
	}
	return r
}

// Append records one settled year. Years must be appended in increasing
// order and every declared output of every module must be present.
func (r *Result) Append(year int, outputs map[string]value.Record, derived value.Record) error {
	if n := len(r.Years); n > 0 && year <= r.Years[n-1] {
		return fmt.Errorf("year %d already recorded or out of order (last is %d)", year, r.Years[n-1])
	}
	for _, name := range r.modules {
		rec := outputs[name]
		for _, out := range r.outputs[name] {
			if _, ok := rec[out]; !ok {
				return fmt.Errorf("year %d: module %q output %q missing from record", year, name, out)
			}
		}
	}

	for _, name := range r.modules {
		for _, out := range r.outputs[name] {
			r.ByModule[name][out] = append(r.ByModule[name][out], outputs[name][out])
		}
	}
	for _, k := range derived.Keys() {
		r.Transforms[k] = append(r.Transforms[k], derived[k])
	}
	r.Years = append(r.Years, year)
	return nil
}

// Warn records an advisory message.
func (r *Result) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Len returns the number of recorded years.
func (r *Result) Len() int { return len(r.Years) }

// Modules returns the module names in registration order.
func (r *Result) Modules() []string { return r.modules }

// Outputs returns a module's declared outputs in declaration order.
func (r *Result) Outputs(moduleName string) []string { return r.outputs[moduleName] }

// Series returns the full time series of one module output.
func (r *Result) Series(moduleName, output string) ([]value.Value, error) {
	outs, ok := r.ByModule[moduleName]
	if !ok {
		return nil, fmt.Errorf("%w: module %q", ErrUnknownSeries, moduleName)
	}
	s, ok := outs[output]
	if !ok {
		return nil, fmt.Errorf("%w: module %q has no output %q", ErrUnknownSeries, moduleName, output)
	}
	return s, nil
}

// Numbers returns a numeric series as float64s.
func (r *Result) Numbers(moduleName, output string) ([]float64, error) {
	s, err := r.Series(moduleName, output)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(s))
	for i, v := range s {
		f, ok := v.Float()
		if !ok {
			return nil, fmt.Errorf("%s.%s at year %d is %s, not a number", moduleName, output, r.Years[i], v.Kind())
		}
		out[i] = f
	}
	return out, nil
}

// YearRecord returns every output for one year index, addressable both by
// bare output name and by "module.output". Transform values are included
// under their own names.
func (r *Result) YearRecord(index int) (value.Record, error) {
	if index < 0 || index >= len(r.Years) {
		return nil, fmt.Errorf("%w: %d (have %d years)", ErrYearOutOfRange, index, len(r.Years))
	}
	rec := make(value.Record)
	for _, name := range r.modules {
		for _, out := range r.outputs[name] {
			v := r.ByModule[name][out][index]
			rec[out] = v
			rec[name+"."+out] = v
		}
	}
	for k, s := range r.Transforms {
		rec[k] = s[index]
	}
	return rec, nil
}

// Flat returns every leaf of one year's module outputs keyed by its fully
// qualified name, e.g. "resources.minerals.copper.cumulative".
func (r *Result) Flat(index int) (map[string]value.Value, error) {
	if index < 0 || index >= len(r.Years) {
		return nil, fmt.Errorf("%w: %d (have %d years)", ErrYearOutOfRange, index, len(r.Years))
	}
	out := make(map[string]value.Value)
	for _, name := range r.modules {
		for _, o := range r.outputs[name] {
			r.ByModule[name][o][index].Flatten(name+"."+o, out)
		}
	}
	return out, nil
}

// Owner returns the module producing a bare output name.
func (r *Result) Owner(output string) (string, bool) {
	m, ok := r.owners[output]
	return m, ok
}

type document struct {
	Years      []int                               `yaml:"years"`
	Modules    map[string]map[string][]value.Value `yaml:"modules"`
	Transforms map[string][]value.Value            `yaml:"transforms,omitempty"`
	Warnings   []string                            `yaml:"warnings,omitempty"`
}

// WriteYAML writes the result as a YAML document. Map keys are emitted in
// sorted order, so equal results produce identical bytes.
func (r *Result) WriteYAML(w io.Writer) error {
	warnings := append([]string(nil), r.Warnings...)
	sort.Strings(warnings)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(document{
		Years:      r.Years,
		Modules:    r.ByModule,
		Transforms: r.Transforms,
		Warnings:   warnings,
	}); err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	return enc.Close()
}
