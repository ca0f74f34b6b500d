// Package lag implements feedback taps that expose a value from a completed
// previous year as an ordinary module input.
//
// Lags always read fully settled data, never the year in progress, so a
// feedback loop closed through a lag can never recurse within a year.
package lag

import (
	"fmt"
	"sort"

	"github.com/vk/wiresim/internal/value"
)

// Lag feeds the input Name with Source's value from Delay years earlier, or
// Initial while yearIndex < Delay.
type Lag struct {
	Name    string
	Source  string
	Delay   int
	Initial value.Value
}

// New returns a one-year lag, the conventional case.
func New(name, source string, initial value.Value) Lag {
	return Lag{Name: name, Source: source, Delay: 1, Initial: initial}
}

// Set is the lag map, keyed by the input name each lag feeds.
type Set map[string]Lag

// NewSet indexes lags by name, rejecting duplicates.
func NewSet(lags ...Lag) (Set, error) {
	s := make(Set, len(lags))
	for _, l := range lags {
		if l.Name == "" {
			return nil, fmt.Errorf("lag has no name")
		}
		if _, exists := s[l.Name]; exists {
			return nil, fmt.Errorf("lag %q defined twice", l.Name)
		}
		s[l.Name] = l
	}
	return s, nil
}

// Names returns the lag names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a lag feeds the given input name.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sources returns the names of the lags reading the given source.
func (s Set) Sources(source string) []string {
	var names []string
	for _, n := range s.Names() {
		if s[n].Source == source {
			names = append(names, n)
		}
	}
	return names
}

// Merge returns a copy of s with every lag in over added or replacing the
// lag of the same name.
func (s Set) Merge(over Set) Set {
	out := make(Set, len(s)+len(over))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// History is the committed per-year record the lags read from, indexed by
// year index.
type History interface {
	// Committed returns the settled value of name for the given year index.
	Committed(yearIndex int, name string) (value.Value, bool)
}

// Resolve returns every lag's value for yearIndex. A source missing from the
// history is an error: it means the source was never produced.
func (s Set) Resolve(h History, yearIndex int) (value.Record, error) {
	out := make(value.Record, len(s))
	for _, name := range s.Names() {
		l := s[name]
		from := yearIndex - l.Delay
		if from < 0 {
			out[name] = l.Initial
			continue
		}
		v, ok := h.Committed(from, l.Source)
		if !ok {
			return nil, fmt.Errorf("lag %q: source %q has no committed value for year index %d", name, l.Source, from)
		}
		out[name] = v
	}
	return out, nil
}
