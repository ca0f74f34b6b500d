package transform

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/wiresim/internal/value"
)

// ErrUnavailable is returned when a transform reads a name that has no value
// yet in the record it runs on.
var ErrUnavailable = errors.New("not available")

// Source resolves a non-transform name against the record a transform runs on.
type Source func(name string) (value.Value, bool)

// Reader is the read-only view a transform receives.
type Reader struct {
	ev    *Evaluator
	owner string
	err   error
}

// Get returns the value of name. Names of other transforms are evaluated on
// demand. The boolean is false when the name is not available yet, which
// includes a transform whose own inputs are not available yet. Any other
// failure of a nested transform fails the reading transform as well.
func (r *Reader) Get(name string) (value.Value, bool) {
	if r.ev.track {
		r.ev.recordRead(r.owner, name)
	}
	if _, ok := r.ev.set[name]; ok {
		v, err := r.ev.Eval(name)
		if err != nil {
			if !errors.Is(err, ErrUnavailable) && r.err == nil {
				r.err = err
			}
			return value.Null(), false
		}
		return v, true
	}
	return r.ev.source(name)
}

// Has reports whether name is available.
func (r *Reader) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Number returns name as a number, failing when it is absent or not numeric.
func (r *Reader) Number(name string) (float64, error) {
	v, ok := r.Get(name)
	if !ok {
		return 0, fmt.Errorf("transform %q: %q is %w", r.owner, name, ErrUnavailable)
	}
	f, ok := v.Float()
	if !ok {
		return 0, fmt.Errorf("transform %q: %q is %s, not a number", r.owner, name, v.Kind())
	}
	return f, nil
}

// UndeclaredRead is a key a transform read without declaring it.
type UndeclaredRead struct {
	Transform string
	Key       string
}

func (u UndeclaredRead) String() string {
	return fmt.Sprintf("transform %q read %q without declaring it as a dependency", u.Transform, u.Key)
}

// Evaluator evaluates transforms against one record, caching each result so
// that a transform runs at most once per evaluator.
type Evaluator struct {
	set    Set
	source Source
	track  bool
	cache  map[string]value.Value
	active []string
	reads  map[string]map[string]struct{}
}

// NewEvaluator returns an evaluator over source. With track set, every key a
// transform reads is recorded for Undeclared.
func (s Set) NewEvaluator(source Source, track bool) *Evaluator {
	return &Evaluator{
		set:    s,
		source: source,
		track:  track,
		cache:  make(map[string]value.Value),
		reads:  make(map[string]map[string]struct{}),
	}
}

// Eval returns the value of the named transform.
func (e *Evaluator) Eval(name string) (value.Value, error) {
	if v, ok := e.cache[name]; ok {
		return v, nil
	}
	t, ok := e.set[name]
	if !ok {
		return value.Null(), fmt.Errorf("unknown transform %q", name)
	}
	for _, a := range e.active {
		if a == name {
			return value.Null(), fmt.Errorf("transform cycle: %s -> %s", strings.Join(e.active, " -> "), name)
		}
	}

	e.active = append(e.active, name)
	r := &Reader{ev: e, owner: name}
	v, err := t.Fn(r)
	e.active = e.active[:len(e.active)-1]

	if err == nil {
		err = r.err
	}
	if err != nil {
		return value.Null(), fmt.Errorf("evaluating transform %q: %w", name, err)
	}
	e.cache[name] = v
	return v, nil
}

// Evaluated returns the values computed so far.
func (e *Evaluator) Evaluated() value.Record {
	out := make(value.Record, len(e.cache))
	for k, v := range e.cache {
		out[k] = v
	}
	return out
}

// Undeclared lists the reads of transforms with a non-empty declared
// dependency set that fell outside that set. Cycle-breakers read without
// declaring by definition, so neither their own reads nor reads of them are
// reported. Results are sorted by transform then key.
func (e *Evaluator) Undeclared() []UndeclaredRead {
	var out []UndeclaredRead
	for name, keys := range e.reads {
		t := e.set[name]
		if _, declared := t.DependsOn(); !declared || t.IsCycleBreaker() {
			continue
		}
		for k := range keys {
			if t.declares(k) || e.set.IsCycleBreaker(k) {
				continue
			}
			out = append(out, UndeclaredRead{Transform: name, Key: k})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Transform != out[j].Transform {
			return out[i].Transform < out[j].Transform
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func (e *Evaluator) recordRead(owner, key string) {
	keys, ok := e.reads[owner]
	if !ok {
		keys = make(map[string]struct{})
		e.reads[owner] = keys
	}
	keys[key] = struct{}{}
}
