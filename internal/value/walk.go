package value

import (
	"fmt"
	"math"
	"strconv"
)

// NonFiniteError reports a NaN or infinite number found while walking a value.
type NonFiniteError struct {
	Path  string
	Value float64
}

func (e *NonFiniteError) Error() string {
	return fmt.Sprintf("%s is not finite (%v)", e.Path, e.Value)
}

// CheckFinite walks v and returns a *NonFiniteError for the first NaN or
// infinite number found at any depth. Non-numeric leaves are not checked.
func (v Value) CheckFinite(path string) error {
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return &NonFiniteError{Path: path, Value: v.num}
		}
	case KindList:
		for i, item := range v.list {
			if err := item.CheckFinite(join(path, strconv.Itoa(i))); err != nil {
				return err
			}
		}
	case KindRecord:
		for _, k := range v.rec.Keys() {
			if err := v.rec[k].CheckFinite(join(path, k)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flatten writes every leaf of v into out under its qualified name, e.g.
// "minerals.copper.cumulative". List elements are addressed as "name.0".
// Empty records and lists contribute nothing.
func (v Value) Flatten(prefix string, out map[string]Value) {
	switch v.kind {
	case KindRecord:
		for k, child := range v.rec {
			child.Flatten(join(prefix, k), out)
		}
	case KindList:
		for i, child := range v.list {
			child.Flatten(join(prefix, strconv.Itoa(i)), out)
		}
	default:
		out[prefix] = v
	}
}

// Flatten returns every leaf of r keyed by its qualified name.
func (r Record) Flatten(prefix string) map[string]Value {
	out := make(map[string]Value)
	for k, v := range r {
		v.Flatten(join(prefix, k), out)
	}
	return out
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
