// Package value defines the dynamic value model exchanged between simulation
// modules, transforms and the engine.
//
// A Value is a recursive sum type over number, text, boolean, null, ordered
// list and keyed record. Modules are free to return arbitrarily nested
// records; the engine walks them uniformly for finiteness checks, convergence
// comparison and qualified-name flattening without reflection.
package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which case of the sum type a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindString
	KindBool
	KindList
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindRecord:
		return "record"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is an immutable dynamic value. The zero Value is null.
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
	list []Value
	rec  Record
}

// Record is a keyed collection of values. Iteration helpers always walk keys
// in sorted order so that anything derived from a Record is deterministic.
type Record map[string]Value

// Number returns a numeric Value. NaN and infinities are representable so
// that the engine can detect and report them.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// String returns a text Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Null returns the null Value.
func Null() Value { return Value{} }

// List returns an ordered list Value.
func List(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

// Object returns a keyed record Value. A nil record becomes an empty one.
func Object(r Record) Value {
	if r == nil {
		r = Record{}
	}
	return Value{kind: KindRecord, rec: r}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Items returns the elements of a list Value, or nil for any other kind.
func (v Value) Items() []Value { return v.list }

// Fields returns the entries of a record Value, or nil for any other kind.
func (v Value) Fields() Record { return v.rec }

// Float returns the numeric payload and whether v is a number.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// Text returns the string payload and whether v is text.
func (v Value) Text() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// Truth returns the boolean payload and whether v is a boolean.
func (v Value) Truth() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		items := make([]Value, len(v.list))
		for i, item := range v.list {
			items[i] = item.Clone()
		}
		return Value{kind: KindList, list: items}
	case KindRecord:
		return Value{kind: KindRecord, rec: v.rec.Clone()}
	default:
		return v
	}
}

// Equal reports whether a and b hold structurally identical data.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindNumber:
		return v.num == o.num
	case KindString:
		return v.str == o.str
	case KindBool:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindRecord:
		if len(v.rec) != len(o.rec) {
			return false
		}
		for k, a := range v.rec {
			b, ok := o.rec[k]
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	}
	return false
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.str)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindRecord:
		keys := v.rec.Keys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + " = " + v.rec[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "<invalid>"
}

// Keys returns the record's keys in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v.Clone()
	}
	return out
}

// Number returns the numeric value stored under key, or an error when the key
// is missing or not a number.
func (r Record) Number(key string) (float64, error) {
	v, ok := r[key]
	if !ok {
		return 0, fmt.Errorf("missing key %q", key)
	}
	f, ok := v.Float()
	if !ok {
		return 0, fmt.Errorf("key %q is %s, not a number", key, v.Kind())
	}
	return f, nil
}

// Lookup navigates a dotted path such as "copper.cumulative" or "series.2".
// Numeric segments index into lists.
func (r Record) Lookup(path string) (Value, bool) {
	return Object(r).Lookup(path)
}

// Lookup navigates a dotted path below v.
func (v Value) Lookup(path string) (Value, bool) {
	if path == "" {
		return v, true
	}
	cur := v
	for _, seg := range strings.Split(path, ".") {
		switch cur.kind {
		case KindRecord:
			next, ok := cur.rec[seg]
			if !ok {
				return Value{}, false
			}
			cur = next
		case KindList:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(cur.list) {
				return Value{}, false
			}
			cur = cur.list[i]
		default:
			return Value{}, false
		}
	}
	return cur, true
}
