package value

import (
	"fmt"
	"sort"
)

// Native converts v into plain Go values: float64, string, bool, nil,
// []any and map[string]any.
func (v Value) Native() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Native()
		}
		return out
	case KindRecord:
		return v.rec.Native()
	default:
		return nil
	}
}

// Native converts r into a map of plain Go values.
func (r Record) Native() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v.Native()
	}
	return out
}

// MarshalYAML renders the value as its native Go form.
func (v Value) MarshalYAML() (any, error) {
	return v.Native(), nil
}

// FromNative converts plain Go values into a Value. It accepts the numeric
// builtin types, string, bool, nil, slices and string-keyed maps of those, as
// well as Value and Record themselves.
func FromNative(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case Record:
		return Object(t.Clone()), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case []float64:
		items := make([]Value, len(t))
		for i, f := range t {
			items[i] = Number(f)
		}
		return Value{kind: KindList, list: items}, nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := FromNative(item)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = v
		}
		return Value{kind: KindList, list: items}, nil
	case map[string]any:
		rec, err := RecordFromNative(t)
		if err != nil {
			return Value{}, err
		}
		return Object(rec), nil
	default:
		return Value{}, fmt.Errorf("unsupported type %T", x)
	}
}

// RecordFromNative converts a string-keyed map into a Record.
func RecordFromNative(m map[string]any) (Record, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rec := make(Record, len(m))
	for _, k := range keys {
		v, err := FromNative(m[k])
		if err != nil {
			return nil, fmt.Errorf("in key '%s': %w", k, err)
		}
		rec[k] = v
	}
	return rec, nil
}
