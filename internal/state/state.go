package state

import (
	"fmt"
	"sort"
)

// Value is a sealed interface over the types a universe state may hold.
// Only Null, String, Int, Float, Bool, List, and Map implement it.
// Keeping the set closed makes cloning, equality, and canonical
// serialization total functions.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents an explicit null value.
type Null struct{}

func (Null) value() {}

// String is a string value.
type String string

func (String) value() {}

// Int is an integer value, always int64.
type Int int64

func (Int) value() {}

// Float is a floating point value.
// NaN and infinities are rejected at canonical serialization time.
type Float float64

func (Float) value() {}

// Bool is a boolean value.
type Bool bool

func (Bool) value() {}

// List is an ordered sequence of values.
type List []Value

func (List) value() {}

// Map is a mapping from string keys to values. A Map is the state of a
// universe: rules take one and return a new one. Treat it as immutable;
// use Clone before mutating a derived copy.
type Map map[string]Value

func (Map) value() {}

// Clone deep-copies the map. Rules that rewrite a handful of keys
// should Clone first and mutate the copy.
func (m Map) Clone() Map {
	if m == nil {
		return Map{}
	}
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v Value) Value {
	switch val := v.(type) {
	case List:
		out := make(List, len(val))
		for i, elem := range val {
			out[i] = cloneValue(elem)
		}
		return out
	case Map:
		return val.Clone()
	default:
		// Null, String, Int, Float, Bool are immutable scalars.
		return v
	}
}

// SortedKeys returns the map's keys in ascending byte order.
// Used wherever iteration order must be deterministic.
func (m Map) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports structural equality of two values.
// Int and Float compare equal only to their own kind; a metric that
// wants numeric tolerance should use Number instead.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Map:
		bv, ok := b.(Map)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, present := bv[k]
			if !present || !Equal(v, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Number extracts a numeric value as float64.
// Returns false for non-numeric values.
func Number(v Value) (float64, bool) {
	switch val := v.(type) {
	case Int:
		return float64(val), true
	case Float:
		return float64(val), true
	default:
		return 0, false
	}
}

// FromGo converts a decoded Go value (as produced by CUE, YAML, or JSON
// decoding into any) to a Value. Unsupported types are an error.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint64:
		return Int(int64(val)), nil
	case float64:
		return Float(val), nil
	case float32:
		return Float(val), nil
	case []any:
		out := make(List, len(val))
		for i, elem := range val {
			converted, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			out[i] = converted
		}
		return out, nil
	case map[string]any:
		return MapFromGo(val)
	default:
		return nil, fmt.Errorf("unsupported state value type %T", v)
	}
}

// MapFromGo converts a decoded Go map to a state Map.
func MapFromGo(m map[string]any) (Map, error) {
	out := make(Map, len(m))
	for k, v := range m {
		converted, err := FromGo(v)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = converted
	}
	return out, nil
}

// Interface converts a value back to plain Go types, for handing state
// to encoders that do not know about the sealed hierarchy.
func Interface(v Value) any {
	switch val := v.(type) {
	case Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Interface(elem)
		}
		return out
	case Map:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = Interface(elem)
		}
		return out
	default:
		return nil
	}
}
