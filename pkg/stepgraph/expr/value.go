package expr

import (
	"encoding/json"
	"reflect"
)

// IsTruthy returns whether a value is truthy.
// nil is false, bools return their value, empty strings are false,
// zero numbers are false, empty slices and maps are false, everything
// else is true.
func IsTruthy(v any) bool {
	if v == nil {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val != ""
	}
	if f, ok := toNumber(v); ok {
		return f != 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	default:
		return true
	}
}

// ToFloat64 converts a numeric value to float64.
// Returns 0 for values that are not numbers.
func ToFloat64(v any) float64 {
	f, _ := toNumber(v)
	return f
}

// AsNumber reports whether v is a number and returns it as float64.
func AsNumber(v any) (float64, bool) {
	return toNumber(v)
}

// toNumber reports whether v is a number and returns it as float64.
// json.Number is accepted so decoded JSON documents compare naturally.
func toNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case int16:
		return float64(val), true
	case int8:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint64:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint8:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// field looks up key in a map with string keys. Anything else yields nil.
func field(v any, key string) any {
	if m, ok := v.(map[string]any); ok {
		return m[key]
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil
	}
	out := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
	if !out.IsValid() {
		return nil
	}
	return out.Interface()
}

// index returns element i of a slice or array, or nil when out of range.
func index(v any, i int) any {
	if s, ok := v.([]any); ok {
		if i < 0 || i >= len(s) {
			return nil
		}
		return s[i]
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	if i < 0 || i >= rv.Len() {
		return nil
	}
	return rv.Index(i).Interface()
}
