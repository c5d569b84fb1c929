package expect

import (
	"encoding/json"
	"reflect"
)

// valuesEqual compares a decoded JSON value with a caller-supplied expected
// value. JSON numbers always decode as float64, so numeric kinds are
// coerced before comparison; everything else must match structurally.
func valuesEqual(actual, expected any) bool {
	if reflect.DeepEqual(actual, expected) {
		return true
	}
	a, aOK := toFloat64(actual)
	b, bOK := toFloat64(expected)
	return aOK && bOK && a == b
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
