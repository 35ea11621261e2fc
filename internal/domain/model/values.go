package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Float coerces a raw value to a float64. Strings are parsed; anything
// non-numeric, NaN or nil yields false.
func Float(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		p, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = p
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Int coerces a raw value to an int. Fractional numbers are rejected.
func Int(v any) (int, bool) {
	f, ok := Float(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// DisplayName stringifies a raw identifier. Nested {"name": ...} objects
// resolve to their name; nil resolves to the empty string.
func DisplayName(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case json.Number:
		return x.String()
	case map[string]any:
		if name, ok := x["name"]; ok && name != nil {
			return DisplayName(name)
		}
		if id, ok := x["id"]; ok && id != nil {
			return DisplayName(id)
		}
	}
	return fmt.Sprint(v)
}

// OptionalString returns nil for unset values and the display name otherwise.
func OptionalString(v any) *string {
	if v == nil {
		return nil
	}
	s := DisplayName(v)
	return &s
}

// OptionalInt returns nil unless v coerces to an integer.
func OptionalInt(v any) *int {
	i, ok := Int(v)
	if !ok {
		return nil
	}
	return &i
}

// OptionalFloat returns nil unless v coerces to a float.
func OptionalFloat(v any) *float64 {
	f, ok := Float(v)
	if !ok {
		return nil
	}
	return &f
}
