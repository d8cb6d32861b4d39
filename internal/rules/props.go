package rules

import (
	"strconv"
)

// Property coercion helpers. Property bags arrive either from in-process
// edits (native Go scalars) or from JSON snapshots (float64/string/bool).
// A missing key falls back to the default silently; a present-but-malformed
// value falls back too, with ok=false so the caller can emit a warning.

func floatProp(props map[string]any, key string, def float64) (float64, bool) {
	v, present := props[key]
	if !present {
		return def, true
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return def, false
	}
}

func intProp(props map[string]any, key string, def int) (int, bool) {
	v, present := props[key]
	if !present {
		return def, true
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
		return def, false
	default:
		return def, false
	}
}

// enumProp coerces a string property restricted to an allowed set.
func enumProp(props map[string]any, key, def string, allowed ...string) (string, bool) {
	v, present := props[key]
	if !present {
		return def, true
	}
	s, isString := v.(string)
	if !isString {
		return def, false
	}
	for _, a := range allowed {
		if s == a {
			return s, true
		}
	}
	return def, false
}

// targetProp coerces the price-action comparison target: either a numeric
// fixed value (rendered as text) or one of the symbolic targets.
func targetProp(props map[string]any, key, def string) (string, bool) {
	v, present := props[key]
	if !present {
		return def, true
	}
	switch t := v.(type) {
	case string:
		switch t {
		case "moving-average", "prior-high", "prior-low":
			return t, true
		}
		// A numeric string is accepted as a fixed value.
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return trimFloat(f), true
		}
		return def, false
	case float64:
		return trimFloat(t), true
	case int:
		return trimFloat(float64(t)), true
	default:
		return def, false
	}
}

// trimFloat renders a float without trailing zeros, e.g. 30 -> "30",
// 0.5 -> "0.5". Used in rule descriptions, so it must be deterministic.
func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
