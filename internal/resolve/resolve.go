// Package resolve picks display values out of loosely shaped API payloads.
//
// The workflow API is inconsistent about where it puts a given field: a client
// name may arrive flat (tax_case_name), inside a details object
// (tax_case_details.name), or inside an embedded record (tax_case.name).
// Instead of repeating inline fallback chains, callers list the candidate
// locations once, in priority order, and this package returns the first one
// that holds a usable value.
//
// Key functions:
//   - [First] is the typed primitive: the first accessor that reports a value wins
//   - [String], [Float], [Bool], [Time] and [ID] apply [First] to [Path] lists
//   - [Lookup] walks a nested map along a [Path]
//
// Every function is total: missing keys, nil objects and wrong types are
// treated as "not present", never as errors.
package resolve

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Accessor returns a candidate value and whether it is present.
type Accessor[T any] func() (T, bool)

// First returns the value of the first accessor that reports presence.
//
// Accessors are evaluated strictly in order and evaluation stops at the first
// hit, so the priority order is exactly the argument order. The zero value and
// false are returned when no accessor reports a value.
func First[T any](accessors ...Accessor[T]) (T, bool) {
	for _, get := range accessors {
		if get == nil {
			continue
		}
		if v, ok := get(); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Or returns the first present value, or def when none is present.
func Or[T any](def T, accessors ...Accessor[T]) T {
	if v, ok := First(accessors...); ok {
		return v
	}
	return def
}

// Path is a sequence of keys into nested objects, e.g. Path{"tax_case_details", "name"}.
type Path []string

// P is shorthand for building a [Path].
func P(keys ...string) Path {
	return Path(keys)
}

// Lookup walks obj along path and returns the value found there.
//
// A nil value counts as absent. Intermediate values that are not objects end
// the walk with false.
func Lookup(obj map[string]any, path Path) (any, bool) {
	if obj == nil || len(path) == 0 {
		return nil, false
	}
	var cur any = obj
	for _, key := range path {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// String returns the first non-blank string found at any of the paths.
// Numbers are formatted without exponent so numeric fields can act as labels.
func String(obj map[string]any, paths ...Path) string {
	return StringOr(obj, "", paths...)
}

// StringOr is [String] with a default for when no path holds a value.
func StringOr(obj map[string]any, def string, paths ...Path) string {
	accessors := make([]Accessor[string], len(paths))
	for i, p := range paths {
		accessors[i] = stringAt(obj, p)
	}
	return Or(def, accessors...)
}

// Float returns the first numeric value found at any of the paths.
// Numeric strings such as "42.5" are accepted.
func Float(obj map[string]any, paths ...Path) (float64, bool) {
	accessors := make([]Accessor[float64], len(paths))
	for i, p := range paths {
		accessors[i] = floatAt(obj, p)
	}
	return First(accessors...)
}

// Int returns [Float] truncated to an int, or 0.
func Int(obj map[string]any, paths ...Path) int {
	v, ok := Float(obj, paths...)
	if !ok {
		return 0
	}
	return int(v)
}

// Bool returns the first boolean found at any of the paths.
// The strings "true"/"false" (any case) are accepted.
func Bool(obj map[string]any, paths ...Path) (bool, bool) {
	accessors := make([]Accessor[bool], len(paths))
	for i, p := range paths {
		accessors[i] = boolAt(obj, p)
	}
	return First(accessors...)
}

// Time returns the first parseable timestamp found at any of the paths.
func Time(obj map[string]any, paths ...Path) *time.Time {
	accessors := make([]Accessor[time.Time], len(paths))
	for i, p := range paths {
		accessors[i] = timeAt(obj, p)
	}
	if t, ok := First(accessors...); ok {
		return &t
	}
	return nil
}

// ID returns the first identifier found at any of the paths.
//
// References come in three shapes: a string, a number, or an embedded object
// carrying its own "id". All three resolve to the same string form.
func ID(obj map[string]any, paths ...Path) string {
	accessors := make([]Accessor[string], len(paths))
	for i, p := range paths {
		accessors[i] = idAt(obj, p)
	}
	return Or("", accessors...)
}

// Object returns the first nested object found at any of the paths.
func Object(obj map[string]any, paths ...Path) (map[string]any, bool) {
	for _, p := range paths {
		v, ok := Lookup(obj, p)
		if !ok {
			continue
		}
		if m, ok := asMap(v); ok {
			return m, true
		}
	}
	return nil, false
}

// List returns the first array found at any of the paths.
func List(obj map[string]any, paths ...Path) ([]any, bool) {
	for _, p := range paths {
		v, ok := Lookup(obj, p)
		if !ok {
			continue
		}
		if l, ok := v.([]any); ok {
			return l, true
		}
	}
	return nil, false
}

func stringAt(obj map[string]any, p Path) Accessor[string] {
	return func() (string, bool) {
		v, ok := Lookup(obj, p)
		if !ok {
			return "", false
		}
		s, ok := asString(v)
		if !ok || strings.TrimSpace(s) == "" {
			return "", false
		}
		return strings.TrimSpace(s), true
	}
}

func floatAt(obj map[string]any, p Path) Accessor[float64] {
	return func() (float64, bool) {
		v, ok := Lookup(obj, p)
		if !ok {
			return 0, false
		}
		return asFloat(v)
	}
}

func boolAt(obj map[string]any, p Path) Accessor[bool] {
	return func() (bool, bool) {
		v, ok := Lookup(obj, p)
		if !ok {
			return false, false
		}
		switch b := v.(type) {
		case bool:
			return b, true
		case string:
			parsed, err := strconv.ParseBool(strings.TrimSpace(b))
			return parsed, err == nil
		}
		return false, false
	}
}

// timeLayouts are tried in order; the API mixes RFC 3339 with bare dates.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func timeAt(obj map[string]any, p Path) Accessor[time.Time] {
	return func() (time.Time, bool) {
		v, ok := Lookup(obj, p)
		if !ok {
			return time.Time{}, false
		}
		switch t := v.(type) {
		case time.Time:
			return t, !t.IsZero()
		case string:
			s := strings.TrimSpace(t)
			for _, layout := range timeLayouts {
				if parsed, err := time.Parse(layout, s); err == nil {
					return parsed, true
				}
			}
		}
		return time.Time{}, false
	}
}

func idAt(obj map[string]any, p Path) Accessor[string] {
	return func() (string, bool) {
		v, ok := Lookup(obj, p)
		if !ok {
			return "", false
		}
		if m, ok := asMap(v); ok {
			v, ok = m["id"]
			if !ok || v == nil {
				return "", false
			}
		}
		s, ok := asString(v)
		if !ok || strings.TrimSpace(s) == "" {
			return "", false
		}
		return strings.TrimSpace(s), true
	}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				continue
			}
			out[ks] = val
		}
		return out, true
	}
	return nil, false
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	case float64:
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return "", false
		}
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case uint64:
		return strconv.FormatUint(s, 10), true
	}
	return "", false
}

func asFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
