package normalize

import (
	"encoding/json"
	"fmt"
)

func asObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// pickString scans keys in order and returns the first value that is a
// string. A non-string value under an earlier key is skipped, not coerced;
// the key order encodes "current backend name" before "legacy name" before
// "generic fallback".
func pickString(src map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		if s, ok := src[key].(string); ok {
			return s, true
		}
	}
	return "", false
}

func pickNumber(src map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		switch n := src[key].(type) {
		case float64:
			return n, true
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f, true
			}
		case int:
			return float64(n), true
		}
	}
	return 0, false
}

func pickInt(src map[string]any, keys ...string) (int, bool) {
	n, ok := pickNumber(src, keys...)
	if !ok {
		return 0, false
	}
	return int(n), true
}

func pickBool(src map[string]any, keys ...string) (bool, bool) {
	for _, key := range keys {
		if b, ok := src[key].(bool); ok {
			return b, true
		}
	}
	return false, false
}

func pickStringSlice(src map[string]any, keys ...string) ([]string, bool) {
	for _, key := range keys {
		arr, ok := src[key].([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	}
	return nil, false
}

// contentBlock returns the nested content object some backend versions wrap
// procedure fields in, under either the current or the capitalized legacy key.
func contentBlock(src map[string]any) (map[string]any, bool) {
	if m, ok := asObject(src["content"]); ok {
		return m, true
	}
	if m, ok := asObject(src["Content"]); ok {
		return m, true
	}
	return nil, false
}

// stringifyValue renders an element of unrecognized shape as a last-resort
// diagnostic value so data stays visible instead of being dropped.
func stringifyValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if raw, err := json.Marshal(v); err == nil {
		return string(raw)
	}
	return fmt.Sprint(v)
}
