package normalize

import (
	"sort"
	"strconv"
)

// reconcileSequence normalizes the list-or-map ambiguity in collection
// fields: some backend versions deliver steps and fees as an array, others as
// a keyed map. Array elements get order = index+1 unless the mapper finds an
// explicit one; map keys are parsed as integer orders, with non-numeric keys
// falling back to ascending position after the numeric ones. The mapper
// receives the positional order and the raw element and never fails.
func reconcileSequence[T any](raw any, mapItem func(order int, v any) T) []T {
	switch t := raw.(type) {
	case []any:
		out := make([]T, 0, len(t))
		for i, item := range t {
			out = append(out, mapItem(i+1, item))
		}
		return out
	case map[string]any:
		type entry struct {
			order int
			value any
		}
		numeric := make([]entry, 0, len(t))
		var leftoverKeys []string
		for key := range t {
			if n, err := strconv.Atoi(key); err == nil {
				numeric = append(numeric, entry{order: n, value: t[key]})
			} else {
				leftoverKeys = append(leftoverKeys, key)
			}
		}
		sort.Slice(numeric, func(i, j int) bool { return numeric[i].order < numeric[j].order })
		sort.Strings(leftoverKeys)

		entries := numeric
		position := len(entries)
		for _, key := range leftoverKeys {
			position++
			entries = append(entries, entry{order: position, value: t[key]})
		}

		out := make([]T, 0, len(entries))
		for _, e := range entries {
			out = append(out, mapItem(e.order, e.value))
		}
		return out
	default:
		return nil
	}
}
