// Package normalize turns the upstream backend's variable JSON shapes into
// the canonical records the gateway serves. The backend has shipped the same
// logical resources under several envelope spellings and field names over
// time; every function here degrades silently to defaults instead of failing,
// so one malformed field never breaks an entire response.
package normalize

// Probe locates the actual resource object inside whichever envelope the
// backend used. Candidates are tried in order and only a non-array object
// replaces the running source, which lets heterogeneous envelopes such as
// {data:{...}}, {procedure:{...}} and {data:{procedure:{...}}} collapse onto
// one effective object. A bare array yields its first element. When nothing
// matches, the raw value is returned as-is; the mapper then produces a
// mostly-empty record, which is expected and tolerated.
func Probe(raw any) any {
	source := raw
	if m, ok := asObject(source); ok {
		switch data := m["data"].(type) {
		case map[string]any:
			source = data
		case []any:
			// The ?id= fallback path answers with a list envelope.
			if len(data) > 0 {
				source = data[0]
			} else {
				source = map[string]any{}
			}
		}
	}
	if m, ok := asObject(source); ok {
		if inner, ok := asObject(m["procedure"]); ok {
			source = inner
		}
	}
	if arr, ok := source.([]any); ok {
		if len(arr) > 0 {
			return arr[0]
		}
		return map[string]any{}
	}
	return source
}

// ProbeItems finds the item array of a list response among the envelope
// spellings {data:[...]}, {items:[...]}, {results:[...]} and a bare array.
// A nil return means the payload carried no recognizable item list.
func ProbeItems(raw any) []any {
	if arr, ok := raw.([]any); ok {
		return arr
	}
	m, ok := asObject(raw)
	if !ok {
		return nil
	}
	for _, key := range []string{"data", "items", "results"} {
		if arr, ok := m[key].([]any); ok {
			return arr
		}
	}
	return nil
}

// IsEmptyPayload reports whether a decoded body carries no usable data: nil,
// an empty array, or an object with zero own fields. The fallback fetcher
// treats such responses as soft-misses and advances to the next path.
func IsEmptyPayload(raw any) bool {
	switch t := raw.(type) {
	case nil:
		return true
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}
