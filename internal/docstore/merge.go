package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Merge applies partial onto existing and returns the normalized result.
// existing is not modified.
func Merge(existing, partial map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(existing)+len(partial))
	for k, v := range existing {
		out[k] = v
	}
	for field, value := range partial {
		switch op := value.(type) {
		case ArrayUnionOp:
			current := asSlice(out[field])
			for _, v := range op.Values {
				if !containsValue(current, v) {
					current = append(current, v)
				}
			}
			out[field] = current
		case ArrayRemoveOp:
			current := asSlice(out[field])
			kept := make([]any, 0, len(current))
			for _, v := range current {
				if !containsValue(op.Values, v) {
					kept = append(kept, v)
				}
			}
			out[field] = kept
		default:
			out[field] = value
		}
	}
	return Normalize(out)
}

// Normalize round-trips fields through JSON so every backend stores and
// compares the same representation (numbers become float64, times strings).
func Normalize(fields map[string]any) (map[string]any, error) {
	if fields == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return out, nil
}

// Equal compares two values by their JSON encoding.
func Equal(a, b any) bool {
	ra, errA := json.Marshal(a)
	rb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ra, rb)
}

// Matches reports whether doc satisfies the equality part of q.
func Matches(doc Document, q Query) bool {
	if q.Field == "" {
		return true
	}
	v, ok := doc.Fields[q.Field]
	if !ok {
		return false
	}
	return Equal(v, q.Value)
}

// SortBy orders docs by field ascending. Documents missing the field go last.
func SortBy(docs []Document, field string) {
	if field == "" {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		vi, okI := docs[i].Fields[field]
		vj, okJ := docs[j].Fields[field]
		if okI != okJ {
			return okI
		}
		return compareValues(vi, vj) < 0
	})
}

// Decode fills v from the document fields and sets nothing else.
func Decode(doc Document, v any) error {
	raw, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", doc.ID, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document %s: %w", doc.ID, err)
	}
	return nil
}

// Encode turns a tagged struct into a field map.
func Encode(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return out, nil
}

func asSlice(v any) []any {
	switch s := v.(type) {
	case []any:
		out := make([]any, len(s))
		copy(out, s)
		return out
	case []string:
		out := make([]any, len(s))
		for i, item := range s {
			out[i] = item
		}
		return out
	default:
		return []any{}
	}
}

func containsValue(values []any, v any) bool {
	for _, item := range values {
		if Equal(item, v) {
			return true
		}
	}
	return false
}

// compareValues orders nil < bool < number < string < anything else.
func compareValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch av := a.(type) {
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case string:
		bv := b.(string)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case nil:
		return 0
	}
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	return bytes.Compare(ja, jb)
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}
