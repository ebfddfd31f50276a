package naru

import (
	"bytes"

	json "github.com/goccy/go-json"
)

// Shape is how the upstream encoded a record list. The API sends nothing
// for zero results, a bare object for one, and an array of {key: {...}}
// wrappers for many.
type Shape int

const (
	ShapeAbsent Shape = iota
	ShapeSingle
	ShapeArray
)

func (s Shape) String() string {
	switch s {
	case ShapeSingle:
		return "single"
	case ShapeArray:
		return "array"
	default:
		return "absent"
	}
}

// ShapeOf classifies a raw JSON value. Scalars and {} count as absent.
func ShapeOf(raw json.RawMessage) Shape {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ShapeAbsent
	}
	switch trimmed[0] {
	case '[':
		return ShapeArray
	case '{':
		var m map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &m); err != nil || len(m) == 0 {
			return ShapeAbsent
		}
		return ShapeSingle
	default:
		return ShapeAbsent
	}
}

// Normalize turns any of the three upstream shapes into an ordered
// sequence of records, unwrapping key from each element that carries it.
// Applying it to its own output yields the same sequence.
func Normalize(raw json.RawMessage, key string) []json.RawMessage {
	switch ShapeOf(raw) {
	case ShapeSingle:
		inner := unwrap(raw, key)
		if ShapeOf(inner) == ShapeArray {
			return Normalize(inner, key)
		}
		return []json.RawMessage{inner}
	case ShapeArray:
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return []json.RawMessage{}
		}
		out := make([]json.RawMessage, 0, len(items))
		for _, item := range items {
			if ShapeOf(item) != ShapeSingle {
				continue
			}
			out = append(out, unwrap(item, key))
		}
		return out
	default:
		return []json.RawMessage{}
	}
}

func unwrap(obj json.RawMessage, key string) json.RawMessage {
	if key == "" {
		return obj
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(obj, &m); err != nil {
		return obj
	}
	inner, ok := m[key]
	if !ok {
		return obj
	}
	switch ShapeOf(inner) {
	case ShapeSingle, ShapeArray:
		return inner
	default:
		return obj
	}
}

// DecodeRecords normalizes raw and decodes every record into T
func DecodeRecords[T any](raw json.RawMessage, key string) ([]T, error) {
	items := Normalize(raw, key)
	out := make([]T, 0, len(items))
	for _, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
