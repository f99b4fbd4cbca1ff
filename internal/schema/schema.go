// Package schema validates and converts raw JSON-like values into typed
// values. A Schema is a pure function of (schema, raw value); failures carry
// the path within the structure where validation stopped.
package schema

import (
	"encoding/json"
	"fmt"
)

// Error reports a decode failure at a specific path inside the raw value.
type Error struct {
	Path string
	Msg  string
}

func (e *Error) Error() string {
	if e.Path == "" {
		return "decode: " + e.Msg
	}
	return "decode: " + e.Path + ": " + e.Msg
}

func errorf(path, format string, args ...any) *Error {
	return &Error{Path: path, Msg: fmt.Sprintf(format, args...)}
}

// Schema converts an untyped value into a T or fails with a path-qualified
// reason.
type Schema[T any] struct {
	decode func(raw any, path string) (T, error)
}

// Decode runs the schema against an already-unmarshaled value.
func (s Schema[T]) Decode(raw any) (T, error) {
	return s.decode(raw, "")
}

// DecodeJSON unmarshals data and runs the schema against the result.
func DecodeJSON[T any](s Schema[T], data []byte) (T, error) {
	var zero T
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return zero, &Error{Msg: "invalid JSON: " + err.Error()}
	}
	return s.decode(raw, "")
}

func typeName(raw any) string {
	switch raw.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case float64, json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", raw)
	}
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

// String accepts a JSON string.
func String() Schema[string] {
	return Schema[string]{decode: func(raw any, path string) (string, error) {
		s, ok := raw.(string)
		if !ok {
			return "", errorf(path, "expected string, got %s", typeName(raw))
		}
		return s, nil
	}}
}

// Bool accepts a JSON boolean.
func Bool() Schema[bool] {
	return Schema[bool]{decode: func(raw any, path string) (bool, error) {
		b, ok := raw.(bool)
		if !ok {
			return false, errorf(path, "expected bool, got %s", typeName(raw))
		}
		return b, nil
	}}
}

// Float64 accepts any JSON number.
func Float64() Schema[float64] {
	return Schema[float64]{decode: func(raw any, path string) (float64, error) {
		switch n := raw.(type) {
		case float64:
			return n, nil
		case json.Number:
			f, err := n.Float64()
			if err != nil {
				return 0, errorf(path, "bad number %q", n.String())
			}
			return f, nil
		default:
			return 0, errorf(path, "expected number, got %s", typeName(raw))
		}
	}}
}

// Int accepts a JSON number with no fractional part.
func Int() Schema[int] {
	f := Float64()
	return Schema[int]{decode: func(raw any, path string) (int, error) {
		n, err := f.decode(raw, path)
		if err != nil {
			return 0, err
		}
		i := int(n)
		if float64(i) != n {
			return 0, errorf(path, "expected integer, got %v", n)
		}
		return i, nil
	}}
}

// Slice accepts an ordered JSON array of elem. An empty array decodes to an
// empty (non-nil) slice.
func Slice[T any](elem Schema[T]) Schema[[]T] {
	return Schema[[]T]{decode: func(raw any, path string) ([]T, error) {
		items, ok := raw.([]any)
		if !ok {
			return nil, errorf(path, "expected array, got %s", typeName(raw))
		}
		out := make([]T, 0, len(items))
		for i, item := range items {
			v, err := elem.decode(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}}
}

// Dict accepts an open-ended JSON object keyed by arbitrary strings.
func Dict[T any](elem Schema[T]) Schema[map[string]T] {
	return Schema[map[string]T]{decode: func(raw any, path string) (map[string]T, error) {
		fields, ok := raw.(map[string]any)
		if !ok {
			return nil, errorf(path, "expected object, got %s", typeName(raw))
		}
		out := make(map[string]T, len(fields))
		for k, item := range fields {
			v, err := elem.decode(item, join(path, k))
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	}}
}
