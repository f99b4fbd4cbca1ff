package schema

// Obj is handed to an Object build function so it can pull named fields out
// of the raw value. The first field failure sticks; later reads return zero
// values without overwriting it.
type Obj struct {
	fields map[string]any
	path   string
	err    error
}

// Object composes a schema for T from named field schemas. Any field failure
// fails the whole object with a path-qualified error.
func Object[T any](build func(o *Obj) T) Schema[T] {
	return Schema[T]{decode: func(raw any, path string) (T, error) {
		var zero T
		fields, ok := raw.(map[string]any)
		if !ok {
			return zero, errorf(path, "expected object, got %s", typeName(raw))
		}
		o := &Obj{fields: fields, path: path}
		out := build(o)
		if o.err != nil {
			return zero, o.err
		}
		return out, nil
	}}
}

// Field decodes a required field of o.
func Field[T any](o *Obj, name string, s Schema[T]) T {
	var zero T
	if o.err != nil {
		return zero
	}
	raw, ok := o.fields[name]
	if !ok {
		o.err = errorf(join(o.path, name), "missing required field")
		return zero
	}
	v, err := s.decode(raw, join(o.path, name))
	if err != nil {
		o.err = err
		return zero
	}
	return v
}

// OptField decodes an optional field of o. Absent or null yields nil.
func OptField[T any](o *Obj, name string, s Schema[T]) *T {
	if o.err != nil {
		return nil
	}
	raw, ok := o.fields[name]
	if !ok || raw == nil {
		return nil
	}
	v, err := s.decode(raw, join(o.path, name))
	if err != nil {
		o.err = err
		return nil
	}
	return &v
}
