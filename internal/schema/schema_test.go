package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrimitives(t *testing.T) {
	s, err := String().Decode("hello")
	require.NoError(t, err)
	require.Equal(t, "hello", s)

	b, err := Bool().Decode(true)
	require.NoError(t, err)
	require.True(t, b)

	f, err := Float64().Decode(1.5)
	require.NoError(t, err)
	require.Equal(t, 1.5, f)

	i, err := Int().Decode(float64(7))
	require.NoError(t, err)
	require.Equal(t, 7, i)
}

func TestPrimitiveMismatches(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
		want string
	}{
		{
			name: "string from number",
			run:  func() error { _, err := String().Decode(1.0); return err },
			want: "expected string, got number",
		},
		{
			name: "bool from null",
			run:  func() error { _, err := Bool().Decode(nil); return err },
			want: "expected bool, got null",
		},
		{
			name: "number from object",
			run:  func() error { _, err := Float64().Decode(map[string]any{}); return err },
			want: "expected number, got object",
		},
		{
			name: "int from fraction",
			run:  func() error { _, err := Int().Decode(1.5); return err },
			want: "expected integer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSliceAndDict(t *testing.T) {
	xs, err := Slice(Int()).Decode([]any{1.0, 2.0, 3.0})
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, xs)

	empty, err := Slice(Int()).Decode([]any{})
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Len(t, empty, 0)

	m, err := Dict(String()).Decode(map[string]any{"a": "x", "b": "y"})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"a": "x", "b": "y"}, m)
}

func TestSliceErrorCarriesIndexPath(t *testing.T) {
	_, err := Slice(String()).Decode([]any{"ok", 3.0})
	require.Error(t, err)
	require.Contains(t, err.Error(), "[1]")
}

type pair struct {
	Left  string
	Right *int
}

func pairSchema() Schema[pair] {
	return Object(func(o *Obj) pair {
		return pair{
			Left:  Field(o, "left", String()),
			Right: OptField(o, "right", Int()),
		}
	})
}

func TestObjectComposition(t *testing.T) {
	p, err := DecodeJSON(pairSchema(), []byte(`{"left":"a","right":2}`))
	require.NoError(t, err)
	require.Equal(t, "a", p.Left)
	require.NotNil(t, p.Right)
	require.Equal(t, 2, *p.Right)
}

func TestOptionalAbsentAndNull(t *testing.T) {
	p, err := DecodeJSON(pairSchema(), []byte(`{"left":"a"}`))
	require.NoError(t, err)
	require.Nil(t, p.Right)

	p, err = DecodeJSON(pairSchema(), []byte(`{"left":"a","right":null}`))
	require.NoError(t, err)
	require.Nil(t, p.Right)
}

func TestObjectFailuresArePathQualified(t *testing.T) {
	_, err := DecodeJSON(pairSchema(), []byte(`{"right":1}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "left: missing required field")

	nested := Object(func(o *Obj) map[string]pair {
		return map[string]pair{"inner": Field(o, "inner", pairSchema())}
	})
	_, err = DecodeJSON(nested, []byte(`{"inner":{"left":5}}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "inner.left")
}

func TestDecodeJSONRejectsInvalidJSON(t *testing.T) {
	_, err := DecodeJSON(String(), []byte(`{`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid JSON")
}

func TestDecodeIsIdempotent(t *testing.T) {
	raw := []byte(`{"left":"a","right":9}`)
	first, err := DecodeJSON(pairSchema(), raw)
	require.NoError(t, err)
	second, err := DecodeJSON(pairSchema(), raw)
	require.NoError(t, err)
	require.Equal(t, first, second)
}
