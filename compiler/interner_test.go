package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInternerPreSeeded(t *testing.T) {
	in := NewInterner()
	require.Equal(t, 32, in.Len())

	id, ok := in.Lookup("a")
	require.True(t, ok)
	require.Equal(t, uint32(0), id)

	id, ok = in.Lookup("z")
	require.True(t, ok)
	require.Equal(t, uint32(25), id)

	for i, name := range []string{"result", "value", "temp", "count", "index", "data"} {
		id, ok := in.Lookup(name)
		require.True(t, ok)
		require.Equal(t, uint32(26+i), id)
	}
}

func TestInternIdempotent(t *testing.T) {
	in := NewInterner()
	first := in.Intern("total")
	require.Equal(t, uint32(32), first)
	require.Equal(t, first, in.Intern("total"))
	require.Equal(t, uint32(33), in.Intern("other"))
	require.Equal(t, uint32(23), in.Intern("x"))
	require.Equal(t, 34, in.Len())
}

func TestInternerNames(t *testing.T) {
	in := NewInterner()
	in.Intern("foo")

	name, ok := in.Name(32)
	require.True(t, ok)
	require.Equal(t, "foo", name)

	_, ok = in.Name(33)
	require.False(t, ok)

	_, ok = in.Lookup("bar")
	require.False(t, ok)

	names := in.Names()
	require.Len(t, names, 33)
	require.Equal(t, "a", names[0])
	require.Equal(t, "data", names[31])
	require.Equal(t, "foo", names[32])

	// The returned slice is a copy.
	names[0] = "changed"
	name, _ = in.Name(0)
	require.Equal(t, "a", name)
}
