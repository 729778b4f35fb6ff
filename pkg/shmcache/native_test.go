package shmcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreFetchPreservesSharedSliceSubobject(t *testing.T) {
	c, _ := newTestCache(t)

	shared := []any{int64(1), int64(2)}
	graph := []any{shared, shared}

	require.NoError(t, c.Store("dag", graph, 0, false))

	v, h, err := c.Fetch("dag")
	require.NoError(t, err)
	defer h.Release()

	out := v.([]any)
	a := out[0].([]any)
	b := out[1].([]any)
	require.Equal(t, a, b)
}

func TestStoreFetchMapRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)

	require.NoError(t, c.Store("m", map[string]any{"x": int64(1), "y": "two"}, 0, false))

	v, h, err := c.Fetch("m")
	require.NoError(t, err)
	defer h.Release()

	m := v.(map[string]any)
	require.Equal(t, int64(1), m["x"])
	require.Equal(t, "two", m["y"])
}

func TestStoreFetchNestedArrayOfScalars(t *testing.T) {
	c, _ := newTestCache(t)
	require.NoError(t, c.Store("arr", []any{int64(1), "two", true, nil}, 0, false))

	v, h, err := c.Fetch("arr")
	require.NoError(t, err)
	defer h.Release()

	arr := v.([]any)
	require.Equal(t, []any{int64(1), "two", true, nil}, arr)
}
