package shmcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUpdateMutatesExistingScalar(t *testing.T) {
	c, _ := newTestCache(t)
	require.NoError(t, c.Store("counter", int64(1), 0, false))

	applied, err := c.Update("counter", func(cur any) (any, bool) {
		return cur.(int64) + 1, true
	}, false, 0)
	require.NoError(t, err)
	require.True(t, applied)

	v, h, err := c.Fetch("counter")
	require.NoError(t, err)
	defer h.Release()
	require.Equal(t, int64(2), v)
}

func TestUpdateMissingKeyWithoutInsertReturnsNotFound(t *testing.T) {
	c, _ := newTestCache(t)
	applied, err := c.Update("missing", func(cur any) (any, bool) {
		return cur, true
	}, false, 0)
	require.False(t, applied)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateInsertIfNotFoundSeedsThenApplies(t *testing.T) {
	c, _ := newTestCache(t)
	applied, err := c.Update("new", func(cur any) (any, bool) {
		require.Nil(t, cur, "a freshly inserted zero value decodes to nil")
		return "seeded", true
	}, true, time.Minute)
	require.NoError(t, err)
	require.True(t, applied)

	v, h, err := c.Fetch("new")
	require.NoError(t, err)
	defer h.Release()
	require.Equal(t, "seeded", v)
}

func TestUpdateDeclinedStillStampsMTime(t *testing.T) {
	c, clk := newTestCache(t)
	clk.set(100)
	require.NoError(t, c.Store("k", int64(1), 0, false))

	before, ok := c.Stat("k")
	require.True(t, ok)

	clk.set(200)
	applied, err := c.Update("k", func(cur any) (any, bool) {
		return nil, false
	}, false, 0)
	require.NoError(t, err)
	require.False(t, applied)

	after, ok := c.Stat("k")
	require.True(t, ok)
	require.Equal(t, before.CTime, after.CTime)
	require.Equal(t, int64(200), after.MTime, "mtime is stamped even when the updater declines to apply")
}
