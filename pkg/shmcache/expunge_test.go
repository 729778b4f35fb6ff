package shmcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClearWipesEverythingAndResetsCounters(t *testing.T) {
	c, _ := newTestCache(t)
	require.NoError(t, c.Store("a", 1, 0, false))
	require.NoError(t, c.Store("b", 2, 0, false))

	_, h, err := c.Fetch("a")
	require.NoError(t, err)
	h.Release()

	c.Clear()

	info := c.Info(true)
	require.EqualValues(t, 0, info.NEntries)
	require.EqualValues(t, 0, info.NHits)
	require.EqualValues(t, 0, info.NInserts)
	require.False(t, c.Exists("a"))
	require.False(t, c.Exists("b"))
}

// With a global soft TTL configured, Expunge should be able to reclaim
// enough space from expired entries without resorting to a full wipe.
func TestExpungeReclaimsExpiredEntriesBeforeFullWipe(t *testing.T) {
	c, clk := newTestCache(t, WithGlobalTTL(10), WithSMASize(4096))
	clk.set(0)

	payload := make([]byte, 256)
	for i := 0; i < 10; i++ {
		require.NoError(t, c.Store(keyFor(i), payload, 0, false))
	}

	clk.set(1000) // every entry is now soft-expired
	avail := c.Expunge(1)
	require.Greater(t, avail, int64(0))

	info := c.Info(true)
	require.EqualValues(t, 0, info.NEntries, "soft-expired entries must have been reclaimed")
}

func TestExpungeZeroIsForcedFullWipe(t *testing.T) {
	c, _ := newTestCache(t)
	require.NoError(t, c.Store("a", 1, 0, false))

	avail := c.Expunge(0)
	require.Greater(t, avail, int64(0))

	info := c.Info(true)
	require.EqualValues(t, 0, info.NEntries)
	require.EqualValues(t, 1, info.NExpunges)
}

func TestInfoLimitedOmitsKeyListing(t *testing.T) {
	c, _ := newTestCache(t)
	require.NoError(t, c.Store("a", 1, 0, false))

	limited := c.Info(true)
	require.Nil(t, limited.Keys)

	full := c.Info(false)
	require.Len(t, full.Keys, 1)
	require.Equal(t, "a", full.Keys[0].Key)
}
