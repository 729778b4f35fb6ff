package arena

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSMAAllocRespectsCapacity(t *testing.T) {
	sma := NewSMA(16)

	b, ok := sma.Alloc(10)
	require.True(t, ok)
	require.Len(t, b, 10)
	require.EqualValues(t, 6, sma.AvailMem())

	_, ok = sma.Alloc(7)
	require.False(t, ok, "alloc beyond capacity must fail")
	require.EqualValues(t, 6, sma.AvailMem(), "failed alloc must not change accounting")
}

func TestSMAUnbounded(t *testing.T) {
	sma := NewSMA(0)
	_, ok := sma.Alloc(1 << 20)
	require.True(t, ok)
	require.Greater(t, sma.AvailMem(), int64(0))
}

func TestSMAFreeReturnsBudget(t *testing.T) {
	sma := NewSMA(16)
	_, ok := sma.Alloc(16)
	require.True(t, ok)
	require.EqualValues(t, 0, sma.AvailMem())

	sma.Free(16)
	require.EqualValues(t, 16, sma.AvailMem())
}

func TestPoolDestroyReleasesAllBytes(t *testing.T) {
	sma := NewSMA(64)
	pool := NewPool(sma)

	_, ok := pool.Alloc(10)
	require.True(t, ok)
	_, ok = pool.DupBytes([]byte("hello world"))
	require.True(t, ok)
	require.EqualValues(t, 21, pool.Size())
	require.EqualValues(t, 43, sma.AvailMem())

	pool.Destroy()
	require.EqualValues(t, 0, pool.Size())
	require.EqualValues(t, 64, sma.AvailMem())
}

func TestPoolAllocFailureLeavesPoolUnchanged(t *testing.T) {
	sma := NewSMA(8)
	pool := NewPool(sma)

	_, ok := pool.Alloc(4)
	require.True(t, ok)
	_, ok = pool.Alloc(8) // would exceed capacity
	require.False(t, ok)
	require.EqualValues(t, 4, pool.Size())
}
