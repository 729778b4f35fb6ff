package slot

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMakePrimeBoundaries(t *testing.T) {
	require.Equal(t, 257, MakePrime(0))
	require.Equal(t, 257, MakePrime(256))
	require.Equal(t, 521, MakePrime(257))
	require.Equal(t, primes[len(primes)-1], MakePrime(1<<30))
}

func TestHashStableAcrossCalls(t *testing.T) {
	a := Hash([]byte("the-same-key"))
	b := Hash([]byte("the-same-key"))
	require.Equal(t, a, b, "hash must not depend on per-process seeding")
}

func TestOfIndexWithinBounds(t *testing.T) {
	n := MakePrime(100)
	for i := 0; i < 1000; i++ {
		_, idx := Of([]byte(strconv.Itoa(i)), n)
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, n)
	}
}

// TestUniformDistribution is a sanity check on B3: a table with N=257 and
// 10,000 keys should not pile more than ~80 entries into any one chain.
func TestUniformDistribution(t *testing.T) {
	const n = 257
	counts := make([]int, n)
	for i := 0; i < 10_000; i++ {
		_, idx := Of([]byte(strconv.Itoa(i)), n)
		counts[idx]++
	}
	max := 0
	for _, c := range counts {
		if c > max {
			max = c
		}
	}
	require.Less(t, max, 80, "hash distribution should not concentrate heavily into one chain")
}
