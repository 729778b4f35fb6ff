// Package slot owns the sizing of the fixed-size chain-head table
// (MakePrime) and the key-hashing scheme (Hash, Of); the chain-head array
// itself is Cache.slots in pkg/shmcache. The table never resizes once
// constructed, matching the Non-goal that rules out graceful resize.
//
// © 2025 shmcache authors. MIT License.
package slot

import "github.com/cespare/xxhash/v2"

// primes mirrors the fixed table the reference implementation walks to pick
// a slot count: the smallest entry strictly greater than the requested size
// hint, or the largest entry if the hint exceeds the whole table.
var primes = [...]int{
	257, 521, 1031, 2053, 3079, 4099, 5147, 6151, 7177, 8209, 9221,
	10243, 11273, 12289, 13313, 14341, 15361, 16411, 17417, 18433, 19457,
	20483, 30727, 40961, 61441, 81929, 122887, 163841, 245771, 327689,
	491527, 655373, 983063,
}

// MakePrime returns the smallest prime from the fixed table that is
// strictly greater than n, or the table's largest entry if n meets or
// exceeds it.
func MakePrime(n int) int {
	for _, p := range primes {
		if p > n {
			return p
		}
	}
	return primes[len(primes)-1]
}

// Hash returns the externally supplied key hash used throughout the cache:
// xxhash64, chosen (see SPEC_FULL.md) so that the hash is stable across
// independent cache instances without per-process seeding, unlike
// hash/maphash's randomized per-process seed.
func Hash(key []byte) uint64 {
	return xxhash.Sum64(key)
}

// Of computes the pure, lock-free pair (hash, slot index) for key given a
// table of n chain heads. Callers compute this once before acquiring the
// header lock.
func Of(key []byte, n int) (hash uint64, index int) {
	h := Hash(key)
	return h, int(h % uint64(n))
}
