// Package arena implements the SMA (shared-memory allocator) and the
// per-entry Pool carved from it, adapted from arena-cache's arena wrapper.
//
// The teacher wrapped Go's experimental `arena` package to get O(1) bulk
// free of a generation's values. shmcache needs a different shape: a single
// bounded allocator (the SMA) shared across every cache entry, and a small
// bump allocator (the Pool) scoped to exactly one entry, freed as a unit
// when the entry dies. We keep the teacher's "thin wrapper, no pooling, no
// GC hooks in this layer" philosophy and its reliance on a byte-accounting
// model rather than the actual experimental arena API, since SMA capacity
// accounting (avail_mem/size) has to be observable independently of
// whatever the Go allocator decides to do with the underlying bytes.
//
// Concurrency
// -----------
// SMA.Alloc/Free are called without the cache's header lock held (Store
// allocates a Pool before acquiring the write lock), so capacity accounting
// uses atomics. Pool itself is only ever touched by the single goroutine
// building or destroying an entry and is not otherwise synchronised.
//
// © 2025 shmcache authors. MIT License.
package arena

import "sync/atomic"

// SMA is a bulk allocator over a single logical region of bytes. It tracks
// how many bytes have been handed out against a fixed capacity; the actual
// backing storage for each allocation is a plain Go byte slice, since the Go
// runtime gives no portable way to map one real shared-memory region across
// independent OS processes without cgo. See SPEC_FULL.md's resolution of
// the "true shared memory" open question for the reasoning behind this
// choice.
type SMA struct {
	size int64
	used atomic.Int64
}

// NewSMA constructs an allocator with the given total capacity in bytes.
// A non-positive size means "unbounded" (AvailMem always reports the
// maximum int64 and Alloc never refuses for lack of capacity); this matches the
// common embedding mode where the host process simply trusts itself not to
// run away.
func NewSMA(size int64) *SMA {
	return &SMA{size: size}
}

// Size returns the allocator's total capacity.
func (s *SMA) Size() int64 { return s.size }

// AvailMem reports the number of bytes still available for allocation.
func (s *SMA) AvailMem() int64 {
	if s.size <= 0 {
		return 1<<63 - 1
	}
	avail := s.size - s.used.Load()
	if avail < 0 {
		return 0
	}
	return avail
}

// reserve attempts to account for n additional bytes of usage, failing if
// doing so would exceed capacity. It is the only place SMA enforces its
// budget; Alloc (and Pool.Alloc, through it) funnels through it.
func (s *SMA) reserve(n int64) bool {
	if n < 0 {
		return false
	}
	if s.size <= 0 {
		s.used.Add(n)
		return true
	}
	for {
		cur := s.used.Load()
		next := cur + n
		if next > s.size {
			return false
		}
		if s.used.CompareAndSwap(cur, next) {
			return true
		}
	}
}

// release returns n bytes to the available pool. Callers must only release
// amounts they previously reserved.
func (s *SMA) release(n int64) {
	if n <= 0 {
		return
	}
	s.used.Add(-n)
}

// Alloc reserves n bytes of budget and returns a freshly made, zeroed
// buffer of that size. It reports false (alloc failure) when doing so would
// exceed the SMA's capacity.
func (s *SMA) Alloc(n int) ([]byte, bool) {
	if n < 0 {
		return nil, false
	}
	if !s.reserve(int64(n)) {
		return nil, false
	}
	return make([]byte, n), true
}

// Free returns n bytes of accounted budget to the allocator. It does not
// and cannot reclaim the Go-heap memory directly (that is the garbage
// collector's job once the last reference drops); it only undoes the
// accounting performed by a matching Alloc/reserve.
func (s *SMA) Free(n int) {
	s.release(int64(n))
}

// Pool is a bump allocator scoped to exactly one cache entry: every byte an
// entry references — its key, its copied-in value graph, any serialized
// payload — is reserved from a single Pool, and destroying the Pool (on
// entry free) releases every one of those bytes back to the owning SMA in
// one call, satisfying invariant I7 (pool ownership).
type Pool struct {
	sma  *SMA
	size int64
}

// NewPool creates an empty pool drawing capacity from sma.
func NewPool(sma *SMA) *Pool {
	return &Pool{sma: sma}
}

// Alloc reserves n bytes from the pool's owning SMA and returns a zeroed
// buffer. On failure the pool is left exactly as it was (no partial
// reservation survives a failed Alloc).
func (p *Pool) Alloc(n int) ([]byte, bool) {
	buf, ok := p.sma.Alloc(n)
	if !ok {
		return nil, false
	}
	p.size += int64(n)
	return buf, true
}

// DupBytes allocates len(b) bytes from the pool and copies b into them,
// returning the pool-owned copy. Used for duplicating keys and for copying
// scalar/opaque payloads into pool-backed memory.
func (p *Pool) DupBytes(b []byte) ([]byte, bool) {
	dst, ok := p.Alloc(len(b))
	if !ok {
		return nil, false
	}
	copy(dst, b)
	return dst, true
}

// Size returns the total number of bytes currently reserved by this pool —
// the value a live entry snapshots into entry.mem_size on creation.
func (p *Pool) Size() int64 { return p.size }

// Destroy releases every byte this pool ever reserved back to the owning
// SMA. After Destroy the pool must not be used again; doing so would double
// -free accounting (a programmer error the design assumes cannot occur).
func (p *Pool) Destroy() {
	if p.size == 0 {
		return
	}
	p.sma.Free(int(p.size))
	p.size = 0
}
