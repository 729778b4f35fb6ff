// Package shmcache implements the core of an in-process, multi-process-
// visible user data cache: a shared-memory key/value store with per-entry
// TTL, a global soft-TTL sweep, deferred reclamation of live entries, and a
// slam defense that suppresses duplicate concurrent inserts of the same
// key.
//
// The package is organized the way arena-cache's pkg/cache.go family of
// files is organized — cache.go for the core types and construction,
// config.go for options, metrics.go for the Prometheus projection, and one
// file per algorithmic concern (entry.go, gc.go, slam.go, store.go, find.go,
// update.go, expunge.go, compute.go, info.go, preload.go) — rather than one
// monolithic file, matching the teacher's per-concern split.
//
// © 2025 shmcache authors. MIT License.
package shmcache

import (
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/Voskan/shmcache/internal/arena"
	"github.com/Voskan/shmcache/internal/slot"
	"github.com/Voskan/shmcache/internal/valuecopy"
)

// state bits (§3 Header.state).
const (
	stateBusy uint32 = 1 << iota
)

// slamKey is the single-slot fingerprint described in §4.8/§3.
type slamKey struct {
	hash  uint64
	len   int
	mtime int64
	owner uint64
}

// entry is the Entry data model of §3. In shmcache it lives on the Go heap
// rather than literally inside a shared-memory mapping (see SPEC_FULL.md's
// resolution of the "true shared memory" open question); its pool still
// owns every byte it references, and destroying the pool frees the entry
// (invariant I7).
type entry struct {
	key  []byte
	hash uint64

	val *valuecopy.Value

	ttl   int64
	ctime int64
	mtime int64
	atime int64
	dtime int64

	nhits    uint64
	refCount int32
	detached bool // true once unlinked from its slot chain (§4.6)

	memSize int64
	pool    *arena.Pool

	next *entry // chain link, or GC-list link when detached
}

// hardExpired reports whether entry e is invisible at time t per the
// Glossary's "Hard expiry": t > ctime+ttl with ttl > 0.
func (e *entry) hardExpired(t int64) bool {
	return e.ttl > 0 && t > e.ctime+e.ttl
}

// softExpired reports whether e has no per-entry TTL but is eligible for
// expunge under the cache's global soft TTL (Glossary "Soft expiry").
func (e *entry) softExpired(t int64, globalTTL int64) bool {
	return e.ttl == 0 && globalTTL > 0 && t-e.atime > globalTTL
}

// Cache is the constructed cache handle; its lifetime bounds all
// operations (per the Design Notes on global mutable state). The header
// fields from §3 (state, counters, gc list, lastkey) are plain fields
// guarded by mu rather than a separate SMA-resident struct, since shmcache
// does not map a literal shared-memory region (see SPEC_FULL.md).
type Cache struct {
	mu sync.RWMutex

	sma    *arena.SMA
	slots  []*entry
	nslots int

	cfg     *config
	metrics metricsSink
	logger  *zap.Logger

	state      uint32
	nhits      uint64
	nmisses    uint64
	ninserts   uint64
	nentries   uint64
	nexpunges  uint64
	stime      int64
	memSize    int64
	gcHead     *entry
	lastkey    slamKey
}

// defaultOwner identifies this OS process; used by slam defense to tell
// apart distinct callers racing for the same key (§4.8 "owner").
func defaultOwner() uint64 {
	return uint64(uint32(os.Getpid()))
}

// Create constructs a new cache per §6 create(sma, serializer, size_hint,
// gc_ttl, ttl, smart, defend). sma bounds total allocator capacity in
// bytes (0 = unbounded); the remaining knobs are supplied via Option.
func Create(smaSize int64, opts ...Option) (*Cache, error) {
	cfg := defaultConfig()
	cfg.smaSize = smaSize
	if err := applyOptions(cfg, opts); err != nil {
		return nil, err
	}

	n := slot.MakePrime(cfg.sizeHint)
	c := &Cache{
		sma:     arena.NewSMA(cfg.smaSize),
		slots:   make([]*entry, n),
		nslots:  n,
		cfg:     cfg,
		metrics: newMetricsSink(cfg.registry),
		logger:  cfg.logger,
		stime:   cfg.now(),
	}
	return c, nil
}

// Destroy tears down the cache handle. Per §6 this intentionally leaks the
// underlying region in a true multi-process deployment (other processes
// may still be mapping it); here it simply drops shmcache's own references
// so the Go garbage collector can reclaim them once every other handle is
// gone.
func (c *Cache) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots = nil
	c.gcHead = nil
}

// now returns the cache's notion of current time in seconds since epoch,
// honoring WithClock overrides used by tests.
func (c *Cache) now() int64 { return c.cfg.now() }

// busyLocked reports whether the BUSY flag is currently set (§4.7).
func (c *Cache) busyLocked() bool { return c.state&stateBusy != 0 }

// setBusyLocked/clearBusyLocked must be called with the write lock held.
func (c *Cache) setBusyLocked()   { c.state |= stateBusy }
func (c *Cache) clearBusyLocked() { c.state &^= stateBusy }

// slotOf computes the pure (hash, index) pair for key (§4.1); it may be
// computed without the lock.
func (c *Cache) slotOf(key []byte) (uint64, int) {
	return slot.Of(key, c.nslots)
}

// StartTime returns the cache's construction time (seconds since epoch).
func (c *Cache) StartTime() int64 { return c.stime }
