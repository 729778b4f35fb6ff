package shmcache

// expunge.go implements §4.7: Expunge reclaims space for an incoming
// allocation of the requested size, escalating from a GC sweep to a
// full-table wipe when the cache has no global soft TTL to fall back on.
// Clear is the public "wipe everything now" operation built on the same
// full-wipe path.
//
// The per-slot scan in expungePartial fans out across the table with
// errgroup, mirroring arena-cache's use of golang.org/x/sync/errgroup for
// parallel shard work — each goroutine only ever reads its own disjoint
// slice of the table and reports candidates back for the caller (already
// holding the write lock) to detach serially, since detachLocked mutates
// shared counters that cannot be updated concurrently.

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// expungeWorkers bounds fan-out for the per-slot scan: a fixed cap of 8
// goroutines (fewer when the table has fewer slots), independent of NumCPU.
const expungeWorkers = 8

// Clear wipes every entry from the cache and resets the Header counters
// (§6): equivalent to a full-wipe Expunge(0) plus a counter reset.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setBusyLocked()
	defer c.clearBusyLocked()

	c.gcSweepLocked()
	c.fullWipeLocked()

	c.nhits = 0
	c.nmisses = 0
	c.ninserts = 0
	c.nexpunges = 0
	c.memSize = 0
	c.nentries = 0
	c.clearSlamLocked()

	c.metrics.incExpunge()
	c.metrics.setEntries(0)
	c.metrics.setMemSize(0)
}

// Expunge reclaims space for an upcoming allocation of size bytes, per the
// escalating algorithm of §4.7. size == 0 is the forced-full-wipe sentinel
// (original_source/apc_cache.c's apc_cache_real_expunge), unconditionally
// skipping the "already have enough" short-circuit. Expunge returns the
// number of bytes available after reclamation.
func (c *Cache) Expunge(size int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setBusyLocked()
	defer c.clearBusyLocked()

	if size == 0 {
		c.gcSweepLocked()
		c.fullWipeLocked()
		c.clearSlamLocked()
		c.nexpunges++
		c.metrics.incExpunge()
		c.metrics.setEntries(int64(c.nentries))
		c.metrics.setMemSize(c.memSize)
		return c.sma.AvailMem()
	}

	var suitable int64
	if c.cfg.smart > 0 {
		suitable = c.cfg.smart * size
	} else {
		suitable = c.sma.Size() / 2
	}

	c.gcSweepLocked()
	if c.sma.AvailMem() >= suitable {
		c.nexpunges++
		c.metrics.incExpunge()
		return c.sma.AvailMem()
	}

	if c.cfg.ttl == 0 {
		c.fullWipeLocked()
		c.nexpunges++
		c.metrics.incExpunge()
		c.metrics.setEntries(int64(c.nentries))
		c.metrics.setMemSize(c.memSize)
		return c.sma.AvailMem()
	}

	t := c.now()
	c.expungeExpiredLocked(t)

	if c.sma.AvailMem() >= suitable {
		c.clearSlamLocked()
		c.nexpunges++
		c.metrics.incExpunge()
		c.metrics.setEntries(int64(c.nentries))
		c.metrics.setMemSize(c.memSize)
		return c.sma.AvailMem()
	}

	c.fullWipeLocked()
	c.nexpunges++
	c.metrics.incExpunge()
	c.metrics.setEntries(int64(c.nentries))
	c.metrics.setMemSize(c.memSize)
	return c.sma.AvailMem()
}

// fullWipeLocked detaches every entry in every slot, routing each through
// the GC rule (live refs migrate to the GC list rather than being freed
// out from under a reader).
func (c *Cache) fullWipeLocked() {
	for idx := range c.slots {
		for c.slots[idx] != nil {
			c.detachLocked(idx, nil, c.slots[idx])
		}
	}
}

// expungeExpiredLocked detaches every hard- or soft-expired entry across
// the table. The scan itself is read-only and safe to parallelize; the
// resulting detaches are applied serially since they mutate shared
// counters and chain pointers.
func (c *Cache) expungeExpiredLocked(t int64) {
	n := len(c.slots)
	if n == 0 {
		return
	}
	workers := expungeWorkers
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers

	results := make([][]int, workers)
	g, _ := errgroup.WithContext(context.Background())
	for w := 0; w < workers; w++ {
		w := w
		start := w * chunk
		end := start + chunk
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		g.Go(func() error {
			var local []int
			for idx := start; idx < end; idx++ {
				for cur := c.slots[idx]; cur != nil; cur = cur.next {
					if cur.hardExpired(t) || cur.softExpired(t, c.cfg.ttl) {
						local = append(local, idx)
						break
					}
				}
			}
			results[w] = local
			return nil
		})
	}
	_ = g.Wait()

	touched := make(map[int]struct{})
	for _, local := range results {
		for _, idx := range local {
			touched[idx] = struct{}{}
		}
	}

	for idx := range touched {
		var prev *entry
		cur := c.slots[idx]
		for cur != nil {
			if cur.hardExpired(t) || cur.softExpired(t, c.cfg.ttl) {
				cur = c.detachLocked(idx, prev, cur)
				continue
			}
			prev = cur
			cur = cur.next
		}
	}
}
