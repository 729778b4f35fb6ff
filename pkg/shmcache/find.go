package shmcache

// find.go implements §4.4: find_nostat (the pure lookup behind Exists),
// and the public Fetch/Exists operations
// that additionally bump nhits/nmisses, update atime, and hand the caller a
// Handle pinning the entry (refCount) so a concurrent Store/Expunge cannot
// free it out from under a reader still decoding its value — that pin is
// exactly why entries can outlive their slot-chain membership and end up on
// the GC list (§4.6).

import (
	"github.com/Voskan/shmcache/internal/unsafehelpers"
	"github.com/Voskan/shmcache/internal/valuecopy"
)

// Handle pins a fetched entry until Release is called. Release must be
// called exactly once per successful Fetch; forgetting to call it leaks a
// ref_count unit and the entry lingers on the GC list until gc_ttl (if any)
// eventually reclaims it (§4.6).
type Handle struct {
	c *Cache
	e *entry
}

// Release unpins the handle's entry, allowing deferred reclamation (§4.6)
// to proceed once ref_count reaches zero. Release is safe to call more than
// once; subsequent calls are no-ops.
func (h *Handle) Release() {
	if h == nil || h.e == nil {
		return
	}
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	if h.e.refCount > 0 {
		h.e.refCount--
	}
	if h.e.detached && h.e.refCount == 0 {
		// Unlinked while pinned (e.g. by a concurrent Store/Update/Expunge)
		// and now unreferenced: free immediately rather than waiting for
		// the next gcSweepLocked (§4.6 "free as soon as ref_count reaches
		// zero").
		h.c.freeIfOnGCListLocked(h.e)
	}
	h.e = nil
}

// freeIfOnGCListLocked frees e immediately if it is sitting on the GC list
// unreferenced. It is a no-op if e is not found there (already freed, or
// still chain-linked).
func (c *Cache) freeIfOnGCListLocked(e *entry) {
	var prev *entry
	cur := c.gcHead
	for cur != nil {
		if cur == e {
			c.unlinkGCLocked(prev, cur)
			cur.pool.Destroy()
			return
		}
		prev = cur
		cur = cur.next
	}
}

// findNoStat is the read-only lookup of §4.4 find_nostat: it does not touch
// nhits/nmisses/atime, and never mutates the table. Exists is its only
// caller; Store and Update walk the chain themselves under the write lock.
func (c *Cache) findNoStat(key []byte) *entry {
	hash, idx := c.slotOf(key)
	t := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lookupChainLocked(idx, hash, key, t)
}

// Exists reports whether key currently resolves to a live (not hard-expired)
// entry, without affecting hit/miss counters or pinning anything (§4.4).
func (c *Cache) Exists(key string) bool {
	return c.findNoStat(unsafehelpers.StringToBytes(key)) != nil
}

// Fetch looks up key and, on a hit, returns the deep-copied caller-owned
// value together with a Handle the caller must Release. On a miss it
// returns (nil, nil, ErrNotFound). Fetch bumps nhits/nmisses and, on a hit,
// atime and nhits on the entry itself (§4.4).
func (c *Cache) Fetch(key string) (any, *Handle, error) {
	kb := unsafehelpers.StringToBytes(key)
	hash, idx := c.slotOf(kb)
	t := c.now()

	c.mu.Lock()
	e := c.lookupChainLocked(idx, hash, kb, t)
	if e == nil {
		c.nmisses++
		c.mu.Unlock()
		c.metrics.incMiss()
		return nil, nil, ErrNotFound
	}
	e.atime = t
	e.nhits++
	e.refCount++
	c.nhits++
	c.mu.Unlock()
	c.metrics.incHit()

	out, err := valuecopy.CopyOut(e.val, c.cfg.serializer)
	if err != nil {
		h := &Handle{c: c, e: e}
		h.Release()
		if err == valuecopy.ErrCodec {
			err = ErrCodec
		}
		return nil, nil, err
	}

	native, err := valueToNative(out)
	if err != nil {
		h := &Handle{c: c, e: e}
		h.Release()
		return nil, nil, err
	}

	return native, &Handle{c: c, e: e}, nil
}

// Delete removes key if it currently resolves to a live entry, per §6
// delete(key). It reports whether anything was removed; a hard-expired
// entry still chain-linked counts as absent. Removal routes through the
// same GC rule as every other detach (§4.6): a pinned entry migrates to
// the GC list instead of being freed immediately.
func (c *Cache) Delete(key string) bool {
	kb := unsafehelpers.StringToBytes(key)
	hash, idx := c.slotOf(kb)
	t := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busyLocked() {
		return false
	}

	var prev *entry
	cur := c.slots[idx]
	for cur != nil {
		if keysEqual(cur, hash, kb) {
			if cur.hardExpired(t) {
				return false
			}
			c.detachLocked(idx, prev, cur)
			c.metrics.setEntries(int64(c.nentries))
			c.metrics.setMemSize(c.memSize)
			return true
		}
		prev = cur
		cur = cur.next
	}
	return false
}
