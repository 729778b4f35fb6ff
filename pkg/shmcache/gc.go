package shmcache

import "go.uber.org/zap"

// gc.go implements the deferred-free list of §4.6: entries unlinked from a
// slot chain while still referenced (ref_count > 0) wait here until the
// last reader releases, or until they exceed gc_ttl and are freed anyway
// with a leak diagnostic logged (the design's documented escape hatch).
//
// gcSweepLocked runs under the write lock in Store, ComputeIfAbsent (before
// inserting), Expunge and Clear; Delete and Update do not sweep. Detached
// entries satisfy invariant I4: an entry on
// the GC list is never simultaneously reachable from a slot chain, and
// invariant I3: nothing is freed while ref_count > 0, except via the
// explicit gc_ttl escape hatch.

func (c *Cache) gcSweepLocked() {
	t := c.now()
	var prev *entry
	cur := c.gcHead

	for cur != nil {
		next := cur.next

		switch {
		case cur.refCount <= 0:
			c.unlinkGCLocked(prev, cur)
			cur.pool.Destroy()

		case c.cfg.gcTTL > 0 && t-cur.dtime > c.cfg.gcTTL:
			c.logger.Warn("shmcache: freeing leaked entry past gc_ttl",
				zap.ByteString("key", cur.key),
				zap.Int64("held_for_seconds", t-cur.dtime),
				zap.Int32("ref_count", cur.refCount),
			)
			c.unlinkGCLocked(prev, cur)
			cur.pool.Destroy()

		default:
			prev = cur
		}

		cur = next
	}
}

// unlinkGCLocked removes cur from the GC list given its predecessor (nil if
// cur is the current head). It does not free the pool; callers do that
// themselves so the order of "unlink, then free" stays explicit at each
// call site.
func (c *Cache) unlinkGCLocked(prev, cur *entry) {
	if prev != nil {
		prev.next = cur.next
	} else {
		c.gcHead = cur.next
	}
	cur.next = nil
}
