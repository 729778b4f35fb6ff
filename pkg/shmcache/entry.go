package shmcache

// entry.go implements entry creation and the two-phase removal protocol of
// §4.6: unlink from its chain, then either free immediately (ref_count==0)
// or migrate to the GC list to await the last reader's release.

import (
	"github.com/Voskan/shmcache/internal/arena"
	"github.com/Voskan/shmcache/internal/valuecopy"
)

// newEntry duplicates key and deep-copies val into a fresh pool (§4.3 step
// 2). On any allocation failure the partially built pool is destroyed and
// (nil, err) is returned; no cache state is touched.
func (c *Cache) newEntry(key []byte, val *valuecopy.Value, ttl int64, t int64) (*entry, error) {
	pool := arena.NewPool(c.sma)

	k, ok := pool.DupBytes(key)
	if !ok {
		pool.Destroy()
		return nil, ErrAlloc
	}

	v, err := valuecopy.CopyIn(pool, val, c.cfg.serializer)
	if err != nil {
		pool.Destroy()
		if err == valuecopy.ErrAlloc {
			return nil, ErrAlloc
		}
		return nil, ErrCodec
	}

	h, _ := c.slotOf(key)
	e := &entry{
		key:   k,
		hash:  h,
		val:   v,
		ttl:   ttl,
		ctime: t,
		mtime: t,
		atime: t,
		pool:  pool,
	}
	e.memSize = pool.Size()
	return e, nil
}

// keysEqual reports whether e's key equals key, comparing hash and length
// first and the bytes only when both match, per §4.1's required comparison
// order (cheap integer checks first, byte compare only on collision).
func keysEqual(e *entry, hash uint64, key []byte) bool {
	return e.hash == hash && len(e.key) == len(key) && string(e.key) == string(key)
}

// lookupChainLocked performs the read-only chain walk shared by find_nostat
// (§4.4): it returns the live (not hard-expired) entry matching key, or nil.
// It never mutates the chain — callers holding only the read lock rely on
// that. Soft-expired entries are returned (Glossary: visible until the next
// expunge).
func (c *Cache) lookupChainLocked(idx int, hash uint64, key []byte, t int64) *entry {
	for cur := c.slots[idx]; cur != nil; cur = cur.next {
		if keysEqual(cur, hash, key) {
			if cur.hardExpired(t) {
				return nil
			}
			return cur
		}
	}
	return nil
}

// linkHeadLocked links e at the head of slots[idx].
func (c *Cache) linkHeadLocked(idx int, e *entry) {
	e.next = c.slots[idx]
	c.slots[idx] = e
}

// detachLocked removes cur (whose predecessor in the chain is prev, nil if
// cur is the head) from slots[idx] and routes it through the GC rule
// (§4.6 remove_entry): free immediately if unreferenced, else push to the
// GC list with dtime stamped. Returns the chain node that follows cur, so
// callers walking the chain can resume from the right place.
func (c *Cache) detachLocked(idx int, prev, cur *entry) *entry {
	next := cur.next
	if prev != nil {
		prev.next = next
	} else {
		c.slots[idx] = next
	}

	c.memSize -= cur.memSize
	if c.memSize < 0 {
		c.memSize = 0
	}
	if c.nentries > 0 {
		c.nentries--
	}

	cur.detached = true
	if cur.refCount <= 0 {
		cur.pool.Destroy()
	} else {
		cur.dtime = c.now()
		cur.next = c.gcHead
		c.gcHead = cur
	}
	return next
}
