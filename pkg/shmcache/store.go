package shmcache

// store.go implements §4.3 Store. The algorithm runs in two critical
// sections: a short one that evaluates/stamps the slam defense fingerprint
// (§4.8 requires this "under the write lock"), and — after the new entry's
// pool has been built outside any lock — the section that sweeps the GC
// list, walks the target chain, and links the new entry.

import (
	"time"

	"github.com/Voskan/shmcache/internal/unsafehelpers"
	"github.com/Voskan/shmcache/internal/valuecopy"
)

// Store inserts val under key with the given per-entry ttl (0 = no hard
// TTL). If exclusive is true, Store fails with ErrConflict when a live
// entry for key already exists. The caller's identity for slam-defense
// purposes is the cache's configured owner (see WithOwner); use StoreAs to
// supply a distinct owner explicitly (tests simulating multiple racing
// processes within one Go process need this, since they all otherwise
// share the same process identity).
func (c *Cache) Store(key string, val any, ttl time.Duration, exclusive bool) error {
	return c.StoreAs(c.cfg.owner(), key, val, ttl, exclusive)
}

// StoreAs is Store with an explicit owner identity for the slam defense
// fingerprint (§4.8 "owner").
func (c *Cache) StoreAs(owner uint64, key string, val any, ttl time.Duration, exclusive bool) error {
	v, err := nativeToValue(val)
	if err != nil {
		return err
	}

	kb := unsafehelpers.StringToBytes(key)
	hash, idx := c.slotOf(kb)
	ttlSec := int64(ttl / time.Second)

	return c.storeOnce(idx, hash, kb, v, ttlSec, exclusive, owner)
}

func (c *Cache) storeOnce(idx int, hash uint64, key []byte, val *valuecopy.Value, ttlSec int64, exclusive bool, owner uint64) error {
	t := c.now()

	// §4.3 step 1 / §4.8: evaluate and (unless slammed) stamp the
	// fingerprint under its own short write-locked section.
	c.mu.Lock()
	if c.busyLocked() {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.defenseLocked(hash, len(key), t, owner) {
		c.mu.Unlock()
		return ErrSlammed
	}
	c.mu.Unlock()

	// §4.3 step 2: build the new entry's pool without holding the lock.
	e, err := c.newEntry(key, val, ttlSec, t)
	if err != nil {
		return err
	}

	// §4.3 steps 3-8: sweep, walk, link — all under the write lock.
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busyLocked() {
		e.pool.Destroy()
		return ErrBusy
	}

	c.gcSweepLocked()

	var prev *entry
	cur := c.slots[idx]
	for cur != nil {
		if keysEqual(cur, hash, key) {
			if exclusive && !cur.hardExpired(t) {
				e.pool.Destroy()
				return ErrConflict
			}
			c.detachLocked(idx, prev, cur)
			break
		}
		if cur.hardExpired(t) {
			cur = c.detachLocked(idx, prev, cur)
			continue
		}
		prev = cur
		cur = cur.next
	}

	c.linkHeadLocked(idx, e)
	c.memSize += e.memSize
	c.nentries++
	c.ninserts++

	c.metrics.incInsert()
	c.metrics.setEntries(int64(c.nentries))
	c.metrics.setMemSize(c.memSize)
	return nil
}
