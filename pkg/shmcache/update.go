package shmcache

// update.go implements §4.5 Update: a read-modify-write primitive that lets
// a caller mutate a live entry's value (e.g. atomically bump a counter)
// without a separate Fetch+Store round trip, and without the ABA hazard a
// naive Fetch-then-Store would have under concurrent writers.

import (
	"time"

	"github.com/Voskan/shmcache/internal/arena"
	"github.com/Voskan/shmcache/internal/unsafehelpers"
	"github.com/Voskan/shmcache/internal/valuecopy"
)

// Updater is invoked with the entry's current caller-facing value. It
// returns the new value to store and whether the update should be applied;
// returning ok=false leaves the entry untouched (but mtime is still
// stamped, per §4.5).
type Updater func(cur any) (newVal any, ok bool)

// Update looks up key and applies fn to its current value under the write
// lock. If the stored value is a serializer-encoded composite it cannot be
// mutated in place and ErrSerializedComposite is returned. If key is
// absent and insertIfNotFound is true, Update performs a single exclusive
// Store of a zero value and retries fn exactly once (the retry does not
// re-enter the insert branch, so a retry miss is a genuine ErrNotFound).
func (c *Cache) Update(key string, fn Updater, insertIfNotFound bool, ttl time.Duration) (bool, error) {
	applied, err := c.updateOnce(key, fn)
	if err != ErrNotFound || !insertIfNotFound {
		return applied, err
	}

	// §4.5: insert a zero value, ignore a race loss (ErrConflict means
	// someone else won the insert, which is fine — we only need the key to
	// exist before retrying).
	if storeErr := c.Store(key, nil, ttl, true); storeErr != nil && storeErr != ErrConflict {
		return false, storeErr
	}
	return c.updateOnce(key, fn)
}

func (c *Cache) updateOnce(key string, fn Updater) (bool, error) {
	kb := unsafehelpers.StringToBytes(key)
	hash, idx := c.slotOf(kb)
	t := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busyLocked() {
		return false, ErrBusy
	}

	e := c.lookupChainLocked(idx, hash, kb, t)
	if e == nil {
		return false, ErrNotFound
	}

	if isSerializedComposite(e.val) && c.cfg.serializer != nil {
		e.mtime = t
		return false, ErrSerializedComposite
	}

	cur, err := valuecopy.CopyOut(e.val, c.cfg.serializer)
	if err != nil {
		e.mtime = t
		return false, err
	}
	curNative, err := valueToNative(cur)
	if err != nil {
		e.mtime = t
		return false, err
	}

	newNative, ok := fn(curNative)
	e.mtime = t
	if !ok {
		return false, nil
	}

	newVal, err := nativeToValue(newNative)
	if err != nil {
		return false, err
	}

	newPool := arena.NewPool(c.sma)
	copied, err := valuecopy.CopyIn(newPool, newVal, c.cfg.serializer)
	if err != nil {
		newPool.Destroy()
		if err == valuecopy.ErrAlloc {
			return false, ErrAlloc
		}
		return false, ErrCodec
	}

	oldMemSize := e.memSize
	oldPool := e.pool
	e.val = copied
	e.pool = newPool
	e.memSize = newPool.Size()
	c.memSize += e.memSize - oldMemSize
	if c.memSize < 0 {
		c.memSize = 0
	}
	oldPool.Destroy()

	return true, nil
}

// isSerializedComposite reports whether v is an opaque payload that
// originated from encoding an array/object (as opposed to a leaf the
// caller itself stored as Opaque), which is the only case §4.5 means by
// "serialized array/object".
func isSerializedComposite(v *valuecopy.Value) bool {
	return v != nil && v.Kind == valuecopy.KindOpaque &&
		(v.OpaqueTag == valuecopy.KindArray || v.OpaqueTag == valuecopy.KindObject)
}
