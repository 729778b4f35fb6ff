package shmcache

// compute.go implements §4.9 compute_if_absent: atomically return an
// existing entry's value or compute-and-insert one, with the computation
// itself running under the write lock.
//
// Recursive lock emulation (§9 Design Notes): Go's sync.RWMutex is not
// reentrant and goroutines have no usable thread-local storage, so this is
// the one primitive in the package where the lock is held across a
// caller-supplied callback. Compute must not call back into any other
// Cache method for the same cache — doing so deadlocks, exactly as a
// non-reentrant mutex would in the source design. This is the sole
// reentrant path the Design Notes call out; every other operation takes
// and releases the lock within its own call.

import (
	"time"

	"github.com/Voskan/shmcache/internal/unsafehelpers"
	"github.com/Voskan/shmcache/internal/valuecopy"
)

// Compute is invoked only on a miss; it returns the value to store (and its
// ttl), or an error to signal the computation failed. A failed computation
// is never cached (§4.9).
type Compute func() (val any, ttl time.Duration, err error)

// ComputeIfAbsent returns key's existing value if live, or else invokes
// compute and stores its result before returning it. The store always
// behaves as a non-exclusive insert: ComputeIfAbsent itself already
// resolved the absence check, so there is nothing to conflict with under
// the single lock acquisition it uses.
func (c *Cache) ComputeIfAbsent(key string, compute Compute) (any, error) {
	kb := unsafehelpers.StringToBytes(key)
	hash, idx := c.slotOf(kb)
	t := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busyLocked() {
		return nil, ErrBusy
	}

	if e := c.lookupChainLocked(idx, hash, kb, t); e != nil {
		e.atime = t
		e.nhits++
		c.nhits++
		c.metrics.incHit()
		out, err := valuecopy.CopyOut(e.val, c.cfg.serializer)
		if err != nil {
			if err == valuecopy.ErrCodec {
				return nil, ErrCodec
			}
			return nil, err
		}
		return valueToNative(out)
	}
	c.nmisses++
	c.metrics.incMiss()

	val, ttl, err := compute()
	if err != nil {
		return nil, err
	}

	v, err := nativeToValue(val)
	if err != nil {
		return nil, err
	}

	c.gcSweepLocked()

	e, err := c.newEntry(kb, v, int64(ttl/time.Second), t)
	if err != nil {
		return nil, err
	}
	c.linkHeadLocked(idx, e)
	c.memSize += e.memSize
	c.nentries++
	c.ninserts++
	c.metrics.incInsert()
	c.metrics.setEntries(int64(c.nentries))
	c.metrics.setMemSize(c.memSize)

	return val, nil
}
