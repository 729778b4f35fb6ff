package shmcache

// slam.go implements the slam defense of §4.8: a single-slot fingerprint
// that collapses duplicate concurrent inserts of the same key arriving
// from distinct owners within the same wall-clock second.
//
// Resolution of a literal-vs-intent ambiguity: the original APCu source
// (original_source/apc_cache.c, apc_cache_defense) only ever re-stamps
// lastkey when the *current* key already happens to match what's stored
// there, and returns immediately without stamping when lastkey is still
// zeroed — meaning a cold cache's fingerprint is never primed and the
// defense can never fire. Taken literally that would make §8 scenario 3
// ("two processes store the same key concurrently with defense on →
// exactly one succeeds") unsatisfiable from a cold cache. We therefore
// read spec.md §4.8's "if lastkey.hash == 0 → no-op" as "skip the slam
// verdict, there is nothing yet to compare against" rather than "never
// stamp": the fingerprint is always stamped after a non-slammed check,
// including the very first call. See DESIGN.md for the ledger entry.
//
// Because shmcache runs all of this inside the single write-locked
// section (see store.go), the check-then-stamp sequence below is already
// atomic. Store deliberately does NOT collapse concurrent same-key calls
// ahead of this lock (e.g. via singleflight): doing so would hand a
// losing caller the winner's result instead of letting its own call
// reach defenseLocked, which is exactly the distinct-owner race this
// defense exists to adjudicate.

import "github.com/Voskan/shmcache/internal/unsafehelpers"

func (c *Cache) defenseLocked(hash uint64, keyLen int, t int64, owner uint64) bool {
	if !c.cfg.defend {
		return false
	}

	if c.lastkey.hash != 0 &&
		c.lastkey.hash == hash &&
		c.lastkey.len == keyLen &&
		c.lastkey.mtime == t &&
		c.lastkey.owner != owner {
		return true
	}

	c.lastkey = slamKey{hash: hash, len: keyLen, mtime: t, owner: owner}
	return false
}

// clearSlamLocked resets the fingerprint, mirroring the original's explicit
// memset on clear/expunge-success paths (§4.7).
func (c *Cache) clearSlamLocked() {
	c.lastkey = slamKey{}
}

// Defense reports whether calling Store for key at time t would currently
// be collapsed by the slam defense, without performing a store. It is
// exposed per §6's "defense(key, t)" operation (documented as
// "internal-usable") mainly for diagnostics and tests; it does NOT stamp
// the fingerprint, since doing so would let a pure inspection call
// interfere with a subsequent real Store's slam check.
func (c *Cache) Defense(key string, t int64) bool {
	hash, _ := c.slotOf(unsafehelpers.StringToBytes(key))

	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.cfg.defend || c.lastkey.hash == 0 {
		return false
	}
	return c.lastkey.hash == hash &&
		c.lastkey.len == len(key) &&
		c.lastkey.mtime == t &&
		c.lastkey.owner != c.cfg.owner()
}
