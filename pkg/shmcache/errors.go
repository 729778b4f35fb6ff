package shmcache

// errors.go collects the sentinel errors shmcache returns, following
// arena-cache's pkg/config.go convention of plain errors.New sentinels
// rather than a custom errors package — the teacher never reaches for one
// and no repo in the retrieval pack makes a strong enough case for adding
// one just for simple boolean-outcome sentinels.

import "errors"

var (
	// ErrInvalidSMASize is returned by Create when the SMA size hint is
	// negative.
	ErrInvalidSMASize = errors.New("shmcache: sma size must be >= 0")

	// ErrInvalidSizeHint is returned when the requested slot table size
	// hint is negative.
	ErrInvalidSizeHint = errors.New("shmcache: size hint must be >= 0")

	// ErrBusy is returned by any public operation that observes the BUSY
	// flag set by a concurrent Clear or Expunge (§4.7).
	ErrBusy = errors.New("shmcache: cache busy (clear/expunge in progress)")

	// ErrSlammed is returned by Store when the slam defense collapsed a
	// duplicate concurrent insert (§4.8).
	ErrSlammed = errors.New("shmcache: store suppressed by slam defense")

	// ErrConflict is returned by an exclusive Store when a live entry for
	// the key already exists.
	ErrConflict = errors.New("shmcache: key already exists (exclusive store)")

	// ErrAlloc is returned when the SMA/Pool cannot satisfy an allocation.
	ErrAlloc = errors.New("shmcache: allocation failed")

	// ErrNotFound is returned by operations that require an existing
	// entry (Fetch, Update without insert_if_not_found) when the key is
	// absent. Stat reports absence with ok=false instead.
	ErrNotFound = errors.New("shmcache: key not found")

	// ErrSerializedComposite is returned by Update when the stored value
	// is an opaque serialized array/object payload: it cannot be updated
	// in place (§4.5).
	ErrSerializedComposite = errors.New("shmcache: value is a serialized composite and cannot be updated in place")

	// ErrCodec is returned when the configured Serializer fails to encode
	// or decode a value at the storage boundary.
	ErrCodec = errors.New("shmcache: codec encode/decode failed")
)
