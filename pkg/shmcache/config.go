package shmcache

// config.go defines the cache's configuration object and the set of
// functional options that can be passed to Create, following arena-cache's
// pkg/config.go layout verbatim in spirit: a private config struct filled
// in by defaultConfig() and then mutated by a slice of Option closures,
// validated once in applyOptions.
//
// © 2025 shmcache authors. MIT License.

import (
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Voskan/shmcache/internal/valuecopy"
)

// Option mutates a config at Create time.
type Option func(*config)

type config struct {
	smaSize  int64 // 0 means unbounded
	sizeHint int   // slot table size hint (§3 Slot table)
	gcTTL    int64 // seconds; 0 disables the leak-escape hatch (§4.6)
	ttl      int64 // global soft TTL in seconds; 0 disables soft expiry
	smart    int64 // expunge "smart" multiplier (§4.7); 0 -> sma.size/2
	defend   bool  // slam defense on/off (§4.8)

	serializer valuecopy.Serializer
	registry   *prometheus.Registry
	logger     *zap.Logger
	now        func() int64

	preloadBadger *badger.DB
	owner         func() uint64
}

const defaultSizeHint = 2000

func defaultConfig() *config {
	return &config{
		sizeHint: defaultSizeHint,
		defend:   true,
		logger:   zap.NewNop(),
		now:      func() int64 { return time.Now().Unix() },
		owner:    defaultOwner,
	}
}

// WithSMASize bounds the shared-memory allocator's total capacity in bytes.
// Zero (the default) means unbounded.
func WithSMASize(n int64) Option {
	return func(c *config) { c.smaSize = n }
}

// WithSizeHint sets the requested slot table size; the constructed table
// uses the smallest prime from the fixed table strictly greater than this
// hint, or the table's largest prime if none is (§3 Slot table).
func WithSizeHint(n int) Option {
	return func(c *config) { c.sizeHint = n }
}

// WithGCTTL sets the deferred-free leak escape hatch: an entry stuck on the
// GC list for longer than this many seconds is freed anyway, with a leak
// diagnostic logged (§4.6). Zero disables the escape hatch.
func WithGCTTL(seconds int64) Option {
	return func(c *config) { c.gcTTL = seconds }
}

// WithGlobalTTL sets the soft TTL (§B1/§B2, Glossary "Soft expiry") applied
// to entries that have no per-entry TTL of their own.
func WithGlobalTTL(seconds int64) Option {
	return func(c *config) { c.ttl = seconds }
}

// WithSmartRatio sets the expunge "smart" multiplier (§4.7): the suitable
// free-byte threshold becomes smart*requestedSize instead of sma.size/2.
func WithSmartRatio(smart int64) Option {
	return func(c *config) { c.smart = smart }
}

// WithSlamDefense toggles the duplicate-concurrent-insert defense (§4.8).
// Enabled by default.
func WithSlamDefense(enabled bool) Option {
	return func(c *config) { c.defend = enabled }
}

// WithSerializer installs the codec pair used to turn composite (array and
// object shaped) values into opaque bytes on store, and back on fetch
// (§4.2). Nil (the default) disables serialization: composites are deep
// copied structurally instead.
func WithSerializer(s valuecopy.Serializer) Option {
	return func(c *config) { c.serializer = s }
}

// WithMetrics enables Prometheus metrics collection, mirroring arena-cache's
// WithMetrics option. Passing nil disables metrics (default).
func WithMetrics(reg *prometheus.Registry) Option {
	return func(c *config) { c.registry = reg }
}

// WithLogger plugs an external zap.Logger. The cache never logs on the hot
// find/fetch path; only GC leak diagnostics and Preload read/store
// failures are logged.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the cache's notion of "now" (seconds since epoch).
// Intended for deterministic tests; production callers should not need it.
func WithClock(now func() int64) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// WithOwner overrides the per-process-or-thread identity used by slam
// defense to distinguish racing callers (§4.8 "owner"). Defaults to a
// goroutine-independent process identity; tests that simulate multiple
// distinct callers within one process should override this per call site
// instead (see Cache.StoreAs).
func WithOwner(owner func() uint64) Option {
	return func(c *config) {
		if owner != nil {
			c.owner = owner
		}
	}
}

// WithPreloadBadger sources Preload's input files from an embedded Badger
// instance instead of (or in addition to) the filesystem, generalizing
// arena-cache's examples/disk_eject wiring of Badger as an L2 store.
func WithPreloadBadger(db *badger.DB) Option {
	return func(c *config) { c.preloadBadger = db }
}

func applyOptions(cfg *config, opts []Option) error {
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.smaSize < 0 {
		return ErrInvalidSMASize
	}
	if cfg.sizeHint < 0 {
		return ErrInvalidSizeHint
	}
	return nil
}
