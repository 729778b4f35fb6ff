package shmcache

// preload.go implements §6 preload(path): in non-threaded startup mode,
// populate the cache from a directory of "<key>.data" files, each holding a
// value's serialized bytes. Generalizing arena-cache's examples/disk_eject
// wiring of badger as an L2 store, a cache configured with
// WithPreloadBadger additionally (or instead) sources entries from a
// badger.DB, scanning every key/value pair it holds.

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

const preloadFileSuffix = ".data"

// Preload loads every "<key>.data" file in dir as a stored value and
// reports how many entries were inserted. A serializer must be configured
// (WithSerializer) for Preload to know how to decode file contents back
// into a caller-facing value; without one, each file's raw bytes are
// stored as-is. Preload is meant for single-process startup, before
// concurrent access begins — per §6, it is documented as "only in
// non-threaded mode".
func (c *Cache) Preload(dir string) (int, error) {
	n := 0
	if dir != "" {
		loaded, err := c.preloadDir(dir)
		if err != nil {
			return n, err
		}
		n += loaded
	}
	if c.cfg.preloadBadger != nil {
		loaded, err := c.preloadBadgerDB(c.cfg.preloadBadger)
		if err != nil {
			return n, err
		}
		n += loaded
	}
	return n, nil
}

func (c *Cache) preloadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), preloadFileSuffix) {
			continue
		}
		key := strings.TrimSuffix(de.Name(), preloadFileSuffix)
		raw, err := os.ReadFile(filepath.Join(dir, de.Name()))
		if err != nil {
			c.logger.Sugar().Warnw("shmcache: preload file read failed", "key", key, "error", err)
			continue
		}
		if err := c.storePreloadedBytes(key, raw); err != nil {
			c.logger.Sugar().Warnw("shmcache: preload store failed", "key", key, "error", err)
			continue
		}
		n++
	}
	return n, nil
}

func (c *Cache) preloadBadgerDB(db *badger.DB) (int, error) {
	n := 0
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))
			val, err := item.ValueCopy(nil)
			if err != nil {
				c.logger.Sugar().Warnw("shmcache: badger preload read failed", "key", key, "error", err)
				continue
			}
			if err := c.storePreloadedBytes(key, val); err != nil {
				c.logger.Sugar().Warnw("shmcache: badger preload store failed", "key", key, "error", err)
				continue
			}
			n++
		}
		return nil
	})
	if err != nil {
		return n, err
	}
	return n, nil
}

// storePreloadedBytes stores raw, decoding it through the configured
// serializer when one is present; otherwise raw bytes become the value
// verbatim.
func (c *Cache) storePreloadedBytes(key string, raw []byte) error {
	if c.cfg.serializer == nil {
		return c.Store(key, raw, 0, false)
	}
	val, err := c.cfg.serializer.Decode(raw)
	if err != nil {
		return ErrCodec
	}
	native, err := valueToNative(val)
	if err != nil {
		return err
	}
	return c.Store(key, native, 0, false)
}
