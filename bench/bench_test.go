// Package bench provides reproducible micro-benchmarks for shmcache.
// Run via: go test ./bench -bench=. -benchmem -cpu 1,4,16
//
// The benchmarks intentionally use a single key/value shape so results are
// comparable across versions: a 64-byte value stored as an opaque byte
// string, keyed by decimal-rendered uint64s (shmcache keys are strings).
//
// We measure:
//   1. Store         — write-only workload
//   2. Fetch         — read-only workload (after warm-up)
//   3. FetchParallel — highly concurrent reads (b.RunParallel)
//   4. ComputeIfAbsent — 90% hits, 10% misses with compute cost
//
// Results are printed in ns/op + alloc/op so CI can diff via benchstat.
//
// NOTE: Unit tests live alongside the packages they cover; this file is
// only for performance.
//
// © 2025 shmcache authors. MIT License.
package bench

import (
	"math/rand"
	"runtime"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Voskan/shmcache/pkg/shmcache"
)

const (
	smaSize = 64 << 20 // 64 MiB
	ttl     = time.Minute
	nkeys   = 1 << 16 // 65536 keys for dataset
)

var value64 = make([]byte, 64)

func newTestCache() *shmcache.Cache {
	c, err := shmcache.Create(smaSize, shmcache.WithSizeHint(nkeys))
	if err != nil {
		panic(err)
	}
	return c
}

// ds holds the decimal string form of nkeys random uint64s, reused across
// benches to avoid reallocating large slices or paying strconv cost on the
// hot path.
var ds = func() []string {
	arr := make([]string, nkeys)
	for i := range arr {
		arr[i] = strconv.FormatUint(rand.Uint64(), 10)
	}
	return arr
}()

func BenchmarkStore(b *testing.B) {
	c := newTestCache()
	defer c.Destroy()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := ds[i&(nkeys-1)]
		_ = c.Store(key, value64, ttl, false)
	}
}

func BenchmarkFetch(b *testing.B) {
	c := newTestCache()
	defer c.Destroy()
	for _, k := range ds {
		_ = c.Store(k, value64, ttl, false)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := ds[i&(nkeys-1)]
		if _, h, err := c.Fetch(k); err == nil {
			h.Release()
		}
	}
}

func BenchmarkFetchParallel(b *testing.B) {
	c := newTestCache()
	defer c.Destroy()
	for _, k := range ds {
		_ = c.Store(k, value64, ttl, false)
	}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		idx := rand.Intn(nkeys)
		for pb.Next() {
			idx = (idx + 1) & (nkeys - 1)
			if _, h, err := c.Fetch(ds[idx]); err == nil {
				h.Release()
			}
		}
	})
}

func BenchmarkComputeIfAbsent(b *testing.B) {
	c := newTestCache()
	defer c.Destroy()
	// Preload 90% of keys to simulate a mixed hit/miss workload.
	for i, k := range ds {
		if i%10 != 0 {
			_ = c.Store(k, value64, ttl, false)
		}
	}
	var computeCnt atomic.Uint64
	compute := func() (any, time.Duration, error) {
		computeCnt.Add(1)
		return value64, ttl, nil
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := ds[i&(nkeys-1)]
		_, _ = c.ComputeIfAbsent(k, compute)
	}
	b.ReportMetric(float64(computeCnt.Load())/float64(b.N)*100, "miss-%")
}

func init() {
	rand.Seed(42)
	runtime.GOMAXPROCS(runtime.NumCPU())
}
