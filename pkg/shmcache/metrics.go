package shmcache

// metrics.go mirrors arena-cache's pkg/metrics.go: a metricsSink interface
// abstracts the concrete backend (Prometheus vs a no-op sink) so the hot
// find/fetch path never pays for a metric update unless the caller opted in
// via WithMetrics. Metric names/shape follow the Header counters §3 already
// requires (nhits, nmisses, ninserts, nexpunges, nentries, mem_size),
// surfaced for Prometheus scraping rather than duplicating state.
//
// © 2025 shmcache authors. MIT License.

import "github.com/prometheus/client_golang/prometheus"

type metricsSink interface {
	incHit()
	incMiss()
	incInsert()
	incExpunge()
	setEntries(n int64)
	setMemSize(n int64)
}

type noopMetrics struct{}

func (noopMetrics) incHit()          {}
func (noopMetrics) incMiss()         {}
func (noopMetrics) incInsert()       {}
func (noopMetrics) incExpunge()      {}
func (noopMetrics) setEntries(int64) {}
func (noopMetrics) setMemSize(int64) {}

type promMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	inserts   prometheus.Counter
	expunges  prometheus.Counter
	entries   prometheus.Gauge
	memSize   prometheus.Gauge
}

func newPromMetrics(reg *prometheus.Registry) *promMetrics {
	pm := &promMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shmcache", Name: "hits_total", Help: "Number of cache hits.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shmcache", Name: "misses_total", Help: "Number of cache misses.",
		}),
		inserts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shmcache", Name: "inserts_total", Help: "Number of successful stores.",
		}),
		expunges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shmcache", Name: "expunges_total", Help: "Number of expunge runs.",
		}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shmcache", Name: "entries", Help: "Live entry count.",
		}),
		memSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shmcache", Name: "mem_size_bytes", Help: "Live entry bytes (header.mem_size).",
		}),
	}
	reg.MustRegister(pm.hits, pm.misses, pm.inserts, pm.expunges, pm.entries, pm.memSize)
	return pm
}

func (m *promMetrics) incHit()            { m.hits.Inc() }
func (m *promMetrics) incMiss()           { m.misses.Inc() }
func (m *promMetrics) incInsert()         { m.inserts.Inc() }
func (m *promMetrics) incExpunge()        { m.expunges.Inc() }
func (m *promMetrics) setEntries(n int64) { m.entries.Set(float64(n)) }
func (m *promMetrics) setMemSize(n int64) { m.memSize.Set(float64(n)) }

func newMetricsSink(reg *prometheus.Registry) metricsSink {
	if reg == nil {
		return noopMetrics{}
	}
	return newPromMetrics(reg)
}
