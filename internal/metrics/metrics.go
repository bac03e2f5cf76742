// Package metrics defines the Prometheus instruments shared by the cache,
// the remote client, the sync engine and the autosave scheduler.
//
// A Metrics value is constructed once by the application and handed to each
// component. Passing a nil Registerer yields working but unregistered
// collectors, which is what tests use.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache lookup results.
const (
	LookupHit     = "hit"
	LookupMiss    = "miss"
	LookupExpired = "expired"
	LookupCorrupt = "corrupt"
)

// Cache write results.
const (
	WriteOK      = "ok"
	WriteRetried = "retried"
	WriteDropped = "dropped"
)

// Metrics groups the collectors for one process.
type Metrics struct {
	cacheLookups   *prometheus.CounterVec
	cacheWrites    *prometheus.CounterVec
	cacheEvictions prometheus.Counter
	remoteCalls    *prometheus.CounterVec
	remoteLatency  *prometheus.HistogramVec
	progressSkips  prometheus.Counter
	autosaveFires  *prometheus.CounterVec
	securityErrors prometheus.Counter
}

// New creates the collectors and registers them with reg (nil = unregistered).
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "savesync_cache_lookups_total",
			Help: "Local cache lookups by result",
		}, []string{"result"}),
		cacheWrites: f.NewCounterVec(prometheus.CounterOpts{
			Name: "savesync_cache_writes_total",
			Help: "Local cache writes by result",
		}, []string{"result"}),
		cacheEvictions: f.NewCounter(prometheus.CounterOpts{
			Name: "savesync_cache_evictions_total",
			Help: "Entries removed by stale/corrupt eviction",
		}),
		remoteCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "savesync_remote_calls_total",
			Help: "Remote persistence calls by operation and outcome",
		}, []string{"op", "outcome"}),
		remoteLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "savesync_remote_call_duration_seconds",
			Help:    "Remote persistence call latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"op"}),
		progressSkips: f.NewCounter(prometheus.CounterOpts{
			Name: "savesync_progress_skips_total",
			Help: "Progress updates skipped because the fingerprint was unchanged",
		}),
		autosaveFires: f.NewCounterVec(prometheus.CounterOpts{
			Name: "savesync_autosave_triggers_total",
			Help: "Autosave trigger firings by trigger and outcome",
		}, []string{"trigger", "outcome"}),
		securityErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "savesync_ownership_mismatches_total",
			Help: "Remote responses rejected because the owner did not match",
		}),
	}
}

// CacheLookup records a cache lookup result.
func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// CacheWrite records a cache write result.
func (m *Metrics) CacheWrite(result string) {
	if m == nil {
		return
	}
	m.cacheWrites.WithLabelValues(result).Inc()
}

// CacheEvicted records n evicted entries.
func (m *Metrics) CacheEvicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.cacheEvictions.Add(float64(n))
}

// RemoteCall records one remote call.
func (m *Metrics) RemoteCall(op string, seconds float64, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.remoteCalls.WithLabelValues(op, outcome).Inc()
	m.remoteLatency.WithLabelValues(op).Observe(seconds)
}

// ProgressSkipped records a fingerprint no-op.
func (m *Metrics) ProgressSkipped() {
	if m == nil {
		return
	}
	m.progressSkips.Inc()
}

// AutosaveFired records an autosave trigger outcome ("saved", "busy", "failed").
func (m *Metrics) AutosaveFired(trigger, outcome string) {
	if m == nil {
		return
	}
	m.autosaveFires.WithLabelValues(trigger, outcome).Inc()
}

// OwnershipMismatch records a rejected foreign response.
func (m *Metrics) OwnershipMismatch() {
	if m == nil {
		return
	}
	m.securityErrors.Inc()
}
