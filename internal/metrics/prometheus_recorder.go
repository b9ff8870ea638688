package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	cacheOps         *prom.CounterVec
	filesScanned     prom.Counter
	filesChanged     prom.Counter
	filesRegenerated prom.Counter
	buildDuration    prom.Histogram
	buildOutcome     *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		cacheOps: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docsite",
			Name:      "cache_operations_total",
			Help:      "Cache operation counts by backend and result",
		}, []string{"backend", "result"}),
		filesScanned: prom.NewCounter(prom.CounterOpts{
			Namespace: "docsite",
			Name:      "files_scanned_total",
			Help:      "Total source files enumerated across builds",
		}),
		filesChanged: prom.NewCounter(prom.CounterOpts{
			Namespace: "docsite",
			Name:      "files_changed_total",
			Help:      "Total source files detected as changed",
		}),
		filesRegenerated: prom.NewCounter(prom.CounterOpts{
			Namespace: "docsite",
			Name:      "files_regenerated_total",
			Help:      "Total source files regenerated",
		}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "docsite",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docsite",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
	}
	reg.MustRegister(pr.cacheOps, pr.filesScanned, pr.filesChanged,
		pr.filesRegenerated, pr.buildDuration, pr.buildOutcome)
	return pr
}

func (p *PrometheusRecorder) IncCacheHit(backend string) {
	if p == nil || p.cacheOps == nil {
		return
	}
	p.cacheOps.WithLabelValues(backend, "hit").Inc()
}

func (p *PrometheusRecorder) IncCacheMiss(backend string) {
	if p == nil || p.cacheOps == nil {
		return
	}
	p.cacheOps.WithLabelValues(backend, "miss").Inc()
}

func (p *PrometheusRecorder) IncCacheEviction(backend string) {
	if p == nil || p.cacheOps == nil {
		return
	}
	p.cacheOps.WithLabelValues(backend, "eviction").Inc()
}

func (p *PrometheusRecorder) IncCacheExpiry(backend string) {
	if p == nil || p.cacheOps == nil {
		return
	}
	p.cacheOps.WithLabelValues(backend, "expiry").Inc()
}

func (p *PrometheusRecorder) ObserveScan(scanned, changed int) {
	if p == nil || p.filesScanned == nil {
		return
	}
	p.filesScanned.Add(float64(scanned))
	p.filesChanged.Add(float64(changed))
}

func (p *PrometheusRecorder) IncFilesRegenerated(n int) {
	if p == nil || p.filesRegenerated == nil {
		return
	}
	p.filesRegenerated.Add(float64(n))
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}
