// Package metrics provides observability hooks for the incremental build engine.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics can be enabled by swapping in a real implementation
// (see PrometheusRecorder) without touching call sites.
package metrics

import "time"

// Recorder defines observability hooks for build and cache metrics. Implementations
// may forward to Prometheus, OpenTelemetry, etc. All methods must be safe on the
// zero value of NoopRecorder (allowing optional injection).
type Recorder interface {
	IncCacheHit(backend string)
	IncCacheMiss(backend string)
	IncCacheEviction(backend string)
	IncCacheExpiry(backend string)
	ObserveScan(scanned, changed int)
	IncFilesRegenerated(n int)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome string) // outcome: success|failed|skipped
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncCacheHit(string)                  {}
func (NoopRecorder) IncCacheMiss(string)                 {}
func (NoopRecorder) IncCacheEviction(string)             {}
func (NoopRecorder) IncCacheExpiry(string)               {}
func (NoopRecorder) ObserveScan(int, int)                {}
func (NoopRecorder) IncFilesRegenerated(int)             {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)  {}
func (NoopRecorder) IncBuildOutcome(string)              {}
