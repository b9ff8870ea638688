package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID     = "build_id"
	KeyPath        = "path"
	KeyRoot        = "root"
	KeyStage       = "stage"
	KeyCount       = "count"
	KeyDurationMS  = "duration_ms"
	KeyBackend     = "backend"
	KeyCacheKey    = "cache_key"
	KeyStateFile   = "state_file"
	KeyBuildStatus = "build_status"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Root(r string) slog.Attr         { return slog.String(KeyRoot, r) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Backend(b string) slog.Attr      { return slog.String(KeyBackend, b) }
func CacheKey(k string) slog.Attr     { return slog.String(KeyCacheKey, k) }
func StateFile(p string) slog.Attr    { return slog.String(KeyStateFile, p) }
func BuildStatus(s string) slog.Attr  { return slog.String(KeyBuildStatus, s) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
