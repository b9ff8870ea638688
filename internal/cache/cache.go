// Package cache provides a generic memoizing store for expensive derived
// artifacts, keyed by an opaque string. Two interchangeable backends exist:
// an in-process map with FIFO eviction and a one-file-per-key filesystem
// layout. Caching is strictly an optimization layer: storage failures are
// treated as misses and never surfaced to the caller.
package cache

import (
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/metrics"
)

// StorageType selects the cache backend.
type StorageType string

const (
	StorageMemory     StorageType = "memory"
	StorageFilesystem StorageType = "filesystem"
)

// Options is the immutable cache configuration supplied at construction.
type Options struct {
	// Enabled toggles the whole cache; a disabled cache misses on every read
	// and ignores every write.
	Enabled bool

	// Storage selects the backend. Defaults to memory.
	Storage StorageType

	// MaxSize bounds the memory backend's entry count. Once exceeded the
	// oldest-inserted entry is evicted (strict FIFO, not LRU). 0 = unbounded.
	MaxSize int

	// TTL expires entries lazily on access. 0 = no expiry.
	TTL time.Duration

	// Dir is the filesystem backend's directory.
	Dir string
}

// Entry is a stored value with its insertion time.
type Entry[T any] struct {
	Key        string
	Data       T
	InsertedAt time.Time
}

// Stats is a point-in-time snapshot of cache state.
type Stats struct {
	Enabled bool
	Storage StorageType
	Size    int
	MaxSize int
	TTL     time.Duration
}

// backend is the storage contract shared by the memory and filesystem
// implementations. TTL and enabled/disabled handling live in Cache, not here.
type backend[T any] interface {
	set(key string, e Entry[T]) (evicted bool)
	get(key string) (Entry[T], bool)
	delete(key string)
	clear()
	size() int
	name() string
}

// Cache memoizes derived values of type T behind string keys.
type Cache[T any] struct {
	opts     Options
	store    backend[T]
	logger   *slog.Logger
	recorder metrics.Recorder
	now      func() time.Time
}

// New constructs a cache for the given options. A filesystem cache whose
// directory cannot be created fails fast: a cache that can never be written
// is a configuration error, not a transient condition.
func New[T any](opts Options) (*Cache[T], error) {
	if opts.Storage == "" {
		opts.Storage = StorageMemory
	}

	c := &Cache[T]{
		opts:     opts,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
		now:      time.Now,
	}

	if !opts.Enabled {
		return c, nil
	}

	switch opts.Storage {
	case StorageMemory:
		c.store = newMemoryBackend[T](opts.MaxSize)
	case StorageFilesystem:
		fs, err := newFSBackend[T](opts.Dir)
		if err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", opts.Dir, err)
		}
		c.store = fs
	default:
		return nil, fmt.Errorf("unknown cache storage type %q", opts.Storage)
	}

	return c, nil
}

// WithLogger sets a custom logger.
func (c *Cache[T]) WithLogger(logger *slog.Logger) *Cache[T] {
	c.logger = logger
	return c
}

// WithRecorder sets a metrics recorder.
func (c *Cache[T]) WithRecorder(r metrics.Recorder) *Cache[T] {
	c.recorder = r
	return c
}

// WithClock overrides the time source (TTL tests).
func (c *Cache[T]) WithClock(now func() time.Time) *Cache[T] {
	c.now = now
	return c
}

// Set stores value under key. No-op when the cache is disabled.
func (c *Cache[T]) Set(key string, value T) {
	if !c.enabled() {
		return
	}
	if c.store.set(key, Entry[T]{Key: key, Data: value, InsertedAt: c.now()}) {
		c.recorder.IncCacheEviction(c.store.name())
	}
}

// Get returns the cached value for key. An expired entry is deleted and
// reported as a miss (lazy expiry; there is no background sweep).
func (c *Cache[T]) Get(key string) (T, bool) {
	var zero T
	if !c.enabled() {
		return zero, false
	}

	e, ok := c.store.get(key)
	if !ok {
		c.recorder.IncCacheMiss(c.store.name())
		return zero, false
	}
	if c.expired(e) {
		c.store.delete(key)
		c.recorder.IncCacheExpiry(c.store.name())
		c.logger.Debug("Cache entry expired", logfields.CacheKey(key))
		return zero, false
	}

	c.recorder.IncCacheHit(c.store.name())
	return e.Data, true
}

// Has reports whether key holds a live entry, with the same expiry semantics
// as Get but without decoding the payload for the caller.
func (c *Cache[T]) Has(key string) bool {
	if !c.enabled() {
		return false
	}

	e, ok := c.store.get(key)
	if !ok {
		return false
	}
	if c.expired(e) {
		c.store.delete(key)
		c.recorder.IncCacheExpiry(c.store.name())
		return false
	}
	return true
}

// Delete removes the entry for key. Absent keys are not an error.
func (c *Cache[T]) Delete(key string) {
	if !c.enabled() {
		return
	}
	c.store.delete(key)
}

// Clear removes every entry.
func (c *Cache[T]) Clear() {
	if !c.enabled() {
		return
	}
	c.store.clear()
}

// Stats returns a point-in-time snapshot. Size counts live entries; for the
// filesystem backend this enumerates the cache directory.
func (c *Cache[T]) Stats() Stats {
	s := Stats{
		Enabled: c.opts.Enabled,
		Storage: c.opts.Storage,
		MaxSize: c.opts.MaxSize,
		TTL:     c.opts.TTL,
	}
	if c.enabled() {
		s.Size = c.store.size()
	}
	return s
}

func (c *Cache[T]) enabled() bool {
	return c.opts.Enabled && c.store != nil
}

func (c *Cache[T]) expired(e Entry[T]) bool {
	return c.opts.TTL > 0 && c.now().Sub(e.InsertedAt) > c.opts.TTL
}
