package cache

import "slices"

// memoryBackend stores entries in a map and tracks insertion order for FIFO
// eviction. Re-setting an existing key keeps its original position in the
// eviction order; only a delete-then-set moves it to the back.
type memoryBackend[T any] struct {
	entries map[string]Entry[T]
	order   []string
	maxSize int
}

func newMemoryBackend[T any](maxSize int) *memoryBackend[T] {
	return &memoryBackend[T]{
		entries: make(map[string]Entry[T]),
		maxSize: maxSize,
	}
}

func (m *memoryBackend[T]) set(key string, e Entry[T]) bool {
	if _, exists := m.entries[key]; !exists {
		m.order = append(m.order, key)
	}
	m.entries[key] = e

	if m.maxSize > 0 && len(m.entries) > m.maxSize {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
		return true
	}
	return false
}

func (m *memoryBackend[T]) get(key string) (Entry[T], bool) {
	e, ok := m.entries[key]
	return e, ok
}

func (m *memoryBackend[T]) delete(key string) {
	if _, ok := m.entries[key]; !ok {
		return
	}
	delete(m.entries, key)
	if i := slices.Index(m.order, key); i >= 0 {
		m.order = slices.Delete(m.order, i, i+1)
	}
}

func (m *memoryBackend[T]) clear() {
	m.entries = make(map[string]Entry[T])
	m.order = nil
}

func (m *memoryBackend[T]) size() int { return len(m.entries) }

func (m *memoryBackend[T]) name() string { return string(StorageMemory) }
