package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// fsBackend stores one JSON file per key under dir. The filename is the hex
// SHA-256 of the logical key, keeping arbitrary keys filesystem-safe. All
// read, parse, and remove failures degrade to cache misses.
type fsBackend[T any] struct {
	dir string
}

// fsEntry is the on-disk entry format. Timestamp is epoch milliseconds.
type fsEntry[T any] struct {
	Key       string `json:"key"`
	Data      T      `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

func newFSBackend[T any](dir string) (*fsBackend[T], error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, err
	}
	return &fsBackend[T]{dir: dir}, nil
}

func (f *fsBackend[T]) entryPath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(f.dir, hex.EncodeToString(sum[:])+".json")
}

func (f *fsBackend[T]) set(key string, e Entry[T]) bool {
	data, err := json.Marshal(fsEntry[T]{
		Key:       e.Key,
		Data:      e.Data,
		Timestamp: e.InsertedAt.UnixMilli(),
	})
	if err != nil {
		return false
	}
	// Write failure is swallowed: a cache that cannot persist one entry must
	// not fail the build.
	_ = os.WriteFile(f.entryPath(key), data, 0600)
	return false
}

func (f *fsBackend[T]) get(key string) (Entry[T], bool) {
	var zero Entry[T]

	data, err := os.ReadFile(f.entryPath(key))
	if err != nil {
		return zero, false
	}

	var stored fsEntry[T]
	if err := json.Unmarshal(data, &stored); err != nil {
		// Corrupt entry: treat as miss.
		return zero, false
	}

	return Entry[T]{
		Key:        stored.Key,
		Data:       stored.Data,
		InsertedAt: time.UnixMilli(stored.Timestamp),
	}, true
}

func (f *fsBackend[T]) delete(key string) {
	_ = os.Remove(f.entryPath(key))
}

func (f *fsBackend[T]) clear() {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return
	}
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".json") {
			continue
		}
		_ = os.Remove(filepath.Join(f.dir, ent.Name()))
	}
}

func (f *fsBackend[T]) size() int {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, ent := range entries {
		if !ent.IsDir() && strings.HasSuffix(ent.Name(), ".json") {
			n++
		}
	}
	return n
}

func (f *fsBackend[T]) name() string { return string(StorageFilesystem) }
