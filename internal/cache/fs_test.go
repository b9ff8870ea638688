package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type page struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func newFSCache(t *testing.T, opts Options) *Cache[page] {
	t.Helper()
	opts.Enabled = true
	opts.Storage = StorageFilesystem
	if opts.Dir == "" {
		opts.Dir = t.TempDir()
	}
	c, err := New[page](opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestFSSetGet(t *testing.T) {
	c := newFSCache(t, Options{})

	want := page{Title: "Intro", Body: "hello"}
	c.Set("docs/intro.md", want)

	got, ok := c.Get("docs/intro.md")
	if !ok {
		t.Fatal("expected hit")
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestFSEntryFileNaming(t *testing.T) {
	dir := t.TempDir()
	c := newFSCache(t, Options{Dir: dir})

	// Keys with separators and spaces must still map to flat, safe filenames.
	c.Set("docs/a b/c.md?section=1", page{Title: "x"})

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	name := entries[0].Name()
	if filepath.Ext(name) != ".json" {
		t.Errorf("entry file %q missing .json suffix", name)
	}
	if len(name) != 64+len(".json") {
		t.Errorf("entry file %q is not a sha256 hex name", name)
	}
}

func TestFSCorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	c := newFSCache(t, Options{Dir: dir})

	c.Set("k", page{Title: "ok"})

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if err := os.WriteFile(filepath.Join(dir, entries[0].Name()), []byte("{not json"), 0600); err != nil {
		t.Fatalf("corrupting entry: %v", err)
	}

	if _, ok := c.Get("k"); ok {
		t.Error("corrupt entry returned a hit")
	}
}

func TestFSTTLRemovesBackingFile(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	c := newFSCache(t, Options{Dir: dir, TTL: time.Minute})
	c.WithClock(func() time.Time { return now })

	c.Set("k", page{Title: "x"})
	now = now.Add(2 * time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss after TTL")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expired entry file not removed: %d entries remain", len(entries))
	}
}

func TestFSClearAndStats(t *testing.T) {
	c := newFSCache(t, Options{})

	c.Set("a", page{Title: "1"})
	c.Set("b", page{Title: "2"})

	if got := c.Stats().Size; got != 2 {
		t.Errorf("Stats().Size = %d, want 2", got)
	}

	c.Clear()
	if got := c.Stats().Size; got != 0 {
		t.Errorf("Stats().Size = %d after Clear, want 0", got)
	}
}

func TestFSDeleteAbsentKey(t *testing.T) {
	c := newFSCache(t, Options{})
	c.Delete("never-set") // must not panic
}

func TestFSNonCreatableDirFailsFast(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
		t.Fatalf("creating blocker file: %v", err)
	}

	// A regular file in place of the cache dir makes MkdirAll fail.
	_, err := New[page](Options{
		Enabled: true,
		Storage: StorageFilesystem,
		Dir:     filepath.Join(blocker, "cache"),
	})
	if err == nil {
		t.Error("expected construction error for non-creatable cache dir")
	}
}
