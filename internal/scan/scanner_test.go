package scan

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("content"), 0600); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
	return path
}

func TestFilesEnumeratesTree(t *testing.T) {
	root := t.TempDir()
	a := writeFile(t, root, "index.md")
	b := writeFile(t, root, "guides/setup.md")

	got, err := New(nil).Files(root)
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d files, want 2: %v", len(got), got)
	}
	// Sorted output.
	if got[0] != b || got[1] != a {
		t.Errorf("unexpected order: %v", got)
	}
}

func TestIgnorePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.md")
	writeFile(t, root, "drafts/wip.md")
	writeFile(t, root, "guides/internal/secret.md")

	s := New([]string{"drafts/**", "**/internal/**"})
	got, err := s.Files(root)
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	if len(got) != 1 || filepath.Base(got[0]) != "index.md" {
		t.Errorf("got %v, want only index.md", got)
	}
}

func TestAlwaysSkippedDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.md")
	writeFile(t, root, ".git/config")
	writeFile(t, root, ".docsite/state.json")
	writeFile(t, root, "node_modules/pkg/readme.md")

	got, err := New(nil).Files(root)
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %v, want only index.md", got)
	}
}

func TestInvalidPatternDropped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.md")

	// Unterminated character class is invalid; it must be dropped, not break
	// the scan.
	got, err := New([]string{"[invalid"}).Files(root)
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %v, want 1 file", got)
	}
}

func TestMissingRootErrors(t *testing.T) {
	if _, err := New(nil).Files(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("expected error for missing root")
	}
}
