// Package scan enumerates source files under a root directory, applying
// ignore globs so the change tracker only sees files the build cares about.
package scan

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/docsite/internal/logfields"
)

// Directories never worth tracking, independent of user-supplied ignores.
var skippedDirs = map[string]struct{}{
	".git":         {},
	".docsite":     {},
	"node_modules": {},
}

// Scanner walks a source tree and returns regular files, filtered by
// doublestar glob patterns matched against slash-separated paths relative
// to the walk root.
type Scanner struct {
	ignore []string
	logger *slog.Logger
}

// New creates a scanner with the given ignore patterns. Invalid patterns are
// dropped with a warning rather than failing the scan.
func New(ignore []string) *Scanner {
	s := &Scanner{logger: slog.Default()}
	for _, p := range ignore {
		if !doublestar.ValidatePattern(p) {
			s.logger.Warn("Ignoring invalid glob pattern", logfields.Path(p))
			continue
		}
		s.ignore = append(s.ignore, p)
	}
	return s
}

// WithLogger sets a custom logger.
func (s *Scanner) WithLogger(logger *slog.Logger) *Scanner {
	s.logger = logger
	return s
}

// Files returns every non-ignored regular file under root, sorted.
func (s *Scanner) Files(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, werr error) error {
		if werr != nil {
			return werr
		}

		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			return rerr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if _, skip := skippedDirs[d.Name()]; skip {
				return filepath.SkipDir
			}
			if s.ignored(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		if s.ignored(rel) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

func (s *Scanner) ignored(rel string) bool {
	for _, p := range s.ignore {
		if doublestar.MatchUnvalidated(p, rel) {
			return true
		}
	}
	return false
}
