// Package incremental decides which source files changed since the last
// successful build, combining fast size+mtime checks with content hashing,
// and persists the per-file fingerprints that make the next run cheap.
package incremental

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/natefinch/atomic"

	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/scan"
	"git.home.luguber.info/inful/docsite/internal/util/sets"
)

// Options configures a Manager.
type Options struct {
	// Enabled toggles incremental mode. When false, every enumerated file is
	// reported changed and no state is persisted.
	Enabled bool

	// ForceRebuild reports every file changed even when incremental state
	// exists (the explicit full-rebuild escape hatch).
	ForceRebuild bool

	// StateFile is the JSON snapshot location.
	StateFile string
}

// FileLister enumerates candidate source files; the default is a scanner
// without ignore patterns. Supplied externally so ignore rules stay out of
// this package.
type FileLister interface {
	Files(root string) ([]string, error)
}

// Manager owns the build-state snapshot and the per-file change decision.
// Not safe for concurrent use: one build process owns the state file at a
// time, and all calls happen sequentially within a build.
type Manager struct {
	opts   Options
	state  *BuildState
	dirty  bool
	lister FileLister
	logger *slog.Logger
}

// NewManager loads the previous snapshot (if any) and returns a manager in
// first-run state when none exists.
func NewManager(opts Options) *Manager {
	logger := slog.Default()
	return &Manager{
		opts:   opts,
		state:  loadBuildState(opts.StateFile, logger),
		lister: scan.New(nil),
		logger: logger,
	}
}

// WithLister sets the file enumeration collaborator.
func (m *Manager) WithLister(l FileLister) *Manager {
	m.lister = l
	return m
}

// WithLogger sets a custom logger.
func (m *Manager) WithLogger(logger *slog.Logger) *Manager {
	m.logger = logger
	return m
}

// HashFile returns the hex xxhash of the file's content.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HasFileChanged reports whether path differs from the recorded fingerprint.
// Size and mtime both matching means unchanged without reading content. On a
// metadata mismatch the content hash decides, so a touch without an edit does
// not trigger regeneration. Stat or read failures report changed: the
// fail-safe direction is extra work, never skipped work.
func (m *Manager) HasFileChanged(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return true
	}

	prev, ok := m.state.Files[path]
	if !ok {
		return true
	}

	if fi.Size() == prev.Size && fi.ModTime().UnixMilli() == prev.LastModified {
		return false
	}

	hash, err := HashFile(path)
	if err != nil {
		return true
	}
	return hash != prev.Hash
}

// UpdateFileState refreshes the stored fingerprint for path, recording the
// given dependency list alongside it. A vanished file has its entry (and
// tracked outputs) removed instead. Read errors are swallowed: state update
// is best-effort and must not abort the surrounding build.
func (m *Manager) UpdateFileState(path string, dependencies []string) {
	fi, err := os.Stat(path)
	if err != nil {
		if _, tracked := m.state.Files[path]; tracked {
			delete(m.state.Files, path)
			delete(m.state.OutputFiles, path)
			m.dirty = true
		}
		return
	}

	hash, err := HashFile(path)
	if err != nil {
		m.logger.Warn("Could not fingerprint file", logfields.Path(path), logfields.Error(err))
		return
	}

	deps := slices.Clone(dependencies)
	slices.Sort(deps)

	m.state.Files[path] = FileState{
		Path:         path,
		Hash:         hash,
		LastModified: fi.ModTime().UnixMilli(),
		Size:         fi.Size(),
		Dependencies: deps,
	}
	m.dirty = true
}

// TrackOutputFiles records which output artifacts source produced.
func (m *Manager) TrackOutputFiles(source string, outputs []string) {
	m.state.OutputFiles[source] = slices.Clone(outputs)
	m.dirty = true
}

// Outputs returns the tracked output artifacts for source.
func (m *Manager) Outputs(source string) []string {
	return slices.Clone(m.state.OutputFiles[source])
}

// FilesToRegenerate expands the changed set with every tracked file whose
// recorded dependencies intersect it, iterated to a fixpoint so chains of
// dependencies propagate.
func (m *Manager) FilesToRegenerate(changed []string) sets.Set[string] {
	result := sets.New(changed...)

	for {
		grew := false
		for path, fs := range m.state.Files {
			if result.Has(path) {
				continue
			}
			for _, dep := range fs.Dependencies {
				if result.Has(dep) {
					result.Add(path)
					grew = true
					break
				}
			}
		}
		if !grew {
			break
		}
	}

	return result
}

// ChangedFiles enumerates files under root and returns those that changed
// since the last build. Disabled incremental mode or ForceRebuild returns
// every enumerated file.
func (m *Manager) ChangedFiles(root string) ([]string, error) {
	files, err := m.lister.Files(root)
	if err != nil {
		return nil, err
	}

	if !m.opts.Enabled || m.opts.ForceRebuild {
		return files, nil
	}

	changed := make([]string, 0, len(files))
	for _, f := range files {
		if m.HasFileChanged(f) {
			changed = append(changed, f)
		}
	}
	return changed, nil
}

// RemoveDeleted prunes state entries whose source files are no longer in the
// given enumeration. It returns the pruned paths mapped to their tracked
// outputs so the caller can clean up stale artifacts.
func (m *Manager) RemoveDeleted(existing []string) map[string][]string {
	present := sets.New(existing...)

	removed := make(map[string][]string)
	for path := range m.state.Files {
		if !present.Has(path) {
			removed[path] = m.state.OutputFiles[path]
		}
	}
	for path := range removed {
		delete(m.state.Files, path)
		delete(m.state.OutputFiles, path)
	}
	if len(removed) > 0 {
		m.dirty = true
	}
	return removed
}

// TrackedFiles returns the sorted paths currently in the snapshot.
func (m *Manager) TrackedFiles() []string {
	out := make([]string, 0, len(m.state.Files))
	for p := range m.state.Files {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// SaveState persists the snapshot if incremental mode is enabled and the
// in-memory state is dirty. The write is atomic (temp file + rename) so a
// crash mid-write cannot truncate the previous snapshot. Failures are logged
// and swallowed: losing the snapshot only degrades the next build to a full
// rebuild, it must not fail this one.
func (m *Manager) SaveState() {
	if !m.opts.Enabled || !m.dirty {
		return
	}

	m.state.Timestamp = time.Now().UnixMilli()

	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		m.logger.Warn("Could not serialize build state", logfields.Error(err))
		return
	}

	if dir := filepath.Dir(m.opts.StateFile); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			m.logger.Warn("Could not create state directory",
				logfields.StateFile(m.opts.StateFile), logfields.Error(err))
			return
		}
	}

	if err := atomic.WriteFile(m.opts.StateFile, bytes.NewReader(data)); err != nil {
		m.logger.Warn("Could not write build state",
			logfields.StateFile(m.opts.StateFile), logfields.Error(err))
		return
	}

	m.dirty = false
	m.logger.Debug("Build state saved",
		logfields.StateFile(m.opts.StateFile), logfields.Count(len(m.state.Files)))
}
