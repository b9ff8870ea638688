package build

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"

	"git.home.luguber.info/inful/docsite/internal/cache"
	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/depgraph"
	"git.home.luguber.info/inful/docsite/internal/history"
	"git.home.luguber.info/inful/docsite/internal/incremental"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/metrics"
	"git.home.luguber.info/inful/docsite/internal/scan"
	"git.home.luguber.info/inful/docsite/internal/util/sets"
)

// DefaultService is the standard Service implementation. It composes the
// change tracker, dependency graph, artifact cache, and generator, and owns
// persisting their state between runs.
type DefaultService struct {
	cfg       *config.Config
	scanner   *scan.Scanner
	manager   *incremental.Manager
	graph     *depgraph.Graph
	pages     *cache.Cache[GeneratedPage]
	generator Generator
	journal   *history.Store
	recorder  metrics.Recorder
	logger    *slog.Logger
}

// NewService wires a build service from configuration. The generator must be
// supplied via WithGenerator before Run.
func NewService(cfg *config.Config) (*DefaultService, error) {
	scanner := scan.New(cfg.Source.Ignore)

	manager := incremental.NewManager(incremental.Options{
		Enabled:      cfg.Incremental.Enabled,
		ForceRebuild: cfg.Incremental.ForceRebuild,
		StateFile:    cfg.Incremental.StateFile,
	}).WithLister(scanner)

	pages, err := cache.New[GeneratedPage](cache.Options{
		Enabled: cfg.Cache.Enabled,
		Storage: cache.StorageType(cfg.Cache.Storage),
		MaxSize: cfg.Cache.MaxSize,
		TTL:     time.Duration(cfg.Cache.TTLMs) * time.Millisecond,
		Dir:     cfg.Cache.Dir,
	})
	if err != nil {
		return nil, fmt.Errorf("create artifact cache: %w", err)
	}

	logger := slog.Default()

	return &DefaultService{
		cfg:      cfg,
		scanner:  scanner,
		manager:  manager,
		graph:    loadGraph(cfg.Incremental.GraphFile, logger),
		pages:    pages,
		recorder: metrics.NoopRecorder{},
		logger:   logger,
	}, nil
}

// WithGenerator sets the page generator.
func (s *DefaultService) WithGenerator(g Generator) *DefaultService {
	s.generator = g
	return s
}

// WithHistory sets the optional build journal. The caller owns its lifecycle.
func (s *DefaultService) WithHistory(j *history.Store) *DefaultService {
	s.journal = j
	return s
}

// WithRecorder sets a metrics recorder.
func (s *DefaultService) WithRecorder(r metrics.Recorder) *DefaultService {
	s.recorder = r
	return s
}

// WithLogger sets a custom logger.
func (s *DefaultService) WithLogger(logger *slog.Logger) *DefaultService {
	s.logger = logger
	return s
}

// CacheStats exposes the artifact cache snapshot (status command).
func (s *DefaultService) CacheStats() cache.Stats { return s.pages.Stats() }

// ChangedFiles reports what the next build would regenerate, without
// touching any state (status command).
func (s *DefaultService) ChangedFiles() ([]string, error) {
	return s.manager.ChangedFiles(s.cfg.Source.Root)
}

// Run executes one build pass.
func (s *DefaultService) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res := &Result{
		BuildID:   uuid.NewString(),
		StartTime: start,
	}
	logger := s.logger.With(logfields.BuildID(res.BuildID))

	if s.generator == nil {
		res.Status = StatusFailed
		return res, fmt.Errorf("no generator configured")
	}

	if s.journal != nil {
		if err := s.journal.RecordStart(ctx, res.BuildID, start); err != nil {
			logger.Warn("Could not record build start", logfields.Error(err))
		}
	}

	root := s.cfg.Source.Root

	allFiles, err := s.scanner.Files(root)
	if err != nil {
		return s.finish(ctx, res, StatusFailed), fmt.Errorf("scan %s: %w", root, err)
	}
	res.FilesScanned = len(allFiles)

	changed, err := s.manager.ChangedFiles(root)
	if err != nil {
		return s.finish(ctx, res, StatusFailed), fmt.Errorf("detect changes: %w", err)
	}
	if req.ForceRebuild {
		changed = allFiles
	}
	res.FilesChanged = len(changed)
	s.recorder.ObserveScan(res.FilesScanned, res.FilesChanged)

	// Deletion bookkeeping: prune vanished sources from state and graph, and
	// remove their stale artifacts.
	for path, outputs := range s.manager.RemoveDeleted(allFiles) {
		s.graph.RemoveNode(path)
		for _, out := range outputs {
			if rmErr := os.Remove(out); rmErr != nil && !os.IsNotExist(rmErr) {
				logger.Warn("Could not remove stale output", logfields.Path(out), logfields.Error(rmErr))
			}
		}
		res.FilesDeleted++
		logger.Debug("Pruned deleted source", logfields.Path(path))
	}

	// Widen the changed set: the metadata tracker decides that something
	// changed, the graph decides what else that implies.
	now := time.Now()
	for _, p := range changed {
		s.graph.MarkChanged(p, now)
	}
	regen := s.manager.FilesToRegenerate(changed)
	regen.Union(s.graph.FilesToRegenerate())
	for p := range regen {
		if _, statErr := os.Stat(p); statErr != nil {
			regen.Delete(p)
		}
	}

	if regen.Len() == 0 {
		res.SkipReason = "no changes detected"
		logger.Info("Nothing to regenerate", logfields.Count(res.FilesScanned))
		return s.finish(ctx, res, StatusSkipped), nil
	}

	logger.Info("Regenerating stale files",
		logfields.Count(regen.Len()), logfields.Root(root))

	failures := 0
	for _, path := range sets.SortedValues(regen) {
		if ctx.Err() != nil {
			// Aborted: discard in-memory state, no partial write.
			res.Status = StatusFailed
			res.EndTime = time.Now()
			res.Duration = res.EndTime.Sub(res.StartTime)
			return res, ctx.Err()
		}

		page, fromCache, genErr := s.generate(ctx, path)
		if genErr != nil {
			logger.Error("Generation failed", logfields.Path(path), logfields.Error(genErr))
			failures++
			continue
		}
		if fromCache {
			res.FilesFromCache++
		}
		res.FilesRegenerated++
		s.commit(path, page, now)
	}
	s.recorder.IncFilesRegenerated(res.FilesRegenerated)

	status := StatusSuccess
	if failures > 0 {
		status = StatusFailed
	}
	return s.finish(ctx, res, status), nil
}

// generate produces (or reuses) the page for one source file. The cache key
// couples the path with its content hash, so a content change is a miss by
// construction and stale entries simply age out.
func (s *DefaultService) generate(ctx context.Context, path string) (*GeneratedPage, bool, error) {
	hash, err := incremental.HashFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("fingerprint %s: %w", path, err)
	}
	key := path + "@" + hash

	if page, ok := s.pages.Get(key); ok && outputsExist(&page) {
		return &page, true, nil
	}

	page, err := s.generator.Generate(ctx, path)
	if err != nil {
		return nil, false, err
	}

	s.pages.Set(key, *page)
	return page, false, nil
}

// commit records the regeneration outcome in the tracker and the graph,
// replacing the file's previous edges with the freshly reported ones.
func (s *DefaultService) commit(path string, page *GeneratedPage, now time.Time) {
	s.manager.UpdateFileState(path, page.Dependencies)
	s.manager.TrackOutputFiles(path, page.Outputs)

	s.graph.AddNode(path, now)
	s.graph.ClearDependencies(path)
	s.graph.ClearOutputs(path)
	for _, dep := range page.Dependencies {
		s.graph.AddDependency(path, dep, now, now)
	}
	for _, out := range page.Outputs {
		s.graph.AddOutput(path, out, now)
	}
}

// finish closes out the run: reset changed flags, persist graph and state,
// record metrics and history. Persistence failures degrade the next run to a
// full rebuild but never fail this one.
func (s *DefaultService) finish(ctx context.Context, res *Result, status Status) *Result {
	res.Status = status
	res.EndTime = time.Now()
	res.Duration = res.EndTime.Sub(res.StartTime)

	s.graph.ResetChangedState()
	if s.cfg.Incremental.Enabled {
		saveGraph(s.cfg.Incremental.GraphFile, s.graph, s.logger)
	}
	s.manager.SaveState()

	s.recorder.ObserveBuildDuration(res.Duration)
	s.recorder.IncBuildOutcome(string(status))

	if s.journal != nil {
		if err := s.journal.RecordFinish(ctx, res.BuildID, string(status),
			res.FilesScanned, res.FilesChanged, res.FilesRegenerated, res.Duration); err != nil {
			s.logger.Warn("Could not record build finish", logfields.Error(err))
		}
	}

	s.logger.Info("Build finished",
		logfields.BuildID(res.BuildID),
		logfields.BuildStatus(string(status)),
		logfields.Count(res.FilesRegenerated),
		logfields.DurationMS(float64(res.Duration.Milliseconds())))
	return res
}

func outputsExist(page *GeneratedPage) bool {
	for _, out := range page.Outputs {
		if _, err := os.Stat(out); err != nil {
			return false
		}
	}
	return true
}

// loadGraph reads the persisted dependency graph. Absence or corruption
// yields an empty graph; the next build simply rediscovers the edges.
func loadGraph(path string, logger *slog.Logger) *depgraph.Graph {
	if path == "" {
		return depgraph.New()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return depgraph.New()
	}
	g, err := depgraph.FromJSON(data)
	if err != nil {
		logger.Warn("Corrupt dependency graph, starting fresh",
			logfields.Path(path), logfields.Error(err))
		return depgraph.New()
	}
	return g
}

func saveGraph(path string, g *depgraph.Graph, logger *slog.Logger) {
	if path == "" {
		return
	}
	data, err := g.ToJSON()
	if err != nil {
		logger.Warn("Could not serialize dependency graph", logfields.Error(err))
		return
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			logger.Warn("Could not create graph directory",
				logfields.Path(path), logfields.Error(err))
			return
		}
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		logger.Warn("Could not write dependency graph",
			logfields.Path(path), logfields.Error(err))
	}
}
