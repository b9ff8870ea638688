// Package build provides the canonical incremental build pipeline for
// docsite. All execution paths (CLI, watch mode, tests) route through
// Service.
package build

import (
	"context"
	"time"
)

// Service is the canonical interface for executing a build.
type Service interface {
	// Run executes one build pass: scan → detect changes → widen through the
	// dependency graph → regenerate stale files → commit state.
	Run(ctx context.Context, req Request) (*Result, error)
}

// Generator produces output artifacts for a single source file. The actual
// parsing and templating live outside this engine; the engine only decides
// when Generate must be called and memoizes its results.
type Generator interface {
	Generate(ctx context.Context, source string) (*GeneratedPage, error)
}

// GeneratedPage describes what one generation pass produced.
type GeneratedPage struct {
	// Source is the input file the page was generated from.
	Source string `json:"source"`

	// Outputs are the artifact paths written for this source.
	Outputs []string `json:"outputs"`

	// Dependencies are other source files whose changes must also regenerate
	// this page (includes, fragments, shared data files).
	Dependencies []string `json:"dependencies,omitempty"`
}

// Request contains the inputs for one build pass.
type Request struct {
	// ForceRebuild regenerates everything regardless of recorded state.
	ForceRebuild bool
}

// Result is the outcome of a build pass.
type Result struct {
	BuildID          string
	Status           Status
	FilesScanned     int
	FilesChanged     int
	FilesRegenerated int
	FilesFromCache   int
	FilesDeleted     int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
	SkipReason       string
}

// Status represents the outcome of a build pass.
type Status string

const (
	// StatusSuccess indicates the build completed successfully.
	StatusSuccess Status = "success"

	// StatusFailed indicates at least one file failed to regenerate.
	StatusFailed Status = "failed"

	// StatusSkipped indicates nothing was stale.
	StatusSkipped Status = "skipped"
)

// IsSuccess returns true when the build produced a usable site.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess || s == StatusSkipped
}
