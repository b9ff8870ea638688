package incremental

import (
	"encoding/json"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/docsite/internal/logfields"
)

// FileState is the persisted fingerprint of one source file at the last
// successful build. LastModified is epoch milliseconds.
type FileState struct {
	Path         string   `json:"path"`
	Hash         string   `json:"hash"`
	LastModified int64    `json:"lastModified"`
	Size         int64    `json:"size"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// BuildState is the durable snapshot of the previous successful build. It is
// loaded once per process, mutated in memory during a run, and written back
// by SaveState only when dirty.
type BuildState struct {
	Timestamp   int64                `json:"timestamp"`
	Files       map[string]FileState `json:"files"`
	OutputFiles map[string][]string  `json:"outputFiles"`
}

func newBuildState() *BuildState {
	return &BuildState{
		Files:       make(map[string]FileState),
		OutputFiles: make(map[string][]string),
	}
}

// loadBuildState reads the snapshot from path. A missing or unparseable file
// yields an empty state (first-run semantics), never an error: a lost
// snapshot only costs one full rebuild.
func loadBuildState(path string, logger *slog.Logger) *BuildState {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Could not read build state, starting fresh",
				logfields.StateFile(path), logfields.Error(err))
		}
		return newBuildState()
	}

	var state BuildState
	if err := json.Unmarshal(data, &state); err != nil {
		logger.Warn("Corrupt build state, starting fresh",
			logfields.StateFile(path), logfields.Error(err))
		return newBuildState()
	}

	if state.Files == nil {
		state.Files = make(map[string]FileState)
	}
	if state.OutputFiles == nil {
		state.OutputFiles = make(map[string][]string)
	}
	return &state
}
