package main

import (
	"fmt"
	"os"
)

const starterConfig = `# docsite configuration
source:
  root: ./docs
  ignore:
    - "drafts/**"

output:
  dir: ./site

incremental:
  enabled: true
  state_file: .docsite/state.json
  graph_file: .docsite/graph.json

cache:
  enabled: true
  storage: memory
  max_size: 1000
  ttl_ms: 0

history:
  enabled: false
  path: .docsite/history.db
`

func runInit(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := os.WriteFile(path, []byte(starterConfig), 0600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	fmt.Printf("wrote %s\n", path)
	return nil
}
