package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// CopyGenerator is the simplest possible Generator: it mirrors each source
// file into the output directory, preserving its relative path. The real
// parser/templating pipeline plugs in through the same interface.
type CopyGenerator struct {
	Root      string
	OutputDir string
}

// Generate copies source into the output tree.
func (g *CopyGenerator) Generate(_ context.Context, source string) (*GeneratedPage, error) {
	rel, err := filepath.Rel(g.Root, source)
	if err != nil {
		return nil, fmt.Errorf("relativize %s: %w", source, err)
	}

	dest := filepath.Join(g.OutputDir, rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	if err := os.WriteFile(dest, data, 0600); err != nil {
		return nil, fmt.Errorf("write %s: %w", dest, err)
	}

	return &GeneratedPage{
		Source:  source,
		Outputs: []string{dest},
	}, nil
}
