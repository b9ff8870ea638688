package depgraph

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"git.home.luguber.info/inful/docsite/internal/util/sets"
)

// nodeJSON is the wire form of a Node. Edge sets serialize as sorted slices
// for deterministic output; timestamps as epoch milliseconds.
type nodeJSON struct {
	Path         string   `json:"path"`
	LastModified int64    `json:"lastModified"`
	Changed      bool     `json:"changed,omitempty"`
	Dependencies []string `json:"dependencies"`
	Dependents   []string `json:"dependents"`
	Outputs      []string `json:"outputs"`
}

type graphJSON struct {
	Nodes []nodeJSON `json:"nodes"`
}

// ToJSON serializes the full graph structure, including all three edge sets,
// so a later FromJSON reconstructs it without replaying AddDependency calls.
func (g *Graph) ToJSON() ([]byte, error) {
	out := graphJSON{Nodes: make([]nodeJSON, 0, len(g.nodes))}
	paths := g.paths()
	slices.Sort(paths)
	for _, path := range paths {
		n := g.nodes[path]
		out.Nodes = append(out.Nodes, nodeJSON{
			Path:         n.Path,
			LastModified: n.LastModified.UnixMilli(),
			Changed:      n.Changed,
			Dependencies: sets.SortedValues(n.Dependencies),
			Dependents:   sets.SortedValues(n.Dependents),
			Outputs:      sets.SortedValues(n.Outputs),
		})
	}
	return json.MarshalIndent(out, "", "  ")
}

// FromJSON reconstructs a graph from ToJSON output. Edge sets are loaded
// structurally; cross-references are taken as stored.
func FromJSON(data []byte) (*Graph, error) {
	var in graphJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("unmarshal dependency graph: %w", err)
	}

	g := New()
	for _, jn := range in.Nodes {
		n := newNode(jn.Path, time.UnixMilli(jn.LastModified))
		n.Changed = jn.Changed
		for _, d := range jn.Dependencies {
			n.Dependencies.Add(d)
		}
		for _, d := range jn.Dependents {
			n.Dependents.Add(d)
		}
		for _, o := range jn.Outputs {
			n.Outputs.Add(o)
		}
		g.nodes[jn.Path] = n
	}
	return g, nil
}

func (g *Graph) paths() []string {
	out := make([]string, 0, len(g.nodes))
	for p := range g.nodes {
		out = append(out, p)
	}
	return out
}
