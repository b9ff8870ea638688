// Package depgraph tracks depends-on relationships among source files and
// computes the transitive closure of staleness: when a file changes, every
// file that transitively depends on it must be regenerated.
package depgraph

import (
	"time"

	"git.home.luguber.info/inful/docsite/internal/util/sets"
)

// Node is one tracked source file and its edges. Invariant maintained by
// AddDependency and RemoveNode: B ∈ A.Dependencies ⇔ A ∈ B.Dependents.
type Node struct {
	Path         string
	LastModified time.Time
	Changed      bool
	Dependencies sets.Set[string]
	Dependents   sets.Set[string]
	Outputs      sets.Set[string]
}

func newNode(path string, lastModified time.Time) *Node {
	return &Node{
		Path:         path,
		LastModified: lastModified,
		Dependencies: sets.New[string](),
		Dependents:   sets.New[string](),
		Outputs:      sets.New[string](),
	}
}

// Graph is an in-memory, serializable dependency graph. It is not safe for
// concurrent use; the build process owns it for the duration of a run.
type Graph struct {
	nodes map[string]*Node
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// AddNode inserts a node for path, or updates LastModified on an existing one
// leaving its edges untouched. Returns the (possibly pre-existing) node.
func (g *Graph) AddNode(path string, lastModified time.Time) *Node {
	if n, ok := g.nodes[path]; ok {
		n.LastModified = lastModified
		return n
	}
	n := newNode(path, lastModified)
	g.nodes[path] = n
	return n
}

// Node returns the node for path, if present.
func (g *Graph) Node(path string) (*Node, bool) {
	n, ok := g.nodes[path]
	return n, ok
}

// AddDependency records that dependent depends on dependency, creating either
// node if absent. This is the single mutation point for dependency edges and
// keeps the two edge sets bidirectionally consistent.
func (g *Graph) AddDependency(dependent, dependency string, dependentMtime, dependencyMtime time.Time) {
	dn := g.ensureNode(dependent, dependentMtime)
	cn := g.ensureNode(dependency, dependencyMtime)
	dn.Dependencies.Add(dependency)
	cn.Dependents.Add(dependent)
}

// AddOutput records that source produced the output artifact at outputPath.
func (g *Graph) AddOutput(source, outputPath string, mtime time.Time) {
	n := g.ensureNode(source, mtime)
	n.Outputs.Add(outputPath)
}

// MarkChanged flags path as changed and updates its modification time.
func (g *Graph) MarkChanged(path string, mtime time.Time) {
	n := g.ensureNode(path, mtime)
	n.Changed = true
	n.LastModified = mtime
}

// RemoveNode deletes path and unlinks it from every neighbor's edge sets.
func (g *Graph) RemoveNode(path string) {
	n, ok := g.nodes[path]
	if !ok {
		return
	}
	for dep := range n.Dependencies {
		if other, ok := g.nodes[dep]; ok {
			other.Dependents.Delete(path)
		}
	}
	for dep := range n.Dependents {
		if other, ok := g.nodes[dep]; ok {
			other.Dependencies.Delete(path)
		}
	}
	delete(g.nodes, path)
}

// ClearDependencies removes every outgoing dependency edge of path, keeping
// incoming dependents intact. Used when a file is regenerated and its
// dependency list is recomputed from scratch.
func (g *Graph) ClearDependencies(path string) {
	n, ok := g.nodes[path]
	if !ok {
		return
	}
	for dep := range n.Dependencies {
		if other, ok := g.nodes[dep]; ok {
			other.Dependents.Delete(path)
		}
	}
	n.Dependencies = sets.New[string]()
}

// ClearOutputs forgets the recorded outputs of path.
func (g *Graph) ClearOutputs(path string) {
	if n, ok := g.nodes[path]; ok {
		n.Outputs = sets.New[string]()
	}
}

// FilesToRegenerate returns, for every changed node, the node itself plus
// everything that transitively depends on it (breadth-first over Dependents),
// unioned across all changed nodes.
func (g *Graph) FilesToRegenerate() sets.Set[string] {
	result := sets.New[string]()

	for path, n := range g.nodes {
		if !n.Changed {
			continue
		}
		if result.Has(path) {
			continue
		}

		queue := []string{path}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			if result.Has(current) {
				continue
			}
			result.Add(current)

			if cn, ok := g.nodes[current]; ok {
				for dependent := range cn.Dependents {
					if !result.Has(dependent) {
						queue = append(queue, dependent)
					}
				}
			}
		}
	}

	return result
}

// OutputsToRegenerate returns the union of Outputs over every node in
// FilesToRegenerate.
func (g *Graph) OutputsToRegenerate() sets.Set[string] {
	result := sets.New[string]()
	for path := range g.FilesToRegenerate() {
		if n, ok := g.nodes[path]; ok {
			result.Union(n.Outputs)
		}
	}
	return result
}

// ResetChangedState clears the changed flag on every node, establishing the
// new clean baseline after a successful build.
func (g *Graph) ResetChangedState() {
	for _, n := range g.nodes {
		n.Changed = false
	}
}

// Nodes returns all nodes keyed by path. Callers must not mutate edge sets
// directly; use the Add*/Remove* operations.
func (g *Graph) Nodes() map[string]*Node { return g.nodes }

// Size returns the number of tracked nodes.
func (g *Graph) Size() int { return len(g.nodes) }

// Clear removes every node.
func (g *Graph) Clear() { g.nodes = make(map[string]*Node) }

func (g *Graph) ensureNode(path string, mtime time.Time) *Node {
	if n, ok := g.nodes[path]; ok {
		return n
	}
	n := newNode(path, mtime)
	g.nodes[path] = n
	return n
}
