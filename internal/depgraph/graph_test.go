package depgraph

import (
	"testing"
	"time"

	"git.home.luguber.info/inful/docsite/internal/util/sets"
)

func TestAddNodeUpdatesExisting(t *testing.T) {
	g := New()
	t0 := time.UnixMilli(1000)
	t1 := time.UnixMilli(2000)

	n := g.AddNode("a.md", t0)
	n.Dependencies.Add("b.md")

	// Re-adding must update the timestamp but leave edges untouched.
	again := g.AddNode("a.md", t1)
	if again != n {
		t.Error("AddNode created a new node for an existing path")
	}
	if !again.LastModified.Equal(t1) {
		t.Errorf("LastModified = %v, want %v", again.LastModified, t1)
	}
	if !again.Dependencies.Has("b.md") {
		t.Error("existing edges lost on AddNode")
	}
	if g.Size() != 1 {
		t.Errorf("Size() = %d, want 1", g.Size())
	}
}

func TestEdgeSymmetry(t *testing.T) {
	g := New()
	now := time.Now()

	g.AddDependency("page.md", "snippet.md", now, now)

	page, _ := g.Node("page.md")
	snippet, _ := g.Node("snippet.md")
	if !page.Dependencies.Has("snippet.md") {
		t.Error("snippet.md not in page.md dependencies")
	}
	if !snippet.Dependents.Has("page.md") {
		t.Error("page.md not in snippet.md dependents")
	}
}

func TestRemoveNodeUnlinksNeighbors(t *testing.T) {
	g := New()
	now := time.Now()

	g.AddDependency("a.md", "b.md", now, now)
	g.AddDependency("c.md", "a.md", now, now)

	g.RemoveNode("a.md")

	if _, ok := g.Node("a.md"); ok {
		t.Fatal("a.md still present after RemoveNode")
	}
	b, _ := g.Node("b.md")
	if b.Dependents.Has("a.md") {
		t.Error("a.md still referenced in b.md dependents")
	}
	c, _ := g.Node("c.md")
	if c.Dependencies.Has("a.md") {
		t.Error("a.md still referenced in c.md dependencies")
	}
}

func TestTransitiveClosure(t *testing.T) {
	g := New()
	now := time.Now()

	// A depends on B depends on C.
	g.AddDependency("a.md", "b.md", now, now)
	g.AddDependency("b.md", "c.md", now, now)
	// Unrelated node with its own dependency.
	g.AddDependency("d.md", "e.md", now, now)

	g.MarkChanged("c.md", now)

	got := g.FilesToRegenerate()
	want := sets.New("a.md", "b.md", "c.md")
	if got.Len() != want.Len() {
		t.Fatalf("FilesToRegenerate() = %v, want %v", sets.SortedValues(got), sets.SortedValues(want))
	}
	for p := range want {
		if !got.Has(p) {
			t.Errorf("missing %s in regeneration set", p)
		}
	}
	if got.Has("d.md") || got.Has("e.md") {
		t.Error("unrelated nodes included in regeneration set")
	}
}

func TestUnrelatedChangeExcludesChain(t *testing.T) {
	g := New()
	now := time.Now()

	g.AddDependency("a.md", "b.md", now, now)
	g.AddDependency("b.md", "c.md", now, now)
	g.AddNode("d.md", now)

	g.MarkChanged("d.md", now)

	got := g.FilesToRegenerate()
	if got.Len() != 1 || !got.Has("d.md") {
		t.Errorf("FilesToRegenerate() = %v, want {d.md}", sets.SortedValues(got))
	}
}

func TestFilesToRegenerateIdempotent(t *testing.T) {
	g := New()
	now := time.Now()

	g.AddDependency("a.md", "b.md", now, now)
	g.MarkChanged("b.md", now)

	first := sets.SortedValues(g.FilesToRegenerate())
	second := sets.SortedValues(g.FilesToRegenerate())
	if len(first) != len(second) {
		t.Fatalf("non-idempotent: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("non-idempotent: %v vs %v", first, second)
		}
	}
}

func TestDiamondDependency(t *testing.T) {
	g := New()
	now := time.Now()

	// a and b both depend on shared; top depends on a and b.
	g.AddDependency("a.md", "shared.md", now, now)
	g.AddDependency("b.md", "shared.md", now, now)
	g.AddDependency("top.md", "a.md", now, now)
	g.AddDependency("top.md", "b.md", now, now)

	g.MarkChanged("shared.md", now)

	got := g.FilesToRegenerate()
	if got.Len() != 4 {
		t.Errorf("FilesToRegenerate() = %v, want 4 nodes", sets.SortedValues(got))
	}
}

func TestOutputsToRegenerate(t *testing.T) {
	g := New()
	now := time.Now()

	g.AddOutput("a.md", "site/a.html", now)
	g.AddOutput("b.md", "site/b.html", now)
	g.AddDependency("a.md", "b.md", now, now)

	g.MarkChanged("b.md", now)

	got := g.OutputsToRegenerate()
	if !got.Has("site/a.html") || !got.Has("site/b.html") {
		t.Errorf("OutputsToRegenerate() = %v, want both outputs", sets.SortedValues(got))
	}
}

func TestResetChangedState(t *testing.T) {
	g := New()
	now := time.Now()

	g.MarkChanged("a.md", now)
	g.MarkChanged("b.md", now)

	g.ResetChangedState()

	if got := g.FilesToRegenerate(); got.Len() != 0 {
		t.Errorf("FilesToRegenerate() = %v after reset, want empty", sets.SortedValues(got))
	}
}

func TestClear(t *testing.T) {
	g := New()
	g.AddNode("a.md", time.Now())
	g.Clear()
	if g.Size() != 0 {
		t.Errorf("Size() = %d after Clear, want 0", g.Size())
	}
}

func TestClearDependencies(t *testing.T) {
	g := New()
	now := time.Now()

	g.AddDependency("a.md", "b.md", now, now)
	g.AddDependency("c.md", "a.md", now, now)

	g.ClearDependencies("a.md")

	a, _ := g.Node("a.md")
	if a.Dependencies.Len() != 0 {
		t.Error("dependencies not cleared")
	}
	b, _ := g.Node("b.md")
	if b.Dependents.Has("a.md") {
		t.Error("reverse edge not removed")
	}
	// Incoming dependents stay intact.
	if !a.Dependents.Has("c.md") {
		t.Error("incoming dependents lost")
	}
}

func TestClearOutputs(t *testing.T) {
	g := New()
	now := time.Now()

	g.AddOutput("a.md", "site/a.html", now)
	g.ClearOutputs("a.md")

	a, _ := g.Node("a.md")
	if a.Outputs.Len() != 0 {
		t.Error("outputs not cleared")
	}
}

func TestSelfCycleTerminates(t *testing.T) {
	g := New()
	now := time.Now()

	// Mutual dependency must not hang the BFS.
	g.AddDependency("a.md", "b.md", now, now)
	g.AddDependency("b.md", "a.md", now, now)

	g.MarkChanged("a.md", now)

	got := g.FilesToRegenerate()
	if got.Len() != 2 {
		t.Errorf("FilesToRegenerate() = %v, want {a.md, b.md}", sets.SortedValues(got))
	}
}
