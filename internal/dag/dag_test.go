// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"testing"
)

func TestTopologicalSort_EmptyGraph(t *testing.T) {
	t.Parallel()
	g := New()
	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != nil {
		t.Errorf("expected nil, got %v", order)
	}
}

func TestTopologicalSort_SingleNode(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddNode("base")
	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(order, []string{"base"}) {
		t.Errorf("expected [base], got %v", order)
	}
}

func TestTopologicalSort_LinearChain(t *testing.T) {
	t.Parallel()
	g := New()
	// base -> maps -> audio
	g.AddEdge("base", "maps")
	g.AddEdge("maps", "audio")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"base", "maps", "audio"}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestTopologicalSort_Diamond(t *testing.T) {
	t.Parallel()
	g := New()
	// base fans out to maps and audio, both feed levels
	g.AddEdge("base", "maps")
	g.AddEdge("base", "audio")
	g.AddEdge("maps", "levels")
	g.AddEdge("audio", "levels")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// base must be first, levels must be last
	if order[0] != "base" {
		t.Errorf("expected base first, got %v", order)
	}
	if order[len(order)-1] != "levels" {
		t.Errorf("expected levels last, got %v", order)
	}
	if len(order) != 4 {
		t.Errorf("expected 4 nodes, got %d: %v", len(order), order)
	}
}

func TestTopologicalSort_SimpleCycle(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("base", "maps")
	g.AddEdge("maps", "base")

	_, err := g.TopologicalSort()
	if err == nil {
		t.Fatal("expected cycle error, got nil")
	}
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T: %v", err, err)
	}
	if len(cycleErr.Cycle) < 2 {
		t.Errorf("expected at least 2 nodes in cycle, got %v", cycleErr.Cycle)
	}
}

func TestTopologicalSort_SelfLoop(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("base", "base")

	_, err := g.TopologicalSort()
	if err == nil {
		t.Fatal("expected cycle error, got nil")
	}
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T: %v", err, err)
	}
}

func TestTopologicalSort_ComplexCycle(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("base", "maps")
	g.AddEdge("maps", "audio")
	g.AddEdge("audio", "base")

	_, err := g.TopologicalSort()
	if err == nil {
		t.Fatal("expected cycle error, got nil")
	}
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T: %v", err, err)
	}
	if len(cycleErr.Cycle) < 3 {
		t.Errorf("expected at least 3 nodes in cycle, got %v", cycleErr.Cycle)
	}
}

func TestTopologicalSort_DisconnectedComponents(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("base", "maps")
	g.AddNode("audio")
	g.AddNode("levels")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 4 {
		t.Errorf("expected 4 nodes, got %d: %v", len(order), order)
	}
	// base must come before maps
	baseIdx := slices.Index(order, "base")
	mapsIdx := slices.Index(order, "maps")
	if baseIdx >= mapsIdx {
		t.Errorf("base (idx %d) must come before maps (idx %d) in %v", baseIdx, mapsIdx, order)
	}
}

func TestTopologicalSort_DuplicateEdges(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("base", "maps")
	g.AddEdge("base", "maps") // duplicate

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Duplicate edges raise the in-degree twice and are released twice.
	if !slices.Equal(order, []string{"base", "maps"}) {
		t.Errorf("expected [base, maps], got %v", order)
	}
}

func TestCycleError_Message(t *testing.T) {
	t.Parallel()
	err := &CycleError{Cycle: []string{"base", "maps", "audio"}}
	expected := "dependency cycle detected: base -> maps -> audio"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}

func TestCycleError_Is(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("base", "maps")
	g.AddEdge("maps", "base")
	_, err := g.TopologicalSort()
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("errors.Is(err, ErrCycle) = false for %v", err)
	}
}

func TestOrder(t *testing.T) {
	t.Parallel()

	deps := map[string][]string{
		"levels": {"maps", "audio"},
		"maps":   {"base"},
		"audio":  {"base"},
	}
	order, err := Order([]string{"levels", "audio", "base", "maps"}, func(n string) []string { return deps[n] })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"base", "audio", "maps", "levels"}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestOrder_UnknownDependency(t *testing.T) {
	t.Parallel()

	_, err := Order([]string{"base", "maps"}, func(n string) []string {
		if n == "maps" {
			return []string{"terrain"}
		}
		return nil
	})
	var ude *UnknownDependencyError
	if !errors.As(err, &ude) {
		t.Fatalf("expected UnknownDependencyError, got %v", err)
	}
	if ude.Node != "maps" || ude.Dependency != "terrain" {
		t.Errorf("unexpected error fields: %+v", ude)
	}
	if !errors.Is(err, ErrUnknownDependency) {
		t.Error("errors.Is(err, ErrUnknownDependency) = false")
	}
}
