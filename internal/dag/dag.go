// SPDX-License-Identifier: MPL-2.0

// Package dag orders bundle modules by their depends_on declarations so each
// module is linked after the modules whose resources it includes.
package dag

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCycle is the sentinel error wrapped by CycleError.
	ErrCycle = errors.New("dependency cycle")
	// ErrUnknownDependency is returned when a node depends on one never declared.
	ErrUnknownDependency = errors.New("unknown dependency")
)

type (
	// CycleError indicates that the graph contains a cycle, preventing topological ordering.
	CycleError struct {
		// Cycle lists the nodes left with unresolved dependencies, which
		// includes every node on a cycle.
		Cycle []string
	}

	// UnknownDependencyError names a dependency that is not a node of the graph.
	UnknownDependencyError struct {
		Node       string
		Dependency string
	}

	// Graph is a directed graph for topological sorting.
	// An edge from A to B means A must be built before B.
	Graph struct {
		// adjacency maps each node to the nodes that depend on it.
		adjacency map[string][]string
		// nodes keeps insertion order for deterministic output.
		nodes   []string
		nodeSet map[string]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// Unwrap returns ErrCycle so callers can use errors.Is for classification.
func (e *CycleError) Unwrap() error { return ErrCycle }

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("%q depends on undeclared %q", e.Node, e.Dependency)
}

// Unwrap returns ErrUnknownDependency so callers can use errors.Is for classification.
func (e *UnknownDependencyError) Unwrap() error { return ErrUnknownDependency }

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		nodeSet:   make(map[string]bool),
	}
}

// Order returns nodes sorted so every node follows its dependencies. Nodes
// with no ordering constraint keep their order in nodes.
func Order(nodes []string, dependsOn func(node string) []string) ([]string, error) {
	g := New()
	for _, n := range nodes {
		g.AddNode(n)
	}
	for _, n := range nodes {
		for _, dep := range dependsOn(n) {
			if !g.HasNode(dep) {
				return nil, &UnknownDependencyError{Node: n, Dependency: dep}
			}
			g.AddEdge(dep, n)
		}
	}
	return g.TopologicalSort()
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// HasNode reports whether name was added.
func (g *Graph) HasNode(name string) bool {
	return g.nodeSet[name]
}

// AddEdge adds a directed edge from -> to, meaning "from" is built before "to".
// Both nodes are implicitly added if they don't exist.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.adjacency[from] = append(g.adjacency[from], to)
}

// TopologicalSort returns a valid build order using Kahn's algorithm.
// Returns CycleError if the graph contains a cycle.
// Nodes at the same level appear in the order they were first added.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node] = 0
	}
	for _, neighbors := range g.adjacency {
		for _, neighbor := range neighbors {
			inDegree[neighbor]++
		}
	}

	queue := make([]string, 0, len(g.nodes))
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range g.adjacency[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
	}

	if len(result) != len(g.nodes) {
		var cycleNodes []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				cycleNodes = append(cycleNodes, node)
			}
		}
		return nil, &CycleError{Cycle: cycleNodes}
	}

	return result, nil
}
