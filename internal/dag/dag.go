package dag

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrCycle is returned when the graph cannot be ordered because a set of
// nodes depend on each other.
var ErrCycle = errors.New("dependency cycle detected")

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	if _, ok := g.nodes[id]; ok {
		return
	}

	g.nodes[id] = &node{
		id:         id,
		index:      len(g.order),
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
	g.order = append(g.order, id)
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node.
// This signifies that `toID` has a dependency on `fromID`. An error is returned
// if either node does not exist. A self edge is recorded like any other and is
// reported as a cycle by TopologicalSort.
func (g *Graph) AddEdge(fromID, toID string) error {
	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}

	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	toNode.deps[fromID] = fromNode
	fromNode.dependents[toID] = toNode

	return nil
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.order)
}

// Dependencies returns the IDs of the nodes the given node depends on, in
// insertion order.
func (g *Graph) Dependencies(id string) ([]string, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return ordered(n.deps), nil
}

// Dependents returns the IDs of the nodes that depend on the given node, in
// insertion order.
func (g *Graph) Dependents(id string) ([]string, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return ordered(n.dependents), nil
}

// TopologicalSort returns every node ID ordered so that each node comes after
// all of its dependencies. Unconstrained nodes keep their insertion order.
// If the graph contains a cycle, an error wrapping ErrCycle names the path.
func (g *Graph) TopologicalSort() ([]string, error) {
	// Classic depth-first search with three sets of nodes:
	// permanent: nodes that have been fully visited and are not part of a cycle.
	// onStack: nodes currently in the recursion stack for the current traversal.
	// unvisited: all other nodes.
	permanent := make(map[string]bool, len(g.order))
	onStack := make(map[string]bool)
	var stack []string
	sorted := make([]string, 0, len(g.order))

	var visit func(n *node) error
	visit = func(n *node) error {
		if permanent[n.id] {
			return nil
		}
		if onStack[n.id] {
			return fmt.Errorf("%w: %s", ErrCycle, cyclePath(stack, n.id))
		}

		onStack[n.id] = true
		stack = append(stack, n.id)

		for _, depID := range ordered(n.deps) {
			if err := visit(g.nodes[depID]); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		delete(onStack, n.id)
		permanent[n.id] = true
		sorted = append(sorted, n.id)

		return nil
	}

	for _, id := range g.order {
		if err := visit(g.nodes[id]); err != nil {
			return nil, err
		}
	}

	return sorted, nil
}

// cyclePath renders the part of the DFS stack that closes back on id, in
// dependency order, e.g. "a -> b -> a".
func cyclePath(stack []string, id string) string {
	start := 0
	for i, s := range stack {
		if s == id {
			start = i
			break
		}
	}
	loop := append([]string{}, stack[start:]...)
	// The stack runs from consumer to dependency; reverse it so the path
	// reads producer first.
	for i, j := 0, len(loop)-1; i < j; i, j = i+1, j-1 {
		loop[i], loop[j] = loop[j], loop[i]
	}
	loop = append(loop, loop[0])
	return strings.Join(loop, " -> ")
}

func ordered(set map[string]*node) []string {
	nodes := make([]*node, 0, len(set))
	for _, n := range set {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].index < nodes[j].index })

	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.id
	}
	return ids
}
