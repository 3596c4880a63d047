package domain

import (
	"iter"
	"slices"

	"go.trai.ch/zerr"
)

// Graph is the dependency graph of nodes.
type Graph struct {
	root           string
	nodes          map[InternedString]*Node
	dependents     map[InternedString][]InternedString
	executionOrder []InternedString
}

// NewGraph creates an empty graph rooted at the repository root.
func NewGraph(root string) *Graph {
	return &Graph{
		root:       root,
		nodes:      make(map[InternedString]*Node),
		dependents: make(map[InternedString][]InternedString),
	}
}

// Root returns the repository root directory.
func (g *Graph) Root() string {
	return g.root
}

// AddNode adds a node. It returns an error if a node with the same ID already exists.
func (g *Graph) AddNode(n *Node) error {
	if _, exists := g.nodes[n.ID]; exists {
		return zerr.With(ErrNodeAlreadyExists, "node", n.ID.String())
	}
	g.nodes[n.ID] = n
	for _, dep := range n.Dependencies {
		g.dependents[dep] = append(g.dependents[dep], n.ID)
	}
	return nil
}

// Node returns the node with the given ID.
func (g *Graph) Node(id InternedString) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// Dependents returns the IDs of nodes that depend directly on id.
func (g *Graph) Dependents(id InternedString) []InternedString {
	return g.dependents[id]
}

// Validate checks for missing dependencies and cycles, and fixes the execution order.
// Nodes are visited in sorted ID order so the order is deterministic.
func (g *Graph) Validate() error {
	g.executionOrder = make([]InternedString, 0, len(g.nodes))
	visited := make(map[InternedString]int) // 0: unvisited, 1: visiting, 2: visited
	var path []InternedString

	var visit func(u InternedString) error
	visit = func(u InternedString) error {
		visited[u] = 1
		path = append(path, u)

		node, exists := g.nodes[u]
		if !exists {
			return zerr.With(ErrMissingDependency, "dependency", u.String())
		}

		for _, dep := range node.Dependencies {
			if visited[dep] == 1 {
				return g.buildCycleError(path, dep)
			}
			if visited[dep] == 0 {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		g.executionOrder = append(g.executionOrder, u)
		return nil
	}

	ids := make([]InternedString, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b InternedString) int { return ComparePathsFold(a.String(), b.String()) })

	for _, id := range ids {
		if visited[id] == 0 {
			if err := visit(id); err != nil {
				return err
			}
		}
	}

	return nil
}

func (g *Graph) buildCycleError(path []InternedString, dep InternedString) error {
	cyclePath := ""
	startIdx := -1
	for i, node := range path {
		if node == dep {
			startIdx = i
			break
		}
	}
	for i := startIdx; i < len(path); i++ {
		cyclePath += path[i].String() + " -> "
	}
	cyclePath += dep.String()
	return zerr.With(ErrCycleDetected, "cycle", cyclePath)
}

// Walk yields nodes in execution order. Validate must have succeeded first.
func (g *Graph) Walk() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for _, id := range g.executionOrder {
			if !yield(g.nodes[id]) {
				return
			}
		}
	}
}
