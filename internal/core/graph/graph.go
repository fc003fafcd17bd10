// Package graph provides the core flow graph domain entities
// following Clean Architecture principles with zero external dependencies.
package graph

import "slices"

// Graph is the directed conversation graph: nodes and edges indexed by id.
// Insertion order is kept alongside the indexes so listings are stable.
// Cycles are allowed.
// PRINCIPLES:
// - KISS: maps plus order slices, no pointer graph
// - SRP: Only responsible for graph structure and referential integrity
type Graph struct {
	nodes     map[string]*Node
	edges     map[string]*Edge
	nodeOrder []string
	edgeOrder []string
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		edges: make(map[string]*Edge),
	}
}

// FromLists builds a graph from ordered node and edge lists, enforcing the
// same invariants as AddNode and AddEdge. The lists are copied.
func FromLists(nodes []Node, edges []Edge) (*Graph, error) {
	g := New()
	for i := range nodes {
		if err := g.AddNode(nodes[i].Clone()); err != nil {
			return nil, err
		}
	}
	for i := range edges {
		if err := g.AddEdge(edges[i].Clone()); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// AddNode adds a node to the graph. The graph takes ownership of node.
// PRINCIPLES:
// - KISS: Direct and simple implementation
// - No nesting beyond 2 levels
func (g *Graph) AddNode(node *Node) error {
	if node == nil {
		return ErrNilNode
	}
	if err := node.Validate(); err != nil {
		return err
	}
	// Prevent duplicate node IDs
	if _, exists := g.nodes[node.ID]; exists {
		return ErrDuplicateNode
	}
	g.nodes[node.ID] = node
	g.nodeOrder = append(g.nodeOrder, node.ID)
	return nil
}

// AddEdge adds an edge to the graph. Both endpoints must already be present.
func (g *Graph) AddEdge(edge *Edge) error {
	if edge == nil {
		return ErrNilEdge
	}
	if err := edge.Validate(); err != nil {
		return err
	}
	if _, exists := g.edges[edge.ID]; exists {
		return ErrDuplicateEdge
	}
	// Verify source and target nodes exist
	if _, exists := g.nodes[edge.Source]; !exists {
		return ErrSourceNodeNotFound
	}
	if _, exists := g.nodes[edge.Target]; !exists {
		return ErrTargetNodeNotFound
	}
	g.edges[edge.ID] = edge
	g.edgeOrder = append(g.edgeOrder, edge.ID)
	return nil
}

// Node returns the stored node. Callers inside the store may mutate it;
// anything handed out of the store must be cloned first.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Edge returns the stored edge.
func (g *Graph) Edge(id string) (*Edge, bool) {
	e, ok := g.edges[id]
	return e, ok
}

// HasNode reports whether id is a node of the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// RemoveNode deletes a node and every edge that starts or ends at it.
// It returns the ids of the removed edges.
func (g *Graph) RemoveNode(id string) ([]string, error) {
	if _, ok := g.nodes[id]; !ok {
		return nil, ErrNodeNotFound
	}
	var removed []string
	kept := g.edgeOrder[:0]
	for _, eid := range g.edgeOrder {
		if g.edges[eid].Touches(id) {
			removed = append(removed, eid)
			delete(g.edges, eid)
			continue
		}
		kept = append(kept, eid)
	}
	g.edgeOrder = kept
	delete(g.nodes, id)
	g.nodeOrder = slices.DeleteFunc(g.nodeOrder, func(n string) bool { return n == id })
	return removed, nil
}

// RemoveEdge deletes a single edge.
func (g *Graph) RemoveEdge(id string) error {
	if _, ok := g.edges[id]; !ok {
		return ErrEdgeNotFound
	}
	delete(g.edges, id)
	g.edgeOrder = slices.DeleteFunc(g.edgeOrder, func(e string) bool { return e == id })
	return nil
}

// NodeList returns deep copies of all nodes in insertion order.
func (g *Graph) NodeList() []Node {
	out := make([]Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, *g.nodes[id].Clone())
	}
	return out
}

// EdgeList returns copies of all edges in insertion order.
func (g *Graph) EdgeList() []Edge {
	out := make([]Edge, 0, len(g.edgeOrder))
	for _, id := range g.edgeOrder {
		out = append(out, *g.edges[id])
	}
	return out
}

// EdgesOf returns copies of the edges incident to nodeID.
func (g *Graph) EdgesOf(nodeID string) []Edge {
	var out []Edge
	for _, id := range g.edgeOrder {
		if e := g.edges[id]; e.Touches(nodeID) {
			out = append(out, *e)
		}
	}
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// BranchCount returns the number of conditional nodes.
func (g *Graph) BranchCount() int {
	n := 0
	for _, node := range g.nodes {
		if node.IsConditional() {
			n++
		}
	}
	return n
}

// SelfLoopCount returns the number of edges that start and end at one node.
func (g *Graph) SelfLoopCount() int {
	n := 0
	for _, e := range g.edges {
		if e.IsSelfLoop() {
			n++
		}
	}
	return n
}

// Clone returns an independent deep copy of the graph.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		nodes:     make(map[string]*Node, len(g.nodes)),
		edges:     make(map[string]*Edge, len(g.edges)),
		nodeOrder: slices.Clone(g.nodeOrder),
		edgeOrder: slices.Clone(g.edgeOrder),
	}
	for id, n := range g.nodes {
		c.nodes[id] = n.Clone()
	}
	for id, e := range g.edges {
		c.edges[id] = e.Clone()
	}
	return c
}
