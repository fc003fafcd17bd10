package validation

import (
	"fmt"

	coregraph "github.com/flowgraph/chatflow/internal/core/graph"
)

// GraphValidationOptions controls optional validation checks.
type GraphValidationOptions struct {
	// CheckCycles rejects flows that loop back on themselves.
	CheckCycles bool
}

// ValidateSnapshotGraph performs structural validation on node and edge lists
// coming from outside the store (imported history, archived versions) where
// the in-method guards of the store were bypassed. It checks unique ids,
// payload schemas, positions and edge endpoints.
func ValidateSnapshotGraph(nodes []coregraph.Node, edges []coregraph.Edge, opts ...GraphValidationOptions) error {
	seenNodes := make(map[string]struct{}, len(nodes))
	for i := range nodes {
		n := &nodes[i]
		if err := n.Validate(); err != nil {
			return fmt.Errorf("node %d: %w", i, err)
		}
		if _, dup := seenNodes[n.ID]; dup {
			return fmt.Errorf("node %q: %w", n.ID, coregraph.ErrDuplicateNode)
		}
		seenNodes[n.ID] = struct{}{}
		if err := ValidateNodeData(n.Type, n.Data); err != nil {
			return fmt.Errorf("node %q: %w", n.ID, err)
		}
		if err := ValidatePosition(n.Position); err != nil {
			return fmt.Errorf("node %q: %w", n.ID, err)
		}
	}

	seenEdges := make(map[string]struct{}, len(edges))
	for i := range edges {
		e := &edges[i]
		if err := e.Validate(); err != nil {
			return fmt.Errorf("edge %d: %w", i, err)
		}
		if _, dup := seenEdges[e.ID]; dup {
			return fmt.Errorf("edge %q: %w", e.ID, coregraph.ErrDuplicateEdge)
		}
		seenEdges[e.ID] = struct{}{}
		if _, ok := seenNodes[e.Source]; !ok {
			return fmt.Errorf("edge %q: %w", e.ID, coregraph.ErrSourceNodeNotFound)
		}
		if _, ok := seenNodes[e.Target]; !ok {
			return fmt.Errorf("edge %q: %w", e.ID, coregraph.ErrTargetNodeNotFound)
		}
	}

	var cfg GraphValidationOptions
	if len(opts) > 0 {
		cfg = opts[0]
	}
	if cfg.CheckCycles && HasCycle(nodes, edges) {
		return ValidationErrors{{Field: "edges", Message: "flow contains a cycle"}}
	}

	return nil
}

// HasCycle detects any cycle, self-loops included, using DFS with coloring.
func HasCycle(nodes []coregraph.Node, edges []coregraph.Edge) bool {
	const (
		white = 0 // unvisited
		gray  = 1 // visiting
		black = 2 // visited
	)
	color := make(map[string]int, len(nodes))
	adj := make(map[string][]string, len(nodes))
	for _, e := range edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
	}
	var dfs func(string) bool
	dfs = func(u string) bool {
		color[u] = gray
		for _, v := range adj[u] {
			if color[v] == gray {
				return true // back-edge
			}
			if color[v] == white && dfs(v) {
				return true
			}
		}
		color[u] = black
		return false
	}
	for _, n := range nodes {
		if color[n.ID] == white && dfs(n.ID) {
			return true
		}
	}
	return false
}
