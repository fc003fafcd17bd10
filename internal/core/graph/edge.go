// Package graph provides edge definitions
package graph

// Edge represents a connection between nodes. Parallel edges between the same
// pair and self-loops are legal: a flow may re-ask on invalid input.
// PRINCIPLES:
// - KISS: Simple edge representation
// - SRP: Only responsible for edge data
type Edge struct {
	ID     string `json:"id" msgpack:"id"`
	Source string `json:"source" msgpack:"source"` // Source node ID
	Target string `json:"target" msgpack:"target"` // Target node ID
}

// Validate ensures edge integrity
func (e *Edge) Validate() error {
	if e.ID == "" {
		return ErrInvalidEdgeID
	}
	if e.Source == "" {
		return ErrInvalidSource
	}
	if e.Target == "" {
		return ErrInvalidTarget
	}
	return nil
}

// Clone returns a copy of the edge.
func (e *Edge) Clone() *Edge {
	c := *e
	return &c
}

// IsSelfLoop reports whether the edge starts and ends at the same node.
func (e *Edge) IsSelfLoop() bool {
	return e.Source == e.Target
}

// Touches reports whether nodeID is either endpoint of the edge.
func (e *Edge) Touches(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}
