// Package checkpoint provides the version snapshot entities and the
// persistence interface for them, following Clean Architecture principles
// with zero external dependencies.
package checkpoint

import (
	"time"

	"github.com/flowgraph/chatflow/internal/core/graph"
)

// Snapshot is an immutable copy of a flow graph tagged with a version number.
// PRINCIPLES:
// - KISS: Simple struct with clear fields
// - SRP: Only responsible for snapshot data structure
type Snapshot struct {
	FlowID    string       `json:"flow_id" msgpack:"flow_id"`
	Version   int          `json:"version" msgpack:"version"`
	Nodes     []graph.Node `json:"nodes" msgpack:"nodes"`
	Edges     []graph.Edge `json:"edges" msgpack:"edges"`
	CreatedAt time.Time    `json:"created_at" msgpack:"created_at"`
}

// Record is the export shape of a snapshot: an ordered sequence of these is
// the persistence format handed to outside collaborators.
type Record struct {
	VersionNumber int          `json:"versionNumber"`
	Nodes         []graph.Node `json:"nodes"`
	Edges         []graph.Edge `json:"edges"`
}

// Validate ensures snapshot integrity
// PRINCIPLES:
// - SRP: Single responsibility - validation only
// - KISS: Simple validation rules, easy to understand
func (s *Snapshot) Validate() error {
	if s.FlowID == "" {
		return ErrInvalidFlowID
	}
	if s.Version <= 0 {
		return ErrInvalidVersion
	}
	return nil
}

// Graph rebuilds a live graph from the snapshot, enforcing graph invariants.
func (s *Snapshot) Graph() (*graph.Graph, error) {
	return graph.FromLists(s.Nodes, s.Edges)
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{FlowID: s.FlowID, Version: s.Version, CreatedAt: s.CreatedAt}
	c.Nodes = make([]graph.Node, len(s.Nodes))
	for i := range s.Nodes {
		c.Nodes[i] = *s.Nodes[i].Clone()
	}
	c.Edges = make([]graph.Edge, len(s.Edges))
	copy(c.Edges, s.Edges)
	return c
}

// Normalize repairs codec round-trip artifacts: nil lists become empty and
// userResponse payloads regain their empty option list.
func (s *Snapshot) Normalize() {
	if s.Nodes == nil {
		s.Nodes = []graph.Node{}
	}
	if s.Edges == nil {
		s.Edges = []graph.Edge{}
	}
	for i := range s.Nodes {
		s.Nodes[i].Data.Normalize(s.Nodes[i].Type)
	}
}

// Record converts the snapshot into its export shape.
func (s *Snapshot) Record() Record {
	c := s.Clone()
	return Record{VersionNumber: c.Version, Nodes: c.Nodes, Edges: c.Edges}
}

// FromRecord builds a snapshot of flowID from an exported record.
func FromRecord(flowID string, r Record) *Snapshot {
	s := &Snapshot{FlowID: flowID, Version: r.VersionNumber, Nodes: r.Nodes, Edges: r.Edges}
	s = s.Clone()
	s.Normalize()
	return s
}
