package services

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/flowgraph/chatflow/internal/core/checkpoint"
	"github.com/flowgraph/chatflow/internal/core/graph"
	"github.com/flowgraph/chatflow/internal/infrastructure/metrics"
	"github.com/flowgraph/chatflow/pkg/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultFlowID names the flow of a store built without WithFlowID.
const DefaultFlowID = "main"

// Seed graph installed by Initialize.
const (
	SeedIntentID = "1"
	SeedReplyID  = "2"
	SeedEdgeID   = "e1-2"
)

// FlowGraphStore owns one editing session of a chatbot flow: the live graph,
// the version history of whole-graph snapshots and the comment and
// collaborator tables. Every method is safe for concurrent use; mutations
// are serialized so a snapshot never observes a half-applied change.
// PRINCIPLES:
// - SRP: Owns session state, delegates structure rules to graph.Graph
// - KISS: One lock, no background work
// - Failed operations never partially apply
type FlowGraphStore struct {
	mu sync.RWMutex

	flowID      string
	logger      *zap.Logger
	newID       func() string
	now         func() time.Time
	maxVersions int

	ready          bool
	graph          *graph.Graph
	currentVersion int
	lastVersion    int
	history        []*checkpoint.Snapshot
	comments       []graph.Comment
	collaborators  []graph.Collaborator
}

// StoreOption configures a FlowGraphStore.
type StoreOption func(*FlowGraphStore)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *FlowGraphStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator replaces the random UUID generator used for node, edge,
// comment and collaborator ids.
func WithIDGenerator(gen func() string) StoreOption {
	return func(s *FlowGraphStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithMaxVersions bounds the history to the n most recent snapshots.
// Zero keeps every snapshot.
func WithMaxVersions(n int) StoreOption {
	return func(s *FlowGraphStore) {
		if n >= 0 {
			s.maxVersions = n
		}
	}
}

// WithFlowID sets the id stamped on snapshots taken by the store.
func WithFlowID(id string) StoreOption {
	return func(s *FlowGraphStore) {
		if id != "" {
			s.flowID = id
		}
	}
}

// WithClock overrides the time source used for snapshot timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *FlowGraphStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewFlowGraphStore creates an uninitialized store. Every operation except
// Initialize fails with graph.ErrNotReady until Initialize succeeds.
func NewFlowGraphStore(opts ...StoreOption) *FlowGraphStore {
	s := &FlowGraphStore{
		flowID: DefaultFlowID,
		logger: zap.NewNop(),
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("flow_id", s.flowID))
	return s
}

// FlowID returns the id of the flow held by the store.
func (s *FlowGraphStore) FlowID() string { return s.flowID }

// Initialize seeds the session with a welcome intent connected to a welcome
// reply and sets the current version to 1. It may be called once.
func (s *FlowGraphStore) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready {
		return s.fail("initialize", graph.ErrAlreadyInitialized)
	}

	g, err := graph.FromLists(seedNodes(), []graph.Edge{{ID: SeedEdgeID, Source: SeedIntentID, Target: SeedReplyID}})
	if err != nil {
		return s.fail("initialize", err)
	}

	s.graph = g
	s.currentVersion = 1
	s.lastVersion = 1
	s.history = []*checkpoint.Snapshot{}
	s.comments = []graph.Comment{}
	s.collaborators = []graph.Collaborator{}
	s.ready = true

	s.observe()
	s.logger.Info("flow initialized",
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", g.EdgeCount()))
	return nil
}

func seedNodes() []graph.Node {
	description := "Initial greeting"
	message := "Hello! How can I help you today?"
	return []graph.Node{
		{
			ID:       SeedIntentID,
			Type:     graph.NodeTypeIntent,
			Position: graph.Position{X: 250, Y: 5},
			Data:     graph.NodeData{Label: "Welcome intent", Description: &description},
		},
		{
			ID:       SeedReplyID,
			Type:     graph.NodeTypeBotReply,
			Position: graph.Position{X: 100, Y: 100},
			Data:     graph.NodeData{Label: "Welcome message", Message: &message},
		},
	}
}

// AddNode inserts a node of type t at pos with the type's default payload
// and returns its generated id.
func (s *FlowGraphStore) AddNode(t graph.NodeType, pos graph.Position) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReady(); err != nil {
		return "", s.fail("add node", err)
	}
	schema, ok := graph.SchemaFor(t)
	if !ok {
		return "", s.fail("add node", fmt.Errorf("type %q: %w", t, graph.ErrInvalidNodeType))
	}
	if err := validation.ValidatePosition(pos); err != nil {
		return "", s.fail("add node", err)
	}

	node := &graph.Node{ID: s.newID(), Type: t, Position: pos, Data: schema.DefaultData()}
	if err := s.graph.AddNode(node); err != nil {
		return "", s.fail("add node", err)
	}

	metrics.IncNodesAdded()
	s.observe()
	s.logger.Debug("node added", zap.String("node_id", node.ID), zap.String("type", string(t)))
	return node.ID, nil
}

// Connect adds an edge from source to target and returns its generated id.
// Parallel edges and self-loops are allowed; both endpoints must exist.
func (s *FlowGraphStore) Connect(source, target string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReady(); err != nil {
		return "", s.fail("connect", err)
	}

	edge := &graph.Edge{ID: s.newID(), Source: source, Target: target}
	if err := s.graph.AddEdge(edge); err != nil {
		return "", s.fail("connect", fmt.Errorf("%q -> %q: %w", source, target, err))
	}

	metrics.IncEdgesAdded()
	s.observe()
	s.logger.Debug("nodes connected",
		zap.String("edge_id", edge.ID),
		zap.String("source", source),
		zap.String("target", target),
		zap.Bool("self_loop", edge.IsSelfLoop()))
	return edge.ID, nil
}

// UpdateNodeData merges patch into the payload of node id. Fields absent from
// the patch are kept; type and position never change.
func (s *FlowGraphStore) UpdateNodeData(id string, patch graph.DataPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReady(); err != nil {
		return s.fail("update node", err)
	}
	node, ok := s.graph.Node(id)
	if !ok {
		return s.fail("update node", fmt.Errorf("%q: %w", id, graph.ErrNodeNotFound))
	}
	if err := validation.ValidatePatch(node.Type, patch); err != nil {
		return s.fail("update node", fmt.Errorf("node %q: %w", id, err))
	}

	node.Data = node.Data.Apply(patch)

	metrics.IncNodesUpdated()
	s.logger.Debug("node updated", zap.String("node_id", id), zap.Strings("fields", patch.Fields()))
	return nil
}

// MoveNode sets the canvas position of node id.
func (s *FlowGraphStore) MoveNode(id string, pos graph.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReady(); err != nil {
		return s.fail("move node", err)
	}
	node, ok := s.graph.Node(id)
	if !ok {
		return s.fail("move node", fmt.Errorf("%q: %w", id, graph.ErrNodeNotFound))
	}
	if err := validation.ValidatePosition(pos); err != nil {
		return s.fail("move node", err)
	}

	node.Position = pos
	s.logger.Debug("node moved", zap.String("node_id", id), zap.Float64("x", pos.X), zap.Float64("y", pos.Y))
	return nil
}

// RemoveNode deletes node id together with every edge that touches it.
func (s *FlowGraphStore) RemoveNode(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReady(); err != nil {
		return s.fail("remove node", err)
	}
	removed, err := s.graph.RemoveNode(id)
	if err != nil {
		return s.fail("remove node", fmt.Errorf("%q: %w", id, err))
	}

	metrics.AddNodesRemoved(1)
	metrics.AddEdgesRemoved(len(removed))
	s.observe()
	s.logger.Debug("node removed", zap.String("node_id", id), zap.Strings("cascaded_edges", removed))
	return nil
}

// RemoveEdge deletes edge id.
func (s *FlowGraphStore) RemoveEdge(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReady(); err != nil {
		return s.fail("remove edge", err)
	}
	if err := s.graph.RemoveEdge(id); err != nil {
		return s.fail("remove edge", fmt.Errorf("%q: %w", id, err))
	}

	metrics.AddEdgesRemoved(1)
	s.observe()
	s.logger.Debug("edge removed", zap.String("edge_id", id))
	return nil
}

// SaveVersion appends a deep copy of the live graph to the history and
// returns its version number, which becomes the current version. Numbers
// are never reused, so saving after loading an older version continues
// after the newest number issued.
func (s *FlowGraphStore) SaveVersion() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReady(); err != nil {
		return 0, s.fail("save version", err)
	}

	version := max(s.currentVersion, s.lastVersion) + 1
	snap := &checkpoint.Snapshot{
		FlowID:    s.flowID,
		Version:   version,
		Nodes:     s.graph.NodeList(),
		Edges:     s.graph.EdgeList(),
		CreatedAt: s.now(),
	}
	s.history = append(s.history, snap)
	s.currentVersion = version
	s.lastVersion = version

	var pruned []int
	if s.maxVersions > 0 && len(s.history) > s.maxVersions {
		drop := len(s.history) - s.maxVersions
		for _, old := range s.history[:drop] {
			pruned = append(pruned, old.Version)
		}
		s.history = slices.Clone(s.history[drop:])
	}

	metrics.IncVersionsSaved()
	metrics.SetHistoryVersions(s.flowID, len(s.history))
	s.logger.Info("version saved",
		zap.Int("version", version),
		zap.Int("nodes", len(snap.Nodes)),
		zap.Int("edges", len(snap.Edges)),
		zap.Ints("pruned", pruned))
	return version, nil
}

// LoadVersion replaces the live graph with a deep copy of snapshot v and
// makes v the current version. The history is left untouched.
func (s *FlowGraphStore) LoadVersion(v int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReady(); err != nil {
		return s.fail("load version", err)
	}
	snap := s.findVersion(v)
	if snap == nil {
		return s.fail("load version", fmt.Errorf("v%d: %w", v, checkpoint.ErrVersionNotFound))
	}
	g, err := snap.Graph()
	if err != nil {
		return s.fail("load version", fmt.Errorf("v%d: %w", v, err))
	}

	s.graph = g
	s.currentVersion = v

	metrics.IncVersionsLoaded()
	s.observe()
	s.logger.Info("version loaded",
		zap.Int("version", v),
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", g.EdgeCount()))
	return nil
}

// AddComment records a comment on nodeID and returns its id. The node does
// not need to exist.
func (s *FlowGraphStore) AddComment(nodeID, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReady(); err != nil {
		return "", s.fail("add comment", err)
	}
	c := graph.Comment{ID: s.newID(), NodeID: nodeID, Text: text}
	s.comments = append(s.comments, c)

	s.logger.Debug("comment added", zap.String("comment_id", c.ID), zap.String("node_id", nodeID))
	return c.ID, nil
}

// AddCollaborator records a collaborator and returns its id. Duplicates are
// kept.
func (s *FlowGraphStore) AddCollaborator(name, email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReady(); err != nil {
		return "", s.fail("add collaborator", err)
	}
	c := graph.Collaborator{ID: s.newID(), Name: name, Email: email}
	s.collaborators = append(s.collaborators, c)

	s.logger.Info("collaborator added", zap.String("collaborator_id", c.ID), zap.String("name", name))
	return c.ID, nil
}

// Node returns a copy of node id.
func (s *FlowGraphStore) Node(id string) (graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkReady(); err != nil {
		return graph.Node{}, err
	}
	node, ok := s.graph.Node(id)
	if !ok {
		return graph.Node{}, fmt.Errorf("%q: %w", id, graph.ErrNodeNotFound)
	}
	return *node.Clone(), nil
}

// Nodes returns copies of the live nodes in insertion order.
func (s *FlowGraphStore) Nodes() ([]graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkReady(); err != nil {
		return nil, err
	}
	return s.graph.NodeList(), nil
}

// Edges returns copies of the live edges in insertion order.
func (s *FlowGraphStore) Edges() ([]graph.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkReady(); err != nil {
		return nil, err
	}
	return s.graph.EdgeList(), nil
}

// Comments returns every comment in the order they were added.
func (s *FlowGraphStore) Comments() ([]graph.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkReady(); err != nil {
		return nil, err
	}
	return slices.Clone(s.comments), nil
}

// CommentsForNode returns the comments attached to nodeID.
func (s *FlowGraphStore) CommentsForNode(nodeID string) ([]graph.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkReady(); err != nil {
		return nil, err
	}
	out := []graph.Comment{}
	for _, c := range s.comments {
		if c.NodeID == nodeID {
			out = append(out, c)
		}
	}
	return out, nil
}

// Collaborators returns every collaborator in the order they were added.
func (s *FlowGraphStore) Collaborators() ([]graph.Collaborator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkReady(); err != nil {
		return nil, err
	}
	return slices.Clone(s.collaborators), nil
}

// CurrentVersion returns the version the live graph was last saved as or
// loaded from.
func (s *FlowGraphStore) CurrentVersion() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkReady(); err != nil {
		return 0, err
	}
	return s.currentVersion, nil
}

// Versions lists the version numbers held in history, oldest first.
func (s *FlowGraphStore) Versions() ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkReady(); err != nil {
		return nil, err
	}
	out := make([]int, len(s.history))
	for i, snap := range s.history {
		out[i] = snap.Version
	}
	return out, nil
}

// Snapshot returns a deep copy of snapshot v.
func (s *FlowGraphStore) Snapshot(v int) (*checkpoint.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkReady(); err != nil {
		return nil, err
	}
	snap := s.findVersion(v)
	if snap == nil {
		return nil, fmt.Errorf("v%d: %w", v, checkpoint.ErrVersionNotFound)
	}
	return snap.Clone(), nil
}

// History returns deep copies of every snapshot, oldest first.
func (s *FlowGraphStore) History() ([]*checkpoint.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkReady(); err != nil {
		return nil, err
	}
	out := make([]*checkpoint.Snapshot, len(s.history))
	for i, snap := range s.history {
		out[i] = snap.Clone()
	}
	return out, nil
}

// ExportHistory returns the history in its export shape: an ordered list of
// {versionNumber, nodes, edges} records.
func (s *FlowGraphStore) ExportHistory() ([]checkpoint.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkReady(); err != nil {
		return nil, err
	}
	out := make([]checkpoint.Record, len(s.history))
	for i, snap := range s.history {
		out[i] = snap.Record()
	}
	return out, nil
}

// ImportHistory replaces the history with records. Records must carry
// strictly ascending version numbers and structurally valid graphs; if any
// record is rejected nothing changes. The live graph and current version are
// kept, and later saves continue after the highest imported number.
func (s *FlowGraphStore) ImportHistory(records []checkpoint.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReady(); err != nil {
		return s.fail("import history", err)
	}

	history := make([]*checkpoint.Snapshot, 0, len(records))
	prev := 0
	for i, r := range records {
		snap := checkpoint.FromRecord(s.flowID, r)
		snap.CreatedAt = s.now()
		if err := snap.Validate(); err != nil {
			return s.fail("import history", fmt.Errorf("record %d: %w", i, err))
		}
		if snap.Version <= prev {
			return s.fail("import history", fmt.Errorf("record %d (v%d after v%d): %w", i, snap.Version, prev, checkpoint.ErrVersionOrder))
		}
		if err := validation.ValidateSnapshotGraph(snap.Nodes, snap.Edges); err != nil {
			return s.fail("import history", fmt.Errorf("record %d (v%d): %w", i, snap.Version, err))
		}
		prev = snap.Version
		history = append(history, snap)
	}
	if s.maxVersions > 0 && len(history) > s.maxVersions {
		history = history[len(history)-s.maxVersions:]
	}

	s.history = history
	s.lastVersion = max(s.lastVersion, prev)

	metrics.SetHistoryVersions(s.flowID, len(s.history))
	s.logger.Info("history imported", zap.Int("versions", len(history)), zap.Int("last_version", prev))
	return nil
}

// Stats summarizes the session.
type Stats struct {
	FlowID         string `json:"flowId"`
	Nodes          int    `json:"nodes"`
	Edges          int    `json:"edges"`
	Branches       int    `json:"branches"`
	SelfLoops      int    `json:"selfLoops"`
	Versions       int    `json:"versions"`
	CurrentVersion int    `json:"currentVersion"`
	Comments       int    `json:"comments"`
	Collaborators  int    `json:"collaborators"`
}

// Stats returns counts of every table held by the store.
func (s *FlowGraphStore) Stats() (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkReady(); err != nil {
		return Stats{}, err
	}
	return Stats{
		FlowID:         s.flowID,
		Nodes:          s.graph.NodeCount(),
		Edges:          s.graph.EdgeCount(),
		Branches:       s.graph.BranchCount(),
		SelfLoops:      s.graph.SelfLoopCount(),
		Versions:       len(s.history),
		CurrentVersion: s.currentVersion,
		Comments:       len(s.comments),
		Collaborators:  len(s.collaborators),
	}, nil
}

func (s *FlowGraphStore) checkReady() error {
	if !s.ready {
		return graph.ErrNotReady
	}
	return nil
}

func (s *FlowGraphStore) findVersion(v int) *checkpoint.Snapshot {
	for _, snap := range s.history {
		if snap.Version == v {
			return snap
		}
	}
	return nil
}

// observe publishes live object counts. Caller holds the lock.
func (s *FlowGraphStore) observe() {
	metrics.SetLiveObjects(s.flowID, s.graph.NodeCount(), s.graph.EdgeCount())
}

// fail records a rejected mutation and returns err unchanged.
func (s *FlowGraphStore) fail(op string, err error) error {
	kind := graph.KindOf(err)
	metrics.IncStoreError(kind)
	s.logger.Debug("operation rejected", zap.String("op", op), zap.String("kind", kind), zap.Error(err))
	return err
}
