package validation

import (
	"testing"

	coregraph "github.com/flowgraph/chatflow/internal/core/graph"
	"github.com/stretchr/testify/assert"
)

func seedLists() ([]coregraph.Node, []coregraph.Edge) {
	intent, _ := coregraph.SchemaFor(coregraph.NodeTypeIntent)
	reply, _ := coregraph.SchemaFor(coregraph.NodeTypeBotReply)
	nodes := []coregraph.Node{
		{ID: "1", Type: coregraph.NodeTypeIntent, Data: intent.DefaultData()},
		{ID: "2", Type: coregraph.NodeTypeBotReply, Data: reply.DefaultData()},
	}
	edges := []coregraph.Edge{{ID: "e1-2", Source: "1", Target: "2"}}
	return nodes, edges
}

func TestValidateSnapshotGraph_Valid(t *testing.T) {
	nodes, edges := seedLists()
	assert.NoError(t, ValidateSnapshotGraph(nodes, edges))
	assert.NoError(t, ValidateSnapshotGraph(nil, nil))
}

func TestValidateSnapshotGraph_Endpoints(t *testing.T) {
	nodes, edges := seedLists()
	edges = append(edges, coregraph.Edge{ID: "e2-x", Source: "2", Target: "missing"})

	err := ValidateSnapshotGraph(nodes, edges)
	assert.ErrorIs(t, err, coregraph.ErrTargetNodeNotFound)
	assert.ErrorIs(t, err, coregraph.ErrInvalidReference)
}

func TestValidateSnapshotGraph_DuplicateIDs(t *testing.T) {
	nodes, edges := seedLists()

	err := ValidateSnapshotGraph(append(nodes, nodes[0]), edges)
	assert.ErrorIs(t, err, coregraph.ErrDuplicateNode)

	err = ValidateSnapshotGraph(nodes, append(edges, edges[0]))
	assert.ErrorIs(t, err, coregraph.ErrDuplicateEdge)
}

func TestValidateSnapshotGraph_ParallelEdgesAndSelfLoops(t *testing.T) {
	nodes, edges := seedLists()
	edges = append(edges,
		coregraph.Edge{ID: "e1-2b", Source: "1", Target: "2"},
		coregraph.Edge{ID: "e2-2", Source: "2", Target: "2"},
	)
	assert.NoError(t, ValidateSnapshotGraph(nodes, edges))
}

func TestValidateSnapshotGraph_Payload(t *testing.T) {
	nodes, edges := seedLists()
	bad := -3
	nodes = append(nodes, coregraph.Node{ID: "3", Type: coregraph.NodeTypeDelay,
		Data: coregraph.NodeData{Label: "wait", DelaySeconds: &bad}})

	err := ValidateSnapshotGraph(nodes, edges)
	assert.ErrorIs(t, err, coregraph.ErrValidation)
}

func TestValidateSnapshotGraph_CycleDetection(t *testing.T) {
	nodes, edges := seedLists()
	edges = append(edges, coregraph.Edge{ID: "e2-1", Source: "2", Target: "1"})

	// Default does not check cycles
	assert.NoError(t, ValidateSnapshotGraph(nodes, edges))
	// Enabling cycle check should error
	err := ValidateSnapshotGraph(nodes, edges, GraphValidationOptions{CheckCycles: true})
	assert.ErrorIs(t, err, coregraph.ErrValidation)
}

func TestHasCycle_SelfLoop(t *testing.T) {
	nodes, _ := seedLists()
	assert.False(t, HasCycle(nodes, []coregraph.Edge{{ID: "a", Source: "1", Target: "2"}}))
	assert.True(t, HasCycle(nodes, []coregraph.Edge{{ID: "b", Source: "2", Target: "2"}}))
}
