package checkpoint

import (
	"encoding/json"
	"testing"

	"github.com/flowgraph/chatflow/internal/core/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() *Snapshot {
	desc := "greeting"
	return &Snapshot{
		FlowID:  "flow-1",
		Version: 2,
		Nodes: []graph.Node{
			{ID: "1", Type: graph.NodeTypeIntent, Data: graph.NodeData{Label: "Hi", Description: &desc}},
			{ID: "2", Type: graph.NodeTypeUserResponse, Data: graph.NodeData{Label: "Pick", ResponseOptions: []string{"a"}}},
		},
		Edges: []graph.Edge{{ID: "e1-2", Source: "1", Target: "2"}},
	}
}

func TestSnapshot_Validate(t *testing.T) {
	tests := []struct {
		name    string
		snap    Snapshot
		wantErr error
	}{
		{name: "valid", snap: Snapshot{FlowID: "f", Version: 1}},
		{name: "missing flow", snap: Snapshot{Version: 1}, wantErr: ErrInvalidFlowID},
		{name: "zero version", snap: Snapshot{FlowID: "f"}, wantErr: ErrInvalidVersion},
		{name: "negative version", snap: Snapshot{FlowID: "f", Version: -3}, wantErr: ErrInvalidVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.snap.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, graph.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSnapshot_CloneIsDeep(t *testing.T) {
	s := testSnapshot()
	c := s.Clone()

	*s.Nodes[0].Data.Description = "changed"
	s.Nodes[1].Data.ResponseOptions[0] = "z"
	s.Edges[0].Target = "1"

	assert.Equal(t, "greeting", *c.Nodes[0].Data.Description)
	assert.Equal(t, []string{"a"}, c.Nodes[1].Data.ResponseOptions)
	assert.Equal(t, "2", c.Edges[0].Target)
}

func TestSnapshot_Graph(t *testing.T) {
	g, err := testSnapshot().Graph()
	require.NoError(t, err)
	assert.Equal(t, 2, g.NodeCount())

	bad := testSnapshot()
	bad.Edges = append(bad.Edges, graph.Edge{ID: "e9", Source: "9", Target: "1"})
	_, err = bad.Graph()
	assert.ErrorIs(t, err, graph.ErrInvalidReference)
}

func TestRecord_JSONShape(t *testing.T) {
	data, err := json.Marshal(testSnapshot().Record())
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Len(t, raw, 3)
	assert.Contains(t, raw, "versionNumber")
	assert.Contains(t, raw, "nodes")
	assert.Contains(t, raw, "edges")

	assert.JSONEq(t,
		`{"id":"1","type":"intent","position":{"x":0,"y":0},"data":{"label":"Hi","description":"greeting"}}`,
		string(mustNode(t, raw["nodes"], 0)))
}

func TestRecord_EmptyOptionsSurvive(t *testing.T) {
	s := &Snapshot{FlowID: "f", Version: 1, Nodes: []graph.Node{
		{ID: "u", Type: graph.NodeTypeUserResponse, Data: graph.NodeData{Label: "Q", ResponseOptions: []string{}}},
	}}
	data, err := json.Marshal(s.Record())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"responseOptions":[]`)
	assert.Contains(t, string(data), `"edges":[]`)
}

func TestFromRecord(t *testing.T) {
	rec := Record{VersionNumber: 4, Nodes: []graph.Node{{ID: "u", Type: graph.NodeTypeUserResponse, Data: graph.NodeData{Label: "Q"}}}}

	s := FromRecord("flow-9", rec)
	assert.Equal(t, "flow-9", s.FlowID)
	assert.Equal(t, 4, s.Version)
	assert.NotNil(t, s.Nodes[0].Data.ResponseOptions)
	assert.NotNil(t, s.Edges)
}

func TestFilter(t *testing.T) {
	f := Filter{Limit: -1}
	assert.ErrorIs(t, f.Validate(), ErrInvalidLimit)
	f = Filter{Offset: -1}
	assert.ErrorIs(t, f.Validate(), ErrInvalidOffset)
	f = Filter{FromVersion: 5, ToVersion: 2}
	assert.ErrorIs(t, f.Validate(), ErrInvalidRange)

	f = Filter{FlowID: "flow-1", FromVersion: 2, ToVersion: 3}
	require.NoError(t, f.Validate())
	assert.True(t, f.Matches(testSnapshot()))
	assert.False(t, f.Matches(&Snapshot{FlowID: "flow-1", Version: 4}))
	assert.False(t, f.Matches(&Snapshot{FlowID: "other", Version: 2}))
}

func mustNode(t *testing.T, nodes json.RawMessage, i int) json.RawMessage {
	t.Helper()
	var list []json.RawMessage
	require.NoError(t, json.Unmarshal(nodes, &list))
	require.Greater(t, len(list), i)
	return list[i]
}
