package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/flowgraph/chatflow/internal/core/checkpoint"
	"github.com/flowgraph/chatflow/internal/core/graph"
	"github.com/flowgraph/chatflow/pkg/serialization"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(version int) *checkpoint.Snapshot {
	reply, _ := graph.SchemaFor(graph.NodeTypeBotReply)
	delay, _ := graph.SchemaFor(graph.NodeTypeDelay)
	return &checkpoint.Snapshot{
		FlowID:  "flow-1",
		Version: version,
		Nodes: []graph.Node{
			{ID: "1", Type: graph.NodeTypeBotReply, Position: graph.Position{X: 1, Y: 2}, Data: reply.DefaultData()},
			{ID: "2", Type: graph.NodeTypeDelay, Position: graph.Position{X: 3, Y: 4}, Data: delay.DefaultData()},
		},
		Edges:     []graph.Edge{{ID: "e1-2", Source: "1", Target: "2"}},
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func newTestSaver(t *testing.T) *SnapshotSaver {
	t.Helper()
	saver, err := Open(context.Background(), ":memory:", serialization.DefaultSerializer())
	require.NoError(t, err)
	t.Cleanup(func() { _ = saver.Close() })
	return saver
}

func TestSQLiteSnapshotSaver(t *testing.T) {
	ctx := context.Background()
	saver := newTestSaver(t)

	snap := testSnapshot(1)
	require.NoError(t, saver.Save(ctx, snap))

	// Load snapshot
	loaded, err := saver.Load(ctx, "flow-1", 1)
	require.NoError(t, err)
	assert.Equal(t, snap.FlowID, loaded.FlowID)
	assert.Equal(t, snap.Version, loaded.Version)
	assert.Equal(t, snap.Nodes, loaded.Nodes)
	assert.Equal(t, snap.Edges, loaded.Edges)
	assert.True(t, snap.CreatedAt.Equal(loaded.CreatedAt))

	// Save replaces the same version
	snap.Nodes[0].Data.Label = "Welcome"
	require.NoError(t, saver.Save(ctx, snap))
	loaded, err = saver.Load(ctx, "flow-1", 1)
	require.NoError(t, err)
	assert.Equal(t, "Welcome", loaded.Nodes[0].Data.Label)

	// Delete snapshot
	require.NoError(t, saver.Delete(ctx, "flow-1", 1))
	_, err = saver.Load(ctx, "flow-1", 1)
	assert.ErrorIs(t, err, checkpoint.ErrVersionNotFound)
	assert.ErrorIs(t, saver.Delete(ctx, "flow-1", 1), checkpoint.ErrVersionNotFound)
}

func TestSQLiteSnapshotSaver_List(t *testing.T) {
	ctx := context.Background()
	saver := newTestSaver(t)

	for _, v := range []int{4, 2, 1, 3} {
		require.NoError(t, saver.Save(ctx, testSnapshot(v)))
	}
	other := testSnapshot(1)
	other.FlowID = "flow-2"
	require.NoError(t, saver.Save(ctx, other))

	tests := []struct {
		name   string
		filter checkpoint.Filter
		want   []int
	}{
		{name: "ascending", filter: checkpoint.Filter{FlowID: "flow-1"}, want: []int{1, 2, 3, 4}},
		{name: "range", filter: checkpoint.Filter{FlowID: "flow-1", FromVersion: 2, ToVersion: 3}, want: []int{2, 3}},
		{name: "limit", filter: checkpoint.Filter{FlowID: "flow-1", Limit: 1}, want: []int{1}},
		{name: "offset only", filter: checkpoint.Filter{FlowID: "flow-1", Offset: 2}, want: []int{3, 4}},
		{name: "limit and offset", filter: checkpoint.Filter{FlowID: "flow-1", Limit: 2, Offset: 1}, want: []int{2, 3}},
		{name: "no match", filter: checkpoint.Filter{FlowID: "missing"}, want: []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snaps, err := saver.List(ctx, tt.filter)
			require.NoError(t, err)
			got := make([]int, len(snaps))
			for i, s := range snaps {
				got[i] = s.Version
				assert.Equal(t, tt.filter.FlowID, s.FlowID)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := saver.List(ctx, checkpoint.Filter{Offset: -1})
	assert.ErrorIs(t, err, checkpoint.ErrInvalidOffset)
}

func TestSQLiteSnapshotSaver_TableName(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	saver := NewSnapshotSaver(db, nil).WithTableName("bad name; DROP TABLE x")
	assert.Equal(t, DefaultTableName, saver.tableName)

	saver.WithTableName("archived_versions")
	assert.Equal(t, "archived_versions", saver.tableName)

	ctx := context.Background()
	require.NoError(t, saver.CreateTables(ctx))
	require.NoError(t, saver.Save(ctx, testSnapshot(7)))

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT node_count FROM archived_versions WHERE version = 7").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestSQLiteSnapshotSaver_Errors(t *testing.T) {
	ctx := context.Background()

	// Create saver with nil database
	saver := &SnapshotSaver{
		db:         nil,
		serializer: serialization.DefaultSerializer(),
		tableName:  DefaultTableName,
	}

	assert.ErrorIs(t, saver.Save(ctx, nil), checkpoint.ErrNilSnapshot)
	assert.ErrorIs(t, saver.Save(ctx, &checkpoint.Snapshot{FlowID: "f"}), checkpoint.ErrInvalidVersion)

	_, err := saver.Load(ctx, "", 1)
	assert.ErrorIs(t, err, checkpoint.ErrInvalidFlowID)

	_, err = saver.Load(ctx, "f", 0)
	assert.ErrorIs(t, err, checkpoint.ErrInvalidVersion)

	assert.ErrorIs(t, saver.Delete(ctx, "", 1), checkpoint.ErrInvalidFlowID)
}
