package services

import (
	"context"
	"errors"
	"testing"

	"github.com/flowgraph/chatflow/internal/adapters/repository/memory"
	"github.com/flowgraph/chatflow/internal/core/checkpoint"
	"github.com/flowgraph/chatflow/internal/core/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSaver struct {
	checkpoint.Saver
	failAfter int
	saves     int
}

func (f *failingSaver) Save(ctx context.Context, snap *checkpoint.Snapshot) error {
	if f.saves >= f.failAfter {
		return errors.New("disk full")
	}
	f.saves++
	return f.Saver.Save(ctx, snap)
}

func TestVersionArchive_ArchiveAndRestore(t *testing.T) {
	ctx := context.Background()
	saver := memory.DefaultSnapshotSaver()
	archive := NewVersionArchive(saver, "memory", nil)

	src := newReadyStore(t, WithFlowID("support-bot"))
	_, _ = src.AddNode(graph.NodeTypeConditional, graph.Position{X: 3, Y: 3})
	_, _ = src.SaveVersion()
	_, _ = src.SaveVersion()

	n, err := archive.Archive(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// archiving twice overwrites in place
	n, err = archive.Archive(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(2), saver.Stats().Count)

	dst := newReadyStore(t, WithFlowID("support-bot"))
	n, err = archive.Restore(ctx, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	want, _ := src.ExportHistory()
	got, _ := dst.ExportHistory()
	assert.Equal(t, want, got)

	other := newReadyStore(t, WithFlowID("other"))
	n, err = archive.Restore(ctx, other)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestVersionArchive_SaveAndArchive(t *testing.T) {
	ctx := context.Background()
	saver := memory.DefaultSnapshotSaver()
	archive := NewVersionArchive(saver, "memory", nil)
	store := newReadyStore(t)

	v, err := archive.SaveAndArchive(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	snap, err := saver.Load(ctx, DefaultFlowID, 2)
	require.NoError(t, err)
	assert.Len(t, snap.Nodes, 2)

	records, err := archive.Records(ctx, DefaultFlowID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].VersionNumber)
}

func TestVersionArchive_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("store not ready", func(t *testing.T) {
		archive := NewVersionArchive(memory.DefaultSnapshotSaver(), "memory", nil)
		_, err := archive.Archive(ctx, NewFlowGraphStore())
		assert.ErrorIs(t, err, graph.ErrNotReady)
		_, err = archive.SaveAndArchive(ctx, NewFlowGraphStore())
		assert.ErrorIs(t, err, graph.ErrNotReady)
	})

	t.Run("saver failure reports progress", func(t *testing.T) {
		saver := &failingSaver{Saver: memory.DefaultSnapshotSaver(), failAfter: 1}
		archive := NewVersionArchive(saver, "flaky", nil)
		store := newReadyStore(t)
		_, _ = store.SaveVersion()
		_, _ = store.SaveVersion()

		n, err := archive.Archive(ctx, store)
		assert.Error(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("write-through failure keeps version", func(t *testing.T) {
		saver := &failingSaver{Saver: memory.DefaultSnapshotSaver(), failAfter: 0}
		archive := NewVersionArchive(saver, "flaky", nil)
		store := newReadyStore(t)

		v, err := archive.SaveAndArchive(ctx, store)
		assert.Error(t, err)
		assert.Equal(t, 2, v)
		versions, _ := store.Versions()
		assert.Equal(t, []int{2}, versions)
	})

	t.Run("cancelled context", func(t *testing.T) {
		archive := NewVersionArchive(memory.DefaultSnapshotSaver(), "memory", nil)
		store := newReadyStore(t)
		_, _ = store.SaveVersion()

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		n, err := archive.Archive(cctx, store)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, n)
	})
}
