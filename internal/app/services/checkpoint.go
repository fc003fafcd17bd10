package services

import (
	"context"
	"fmt"

	"github.com/flowgraph/chatflow/internal/core/checkpoint"
	"github.com/flowgraph/chatflow/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

// VersionArchive copies version history between a FlowGraphStore and a
// durable checkpoint.Saver.
// PRINCIPLES:
// - SRP: Moves snapshots, never edits them
// - DIP: Depends on checkpoint.Saver abstraction
type VersionArchive struct {
	saver   checkpoint.Saver
	backend string
	logger  *zap.Logger
}

// NewVersionArchive creates a new archive over saver. backend names the
// saver in metrics and logs.
func NewVersionArchive(saver checkpoint.Saver, backend string, logger *zap.Logger) *VersionArchive {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VersionArchive{
		saver:   saver,
		backend: backend,
		logger:  logger.With(zap.String("backend", backend)),
	}
}

// Archive writes every snapshot in the store's history to the saver and
// returns how many were written. Snapshots already archived are overwritten
// with identical content.
func (a *VersionArchive) Archive(ctx context.Context, store *FlowGraphStore) (int, error) {
	history, err := store.History()
	if err != nil {
		return 0, err
	}

	for i, snap := range history {
		if err := ctx.Err(); err != nil {
			metrics.AddArchiveWrites(a.backend, i)
			return i, err
		}
		if err := a.saver.Save(ctx, snap); err != nil {
			metrics.AddArchiveWrites(a.backend, i)
			return i, fmt.Errorf("failed to archive v%d: %w", snap.Version, err)
		}
	}

	metrics.AddArchiveWrites(a.backend, len(history))
	a.logger.Info("history archived",
		zap.String("flow_id", store.FlowID()),
		zap.Int("versions", len(history)))
	return len(history), nil
}

// SaveAndArchive saves a new version in the store and writes it through to
// the saver. The version stays in the store even if the write fails.
func (a *VersionArchive) SaveAndArchive(ctx context.Context, store *FlowGraphStore) (int, error) {
	v, err := store.SaveVersion()
	if err != nil {
		return 0, err
	}
	snap, err := store.Snapshot(v)
	if err != nil {
		return v, err
	}
	if err := a.saver.Save(ctx, snap); err != nil {
		return v, fmt.Errorf("failed to archive v%d: %w", v, err)
	}

	metrics.AddArchiveWrites(a.backend, 1)
	a.logger.Debug("version archived", zap.String("flow_id", store.FlowID()), zap.Int("version", v))
	return v, nil
}

// Records loads the archived history of flowID in export shape, oldest first.
func (a *VersionArchive) Records(ctx context.Context, flowID string) ([]checkpoint.Record, error) {
	snaps, err := a.saver.List(ctx, checkpoint.Filter{FlowID: flowID})
	if err != nil {
		return nil, fmt.Errorf("failed to list archived versions: %w", err)
	}
	records := make([]checkpoint.Record, len(snaps))
	for i, snap := range snaps {
		records[i] = snap.Record()
	}
	return records, nil
}

// Restore replaces the store's history with the archived history of the
// store's flow and returns the number of versions restored.
func (a *VersionArchive) Restore(ctx context.Context, store *FlowGraphStore) (int, error) {
	records, err := a.Records(ctx, store.FlowID())
	if err != nil {
		return 0, err
	}
	if err := store.ImportHistory(records); err != nil {
		return 0, fmt.Errorf("failed to restore history: %w", err)
	}

	a.logger.Info("history restored",
		zap.String("flow_id", store.FlowID()),
		zap.Int("versions", len(records)))
	return len(records), nil
}
