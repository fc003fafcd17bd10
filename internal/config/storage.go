package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/flowgraph/chatflow/internal/adapters/repository/memory"
	"github.com/flowgraph/chatflow/internal/adapters/repository/postgres"
	"github.com/flowgraph/chatflow/internal/adapters/repository/sqlite"
	"github.com/flowgraph/chatflow/internal/core/checkpoint"
)

// ErrUnknownBackend is returned when storage.backend names no saver.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Archive is a snapshot saver that holds resources until closed.
type Archive interface {
	checkpoint.Saver
	Close() error
}

// OpenArchive opens the saver selected by storage.backend, creating its
// table when the backend is a database.
func (c *Config) OpenArchive(ctx context.Context) (Archive, error) {
	ser, err := c.Serialization.Serializer()
	if err != nil {
		return nil, fmt.Errorf("invalid serialization config: %w", err)
	}

	switch c.Storage.Backend {
	case BackendMemory:
		return memory.NewSnapshotSaver(memory.Config{Serializer: ser}), nil

	case BackendSQLite:
		saver, err := sqlite.Open(ctx, c.Storage.DSN, ser)
		if err != nil {
			return nil, err
		}
		if c.Storage.Table != sqlite.DefaultTableName {
			saver.WithTableName(c.Storage.Table)
			if err := saver.CreateTables(ctx); err != nil {
				_ = saver.Close()
				return nil, err
			}
		}
		return saver, nil

	case BackendPostgres:
		saver, err := postgres.Connect(ctx, c.Storage.DSN, ser)
		if err != nil {
			return nil, err
		}
		if c.Storage.Table != postgres.DefaultTableName {
			saver.WithTableName(c.Storage.Table)
			if err := saver.CreateTables(ctx); err != nil {
				_ = saver.Close()
				return nil, err
			}
		}
		return saver, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, c.Storage.Backend)
	}
}
