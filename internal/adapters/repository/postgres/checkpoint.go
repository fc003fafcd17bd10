package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flowgraph/chatflow/internal/core/checkpoint"
	"github.com/flowgraph/chatflow/internal/core/graph"
	"github.com/flowgraph/chatflow/pkg/serialization"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTableName is the table snapshots are stored in unless overridden.
const DefaultTableName = "flow_versions"

// SnapshotSaver implements checkpoint.Saver interface for PostgreSQL
type SnapshotSaver struct {
	pool       *pgxpool.Pool
	serializer *serialization.Serializer
	tableName  string
}

type body struct {
	Nodes []graph.Node `json:"nodes" msgpack:"nodes"`
	Edges []graph.Edge `json:"edges" msgpack:"edges"`
}

// NewSnapshotSaver creates a new PostgreSQL snapshot saver
func NewSnapshotSaver(pool *pgxpool.Pool, serializer *serialization.Serializer) *SnapshotSaver {
	if serializer == nil {
		serializer = serialization.DefaultSerializer()
	}
	return &SnapshotSaver{
		pool:       pool,
		serializer: serializer,
		tableName:  DefaultTableName,
	}
}

// Connect creates a pool for dsn, verifies it and prepares the table.
func Connect(ctx context.Context, dsn string, serializer *serialization.Serializer) (*SnapshotSaver, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	s := NewSnapshotSaver(pool, serializer)
	if err := s.CreateTables(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// WithTableName overrides the table name. Unsafe identifiers are ignored.
func (s *SnapshotSaver) WithTableName(name string) *SnapshotSaver {
	if isSafeIdent(name) {
		s.tableName = name
	}
	return s
}

func isSafeIdent(s string) bool {
	if s == "" || len(s) > 63 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			continue
		}
		return false
	}
	return true
}

// Save stores a snapshot in PostgreSQL
func (s *SnapshotSaver) Save(ctx context.Context, snap *checkpoint.Snapshot) error {
	if snap == nil {
		return checkpoint.ErrNilSnapshot
	}
	if err := snap.Validate(); err != nil {
		return err
	}

	data, err := s.serializer.Serialize(body{Nodes: snap.Nodes, Edges: snap.Edges})
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	createdAt := snap.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (flow_id, version, body, node_count, edge_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (flow_id, version) DO UPDATE SET
			body = EXCLUDED.body,
			node_count = EXCLUDED.node_count,
			edge_count = EXCLUDED.edge_count,
			created_at = EXCLUDED.created_at
	`, s.tableName)

	_, err = s.pool.Exec(ctx, query,
		snap.FlowID, snap.Version, data, len(snap.Nodes), len(snap.Edges), createdAt)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// Load retrieves one version of a flow
func (s *SnapshotSaver) Load(ctx context.Context, flowID string, version int) (*checkpoint.Snapshot, error) {
	if flowID == "" {
		return nil, checkpoint.ErrInvalidFlowID
	}
	if version <= 0 {
		return nil, checkpoint.ErrInvalidVersion
	}

	query := fmt.Sprintf(`
		SELECT flow_id, version, body, created_at
		FROM %s
		WHERE flow_id = $1 AND version = $2
	`, s.tableName)

	snap, err := s.scan(s.pool.QueryRow(ctx, query, flowID, version))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("flow %q v%d: %w", flowID, version, checkpoint.ErrVersionNotFound)
		}
		return nil, err
	}
	return snap, nil
}

// List retrieves snapshots based on filter criteria, ascending by version
func (s *SnapshotSaver) List(ctx context.Context, filter checkpoint.Filter) ([]*checkpoint.Snapshot, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("filter validation failed: %w", err)
	}
	query, args := s.buildListQuery(filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	snaps := []*checkpoint.Snapshot{}
	for rows.Next() {
		snap, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshot rows: %w", err)
	}

	return snaps, nil
}

// Delete removes one version of a flow
func (s *SnapshotSaver) Delete(ctx context.Context, flowID string, version int) error {
	if flowID == "" {
		return checkpoint.ErrInvalidFlowID
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE flow_id = $1 AND version = $2", s.tableName)
	result, err := s.pool.Exec(ctx, query, flowID, version)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("flow %q v%d: %w", flowID, version, checkpoint.ErrVersionNotFound)
	}

	return nil
}

// CreateTables creates the necessary database tables
func (s *SnapshotSaver) CreateTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			flow_id VARCHAR(255) NOT NULL,
			version INTEGER NOT NULL CHECK (version > 0),
			body BYTEA NOT NULL,
			node_count INTEGER NOT NULL,
			edge_count INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (flow_id, version)
		);

		CREATE INDEX IF NOT EXISTS idx_%s_created_at ON %s (created_at);
	`, s.tableName, s.tableName, s.tableName)

	_, err := s.pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

func (s *SnapshotSaver) scan(row pgx.Row) (*checkpoint.Snapshot, error) {
	var snap checkpoint.Snapshot
	var data []byte

	if err := row.Scan(&snap.FlowID, &snap.Version, &data, &snap.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
	}

	var b body
	if err := s.serializer.Deserialize(data, &b); err != nil {
		return nil, fmt.Errorf("failed to deserialize snapshot: %w", err)
	}
	snap.Nodes = b.Nodes
	snap.Edges = b.Edges
	snap.Normalize()

	return &snap, nil
}

// buildListQuery constructs the SQL query for listing snapshots
func (s *SnapshotSaver) buildListQuery(filter checkpoint.Filter) (string, []interface{}) {
	query := fmt.Sprintf("SELECT flow_id, version, body, created_at FROM %s WHERE 1=1", s.tableName)
	args := make([]interface{}, 0)
	argCount := 0

	if filter.FlowID != "" {
		argCount++
		query += fmt.Sprintf(" AND flow_id = $%d", argCount)
		args = append(args, filter.FlowID)
	}

	if filter.FromVersion > 0 {
		argCount++
		query += fmt.Sprintf(" AND version >= $%d", argCount)
		args = append(args, filter.FromVersion)
	}

	if filter.ToVersion > 0 {
		argCount++
		query += fmt.Sprintf(" AND version <= $%d", argCount)
		args = append(args, filter.ToVersion)
	}

	query += " ORDER BY flow_id ASC, version ASC"

	if filter.Limit > 0 {
		argCount++
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, filter.Limit)
	}

	if filter.Offset > 0 {
		argCount++
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, filter.Offset)
	}

	return query, args
}

// Close closes the database connection pool
func (s *SnapshotSaver) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
