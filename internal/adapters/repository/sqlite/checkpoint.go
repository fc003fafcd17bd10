package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/flowgraph/chatflow/internal/core/checkpoint"
	"github.com/flowgraph/chatflow/internal/core/graph"
	"github.com/flowgraph/chatflow/pkg/serialization"
	_ "modernc.org/sqlite"
)

// DefaultTableName is the table snapshots are stored in unless overridden.
const DefaultTableName = "flow_versions"

// SnapshotSaver implements checkpoint.Saver interface for SQLite
type SnapshotSaver struct {
	db         *sql.DB
	serializer *serialization.Serializer
	tableName  string
}

// body is the encoded part of a row; identity columns stay queryable.
type body struct {
	Nodes []graph.Node `json:"nodes" msgpack:"nodes"`
	Edges []graph.Edge `json:"edges" msgpack:"edges"`
}

// NewSnapshotSaver creates a new SQLite snapshot saver
func NewSnapshotSaver(db *sql.DB, serializer *serialization.Serializer) *SnapshotSaver {
	if serializer == nil {
		serializer = serialization.DefaultSerializer()
	}
	return &SnapshotSaver{
		db:         db,
		serializer: serializer,
		tableName:  DefaultTableName,
	}
}

// Open opens (or creates) a SQLite database at dsn and prepares the table.
func Open(ctx context.Context, dsn string, serializer *serialization.Serializer) (*SnapshotSaver, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)
	s := NewSnapshotSaver(db, serializer)
	if err := s.CreateTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// WithTableName allows overriding the default table name with validation.
// Only alphanumeric and underscore are permitted to prevent SQL injection via identifiers.
func (s *SnapshotSaver) WithTableName(name string) *SnapshotSaver {
	if isSafeIdent(name) {
		s.tableName = name
	}
	return s
}

func isSafeIdent(s string) bool {
	if s == "" {
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

// Save stores a snapshot in SQLite, replacing an existing row for the same version
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
		INSERT OR REPLACE INTO %s (flow_id, version, body, node_count, edge_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		snap.FlowID, snap.Version, data, len(snap.Nodes), len(snap.Edges), createdAt.UnixMilli())
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
		WHERE flow_id = ? AND version = ?
	`, s.tableName)

	snap, err := s.scan(s.db.QueryRowContext(ctx, query, flowID, version))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

	rows, err := s.db.QueryContext(ctx, query, args...)
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

	query := fmt.Sprintf("DELETE FROM %s WHERE flow_id = ? AND version = ?", s.tableName)
	result, err := s.db.ExecContext(ctx, query, flowID, version)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("flow %q v%d: %w", flowID, version, checkpoint.ErrVersionNotFound)
	}

	return nil
}

// CreateTables creates the necessary database tables
func (s *SnapshotSaver) CreateTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			flow_id TEXT NOT NULL,
			version INTEGER NOT NULL,
			body BLOB NOT NULL,
			node_count INTEGER NOT NULL,
			edge_count INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (flow_id, version)
		);

		CREATE INDEX IF NOT EXISTS idx_%s_created_at ON %s (created_at);
	`, s.tableName, s.tableName, s.tableName)

	_, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SnapshotSaver) scan(row rowScanner) (*checkpoint.Snapshot, error) {
	var snap checkpoint.Snapshot
	var data []byte
	var createdAt int64

	if err := row.Scan(&snap.FlowID, &snap.Version, &data, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	snap.CreatedAt = time.UnixMilli(createdAt).UTC()
	snap.Normalize()

	return &snap, nil
}

// buildListQuery constructs the SQL query for listing snapshots
func (s *SnapshotSaver) buildListQuery(filter checkpoint.Filter) (string, []interface{}) {
	query := fmt.Sprintf("SELECT flow_id, version, body, created_at FROM %s WHERE 1=1", s.tableName)
	args := make([]interface{}, 0)

	if filter.FlowID != "" {
		query += " AND flow_id = ?"
		args = append(args, filter.FlowID)
	}

	if filter.FromVersion > 0 {
		query += " AND version >= ?"
		args = append(args, filter.FromVersion)
	}

	if filter.ToVersion > 0 {
		query += " AND version <= ?"
		args = append(args, filter.ToVersion)
	}

	query += " ORDER BY flow_id ASC, version ASC"

	// SQLite only accepts OFFSET after LIMIT; -1 means no limit.
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit == 0 {
			limit = -1
		}
		query += " LIMIT ?"
		args = append(args, limit)
	}

	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	return query, args
}

// Close closes the database connection
func (s *SnapshotSaver) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
