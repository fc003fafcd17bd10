package flowgraph

import (
	"context"
	"net/http"

	memory "github.com/flowgraph/chatflow/internal/adapters/repository/memory"
	"github.com/flowgraph/chatflow/internal/app/services"
	"github.com/flowgraph/chatflow/internal/core/checkpoint"
	coregraph "github.com/flowgraph/chatflow/internal/core/graph"
	"github.com/flowgraph/chatflow/internal/interfaces/http/rest"
	"go.uber.org/zap"
)

// Re-export core graph types for convenience
type (
	Store        = services.FlowGraphStore
	StoreOption  = services.StoreOption
	Stats        = services.Stats
	Node         = coregraph.Node
	Edge         = coregraph.Edge
	NodeType     = coregraph.NodeType
	NodeData     = coregraph.NodeData
	DataPatch    = coregraph.DataPatch
	Position     = coregraph.Position
	Comment      = coregraph.Comment
	Collaborator = coregraph.Collaborator
	Record       = checkpoint.Record
	Saver        = checkpoint.Saver
)

// Node types.
const (
	NodeTypeIntent       = coregraph.NodeTypeIntent
	NodeTypeUserResponse = coregraph.NodeTypeUserResponse
	NodeTypeBotReply     = coregraph.NodeTypeBotReply
	NodeTypeConditional  = coregraph.NodeTypeConditional
	NodeTypeDelay        = coregraph.NodeTypeDelay
)

// Error kinds; every store error wraps one of these.
var (
	ErrNotReady           = coregraph.ErrNotReady
	ErrAlreadyInitialized = coregraph.ErrAlreadyInitialized
	ErrNotFound           = coregraph.ErrNotFound
	ErrInvalidReference   = coregraph.ErrInvalidReference
	ErrValidation         = coregraph.ErrValidation
)

// Store options.
var (
	WithLogger      = services.WithLogger
	WithIDGenerator = services.WithIDGenerator
	WithMaxVersions = services.WithMaxVersions
	WithFlowID      = services.WithFlowID
)

// NewStore returns an uninitialized store.
func NewStore(opts ...StoreOption) *Store {
	return services.NewFlowGraphStore(opts...)
}

// String returns a pointer to s, for building a DataPatch.
func String(s string) *string { return &s }

// Int returns a pointer to n, for building a DataPatch.
func Int(n int) *int { return &n }

// Runtime is a simple façade pairing an initialized store with a version
// archive. The default runtime archives into memory and is suitable for
// local usage and tests.
type Runtime struct {
	store   *Store
	archive *services.VersionArchive
	logger  *zap.Logger
}

// NewRuntime constructs an initialized store archived to an in-memory saver.
func NewRuntime(opts ...StoreOption) (*Runtime, error) {
	return NewRuntimeWithSaver(memory.DefaultSnapshotSaver(), "memory", opts...)
}

// NewRuntimeWithSaver constructs an initialized store archived to saver.
// backend names the saver in logs and metrics.
func NewRuntimeWithSaver(saver Saver, backend string, opts ...StoreOption) (*Runtime, error) {
	store := services.NewFlowGraphStore(opts...)
	if err := store.Initialize(); err != nil {
		return nil, err
	}
	return &Runtime{
		store:   store,
		archive: services.NewVersionArchive(saver, backend, nil),
		logger:  zap.NewNop(),
	}, nil
}

// Store returns the live store.
func (rt *Runtime) Store() *Store { return rt.store }

// SaveVersion saves a version and writes it through to the archive.
func (rt *Runtime) SaveVersion(ctx context.Context) (int, error) {
	return rt.archive.SaveAndArchive(ctx, rt.store)
}

// Restore replaces the store's history with the archived one.
func (rt *Runtime) Restore(ctx context.Context) (int, error) {
	return rt.archive.Restore(ctx, rt.store)
}

// Archived returns the archived history of the runtime's flow.
func (rt *Runtime) Archived(ctx context.Context) ([]Record, error) {
	return rt.archive.Records(ctx, rt.store.FlowID())
}

// Handler serves the flow editor API for the runtime's store.
func (rt *Runtime) Handler() http.Handler {
	return rest.NewRouter(rt.store, rt.logger, rest.WithArchive(rt.archive)).Setup()
}
