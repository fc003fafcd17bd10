// Package checkpoint defines domain-specific errors
package checkpoint

import (
	"errors"
	"fmt"

	"github.com/flowgraph/chatflow/internal/core/graph"
)

// Domain errors - DRY principle: defined once, used everywhere
var (
	// Snapshot validation errors
	ErrInvalidFlowID   = fmt.Errorf("%w: invalid flow ID", graph.ErrValidation)
	ErrInvalidVersion  = fmt.Errorf("%w: version number must be positive", graph.ErrValidation)
	ErrNilSnapshot     = fmt.Errorf("%w: snapshot cannot be nil", graph.ErrValidation)
	ErrVersionOrder    = fmt.Errorf("%w: version numbers must be strictly ascending", graph.ErrValidation)
	ErrVersionNotFound = fmt.Errorf("version %w", graph.ErrNotFound)

	// Filter validation errors
	ErrInvalidLimit  = errors.New("limit cannot be negative")
	ErrInvalidOffset = errors.New("offset cannot be negative")
	ErrInvalidRange  = errors.New("invalid version range: from is after to")
)
