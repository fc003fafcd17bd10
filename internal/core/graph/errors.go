// Package graph defines domain-specific errors
package graph

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the flow store wraps exactly one of
// these so callers can branch with errors.Is.
var (
	ErrNotReady         = errors.New("flow store not initialized")
	ErrNotFound         = errors.New("not found")
	ErrInvalidReference = errors.New("invalid reference")
	ErrValidation       = errors.New("validation failed")

	ErrAlreadyInitialized = errors.New("flow store already initialized")
)

// Domain errors - DRY principle: defined once, used everywhere
var (
	// Node errors
	ErrNilNode         = fmt.Errorf("%w: node cannot be nil", ErrValidation)
	ErrInvalidNodeID   = fmt.Errorf("%w: invalid node ID", ErrValidation)
	ErrInvalidNodeType = fmt.Errorf("%w: invalid node type", ErrValidation)
	ErrDuplicateNode   = fmt.Errorf("%w: duplicate node ID", ErrValidation)
	ErrNodeNotFound    = fmt.Errorf("node %w", ErrNotFound)

	// Edge errors
	ErrNilEdge            = fmt.Errorf("%w: edge cannot be nil", ErrValidation)
	ErrInvalidEdgeID      = fmt.Errorf("%w: invalid edge ID", ErrValidation)
	ErrInvalidSource      = fmt.Errorf("%w: invalid source node", ErrValidation)
	ErrInvalidTarget      = fmt.Errorf("%w: invalid target node", ErrValidation)
	ErrDuplicateEdge      = fmt.Errorf("%w: duplicate edge ID", ErrValidation)
	ErrEdgeNotFound       = fmt.Errorf("edge %w", ErrNotFound)
	ErrSourceNodeNotFound = fmt.Errorf("%w: source node not found", ErrInvalidReference)
	ErrTargetNodeNotFound = fmt.Errorf("%w: target node not found", ErrInvalidReference)
)

// Kind names reported by KindOf.
const (
	KindNotReady           = "not_ready"
	KindAlreadyInitialized = "already_initialized"
	KindNotFound           = "not_found"
	KindInvalidReference   = "invalid_reference"
	KindValidation         = "validation"
	KindInternal           = "internal"
)

// KindOf classifies err by the error kind it wraps.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrNotReady):
		return KindNotReady
	case errors.Is(err, ErrAlreadyInitialized):
		return KindAlreadyInitialized
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidReference):
		return KindInvalidReference
	case errors.Is(err, ErrValidation):
		return KindValidation
	default:
		return KindInternal
	}
}
