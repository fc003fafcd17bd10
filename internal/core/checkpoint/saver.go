// Package checkpoint provides snapshot persistence interfaces
package checkpoint

import (
	"context"
)

// Saver interface for snapshot persistence (DIP - Dependency Inversion)
// PRINCIPLES:
// - ISP: Interface segregation with ≤5 methods
// - DIP: Core domain depends on interface, not implementations
// - SRP: Single responsibility - snapshot persistence
type Saver interface {
	// Save persists a snapshot, replacing any stored copy of the same version
	Save(ctx context.Context, snapshot *Snapshot) error

	// Load retrieves one version of a flow
	Load(ctx context.Context, flowID string, version int) (*Snapshot, error)

	// List returns snapshots matching the filter in ascending version order
	List(ctx context.Context, filter Filter) ([]*Snapshot, error)

	// Delete removes one version of a flow
	Delete(ctx context.Context, flowID string, version int) error
}

// Filter for snapshot queries (ISP - segregated interface)
type Filter struct {
	FlowID      string `json:"flow_id,omitempty"`
	FromVersion int    `json:"from_version,omitempty"`
	ToVersion   int    `json:"to_version,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	Offset      int    `json:"offset,omitempty"`
}

// Validate ensures filter parameters are valid
func (f *Filter) Validate() error {
	if f.Limit < 0 {
		return ErrInvalidLimit
	}
	if f.Offset < 0 {
		return ErrInvalidOffset
	}
	if f.FromVersion > 0 && f.ToVersion > 0 && f.FromVersion > f.ToVersion {
		return ErrInvalidRange
	}
	return nil
}

// Matches reports whether s passes the flow and version-range conditions of
// the filter. Limit and offset are applied by the caller.
func (f *Filter) Matches(s *Snapshot) bool {
	if f.FlowID != "" && s.FlowID != f.FlowID {
		return false
	}
	if f.FromVersion > 0 && s.Version < f.FromVersion {
		return false
	}
	if f.ToVersion > 0 && s.Version > f.ToVersion {
		return false
	}
	return true
}
