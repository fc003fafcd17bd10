// Package memory provides an in-process implementation of snapshot storage.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/flowgraph/chatflow/internal/core/checkpoint"
	"github.com/flowgraph/chatflow/pkg/serialization"
)

// SnapshotSaver implements checkpoint.Saver with serialized in-memory storage.
// Snapshots are stored encoded so that callers never share memory with the
// store and the configured codec is exercised exactly as a remote backend would.
// PRINCIPLES:
// - KISS: Simple map with proper concurrency
// - DIP: Implements checkpoint.Saver interface
type SnapshotSaver struct {
	mu          sync.RWMutex
	entries     map[key]*entry
	maxMemoryMB int64
	currentSize int64
	serializer  *serialization.Serializer
}

// Config holds configuration for SnapshotSaver
type Config struct {
	MaxMemoryMB int64                     // Maximum encoded size kept, in MB
	Serializer  *serialization.Serializer // Custom serializer (optional)
}

type key struct {
	flowID  string
	version int
}

// entry holds an encoded snapshot with metadata
type entry struct {
	data       []byte
	size       int64
	createdAt  time.Time
	accessedAt time.Time
}

// NewSnapshotSaver creates a new in-memory snapshot saver
func NewSnapshotSaver(config Config) *SnapshotSaver {
	if config.MaxMemoryMB == 0 {
		config.MaxMemoryMB = 256
	}
	if config.Serializer == nil {
		config.Serializer = serialization.DefaultSerializer()
	}
	return &SnapshotSaver{
		entries:     make(map[key]*entry),
		maxMemoryMB: config.MaxMemoryMB,
		serializer:  config.Serializer,
	}
}

// DefaultSnapshotSaver creates a SnapshotSaver with default configuration
func DefaultSnapshotSaver() *SnapshotSaver {
	return NewSnapshotSaver(Config{})
}

// Save stores a snapshot, replacing any previous copy of the same version.
func (s *SnapshotSaver) Save(_ context.Context, snap *checkpoint.Snapshot) error {
	if snap == nil {
		return checkpoint.ErrNilSnapshot
	}
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("snapshot validation failed: %w", err)
	}

	data, err := s.serializer.Serialize(snap)
	if err != nil {
		return fmt.Errorf("snapshot serialization failed: %w", err)
	}
	size := int64(len(data))
	k := key{flowID: snap.FlowID, version: snap.Version}

	s.mu.Lock()
	defer s.mu.Unlock()

	// a rejected save leaves any stored entry for k in place
	if size > s.maxBytes() {
		return fmt.Errorf("snapshot of %d bytes exceeds memory limit of %dMB", size, s.maxMemoryMB)
	}
	if old, ok := s.entries[k]; ok {
		s.currentSize -= old.size
		delete(s.entries, k)
	}
	s.ensureCapacity(size)

	now := time.Now()
	s.entries[k] = &entry{data: data, size: size, createdAt: now, accessedAt: now}
	s.currentSize += size
	return nil
}

// Load retrieves one version of a flow
func (s *SnapshotSaver) Load(_ context.Context, flowID string, version int) (*checkpoint.Snapshot, error) {
	k := key{flowID: flowID, version: version}

	s.mu.Lock()
	e, ok := s.entries[k]
	if ok {
		e.accessedAt = time.Now()
	}
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("flow %q v%d: %w", flowID, version, checkpoint.ErrVersionNotFound)
	}
	return s.decode(e.data)
}

// List returns snapshots matching the filter in ascending version order.
// Snapshots of different flows are ordered by flow id first.
func (s *SnapshotSaver) List(_ context.Context, filter checkpoint.Filter) ([]*checkpoint.Snapshot, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("filter validation failed: %w", err)
	}

	s.mu.RLock()
	var snaps []*checkpoint.Snapshot
	for _, e := range s.entries {
		snap, err := s.decode(e.data)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		if filter.Matches(snap) {
			snaps = append(snaps, snap)
		}
	}
	s.mu.RUnlock()

	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].FlowID != snaps[j].FlowID {
			return snaps[i].FlowID < snaps[j].FlowID
		}
		return snaps[i].Version < snaps[j].Version
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(snaps) {
			return []*checkpoint.Snapshot{}, nil
		}
		snaps = snaps[filter.Offset:]
	}
	if filter.Limit > 0 && len(snaps) > filter.Limit {
		snaps = snaps[:filter.Limit]
	}
	return snaps, nil
}

// Delete removes one version of a flow
func (s *SnapshotSaver) Delete(_ context.Context, flowID string, version int) error {
	k := key{flowID: flowID, version: version}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[k]
	if !ok {
		return fmt.Errorf("flow %q v%d: %w", flowID, version, checkpoint.ErrVersionNotFound)
	}
	s.currentSize -= e.size
	delete(s.entries, k)
	return nil
}

// MemoryStats reports usage of the saver
type MemoryStats struct {
	Count              int64   `json:"count"`
	SizeBytes          int64   `json:"size_bytes"`
	MaxSizeMB          int64   `json:"max_size_mb"`
	UtilizationPercent float64 `json:"utilization_percent"`
	Codec              string  `json:"codec"`
}

// Stats returns memory usage statistics
func (s *SnapshotSaver) Stats() MemoryStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var utilization float64
	if s.maxMemoryMB > 0 {
		utilization = float64(s.currentSize) / float64(s.maxMemoryMB*1024*1024) * 100
	}
	return MemoryStats{
		Count:              int64(len(s.entries)),
		SizeBytes:          s.currentSize,
		MaxSizeMB:          s.maxMemoryMB,
		UtilizationPercent: utilization,
		Codec:              s.serializer.Name(),
	}
}

// Close releases resources. The saver holds none besides memory.
func (s *SnapshotSaver) Close() error {
	s.mu.Lock()
	s.entries = make(map[key]*entry)
	s.currentSize = 0
	s.mu.Unlock()
	return nil
}

func (s *SnapshotSaver) decode(data []byte) (*checkpoint.Snapshot, error) {
	var snap checkpoint.Snapshot
	if err := s.serializer.Deserialize(data, &snap); err != nil {
		return nil, fmt.Errorf("snapshot deserialization failed: %w", err)
	}
	snap.Normalize()
	return &snap, nil
}

// ensureCapacity evicts least recently used snapshots until newSize fits.
// Caller holds the write lock.
func (s *SnapshotSaver) ensureCapacity(newSize int64) {
	maxSize := s.maxBytes()
	if s.currentSize+newSize <= maxSize {
		return
	}

	keys := make([]key, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return s.entries[keys[i]].accessedAt.Before(s.entries[keys[j]].accessedAt)
	})
	for _, k := range keys {
		if s.currentSize+newSize <= maxSize {
			break
		}
		s.currentSize -= s.entries[k].size
		delete(s.entries, k)
	}
}

func (s *SnapshotSaver) maxBytes() int64 {
	return s.maxMemoryMB * 1024 * 1024
}
