// Copyright (C) 2026 Kodiak AI (kbrennan@kodiakai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package audit persists intervention records. Records are append-only:
// once written they are never modified or deleted, so the trail can be
// replayed to reconstruct every correction a sequence received.
package audit

import (
	"context"
	"sync"

	"github.com/KodiakAI/KodiakGuard/services/integrity"
)

// Store is an append-only intervention record store.
//
// Implementations must preserve per-sequence emission order: List returns
// records in the order they were appended.
type Store interface {
	// Append persists one record.
	Append(ctx context.Context, record integrity.InterventionRecord) error

	// List returns all records for a sequence in append order. A sequence
	// with no records yields an empty slice, not an error.
	List(ctx context.Context, sequenceID string) ([]integrity.InterventionRecord, error)

	// Count returns the number of records stored for a sequence.
	Count(ctx context.Context, sequenceID string) (int, error)

	// Close releases the store's resources.
	Close() error
}

// MemoryStore is an in-process Store for tests and single-run tooling.
//
// Thread Safety: Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]integrity.InterventionRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]integrity.InterventionRecord)}
}

// Append implements Store.
func (s *MemoryStore) Append(_ context.Context, record integrity.InterventionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.SequenceID] = append(s.records[record.SequenceID], record)
	return nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, sequenceID string) ([]integrity.InterventionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.records[sequenceID]
	out := make([]integrity.InterventionRecord, len(stored))
	copy(out, stored)
	return out, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context, sequenceID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[sequenceID]), nil
}

// Close implements Store. No-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
