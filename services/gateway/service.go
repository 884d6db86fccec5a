// Copyright (C) 2026 Kodiak AI (kbrennan@kodiakai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gateway exposes the integrity engine over HTTP. It owns the
// sequence registry: each API sequence maps to one engine Sequence, and
// the gateway serializes steps per sequence so the single-writer engine
// never sees concurrent calls.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/KodiakAI/KodiakGuard/pkg/validation"
	"github.com/KodiakAI/KodiakGuard/services/integrity"
	"github.com/KodiakAI/KodiakGuard/services/integrity/audit"
	"github.com/KodiakAI/KodiakGuard/services/integrity/monitor"
)

// ErrSequenceNotFound is returned for operations on unknown sequence IDs.
var ErrSequenceNotFound = errors.New("sequence not found")

// ErrInvalidLabel is returned when a sequence label fails validation.
var ErrInvalidLabel = errors.New("invalid label")

// managedSequence pairs an engine sequence with the lock that serializes
// its writes.
type managedSequence struct {
	mu    sync.Mutex
	seq   *integrity.Sequence
	label string
}

// Service is the sequence registry behind the HTTP API.
//
// Thread Safety: Safe for concurrent use. The registry map has its own
// lock; each sequence has its own step lock.
type Service struct {
	cfg       *integrity.Config
	collector *monitor.Collector
	store     audit.Store

	mu        sync.RWMutex
	sequences map[string]*managedSequence
}

// NewService creates a service whose sequences emit intervention records
// through the collector into the store.
func NewService(cfg *integrity.Config, store audit.Store, collector *monitor.Collector) *Service {
	if cfg == nil {
		cfg = integrity.DefaultConfig()
	}
	return &Service{
		cfg:       cfg,
		collector: collector,
		store:     store,
		sequences: make(map[string]*managedSequence),
	}
}

// CreateSequence registers a new sequence and returns its generated ID.
// The label is optional; it ends up in audit queries and log lines, so
// it is sanitized before the sequence is registered.
func (s *Service) CreateSequence(label string) (string, error) {
	clean, err := validation.SanitizeLabel(label)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidLabel, err)
	}

	id := uuid.NewString()
	seq, err := integrity.NewSequence(id, s.cfg, s.collector.Sink())
	if err != nil {
		return "", fmt.Errorf("create sequence: %w", err)
	}

	s.mu.Lock()
	s.sequences[id] = &managedSequence{seq: seq, label: clean}
	s.mu.Unlock()
	return id, nil
}

// Step runs one reasoning step on the identified sequence.
func (s *Service) Step(ctx context.Context, id string, channels integrity.ChannelVector, confidence float64) (*integrity.StepResult, error) {
	managed, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	managed.mu.Lock()
	defer managed.mu.Unlock()
	return managed.seq.Step(ctx, channels, confidence)
}

// State returns a read-only snapshot of the identified sequence.
func (s *Service) State(id string) (*SequenceStateResponse, error) {
	managed, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	managed.mu.Lock()
	defer managed.mu.Unlock()
	seq := managed.seq
	analysis := seq.Analyze()
	return &SequenceStateResponse{
		SequenceID:     id,
		Label:          managed.label,
		Position:       seq.Position(),
		StepCount:      seq.StepCount(),
		Depth:          seq.Depth(),
		Risk:           seq.Risk(),
		WindowLen:      seq.WindowLen(),
		Classification: analysis.Classification,
		Divergence:     analysis.Divergence,
	}, nil
}

// Interventions returns the audit trail for the identified sequence.
func (s *Service) Interventions(ctx context.Context, id string) ([]integrity.InterventionRecord, error) {
	if _, err := s.lookup(id); err != nil {
		return nil, err
	}
	return s.store.List(ctx, id)
}

// DeleteSequence removes a sequence from the registry. Its audit trail
// stays in the store; records are never deleted.
func (s *Service) DeleteSequence(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sequences[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSequenceNotFound, id)
	}
	delete(s.sequences, id)
	return nil
}

// SequenceCount returns the number of live sequences.
func (s *Service) SequenceCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sequences)
}

func (s *Service) lookup(id string) (*managedSequence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	managed, ok := s.sequences[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSequenceNotFound, id)
	}
	return managed, nil
}
