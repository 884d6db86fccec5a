// Copyright (C) 2026 Kodiak AI (kbrennan@kodiakai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package monitor fans intervention records from many sequences into one
// audit store. A single consumer goroutine does all store writes, so the
// store sees records in a total order that preserves each sequence's
// emission order without any locking in the sequences themselves.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/KodiakAI/KodiakGuard/pkg/logging"
	"github.com/KodiakAI/KodiakGuard/services/integrity"
	"github.com/KodiakAI/KodiakGuard/services/integrity/audit"
)

// ErrCollectorClosed is returned by sinks after the collector has stopped
// accepting records.
var ErrCollectorClosed = errors.New("collector is closed")

// Config holds collector configuration.
type Config struct {
	// BufferSize is the channel capacity between producing sequences and
	// the consumer. Producers block once the buffer fills.
	// Default: 256
	BufferSize int

	// Logger for consumer errors. Nil uses the default logger.
	Logger *logging.Logger

	// Exporter optionally receives one log entry per persisted record,
	// giving deployments a second audit feed (file, cloud sink) without
	// touching the store. The collector flushes it on Stop; closing it
	// stays with the caller. Nil disables export.
	Exporter logging.LogExporter
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{BufferSize: 256}
}

// Collector is the fan-in point between sequences and the audit store.
//
// # Thread Safety
//
// Safe for concurrent use: any number of sequences may emit through sinks
// concurrently. The audit store is only ever touched by the consumer
// goroutine.
type Collector struct {
	store    audit.Store
	logger   *logging.Logger
	exporter logging.LogExporter
	ch       chan integrity.InterventionRecord

	group   *errgroup.Group
	started bool

	// mu guards closed. Emits hold the read lock across the channel send
	// so Stop cannot close the channel under an in-flight send.
	mu     sync.RWMutex
	closed bool
}

// NewCollector creates a collector writing to the given store.
func NewCollector(store audit.Store, cfg Config) *Collector {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Collector{
		store:    store,
		logger:   logger,
		exporter: cfg.Exporter,
		ch:       make(chan integrity.InterventionRecord, cfg.BufferSize),
	}
}

// Start launches the consumer goroutine. Must be called once before any
// sink emits.
func (c *Collector) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true

	c.group, ctx = errgroup.WithContext(ctx)
	c.group.Go(func() error {
		return c.consume(ctx)
	})
}

// consume drains the channel into the store until the channel closes.
// Store errors are logged and counted, never fatal: losing an audit write
// must not take down record collection for every other sequence.
func (c *Collector) consume(ctx context.Context) error {
	for record := range c.ch {
		if err := c.store.Append(ctx, record); err != nil {
			c.logger.Error("audit append failed",
				"sequence_id", record.SequenceID,
				"step_index", record.StepIndex,
				"error", err)
			continue
		}
		if c.exporter != nil {
			// Export failures are logged but never block collection.
			if err := c.exporter.Export(ctx, exportEntry(record)); err != nil {
				c.logger.Warn("audit export failed",
					"sequence_id", record.SequenceID,
					"step_index", record.StepIndex,
					"error", err)
			}
		}
	}
	return nil
}

// exportEntry converts a persisted record into a log entry for the
// configured exporter.
func exportEntry(record integrity.InterventionRecord) logging.LogEntry {
	return logging.LogEntry{
		Timestamp: record.At,
		Level:     logging.LevelInfo,
		Message:   "intervention",
		Service:   "monitor",
		Attrs: map[string]any{
			"sequence_id":    record.SequenceID,
			"position":       record.Position,
			"step_index":     record.StepIndex,
			"action":         string(record.Action()),
			"classification": string(record.Classification),
			"divergence":     record.Divergence,
			"risk_before":    string(record.RiskBefore),
			"risk_after":     string(record.RiskAfter),
		},
	}
}

// Stop closes the intake, waits for the consumer to drain the buffer, and
// returns any consumer error. Sinks emitting after Stop receive
// ErrCollectorClosed.
func (c *Collector) Stop() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.ch)
	started := c.started
	c.mu.Unlock()

	if !started {
		return nil
	}
	err := c.group.Wait()

	if c.exporter != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if flushErr := c.exporter.Flush(flushCtx); flushErr != nil && err == nil {
			err = fmt.Errorf("flush audit exporter: %w", flushErr)
		}
	}
	return err
}

// Sink returns a RecordSink feeding this collector. Every sequence gets
// its own sink value, but all sinks share the one intake channel.
func (c *Collector) Sink() integrity.RecordSink {
	return &collectorSink{collector: c}
}

type collectorSink struct {
	collector *Collector
}

// Emit implements integrity.RecordSink. It blocks while the buffer is
// full and gives up when the context is cancelled.
func (s *collectorSink) Emit(ctx context.Context, record integrity.InterventionRecord) error {
	c := s.collector

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrCollectorClosed
	}

	select {
	case c.ch <- record:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("emit intervention record: %w", ctx.Err())
	}
}
