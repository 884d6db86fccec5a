// Copyright (C) 2026 Kodiak AI (kbrennan@kodiakai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package monitor

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KodiakAI/KodiakGuard/pkg/logging"
	"github.com/KodiakAI/KodiakGuard/services/integrity"
	"github.com/KodiakAI/KodiakGuard/services/integrity/audit"
)

func record(seqID string, stepIndex uint64) integrity.InterventionRecord {
	return integrity.InterventionRecord{
		SequenceID: seqID,
		Position:   3,
		StepIndex:  stepIndex,
		Actions:    []integrity.Action{integrity.ActionNone},
	}
}

func TestCollector_FanIn(t *testing.T) {
	store := audit.NewMemoryStore()
	collector := NewCollector(store, DefaultConfig())
	collector.Start(context.Background())

	const sequences = 8
	const perSequence = 50

	var wg sync.WaitGroup
	for s := 0; s < sequences; s++ {
		wg.Add(1)
		go func(s int) {
			defer wg.Done()
			sink := collector.Sink()
			seqID := fmt.Sprintf("seq-%d", s)
			for i := uint64(1); i <= perSequence; i++ {
				if err := sink.Emit(context.Background(), record(seqID, i)); err != nil {
					t.Errorf("emit: %v", err)
					return
				}
			}
		}(s)
	}
	wg.Wait()
	require.NoError(t, collector.Stop())

	// Every sequence's records arrived, in emission order.
	for s := 0; s < sequences; s++ {
		seqID := fmt.Sprintf("seq-%d", s)
		records, err := store.List(context.Background(), seqID)
		require.NoError(t, err)
		require.Len(t, records, perSequence, seqID)
		for i, r := range records {
			assert.Equal(t, uint64(i+1), r.StepIndex, seqID)
		}
	}
}

func TestCollector_EmitAfterStop(t *testing.T) {
	store := audit.NewMemoryStore()
	collector := NewCollector(store, Config{BufferSize: 4})
	collector.Start(context.Background())

	sink := collector.Sink()
	require.NoError(t, sink.Emit(context.Background(), record("seq-a", 1)))
	require.NoError(t, collector.Stop())

	err := sink.Emit(context.Background(), record("seq-a", 2))
	assert.ErrorIs(t, err, ErrCollectorClosed)

	// The pre-stop record was drained into the store.
	records, err := store.List(context.Background(), "seq-a")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCollector_ExportsPersistedRecords(t *testing.T) {
	store := audit.NewMemoryStore()
	exporter := logging.NewBufferedExporter()
	collector := NewCollector(store, Config{BufferSize: 4, Exporter: exporter})
	collector.Start(context.Background())

	sink := collector.Sink()
	require.NoError(t, sink.Emit(context.Background(), record("seq-a", 1)))
	require.NoError(t, sink.Emit(context.Background(), record("seq-a", 2)))
	require.NoError(t, collector.Stop())

	entries := exporter.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "intervention", entries[0].Message)
	assert.Equal(t, "seq-a", entries[0].Attrs["sequence_id"])
	assert.Equal(t, uint64(1), entries[0].Attrs["step_index"])
	assert.Equal(t, uint64(2), entries[1].Attrs["step_index"])
	assert.Equal(t, string(integrity.ActionNone), entries[1].Attrs["action"])
}

func TestCollector_StopIsIdempotent(t *testing.T) {
	collector := NewCollector(audit.NewMemoryStore(), DefaultConfig())
	collector.Start(context.Background())
	require.NoError(t, collector.Stop())
	require.NoError(t, collector.Stop())
}

func TestCollector_EmitCancelled(t *testing.T) {
	// Unstarted collector with a zero-capacity path: fill the buffer and
	// cancel the next emit.
	collector := NewCollector(audit.NewMemoryStore(), Config{BufferSize: 1})
	sink := collector.Sink()

	require.NoError(t, sink.Emit(context.Background(), record("seq-a", 1)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sink.Emit(ctx, record("seq-a", 2))
	assert.ErrorIs(t, err, context.Canceled)

	collector.Start(context.Background())
	require.NoError(t, collector.Stop())
}
