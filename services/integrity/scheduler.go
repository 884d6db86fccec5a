// Copyright (C) 2026 Kodiak AI (kbrennan@kodiakai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package integrity

import "fmt"

// PositionScheduler walks a fixed cyclic position table and derives the
// checkpoint signal from the cumulative step count.
//
// The underlying cycle advances unconditionally on every step; checkpoints
// are never positions the cycle itself visits. A checkpoint fires when the
// digital root of the cumulative step count is a member of the configured
// checkpoint set.
//
// Thread Safety: NOT safe for concurrent use. Each sequence owns its own
// scheduler (one writer, no sharing).
type PositionScheduler struct {
	table       map[int]int
	checkpoints map[int]bool
	position    int
	steps       uint64
}

// NewPositionScheduler creates a scheduler from the given cycle
// configuration.
//
// Inputs:
//   - cfg: Cycle table, start position, and checkpoint set. Zero values
//     fall back to the defaults from DefaultConfig.
//
// Outputs:
//   - *PositionScheduler: Scheduler positioned at the start, step count 0.
//   - error: Non-nil if the table is not a single closed cycle containing
//     the start position, or if the checkpoint set is empty.
func NewPositionScheduler(cfg SchedulerConfig) (*PositionScheduler, error) {
	table := cfg.CycleTable
	if len(table) == 0 {
		table = defaultCycleTable()
	}
	start := cfg.StartPosition
	if start == 0 {
		start = defaultStartPosition
	}
	checkpoints := cfg.Checkpoints
	if len(checkpoints) == 0 {
		checkpoints = defaultCheckpoints()
	}

	if err := validateCycleTable(table, start); err != nil {
		return nil, err
	}

	cpSet := make(map[int]bool, len(checkpoints))
	for _, cp := range checkpoints {
		if cp < 0 || cp > 9 {
			return nil, fmt.Errorf("checkpoint %d outside digital root range [0,9]", cp)
		}
		cpSet[cp] = true
	}

	return &PositionScheduler{
		table:       table,
		checkpoints: cpSet,
		position:    start,
	}, nil
}

// Advance moves to the next position in the cycle and increments the
// cumulative step count. It never terminates on its own; the caller stops
// the sequence by ceasing to call it.
//
// Outputs:
//   - int: The new cycle position.
//   - uint64: The cumulative step count after the advance.
func (s *PositionScheduler) Advance() (int, uint64) {
	s.position = s.table[s.position]
	s.steps++
	return s.position, s.steps
}

// CheckpointFor reports whether the given cumulative step count lands on a
// checkpoint. The checkpoint is the digital root itself (3, 6, or 9 with
// the default set), a derived signal rather than a cycle state.
//
// Outputs:
//   - int: The checkpoint position, 0 when none fired.
//   - bool: True when a checkpoint fired.
func (s *PositionScheduler) CheckpointFor(stepCount uint64) (int, bool) {
	root := DigitalRoot(stepCount)
	if s.checkpoints[root] {
		return root, true
	}
	return 0, false
}

// Position returns the current cycle position without advancing.
func (s *PositionScheduler) Position() int {
	return s.position
}

// Steps returns the cumulative step count.
func (s *PositionScheduler) Steps() uint64 {
	return s.steps
}

// DigitalRoot reduces a non-negative integer to a single digit by repeated
// digit summing. DigitalRoot(0) is 0; all results are in [0,9].
func DigitalRoot(n uint64) int {
	for n > 9 {
		var sum uint64
		for n > 0 {
			sum += n % 10
			n /= 10
		}
		n = sum
	}
	return int(n)
}

// validateCycleTable checks that the table forms a single closed cycle
// reachable from start. A broken table would stall the scheduler on an
// unmapped position.
func validateCycleTable(table map[int]int, start int) error {
	if _, ok := table[start]; !ok {
		return fmt.Errorf("start position %d not in cycle table", start)
	}
	seen := make(map[int]bool, len(table))
	pos := start
	for range table {
		next, ok := table[pos]
		if !ok {
			return fmt.Errorf("cycle table has no transition from position %d", pos)
		}
		if seen[pos] {
			return fmt.Errorf("cycle table revisits position %d before closing", pos)
		}
		seen[pos] = true
		pos = next
	}
	if pos != start {
		return fmt.Errorf("cycle table does not close: walk of %d steps ends at %d, not %d",
			len(table), pos, start)
	}
	return nil
}
