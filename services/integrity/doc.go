// Copyright (C) 2026 Kodiak AI (kbrennan@kodiakai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package integrity implements the per-sequence context-integrity engine.
//
// The engine is a safety layer that runs alongside a reasoning pipeline.
// For every reasoning step it:
//
//  1. Validates and admits the step's ReasoningUnit into a fixed-capacity
//     SignalWindow of recent history.
//  2. Increments a bounded DepthCounter with checked, non-wrapping
//     arithmetic and classifies its proximity to overflow.
//  3. Advances a deterministic six-position cycle (PositionScheduler) and
//     derives a checkpoint signal from the digital root of the cumulative
//     step count.
//  4. At checkpoint steps, compares recent output against accumulated
//     history (Analyzer) and, when the window is drifting, applies a
//     configured correction to the newest unit (Intervener), emitting an
//     InterventionRecord to a caller-owned append-only audit log.
//
// The checkpoint set {3, 6, 9} and the 1→2→4→8→7→5 cycle are retained as a
// deterministic sampling policy for when to run the divergence check. They
// carry no mathematical claim and are exposed as configuration.
//
// # Ownership and Concurrency
//
// A Sequence owns its scheduler, counter, and window exclusively. Every
// operation is synchronous, CPU-bound, and non-blocking; the core performs
// no I/O. Independent sequences may run in parallel because they share no
// mutable state. Cross-sequence aggregation of InterventionRecords happens
// through per-sequence channels consumed by a single reader (see the
// monitor package), never through shared mutation of core state.
package integrity
