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

// SignalWindow is a fixed-capacity ordered buffer of recent ReasoningUnits
// with ring semantics: pushing into a full window evicts the oldest unit.
// Evicted units are gone; nothing references them afterwards.
//
// The window is split into two read-only views over the same backing
// buffer: ContextSlice (established history, all but the newest k units)
// and ForecastSlice (the newest k units, the candidate state). Neither
// view copies.
//
// Thread Safety: NOT safe for concurrent use. Each sequence owns its own
// window.
type SignalWindow struct {
	// buf holds up to 2*capacity units; live units are buf[start:].
	// Eviction advances start, and a compaction copies the live region
	// back to the front once start reaches capacity, keeping Push O(1)
	// amortized while both views stay contiguous sub-slices.
	buf      []ReasoningUnit
	start    int
	capacity int
	forecast int
}

// NewSignalWindow creates a window holding at most capacity units, with
// the newest forecastSize units treated as the forecast view.
//
// Outputs:
//   - *SignalWindow: Empty window.
//   - error: Non-nil if capacity < 2 or forecastSize is not in
//     [1, capacity-1]; the context view must be able to hold at least one
//     unit once the window is warm.
func NewSignalWindow(capacity, forecastSize int) (*SignalWindow, error) {
	if capacity < 2 {
		return nil, fmt.Errorf("window capacity %d too small, need at least 2", capacity)
	}
	if forecastSize < 1 || forecastSize >= capacity {
		return nil, fmt.Errorf("forecast size %d must be in [1,%d]", forecastSize, capacity-1)
	}
	return &SignalWindow{
		buf:      make([]ReasoningUnit, 0, 2*capacity),
		capacity: capacity,
		forecast: forecastSize,
	}, nil
}

// Push appends a unit, evicting the oldest when the window is full.
// O(1) amortized.
func (w *SignalWindow) Push(u ReasoningUnit) {
	if w.Len() == w.capacity {
		w.start++
	}
	if w.start == w.capacity {
		n := copy(w.buf, w.buf[w.start:])
		w.buf = w.buf[:n]
		w.start = 0
	}
	w.buf = append(w.buf, u)
}

// Len returns the number of live units, always ≤ capacity.
func (w *SignalWindow) Len() int {
	return len(w.buf) - w.start
}

// Capacity returns the fixed window capacity.
func (w *SignalWindow) Capacity() int {
	return w.capacity
}

// ForecastSize returns the configured forecast slice size k.
func (w *SignalWindow) ForecastSize() int {
	return w.forecast
}

// ContextSlice returns the established history: all live units except the
// newest k. The returned slice is a read-only view into the window's
// buffer; it is invalidated by the next Push. Empty until more than k
// units have been admitted.
func (w *SignalWindow) ContextSlice() []ReasoningUnit {
	n := w.Len()
	if n <= w.forecast {
		return nil
	}
	return w.buf[w.start : w.start+n-w.forecast]
}

// ForecastSlice returns the newest k units (fewer while the window warms
// up). Same view semantics as ContextSlice.
func (w *SignalWindow) ForecastSlice() []ReasoningUnit {
	n := w.Len()
	k := w.forecast
	if n < k {
		k = n
	}
	return w.buf[len(w.buf)-k:]
}

// Latest returns a pointer to the most recently pushed unit so the
// intervener can correct it in place, or nil for an empty window. The
// pointer is invalidated by the next Push.
func (w *SignalWindow) Latest() *ReasoningUnit {
	if w.Len() == 0 {
		return nil
	}
	return &w.buf[len(w.buf)-1]
}
