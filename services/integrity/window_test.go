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

import "testing"

func unitAt(depth uint64) ReasoningUnit {
	return ReasoningUnit{
		Channels:         ChannelVector{0.5, 0.3, 0.2},
		Confidence:       0.8,
		CalculationDepth: depth,
	}
}

func TestNewSignalWindow(t *testing.T) {
	t.Run("capacity below 2 is rejected", func(t *testing.T) {
		if _, err := NewSignalWindow(1, 1); err == nil {
			t.Fatal("expected error for capacity 1")
		}
	})

	t.Run("forecast must leave room for context", func(t *testing.T) {
		if _, err := NewSignalWindow(4, 4); err == nil {
			t.Fatal("expected error for forecast equal to capacity")
		}
		if _, err := NewSignalWindow(4, 0); err == nil {
			t.Fatal("expected error for forecast 0")
		}
	})
}

func TestSignalWindow_Views(t *testing.T) {
	w, err := NewSignalWindow(6, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Warmup: with at most k units everything is forecast, no context yet.
	w.Push(unitAt(1))
	if got := w.ContextSlice(); got != nil {
		t.Errorf("expected nil context during warmup, got %d units", len(got))
	}
	if got := w.ForecastSlice(); len(got) != 1 {
		t.Errorf("expected forecast of 1 during warmup, got %d", len(got))
	}

	w.Push(unitAt(2))
	w.Push(unitAt(3))
	if got := w.ContextSlice(); len(got) != 1 || got[0].CalculationDepth != 1 {
		t.Errorf("expected context [1], got %v", got)
	}
	fc := w.ForecastSlice()
	if len(fc) != 2 || fc[0].CalculationDepth != 2 || fc[1].CalculationDepth != 3 {
		t.Errorf("expected forecast [2 3], got %v", fc)
	}
}

func TestSignalWindow_Eviction(t *testing.T) {
	w, err := NewSignalWindow(4, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Push well past capacity, across several internal compactions, and
	// check ordering survives.
	for i := uint64(1); i <= 25; i++ {
		w.Push(unitAt(i))
		if w.Len() > 4 {
			t.Fatalf("window grew past capacity: %d", w.Len())
		}
	}
	if w.Len() != 4 {
		t.Fatalf("expected full window, got %d", w.Len())
	}

	ctx := w.ContextSlice()
	if len(ctx) != 3 {
		t.Fatalf("expected context of 3, got %d", len(ctx))
	}
	for i, want := range []uint64{22, 23, 24} {
		if ctx[i].CalculationDepth != want {
			t.Errorf("context[%d]: expected depth %d, got %d", i, want, ctx[i].CalculationDepth)
		}
	}
	fc := w.ForecastSlice()
	if len(fc) != 1 || fc[0].CalculationDepth != 25 {
		t.Errorf("expected forecast [25], got %v", fc)
	}
}

func TestSignalWindow_Latest(t *testing.T) {
	w, err := NewSignalWindow(4, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Latest() != nil {
		t.Fatal("expected nil latest on empty window")
	}

	w.Push(unitAt(1))
	w.Push(unitAt(2))

	latest := w.Latest()
	if latest == nil || latest.CalculationDepth != 2 {
		t.Fatalf("expected latest depth 2, got %v", latest)
	}

	// In-place mutation through the pointer is visible in the views.
	latest.Flagged = true
	fc := w.ForecastSlice()
	if !fc[len(fc)-1].Flagged {
		t.Error("expected mutation through Latest to be visible in forecast view")
	}
}
