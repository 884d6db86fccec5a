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

import (
	"math"
	"testing"
)

func testIntervener(t *testing.T) *Intervener {
	t.Helper()
	cfg := DefaultAnalyzerConfig()
	cfg.MinSamples = 2
	return NewIntervener(nil, NewAnalyzer(&cfg))
}

func fillWindow(t *testing.T, conf float64, ctxVec, fcVec ChannelVector) *SignalWindow {
	t.Helper()
	w, err := NewSignalWindow(8, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 4; i++ {
		w.Push(ReasoningUnit{Channels: ctxVec, Confidence: conf})
	}
	for i := 0; i < 2; i++ {
		w.Push(ReasoningUnit{Channels: fcVec, Confidence: conf})
	}
	return w
}

func TestIntervener_Intervene_NoAction(t *testing.T) {
	iv := testIntervener(t)
	counter, _ := NewDepthCounter(100)
	stable := ChannelVector{0.5, 0.3, 0.2}
	w := fillWindow(t, 0.9, stable, stable)

	record := iv.Intervene("seq-1", 6, 6, counter, w, false)

	if record.Action() != ActionNone {
		t.Errorf("expected no_action, got %s", record.Action())
	}
	if record.Classification != ClassNormal {
		t.Errorf("expected normal, got %s", record.Classification)
	}
	if record.SequenceID != "seq-1" || record.Position != 6 || record.StepIndex != 6 {
		t.Errorf("unexpected record identity: %+v", record)
	}
	if record.At.IsZero() {
		t.Error("expected record timestamp")
	}
}

func TestIntervener_Intervene_CounterReset(t *testing.T) {
	iv := testIntervener(t)
	counter, _ := NewDepthCounter(10)
	for i := 0; i < 10; i++ {
		if err := counter.Increment(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	stable := ChannelVector{0.5, 0.3, 0.2}
	w := fillWindow(t, 0.9, stable, stable)

	record := iv.Intervene("seq-1", 9, 9, counter, w, false)

	if !record.Has(ActionResetCounter) {
		t.Fatalf("expected reset_counter, got %v", record.Actions)
	}
	if record.RiskBefore != RiskImminent {
		t.Errorf("expected risk before imminent, got %s", record.RiskBefore)
	}
	if record.RiskAfter != RiskSafe {
		t.Errorf("expected risk after safe, got %s", record.RiskAfter)
	}
	if counter.Depth() != 0 {
		t.Errorf("expected counter reset, got depth %d", counter.Depth())
	}
}

func TestIntervener_Intervene_Correction(t *testing.T) {
	iv := testIntervener(t)
	counter, _ := NewDepthCounter(100)
	ctxVec := ChannelVector{0.8, 0.1, 0.1}
	fcVec := ChannelVector{0.1, 0.1, 0.8}
	w := fillWindow(t, 0.3, ctxVec, fcVec)

	before := *w.Latest()
	record := iv.Intervene("seq-1", 3, 3, counter, w, false)

	if record.Classification != ClassHallucinating {
		t.Fatalf("expected hallucinating, got %s", record.Classification)
	}
	if !record.Has(ActionConfidenceBoost) || !record.Has(ActionFlagHallucination) {
		t.Fatalf("expected boost and flag actions, got %v", record.Actions)
	}

	latest := w.Latest()
	if !latest.Flagged {
		t.Error("expected corrected unit to be flagged")
	}
	if latest.Confidence <= before.Confidence {
		t.Errorf("expected confidence boost, got %f -> %f", before.Confidence, latest.Confidence)
	}
	if record.ConfidenceBefore != before.Confidence || record.ConfidenceAfter != latest.Confidence {
		t.Errorf("record confidence mismatch: %+v", record)
	}

	// The corrected vector still sums to 1 and has moved toward the
	// context distribution.
	if math.Abs(latest.Channels.Sum()-1) > 1e-9 {
		t.Errorf("corrected vector sum = %f, want 1", latest.Channels.Sum())
	}
	if latest.Channels[0] <= before.Channels[0] {
		t.Errorf("expected channel 0 pulled up toward context, got %f -> %f",
			before.Channels[0], latest.Channels[0])
	}
	if latest.Channels[2] >= before.Channels[2] {
		t.Errorf("expected channel 2 pulled down toward context, got %f -> %f",
			before.Channels[2], latest.Channels[2])
	}
}

func TestIntervener_Intervene_WeakIsNotCorrected(t *testing.T) {
	iv := testIntervener(t)
	counter, _ := NewDepthCounter(100)
	stable := ChannelVector{0.5, 0.3, 0.2}
	w := fillWindow(t, 0.3, stable, stable)

	record := iv.Intervene("seq-1", 3, 3, counter, w, false)

	if record.Classification != ClassWeak {
		t.Fatalf("expected weak, got %s", record.Classification)
	}
	if record.Action() != ActionNone {
		t.Errorf("expected no correction for weak, got %v", record.Actions)
	}
	if w.Latest().Flagged {
		t.Error("weak unit must not be flagged")
	}
}

func TestIntervener_ForcedReset(t *testing.T) {
	iv := testIntervener(t)
	counter, _ := NewDepthCounter(5)
	for i := 0; i < 5; i++ {
		if err := counter.Increment(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	stable := ChannelVector{0.5, 0.3, 0.2}
	w := fillWindow(t, 0.9, stable, stable)

	record := iv.ForcedReset("seq-1", 5, 41, counter, w)

	if record.Action() != ActionForcedOverflowReset {
		t.Fatalf("expected forced_overflow_reset, got %v", record.Actions)
	}
	if record.Classification != "" {
		t.Errorf("forced reset runs no analysis, got classification %s", record.Classification)
	}
	if counter.Depth() != 0 {
		t.Errorf("expected counter reset, got depth %d", counter.Depth())
	}
	if record.RiskBefore != RiskImminent || record.RiskAfter != RiskSafe {
		t.Errorf("unexpected risk transition: %s -> %s", record.RiskBefore, record.RiskAfter)
	}
}
