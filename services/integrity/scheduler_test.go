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

func TestNewPositionScheduler(t *testing.T) {
	t.Run("zero config uses defaults", func(t *testing.T) {
		s, err := NewPositionScheduler(SchedulerConfig{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Position() != 1 {
			t.Errorf("expected start position 1, got %d", s.Position())
		}
		if s.Steps() != 0 {
			t.Errorf("expected step count 0, got %d", s.Steps())
		}
	})

	t.Run("start position outside table is rejected", func(t *testing.T) {
		_, err := NewPositionScheduler(SchedulerConfig{
			CycleTable:    map[int]int{1: 2, 2: 1},
			StartPosition: 3,
		})
		if err == nil {
			t.Fatal("expected error for start position not in table")
		}
	})

	t.Run("open table is rejected", func(t *testing.T) {
		_, err := NewPositionScheduler(SchedulerConfig{
			CycleTable:    map[int]int{1: 2, 2: 3, 3: 2},
			StartPosition: 1,
		})
		if err == nil {
			t.Fatal("expected error for table that revisits before closing")
		}
	})

	t.Run("checkpoint outside digital root range is rejected", func(t *testing.T) {
		_, err := NewPositionScheduler(SchedulerConfig{Checkpoints: []int{3, 10}})
		if err == nil {
			t.Fatal("expected error for checkpoint 10")
		}
	})
}

func TestPositionScheduler_Advance(t *testing.T) {
	s, err := NewPositionScheduler(SchedulerConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []int{2, 4, 8, 7, 5, 1}
	for i, expected := range want {
		pos, steps := s.Advance()
		if pos != expected {
			t.Errorf("advance %d: expected position %d, got %d", i+1, expected, pos)
		}
		if steps != uint64(i+1) {
			t.Errorf("advance %d: expected step count %d, got %d", i+1, i+1, steps)
		}
	}

	// After one full cycle the walk is back at the start.
	if s.Position() != 1 {
		t.Errorf("expected position 1 after full cycle, got %d", s.Position())
	}

	// The cycle repeats identically.
	for _, expected := range want {
		pos, _ := s.Advance()
		if pos != expected {
			t.Errorf("second cycle: expected position %d, got %d", expected, pos)
		}
	}
}

func TestPositionScheduler_CheckpointFor(t *testing.T) {
	s, err := NewPositionScheduler(SchedulerConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		step uint64
		want int
		fire bool
	}{
		{1, 0, false},
		{2, 0, false},
		{3, 3, true},
		{4, 0, false},
		{6, 6, true},
		{9, 9, true},
		{12, 3, true},  // 1+2
		{15, 6, true},  // 1+5
		{18, 9, true},  // 1+8
		{100, 0, false},
		{102, 3, true},
	}
	for _, tc := range cases {
		got, fired := s.CheckpointFor(tc.step)
		if fired != tc.fire || got != tc.want {
			t.Errorf("CheckpointFor(%d) = (%d, %v), want (%d, %v)",
				tc.step, got, fired, tc.want, tc.fire)
		}
	}
}

func TestPositionScheduler_CheckpointNeverInCycle(t *testing.T) {
	// The checkpoint positions are derived signals; the default cycle must
	// never visit them.
	s, err := NewPositionScheduler(SchedulerConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkpoints := map[int]bool{3: true, 6: true, 9: true}
	for i := 0; i < 100; i++ {
		pos, _ := s.Advance()
		if checkpoints[pos] {
			t.Fatalf("cycle visited checkpoint position %d at step %d", pos, i+1)
		}
	}
}

func TestDigitalRoot(t *testing.T) {
	cases := []struct {
		n    uint64
		want int
	}{
		{0, 0},
		{1, 1},
		{9, 9},
		{10, 1},
		{18, 9},
		{19, 1},
		{99, 9},
		{123, 6},
		{123456789, 9},
	}
	for _, tc := range cases {
		if got := DigitalRoot(tc.n); got != tc.want {
			t.Errorf("DigitalRoot(%d) = %d, want %d", tc.n, got, tc.want)
		}
	}

	// Digital root of n>0 equals 1+((n-1) mod 9); verify against the
	// closed form across a range including the uint64 maximum.
	check := func(n uint64) {
		want := int(1 + (n-1)%9)
		if got := DigitalRoot(n); got != want {
			t.Errorf("DigitalRoot(%d) = %d, want %d", n, got, want)
		}
	}
	for n := uint64(1); n <= 1000; n++ {
		check(n)
	}
	check(18446744073709551615)
}
