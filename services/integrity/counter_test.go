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
	"errors"
	"testing"
)

func TestNewDepthCounter(t *testing.T) {
	t.Run("zero max is rejected", func(t *testing.T) {
		if _, err := NewDepthCounter(0); err == nil {
			t.Fatal("expected error for max 0")
		}
	})

	t.Run("starts at zero", func(t *testing.T) {
		c, err := NewDepthCounter(100)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Depth() != 0 {
			t.Errorf("expected depth 0, got %d", c.Depth())
		}
		if c.Max() != 100 {
			t.Errorf("expected max 100, got %d", c.Max())
		}
	})
}

func TestDepthCounter_Increment(t *testing.T) {
	c, err := NewDepthCounter(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := uint64(1); i <= 3; i++ {
		if err := c.Increment(); err != nil {
			t.Fatalf("increment %d: unexpected error: %v", i, err)
		}
		if c.Depth() != i {
			t.Errorf("increment %d: expected depth %d, got %d", i, i, c.Depth())
		}
	}

	// At max, further increments fail and never wrap.
	for i := 0; i < 5; i++ {
		err := c.Increment()
		if !errors.Is(err, ErrOverflowExceeded) {
			t.Fatalf("expected ErrOverflowExceeded, got %v", err)
		}
		if c.Depth() != 3 {
			t.Errorf("expected depth pinned at 3, got %d", c.Depth())
		}
	}

	// Reset recovers the counter.
	if prior := c.Reset(); prior != 3 {
		t.Errorf("expected reset to return 3, got %d", prior)
	}
	if c.Depth() != 0 {
		t.Errorf("expected depth 0 after reset, got %d", c.Depth())
	}
	if err := c.Increment(); err != nil {
		t.Errorf("expected increment to succeed after reset, got %v", err)
	}
}

func TestDepthCounter_RiskTier(t *testing.T) {
	cases := []struct {
		depth uint64
		want  RiskTier
	}{
		{0, RiskSafe},
		{49, RiskSafe},
		{50, RiskWarning},
		{89, RiskWarning},
		{90, RiskCritical},
		{98, RiskCritical},
		{99, RiskImminent},
		{100, RiskImminent},
	}
	for _, tc := range cases {
		c, err := NewDepthCounter(100)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i := uint64(0); i < tc.depth; i++ {
			if err := c.Increment(); err != nil {
				t.Fatalf("depth %d: unexpected error: %v", tc.depth, err)
			}
		}
		if got := c.RiskTier(); got != tc.want {
			t.Errorf("depth %d: expected tier %s, got %s", tc.depth, tc.want, got)
		}
	}
}
