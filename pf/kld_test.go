// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package pf

import "testing"

func TestKldLimitSmallKReturnsMin(t *testing.T) {
	for _, k := range []int{0, 1} {
		if got := kldLimit(k, 50, 5000, 0.01, 2.33); got != 50 {
			t.Errorf("kldLimit(%d,...) = %d, want 50", k, got)
		}
	}
}

func TestKldLimitGrowsWithK(t *testing.T) {
	prev := kldLimit(2, 10, 100000, 0.01, 2.33)
	for _, k := range []int{5, 20, 100, 500} {
		got := kldLimit(k, 10, 100000, 0.01, 2.33)
		if got < prev {
			t.Fatalf("kldLimit(%d,...) = %d, not >= previous %d", k, got, prev)
		}
		prev = got
	}
}

func TestKldLimitClampsToMax(t *testing.T) {
	if got := kldLimit(100000, 10, 500, 0.01, 2.33); got != 500 {
		t.Errorf("kldLimit with huge k = %d, want clamp to 500", got)
	}
}

func TestKldLimitScaledIsSmallerThanPlain(t *testing.T) {
	// A 5x larger denominator must never produce a larger cutoff.
	plain := kldLimitScaled(50, 10, 100000, 2, 0.01, 2.33)
	scaled := kldLimitScaled(50, 10, 100000, 10, 0.01, 2.33)
	if scaled > plain {
		t.Errorf("scaled cutoff %d > plain cutoff %d", scaled, plain)
	}
}
