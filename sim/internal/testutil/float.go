// Package testutil provides shared assertion helpers for the simulator's test
// packages. It has no dependency on sim/ so that in-package tests may import it.
package testutil

import (
	"math"
	"testing"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertNonOverlapping fails if any two half-open [start, end) intervals overlap.
func AssertNonOverlapping(t *testing.T, name string, starts, ends []float64) {
	t.Helper()
	if len(starts) != len(ends) {
		t.Fatalf("%s: %d starts but %d ends", name, len(starts), len(ends))
	}
	for i := range starts {
		for j := i + 1; j < len(starts); j++ {
			if starts[i] < ends[j] && starts[j] < ends[i] {
				t.Errorf("%s: interval %d [%v,%v) overlaps interval %d [%v,%v)",
					name, i, starts[i], ends[i], j, starts[j], ends[j])
			}
		}
	}
}
