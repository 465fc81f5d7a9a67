// Package testutil provides shared assertion helpers for the breeding
// simulator's test packages.
package testutil

import (
	"math"
	"testing"
)

// AssertFloat64Equal fails the test if want and got differ by more than
// relTol relative to the larger magnitude.
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

// AssertWithin fails the test if got lies outside [want−absTol, want+absTol].
// Statistical checks use it with tolerances looser than their pass criteria.
func AssertWithin(t *testing.T, name string, want, got, absTol float64) {
	t.Helper()
	if math.IsNaN(got) || math.Abs(want-got) > absTol {
		t.Errorf("%s: got %v, want %v ± %v", name, got, want, absTol)
	}
}

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}
