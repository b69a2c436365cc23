package detector

import "testing"

func TestComputeFencesOnKnownData(t *testing.T) {
	data := []float64{100, 110, 95, 105, 120, 98, 102, 107, 99, 101}
	f := ComputeFences(data)
	if f.Min != 95 || f.Max != 120 {
		t.Errorf("Min/Max = %v/%v, want 95/120", f.Min, f.Max)
	}
	if f.Lower >= f.Q1 || f.Upper <= f.Q3 {
		t.Errorf("fences should bracket the quartiles: lower=%v q1=%v q3=%v upper=%v", f.Lower, f.Q1, f.Q3, f.Upper)
	}
}

func TestComputeFencesSingleValue(t *testing.T) {
	f := ComputeFences([]float64{42})
	if f.Q1 != 42 || f.Q3 != 42 || f.IQR != 0 {
		t.Errorf("single-value fences = %+v", f)
	}
}

func TestBuildHistogramEveryPointLandsInABin(t *testing.T) {
	data := []float64{100, 110, 95, 105, 120, 98, 102, 107, 99, 101}
	f := ComputeFences(data)
	h := BuildHistogram(data, f.IQR)

	for _, v := range data {
		if h.Count(v) < 1 {
			t.Errorf("Count(%v) = %d, want >= 1 (every historical point is in some bin)", v, h.Count(v))
		}
	}
	// The maximum lands in the final, both-ends-closed bin rather than
	// falling off the edge.
	if h.Count(120) < 1 {
		t.Errorf("Count(max) = %d, want >= 1", h.Count(120))
	}
}

func TestHistogramCountOutsideRangeIsZero(t *testing.T) {
	data := []float64{100, 110, 95, 105, 120, 98, 102, 107, 99, 101}
	f := ComputeFences(data)
	h := BuildHistogram(data, f.IQR)
	if got := h.Count(1_000_000); got != 0 {
		t.Errorf("Count(far outlier) = %d, want 0", got)
	}
}

func TestBuildHistogramDegenerateIQRFallsBackToSingleBin(t *testing.T) {
	data := []float64{5, 5, 5, 5}
	h := BuildHistogram(data, 0)
	if got := h.Count(5); got != len(data) {
		t.Errorf("Count(5) = %d, want %d", got, len(data))
	}
}

func TestBuildHistogramEmptyData(t *testing.T) {
	h := BuildHistogram(nil, 0)
	if got := h.Count(0); got != 0 {
		t.Errorf("Count on empty histogram = %d, want 0", got)
	}
}
