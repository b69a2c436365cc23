// Package detector implements the frequency/outlier technique: IQR fences
// over historical data, Freedman-Diaconis histogram bin-support lookups,
// and whitelist/blacklist set comparisons for non-numeric attributes.
package detector

import (
	"math"
	"sort"
)

// quartiles computes Q1 and Q3 of sorted data using linear interpolation
// between closest ranks.
func quartiles(sorted []float64) (q1, q3 float64) {
	return percentile(sorted, 25), percentile(sorted, 75)
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Fences holds the Tukey fence bounds and observed extremes computed over
// a historical data set.
type Fences struct {
	Q1, Q3, IQR  float64
	Lower, Upper float64
	Min, Max     float64
}

// ComputeFences computes Q1, Q3, IQR, and the Tukey fences over data,
// which need not be pre-sorted.
func ComputeFences(data []float64) Fences {
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)

	q1, q3 := quartiles(sorted)
	iqr := q3 - q1
	f := Fences{
		Q1: q1, Q3: q3, IQR: iqr,
		Lower: q1 - 1.5*iqr,
		Upper: q3 + 1.5*iqr,
	}
	if len(sorted) > 0 {
		f.Min = sorted[0]
		f.Max = sorted[len(sorted)-1]
	}
	return f
}

// Histogram is the Freedman-Diaconis-binned view of a historical data set,
// queryable by point to find the containing bin's occupancy.
type Histogram struct {
	edges  []float64
	counts []int
}

// BuildHistogram bins data using the Freedman-Diaconis rule:
// bin width = 2 * IQR * n^(-1/3). Falls back to a single bin spanning the
// full data range when the rule yields a non-positive width (e.g. IQR is
// zero, a degenerate but valid historical set).
func BuildHistogram(data []float64, iqr float64) Histogram {
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	if len(sorted) == 0 {
		return Histogram{}
	}

	lo, hi := sorted[0], sorted[len(sorted)-1]
	width := 2 * iqr * math.Pow(float64(len(sorted)), -1.0/3.0)
	if width <= 0 || hi <= lo {
		return Histogram{edges: []float64{lo, hi}, counts: []int{len(sorted)}}
	}

	numBins := int(math.Ceil((hi - lo) / width))
	if numBins < 1 {
		numBins = 1
	}
	edges := make([]float64, numBins+1)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[numBins] = hi // ensure the last edge always covers the max

	counts := make([]int, numBins)
	for _, v := range sorted {
		idx := binIndex(edges, v)
		if idx >= 0 {
			counts[idx]++
		}
	}
	return Histogram{edges: edges, counts: counts}
}

// binIndex returns the index of the half-open bin [edges[i], edges[i+1])
// containing v, with the final bin closed on both ends so the maximum
// value is counted. Returns -1 if v lies outside every bin.
func binIndex(edges []float64, v float64) int {
	n := len(edges) - 1
	for i := 0; i < n; i++ {
		if v >= edges[i] && (v < edges[i+1] || i == n-1 && v <= edges[i+1]) {
			return i
		}
	}
	return -1
}

// Count returns the occupancy of the bin containing x, or zero if x lies
// outside every bin.
func (h Histogram) Count(x float64) int {
	idx := binIndex(h.edges, x)
	if idx < 0 {
		return 0
	}
	return h.counts[idx]
}
