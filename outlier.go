package mpmprep

import (
	"fmt"
	"math"
	"sort"
)

// ClipOutliersIQR clamps outliers by Tukey fences: values below Q1-k*IQR are
// replaced with the 5th percentile of the population, values above Q3+k*IQR
// with the 95th. The substitution values are the percentiles, not the fences
// themselves.
func ClipOutliersIQR(g Grid, k float64) (Grid, error) {
	finite := g.finite()
	if len(finite) == 0 {
		return Grid{}, fmt.Errorf("outlier clamp: %w", ErrDegenerateInput)
	}
	sorted := append([]float64(nil), finite...)
	sort.Float64s(sorted)

	q1 := percentileOf(sorted, 0.25)
	q3 := percentileOf(sorted, 0.75)
	iqr := q3 - q1
	lowerFence := q1 - k*iqr
	upperFence := q3 + k*iqr
	p5 := percentileOf(sorted, 0.05)
	p95 := percentileOf(sorted, 0.95)

	out := Grid{Data: g.masked(), Meta: g.Meta.WithDType(DTFloat64, g.Meta.NoData)}
	for i, v := range out.Data {
		if math.IsNaN(v) {
			continue
		}
		if v < lowerFence {
			out.Data[i] = p5
		} else if v > upperFence {
			out.Data[i] = p95
		}
	}
	return Normalize(out, g.Meta.NoData)
}

// percentileOf is the linearly interpolated p-th quantile of an ascending
// population, at fractional rank h = (n-1)*p between neighbouring samples.
// gonum的stat.Quantile插值定义不同，不能混用
func percentileOf(sorted []float64, p float64) float64 {
	n := len(sorted)
	h := float64(n-1) * p
	k := int(math.Floor(h))
	if k >= n-1 {
		return sorted[n-1]
	}
	return sorted[k] + (h-float64(k))*(sorted[k+1]-sorted[k])
}
