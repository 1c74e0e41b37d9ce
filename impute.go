package mpmprep

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ImputeGrid replaces every nodata cell with a statistic of the finite
// population (or a user value). The output pair is re-normalized so the
// sentinel stays collision free.
func ImputeGrid(g Grid, spec ImputeSpec) (Grid, error) {
	finite := g.finite()
	if len(finite) == 0 {
		return Grid{}, fmt.Errorf("impute: %w", ErrDegenerateInput)
	}
	var fill float64
	switch spec.Method {
	case ImputeMin:
		fill = minOf(finite)
	case ImputeMax:
		fill = maxOf(finite)
	case ImputeMean:
		fill = stat.Mean(finite, nil)
	case ImputeMedian:
		sorted := append([]float64(nil), finite...)
		sort.Float64s(sorted)
		fill = percentileOf(sorted, 0.5)
	case ImputeZero:
		fill = 0
	case ImputeCustom:
		if spec.CustomValue == nil {
			return Grid{}, fmt.Errorf("%w: custom impute without custom_value", ErrConfiguration)
		}
		fill = *spec.CustomValue
	default:
		return Grid{}, fmt.Errorf("%w: unknown impute method", ErrConfiguration)
	}
	out := Grid{Data: g.masked(), Meta: g.Meta.WithDType(DTFloat64, g.Meta.NoData)}
	for i, v := range out.Data {
		if math.IsNaN(v) {
			out.Data[i] = fill
		}
	}
	return Normalize(out, g.Meta.NoData)
}

func minOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
