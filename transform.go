package mpmprep

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// TransformGrid applies one algebraic transform to the grid. Out-of-domain
// inputs (non-positive for log, negative for log1p/sqrt) become nodata.
// minmax and std pass a constant grid through unchanged instead of dividing
// by zero.
func TransformGrid(g Grid, method TransformMethod) (Grid, error) {
	vals := g.masked()
	switch method {
	case TransformLog:
		for i, v := range vals {
			if v <= 0 {
				vals[i] = math.NaN()
			} else {
				vals[i] = math.Log(v)
			}
		}
	case TransformLog1p:
		for i, v := range vals {
			if v < 0 {
				vals[i] = math.NaN()
			} else {
				vals[i] = math.Log1p(v)
			}
		}
	case TransformAbs:
		for i, v := range vals {
			vals[i] = math.Abs(v)
		}
	case TransformSqrt:
		for i, v := range vals {
			if v < 0 {
				vals[i] = math.NaN()
			} else {
				vals[i] = math.Sqrt(v)
			}
		}
	case TransformMinMax:
		vmin, vmax, ok := valueSpan(vals)
		if !ok {
			return Grid{}, fmt.Errorf("transform minmax: %w", ErrDegenerateInput)
		}
		if vmin != vmax {
			span := vmax - vmin
			for i, v := range vals {
				if !math.IsNaN(v) {
					vals[i] = (v - vmin) / span
				}
			}
		}
	case TransformStd:
		finite := g.finite()
		if len(finite) == 0 {
			return Grid{}, fmt.Errorf("transform std: %w", ErrDegenerateInput)
		}
		mean := stat.Mean(finite, nil)
		sd := stat.PopStdDev(finite, nil)
		if sd != 0 {
			for i, v := range vals {
				if !math.IsNaN(v) {
					vals[i] = (v - mean) / sd
				}
			}
		}
	default:
		return Grid{}, fmt.Errorf("%w: unknown transform method", ErrConfiguration)
	}
	out := Grid{Data: vals, Meta: g.Meta.WithDType(DTFloat64, g.Meta.NoData)}
	return Normalize(out, g.Meta.NoData)
}
