package mpmprep

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ScaleGrid fits the selected scaler over the full finite population of the
// grid and applies it. Nodata cells pass through untouched.
func ScaleGrid(g Grid, spec ScalingSpec) (Grid, error) {
	finite := g.finite()
	if len(finite) == 0 {
		return Grid{}, fmt.Errorf("scale: %w", ErrDegenerateInput)
	}

	var apply func(v float64) float64
	switch spec.Method {
	case ScaleStandard:
		mean := stat.Mean(finite, nil)
		sd := stat.PopStdDev(finite, nil)
		if sd == 0 {
			sd = 1
		}
		apply = func(v float64) float64 { return (v - mean) / sd }
	case ScaleMinMax:
		lo, hi := DefaultScaleMin, DefaultScaleMax
		if spec.Min != nil {
			lo = *spec.Min
		}
		if spec.Max != nil {
			hi = *spec.Max
		}
		if lo >= hi {
			return Grid{}, fmt.Errorf("%w: minmax scaling needs min < max", ErrConfiguration)
		}
		dataMin, dataMax := minOf(finite), maxOf(finite)
		span := dataMax - dataMin
		if span == 0 {
			span = 1
		}
		apply = func(v float64) float64 { return (v-dataMin)/span*(hi-lo) + lo }
	case ScaleMaxAbs:
		maxAbs := 0.0
		for _, v := range finite {
			if a := math.Abs(v); a > maxAbs {
				maxAbs = a
			}
		}
		if maxAbs == 0 {
			maxAbs = 1
		}
		apply = func(v float64) float64 { return v / maxAbs }
	default:
		return Grid{}, fmt.Errorf("%w: unknown scaling method", ErrConfiguration)
	}

	out := Grid{Data: g.masked(), Meta: g.Meta.WithDType(DTFloat64, g.Meta.NoData)}
	for i, v := range out.Data {
		if !math.IsNaN(v) {
			out.Data[i] = apply(v)
		}
	}
	return Normalize(out, g.Meta.NoData)
}
