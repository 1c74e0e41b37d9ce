package mpmprep

import (
	"math"
)

// Normalize re-derives the minimal internally consistent (dtype, nodata) pair
// for a grid. The candidate sentinel is kept when it cannot collide with the
// data, widened otherwise; masked (NaN) cells come out as the resolved
// sentinel. Normalize is idempotent for a fixed candidate.
func Normalize(g Grid, candidate float64) (Grid, error) {
	vals := g.masked()
	integral := gridIntegral(g, vals)
	if !math.IsNaN(candidate) {
		if _, ok := CastValueToIntegral(candidate); !ok {
			integral = false
		}
	}
	sentinel, err := ChooseSentinel(vals, candidate, integral, false)
	if err != nil {
		return Grid{}, err
	}
	vmin, vmax, _ := valueSpan(vals)
	famIntegral := integral
	if _, ok := CastValueToIntegral(sentinel); !ok {
		famIntegral = false
	}
	dt, err := minimalDType([]float64{vmin, vmax, sentinel}, famIntegral, false)
	if err != nil {
		return Grid{}, err
	}
	out := Grid{Data: make([]float64, len(vals)), Meta: g.Meta.WithDType(dt, sentinel)}
	for i, v := range vals {
		switch {
		case math.IsNaN(v):
			out.Data[i] = sentinel
		case !dt.IsFloat():
			out.Data[i] = math.Trunc(v)
		default:
			out.Data[i] = v
		}
	}
	return out, nil
}

func gridIntegral(g Grid, masked []float64) bool {
	if g.Meta.DType != DTUnknown {
		return !g.Meta.DType.IsFloat()
	}
	finite := make([]float64, 0, len(masked))
	for _, v := range masked {
		if !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}
	return allIntegral(finite)
}

// InitializeForRasterization establishes a consistent (values, nodata, fill)
// triple before burning geometries into a raster. An unset nodata is derived
// from the combined value/fill range; an unset fill defaults to the resolved
// nodata. The returned dtype covers values, fill and nodata alike.
func InitializeForRasterization(values []float64, nodata, fill *float64) (out []float64, outNoData, outFill float64, dt DType, err error) {
	if len(values) == 0 {
		err = ErrDegenerateInput
		return
	}
	vmin, vmax, ok := valueSpan(values)
	if !ok {
		err = ErrDegenerateInput
		return
	}
	pool := []float64{vmin, vmax}
	if fill != nil {
		pool = append(pool, *fill)
	}
	integral := allIntegral(pool)
	if dt, err = minimalDType(pool, integral, false); err != nil {
		return
	}

	if nodata == nil {
		// 碰撞检测需覆盖数据与填充值的合并范围
		pmin, pmax, _ := valueSpan(pool)
		outNoData = dt.Boundary()
		if outNoData >= pmin && outNoData <= pmax {
			next := dt.NextWider()
			if next == dt {
				err = ErrValueRange
				return
			}
			dt = next
			outNoData = dt.Boundary()
		}
	} else {
		outNoData = *nodata
		famIntegral := integral
		if _, intOk := CastValueToIntegral(outNoData); !intOk {
			famIntegral = false
		}
		if dt, err = minimalDType(append(pool, outNoData), famIntegral, false); err != nil {
			return
		}
	}

	if fill != nil {
		outFill = *fill
	} else {
		outFill = outNoData
	}

	out = make([]float64, len(values))
	for i, v := range values {
		if !dt.IsFloat() && !math.IsNaN(v) {
			out[i] = math.Trunc(v)
		} else {
			out[i] = v
		}
	}
	return
}
