package mpmprep

import (
	"fmt"
	"math"
)

// ProximityGrid computes, for every cell, the Euclidean distance (in CRS
// units, honoring anisotropic pixel pitch) to the nearest cell carrying the
// burn value, turning a binary presence raster into a continuous proximity
// surface.
func ProximityGrid(g Grid, burnValue float64) (Grid, error) {
	w, h := g.Meta.Width, g.Meta.Height
	sx, sy := g.Meta.PixelSize()
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}

	f := make([]float64, len(g.Data))
	seeds := 0
	for i, v := range g.Data {
		if v == burnValue {
			seeds++
		} else {
			f[i] = edtInf
		}
	}
	if seeds == 0 {
		return Grid{}, fmt.Errorf("proximity: no cell carries burn value %v: %w", burnValue, ErrDegenerateInput)
	}

	// separable squared distance transform, columns then rows
	col := make([]float64, h)
	dist := make([]float64, max(w, h))
	v := make([]int, max(w, h))
	z := make([]float64, max(w, h)+1)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = f[y*w+x]
		}
		edt1d(col[:h], dist, v, z, sy)
		for y := 0; y < h; y++ {
			f[y*w+x] = dist[y]
		}
	}
	for y := 0; y < h; y++ {
		row := f[y*w : y*w+w]
		edt1d(row, dist, v, z, sx)
		copy(row, dist[:w])
	}

	out := Grid{Data: f, Meta: g.Meta.WithDType(DTFloat64, g.Meta.NoData)}
	for i, d := range out.Data {
		out.Data[i] = math.Sqrt(d)
	}
	return Normalize(out, g.Meta.NoData)
}

// edtInf stands in for "no seed here"; far larger than any reachable
// squared distance yet small enough to keep the envelope math finite.
const edtInf = 1e20

// edt1d runs the lower-envelope squared distance transform of Felzenszwalb
// and Huttenlocher over one row/column with sample pitch step.
func edt1d(f, d []float64, v []int, z []float64, step float64) {
	n := len(f)
	k := 0
	v[0] = 0
	z[0] = math.Inf(-1)
	z[1] = math.Inf(1)
	pos := func(i int) float64 { return float64(i) * step }
	for q := 1; q < n; q++ {
		var s float64
		for {
			s = ((f[q] + pos(q)*pos(q)) - (f[v[k]] + pos(v[k])*pos(v[k]))) / (2 * (pos(q) - pos(v[k])))
			if k > 0 && s <= z[k] {
				k--
				continue
			}
			break
		}
		k++
		v[k] = q
		z[k] = s
		z[k+1] = math.Inf(1)
	}
	k = 0
	for q := 0; q < n; q++ {
		for z[k+1] < pos(q) {
			k++
		}
		dq := pos(q) - pos(v[k])
		d[q] = dq*dq + f[v[k]]
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
