package mpmprep

import (
	"math"
)

// Meta is the immutable spatial/numeric metadata travelling with every grid:
// coordinate reference system (WKT or authority code), GDAL geotransform,
// dimensions, storage dtype and the nodata sentinel. Updates go through the
// With* helpers, which copy.
type Meta struct {
	CRS       string
	Transform [6]float64
	Width     int
	Height    int
	DType     DType
	NoData    float64
}

func (m Meta) WithCRS(crs string) Meta {
	m.CRS = crs
	return m
}

func (m Meta) WithGeometry(transform [6]float64, width, height int) Meta {
	m.Transform = transform
	m.Width = width
	m.Height = height
	return m
}

func (m Meta) WithDType(dt DType, nodata float64) Meta {
	m.DType = dt
	m.NoData = nodata
	return m
}

// PixelSize returns the absolute x/y pixel pitch of the geotransform.
func (m Meta) PixelSize() (xRes, yRes float64) {
	return math.Abs(m.Transform[1]), math.Abs(m.Transform[5])
}

// Bounds returns the outer envelope (minX, minY, maxX, maxY) of the grid.
func (m Meta) Bounds() (minX, minY, maxX, maxY float64) {
	minX = m.Transform[0]
	maxY = m.Transform[3]
	maxX = minX + m.Transform[1]*float64(m.Width)
	minY = maxY + m.Transform[5]*float64(m.Height)
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	return
}

func (m Meta) isNoData(v float64) bool {
	if math.IsNaN(m.NoData) {
		return math.IsNaN(v)
	}
	return v == m.NoData
}

// Grid is a single-band raster: row-major samples plus metadata. Stages never
// mutate a grid in place; each produces a fresh (data, meta) pair.
type Grid struct {
	Data []float64
	Meta Meta
}

func NewGrid(data []float64, meta Meta) (Grid, error) {
	if len(data) != meta.Width*meta.Height {
		return Grid{}, ErrGridSizeMismatch
	}
	return Grid{Data: data, Meta: meta}, nil
}

func (g Grid) clone() Grid {
	out := Grid{Data: make([]float64, len(g.Data)), Meta: g.Meta}
	copy(out.Data, g.Data)
	return out
}

// masked returns a copy of the samples with nodata replaced by NaN, the
// working representation every numeric stage computes over.
func (g Grid) masked() []float64 {
	out := make([]float64, len(g.Data))
	for i, v := range g.Data {
		if g.Meta.isNoData(v) {
			out[i] = math.NaN()
		} else {
			out[i] = v
		}
	}
	return out
}

// finite returns the finite data population of the grid, nodata excluded.
func (g Grid) finite() []float64 {
	out := make([]float64, 0, len(g.Data))
	for _, v := range g.Data {
		if g.Meta.isNoData(v) || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}
