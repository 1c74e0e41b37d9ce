package mpmprep

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func testMeta(w, h int) Meta {
	return Meta{
		CRS:       DEFAULT_CRS,
		Transform: [6]float64{0, 1, 0, 0, 0, -1},
		Width:     w,
		Height:    h,
		NoData:    math.NaN(),
	}
}

func TestNormalizeIntegral(t *testing.T) {
	g, err := NewGrid([]float64{1, 2, math.NaN(), 4}, testMeta(2, 2))
	require.NoError(t, err)

	out, err := Normalize(g, math.NaN())
	require.NoError(t, err)
	require.Equal(t, DTUint8, out.Meta.DType)
	require.Equal(t, float64(math.MaxUint8), out.Meta.NoData)
	require.Equal(t, []float64{1, 2, 255, 4}, out.Data)
}

func TestNormalizeIdempotent(t *testing.T) {
	g, err := NewGrid([]float64{1, 2, math.NaN(), 4}, testMeta(2, 2))
	require.NoError(t, err)

	once, err := Normalize(g, math.NaN())
	require.NoError(t, err)
	twice, err := Normalize(once, once.Meta.NoData)
	require.NoError(t, err)
	require.Equal(t, once.Meta, twice.Meta)
	require.Equal(t, once.Data, twice.Data)
}

func TestNormalizeFloatPopulation(t *testing.T) {
	g, err := NewGrid([]float64{0.5, 2.5, math.NaN(), 1.5}, testMeta(2, 2))
	require.NoError(t, err)

	out, err := Normalize(g, math.NaN())
	require.NoError(t, err)
	require.Equal(t, DTFloat32, out.Meta.DType)
	require.Equal(t, -float64(math.MaxFloat32), out.Meta.NoData)
	require.Equal(t, 0.5, out.Data[0])
}

func TestNormalizeKeepsSafeCandidate(t *testing.T) {
	g, err := NewGrid([]float64{1, 2, 3, math.NaN()}, testMeta(2, 2))
	require.NoError(t, err)

	out, err := Normalize(g, -1)
	require.NoError(t, err)
	require.Equal(t, -1.0, out.Meta.NoData)
	require.Equal(t, DTInt8, out.Meta.DType)
	require.Equal(t, -1.0, out.Data[3])
}

func TestNormalizeFractionalCandidateForcesFloat(t *testing.T) {
	g, err := NewGrid([]float64{1, 2, 3, 4}, testMeta(2, 2))
	require.NoError(t, err)

	out, err := Normalize(g, -0.5)
	require.NoError(t, err)
	require.Equal(t, DTFloat32, out.Meta.DType)
	require.Equal(t, -0.5, out.Meta.NoData)
}

func TestNormalizeTruncatesForIntegerDType(t *testing.T) {
	meta := testMeta(2, 2).WithDType(DTInt32, math.NaN())
	g, err := NewGrid([]float64{1.7, -2.9, 3, 4}, meta)
	require.NoError(t, err)

	out, err := Normalize(g, math.NaN())
	require.NoError(t, err)
	require.False(t, out.Meta.DType.IsFloat())
	require.Equal(t, 1.0, out.Data[0])
	require.Equal(t, -2.0, out.Data[1])
}

func TestInitializeForRasterizationDefaults(t *testing.T) {
	out, nodata, fill, dt, err := InitializeForRasterization([]float64{1, 2, 3}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, DTUint8, dt)
	require.Equal(t, float64(math.MaxUint8), nodata)
	require.Equal(t, nodata, fill)
	require.Equal(t, []float64{1, 2, 3}, out)
}

func TestInitializeForRasterizationNoDataCollision(t *testing.T) {
	// 255 is data, so the default sentinel must move up a dtype
	_, nodata, _, dt, err := InitializeForRasterization([]float64{0, 255}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, DTUint16, dt)
	require.Equal(t, float64(math.MaxUint16), nodata)
}

func TestInitializeForRasterizationFillCollision(t *testing.T) {
	// fill sits on the uint8 edge: the sentinel must clear the fill too
	fill := 255.0
	out, nodata, gotFill, dt, err := InitializeForRasterization([]float64{1, 100}, nil, &fill)
	require.NoError(t, err)
	require.Equal(t, DTUint16, dt)
	require.Equal(t, float64(math.MaxUint16), nodata)
	require.Equal(t, 255.0, gotFill)
	require.Equal(t, []float64{1, 100}, out)
}

func TestInitializeForRasterizationExplicit(t *testing.T) {
	nd := -1.0
	fill := 0.0
	_, nodata, gotFill, dt, err := InitializeForRasterization([]float64{1, 2}, &nd, &fill)
	require.NoError(t, err)
	require.Equal(t, -1.0, nodata)
	require.Equal(t, 0.0, gotFill)
	require.Equal(t, DTInt8, dt)
}

func TestInitializeForRasterizationFractional(t *testing.T) {
	_, _, _, dt, err := InitializeForRasterization([]float64{0.5, 1.5}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, DTFloat32, dt)
}

func TestInitializeForRasterizationEmpty(t *testing.T) {
	_, _, _, _, err := InitializeForRasterization(nil, nil, nil)
	require.ErrorIs(t, err, ErrDegenerateInput)
}

func TestNewGridSizeMismatch(t *testing.T) {
	_, err := NewGrid([]float64{1, 2, 3}, testMeta(2, 2))
	require.ErrorIs(t, err, ErrGridSizeMismatch)
}
