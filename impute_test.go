package mpmprep

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestImputeMean(t *testing.T) {
	g, err := NewGrid([]float64{1, 2, 3, math.NaN()}, testMeta(2, 2))
	require.NoError(t, err)

	out, err := ImputeGrid(g, ImputeSpec{Method: ImputeMean})
	require.NoError(t, err)
	require.True(t, out.Meta.DType.IsFloat())
	require.Equal(t, 2.0, out.Data[3])
	for _, v := range out.Data {
		require.False(t, out.Meta.isNoData(v))
	}
}

func TestImputeMedianOdd(t *testing.T) {
	g, err := NewGrid([]float64{1, 2, 9, math.NaN()}, testMeta(2, 2))
	require.NoError(t, err)

	out, err := ImputeGrid(g, ImputeSpec{Method: ImputeMedian})
	require.NoError(t, err)
	require.Equal(t, 2.0, out.Data[3])
}

func TestImputeMedianEven(t *testing.T) {
	g, err := NewGrid([]float64{1, 2, 3, 10, math.NaN(), math.NaN()}, testMeta(3, 2))
	require.NoError(t, err)

	out, err := ImputeGrid(g, ImputeSpec{Method: ImputeMedian})
	require.NoError(t, err)
	require.Equal(t, 2.5, out.Data[4])
	require.Equal(t, 2.5, out.Data[5])
}

func TestImputeMinMaxZero(t *testing.T) {
	g, err := NewGrid([]float64{3, 7, math.NaN(), 5}, testMeta(2, 2))
	require.NoError(t, err)

	out, err := ImputeGrid(g, ImputeSpec{Method: ImputeMin})
	require.NoError(t, err)
	require.Equal(t, 3.0, out.Data[2])

	out, err = ImputeGrid(g, ImputeSpec{Method: ImputeMax})
	require.NoError(t, err)
	require.Equal(t, 7.0, out.Data[2])

	out, err = ImputeGrid(g, ImputeSpec{Method: ImputeZero})
	require.NoError(t, err)
	require.Equal(t, 0.0, out.Data[2])
}

func TestImputeCustom(t *testing.T) {
	v := -7.5
	g, err := NewGrid([]float64{1, 2, math.NaN(), 4}, testMeta(2, 2))
	require.NoError(t, err)

	out, err := ImputeGrid(g, ImputeSpec{Method: ImputeCustom, CustomValue: &v})
	require.NoError(t, err)
	require.Equal(t, -7.5, out.Data[2])

	_, err = ImputeGrid(g, ImputeSpec{Method: ImputeCustom})
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestImputeAllNoData(t *testing.T) {
	g, err := NewGrid([]float64{math.NaN(), math.NaN(), math.NaN(), math.NaN()}, testMeta(2, 2))
	require.NoError(t, err)

	_, err = ImputeGrid(g, ImputeSpec{Method: ImputeMean})
	require.ErrorIs(t, err, ErrDegenerateInput)
}

func TestImputeKeepsDataCells(t *testing.T) {
	g, err := NewGrid([]float64{1, 2, 3, math.NaN()}, testMeta(2, 2))
	require.NoError(t, err)

	out, err := ImputeGrid(g, ImputeSpec{Method: ImputeMean})
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 3}, out.Data[:3])
}
