package mpmprep

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResetLabelBackground(t *testing.T) {
	nan := math.NaN()
	before, err := NewGrid([]float64{1, nan, 0, nan}, testMeta(2, 2))
	require.NoError(t, err)
	filled, err := NewGrid([]float64{1, 1, 0, nan}, testMeta(2, 2))
	require.NoError(t, err)

	out := resetLabelBackground(filled, before)
	require.Equal(t, 1.0, out.Data[0])               // real label survives
	require.Equal(t, 0.0, out.Data[1])               // filled-in cell is background, not label
	require.Equal(t, 0.0, out.Data[2])               // background survives
	require.True(t, out.Meta.isNoData(out.Data[3])) // unfilled gap stays nodata
}

func TestDefaultResampling(t *testing.T) {
	require.Equal(t, "bilinear", defaultResampling(DTFloat32))
	require.Equal(t, "bilinear", defaultResampling(DTFloat64))
	require.Equal(t, "near", defaultResampling(DTUint8))
	require.Equal(t, "near", defaultResampling(DTInt32))
}

func TestFormatFloat(t *testing.T) {
	require.Equal(t, "0.5", formatFloat(0.5))
	require.Equal(t, "-1", formatFloat(-1))
	require.Equal(t, "100", formatFloat(100))
}
