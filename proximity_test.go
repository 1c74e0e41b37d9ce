package mpmprep

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProximityCenterSeed(t *testing.T) {
	data := []float64{
		0, 0, 0,
		0, 1, 0,
		0, 0, 0,
	}
	g, err := NewGrid(data, testMeta(3, 3))
	require.NoError(t, err)

	out, err := ProximityGrid(g, 1)
	require.NoError(t, err)

	sqrt2 := math.Sqrt2
	want := []float64{
		sqrt2, 1, sqrt2,
		1, 0, 1,
		sqrt2, 1, sqrt2,
	}
	for i := range want {
		require.InDelta(t, want[i], out.Data[i], 1e-9)
	}
}

func TestProximityAnisotropicPitch(t *testing.T) {
	meta := testMeta(3, 1)
	meta.Transform = [6]float64{0, 2, 0, 0, 0, -1} // 2-unit wide pixels
	g, err := NewGrid([]float64{1, 0, 0}, meta)
	require.NoError(t, err)

	out, err := ProximityGrid(g, 1)
	require.NoError(t, err)
	require.InDelta(t, 0, out.Data[0], 1e-9)
	require.InDelta(t, 2, out.Data[1], 1e-9)
	require.InDelta(t, 4, out.Data[2], 1e-9)
}

func TestProximityColumnPitch(t *testing.T) {
	meta := testMeta(1, 3)
	meta.Transform = [6]float64{0, 1, 0, 0, 0, -3} // 3-unit tall pixels
	g, err := NewGrid([]float64{0, 0, 1}, meta)
	require.NoError(t, err)

	out, err := ProximityGrid(g, 1)
	require.NoError(t, err)
	require.InDelta(t, 6, out.Data[0], 1e-9)
	require.InDelta(t, 3, out.Data[1], 1e-9)
	require.InDelta(t, 0, out.Data[2], 1e-9)
}

func TestProximityTwoSeeds(t *testing.T) {
	g, err := NewGrid([]float64{1, 0, 0, 0, 1}, Meta{
		Transform: [6]float64{0, 1, 0, 0, 0, -1},
		Width:     5, Height: 1,
		NoData: math.NaN(),
	})
	require.NoError(t, err)

	out, err := ProximityGrid(g, 1)
	require.NoError(t, err)
	require.InDelta(t, 0, out.Data[0], 1e-9)
	require.InDelta(t, 1, out.Data[1], 1e-9)
	require.InDelta(t, 2, out.Data[2], 1e-9)
	require.InDelta(t, 1, out.Data[3], 1e-9)
	require.InDelta(t, 0, out.Data[4], 1e-9)
}

func TestProximityNoSeeds(t *testing.T) {
	g, err := NewGrid([]float64{0, 0, 0, 0}, testMeta(2, 2))
	require.NoError(t, err)

	_, err = ProximityGrid(g, 1)
	require.ErrorIs(t, err, ErrDegenerateInput)
}
