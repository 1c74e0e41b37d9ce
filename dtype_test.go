package mpmprep

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMinimalDType(t *testing.T) {
	cases := []struct {
		name   string
		values []float64
		unify  bool
		want   DType
	}{
		{"byte range", []float64{0, 255}, false, DTUint8},
		{"negative forces signed", []float64{-1, 255}, false, DTInt16},
		{"just over byte", []float64{0, 256}, false, DTUint16},
		{"below int8", []float64{-129}, false, DTInt16},
		{"fractional", []float64{0.5}, false, DTFloat32},
		{"huge integral is float", []float64{0, 3.4e38}, false, DTFloat32},
		{"unify negative", []float64{-1, 200}, true, DTInt16},
		{"unify positive", []float64{3, 200}, true, DTUint8},
		{"single zero", []float64{0}, false, DTUint8},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			dt, err := MinimalDType(c.values, c.unify)
			require.NoError(t, err)
			require.Equal(t, c.want, dt)
		})
	}
}

func TestMinimalDTypeOverflow(t *testing.T) {
	_, err := MinimalDType([]float64{0, math.Inf(1)}, false)
	require.ErrorIs(t, err, ErrValueRange)
}

func TestMinimalDTypeDegenerate(t *testing.T) {
	_, err := MinimalDType(nil, false)
	require.ErrorIs(t, err, ErrDegenerateInput)

	_, err = MinimalDType([]float64{math.NaN()}, false)
	require.ErrorIs(t, err, ErrDegenerateInput)
}

func TestCastValueToIntegral(t *testing.T) {
	v, ok := CastValueToIntegral(3.0)
	require.True(t, ok)
	require.Equal(t, 3.0, v)

	_, ok = CastValueToIntegral(3.5)
	require.False(t, ok)

	_, ok = CastValueToIntegral(1e300) // integral but outside the int span
	require.False(t, ok)

	_, ok = CastValueToIntegral(math.NaN())
	require.False(t, ok)

	_, ok = CastValueToIntegral(math.Inf(-1))
	require.False(t, ok)
}

func TestChooseSentinelKeepsOutsideProposal(t *testing.T) {
	s, err := ChooseSentinel([]float64{0, 10}, -1, true, false)
	require.NoError(t, err)
	require.Equal(t, -1.0, s)
}

func TestChooseSentinelCollisionWidens(t *testing.T) {
	// 5 sits inside [0,10]: the sentinel must come from the next wider dtype
	s, err := ChooseSentinel([]float64{0, 10}, 5, true, false)
	require.NoError(t, err)
	require.Equal(t, float64(math.MaxUint16), s)
}

func TestChooseSentinelEndpointCollision(t *testing.T) {
	// equality at an endpoint counts as a collision too
	s, err := ChooseSentinel([]float64{0, 10}, 10, true, false)
	require.NoError(t, err)
	require.Equal(t, float64(math.MaxUint16), s)
}

func TestChooseSentinelDefaultEdge(t *testing.T) {
	s, err := ChooseSentinel([]float64{0, 10}, math.NaN(), true, false)
	require.NoError(t, err)
	require.Equal(t, float64(math.MaxUint8), s)
}

func TestChooseSentinelEdgeInsideRange(t *testing.T) {
	// the uint8 edge (255) is data here, so the edge walk must climb
	s, err := ChooseSentinel([]float64{0, 255}, math.NaN(), true, false)
	require.NoError(t, err)
	require.Equal(t, float64(math.MaxUint16), s)
}

func TestBoundary(t *testing.T) {
	require.Equal(t, float64(math.MaxUint8), DTUint8.Boundary())
	require.Equal(t, float64(math.MinInt16), DTInt16.Boundary())
	require.Equal(t, -math.MaxFloat32, DTFloat32.Boundary())
}

func TestNextWiderTop(t *testing.T) {
	require.Equal(t, DTUint64, DTUint64.NextWider())
	require.Equal(t, DTInt64, DTInt64.NextWider())
	require.Equal(t, DTFloat64, DTFloat64.NextWider())
}
