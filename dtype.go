package mpmprep

import (
	"math"
)

// DType is the closed ladder of storage types a raster band may take.
// Values travel through the pipeline as float64 (GDAL's nodata currency);
// DType records the minimal type the values must remain representable in.
type DType uint8

const (
	DTUnknown DType = iota
	DTUint8
	DTInt8
	DTUint16
	DTInt16
	DTUint32
	DTInt32
	DTUint64
	DTInt64
	DTFloat32
	DTFloat64
)

var dtypeNames = [...]string{
	DTUnknown: "unknown",
	DTUint8:   "uint8",
	DTInt8:    "int8",
	DTUint16:  "uint16",
	DTInt16:   "int16",
	DTUint32:  "uint32",
	DTInt32:   "int32",
	DTUint64:  "uint64",
	DTInt64:   "int64",
	DTFloat32: "float32",
	DTFloat64: "float64",
}

func (d DType) String() string {
	if int(d) < len(dtypeNames) {
		return dtypeNames[d]
	}
	return "unknown"
}

func (d DType) IsFloat() bool {
	return d == DTFloat32 || d == DTFloat64
}

func (d DType) IsUnsigned() bool {
	switch d {
	case DTUint8, DTUint16, DTUint32, DTUint64:
		return true
	}
	return false
}

// Range returns the representable value range of the dtype, projected to
// float64. The int64/uint64 bounds are therefore the nearest float64
// neighbours of the exact integer bounds.
func (d DType) Range() (min, max float64) {
	switch d {
	case DTUint8:
		return 0, math.MaxUint8
	case DTInt8:
		return math.MinInt8, math.MaxInt8
	case DTUint16:
		return 0, math.MaxUint16
	case DTInt16:
		return math.MinInt16, math.MaxInt16
	case DTUint32:
		return 0, math.MaxUint32
	case DTInt32:
		return math.MinInt32, math.MaxInt32
	case DTUint64:
		return 0, float64(math.MaxUint64)
	case DTInt64:
		return math.MinInt64, float64(math.MaxInt64)
	case DTFloat32:
		return -math.MaxFloat32, math.MaxFloat32
	case DTFloat64:
		return -math.MaxFloat64, math.MaxFloat64
	}
	return math.NaN(), math.NaN()
}

// Boundary returns the canonical edge value of the dtype used as a default
// nodata sentinel: the maximum for unsigned integers, the minimum for signed
// integers and floats.
func (d DType) Boundary() float64 {
	min, max := d.Range()
	if d.IsUnsigned() {
		return max
	}
	return min
}

// NextWider returns the next dtype up the ladder. The widest types of each
// family return themselves.
func (d DType) NextWider() DType {
	switch d {
	case DTUint8:
		return DTUint16
	case DTInt8:
		return DTInt16
	case DTUint16:
		return DTUint32
	case DTInt16:
		return DTInt32
	case DTUint32:
		return DTUint64
	case DTInt32:
		return DTInt64
	case DTFloat32:
		return DTFloat64
	}
	return d
}

var (
	// 无符号/有符号交替的整型阶梯
	ladderAlternating = []DType{DTUint8, DTInt8, DTUint16, DTInt16, DTUint32, DTInt32, DTUint64, DTInt64}
	ladderUnsigned    = []DType{DTUint8, DTUint16, DTUint32, DTUint64}
	ladderSigned      = []DType{DTInt8, DTInt16, DTInt32, DTInt64}
	ladderFloat       = []DType{DTFloat32, DTFloat64}
)

// MinimalDType returns the smallest dtype whose range covers every supplied
// value. Values that are all exactly integral (and inside the int64/uint64
// span) select from the integer ladder, checked alternately unsigned/signed;
// unifySignedUnsigned instead forces a single family chosen by the sign of
// the minimum. Non-integral or integer-overflowing values select from the
// float ladder. The integer floor is 8 bits, the float floor 32 bits.
func MinimalDType(values []float64, unifySignedUnsigned bool) (DType, error) {
	return minimalDType(values, allIntegral(values), unifySignedUnsigned)
}

func minimalDType(values []float64, integral, unifySignedUnsigned bool) (DType, error) {
	vmin, vmax, ok := valueSpan(values)
	if !ok {
		return DTUnknown, ErrDegenerateInput
	}
	var ladder []DType
	switch {
	case !integral:
		ladder = ladderFloat
	case unifySignedUnsigned && vmin >= 0:
		ladder = ladderUnsigned
	case unifySignedUnsigned:
		ladder = ladderSigned
	default:
		ladder = ladderAlternating
	}
	for _, dt := range ladder {
		if min, max := dt.Range(); vmin >= min && vmax <= max {
			return dt, nil
		}
	}
	return DTUnknown, ErrValueRange
}

// CastValueToIntegral reports whether v has an exact integral representation
// inside the int64/uint64 span, returning the truncated value when it does.
// Keeps integral sentinels from forcing a spurious float dtype.
func CastValueToIntegral(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v, false
	}
	if v != math.Trunc(v) {
		return v, false
	}
	min, _ := DTInt64.Range()
	_, max := DTUint64.Range()
	if v < min || v > max {
		return v, false
	}
	return math.Trunc(v), true
}

func allIntegral(values []float64) bool {
	for _, v := range values {
		if _, ok := CastValueToIntegral(v); !ok {
			return false
		}
	}
	return len(values) > 0
}

// valueSpan returns the finite min/max of values, skipping NaNs. Infinities
// are kept so that an over-wide span falls off the top of the ladder.
func valueSpan(values []float64) (vmin, vmax float64, ok bool) {
	vmin, vmax = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if v < vmin {
			vmin = v
		}
		if v > vmax {
			vmax = v
		}
		ok = true
	}
	return
}

// ChooseSentinel picks a nodata sentinel that cannot be mistaken for data.
// A proposed value strictly outside the observed range is kept as is;
// equality at either end counts as a collision, which is resolved by taking
// the edge value of the next wider dtype. A NaN proposal asks for the edge
// value of the population's minimal dtype.
func ChooseSentinel(values []float64, proposed float64, integral, unifySignedUnsigned bool) (float64, error) {
	vmin, vmax, ok := valueSpan(values)
	if !ok {
		return 0, ErrDegenerateInput
	}
	if !math.IsNaN(proposed) && (proposed < vmin || proposed > vmax) {
		return proposed, nil
	}
	dt, err := minimalDType(values, integral, unifySignedUnsigned)
	if err != nil {
		return 0, err
	}
	if !math.IsNaN(proposed) {
		// collision: widen before taking the edge value
		next := dt.NextWider()
		if next == dt {
			return 0, ErrValueRange
		}
		dt = next
	}
	return edgeOutside(dt, vmin, vmax)
}

// edgeOutside walks the ladder upward until the dtype's edge value clears the
// observed range.
func edgeOutside(dt DType, vmin, vmax float64) (float64, error) {
	for {
		if edge := dt.Boundary(); edge < vmin || edge > vmax {
			return edge, nil
		}
		next := dt.NextWider()
		if next == dt {
			return 0, ErrValueRange
		}
		dt = next
	}
}
