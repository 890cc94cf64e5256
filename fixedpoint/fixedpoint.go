// Package fixedpoint implements scaled-integer decimal values: a
// representation integer paired with a radix and a scale, where the value
// represented is rep * radix^scale.
//
// Arithmetic never silently wraps while overflow checks are enabled (the
// default). Checks cost a few comparisons per operation; callers on a hot
// path that have already bounded their inputs may disable them with
// SetOverflowChecks(false), in which case results wrap like ordinary Go
// integer arithmetic.
package fixedpoint

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/atomic"
)

var (
	// ErrOverflow is returned when a result does not fit the representation
	// type.
	ErrOverflow = errors.New("fixed_point overflow")
	// ErrRadixMismatch is returned when combining values of different radix.
	ErrRadixMismatch = errors.New("fixed_point radix mismatch")
	// ErrDivideByZero is returned by Div with a zero divisor.
	ErrDivideByZero = errors.New("fixed_point division by zero")
)

// Radix is the base of the scale exponent.
type Radix int32

const (
	Base2  Radix = 2
	Base10 Radix = 10
)

// Scale is the exponent applied to the radix.
type Scale int32

// Rep is the set of representation integers.
type Rep interface {
	~int32 | ~int64
}

var overflowChecks = atomic.NewBool(true)

// SetOverflowChecks enables or disables overflow detection for arithmetic.
func SetOverflowChecks(enabled bool) { overflowChecks.Store(enabled) }

// OverflowChecks reports whether overflow detection is enabled.
func OverflowChecks() bool { return overflowChecks.Load() }

// FixedPoint is a decimal value stored as rep * radix^scale.
type FixedPoint[R Rep] struct {
	value R
	scale Scale
	radix Radix
}

// FromScaled creates a FixedPoint from an already scaled representation.
func FromScaled[R Rep](rep R, scale Scale, radix Radix) FixedPoint[R] {
	return FixedPoint[R]{value: rep, scale: scale, radix: radix}
}

// New creates a FixedPoint holding v at the given scale. Digits below the
// scale are truncated toward zero.
func New[R Rep](v float64, scale Scale, radix Radix) FixedPoint[R] {
	var shifted float64
	if scale >= 0 {
		shifted = v / math.Pow(float64(radix), float64(scale))
	} else {
		shifted = v * math.Pow(float64(radix), float64(-scale))
	}
	return FixedPoint[R]{value: R(int64(shifted)), scale: scale, radix: radix}
}

// NewFromInt creates a FixedPoint holding the integer v at the given scale
// using exact integer shifting. A negative scale multiplies v, and a result
// that does not fit R fails with ErrOverflow. With overflow checks disabled
// the result wraps.
func NewFromInt[R Rep](v int64, scale Scale, radix Radix) (FixedPoint[R], error) {
	rep, ok := shift(v, int64(scale), radix)
	if OverflowChecks() {
		if lo, hi := bounds[R](); !ok || rep < lo || rep > hi {
			return FixedPoint[R]{}, overflowError[R]("scaling")
		}
	}
	return FixedPoint[R]{value: R(rep), scale: scale, radix: radix}, nil
}

// Rep returns the scaled representation integer.
func (f FixedPoint[R]) Rep() R { return f.value }

// Scale returns the scale.
func (f FixedPoint[R]) Scale() Scale { return f.scale }

// Radix returns the radix.
func (f FixedPoint[R]) Radix() Radix { return f.radix }

// Float64 returns the represented value as a float64.
func (f FixedPoint[R]) Float64() float64 {
	return float64(f.value) * math.Pow(float64(f.radix), float64(f.scale))
}

// Decimal returns the represented value as an exact decimal. Only base-10
// values convert exactly; base-2 values go through float64.
func (f FixedPoint[R]) Decimal() decimal.Decimal {
	if f.radix == Base10 {
		return decimal.New(int64(f.value), int32(f.scale))
	}
	return decimal.NewFromFloat(f.Float64())
}

// String formats the represented value.
func (f FixedPoint[R]) String() string {
	if f.radix == Base10 {
		return f.Decimal().String()
	}
	return strconv.FormatFloat(f.Float64(), 'g', -1, 64)
}

// Equal reports whether f and other represent the same value.
func (f FixedPoint[R]) Equal(other FixedPoint[R]) bool {
	if f.radix != other.radix {
		return f.Float64() == other.Float64()
	}
	lo := min(f.scale, other.scale)
	return f.exact(lo).Cmp(other.exact(lo)) == 0
}

// exact returns value * radix^(scale-to) as a big integer; to must not exceed
// the receiver's scale.
func (f FixedPoint[R]) exact(to Scale) *big.Int {
	v := big.NewInt(int64(f.value))
	if d := int64(f.scale - to); d > 0 {
		factor := new(big.Int).Exp(big.NewInt(int64(f.radix)), big.NewInt(d), nil)
		v.Mul(v, factor)
	}
	return v
}

// Add returns f + other at the larger of the two scales.
func (f FixedPoint[R]) Add(other FixedPoint[R]) (FixedPoint[R], error) {
	if f.radix != other.radix {
		return FixedPoint[R]{}, errors.Wrapf(ErrRadixMismatch, "add %d and %d", f.radix, other.radix)
	}
	lhs, rhs, scale := align(f, other)
	if OverflowChecks() && additionOverflow[R](lhs, rhs) {
		return FixedPoint[R]{}, overflowError[R]("add")
	}
	return FixedPoint[R]{value: R(lhs + rhs), scale: scale, radix: f.radix}, nil
}

// Sub returns f - other at the larger of the two scales.
func (f FixedPoint[R]) Sub(other FixedPoint[R]) (FixedPoint[R], error) {
	if f.radix != other.radix {
		return FixedPoint[R]{}, errors.Wrapf(ErrRadixMismatch, "sub %d and %d", f.radix, other.radix)
	}
	lhs, rhs, scale := align(f, other)
	if OverflowChecks() && subtractionOverflow[R](lhs, rhs) {
		return FixedPoint[R]{}, overflowError[R]("sub")
	}
	return FixedPoint[R]{value: R(lhs - rhs), scale: scale, radix: f.radix}, nil
}

// Mul returns f * other; the result scale is the sum of both scales.
func (f FixedPoint[R]) Mul(other FixedPoint[R]) (FixedPoint[R], error) {
	if f.radix != other.radix {
		return FixedPoint[R]{}, errors.Wrapf(ErrRadixMismatch, "mul %d and %d", f.radix, other.radix)
	}
	if OverflowChecks() && multiplicationOverflow[R](int64(f.value), int64(other.value)) {
		return FixedPoint[R]{}, overflowError[R]("mul")
	}
	return FixedPoint[R]{value: f.value * other.value, scale: f.scale + other.scale, radix: f.radix}, nil
}

// Div returns f / other truncated toward zero; the result scale is the
// difference of both scales.
func (f FixedPoint[R]) Div(other FixedPoint[R]) (FixedPoint[R], error) {
	if f.radix != other.radix {
		return FixedPoint[R]{}, errors.Wrapf(ErrRadixMismatch, "div %d and %d", f.radix, other.radix)
	}
	if other.value == 0 {
		return FixedPoint[R]{}, ErrDivideByZero
	}
	if OverflowChecks() && divisionOverflow[R](int64(f.value), int64(other.value)) {
		return FixedPoint[R]{}, overflowError[R]("div")
	}
	return FixedPoint[R]{value: f.value / other.value, scale: f.scale - other.scale, radix: f.radix}, nil
}

// align brings both operands to the larger scale. The operand with the
// smaller scale loses its low digits.
func align[R Rep](lhs, rhs FixedPoint[R]) (int64, int64, Scale) {
	l, r := int64(lhs.value), int64(rhs.value)
	switch {
	case lhs.scale > rhs.scale:
		r, _ = shift(r, int64(lhs.scale-rhs.scale), lhs.radix)
		return l, r, lhs.scale
	case lhs.scale < rhs.scale:
		l, _ = shift(l, int64(rhs.scale-lhs.scale), lhs.radix)
		return l, r, rhs.scale
	default:
		return l, r, lhs.scale
	}
}

// shift divides v by radix^by for by >= 0 and multiplies by radix^-by
// otherwise. It reports false when a multiplication leaves the int64 range;
// the returned value has then wrapped.
func shift(v int64, by int64, radix Radix) (int64, bool) {
	if by == 0 {
		return v, true
	}
	if by > 0 {
		factor, ok := ipow(int64(radix), by)
		if !ok {
			// The divisor exceeds every int64 magnitude.
			return 0, true
		}
		return v / factor, true
	}
	factor, ok := ipow(int64(radix), -by)
	if !ok {
		return v * wrappedPow(int64(radix), -by), v == 0
	}
	return v * factor, !multiplicationOverflow[int64](v, factor)
}

func wrappedPow(base, exp int64) int64 {
	result := int64(1)
	for range exp {
		result *= base
	}
	return result
}

// ipow returns base^exp, reporting false when it does not fit an int64.
func ipow(base, exp int64) (int64, bool) {
	result := int64(1)
	for range exp {
		if result > math.MaxInt64/base {
			return 0, false
		}
		result *= base
	}
	return result, true
}

func bounds[R Rep]() (lo, hi int64) {
	var zero R
	if unsafe.Sizeof(zero) == 4 {
		return math.MinInt32, math.MaxInt32
	}
	return math.MinInt64, math.MaxInt64
}

func additionOverflow[R Rep](lhs, rhs int64) bool {
	lo, hi := bounds[R]()
	if rhs > 0 {
		return lhs > hi-rhs
	}
	return lhs < lo-rhs
}

func subtractionOverflow[R Rep](lhs, rhs int64) bool {
	lo, hi := bounds[R]()
	if rhs > 0 {
		return lhs < lo+rhs
	}
	return lhs > hi+rhs
}

func divisionOverflow[R Rep](lhs, rhs int64) bool {
	lo, _ := bounds[R]()
	return lhs == lo && rhs == -1
}

func multiplicationOverflow[R Rep](lhs, rhs int64) bool {
	lo, hi := bounds[R]()
	switch {
	case rhs > 0:
		return lhs > hi/rhs || lhs < lo/rhs
	case rhs < -1:
		return lhs > lo/rhs || lhs < hi/rhs
	default:
		return rhs == -1 && lhs == lo
	}
}

func overflowError[R Rep](op string) error {
	var zero R
	return errors.Wrapf(ErrOverflow, "%s of underlying representation type int%d", op, unsafe.Sizeof(zero)*8)
}

// GoString implements fmt.GoStringer.
func (f FixedPoint[R]) GoString() string {
	return fmt.Sprintf("fixedpoint.FromScaled(%d, %d, %d)", f.value, f.scale, f.radix)
}
