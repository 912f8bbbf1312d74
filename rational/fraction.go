// Package rational implements exact rational-number arithmetic for cycle
// positions and event boundaries, per the pattern algebra's need for exact
// timing free of floating-point drift.
package rational

import (
	"fmt"
	"math"
)

// DomainError reports an invalid arithmetic operation, such as division by
// zero, the same way the teacher's video and audio error types carry an
// operation name plus detail.
type DomainError struct {
	Operation string
	Detail    string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("rational: %s: %s", e.Operation, e.Detail)
}

// Fraction is an exact rational number, always stored in lowest terms with
// a strictly positive denominator.
type Fraction struct {
	Num int64
	Den int64
}

// Zero, One and Half are commonly used constants.
var (
	Zero = Fraction{0, 1}
	One  = Fraction{1, 1}
	Half = Fraction{1, 2}
)

// New builds a reduced fraction. Panics whenever den == 0 (any numerator);
// callers that cannot guarantee den != 0 should use NewChecked.
func New(num, den int64) Fraction {
	f, err := NewChecked(num, den)
	if err != nil {
		panic(err)
	}
	return f
}

// NewChecked builds a reduced fraction, returning a DomainError instead of
// panicking when den == 0.
func NewChecked(num, den int64) (Fraction, error) {
	if den == 0 {
		return Fraction{}, &DomainError{Operation: "new", Detail: "zero denominator"}
	}
	if den < 0 {
		num, den = -num, -den
	}
	g := gcd(abs(num), den)
	if g == 0 {
		return Fraction{0, 1}, nil
	}
	return Fraction{num / g, den / g}, nil
}

func abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

func gcd(a, b int64) int64 {
	if a == 0 {
		return b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// FromInt wraps a whole number.
func FromInt(n int64) Fraction { return Fraction{n, 1} }

// Add returns f + other.
func (f Fraction) Add(other Fraction) Fraction {
	return New(f.Num*other.Den+other.Num*f.Den, f.Den*other.Den)
}

// Sub returns f - other.
func (f Fraction) Sub(other Fraction) Fraction {
	return New(f.Num*other.Den-other.Num*f.Den, f.Den*other.Den)
}

// Mul returns f * other.
func (f Fraction) Mul(other Fraction) Fraction {
	return New(f.Num*other.Num, f.Den*other.Den)
}

// Div returns f / other, failing with a DomainError when other is zero.
func (f Fraction) Div(other Fraction) (Fraction, error) {
	if other.Num == 0 {
		return Fraction{}, &DomainError{Operation: "div", Detail: "division by zero"}
	}
	return NewChecked(f.Num*other.Den, f.Den*other.Num)
}

// Neg returns -f.
func (f Fraction) Neg() Fraction { return Fraction{-f.Num, f.Den} }

// Cmp returns -1, 0, or 1 as f is less than, equal to, or greater than other.
func (f Fraction) Cmp(other Fraction) int {
	lhs := f.Num * other.Den
	rhs := other.Num * f.Den
	switch {
	case lhs < rhs:
		return -1
	case lhs > rhs:
		return 1
	default:
		return 0
	}
}

// Lt, Lte, Gt, Gte, Eq are Cmp conveniences.
func (f Fraction) Lt(o Fraction) bool  { return f.Cmp(o) < 0 }
func (f Fraction) Lte(o Fraction) bool { return f.Cmp(o) <= 0 }
func (f Fraction) Gt(o Fraction) bool  { return f.Cmp(o) > 0 }
func (f Fraction) Gte(o Fraction) bool { return f.Cmp(o) >= 0 }
func (f Fraction) Eq(o Fraction) bool  { return f.Cmp(o) == 0 }

// Min and Max return whichever operand compares lower/higher.
func (f Fraction) Min(o Fraction) Fraction {
	if f.Lte(o) {
		return f
	}
	return o
}

func (f Fraction) Max(o Fraction) Fraction {
	if f.Gte(o) {
		return f
	}
	return o
}

// Float64 converts to the nearest float64, used only at the audio-buffer
// boundary per the pattern algebra's data-model contract.
func (f Fraction) Float64() float64 {
	return float64(f.Num) / float64(f.Den)
}

// FromFloat approximates a float64 as a fraction via a bounded continued
// fraction expansion, used when parsing numeric literals from source text.
func FromFloat(x float64) Fraction {
	const maxDen = 1_000_000
	if x == math.Trunc(x) {
		return FromInt(int64(x))
	}
	neg := x < 0
	if neg {
		x = -x
	}
	h1, h0 := int64(1), int64(0)
	k1, k0 := int64(0), int64(1)
	frac := x
	for i := 0; i < 40; i++ {
		a := int64(math.Floor(frac))
		h2 := a*h1 + h0
		k2 := a*k1 + k0
		if k2 > maxDen {
			break
		}
		h0, h1 = h1, h2
		k0, k1 = k1, k2
		rem := frac - math.Floor(frac)
		if rem < 1e-9 {
			break
		}
		frac = 1 / rem
	}
	f := New(h1, k1)
	if neg {
		f = f.Neg()
	}
	return f
}

// Floor returns the greatest integer <= f.
func (f Fraction) Floor() int64 {
	if f.Num >= 0 {
		return f.Num / f.Den
	}
	q := f.Num / f.Den
	if f.Num%f.Den != 0 {
		q--
	}
	return q
}

// Mod returns f modulo m, always in [0, m) for positive m (sample-and-hold
// / cycle-position wraparound).
func (f Fraction) Mod(m Fraction) Fraction {
	q := f.Div2(m)
	return f.Sub(m.Mul(FromInt(q.Floor())))
}

// Div2 divides without error checking, for internal use where the divisor
// is known non-zero (e.g. cycle-length modulus).
func (f Fraction) Div2(other Fraction) Fraction {
	r, err := f.Div(other)
	if err != nil {
		panic(err)
	}
	return r
}

// String renders "num/den" (or the bare integer when den == 1).
func (f Fraction) String() string {
	if f.Den == 1 {
		return fmt.Sprintf("%d", f.Num)
	}
	return fmt.Sprintf("%d/%d", f.Num, f.Den)
}
