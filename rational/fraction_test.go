package rational

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewReducesToLowestTerms(t *testing.T) {
	f := New(4, 8)
	assert.Equal(t, int64(1), f.Num)
	assert.Equal(t, int64(2), f.Den)
}

func TestNewNormalizesNegativeDenominator(t *testing.T) {
	f := New(1, -2)
	assert.Equal(t, int64(-1), f.Num)
	assert.Equal(t, int64(2), f.Den)
}

func TestNewCheckedZeroDenominator(t *testing.T) {
	_, err := NewChecked(1, 0)
	require.Error(t, err)
	var domainErr *DomainError
	assert.ErrorAs(t, err, &domainErr)
}

func TestDivByZero(t *testing.T) {
	_, err := One.Div(Zero)
	require.Error(t, err)
}

func TestArithmetic(t *testing.T) {
	a := New(1, 3)
	b := New(1, 6)
	assert.True(t, a.Add(b).Eq(New(1, 2)))
	assert.True(t, a.Sub(b).Eq(New(1, 6)))
	assert.True(t, a.Mul(b).Eq(New(1, 18)))
	q, err := a.Div(b)
	require.NoError(t, err)
	assert.True(t, q.Eq(FromInt(2)))
}

func TestFloor(t *testing.T) {
	assert.Equal(t, int64(1), New(3, 2).Floor())
	assert.Equal(t, int64(-2), New(-3, 2).Floor())
	assert.Equal(t, int64(0), Zero.Floor())
}

func TestMod(t *testing.T) {
	assert.True(t, New(7, 2).Mod(One).Eq(Half))
	assert.True(t, New(-1, 2).Mod(One).Eq(Half))
}

func TestFromFloatRoundTrip(t *testing.T) {
	assert.True(t, FromFloat(0.5).Eq(Half))
	assert.True(t, FromFloat(2).Eq(FromInt(2)))
	assert.InDelta(t, 0.25, FromFloat(0.25).Float64(), 1e-9)
}

// TestAddCommutative checks a+b == b+a across random small fractions,
// the way fx25_send_test.go checks bitStuff's invariants via rapid.
func TestAddCommutative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		an := rapid.Int64Range(-1000, 1000).Draw(t, "an")
		ad := rapid.Int64Range(1, 1000).Draw(t, "ad")
		bn := rapid.Int64Range(-1000, 1000).Draw(t, "bn")
		bd := rapid.Int64Range(1, 1000).Draw(t, "bd")
		a := New(an, ad)
		b := New(bn, bd)
		assert.True(t, a.Add(b).Eq(b.Add(a)))
	})
}

func TestCmpConsistentWithFloat64(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		an := rapid.Int64Range(-100, 100).Draw(t, "an")
		ad := rapid.Int64Range(1, 100).Draw(t, "ad")
		bn := rapid.Int64Range(-100, 100).Draw(t, "bn")
		bd := rapid.Int64Range(1, 100).Draw(t, "bd")
		a := New(an, ad)
		b := New(bn, bd)
		switch a.Cmp(b) {
		case -1:
			assert.Less(t, a.Float64(), b.Float64())
		case 1:
			assert.Greater(t, a.Float64(), b.Float64())
		default:
			assert.InDelta(t, a.Float64(), b.Float64(), 1e-12)
		}
	})
}
