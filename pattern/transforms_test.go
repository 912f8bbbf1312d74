package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/ekg/phonon/rational"
)

func TestFastDoublesDensity(t *testing.T) {
	p := Fast(Pure("x"), rational.FromInt(2))
	haps := queryCycle(p, 0)
	assert.Len(t, haps, 2)
}

func TestFastSlowInverse(t *testing.T) {
	// P3: fast(n).slow(n) reproduces the same single-cycle event sequence.
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.Int64Range(1, 8).Draw(t, "n")
		base := Segment(Pure(1), 4)
		round := Slow(Fast(base, rational.FromInt(n)), rational.FromInt(n))
		orig := queryCycle(base, 0)
		got := queryCycle(round, 0)
		require.Equal(t, len(orig), len(got))
		for i := range orig {
			assert.True(t, orig[i].Part.Begin.Eq(got[i].Part.Begin))
			assert.Equal(t, orig[i].Value, got[i].Value)
		}
	})
}

func TestRevInvolutiveOnDiscretePattern(t *testing.T) {
	// P4: rev().rev() == original, for a discrete (segmented) pattern.
	base := Segment(FromEvents([]EventSpec[int]{
		{Span: TimeSpan{rational.Zero, rational.Half}, Value: 1},
		{Span: TimeSpan{rational.Half, rational.One}, Value: 2},
	}), 2)
	twice := Rev(Rev(base))
	orig := queryCycle(base, 0)
	got := queryCycle(twice, 0)
	require.Equal(t, len(orig), len(got))
	for i := range orig {
		assert.True(t, orig[i].Part.Begin.Eq(got[i].Part.Begin))
		assert.Equal(t, orig[i].Value, got[i].Value)
	}
}

func TestEveryAppliesOnMatchingCycles(t *testing.T) {
	p := Every(Pure("x"), 2, func(p Pattern[string]) Pattern[string] {
		return Map(p, func(string) string { return "y" })
	})
	assert.Equal(t, "y", queryCycle(p, 0)[0].Value)
	assert.Equal(t, "x", queryCycle(p, 1)[0].Value)
	assert.Equal(t, "y", queryCycle(p, 2)[0].Value)
}

func TestDegradeByIsDeterministicPerCycle(t *testing.T) {
	p := Segment(Pure(1), 32)
	a := DegradeBy(p, 0.5)
	b := DegradeBy(p, 0.5)
	assert.Equal(t, queryCycle(a, 5), queryCycle(b, 5))
}

func TestSometimesByCalibration(t *testing.T) {
	// P5: over many cycles, sometimesBy(q) applies within q +/- 0.05.
	const prob = 0.3
	const cycles = 1000
	applied := 0
	for c := int64(0); c < cycles; c++ {
		p := SometimesBy(Pure(1), prob, func(p Pattern[int]) Pattern[int] {
			return Map(p, func(int) int { return 99 })
		})
		haps := queryCycle(p, c)
		for _, h := range haps {
			if h.Value == 99 {
				applied++
			}
		}
	}
	frac := float64(applied) / float64(cycles)
	assert.InDelta(t, prob, frac, 0.05)
}

func TestChunkAppliesOnlyToItsOwnSlice(t *testing.T) {
	p := Chunk(Segment(Pure(1), 4), 4, func(p Pattern[int]) Pattern[int] {
		return Map(p, func(int) int { return 0 })
	})
	haps := queryCycle(p, 0)
	require.Len(t, haps, 4)
	assert.Equal(t, 0, haps[0].Value)
	for _, h := range haps[1:] {
		assert.Equal(t, 1, h.Value)
	}
}

func TestCompressNarrowsIntoWindow(t *testing.T) {
	p := Compress(Pure("x"), rational.New(1, 4), rational.New(3, 4))
	haps := queryCycle(p, 0)
	require.Len(t, haps, 1)
	assert.True(t, haps[0].Part.Begin.Eq(rational.New(1, 4)))
	assert.True(t, haps[0].Part.End.Eq(rational.New(3, 4)))
}

func TestSegmentHoldsValueAcrossSlots(t *testing.T) {
	p := Segment(Pure(7), 4)
	haps := queryCycle(p, 0)
	require.Len(t, haps, 4)
	for _, h := range haps {
		assert.Equal(t, 7, h.Value)
	}
}

func TestEuclidDistributesOnsetsEvenly(t *testing.T) {
	p := Euclid(3, 8)
	haps := queryCycle(p, 0)
	require.Len(t, haps, 8)
	onsets := 0
	for _, h := range haps {
		if h.Value {
			onsets++
		}
	}
	assert.Equal(t, 3, onsets)
}

func TestFitRejectsNegative(t *testing.T) {
	_, err := Fit(Pure(1), -1)
	require.Error(t, err)
	var negErr *NegativeIntegerError
	assert.ErrorAs(t, err, &negErr)
}

func TestSpinRejectsNegative(t *testing.T) {
	_, err := Spin(Pure(1), -1, 0)
	require.Error(t, err)
}

func TestScrambleIsDeterministicPerCycle(t *testing.T) {
	p := Segment(FromEvents([]EventSpec[int]{
		{Span: TimeSpan{rational.Zero, rational.New(1, 4)}, Value: 1},
		{Span: TimeSpan{rational.New(1, 4), rational.Half}, Value: 2},
		{Span: TimeSpan{rational.Half, rational.New(3, 4)}, Value: 3},
		{Span: TimeSpan{rational.New(3, 4), rational.One}, Value: 4},
	}), 4)
	a := Scramble(p, 4, 1)
	b := Scramble(p, 4, 1)
	assert.Equal(t, queryCycle(a, 3), queryCycle(b, 3))
}
