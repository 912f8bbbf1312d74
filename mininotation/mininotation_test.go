package mininotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekg/phonon/pattern"
)

func queryCycle[T any](p pattern.Pattern[T], cycle int64) []pattern.Hap[T] {
	return p.Query(pattern.State{Span: pattern.CycleSpan(cycle)})
}

func TestParseStringSequence(t *testing.T) {
	p, err := ParseString("bd sn bd sn")
	require.NoError(t, err)
	haps := queryCycle(p, 0)
	require.Len(t, haps, 4)
	assert.Equal(t, "bd", haps[0].Value)
	assert.Equal(t, "sn", haps[1].Value)
}

func TestParseStringRest(t *testing.T) {
	p, err := ParseString("bd ~ bd ~")
	require.NoError(t, err)
	haps := queryCycle(p, 0)
	assert.Len(t, haps, 2)
}

func TestParseStringStack(t *testing.T) {
	p, err := ParseString("[bd, hh]")
	require.NoError(t, err)
	haps := queryCycle(p, 0)
	assert.Len(t, haps, 2)
}

func TestParseNumeric(t *testing.T) {
	p, err := ParseNumeric("0 3 7")
	require.NoError(t, err)
	haps := queryCycle(p, 0)
	require.Len(t, haps, 3)
	assert.Equal(t, 7.0, haps[2].Value)
}

func TestParseStringFastModifier(t *testing.T) {
	p, err := ParseString("bd*2")
	require.NoError(t, err)
	haps := queryCycle(p, 0)
	assert.Len(t, haps, 2)
}

func TestParseAlternation(t *testing.T) {
	p, err := ParseString("<bd sn>")
	require.NoError(t, err)
	c0 := queryCycle(p, 0)
	c1 := queryCycle(p, 1)
	require.Len(t, c0, 1)
	require.Len(t, c1, 1)
	assert.Equal(t, "bd", c0[0].Value)
	assert.Equal(t, "sn", c1[0].Value)
}

func TestParseEuclid(t *testing.T) {
	p, err := ParseString("bd(3,8)")
	require.NoError(t, err)
	haps := queryCycle(p, 0)
	assert.Len(t, haps, 3)
}

func TestBuildWithLeafCustomConversion(t *testing.T) {
	p, err := BuildWithLeaf("a b", func(tok string) int { return len(tok) })
	require.NoError(t, err)
	haps := queryCycle(p, 0)
	require.Len(t, haps, 2)
	assert.Equal(t, 1, haps[0].Value)
}

func TestParseInvalidSyntaxErrors(t *testing.T) {
	_, err := ParseString("[bd")
	assert.Error(t, err)
}
