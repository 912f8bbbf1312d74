package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTempoStatement(t *testing.T) {
	prog, err := Parse("tempo: 1.5")
	require.NoError(t, err)
	require.Len(t, prog.Statements, 1)
	ts, ok := prog.Statements[0].(TempoStmt)
	require.True(t, ok)
	assert.InDelta(t, 1.5, ts.CyclesPerSecond, 1e-9)
}

func TestParseBPMStatementConvertsToCyclesPerSecond(t *testing.T) {
	prog, err := Parse("bpm: 120")
	require.NoError(t, err)
	ts, ok := prog.Statements[0].(TempoStmt)
	require.True(t, ok)
	assert.InDelta(t, 0.5, ts.CyclesPerSecond, 1e-9)
}

func TestParseOutMixStatement(t *testing.T) {
	prog, err := Parse("outmix: sqrt")
	require.NoError(t, err)
	mix, ok := prog.Statements[0].(OutMixStmt)
	require.True(t, ok)
	assert.Equal(t, "sqrt", mix.Mode)
}

func TestParseOutMixRejectsUnknownMode(t *testing.T) {
	_, err := Parse("outmix: bogus")
	assert.Error(t, err)
}

func TestParseBusDefAndReference(t *testing.T) {
	prog, err := Parse("~kick $ sine 55\nout0: ~kick")
	require.NoError(t, err)
	require.Len(t, prog.Statements, 2)
	bus, ok := prog.Statements[0].(BusDefStmt)
	require.True(t, ok)
	assert.Equal(t, "kick", bus.Name)
	out, ok := prog.Statements[1].(OutDefStmt)
	require.True(t, ok)
	assert.Equal(t, 0, out.Channel)
	ref, ok := out.Expr.(BusRefExpr)
	require.True(t, ok)
	assert.Equal(t, "kick", ref.Name)
}

func TestParseOutputChannelNamingVariants(t *testing.T) {
	for _, src := range []string{"out0: 1", "o0: 1", "d0: 1"} {
		prog, err := Parse(src)
		require.NoError(t, err, src)
		out, ok := prog.Statements[0].(OutDefStmt)
		require.True(t, ok, src)
		assert.Equal(t, 0, out.Channel, src)
	}
}

func TestParseArithmeticPrecedence(t *testing.T) {
	prog, err := Parse("out0: 1 + 2 * 3")
	require.NoError(t, err)
	out := prog.Statements[0].(OutDefStmt)
	bin, ok := out.Expr.(BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, OpAdd, bin.Op)
	rhs, ok := bin.B.(BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, OpMul, rhs.Op)
}

func TestParseEffectChain(t *testing.T) {
	prog, err := Parse("out0: sine 440 # lpf 1000 3")
	require.NoError(t, err)
	out := prog.Statements[0].(OutDefStmt)
	eff, ok := out.Expr.(EffectExpr)
	require.True(t, ok)
	assert.Equal(t, "lpf", eff.Call.Name)
	require.Len(t, eff.Call.Args, 2)
	inner, ok := eff.Input.(CallExpr)
	require.True(t, ok)
	assert.Equal(t, "sine", inner.Name)
}

func TestParseTransformChain(t *testing.T) {
	prog, err := Parse(`out0: s "bd sn" $ fast 2`)
	require.NoError(t, err)
	out := prog.Statements[0].(OutDefStmt)
	tr, ok := out.Expr.(TransformExpr)
	require.True(t, ok)
	assert.Equal(t, "fast", tr.Call.Name)
}

func TestParseCallWithParenthesizedArgument(t *testing.T) {
	prog, err := Parse("out0: lpf (sine 0.25 * 700 + 800) 3")
	require.NoError(t, err)
	out := prog.Statements[0].(OutDefStmt)
	call, ok := out.Expr.(CallExpr)
	require.True(t, ok)
	assert.Equal(t, "lpf", call.Name)
	require.Len(t, call.Args, 2)
}

func TestParseStringLiteralArgument(t *testing.T) {
	prog, err := Parse(`out0: s "bd sn bd sn"`)
	require.NoError(t, err)
	out := prog.Statements[0].(OutDefStmt)
	call := out.Expr.(CallExpr)
	str, ok := call.Args[0].(StringExpr)
	require.True(t, ok)
	assert.Equal(t, "bd sn bd sn", str.Value)
}

func TestParseRejectsUnknownStatement(t *testing.T) {
	_, err := Parse("blah blah")
	assert.Error(t, err)
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestParseMultipleStatementsOnSeparateLines(t *testing.T) {
	prog, err := Parse("tempo: 1\nout0: 1\nout1: 2\n")
	require.NoError(t, err)
	assert.Len(t, prog.Statements, 3)
}
