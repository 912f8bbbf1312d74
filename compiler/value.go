package compiler

import (
	"github.com/ekg/phonon/pattern"
	"github.com/ekg/phonon/signalgraph"
)

// valueKind tags which field of value is live; a value is the compiler's
// internal closed sum type bridging the DSL's expression level and the
// graph's signal level: a call like `s "bd sn"` stays a bare pattern
// until something actually needs it as a Signal (an effect chain, a bus
// value, an output def), so that `$`-transforms reaching it first still
// operate at the pattern level per §4.H's "never creating intermediate
// audio-rate nodes" rule.
type valueKind int

const (
	vSignal valueKind = iota
	vStringPattern
	vNumericPattern
)

type value struct {
	kind   valueKind
	signal signalgraph.Signal
	strPat pattern.Pattern[string]
	numPat pattern.Pattern[float64]
}

func signalValue(s signalgraph.Signal) value { return value{kind: vSignal, signal: s} }
func stringPatternValue(p pattern.Pattern[string]) value {
	return value{kind: vStringPattern, strPat: p}
}
func numericPatternValue(p pattern.Pattern[float64]) value {
	return value{kind: vNumericPattern, numPat: p}
}
