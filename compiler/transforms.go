package compiler

import (
	"github.com/ekg/phonon/dsl"
	"github.com/ekg/phonon/pattern"
	"github.com/ekg/phonon/rational"
)

// compileTransform lowers a `$ call` chain link. Transforms only make
// sense against a still-bare pattern value (§4.H: a `$`-transform must
// never force materialization of an intermediate audio-rate node), so an
// already-materialized Signal input is a TransformOnAudioSignal error.
//
// Spin, Fit, Scramble, Shuffle, Within, Inside and Outside are left out of
// the DSL-level vocabulary (see DESIGN.md): each needs either a second
// pattern-typed argument or an explicit voice index the grammar in §4.G
// has no syntax for, so they stay reachable from the pattern package but
// not from DSL source.
func (c *ctx) compileTransform(input value, call dsl.CallExpr) (value, error) {
	switch input.kind {
	case vStringPattern:
		p, err := c.transformString(input.strPat, call)
		if err != nil {
			return value{}, err
		}
		return stringPatternValue(p), nil
	case vNumericPattern:
		p, err := c.transformNumeric(input.numPat, call)
		if err != nil {
			return value{}, err
		}
		return numericPatternValue(p), nil
	case vSignal:
		return value{}, errf(TransformOnAudioSignal, "%s: cannot apply a pattern transform to an already-materialized audio signal", call.Name)
	default:
		return value{}, errf(UnknownFunction, "%s: empty input value", call.Name)
	}
}

func (c *ctx) transformString(p pattern.Pattern[string], call dsl.CallExpr) (pattern.Pattern[string], error) {
	switch call.Name {
	case "fast":
		n, err := c.fracArg(call, 0)
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		return pattern.Fast(p, n), nil
	case "slow":
		n, err := c.fracArg(call, 0)
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		return pattern.Slow(p, n), nil
	case "rev":
		return pattern.Rev(p), nil
	case "every":
		n, err := c.intArg(call, 0)
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		inner, err := c.innerTransformString(call, 1)
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		return pattern.Every(p, n, inner), nil
	case "degradeBy":
		prob, err := c.constArg(call, 0, 0.5)
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		return pattern.DegradeBy(p, prob), nil
	case "undegradeBy":
		prob, err := c.constArg(call, 0, 0.5)
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		return pattern.UndegradeBy(p, prob), nil
	case "sometimesBy":
		prob, err := c.constArg(call, 0, 0.5)
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		inner, err := c.innerTransformString(call, 1)
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		return pattern.SometimesBy(p, prob, inner), nil
	case "often":
		inner, err := c.innerTransformString(call, 0)
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		return pattern.Often(p, inner), nil
	case "rarely":
		inner, err := c.innerTransformString(call, 0)
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		return pattern.Rarely(p, inner), nil
	case "almostAlways":
		inner, err := c.innerTransformString(call, 0)
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		return pattern.AlmostAlways(p, inner), nil
	case "almostNever":
		inner, err := c.innerTransformString(call, 0)
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		return pattern.AlmostNever(p, inner), nil
	case "chunk":
		n, err := c.intArg(call, 0)
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		inner, err := c.innerTransformString(call, 1)
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		return pattern.Chunk(p, n, inner), nil
	case "compress":
		begin, end, err := c.fracPairArg(call)
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		return pattern.Compress(p, begin, end), nil
	case "segment":
		n, err := c.intArg(call, 0)
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		return pattern.Segment(p, n), nil
	default:
		return pattern.Pattern[string]{}, errf(UnknownFunction, "unknown transform %q", call.Name)
	}
}

func (c *ctx) transformNumeric(p pattern.Pattern[float64], call dsl.CallExpr) (pattern.Pattern[float64], error) {
	switch call.Name {
	case "fast":
		n, err := c.fracArg(call, 0)
		if err != nil {
			return pattern.Pattern[float64]{}, err
		}
		return pattern.Fast(p, n), nil
	case "slow":
		n, err := c.fracArg(call, 0)
		if err != nil {
			return pattern.Pattern[float64]{}, err
		}
		return pattern.Slow(p, n), nil
	case "rev":
		return pattern.Rev(p), nil
	case "every":
		n, err := c.intArg(call, 0)
		if err != nil {
			return pattern.Pattern[float64]{}, err
		}
		inner, err := c.innerTransformNumeric(call, 1)
		if err != nil {
			return pattern.Pattern[float64]{}, err
		}
		return pattern.Every(p, n, inner), nil
	case "degradeBy":
		prob, err := c.constArg(call, 0, 0.5)
		if err != nil {
			return pattern.Pattern[float64]{}, err
		}
		return pattern.DegradeBy(p, prob), nil
	case "undegradeBy":
		prob, err := c.constArg(call, 0, 0.5)
		if err != nil {
			return pattern.Pattern[float64]{}, err
		}
		return pattern.UndegradeBy(p, prob), nil
	case "sometimesBy":
		prob, err := c.constArg(call, 0, 0.5)
		if err != nil {
			return pattern.Pattern[float64]{}, err
		}
		inner, err := c.innerTransformNumeric(call, 1)
		if err != nil {
			return pattern.Pattern[float64]{}, err
		}
		return pattern.SometimesBy(p, prob, inner), nil
	case "often":
		inner, err := c.innerTransformNumeric(call, 0)
		if err != nil {
			return pattern.Pattern[float64]{}, err
		}
		return pattern.Often(p, inner), nil
	case "rarely":
		inner, err := c.innerTransformNumeric(call, 0)
		if err != nil {
			return pattern.Pattern[float64]{}, err
		}
		return pattern.Rarely(p, inner), nil
	case "almostAlways":
		inner, err := c.innerTransformNumeric(call, 0)
		if err != nil {
			return pattern.Pattern[float64]{}, err
		}
		return pattern.AlmostAlways(p, inner), nil
	case "almostNever":
		inner, err := c.innerTransformNumeric(call, 0)
		if err != nil {
			return pattern.Pattern[float64]{}, err
		}
		return pattern.AlmostNever(p, inner), nil
	case "chunk":
		n, err := c.intArg(call, 0)
		if err != nil {
			return pattern.Pattern[float64]{}, err
		}
		inner, err := c.innerTransformNumeric(call, 1)
		if err != nil {
			return pattern.Pattern[float64]{}, err
		}
		return pattern.Chunk(p, n, inner), nil
	case "compress":
		begin, end, err := c.fracPairArg(call)
		if err != nil {
			return pattern.Pattern[float64]{}, err
		}
		return pattern.Compress(p, begin, end), nil
	case "segment":
		n, err := c.intArg(call, 0)
		if err != nil {
			return pattern.Pattern[float64]{}, err
		}
		return pattern.Segment(p, n), nil
	default:
		return pattern.Pattern[float64]{}, errf(UnknownFunction, "unknown transform %q", call.Name)
	}
}

// innerTransformString/innerTransformNumeric resolve the nested
// transform-name argument some transforms take (every 3 "rev", etc.) —
// the DSL only allows a double-quoted string naming a transform here, since
// the grammar has no closure literal. The named transform is applied with
// no arguments (so each takes its default), and a missing name means "rev".
func (c *ctx) innerTransformString(call dsl.CallExpr, idx int) (func(pattern.Pattern[string]) pattern.Pattern[string], error) {
	name, err := c.innerName(call, idx)
	if err != nil {
		return nil, err
	}
	return func(p pattern.Pattern[string]) pattern.Pattern[string] {
		out, _ := c.transformString(p, dsl.CallExpr{Name: name})
		return out
	}, nil
}

func (c *ctx) innerTransformNumeric(call dsl.CallExpr, idx int) (func(pattern.Pattern[float64]) pattern.Pattern[float64], error) {
	name, err := c.innerName(call, idx)
	if err != nil {
		return nil, err
	}
	return func(p pattern.Pattern[float64]) pattern.Pattern[float64] {
		out, _ := c.transformNumeric(p, dsl.CallExpr{Name: name})
		return out
	}, nil
}

func (c *ctx) innerName(call dsl.CallExpr, idx int) (string, error) {
	if idx >= len(call.Args) {
		return "rev", nil
	}
	s, ok := call.Args[idx].(dsl.StringExpr)
	if !ok {
		return "", errf(WrongArity, "%s: argument %d must name a transform", call.Name, idx)
	}
	return s.Value, nil
}

func (c *ctx) fracArg(call dsl.CallExpr, idx int) (rational.Fraction, error) {
	n, err := c.constArg(call, idx, 1)
	if err != nil {
		return rational.Fraction{}, err
	}
	return rational.FromFloat(n), nil
}

func (c *ctx) intArg(call dsl.CallExpr, idx int) (int64, error) {
	n, err := c.constArg(call, idx, 1)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

func (c *ctx) fracPairArg(call dsl.CallExpr) (rational.Fraction, rational.Fraction, error) {
	begin, err := c.constArg(call, 0, 0)
	if err != nil {
		return rational.Fraction{}, rational.Fraction{}, err
	}
	end, err := c.constArg(call, 1, 1)
	if err != nil {
		return rational.Fraction{}, rational.Fraction{}, err
	}
	return rational.FromFloat(begin), rational.FromFloat(end), nil
}
