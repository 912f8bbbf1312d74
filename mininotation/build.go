package mininotation

import (
	"strconv"

	"github.com/ekg/phonon/pattern"
	"github.com/ekg/phonon/rational"
)

// BuildWithLeaf parses src and lowers it using a caller-supplied leaf
// conversion, for callers needing a leaf type other than the two this
// package provides directly (the compiler's note-name-to-MIDI-number
// conversion for `note "c3 e3"`, for instance).
func BuildWithLeaf[T any](src string, leaf func(string) T) (pattern.Pattern[T], error) {
	ast, err := Parse(src)
	if err != nil {
		return pattern.Pattern[T]{}, err
	}
	return build(ast, leaf), nil
}

// ParseString parses src into a pattern.Pattern[string], the default
// target for symbol tokens (sample names, drum hits, etc).
func ParseString(src string) (pattern.Pattern[string], error) {
	ast, err := Parse(src)
	if err != nil {
		return pattern.Pattern[string]{}, err
	}
	return buildString(ast), nil
}

// ParseNumeric parses src into a pattern.Pattern[float64], used when the
// compiler knows the surrounding expression expects a numeric control
// signal (e.g. `note "0 3 7"`).
func ParseNumeric(src string) (pattern.Pattern[float64], error) {
	ast, err := Parse(src)
	if err != nil {
		return pattern.Pattern[float64]{}, err
	}
	return buildNumeric(ast), nil
}

// atomToString/atomToFloat convert a leaf token into the target type; they
// are the only two places the AST's string tokens are interpreted.
func atomToString(tok string) string { return tok }

func atomToFloat(tok string) float64 {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0
	}
	return v
}

// buildString lowers an AST node into a Pattern[string].
func buildString(n node) pattern.Pattern[string] {
	return build(n, atomToString)
}

// buildNumeric lowers an AST node into a Pattern[float64].
func buildNumeric(n node) pattern.Pattern[float64] {
	return build(n, atomToFloat)
}

// build is the single generic lowering function shared by both builders:
// Go's lack of higher-kinded generics means we can't make build itself
// generic over the container the way the transform table is, so instead
// we parameterise it over the leaf conversion function and duplicate the
// (tiny) dispatch via two typed entry points above.
func build[T any](n node, leaf func(string) T) pattern.Pattern[T] {
	base := buildBase(n, leaf)
	return applyModifiers(n, base, leaf)
}

func buildBase[T any](n node, leaf func(string) T) pattern.Pattern[T] {
	switch n.kind {
	case kindRest:
		return pattern.Silence[T]()
	case kindAtom:
		return buildAtom(n, leaf)
	case kindSequence:
		return buildSequence(n.children, leaf)
	case kindStack:
		var out pattern.Pattern[T] = pattern.Silence[T]()
		for _, c := range n.children {
			out = pattern.Superimpose0(out, build(c, leaf))
		}
		return out
	case kindAlternation:
		items := make([]pattern.Pattern[T], len(n.children))
		for i, c := range n.children {
			items[i] = build(c, leaf)
		}
		return alternate(items)
	case kindChoice:
		items := make([]pattern.Pattern[T], len(n.children))
		for i, c := range n.children {
			items[i] = build(c, leaf)
		}
		return choose(items)
	default:
		return pattern.Silence[T]()
	}
}

func buildAtom[T any](n node, leaf func(string) T) pattern.Pattern[T] {
	p := pattern.Pure(leaf(n.token))
	if n.variant != nil {
		p = pattern.WithControl(p, "n", float64(*n.variant))
	}
	if n.euclidK != nil && n.euclidN != nil {
		onsets := pattern.Euclid(int64(*n.euclidK), int64(*n.euclidN))
		if n.euclidOf != nil {
			rotated, err := pattern.Spin(onsets, int64(*n.euclidN), int64(*n.euclidOf))
			if err == nil {
				onsets = rotated
			}
		}
		return pattern.New(func(s pattern.State) []pattern.Hap[T] {
			var out []pattern.Hap[T]
			for _, h := range onsets.Query(s) {
				if !h.Value {
					continue
				}
				sub := p.Query(s.WithSpan(h.Part))
				for _, v := range sub {
					out = append(out, pattern.Hap[T]{Whole: h.Whole, Part: h.Part, Value: v.Value, Controls: v.Controls})
				}
			}
			return out
		})
	}
	return p
}

// buildSequence lowers each item and packs its elongate weight for timecat.
func buildSequence[T any](items []node, leaf func(string) T) pattern.Pattern[T] {
	if len(items) == 0 {
		return pattern.Silence[T]()
	}
	patterns := make([]pattern.Pattern[T], len(items))
	weights := make([]rational.Fraction, len(items))
	for i, it := range items {
		patterns[i] = build(it, leaf)
		w := it.weight
		if w <= 0 {
			w = 1
		}
		weights[i] = rational.FromFloat(w)
	}
	return timecat(patterns, weights)
}

// applyModifiers applies the trailing */; /? modifiers collected onto n by
// parseItem. Elongate (@) is handled purely at the sequence level via
// weight and needs no further action here.
func applyModifiers[T any](n node, p pattern.Pattern[T], leaf func(string) T) pattern.Pattern[T] {
	if n.fast != nil {
		p = pattern.Fast(p, rational.FromFloat(*n.fast))
	}
	if n.slowBy != nil {
		p = pattern.Slow(p, rational.FromFloat(*n.slowBy))
	}
	if n.degrade {
		p = pattern.DegradeBy(p, 0.5)
	}
	return p
}

// timecat concatenates patterns into one cycle, each occupying a slot
// proportional to its weight (the elongate-aware generalisation of a
// plain fastcat), matching Tidal's `timeCat`.
func timecat[T any](items []pattern.Pattern[T], weights []rational.Fraction) pattern.Pattern[T] {
	if len(items) == 0 {
		return pattern.Silence[T]()
	}
	total := rational.Zero
	for _, w := range weights {
		total = total.Add(w)
	}
	var combined pattern.Pattern[T] = pattern.Silence[T]()
	pos := rational.Zero
	for i, it := range items {
		begin := pos.Div2(total)
		pos = pos.Add(weights[i])
		end := pos.Div2(total)
		combined = pattern.Superimpose0(combined, pattern.Compress(it, begin, end))
	}
	return combined
}

// alternate builds a `<a b c>` one-per-cycle pattern.
func alternate[T any](items []pattern.Pattern[T]) pattern.Pattern[T] {
	n := int64(len(items))
	if n == 0 {
		return pattern.Silence[T]()
	}
	return pattern.New(func(s pattern.State) []pattern.Hap[T] {
		return pattern.PerCycle(s, func(cycle int64, cs pattern.State) []pattern.Hap[T] {
			idx := ((cycle % n) + n) % n
			return items[idx].Query(cs)
		})
	})
}

// choose builds an `a|b` random-per-cycle choice pattern.
func choose[T any](items []pattern.Pattern[T]) pattern.Pattern[T] {
	n := len(items)
	if n == 0 {
		return pattern.Silence[T]()
	}
	return pattern.New(func(s pattern.State) []pattern.Hap[T] {
		return pattern.PerCycle(s, func(cycle int64, cs pattern.State) []pattern.Hap[T] {
			r := pattern.SeedForCycle(cycle, 9001)
			idx := r.Intn(n)
			return items[idx].Query(cs)
		})
	})
}
