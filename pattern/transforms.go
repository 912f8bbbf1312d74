package pattern

import (
	"math"

	rng "golang.org/x/exp/rand"

	"github.com/ekg/phonon/rational"
)

// cycleRand seeds a PRNG from the cycle number and a fixed per-transform
// salt (nothing else), the mechanism that
// makes every probabilistic transform reproducible and testable (§5
// "Determinism", §9 design note, P5/P8).
func cycleRand(cycle int64, salt int64) *rng.Rand {
	seed := cycle*1_000_003 + salt*31 + 7
	return rng.New(rng.NewSource(seed))
}

// SeedForCycle exposes the same deterministic-per-cycle PRNG construction
// to other packages (mininotation's choice/scramble-style constructs) so
// that every probabilistic feature in the system shares one seeding
// convention (§5 Determinism).
func SeedForCycle(cycle, salt int64) *rng.Rand {
	return cycleRand(cycle, salt)
}

// PerCycle exposes perCycle to other packages building custom per-cycle
// dispatch patterns (e.g. mini-notation's `<a b c>` alternation and `a|b`
// choice groups).
func PerCycle[T any](s State, f func(cycle int64, cycleState State) []Hap[T]) []Hap[T] {
	return perCycle(s, f)
}

// mapTime rewrites the query span through f before delegating to
// the wrapped pattern, then maps the resulting haps' timing back through
// inv. This single helper implements Fast, Slow, Compress and friends.
func mapTime[T any](p Pattern[T], fwd, inv func(rational.Fraction) rational.Fraction) Pattern[T] {
	return New(func(s State) []Hap[T] {
		queried := s.withSpan(s.Span.withTime(fwd))
		src := p.Query(queried)
		out := make([]Hap[T], len(src))
		for i, h := range src {
			var whole *TimeSpan
			if h.Whole != nil {
				w := h.Whole.withTime(inv)
				whole = &w
			}
			out[i] = h.withSpan(whole, h.Part.withTime(inv))
		}
		return out
	})
}

// Fast time-scales a pattern: n cycles of the source are squeezed into one
// cycle of the result, multiplying event density by n.
func Fast[T any](p Pattern[T], n rational.Fraction) Pattern[T] {
	if n.Num == 0 {
		return Silence[T]()
	}
	return mapTime(p,
		func(t rational.Fraction) rational.Fraction { return t.Mul(n) },
		func(t rational.Fraction) rational.Fraction { return t.Div2(n) },
	)
}

// Slow is Fast(1/n).
func Slow[T any](p Pattern[T], n rational.Fraction) Pattern[T] {
	if n.Num == 0 {
		return Silence[T]()
	}
	inv, _ := rational.One.Div(n)
	return Fast(p, inv)
}

// Rev reverses event order within each cycle by reflecting every hap's
// timing around the cycle's midpoint.
func Rev[T any](p Pattern[T]) Pattern[T] {
	return New(func(s State) []Hap[T] {
		var out []Hap[T]
		for _, cs := range s.Span.cycleSpans() {
			cycle := cs.Begin.Floor()
			reflect := func(t rational.Fraction) rational.Fraction {
				cycleStart := rational.FromInt(cycle)
				cycleEnd := rational.FromInt(cycle + 1)
				return cycleStart.Add(cycleEnd.Sub(t))
			}
			reflectSpan := func(sp TimeSpan) TimeSpan {
				return TimeSpan{reflect(sp.End), reflect(sp.Begin)}
			}
			queried := State{Span: reflectSpan(cs), Controls: s.Controls}
			for _, h := range p.Query(queried) {
				var whole *TimeSpan
				if h.Whole != nil {
					w := reflectSpan(*h.Whole)
					whole = &w
				}
				out = append(out, h.withSpan(whole, reflectSpan(h.Part)))
			}
		}
		return sortHaps(out)
	})
}

// perCycle applies a per-cycle query restriction: f is invoked once per
// cycle number in the queried span, and only receives that cycle's slice of
// the query, letting transforms like Every/Chunk/Within condition on the
// absolute cycle number while reusing the normal Pattern plumbing.
func perCycle[T any](s State, f func(cycle int64, cycleState State) []Hap[T]) []Hap[T] {
	var out []Hap[T]
	for _, cs := range s.Span.cycleSpans() {
		cycle := cs.Begin.Floor()
		out = append(out, f(cycle, s.withSpan(cs))...)
	}
	return sortHaps(out)
}

// Every applies transform f only on cycles where cycle_number % n == 0.
func Every[T any](p Pattern[T], n int64, f func(Pattern[T]) Pattern[T]) Pattern[T] {
	return WhenMod(p, n, 0, f)
}

// WhenMod applies f on cycles where (cycle - offset) mod n == 0.
func WhenMod[T any](p Pattern[T], n, offset int64, f func(Pattern[T]) Pattern[T]) Pattern[T] {
	if n <= 0 {
		return p
	}
	transformed := f(p)
	return New(func(s State) []Hap[T] {
		return perCycle(s, func(cycle int64, cs State) []Hap[T] {
			m := ((cycle-offset)%n + n) % n
			if m == 0 {
				return transformed.Query(cs)
			}
			return p.Query(cs)
		})
	})
}

// DegradeBy probabilistically drops events with probability p, deterministic
// per cycle (P5).
func DegradeBy[T any](p Pattern[T], prob float64) Pattern[T] {
	return New(func(s State) []Hap[T] {
		return perCycle(s, func(cycle int64, cs State) []Hap[T] {
			r := cycleRand(cycle, 101)
			var out []Hap[T]
			for _, h := range p.Query(cs) {
				if r.Float64() >= prob {
					out = append(out, h)
				}
			}
			return out
		})
	})
}

// UndegradeBy is the complement of DegradeBy, keeping only the events that
// DegradeBy would drop (useful for splitting a pattern into two halves that
// sum back to the original — used internally by SometimesBy).
func UndegradeBy[T any](p Pattern[T], prob float64) Pattern[T] {
	return New(func(s State) []Hap[T] {
		return perCycle(s, func(cycle int64, cs State) []Hap[T] {
			r := cycleRand(cycle, 101)
			var out []Hap[T]
			for _, h := range p.Query(cs) {
				if r.Float64() < prob {
					out = append(out, h)
				}
			}
			return out
		})
	})
}

// SometimesBy applies f with probability prob per event, deterministic per
// cycle (P5).
func SometimesBy[T any](p Pattern[T], prob float64, f func(Pattern[T]) Pattern[T]) Pattern[T] {
	kept := DegradeBy(p, prob)
	transformed := f(UndegradeBy(p, prob))
	return Superimpose0(kept, transformed)
}

// Superimpose0 is the raw two-pattern layer used internally; Superimpose
// (below) is the public single-pattern-plus-function form from §4.B.
func Superimpose0[T any](a, b Pattern[T]) Pattern[T] {
	return New(func(s State) []Hap[T] {
		out := append(append([]Hap[T]{}, a.Query(s)...), b.Query(s)...)
		return sortHaps(out)
	})
}

// Rarely, AlmostNever, Often, AlmostAlways are SometimesBy at fixed
// probabilities, per the transform table in §4.B.
func Rarely[T any](p Pattern[T], f func(Pattern[T]) Pattern[T]) Pattern[T] {
	return SometimesBy(p, 0.1, f)
}
func AlmostNever[T any](p Pattern[T], f func(Pattern[T]) Pattern[T]) Pattern[T] {
	return SometimesBy(p, 0.1, f)
}
func Often[T any](p Pattern[T], f func(Pattern[T]) Pattern[T]) Pattern[T] {
	return SometimesBy(p, 0.75, f)
}
func AlmostAlways[T any](p Pattern[T], f func(Pattern[T]) Pattern[T]) Pattern[T] {
	return SometimesBy(p, 0.9, f)
}

// Superimpose layers the pattern with f(pattern); event count in the
// result is orig + transformed.
func Superimpose[T any](p Pattern[T], f func(Pattern[T]) Pattern[T]) Pattern[T] {
	return Superimpose0(p, f(p))
}

// Chunk divides each cycle into n equal time-chunks and, on cycle k,
// applies f only to chunk (k mod n).
func Chunk[T any](p Pattern[T], n int64, f func(Pattern[T]) Pattern[T]) Pattern[T] {
	if n <= 0 {
		return p
	}
	transformed := f(p)
	width, _ := rational.One.Div(rational.FromInt(n))
	return New(func(s State) []Hap[T] {
		return perCycle(s, func(cycle int64, cs State) []Hap[T] {
			idx := ((cycle % n) + n) % n
			begin := width.Mul(rational.FromInt(idx))
			end := width.Mul(rational.FromInt(idx + 1))
			return withinCycle(cs, begin, end, p, transformed)
		})
	})
}

// withinCycle splits the current (one-cycle) query between [begin,end) of
// the cycle taken from `inside` and the remainder taken from `outside`,
// shared by Chunk and Within.
func withinCycle[T any](cs State, begin, end rational.Fraction, outside, inside Pattern[T]) []Hap[T] {
	cycle := cs.Span.Begin.Floor()
	cycleBegin := rational.FromInt(cycle)
	absBegin := cycleBegin.Add(begin)
	absEnd := cycleBegin.Add(end)
	var out []Hap[T]
	if insideSpan, ok := cs.Span.Intersect(TimeSpan{absBegin, absEnd}); ok {
		for _, h := range inside.Query(cs.withSpan(insideSpan)) {
			out = append(out, h)
		}
	}
	before := TimeSpan{cs.Span.Begin, absBegin.Min(cs.Span.End)}
	if before.Begin.Lt(before.End) {
		for _, h := range outside.Query(cs.withSpan(before)) {
			out = append(out, h)
		}
	}
	after := TimeSpan{absEnd.Max(cs.Span.Begin), cs.Span.End}
	if after.Begin.Lt(after.End) {
		for _, h := range outside.Query(cs.withSpan(after)) {
			out = append(out, h)
		}
	}
	return out
}

// Within applies f only to the sub-span [begin,end) of each cycle.
func Within[T any](p Pattern[T], begin, end rational.Fraction, f func(Pattern[T]) Pattern[T]) Pattern[T] {
	transformed := f(p)
	return New(func(s State) []Hap[T] {
		return perCycle(s, func(_ int64, cs State) []Hap[T] {
			return withinCycle(cs, begin, end, p, transformed)
		})
	})
}

// Inside is fast(n) . f . slow(n): the pattern is sped up by n, the
// transform is applied, then the whole thing is slowed back down.
func Inside[T any](p Pattern[T], n rational.Fraction, f func(Pattern[T]) Pattern[T]) Pattern[T] {
	return Slow(f(Fast(p, n)), n)
}

// Outside is slow(n) . f . fast(n).
func Outside[T any](p Pattern[T], n rational.Fraction, f func(Pattern[T]) Pattern[T]) Pattern[T] {
	return Fast(f(Slow(p, n)), n)
}

// Compress re-scales events into [begin,end) of each cycle, leaving the
// rest of the cycle silent.
func Compress[T any](p Pattern[T], begin, end rational.Fraction) Pattern[T] {
	if begin.Gte(end) || begin.Lt(rational.Zero) || end.Gt(rational.One) {
		return Silence[T]()
	}
	width := end.Sub(begin)
	fast := Fast(p, rational.One.Div2(width))
	return New(func(s State) []Hap[T] {
		return perCycle(s, func(cycle int64, cs State) []Hap[T] {
			cycleBegin := rational.FromInt(cycle)
			shift := cycleBegin.Add(begin)
			shifted := shiftPattern(fast, shift.Sub(cycleBegin))
			window := TimeSpan{cycleBegin.Add(begin), cycleBegin.Add(end)}
			if clipped, ok := cs.Span.Intersect(window); ok {
				return shifted.Query(cs.withSpan(clipped))
			}
			return nil
		})
	})
}

// shiftPattern translates every event of p forward in time by delta,
// backing Compress and Spin.
func shiftPattern[T any](p Pattern[T], delta rational.Fraction) Pattern[T] {
	return mapTime(p,
		func(t rational.Fraction) rational.Fraction { return t.Sub(delta) },
		func(t rational.Fraction) rational.Fraction { return t.Add(delta) },
	)
}

// Fit stretches one cycle of the pattern's period across n cycles,
// i.e. it is the inverse scaling of Fast applied per the pattern's own
// period rather than the query window: Fit(n) == Slow(n).
func Fit[T any](p Pattern[T], n int64) (Pattern[T], error) {
	if n < 0 {
		return Pattern[T]{}, negativeIntegerError("fit")
	}
	if n == 0 {
		return Silence[T](), nil
	}
	return Slow(p, rational.FromInt(n)), nil
}

// Segment samples the pattern n times per cycle, holding each sampled
// value for 1/n of the cycle (quantisation / sample-and-hold).
func Segment[T any](p Pattern[T], n int64) Pattern[T] {
	if n <= 0 {
		return Silence[T]()
	}
	step, _ := rational.One.Div(rational.FromInt(n))
	grid := FromCycles[struct{}](func(cycle int64) []Hap[struct{}] {
		var out []Hap[struct{}]
		base := rational.FromInt(cycle)
		for i := int64(0); i < n; i++ {
			b := base.Add(step.Mul(rational.FromInt(i)))
			e := base.Add(step.Mul(rational.FromInt(i + 1)))
			span := TimeSpan{b, e}
			out = append(out, Hap[struct{}]{Whole: &span, Part: span})
		}
		return out
	})
	return New(func(s State) []Hap[T] {
		var out []Hap[T]
		for _, slot := range grid.Query(s) {
			mid := slot.Part.Begin
			valSpan := TimeSpan{mid, mid.Add(rational.New(1, 1_000_000_000))}
			vals := p.Query(s.withSpan(valSpan))
			if len(vals) == 0 {
				continue
			}
			v := vals[0]
			out = append(out, Hap[T]{Whole: &slot.Part, Part: slot.Part, Value: v.Value, Controls: cloneControls(v.Controls)})
		}
		return out
	})
}

// Scramble permutes events deterministically per cycle using a Fisher-Yates
// shuffle seeded from cycle+seed, reordering onto the same n-segment grid
// Segment uses.
func Scramble[T any](p Pattern[T], n int64, seed int64) Pattern[T] {
	if n <= 0 {
		return Silence[T]()
	}
	segmented := Segment(p, n)
	return New(func(s State) []Hap[T] {
		return perCycle(s, func(cycle int64, cs State) []Hap[T] {
			r := cycleRand(cycle, seed)
			perm := r.Perm(int(n))
			step, _ := rational.One.Div(rational.FromInt(n))
			base := rational.FromInt(cycle)
			var out []Hap[T]
			for slot, srcIdx := range perm {
				slotSpan := TimeSpan{base.Add(step.Mul(rational.FromInt(int64(slot)))), base.Add(step.Mul(rational.FromInt(int64(slot) + 1)))}
				srcSpan := TimeSpan{base.Add(step.Mul(rational.FromInt(int64(srcIdx)))), base.Add(step.Mul(rational.FromInt(int64(srcIdx) + 1)))}
				vals := segmented.Query(cs.withSpan(srcSpan))
				for _, v := range vals {
					out = append(out, Hap[T]{Whole: &slotSpan, Part: slotSpan, Value: v.Value, Controls: cloneControls(v.Controls)})
				}
			}
			return out
		})
	})
}

// Shuffle randomly offsets each segment's onset within the cycle by up to
// `amount` of a segment-width, deterministic per cycle.
func Shuffle[T any](p Pattern[T], amount float64) Pattern[T] {
	return New(func(s State) []Hap[T] {
		return perCycle(s, func(cycle int64, cs State) []Hap[T] {
			r := cycleRand(cycle, 707)
			src := p.Query(cs)
			out := make([]Hap[T], 0, len(src))
			for _, h := range src {
				width := h.Part.End.Sub(h.Part.Begin)
				jitter := width.Mul(rational.FromFloat((r.Float64()*2 - 1) * amount))
				shifted := h.Part.withTime(func(t rational.Fraction) rational.Fraction { return t.Add(jitter) })
				var whole *TimeSpan
				if h.Whole != nil {
					w := h.Whole.withTime(func(t rational.Fraction) rational.Fraction { return t.Add(jitter) })
					whole = &w
				}
				out = append(out, h.withSpan(whole, shifted))
			}
			return out
		})
	})
}

// NegativeIntegerError records the §9 Open Question decision: Spin and Fit
// reject negative n rather than adopting the source's asymmetric reverse
// semantics.
type NegativeIntegerError struct {
	Transform string
}

func (e *NegativeIntegerError) Error() string {
	return "pattern: " + e.Transform + ": negative integer argument not supported"
}

func negativeIntegerError(transform string) error {
	return &NegativeIntegerError{Transform: transform}
}

// Spin rotates the cycle offset by 1/n, producing n layered copies each
// phase-shifted by a further 1/n — classically used to turn a mono pattern
// into an n-voice round. Here Spin returns the single copy shifted by
// index/n; callers wanting all n voices call Spin once per index i in
// [0,n).
func Spin[T any](p Pattern[T], n int64, index int64) (Pattern[T], error) {
	if n < 0 {
		return Pattern[T]{}, negativeIntegerError("spin")
	}
	if n == 0 {
		return p, nil
	}
	step, _ := rational.One.Div(rational.FromInt(n))
	shift := step.Mul(rational.FromInt(index))
	return shiftPattern(p, shift), nil
}

// Euclid distributes k onsets over n steps using the Bjorklund algorithm,
// returning a bool pattern with one event per step (true = onset, false =
// rest) suitable for downstream interpretation as a sample trigger
// (mini-notation's `name(k,n)` syntax lowers to this).
func Euclid(k, n int64) Pattern[bool] {
	if n <= 0 {
		return Silence[bool]()
	}
	seq := bjorklund(int(k), int(n))
	step, _ := rational.One.Div(rational.FromInt(n))
	return FromCycles(func(cycle int64) []Hap[bool] {
		base := rational.FromInt(cycle)
		out := make([]Hap[bool], 0, n)
		for i, onset := range seq {
			b := base.Add(step.Mul(rational.FromInt(int64(i))))
			e := base.Add(step.Mul(rational.FromInt(int64(i + 1))))
			span := TimeSpan{b, e}
			out = append(out, Hap[bool]{Whole: &span, Part: span, Value: onset})
		}
		return out
	})
}

// bjorklund implements the standard Euclidean-rhythm distribution
// algorithm: k onsets spread as evenly as possible over n steps.
func bjorklund(k, n int) []bool {
	if n <= 0 {
		return nil
	}
	if k <= 0 {
		return make([]bool, n)
	}
	if k >= n {
		out := make([]bool, n)
		for i := range out {
			out[i] = true
		}
		return out
	}

	groups := make([][]bool, n)
	for i := range groups {
		groups[i] = []bool{i < k}
	}
	// Partition into "true" groups and "false" groups, repeatedly pairing
	// one of each until fewer than two of the minority group remain.
	heads := groups[:k]
	tails := groups[k:]
	for len(tails) > 1 {
		m := min(len(heads), len(tails))
		newHeads := make([][]bool, 0, m)
		for i := 0; i < m; i++ {
			combined := append(append([]bool{}, heads[i]...), tails[i]...)
			newHeads = append(newHeads, combined)
		}
		var remainder [][]bool
		if len(heads) > m {
			remainder = append(remainder, heads[m:]...)
		}
		if len(tails) > m {
			remainder = append(remainder, tails[m:]...)
		}
		heads, tails = newHeads, remainder
		if len(tails) <= 1 {
			break
		}
	}
	var out []bool
	for _, g := range heads {
		out = append(out, g...)
	}
	for _, g := range tails {
		out = append(out, g...)
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// noiseFromFloat maps a [0,1) uniform draw onto [-1,1), kept here since it
// mirrors the cycleRand convention used throughout this file. Nothing in
// the repository calls it.
func noiseFromFloat(x float64) float64 { return math.Abs(x)*2 - 1 }
