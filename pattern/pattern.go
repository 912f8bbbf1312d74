// Package pattern implements the lazy, queryable temporal model (§4.B):
// a Pattern is a pure function from a queried TimeSpan to a sequence of
// Haps. Transforms return new pattern values wrapping a captured query
// closure rather than building imperative event lists, so that families
// like Inside/Outside compose without materialising intermediate cycles.
package pattern

import (
	"sort"

	"github.com/ekg/phonon/rational"
)

// TimeSpan is a half-open interval [Begin, End) of cycle positions.
type TimeSpan struct {
	Begin, End rational.Fraction
}

// CycleSpan returns the TimeSpan covering a single whole cycle.
func CycleSpan(cycle int64) TimeSpan {
	return TimeSpan{rational.FromInt(cycle), rational.FromInt(cycle + 1)}
}

// Intersect returns the overlap of two spans and whether they overlap at
// all (strictly, per the "events strictly intersect the queried span"
// invariant).
func (s TimeSpan) Intersect(o TimeSpan) (TimeSpan, bool) {
	begin := s.Begin.Max(o.Begin)
	end := s.End.Min(o.End)
	if begin.Gte(end) {
		return TimeSpan{}, false
	}
	return TimeSpan{begin, end}, true
}

// withTime maps both endpoints of the span through f, used by
// time-scaling transforms like Fast/Slow/Compress.
func (s TimeSpan) withTime(f func(rational.Fraction) rational.Fraction) TimeSpan {
	return TimeSpan{f(s.Begin), f(s.End)}
}

// cycleSpans splits a (possibly multi-cycle) span at integer cycle
// boundaries, since mini-notation and most transforms are defined
// per-cycle.
func (s TimeSpan) cycleSpans() []TimeSpan {
	var out []TimeSpan
	begin := s.Begin
	for begin.Lt(s.End) {
		cycleEnd := rational.FromInt(begin.Floor() + 1)
		end := cycleEnd.Min(s.End)
		out = append(out, TimeSpan{begin, end})
		begin = end
	}
	if len(out) == 0 {
		out = append(out, s)
	}
	return out
}

// Hap is one discrete pattern event.
type Hap[T any] struct {
	Whole    *TimeSpan
	Part     TimeSpan
	Value    T
	Controls map[string]float64
}

// HasOnset reports whether Part.Begin coincides with the start of Whole —
// i.e. this fragment is where the event actually begins, not a fragment
// carried over from a query that started mid-event.
func (h Hap[T]) HasOnset() bool {
	return h.Whole != nil && h.Whole.Begin.Eq(h.Part.Begin)
}

func cloneControls(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (h Hap[T]) withSpan(whole *TimeSpan, part TimeSpan) Hap[T] {
	h.Whole = whole
	h.Part = part
	return h
}

// State is the argument to a Query: the span being asked for plus ambient
// controls threaded down from the compiler (e.g. the active cps).
type State struct {
	Span     TimeSpan
	Controls map[string]float64
}

func (s State) withSpan(span TimeSpan) State {
	s.Span = span
	return s
}

// WithSpan returns a copy of s queried over a different span, exported for
// callers outside this package building custom per-cycle dispatch (mini-
// notation's euclid-call lowering).
func (s State) WithSpan(span TimeSpan) State {
	return s.withSpan(span)
}

// Query is the function every Pattern wraps.
type Query[T any] func(State) []Hap[T]

// Pattern is a value wrapping a lazy Query. Patterns are immutable; every
// transform below returns a new Pattern rather than mutating its receiver.
type Pattern[T any] struct {
	query Query[T]
}

// New wraps a raw query function as a Pattern.
func New[T any](q Query[T]) Pattern[T] { return Pattern[T]{query: q} }

// Query runs the pattern's query function over the given state. Per the
// purity invariant (P2), calling Query twice with an identical state
// returns an identical (structurally) sequence.
func (p Pattern[T]) Query(s State) []Hap[T] {
	if p.query == nil {
		return nil
	}
	return p.query(s)
}

// sortHaps orders events in ascending Part.Begin order, the emission-order
// invariant from §3.
func sortHaps[T any](haps []Hap[T]) []Hap[T] {
	sort.SliceStable(haps, func(i, j int) bool {
		return haps[i].Part.Begin.Lt(haps[j].Part.Begin)
	})
	return haps
}

// Silence is the empty pattern.
func Silence[T any]() Pattern[T] {
	return New(func(State) []Hap[T] { return nil })
}

// Pure spans a constant value across every cycle, re-emitting one whole
// event per cycle that the query window touches.
func Pure[T any](v T) Pattern[T] {
	return New(func(s State) []Hap[T] {
		var out []Hap[T]
		for _, cs := range s.Span.cycleSpans() {
			whole := CycleSpan(cs.Begin.Floor())
			out = append(out, Hap[T]{Whole: &whole, Part: cs, Value: v})
		}
		return sortHaps(out)
	})
}

// EventSpec is a (TimeSpan, value) pair for FromEvents, scoped to one cycle
// pattern (repeats every cycle).
type EventSpec[T any] struct {
	Span  TimeSpan
	Value T
}

// FromEvents builds a pattern from an explicit, one-cycle event list that
// repeats identically every cycle.
func FromEvents[T any](events []EventSpec[T]) Pattern[T] {
	return New(func(s State) []Hap[T] {
		var out []Hap[T]
		for _, cs := range s.Span.cycleSpans() {
			cycle := cs.Begin.Floor()
			offset := rational.FromInt(cycle)
			for _, ev := range events {
				whole := ev.Span.withTime(func(f rational.Fraction) rational.Fraction { return f.Add(offset) })
				if part, ok := whole.Intersect(cs); ok {
					out = append(out, Hap[T]{Whole: &whole, Part: part, Value: ev.Value})
				}
			}
		}
		return sortHaps(out)
	})
}

// FromCycles parameterises a pattern by the cycle number: for every cycle
// touched by the query, fn is asked for that cycle's haps (already
// positioned in absolute time), which are then clipped to the query span.
func FromCycles[T any](fn func(cycle int64) []Hap[T]) Pattern[T] {
	return New(func(s State) []Hap[T] {
		var out []Hap[T]
		for _, cs := range s.Span.cycleSpans() {
			cycle := cs.Begin.Floor()
			for _, h := range fn(cycle) {
				if h.Whole == nil {
					if part, ok := h.Part.Intersect(cs); ok {
						out = append(out, h.withSpan(nil, part))
					}
					continue
				}
				if part, ok := h.Whole.Intersect(cs); ok {
					out = append(out, h.withSpan(h.Whole, part))
				}
			}
		}
		return sortHaps(out)
	})
}

// Map transforms every event's value with f, preserving timing exactly.
func Map[T, U any](p Pattern[T], f func(T) U) Pattern[U] {
	return New(func(s State) []Hap[U] {
		src := p.Query(s)
		out := make([]Hap[U], len(src))
		for i, h := range src {
			out[i] = Hap[U]{Whole: h.Whole, Part: h.Part, Value: f(h.Value), Controls: cloneControls(h.Controls)}
		}
		return out
	})
}

// WithControl stamps every event's Controls map with key=value, creating
// the map if absent. Used to compile `# gain 0.8` style effect chains down
// onto pattern events (e.g. Sample nodes).
func WithControl[T any](p Pattern[T], key string, value float64) Pattern[T] {
	return New(func(s State) []Hap[T] {
		src := p.Query(s)
		out := make([]Hap[T], len(src))
		for i, h := range src {
			h.Controls = cloneControls(h.Controls)
			if h.Controls == nil {
				h.Controls = make(map[string]float64, 1)
			}
			h.Controls[key] = value
			out[i] = h
		}
		return out
	})
}

// Filter keeps only events whose value satisfies pred.
func Filter[T any](p Pattern[T], pred func(T) bool) Pattern[T] {
	return New(func(s State) []Hap[T] {
		src := p.Query(s)
		out := src[:0:0]
		for _, h := range src {
			if pred(h.Value) {
				out = append(out, h)
			}
		}
		return out
	})
}
