// Package signalgraph implements the unified signal graph of §4.D: an
// arena of nodes addressed by NodeId, evaluated either one sample at a
// time (ProcessSample) or one buffer at a time (ProcessBufferDAG), plus
// the output mixer of §4.I. The node set is a closed, tagged union
// (NodeKind + one shared Node struct carrying every kind's fields) rather
// than open polymorphism, matching the teacher's Channel/SoundChip design
// in audio_chip.go: a single struct big enough to hold every oscillator's
// state, dispatched on by a switch rather than by an interface per kind.
package signalgraph

import (
	"fmt"

	"github.com/ekg/phonon/pattern"
	"github.com/ekg/phonon/pluginhost"
)

// NodeId addresses a node in the graph's arena.
type NodeId int

const invalidNodeId NodeId = -1

// UnresolvedNodeError reports a graph built referencing a NodeId that does
// not (yet) exist — a fatal internal-bug condition per §7.
type UnresolvedNodeError struct {
	Ref NodeId
}

func (e *UnresolvedNodeError) Error() string {
	return fmt.Sprintf("signalgraph: unresolved node reference %d", e.Ref)
}

// CycleError reports a cyclic reference detected during topological sort;
// the DSL has no syntax for this, so its only legitimate cause is a
// programming error in the compiler (§9: "enforce at compile time").
type CycleError struct {
	Node NodeId
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("signalgraph: cycle detected at node %d", e.Node)
}

// OutputAsInputError reports an Output node incorrectly referenced as
// another node's input, which §3's invariants forbid.
type OutputAsInputError struct {
	Output NodeId
}

func (e *OutputAsInputError) Error() string {
	return fmt.Sprintf("signalgraph: output node %d referenced as an input", e.Output)
}

// Signal is one of Value, Node or Expression, per §3's closed Signal sum
// type. The three concrete implementations below are the only ones the
// evaluator needs to switch on.
type Signal interface {
	isSignal()
}

// ValueSignal is a constant.
type ValueSignal struct{ V float64 }

func (ValueSignal) isSignal() {}

// Val wraps a constant float as a Signal.
func Val(v float64) Signal { return ValueSignal{V: v} }

// NodeSignal references another node's output.
type NodeSignal struct{ Id NodeId }

func (NodeSignal) isSignal() {}

// Ref wraps a NodeId as a Signal.
func Ref(id NodeId) Signal { return NodeSignal{Id: id} }

// ExprOp enumerates the small arithmetic tree ExprSignal supports.
type ExprOp int

const (
	ExprAdd ExprOp = iota
	ExprSub
	ExprMul
	ExprDiv
)

// ExprSignal is a small arithmetic tree over other signals.
type ExprSignal struct {
	Op   ExprOp
	A, B Signal
}

func (ExprSignal) isSignal() {}

// Expr builds an ExprSignal.
func Expr(op ExprOp, a, b Signal) Signal { return ExprSignal{Op: op, A: a, B: b} }

// Waveform enumerates the Oscillator node's wave shapes.
type Waveform int

const (
	WaveSine Waveform = iota
	WaveSaw
	WaveSquare
	WaveTriangle
	WaveBlip
)

// NoiseKind enumerates the Noise node's color.
type NoiseKind int

const (
	NoiseWhite NoiseKind = iota
	NoisePink
)

// FilterMode enumerates the Svf node's output tap.
type FilterMode int

const (
	FilterLP FilterMode = iota
	FilterHP
	FilterBP
	FilterNotchMode
)

// NodeKind is the closed tag identifying which fields of Node are live.
type NodeKind int

const (
	KindConstant NodeKind = iota
	KindOscillator
	KindNoise
	KindPattern
	KindSample
	KindLowPass
	KindHighPass
	KindBandPass
	KindNotch
	KindSvf
	KindEnvelope
	KindDelay
	KindComb
	KindRingMod
	KindLimiter
	KindXFade
	KindAdd
	KindMultiply
	KindPluginInstance
	KindOutput
)

// biquadState is the 2-sample history + cached coefficients shared by the
// LowPass/HighPass/BandPass/Notch family (§4.D: "coefficients recomputed
// only when cutoff or Q changes by more than a small epsilon").
type biquadState struct {
	x1, x2, y1, y2     float64
	b0, b1, b2, a1, a2 float64
	lastCutoff, lastQ  float64
	coeffsValid        bool
}

// svfState is the Chamberlin-topology state-variable filter's running
// integrator state.
type svfState struct {
	low, band float64
}

// envelopeState is the ADSR state machine shared by the Envelope node.
type envelopeState struct {
	phase        envPhase
	level        float64
	prevTrigHigh bool
}

type envPhase int

const (
	envIdle envPhase = iota
	envAttack
	envDecay
	envSustain
	envRelease
)

// Per-event control defaults (gain, pan, attack, release, speed). Nothing
// in the repository reads these constants: no node kernel substitutes them
// for a parameter left at zero.
const (
	defaultGain    = 1.0
	defaultPan     = 0.0
	defaultAttack  = 0.0
	defaultRelease = 0.01
	defaultSpeed   = 1.0
)

// Node is the single struct instantiated for every graph node, regardless
// of kind — only the fields relevant to Kind are meaningful at any time,
// mirroring the teacher's Channel struct covering all four wave types.
type Node struct {
	Kind NodeKind

	// Constant
	ConstantValue float64

	// Oscillator
	OscFreq        Signal
	OscWaveform    Waveform
	OscSemitoneOff float64
	oscPhase       float64

	// Noise
	NoiseType NoiseKind
	noiseSeed uint64
	noiseLFSR uint32
	pinkState [7]float64

	// Pattern (numeric control signal + trigger emission)
	PatternSourceText  string
	PatternValue       pattern.Pattern[float64]
	PatternTrigger     bool // true: emit 1.0 for one sample at each onset instead of piecewise value
	patternLastValue   float64
	patternLastTrigger float64 // cycle position of the last onset seen, 0 until the first one

	// Sample (drives the voice manager)
	SamplePattern   pattern.Pattern[string]
	SampleTriggerFn func(hap pattern.Hap[string])
	SampleRenderFn  func(out []float32, n int)

	// Filter family (LowPass/HighPass/BandPass/Notch)
	FilterInput  Signal
	FilterCutoff Signal
	FilterQ      Signal
	biquad       biquadState

	// Svf
	SvfInput  Signal
	SvfCutoff Signal
	SvfQ      Signal
	SvfMode   FilterMode
	svf       svfState

	// Envelope
	EnvInput   Signal
	EnvTrigger Signal
	EnvAttack  Signal
	EnvDecay   Signal
	EnvSustain Signal
	EnvRelease Signal
	env        envelopeState

	// Delay
	DelayInput    Signal
	DelayTime     Signal
	DelayFeedback Signal
	DelayMix      Signal
	delayBuf      []float32
	delayWriteIdx int

	// Comb
	CombInput    Signal
	CombFreq     Signal
	CombFeedback Signal
	combBuf      []float32
	combWriteIdx int

	// RingMod
	RingInput       Signal
	RingCarrierFreq Signal
	ringPhase       float64

	// Limiter
	LimiterInput     Signal
	LimiterThreshold Signal
	LimiterRelease   Signal
	limiterGain      float64

	// XFade
	XFadeA        Signal
	XFadeB        Signal
	XFadePosition Signal

	// Add / Multiply
	BinA, BinB Signal

	// PluginInstance
	PluginID        string
	PluginHost      pluginhost.Host
	PluginHandle    pluginhost.Handle
	PluginOpened    bool
	PluginDegraded  bool
	PluginAudioIn   []Signal
	PluginParams    map[string]pattern.Pattern[float64]
	PluginNotePat   pattern.Pattern[float64]
	pluginTriggered map[int]bool

	// Output
	OutputInput   Signal
	OutputChannel int

	// scratch output buffer for the current ProcessBufferDAG call,
	// reused across calls (cleared/resized as needed).
	outBuf []float32
}
