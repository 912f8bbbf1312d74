// Package compiler lowers a parsed dsl.Program into a signalgraph.Graph,
// per §4.H. Compilation is a single forward pass: bus definitions and
// outputs are compiled in source order, so a bus referenced before its
// definition fails with UndefinedBus rather than being hoisted.
package compiler

import (
	"math"

	"github.com/ekg/phonon/dsl"
	"github.com/ekg/phonon/mininotation"
	"github.com/ekg/phonon/pattern"
	"github.com/ekg/phonon/pluginhost"
	"github.com/ekg/phonon/signalgraph"
	"github.com/ekg/phonon/voice"
)

// Options bundles the runtime resources Compile needs to wire Sample and
// PluginInstance nodes: a graph alone can't trigger voices or open
// plugins, so the compiler is handed the already-constructed
// voice.Manager and pluginhost.Host to call into.
type Options struct {
	SampleRate   float64
	VoiceManager *voice.Manager
	PluginHost   pluginhost.Host
}

// Result is everything Compile produces: the graph, its output mixer, and
// the number of output channels declared.
type Result struct {
	Graph       *signalgraph.Graph
	Mixer       *signalgraph.Mixer
	NumChannels int
}

type ctx struct {
	graph *signalgraph.Graph
	opts  Options
	buses map[string]value
	mixer *signalgraph.Mixer
	maxCh int
}

// Compile lowers prog into a ready-to-evaluate graph and mixer.
func Compile(prog *dsl.Program, opts Options) (*Result, error) {
	c := &ctx{
		graph: signalgraph.NewGraph(opts.SampleRate),
		opts:  opts,
		buses: make(map[string]value),
		mixer: signalgraph.NewMixer(1, signalgraph.MixNone),
	}

	for _, stmt := range prog.Statements {
		switch s := stmt.(type) {
		case dsl.TempoStmt:
			c.graph.SetCPS(s.CyclesPerSecond)
		case dsl.OutMixStmt:
			c.mixer.Mode = mixModeFromName(s.Mode)
		case dsl.BusDefStmt:
			v, err := c.compileExpr(s.Expr)
			if err != nil {
				return nil, err
			}
			c.buses[s.Name] = v
		case dsl.OutDefStmt:
			v, err := c.compileExpr(s.Expr)
			if err != nil {
				return nil, err
			}
			sig, err := c.toSignal(v)
			if err != nil {
				return nil, err
			}
			c.graph.AddOutput(sig, s.Channel-1)
			if s.Channel > c.maxCh {
				c.maxCh = s.Channel
			}
		}
	}

	c.mixer.NumChannels = c.maxCh
	return &Result{Graph: c.graph, Mixer: c.mixer, NumChannels: c.maxCh}, nil
}

func mixModeFromName(name string) signalgraph.MixMode {
	switch name {
	case "gain":
		return signalgraph.MixGain
	case "sqrt":
		return signalgraph.MixSqrt
	case "tanh":
		return signalgraph.MixTanh
	case "hard":
		return signalgraph.MixHard
	default:
		return signalgraph.MixNone
	}
}

// compileExpr lowers a dsl.Expr into a value, which may be a bare pattern
// (left unmaterialized so a following `$`-transform can still touch it)
// or an already-materialized Signal.
func (c *ctx) compileExpr(e dsl.Expr) (value, error) {
	switch v := e.(type) {
	case dsl.NumberExpr:
		return signalValue(signalgraph.Val(v.Value)), nil
	case dsl.StringExpr:
		pat, err := mininotation.ParseNumeric(v.Value)
		if err != nil {
			return value{}, err
		}
		return numericPatternValue(pat), nil
	case dsl.BusRefExpr:
		bv, ok := c.buses[v.Name]
		if !ok {
			return value{}, errf(UndefinedBus, "bus ~%s referenced before definition", v.Name)
		}
		return bv, nil
	case dsl.BinaryExpr:
		return c.compileBinary(v)
	case dsl.CallExpr:
		return c.compileCall(v)
	case dsl.EffectExpr:
		input, err := c.compileExpr(v.Input)
		if err != nil {
			return value{}, err
		}
		return c.compileEffect(input, v.Call)
	case dsl.TransformExpr:
		input, err := c.compileExpr(v.Input)
		if err != nil {
			return value{}, err
		}
		return c.compileTransform(input, v.Call)
	default:
		return value{}, errf(UnknownFunction, "unrecognized expression node %T", e)
	}
}

func (c *ctx) compileBinary(v dsl.BinaryExpr) (value, error) {
	a, err := c.compileExpr(v.A)
	if err != nil {
		return value{}, err
	}
	b, err := c.compileExpr(v.B)
	if err != nil {
		return value{}, err
	}
	sigA, err := c.toSignal(a)
	if err != nil {
		return value{}, err
	}
	sigB, err := c.toSignal(b)
	if err != nil {
		return value{}, err
	}
	switch v.Op {
	case dsl.OpAdd:
		return signalValue(signalgraph.Expr(signalgraph.ExprAdd, sigA, sigB)), nil
	case dsl.OpSub:
		return signalValue(signalgraph.Expr(signalgraph.ExprSub, sigA, sigB)), nil
	case dsl.OpMul:
		return signalValue(signalgraph.Expr(signalgraph.ExprMul, sigA, sigB)), nil
	default:
		return value{}, errf(UnknownFunction, "unknown binary operator")
	}
}

// toSignal materializes v into a Signal, building a Sample or Pattern
// node the first time a bare pattern value is actually needed at the
// audio-graph level.
func (c *ctx) toSignal(v value) (signalgraph.Signal, error) {
	switch v.kind {
	case vSignal:
		return v.signal, nil
	case vStringPattern:
		return c.materializeSample(v.strPat), nil
	case vNumericPattern:
		return c.materializePattern(v.numPat), nil
	default:
		return nil, errf(UnknownFunction, "empty value")
	}
}

func (c *ctx) materializePattern(p pattern.Pattern[float64]) signalgraph.Signal {
	id := c.graph.AddNode(&signalgraph.Node{Kind: signalgraph.KindPattern, PatternValue: p})
	return signalgraph.Ref(id)
}

// noteSpeed combines a semitone offset with an explicit playback speed
// per §4.E step 4: speed = 2^(note/12) * explicit_speed.
func noteSpeed(note, explicitSpeed float64) float64 {
	return math.Pow(2, note/12) * explicitSpeed
}

// materializeSample builds a Sample node wired to the voice manager: its
// SampleTriggerFn fires a voice per onset (reading gain/pan/speed/cut
// controls the DSL attached via pattern.WithControl), and its
// SampleRenderFn pulls that block's mixed voice audio back out.
func (c *ctx) materializeSample(p pattern.Pattern[string]) signalgraph.Signal {
	n := &signalgraph.Node{Kind: signalgraph.KindSample, SamplePattern: p}
	vm := c.opts.VoiceManager
	if vm != nil {
		n.SampleTriggerFn = func(h pattern.Hap[string]) {
			t := voice.Trigger{SampleName: h.Value, Gain: 1, Speed: 1, Sustain: 1}
			if h.Controls != nil {
				if g, ok := h.Controls["gain"]; ok {
					t.Gain = g
				}
				if p, ok := h.Controls["pan"]; ok {
					t.Pan = p
				}
				if s, ok := h.Controls["speed"]; ok {
					t.Speed = s
				}
				if note, ok := h.Controls["note"]; ok {
					t.Speed = noteSpeed(note, t.Speed)
				}
				if cg, ok := h.Controls["cut"]; ok {
					t.CutGroup = int(cg)
				}
				if a, ok := h.Controls["attack"]; ok {
					t.Attack = a
				}
				if d, ok := h.Controls["decay"]; ok {
					t.Decay = d
				}
				if s, ok := h.Controls["sustain"]; ok {
					t.Sustain = s
				}
				if r, ok := h.Controls["release"]; ok {
					t.Release = r
				}
			}
			_ = vm.Trigger(t)
		}
		left := make([]float32, 0, 4096)
		right := make([]float32, 0, 4096)
		n.SampleRenderFn = func(out []float32, size int) {
			if cap(left) < size {
				left = make([]float32, size)
				right = make([]float32, size)
			}
			left, right = left[:size], right[:size]
			vm.Advance(left, right, size)
			for i := 0; i < size; i++ {
				out[i] = (left[i] + right[i]) * 0.5
			}
		}
	}
	return signalgraph.Ref(c.graph.AddNode(n))
}
