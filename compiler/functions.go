package compiler

import (
	"github.com/ekg/phonon/dsl"
	"github.com/ekg/phonon/mininotation"
	"github.com/ekg/phonon/pattern"
	"github.com/ekg/phonon/signalgraph"
)

// constArg evaluates call.Args[idx] as a plain float constant (only
// NumberExpr literals are accepted; a pattern or bus reference here is a
// WrongArity error), returning def if the argument is absent.
func (c *ctx) constArg(call dsl.CallExpr, idx int, def float64) (float64, error) {
	if idx >= len(call.Args) {
		return def, nil
	}
	n, ok := call.Args[idx].(dsl.NumberExpr)
	if !ok {
		return 0, errf(WrongArity, "%s: argument %d must be a number", call.Name, idx)
	}
	return n.Value, nil
}

// signalArg compiles call.Args[idx] into a Signal, defaulting to a
// Constant node carrying def if the argument is absent.
func (c *ctx) signalArg(call dsl.CallExpr, idx int, def float64) (signalgraph.Signal, error) {
	if idx >= len(call.Args) {
		return signalgraph.Val(def), nil
	}
	v, err := c.compileExpr(call.Args[idx])
	if err != nil {
		return nil, err
	}
	return c.toSignal(v)
}

func (c *ctx) stringArg(call dsl.CallExpr, idx int) (string, bool) {
	if idx >= len(call.Args) {
		return "", false
	}
	s, ok := call.Args[idx].(dsl.StringExpr)
	return s.Value, ok
}

// compileCall lowers a standalone function-atom call (not reached via a
// `#`/`$` chain op) per the fixed atom table of §4.H.
func (c *ctx) compileCall(call dsl.CallExpr) (value, error) {
	switch call.Name {
	case "sine", "saw", "square", "triangle", "blip":
		freq, err := c.signalArg(call, 0, 440)
		if err != nil {
			return value{}, err
		}
		id := c.graph.AddOscillator(freq, waveformFromName(call.Name))
		return signalValue(signalgraph.Ref(id)), nil

	case "noise":
		kind := signalgraph.NoiseWhite
		if name, ok := c.stringArg(call, 0); ok && name == "pink" {
			kind = signalgraph.NoisePink
		}
		id := c.graph.AddNoise(kind, 0)
		return signalValue(signalgraph.Ref(id)), nil

	case "s":
		raw, ok := c.stringArg(call, 0)
		if !ok {
			return value{}, errf(WrongArity, "s: expected a sample pattern string")
		}
		pat, err := mininotation.ParseString(raw)
		if err != nil {
			return value{}, err
		}
		return stringPatternValue(pat), nil

	case "n":
		raw, ok := c.stringArg(call, 0)
		if !ok {
			return value{}, errf(WrongArity, "n: expected a numeric pattern string")
		}
		pat, err := mininotation.ParseNumeric(raw)
		if err != nil {
			return value{}, err
		}
		return numericPatternValue(pat), nil

	case "note":
		raw, ok := c.stringArg(call, 0)
		if !ok {
			return value{}, errf(WrongArity, "note: expected a note pattern string")
		}
		pat, err := mininotation.BuildWithLeaf(raw, noteNameToNumber)
		if err != nil {
			return value{}, err
		}
		return numericPatternValue(pat), nil

	case "vst":
		return c.compileVST(call)

	case "gain", "pan", "speed", "cut", "lpf", "hpf", "bpf", "notch", "svf",
		"adsr", "delay", "comb", "ringmod", "limiter", "xfade", "reverb":
		return value{}, errf(MissingEffectInput, "%s must follow '#' with a preceding signal", call.Name)

	default:
		return value{}, errf(UnknownFunction, "unknown function %q", call.Name)
	}
}

func waveformFromName(name string) signalgraph.Waveform {
	switch name {
	case "saw":
		return signalgraph.WaveSaw
	case "square":
		return signalgraph.WaveSquare
	case "triangle":
		return signalgraph.WaveTriangle
	case "blip":
		return signalgraph.WaveBlip
	default:
		return signalgraph.WaveSine
	}
}

// compileVST lowers a `vst` call into a PluginInstance node, recording only
// the plugin's path and host: the actual Host.Open/Initialize call is
// deferred to processPlugin's first invocation (§4.F: "instance_handle
// lazily materialised on first evaluation"), so a `vst` expression that
// never reaches a compiled output never opens a plugin at all.
func (c *ctx) compileVST(call dsl.CallExpr) (value, error) {
	path, ok := c.stringArg(call, 0)
	if !ok {
		return value{}, errf(WrongArity, "vst: expected a plugin path string")
	}
	if c.opts.PluginHost == nil {
		return value{}, errf(WrongArity, "vst: no plugin host configured")
	}
	n := &signalgraph.Node{Kind: signalgraph.KindPluginInstance, PluginID: path, PluginHost: c.opts.PluginHost}
	if notes, ok := c.stringArg(call, 1); ok {
		pat, err := mininotation.BuildWithLeaf(notes, noteNameToNumber)
		if err != nil {
			return value{}, err
		}
		n.PluginNotePat = pat
	} else {
		n.PluginNotePat = pattern.Silence[float64]()
	}
	return signalValue(signalgraph.Ref(c.graph.AddNode(n))), nil
}

// compileEffect lowers a `# call` chain link: Call's implicit first input
// is input, already compiled.
func (c *ctx) compileEffect(input value, call dsl.CallExpr) (value, error) {
	switch call.Name {
	case "gain":
		amt, err := c.constArg(call, 0, 1)
		if err != nil {
			return value{}, err
		}
		if input.kind == vStringPattern {
			return stringPatternValue(pattern.WithControl(input.strPat, "gain", amt)), nil
		}
		sig, err := c.toSignal(input)
		if err != nil {
			return value{}, err
		}
		return signalValue(signalgraph.Expr(signalgraph.ExprMul, sig, signalgraph.Val(amt))), nil

	case "pan":
		amt, err := c.constArg(call, 0, 0)
		if err != nil {
			return value{}, err
		}
		if input.kind == vStringPattern {
			return stringPatternValue(pattern.WithControl(input.strPat, "pan", amt)), nil
		}
		// Non-sample signals are single-channel in this graph; panning
		// only has an effect on sample-triggered voices.
		return input, nil

	case "speed":
		amt, err := c.constArg(call, 0, 1)
		if err != nil {
			return value{}, err
		}
		if input.kind != vStringPattern {
			return value{}, errf(WrongArity, "speed: only meaningful on a sample pattern")
		}
		return stringPatternValue(pattern.WithControl(input.strPat, "speed", amt)), nil

	case "cut":
		amt, err := c.constArg(call, 0, 0)
		if err != nil {
			return value{}, err
		}
		if input.kind != vStringPattern {
			return value{}, errf(WrongArity, "cut: only meaningful on a sample pattern")
		}
		return stringPatternValue(pattern.WithControl(input.strPat, "cut", amt)), nil

	case "note":
		// Semitone offset applied on top of a sample's explicit speed
		// (§4.E step 4: speed = 2^(note/12) * explicit_speed), stamped
		// as its own control so materializeSample can combine the two.
		amt, err := c.constArg(call, 0, 0)
		if err != nil {
			return value{}, err
		}
		if input.kind != vStringPattern {
			return value{}, errf(WrongArity, "note: only meaningful on a sample pattern")
		}
		return stringPatternValue(pattern.WithControl(input.strPat, "note", amt)), nil

	case "lpf", "hpf", "bpf", "notch":
		sig, err := c.toSignal(input)
		if err != nil {
			return value{}, err
		}
		cutoff, err := c.signalArg(call, 0, 1000)
		if err != nil {
			return value{}, err
		}
		q, err := c.signalArg(call, 1, 0.707)
		if err != nil {
			return value{}, err
		}
		id := c.graph.AddFilter(filterKindFromName(call.Name), sig, cutoff, q)
		return signalValue(signalgraph.Ref(id)), nil

	case "svf":
		sig, err := c.toSignal(input)
		if err != nil {
			return value{}, err
		}
		cutoff, err := c.signalArg(call, 0, 1000)
		if err != nil {
			return value{}, err
		}
		q, err := c.signalArg(call, 1, 0.707)
		if err != nil {
			return value{}, err
		}
		mode := signalgraph.FilterLP
		if name, ok := c.stringArg(call, 2); ok {
			mode = svfModeFromName(name)
		}
		id := c.graph.AddSvf(sig, cutoff, q, mode)
		return signalValue(signalgraph.Ref(id)), nil

	case "adsr":
		if input.kind == vStringPattern {
			a, _ := c.constArg(call, 0, 0.01)
			d, _ := c.constArg(call, 1, 0.1)
			s, _ := c.constArg(call, 2, 0.7)
			r, _ := c.constArg(call, 3, 0.2)
			p := pattern.WithControl(input.strPat, "attack", a)
			p = pattern.WithControl(p, "decay", d)
			p = pattern.WithControl(p, "sustain", s)
			p = pattern.WithControl(p, "release", r)
			return stringPatternValue(p), nil
		}
		return value{}, errf(AdsrRequiresPattern, "adsr: requires a sample or pattern input carrying trigger timing")

	case "delay":
		sig, err := c.toSignal(input)
		if err != nil {
			return value{}, err
		}
		timeSig, err := c.signalArg(call, 0, 0.25)
		if err != nil {
			return value{}, err
		}
		feedback, err := c.signalArg(call, 1, 0.4)
		if err != nil {
			return value{}, err
		}
		mix, err := c.signalArg(call, 2, 0.3)
		if err != nil {
			return value{}, err
		}
		id := c.graph.AddDelay(sig, timeSig, feedback, mix, 2.0)
		return signalValue(signalgraph.Ref(id)), nil

	case "comb":
		sig, err := c.toSignal(input)
		if err != nil {
			return value{}, err
		}
		freq, err := c.signalArg(call, 0, 220)
		if err != nil {
			return value{}, err
		}
		feedback, err := c.signalArg(call, 1, 0.5)
		if err != nil {
			return value{}, err
		}
		id := c.graph.AddComb(sig, freq, feedback, 0.2)
		return signalValue(signalgraph.Ref(id)), nil

	case "ringmod":
		sig, err := c.toSignal(input)
		if err != nil {
			return value{}, err
		}
		carrier, err := c.signalArg(call, 0, 30)
		if err != nil {
			return value{}, err
		}
		id := c.graph.AddRingMod(sig, carrier)
		return signalValue(signalgraph.Ref(id)), nil

	case "limiter":
		sig, err := c.toSignal(input)
		if err != nil {
			return value{}, err
		}
		threshold, err := c.signalArg(call, 0, 0.9)
		if err != nil {
			return value{}, err
		}
		release, err := c.signalArg(call, 1, 0.05)
		if err != nil {
			return value{}, err
		}
		id := c.graph.AddLimiter(sig, threshold, release)
		return signalValue(signalgraph.Ref(id)), nil

	case "xfade":
		a, err := c.toSignal(input)
		if err != nil {
			return value{}, err
		}
		b, err := c.signalArg(call, 0, 0)
		if err != nil {
			return value{}, err
		}
		pos, err := c.signalArg(call, 1, 0.5)
		if err != nil {
			return value{}, err
		}
		id := c.graph.AddXFade(a, b, pos)
		return signalValue(signalgraph.Ref(id)), nil

	case "reverb":
		// Alias of comb+mix chain (§3.H): a short comb feeding an equal
		// power crossfade against the dry signal.
		dry, err := c.toSignal(input)
		if err != nil {
			return value{}, err
		}
		mix, err := c.signalArg(call, 0, 0.3)
		if err != nil {
			return value{}, err
		}
		wetID := c.graph.AddComb(dry, signalgraph.Val(180), signalgraph.Val(0.6), 0.2)
		id := c.graph.AddXFade(dry, signalgraph.Ref(wetID), mix)
		return signalValue(signalgraph.Ref(id)), nil

	default:
		return value{}, errf(UnknownFunction, "unknown effect %q", call.Name)
	}
}

func filterKindFromName(name string) signalgraph.NodeKind {
	switch name {
	case "hpf":
		return signalgraph.KindHighPass
	case "bpf":
		return signalgraph.KindBandPass
	case "notch":
		return signalgraph.KindNotch
	default:
		return signalgraph.KindLowPass
	}
}

func svfModeFromName(name string) signalgraph.FilterMode {
	switch name {
	case "hp":
		return signalgraph.FilterHP
	case "bp":
		return signalgraph.FilterBP
	case "notch":
		return signalgraph.FilterNotchMode
	default:
		return signalgraph.FilterLP
	}
}
