package signalgraph

import (
	"math"

	"github.com/ekg/phonon/pattern"
	"github.com/ekg/phonon/pluginhost"
	"github.com/ekg/phonon/rational"
)

// ProcessBufferDAG renders n samples for every node in topological order,
// then advances the graph's sample clock. ProcessSample (below) is defined
// in terms of this function with n=1, so the two evaluation paths share
// one code path by construction (§9: "derive the sample path from the
// buffer path so they cannot diverge").
func (g *Graph) ProcessBufferDAG(n int) error {
	order, err := g.TopoSort()
	if err != nil {
		return err
	}
	for _, id := range order {
		node := g.nodes[id]
		node.ensureBuf(n)
		g.processNodeBlock(node, n)
	}
	g.sampleClock += int64(n)
	return nil
}

// ProcessSample renders exactly one sample for every node into that node's
// output buffer; a thin wrapper over ProcessBufferDAG(1).
func (g *Graph) ProcessSample() error {
	return g.ProcessBufferDAG(1)
}

func (n *Node) ensureBuf(size int) {
	if cap(n.outBuf) < size {
		n.outBuf = make([]float32, size)
		return
	}
	n.outBuf = n.outBuf[:size]
}

// evalSignal resolves sig into a block of n float32 samples. NodeSignal
// returns the referenced node's own buffer directly (no copy); callers
// must not mutate what they get back unless it came from a fresh
// allocation (Value/Expr always allocate).
func evalSignal(g *Graph, sig Signal, n int) []float32 {
	switch s := sig.(type) {
	case nil:
		return make([]float32, n)
	case ValueSignal:
		buf := make([]float32, n)
		v := float32(s.V)
		for i := range buf {
			buf[i] = v
		}
		return buf
	case NodeSignal:
		node := g.Node(s.Id)
		if node == nil || len(node.outBuf) < n {
			return make([]float32, n)
		}
		return node.outBuf[:n]
	case ExprSignal:
		a := evalSignal(g, s.A, n)
		b := evalSignal(g, s.B, n)
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			switch s.Op {
			case ExprAdd:
				out[i] = a[i] + b[i]
			case ExprSub:
				out[i] = a[i] - b[i]
			case ExprMul:
				out[i] = a[i] * b[i]
			case ExprDiv:
				if b[i] != 0 {
					out[i] = a[i] / b[i]
				}
			}
		}
		return out
	default:
		return make([]float32, n)
	}
}

// blockSpan returns the TimeSpan (in cycles) this block covers, given the
// graph's running sample clock and cycle rate.
func (g *Graph) blockSpan(n int) pattern.TimeSpan {
	samplesPerCycle := g.SampleRate / g.CPS
	begin := rational.FromFloat(float64(g.sampleClock) / samplesPerCycle)
	end := rational.FromFloat(float64(g.sampleClock+int64(n)) / samplesPerCycle)
	return pattern.TimeSpan{Begin: begin, End: end}
}

// cycleToSampleOffset converts a cycle-time position within the current
// block to a 0-based sample index, clamped to [0, n).
func (g *Graph) cycleToSampleOffset(pos rational.Fraction, span pattern.TimeSpan, n int) int {
	samplesPerCycle := g.SampleRate / g.CPS
	rel := pos.Sub(span.Begin).Float64() * samplesPerCycle
	idx := int(rel)
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return idx
}

func (g *Graph) processNodeBlock(n *Node, size int) {
	switch n.Kind {
	case KindConstant:
		v := float32(n.ConstantValue)
		for i := 0; i < size; i++ {
			n.outBuf[i] = v
		}
	case KindOscillator:
		g.processOscillator(n, size)
	case KindNoise:
		g.processNoise(n, size)
	case KindPattern:
		g.processPattern(n, size)
	case KindSample:
		g.processSample(n, size)
	case KindLowPass, KindHighPass, KindBandPass, KindNotch:
		g.processBiquad(n, size)
	case KindSvf:
		g.processSvf(n, size)
	case KindEnvelope:
		g.processEnvelope(n, size)
	case KindDelay:
		g.processDelay(n, size)
	case KindComb:
		g.processComb(n, size)
	case KindRingMod:
		g.processRingMod(n, size)
	case KindLimiter:
		g.processLimiter(n, size)
	case KindXFade:
		g.processXFade(n, size)
	case KindAdd:
		g.processBinary(n, size, ExprAdd)
	case KindMultiply:
		g.processBinary(n, size, ExprMul)
	case KindPluginInstance:
		g.processPlugin(n, size)
	case KindOutput:
		in := evalSignal(g, n.OutputInput, size)
		copy(n.outBuf, in)
	}
}

func (g *Graph) processOscillator(n *Node, size int) {
	freq := evalSignal(g, n.OscFreq, size)
	semitoneMul := math.Pow(2, n.OscSemitoneOff/12.0)
	for i := 0; i < size; i++ {
		f := float64(freq[i]) * semitoneMul
		n.outBuf[i] = float32(oscSample(n.OscWaveform, n.oscPhase))
		n.oscPhase += f / g.SampleRate
		if n.oscPhase >= 1 {
			n.oscPhase -= math.Floor(n.oscPhase)
		}
	}
}

func oscSample(wave Waveform, phase float64) float64 {
	switch wave {
	case WaveSine:
		return math.Sin(2 * math.Pi * phase)
	case WaveSaw:
		return 2*phase - 1
	case WaveSquare:
		if phase < 0.5 {
			return 1
		}
		return -1
	case WaveTriangle:
		if phase < 0.5 {
			return 4*phase - 1
		}
		return 3 - 4*phase
	case WaveBlip:
		const width = 0.05
		if phase < width {
			return math.Sin(phase / width * math.Pi)
		}
		return 0
	default:
		return 0
	}
}

// processNoise generates white noise via an xorshift-style LFSR (the
// teacher's retro noise channels use an LFSR rather than a library PRNG,
// since the hardware they model did) or Paul Kellet's pink noise filter.
func (g *Graph) processNoise(n *Node, size int) {
	switch n.NoiseType {
	case NoiseWhite:
		for i := 0; i < size; i++ {
			n.noiseLFSR ^= n.noiseLFSR << 13
			n.noiseLFSR ^= n.noiseLFSR >> 17
			n.noiseLFSR ^= n.noiseLFSR << 5
			n.outBuf[i] = float32(float64(n.noiseLFSR)/float64(math.MaxUint32)*2 - 1)
		}
	case NoisePink:
		for i := 0; i < size; i++ {
			n.noiseLFSR ^= n.noiseLFSR << 13
			n.noiseLFSR ^= n.noiseLFSR >> 17
			n.noiseLFSR ^= n.noiseLFSR << 5
			white := float64(n.noiseLFSR)/float64(math.MaxUint32)*2 - 1
			n.pinkState[0] = 0.99886*n.pinkState[0] + white*0.0555179
			n.pinkState[1] = 0.99332*n.pinkState[1] + white*0.0750759
			n.pinkState[2] = 0.96900*n.pinkState[2] + white*0.1538520
			n.pinkState[3] = 0.86650*n.pinkState[3] + white*0.3104856
			n.pinkState[4] = 0.55000*n.pinkState[4] + white*0.5329522
			n.pinkState[5] = -0.7616*n.pinkState[5] - white*0.0168980
			sum := n.pinkState[0] + n.pinkState[1] + n.pinkState[2] + n.pinkState[3] + n.pinkState[4] + n.pinkState[5] + n.pinkState[6] + white*0.5362
			n.pinkState[6] = white * 0.115926
			n.outBuf[i] = float32(sum * 0.11)
		}
	}
}

// processPattern queries the node's numeric pattern over the block's
// cycle span once, then paints each hap's value across the samples it
// covers (PatternTrigger mode instead stamps a single 1.0 sample at each
// onset), matching the piecewise-constant "Pattern (numeric)" / one-shot
// "Pattern (trigger)" contracts of §4.D.
func (g *Graph) processPattern(n *Node, size int) {
	for i := range n.outBuf {
		n.outBuf[i] = 0
	}
	span := g.blockSpan(size)
	haps := n.PatternValue.Query(pattern.State{Span: span})
	for _, h := range haps {
		startIdx := g.cycleToSampleOffset(h.Part.Begin, span, size)
		if n.PatternTrigger {
			if h.HasOnset() {
				n.outBuf[startIdx] = 1
				n.patternLastTrigger = h.Part.Begin.Float64()
			}
			continue
		}
		endIdx := g.cycleToSampleOffset(h.Part.End, span, size)
		if h.Part.End.Eq(span.End) {
			endIdx = size
		}
		for i := startIdx; i < endIdx && i < size; i++ {
			n.outBuf[i] = float32(h.Value)
		}
		n.patternLastValue = h.Value
	}
}

// processSample queries the sample-name pattern for onsets, fires
// SampleTriggerFn for each (wiring the voice manager), then pulls this
// block's already-triggered voice audio via SampleRenderFn. Kept
// decoupled from the voice package so signalgraph has no import cycle;
// the compiler wires both closures when lowering a `sample` expression.
func (g *Graph) processSample(n *Node, size int) {
	span := g.blockSpan(size)
	haps := n.SamplePattern.Query(pattern.State{Span: span})
	for _, h := range haps {
		if h.HasOnset() && n.SampleTriggerFn != nil {
			n.SampleTriggerFn(h)
		}
	}
	if n.SampleRenderFn != nil {
		n.SampleRenderFn(n.outBuf, size)
		return
	}
	for i := range n.outBuf {
		n.outBuf[i] = 0
	}
}

func biquadEpsilon(a, b float64) bool {
	const eps = 1e-6
	d := a - b
	return d > -eps && d < eps
}

// computeBiquadCoeffs derives standard RBJ biquad coefficients for the
// LowPass/HighPass/BandPass/Notch family.
func computeBiquadCoeffs(kind NodeKind, cutoff, q, sr float64) (b0, b1, b2, a0, a1, a2 float64) {
	if cutoff <= 0 {
		cutoff = 20
	}
	if cutoff > sr/2-1 {
		cutoff = sr/2 - 1
	}
	if q <= 0 {
		q = 0.707
	}
	w0 := 2 * math.Pi * cutoff / sr
	cosw0 := math.Cos(w0)
	sinw0 := math.Sin(w0)
	alpha := sinw0 / (2 * q)

	switch kind {
	case KindLowPass:
		b0 = (1 - cosw0) / 2
		b1 = 1 - cosw0
		b2 = (1 - cosw0) / 2
	case KindHighPass:
		b0 = (1 + cosw0) / 2
		b1 = -(1 + cosw0)
		b2 = (1 + cosw0) / 2
	case KindBandPass:
		b0 = alpha
		b1 = 0
		b2 = -alpha
	case KindNotch:
		b0 = 1
		b1 = -2 * cosw0
		b2 = 1
	}
	a0 = 1 + alpha
	a1 = -2 * cosw0
	a2 = 1 - alpha
	return
}

func (g *Graph) processBiquad(n *Node, size int) {
	input := evalSignal(g, n.FilterInput, size)
	cutoff := evalSignal(g, n.FilterCutoff, size)
	q := evalSignal(g, n.FilterQ, size)
	st := &n.biquad
	for i := 0; i < size; i++ {
		c, qq := float64(cutoff[i]), float64(q[i])
		if !st.coeffsValid || !biquadEpsilon(c, st.lastCutoff) || !biquadEpsilon(qq, st.lastQ) {
			b0, b1, b2, a0, a1, a2 := computeBiquadCoeffs(n.Kind, c, qq, g.SampleRate)
			st.b0, st.b1, st.b2 = b0/a0, b1/a0, b2/a0
			st.a1, st.a2 = a1/a0, a2/a0
			st.lastCutoff, st.lastQ = c, qq
			st.coeffsValid = true
		}
		x0 := float64(input[i])
		y0 := st.b0*x0 + st.b1*st.x1 + st.b2*st.x2 - st.a1*st.y1 - st.a2*st.y2
		st.x2, st.x1 = st.x1, x0
		st.y2, st.y1 = st.y1, y0
		n.outBuf[i] = float32(y0)
	}
}

// processSvf implements the Chamberlin topology state-variable filter,
// cheaper per-sample than recomputing a biquad and naturally exposing
// low/band/high taps from one integrator pair.
func (g *Graph) processSvf(n *Node, size int) {
	input := evalSignal(g, n.SvfInput, size)
	cutoff := evalSignal(g, n.SvfCutoff, size)
	q := evalSignal(g, n.SvfQ, size)
	st := &n.svf
	for i := 0; i < size; i++ {
		c := float64(cutoff[i])
		if c <= 0 {
			c = 20
		}
		if c > g.SampleRate/2-1 {
			c = g.SampleRate/2 - 1
		}
		qq := float64(q[i])
		if qq <= 0 {
			qq = 0.707
		}
		f := 2 * math.Sin(math.Pi*c/g.SampleRate)
		damp := 1.0 / qq
		x := float64(input[i])
		st.low += f * st.band
		high := x - st.low - damp*st.band
		st.band += f * high
		var out float64
		switch n.SvfMode {
		case FilterLP:
			out = st.low
		case FilterHP:
			out = high
		case FilterBP:
			out = st.band
		case FilterNotchMode:
			out = st.low + high
		}
		n.outBuf[i] = float32(out)
	}
}

func (g *Graph) processEnvelope(n *Node, size int) {
	trigger := evalSignal(g, n.EnvTrigger, size)
	attack := evalSignal(g, n.EnvAttack, size)
	decay := evalSignal(g, n.EnvDecay, size)
	sustain := evalSignal(g, n.EnvSustain, size)
	release := evalSignal(g, n.EnvRelease, size)
	var input []float32
	if n.EnvInput != nil {
		input = evalSignal(g, n.EnvInput, size)
	}
	st := &n.env
	for i := 0; i < size; i++ {
		high := trigger[i] >= 0.5
		if high && !st.prevTrigHigh {
			st.phase = envAttack
		} else if !high && st.prevTrigHigh {
			st.phase = envRelease
		}
		st.prevTrigHigh = high

		a := math.Max(float64(attack[i]), 1e-4)
		d := math.Max(float64(decay[i]), 1e-4)
		s := float64(sustain[i])
		r := math.Max(float64(release[i]), 1e-4)

		switch st.phase {
		case envIdle:
			st.level = 0
		case envAttack:
			st.level += 1.0 / (a * g.SampleRate)
			if st.level >= 1 {
				st.level = 1
				st.phase = envDecay
			}
		case envDecay:
			st.level -= (1 - s) / (d * g.SampleRate)
			if st.level <= s {
				st.level = s
				st.phase = envSustain
			}
		case envSustain:
			st.level = s
		case envRelease:
			st.level -= st.level / (r * g.SampleRate)
			if st.level < 1e-5 {
				st.level = 0
				st.phase = envIdle
			}
		}
		if input != nil {
			n.outBuf[i] = float32(float64(input[i]) * st.level)
		} else {
			n.outBuf[i] = float32(st.level)
		}
	}
}

func (g *Graph) processDelay(n *Node, size int) {
	input := evalSignal(g, n.DelayInput, size)
	timeSig := evalSignal(g, n.DelayTime, size)
	feedback := evalSignal(g, n.DelayFeedback, size)
	mix := evalSignal(g, n.DelayMix, size)
	buf := n.delayBuf
	bl := len(buf)
	for i := 0; i < size; i++ {
		delaySamples := int(float64(timeSig[i]) * g.SampleRate)
		if delaySamples < 1 {
			delaySamples = 1
		}
		if delaySamples >= bl {
			delaySamples = bl - 1
		}
		readIdx := (n.delayWriteIdx - delaySamples + bl) % bl
		delayed := buf[readIdx]
		x := input[i]
		buf[n.delayWriteIdx] = x + delayed*feedback[i]
		n.outBuf[i] = x*(1-mix[i]) + delayed*mix[i]
		n.delayWriteIdx = (n.delayWriteIdx + 1) % bl
	}
}

func (g *Graph) processComb(n *Node, size int) {
	input := evalSignal(g, n.CombInput, size)
	freq := evalSignal(g, n.CombFreq, size)
	feedback := evalSignal(g, n.CombFeedback, size)
	buf := n.combBuf
	bl := len(buf)
	for i := 0; i < size; i++ {
		f := float64(freq[i])
		if f < 1 {
			f = 1
		}
		delaySamples := int(g.SampleRate / f)
		if delaySamples < 1 {
			delaySamples = 1
		}
		if delaySamples >= bl {
			delaySamples = bl - 1
		}
		readIdx := (n.combWriteIdx - delaySamples + bl) % bl
		delayed := buf[readIdx]
		x := input[i]
		y := x + delayed*feedback[i]
		buf[n.combWriteIdx] = y
		n.outBuf[i] = y
		n.combWriteIdx = (n.combWriteIdx + 1) % bl
	}
}

func (g *Graph) processRingMod(n *Node, size int) {
	input := evalSignal(g, n.RingInput, size)
	carrierFreq := evalSignal(g, n.RingCarrierFreq, size)
	for i := 0; i < size; i++ {
		carrier := math.Sin(2 * math.Pi * n.ringPhase)
		n.outBuf[i] = float32(float64(input[i]) * carrier)
		n.ringPhase += float64(carrierFreq[i]) / g.SampleRate
		if n.ringPhase >= 1 {
			n.ringPhase -= math.Floor(n.ringPhase)
		}
	}
}

func (g *Graph) processLimiter(n *Node, size int) {
	input := evalSignal(g, n.LimiterInput, size)
	threshold := evalSignal(g, n.LimiterThreshold, size)
	release := evalSignal(g, n.LimiterRelease, size)
	for i := 0; i < size; i++ {
		x := float64(input[i])
		th := float64(threshold[i])
		if th <= 0 {
			th = 1
		}
		absX := math.Abs(x)
		target := 1.0
		if absX > th {
			target = th / absX
		}
		r := math.Max(float64(release[i]), 1e-4)
		coeff := math.Exp(-1.0 / (r * g.SampleRate))
		if target < n.limiterGain {
			n.limiterGain = target
		} else {
			n.limiterGain = target + (n.limiterGain-target)*coeff
		}
		n.outBuf[i] = float32(x * n.limiterGain)
	}
}

func (g *Graph) processXFade(n *Node, size int) {
	a := evalSignal(g, n.XFadeA, size)
	b := evalSignal(g, n.XFadeB, size)
	pos := evalSignal(g, n.XFadePosition, size)
	for i := 0; i < size; i++ {
		p := float64(pos[i])
		if p < 0 {
			p = 0
		}
		if p > 1 {
			p = 1
		}
		gainA := math.Cos(p * math.Pi / 2)
		gainB := math.Sin(p * math.Pi / 2)
		n.outBuf[i] = float32(float64(a[i])*gainA + float64(b[i])*gainB)
	}
}

func (g *Graph) processBinary(n *Node, size int, op ExprOp) {
	a := evalSignal(g, n.BinA, size)
	b := evalSignal(g, n.BinB, size)
	for i := 0; i < size; i++ {
		switch op {
		case ExprAdd:
			n.outBuf[i] = a[i] + b[i]
		case ExprMul:
			n.outBuf[i] = a[i] * b[i]
		}
	}
}

// processPlugin queries the note-control pattern for this block's onsets,
// translates them into MIDI note-on/off events, asks the Host to render
// the block, then folds the (possibly multi-channel) plugin output down
// to this node's single-channel buffer. Only instrument-style plugins are
// supported, matching MockSynth's and mock_plugin.rs's process_with_midi
// API (no separate audio-input path).
func (g *Graph) processPlugin(n *Node, size int) {
	for i := range n.outBuf {
		n.outBuf[i] = 0
	}
	if n.PluginHost == nil {
		return
	}
	if !n.PluginOpened && !n.PluginDegraded {
		g.openPlugin(n)
	}
	if !n.PluginOpened {
		return
	}
	span := g.blockSpan(size)
	var events []midiEventLocal
	if n.pluginTriggered == nil {
		n.pluginTriggered = make(map[int]bool)
	}
	haps := n.PluginNotePat.Query(pattern.State{Span: span})
	for _, h := range haps {
		note := int(h.Value)
		offset := g.cycleToSampleOffset(h.Part.Begin, span, size)
		if h.HasOnset() {
			events = append(events, midiEventLocal{offset: offset, note: note, on: true})
			n.pluginTriggered[note] = true
		} else if h.Whole != nil && h.Part.End.Eq(h.Whole.End) && n.pluginTriggered[note] {
			endOffset := g.cycleToSampleOffset(h.Part.End, span, size)
			events = append(events, midiEventLocal{offset: endOffset, note: note, on: false})
			delete(n.pluginTriggered, note)
		}
	}
	outputs := make([][]float32, 2)
	outputs[0] = make([]float32, size)
	outputs[1] = make([]float32, size)
	midi := make([]pluginhost.MidiEvent, len(events))
	for i, e := range events {
		if e.on {
			midi[i] = pluginhost.NoteOn(e.offset, byte(e.note), 100)
		} else {
			midi[i] = pluginhost.NoteOff(e.offset, byte(e.note))
		}
	}
	if err := n.PluginHost.ProcessWithMIDI(n.PluginHandle, midi, outputs, size); err != nil {
		n.PluginDegraded = true
		return
	}
	for i := 0; i < size; i++ {
		n.outBuf[i] = (outputs[0][i] + outputs[1][i]) * 0.5
	}
}

// openPlugin performs the PluginInstance node's one-time Host.Open +
// Initialize, deferred until the node is first evaluated rather than done
// at compile time (§4.F: "instance_handle lazily materialised on first
// evaluation"). A failed Open marks the node degraded so every later block
// short-circuits to silence instead of retrying the Open each block.
func (g *Graph) openPlugin(n *Node) {
	handle, _, err := n.PluginHost.Open(n.PluginID)
	if err != nil {
		n.PluginDegraded = true
		return
	}
	n.PluginHandle = handle
	n.PluginOpened = true
	if err := n.PluginHost.Initialize(handle, g.SampleRate, 4096); err != nil {
		n.PluginDegraded = true
		n.PluginOpened = false
	}
}

type midiEventLocal struct {
	offset int
	note   int
	on     bool
}
