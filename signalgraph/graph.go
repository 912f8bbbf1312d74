package signalgraph

// Graph is the arena of nodes plus the sample rate they were built for.
// Nodes are appended only; NodeId is a stable index into nodes, matching
// the teacher's register-file/address-space model in audio_chip.go rather
// than a pointer graph.
type Graph struct {
	nodes       []*Node
	SampleRate  float64
	CPS         float64 // cycles per second, the pattern clock's rate
	sampleClock int64   // absolute samples processed so far, advanced by ProcessBufferDAG
	order       []NodeId // cached topological order, invalidated by AddNode
}

// NewGraph constructs an empty graph for the given sample rate. CPS
// defaults to 0.5 cycles/second (120 "bpm" at 4 beats/cycle), overridden
// by SetCPS once the DSL's tempo statement is compiled.
func NewGraph(sampleRate float64) *Graph {
	return &Graph{SampleRate: sampleRate, CPS: 0.5}
}

// SetCPS sets the pattern clock's rate in cycles per second.
func (g *Graph) SetCPS(cps float64) { g.CPS = cps }

// AddNode appends n to the arena and returns its NodeId.
func (g *Graph) AddNode(n *Node) NodeId {
	id := NodeId(len(g.nodes))
	g.nodes = append(g.nodes, n)
	g.order = nil
	return id
}

// Node returns the node at id, or nil if id is out of range.
func (g *Graph) Node(id NodeId) *Node {
	if int(id) < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// NumNodes reports the arena size.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// AddConstant adds a Constant node and returns its id.
func (g *Graph) AddConstant(v float64) NodeId {
	return g.AddNode(&Node{Kind: KindConstant, ConstantValue: v})
}

// AddOscillator adds an Oscillator node.
func (g *Graph) AddOscillator(freq Signal, wave Waveform) NodeId {
	return g.AddNode(&Node{Kind: KindOscillator, OscFreq: freq, OscWaveform: wave})
}

// AddNoise adds a Noise node.
func (g *Graph) AddNoise(kind NoiseKind, seed uint64) NodeId {
	lfsr := uint32(seed)
	if lfsr == 0 {
		lfsr = 0xACE1
	}
	return g.AddNode(&Node{Kind: KindNoise, NoiseType: kind, noiseSeed: seed, noiseLFSR: lfsr})
}

// AddFilter adds a node from the LowPass/HighPass/BandPass/Notch family.
func (g *Graph) AddFilter(kind NodeKind, input, cutoff, q Signal) NodeId {
	return g.AddNode(&Node{Kind: kind, FilterInput: input, FilterCutoff: cutoff, FilterQ: q})
}

// AddSvf adds a state-variable filter node.
func (g *Graph) AddSvf(input, cutoff, q Signal, mode FilterMode) NodeId {
	return g.AddNode(&Node{Kind: KindSvf, SvfInput: input, SvfCutoff: cutoff, SvfQ: q, SvfMode: mode})
}

// AddEnvelope adds an ADSR Envelope node.
func (g *Graph) AddEnvelope(input, trigger, attack, decay, sustain, release Signal) NodeId {
	return g.AddNode(&Node{
		Kind: KindEnvelope, EnvInput: input, EnvTrigger: trigger,
		EnvAttack: attack, EnvDecay: decay, EnvSustain: sustain, EnvRelease: release,
	})
}

// AddDelay adds a Delay node; maxDelaySeconds sizes the ring buffer.
func (g *Graph) AddDelay(input, timeSig, feedback, mix Signal, maxDelaySeconds float64) NodeId {
	n := &Node{Kind: KindDelay, DelayInput: input, DelayTime: timeSig, DelayFeedback: feedback, DelayMix: mix}
	n.delayBuf = make([]float32, int(maxDelaySeconds*g.SampleRate)+1)
	return g.AddNode(n)
}

// AddComb adds a Comb filter node.
func (g *Graph) AddComb(input, freq, feedback Signal, maxDelaySeconds float64) NodeId {
	n := &Node{Kind: KindComb, CombInput: input, CombFreq: freq, CombFeedback: feedback}
	n.combBuf = make([]float32, int(maxDelaySeconds*g.SampleRate)+1)
	return g.AddNode(n)
}

// AddRingMod adds a ring modulator node.
func (g *Graph) AddRingMod(input, carrierFreq Signal) NodeId {
	return g.AddNode(&Node{Kind: KindRingMod, RingInput: input, RingCarrierFreq: carrierFreq})
}

// AddLimiter adds a brick-wall limiter node.
func (g *Graph) AddLimiter(input, threshold, release Signal) NodeId {
	return g.AddNode(&Node{Kind: KindLimiter, LimiterInput: input, LimiterThreshold: threshold, LimiterRelease: release, limiterGain: 1.0})
}

// AddXFade adds an equal-power crossfade node.
func (g *Graph) AddXFade(a, b, position Signal) NodeId {
	return g.AddNode(&Node{Kind: KindXFade, XFadeA: a, XFadeB: b, XFadePosition: position})
}

// AddBinary adds an Add or Multiply node.
func (g *Graph) AddBinary(kind NodeKind, a, b Signal) NodeId {
	return g.AddNode(&Node{Kind: kind, BinA: a, BinB: b})
}

// AddOutput adds an Output node bound to a mixer channel index.
func (g *Graph) AddOutput(input Signal, channel int) NodeId {
	return g.AddNode(&Node{Kind: KindOutput, OutputInput: input, OutputChannel: channel})
}

// dependencies returns the NodeIds that sig directly references.
func (sig Signal) dependencies() []NodeId {
	switch s := sig.(type) {
	case NodeSignal:
		return []NodeId{s.Id}
	case ExprSignal:
		return append(s.A.dependencies(), s.B.dependencies()...)
	default:
		return nil
	}
}

// nodeDependencies returns every NodeId n's Signal-typed fields reference.
func (n *Node) nodeDependencies() []NodeId {
	var deps []NodeId
	add := func(s Signal) {
		if s != nil {
			deps = append(deps, s.dependencies()...)
		}
	}
	switch n.Kind {
	case KindOscillator:
		add(n.OscFreq)
	case KindLowPass, KindHighPass, KindBandPass, KindNotch:
		add(n.FilterInput)
		add(n.FilterCutoff)
		add(n.FilterQ)
	case KindSvf:
		add(n.SvfInput)
		add(n.SvfCutoff)
		add(n.SvfQ)
	case KindEnvelope:
		add(n.EnvInput)
		add(n.EnvTrigger)
		add(n.EnvAttack)
		add(n.EnvDecay)
		add(n.EnvSustain)
		add(n.EnvRelease)
	case KindDelay:
		add(n.DelayInput)
		add(n.DelayTime)
		add(n.DelayFeedback)
		add(n.DelayMix)
	case KindComb:
		add(n.CombInput)
		add(n.CombFreq)
		add(n.CombFeedback)
	case KindRingMod:
		add(n.RingInput)
		add(n.RingCarrierFreq)
	case KindLimiter:
		add(n.LimiterInput)
		add(n.LimiterThreshold)
		add(n.LimiterRelease)
	case KindXFade:
		add(n.XFadeA)
		add(n.XFadeB)
		add(n.XFadePosition)
	case KindAdd, KindMultiply:
		add(n.BinA)
		add(n.BinB)
	case KindPluginInstance:
		for _, s := range n.PluginAudioIn {
			add(s)
		}
	case KindOutput:
		add(n.OutputInput)
	}
	return deps
}

// TopoSort computes (and caches) a valid evaluation order: every node
// appears after all nodes it depends on. Returns CycleError if the graph
// is not a DAG and UnresolvedNodeError if a dependency points outside the
// arena.
func (g *Graph) TopoSort() ([]NodeId, error) {
	if g.order != nil {
		return g.order, nil
	}
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, len(g.nodes))
	var order []NodeId
	var visit func(id NodeId) error
	visit = func(id NodeId) error {
		if int(id) < 0 || int(id) >= len(g.nodes) {
			return &UnresolvedNodeError{Ref: id}
		}
		switch color[id] {
		case black:
			return nil
		case gray:
			return &CycleError{Node: id}
		}
		color[id] = gray
		for _, dep := range g.nodes[id].nodeDependencies() {
			if int(dep) < 0 || int(dep) >= len(g.nodes) {
				return &UnresolvedNodeError{Ref: dep}
			}
			if g.nodes[dep].Kind == KindOutput {
				return &OutputAsInputError{Output: dep}
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		color[id] = black
		order = append(order, id)
		return nil
	}
	for id := range g.nodes {
		if err := visit(NodeId(id)); err != nil {
			return nil, err
		}
	}
	g.order = order
	return order, nil
}
