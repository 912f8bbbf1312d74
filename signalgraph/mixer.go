package signalgraph

import "math"

// MixMode selects how multiple Output nodes sharing a channel index are
// folded into that channel's final sample, per §4.I.
type MixMode int

const (
	MixNone MixMode = iota // no mixing: a single Output node assumed per channel
	MixGain
	MixSqrt
	MixTanh
	MixHard
)

// Mixer combines every Output node's rendered buffer into a fixed set of
// output channels (mono, stereo, or more), applying MixMode when more than
// one Output node targets the same channel.
type Mixer struct {
	Mode        MixMode
	NumChannels int
	Gain        float64 // used by MixGain: output *= Gain / numContributors
}

// NewMixer constructs a Mixer for numChannels output channels.
func NewMixer(numChannels int, mode MixMode) *Mixer {
	return &Mixer{Mode: mode, NumChannels: numChannels, Gain: 1.0}
}

// Mix folds every Output node in g into channels (one []float32 per
// channel, each already sized to the block length processed by the last
// ProcessBufferDAG call).
func (m *Mixer) Mix(g *Graph, channels [][]float32) {
	for _, ch := range channels {
		for i := range ch {
			ch[i] = 0
		}
	}
	contributors := make([]int, m.NumChannels)
	for _, node := range g.nodes {
		if node.Kind != KindOutput {
			continue
		}
		ch := node.OutputChannel
		if ch < 0 || ch >= m.NumChannels {
			continue
		}
		contributors[ch]++
		for i, v := range node.outBuf {
			if i >= len(channels[ch]) {
				break
			}
			channels[ch][i] += v
		}
	}
	for ch := 0; ch < m.NumChannels; ch++ {
		n := contributors[ch]
		if n <= 1 {
			continue
		}
		applyMixMode(m.Mode, channels[ch], n, m.Gain)
	}
}

func applyMixMode(mode MixMode, buf []float32, contributors int, gain float64) {
	switch mode {
	case MixNone:
		// no-op: caller asked for raw sum even with multiple contributors
	case MixGain:
		scale := float32(gain / float64(contributors))
		for i := range buf {
			buf[i] *= scale
		}
	case MixSqrt:
		scale := float32(1.0 / math.Sqrt(float64(contributors)))
		for i := range buf {
			buf[i] *= scale
		}
	case MixTanh:
		for i := range buf {
			buf[i] = float32(math.Tanh(float64(buf[i])))
		}
	case MixHard:
		for i := range buf {
			buf[i] = float32(math.Max(-1, math.Min(1, float64(buf[i]))))
		}
	}
}
