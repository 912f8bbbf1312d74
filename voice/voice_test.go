package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineSample(name string, n int, sr float64) *Sample {
	data := make([]float32, n)
	for i := range data {
		data[i] = float32(i) / float32(n)
	}
	return &Sample{Name: name, Data: data, SampleRate: sr}
}

func TestTriggerMissingSampleErrors(t *testing.T) {
	bank := NewSampleBank()
	m := NewManager(bank, 44100, 4)
	err := m.Trigger(Trigger{SampleName: "bd"})
	require.Error(t, err)
	var missing *MissingSampleError
	assert.ErrorAs(t, err, &missing)
}

func TestTriggerAndAdvanceProducesAudio(t *testing.T) {
	bank := NewSampleBank()
	bank.Add("bd", sineSample("bd", 1000, 44100))
	m := NewManager(bank, 44100, 4)
	require.NoError(t, m.Trigger(Trigger{SampleName: "bd", Gain: 1, Speed: 1}))
	assert.Equal(t, 1, m.ActiveVoices())
	left := make([]float32, 100)
	right := make([]float32, 100)
	active := m.Advance(left, right, 100)
	assert.Equal(t, 1, active)
	nonzero := false
	for _, v := range left {
		if v != 0 {
			nonzero = true
		}
	}
	assert.True(t, nonzero)
}

func TestVoiceDeactivatesAtSampleEnd(t *testing.T) {
	bank := NewSampleBank()
	bank.Add("bd", sineSample("bd", 10, 44100))
	m := NewManager(bank, 44100, 4)
	require.NoError(t, m.Trigger(Trigger{SampleName: "bd", Gain: 1, Speed: 1}))
	left := make([]float32, 20)
	right := make([]float32, 20)
	m.Advance(left, right, 20)
	assert.Equal(t, 0, m.ActiveVoices())
}

func TestCutGroupPreemptsEarlierVoiceInSameGroup(t *testing.T) {
	bank := NewSampleBank()
	bank.Add("hh", sineSample("hh", 1000, 44100))
	m := NewManager(bank, 44100, 4)
	require.NoError(t, m.Trigger(Trigger{SampleName: "hh", Gain: 1, Speed: 1, CutGroup: 1}))
	require.NoError(t, m.Trigger(Trigger{SampleName: "hh", Gain: 1, Speed: 1, CutGroup: 1}))
	assert.Equal(t, 1, m.ActiveVoices())
}

func TestCutGroupWithReleaseJumpsToReleaseInsteadOfSilencing(t *testing.T) {
	bank := NewSampleBank()
	bank.Add("hh", sineSample("hh", 44100, 44100))
	m := NewManager(bank, 44100, 4)
	require.NoError(t, m.Trigger(Trigger{SampleName: "hh", Gain: 1, Speed: 1, Sustain: 1, Release: 0.1, CutGroup: 1}))
	require.NoError(t, m.Trigger(Trigger{SampleName: "hh", Gain: 1, Speed: 1, CutGroup: 1}))

	// The preempted voice (index 0) is still active, jumped straight into
	// its release window rather than cut to silence.
	require.True(t, m.voices[0].active)
	totalLen := voiceTotalLen(&m.voices[0], m.sampleRate)
	assert.Equal(t, totalLen-m.voices[0].releaseN, m.voices[0].elapsed)

	left := make([]float32, 4410)
	right := make([]float32, 4410)
	m.Advance(left, right, 4410) // 0.1s release window fully elapses
	assert.False(t, m.voices[0].active)
}

func TestPoolStealsOldestVoiceWhenFull(t *testing.T) {
	bank := NewSampleBank()
	bank.Add("s", sineSample("s", 10000, 44100))
	m := NewManager(bank, 44100, 2)
	require.NoError(t, m.Trigger(Trigger{SampleName: "s", Gain: 1, Speed: 1}))
	left := make([]float32, 1)
	right := make([]float32, 1)
	m.Advance(left, right, 1) // advances clock so startedAt differs
	require.NoError(t, m.Trigger(Trigger{SampleName: "s", Gain: 1, Speed: 1}))
	require.NoError(t, m.Trigger(Trigger{SampleName: "s", Gain: 1, Speed: 1}))
	assert.Equal(t, 2, m.ActiveVoices())
}

func TestEqualPowerGainsAtCenterAreEqual(t *testing.T) {
	l, r := equalPowerGains(0)
	assert.InDelta(t, l, r, 1e-9)
}

func TestEqualPowerGainsClampOutOfRangePan(t *testing.T) {
	l, r := equalPowerGains(-5)
	assert.InDelta(t, 1.0, l, 1e-9)
	assert.InDelta(t, 0.0, r, 1e-9)
	l, r = equalPowerGains(5)
	assert.InDelta(t, 0.0, l, 1e-9)
	assert.InDelta(t, 1.0, r, 1e-9)
}

func TestEnvelopeGainRampsThroughAttackDecaySustainRelease(t *testing.T) {
	const totalLen = 1000
	const attackN, decayN, releaseN = 100, 100, 100
	const sustain = 0.5

	assert.InDelta(t, 0.0, envelopeGain(0, totalLen, attackN, decayN, releaseN, sustain), 1e-9)
	assert.InDelta(t, 0.5, envelopeGain(50, totalLen, attackN, decayN, releaseN, sustain), 1e-9)
	assert.InDelta(t, 1.0, envelopeGain(100, totalLen, attackN, decayN, releaseN, sustain), 1e-9)
	assert.InDelta(t, sustain, envelopeGain(500, totalLen, attackN, decayN, releaseN, sustain), 1e-9)
	assert.InDelta(t, 0.0, envelopeGain(totalLen, totalLen, attackN, decayN, releaseN, sustain), 1e-9)
}

func TestEnvelopeGainWithNoShapingHoldsSustain(t *testing.T) {
	g := envelopeGain(500, 1000, 0, 0, 0, 1.0)
	assert.InDelta(t, 1.0, g, 1e-9)
}

func TestInterpolateBetweenSamples(t *testing.T) {
	data := []float32{0, 1, 2, 3}
	assert.InDelta(t, 0.5, interpolate(data, 0.5), 1e-6)
	assert.InDelta(t, 2.25, interpolate(data, 2.25), 1e-6)
	assert.InDelta(t, 3.0, interpolate(data, 3.0), 1e-6)
}
