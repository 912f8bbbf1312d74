package pluginhost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockSynthOpenReturnsInfo(t *testing.T) {
	m := NewMockSynth()
	h, info, err := m.Open("mock://MockSynth")
	require.NoError(t, err)
	assert.Equal(t, "MockSynth", info.ID.Name)
	assert.Equal(t, 2, info.NumOutputs)
	require.NoError(t, m.Initialize(h, 44100, 512))
}

func TestMockSynthProducesSoundOnNoteOn(t *testing.T) {
	m := NewMockSynth()
	h, _, err := m.Open("mock://MockSynth")
	require.NoError(t, err)
	require.NoError(t, m.Initialize(h, 44100, 512))

	const n = 256
	outputs := [][]float32{make([]float32, n), make([]float32, n)}
	events := []MidiEvent{NoteOn(0, 69, 127)}
	require.NoError(t, m.ProcessWithMIDI(h, events, outputs, n))

	nonzero := false
	for _, v := range outputs[0] {
		if v != 0 {
			nonzero = true
		}
	}
	assert.True(t, nonzero)
}

func TestMockSynthSilentWithoutNotes(t *testing.T) {
	m := NewMockSynth()
	h, _, err := m.Open("mock://MockSynth")
	require.NoError(t, err)
	require.NoError(t, m.Initialize(h, 44100, 512))

	const n = 64
	outputs := [][]float32{make([]float32, n), make([]float32, n)}
	require.NoError(t, m.ProcessWithMIDI(h, nil, outputs, n))
	for _, v := range outputs[0] {
		assert.Equal(t, float32(0), v)
	}
}

func TestMockSynthNoteOffStopsVoice(t *testing.T) {
	m := NewMockSynth()
	h, _, err := m.Open("mock://MockSynth")
	require.NoError(t, err)
	require.NoError(t, m.Initialize(h, 44100, 512))

	n := 64
	outputs := [][]float32{make([]float32, n), make([]float32, n)}
	events := []MidiEvent{NoteOn(0, 69, 127), NoteOff(1, 69)}
	require.NoError(t, m.ProcessWithMIDI(h, events, outputs, n))
	for _, v := range outputs[0][2:] {
		assert.Equal(t, float32(0), v)
	}
}

func TestMockSynthSetGetParameterRoundTrip(t *testing.T) {
	m := NewMockSynth()
	h, _, err := m.Open("mock://MockSynth")
	require.NoError(t, err)
	require.NoError(t, m.SetParameter(h, 0, 0.25))
	v, err := m.GetParameter(h, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, v, 1e-9)
}

func TestMockSynthGetParameterOutOfRangeErrors(t *testing.T) {
	m := NewMockSynth()
	h, _, err := m.Open("mock://MockSynth")
	require.NoError(t, err)
	_, err = m.GetParameter(h, 99)
	assert.Error(t, err)
}

func TestMockSynthStateRoundTrip(t *testing.T) {
	m := NewMockSynth()
	h, _, err := m.Open("mock://MockSynth")
	require.NoError(t, err)
	require.NoError(t, m.SetParameter(h, 0, 0.5))
	state, err := m.GetState(h)
	require.NoError(t, err)

	m2 := NewMockSynth()
	h2, _, err := m2.Open("mock://MockSynth")
	require.NoError(t, err)
	require.NoError(t, m2.SetState(h2, state))
	v, err := m2.GetParameter(h2, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, v, 1.0/255.0)
}

func TestMockSynthCloseInvalidatesHandle(t *testing.T) {
	m := NewMockSynth()
	h, _, err := m.Open("mock://MockSynth")
	require.NoError(t, err)
	require.NoError(t, m.Close(h))
	_, err = m.GetParameter(h, 0)
	assert.Error(t, err)
}
