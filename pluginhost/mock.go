package pluginhost

import "math"

const mockMaxVoices = 16

// mockVoice mirrors mock_plugin.rs's (note, velocity) voice slot.
type mockVoice struct {
	active   bool
	note     byte
	velocity byte
	phase    float64
}

// mockInstance is one open MockSynth handle's mutable state.
type mockInstance struct {
	sampleRate float64
	voices     [mockMaxVoices]mockVoice
	volume     float64
	pitchBend  float64 // normalized [0, 1], 0.5 = no bend; maps to [-2, 2] semitones
	initialized bool
}

// MockSynth is a deterministic, dependency-free plugin implementation that
// behaves like a simple sine synth, ported from
// original_source/src/plugin_host/mock_plugin.rs so tests and examples
// never need a real VST binary on disk.
type MockSynth struct {
	instances map[Handle]*mockInstance
	next      Handle
}

// NewMockSynth constructs an empty MockSynth host.
func NewMockSynth() *MockSynth {
	return &MockSynth{instances: make(map[Handle]*mockInstance)}
}

func mockInfo() PluginInfo {
	return PluginInfo{
		ID: PluginId{
			Format:     FormatMock,
			Identifier: "com.phonon.mock-synth",
			Name:       "MockSynth",
		},
		Vendor:     "Phonon Test",
		Version:    "1.0.0",
		NumInputs:  0,
		NumOutputs: 2,
		Parameters: []ParameterInfo{
			{Index: 0, Name: "Volume", ShortName: "Vol", DefaultValue: 0.8, MinValue: 0, MaxValue: 1, Automatable: true},
			{Index: 1, Name: "Pitch Bend", ShortName: "Bend", DefaultValue: 0.5, MinValue: 0, MaxValue: 1, Unit: "st", Automatable: true},
		},
		FactoryPresets: []string{"Init", "Lead"},
		HasGUI:         false,
		Path:           "mock://MockSynth",
	}
}

func (m *MockSynth) Open(path string) (Handle, PluginInfo, error) {
	h := m.next
	m.next++
	m.instances[h] = &mockInstance{sampleRate: 44100, volume: 0.8, pitchBend: 0.5}
	return h, mockInfo(), nil
}

func (m *MockSynth) get(h Handle) (*mockInstance, error) {
	inst, ok := m.instances[h]
	if !ok {
		return nil, newPluginError("get", "no such handle", nil)
	}
	return inst, nil
}

func (m *MockSynth) Close(h Handle) error {
	if _, err := m.get(h); err != nil {
		return err
	}
	delete(m.instances, h)
	return nil
}

func (m *MockSynth) Initialize(h Handle, sampleRate float64, maxBlockSize int) error {
	inst, err := m.get(h)
	if err != nil {
		return err
	}
	inst.sampleRate = sampleRate
	inst.initialized = true
	inst.voices = [mockMaxVoices]mockVoice{}
	return nil
}

func (m *MockSynth) noteToFreq(note byte) float64 {
	return 440.0 * math.Pow(2, (float64(note)-69)/12.0)
}

func (m *MockSynth) handleMidi(inst *mockInstance, ev MidiEvent) {
	switch ev.Status & 0xf0 {
	case 0x90: // note on
		if ev.Data2 == 0 {
			m.noteOff(inst, ev.Data1)
			return
		}
		for i := range inst.voices {
			if !inst.voices[i].active {
				inst.voices[i] = mockVoice{active: true, note: ev.Data1, velocity: ev.Data2}
				return
			}
		}
	case 0x80: // note off
		m.noteOff(inst, ev.Data1)
	case 0xb0: // control change: 7 = volume
		if ev.Data1 == 7 {
			inst.volume = float64(ev.Data2) / 127.0
		}
	}
}

func (m *MockSynth) noteOff(inst *mockInstance, note byte) {
	for i := range inst.voices {
		if inst.voices[i].active && inst.voices[i].note == note {
			inst.voices[i].active = false
		}
	}
}

func (m *MockSynth) ProcessWithMIDI(h Handle, midiEvents []MidiEvent, outputs [][]float32, numSamples int) error {
	inst, err := m.get(h)
	if err != nil {
		return err
	}
	if !inst.initialized {
		return newPluginError("ProcessWithMIDI", "not initialized", nil)
	}
	eventsBySample := make([][]MidiEvent, numSamples)
	for _, ev := range midiEvents {
		off := ev.SampleOffset
		if off >= numSamples {
			off = numSamples - 1
		}
		if off < 0 {
			off = 0
		}
		eventsBySample[off] = append(eventsBySample[off], ev)
	}
	bendScale := (inst.pitchBend - 0.5) * 4.0 // normalized [0,1] -> [-2, 2] semitones
	for i := 0; i < numSamples; i++ {
		for _, ev := range eventsBySample[i] {
			m.handleMidi(inst, ev)
		}
		var sample float64
		for v := range inst.voices {
			voice := &inst.voices[v]
			if !voice.active {
				continue
			}
			freq := m.noteToFreq(voice.note) * math.Pow(2, bendScale/12.0)
			velScale := float64(voice.velocity) / 127.0
			sample += math.Sin(voice.phase*2*math.Pi) * velScale
			voice.phase += freq / inst.sampleRate
			if voice.phase >= 1 {
				voice.phase -= 1
			}
		}
		sample *= inst.volume
		for ch := range outputs {
			if i < len(outputs[ch]) {
				outputs[ch][i] = float32(sample)
			}
		}
	}
	return nil
}

func (m *MockSynth) SetParameter(h Handle, index int, value float64) error {
	inst, err := m.get(h)
	if err != nil {
		return err
	}
	switch index {
	case 0:
		inst.volume = value
	case 1:
		inst.pitchBend = value
	default:
		return newPluginError("SetParameter", "index out of range", nil)
	}
	return nil
}

func (m *MockSynth) GetParameter(h Handle, index int) (float64, error) {
	inst, err := m.get(h)
	if err != nil {
		return 0, err
	}
	switch index {
	case 0:
		return inst.volume, nil
	case 1:
		return inst.pitchBend, nil
	default:
		return 0, newPluginError("GetParameter", "index out of range", nil)
	}
}

func (m *MockSynth) GetState(h Handle) ([]byte, error) {
	inst, err := m.get(h)
	if err != nil {
		return nil, err
	}
	return []byte{byte(inst.volume * 255), byte(inst.pitchBend * 255)}, nil
}

func (m *MockSynth) SetState(h Handle, data []byte) error {
	inst, err := m.get(h)
	if err != nil {
		return err
	}
	if len(data) >= 2 {
		inst.volume = float64(data[0]) / 255.0
		inst.pitchBend = float64(data[1]) / 255.0
	}
	return nil
}
