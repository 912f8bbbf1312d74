// Package pluginhost implements the plugin hosting capability of §4.F: a
// small Host interface that both a deterministic in-process MockSynth and
// a real VST2 host (guarded by the vst2 build tag, wrapping
// github.com/dudk/vst2) can satisfy, plus preset persistence grounded on
// original_source/src/plugin_host/preset.rs.
package pluginhost

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
)

// Handle addresses one open plugin instance within a Host.
type Handle int

// PluginFormat enumerates the plugin binary formats a Host may load.
type PluginFormat int

const (
	FormatMock PluginFormat = iota
	FormatVST2
)

// PluginId names a plugin uniquely within its format.
type PluginId struct {
	Format     PluginFormat
	Identifier string
	Name       string
}

// ParameterInfo describes one automatable plugin parameter.
type ParameterInfo struct {
	Index          int
	Name           string
	ShortName      string
	DefaultValue   float64
	MinValue       float64
	MaxValue       float64
	Unit           string
	StepCount      int
	Automatable    bool
}

// PluginInfo is the static description of a plugin returned by a Host once
// a plugin is opened.
type PluginInfo struct {
	ID             PluginId
	Vendor         string
	Version        string
	NumInputs      int
	NumOutputs     int
	Parameters     []ParameterInfo
	FactoryPresets []string
	HasGUI         bool
	Path           string
}

// PluginError is the error type every Host method returns, grounded on the
// teacher's Operation/Details/Err error-struct idiom (video_interface.go).
type PluginError struct {
	Operation string
	Details   string
	Err       error
}

func (e *PluginError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pluginhost: %s: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("pluginhost: %s: %s", e.Operation, e.Details)
}

func (e *PluginError) Unwrap() error { return e.Err }

func newPluginError(op, details string, err error) *PluginError {
	return &PluginError{Operation: op, Details: details, Err: err}
}

// MidiEvent is a single timestamped MIDI message delivered to a plugin
// instance within one process block.
type MidiEvent struct {
	SampleOffset int
	Status       byte
	Data1        byte
	Data2        byte
}

// NoteOn/NoteOff build the two MidiEvent shapes the compiler emits for a
// Pattern(numeric) driving a PluginInstance's note input, byte-encoded by
// gitlab.com/gomidi/midi/v2 rather than hand-rolled status nibbles (the
// same wire-format library the pack's MIDI controller UI uses to talk to
// hardware, reused here purely for its message encoding).
func NoteOn(sampleOffset int, note, velocity byte) MidiEvent {
	msg := midi.NoteOn(0, note, velocity)
	return MidiEvent{SampleOffset: sampleOffset, Status: msg[0], Data1: msg[1], Data2: msg[2]}
}

func NoteOff(sampleOffset int, note byte) MidiEvent {
	msg := midi.NoteOff(0, note)
	return MidiEvent{SampleOffset: sampleOffset, Status: msg[0], Data1: msg[1], Data2: msg[2]}
}

// Host is the capability every plugin backend implements: open/close a
// plugin by path or identifier, process a block of audio with MIDI
// interleaved, and get/set automatable parameters plus opaque binary
// state. The signal graph's PluginInstance node talks only to this
// interface, so MockSynth and the real VST2Host are interchangeable.
type Host interface {
	// Open loads the named plugin and returns a Handle plus its static
	// info. path is a VST2Host library path or a logical name for
	// MockSynth (e.g. "mock://MockSynth").
	Open(path string) (Handle, PluginInfo, error)

	// Close releases a previously opened plugin.
	Close(h Handle) error

	// Initialize configures the sample rate and maximum block size a
	// Handle will be asked to process.
	Initialize(h Handle, sampleRate float64, maxBlockSize int) error

	// ProcessWithMIDI renders numSamples of audio into outputs (one
	// []float32 slice per output channel, each already sized to at
	// least numSamples), having applied midiEvents at their sample
	// offsets first.
	ProcessWithMIDI(h Handle, midiEvents []MidiEvent, outputs [][]float32, numSamples int) error

	// SetParameter/GetParameter address a parameter by its
	// ParameterInfo.Index, value always normalized to [0, 1].
	SetParameter(h Handle, index int, value float64) error
	GetParameter(h Handle, index int) (float64, error)

	// GetState/SetState exchange the plugin's full opaque binary state,
	// used for the preset's binary_state fallback.
	GetState(h Handle) ([]byte, error)
	SetState(h Handle, data []byte) error
}
