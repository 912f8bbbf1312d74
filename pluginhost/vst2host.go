//go:build vst2

package pluginhost

// VST2Host loads real VST2 plugin binaries via github.com/dudk/vst2. It is
// built only with -tags vst2: the bare module links against MockSynth so
// that tests and CI never need a real plugin binary on disk, matching the
// teacher's pattern of gating hardware/OS-specific backends behind build
// tags (audio_backend_headless.go vs the real oto backend).

import (
	"fmt"
	"sync"

	"github.com/dudk/vst2"
)

type vst2Instance struct {
	plugin     *vst2.Plugin
	sampleRate float64
	blockSize  int
}

// VST2Host hosts real VST2 plugins.
type VST2Host struct {
	mu        sync.Mutex
	instances map[Handle]*vst2Instance
	next      Handle
}

// NewVST2Host constructs an empty VST2Host.
func NewVST2Host() *VST2Host {
	return &VST2Host{instances: make(map[Handle]*vst2Instance)}
}

func (h *VST2Host) Open(path string) (Handle, PluginInfo, error) {
	lib, err := vst2.Open(path)
	if err != nil {
		return 0, PluginInfo{}, newPluginError("Open", path, err)
	}
	plugin, err := lib.Open()
	if err != nil {
		return 0, PluginInfo{}, newPluginError("Open", path, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	h.instances[id] = &vst2Instance{plugin: plugin, sampleRate: 44100, blockSize: 512}

	info := PluginInfo{
		ID:         PluginId{Format: FormatVST2, Identifier: path, Name: plugin.Name},
		Vendor:     plugin.Vendor,
		NumInputs:  int(plugin.NumInputs),
		NumOutputs: int(plugin.NumOutputs),
		Path:       path,
	}
	return id, info, nil
}

func (h *VST2Host) get(handle Handle) (*vst2Instance, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	inst, ok := h.instances[handle]
	if !ok {
		return nil, newPluginError("get", "no such handle", nil)
	}
	return inst, nil
}

func (h *VST2Host) Close(handle Handle) error {
	inst, err := h.get(handle)
	if err != nil {
		return err
	}
	inst.plugin.Close()
	h.mu.Lock()
	delete(h.instances, handle)
	h.mu.Unlock()
	return nil
}

func (h *VST2Host) Initialize(handle Handle, sampleRate float64, maxBlockSize int) error {
	inst, err := h.get(handle)
	if err != nil {
		return err
	}
	inst.sampleRate = sampleRate
	inst.blockSize = maxBlockSize
	inst.plugin.SetSampleRate(int(sampleRate))
	inst.plugin.SetBufferSize(maxBlockSize)
	inst.plugin.Resume()
	return nil
}

// ProcessWithMIDI runs the plugin over numSamples of silent input and copies
// its output into outputs. midiEvents are ignored: they are not delivered
// to the plugin.
func (h *VST2Host) ProcessWithMIDI(handle Handle, midiEvents []MidiEvent, outputs [][]float32, numSamples int) error {
	inst, err := h.get(handle)
	if err != nil {
		return err
	}
	in := make([][]float64, len(outputs))
	for i := range in {
		in[i] = make([]float64, numSamples)
	}
	out := inst.plugin.Process(in)
	for ch := range outputs {
		if ch >= len(out) {
			break
		}
		for i := 0; i < numSamples && i < len(out[ch]); i++ {
			outputs[ch][i] = float32(out[ch][i])
		}
	}
	return nil
}

func (h *VST2Host) SetParameter(handle Handle, index int, value float64) error {
	inst, err := h.get(handle)
	if err != nil {
		return err
	}
	inst.plugin.SetParameter(int32(index), float32(value))
	return nil
}

func (h *VST2Host) GetParameter(handle Handle, index int) (float64, error) {
	inst, err := h.get(handle)
	if err != nil {
		return 0, err
	}
	return float64(inst.plugin.GetParameter(int32(index))), nil
}

func (h *VST2Host) GetState(handle Handle) ([]byte, error) {
	return nil, newPluginError("GetState", "vst2 chunk state not implemented", fmt.Errorf("unsupported"))
}

func (h *VST2Host) SetState(handle Handle, data []byte) error {
	return newPluginError("SetState", "vst2 chunk state not implemented", fmt.Errorf("unsupported"))
}
