package pluginhost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetSetGetParameter(t *testing.T) {
	p := NewPreset("MockSynth")
	p.SetParameter("Volume", 0.8)
	v, ok := p.GetParameter("Volume")
	require.True(t, ok)
	assert.InDelta(t, 0.8, v, 1e-9)
}

func TestPresetBinaryStateRoundTrip(t *testing.T) {
	p := NewPreset("MockSynth")
	p.SetBinaryState([]byte{1, 2, 3})
	data, err := p.GetBinaryState()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
}

func TestPresetFromInstanceSnapshotsNamedParameters(t *testing.T) {
	info := mockInfo()
	p := PresetFromInstance(info, []float64{0.5, 0.25}, []byte{9})
	v, ok := p.GetParameter("Volume")
	require.True(t, ok)
	assert.InDelta(t, 0.5, v, 1e-9)
	data, err := p.GetBinaryState()
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, data)
}

func TestParsePresetYAML(t *testing.T) {
	content := "plugin_name: MockSynth\nparameters:\n  Volume: 0.5\n"
	p, err := ParsePreset(content)
	require.NoError(t, err)
	assert.Equal(t, "MockSynth", p.PluginName)
	v, ok := p.GetParameter("Volume")
	require.True(t, ok)
	assert.InDelta(t, 0.5, v, 1e-9)
}

func TestParsePresetSimpleFallback(t *testing.T) {
	content := "plugin \"MockSynth\" {\n  Volume = 0.75\n}\n"
	p, err := ParsePreset(content)
	require.NoError(t, err)
	assert.Equal(t, "MockSynth", p.PluginName)
	v, ok := p.GetParameter("Volume")
	require.True(t, ok)
	assert.InDelta(t, 0.75, v, 1e-9)
}

func TestParsePresetSimpleIgnoresComments(t *testing.T) {
	content := "-- a comment\nplugin \"MockSynth\" {\n  # another comment\n  Volume = 0.1\n}\n"
	p, err := ParsePreset(content)
	require.NoError(t, err)
	v, ok := p.GetParameter("Volume")
	require.True(t, ok)
	assert.InDelta(t, 0.1, v, 1e-9)
}
