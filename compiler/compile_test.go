package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekg/phonon/dsl"
	"github.com/ekg/phonon/pluginhost"
	"github.com/ekg/phonon/signalgraph"
	"github.com/ekg/phonon/voice"
)

func mustCompile(t *testing.T, src string) *Result {
	t.Helper()
	prog, err := dsl.Parse(src)
	require.NoError(t, err)
	bank := voice.NewSampleBank()
	bank.Add("bd", &voice.Sample{Name: "bd", Data: make([]float32, 1000), SampleRate: 44100})
	bank.Add("sn", &voice.Sample{Name: "sn", Data: make([]float32, 1000), SampleRate: 44100})
	vm := voice.NewManager(bank, 44100, 8)
	res, err := Compile(prog, Options{SampleRate: 44100, VoiceManager: vm, PluginHost: pluginhost.NewMockSynth()})
	require.NoError(t, err)
	return res
}

func TestCompileOscillatorToOutput(t *testing.T) {
	res := mustCompile(t, "out1: sine 440")
	assert.Equal(t, 1, res.NumChannels)
	order, err := res.Graph.TopoSort()
	require.NoError(t, err)
	assert.NotEmpty(t, order)
	require.NoError(t, res.Graph.ProcessBufferDAG(16))
}

func TestCompileUndefinedBusErrors(t *testing.T) {
	prog, err := dsl.Parse("out1: ~missing")
	require.NoError(t, err)
	_, err = Compile(prog, Options{SampleRate: 44100})
	require.Error(t, err)
	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, UndefinedBus, cerr.Kind)
}

func TestCompileUnknownFunctionErrors(t *testing.T) {
	prog, err := dsl.Parse("out1: bogus 1")
	require.NoError(t, err)
	_, err = Compile(prog, Options{SampleRate: 44100})
	require.Error(t, err)
	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, UnknownFunction, cerr.Kind)
}

func TestCompileEffectOnlyUsedStandaloneErrors(t *testing.T) {
	prog, err := dsl.Parse("out1: lpf 1000 3")
	require.NoError(t, err)
	_, err = Compile(prog, Options{SampleRate: 44100})
	require.Error(t, err)
	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, MissingEffectInput, cerr.Kind)
}

func TestCompileBusDefinitionThenReference(t *testing.T) {
	res := mustCompile(t, "~kick $ sine 55\nout1: ~kick")
	require.NoError(t, res.Graph.ProcessBufferDAG(16))
}

func TestCompileSamplePatternTriggersVoices(t *testing.T) {
	res := mustCompile(t, `out1: s "bd sn bd sn"`)
	require.NoError(t, res.Graph.ProcessBufferDAG(4410))
}

func TestCompileEffectChainLowPass(t *testing.T) {
	res := mustCompile(t, "out1: sine 440 # lpf 1000 3")
	require.NoError(t, res.Graph.ProcessBufferDAG(16))
}

func TestCompileTransformChainFast(t *testing.T) {
	res := mustCompile(t, `out1: s "bd sn" $ fast 2`)
	require.NoError(t, res.Graph.ProcessBufferDAG(4410))
}

func TestCompileArithmeticExpression(t *testing.T) {
	res := mustCompile(t, "out1: sine (0.25 * 700 + 800)")
	require.NoError(t, res.Graph.ProcessBufferDAG(16))
}

func TestCompileOutMixModeAppliesToMixer(t *testing.T) {
	res := mustCompile(t, "outmix: sqrt\nout1: sine 440\nout1: sine 880")
	assert.Equal(t, signalgraph.MixSqrt, res.Mixer.Mode)
}

func TestCompileOutMixHardModeIsDistinctFromTanh(t *testing.T) {
	res := mustCompile(t, "outmix: hard\nout1: sine 440\nout1: sine 880")
	assert.Equal(t, signalgraph.MixHard, res.Mixer.Mode)
}

func TestCompileOutMixTanhModeStillMapsToTanh(t *testing.T) {
	res := mustCompile(t, "outmix: tanh\nout1: sine 440\nout1: sine 880")
	assert.Equal(t, signalgraph.MixTanh, res.Mixer.Mode)
}

func TestCompileAdsrOnNonPatternErrors(t *testing.T) {
	prog, err := dsl.Parse("out1: sine 440 # adsr 0.01 0.1 0.5 0.2")
	require.NoError(t, err)
	_, err = Compile(prog, Options{SampleRate: 44100})
	require.Error(t, err)
	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, AdsrRequiresPattern, cerr.Kind)
}

func TestCompileAdsrOnSamplePattern(t *testing.T) {
	res := mustCompile(t, `out1: s "bd" # adsr 0.01 0.1 0.5 0.2`)
	require.NoError(t, res.Graph.ProcessBufferDAG(4410))
}

func TestCompileNotePattern(t *testing.T) {
	res := mustCompile(t, `out1: note "c4 e4 g4"`)
	require.NoError(t, res.Graph.ProcessBufferDAG(4410))
}

func TestCompileTempoSetsGraphCPS(t *testing.T) {
	res := mustCompile(t, "tempo: 2\nout1: sine 440")
	assert.InDelta(t, 2.0, res.Graph.CPS, 1e-9)
}

// openTrackingHost wraps a pluginhost.Host and counts Open calls, letting a
// test distinguish "opened at compile time" from "opened on first block".
type openTrackingHost struct {
	pluginhost.Host
	opens int
}

func (h *openTrackingHost) Open(path string) (pluginhost.Handle, pluginhost.PluginInfo, error) {
	h.opens++
	return h.Host.Open(path)
}

func TestCompileVSTDefersPluginOpenUntilFirstEvaluation(t *testing.T) {
	prog, err := dsl.Parse(`out1: vst "mock://MockSynth"`)
	require.NoError(t, err)
	tracker := &openTrackingHost{Host: pluginhost.NewMockSynth()}
	res, err := Compile(prog, Options{SampleRate: 44100, PluginHost: tracker})
	require.NoError(t, err)
	assert.Equal(t, 0, tracker.opens, "Compile must not open the plugin before the graph is evaluated")

	require.NoError(t, res.Graph.ProcessBufferDAG(16))
	assert.Equal(t, 1, tracker.opens, "first evaluation must open the plugin exactly once")

	require.NoError(t, res.Graph.ProcessBufferDAG(16))
	assert.Equal(t, 1, tracker.opens, "later evaluations must not reopen an already-open plugin")
}

func TestCompileSampleNoteControlShiftsSpeedBySemitones(t *testing.T) {
	res := mustCompile(t, `out1: s "bd" # note 12`)
	require.NoError(t, res.Graph.ProcessBufferDAG(4410))
}

func TestNoteSpeedAppliesOctaveFormula(t *testing.T) {
	assert.InDelta(t, 2.0, noteSpeed(12, 1), 1e-9)
	assert.InDelta(t, 0.5, noteSpeed(-12, 1), 1e-9)
	assert.InDelta(t, 3.0, noteSpeed(12, 1.5), 1e-9)
	assert.InDelta(t, 1.0, noteSpeed(0, 1), 1e-9)
}
