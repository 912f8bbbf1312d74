// Command phonon renders a Phonon DSL source file to audio, per §6's
// minimal CLI: `phonon render <source-file> <out.wav> --duration <seconds>`.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ekg/phonon/compiler"
	"github.com/ekg/phonon/dsl"
	"github.com/ekg/phonon/pluginhost"
	"github.com/ekg/phonon/render"
	"github.com/ekg/phonon/voice"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "render":
		if err := runRender(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "phonon:", err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: phonon render <source-file> <out.wav> --duration <seconds>")
}

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	duration := fs.Float64("duration", 4.0, "seconds of audio to render")
	sampleRate := fs.Int("sample-rate", 44100, "output sample rate in Hz")
	poolSize := fs.Int("voices", voice.DefaultPoolSize, "bounded sample-voice pool size")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		usage()
		os.Exit(1)
	}
	srcPath := fs.Arg(0)
	outPath := fs.Arg(1)

	srcBytes, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}

	prog, err := dsl.Parse(string(srcBytes))
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	bank := voice.NewSampleBank()
	vm := voice.NewManager(bank, float64(*sampleRate), *poolSize)
	host := pluginhost.NewMockSynth()

	result, err := compiler.Compile(prog, compiler.Options{
		SampleRate:   float64(*sampleRate),
		VoiceManager: vm,
		PluginHost:   host,
	})
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}

	numChannels := result.NumChannels
	if numChannels < 1 {
		numChannels = 1
	}
	totalSamples := int(*duration * float64(*sampleRate))

	channels := make([][]float32, numChannels)
	for i := range channels {
		channels[i] = make([]float32, totalSamples)
	}

	const blockSize = 512
	scratch := make([][]float32, numChannels)
	for i := range scratch {
		scratch[i] = make([]float32, blockSize)
	}
	for pos := 0; pos < totalSamples; pos += blockSize {
		n := blockSize
		if pos+n > totalSamples {
			n = totalSamples - pos
		}
		if err := result.Graph.ProcessBufferDAG(n); err != nil {
			return fmt.Errorf("render: %w", err)
		}
		block := make([][]float32, numChannels)
		for ch := range block {
			block[ch] = scratch[ch][:n]
		}
		result.Mixer.Mix(result.Graph, block)
		for ch := 0; ch < numChannels; ch++ {
			copy(channels[ch][pos:pos+n], block[ch])
		}
	}

	if err := render.WriteWAV(outPath, channels, *sampleRate); err != nil {
		return fmt.Errorf("writing wav: %w", err)
	}
	return nil
}
