// Package render implements the ambient output sinks of §6: PCM encoding
// of a rendered buffer to a WAV file, and an optional live preview sink
// grounded on the teacher's OtoPlayer (audio_backend_oto.go).
package render

import (
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// BitDepth is the PCM sample width WriteWAV encodes at.
const BitDepth = 16

// WriteWAV encodes channels (one []float32 per output channel, each the
// same length, samples in [-1, 1]) as a 16-bit PCM WAV file at path.
func WriteWAV(path string, channels [][]float32, sampleRate int) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	numChans := len(channels)
	if numChans == 0 {
		numChans = 1
		channels = [][]float32{{}}
	}
	numSamples := len(channels[0])

	enc := wav.NewEncoder(out, sampleRate, BitDepth, numChans, 1)
	data := make([]int, numSamples*numChans)
	for s := 0; s < numSamples; s++ {
		for ch := 0; ch < numChans; ch++ {
			data[s*numChans+ch] = floatToPCM16(channels[ch][s])
		}
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: numChans},
		Data:           data,
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}

// floatToPCM16 clamps and scales a [-1, 1] sample to a 16-bit integer.
func floatToPCM16(v float32) int {
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	return int(v * 32767)
}
