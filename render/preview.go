package render

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
)

// SampleSource supplies the next block of mono samples for live preview,
// the same pull shape the teacher's OtoPlayer.Read uses against
// SoundChip.ReadSampleFromRing.
type SampleSource func(out []float32) int

// LivePreview streams a SampleSource to the system audio device via oto,
// mirroring the teacher's OtoPlayer (audio_backend_oto.go): an
// atomic.Pointer swap for the hot-path source so reconfiguring playback
// never blocks the oto callback goroutine.
type LivePreview struct {
	ctx     *oto.Context
	player  *oto.Player
	source  atomic.Pointer[SampleSource]
	scratch []float32
	mu      sync.Mutex
	started bool
}

// NewLivePreview opens an oto context for mono float32 playback at
// sampleRate.
func NewLivePreview(sampleRate int) (*LivePreview, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   4096,
	})
	if err != nil {
		return nil, err
	}
	<-ready
	lp := &LivePreview{ctx: ctx, scratch: make([]float32, 4096)}
	lp.player = ctx.NewPlayer(lp)
	return lp, nil
}

// SetSource swaps the active SampleSource, safe to call concurrently with
// playback.
func (lp *LivePreview) SetSource(src SampleSource) {
	lp.source.Store(&src)
}

// Read implements io.Reader for oto's player, converting its byte-oriented
// pull into float32 samples drawn from the current SampleSource.
func (lp *LivePreview) Read(p []byte) (int, error) {
	srcPtr := lp.source.Load()
	if srcPtr == nil {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	src := *srcPtr

	numSamples := len(p) / 4
	if cap(lp.scratch) < numSamples {
		lp.scratch = make([]float32, numSamples)
	}
	samples := lp.scratch[:numSamples]
	n := src(samples)
	for i := n; i < numSamples; i++ {
		samples[i] = 0
	}
	for i := 0; i < numSamples; i++ {
		encodeFloat32LE(p[i*4:i*4+4], samples[i])
	}
	return len(p), nil
}

func encodeFloat32LE(dst []byte, v float32) {
	bits := math.Float32bits(v)
	dst[0] = byte(bits)
	dst[1] = byte(bits >> 8)
	dst[2] = byte(bits >> 16)
	dst[3] = byte(bits >> 24)
}

// Start begins playback.
func (lp *LivePreview) Start() {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if !lp.started {
		lp.player.Play()
		lp.started = true
	}
}

// Close stops playback and releases the oto player.
func (lp *LivePreview) Close() error {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if lp.player != nil {
		err := lp.player.Close()
		lp.player = nil
		lp.started = false
		return err
	}
	return nil
}
