// ABOUTME: Oto-based playback backend
// ABOUTME: Drives the bridge render callback from an oto player's Read calls
package output

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Resonate-Protocol/soundbridge/pkg/audio"
	"github.com/Resonate-Protocol/soundbridge/pkg/bridge"
	"github.com/Resonate-Protocol/soundbridge/pkg/engine"
	"github.com/ebitengine/oto/v3"
)

// Oto opens playback through an oto context. oto allows one context per
// process, so every device opened by an Oto shares the rate, channel count
// and format of the first one.
type Oto struct {
	mu     sync.Mutex
	otoCtx *oto.Context
	format otoFormat
}

type otoFormat struct {
	sampleRate int
	channels   int
	sample     audio.SampleFormat
}

// NewOto creates a new Oto backend; the context is created on first open
func NewOto() Output {
	return &Oto{}
}

// Name implements Output
func (o *Oto) Name() string { return "oto" }

// OpenPlayback implements bridge.Subsystem
func (o *Oto) OpenPlayback(req bridge.DeviceRequest, render bridge.RenderFunc) (bridge.Device, bridge.DeviceSpec, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	want := otoFormatFor(req)
	frames := req.BufferFrames
	if frames == 0 {
		frames = engine.DefaultBlockFrames
	}

	if o.otoCtx == nil {
		op := &oto.NewContextOptions{
			SampleRate:   want.sampleRate,
			ChannelCount: want.channels,
			Format:       toOtoFormat(want.sample),
			BufferSize:   time.Duration(frames) * time.Second / time.Duration(want.sampleRate),
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			return nil, bridge.DeviceSpec{}, fmt.Errorf("failed to create oto context: %w", err)
		}
		<-readyChan

		o.otoCtx = ctx
		o.format = want

		log.Printf("Audio output initialized: %dHz, %d channels (oto/%s)", want.sampleRate, want.channels, want.sample)
	} else if err := reuseOtoContext(o.otoCtx, o.format, want); err != nil {
		return nil, bridge.DeviceSpec{}, err
	}

	spec := bridge.DeviceSpec{
		SampleRate:   o.format.sampleRate,
		Channels:     o.format.channels,
		BufferFrames: frames,
		Format:       o.format.sample,
	}

	player := o.otoCtx.NewPlayer(callbackReader(render))
	player.SetBufferSize(spec.BufferBytes())

	return &otoDevice{player: player}, spec, nil
}

// Close suspends the oto context. oto cannot release it; a later open
// resumes the same context.
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx == nil {
		return nil
	}
	if err := o.otoCtx.Suspend(); err != nil {
		return fmt.Errorf("oto suspend: %w", err)
	}
	return nil
}

// reuseOtoContext prepares the shared context for another device. Close
// suspends it, so it is resumed here.
func reuseOtoContext(ctx interface{ Resume() error }, have, want otoFormat) error {
	if want != have {
		// oto cannot reinitialize; the first context's format wins
		log.Printf("Warning: oto context already running at %dHz/%dch/%s, ignoring %dHz/%dch/%s",
			have.sampleRate, have.channels, have.sample, want.sampleRate, want.channels, want.sample)
	}
	if err := ctx.Resume(); err != nil {
		return fmt.Errorf("failed to resume oto context: %w", err)
	}
	return nil
}

// callbackReader turns each player Read into one render callback
type callbackReader bridge.RenderFunc

func (r callbackReader) Read(p []byte) (int, error) {
	r(p)
	return len(p), nil
}

type otoDevice struct {
	mu     sync.Mutex
	player *oto.Player
}

func (d *otoDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.player == nil {
		return fmt.Errorf("oto player closed")
	}
	d.player.Play()
	return nil
}

func (d *otoDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.player != nil {
		d.player.Pause()
	}
	return nil
}

func (d *otoDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.player == nil {
		return nil
	}
	err := d.player.Close()
	d.player = nil
	return err
}

// otoFormatFor resolves a request to what oto can play. Open fields take
// the engine defaults; 24 and 32-bit integer requests fall back to 16-bit.
func otoFormatFor(req bridge.DeviceRequest) otoFormat {
	f := otoFormat{
		sampleRate: req.SampleRate,
		channels:   req.Channels,
		sample:     req.Format,
	}
	if f.sampleRate == 0 {
		f.sampleRate = engine.DefaultSampleRate
	}
	if f.channels == 0 {
		f.channels = engine.DefaultChannels
	}
	switch f.sample {
	case audio.FormatU8, audio.FormatS16, audio.FormatF32:
	case audio.FormatUnknown:
		f.sample = audio.FormatF32
	default:
		f.sample = audio.FormatS16
	}
	return f
}

func toOtoFormat(f audio.SampleFormat) oto.Format {
	switch f {
	case audio.FormatU8:
		return oto.FormatUnsignedInt8
	case audio.FormatS16:
		return oto.FormatSignedInt16LE
	default:
		return oto.FormatFloat32LE
	}
}
