//go:build portaudio

// ABOUTME: PortAudio playback backend
// ABOUTME: Opens callback streams on the default output device
package output

import (
	"fmt"
	"log"
	"sync"
	"unsafe"

	"github.com/Resonate-Protocol/soundbridge/pkg/audio"
	"github.com/Resonate-Protocol/soundbridge/pkg/bridge"
	"github.com/gordonklaus/portaudio"
)

// PortAudio opens callback streams on the default output device. Streams
// carry float32 samples, or int16 when the request asks for 16-bit.
type PortAudio struct {
	mu          sync.Mutex
	initialized bool
}

// NewPortAudio creates a new PortAudio backend
func NewPortAudio() Output {
	return &PortAudio{}
}

// Name implements Output
func (p *PortAudio) Name() string { return "portaudio" }

// OpenPlayback implements bridge.Subsystem
func (p *PortAudio) OpenPlayback(req bridge.DeviceRequest, render bridge.RenderFunc) (bridge.Device, bridge.DeviceSpec, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		if err := portaudio.Initialize(); err != nil {
			return nil, bridge.DeviceSpec{}, fmt.Errorf("failed to initialize portaudio: %w", err)
		}
		p.initialized = true
	}

	dev, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return nil, bridge.DeviceSpec{}, fmt.Errorf("no default output device: %w", err)
	}

	params := portaudio.LowLatencyParameters(nil, dev)
	params.Output.Channels = clampChannels(req.Channels, dev.MaxOutputChannels)
	if req.SampleRate > 0 {
		params.SampleRate = float64(req.SampleRate)
	}
	params.FramesPerBuffer = portaudio.FramesPerBufferUnspecified
	if req.BufferFrames > 0 {
		params.FramesPerBuffer = req.BufferFrames
	}

	format := audio.FormatF32
	var callback any = func(out []float32) {
		render(unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(out))), len(out)*4))
	}
	if req.Format == audio.FormatS16 {
		format = audio.FormatS16
		callback = func(out []int16) {
			render(unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(out))), len(out)*2))
		}
	}

	stream, err := portaudio.OpenStream(params, callback)
	if err != nil {
		return nil, bridge.DeviceSpec{}, fmt.Errorf("failed to open stream: %w", err)
	}

	rate := int(params.SampleRate)
	if info := stream.Info(); info != nil && info.SampleRate > 0 {
		rate = int(info.SampleRate)
	}

	frames := req.BufferFrames
	if frames == 0 {
		frames = int(params.Output.Latency.Seconds() * float64(rate))
	}

	spec := bridge.DeviceSpec{
		SampleRate:   rate,
		Channels:     params.Output.Channels,
		BufferFrames: periodFrames(frames, rate),
		Format:       format,
	}

	log.Printf("Audio output initialized: %dHz, %d channels (portaudio/%s on %s)",
		spec.SampleRate, spec.Channels, spec.Format, dev.Name)

	return &portaudioDevice{stream: stream}, spec, nil
}

// Close terminates PortAudio
func (p *PortAudio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return nil
	}
	p.initialized = false
	return portaudio.Terminate()
}

type portaudioDevice struct {
	mu      sync.Mutex
	stream  *portaudio.Stream
	running bool
}

func (d *portaudioDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stream == nil {
		return fmt.Errorf("portaudio stream closed")
	}
	if err := d.stream.Start(); err != nil {
		return err
	}
	d.running = true
	return nil
}

// Stop waits for pending callbacks to complete
func (d *portaudioDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stream == nil || !d.running {
		return nil
	}
	d.running = false
	return d.stream.Stop()
}

func (d *portaudioDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stream == nil {
		return nil
	}
	err := d.stream.Close()
	d.stream = nil
	return err
}
