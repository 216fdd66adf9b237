// ABOUTME: Malgo-based playback backend
// ABOUTME: Opens miniaudio devices whose data callback is the bridge render callback
package output

import (
	"fmt"
	"log"
	"sync"

	"github.com/Resonate-Protocol/soundbridge/pkg/audio"
	"github.com/Resonate-Protocol/soundbridge/pkg/bridge"
	"github.com/gen2brain/malgo"
)

// Malgo opens playback devices through miniaudio. Zero request fields are
// left to miniaudio, and the granted format is read back from the device.
//
// miniaudio does not report the period it settled on, so the granted
// BufferFrames is nominal: the requested period, or 10ms at the granted
// rate. Callbacks may arrive with any buffer size.
type Malgo struct {
	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
}

// NewMalgo creates a new Malgo backend; the miniaudio context is created on
// first open
func NewMalgo() Output {
	return &Malgo{}
}

// Name implements Output
func (m *Malgo) Name() string { return "malgo" }

// OpenPlayback implements bridge.Subsystem
func (m *Malgo) OpenPlayback(req bridge.DeviceRequest, render bridge.RenderFunc) (bridge.Device, bridge.DeviceSpec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return nil, bridge.DeviceSpec{}, fmt.Errorf("failed to initialize malgo context: %w", err)
		}
		m.malgoCtx = ctx
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = toMalgoFormat(req.Format)
	deviceConfig.Playback.Channels = uint32(req.Channels)
	deviceConfig.SampleRate = uint32(req.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(req.BufferFrames)
	deviceConfig.Alsa.NoMMap = 1

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, frameCount uint32) {
			render(pOutputSample)
		},
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		return nil, bridge.DeviceSpec{}, fmt.Errorf("failed to initialize playback device: %w", err)
	}

	rate := int(device.SampleRate())
	spec := bridge.DeviceSpec{
		SampleRate:   rate,
		Channels:     int(device.PlaybackChannels()),
		BufferFrames: periodFrames(req.BufferFrames, rate),
		Format:       fromMalgoFormat(device.PlaybackFormat()),
	}

	log.Printf("Audio output initialized: %dHz, %d channels (malgo/%s)",
		spec.SampleRate, spec.Channels, formatName(device.PlaybackFormat()))

	return &malgoDevice{device: device}, spec, nil
}

// Close releases the miniaudio context
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.malgoCtx == nil {
		return nil
	}
	err := m.malgoCtx.Uninit()
	m.malgoCtx.Free()
	m.malgoCtx = nil
	if err != nil {
		return fmt.Errorf("malgo context uninit: %w", err)
	}
	return nil
}

// malgoDevice adapts malgo.Device to bridge.Device
type malgoDevice struct {
	mu     sync.Mutex
	device *malgo.Device
}

func (d *malgoDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return fmt.Errorf("malgo device closed")
	}
	return d.device.Start()
}

// Stop returns once miniaudio has stopped invoking the data callback
func (d *malgoDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return nil
	}
	return d.device.Stop()
}

func (d *malgoDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device != nil {
		d.device.Uninit()
		d.device = nil
	}
	return nil
}

func toMalgoFormat(f audio.SampleFormat) malgo.FormatType {
	switch f {
	case audio.FormatU8:
		return malgo.FormatU8
	case audio.FormatS16:
		return malgo.FormatS16
	case audio.FormatS24:
		return malgo.FormatS24
	case audio.FormatS32:
		return malgo.FormatS32
	case audio.FormatF32:
		return malgo.FormatF32
	default:
		return malgo.FormatUnknown
	}
}

func fromMalgoFormat(f malgo.FormatType) audio.SampleFormat {
	switch f {
	case malgo.FormatU8:
		return audio.FormatU8
	case malgo.FormatS16:
		return audio.FormatS16
	case malgo.FormatS24:
		return audio.FormatS24
	case malgo.FormatS32:
		return audio.FormatS32
	case malgo.FormatF32:
		return audio.FormatF32
	default:
		return audio.FormatUnknown
	}
}

// formatName returns human-readable format name
func formatName(format malgo.FormatType) string {
	switch format {
	case malgo.FormatU8:
		return "U8"
	case malgo.FormatS16:
		return "S16"
	case malgo.FormatS24:
		return "S24"
	case malgo.FormatS32:
		return "S32"
	case malgo.FormatF32:
		return "F32"
	default:
		return fmt.Sprintf("Unknown(%d)", format)
	}
}
