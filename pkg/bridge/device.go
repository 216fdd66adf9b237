// ABOUTME: Device request, granted spec and platform subsystem contracts
// ABOUTME: Defines what a backend must provide to host the render callback
package bridge

import (
	"fmt"

	"github.com/Resonate-Protocol/soundbridge/pkg/audio"
	"github.com/Resonate-Protocol/soundbridge/pkg/engine"
)

// DeviceRequest is the configuration asked of the platform. Zero fields mean
// "accept whatever the platform offers"; FormatUnknown selects the engine's
// native float family.
type DeviceRequest struct {
	SampleRate   int
	Channels     int
	BufferFrames int
	Format       audio.SampleFormat
}

// DefaultRequest returns the engine's natural configuration
func DefaultRequest() DeviceRequest {
	return DeviceRequest{
		SampleRate:   engine.DefaultSampleRate,
		Channels:     engine.DefaultChannels,
		BufferFrames: engine.DefaultBlockFrames,
		Format:       audio.FormatF32,
	}
}

func (r DeviceRequest) validate() error {
	if r.SampleRate < 0 {
		return fmt.Errorf("sample rate %d", r.SampleRate)
	}
	if r.Channels < 0 {
		return fmt.Errorf("channel count %d", r.Channels)
	}
	if r.BufferFrames < 0 {
		return fmt.Errorf("buffer size %d", r.BufferFrames)
	}
	if r.Format != audio.FormatUnknown && !r.Format.Valid() {
		return fmt.Errorf("sample format %d", int(r.Format))
	}
	return nil
}

// withDefaults fills the format family; every other zero field stays "any"
func (r DeviceRequest) withDefaults() DeviceRequest {
	if r.Format == audio.FormatUnknown {
		r.Format = audio.FormatF32
	}
	return r
}

func (r DeviceRequest) String() string {
	return fmt.Sprintf("%sHz/%sch/%s frames/%s",
		anyInt(r.SampleRate), anyInt(r.Channels), anyInt(r.BufferFrames), r.Format)
}

func anyInt(v int) string {
	if v == 0 {
		return "any"
	}
	return fmt.Sprint(v)
}

// DeviceSpec is the configuration the platform granted. It is fully concrete
// once a device is open and never changes for the device's lifetime.
type DeviceSpec struct {
	SampleRate   int
	Channels     int
	BufferFrames int
	Format       audio.SampleFormat
}

// Validate reports an error unless every field is concrete
func (s DeviceSpec) Validate() error {
	switch {
	case s.SampleRate <= 0:
		return fmt.Errorf("granted sample rate %d", s.SampleRate)
	case s.Channels <= 0:
		return fmt.Errorf("granted channel count %d", s.Channels)
	case s.BufferFrames <= 0:
		return fmt.Errorf("granted buffer size %d", s.BufferFrames)
	case !s.Format.Valid():
		return fmt.Errorf("granted sample format %s", s.Format)
	}
	return nil
}

// BytesPerFrame returns the size of one interleaved device frame
func (s DeviceSpec) BytesPerFrame() int {
	return s.Channels * s.Format.BytesPerSample()
}

// BufferBytes returns the size of one negotiated device buffer
func (s DeviceSpec) BufferBytes() int {
	return s.BufferFrames * s.BytesPerFrame()
}

func (s DeviceSpec) String() string {
	return fmt.Sprintf("%dHz/%dch/%d frames/%s", s.SampleRate, s.Channels, s.BufferFrames, s.Format)
}

// RenderFunc fills out, a device buffer in the granted format, completely.
// Platforms call it from their real-time audio thread.
type RenderFunc func(out []byte)

// Subsystem is a platform audio subsystem able to open playback devices.
// OpenPlayback must leave the device suspended: no callback fires before
// Start. The returned spec describes what the platform actually granted.
type Subsystem interface {
	OpenPlayback(req DeviceRequest, render RenderFunc) (Device, DeviceSpec, error)
}

// Device is an open playback device.
//
// Stop must not return while a callback is executing. Close stops the device
// if needed and unregisters the callback; it is only called once.
type Device interface {
	Start() error
	Stop() error
	Close() error
}

// Renderer is the engine side of the bridge: it fills dst with the next
// len(dst)/channels interleaved frames at the rate and channel count it was
// built with.
type Renderer interface {
	Render(dst []float32) error
}
