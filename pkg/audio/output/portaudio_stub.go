//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"errors"

	"github.com/Resonate-Protocol/soundbridge/pkg/bridge"
)

// ErrPortAudioDisabled is returned when the binary was built without PortAudio
var ErrPortAudioDisabled = errors.New("PortAudio support not enabled (build with -tags portaudio)")

// PortAudio backend (stub)
type PortAudio struct{}

// NewPortAudio creates a new PortAudio backend
func NewPortAudio() Output {
	return &PortAudio{}
}

// Name implements Output
func (p *PortAudio) Name() string { return "portaudio" }

// OpenPlayback always fails
func (p *PortAudio) OpenPlayback(bridge.DeviceRequest, bridge.RenderFunc) (bridge.Device, bridge.DeviceSpec, error) {
	return nil, bridge.DeviceSpec{}, ErrPortAudioDisabled
}

// Close releases resources
func (p *PortAudio) Close() error {
	return nil
}
