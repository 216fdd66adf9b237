// ABOUTME: Playback application configuration
// ABOUTME: Flag and environment settings translated into a bridge configuration
package app

import (
	"fmt"
	"time"

	"github.com/Resonate-Protocol/soundbridge/pkg/audio"
	"github.com/Resonate-Protocol/soundbridge/pkg/audio/output"
	"github.com/Resonate-Protocol/soundbridge/pkg/bridge"
)

// Config holds player configuration
type Config struct {
	Backend  string        `dialsdesc:"Audio backend: malgo, oto or portaudio"`
	Rate     int           `dialsdesc:"Requested sample rate in Hz (0: device default)"`
	Channels int           `dialsdesc:"Requested channel count (0: device default)"`
	Buffer   int           `dialsdesc:"Requested buffer size in frames (0: device default)"`
	Format   string        `dialsdesc:"Requested sample format: u8, s16, s24, s32, f32"`
	Coercion string        `dialsdesc:"When the device changes the request: warn, accept or reject"`
	Volume   int           `dialsdesc:"Master volume, 0-100"`
	Tone     float64       `dialsdesc:"Play a sine tone at this frequency in Hz (0: none)"`
	Files    []string      `dialsdesc:"Audio files to play (mp3, flac, wav)"`
	Duration time.Duration `dialsdesc:"Stop after this long (0: when every source has finished)"`
	LogFile  string        `dialsdesc:"Log file path"`
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() *Config {
	return &Config{
		Backend:  output.DefaultBackend,
		Buffer:   1024,
		Format:   "f32",
		Coercion: "warn",
		Volume:   100,
		LogFile:  "soundbridge.log",
	}
}

// BridgeConfig builds the device request and coercion policy
func (c *Config) BridgeConfig() (bridge.Config, error) {
	format, err := audio.ParseSampleFormat(c.Format)
	if err != nil {
		return bridge.Config{}, err
	}
	policy, err := bridge.ParseCoercionPolicy(c.Coercion)
	if err != nil {
		return bridge.Config{}, err
	}
	if c.Volume < 0 || c.Volume > 100 {
		return bridge.Config{}, fmt.Errorf("volume %d out of range 0-100", c.Volume)
	}

	return bridge.Config{
		Request: &bridge.DeviceRequest{
			SampleRate:   c.Rate,
			Channels:     c.Channels,
			BufferFrames: c.Buffer,
			Format:       format,
		},
		Coercion: policy,
	}, nil
}
