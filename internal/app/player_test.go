// ABOUTME: Tests for player application orchestration
// ABOUTME: Runs the player against the in-memory platform
package app

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Resonate-Protocol/soundbridge/pkg/audio"
	"github.com/Resonate-Protocol/soundbridge/pkg/bridge"
	"github.com/Resonate-Protocol/soundbridge/pkg/bridge/bridgetest"
)

func clockedPlatform() *bridgetest.Platform {
	p := bridgetest.NewPlatform()
	p.Period = time.Millisecond
	return p
}

func TestBridgeConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"s16", func(c *Config) { c.Format = "s16" }, false},
		{"bad format", func(c *Config) { c.Format = "mp3" }, true},
		{"bad coercion", func(c *Config) { c.Coercion = "maybe" }, true},
		{"volume too high", func(c *Config) { c.Volume = 101 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			_, err := cfg.BridgeConfig()
			if (err != nil) != tt.wantErr {
				t.Errorf("BridgeConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBridgeConfigRequest(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rate = 48000
	cfg.Channels = 1
	cfg.Format = "s24"
	cfg.Coercion = "reject"

	bc, err := cfg.BridgeConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := bridge.DeviceRequest{SampleRate: 48000, Channels: 1, BufferFrames: 1024, Format: audio.FormatS24}
	if *bc.Request != want {
		t.Errorf("expected request %v, got %v", want, *bc.Request)
	}
	if bc.Coercion != bridge.CoercionReject {
		t.Errorf("expected reject policy, got %s", bc.Coercion)
	}
}

func TestPlayerNothingToPlay(t *testing.T) {
	p := clockedPlatform()
	player := New(*DefaultConfig(), p)

	if err := player.Start(); !errors.Is(err, ErrNothingToPlay) {
		t.Fatalf("expected ErrNothingToPlay, got %v", err)
	}
	if len(p.Devices()) != 0 {
		t.Error("expected no device to be opened")
	}
}

func TestPlayerRunsForDuration(t *testing.T) {
	p := clockedPlatform()
	cfg := DefaultConfig()
	cfg.Buffer = 64
	cfg.Tone = 440
	cfg.Duration = 30 * time.Millisecond

	player := New(*cfg, p)

	done := make(chan error, 1)
	go func() { done <- player.Run() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("player did not stop after its duration")
	}

	if player.Stats().Callbacks == 0 {
		t.Error("expected the device to have rendered audio")
	}
	if !p.Last().Closed() {
		t.Error("expected the device to be closed")
	}
}

func TestPlayerStopInterruptsWait(t *testing.T) {
	p := clockedPlatform()
	cfg := DefaultConfig()
	cfg.Tone = 440

	player := New(*cfg, p)
	if err := player.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- player.Wait() }()

	if err := player.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("wait failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("wait did not return after stop")
	}

	if err := player.Stop(); err != nil {
		t.Errorf("expected second stop to be a no-op, got %v", err)
	}
}

func TestPlayerOpenFailure(t *testing.T) {
	p := clockedPlatform()
	p.Err = errors.New("no sound card")
	cfg := DefaultConfig()
	cfg.Tone = 440

	err := New(*cfg, p).Start()
	if !errors.Is(err, bridge.ErrSubsystem) {
		t.Errorf("expected ErrSubsystem, got %v", err)
	}
}

func TestPlayerMissingFileClosesDevice(t *testing.T) {
	p := clockedPlatform()
	cfg := DefaultConfig()
	cfg.Files = []string{filepath.Join(t.TempDir(), "missing.mp3")}

	if err := New(*cfg, p).Start(); err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if !p.Last().Closed() {
		t.Error("expected the device to be closed after a failed start")
	}
}

func TestPlayerPauseResume(t *testing.T) {
	p := clockedPlatform()
	cfg := DefaultConfig()
	cfg.Tone = 440

	player := New(*cfg, p)
	if err := player.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer player.Stop()

	if err := player.Pause(); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if p.Last().Running() {
		t.Error("expected the device to be stopped")
	}
	if err := player.Resume(); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if !p.Last().Running() {
		t.Error("expected the device to be running")
	}
}

func TestSetVolume(t *testing.T) {
	player := New(*DefaultConfig(), clockedPlatform())

	tests := []struct{ in, want int }{
		{50, 50},
		{-5, 0},
		{150, 100},
	}
	for _, tt := range tests {
		player.SetVolume(tt.in)
		if got := player.Volume(); got != tt.want {
			t.Errorf("SetVolume(%d): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}
