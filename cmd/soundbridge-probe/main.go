// ABOUTME: Prints what an audio backend grants for a device request
// ABOUTME: Opens a device without starting it, reports the spec and exits
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Resonate-Protocol/soundbridge/internal/version"
	"github.com/Resonate-Protocol/soundbridge/pkg/audio"
	"github.com/Resonate-Protocol/soundbridge/pkg/audio/output"
	"github.com/Resonate-Protocol/soundbridge/pkg/bridge"
)

var (
	backend  = flag.String("backend", output.DefaultBackend, "Audio backend (malgo, oto, portaudio)")
	rate     = flag.Int("rate", 0, "Requested sample rate (0: any)")
	channels = flag.Int("channels", 0, "Requested channel count (0: any)")
	buffer   = flag.Int("buffer", 0, "Requested buffer size in frames (0: any)")
	format   = flag.String("format", "any", "Requested sample format (u8, s16, s24, s32, f32, any)")
	strict   = flag.Bool("strict", false, "Fail if the device changes any requested field")
	showVer  = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version.String())
		return
	}

	sampleFormat, err := audio.ParseSampleFormat(*format)
	if err != nil {
		log.Fatalf("Invalid format: %v", err)
	}

	out, err := output.New(*backend)
	if err != nil {
		log.Fatalf("Failed to create backend: %v", err)
	}
	defer out.Close()

	cfg := bridge.Config{
		Request: &bridge.DeviceRequest{
			SampleRate:   *rate,
			Channels:     *channels,
			BufferFrames: *buffer,
			Format:       sampleFormat,
		},
		Coercion: bridge.CoercionWarn,
	}
	if *strict {
		cfg.Coercion = bridge.CoercionReject
	}

	_, b, err := bridge.OpenConfig(out, cfg)
	if err != nil {
		log.Printf("Open failed: %v", err)
		out.Close()
		os.Exit(1)
	}
	spec := b.Spec()
	if err := b.Close(); err != nil {
		log.Printf("Close failed: %v", err)
	}

	fmt.Printf("backend:     %s\n", out.Name())
	fmt.Printf("requested:   %s\n", cfg.Request)
	fmt.Printf("sample rate: %d Hz\n", spec.SampleRate)
	fmt.Printf("channels:    %d\n", spec.Channels)
	fmt.Printf("buffer:      %d frames (%d bytes)\n", spec.BufferFrames, spec.BufferBytes())
	fmt.Printf("format:      %s\n", spec.Format)
}
