// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides platform backends that host the bridge render callback
// Package output provides platform audio subsystems for pkg/bridge.
//
// Supports malgo (miniaudio, the default), oto, and PortAudio when built
// with -tags portaudio.
//
// Example:
//
//	out, err := output.New("malgo")
//	defer out.Close()
//	eng, b, err := bridge.Open(out, nil)
//	defer b.Close()
//	err = b.Resume()
package output
