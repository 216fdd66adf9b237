// ABOUTME: In-memory decoded audio clips and synthetic sources
// ABOUTME: Everything is decoded before playback so the render callback never does I/O
package source

import (
	"fmt"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/generators"
)

// Clip is audio fully decoded into memory
type Clip struct {
	buf *beep.Buffer
}

func newClip(format beep.Format, s beep.Streamer) *Clip {
	buf := beep.NewBuffer(format)
	buf.Append(s)
	return &Clip{buf: buf}
}

// Format returns the clip's native format
func (c *Clip) Format() beep.Format {
	return c.buf.Format()
}

// Len returns the clip length in frames
func (c *Clip) Len() int {
	return c.buf.Len()
}

// Duration returns the clip length
func (c *Clip) Duration() time.Duration {
	return c.buf.Format().SampleRate.D(c.buf.Len())
}

// Streamer returns a new streamer over the whole clip. Each call is
// independent, so one clip can play several times at once.
func (c *Clip) Streamer() beep.StreamSeeker {
	return c.buf.Streamer(0, c.buf.Len())
}

// Tone returns a sine wave at freq Hz. A zero duration plays forever.
func Tone(sampleRate int, freq float64, d time.Duration) (beep.Streamer, error) {
	sr := beep.SampleRate(sampleRate)
	tone, err := generators.SineTone(sr, freq)
	if err != nil {
		return nil, fmt.Errorf("tone %.1fHz at %dHz: %w", freq, sampleRate, err)
	}
	if d <= 0 {
		return tone, nil
	}
	return beep.Take(sr.N(d), tone), nil
}

// frames streams decoded stereo frames once
type frames struct {
	data [][2]float64
	pos  int
}

func (f *frames) Stream(samples [][2]float64) (int, bool) {
	if f.pos >= len(f.data) {
		return 0, false
	}
	n := copy(samples, f.data[f.pos:])
	f.pos += n
	return n, true
}

func (f *frames) Err() error {
	return nil
}

// stereo maps one interleaved frame onto the stereo mix: mono is duplicated,
// extra channels are dropped
func stereo(frame []float64) [2]float64 {
	if len(frame) == 1 {
		return [2]float64{frame[0], frame[0]}
	}
	return [2]float64{frame[0], frame[1]}
}
