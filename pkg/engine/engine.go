// ABOUTME: Shared mixing engine rendered by the device bridge
// ABOUTME: Wraps a beep mixer behind one mutex shared by render and mutation
package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

const (
	// Natural engine configuration, used when the caller has no preference
	DefaultSampleRate  = 44100
	DefaultChannels    = 2
	DefaultBlockFrames = 1024

	// resampleQuality is passed to beep.Resample for sources at a foreign rate
	resampleQuality = 4
)

var (
	// ErrBlockAlignment is returned by Render when dst is not a whole number of frames
	ErrBlockAlignment = errors.New("engine: block is not a whole number of frames")

	// ErrUnknownSource is returned when a SourceID is not mixed by the engine
	ErrUnknownSource = errors.New("engine: unknown source")
)

// SourceID identifies a source added to an Engine
type SourceID string

// Engine mixes any number of beep streamers into interleaved float32 blocks.
//
// Rendering and every mutation share a single mutex, so a mutation either
// fully precedes or fully follows a render. Mutations are expected to be
// short: a device callback waits on them.
type Engine struct {
	mu sync.Mutex

	sampleRate beep.SampleRate
	channels   int

	mixer   *beep.Mixer
	master  *effects.Gain
	sources map[SourceID]*source

	// stereo mix scratch, preallocated so Render never allocates
	mix [][2]float64
}

// source wraps a mixed streamer so it can be paused or dropped by id
type source struct {
	ctrl    *beep.Ctrl
	removed bool
	drained bool
}

func (s *source) Stream(samples [][2]float64) (int, bool) {
	if s.removed {
		return 0, false
	}
	n, ok := s.ctrl.Stream(samples)
	if !ok {
		s.drained = true
	}
	return n, ok
}

func (s *source) Err() error {
	return s.ctrl.Err()
}

// Option configures an Engine
type Option func(*Engine)

// WithBlockFrames sizes the internal mix scratch. Render handles larger blocks
// in several passes, so this only affects how many passes a block takes.
func WithBlockFrames(frames int) Option {
	return func(e *Engine) {
		if frames > 0 {
			e.mix = make([][2]float64, frames)
		}
	}
}

// New creates an engine rendering at sampleRate with the given channel count
func New(sampleRate, channels int, opts ...Option) (*Engine, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("engine: invalid sample rate: %d", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("engine: invalid channel count: %d", channels)
	}

	mixer := &beep.Mixer{}
	e := &Engine{
		sampleRate: beep.SampleRate(sampleRate),
		channels:   channels,
		mixer:      mixer,
		master:     &effects.Gain{Streamer: mixer},
		sources:    make(map[SourceID]*source),
		mix:        make([][2]float64, DefaultBlockFrames),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// SampleRate returns the rate the engine renders at
func (e *Engine) SampleRate() int {
	return int(e.sampleRate)
}

// Channels returns the interleaved channel count of rendered blocks
func (e *Engine) Channels() int {
	return e.channels
}

// Format returns the engine's output format in beep terms
func (e *Engine) Format() beep.Format {
	return beep.Format{SampleRate: e.sampleRate, NumChannels: e.channels, Precision: 4}
}

// AddSource mixes s, which must already stream at the engine's sample rate
func (e *Engine) AddSource(s beep.Streamer) SourceID {
	id := SourceID(uuid.New().String())
	src := &source{ctrl: &beep.Ctrl{Streamer: s}}

	e.mu.Lock()
	e.sources[id] = src
	e.mixer.Add(src)
	e.mu.Unlock()

	return id
}

// AddSourceFormat mixes s, resampling it when format's rate differs from the engine's
func (e *Engine) AddSourceFormat(s beep.Streamer, format beep.Format) SourceID {
	if format.SampleRate != 0 && format.SampleRate != e.sampleRate {
		s = beep.Resample(resampleQuality, format.SampleRate, e.sampleRate, s)
	}
	return e.AddSource(s)
}

// RemoveSource stops mixing the source. It reports whether the source was present.
func (e *Engine) RemoveSource(id SourceID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	src, ok := e.sources[id]
	if !ok {
		return false
	}
	src.removed = true
	delete(e.sources, id)
	return true
}

// PauseSource pauses or resumes a single source without removing it
func (e *Engine) PauseSource(id SourceID, paused bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	src, ok := e.sources[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}
	src.ctrl.Paused = paused
	return nil
}

// SetMasterGain sets the linear gain applied to the whole mix (1 = unity)
func (e *Engine) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	e.mu.Lock()
	e.master.Gain = gain - 1
	e.mu.Unlock()
}

// MasterGain returns the linear master gain
func (e *Engine) MasterGain() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.master.Gain + 1
}

// Len returns the number of sources still being mixed: added, not removed
// and not yet drained
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sources)
}

// Clear removes every source
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, src := range e.sources {
		src.removed = true
		delete(e.sources, id)
	}
	e.mixer.Clear()
}

// Render fills dst with the next len(dst)/Channels() interleaved frames.
// Sources that drain before the block ends leave silence behind them.
func (e *Engine) Render(dst []float32) error {
	if len(dst)%e.channels != 0 {
		return fmt.Errorf("%w: %d samples for %d channels", ErrBlockAlignment, len(dst), e.channels)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	frames := len(dst) / e.channels
	for frames > 0 {
		n := frames
		if n > len(e.mix) {
			n = len(e.mix)
		}
		block := e.mix[:n]
		clear(block)

		got, _ := e.master.Stream(block)
		clear(block[got:])

		spread(dst[:n*e.channels], block, e.channels)
		dst = dst[n*e.channels:]
		frames -= n
	}

	// forget drained sources and those whose streamers reported an error
	for id, src := range e.sources {
		if src.drained || src.Err() != nil {
			src.removed = true
			delete(e.sources, id)
		}
	}
	return nil
}

// spread maps the stereo mix onto the engine's channel layout: mono takes the
// average, stereo is copied and further channels stay silent.
func spread(dst []float32, mix [][2]float64, channels int) {
	switch channels {
	case 1:
		for i, s := range mix {
			dst[i] = float32((s[0] + s[1]) / 2)
		}
	case 2:
		for i, s := range mix {
			dst[i*2] = float32(s[0])
			dst[i*2+1] = float32(s[1])
		}
	default:
		for i, s := range mix {
			frame := dst[i*channels : (i+1)*channels]
			frame[0] = float32(s[0])
			frame[1] = float32(s[1])
			clear(frame[2:])
		}
	}
}
