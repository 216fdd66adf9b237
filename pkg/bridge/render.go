// ABOUTME: Real-time render callback feeding a device from the shared engine
// ABOUTME: Renders into preallocated scratch, converts outside the engine lock, falls back to silence
package bridge

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/soundbridge/pkg/audio"
)

// State is the lifecycle state of a Bridge
type State int

const (
	StateSuspended State = iota
	StateRunning
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateSuspended:
		return "suspended"
	case StateRunning:
		return "running"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Stats counts callback activity since the bridge was opened
type Stats struct {
	// Callbacks is the number of callbacks that rendered the engine
	Callbacks uint64
	// Frames is the number of frames delivered by those callbacks
	Frames uint64
	// Fallbacks is the number of blocks replaced by silence after a render failure
	Fallbacks uint64
	// Silent is the number of callbacks answered with silence because the
	// bridge was suspended, closed or not yet attached to an engine
	Silent uint64
}

// renderer is the state behind the RenderFunc handed to the platform.
//
// gate is held by the callback for the whole invocation and by lifecycle
// transitions, which therefore wait for an in-flight callback. It is never
// held while calling into the platform.
type renderer struct {
	gate   sync.Mutex
	state  State
	engine Renderer
	spec   DeviceSpec

	// preallocated at attach time, reused by every callback
	scratch []float32

	callbacks atomic.Uint64
	frames    atomic.Uint64
	fallbacks atomic.Uint64
	silent    atomic.Uint64

	errs chan error
}

func newRenderer(backlog int) *renderer {
	return &renderer{
		state: StateSuspended,
		errs:  make(chan error, backlog),
	}
}

// attach connects the engine built for the granted spec
func (r *renderer) attach(eng Renderer, spec DeviceSpec) {
	scratch := make([]float32, spec.BufferFrames*spec.Channels)

	r.gate.Lock()
	r.engine = eng
	r.spec = spec
	r.scratch = scratch
	r.gate.Unlock()
}

// detach drops the engine reference; callbacks after this only write silence
func (r *renderer) detach() {
	r.gate.Lock()
	r.engine = nil
	r.gate.Unlock()
}

func (r *renderer) setState(s State) {
	r.gate.Lock()
	r.state = s
	r.gate.Unlock()
}

func (r *renderer) currentState() State {
	r.gate.Lock()
	defer r.gate.Unlock()
	return r.state
}

func (r *renderer) stats() Stats {
	return Stats{
		Callbacks: r.callbacks.Load(),
		Frames:    r.frames.Load(),
		Fallbacks: r.fallbacks.Load(),
		Silent:    r.silent.Load(),
	}
}

// render is the RenderFunc. It always fills out completely and never
// allocates on the success path.
func (r *renderer) render(out []byte) {
	r.gate.Lock()
	defer r.gate.Unlock()

	if r.engine == nil || r.state != StateRunning {
		audio.Silence(out, r.spec.Format)
		r.silent.Add(1)
		return
	}

	frameBytes := r.spec.BytesPerFrame()
	frames := len(out) / frameBytes
	channels := r.spec.Channels
	chunkFrames := len(r.scratch) / channels

	// platforms may hand over more than the negotiated buffer; render it in
	// scratch-sized chunks instead of allocating
	off := 0
	for remaining := frames; remaining > 0; {
		n := remaining
		if n > chunkFrames {
			n = chunkFrames
		}
		block := r.scratch[:n*channels]

		if err := r.renderBlock(block); err != nil {
			clear(block)
			r.fallbacks.Add(1)
			select {
			case r.errs <- err:
			default:
			}
		}

		off += audio.Encode(out[off:], block, r.spec.Format)
		remaining -= n
	}

	// zero any trailing partial frame
	audio.Silence(out[off:], r.spec.Format)

	r.callbacks.Add(1)
	r.frames.Add(uint64(frames))
}

// renderBlock asks the engine for one block. The engine takes its own lock
// for exactly the duration of the render.
func (r *renderer) renderBlock(block []float32) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrRenderPanic, p)
		}
	}()
	return r.engine.Render(block)
}
