// ABOUTME: Device negotiation and the application-facing bridge handle
// ABOUTME: Opens a device, builds the engine from the granted spec and manages lifecycle
package bridge

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/Resonate-Protocol/soundbridge/pkg/engine"
)

// Bridge owns an open playback device whose callback renders a shared engine.
//
// A Bridge starts suspended. Close must be called on every exit path, usually
// with defer; it guarantees the callback is disconnected and the device closed
// before the engine reference held by the callback is dropped.
type Bridge struct {
	mu sync.Mutex

	device   Device
	spec     DeviceSpec
	renderer *renderer

	onRenderError func(error)
	done          chan struct{}
	wg            sync.WaitGroup
}

// Open opens a playback device and returns an engine configured to the
// granted spec. A nil req asks for DefaultRequest().
func Open(sub Subsystem, req *DeviceRequest) (*engine.Engine, *Bridge, error) {
	return OpenConfig(sub, Config{Request: req})
}

// OpenConfig is Open with full configuration
func OpenConfig(sub Subsystem, cfg Config) (*engine.Engine, *Bridge, error) {
	return OpenRenderer(sub, cfg, func(spec DeviceSpec) (*engine.Engine, error) {
		return engine.New(spec.SampleRate, spec.Channels, engine.WithBlockFrames(spec.BufferFrames))
	})
}

// OpenRenderer opens a playback device and builds the renderer with
// newEngine from the granted spec, never from the request.
func OpenRenderer[E Renderer](sub Subsystem, cfg Config, newEngine func(DeviceSpec) (E, error)) (E, *Bridge, error) {
	var zero E

	requested := cfg.requested()
	if err := requested.validate(); err != nil {
		return zero, nil, &OpenError{Kind: KindRequest, Err: err}
	}
	req := requested.withDefaults()

	r := newRenderer(cfg.errorBacklog())
	device, spec, err := sub.OpenPlayback(req, r.render)
	if err != nil {
		return zero, nil, &OpenError{Kind: KindSubsystem, Err: err}
	}

	fail := func(kind OpenErrorKind, err error) (E, *Bridge, error) {
		if cerr := device.Close(); cerr != nil {
			log.Printf("Warning: closing rejected audio device: %v", cerr)
		}
		return zero, nil, &OpenError{Kind: kind, Err: err}
	}

	if err := spec.Validate(); err != nil {
		return fail(KindSubsystem, err)
	}
	if err := applyCoercion(cfg.Coercion, requested, spec); err != nil {
		return fail(KindCoercion, err)
	}

	eng, err := newEngine(spec)
	if err != nil {
		return fail(KindEngine, err)
	}
	r.attach(eng, spec)

	b := &Bridge{
		device:        device,
		spec:          spec,
		renderer:      r,
		onRenderError: cfg.OnRenderError,
		done:          make(chan struct{}),
	}
	b.wg.Add(1)
	go b.reportRenderErrors()

	log.Printf("Audio device opened: requested %s, granted %s", requested, spec)
	return eng, b, nil
}

// Spec returns the configuration the platform granted
func (b *Bridge) Spec() DeviceSpec {
	return b.spec
}

// State returns the current lifecycle state
func (b *Bridge) State() State {
	return b.renderer.currentState()
}

// Stats returns callback counters
func (b *Bridge) Stats() Stats {
	return b.renderer.stats()
}

// Resume starts the device callback. It is a no-op when already running.
func (b *Bridge) Resume() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.renderer.currentState() {
	case StateClosed:
		return ErrClosed
	case StateRunning:
		return nil
	}

	b.renderer.setState(StateRunning)
	if err := b.device.Start(); err != nil {
		b.renderer.setState(StateSuspended)
		return fmt.Errorf("bridge: resume: %w", err)
	}
	return nil
}

// Pause stops the device callback. It is a no-op when already suspended and
// may be called while a callback runs on another thread: it returns only
// after that callback has finished.
func (b *Bridge) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.renderer.currentState() {
	case StateClosed:
		return ErrClosed
	case StateSuspended:
		return nil
	}

	// waits for an in-flight callback; later ones write silence until the
	// platform stops calling
	b.renderer.setState(StateSuspended)
	if err := b.device.Stop(); err != nil {
		return fmt.Errorf("bridge: pause: %w", err)
	}
	return nil
}

// Close disconnects the callback from the engine, stops and closes the
// device, and only then releases the engine. Closing twice is a no-op.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev := b.renderer.currentState()
	if prev == StateClosed {
		return nil
	}

	b.renderer.setState(StateClosed)

	var errs []error
	if prev == StateRunning {
		if err := b.device.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop device: %w", err))
		}
	}
	if err := b.device.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close device: %w", err))
	}

	b.renderer.detach()

	close(b.done)
	b.wg.Wait()

	log.Printf("Audio device closed (%d callbacks, %d fallbacks)",
		b.renderer.callbacks.Load(), b.renderer.fallbacks.Load())

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("bridge: close: %w", err)
	}
	return nil
}

// reportRenderErrors logs render failures off the audio thread
func (b *Bridge) reportRenderErrors() {
	defer b.wg.Done()

	for {
		select {
		case err := <-b.renderer.errs:
			b.reportRenderError(err)
		case <-b.done:
			for {
				select {
				case err := <-b.renderer.errs:
					b.reportRenderError(err)
				default:
					return
				}
			}
		}
	}
}

func (b *Bridge) reportRenderError(err error) {
	log.Printf("Render failed, substituted silence: %v", err)
	if b.onRenderError != nil {
		b.onRenderError(err)
	}
}
