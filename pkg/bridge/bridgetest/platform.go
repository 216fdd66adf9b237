// ABOUTME: In-memory platform audio subsystem for tests
// ABOUTME: Negotiates against declared capabilities and fires callbacks on demand or on a clock
package bridgetest

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/soundbridge/pkg/audio"
	"github.com/Resonate-Protocol/soundbridge/pkg/bridge"
)

// DefaultBufferFrames is granted when the request leaves the buffer size open
const DefaultBufferFrames = 512

// Platform is a fake Subsystem. The first entry of each capability list is
// the platform default, granted whenever the request is open or unsupported.
type Platform struct {
	Rates    []int
	Channels []int
	Formats  []audio.SampleFormat

	// BufferFrames, when set, coerces the buffer size the request ended up with
	BufferFrames func(requested int) int

	// Err makes OpenPlayback fail
	Err error

	// Period, when positive, makes started devices fire callbacks from their
	// own goroutine, like a real audio thread
	Period time.Duration

	mu      sync.Mutex
	devices []*Device
}

// NewPlatform returns a platform that only supports 48000 Hz stereo float
func NewPlatform() *Platform {
	return &Platform{
		Rates:    []int{48000},
		Channels: []int{2},
		Formats:  []audio.SampleFormat{audio.FormatF32},
	}
}

// OpenPlayback implements bridge.Subsystem
func (p *Platform) OpenPlayback(req bridge.DeviceRequest, render bridge.RenderFunc) (bridge.Device, bridge.DeviceSpec, error) {
	if p.Err != nil {
		return nil, bridge.DeviceSpec{}, p.Err
	}
	if len(p.Rates) == 0 || len(p.Channels) == 0 || len(p.Formats) == 0 {
		return nil, bridge.DeviceSpec{}, errors.New("bridgetest: no device present")
	}

	spec := bridge.DeviceSpec{
		SampleRate:   pick(p.Rates, req.SampleRate),
		Channels:     pick(p.Channels, req.Channels),
		BufferFrames: req.BufferFrames,
		Format:       pick(p.Formats, req.Format),
	}
	if spec.BufferFrames == 0 {
		spec.BufferFrames = DefaultBufferFrames
	}
	if p.BufferFrames != nil {
		spec.BufferFrames = p.BufferFrames(spec.BufferFrames)
	}

	d := &Device{spec: spec, render: render, period: p.Period}

	p.mu.Lock()
	p.devices = append(p.devices, d)
	p.mu.Unlock()

	return d, spec, nil
}

// Devices returns every device opened so far
func (p *Platform) Devices() []*Device {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.devices)
}

// Last returns the most recently opened device, or nil
func (p *Platform) Last() *Device {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.devices) == 0 {
		return nil
	}
	return p.devices[len(p.devices)-1]
}

func pick[T comparable](supported []T, want T) T {
	var zero T
	if want != zero && slices.Contains(supported, want) {
		return want
	}
	return supported[0]
}

// Device is a fake playback device. Its callback lock makes Stop and Close
// wait for an in-flight callback, as real platforms do.
type Device struct {
	spec   bridge.DeviceSpec
	render bridge.RenderFunc
	period time.Duration

	callbackMu sync.Mutex

	mu      sync.Mutex
	running bool
	closed  bool
	stop    chan struct{}
	wg      sync.WaitGroup

	fired  atomic.Uint64
	starts atomic.Uint64
	stops  atomic.Uint64
}

// Spec returns the granted spec
func (d *Device) Spec() bridge.DeviceSpec {
	return d.spec
}

// Start implements bridge.Device
func (d *Device) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return errors.New("bridgetest: device closed")
	}
	if d.running {
		return nil
	}
	d.running = true
	d.starts.Add(1)

	if d.period > 0 {
		d.stop = make(chan struct{})
		d.wg.Add(1)
		go d.clock(d.stop)
	}
	return nil
}

// Stop implements bridge.Device
func (d *Device) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	d.stops.Add(1)
	if d.stop != nil {
		close(d.stop)
		d.stop = nil
	}
	d.mu.Unlock()

	d.wg.Wait()

	// wait for a callback fired by hand
	d.callbackMu.Lock()
	d.callbackMu.Unlock()
	return nil
}

// Close implements bridge.Device
func (d *Device) Close() error {
	if err := d.Stop(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New("bridgetest: device closed twice")
	}
	d.closed = true
	return nil
}

// Running reports whether the platform is currently invoking the callback
func (d *Device) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Closed reports whether Close has been called
func (d *Device) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Fired returns how many callbacks the device has invoked
func (d *Device) Fired() uint64 {
	return d.fired.Load()
}

// Starts and Stops count device transitions
func (d *Device) Starts() uint64 { return d.starts.Load() }
func (d *Device) Stops() uint64  { return d.stops.Load() }

// Fire invokes the callback once with a buffer of the negotiated size if the
// device is running. It returns the filled buffer, or nil when not running.
func (d *Device) Fire() []byte {
	if !d.Running() {
		return nil
	}
	return d.Deliver(d.spec.BufferBytes())
}

// Deliver invokes the callback with a buffer of n bytes regardless of device
// state, simulating a callback the platform had already queued. The buffer is
// prefilled with garbage so partial writes show up.
func (d *Device) Deliver(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = 0xA5
	}

	d.callbackMu.Lock()
	d.render(buf)
	d.callbackMu.Unlock()

	d.fired.Add(1)
	return buf
}

func (d *Device) clock(stop <-chan struct{}) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			d.Deliver(d.spec.BufferBytes())
		}
	}
}
