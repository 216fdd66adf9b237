// ABOUTME: Platform audio backends hosting the bridge render callback
// ABOUTME: Common Output interface and the backend registry
package output

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Resonate-Protocol/soundbridge/pkg/bridge"
)

// ErrUnknownBackend is returned by New for names not in Backends()
var ErrUnknownBackend = errors.New("unknown audio backend")

// Output is a platform audio subsystem. Devices it opens are independent of
// the Output; Close releases the subsystem itself once they are closed.
type Output interface {
	bridge.Subsystem

	// Name identifies the backend
	Name() string

	// Close releases subsystem resources
	Close() error
}

var backends = map[string]func() Output{
	"malgo":     NewMalgo,
	"oto":       NewOto,
	"portaudio": NewPortAudio,
}

// DefaultBackend is used when no backend is named
const DefaultBackend = "malgo"

// Backends lists the registered backend names
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns the named backend. An empty name selects DefaultBackend.
func New(name string) (Output, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultBackend
	}
	ctor, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownBackend, name, strings.Join(Backends(), ", "))
	}
	return ctor(), nil
}

// clampChannels limits a requested channel count to what a device offers.
// Zero asks for stereo, or mono on a mono-only device.
func clampChannels(want, limit int) int {
	if want <= 0 {
		want = 2
	}
	if limit > 0 && want > limit {
		return limit
	}
	return want
}

// periodFrames is the buffer reported for a device that does not expose its
// period: the request, or 10ms at the granted rate.
func periodFrames(requested, sampleRate int) int {
	if requested > 0 {
		return requested
	}
	if frames := sampleRate / 100; frames > 0 {
		return frames
	}
	return 1
}
