// ABOUTME: Bridge configuration and coercion policy
// ABOUTME: Applies defaults and decides what to do when the platform coerces a request
package bridge

import (
	"fmt"
	"log"
	"strings"

	"github.com/Resonate-Protocol/soundbridge/pkg/audio"
)

// CoercionPolicy decides how Open reacts when the granted spec differs from
// a field the request specified
type CoercionPolicy int

const (
	// CoercionWarn logs every coerced field and continues
	CoercionWarn CoercionPolicy = iota
	// CoercionAccept continues silently
	CoercionAccept
	// CoercionReject closes the device and fails with ErrCoerced
	CoercionReject
)

func (p CoercionPolicy) String() string {
	switch p {
	case CoercionWarn:
		return "warn"
	case CoercionAccept:
		return "accept"
	case CoercionReject:
		return "reject"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParseCoercionPolicy parses "warn", "accept" or "reject"
func ParseCoercionPolicy(s string) (CoercionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "warn":
		return CoercionWarn, nil
	case "accept":
		return CoercionAccept, nil
	case "reject":
		return CoercionReject, nil
	}
	return CoercionWarn, fmt.Errorf("unknown coercion policy: %q", s)
}

// Config holds bridge configuration
type Config struct {
	// Request is the desired device configuration (nil: DefaultRequest())
	Request *DeviceRequest

	// Coercion decides what happens when the platform coerces the request (default: warn)
	Coercion CoercionPolicy

	// OnRenderError is called, off the audio thread, for render failures that
	// were replaced by silence
	OnRenderError func(error)

	// ErrorBacklog bounds how many render failures wait for reporting before
	// further ones are only counted (default: 8)
	ErrorBacklog int
}

// requested is the request as the caller wrote it; coercion is judged against it
func (c Config) requested() DeviceRequest {
	if c.Request == nil {
		return DefaultRequest()
	}
	return *c.Request
}


func (c Config) errorBacklog() int {
	if c.ErrorBacklog <= 0 {
		return 8
	}
	return c.ErrorBacklog
}

// coercions lists the fields the request specified that the platform changed
func coercions(req DeviceRequest, spec DeviceSpec) []string {
	var diffs []string
	if req.SampleRate != 0 && req.SampleRate != spec.SampleRate {
		diffs = append(diffs, fmt.Sprintf("sample rate %d -> %d", req.SampleRate, spec.SampleRate))
	}
	if req.Channels != 0 && req.Channels != spec.Channels {
		diffs = append(diffs, fmt.Sprintf("channels %d -> %d", req.Channels, spec.Channels))
	}
	if req.BufferFrames != 0 && req.BufferFrames != spec.BufferFrames {
		diffs = append(diffs, fmt.Sprintf("buffer %d -> %d frames", req.BufferFrames, spec.BufferFrames))
	}
	if req.Format != audio.FormatUnknown && req.Format != spec.Format {
		diffs = append(diffs, fmt.Sprintf("format %s -> %s", req.Format, spec.Format))
	}
	return diffs
}

// applyCoercion enforces policy and reports whether the open may proceed
func applyCoercion(policy CoercionPolicy, req DeviceRequest, spec DeviceSpec) error {
	diffs := coercions(req, spec)
	if len(diffs) == 0 {
		return nil
	}

	switch policy {
	case CoercionAccept:
		return nil
	case CoercionReject:
		return fmt.Errorf("requested %s, granted %s: %s", req, spec, strings.Join(diffs, ", "))
	default:
		for _, d := range diffs {
			log.Printf("Warning: audio device coerced %s", d)
		}
		return nil
	}
}
