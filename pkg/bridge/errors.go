// ABOUTME: Error taxonomy for opening and driving a bridge
// ABOUTME: Typed open errors with sentinel matching and lifecycle misuse errors
package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrSubsystem matches an OpenError raised because the platform refused the device
	ErrSubsystem = errors.New("audio subsystem refused device")

	// ErrInvalidRequest matches an OpenError for a malformed DeviceRequest
	ErrInvalidRequest = errors.New("invalid device request")

	// ErrCoerced matches an OpenError raised by CoercionReject
	ErrCoerced = errors.New("platform coerced device request")

	// ErrEngine matches an OpenError raised when the engine cannot be built for the granted spec
	ErrEngine = errors.New("engine construction failed")

	// ErrClosed is returned by lifecycle calls on a closed bridge
	ErrClosed = errors.New("bridge: closed")

	// ErrRenderPanic wraps a panic recovered while rendering a block
	ErrRenderPanic = errors.New("bridge: render panicked")
)

// OpenErrorKind classifies an OpenError
type OpenErrorKind int

const (
	KindSubsystem OpenErrorKind = iota + 1
	KindRequest
	KindCoercion
	KindEngine
)

func (k OpenErrorKind) String() string {
	switch k {
	case KindSubsystem:
		return "subsystem"
	case KindRequest:
		return "request"
	case KindCoercion:
		return "coercion"
	case KindEngine:
		return "engine"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k OpenErrorKind) sentinel() error {
	switch k {
	case KindSubsystem:
		return ErrSubsystem
	case KindRequest:
		return ErrInvalidRequest
	case KindCoercion:
		return ErrCoerced
	case KindEngine:
		return ErrEngine
	default:
		return nil
	}
}

// OpenError is returned by the Open functions. It is never retried internally;
// callers own any retry or backoff policy.
type OpenError struct {
	Kind OpenErrorKind
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("bridge: open failed (%s): %v", e.Kind, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind
func (e *OpenError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}
