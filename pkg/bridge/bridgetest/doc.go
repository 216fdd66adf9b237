// ABOUTME: Test helpers for code built on the device bridge
// ABOUTME: Provides a fake platform subsystem with scriptable capabilities
// Package bridgetest provides a fake platform audio subsystem.
//
// A Platform negotiates requests against declared capabilities, like a real
// device that coerces what it cannot support. Devices fire callbacks either
// by hand (Fire, Deliver) or from a clock goroutine when Period is set.
//
// Example:
//
//	p := bridgetest.NewPlatform()
//	eng, b, err := bridge.Open(p, nil)
//	defer b.Close()
//	b.Resume()
//	buf := p.Last().Fire()
package bridgetest
