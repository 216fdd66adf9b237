// ABOUTME: Mixing engine package consumed by the device bridge
// ABOUTME: Documents the engine's locking contract and mutation API
// Package engine provides the shared mixing engine a device bridge renders.
//
// An Engine renders at a sample rate and channel count fixed at construction.
// Applications mutate it from any goroutine (add, remove or pause sources, set
// the master gain) while a device callback renders it; one mutex serialises
// both, so keep mutations short.
//
// Example:
//
//	eng, err := engine.New(48000, 2)
//	id := eng.AddSource(tone)
//	eng.SetMasterGain(0.5)
//	err = eng.Render(block)
//	eng.RemoveSource(id)
package engine
