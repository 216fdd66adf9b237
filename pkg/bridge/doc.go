// ABOUTME: Device bridge package connecting a pull-based engine to callback-driven output
// ABOUTME: Provides Open, the Bridge handle and the platform Subsystem contract
// Package bridge drives a shared mixing engine from a platform audio callback.
//
// Open negotiates a playback device through a Subsystem, builds the engine
// from the configuration the platform actually granted and wires the render
// callback to it. The device starts suspended so sources can be added before
// anything is audible.
//
// The callback locks the engine only while rendering into a preallocated
// scratch buffer; conversion to the device sample format happens after the
// lock is released. A failed render is replaced by silence and reported off
// the audio thread.
//
// Example:
//
//	sub := output.NewMalgo()
//	defer sub.Close()
//	eng, b, err := bridge.Open(sub, nil)
//	defer b.Close()
//
//	eng.AddSource(tone)
//	err = b.Resume()
package bridge
