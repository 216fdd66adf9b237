// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines sample formats, PCM layouts and float conversions
// Package audio provides fundamental audio types shared by the bridge, the
// engine and the output backends.
//
// This package defines:
//   - SampleFormat: the device-side sample encoding (u8, s16, s24, s32, f32)
//   - Format: an interleaved PCM layout (rate, channels, sample format)
//
// It also provides allocation-free conversions from the engine's float32
// samples to every device format:
//   - saturating float → 16/24/32-bit signed and 8-bit unsigned
//   - float pass-through for f32 devices
//   - 24-bit packing helpers
//
// Example:
//
//	n := audio.Encode(deviceBuf, scratch, audio.FormatS16)
package audio
