// ABOUTME: Audio sources for the mixing engine
// ABOUTME: Decoded clips, raw PCM and synthetic tones
// Package source produces beep streamers for pkg/engine.
//
// Files are decoded completely into memory up front, so adding a source to a
// running engine never makes the device callback wait on disk or a decoder.
//
// Example:
//
//	clip, err := source.Load("song.flac")
//	id := eng.AddSourceFormat(clip.Streamer(), clip.Format())
package source
