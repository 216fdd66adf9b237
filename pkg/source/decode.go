// ABOUTME: File sources decoded fully into memory
// ABOUTME: MP3 via go-mp3, FLAC via mewkiz/flac, WAV via beep
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"

	"github.com/Resonate-Protocol/soundbridge/pkg/audio"
)

// ErrUnsupportedFile is returned by Load for unknown file extensions
var ErrUnsupportedFile = errors.New("unsupported audio file")

// Load decodes an audio file chosen by extension (.mp3, .flac, .wav)
func Load(path string) (*Clip, error) {
	var decode func(io.Reader) (*Clip, error)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		decode = MP3
	case ".flac":
		decode = FLAC
	case ".wav":
		decode = WAV
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFile, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	clip, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return clip, nil
}

// MP3 decodes a whole MP3 stream. go-mp3 always produces 16-bit stereo.
func MP3(r io.Reader) (*Clip, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	data, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("mp3 decode error: %w", err)
	}

	format := audio.Format{SampleRate: decoder.SampleRate(), Channels: 2, Sample: audio.FormatS16}
	data = data[:len(data)-len(data)%format.BytesPerFrame()]
	return PCM(data, format)
}

// FLAC decodes a whole FLAC stream
func FLAC(r io.Reader) (*Clip, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create flac decoder: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	if channels == 0 {
		return nil, fmt.Errorf("flac stream has no channels")
	}
	scale, err := flacScale(info.BitsPerSample)
	if err != nil {
		return nil, err
	}

	out := make([][2]float64, 0, info.NSamples)
	frame := make([]float64, channels)
	for {
		f, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("flac decode error: %w", err)
		}
		for i := 0; i < int(f.BlockSize); i++ {
			for ch := range frame {
				frame[ch] = float64(f.Subframes[ch].Samples[i]) / scale
			}
			out = append(out, stereo(frame))
		}
	}

	sample := audio.FormatS24
	switch {
	case info.BitsPerSample <= 8:
		sample = audio.FormatU8
	case info.BitsPerSample <= 16:
		sample = audio.FormatS16
	}
	return newClip(beepFormat(int(info.SampleRate), sample), &frames{data: out}), nil
}

// flacScale is the divisor mapping a signed sample of bps bits to [-1, 1]
func flacScale(bps uint8) (float64, error) {
	if bps == 0 || bps > 32 {
		return 0, fmt.Errorf("flac stream has unsupported bit depth %d", bps)
	}
	return float64(int64(1) << (bps - 1)), nil
}

// WAV decodes a whole WAV stream
func WAV(r io.Reader) (*Clip, error) {
	s, format, err := wav.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create wav decoder: %w", err)
	}
	defer s.Close()

	if format.Precision > 3 {
		format.Precision = 3
	}
	clip := newClip(format, s)
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("wav decode error: %w", err)
	}
	return clip, nil
}
