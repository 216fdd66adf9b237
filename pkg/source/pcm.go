// ABOUTME: Raw interleaved PCM source
// ABOUTME: Decodes little-endian PCM in any supported sample format
package source

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gopxl/beep/v2"

	"github.com/Resonate-Protocol/soundbridge/pkg/audio"
)

// PCM decodes raw interleaved little-endian samples described by f
func PCM(data []byte, f audio.Format) (*Clip, error) {
	if !f.Sample.Valid() {
		return nil, fmt.Errorf("unsupported sample format: %s", f.Sample)
	}
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return nil, fmt.Errorf("invalid pcm format: %dHz, %d channels", f.SampleRate, f.Channels)
	}
	frameBytes := f.BytesPerFrame()
	if len(data)%frameBytes != 0 {
		return nil, fmt.Errorf("pcm data is %d bytes, not a multiple of the %d byte frame", len(data), frameBytes)
	}

	width := f.Sample.BytesPerSample()
	out := make([][2]float64, len(data)/frameBytes)
	frame := make([]float64, f.Channels)
	for i := range out {
		base := i * frameBytes
		for ch := range frame {
			frame[ch] = decodeSample(data[base+ch*width:], f.Sample)
		}
		out[i] = stereo(frame)
	}

	return newClip(beepFormat(f.SampleRate, f.Sample), &frames{data: out}), nil
}

func decodeSample(b []byte, f audio.SampleFormat) float64 {
	switch f {
	case audio.FormatU8:
		return float64(int(b[0])-128) / 128
	case audio.FormatS16:
		return float64(audio.Int16ToFloat32(int16(binary.LittleEndian.Uint16(b))))
	case audio.FormatS24:
		return float64(audio.Int24ToFloat32(audio.SampleFrom24Bit([3]byte{b[0], b[1], b[2]})))
	case audio.FormatS32:
		return float64(int32(binary.LittleEndian.Uint32(b))) / (1 << 31)
	case audio.FormatF32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	}
	return 0
}

// beepFormat picks the buffer precision that keeps the source resolution
func beepFormat(sampleRate int, f audio.SampleFormat) beep.Format {
	precision := 3
	switch f {
	case audio.FormatU8:
		precision = 1
	case audio.FormatS16:
		precision = 2
	}
	return beep.Format{
		SampleRate:  beep.SampleRate(sampleRate),
		NumChannels: 2,
		Precision:   precision,
	}
}
