// ABOUTME: Audio type definitions
// ABOUTME: Defines device sample formats, PCM layouts and sample conversions
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// SampleFormat is the in-memory encoding of a single sample on the device side.
// All multi-byte formats are little-endian.
type SampleFormat int

const (
	FormatUnknown SampleFormat = iota
	FormatU8
	FormatS16
	FormatS24
	FormatS32
	FormatF32
)

// BytesPerSample returns the packed size of one sample, or 0 for FormatUnknown.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatU8:
		return 1
	case FormatS16:
		return 2
	case FormatS24:
		return 3
	case FormatS32, FormatF32:
		return 4
	default:
		return 0
	}
}

// IsFloat reports whether f belongs to the floating point family.
func (f SampleFormat) IsFloat() bool {
	return f == FormatF32
}

// Valid reports whether f is a concrete, supported format.
func (f SampleFormat) Valid() bool {
	return f.BytesPerSample() > 0
}

func (f SampleFormat) String() string {
	switch f {
	case FormatU8:
		return "u8"
	case FormatS16:
		return "s16"
	case FormatS24:
		return "s24"
	case FormatS32:
		return "s32"
	case FormatF32:
		return "f32"
	default:
		return "any"
	}
}

// ParseSampleFormat parses the names produced by SampleFormat.String.
// An empty string and "any" both yield FormatUnknown.
func ParseSampleFormat(s string) (SampleFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return FormatUnknown, nil
	case "u8":
		return FormatU8, nil
	case "s16", "int16":
		return FormatS16, nil
	case "s24", "int24":
		return FormatS24, nil
	case "s32", "int32":
		return FormatS32, nil
	case "f32", "float32":
		return FormatF32, nil
	}
	return FormatUnknown, fmt.Errorf("unknown sample format: %q", s)
}

// Format describes an interleaved PCM layout
type Format struct {
	SampleRate int
	Channels   int
	Sample     SampleFormat
}

// BytesPerFrame returns the size of one interleaved frame
func (f Format) BytesPerFrame() int {
	return f.Channels * f.Sample.BytesPerSample()
}

func clampUnit(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}

// Float32ToInt16 converts a float sample to int16, saturating outside [-1, 1]
func Float32ToInt16(s float32) int16 {
	return int16(clampUnit(s) * math.MaxInt16)
}

// Float32ToInt24 converts a float sample to the 24-bit range, saturating outside [-1, 1]
func Float32ToInt24(s float32) int32 {
	return int32(float64(clampUnit(s)) * Max24Bit)
}

// Float32ToInt32 converts a float sample to int32, saturating outside [-1, 1]
func Float32ToInt32(s float32) int32 {
	return int32(float64(clampUnit(s)) * math.MaxInt32)
}

// Float32ToUint8 converts a float sample to offset-binary 8-bit, saturating outside [-1, 1]
func Float32ToUint8(s float32) uint8 {
	return uint8(int(clampUnit(s)*127) + 128)
}

// Int16ToFloat32 converts an int16 sample to [-1, 1)
func Int16ToFloat32(s int16) float32 {
	return float32(s) / 32768
}

// Int24ToFloat32 converts a sign-extended 24-bit sample to [-1, 1)
func Int24ToFloat32(s int32) float32 {
	return float32(s) / 8388608
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	// Take lower 24 bits, pack little-endian
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	// Reconstruct 24-bit value and sign-extend to 32-bit
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}

// Encode packs float samples into dst using format f. It converts as many whole
// samples as fit in dst and returns the number of bytes written. Encode never
// allocates, so it is safe to call from a device callback.
func Encode(dst []byte, src []float32, f SampleFormat) int {
	size := f.BytesPerSample()
	if size == 0 {
		return 0
	}
	n := len(src)
	if limit := len(dst) / size; n > limit {
		n = limit
	}

	switch f {
	case FormatF32:
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(src[i]))
		}
	case FormatS16:
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint16(dst[i*2:], uint16(Float32ToInt16(src[i])))
		}
	case FormatS24:
		for i := 0; i < n; i++ {
			b := SampleTo24Bit(Float32ToInt24(src[i]))
			copy(dst[i*3:i*3+3], b[:])
		}
	case FormatS32:
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint32(dst[i*4:], uint32(Float32ToInt32(src[i])))
		}
	case FormatU8:
		for i := 0; i < n; i++ {
			dst[i] = Float32ToUint8(src[i])
		}
	}
	return n * size
}

// Silence fills buf with the zero level of format f. For the signed and float
// families that is all zero bytes; unsigned 8-bit silence is 0x80.
func Silence(buf []byte, f SampleFormat) {
	fill := byte(0)
	if f == FormatU8 {
		fill = 0x80
	}
	for i := range buf {
		buf[i] = fill
	}
}
