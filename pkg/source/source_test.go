// ABOUTME: Tests for in-memory sources
// ABOUTME: Covers PCM decoding, channel mapping, tones and file loading
package source

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"

	"github.com/Resonate-Protocol/soundbridge/pkg/audio"
)

func drain(t *testing.T, s beep.Streamer) [][2]float64 {
	t.Helper()
	var out [][2]float64
	buf := make([][2]float64, 64)
	for {
		n, ok := s.Stream(buf)
		out = append(out, buf[:n]...)
		if !ok {
			return out
		}
		if len(out) > 1<<20 {
			t.Fatal("streamer did not end")
		}
	}
}

func near(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestPCMStereoS16(t *testing.T) {
	// one frame: L = 0x4000 (0.5), R = 0xC000 (-0.5)
	data := []byte{0x00, 0x40, 0x00, 0xC0}

	clip, err := PCM(data, audio.Format{SampleRate: 48000, Channels: 2, Sample: audio.FormatS16})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if clip.Len() != 1 {
		t.Fatalf("expected 1 frame, got %d", clip.Len())
	}
	if clip.Format().SampleRate != 48000 {
		t.Errorf("expected 48000Hz, got %d", clip.Format().SampleRate)
	}

	got := drain(t, clip.Streamer())
	if len(got) != 1 || !near(got[0][0], 0.5, 1e-3) || !near(got[0][1], -0.5, 1e-3) {
		t.Errorf("expected [[0.5 -0.5]], got %v", got)
	}
}

func TestPCMMonoIsDuplicated(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data, math.Float32bits(0.25))
	binary.LittleEndian.PutUint32(data[4:], math.Float32bits(-0.75))

	clip, err := PCM(data, audio.Format{SampleRate: 44100, Channels: 1, Sample: audio.FormatF32})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	got := drain(t, clip.Streamer())
	want := [][2]float64{{0.25, 0.25}, {-0.75, -0.75}}
	if len(got) != len(want) {
		t.Fatalf("expected %d frames, got %d", len(want), len(got))
	}
	for i := range want {
		if !near(got[i][0], want[i][0], 1e-5) || !near(got[i][1], want[i][1], 1e-5) {
			t.Errorf("frame %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestPCMDropsExtraChannels(t *testing.T) {
	// 4 channels of s24: 0.5, -0.5, 1 (clipped), 0
	var data []byte
	for _, v := range []int32{0x400000, -0x400000, 0x7FFFFF, 0} {
		b := audio.SampleTo24Bit(v)
		data = append(data, b[:]...)
	}

	clip, err := PCM(data, audio.Format{SampleRate: 48000, Channels: 4, Sample: audio.FormatS24})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	got := drain(t, clip.Streamer())
	if len(got) != 1 || !near(got[0][0], 0.5, 1e-5) || !near(got[0][1], -0.5, 1e-5) {
		t.Errorf("expected [[0.5 -0.5]], got %v", got)
	}
}

func TestPCMErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		format audio.Format
	}{
		{"partial frame", []byte{0, 0, 0}, audio.Format{SampleRate: 48000, Channels: 2, Sample: audio.FormatS16}},
		{"unknown format", []byte{0, 0}, audio.Format{SampleRate: 48000, Channels: 1}},
		{"no rate", []byte{0, 0}, audio.Format{Channels: 1, Sample: audio.FormatS16}},
		{"no channels", []byte{0, 0}, audio.Format{SampleRate: 48000, Sample: audio.FormatS16}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := PCM(tt.data, tt.format); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestDecodeSample(t *testing.T) {
	s32 := make([]byte, 4)
	binary.LittleEndian.PutUint32(s32, uint32(1<<30))

	tests := []struct {
		name   string
		data   []byte
		format audio.SampleFormat
		want   float64
	}{
		{"u8 center", []byte{0x80}, audio.FormatU8, 0},
		{"u8 min", []byte{0x00}, audio.FormatU8, -1},
		{"s16 min", []byte{0x00, 0x80}, audio.FormatS16, -1},
		{"s32 half", s32, audio.FormatS32, 0.5},
	}

	for _, tt := range tests {
		if got := decodeSample(tt.data, tt.format); !near(got, tt.want, 1e-9) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestClipStreamersAreIndependent(t *testing.T) {
	data := make([]byte, 4800*4)
	clip, err := PCM(data, audio.Format{SampleRate: 48000, Channels: 2, Sample: audio.FormatS16})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if clip.Duration() != 100*time.Millisecond {
		t.Errorf("expected 100ms, got %v", clip.Duration())
	}

	a, b := clip.Streamer(), clip.Streamer()
	if n := len(drain(t, a)); n != 4800 {
		t.Errorf("first streamer: expected 4800 frames, got %d", n)
	}
	if n := len(drain(t, b)); n != 4800 {
		t.Errorf("second streamer: expected 4800 frames, got %d", n)
	}
}

func TestTone(t *testing.T) {
	tone, err := Tone(48000, 440, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("tone failed: %v", err)
	}
	got := drain(t, tone)
	if len(got) != 480 {
		t.Fatalf("expected 480 frames, got %d", len(got))
	}

	var peak float64
	for _, f := range got {
		peak = math.Max(peak, math.Abs(f[0]))
	}
	if peak < 0.9 || peak > 1.0 {
		t.Errorf("expected a full scale sine, peak %v", peak)
	}
}

func TestToneAboveNyquist(t *testing.T) {
	if _, err := Tone(8000, 6000, 0); err == nil {
		t.Error("expected an error for a tone above half the sample rate")
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	_, err := Load("notes.txt")
	if !errors.Is(err, ErrUnsupportedFile) {
		t.Errorf("expected ErrUnsupportedFile, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.flac"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected a not-exist error, got %v", err)
	}
}

func TestLoadWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "click.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}

	format := beep.Format{SampleRate: 22050, NumChannels: 2, Precision: 2}
	click := &frames{data: make([][2]float64, 100)}
	click.data[0] = [2]float64{0.5, 0.5}
	if err := wav.Encode(f, click, format); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	f.Close()

	clip, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if clip.Len() != 100 {
		t.Errorf("expected 100 frames, got %d", clip.Len())
	}
	if clip.Format().SampleRate != 22050 {
		t.Errorf("expected 22050Hz, got %d", clip.Format().SampleRate)
	}

	got := drain(t, clip.Streamer())
	if !near(got[0][0], 0.5, 1e-3) {
		t.Errorf("expected the click in the first frame, got %v", got[0])
	}
}

func TestFLACRejectsGarbage(t *testing.T) {
	if _, err := FLAC(strings.NewReader("definitely not a flac stream")); err == nil {
		t.Error("expected an error")
	}
}

func TestFLACScale(t *testing.T) {
	tests := []struct {
		bps     uint8
		want    float64
		wantErr bool
	}{
		{0, 0, true},
		{1, 1, false},
		{8, 128, false},
		{16, 32768, false},
		{24, 1 << 23, false},
		{32, 1 << 31, false},
		{33, 0, true},
		{255, 0, true},
	}
	for _, tt := range tests {
		got, err := flacScale(tt.bps)
		if (err != nil) != tt.wantErr {
			t.Errorf("flacScale(%d) error = %v, wantErr %v", tt.bps, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("flacScale(%d) = %v, want %v", tt.bps, got, tt.want)
		}
	}
}
