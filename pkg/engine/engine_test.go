// ABOUTME: Tests for the mixing engine
// ABOUTME: Tests rendering, channel layouts, gain and concurrent mutation
package engine

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/gopxl/beep/v2"
)

// constant streams the same stereo frame forever
func constant(left, right float64) beep.Streamer {
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			samples[i] = [2]float64{left, right}
		}
		return len(samples), true
	})
}

// finite streams n frames of a constant and then ends
func finite(n int, value float64) beep.Streamer {
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if n <= 0 {
			return 0, false
		}
		k := len(samples)
		if k > n {
			k = n
		}
		for i := 0; i < k; i++ {
			samples[i] = [2]float64{value, value}
		}
		n -= k
		return k, true
	})
}

func almostEqual(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-6
}

func TestNewValidates(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate int
		channels   int
	}{
		{"zero rate", 0, 2},
		{"negative rate", -44100, 2},
		{"zero channels", 48000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.sampleRate, tt.channels); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewReportsConfiguration(t *testing.T) {
	eng, err := New(48000, 6)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	if eng.SampleRate() != 48000 {
		t.Errorf("expected rate 48000, got %d", eng.SampleRate())
	}
	if eng.Channels() != 6 {
		t.Errorf("expected 6 channels, got %d", eng.Channels())
	}
	if eng.Format().NumChannels != 6 {
		t.Errorf("expected beep format with 6 channels, got %d", eng.Format().NumChannels)
	}
}

func TestRenderSilenceWithoutSources(t *testing.T) {
	eng, _ := New(48000, 2)
	block := []float32{1, 1, 1, 1}

	if err := eng.Render(block); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	for i, s := range block {
		if s != 0 {
			t.Errorf("sample %d: expected silence, got %v", i, s)
		}
	}
}

func TestRenderChannelLayouts(t *testing.T) {
	tests := []struct {
		name     string
		channels int
		expected []float32
	}{
		{"mono", 1, []float32{0.125}},
		{"stereo", 2, []float32{0.5, -0.25}},
		{"quad", 4, []float32{0.5, -0.25, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, _ := New(48000, tt.channels)
			eng.AddSource(constant(0.5, -0.25))

			block := make([]float32, tt.channels*3)
			if err := eng.Render(block); err != nil {
				t.Fatalf("render failed: %v", err)
			}
			for frame := 0; frame < 3; frame++ {
				for ch, want := range tt.expected {
					got := block[frame*tt.channels+ch]
					if !almostEqual(got, want) {
						t.Errorf("frame %d ch %d: expected %v, got %v", frame, ch, want, got)
					}
				}
			}
		})
	}
}

func TestRenderMixesSources(t *testing.T) {
	eng, _ := New(44100, 2)
	eng.AddSource(constant(0.25, 0.25))
	eng.AddSource(constant(0.5, -0.5))

	block := make([]float32, 2)
	if err := eng.Render(block); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !almostEqual(block[0], 0.75) || !almostEqual(block[1], -0.25) {
		t.Errorf("expected [0.75 -0.25], got %v", block)
	}
}

func TestRenderLargerThanScratch(t *testing.T) {
	eng, _ := New(44100, 2, WithBlockFrames(4))
	eng.AddSource(constant(0.5, 0.5))

	block := make([]float32, 2*10)
	if err := eng.Render(block); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	for i, s := range block {
		if !almostEqual(s, 0.5) {
			t.Fatalf("sample %d: expected 0.5, got %v", i, s)
		}
	}
}

func TestRenderDrainedSourceLeavesSilence(t *testing.T) {
	eng, _ := New(44100, 1)
	eng.AddSource(finite(2, 0.5))

	block := make([]float32, 4)
	if err := eng.Render(block); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	want := []float32{0.5, 0.5, 0, 0}
	for i := range want {
		if !almostEqual(block[i], want[i]) {
			t.Errorf("sample %d: expected %v, got %v", i, want[i], block[i])
		}
	}

	_ = eng.Render(block)
	if eng.Len() != 0 {
		t.Errorf("expected the drained source to be forgotten, got %d", eng.Len())
	}
}

func TestRenderRejectsPartialFrames(t *testing.T) {
	eng, _ := New(44100, 2)
	err := eng.Render(make([]float32, 3))
	if !errors.Is(err, ErrBlockAlignment) {
		t.Errorf("expected ErrBlockAlignment, got %v", err)
	}
}

func TestMasterGain(t *testing.T) {
	eng, _ := New(44100, 2)
	eng.AddSource(constant(0.5, 0.5))

	if eng.MasterGain() != 1 {
		t.Errorf("expected unity gain, got %v", eng.MasterGain())
	}

	eng.SetMasterGain(0.5)
	block := make([]float32, 2)
	_ = eng.Render(block)
	if !almostEqual(block[0], 0.25) {
		t.Errorf("expected 0.25 after gain, got %v", block[0])
	}

	eng.SetMasterGain(-1)
	if eng.MasterGain() != 0 {
		t.Errorf("expected negative gain to clamp to 0, got %v", eng.MasterGain())
	}
}

func TestRemoveSource(t *testing.T) {
	eng, _ := New(44100, 2)
	keep := eng.AddSource(constant(0.25, 0.25))
	drop := eng.AddSource(constant(0.5, 0.5))

	if !eng.RemoveSource(drop) {
		t.Fatal("expected source to be removed")
	}
	if eng.RemoveSource(drop) {
		t.Error("expected second removal to report false")
	}
	if eng.Len() != 1 {
		t.Errorf("expected 1 source, got %d", eng.Len())
	}

	block := make([]float32, 2)
	_ = eng.Render(block)
	if !almostEqual(block[0], 0.25) {
		t.Errorf("expected only the kept source, got %v", block[0])
	}
	if keep == drop {
		t.Error("expected distinct source ids")
	}
}

func TestPauseSource(t *testing.T) {
	eng, _ := New(44100, 2)
	id := eng.AddSource(constant(0.5, 0.5))

	if err := eng.PauseSource(id, true); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	block := make([]float32, 2)
	_ = eng.Render(block)
	if block[0] != 0 {
		t.Errorf("expected silence while paused, got %v", block[0])
	}

	_ = eng.PauseSource(id, false)
	_ = eng.Render(block)
	if !almostEqual(block[0], 0.5) {
		t.Errorf("expected 0.5 after unpause, got %v", block[0])
	}

	if err := eng.PauseSource("missing", true); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("expected ErrUnknownSource, got %v", err)
	}
}

func TestClear(t *testing.T) {
	eng, _ := New(44100, 2)
	eng.AddSource(constant(0.5, 0.5))
	eng.AddSource(constant(0.5, 0.5))

	eng.Clear()
	if eng.Len() != 0 {
		t.Errorf("expected no sources, got %d", eng.Len())
	}
	block := []float32{1, 1}
	_ = eng.Render(block)
	if block[0] != 0 || block[1] != 0 {
		t.Errorf("expected silence after clear, got %v", block)
	}
}

func TestAddSourceFormatResamples(t *testing.T) {
	eng, _ := New(48000, 2)
	id := eng.AddSourceFormat(constant(0.5, 0.5), beep.Format{SampleRate: 24000, NumChannels: 2, Precision: 2})
	if id == "" {
		t.Fatal("expected source id")
	}

	block := make([]float32, 2*256)
	if err := eng.Render(block); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	// a constant signal stays constant once the resampler has warmed up
	if !almostEqual(block[len(block)-1], 0.5) {
		t.Errorf("expected 0.5 at end of block, got %v", block[len(block)-1])
	}
}

func TestConcurrentMutationAndRender(t *testing.T) {
	eng, _ := New(48000, 2)
	block := make([]float32, 2*512)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if err := eng.Render(block); err != nil {
				t.Errorf("render failed: %v", err)
				return
			}
		}
	}()

	ids := make(chan SourceID, 100)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			ids <- eng.AddSource(constant(0.01, 0.01))
			eng.SetMasterGain(0.9)
		}
		close(ids)
	}()
	wg.Wait()

	if eng.Len() != 100 {
		t.Errorf("expected 100 sources, got %d", eng.Len())
	}
	for id := range ids {
		eng.RemoveSource(id)
	}
	if eng.Len() != 0 {
		t.Errorf("expected 0 sources, got %d", eng.Len())
	}
}
