package tempo_test

import (
	"testing"

	"github.com/farcloser/phonometer/internal/audit/tempo"
	"github.com/farcloser/phonometer/internal/signal"
)

// Block boundaries line up with a 120 BPM beat at 48 kHz when blocks are 1000 samples.
func clickOptions() tempo.Options {
	opts := tempo.DefaultOptions()
	opts.BlockSize = 1000

	return opts
}

func TestClickTrack120(t *testing.T) {
	t.Parallel()

	clicks := signal.Clicks(4*48000, 48000, 120, 200, 0.9)
	result := tempo.Detect(clicks, 48000, clickOptions())

	if !result.Detected {
		t.Fatalf("expected a detection, got %+v", result)
	}

	if result.Tempo < 119 || result.Tempo > 121 {
		t.Errorf("expected 120 BPM, got %d", result.Tempo)
	}

	if result.Confidence <= 0.8 {
		t.Errorf("expected confidence above 0.8, got %.3f", result.Confidence)
	}

	if len(result.Beats) != 8 {
		t.Errorf("expected 8 beats, got %v", result.Beats)
	}

	for i, b := range result.Beats {
		if b != i*24 {
			t.Errorf("beat %d at block %d, expected %d", i, b, i*24)
		}
	}
}

func TestClickTrack120DefaultBlocks(t *testing.T) {
	t.Parallel()

	// With 1024 sample blocks a 120 BPM beat is 21.53 blocks at 44.1 kHz and 23.44 at 48 kHz.
	for _, rate := range []int{44100, 48000} {
		clicks := signal.Clicks(8*rate, rate, 120, 200, 0.9)
		result := tempo.Detect(clicks, rate, tempo.DefaultOptions())

		if !result.Detected {
			t.Fatalf("%d Hz: expected a detection, got %+v", rate, result)
		}

		if result.Tempo != 120 {
			t.Errorf("%d Hz: expected 120 BPM, got %d (candidate %d)", rate, result.Tempo, result.Candidate)
		}

		if result.Confidence <= 0.8 {
			t.Errorf("%d Hz: expected confidence above 0.8, got %.3f", rate, result.Confidence)
		}
	}
}

func TestOtherTempiDefaultBlocks(t *testing.T) {
	t.Parallel()

	for _, rate := range []int{44100, 48000} {
		for _, bpm := range []int{90, 100, 128, 140} {
			clicks := signal.Clicks(10*rate, rate, float64(bpm), rate/100, 0.5)
			result := tempo.Detect(clicks, rate, tempo.DefaultOptions())

			if result.Tempo < bpm-1 || result.Tempo > bpm+1 {
				t.Errorf("%d Hz: expected %d BPM, got %d", rate, bpm, result.Tempo)
			}
		}
	}
}

func TestClickTrack100(t *testing.T) {
	t.Parallel()

	// 0.6 s per beat, 28.8 blocks: beats land 28 or 29 blocks apart.
	clicks := signal.Clicks(6*48000, 48000, 100, 200, 0.9)
	result := tempo.Detect(clicks, 48000, clickOptions())

	if !result.Detected {
		t.Fatalf("expected a detection, got %+v", result)
	}

	if result.Tempo < 98 || result.Tempo > 104 {
		t.Errorf("expected about 100 BPM, got %d", result.Tempo)
	}
}

func TestSilenceIsNoDetection(t *testing.T) {
	t.Parallel()

	result := tempo.Detect(make([]float32, 48000), 48000, tempo.DefaultOptions())

	if result.Detected || result.Tempo != tempo.NoTempo || result.Confidence != 0 {
		t.Fatalf("expected no detection, got %+v", result)
	}

	if len(result.Beats) != 0 {
		t.Errorf("expected no beats, got %v", result.Beats)
	}
}

func TestSingleClickIsNoDetection(t *testing.T) {
	t.Parallel()

	// One beat interval longer than the clip.
	clicks := signal.Clicks(48000, 48000, 30, 200, 0.9)
	result := tempo.Detect(clicks, 48000, clickOptions())

	if result.Detected || result.Tempo != tempo.NoTempo {
		t.Fatalf("expected no detection, got %+v", result)
	}

	if len(result.Beats) != 1 {
		t.Errorf("expected a single beat, got %v", result.Beats)
	}
}

func TestEmptyInput(t *testing.T) {
	t.Parallel()

	if result := tempo.Detect(nil, 48000, tempo.Options{}); result.Detected {
		t.Fatalf("unexpected detection: %+v", result)
	}

	if result := tempo.Detect(make([]float32, 10), 0, tempo.Options{}); result.Detected {
		t.Fatalf("unexpected detection at rate 0: %+v", result)
	}
}

func TestTempoClamped(t *testing.T) {
	t.Parallel()

	// 240 BPM is above the default range.
	clicks := signal.Clicks(4*48000, 48000, 240, 200, 0.9)
	opts := clickOptions()
	opts.PeakWindowSeconds = 0.1

	result := tempo.Detect(clicks, 48000, opts)
	if result.Candidate > opts.MaxTempo {
		t.Fatalf("candidate %d above max %d", result.Candidate, opts.MaxTempo)
	}

	if result.Detected && (result.Tempo < opts.MinTempo || result.Tempo > opts.MaxTempo) {
		t.Fatalf("tempo %d outside [%d, %d]", result.Tempo, opts.MinTempo, opts.MaxTempo)
	}
}

func TestBlockLevels(t *testing.T) {
	t.Parallel()

	seq := make([]float32, 2500)
	for i := range 1000 {
		seq[i] = 1
	}

	for i := 2000; i < 2500; i++ {
		seq[i] = 0.1
	}

	levels := tempo.BlockLevels(seq, 1000)
	if len(levels) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(levels))
	}

	if levels[0] < -0.01 || levels[0] > 0.01 {
		t.Errorf("full-scale block: %f", levels[0])
	}

	if levels[1] < -120.01 || levels[1] > -119.99 {
		t.Errorf("silent block should hit the 1e-6 floor, got %f", levels[1])
	}

	// Partial block RMS uses its own length.
	if levels[2] < -20.01 || levels[2] > -19.99 {
		t.Errorf("partial block: %f", levels[2])
	}
}
