package spectrum_test

import (
	"errors"
	"math"
	"testing"

	"github.com/farcloser/phonometer/internal/audit/spectrum"
	"github.com/farcloser/phonometer/internal/pcm"
	"github.com/farcloser/phonometer/internal/signal"
)

func TestSinePeak(t *testing.T) {
	t.Parallel()

	tone := signal.Sine(48000, 1000, 1, 48000)

	result, err := spectrum.Analyze(tone, 48000, 4096, len(tone))
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(result.BinHz-48000.0/4096) > 1e-9 {
		t.Errorf("unexpected bin width %f", result.BinHz)
	}

	if math.Abs(result.PeakHz-1000) > 5 {
		t.Errorf("expected peak near 1000 Hz, got %.2f", result.PeakHz)
	}

	bin := int(math.Round(1000 / result.BinHz))
	if result.Magnitudes[bin] < 0.85 || result.Magnitudes[bin] > 1.01 {
		t.Errorf("expected full-scale magnitude at bin %d, got %f", bin, result.Magnitudes[bin])
	}
}

func TestShortPositionIsZeroPadded(t *testing.T) {
	t.Parallel()

	tone := signal.Sine(1000, 440, 0.5, 44100)

	result, err := spectrum.Analyze(tone, 44100, 2048, 500)
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Magnitudes) != 1025 {
		t.Fatalf("expected 1025 bins, got %d", len(result.Magnitudes))
	}
}

func TestInvalidArguments(t *testing.T) {
	t.Parallel()

	if _, err := spectrum.Analyze(nil, 48000, 1, 0); !errors.Is(err, spectrum.ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}

	if _, err := spectrum.Analyze(nil, 0, 1024, 0); !errors.Is(err, spectrum.ErrInvalidSampleRate) {
		t.Errorf("expected ErrInvalidSampleRate, got %v", err)
	}
}

func TestPeakHzEdges(t *testing.T) {
	t.Parallel()

	if got := spectrum.PeakHz(nil, 10); got != 0 {
		t.Errorf("empty: %f", got)
	}

	if got := spectrum.PeakHz([]float64{5, 1, 1}, 10); got != 0 {
		t.Errorf("first bin: %f", got)
	}

	// Symmetric neighbors leave the peak on its bin.
	if got := spectrum.PeakHz([]float64{0, 1, 2, 1, 0}, 10); got != 20 {
		t.Errorf("symmetric: %f", got)
	}

	// A louder right neighbor pulls the estimate up.
	if got := spectrum.PeakHz([]float64{0, 1, 2, 1.5, 0}, 10); got <= 20 || got >= 25 {
		t.Errorf("skewed: %f", got)
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	left := signal.Sine(3*48000, 1000, 0.5, 48000)
	right := signal.Sine(3*48000, 3000, 0.5, 48000)

	ch, err := pcm.Deinterleave(pcm.Interleave(left, right), 2)
	if err != nil {
		t.Fatal(err)
	}

	result, err := spectrum.Summarize(ch, 48000, spectrum.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	if result.Windows == 0 || result.Windows > spectrum.DefaultOptions().WindowsMax {
		t.Fatalf("unexpected window count %d", result.Windows)
	}

	if math.Abs(result.PeakLeftHz-1000) > 5 || math.Abs(result.PeakRightHz-3000) > 5 {
		t.Errorf("unexpected peaks %.1f / %.1f", result.PeakLeftHz, result.PeakRightHz)
	}

	if math.Abs(result.CentroidLeftHz-1000) > 20 || math.Abs(result.CentroidRightHz-3000) > 20 {
		t.Errorf("unexpected centroids %.1f / %.1f", result.CentroidLeftHz, result.CentroidRightHz)
	}

	if len(result.Left) != result.FFTSize/2+1 {
		t.Errorf("expected %d bins, got %d", result.FFTSize/2+1, len(result.Left))
	}
}

func TestSummarizeShortClip(t *testing.T) {
	t.Parallel()

	ch, err := pcm.Deinterleave(make([]float32, 200), 2)
	if err != nil {
		t.Fatal(err)
	}

	result, err := spectrum.Summarize(ch, 48000, spectrum.Options{})
	if err != nil {
		t.Fatal(err)
	}

	if result.Windows != 0 || len(result.Left) != 0 {
		t.Fatalf("expected an empty summary, got %d windows", result.Windows)
	}
}
