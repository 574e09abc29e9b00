package correlation_test

import (
	"math"
	"testing"

	"github.com/farcloser/phonometer/internal/audit/correlation"
	"github.com/farcloser/phonometer/internal/pcm"
	"github.com/farcloser/phonometer/internal/signal"
)

func channels(t *testing.T, left, right []float32) *pcm.Channels {
	t.Helper()

	ch, err := pcm.Deinterleave(pcm.Interleave(left, right), 2)
	if err != nil {
		t.Fatalf("deinterleave: %v", err)
	}

	return ch
}

func TestAlpha(t *testing.T) {
	t.Parallel()

	dt := 1.0 / 30
	rc := 1 / (2 * math.Pi * 10)

	if got := correlation.Alpha(10, dt); math.Abs(got-dt/(rc+dt)) > 1e-12 {
		t.Fatalf("got %v", got)
	}
}

func TestIdenticalChannelsConvergeToOne(t *testing.T) {
	t.Parallel()

	left, _ := signal.NewNoise(1).Pink(48000*3, 0.5)
	result := correlation.Simulate(channels(t, left, left), 48000, correlation.DefaultConfig())

	if result.Value < 0.99 || result.Value > 1 {
		t.Fatalf("expected correlation near +1, got %v", result.Value)
	}

	if result.Smoothed < 0.95 {
		t.Fatalf("display value should follow, got %v", result.Smoothed)
	}

	if result.Ticks != 90 {
		t.Fatalf("expected 90 ticks over 3 s at 30 Hz, got %d", result.Ticks)
	}
}

func TestInvertedChannelsConvergeToMinusOne(t *testing.T) {
	t.Parallel()

	left, _ := signal.NewNoise(2).Pink(48000*3, 0.5)

	right := make([]float32, len(left))
	for i, v := range left {
		right[i] = -v
	}

	result := correlation.Simulate(channels(t, left, right), 48000, correlation.DefaultConfig())

	if result.Value > -0.99 || result.Value < -1 {
		t.Fatalf("expected correlation near -1, got %v", result.Value)
	}

	if correlation.StatusOf(result.Value) != correlation.StatusPhaseIssue {
		t.Fatalf("expected a phase issue, got %s", correlation.StatusOf(result.Value))
	}
}

func TestIndependentNoiseIsUncorrelated(t *testing.T) {
	t.Parallel()

	left, right := signal.NewNoise(3).White(48000*3, 0.5)
	result := correlation.Simulate(channels(t, left, right), 48000, correlation.DefaultConfig())

	if math.Abs(result.Value) > 0.2 {
		t.Fatalf("expected correlation near 0, got %v", result.Value)
	}
}

func TestSilenceHoldsValues(t *testing.T) {
	t.Parallel()

	meter := correlation.NewMeter(correlation.DefaultConfig())
	tone := signal.Sine(1024, 440, 0.5, 48000)

	for range 30 {
		meter.Tick(tone, tone)
	}

	before := meter.Value()
	history := len(meter.History())

	silent := make([]float32, 1024)

	// The energy filters decay over a few ticks before the floor is crossed.
	for range 60 {
		meter.Tick(silent, silent)
	}

	if meter.Tick(silent, silent) {
		t.Fatal("silent tick should not publish")
	}

	if meter.Value() < before-1e-9 {
		t.Fatalf("value should hold at %v, got %v", before, meter.Value())
	}

	if len(meter.History()) > history+60 {
		t.Fatal("history should stop growing once ticks are suppressed")
	}
}

func TestNeverPublishesOnSilence(t *testing.T) {
	t.Parallel()

	silent := make([]float32, 48000)
	result := correlation.Simulate(channels(t, silent, silent), 48000, correlation.DefaultConfig())

	if result.Ticks != 0 || result.Value != 0 || len(result.History) != 0 {
		t.Fatalf("silence should not publish anything: %+v", result)
	}
}

func TestHistoryIsBounded(t *testing.T) {
	t.Parallel()

	meter := correlation.NewMeter(correlation.DefaultConfig())
	tone := signal.Sine(1024, 440, 0.5, 48000)

	for range 250 {
		meter.Tick(tone, tone)
	}

	history := meter.History()
	if len(history) != 100 {
		t.Fatalf("expected 100 history entries, got %d", len(history))
	}

	for _, v := range history {
		if v < -1 || v > 1 {
			t.Fatalf("published value out of range: %v", v)
		}
	}

	if history[len(history)-1] != meter.Value() {
		t.Fatal("newest history entry should be the published value")
	}

	meter.Reset()

	if len(meter.History()) != 0 || meter.Value() != 0 || meter.Published() {
		t.Fatal("reset should clear state")
	}
}

func TestWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		position, size, length int
		start, end             int
	}{
		{1600, 1024, 48000, 576, 1600},
		{500, 1024, 48000, 0, 500},
		{50000, 1024, 48000, 46976, 48000},
	}

	for _, tt := range tests {
		start, end := correlation.Window(tt.position, tt.size, tt.length)
		if start != tt.start || end != tt.end {
			t.Fatalf("Window(%d): got [%d, %d)", tt.position, start, end)
		}
	}
}

func TestStatusOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value float64
		want  correlation.Status
	}{
		{1, correlation.StatusPositive},
		{0.2, correlation.StatusNeutral},
		{-0.6, correlation.StatusNegative},
		{-0.9, correlation.StatusPhaseIssue},
	}

	for _, tt := range tests {
		if got := correlation.StatusOf(tt.value); got != tt.want {
			t.Fatalf("StatusOf(%v): got %s, want %s", tt.value, got, tt.want)
		}
	}
}
