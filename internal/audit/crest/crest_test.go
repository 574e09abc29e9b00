package crest_test

import (
	"math"
	"testing"

	"github.com/farcloser/phonometer/internal/audit/crest"
	"github.com/farcloser/phonometer/internal/pcm"
	"github.com/farcloser/phonometer/internal/signal"
	"github.com/farcloser/phonometer/internal/types"
)

func analyze(t *testing.T, left, right []float32, rate int) *types.CrestResult {
	t.Helper()

	ch, err := pcm.Deinterleave(pcm.Interleave(left, right), 2)
	if err != nil {
		t.Fatalf("deinterleave: %v", err)
	}

	result, err := crest.Analyze(ch, rate, crest.DefaultOptions())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	return result
}

func TestFullScaleSine(t *testing.T) {
	t.Parallel()

	tone := signal.Sine(48000, 1000, 1, 48000)
	result := analyze(t, tone, tone, 48000)

	if result.WindowLength != 2400 || result.Hop != 600 {
		t.Fatalf("unexpected window %d/%d", result.WindowLength, result.Hop)
	}

	fullBlocks := (48000-result.WindowLength)/result.Hop + 1

	for i := range fullBlocks {
		db := crest.ToDb(result.Left[i].Crest)
		if math.Abs(db-crest.ToDb(math.Sqrt2)) > 0.5 {
			t.Fatalf("block %d: crest %.2f dB, expected about 3.01 dB", i, db)
		}
	}
}

func TestSilenceHasUnitCrest(t *testing.T) {
	t.Parallel()

	silent := make([]float32, 4800)
	result := analyze(t, silent, silent, 48000)

	for i, b := range result.Left {
		if b.Crest != 1 || b.RMS != 0 || b.Peak != 0 {
			t.Fatalf("block %d: %+v", i, b)
		}
	}

	if result.MeanDb != 0 {
		t.Fatalf("silent blocks should not count toward the mean, got %v", result.MeanDb)
	}
}

func TestPartialBlockUsesFullWindow(t *testing.T) {
	t.Parallel()

	// 100 samples of DC at 0.5 in a 2400 sample window.
	dc := make([]float32, 100)
	for i := range dc {
		dc[i] = 0.5
	}

	result := analyze(t, dc, dc, 48000)
	if len(result.Left) != 1 {
		t.Fatalf("expected a single block, got %d", len(result.Left))
	}

	wantRMS := math.Sqrt(100 * 0.25 / 2400)
	if math.Abs(result.Left[0].RMS-wantRMS) > 1e-9 {
		t.Fatalf("rms: got %v, want %v", result.Left[0].RMS, wantRMS)
	}
}

func TestTracker(t *testing.T) {
	t.Parallel()

	result := &types.CrestResult{
		Hop: 10,
		Left: []types.CrestBlock{
			{Crest: 2}, {Crest: 5}, {Crest: 3},
		},
		Right: []types.CrestBlock{
			{Crest: 1}, {Crest: 1.5}, {Crest: 4},
		},
	}

	tracker := crest.NewTracker(result)

	if tracker.Block() != -1 {
		t.Fatal("tracker should start before the first block")
	}

	steps := []struct {
		position         int
		ok               bool
		maxLeft, maxRght float64
	}{
		{0, true, 2, 1},
		{15, true, 5, 1.5},
		{29, true, 5, 4},
		{30, false, 5, 4},
		{-1, false, 5, 4},
	}

	for _, step := range steps {
		if ok := tracker.Advance(step.position); ok != step.ok {
			t.Fatalf("position %d: advance returned %v", step.position, ok)
		}

		if l, r := tracker.Max(); l != step.maxLeft || r != step.maxRght {
			t.Fatalf("position %d: max (%v, %v)", step.position, l, r)
		}
	}

	if l, r := tracker.Current(); l != 3 || r != 4 {
		t.Fatalf("out of range positions must not change the current block, got (%v, %v)", l, r)
	}

	tracker.Reset()

	if l, r := tracker.Max(); l != 0 || r != 0 {
		t.Fatal("reset should clear maxima")
	}

	tracker.Advance(0)

	if l, _ := tracker.Max(); l != 2 {
		t.Fatalf("maximum should restart after reset, got %v", l)
	}
}

func TestFactor(t *testing.T) {
	t.Parallel()

	if crest.Factor(0.5, 0) != 1 {
		t.Fatal("zero rms should give a crest of 1")
	}

	if crest.Factor(1, 0.5) != 2 {
		t.Fatal("unexpected crest")
	}
}
