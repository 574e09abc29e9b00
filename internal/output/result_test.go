package output_test

import (
	"encoding/json"
	"testing"

	"github.com/farcloser/phonometer"
	"github.com/farcloser/phonometer/internal/output"
	"github.com/farcloser/phonometer/internal/pcm"
	"github.com/farcloser/phonometer/internal/signal"
	"github.com/farcloser/phonometer/internal/types"
)

func TestResultToMap(t *testing.T) {
	t.Parallel()

	tone := signal.Sine(2*48000, 1000, 0.5, 48000)
	clip := types.Clip{Samples: pcm.Interleave(tone, tone), SampleRate: 48000, Channels: 2}

	result, err := phonometer.Analyze(clip, phonometer.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	meta := output.ResultToMap(result)

	for _, key := range []string{"summary", "issues", "loudness", "crest", "correlation", "stereo", "tempo", "spectrum"} {
		if _, ok := meta[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}

	if issues, ok := meta["issues"].([]any); !ok || len(issues) != len(result.Issues) {
		t.Errorf("expected %d issues, got %v", len(result.Issues), meta["issues"])
	}

	if _, err = json.Marshal(meta); err != nil {
		t.Fatalf("map must be JSON serializable: %v", err)
	}
}

func TestResultToMapOmitsMissingPasses(t *testing.T) {
	t.Parallel()

	meta := output.ResultToMap(&phonometer.Result{})

	for _, key := range []string{"loudness", "crest", "correlation", "stereo", "tempo", "spectrum"} {
		if _, ok := meta[key]; ok {
			t.Errorf("unexpected key %q", key)
		}
	}
}
