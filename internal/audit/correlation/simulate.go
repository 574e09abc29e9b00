package correlation

import (
	"math"

	"github.com/farcloser/phonometer/internal/pcm"
	"github.com/farcloser/phonometer/internal/types"
)

// Status is a coarse reading of a correlation value.
type Status int

const (
	StatusNeutral Status = iota
	StatusPositive
	StatusNegative
	StatusPhaseIssue
)

// PhaseIssueThreshold marks correlation that collapses badly in mono.
const PhaseIssueThreshold = -0.7

func (s Status) String() string {
	switch s {
	case StatusNeutral:
		return "neutral"
	case StatusPositive:
		return "positive"
	case StatusNegative:
		return "negative"
	case StatusPhaseIssue:
		return "phase issue"
	}

	return "unknown"
}

// StatusOf classifies a correlation value.
func StatusOf(value float64) Status {
	switch {
	case value < PhaseIssueThreshold:
		return StatusPhaseIssue
	case value < -0.5:
		return StatusNegative
	case value > 0.5:
		return StatusPositive
	default:
		return StatusNeutral
	}
}

// TickPosition returns the playback sample at which tick k (1-based) fires.
func TickPosition(k, sampleRate int, updateRateHz float64) int {
	return int(math.Round(float64(k) * float64(sampleRate) / updateRateHz))
}

// Window returns the bounds of the analysis window ending at position.
func Window(position, windowSize, length int) (start, end int) {
	end = min(max(position, 0), length)
	start = max(end-windowSize, 0)

	return start, end
}

// Simulate runs a meter across a whole clip at its tick rate, as if it were played back in real time.
func Simulate(ch *pcm.Channels, sampleRate int, config Config) *types.CorrelationResult {
	meter := NewMeter(config)
	config = meter.Config()

	left := pcm.Float64(ch.Left)
	right := pcm.Float64(ch.Right)

	result := &types.CorrelationResult{Min: 1, Max: -1}

	var sum float64

	for k := 1; ; k++ {
		position := TickPosition(k, sampleRate, config.UpdateRateHz)
		if position > len(left) {
			break
		}

		start, end := Window(position, config.WindowSize, len(left))
		if !meter.tick(left[start:end], right[start:end]) {
			continue
		}

		value := meter.Value()
		sum += value
		result.Ticks++
		result.Min = math.Min(result.Min, value)
		result.Max = math.Max(result.Max, value)
	}

	if result.Ticks == 0 {
		result.Min, result.Max = 0, 0
	} else {
		result.Mean = sum / float64(result.Ticks)
	}

	result.Value = meter.Value()
	result.Smoothed = meter.Smoothed()
	result.History = meter.History()

	return result
}
