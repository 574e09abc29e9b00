// Package output provides shared result serialization for phonometer JSON output.
package output

import (
	"github.com/farcloser/phonometer"
	"github.com/farcloser/phonometer/internal/audit/correlation"
	"github.com/farcloser/phonometer/internal/audit/crest"
	"github.com/farcloser/phonometer/internal/types"
)

// ResultToMap converts an analysis result into the canonical map structure
// used for JSON and JSONL serialization.
func ResultToMap(result *phonometer.Result) map[string]any {
	meta := map[string]any{
		"summary": map[string]any{
			"issue_count":    result.IssueCount,
			"worst_severity": result.WorstSeverity.String(),
		},
		"sample_rate": result.SampleRate,
		"channels":    result.Channels,
		"frames":      result.Frames,
	}

	issues := make([]any, 0, len(result.Issues))
	for _, issue := range result.Issues {
		issues = append(issues, map[string]any{
			"check":      issue.Check.String(),
			"detected":   issue.Detected,
			"severity":   issue.Severity.String(),
			"summary":    issue.Summary,
			"confidence": issue.Confidence,
		})
	}

	meta["issues"] = issues

	// Raw analyzer results.
	if r := result.Loudness; r != nil {
		meta["loudness"] = LoudnessToMap(r)
	}

	if r := result.Crest; r != nil {
		meta["crest"] = map[string]any{
			"mean_db":       r.MeanDb,
			"max_left_db":   crest.ToDb(r.MaxLeft),
			"max_right_db":  crest.ToDb(r.MaxRight),
			"window":        r.WindowLength,
			"hop":           r.Hop,
			"blocks":        len(r.Left),
			"active_blocks": r.ActiveBlocks,
		}
	}

	if r := result.Correlation; r != nil {
		meta["correlation"] = map[string]any{
			"value":    r.Value,
			"smoothed": r.Smoothed,
			"mean":     r.Mean,
			"min":      r.Min,
			"max":      r.Max,
			"ticks":    r.Ticks,
			"status":   correlation.StatusOf(r.Mean).String(),
			"history":  r.History,
		}
	}

	if reader := result.Stereo; reader != nil {
		meta["stereo"] = map[string]any{
			"correlation":     reader.Correlation,
			"difference_db":   reader.DifferenceDb,
			"mono_sum_db":     reader.MonoSumDb,
			"stereo_rms_db":   reader.StereoRmsDb,
			"cancellation_db": reader.CancellationDb,
			"left_rms_db":     reader.LeftRmsDb,
			"right_rms_db":    reader.RightRmsDb,
			"imbalance_db":    reader.ImbalanceDb,
			"frames":          reader.Frames,
		}
	}

	if r := result.Tempo; r != nil {
		meta["tempo"] = TempoToMap(r)
	}

	if r := result.Spectrum; r != nil {
		meta["spectrum"] = SpectrumToMap(r)
	}

	return meta
}

// LoudnessToMap converts loudness results to a map. Per-block values are summarized, not listed.
func LoudnessToMap(result *types.LoudnessResult) map[string]any {
	return map[string]any{
		"integrated_lufs":           result.IntegratedLUFS,
		"momentary_max":             result.MomentaryMax,
		"short_term_max":            result.ShortTermMax,
		"loudness_range":            result.LoudnessRange,
		"momentary_blocks":          len(result.Momentary),
		"momentary_length":          result.MomentaryLength,
		"momentary_hop":             result.MomentaryHop,
		"short_term_blocks":         len(result.ShortTerm),
		"short_term_length":         result.ShortTermLength,
		"coefficients_approximated": result.CoefficientsApproximated,
		"frames":                    result.Frames,
	}
}

// TempoToMap converts tempo detection results to a map.
func TempoToMap(result *types.TempoResult) map[string]any {
	return map[string]any{
		"tempo":      result.Tempo,
		"confidence": result.Confidence,
		"detected":   result.Detected,
		"candidate":  result.Candidate,
		"beats":      len(result.Beats),
		"block_size": result.BlockSize,
	}
}

// SpectrumToMap converts the spectrum summary to a map, without the per-bin arrays.
func SpectrumToMap(result *types.SpectrumResult) map[string]any {
	return map[string]any{
		"fft_size":          result.FFTSize,
		"bin_hz":            result.BinHz,
		"windows":           result.Windows,
		"peak_left_hz":      result.PeakLeftHz,
		"peak_right_hz":     result.PeakRightHz,
		"centroid_left_hz":  result.CentroidLeftHz,
		"centroid_right_hz": result.CentroidRightHz,
	}
}

// LevelsToMap converts a level meter snapshot to a map.
func LevelsToMap(result types.LevelResult) map[string]any {
	return map[string]any{
		"rms_left_db":   result.RMSLeftDb,
		"rms_right_db":  result.RMSRightDb,
		"peak_left_db":  result.PeakLeftDb,
		"peak_right_db": result.PeakRightDb,
		"peak_db":       result.PeakDb,
	}
}
