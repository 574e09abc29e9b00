//nolint:wrapcheck
package main

import (
	"fmt"
	"math"
	"os"

	"github.com/farcloser/primordium/format"

	"github.com/farcloser/phonometer"
	"github.com/farcloser/phonometer/internal/audit/correlation"
	"github.com/farcloser/phonometer/internal/audit/crest"
	"github.com/farcloser/phonometer/internal/output"
)

const docsBaseURL = "https://github.com/farcloser/phonometer/blob/main/docs/checks"

// issueInfo maps checks to their PHM ID and category.
type issueInfo struct {
	phmID    string
	category string
}

//nolint:gochecknoglobals // configuration data, effectively const
var issueInfoMap = map[phonometer.Check]issueInfo{
	// Loudness & dynamics
	phonometer.CheckLoudness: {phmID: "PHM-001", category: "1. Loudness & dynamics"},
	phonometer.CheckDynamics: {phmID: "PHM-002", category: "1. Loudness & dynamics"},

	// Stereo field
	phonometer.CheckPhaseIssues:      {phmID: "PHM-003", category: "2. Stereo field"},
	phonometer.CheckInvertedPhase:    {phmID: "PHM-004", category: "2. Stereo field"},
	phonometer.CheckFakeStereo:       {phmID: "PHM-005", category: "2. Stereo field"},
	phonometer.CheckChannelImbalance: {phmID: "PHM-006", category: "2. Stereo field"},

	// Musical content
	phonometer.CheckTempo:    {phmID: "PHM-007", category: "3. Content"},
	phonometer.CheckSpectrum: {phmID: "PHM-008", category: "3. Content"},
}

// categoryOrder defines the display order for categories (numbered for sorting).
//
//nolint:gochecknoglobals // configuration data, effectively const
var categoryOrder = []string{
	"1. Loudness & dynamics",
	"2. Stereo field",
	"3. Content",
}

func outputResult(filePath string, result *phonometer.Result, formatName string, debug bool) error {
	formatter, err := format.GetFormatter(formatName)
	if err != nil {
		return err
	}

	var meta map[string]any
	if debug {
		meta = output.ResultToMap(result)
	} else {
		meta = buildFriendlyOutput(result)
	}

	data := &format.Data{
		Object: filePath,
		Meta:   meta,
	}

	return formatter.PrintAll([]*format.Data{data}, os.Stdout)
}

// buildFriendlyOutput creates a user-friendly summary of the analysis results.
func buildFriendlyOutput(result *phonometer.Result) map[string]any {
	meta := map[string]any{
		"summary": fmt.Sprintf("%d issues found (worst: %s)", result.IssueCount, result.WorstSeverity),
	}

	categoryIssues := make(map[string][]any)

	for _, issue := range result.Issues {
		info, ok := issueInfoMap[issue.Check]
		if !ok {
			continue
		}

		marker := "  "
		if issue.Detected {
			marker = "!!"
		}

		docURL := fmt.Sprintf("%s/%s.md", docsBaseURL, info.phmID)
		line := fmt.Sprintf("%s [%s] %s: %s (%.0f%% confidence) - %s",
			marker, issue.Severity, issue.Check, issue.Summary, issue.Confidence*100, docURL)

		categoryIssues[info.category] = append(categoryIssues[info.category], line)
	}

	if len(categoryIssues) > 0 {
		issues := make(map[string]any)

		for _, cat := range categoryOrder {
			if catIssues, ok := categoryIssues[cat]; ok {
				issues[cat] = catIssues
			}
		}

		meta["issues"] = issues
	}

	props := buildProperties(result)
	if len(props) > 0 {
		meta["properties"] = props
	}

	return meta
}

func buildProperties(result *phonometer.Result) map[string]any {
	props := make(map[string]any)

	if r := result.Loudness; r != nil {
		props["loudness"] = fmt.Sprintf("%.1f LUFS (range: %.1f LU, momentary max: %.1f)",
			r.IntegratedLUFS, r.LoudnessRange, r.MomentaryMax)
	}

	if r := result.Crest; r != nil {
		props["crest_factor"] = fmt.Sprintf("%.1f dB mean (max: %.1f / %.1f dB)",
			r.MeanDb, crest.ToDb(r.MaxLeft), crest.ToDb(r.MaxRight))
	}

	if r := result.Correlation; r != nil && r.Ticks > 0 {
		props["correlation"] = fmt.Sprintf("%+.2f mean (%s, range %+.2f to %+.2f)",
			r.Mean, correlation.StatusOf(r.Mean), r.Min, r.Max)
	}

	if r := result.Stereo; r != nil {
		props["stereo_width"] = fmt.Sprintf("%s (correlation: %.2f)", stereoWidthLabel(r.Correlation), r.Correlation)
		if math.Abs(r.ImbalanceDb) > 0.5 {
			props["channel_imbalance"] = fmt.Sprintf(
				"%.1f dB (%s louder)",
				math.Abs(r.ImbalanceDb),
				imbalanceSide(r.ImbalanceDb),
			)
		}
	}

	if r := result.Tempo; r != nil {
		if r.Detected {
			props["tempo"] = fmt.Sprintf("%d BPM (%.0f%% confidence)", r.Tempo, r.Confidence*100)
		} else {
			props["tempo"] = "not detected"
		}
	}

	if r := result.Spectrum; r != nil {
		props["spectral_peak"] = fmt.Sprintf("%.0f / %.0f Hz", r.PeakLeftHz, r.PeakRightHz)
		props["spectral_centroid"] = fmt.Sprintf("%.0f / %.0f Hz", r.CentroidLeftHz, r.CentroidRightHz)
	}

	return props
}

func stereoWidthLabel(correlation float64) string {
	switch {
	case correlation > 0.95:
		return "Mono/Narrow"
	case correlation > 0.75:
		return "Narrow"
	case correlation > 0.5:
		return "Normal"
	case correlation > 0.2:
		return "Wide"
	default:
		return "Very Wide"
	}
}

func imbalanceSide(imbalanceDb float64) string {
	if imbalanceDb > 0 {
		return "left"
	}

	return "right"
}
