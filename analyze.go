//nolint:wrapcheck
package phonometer

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/farcloser/phonometer/internal/audit/correlation"
	"github.com/farcloser/phonometer/internal/audit/crest"
	"github.com/farcloser/phonometer/internal/audit/level"
	"github.com/farcloser/phonometer/internal/audit/loudness"
	"github.com/farcloser/phonometer/internal/audit/spectrum"
	"github.com/farcloser/phonometer/internal/audit/stereo"
	"github.com/farcloser/phonometer/internal/audit/tempo"
	"github.com/farcloser/phonometer/internal/pcm"
	"github.com/farcloser/phonometer/internal/types"
)

/*
Usage:

clip := types.Clip{Samples: interleaved, SampleRate: 48000, Channels: 2}
result, err := phonometer.Analyze(clip, phonometer.DefaultOptions())
fmt.Printf("%.1f LUFS\n", result.Loudness.IntegratedLUFS)

// Stereo defects only
opts := phonometer.DefaultOptions()
opts.Checks = phonometer.ChecksDefects
result, err := phonometer.Analyze(clip, opts)

// Custom bands
opts := phonometer.DefaultOptions()
opts.PhaseIssues = phonometer.Bands{Mild: 0.2, Moderate: -0.3, Severe: -0.7}
result, err := phonometer.Analyze(clip, opts)

// Iterate issues
for _, issue := range result.Issues {
    if issue.Detected {
        fmt.Printf("[%s] %s\n", issue.Severity, issue.Summary)
    }
}

// Follow playback
engine := phonometer.NewEngine(phonometer.DefaultOptions())
if err := engine.Load(ctx, clip); err != nil {
    return err
}
engine.Start(ctx, phonometer.NewClock(clip.SampleRate))
defer engine.Close()
*/

// ErrInvalidSource is returned for clips that cannot be analyzed. Nothing is computed for them.
var ErrInvalidSource = errors.New("invalid source")

// Options configures the analysis.
type Options struct {
	Checks Check // which checks to run (default: ChecksAll)

	// Severity bands per check (zero value = use defaults).
	Dynamics         Bands // mean crest factor, dB
	PhaseIssues      Bands // mean meter correlation
	ChannelImbalance Bands // dB

	// Analyzer settings (zero value = use defaults).
	Loudness    loudness.Options
	Crest       crest.Options
	Correlation correlation.Config
	Tempo       tempo.Options
	Spectrum    spectrum.Options
	Level       level.Config
}

func DefaultOptions() Options {
	return Options{
		Checks:           ChecksAll,
		Dynamics:         Bands{Mild: 8, Moderate: 6, Severe: 4},
		PhaseIssues:      Bands{Mild: 0, Moderate: -0.5, Severe: correlation.PhaseIssueThreshold},
		ChannelImbalance: Bands{Mild: 1, Moderate: 2, Severe: 3},

		Loudness:    loudness.DefaultOptions(),
		Crest:       crest.DefaultOptions(),
		Correlation: correlation.DefaultConfig(),
		Tempo:       tempo.DefaultOptions(),
		Spectrum:    spectrum.DefaultOptions(),
		Level:       level.DefaultConfig(),
	}
}

// Result contains all analysis results.
type Result struct {
	Issues []Issue

	// Quick access booleans
	HasPhaseIssues      bool
	HasInvertedPhase    bool
	HasFakeStereo       bool
	HasChannelImbalance bool
	IsOverCompressed    bool
	TempoDetected       bool

	// Summary
	IssueCount    int
	WorstSeverity Severity

	SampleRate int
	Channels   int
	Frames     uint64

	// Raw analysis results (nil if not requested)
	Loudness    *types.LoudnessResult
	Crest       *types.CrestResult
	Correlation *types.CorrelationResult
	Stereo      *types.StereoResult
	Tempo       *types.TempoResult
	Spectrum    *types.SpectrumResult
}

// passes holds the offline results shared by Analyze and Engine.Load.
type passes struct {
	loudness    *types.LoudnessResult
	crest       *types.CrestResult
	correlation *types.CorrelationResult
	stereo      *types.StereoResult
	tempo       *types.TempoResult
	spectrum    *types.SpectrumResult
}

// split validates a clip and deinterleaves it.
func split(clip types.Clip) (*pcm.Channels, error) {
	if len(clip.Samples) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrInvalidSource)
	}

	if clip.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidSource, clip.SampleRate)
	}

	ch, err := pcm.Deinterleave(clip.Samples, clip.Channels)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSource, err)
	}

	return ch, nil
}

// run computes the requested offline passes concurrently. Each pass reads the channels and owns its result.
func run(ctx context.Context, ch *pcm.Channels, sampleRate int, checks Check, opts Options) (*passes, error) {
	out := &passes{}
	g, ctx := errgroup.WithContext(ctx)

	if checks&CheckLoudness != 0 {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			var err error

			out.loudness, err = loudness.Analyze(ch, sampleRate, opts.Loudness)

			return err
		})
	}

	if checks&CheckDynamics != 0 {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			var err error

			out.crest, err = crest.Analyze(ch, sampleRate, opts.Crest)

			return err
		})
	}

	if checks&CheckPhaseIssues != 0 {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			out.correlation = correlation.Simulate(ch, sampleRate, opts.Correlation)

			return nil
		})
	}

	if checks&(CheckInvertedPhase|CheckFakeStereo|CheckChannelImbalance) != 0 {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			out.stereo = stereo.Analyze(ch)

			return nil
		})
	}

	if checks&CheckTempo != 0 {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			out.tempo = tempo.Detect(ch.Right, sampleRate, opts.Tempo)

			return nil
		})
	}

	if checks&CheckSpectrum != 0 {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			var err error

			out.spectrum, err = spectrum.Summarize(ch, sampleRate, opts.Spectrum)

			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// Analyze performs a one-shot analysis of a whole clip.
func Analyze(clip types.Clip, opts Options) (*Result, error) {
	return AnalyzeContext(context.Background(), clip, opts)
}

// AnalyzeContext is Analyze with cancellation between passes.
func AnalyzeContext(ctx context.Context, clip types.Clip, opts Options) (*Result, error) {
	if opts.Checks == 0 {
		opts = DefaultOptions()
	}

	applyDefaults(&opts)

	ch, err := split(clip)
	if err != nil {
		return nil, err
	}

	out, err := run(ctx, ch, clip.SampleRate, opts.Checks, opts)
	if err != nil {
		return nil, err
	}

	result := &Result{
		SampleRate:  clip.SampleRate,
		Channels:    clip.Channels,
		Frames:      uint64(ch.Len()), //nolint:gosec // lengths are non-negative
		Loudness:    out.loudness,
		Crest:       out.crest,
		Correlation: out.correlation,
		Stereo:      out.stereo,
		Tempo:       out.tempo,
		Spectrum:    out.spectrum,
	}

	// Mono sources are duplicated into both channels, so stereo checks say nothing about them.
	if clip.Channels == 1 {
		result.Correlation = nil
		result.Stereo = nil
	}

	interpretResults(result, opts)

	return result, nil
}

func applyDefaults(opts *Options) {
	defaults := DefaultOptions()
	zeroBands := Bands{}

	if opts.Dynamics == zeroBands {
		opts.Dynamics = defaults.Dynamics
	}

	if opts.PhaseIssues == zeroBands {
		opts.PhaseIssues = defaults.PhaseIssues
	}

	if opts.ChannelImbalance == zeroBands {
		opts.ChannelImbalance = defaults.ChannelImbalance
	}

	// Overlap 0 is meaningful, so loudness options only default as a whole.
	if opts.Loudness == (loudness.Options{}) {
		opts.Loudness = defaults.Loudness
	}

	if opts.Crest == (crest.Options{}) {
		opts.Crest = defaults.Crest
	}
}

func interpretResults(result *Result, opts Options) {
	// Loudness (informational, no bands)
	if result.Loudness != nil && opts.Checks&CheckLoudness != 0 {
		summary := fmt.Sprintf(
			"Loudness: %.1f LUFS, range %.1f LU, max momentary %.1f LUFS",
			result.Loudness.IntegratedLUFS,
			result.Loudness.LoudnessRange,
			result.Loudness.MomentaryMax,
		)

		confidence := 1.0
		if result.Loudness.CoefficientsApproximated {
			summary += " (approximate weighting)"
			confidence = 0.8
		}

		result.Issues = append(result.Issues, Issue{
			Check:      CheckLoudness,
			Summary:    summary,
			Confidence: confidence,
		})
	}

	// Dynamics (descending bands: lower crest = worse)
	if result.Crest != nil && opts.Checks&CheckDynamics != 0 && result.Crest.ActiveBlocks == 0 {
		result.Issues = append(result.Issues, Issue{
			Check:   CheckDynamics,
			Summary: "Silent",
		})
	} else if result.Crest != nil && opts.Checks&CheckDynamics != 0 {
		severity, detected := opts.Dynamics.Match(result.Crest.MeanDb)

		var summary string

		switch severity {
		case SeverityNone:
			if result.Crest.MeanDb >= 14 {
				summary = fmt.Sprintf("Very dynamic (crest %.1f dB)", result.Crest.MeanDb)
			} else {
				summary = fmt.Sprintf("Healthy dynamics (crest %.1f dB)", result.Crest.MeanDb)
			}
		case SeverityMild:
			summary = fmt.Sprintf("Compressed (crest %.1f dB)", result.Crest.MeanDb)
		case SeverityModerate:
			summary = fmt.Sprintf("Heavily compressed (crest %.1f dB)", result.Crest.MeanDb)
		case SeveritySevere:
			summary = fmt.Sprintf("Brickwalled (crest %.1f dB)", result.Crest.MeanDb)
		}

		result.IsOverCompressed = detected
		result.Issues = append(result.Issues, Issue{
			Check:      CheckDynamics,
			Detected:   detected,
			Severity:   severity,
			Summary:    summary,
			Confidence: 1.0,
		})
	}

	// Phase issues (descending bands on the metered correlation)
	if result.Correlation != nil && opts.Checks&CheckPhaseIssues != 0 {
		issue := Issue{Check: CheckPhaseIssues, Confidence: 1.0}

		if result.Correlation.Ticks == 0 {
			issue.Summary = "Too quiet to meter correlation"
			issue.Confidence = 0
		} else {
			issue.Severity, issue.Detected = opts.PhaseIssues.Match(result.Correlation.Mean)

			switch issue.Severity {
			case SeverityNone:
				issue.Summary = fmt.Sprintf("Mono-compatible (correlation %.2f)", result.Correlation.Mean)
			case SeverityMild:
				issue.Summary = fmt.Sprintf("Wide or decorrelated stereo (correlation %.2f)", result.Correlation.Mean)
			case SeverityModerate:
				issue.Summary = fmt.Sprintf("Phase issues (correlation %.2f)", result.Correlation.Mean)
			case SeveritySevere:
				issue.Summary = fmt.Sprintf(
					"Severe phase issues: collapses in mono (correlation %.2f, min %.2f)",
					result.Correlation.Mean,
					result.Correlation.Min,
				)
			}
		}

		result.HasPhaseIssues = issue.Detected
		result.Issues = append(result.Issues, issue)
	}

	// Stereo checks
	if result.Stereo != nil {
		// Inverted Phase (binary detection, no bands)
		if opts.Checks&CheckInvertedPhase != 0 {
			detected := result.Stereo.Correlation < -0.95

			var (
				severity Severity
				summary  string
			)

			if detected {
				severity = SeveritySevere
				summary = fmt.Sprintf(
					"Inverted phase: one channel polarity flipped (correlation %.3f)",
					result.Stereo.Correlation,
				)
			} else {
				severity = SeverityNone
				summary = "Phase polarity OK"
			}

			result.HasInvertedPhase = detected
			result.Issues = append(result.Issues, Issue{
				Check:      CheckInvertedPhase,
				Detected:   detected,
				Severity:   severity,
				Summary:    summary,
				Confidence: 1.0,
			})
		}

		// Fake Stereo (binary detection, no bands)
		if opts.Checks&CheckFakeStereo != 0 {
			detected := result.Stereo.Correlation > 0.98 && result.Stereo.DifferenceDb < -60

			var (
				severity Severity
				summary  string
			)

			if detected {
				severity = SeverityModerate
				summary = fmt.Sprintf("Fake stereo: channels identical (correlation %.3f)", result.Stereo.Correlation)
			} else {
				severity = SeverityNone
				summary = "Real stereo content"
			}

			result.HasFakeStereo = detected
			result.Issues = append(result.Issues, Issue{
				Check:      CheckFakeStereo,
				Detected:   detected,
				Severity:   severity,
				Summary:    summary,
				Confidence: 1.0,
			})
		}

		// Channel Imbalance
		if opts.Checks&CheckChannelImbalance != 0 {
			imbalance := math.Abs(result.Stereo.ImbalanceDb)
			severity, detected := opts.ChannelImbalance.Match(imbalance)

			side := "left"
			if result.Stereo.ImbalanceDb < 0 {
				side = "right"
			}

			var summary string

			switch severity {
			case SeverityNone:
				summary = "Channels balanced"
			case SeverityMild:
				summary = fmt.Sprintf("Slight imbalance: %s louder by %.1f dB", side, imbalance)
			case SeverityModerate:
				summary = fmt.Sprintf("Channel imbalance: %s louder by %.1f dB", side, imbalance)
			case SeveritySevere:
				summary = fmt.Sprintf("Severe imbalance: %s louder by %.1f dB", side, imbalance)
			}

			result.HasChannelImbalance = detected
			result.Issues = append(result.Issues, Issue{
				Check:      CheckChannelImbalance,
				Detected:   detected,
				Severity:   severity,
				Summary:    summary,
				Confidence: 1.0,
			})
		}
	}

	// Tempo (informational)
	if result.Tempo != nil && opts.Checks&CheckTempo != 0 {
		summary := "No tempo detected"
		if result.Tempo.Detected {
			summary = fmt.Sprintf("Tempo: %d BPM", result.Tempo.Tempo)
		}

		result.TempoDetected = result.Tempo.Detected
		result.Issues = append(result.Issues, Issue{
			Check:      CheckTempo,
			Summary:    summary,
			Confidence: result.Tempo.Confidence,
		})
	}

	// Spectrum (informational)
	if result.Spectrum != nil && opts.Checks&CheckSpectrum != 0 {
		summary := "Too short for spectral analysis"
		if result.Spectrum.Windows > 0 {
			summary = fmt.Sprintf(
				"Spectrum: peak %.0f/%.0f Hz, centroid %.0f/%.0f Hz",
				result.Spectrum.PeakLeftHz,
				result.Spectrum.PeakRightHz,
				result.Spectrum.CentroidLeftHz,
				result.Spectrum.CentroidRightHz,
			)
		}

		result.Issues = append(result.Issues, Issue{
			Check:      CheckSpectrum,
			Summary:    summary,
			Confidence: 1.0,
		})
	}

	// Calculate summary stats
	for _, issue := range result.Issues {
		if issue.Detected {
			result.IssueCount++
		}

		if issue.Severity > result.WorstSeverity {
			result.WorstSeverity = issue.Severity
		}
	}
}
