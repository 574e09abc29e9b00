//nolint:staticcheck,wrapcheck // too dumb
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/phonometer"
	"github.com/farcloser/phonometer/internal/pcm"
	"github.com/farcloser/phonometer/internal/types"
	"github.com/farcloser/phonometer/internal/wavfile"
)

var (
	errInvalidArgCount = errors.New("expected exactly one argument: file path or \"-\" for stdin")
	errMissingRate     = errors.New("--sample-rate is required for raw PCM input")
	errUnknownCheck    = errors.New("unknown check")
)

const checksUsage = "Comma-separated checks or presets: all, defects, metrics, " +
	"loudness, dynamics, phase-issues, inverted-phase, fake-stereo, channel-imbalance, tempo, spectrum"

func checksFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "checks",
		Aliases: []string{"C"},
		Usage:   checksUsage,
		Value:   "all",
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: console, json, markdown",
		Value:   "console",
	}
}

func debugFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "debug",
		Aliases: []string{"D"},
		Usage:   "Include all raw analyzer data in output",
	}
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Analyze a WAV file or raw PCM stream",
		ArgsUsage: "<file | ->",
		Flags: []cli.Flag{
			// PCMFormat flags, ignored for .wav input.
			&cli.IntFlag{
				Name:    "sample-rate",
				Aliases: []string{"s"},
				Usage:   "Sample rate in Hz for raw PCM (e.g., 44100, 48000)",
			},
			&cli.IntFlag{
				Name:    "bit-depth",
				Aliases: []string{"b"},
				Usage:   "Bit depth for raw PCM (16, 24, or 32)",
				Value:   32,
			},
			&cli.IntFlag{
				Name:    "channels",
				Aliases: []string{"c"},
				Usage:   "Number of channels for raw PCM (1 = mono, 2 = stereo)",
				Value:   2,
			},
			&cli.BoolFlag{
				Name:  "float",
				Usage: "Raw PCM holds 32-bit IEEE float samples",
			},
			&cli.FloatFlag{
				Name:  "overlap",
				Usage: "Momentary loudness block overlap in percent",
				Value: 75,
			},
			checksFlag(),
			formatFlag(),
			debugFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: got %d", errInvalidArgCount, cmd.NArg())
			}

			opts, err := optionsFromFlags(cmd)
			if err != nil {
				return err
			}

			inputPath := cmd.Args().First()

			clip, err := loadClip(inputPath, cmd)
			if err != nil {
				return err
			}

			result, err := phonometer.AnalyzeContext(ctx, clip, opts)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			return outputResult(inputPath, result, cmd.String("format"), cmd.Bool("debug"))
		},
	}
}

func optionsFromFlags(cmd *cli.Command) (phonometer.Options, error) {
	checks, err := parseChecks(cmd.String("checks"))
	if err != nil {
		return phonometer.Options{}, err
	}

	opts := phonometer.DefaultOptions()
	opts.Checks = checks

	if cmd.IsSet("overlap") {
		opts.Loudness.OverlapPercent = cmd.Float("overlap")
	}

	return opts, nil
}

// loadClip reads .wav files through the WAV decoder and anything else as raw PCM described by flags.
func loadClip(source string, cmd *cli.Command) (types.Clip, error) {
	if source != "-" && strings.EqualFold(filepath.Ext(source), ".wav") {
		return wavfile.Read(source)
	}

	format, err := parsePCMFormat(cmd)
	if err != nil {
		return types.Clip{}, err
	}

	var reader io.Reader

	if source == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return types.Clip{}, fmt.Errorf("reading stdin: %w", err)
		}

		reader = bytes.NewReader(data)
	} else {
		file, err := os.Open(source) //nolint:gosec // CLI tool opens user-specified audio files
		if err != nil {
			return types.Clip{}, fmt.Errorf("cannot access %s: %w", source, err)
		}
		defer file.Close()

		reader = file
	}

	samples, err := pcm.Decode(reader, format)
	if err != nil {
		return types.Clip{}, err
	}

	return types.Clip{
		Samples:    samples,
		SampleRate: format.SampleRate,
		Channels:   int(format.Channels), //nolint:gosec // validated small value
	}, nil
}

func parsePCMFormat(cmd *cli.Command) (types.PCMFormat, error) {
	sampleRate := cmd.Int("sample-rate")
	if sampleRate <= 0 {
		return types.PCMFormat{}, errMissingRate
	}

	bitDepth, err := toBitDepth(cmd.Int("bit-depth"))
	if err != nil {
		return types.PCMFormat{}, fmt.Errorf("--bit-depth: %w", err)
	}

	channels := cmd.Int("channels")
	if channels < 1 || channels > 2 {
		return types.PCMFormat{}, fmt.Errorf("--channels: %w", errInvalidChannels)
	}

	return types.PCMFormat{
		SampleRate: sampleRate,
		BitDepth:   bitDepth,
		Channels:   uint(channels), //nolint:gosec // validated positive value
		Float:      cmd.Bool("float"),
	}, nil
}

var (
	errInvalidBitDepth = errors.New("must be 16, 24, or 32")
	errInvalidChannels = errors.New("must be 1 or 2")
)

func toBitDepth(v int) (types.BitDepth, error) {
	switch v {
	case 16:
		return types.Depth16, nil
	case 24:
		return types.Depth24, nil
	case 32:
		return types.Depth32, nil
	default:
		return 0, errInvalidBitDepth
	}
}

//nolint:gochecknoglobals
var checkNames = map[string]phonometer.Check{
	"loudness":          phonometer.CheckLoudness,
	"dynamics":          phonometer.CheckDynamics,
	"phase-issues":      phonometer.CheckPhaseIssues,
	"inverted-phase":    phonometer.CheckInvertedPhase,
	"fake-stereo":       phonometer.CheckFakeStereo,
	"channel-imbalance": phonometer.CheckChannelImbalance,
	"tempo":             phonometer.CheckTempo,
	"spectrum":          phonometer.CheckSpectrum,
	// Presets.
	"all":     phonometer.ChecksAll,
	"defects": phonometer.ChecksDefects,
	"metrics": phonometer.ChecksMetrics,
}

func parseChecks(raw string) (phonometer.Check, error) {
	var result phonometer.Check

	for name := range strings.SplitSeq(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		check, ok := checkNames[name]
		if !ok {
			return 0, fmt.Errorf("%w %q", errUnknownCheck, name)
		}

		result |= check
	}

	if result == 0 {
		return phonometer.ChecksAll, nil
	}

	return result, nil
}
