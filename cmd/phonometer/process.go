//nolint:wrapcheck
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/phonometer"
	"github.com/farcloser/phonometer/internal/integration/ffmpeg"
	"github.com/farcloser/phonometer/internal/integration/ffprobe"
	"github.com/farcloser/phonometer/internal/pcm"
	"github.com/farcloser/phonometer/internal/types"
)

var errProcessArgs = errors.New("expected exactly one argument: file path")

func processCommand() *cli.Command {
	return &cli.Command{
		Name:      "process",
		Usage:     "Extract PCM from any audio container and analyze it",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			checksFlag(),
			&cli.IntFlag{
				Name:  "stream",
				Usage: "Audio stream index (0-based)",
				Value: 0,
			},
			&cli.FloatFlag{
				Name:  "overlap",
				Usage: "Momentary loudness block overlap in percent",
				Value: 75,
			},
			formatFlag(),
			debugFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: got %d", errProcessArgs, cmd.NArg())
			}

			filePath := cmd.Args().First()

			opts, err := optionsFromFlags(cmd)
			if err != nil {
				return err
			}

			clip, err := extractClip(ctx, filePath, cmd.Int("stream"))
			if err != nil {
				return err
			}

			result, err := phonometer.AnalyzeContext(ctx, clip, opts)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			return outputResult(filePath, result, cmd.String("format"), cmd.Bool("debug"))
		},
	}
}

// extractClip probes a container, decodes one audio stream to 32-bit float PCM through ffmpeg
// and returns it as a clip. Streams with more than two channels are downmixed by ffmpeg.
func extractClip(ctx context.Context, filePath string, streamIndex int) (types.Clip, error) {
	probeResult, err := ffprobe.Probe(ctx, filePath)
	if err != nil {
		return types.Clip{}, fmt.Errorf("probing file: %w", err)
	}

	stream, err := probeResult.AudioStream(streamIndex)
	if err != nil {
		return types.Clip{}, err
	}

	sampleRate, err := stream.Rate()
	if err != nil {
		return types.Clip{}, err
	}

	channels := min(max(stream.Channels, 1), 2)

	format := types.PCMFormat{
		SampleRate: sampleRate,
		BitDepth:   types.Depth32,
		Channels:   uint(channels), //nolint:gosec // clamped to 1..2
		Float:      true,
	}

	file, err := os.Open(filePath) //nolint:gosec // CLI tool opens user-specified audio files
	if err != nil {
		return types.Clip{}, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	var pcmBuf bytes.Buffer

	if err = ffmpeg.ExtractStream(ctx, file, &pcmBuf, streamIndex, &format); err != nil {
		return types.Clip{}, fmt.Errorf("extracting PCM: %w", err)
	}

	samples, err := pcm.Decode(&pcmBuf, format)
	if err != nil {
		return types.Clip{}, err
	}

	return types.Clip{Samples: samples, SampleRate: sampleRate, Channels: channels}, nil
}
