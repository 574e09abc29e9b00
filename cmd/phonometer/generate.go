//nolint:wrapcheck
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/phonometer/internal/signal"
	"github.com/farcloser/phonometer/internal/wavfile"
)

var (
	errGenerateArgs  = errors.New("expected exactly one argument: output .wav path")
	errUnknownKind   = errors.New("unknown signal kind")
	errInvalidLength = errors.New("duration and sample rate must be positive")
)

const kindsUsage = "Signal kind: white, pink, pink-inverted, identical, inverted, sine, clicks"

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "Write a 16-bit stereo WAV test signal",
		ArgsUsage: "<file.wav>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "kind",
				Aliases: []string{"k"},
				Usage:   kindsUsage,
				Value:   "pink",
			},
			&cli.FloatFlag{
				Name:    "duration",
				Aliases: []string{"d"},
				Usage:   "Length in seconds",
				Value:   5,
			},
			&cli.IntFlag{
				Name:    "sample-rate",
				Aliases: []string{"s"},
				Usage:   "Sample rate in Hz",
				Value:   48000,
			},
			&cli.FloatFlag{
				Name:    "gain",
				Aliases: []string{"g"},
				Usage:   "Linear amplitude scale",
				Value:   0.5,
			},
			&cli.FloatFlag{
				Name:  "frequency",
				Usage: "Sine frequency in Hz",
				Value: 1000,
			},
			&cli.FloatFlag{
				Name:  "tempo",
				Usage: "Click track tempo in BPM",
				Value: 120,
			},
			&cli.FloatFlag{
				Name:  "right-db",
				Usage: "Gain applied to the right channel in dB",
			},
			&cli.Uint64Flag{
				Name:  "seed",
				Usage: "Noise seed",
				Value: 1,
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: got %d", errGenerateArgs, cmd.NArg())
			}

			sampleRate := cmd.Int("sample-rate")
			frames := int(math.Round(cmd.Float("duration") * float64(sampleRate)))

			if sampleRate <= 0 || frames <= 0 {
				return errInvalidLength
			}

			left, right, err := synthesize(cmd.String("kind"), frames, sampleRate, cmd)
			if err != nil {
				return err
			}

			if rightDb := cmd.Float("right-db"); rightDb != 0 {
				scale := float32(math.Pow(10, rightDb/20))
				for i := range right {
					right[i] *= scale
				}
			}

			path := cmd.Args().First()

			slog.Debug("generate", "kind", cmd.String("kind"), "frames", frames, "path", path)

			return wavfile.Write(path, left, right, sampleRate)
		},
	}
}

func synthesize(kind string, frames, sampleRate int, cmd *cli.Command) (left, right []float32, err error) {
	gain := cmd.Float("gain")
	noise := signal.NewNoise(cmd.Uint64("seed"))

	switch kind {
	case "white":
		left, right = noise.White(frames, gain)
	case "pink":
		left, right = noise.Pink(frames, gain)
	case "pink-inverted":
		left, right = noise.PinkInverted(frames, gain)
	case "identical":
		left, _ = noise.White(frames, gain)
		right = append([]float32(nil), left...)
	case "inverted":
		left, _ = noise.White(frames, gain)

		right = make([]float32, frames)
		for i, v := range left {
			right[i] = -v
		}
	case "sine":
		left = signal.Sine(frames, cmd.Float("frequency"), gain, sampleRate)
		right = append([]float32(nil), left...)
	case "clicks":
		// 10 ms bursts.
		left = signal.Clicks(frames, sampleRate, cmd.Float("tempo"), sampleRate/100, gain)
		right = append([]float32(nil), left...)
	default:
		return nil, nil, fmt.Errorf("%w %q", errUnknownKind, kind)
	}

	return left, right, nil
}
