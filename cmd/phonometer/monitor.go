//nolint:wrapcheck
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/farcloser/primordium/format"
	"github.com/urfave/cli/v3"

	"github.com/farcloser/phonometer"
	"github.com/farcloser/phonometer/internal/output"
	"github.com/farcloser/phonometer/internal/types"
	"github.com/farcloser/phonometer/internal/wavfile"
)

var errMonitorArgs = errors.New("expected exactly one argument: file path")

func monitorCommand() *cli.Command {
	return &cli.Command{
		Name:      "monitor",
		Usage:     "Play a file against the wall clock and print live meter readings",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Time between printed readings",
				Value:   time.Second,
			},
			&cli.DurationFlag{
				Name:  "duration",
				Usage: "Stop after this long (0 = until the end of the clip)",
			},
			&cli.IntFlag{
				Name:  "stream",
				Usage: "Audio stream index for non-WAV input (0-based)",
				Value: 0,
			},
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: got %d", errMonitorArgs, cmd.NArg())
			}

			filePath := cmd.Args().First()

			var (
				clip types.Clip
				err  error
			)

			if strings.EqualFold(filepath.Ext(filePath), ".wav") {
				clip, err = wavfile.Read(filePath)
			} else {
				clip, err = extractClip(ctx, filePath, cmd.Int("stream"))
			}

			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()

			engine := phonometer.NewEngine(phonometer.DefaultOptions())
			defer engine.Close()

			if err = engine.Load(ctx, clip); err != nil {
				return err
			}

			return monitor(ctx, engine, filePath, cmd)
		},
	}
}

func monitor(ctx context.Context, engine *phonometer.Engine, filePath string, cmd *cli.Command) error {
	formatter, err := format.GetFormatter(cmd.String("format"))
	if err != nil {
		return err
	}

	if limit := cmd.Duration("duration"); limit > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}

	if err = engine.Start(ctx, phonometer.NewClock(engine.SampleRate())); err != nil {
		return err
	}
	defer engine.Stop()

	ticker := time.NewTicker(cmd.Duration("interval"))
	defer ticker.Stop()

	for done := false; !done; {
		select {
		case <-ctx.Done():
			done = true
		case <-ticker.C:
			printReading(engine)

			done = engine.Position() >= engine.Frames()-1
		}
	}

	engine.Stop()

	return formatter.PrintAll([]*format.Data{{Object: filePath, Meta: snapshot(engine)}}, os.Stdout)
}

func printReading(engine *phonometer.Engine) {
	seconds := float64(engine.Position()) / float64(engine.SampleRate())
	crest := engine.Crest()
	corr := engine.Correlation()
	levels := engine.Levels()

	fmt.Fprintf(os.Stderr,
		"%7.1fs  M %6.1f  S %6.1f  I %6.1f LUFS  crest %4.1f/%4.1f  corr %+.2f (%s)  rms %6.1f/%6.1f dB\n",
		seconds,
		engine.Momentary().LUFS,
		engine.ShortTerm().LUFS,
		engine.Integrated(),
		crest.Left, crest.Right,
		corr.Smoothed, corr.Status,
		levels.RMSLeftDb, levels.RMSRightDb,
	)
}

func snapshot(engine *phonometer.Engine) map[string]any {
	crest := engine.Crest()
	corr := engine.Correlation()
	tempo := engine.Tempo()

	meta := map[string]any{
		"position": engine.Position(),
		"frames":   engine.Frames(),
		"loudness": map[string]any{
			"momentary":  engine.Momentary().LUFS,
			"short_term": engine.ShortTerm().LUFS,
			"integrated": engine.Integrated(),
		},
		"crest": map[string]any{
			"left":      crest.Left,
			"right":     crest.Right,
			"max_left":  crest.MaxLeft,
			"max_right": crest.MaxRight,
		},
		"correlation": map[string]any{
			"value":    corr.Value,
			"smoothed": corr.Smoothed,
			"status":   corr.Status.String(),
		},
		"levels": output.LevelsToMap(engine.Levels()),
		"tempo":  output.TempoToMap(&tempo),
	}

	if r := engine.Spectrum(); r != nil {
		meta["spectrum"] = output.SpectrumToMap(r)
	}

	return meta
}
