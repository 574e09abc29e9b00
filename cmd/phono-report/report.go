//nolint:wrapcheck
package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/farcloser/phonometer"
	"github.com/farcloser/phonometer/internal/integration/ffmpeg"
	"github.com/farcloser/phonometer/internal/integration/ffprobe"
	"github.com/farcloser/phonometer/internal/output"
	"github.com/farcloser/phonometer/internal/pcm"
	"github.com/farcloser/phonometer/internal/types"
	"github.com/farcloser/phonometer/internal/wavfile"
)

const defaultOutputFile = "phonometer-report.jsonl"

var (
	errNotDirectory  = errors.New("not a directory")
	errNoAudioFiles  = errors.New("no .wav, .flac, .m4a or .mp3 files found")
	errReportArgs    = errors.New("expected exactly one argument: folder path")
	errInvalidFormat = errors.New("invalid stream")
)

//nolint:gochecknoglobals
var audioExtensions = []string{".wav", ".flac", ".m4a", ".mp3"}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "Scan a music collection and write a phonometer JSONL report",
		ArgsUsage: "<folder>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "redact-path",
				Usage: "Strip file paths from the report",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Report file path",
				Value:   defaultOutputFile,
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"j"},
				Usage:   "Number of concurrent workers",
				Value:   runtime.NumCPU(),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return errReportArgs
			}

			return runReport(
				ctx,
				cmd.Args().First(),
				cmd.String("output"),
				cmd.Bool("redact-path"),
				max(cmd.Int("workers"), 1),
			)
		},
	}
}

func runReport(ctx context.Context, folder, outputFile string, redact bool, workers int) error {
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%q: %w", folder, errNotDirectory)
	}

	files, err := collectAudioFiles(folder)
	if err != nil {
		return fmt.Errorf("scanning folder: %w", err)
	}

	if len(files) == 0 {
		return fmt.Errorf("%q: %w", folder, errNoAudioFiles)
	}

	fmt.Fprintf(os.Stderr, "Found %d files to analyze (%d workers)\n", len(files), workers)

	startTime := time.Now()
	results := make([]Record, len(files))

	var progress atomic.Int64

	// Per-file failures land in the record, so the group never returns an error.
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for idx, filePath := range files {
		group.Go(func() error {
			results[idx] = processFile(groupCtx, filePath)

			done := progress.Add(1)
			fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", done, len(files), filePath)

			return nil
		})
	}

	_ = group.Wait()

	out, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	failed := 0

	var totalProbe, totalDecode, totalAnalyze time.Duration

	for idx := range results {
		record := &results[idx]

		if record.Error != "" {
			failed++
		}

		if record.Timing != nil {
			totalProbe += millisToDuration(record.Timing.ProbeMs)
			totalDecode += millisToDuration(record.Timing.DecodeMs)
			totalAnalyze += millisToDuration(record.Timing.AnalyzeMs)
		}

		if redact {
			record.File = ""
			record.Probe = redactProbe(record.Probe)
		}

		if err := enc.Encode(record); err != nil {
			slog.Error("writing record", "file", files[idx], "error", err)
		}
	}

	out.Close()

	if err := compressFile(outputFile); err != nil {
		slog.Error("compressing report", "error", err)
	}

	elapsed := time.Since(startTime)
	minutes := int(elapsed.Minutes())
	seconds := int(elapsed.Seconds()) % 60

	fmt.Fprintf(os.Stderr, "\nDone: %d files in %dm %ds (%d failed)\n", len(files), minutes, seconds, failed)
	fmt.Fprintf(os.Stderr, "Report written to %s (and %s.gz)\n", outputFile, outputFile)

	analyzed := len(files) - failed
	fmt.Fprintf(os.Stderr, "\n--- Timing ---\n")
	fmt.Fprintf(os.Stderr, "  Wall clock:  %s\n", elapsed.Truncate(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  probe:       %s (cumulative)\n", totalProbe.Truncate(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  decode:      %s (cumulative)\n", totalDecode.Truncate(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  analysis:    %s (cumulative)\n", totalAnalyze.Truncate(time.Millisecond))

	if analyzed > 0 {
		fmt.Fprintf(os.Stderr, "  avg/file:    %s (probe: %s, decode: %s, analyze: %s)\n",
			(totalProbe+totalDecode+totalAnalyze)/time.Duration(analyzed),
			totalProbe/time.Duration(analyzed),
			totalDecode/time.Duration(analyzed),
			totalAnalyze/time.Duration(analyzed),
		)
	}

	fmt.Fprintln(os.Stderr)

	records, err := readRecords(outputFile)
	if err != nil {
		return err
	}

	summarize(records).write(os.Stdout)

	return nil
}

func processFile(ctx context.Context, filePath string) Record {
	fileStart := time.Now()
	timing := &RecordTiming{}
	record := Record{File: filePath, Timing: timing}

	var (
		clip types.Clip
		err  error
	)

	if strings.EqualFold(filepath.Ext(filePath), ".wav") {
		decodeStart := time.Now()
		clip, err = wavfile.Read(filePath)
		timing.DecodeMs = durationMs(time.Since(decodeStart))

		if err != nil {
			record.Error = fmt.Sprintf("decode failed: %v", err)

			return record
		}
	} else {
		clip, err = extract(ctx, &record)
		if err != nil {
			record.Error = err.Error()

			return record
		}
	}

	analyzeStart := time.Now()

	result, err := phonometer.AnalyzeContext(ctx, clip, phonometer.DefaultOptions())

	timing.AnalyzeMs = durationMs(time.Since(analyzeStart))
	timing.TotalMs = durationMs(time.Since(fileStart))

	if err != nil {
		record.Error = fmt.Sprintf("analysis failed: %v", err)

		return record
	}

	record.Analysis = output.ResultToMap(result)

	return record
}

// extract probes a container and decodes its first audio stream through ffmpeg, recording probe data and timings.
func extract(ctx context.Context, record *Record) (types.Clip, error) {
	probeStart := time.Now()

	probeResult, err := ffprobe.Probe(ctx, record.File)

	record.Timing.ProbeMs = durationMs(time.Since(probeStart))

	if err != nil {
		return types.Clip{}, fmt.Errorf("probe failed: %w", err)
	}

	// Serialize probe data (strips tags/disposition since Go structs don't include them).
	if probeJSON, err := json.Marshal(probeResult); err == nil {
		record.Probe = probeJSON
	} else {
		record.ProbeError = "probe serialization failed"
	}

	stream, err := probeResult.AudioStream(0)
	if err != nil {
		return types.Clip{}, fmt.Errorf("no audio stream: %w", err)
	}

	sampleRate, err := stream.Rate()
	if err != nil {
		return types.Clip{}, fmt.Errorf("format error: %w", err)
	}

	if stream.Channels <= 0 {
		return types.Clip{}, fmt.Errorf("%w: %d channels", errInvalidFormat, stream.Channels)
	}

	channels := min(stream.Channels, 2)
	format := types.PCMFormat{
		SampleRate: sampleRate,
		BitDepth:   types.Depth32,
		Channels:   uint(channels), //nolint:gosec // clamped to 1..2
		Float:      true,
	}

	decodeStart := time.Now()
	defer func() { record.Timing.DecodeMs = durationMs(time.Since(decodeStart)) }()

	file, err := os.Open(record.File) //nolint:gosec // CLI tool opens user-specified audio files
	if err != nil {
		return types.Clip{}, fmt.Errorf("open failed: %w", err)
	}
	defer file.Close()

	var pcmBuf bytes.Buffer

	if err = ffmpeg.ExtractStream(ctx, file, &pcmBuf, 0, &format); err != nil {
		return types.Clip{}, fmt.Errorf("extraction failed: %w", err)
	}

	samples, err := pcm.Decode(&pcmBuf, format)
	if err != nil {
		return types.Clip{}, fmt.Errorf("extraction failed: %w", err)
	}

	return types.Clip{Samples: samples, SampleRate: sampleRate, Channels: channels}, nil
}

func durationMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

func millisToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func collectAudioFiles(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		if slices.Contains(audioExtensions, strings.ToLower(filepath.Ext(path))) {
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(files)

	return files, nil
}

func compressFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // reading our own output file
	if err != nil {
		return err
	}

	gzFile, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer gzFile.Close()

	gzWriter := gzip.NewWriter(gzFile)

	if _, err := gzWriter.Write(data); err != nil {
		return err
	}

	return gzWriter.Close()
}

func redactProbe(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}

	var probe map[string]any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return raw
	}

	// Strip format.filename.
	if format, ok := probe["format"].(map[string]any); ok {
		delete(format, "filename")
	}

	redacted, err := json.Marshal(probe)
	if err != nil {
		return raw
	}

	return redacted
}
