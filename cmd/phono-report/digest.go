package main

import (
	"bufio"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/urfave/cli/v3"
	"gonum.org/v1/gonum/stat"

	"github.com/farcloser/phonometer"
)

var errDigestArgs = errors.New("expected exactly one argument: path to report.jsonl")

// Analysis section holding the measurements behind each check.
//
//nolint:gochecknoglobals
var checkSection = map[phonometer.Check]string{
	phonometer.CheckLoudness:         "loudness",
	phonometer.CheckDynamics:         "crest",
	phonometer.CheckPhaseIssues:      "correlation",
	phonometer.CheckInvertedPhase:    "stereo",
	phonometer.CheckFakeStereo:       "stereo",
	phonometer.CheckChannelImbalance: "stereo",
	phonometer.CheckTempo:            "tempo",
	phonometer.CheckSpectrum:         "spectrum",
}

type tempoBucket struct {
	label string
	upTo  int
}

//nolint:gochecknoglobals
var tempoBuckets = []tempoBucket{
	{"< 90 BPM", 90},
	{"90-119 BPM", 120},
	{"120-149 BPM", 150},
	{">= 150 BPM", 1 << 30},
}

func digestCommand() *cli.Command {
	return &cli.Command{
		Name:      "digest",
		Usage:     "Produce a summary digest from a phonometer JSONL report",
		ArgsUsage: "<report.jsonl>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "issue",
				Usage: "Show files affected by a specific check (e.g., fake-stereo, phase-issues)",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return errDigestArgs
			}

			records, err := readRecords(cmd.Args().First())
			if err != nil {
				return err
			}

			summarize(records).write(os.Stdout)

			if check := cmd.String("issue"); check != "" {
				writeIssueDetail(os.Stdout, records, check)
			}

			return nil
		},
	}
}

func readRecords(path string) ([]digestRecord, error) {
	file, err := os.Open(path) //nolint:gosec // CLI tool opens user-specified report files
	if err != nil {
		return nil, fmt.Errorf("opening report: %w", err)
	}
	defer file.Close()

	return decodeRecords(file)
}

func decodeRecords(reader io.Reader) ([]digestRecord, error) {
	var records []digestRecord

	scanner := bufio.NewScanner(reader)

	const maxLineSize = 1024 * 1024
	scanner.Buffer(make([]byte, 0, maxLineSize), maxLineSize)

	for scanner.Scan() {
		var rec digestRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			records = append(records, digestRecord{Error: "parse error"})

			continue
		}

		// Sections are kept loose: only --issue prints them.
		var loose struct {
			Analysis map[string]any `json:"analysis"`
		}

		if err := json.Unmarshal(scanner.Bytes(), &loose); err == nil {
			rec.sections = loose.Analysis
		}

		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}

	return records, nil
}

// digest aggregates a report. Per-check counts follow phonometer.AllChecks.
type digest struct {
	total    int
	failures int
	worst    map[string]int
	perTrack map[int]int
	checks   []checkBreakdown
	tempo    []int
	lufs     []float64
	lra      []float64
}

func summarize(records []digestRecord) *digest {
	result := &digest{
		total:    len(records),
		worst:    map[string]int{},
		perTrack: map[int]int{},
		checks:   make([]checkBreakdown, len(phonometer.AllChecks)),
		tempo:    make([]int, len(tempoBuckets)),
	}

	for i, check := range phonometer.AllChecks {
		result.checks[i].Check = check.String()
	}

	for _, rec := range records {
		if rec.Error != "" || rec.Analysis == nil {
			result.failures++

			continue
		}

		worst := rec.Analysis.Summary.WorstSeverity
		if worst == "" || worst == phonometer.SeverityNone.String() {
			worst = "clean"
		}

		result.worst[worst]++
		result.perTrack[rec.Analysis.Summary.IssueCount]++

		for _, issue := range rec.Analysis.Issues {
			idx := slices.IndexFunc(result.checks, func(c checkBreakdown) bool { return c.Check == issue.Check })
			if !issue.Detected || idx < 0 {
				continue
			}

			result.checks[idx].add(issue.Severity)
		}

		if l := rec.Analysis.Loudness; l != nil {
			result.lufs = append(result.lufs, l.IntegratedLUFS)
			result.lra = append(result.lra, l.LoudnessRange)
		}

		if t := rec.Analysis.Tempo; t != nil && t.Detected {
			result.tempo[slices.IndexFunc(tempoBuckets, func(b tempoBucket) bool { return t.Tempo < b.upTo })]++
		}
	}

	return result
}

func (d *digest) write(out io.Writer) {
	fmt.Fprintln(out, "=== Phonometer Report Digest ===")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Total tracks:  %d\n", d.total)
	fmt.Fprintf(out, "Failed:        %d\n", d.failures)
	fmt.Fprintf(out, "Analyzed:      %d\n", d.total-d.failures)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "--- Worst Severity ---")
	fmt.Fprintf(out, "  Clean:     %d\n", d.worst["clean"])
	fmt.Fprintf(out, "  Mild:      %d\n", d.worst["mild"])
	fmt.Fprintf(out, "  Moderate:  %d\n", d.worst["moderate"])
	fmt.Fprintf(out, "  Severe:    %d\n", d.worst["severe"])
	fmt.Fprintln(out)

	fmt.Fprintln(out, "--- Issues Per Track ---")

	counts := make([]int, 0, len(d.perTrack))
	for count := range d.perTrack {
		counts = append(counts, count)
	}

	slices.Sort(counts)

	for _, count := range counts {
		fmt.Fprintf(out, "  %d issues:  %d tracks\n", count, d.perTrack[count])
	}

	fmt.Fprintln(out)

	if len(d.lufs) > 0 {
		fmt.Fprintln(out, "--- Loudness ---")
		fmt.Fprintf(out, "  Integrated:  mean %.1f LUFS  (min %.1f, max %.1f)\n",
			stat.Mean(d.lufs, nil), slices.Min(d.lufs), slices.Max(d.lufs))
		fmt.Fprintf(out, "  Range:       mean %.1f LU\n", stat.Mean(d.lra, nil))
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "--- Tempo ---")

	for i, bucket := range tempoBuckets {
		fmt.Fprintf(out, "  %-12s %d tracks\n", bucket.label+":", d.tempo[i])
	}

	fmt.Fprintln(out)

	fmt.Fprintln(out, "--- Issues By Check ---")

	for _, bd := range d.checks {
		if bd.Total == 0 {
			continue
		}

		fmt.Fprintf(out, "  %-18s %d  (severe %d, moderate %d, mild %d)\n",
			bd.Check+":", bd.Total, bd.Severe, bd.Moderate, bd.Mild)
	}
}

func writeIssueDetail(out io.Writer, records []digestRecord, check string) {
	section := ""

	for c, key := range checkSection {
		if c.String() == check {
			section = key
		}
	}

	type entry struct {
		file  string
		issue digestIssue
		rec   digestRecord
	}

	var entries []entry

	for _, rec := range records {
		if rec.Analysis == nil {
			continue
		}

		for _, issue := range rec.Analysis.Issues {
			if issue.Detected && issue.Check == check {
				entries = append(entries, entry{file: cmp.Or(rec.File, "(redacted)"), issue: issue, rec: rec})
			}
		}
	}

	fmt.Fprintln(out)

	if len(entries) == 0 {
		fmt.Fprintf(out, "No tracks affected by %s\n", check)

		return
	}

	// Most severe first.
	slices.SortStableFunc(entries, func(a, b entry) int {
		return severityRank(b.issue.Severity) - severityRank(a.issue.Severity)
	})

	fmt.Fprintf(out, "=== %s: %d tracks ===\n\n", check, len(entries))

	for _, e := range entries {
		fmt.Fprintf(out, "  %s\n", e.file)
		fmt.Fprintf(out, "    severity: %s  confidence: %.0f%%\n", e.issue.Severity, e.issue.Confidence*100)
		fmt.Fprintf(out, "    %s\n", e.issue.Summary)

		if detail, ok := e.rec.sections[section].(map[string]any); ok {
			keys := make([]string, 0, len(detail))
			for key := range detail {
				keys = append(keys, key)
			}

			slices.Sort(keys)

			for _, key := range keys {
				// History and spectrum arrays are too long to print.
				if values, isList := detail[key].([]any); isList {
					fmt.Fprintf(out, "    %s: %d entries\n", key, len(values))
				} else {
					fmt.Fprintf(out, "    %s: %v\n", key, detail[key])
				}
			}
		}

		fmt.Fprintln(out)
	}
}

func severityRank(severity string) int {
	for _, s := range []phonometer.Severity{
		phonometer.SeverityMild, phonometer.SeverityModerate, phonometer.SeveritySevere,
	} {
		if s.String() == severity {
			return int(s)
		}
	}

	return int(phonometer.SeverityNone)
}
