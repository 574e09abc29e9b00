package tests_test

import (
	"testing"

	"github.com/containerd/nerdctl/mod/tigron/expect"
	"github.com/containerd/nerdctl/mod/tigron/test"

	"github.com/farcloser/phonometer/tests/testutils"
)

func TestDynamics(t *testing.T) {
	testCase := testutils.Setup()

	testCase.SubTests = []*test.Case{
		{
			Description: "sine is brickwalled",
			Setup: func(data test.Data, helpers test.Helpers) {
				data.Labels().Set("file", generate(data, helpers, "sine.wav", "--kind", "sine", "--duration", "2"))
			},
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return analyze(helpers, "dynamics", data.Labels().Get("file"))
			},
			Expected: func(_ test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output: expect.All(
						expectIssue("dynamics", "severe"),
						expectSummary("dynamics", "Brickwalled"),
					),
				}
			},
		},
		{
			Description: "silence is reported, not flagged",
			Setup: func(data test.Data, helpers test.Helpers) {
				data.Labels().Set("file", generate(data, helpers, "silence.wav",
					"--kind", "sine", "--duration", "2", "--gain", "0"))
			},
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return analyze(helpers, "dynamics", data.Labels().Get("file"))
			},
			Expected: func(_ test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output: expect.All(
						expectNoIssue("dynamics"),
						expectSummary("dynamics", "Silent"),
					),
				}
			},
		},
	}

	testCase.Run(t)
}

func TestLoudness(t *testing.T) {
	testCase := testutils.Setup()

	testCase.SubTests = []*test.Case{
		{
			Description: "loudness is informational",
			Setup: func(data test.Data, helpers test.Helpers) {
				data.Labels().Set("file", generate(data, helpers, "pink.wav", "--kind", "pink", "--duration", "4"))
			},
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return analyze(helpers, "loudness", data.Labels().Get("file"))
			},
			Expected: func(_ test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output: expect.All(
						expectNoIssue("loudness"),
						expectSummary("loudness", "LUFS"),
						expectContains("integrated_lufs"),
					),
				}
			},
		},
		{
			Description: "unusual sample rate uses approximate weighting",
			Setup: func(data test.Data, helpers test.Helpers) {
				data.Labels().Set("file", generate(data, helpers, "pink-32k.wav",
					"--kind", "pink", "--duration", "4", "--sample-rate", "32000"))
			},
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return analyze(helpers, "loudness", data.Labels().Get("file"))
			},
			Expected: func(_ test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output:   expectSummary("loudness", "approximate weighting"),
				}
			},
		},
	}

	testCase.Run(t)
}

func TestTempo(t *testing.T) {
	testCase := testutils.Setup()

	testCase.SubTests = []*test.Case{
		{
			// 40960 Hz puts 120 BPM beats exactly 20 analysis blocks apart.
			Description: "click track at 120 BPM",
			Setup: func(data test.Data, helpers test.Helpers) {
				data.Labels().Set("file", generate(data, helpers, "clicks.wav",
					"--kind", "clicks", "--tempo", "120", "--duration", "6", "--sample-rate", "40960", "--gain", "0.9"))
			},
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return analyze(helpers, "tempo", data.Labels().Get("file"))
			},
			Expected: func(_ test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output:   expectSummary("tempo", "Tempo: 120 BPM"),
				}
			},
		},
		{
			Description: "silence has no tempo",
			Setup: func(data test.Data, helpers test.Helpers) {
				data.Labels().Set("file", generate(data, helpers, "silence.wav",
					"--kind", "clicks", "--duration", "4", "--gain", "0"))
			},
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return analyze(helpers, "tempo", data.Labels().Get("file"))
			},
			Expected: func(_ test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output:   expectSummary("tempo", "No tempo detected"),
				}
			},
		},
	}

	testCase.Run(t)
}
