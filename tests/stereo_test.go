package tests_test

import (
	"testing"

	"github.com/containerd/nerdctl/mod/tigron/expect"
	"github.com/containerd/nerdctl/mod/tigron/test"

	"github.com/farcloser/phonometer/tests/testutils"
)

func TestFakeStereo(t *testing.T) {
	testCase := testutils.Setup()

	testCase.SubTests = []*test.Case{
		{
			Description: "identical channels detected",
			Setup: func(data test.Data, helpers test.Helpers) {
				data.Labels().Set("file", generate(data, helpers, "identical.wav", "--kind", "identical", "--duration", "2"))
			},
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return analyze(helpers, "fake-stereo", data.Labels().Get("file"))
			},
			Expected: func(_ test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output:   expectIssue("fake-stereo", "moderate"),
				}
			},
		},
		{
			Description: "independent channels not flagged",
			Setup: func(data test.Data, helpers test.Helpers) {
				data.Labels().Set("file", generate(data, helpers, "white.wav", "--kind", "white", "--duration", "2"))
			},
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return analyze(helpers, "fake-stereo", data.Labels().Get("file"))
			},
			Expected: func(_ test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output:   expectNoIssue("fake-stereo"),
				}
			},
		},
	}

	testCase.Run(t)
}

func TestInvertedPhase(t *testing.T) {
	testCase := testutils.Setup()

	testCase.SubTests = []*test.Case{
		{
			Description: "inverted phase detected",
			Setup: func(data test.Data, helpers test.Helpers) {
				data.Labels().Set("file", generate(data, helpers, "inverted.wav", "--kind", "inverted", "--duration", "2"))
			},
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return analyze(helpers, "inverted-phase", data.Labels().Get("file"))
			},
			Expected: func(_ test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output:   expectIssue("inverted-phase", "severe"),
				}
			},
		},
		{
			Description: "identical channels have no inverted phase",
			Setup: func(data test.Data, helpers test.Helpers) {
				data.Labels().Set("file", generate(data, helpers, "identical.wav", "--kind", "identical", "--duration", "2"))
			},
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return analyze(helpers, "inverted-phase", data.Labels().Get("file"))
			},
			Expected: func(_ test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output:   expectNoIssue("inverted-phase"),
				}
			},
		},
	}

	testCase.Run(t)
}

func TestPhaseIssues(t *testing.T) {
	testCase := testutils.Setup()

	testCase.SubTests = []*test.Case{
		{
			Description: "inverted channels collapse in mono",
			Setup: func(data test.Data, helpers test.Helpers) {
				data.Labels().Set("file", generate(data, helpers, "inverted.wav", "--kind", "inverted", "--duration", "2"))
			},
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return analyze(helpers, "phase-issues", data.Labels().Get("file"))
			},
			Expected: func(_ test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output:   expectIssue("phase-issues", "severe"),
				}
			},
		},
		{
			Description: "identical channels are mono-compatible",
			Setup: func(data test.Data, helpers test.Helpers) {
				data.Labels().Set("file", generate(data, helpers, "identical.wav", "--kind", "identical", "--duration", "2"))
			},
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return analyze(helpers, "phase-issues", data.Labels().Get("file"))
			},
			Expected: func(_ test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output: expect.All(
						expectNoIssue("phase-issues"),
						expectSummary("phase-issues", "Mono-compatible"),
					),
				}
			},
		},
	}

	testCase.Run(t)
}

func TestChannelImbalance(t *testing.T) {
	testCase := testutils.Setup()

	testCase.SubTests = []*test.Case{
		{
			Description: "right channel 6 dB down detected",
			Setup: func(data test.Data, helpers test.Helpers) {
				data.Labels().Set("file", generate(data, helpers, "imbalanced.wav",
					"--kind", "identical", "--duration", "2", "--right-db", "-6"))
			},
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return analyze(helpers, "channel-imbalance", data.Labels().Get("file"))
			},
			Expected: func(_ test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output: expect.All(
						expectIssue("channel-imbalance", "severe"),
						expectSummary("channel-imbalance", "left louder"),
					),
				}
			},
		},
		{
			Description: "balanced channels not flagged",
			Setup: func(data test.Data, helpers test.Helpers) {
				data.Labels().Set("file", generate(data, helpers, "identical.wav", "--kind", "identical", "--duration", "2"))
			},
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return analyze(helpers, "channel-imbalance", data.Labels().Get("file"))
			},
			Expected: func(_ test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output:   expectNoIssue("channel-imbalance"),
				}
			},
		},
	}

	testCase.Run(t)
}
