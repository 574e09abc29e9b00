package tests_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/containerd/nerdctl/mod/tigron/expect"
	"github.com/containerd/nerdctl/mod/tigron/test"
	"github.com/containerd/nerdctl/mod/tigron/tig"

	"github.com/farcloser/phonometer/internal/signal"
	"github.com/farcloser/phonometer/internal/wavfile"
	"github.com/farcloser/phonometer/tests/testutils"
)

func TestReport(t *testing.T) {
	testCase := testutils.SetupReport()

	testCase.SubTests = []*test.Case{
		{
			Description: "empty folder fails",
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return helpers.Command("report", data.Temp().Dir("empty"))
			},
			Expected: test.Expects(expect.ExitCodeGenericFail, nil, nil),
		},
		{
			Description: "missing report fails digest",
			Command:     test.Command("digest", "/nonexistent/report.jsonl"),
			Expected:    test.Expects(expect.ExitCodeGenericFail, nil, nil),
		},
		{
			Description: "scans wav files and digests the report",
			Setup: func(data test.Data, helpers test.Helpers) {
				folder := data.Temp().Dir("collection")

				writeCollection(helpers.T(), folder)
				data.Labels().Set("folder", folder)
				data.Labels().Set("report", data.Temp().Path("report.jsonl"))
			},
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return helpers.Command("report", "--workers", "2",
					"--output", data.Labels().Get("report"), data.Labels().Get("folder"))
			},
			Expected: func(data test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output: expect.All(
						expectContains("Phonometer Report Digest"),
						expectContains("Total tracks:  2"),
						expectContains("fake-stereo"),
						func(_ string, testing tig.T) {
							testing.Helper()

							if _, err := os.Stat(data.Labels().Get("report") + ".gz"); err != nil {
								testing.Log(err.Error())
								testing.Fail()
							}
						},
					),
				}
			},
		},
	}

	testCase.Run(t)
}

// writeCollection writes one fake stereo track and one healthy track, plus a file the report must skip.
func writeCollection(testing tig.T, folder string) {
	testing.Helper()

	const rate = 44100

	noise := signal.NewNoise(7)
	mono, _ := noise.White(2*rate, 0.5)
	left, right := noise.Pink(2*rate, 0.5)

	for name, channels := range map[string][2][]float32{
		"a-fake.wav":   {mono, mono},
		"b-stereo.wav": {left, right},
	} {
		if err := wavfile.Write(filepath.Join(folder, name), channels[0], channels[1], rate); err != nil {
			testing.Log(err.Error())
			testing.FailNow()
		}
	}

	if err := os.WriteFile(filepath.Join(folder, "notes.txt"), []byte("skip me"), 0o600); err != nil {
		testing.Log(err.Error())
		testing.FailNow()
	}
}
