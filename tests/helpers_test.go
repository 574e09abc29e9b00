package tests_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/containerd/nerdctl/mod/tigron/test"
	"github.com/containerd/nerdctl/mod/tigron/tig"
)

// generate writes a test signal with the phonometer generate command and returns its path.
func generate(data test.Data, helpers test.Helpers, name string, args ...string) string {
	path := data.Temp().Path(name)
	helpers.Ensure(append(append([]string{"generate"}, args...), path)...)

	return path
}

// analyze builds a JSON debug analysis command for a file.
func analyze(helpers test.Helpers, checks, file string) test.TestableCommand {
	return helpers.Command("analyze", "--format", "json", "--debug", "--checks", checks, file)
}

// issues decodes every JSON document in stdout and collects the objects that look like issues.
func issues(stdout string) ([]map[string]any, error) {
	var found []map[string]any

	decoder := json.NewDecoder(strings.NewReader(stdout))

	for {
		var doc any

		err := decoder.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, err
		}

		collectIssues(doc, &found)
	}

	return found, nil
}

func collectIssues(node any, found *[]map[string]any) {
	switch val := node.(type) {
	case map[string]any:
		if _, ok := val["check"]; ok {
			if _, ok = val["detected"]; ok {
				*found = append(*found, val)

				return
			}
		}

		for _, child := range val {
			collectIssues(child, found)
		}
	case []any:
		for _, child := range val {
			collectIssues(child, found)
		}
	}
}

func findIssue(stdout, check string, testing tig.T) map[string]any {
	testing.Helper()

	all, err := issues(stdout)
	if err != nil {
		testing.Log(fmt.Sprintf("output is not JSON (%v):\n%s", err, stdout))
		testing.Fail()

		return nil
	}

	for _, issue := range all {
		if issue["check"] == check {
			return issue
		}
	}

	return nil
}

// expectIssue returns a comparator verifying that the given check was detected with the given severity.
func expectIssue(check, severity string) test.Comparator {
	return func(stdout string, testing tig.T) {
		testing.Helper()

		issue := findIssue(stdout, check, testing)
		if issue != nil && issue["detected"] == true && issue["severity"] == severity {
			return
		}

		testing.Log(
			fmt.Sprintf("expected issue %q with severity %q not found in output:\n%s", check, severity, stdout),
		)
		testing.Fail()
	}
}

// expectIssueDetected returns a comparator verifying that the given check was detected (any severity).
func expectIssueDetected(check string) test.Comparator {
	return func(stdout string, testing tig.T) {
		testing.Helper()

		issue := findIssue(stdout, check, testing)
		if issue != nil && issue["detected"] == true {
			return
		}

		testing.Log(fmt.Sprintf("expected issue %q to be detected but was not found in output:\n%s", check, stdout))
		testing.Fail()
	}
}

// expectNoIssue returns a comparator verifying that the given check was NOT detected.
// A check absent from the output was not run, which also passes.
func expectNoIssue(check string) test.Comparator {
	return func(stdout string, testing tig.T) {
		testing.Helper()

		issue := findIssue(stdout, check, testing)
		if issue == nil || issue["detected"] != true {
			return
		}

		testing.Log(fmt.Sprintf("expected no issue for %q but it was detected in output:\n%s", check, stdout))
		testing.Fail()
	}
}

// expectSummary returns a comparator verifying that an issue summary contains a substring.
func expectSummary(check, substr string) test.Comparator {
	return func(stdout string, testing tig.T) {
		testing.Helper()

		issue := findIssue(stdout, check, testing)
		if issue != nil {
			if summary, ok := issue["summary"].(string); ok && strings.Contains(summary, substr) {
				return
			}
		}

		testing.Log(fmt.Sprintf("expected %q summary containing %q in output:\n%s", check, substr, stdout))
		testing.Fail()
	}
}

// expectContains returns a comparator verifying the output contains a substring.
func expectContains(substr string) test.Comparator {
	return func(stdout string, testing tig.T) {
		testing.Helper()

		if !strings.Contains(stdout, substr) {
			testing.Log(fmt.Sprintf("expected substring %q not found in output:\n%s", substr, stdout))
			testing.Fail()
		}
	}
}
