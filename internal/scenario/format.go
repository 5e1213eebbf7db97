package scenario

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Totals sums case and scenario outcomes over several runs.
type Totals struct {
	Scenarios int
	Failed    int // scenarios with at least one failing case
	Cases     int
	Passed    int
}

// Summarize adds up results.
func Summarize(results []*RunResult) Totals {
	t := Totals{Scenarios: len(results)}
	for _, r := range results {
		t.Cases += r.Total
		t.Passed += r.Passed
		if r.Failed > 0 {
			t.Failed++
		}
	}
	return t
}

// FormatText renders one line per scenario with its event count, followed
// by every failing case and the door decision behind it.
func FormatText(results []*RunResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s\n\n", len(results), plural(len(results), "scenario", "scenarios"))

	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	for _, r := range results {
		verdict := "PASS"
		if r.Failed > 0 {
			verdict = "FAIL"
		}
		fmt.Fprintf(w, "%s\t%s\t%d/%d cases\t%d events\n", verdict, r.Name, r.Passed, r.Total, r.Events)
		writeFailures(w, r.Cases)
	}
	w.Flush()

	t := Summarize(results)
	fmt.Fprintf(&b, "\n%d/%d cases passed", t.Passed, t.Cases)
	if t.Failed > 0 {
		fmt.Fprintf(&b, ", %d %s failed", t.Failed, plural(t.Failed, "scenario", "scenarios"))
	}
	b.WriteString("\n")
	return b.String()
}

func writeFailures(w io.Writer, cases []CaseResult) {
	for _, c := range cases {
		if c.Passed {
			continue
		}
		fmt.Fprintf(w, "\t  #%d %s: want %s, got %s\n", c.Index, c.Agent, c.Expected, c.Actual)
		if c.Reason != "" {
			fmt.Fprintf(w, "\t    door: %s\n", c.Reason)
		}
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// FormatJSON renders run results as JSON.
func FormatJSON(results []*RunResult) (string, error) {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}
	return string(data), nil
}
