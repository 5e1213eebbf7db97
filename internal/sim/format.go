package sim

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FormatText renders a run result as a summary table.
func FormatText(r *Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Simulation: %d agent", len(r.Agents))
	if len(r.Agents) != 1 {
		b.WriteString("s")
	}
	fmt.Fprintf(&b, " | seed %d | %d events | %s\n\n", r.Seed, r.Events, r.Elapsed.Round(time.Millisecond))

	fmt.Fprintf(&b, "  %-16s %-13s %-5s %-6s %-5s %-8s %s\n", "AGENT", "CLEARANCE", "FROM", "TARGET", "FINAL", "ATTEMPTS", "RESULT")
	for _, a := range r.Agents {
		result := "granted"
		switch {
		case a.Error != "":
			result = "error: " + a.Error
		case !a.Granted:
			result = "denied, returned to G"
		}
		fmt.Fprintf(&b, "  %-16s %-13s %-5s %-6s %-5s %-8d %s\n",
			a.ID, a.Clearance, a.Start, a.Target, a.Final, a.Attempts, result)
	}

	fmt.Fprintf(&b, "\n%d of %d requests granted. Elevator rests at %s.\n",
		r.Granted(), len(r.Agents), r.ElevatorFloor)
	return b.String()
}

// FormatJSON renders a run result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal sim result: %w", err)
	}
	return string(data), nil
}
