package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/clearlift/internal/journal"
	"github.com/ppiankov/clearlift/internal/model"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders a ReplayResult as a human-readable text timeline.
func FormatTimeline(result *ReplayResult) string {
	if len(result.Entries) == 0 {
		return fmt.Sprintf("Replay: %s | No entries found.\n", result.Filter)
	}

	var b strings.Builder

	first := formatDateRange(result.Summary.FirstTimestamp)
	last := formatTimeOnly(result.Summary.LastTimestamp)
	b.WriteString(fmt.Sprintf("Replay: %s | %s–%s UTC\n", result.Filter, first, last))
	b.WriteString(separator + "\n")

	for _, e := range result.Entries {
		ts := formatTimeOnly(e.Timestamp)
		tag := ""
		if e.Kind == model.EventDoorStayedClosed {
			tag = "  [denied]"
		}
		b.WriteString(fmt.Sprintf("%-10s %-14s %s%s\n", ts, e.RequestID, journal.Describe(e.Event), tag))
	}

	b.WriteString(separator + "\n")
	b.WriteString(formatSummary(result.Summary))

	return b.String()
}

// FormatJSON renders a ReplayResult as indented JSON.
func FormatJSON(result *ReplayResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal replay result: %w", err)
	}
	return string(data), nil
}

func formatDateRange(ts string) string {
	t, err := time.Parse(model.TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimeOnly(ts string) string {
	t, err := time.Parse(model.TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05")
}

func formatSummary(s ReplaySummary) string {
	parts := []string{fmt.Sprintf("%d events", s.Total)}
	if s.Presses > 0 {
		parts = append(parts, fmt.Sprintf("%d presses", s.Presses))
	}
	if s.Granted > 0 {
		parts = append(parts, fmt.Sprintf("%d granted", s.Granted))
	}
	if s.Denied > 0 {
		parts = append(parts, fmt.Sprintf("%d denied", s.Denied))
	}
	if s.Retries > 0 {
		parts = append(parts, fmt.Sprintf("%d retries", s.Retries))
	}
	return fmt.Sprintf("Summary: %s | Agents: %d | Requests: %d\n",
		strings.Join(parts, ", "), s.Agents, s.Requests)
}
