package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/clearlift/internal/model"
)

// ReplayFilter holds filtering criteria for replay. Empty fields match everything.
type ReplayFilter struct {
	AgentID   string
	RequestID string
	From      time.Time // zero value = no lower bound
	To        time.Time // zero value = no upper bound
}

func (f ReplayFilter) match(e Entry) bool {
	if f.AgentID != "" && e.AgentID != f.AgentID {
		return false
	}
	if f.RequestID != "" && e.RequestID != f.RequestID {
		return false
	}
	if f.From.IsZero() && f.To.IsZero() {
		return true
	}
	ts, err := time.Parse(model.TimestampFormat, e.Timestamp)
	if err != nil {
		return false
	}
	if !f.From.IsZero() && ts.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && ts.After(f.To) {
		return false
	}
	return true
}

// ReplaySummary holds door decision counts and metadata for a replay.
type ReplaySummary struct {
	Total          int    `json:"total"`
	Presses        int    `json:"presses"`
	Granted        int    `json:"granted"`
	Denied         int    `json:"denied"`
	Retries        int    `json:"retries"`
	Agents         int    `json:"agents"`
	Requests       int    `json:"requests"`
	FirstTimestamp string `json:"first_timestamp"`
	LastTimestamp  string `json:"last_timestamp"`
}

// ReplayResult holds filtered entries and summary for a replay.
type ReplayResult struct {
	Filter  string        `json:"filter"`
	Entries []Entry       `json:"entries"`
	Summary ReplaySummary `json:"summary"`
}

// Replay reads the audit log and returns entries matching the filter.
func Replay(path string, filter ReplayFilter) (*ReplayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	result := &ReplayResult{Filter: describeFilter(filter)}
	agents := make(map[string]struct{})
	requests := make(map[string]struct{})

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue // skip malformed lines
		}
		if !filter.match(entry) {
			continue
		}

		result.Entries = append(result.Entries, entry)
		updateSummary(&result.Summary, entry)
		if entry.AgentID != "" {
			agents[entry.AgentID] = struct{}{}
		}
		if entry.RequestID != "" {
			requests[entry.RequestID] = struct{}{}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	result.Summary.Agents = len(agents)
	result.Summary.Requests = len(requests)
	return result, nil
}

func updateSummary(s *ReplaySummary, entry Entry) {
	s.Total++

	switch entry.Kind {
	case model.EventButtonPressed:
		s.Presses++
	case model.EventDoorOpened:
		s.Granted++
	case model.EventDoorStayedClosed:
		s.Denied++
	case model.EventRetry:
		s.Retries++
	}

	if s.FirstTimestamp == "" {
		s.FirstTimestamp = entry.Timestamp
	}
	s.LastTimestamp = entry.Timestamp
}

func describeFilter(f ReplayFilter) string {
	switch {
	case f.RequestID != "" && f.AgentID != "":
		return fmt.Sprintf("agent %s, request %s", f.AgentID, f.RequestID)
	case f.RequestID != "":
		return "request " + f.RequestID
	case f.AgentID != "":
		return "agent " + f.AgentID
	default:
		return "all"
	}
}
