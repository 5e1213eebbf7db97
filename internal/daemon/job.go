// Package daemon serves elevator requests dropped as JSON files into an
// inbox directory. Each request is pressed through the shared controller
// and its result written to the outbox directory.
package daemon

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ppiankov/clearlift/internal/control"
	"github.com/ppiankov/clearlift/internal/model"
)

// Valid job types that the daemon can process.
const (
	JobTypePress = "press"
	JobTypeCheck = "check"
)

// validJobTypes is the set of accepted job type values.
var validJobTypes = map[string]bool{
	JobTypePress: true,
	JobTypeCheck: true,
}

// validID matches alphanumeric characters, dashes, and underscores only.
var validID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Job is one request dropped into the inbox.
type Job struct {
	ID         string              `json:"id"`
	Type       string              `json:"type"`
	AgentID    string              `json:"agent_id,omitempty"`
	Clearance  model.SecurityLevel `json:"clearance"`
	StartFloor model.Floor         `json:"start_floor"`
	Floor      model.Floor         `json:"floor"`
	Source     string              `json:"source,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

// Result is written to the outbox after processing a job.
type Result struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type,omitempty"`
	Status      string                 `json:"status"`
	Outcome     *model.Outcome         `json:"outcome,omitempty"`
	Check       *control.CheckResponse `json:"check,omitempty"`
	Error       string                 `json:"error,omitempty"`
	CompletedAt time.Time              `json:"completed_at"`
}

// Result status values.
const (
	ResultGranted = "granted"
	ResultDenied  = "denied"
	ResultDone    = "done"
	ResultFailed  = "failed"
)

// ValidateJob checks that a job has all required fields and safe values.
func ValidateJob(j *Job) error {
	if j.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if strings.Contains(j.ID, "..") {
		return fmt.Errorf("job ID must not contain '..'")
	}
	if !validID.MatchString(j.ID) {
		return fmt.Errorf("job ID contains invalid characters: only alphanumeric, dash, and underscore allowed")
	}
	if j.Type == "" {
		return fmt.Errorf("job type is required")
	}
	if !validJobTypes[j.Type] {
		return fmt.Errorf("invalid job type %q: must be one of: press, check", j.Type)
	}
	if j.Type == JobTypePress && j.AgentID == "" {
		return fmt.Errorf("agent_id is required for press jobs")
	}
	if !j.Clearance.Valid() {
		return fmt.Errorf("clearance: %w", model.ErrUnknownSecurityLevel)
	}
	if !j.Floor.Valid() || !j.StartFloor.Valid() {
		return fmt.Errorf("floor: %w", model.ErrUnknownFloor)
	}
	return nil
}
