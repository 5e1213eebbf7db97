package scenario

import (
	"time"

	"github.com/ppiankov/clearlift/internal/model"
)

// AgentCase is one agent pressing one button, with optional expectations.
type AgentCase struct {
	ID            string              `yaml:"id"`
	Clearance     model.SecurityLevel `yaml:"clearance"`
	StartFloor    model.Floor         `yaml:"start_floor"`
	Target        model.Floor         `yaml:"target"`
	ExpectFloor   *model.Floor        `yaml:"expect_floor,omitempty"`
	ExpectGranted *bool               `yaml:"expect_granted,omitempty"`
}

// Scenario is a named set of agents released against one elevator at once.
type Scenario struct {
	Name       string        `yaml:"name"`
	StepDelay  time.Duration `yaml:"step_delay"`
	StartFloor model.Floor   `yaml:"start_floor"`
	Agents     []AgentCase   `yaml:"agents"`
}

// CaseResult is the outcome of checking one expectation set.
type CaseResult struct {
	Index    int    `json:"index"`
	Passed   bool   `json:"passed"`
	Agent    string `json:"agent"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Reason   string `json:"reason,omitempty"`
}

// RunResult is the outcome of running one scenario file.
type RunResult struct {
	File   string       `json:"file"`
	Name   string       `json:"name"`
	Total  int          `json:"total"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Events int          `json:"events"`
	Cases  []CaseResult `json:"cases"`
}
