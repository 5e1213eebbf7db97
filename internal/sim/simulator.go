// Package sim drives a population of agents against one shared elevator.
package sim

import (
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ppiankov/clearlift/internal/elevator"
	"github.com/ppiankov/clearlift/internal/model"
)

// AgentResult is the outcome for one simulated agent.
type AgentResult struct {
	ID        string              `json:"id"`
	Clearance model.SecurityLevel `json:"clearance"`
	Start     model.Floor         `json:"start"`
	Target    model.Floor         `json:"target"`
	Final     model.Floor         `json:"final"`
	RequestID string              `json:"request_id"`
	Granted   bool                `json:"granted"`
	Attempts  int                 `json:"attempts"`
	Reason    string              `json:"reason"`
	Error     string              `json:"error,omitempty"`
}

// Result summarizes a whole run.
type Result struct {
	Seed          uint64        `json:"seed"`
	ElevatorFloor model.Floor   `json:"elevator_floor"`
	Events        int64         `json:"events"`
	Elapsed       time.Duration `json:"elapsed_ns"`
	Agents        []AgentResult `json:"agents"`
}

// Granted counts agents whose original request was admitted.
func (r *Result) Granted() int {
	n := 0
	for _, a := range r.Agents {
		if a.Granted {
			n++
		}
	}
	return n
}

// Options tune a run without touching the YAML config.
type Options struct {
	// ErrOut receives recorder failures. Defaults to stderr.
	ErrOut io.Writer
}

type counter struct {
	next model.Recorder
	n    atomic.Int64
}

func (c *counter) Record(ev model.Event) error {
	c.n.Add(1)
	return c.next.Record(ev)
}

// Run validates cfg, builds the elevator and its call buttons, and presses
// one button per agent, each from its own goroutine. It returns once every
// agent has finished.
func Run(cfg *Config, rec model.Recorder) (*Result, error) {
	return RunWithOptions(cfg, rec, Options{})
}

// RunWithOptions is Run with explicit options.
func RunWithOptions(cfg *Config, rec model.Recorder, opts Options) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sim config: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("sim: nil recorder")
	}
	errOut := opts.ErrOut
	if errOut == nil {
		errOut = os.Stderr
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed))

	count := &counter{next: rec}
	e := elevator.New(
		elevator.WithStepDelay(cfg.StepDelay),
		elevator.WithStartFloor(cfg.StartFloor),
		elevator.WithRecorder(count),
		elevator.WithErrorOutput(errOut),
	)
	buttons := elevator.Buttons()

	// Targets are drawn up front so a seed fixes them regardless of
	// goroutine scheduling.
	results := make([]AgentResult, len(cfg.Agents))
	agents := make([]*model.Agent, len(cfg.Agents))
	for i, spec := range cfg.Agents {
		target := model.Floor(rng.IntN(model.FloorCount))
		if spec.Target != nil {
			target = *spec.Target
		}
		agents[i] = model.NewAgent(spec.ID, spec.Clearance, spec.StartFloor)
		results[i] = AgentResult{
			ID:        spec.ID,
			Clearance: spec.Clearance,
			Start:     spec.StartFloor,
			Target:    target,
		}
	}

	start := time.Now()
	var wg sync.WaitGroup
	for i := range agents {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := &results[i]
			out, err := buttons[r.Target].Press(e, agents[i])
			if err != nil {
				r.Error = err.Error()
			}
			r.RequestID = out.RequestID
			r.Granted = out.Granted
			r.Attempts = out.Attempts
			r.Reason = out.Reason
			r.Final = agents[i].CurrentFloor()
		}(i)
	}
	wg.Wait()

	return &Result{
		Seed:          seed,
		ElevatorFloor: e.CurrentFloor(),
		Events:        count.n.Load(),
		Elapsed:       time.Since(start),
		Agents:        results,
	}, nil
}
