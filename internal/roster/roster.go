// Package roster tracks the long-lived agents served by one elevator.
package roster

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ppiankov/clearlift/internal/model"
)

// ErrClearanceMismatch is returned when a known agent presents a different clearance.
var ErrClearanceMismatch = errors.New("clearance does not match registered agent")

// ErrUnknownAgent is returned by Get for unregistered IDs.
var ErrUnknownAgent = errors.New("unknown agent")

// ErrMissingAgentID is returned by Resolve for an empty ID.
var ErrMissingAgentID = errors.New("missing agent id")

// Roster maps agent IDs to agents. The first request for an ID registers
// its clearance and start floor; later requests reuse the same agent.
type Roster struct {
	mu     sync.Mutex
	agents map[string]*model.Agent
}

// New creates an empty roster.
func New() *Roster {
	return &Roster{agents: make(map[string]*model.Agent)}
}

// Resolve returns the agent for id, registering it on first sight.
// created reports whether this call registered it. start is only used at
// registration.
func (r *Roster) Resolve(id string, clearance model.SecurityLevel, start model.Floor) (agent *model.Agent, created bool, err error) {
	if id == "" {
		return nil, false, fmt.Errorf("roster: %w", ErrMissingAgentID)
	}
	if !clearance.Valid() {
		return nil, false, fmt.Errorf("roster: agent %s: %w", id, model.ErrUnknownSecurityLevel)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.agents[id]; ok {
		if a.Security() != clearance {
			return nil, false, fmt.Errorf("roster: agent %s registered as %s, got %s: %w", id, a.Security(), clearance, ErrClearanceMismatch)
		}
		return a, false, nil
	}

	if !start.Valid() {
		return nil, false, fmt.Errorf("roster: agent %s start floor: %w", id, model.ErrUnknownFloor)
	}
	a := model.NewAgent(id, clearance, start)
	r.agents[id] = a
	return a, true, nil
}

// Get returns a registered agent.
func (r *Roster) Get(id string) (*model.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	if !ok {
		return nil, fmt.Errorf("roster: %s: %w", id, ErrUnknownAgent)
	}
	return a, nil
}

// Agents returns all registered agents sorted by ID.
func (r *Roster) Agents() []*model.Agent {
	r.mu.Lock()
	out := make([]*model.Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Len returns the number of registered agents.
func (r *Roster) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.agents)
}
