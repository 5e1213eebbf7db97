package model

import "sync/atomic"

// Agent is a requester with a fixed clearance and a current floor.
// The floor is only changed by door decisions; it is stored atomically so
// status readers never race the sequence that moves the agent.
type Agent struct {
	id       string
	security SecurityLevel
	floor    atomic.Int32
}

// NewAgent creates an agent standing on start.
func NewAgent(id string, security SecurityLevel, start Floor) *Agent {
	a := &Agent{id: id, security: security}
	a.floor.Store(int32(start))
	return a
}

// ID returns the agent identifier.
func (a *Agent) ID() string { return a.id }

// Security returns the agent's clearance.
func (a *Agent) Security() SecurityLevel { return a.security }

// CurrentFloor returns the floor the agent stands on.
func (a *Agent) CurrentFloor() Floor { return Floor(a.floor.Load()) }

// MoveToFloor unconditionally places the agent on newFloor and returns the
// agent_moved event describing the transition. Moving to the current floor
// changes nothing but still produces the event.
func (a *Agent) MoveToFloor(newFloor Floor) Event {
	prev := Floor(a.floor.Swap(int32(newFloor)))
	return Event{
		Kind:      EventAgentMoved,
		AgentID:   a.id,
		Clearance: a.security,
		Origin:    prev,
		Target:    newFloor,
	}
}
