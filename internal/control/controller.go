// Package control is the request-facing front of one shared elevator,
// used by the daemon, gRPC and MCP surfaces.
package control

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ppiankov/clearlift/internal/elevator"
	"github.com/ppiankov/clearlift/internal/model"
	"github.com/ppiankov/clearlift/internal/policy"
	"github.com/ppiankov/clearlift/internal/roster"
)

// PressRequest asks for agent AgentID to press the button for Floor.
// StartFloor only matters the first time the agent is seen.
type PressRequest struct {
	AgentID    string              `json:"agent_id"`
	Clearance  model.SecurityLevel `json:"clearance"`
	StartFloor model.Floor         `json:"start_floor"`
	Floor      model.Floor         `json:"floor"`
}

// CheckRequest asks whether a clearance may enter a floor.
type CheckRequest struct {
	Clearance model.SecurityLevel `json:"clearance"`
	Floor     model.Floor         `json:"floor"`
}

// CheckResponse is the policy decision for a CheckRequest.
type CheckResponse struct {
	Clearance model.SecurityLevel `json:"clearance"`
	Floor     model.Floor         `json:"floor"`
	Allowed   bool                `json:"allowed"`
	Reason    string              `json:"reason"`
	PolicyID  string              `json:"policy_id"`
}

// AgentStatus is one registered agent's position.
type AgentStatus struct {
	ID        string              `json:"id"`
	Clearance model.SecurityLevel `json:"clearance"`
	Floor     model.Floor         `json:"floor"`
}

// Status is a snapshot of the elevator and its agents.
type Status struct {
	ElevatorFloor model.Floor   `json:"elevator_floor"`
	Busy          bool          `json:"busy"`
	Presses       int64         `json:"presses"`
	Granted       int64         `json:"granted"`
	Denied        int64         `json:"denied"`
	Agents        []AgentStatus `json:"agents"`
}

// Controller serves press, check and status requests against one elevator.
type Controller struct {
	elev    *elevator.Elevator
	roster  *roster.Roster
	buttons []elevator.Button

	presses atomic.Int64
	granted atomic.Int64
	denied  atomic.Int64
}

// New wraps e. A nil roster starts empty.
func New(e *elevator.Elevator, r *roster.Roster) *Controller {
	if r == nil {
		r = roster.New()
	}
	return &Controller{elev: e, roster: r, buttons: elevator.Buttons()}
}

// Press resolves the agent and presses the requested button, blocking until
// the whole call sequence (including any retry to Ground) has finished.
// ctx is only checked before the press; a sequence in progress is never
// abandoned.
func (c *Controller) Press(ctx context.Context, req PressRequest) (model.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return model.Outcome{}, err
	}
	if !req.Floor.Valid() {
		return model.Outcome{}, fmt.Errorf("control: floor %s: %w", req.Floor, model.ErrUnknownFloor)
	}

	agent, _, err := c.roster.Resolve(req.AgentID, req.Clearance, req.StartFloor)
	if err != nil {
		return model.Outcome{}, err
	}

	c.presses.Add(1)
	out, err := c.buttons[req.Floor].Press(c.elev, agent)
	if err != nil {
		return out, fmt.Errorf("control: press: %w", err)
	}
	if out.Granted {
		c.granted.Add(1)
	} else {
		c.denied.Add(1)
	}
	return out, nil
}

// Check evaluates the access policy without moving anything.
func (c *Controller) Check(req CheckRequest) (CheckResponse, error) {
	if !req.Clearance.Valid() {
		return CheckResponse{}, fmt.Errorf("control: %w", model.ErrUnknownSecurityLevel)
	}
	if !req.Floor.Valid() {
		return CheckResponse{}, fmt.Errorf("control: %w", model.ErrUnknownFloor)
	}
	res := policy.Decide(req.Clearance, req.Floor)
	return CheckResponse{
		Clearance: req.Clearance,
		Floor:     req.Floor,
		Allowed:   res.Allowed(),
		Reason:    res.Reason,
		PolicyID:  res.PolicyID,
	}, nil
}

// Status reports the car position and every registered agent. It waits for
// an in-flight sequence to finish before reading the car position.
func (c *Controller) Status(ctx context.Context) (Status, error) {
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}
	busy := c.elev.Busy()
	st := Status{
		ElevatorFloor: c.elev.CurrentFloor(),
		Busy:          busy,
		Presses:       c.presses.Load(),
		Granted:       c.granted.Load(),
		Denied:        c.denied.Load(),
	}
	for _, a := range c.roster.Agents() {
		st.Agents = append(st.Agents, AgentStatus{ID: a.ID(), Clearance: a.Security(), Floor: a.CurrentFloor()})
	}
	return st, nil
}

// IsRequestError reports whether err was caused by bad input rather than
// an internal failure.
func IsRequestError(err error) bool {
	return errors.Is(err, model.ErrUnknownFloor) ||
		errors.Is(err, model.ErrUnknownSecurityLevel) ||
		errors.Is(err, roster.ErrClearanceMismatch) ||
		errors.Is(err, roster.ErrUnknownAgent) ||
		errors.Is(err, roster.ErrMissingAgentID)
}
