package elevator

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ppiankov/clearlift/internal/model"
	"github.com/ppiankov/clearlift/internal/policy"
	"github.com/ppiankov/clearlift/internal/tracer"
)

// DefaultStepDelay is the simulated travel time between adjacent floors.
const DefaultStepDelay = time.Second

// Elevator is the single shared car. One call sequence (move, then door
// decision) runs at a time; mu is held for the whole sequence.
type Elevator struct {
	mu    sync.Mutex
	floor model.Floor // guarded by mu

	// busy mirrors the panel lock while a sequence runs. Diagnostic only.
	busy atomic.Bool

	stepDelay time.Duration
	rec       model.Recorder
	errOut    io.Writer
}

// New creates an elevator parked on Ground.
func New(opts ...Option) *Elevator {
	e := &Elevator{
		floor:     model.Ground,
		stepDelay: DefaultStepDelay,
		rec:       discard{},
		errOut:    os.Stderr,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Call requests the car to destination on behalf of agent and blocks until
// the agent has been let out somewhere. A denied agent is placed on Ground
// and the call is retried to Ground; the guard is released between the
// denial and the retry, so other waiting calls may run in between.
func (e *Elevator) Call(destination model.Floor, agent *model.Agent) (model.Outcome, error) {
	return e.call(tracer.NewRequestID(), destination, agent)
}

func (e *Elevator) call(requestID string, destination model.Floor, agent *model.Agent) (model.Outcome, error) {
	if !destination.Valid() {
		return model.Outcome{}, fmt.Errorf("elevator: call to floor %d: %w", int(destination), model.ErrUnknownFloor)
	}
	out := model.Outcome{
		RequestID: requestID,
		AgentID:   agent.ID(),
		Clearance: agent.Security(),
		Requested: destination,
	}
	return e.run(out, destination, agent), nil
}

// OpenDoor evaluates the door for agent at requestedFloor wherever the car
// currently is. Denial sends the agent to Ground and retries to Ground,
// exactly as a denied Call does.
func (e *Elevator) OpenDoor(agent *model.Agent, requestedFloor model.Floor) (model.Outcome, error) {
	if !requestedFloor.Valid() {
		return model.Outcome{}, fmt.Errorf("elevator: open door at floor %d: %w", int(requestedFloor), model.ErrUnknownFloor)
	}
	out := model.Outcome{
		RequestID: tracer.NewRequestID(),
		AgentID:   agent.ID(),
		Clearance: agent.Security(),
		Requested: requestedFloor,
	}

	e.mu.Lock()
	e.busy.Store(true)
	res := e.openDoor(out.RequestID, agent, requestedFloor)
	e.busy.Store(false)
	e.mu.Unlock()

	out = settle(out, requestedFloor, res)
	if res.Allowed() {
		return out, nil
	}
	e.retry(out, agent, requestedFloor)
	return e.run(out, model.Ground, agent), nil
}

// CurrentFloor returns the car position. Blocks while a sequence runs.
func (e *Elevator) CurrentFloor() model.Floor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.floor
}

// Busy reports whether a sequence currently holds the panel.
func (e *Elevator) Busy() bool {
	return e.busy.Load()
}

// run loops until a door opens. Ground always opens, so a denied request
// takes exactly one extra pass.
func (e *Elevator) run(out model.Outcome, destination model.Floor, agent *model.Agent) model.Outcome {
	for {
		e.record(model.Event{
			Kind:      model.EventCallPlaced,
			RequestID: out.RequestID,
			AgentID:   agent.ID(),
			Clearance: agent.Security(),
			Origin:    agent.CurrentFloor(),
			Target:    destination,
		})

		res := e.sequence(out.RequestID, destination, agent)
		out = settle(out, destination, res)
		if res.Allowed() {
			return out
		}

		e.retry(out, agent, destination)
		destination = model.Ground
	}
}

// sequence holds the guard for one move + door evaluation.
func (e *Elevator) sequence(requestID string, destination model.Floor, agent *model.Agent) policy.Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.busy.Store(true)
	defer e.busy.Store(false)

	e.moveTo(requestID, destination, agent)
	return e.openDoor(requestID, agent, destination)
}

// moveTo advances the car one floor per step until it reaches destination.
// Caller holds mu.
func (e *Elevator) moveTo(requestID string, destination model.Floor, agent *model.Agent) {
	e.record(model.Event{
		Kind:      model.EventMoving,
		RequestID: requestID,
		AgentID:   agent.ID(),
		Clearance: agent.Security(),
		Origin:    agent.CurrentFloor(),
		Target:    destination,
		Elevator:  e.floor,
	})

	for e.floor != destination {
		if e.stepDelay > 0 {
			time.Sleep(e.stepDelay)
		}
		e.floor = e.floor.Next()
		e.record(model.Event{
			Kind:      model.EventFloorReached,
			RequestID: requestID,
			AgentID:   agent.ID(),
			Clearance: agent.Security(),
			Origin:    agent.CurrentFloor(),
			Target:    destination,
			Elevator:  e.floor,
		})
	}
}

// openDoor applies the access policy. Caller holds mu.
func (e *Elevator) openDoor(requestID string, agent *model.Agent, requestedFloor model.Floor) policy.Result {
	res := policy.Decide(agent.Security(), requestedFloor)

	door := model.Event{
		Kind:      model.EventDoorOpened,
		RequestID: requestID,
		AgentID:   agent.ID(),
		Clearance: agent.Security(),
		Origin:    agent.CurrentFloor(),
		Target:    requestedFloor,
		Elevator:  e.floor,
		Reason:    res.Reason,
	}

	landing := requestedFloor
	if !res.Allowed() {
		door.Kind = model.EventDoorStayedClosed
		landing = model.Ground
	}
	e.record(door)

	moved := agent.MoveToFloor(landing)
	moved.RequestID = requestID
	moved.Elevator = e.floor
	e.record(moved)

	return res
}

func (e *Elevator) retry(out model.Outcome, agent *model.Agent, denied model.Floor) {
	e.record(model.Event{
		Kind:      model.EventRetry,
		RequestID: out.RequestID,
		AgentID:   agent.ID(),
		Clearance: agent.Security(),
		Origin:    agent.CurrentFloor(),
		Target:    model.Ground,
		Reason:    fmt.Sprintf("denied at %s, retrying from ground", denied),
	})
}

func (e *Elevator) record(ev model.Event) {
	ev = ev.Stamp()
	if err := e.rec.Record(ev); err != nil {
		fmt.Fprintf(e.errOut, "elevator: record %s for %s: %v\n", ev.Kind, ev.RequestID, err)
	}
}

// settle folds one door decision into the outcome. The first decision is
// the answer to the original request.
func settle(out model.Outcome, floor model.Floor, res policy.Result) model.Outcome {
	out.Attempts++
	if out.Attempts == 1 {
		out.Granted = res.Allowed()
		out.Reason = res.Reason
	}
	if res.Allowed() {
		out.FinalFloor = floor
	} else {
		out.FinalFloor = model.Ground
	}
	return out
}
