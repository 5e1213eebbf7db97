package model

import "time"

// TimestampFormat is the layout used for event timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Decision is the access policy outcome at a door.
type Decision string

const (
	Allow Decision = "allow"
	Deny  Decision = "deny"
)

// EventKind names one observable step of a call sequence.
type EventKind string

const (
	EventButtonPressed    EventKind = "button_pressed"
	EventCallPlaced       EventKind = "call_placed"
	EventMoving           EventKind = "moving"
	EventFloorReached     EventKind = "floor_reached"
	EventDoorOpened       EventKind = "door_opened"
	EventDoorStayedClosed EventKind = "door_stayed_closed"
	EventAgentMoved       EventKind = "agent_moved"
	EventRetry            EventKind = "retry"
)

// IsMovement reports whether the event mutates or inspects shared elevator
// or agent state, i.e. may only be produced while the elevator guard is held.
func (k EventKind) IsMovement() bool {
	switch k {
	case EventMoving, EventFloorReached, EventDoorOpened, EventDoorStayedClosed, EventAgentMoved:
		return true
	default:
		return false
	}
}

// IsDoor reports whether the event closes a movement sequence.
func (k EventKind) IsDoor() bool {
	return k == EventDoorOpened || k == EventDoorStayedClosed
}

// Event is one record emitted to a Recorder.
//
// Field meaning depends on Kind:
//   - button_pressed, call_placed: Origin is the agent's floor, Target the requested floor.
//   - moving: Elevator is where the car starts, Target the destination.
//   - floor_reached: Elevator is the floor just reached.
//   - door_opened, door_stayed_closed: Target is the requested floor, Reason the policy reason.
//   - agent_moved: Origin → Target is the agent's transition.
//   - retry: Target is the retry destination (always Ground).
type Event struct {
	Timestamp string        `json:"ts"`
	Kind      EventKind     `json:"kind"`
	RequestID string        `json:"request_id"`
	AgentID   string        `json:"agent_id"`
	Clearance SecurityLevel `json:"clearance"`
	Origin    Floor         `json:"origin"`
	Target    Floor         `json:"target"`
	Elevator  Floor         `json:"elevator"`
	Reason    string        `json:"reason,omitempty"`
}

// Stamp sets the timestamp if empty and returns the event.
func (e Event) Stamp() Event {
	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(TimestampFormat)
	}
	return e
}

// Recorder is the event sink every elevator step reports to.
type Recorder interface {
	Record(Event) error
}

// Outcome summarizes one call from press to final door decision.
type Outcome struct {
	RequestID  string        `json:"request_id"`
	AgentID    string        `json:"agent_id"`
	Clearance  SecurityLevel `json:"clearance"`
	Requested  Floor         `json:"requested"`
	Granted    bool          `json:"granted"`
	Attempts   int           `json:"attempts"`
	FinalFloor Floor         `json:"final_floor"`
	Reason     string        `json:"reason"`
}
