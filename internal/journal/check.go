package journal

import (
	"fmt"

	"github.com/ppiankov/clearlift/internal/model"
)

// Violation is the first event that breaks sequencing.
type Violation struct {
	Index  int
	Event  model.Event
	Reason string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("event %d (%s %s): %s", v.Index, v.Event.Kind, v.Event.RequestID, v.Reason)
}

// denial progress for one request
const (
	needGroundMove = iota + 1
	needRetry
	needGroundDoor
)

// CheckSerialized verifies a global event trace:
//
//   - movement sequences never interleave: from a request's "moving" (or a
//     direct door evaluation) through its agent_moved, no other request
//     produces a movement, door or agent event;
//   - floor_reached only occurs inside a sequence;
//   - every door_stayed_closed is followed by agent_moved to Ground, a retry,
//     and finally a door_opened at Ground for the same request.
func CheckSerialized(events []model.Event) error {
	active := ""
	denials := make(map[string]int)

	for i, ev := range events {
		if ev.Kind.IsMovement() {
			switch {
			case ev.Kind == model.EventMoving:
				if active != "" {
					return &Violation{Index: i, Event: ev, Reason: fmt.Sprintf("started moving while %s holds the car", active)}
				}
				active = ev.RequestID
			case active == "" && ev.Kind.IsDoor():
				// Door evaluated without travel.
				active = ev.RequestID
			case active == "":
				return &Violation{Index: i, Event: ev, Reason: "outside any movement sequence"}
			case ev.RequestID != active:
				return &Violation{Index: i, Event: ev, Reason: fmt.Sprintf("interleaved with sequence %s", active)}
			}
		}

		switch ev.Kind {
		case model.EventDoorStayedClosed:
			denials[ev.RequestID] = needGroundMove
		case model.EventAgentMoved:
			if denials[ev.RequestID] == needGroundMove {
				if ev.Target != model.Ground {
					return &Violation{Index: i, Event: ev, Reason: fmt.Sprintf("denied agent moved to %s instead of ground", ev.Target)}
				}
				denials[ev.RequestID] = needRetry
			}
			active = ""
		case model.EventRetry:
			if denials[ev.RequestID] != needRetry {
				return &Violation{Index: i, Event: ev, Reason: "retry without a preceding denial"}
			}
			denials[ev.RequestID] = needGroundDoor
		case model.EventDoorOpened:
			if state, ok := denials[ev.RequestID]; ok {
				if state != needGroundDoor || ev.Target != model.Ground {
					return &Violation{Index: i, Event: ev, Reason: fmt.Sprintf("door opened at %s before ground retry resolved", ev.Target)}
				}
				delete(denials, ev.RequestID)
			}
		}
	}

	if active != "" {
		return &Violation{Index: len(events), Reason: fmt.Sprintf("sequence %s never finished", active)}
	}
	for id := range denials {
		return &Violation{Index: len(events), Event: model.Event{RequestID: id}, Reason: "denial never resolved at ground"}
	}
	return nil
}
