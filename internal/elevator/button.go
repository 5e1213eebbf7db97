package elevator

import (
	"fmt"

	"github.com/ppiankov/clearlift/internal/model"
	"github.com/ppiankov/clearlift/internal/tracer"
)

// Button is the call button for one floor.
type Button struct {
	Floor model.Floor
}

// Buttons returns one button per floor, in floor order.
func Buttons() []Button {
	floors := model.Floors()
	buttons := make([]Button, len(floors))
	for i, f := range floors {
		buttons[i] = Button{Floor: f}
	}
	return buttons
}

// Press records the press and forwards it as a call to the button's floor.
func (b Button) Press(e *Elevator, agent *model.Agent) (model.Outcome, error) {
	if !b.Floor.Valid() {
		return model.Outcome{}, fmt.Errorf("elevator: press button %d: %w", int(b.Floor), model.ErrUnknownFloor)
	}

	requestID := tracer.NewRequestID()
	e.record(model.Event{
		Kind:      model.EventButtonPressed,
		RequestID: requestID,
		AgentID:   agent.ID(),
		Clearance: agent.Security(),
		Origin:    agent.CurrentFloor(),
		Target:    b.Floor,
	})
	return e.call(requestID, b.Floor, agent)
}
