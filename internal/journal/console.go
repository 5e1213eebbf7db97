package journal

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ppiankov/clearlift/internal/model"
)

// Console narrates events as one human-readable line each.
type Console struct {
	w          io.Writer
	timestamps bool
	mu         sync.Mutex
}

// NewConsole writes narration to w. With timestamps, each line is prefixed
// with the event time and request ID.
func NewConsole(w io.Writer, timestamps bool) *Console {
	return &Console{w: w, timestamps: timestamps}
}

// Record writes the narration line for ev.
func (c *Console) Record(ev model.Event) error {
	line := Describe(ev)
	if c.timestamps {
		line = fmt.Sprintf("%s %-14s %s", clock(ev.Timestamp), ev.RequestID, line)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.w, line)
	return err
}

// Describe renders an event as a sentence.
func Describe(ev model.Event) string {
	who := ev.AgentID
	if who == "" {
		who = "agent"
	}

	switch ev.Kind {
	case model.EventButtonPressed:
		return fmt.Sprintf("Agent %s on floor %s presses the elevator button to go to %s.", who, ev.Origin, ev.Target)
	case model.EventCallPlaced:
		return fmt.Sprintf("Elevator called by agent %s from %s to %s.", who, ev.Origin, ev.Target)
	case model.EventMoving:
		return fmt.Sprintf("Elevator is moving from %s to %s...", ev.Elevator, ev.Target)
	case model.EventFloorReached:
		return fmt.Sprintf("Elevator is now at %s.", ev.Elevator)
	case model.EventDoorOpened:
		return fmt.Sprintf("Elevator door opens at %s for agent %s with %s access.", ev.Target, who, ev.Clearance)
	case model.EventDoorStayedClosed:
		return fmt.Sprintf("Agent %s with %s access cannot access floor %s. Door stays closed.", who, ev.Clearance, ev.Target)
	case model.EventAgentMoved:
		return fmt.Sprintf("Agent %s with %s access is moving from %s to %s.", who, ev.Clearance, ev.Origin, ev.Target)
	case model.EventRetry:
		return fmt.Sprintf("Agent %s is moved back to the ground floor and will try again.", who)
	default:
		return fmt.Sprintf("%s: agent %s %s → %s", ev.Kind, who, ev.Origin, ev.Target)
	}
}

func clock(ts string) string {
	t, err := time.Parse(model.TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05.000")
}
