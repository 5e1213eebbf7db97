package journal

import (
	"errors"
	"sync"

	"github.com/ppiankov/clearlift/internal/model"
)

// Memory keeps every recorded event in arrival order.
type Memory struct {
	mu     sync.Mutex
	events []model.Event
}

// NewMemory creates an empty in-memory recorder.
func NewMemory() *Memory {
	return &Memory{}
}

// Record appends ev.
func (m *Memory) Record(ev model.Event) error {
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
	return nil
}

// Events returns a copy of the recorded events.
func (m *Memory) Events() []model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Event, len(m.events))
	copy(out, m.events)
	return out
}

// Len returns the number of recorded events.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// Multi fans each event out to every recorder, in order.
type Multi []model.Recorder

// Record forwards ev to all recorders and joins their failures.
func (m Multi) Record(ev model.Event) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event.
var Discard model.Recorder = discard{}

type discard struct{}

func (discard) Record(model.Event) error { return nil }
