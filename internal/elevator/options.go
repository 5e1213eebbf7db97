package elevator

import (
	"io"
	"time"

	"github.com/ppiankov/clearlift/internal/model"
)

// Option configures an Elevator at creation time.
type Option func(*Elevator)

// WithStepDelay sets the simulated travel time between adjacent floors.
// Zero disables the delay.
func WithStepDelay(d time.Duration) Option {
	return func(e *Elevator) {
		if d >= 0 {
			e.stepDelay = d
		}
	}
}

// WithStartFloor sets the floor the car is parked on at creation.
func WithStartFloor(f model.Floor) Option {
	return func(e *Elevator) {
		if f.Valid() {
			e.floor = f
		}
	}
}

// WithRecorder sets the sink that receives every elevator event.
func WithRecorder(r model.Recorder) Option {
	return func(e *Elevator) {
		if r != nil {
			e.rec = r
		}
	}
}

// WithErrorOutput sets where recorder failures are reported (default stderr).
func WithErrorOutput(w io.Writer) Option {
	return func(e *Elevator) {
		if w != nil {
			e.errOut = w
		}
	}
}

type discard struct{}

func (discard) Record(model.Event) error { return nil }
