package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownFloor is returned when a floor value is outside the building.
var ErrUnknownFloor = errors.New("unknown floor")

// Floor is one of the building's levels, in travel order.
type Floor int

const (
	Ground     Floor = 0
	Secure     Floor = 1
	TopSecret1 Floor = 2
	TopSecret2 Floor = 3
)

// FloorCount is the number of floors served by the elevator.
const FloorCount = 4

// Next returns the cyclic successor: G → S → T1 → T2 → G.
func (f Floor) Next() Floor {
	return Floor((int(f) + 1) % FloorCount)
}

// Valid reports whether f is one of the defined floors.
func (f Floor) Valid() bool {
	return f >= Ground && f <= TopSecret2
}

// String returns the short floor code (G, S, T1, T2).
func (f Floor) String() string {
	switch f {
	case Ground:
		return "G"
	case Secure:
		return "S"
	case TopSecret1:
		return "T1"
	case TopSecret2:
		return "T2"
	default:
		return fmt.Sprintf("Floor(%d)", int(f))
	}
}

// Name returns the long floor name.
func (f Floor) Name() string {
	switch f {
	case Ground:
		return "Ground"
	case Secure:
		return "Secure"
	case TopSecret1:
		return "TopSecret1"
	case TopSecret2:
		return "TopSecret2"
	default:
		return f.String()
	}
}

// Floors returns every floor in travel order.
func Floors() []Floor {
	return []Floor{Ground, Secure, TopSecret1, TopSecret2}
}

// ParseFloor accepts a floor code, long name or index, case-insensitively.
func ParseFloor(s string) (Floor, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	switch norm {
	case "g", "ground":
		return Ground, nil
	case "s", "secure":
		return Secure, nil
	case "t1", "topsecret1", "top_secret_1":
		return TopSecret1, nil
	case "t2", "topsecret2", "top_secret_2":
		return TopSecret2, nil
	}
	if n, err := strconv.Atoi(norm); err == nil && Floor(n).Valid() {
		return Floor(n), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFloor, s)
}

// MarshalText renders the floor code for YAML and JSON.
func (f Floor) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFloor, int(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText parses a floor code, name or index.
func (f *Floor) UnmarshalText(text []byte) error {
	floor, err := ParseFloor(string(text))
	if err != nil {
		return err
	}
	*f = floor
	return nil
}
