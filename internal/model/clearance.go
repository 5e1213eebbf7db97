package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownSecurityLevel is returned when a clearance name cannot be parsed.
var ErrUnknownSecurityLevel = errors.New("unknown security level")

// SecurityLevel is an agent's clearance. Ordered: comparisons use >=.
type SecurityLevel int

const (
	Confidential SecurityLevel = 0
	Secret       SecurityLevel = 1
	TopSecret    SecurityLevel = 2
)

func (s SecurityLevel) String() string {
	switch s {
	case Confidential:
		return "Confidential"
	case Secret:
		return "Secret"
	case TopSecret:
		return "TopSecret"
	default:
		return fmt.Sprintf("SecurityLevel(%d)", int(s))
	}
}

// Valid reports whether s is one of the defined clearances.
func (s SecurityLevel) Valid() bool {
	return s >= Confidential && s <= TopSecret
}

// SecurityLevels returns all clearances, lowest first.
func SecurityLevels() []SecurityLevel {
	return []SecurityLevel{Confidential, Secret, TopSecret}
}

// ParseSecurityLevel maps a clearance name to a SecurityLevel.
// Matching is case-insensitive; "top_secret", "top-secret" and "top secret"
// are accepted for TopSecret.
func ParseSecurityLevel(s string) (SecurityLevel, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", "", "-", "", " ", "").Replace(norm)
	switch norm {
	case "confidential", "c":
		return Confidential, nil
	case "secret", "s":
		return Secret, nil
	case "topsecret", "ts":
		return TopSecret, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSecurityLevel, s)
	}
}

// MarshalText renders the clearance name for YAML and JSON.
func (s SecurityLevel) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSecurityLevel, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText parses a clearance name.
func (s *SecurityLevel) UnmarshalText(text []byte) error {
	level, err := ParseSecurityLevel(string(text))
	if err != nil {
		return err
	}
	*s = level
	return nil
}
