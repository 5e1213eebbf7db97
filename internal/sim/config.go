package sim

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/clearlift/internal/elevator"
	"github.com/ppiankov/clearlift/internal/model"
	"github.com/ppiankov/clearlift/internal/tracer"
)

// AgentSpec describes one simulated agent.
type AgentSpec struct {
	ID         string              `yaml:"id" json:"id"`
	Clearance  model.SecurityLevel `yaml:"clearance" json:"clearance"`
	StartFloor model.Floor         `yaml:"start_floor" json:"start_floor"`
	// Target is picked at random when nil.
	Target *model.Floor `yaml:"target,omitempty" json:"target,omitempty"`
}

// Config holds simulation parameters.
type Config struct {
	StepDelay  time.Duration `yaml:"step_delay"`
	StartFloor model.Floor   `yaml:"start_floor"`
	Seed       uint64        `yaml:"seed"` // 0 = seeded from the clock
	Agents     []AgentSpec   `yaml:"agents"`
}

// DefaultConfig returns the classic three-agent run: one agent per
// clearance, each starting on a different floor, random targets.
func DefaultConfig() *Config {
	return &Config{
		StepDelay:  elevator.DefaultStepDelay,
		StartFloor: model.Ground,
		Agents: []AgentSpec{
			{ID: "confidential", Clearance: model.Confidential, StartFloor: model.Ground},
			{ID: "secret", Clearance: model.Secret, StartFloor: model.Secure},
			{ID: "topsecret", Clearance: model.TopSecret, StartFloor: model.TopSecret1},
		},
	}
}

// DefaultConfigPath returns ~/.clearlift/sim.yaml, or "" if the home
// directory is unknown.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".clearlift", "sim.yaml")
}

// LoadConfig loads simulation configuration from a YAML file.
// Empty path falls back to ~/.clearlift/sim.yaml.
// Missing file returns defaults. Invalid YAML returns an error.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
		if path == "" {
			return DefaultConfig(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read sim config: %w", err)
	}

	// Start with defaults, YAML overwrites only specified fields
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse sim config: %w", err)
	}

	return cfg, nil
}

// Marshal renders cfg as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks the roster and fills generated agent IDs.
func (c *Config) Validate() error {
	if c.StepDelay < 0 {
		return fmt.Errorf("step_delay must not be negative, got %s", c.StepDelay)
	}
	if !c.StartFloor.Valid() {
		return fmt.Errorf("start_floor: %w", model.ErrUnknownFloor)
	}
	if len(c.Agents) == 0 {
		return errors.New("at least one agent is required")
	}

	seen := make(map[string]bool, len(c.Agents))
	for i := range c.Agents {
		a := &c.Agents[i]
		if a.ID == "" {
			a.ID = tracer.NewAgentID()
		}
		if seen[a.ID] {
			return fmt.Errorf("duplicate agent id %q", a.ID)
		}
		seen[a.ID] = true

		if !a.Clearance.Valid() {
			return fmt.Errorf("agent %s: %w", a.ID, model.ErrUnknownSecurityLevel)
		}
		if !a.StartFloor.Valid() {
			return fmt.Errorf("agent %s start_floor: %w", a.ID, model.ErrUnknownFloor)
		}
		if a.Target != nil && !a.Target.Valid() {
			return fmt.Errorf("agent %s target: %w", a.ID, model.ErrUnknownFloor)
		}
	}
	return nil
}
