package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is one simulation run's configuration.
type Scenario struct {
	ScenarioID    string          `yaml:"scenario_id"`
	Seed          uint64          `yaml:"seed"`
	DurationMS    int64           `yaml:"duration_ms"`
	Repetitions   int             `yaml:"repetitions"`
	Mechanism     MechanismConfig `yaml:"mechanism"`
	PnLConvention string          `yaml:"pnl_convention"`
	Latency       LatencyConfig   `yaml:"latency"`
	Accounts      []AccountConfig `yaml:"accounts"`
}

// MechanismConfig selects a mechanism and its settings.
type MechanismConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"params"`
}

// LatencyConfig holds the constant latency model's delays.
type LatencyConfig struct {
	SubmissionMS int64 `yaml:"submission_ms"`
	FillMS       int64 `yaml:"fill_ms"`
}

// AccountConfig seeds one participant account at run start.
type AccountConfig struct {
	Owner     string `yaml:"owner"`
	Cash      int64  `yaml:"cash"`
	Inventory int64  `yaml:"inventory"`
}

// LoadScenario reads and validates a YAML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	s := &Scenario{
		Repetitions:   1,
		PnLConvention: "average_cost",
		Mechanism:     MechanismConfig{Name: "clob"},
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the scenario for values the core cannot run with.
func (s *Scenario) Validate() error {
	if s.ScenarioID == "" {
		return fmt.Errorf("scenario_id must not be empty")
	}
	if s.DurationMS <= 0 {
		return fmt.Errorf("duration_ms must be positive, got %d", s.DurationMS)
	}
	if s.Repetitions < 1 {
		return fmt.Errorf("repetitions must be at least 1, got %d", s.Repetitions)
	}
	switch s.Mechanism.Name {
	case "clob", "null":
	default:
		return fmt.Errorf("unknown mechanism %q", s.Mechanism.Name)
	}
	switch s.PnLConvention {
	case "average_cost", "fifo_lot":
	default:
		return fmt.Errorf("unknown pnl_convention %q", s.PnLConvention)
	}
	if s.Latency.SubmissionMS < 0 || s.Latency.FillMS < 0 {
		return fmt.Errorf("latency delays must be non-negative")
	}
	seen := make(map[string]bool, len(s.Accounts))
	for _, a := range s.Accounts {
		if a.Owner == "" {
			return fmt.Errorf("account owner must not be empty")
		}
		if seen[a.Owner] {
			return fmt.Errorf("duplicate account owner %q", a.Owner)
		}
		seen[a.Owner] = true
	}
	return nil
}
