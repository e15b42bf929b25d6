package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/hostloop/internal/lifecycle"
)

// Scenario drives a simulated host through a scripted sequence of ticks and
// asserts on the events the supervisor raised.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Loaded starts the host with a world already loaded. Otherwise the
	// host starts on the title screen.
	Loaded bool `yaml:"loaded,omitempty"`

	// Options tune the host and supervisor.
	Options Options `yaml:"options,omitempty"`

	// Setup mutates the host before the first tick.
	Setup []Action `yaml:"setup,omitempty"`

	// Ticks is the scripted run: host mutations, console commands, ticks
	// and render passes, executed in order.
	Ticks []Step `yaml:"ticks"`

	// Assertions validate the recorded trace and final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Options configures the simulated host and the supervisor.
type Options struct {
	TickRate           int `yaml:"tick_rate,omitempty"`
	AdvanceCeiling     int `yaml:"advance_ceiling,omitempty"`
	RenderCeiling      int `yaml:"render_ceiling,omitempty"`
	TicksPerTenMinutes int `yaml:"ticks_per_ten_minutes,omitempty"`
	SaveTicks          int `yaml:"save_ticks,omitempty"`
	WanderEvery        int `yaml:"wander_every,omitempty"`
}

// Action is one host mutation. Args are decoded into the argument struct
// of the named action.
type Action struct {
	Action string    `yaml:"action"`
	Args   yaml.Node `yaml:"args,omitempty"`
}

// Step is one entry of a scenario run. Exactly one field is set.
type Step struct {
	// Advance runs this many ticks.
	Advance int `yaml:"advance,omitempty"`

	// Render runs this many render passes.
	Render int `yaml:"render,omitempty"`

	// Command enqueues a console command line.
	Command string `yaml:"command,omitempty"`

	// Action mutates the host.
	Action string    `yaml:"action,omitempty"`
	Args   yaml.Node `yaml:"args,omitempty"`
}

// Assertion validates the trace or the final supervisor state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Channel is the event channel (raised, not_raised, count).
	Channel string `yaml:"channel,omitempty"`

	// Payload is a subset the event payload must match (raised,
	// not_raised).
	Payload any `yaml:"payload,omitempty"`

	// Tick restricts raised/not_raised to one tick. Zero means any tick.
	Tick uint64 `yaml:"tick,omitempty"`

	// Channels is the expected subsequence (order).
	Channels []string `yaml:"channels,omitempty"`

	// Count is the exact number of occurrences (count).
	Count int `yaml:"count"`

	// Stage is the expected final lifecycle stage (stage).
	Stage string `yaml:"stage,omitempty"`

	// Phase is the expected fatal phase, or "none" (fatal).
	Phase string `yaml:"phase,omitempty"`
}

// Assertion type constants.
const (
	AssertRaised    = "raised"
	AssertNotRaised = "not_raised"
	AssertOrder     = "order"
	AssertCount     = "count"
	AssertStage     = "stage"
	AssertFatal     = "fatal"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Ticks) == 0 {
		return fmt.Errorf("ticks list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, a := range s.Setup {
		if _, ok := actions[a.Action]; !ok {
			return fmt.Errorf("setup[%d]: unknown action %q", i, a.Action)
		}
	}

	for i, step := range s.Ticks {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	set := 0
	if st.Advance != 0 {
		set++
	}
	if st.Render != 0 {
		set++
	}
	if st.Command != "" {
		set++
	}
	if st.Action != "" {
		set++
	}
	if set != 1 {
		return fmt.Errorf("ticks[%d]: exactly one of advance, render, command, action is required", index)
	}
	if st.Advance < 0 || st.Render < 0 {
		return fmt.Errorf("ticks[%d]: counts must be positive", index)
	}
	if st.Action != "" {
		if _, ok := actions[st.Action]; !ok {
			return fmt.Errorf("ticks[%d]: unknown action %q", index, st.Action)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRaised, AssertNotRaised:
		if a.Channel == "" {
			return fmt.Errorf("assertions[%d]: channel is required for %s", index, a.Type)
		}
	case AssertOrder:
		if len(a.Channels) == 0 {
			return fmt.Errorf("assertions[%d]: channels list is required for order", index)
		}
	case AssertCount:
		if a.Channel == "" {
			return fmt.Errorf("assertions[%d]: channel is required for count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertStage:
		if _, err := lifecycle.ParseStage(a.Stage); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertFatal:
		switch a.Phase {
		case "advance", "render", "none":
		default:
			return fmt.Errorf("assertions[%d]: phase must be advance, render or none", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
