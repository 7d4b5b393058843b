package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rpn/internal/engine"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Setup values are pushed in order before the steps run.
	// Setup pushes are assumed to succeed.
	Setup []float64 `yaml:"setup,omitempty"`

	// Steps is the main flow.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state and the trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one session primitive. Exactly one of Push, Op, Clear or State
// must be set.
type Step struct {
	Push  *float64 `yaml:"push,omitempty"`
	Op    string   `yaml:"op,omitempty"`
	Clear bool     `yaml:"clear,omitempty"`
	State bool     `yaml:"state,omitempty"`

	// Expect is checked against the step outcome. Nil means no check.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Action returns the primitive the step invokes.
func (s Step) Action() string {
	switch {
	case s.Push != nil:
		return ActionPush
	case s.Op != "":
		return ActionOp
	case s.Clear:
		return ActionClear
	case s.State:
		return ActionState
	default:
		return ""
	}
}

// Expect describes the expected outcome of a step.
type Expect struct {
	// Error is the expected error kind, e.g. "DivisionByZero".
	// Empty means the step must succeed.
	Error string `yaml:"error,omitempty"`

	// Stack is the expected stack after the step, bottom-to-top.
	Stack *[]float64 `yaml:"stack,omitempty"`

	// Size is the expected stack size after the step.
	Size *int `yaml:"size,omitempty"`
}

// Assertion validates the final state or the trace.
type Assertion struct {
	// Type is one of final_stack, final_size, error_count.
	Type string `yaml:"type"`

	// Stack is the expected final stack (final_stack).
	Stack *[]float64 `yaml:"stack,omitempty"`

	// Size is the expected final size (final_size).
	Size *int `yaml:"size,omitempty"`

	// Count is the expected number of failed steps (error_count).
	Count *int `yaml:"count,omitempty"`

	// Kind restricts error_count to one error kind.
	Kind string `yaml:"kind,omitempty"`
}

// Step actions.
const (
	ActionPush  = "push"
	ActionOp    = "op"
	ActionClear = "clear"
	ActionState = "state"
)

// Assertion type constants.
const (
	AssertFinalStack = "final_stack"
	AssertFinalSize  = "final_size"
	AssertErrorCount = "error_count"
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

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
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

// FindScenarios returns the .yaml and .yml files under dir, sorted.
func FindScenarios(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		set := 0
		if step.Push != nil {
			set++
		}
		if step.Op != "" {
			set++
		}
		if step.Clear {
			set++
		}
		if step.State {
			set++
		}
		if set != 1 {
			return fmt.Errorf("steps[%d]: exactly one of push, op, clear, state is required", i)
		}
		if step.Expect != nil && step.Expect.Error != "" {
			if _, ok := engine.ParseKind(step.Expect.Error); !ok {
				return fmt.Errorf("steps[%d].expect: unknown error kind %q", i, step.Expect.Error)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
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
	case AssertFinalStack:
		if a.Stack == nil {
			return fmt.Errorf("assertions[%d]: stack is required for final_stack", index)
		}
	case AssertFinalSize:
		if a.Size == nil {
			return fmt.Errorf("assertions[%d]: size is required for final_size", index)
		}
		if *a.Size < 0 {
			return fmt.Errorf("assertions[%d]: size must be non-negative", index)
		}
	case AssertErrorCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for error_count", index)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for error_count", index)
		}
		if a.Kind != "" {
			if _, ok := engine.ParseKind(a.Kind); !ok {
				return fmt.Errorf("assertions[%d]: unknown error kind %q", index, a.Kind)
			}
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
