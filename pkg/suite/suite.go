// Package suite runs YAML-described verification suites against an
// inventory: each step executes, parses, binds, asserts, or cross-references
// through the core packages. Assertion failures are collected as data and
// the run continues; session and infrastructure errors abort the affected
// device's remaining steps.
package suite

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/netcheck-network/netcheck/pkg/decipher"
)

// Step actions.
const (
	ActionExecute        = "execute"
	ActionForEach        = "for-each"
	ActionAssert         = "assert"
	ActionCrossReference = "cross-reference"
	ActionEnterConfig    = "enter-config"
	ActionCommit         = "commit"
	ActionRollback       = "rollback"
	ActionWait           = "wait"
)

// BindSpec adds a step's capture values to a named set.
type BindSpec struct {
	Set     string `yaml:"set"`
	Capture string `yaml:"capture"`
}

// BindMapSpec builds a named key→value mapping from two capture paths.
type BindMapSpec struct {
	Name  string `yaml:"name"`
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// Step is one suite action. Fields beyond Action apply per action; Validate
// enforces which.
type Step struct {
	Name   string `yaml:"name,omitempty"`
	Action string `yaml:"action"`
	Device string `yaml:"device,omitempty"`

	// execute / assert: either a literal command or a dialect operation.
	Command string            `yaml:"command,omitempty"`
	Op      string            `yaml:"op,omitempty"`
	Args    map[string]string `yaml:"args,omitempty"`

	// Schema parses the response; empty falls back to the dialect's default
	// schema for Op. Expect is the assertion schema for assert steps.
	Schema *decipher.Schema `yaml:"schema,omitempty"`
	Expect *decipher.Schema `yaml:"expect,omitempty"`

	Bind    []BindSpec   `yaml:"bind,omitempty"`
	BindMap *BindMapSpec `yaml:"bind_map,omitempty"`

	// for-each
	Set      string `yaml:"set,omitempty"`
	Template string `yaml:"template,omitempty"`
	FailFast bool   `yaml:"fail_fast,omitempty"`
	Parallel int    `yaml:"parallel,omitempty"`

	// cross-reference
	Left  string `yaml:"left,omitempty"`
	Right string `yaml:"right,omitempty"`
	Canon string `yaml:"canon,omitempty"`

	// wait
	Wait string `yaml:"wait,omitempty"`
}

// Suite is a named sequence of steps over inventory devices. Inventory is an
// optional default inventory path; a caller-supplied path wins.
type Suite struct {
	Name      string `yaml:"name"`
	Inventory string `yaml:"inventory,omitempty"`
	Steps     []Step `yaml:"steps"`
}

// Load parses and validates a suite from YAML.
func Load(data []byte) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing suite: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadFile parses and validates a suite YAML file.
func LoadFile(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading suite %s: %w", path, err)
	}
	s, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate checks the suite's internal consistency.
func (s *Suite) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("suite has no name")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("suite %s has no steps", s.Name)
	}
	for i := range s.Steps {
		if err := s.Steps[i].validate(); err != nil {
			return fmt.Errorf("suite %s step %d: %w", s.Name, i+1, err)
		}
	}
	return nil
}

func (st *Step) validate() error {
	needsDevice := func() error {
		if st.Device == "" {
			return fmt.Errorf("action %s requires a device", st.Action)
		}
		return nil
	}
	needsCommand := func() error {
		if st.Command == "" && st.Op == "" {
			return fmt.Errorf("action %s requires a command or an op", st.Action)
		}
		if st.Command != "" && st.Op != "" {
			return fmt.Errorf("action %s takes a command or an op, not both", st.Action)
		}
		return nil
	}

	switch st.Action {
	case ActionExecute:
		if err := needsDevice(); err != nil {
			return err
		}
		if err := needsCommand(); err != nil {
			return err
		}
	case ActionAssert:
		if err := needsDevice(); err != nil {
			return err
		}
		if err := needsCommand(); err != nil {
			return err
		}
		if st.Expect == nil {
			return fmt.Errorf("assert requires an expect schema")
		}
	case ActionForEach:
		if err := needsDevice(); err != nil {
			return err
		}
		if st.Set == "" || st.Template == "" {
			return fmt.Errorf("for-each requires set and template")
		}
	case ActionCrossReference:
		if st.Left == "" || st.Right == "" {
			return fmt.Errorf("cross-reference requires left and right mappings")
		}
	case ActionEnterConfig, ActionCommit, ActionRollback:
		if err := needsDevice(); err != nil {
			return err
		}
	case ActionWait:
		d, err := time.ParseDuration(st.Wait)
		if err != nil || d <= 0 {
			return fmt.Errorf("wait requires a positive duration, got %q", st.Wait)
		}
	case "":
		return fmt.Errorf("step has no action")
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}

	if st.Schema != nil {
		if err := st.Schema.Validate(); err != nil {
			return err
		}
	}
	if st.Expect != nil {
		if err := st.Expect.Validate(); err != nil {
			return err
		}
	}
	for _, b := range st.Bind {
		if b.Set == "" || b.Capture == "" {
			return fmt.Errorf("bind requires set and capture")
		}
	}
	if bm := st.BindMap; bm != nil {
		if bm.Name == "" || bm.Key == "" || bm.Value == "" {
			return fmt.Errorf("bind_map requires name, key and value")
		}
	}
	return nil
}

// Label names a step for reports.
func (st *Step) Label(index int) string {
	if st.Name != "" {
		return st.Name
	}
	return fmt.Sprintf("step %d (%s)", index+1, st.Action)
}
