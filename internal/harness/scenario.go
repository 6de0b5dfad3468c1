package harness

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of provider operations with expectations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Authority overrides contract.DefaultAuthority.
	Authority string `yaml:"authority,omitempty"`

	// Steps run in order against one provider.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step operations.
const (
	OpQuery  = "query"
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
	OpType   = "type"
)

// Step is one provider call.
type Step struct {
	Op      string         `yaml:"op"`
	Address string         `yaml:"address"`
	Values  map[string]any `yaml:"values,omitempty"`

	// Selection narrows the addressed rows; Args bind its placeholders.
	Selection string   `yaml:"selection,omitempty"`
	Args      []string `yaml:"args,omitempty"`

	// Query only.
	Columns  []string `yaml:"columns,omitempty"`
	Sort     string   `yaml:"sort,omitempty"`
	Distinct bool     `yaml:"distinct,omitempty"`
	Caller   string   `yaml:"caller,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the outcome a step must produce. Unset fields are not
// checked.
type Expect struct {
	// Count is the row count returned (query) or affected (update, delete).
	Count *int64 `yaml:"count,omitempty"`

	// Rows are subset matches against the query rows, in order. The number
	// of rows must match too.
	Rows []map[string]any `yaml:"rows,omitempty"`

	// Address is the item address an insert returns.
	Address string `yaml:"address,omitempty"`

	// Type is the content type a type step returns.
	Type string `yaml:"type,omitempty"`

	// Error is the contract error code the step must fail with.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates notifications or final state after all steps ran.
type Assertion struct {
	Type    string `yaml:"type"`
	Address string `yaml:"address,omitempty"`

	// Count is used by notification_count and final_state.
	Count *int `yaml:"count,omitempty"`

	// final_state only.
	Selection string           `yaml:"selection,omitempty"`
	Args      []string         `yaml:"args,omitempty"`
	Rows      []map[string]any `yaml:"rows,omitempty"`
}

// Assertion type constants.
const (
	AssertNotified          = "notified"
	AssertNotNotified       = "not_notified"
	AssertNotificationCount = "notification_count"
	AssertFinalState        = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are errors, so a misspelled key fails loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
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

// FindScenarios returns the .yaml and .yml files under dir, sorted. A
// non-empty filter is a glob matched against the file name without its
// extension.
func FindScenarios(dir, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			if ok, _ := filepath.Match(filter, name); !ok {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

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
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step) error {
	switch step.Op {
	case OpQuery, OpDelete, OpType:
	case OpInsert, OpUpdate:
		if len(step.Values) == 0 && step.Expect == nil {
			return fmt.Errorf("steps[%d]: values are required for %s", i, step.Op)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", i)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
	}

	if step.Op != OpQuery && (len(step.Columns) > 0 || step.Sort != "" || step.Distinct || step.Caller != "") {
		return fmt.Errorf("steps[%d]: columns, sort, distinct and caller apply to query only", i)
	}
	if step.Expect != nil && len(step.Expect.Rows) > 0 && step.Op != OpQuery {
		return fmt.Errorf("steps[%d].expect: rows apply to query only", i)
	}
	return nil
}

func validateAssertion(i int, a Assertion) error {
	switch a.Type {
	case AssertNotified, AssertNotNotified:
		if a.Address == "" {
			return fmt.Errorf("assertions[%d]: address is required for %s", i, a.Type)
		}
	case AssertNotificationCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for %s", i, a.Type)
		}
	case AssertFinalState:
		if a.Address == "" {
			return fmt.Errorf("assertions[%d]: address is required for %s", i, a.Type)
		}
		if a.Count == nil && a.Rows == nil {
			return fmt.Errorf("assertions[%d]: count or rows is required for %s", i, a.Type)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", i)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
	}
	return nil
}
