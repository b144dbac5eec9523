package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cohort/internal/compiler"
	"github.com/roach88/cohort/internal/criteria"
	"github.com/roach88/cohort/internal/store"
)

// Scenario defines an end-to-end cohort scenario: a warehouse, a request
// and the expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Fixtures is the path of a YAML fixture file. Relative paths are
	// resolved against the scenario file's directory by LoadScenario.
	Fixtures string `yaml:"fixtures,omitempty"`

	// Warehouse holds inline fixtures. At most one of Fixtures and
	// Warehouse may be set; with neither the warehouse is empty.
	Warehouse *store.Fixtures `yaml:"warehouse,omitempty"`

	// Request is the search request under test.
	Request criteria.SearchRequest `yaml:"request"`

	// Output selects the compiled query's shape. Default: count.
	Output OutputSpec `yaml:"output,omitempty"`

	// Assertions validate the outcome.
	Assertions []Assertion `yaml:"assertions"`

	// CompilationID is an optional fixed compilation id.
	// If empty, defaults to "test-compilation".
	CompilationID string `yaml:"compilation_id,omitempty"`
}

// OutputSpec is the YAML form of compiler.Output.
type OutputSpec struct {
	Shape  string          `yaml:"shape,omitempty"`
	Limit  int             `yaml:"limit,omitempty"`
	Domain criteria.Domain `yaml:"domain,omitempty"`
}

// resolve converts o into a compiler.Output.
func (o OutputSpec) resolve() (compiler.Output, error) {
	shape := compiler.ShapeCount
	if o.Shape != "" {
		var err error
		if shape, err = compiler.ParseShape(o.Shape); err != nil {
			return compiler.Output{}, err
		}
	}
	return compiler.Output{Shape: shape, Limit: o.Limit, Domain: o.Domain}, nil
}

// Assertion validates the outcome of a scenario.
type Assertion struct {
	// Type specifies the assertion type:
	// - "count": cohort count equals Count
	// - "person_ids": person id list equals IDs
	// - "rejected": validation failed with Code
	// - "sql_contains": compiled SQL contains Fragment
	// - "warehouse_count": Table has Count rows matching Where
	Type string `yaml:"type"`

	// Count is the expected number (used by count and warehouse_count).
	Count int64 `yaml:"count"`

	// IDs are the expected person ids, in order (used by person_ids).
	IDs []int64 `yaml:"ids,omitempty"`

	// Code is the expected validation error code (used by rejected).
	Code string `yaml:"code,omitempty"`

	// Fragment is the expected SQL substring (used by sql_contains).
	Fragment string `yaml:"fragment,omitempty"`

	// Table is the fixture table name (used by warehouse_count).
	Table string `yaml:"table,omitempty"`

	// Where specifies column filters (used by warehouse_count).
	// All fields must match exactly.
	Where map[string]any `yaml:"where,omitempty"`
}

// Assertion type constants.
const (
	AssertCount          = "count"
	AssertPersonIDs      = "person_ids"
	AssertRejected       = "rejected"
	AssertSQLContains    = "sql_contains"
	AssertWarehouseCount = "warehouse_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos such as "assertion:" or a
	// misspelled request key that would silently widen the cohort.
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the fixture path relative to the scenario BEFORE validation.
	if scenario.Fixtures != "" && !filepath.IsAbs(scenario.Fixtures) {
		scenario.Fixtures = filepath.Join(filepath.Dir(path), scenario.Fixtures)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml scenario in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", p, s.Name, prev)
		}
		seen[s.Name] = p
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// loadFixtures returns the scenario's warehouse content.
func (s *Scenario) loadFixtures() (*store.Fixtures, error) {
	switch {
	case s.Warehouse != nil:
		return s.Warehouse, nil
	case s.Fixtures != "":
		return store.LoadFixtures(s.Fixtures)
	default:
		return &store.Fixtures{}, nil
	}
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Fixtures != "" && s.Warehouse != nil {
		return fmt.Errorf("fixtures and warehouse are mutually exclusive")
	}

	if s.Fixtures != "" {
		if _, err := os.Stat(s.Fixtures); os.IsNotExist(err) {
			return fmt.Errorf("fixture file not found: %s", s.Fixtures)
		}
	}

	if _, err := s.Output.resolve(); err != nil {
		return fmt.Errorf("output: %w", err)
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
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
	case AssertCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertPersonIDs:
		// An empty list asserts an empty cohort.
	case AssertRejected:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for rejected", index)
		}
	case AssertSQLContains:
		if a.Fragment == "" {
			return fmt.Errorf("assertions[%d]: fragment is required for sql_contains", index)
		}
	case AssertWarehouseCount:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for warehouse_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for warehouse_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
