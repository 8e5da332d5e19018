package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/laborsync/internal/engine"
	"github.com/roach88/laborsync/internal/planner"
	"github.com/roach88/laborsync/internal/timeseries"
)

// DateLayout is the layout of the scenario and step clocks.
const DateLayout = "2006-01-02"

// Scenario defines a sequence of sync runs and what they must produce.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Now is the clock at the first step, in YYYY-MM-DD form.
	Now string `yaml:"now"`

	// MinHistoryYear is the cold-start floor. Zero means two years before
	// the year of Now.
	MinHistoryYear int `yaml:"min_history_year,omitempty"`

	// MaxSpan is the widest request window. Zero means 20.
	MaxSpan int `yaml:"max_span,omitempty"`

	// SeriesBatchSize is the series per request. Zero means the engine default.
	SeriesBatchSize int `yaml:"series_batch_size,omitempty"`

	// Catalog lists the requested series. Empty means the built-in catalog.
	Catalog []SeriesDef `yaml:"catalog,omitempty"`

	// Initial is the table file content persisted before the first step.
	// Empty means nothing is persisted (cold start).
	Initial string `yaml:"initial,omitempty"`

	// Upstream seeds the fake upstream before the first step.
	Upstream []Observation `yaml:"upstream,omitempty"`

	// Steps are executed in order; each is one sync run.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated against the state after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// SeriesDef is one catalog entry.
type SeriesDef struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// Observation sets upstream values for one series: a single month, or every
// month in [from, to] starting at value and growing by step per month.
type Observation struct {
	Series string  `yaml:"series"`
	Month  string  `yaml:"month,omitempty"`
	From   string  `yaml:"from,omitempty"`
	To     string  `yaml:"to,omitempty"`
	Value  float64 `yaml:"value"`
	Step   float64 `yaml:"step,omitempty"`
}

// Step is one sync run.
type Step struct {
	// Name labels the step in failure messages.
	Name string `yaml:"name,omitempty"`

	// Now moves the clock before the run.
	Now string `yaml:"now,omitempty"`

	// Upstream revises or extends upstream values before the run.
	Upstream []Observation `yaml:"upstream,omitempty"`

	// Fail injects a failure for this run only.
	// One of "transport", "malformed", "save".
	Fail string `yaml:"fail,omitempty"`

	// Expect states what the run report must show. Nil checks nothing.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Injected failure kinds.
const (
	FailTransport = "transport"
	FailMalformed = "malformed"
	FailSave      = "save"
)

// Expect is a subset match on a run report. Unset fields are not checked.
type Expect struct {
	Outcome      string   `yaml:"outcome"`
	Mode         string   `yaml:"mode,omitempty"`
	Windows      []string `yaml:"windows,omitempty"`
	ErrorCode    string   `yaml:"error_code,omitempty"`
	Requests     *int     `yaml:"requests,omitempty"`
	Rows         *int     `yaml:"rows,omitempty"`
	Records      *int     `yaml:"records,omitempty"`
	Skipped      *int     `yaml:"skipped,omitempty"`
	Rejected     *int     `yaml:"rejected,omitempty"`
	RowsAdded    *int     `yaml:"rows_added,omitempty"`
	CellsAdded   *int     `yaml:"cells_added,omitempty"`
	CellsRevised *int     `yaml:"cells_revised,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Month and Indicator address a cell (cell, cell_absent).
	Month     string `yaml:"month,omitempty"`
	Indicator string `yaml:"indicator,omitempty"`

	// Value is the expected cell value (cell).
	Value *float64 `yaml:"value,omitempty"`

	// Count is the expected number (row_count, saves, ledger_runs).
	Count *int `yaml:"count,omitempty"`

	// Columns is the expected column list (columns).
	Columns []string `yaml:"columns,omitempty"`
}

// Assertion type constants.
const (
	AssertCell       = "cell"
	AssertCellAbsent = "cell_absent"
	AssertRowCount   = "row_count"
	AssertColumns    = "columns"
	AssertSaves      = "saves"
	AssertLedgerRuns = "ledger_runs"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains unknown
// fields or fails validation.
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
	decoder.KnownFields(true) // "expects:" is a typo, not an empty field
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
	if _, err := time.Parse(DateLayout, s.Now); err != nil {
		return fmt.Errorf("now: %w", err)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, c := range s.Catalog {
		if c.Code == "" || c.Name == "" {
			return fmt.Errorf("catalog[%d]: code and name are required", i)
		}
	}
	for i, o := range s.Upstream {
		if err := validateObservation(o); err != nil {
			return fmt.Errorf("upstream[%d]: %w", i, err)
		}
	}

	for i, step := range s.Steps {
		if step.Now != "" {
			if _, err := time.Parse(DateLayout, step.Now); err != nil {
				return fmt.Errorf("steps[%d].now: %w", i, err)
			}
		}
		for j, o := range step.Upstream {
			if err := validateObservation(o); err != nil {
				return fmt.Errorf("steps[%d].upstream[%d]: %w", i, j, err)
			}
		}
		switch step.Fail {
		case "", FailTransport, FailMalformed, FailSave:
		default:
			return fmt.Errorf("steps[%d]: unknown failure %q", i, step.Fail)
		}
		if step.Expect != nil {
			if err := validateExpect(step.Expect); err != nil {
				return fmt.Errorf("steps[%d].expect: %w", i, err)
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

func validateObservation(o Observation) error {
	if o.Series == "" {
		return fmt.Errorf("series is required")
	}
	single := o.Month != ""
	ranged := o.From != "" || o.To != ""
	switch {
	case single && ranged:
		return fmt.Errorf("month and from/to are mutually exclusive")
	case single:
		_, err := timeseries.ParseMonth(o.Month)
		return err
	case ranged:
		from, err := timeseries.ParseMonth(o.From)
		if err != nil {
			return err
		}
		to, err := timeseries.ParseMonth(o.To)
		if err != nil {
			return err
		}
		if to.Before(from) {
			return fmt.Errorf("to %s is before from %s", to, from)
		}
		return nil
	default:
		return fmt.Errorf("month or from/to is required")
	}
}

func validateExpect(e *Expect) error {
	switch engine.Outcome(e.Outcome) {
	case engine.OutcomeUpdated, engine.OutcomeNoChange, engine.OutcomeFailed:
	default:
		return fmt.Errorf("unknown outcome %q", e.Outcome)
	}
	switch planner.Mode(e.Mode) {
	case "", planner.ModeCold, planner.ModeWarm:
	default:
		return fmt.Errorf("unknown mode %q", e.Mode)
	}
	for _, w := range e.Windows {
		if !strings.Contains(w, "-") {
			return fmt.Errorf("window %q must be start-end", w)
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
	case AssertCell, AssertCellAbsent:
		if a.Month == "" || a.Indicator == "" {
			return fmt.Errorf("assertions[%d]: month and indicator are required for %s", index, a.Type)
		}
		if _, err := timeseries.ParseMonth(a.Month); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Type == AssertCell && a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for cell", index)
		}
	case AssertRowCount, AssertSaves, AssertLedgerRuns:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for %s", index, a.Type)
		}
	case AssertColumns:
		if len(a.Columns) == 0 {
			return fmt.Errorf("assertions[%d]: columns list is required for columns", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
