package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/laborsync/internal/tablefile"
	"github.com/roach88/laborsync/internal/timeseries"
)

// AssertionContext is the final state assertions are evaluated against.
type AssertionContext struct {
	Table      *timeseries.Table
	Saves      int
	LedgerRuns int
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion %s failed: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var out []string
	for i, a := range assertions {
		if err := evaluate(a, actx); err != nil {
			out = append(out, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return out
}

func evaluate(a Assertion, actx *AssertionContext) error {
	tbl := actx.Table
	if tbl == nil {
		tbl = timeseries.New()
	}

	switch a.Type {
	case AssertCell, AssertCellAbsent:
		m, err := timeseries.ParseMonth(a.Month)
		if err != nil {
			return err
		}
		v, ok := tbl.Get(m, a.Indicator)
		cell := fmt.Sprintf("%s %q", m, a.Indicator)
		if a.Type == AssertCellAbsent {
			if ok {
				return &AssertionError{Type: a.Type, Expected: cell + " empty", Actual: tablefile.FormatValue(v)}
			}
			return nil
		}
		if !ok {
			return &AssertionError{Type: a.Type, Expected: cell + " = " + tablefile.FormatValue(*a.Value), Actual: "no value"}
		}
		if v != *a.Value {
			return &AssertionError{Type: a.Type, Expected: cell + " = " + tablefile.FormatValue(*a.Value), Actual: tablefile.FormatValue(v)}
		}
		return nil

	case AssertRowCount:
		return expectCount(a.Type, *a.Count, tbl.Len())
	case AssertSaves:
		return expectCount(a.Type, *a.Count, actx.Saves)
	case AssertLedgerRuns:
		return expectCount(a.Type, *a.Count, actx.LedgerRuns)

	case AssertColumns:
		got := tbl.Columns()
		if strings.Join(got, "|") != strings.Join(a.Columns, "|") {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%q", a.Columns), Actual: fmt.Sprintf("%q", got)}
		}
		return nil

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func expectCount(kind string, want, got int) error {
	if want != got {
		return &AssertionError{Type: kind, Expected: fmt.Sprint(want), Actual: fmt.Sprint(got)}
	}
	return nil
}
