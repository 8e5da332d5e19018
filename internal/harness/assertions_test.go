package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestEvaluateAssertions_Pass(t *testing.T) {
	actx := &AssertionContext{
		Table:      table(map[string]float64{"2024-01-01": 3.7, "2024-02-01": 3.9}),
		Saves:      1,
		LedgerRuns: 2,
	}
	assertions := []Assertion{
		{Type: AssertCell, Month: "2024-01-01", Indicator: "Unemployment Rate", Value: ptr(3.7)},
		{Type: AssertCellAbsent, Month: "2024-03-01", Indicator: "Unemployment Rate"},
		{Type: AssertCellAbsent, Month: "2024-01-01", Indicator: "Other"},
		{Type: AssertRowCount, Count: ptr(2)},
		{Type: AssertColumns, Columns: []string{"Unemployment Rate"}},
		{Type: AssertSaves, Count: ptr(1)},
		{Type: AssertLedgerRuns, Count: ptr(2)},
	}
	assert.Empty(t, EvaluateAssertions(assertions, actx))
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	actx := &AssertionContext{Table: table(map[string]float64{"2024-01-01": 3.7})}

	tests := []struct {
		name string
		a    Assertion
		want string
	}{
		{
			"wrong value",
			Assertion{Type: AssertCell, Month: "2024-01-01", Indicator: "Unemployment Rate", Value: ptr(3.8)},
			"assertions[0]: assertion cell failed: expected 2024-01-01 \"Unemployment Rate\" = 3.8, got 3.7",
		},
		{
			"missing cell",
			Assertion{Type: AssertCell, Month: "2024-02-01", Indicator: "Unemployment Rate", Value: ptr(3.8)},
			"assertions[0]: assertion cell failed: expected 2024-02-01 \"Unemployment Rate\" = 3.8, got no value",
		},
		{
			"present cell",
			Assertion{Type: AssertCellAbsent, Month: "2024-01-01", Indicator: "Unemployment Rate"},
			"assertions[0]: assertion cell_absent failed: expected 2024-01-01 \"Unemployment Rate\" empty, got 3.7",
		},
		{
			"row count",
			Assertion{Type: AssertRowCount, Count: ptr(3)},
			"assertions[0]: assertion row_count failed: expected 3, got 1",
		},
		{
			"columns",
			Assertion{Type: AssertColumns, Columns: []string{"A", "B"}},
			"assertions[0]: assertion columns failed: expected [\"A\" \"B\"], got [\"Unemployment Rate\"]",
		},
		{
			"unknown type",
			Assertion{Type: "vibes"},
			"assertions[0]: unknown assertion type \"vibes\"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, []string{tt.want}, EvaluateAssertions([]Assertion{tt.a}, actx))
		})
	}
}

func TestEvaluateAssertions_NilTable(t *testing.T) {
	msgs := EvaluateAssertions([]Assertion{{Type: AssertRowCount, Count: ptr(0)}}, &AssertionContext{})
	assert.Empty(t, msgs)
}
