package harness

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestScenarios_Golden(t *testing.T) {
	for _, name := range []string{
		"cold_start",
		"revision_without_loss",
		"failures_leave_table",
		"warm_from_file",
	} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)
			result := RunWithGolden(t, scenario)
			assert.True(t, result.Pass)
			assert.Len(t, result.Steps, len(scenario.Steps))
		})
	}
}

func TestScenarios_AllPass(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(strings.TrimSuffix(filepath.Base(path), ".yaml"), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			result, err := Run(context.Background(), scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func minimalScenario() *Scenario {
	return &Scenario{
		Name:           "minimal",
		Description:    "one series, one cold run",
		Now:            "2024-06-15",
		MinHistoryYear: 2024,
		Catalog:        []SeriesDef{{Code: "LNS14000000", Name: "Unemployment Rate"}},
		Upstream: []Observation{
			{Series: "LNS14000000", From: "2024-01-01", To: "2024-03-01", Value: 3.7},
		},
		Steps: []Step{{Name: "cold"}},
	}
}

func TestRun_MinimalScenario(t *testing.T) {
	result, err := Run(context.Background(), minimalScenario())
	require.NoError(t, err)

	assert.True(t, result.Pass)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, "cold", result.Steps[0].Name)
	assert.Equal(t, "run-1", result.Steps[0].Report.RunID)
	assert.Equal(t, 3, result.Table.Len())
}

func TestRun_ReportsExpectationMismatch(t *testing.T) {
	s := minimalScenario()
	rows := 4
	s.Steps[0].Expect = &Expect{Outcome: "no_change", Mode: "warm", Rows: &rows}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, "cold: expected outcome no_change, got updated", result.Errors[0])
	assert.Equal(t, "cold: expected mode warm, got cold", result.Errors[1])
	assert.Equal(t, "cold: expected rows 4, got 3", result.Errors[2])
}

func TestRun_ReportsFailedAssertion(t *testing.T) {
	s := minimalScenario()
	count := 5
	s.Assertions = []Assertion{{Type: AssertRowCount, Count: &count}}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "assertion row_count failed: expected 5, got 3")
}

func TestRun_UnnamedStepsAreLabelledByIndex(t *testing.T) {
	s := minimalScenario()
	s.Steps = []Step{{}, {Expect: &Expect{Outcome: "updated"}}}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)

	require.Len(t, result.Errors, 1)
	assert.True(t, strings.HasPrefix(result.Errors[0], "steps[1]: expected outcome updated"))
}

func TestRun_InjectedFailureLastsOneStep(t *testing.T) {
	s := minimalScenario()
	s.Steps = []Step{
		{Name: "down", Fail: FailTransport, Expect: &Expect{Outcome: "failed", ErrorCode: "TRANSPORT_ERROR"}},
		{Name: "up", Expect: &Expect{Outcome: "updated", Mode: "cold"}},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_InvalidInitialTable(t *testing.T) {
	s := minimalScenario()
	s.Initial = "Month,Rate\n2024-01-01,3.7\n"

	_, err := Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initial table")
}

func TestRun_InvalidCatalog(t *testing.T) {
	s := minimalScenario()
	s.Catalog = append(s.Catalog, s.Catalog[0])

	_, err := Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog")
}

func TestRun_RangedObservationGrowsByStep(t *testing.T) {
	s := minimalScenario()
	s.Upstream = []Observation{{Series: "LNS14000000", From: "2023-11-01", To: "2024-02-01", Value: 10, Step: 0.5}}
	s.MinHistoryYear = 2023

	result, err := Run(context.Background(), s)
	require.NoError(t, err)

	got := make([]float64, 0, 4)
	for _, rec := range result.Table.Records() {
		got = append(got, rec.Value)
	}
	assert.Equal(t, []float64{10, 10.5, 11, 11.5}, got)
}
