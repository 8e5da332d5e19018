package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/laborsync/internal/catalog"
	"github.com/roach88/laborsync/internal/engine"
	"github.com/roach88/laborsync/internal/fetch"
	"github.com/roach88/laborsync/internal/tablefile"
	"github.com/roach88/laborsync/internal/testutil"
	"github.com/roach88/laborsync/internal/timeseries"
)

// harnessCredential satisfies the engine's credential check. The fake
// upstream ignores it.
const harnessCredential = "harness-registration-key"

// malformedBody is what the upstream answers with under a malformed failure.
var malformedBody = []byte(`<html><body>Service Unavailable</body></html>`)

// Harness holds the wired fakes for one scenario execution.
type Harness struct {
	upstream *testutil.Upstream
	tables   *testutil.MemoryTables
	ledger   *testutil.MemoryLedger
	clock    *testutil.FixedClock
	engine   *engine.Engine

	mu   sync.Mutex
	fail string
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Build the catalog, seed the upstream and persist the initial table
//  2. For each step: move the clock, apply upstream revisions, run one sync,
//     check the invariants and the step's expectations
//  3. Evaluate the assertions against the final state
//
// A returned error means the scenario could not be set up; failed
// expectations are reported through Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	h, err := newHarness(scenario)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		label := step.Name
		if label == "" {
			label = fmt.Sprintf("steps[%d]", i)
		}
		sr, problems, err := h.executeStep(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", label, err)
		}
		sr.Name = label
		result.Steps = append(result.Steps, sr)
		for _, p := range problems {
			result.AddError(label + ": " + p)
		}
	}

	if tbl := h.tables.Table(); tbl != nil {
		result.Table = tbl
	}
	actx := &AssertionContext{Table: result.Table, Saves: h.tables.Saves(), LedgerRuns: len(h.ledger.Runs())}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(s *Scenario) (*Harness, error) {
	now, err := time.Parse(DateLayout, s.Now)
	if err != nil {
		return nil, fmt.Errorf("now: %w", err)
	}

	cat := catalog.Default()
	if len(s.Catalog) > 0 {
		entries := make([]catalog.Series, len(s.Catalog))
		for i, c := range s.Catalog {
			entries[i] = catalog.Series{Code: c.Code, Name: c.Name}
		}
		if cat, err = catalog.New(entries); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
	}

	var initial *timeseries.Table
	if s.Initial != "" {
		if initial, err = tablefile.Decode(strings.NewReader(s.Initial)); err != nil {
			return nil, fmt.Errorf("initial table: %w", err)
		}
	}

	h := &Harness{
		upstream: testutil.NewUpstream(),
		tables:   testutil.NewMemoryTables(initial),
		ledger:   testutil.NewMemoryLedger(),
		clock:    testutil.NewFixedClock(now),
	}
	if err := h.apply(s.Upstream); err != nil {
		return nil, fmt.Errorf("upstream: %w", err)
	}

	runIDs := make([]string, len(s.Steps))
	for i := range runIDs {
		runIDs[i] = fmt.Sprintf("run-%d", i+1)
	}

	minYear := s.MinHistoryYear
	if minYear == 0 {
		minYear = now.Year() - 2
	}
	maxSpan := s.MaxSpan
	if maxSpan == 0 {
		maxSpan = 20
	}

	h.engine = engine.New(engine.Options{
		Credential:      harnessCredential,
		MinHistoryYear:  minYear,
		MaxSpan:         maxSpan,
		SeriesBatchSize: s.SeriesBatchSize,
		Catalog:         cat,
		Fetcher:         testutil.NewScriptedFetcher(h.fetch),
		Tables:          h.tables,
		Ledger:          h.ledger,
		Clock:           h.clock,
		RunIDs:          engine.NewFixedGenerator(runIDs...),
		Logger:          zap.NewNop(),
	})
	return h, nil
}

// fetch answers from the fake upstream unless the current step injects a
// fetch failure.
func (h *Harness) fetch(ctx context.Context, req fetch.Request) ([]byte, error) {
	h.mu.Lock()
	fail := h.fail
	h.mu.Unlock()

	switch fail {
	case FailTransport:
		return nil, errors.New("connection reset by peer")
	case FailMalformed:
		return malformedBody, nil
	default:
		return h.upstream.Fetch(ctx, req)
	}
}

func (h *Harness) executeStep(ctx context.Context, step Step) (StepResult, []string, error) {
	if step.Now != "" {
		now, err := time.Parse(DateLayout, step.Now)
		if err != nil {
			return StepResult{}, nil, fmt.Errorf("now: %w", err)
		}
		h.clock.Set(now)
	}
	if err := h.apply(step.Upstream); err != nil {
		return StepResult{}, nil, fmt.Errorf("upstream: %w", err)
	}

	h.setFailure(step.Fail)
	defer h.setFailure("")

	before := h.tables.Table()
	savesBefore := h.tables.Saves()

	// A failed run is an observable outcome, not a harness error.
	report, _ := h.engine.Run(ctx)

	tr := Transition{
		Before: before,
		After:  h.tables.Table(),
		Report: report,
		Saved:  h.tables.Saves() > savesBefore,
	}
	problems := CheckInvariants(tr)
	if step.Expect != nil {
		problems = append(problems, matchExpect(step.Expect, report)...)
	}
	return StepResult{Report: report}, problems, nil
}

func (h *Harness) setFailure(kind string) {
	h.mu.Lock()
	h.fail = kind
	h.mu.Unlock()

	if kind == FailSave {
		h.tables.FailSave(errors.New("no space left on device"))
	} else {
		h.tables.FailSave(nil)
	}
}

func (h *Harness) apply(obs []Observation) error {
	for _, o := range obs {
		if o.Month != "" {
			m, err := timeseries.ParseMonth(o.Month)
			if err != nil {
				return err
			}
			h.upstream.Set(o.Series, m, o.Value)
			continue
		}
		from, err := timeseries.ParseMonth(o.From)
		if err != nil {
			return err
		}
		to, err := timeseries.ParseMonth(o.To)
		if err != nil {
			return err
		}
		h.upstream.Fill(o.Series, from, to, func(m timeseries.Month) float64 {
			return o.Value + o.Step*float64(monthsBetween(from, m))
		})
	}
	return nil
}

func monthsBetween(from, to timeseries.Month) int {
	return (to.Year-from.Year)*12 + int(to.Month) - int(from.Month)
}

// matchExpect compares report against a subset expectation.
func matchExpect(e *Expect, r *engine.Report) []string {
	if r == nil {
		return []string{"no report"}
	}
	var out []string
	mismatch := func(field string, want, got any) {
		out = append(out, fmt.Sprintf("expected %s %v, got %v", field, want, got))
	}

	if string(r.Outcome) != e.Outcome {
		mismatch("outcome", e.Outcome, r.Outcome)
	}
	if e.Mode != "" && string(r.Mode) != e.Mode {
		mismatch("mode", e.Mode, r.Mode)
	}
	if e.ErrorCode != "" && string(r.ErrorCode) != e.ErrorCode {
		mismatch("error_code", e.ErrorCode, r.ErrorCode)
	}
	if e.Windows != nil {
		got := make([]string, len(r.Windows))
		for i, w := range r.Windows {
			got[i] = w.String()
		}
		if strings.Join(got, ",") != strings.Join(e.Windows, ",") {
			mismatch("windows", e.Windows, got)
		}
	}

	ints := []struct {
		field string
		want  *int
		got   int
	}{
		{"requests", e.Requests, r.Requests},
		{"rows", e.Rows, r.Rows},
		{"records", e.Records, r.Records},
		{"skipped", e.Skipped, r.Skipped},
		{"rejected", e.Rejected, r.Rejected},
		{"rows_added", e.RowsAdded, r.Stats.RowsAdded},
		{"cells_added", e.CellsAdded, r.Stats.CellsAdded},
		{"cells_revised", e.CellsRevised, r.Stats.CellsRevised},
	}
	for _, c := range ints {
		if c.want != nil && *c.want != c.got {
			mismatch(c.field, *c.want, c.got)
		}
	}
	return out
}
