package harness

import (
	"fmt"

	"github.com/roach88/laborsync/internal/engine"
	"github.com/roach88/laborsync/internal/timeseries"
)

// Transition is the persisted state around one sync run.
type Transition struct {
	Before *timeseries.Table // nil when nothing was persisted
	After  *timeseries.Table // nil when nothing was persisted
	Report *engine.Report
	Saved  bool
}

// Invariant is a property every sync run must preserve.
type Invariant struct {
	Name  string
	Check func(Transition) error
}

// Invariants are checked after every scenario step.
var Invariants = []Invariant{
	{Name: "no_data_loss", Check: checkNoDataLoss},
	{Name: "failed_run_untouched", Check: checkFailedRunUntouched},
	{Name: "no_change_not_written", Check: checkNoChangeNotWritten},
	{Name: "updated_is_written", Check: checkUpdatedIsWritten},
	{Name: "report_rows", Check: checkReportRows},
}

// CheckInvariants returns one message per violated invariant.
func CheckInvariants(tr Transition) []string {
	var out []string
	for _, inv := range Invariants {
		if err := inv.Check(tr); err != nil {
			out = append(out, fmt.Sprintf("invariant %s: %v", inv.Name, err))
		}
	}
	return out
}

// checkNoDataLoss: every cell present before the run is present after it.
// Revisions may change a value but never remove it.
func checkNoDataLoss(tr Transition) error {
	if tr.Before == nil {
		return nil
	}
	after := tr.After
	if after == nil {
		after = timeseries.New()
	}
	for _, rec := range tr.Before.Records() {
		if _, ok := after.Get(rec.Month, rec.Indicator); !ok {
			return fmt.Errorf("cell %s %q disappeared", rec.Month, rec.Indicator)
		}
	}
	return nil
}

func checkFailedRunUntouched(tr Transition) error {
	if tr.Report == nil || tr.Report.Outcome != engine.OutcomeFailed {
		return nil
	}
	if tr.Saved || !tr.Before.Equal(tr.After) {
		return fmt.Errorf("failed run changed the persisted table")
	}
	return nil
}

func checkNoChangeNotWritten(tr Transition) error {
	if tr.Report == nil || tr.Report.Outcome != engine.OutcomeNoChange {
		return nil
	}
	if tr.Saved {
		return fmt.Errorf("no_change run wrote the table")
	}
	return nil
}

func checkUpdatedIsWritten(tr Transition) error {
	if tr.Report == nil || tr.Report.Outcome != engine.OutcomeUpdated {
		return nil
	}
	if !tr.Saved {
		return fmt.Errorf("updated run did not write the table")
	}
	return nil
}

func checkReportRows(tr Transition) error {
	if tr.Report == nil || tr.Report.Outcome == engine.OutcomeFailed {
		return nil
	}
	if got := tr.After.Len(); tr.Report.Rows != got {
		return fmt.Errorf("report says %d rows, table has %d", tr.Report.Rows, got)
	}
	return nil
}
