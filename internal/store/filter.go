package store

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidFilter is wrapped by every RunFilter validation failure.
var ErrInvalidFilter = errors.New("invalid run filter")

// RunFilter selects ledger runs. Zero fields match everything.
type RunFilter struct {
	Outcome   string    // exact outcome
	ErrorCode string    // exact error code
	Since     time.Time // started at or after
	Until     time.Time // started strictly before
	Limit     int       // below one means no limit
}

const runColumns = `id, started_at, finished_at, outcome, reason, error_code, windows,
		       records, skipped, rejected, rows, table_hash, fresh_hash`

// predicate is one WHERE fragment with its single bound argument.
type predicate struct {
	sql string
	arg any
}

// predicates returns f's conditions in a fixed order.
func (f RunFilter) predicates() ([]predicate, error) {
	var preds []predicate
	if f.Outcome != "" {
		switch f.Outcome {
		case "updated", "no_change", "failed":
		default:
			return nil, fmt.Errorf("%w: unknown outcome %q", ErrInvalidFilter, f.Outcome)
		}
		preds = append(preds, predicate{"outcome = ?", f.Outcome})
	}
	if f.ErrorCode != "" {
		preds = append(preds, predicate{"error_code = ?", f.ErrorCode})
	}
	if !f.Since.IsZero() && !f.Until.IsZero() && !f.Since.Before(f.Until) {
		return nil, fmt.Errorf("%w: since %s is not before until %s",
			ErrInvalidFilter, f.Since.Format(time.RFC3339), f.Until.Format(time.RFC3339))
	}
	if !f.Since.IsZero() {
		preds = append(preds, predicate{"started_at >= ?", formatTime(f.Since)})
	}
	if !f.Until.IsZero() {
		preds = append(preds, predicate{"started_at < ?", formatTime(f.Until)})
	}
	return preds, nil
}

// compile renders f as a parameterized query. Values are always bound,
// never interpolated, and the ORDER BY carries an id tiebreaker so equal
// start times list in a stable order.
func (f RunFilter) compile() (string, []any, error) {
	preds, err := f.predicates()
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(runColumns)
	b.WriteString("\n\t\tFROM runs")

	args := make([]any, 0, len(preds)+1)
	for i, p := range preds {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		b.WriteString(p.sql)
		args = append(args, p.arg)
	}

	b.WriteString(" ORDER BY started_at DESC, id COLLATE BINARY ASC")
	if f.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, f.Limit)
	}
	return b.String(), args, nil
}
