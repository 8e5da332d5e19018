// Package planner decides which year windows to request from upstream.
//
// Planning is pure: it reads the previously persisted table (or its
// absence) and the current year, and never performs I/O.
//
// Cold start covers [MinHistoryYear, currentYear]. Warm start re-requests
// from the year reached by stepping TrailingBufferMonths back from the last
// known month, so late revisions to recent months are picked up again.
// Either range is split into disjoint, ascending windows no wider than
// MaxSpan years.
package planner

import (
	"errors"
	"fmt"

	"github.com/roach88/laborsync/internal/timeseries"
)

// TrailingBufferMonths is how far before the last known month a warm start
// reaches back.
const TrailingBufferMonths = 12

// ErrInvalidOptions is returned for a span below 1 or a minimum history year
// outside [1, currentYear].
var ErrInvalidOptions = errors.New("invalid plan options")

// Window is an inclusive range of calendar years for one upstream request.
type Window struct {
	Start int `json:"start_year"`
	End   int `json:"end_year"`
}

// Span returns the number of years the window covers.
func (w Window) Span() int {
	return w.End - w.Start + 1
}

// String renders the window as "start-end".
func (w Window) String() string {
	return fmt.Sprintf("%d-%d", w.Start, w.End)
}

// Options bounds a plan.
type Options struct {
	// MinHistoryYear is the first year requested on cold start.
	MinHistoryYear int

	// MaxSpan is the widest window upstream accepts, in years.
	MaxSpan int
}

// Mode describes which policy produced a plan.
type Mode string

const (
	ModeCold Mode = "cold"
	ModeWarm Mode = "warm"
)

// ModeFor reports which policy Plan applies to prior.
func ModeFor(prior *timeseries.Table) Mode {
	if prior.Empty() {
		return ModeCold
	}
	return ModeWarm
}

// Validate checks opts against currentYear. Errors wrap ErrInvalidOptions.
func (o Options) Validate(currentYear int) error {
	if o.MaxSpan < 1 {
		return fmt.Errorf("%w: max span %d < 1", ErrInvalidOptions, o.MaxSpan)
	}
	if o.MinHistoryYear < 1 || o.MinHistoryYear > currentYear {
		return fmt.Errorf("%w: minimum history year %d not in [1, %d]",
			ErrInvalidOptions, o.MinHistoryYear, currentYear)
	}
	return nil
}

// Plan returns the windows to request, in ascending order.
func Plan(prior *timeseries.Table, currentYear int, opts Options) ([]Window, error) {
	if err := opts.Validate(currentYear); err != nil {
		return nil, err
	}

	last, ok := prior.MaxMonth()
	if !ok {
		return Split(opts.MinHistoryYear, currentYear, opts.MaxSpan), nil
	}

	start := last.AddMonths(-TrailingBufferMonths).Year
	if start > currentYear {
		start = currentYear
	}
	return Split(start, currentYear, opts.MaxSpan), nil
}

// Split cuts [start, end] into consecutive disjoint windows of at most span
// years. The last window absorbs the remainder. start > end yields nil.
func Split(start, end, span int) []Window {
	if start > end || span < 1 {
		return nil
	}
	windows := make([]Window, 0, (end-start)/span+1)
	for s := start; s <= end; s += span {
		e := s + span - 1
		if e > end {
			e = end
		}
		windows = append(windows, Window{Start: s, End: e})
	}
	return windows
}
