package parser

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/laborsync/internal/timeseries"
)

// AnnualAveragePeriod is the BLS period code for the annual average.
const AnnualAveragePeriod = "M13"

// RawObservation is one upstream data point before validation.
type RawObservation struct {
	SeriesID string
	Year     string
	Period   string
	Value    string
}

// Outcome is the result class of Validate.
type Outcome int

const (
	// Accept means the observation produced a Record.
	Accept Outcome = iota
	// SkipAnnual means the observation is an annual average and is dropped.
	SkipAnnual
	// Reject means the observation is unusable. Verdict.Reason says why.
	Reject
)

// String returns a lowercase name for the outcome.
func (o Outcome) String() string {
	switch o {
	case Accept:
		return "accept"
	case SkipAnnual:
		return "skip_annual"
	case Reject:
		return "reject"
	default:
		return "unknown"
	}
}

// RejectReason categorizes a rejected observation.
type RejectReason string

const (
	ReasonMissingSeries    RejectReason = "missing_series_id"
	ReasonDisallowedPeriod RejectReason = "disallowed_period"
	ReasonInvalidYear      RejectReason = "invalid_year"
	ReasonNonNumericValue  RejectReason = "non_numeric_value"
	ReasonNonFiniteValue   RejectReason = "non_finite_value"
)

// Verdict is the outcome of validating one observation.
type Verdict struct {
	Outcome Outcome
	Record  timeseries.Record // set when Outcome == Accept
	Reason  RejectReason      // set when Outcome == Reject
}

// Rejection describes one dropped observation for reporting.
type Rejection struct {
	SeriesID  string       `json:"series_id"`
	Indicator string       `json:"indicator"`
	Year      string       `json:"year"`
	Period    string       `json:"period"`
	Value     string       `json:"value"`
	Reason    RejectReason `json:"reason"`
}

// Validate applies the record policy to obs. indicator is the display name
// already resolved for obs.SeriesID.
//
// Order matters only for which reason is reported: series, then period,
// then year, then value. M13 is checked before anything else about the
// record so annual averages are never counted as rejections.
func Validate(obs RawObservation, indicator string) Verdict {
	period := strings.TrimSpace(obs.Period)
	if period == AnnualAveragePeriod {
		return Verdict{Outcome: SkipAnnual}
	}
	if obs.SeriesID == "" {
		return reject(ReasonMissingSeries)
	}
	month, ok := monthFromPeriod(period)
	if !ok {
		return reject(ReasonDisallowedPeriod)
	}
	year, err := strconv.Atoi(strings.TrimSpace(obs.Year))
	if err != nil || year < 1 || year > 9999 {
		return reject(ReasonInvalidYear)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(obs.Value), 64)
	if err != nil {
		return reject(ReasonNonNumericValue)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return reject(ReasonNonFiniteValue)
	}
	return Verdict{
		Outcome: Accept,
		Record: timeseries.Record{
			Month:     timeseries.NewMonth(year, month),
			Indicator: indicator,
			Value:     value,
		},
	}
}

func reject(reason RejectReason) Verdict {
	return Verdict{Outcome: Reject, Reason: reason}
}

// monthFromPeriod maps "M01".."M12" to a month. Anything else is not monthly.
func monthFromPeriod(period string) (time.Month, bool) {
	if len(period) != 3 || period[0] != 'M' {
		return 0, false
	}
	n, err := strconv.Atoi(period[1:])
	if err != nil || n < 1 || n > 12 {
		return 0, false
	}
	return time.Month(n), true
}
