package timeseries

import (
	"fmt"
	"time"
)

// DateLayout is the on-disk layout for a month key (always the 1st).
const DateLayout = "2006-01-02"

// Month identifies one calendar month.
// The zero value is not a valid month; use NewMonth or ParseMonth.
type Month struct {
	Year  int
	Month time.Month
}

// NewMonth returns the month for (year, m). Out-of-range months are
// normalized the way time.Date normalizes them, so NewMonth(2024, 13)
// is 2025-01.
func NewMonth(year int, m time.Month) Month {
	t := time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses a first-of-month date in YYYY-MM-DD form.
// Dates that are not the 1st of their month are rejected.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	if t.Day() != 1 {
		return Month{}, fmt.Errorf("parse month %q: day must be 01", s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// IsZero reports whether m is the zero Month.
func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// Time returns midnight UTC on the first day of the month.
func (m Month) Time() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths returns m shifted by n months (n may be negative).
func (m Month) AddMonths(n int) Month {
	return NewMonth(m.Year, m.Month+time.Month(n))
}

// Before reports whether m is strictly earlier than other.
func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

// String renders the month as YYYY-MM-01.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d-01", m.Year, int(m.Month))
}

// MarshalText renders the month as YYYY-MM-01.
func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText parses a YYYY-MM-01 month.
func (m *Month) UnmarshalText(text []byte) error {
	parsed, err := ParseMonth(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Record is one validated (month, indicator, value) observation.
type Record struct {
	Month     Month
	Indicator string
	Value     float64
}
