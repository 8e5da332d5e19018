package tablefile

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/laborsync/internal/timeseries"
)

// DateColumn is the header of the month key column.
const DateColumn = "Date"

const utf8BOM = "\ufeff"

// FormatError reports a table file that violates the file contract.
// Line is 1-based; 0 means the error is not tied to a line.
type FormatError struct {
	Line   int
	Reason string
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("table format: line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("table format: %s", e.Reason)
}

// IsFormatError reports whether err is or wraps a *FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// Encode writes t to w in the file contract format.
func Encode(w io.Writer, t *timeseries.Table) error {
	if t == nil {
		t = timeseries.New()
	}
	cw := csv.NewWriter(w)
	cols := t.Columns()
	if err := checkColumns(cols); err != nil {
		return err
	}

	header := make([]string, 0, len(cols)+1)
	header = append(header, DateColumn)
	header = append(header, cols...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(header))
	for _, m := range t.Months() {
		record[0] = m.String()
		for i, c := range cols {
			if v, ok := t.Get(m, c); ok {
				record[i+1] = FormatValue(v)
			} else {
				record[i+1] = ""
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", m, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Marshal returns the encoded form of t.
func Marshal(t *timeseries.Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FormatValue renders v with the shortest round-trip decimal form.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Decode reads a table in the file contract format.
// Every violation is reported as a *FormatError.
func Decode(r io.Reader) (*timeseries.Table, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &FormatError{Reason: "missing header row"}
	}
	if err != nil {
		return nil, csvError(err)
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)
	if header[0] != DateColumn {
		return nil, &FormatError{Line: 1, Reason: fmt.Sprintf("first column is %q, want %q", header[0], DateColumn)}
	}

	cols := header[1:]
	if err := checkColumns(cols); err != nil {
		return nil, err
	}
	t := timeseries.New()
	for _, c := range cols {
		t.AddColumn(c)
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}
		line, _ := cr.FieldPos(0)

		m, err := timeseries.ParseMonth(record[0])
		if err != nil {
			return nil, &FormatError{Line: line, Reason: err.Error()}
		}
		if t.HasMonth(m) {
			return nil, &FormatError{Line: line, Reason: fmt.Sprintf("duplicate month %s", m)}
		}
		populated := false
		for i, field := range record[1:] {
			if field == "" {
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, &FormatError{Line: line, Reason: fmt.Sprintf("column %q: invalid value %q", cols[i], field)}
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &FormatError{Line: line, Reason: fmt.Sprintf("column %q: non-finite value %q", cols[i], field)}
			}
			t.Set(m, cols[i], v)
			populated = true
		}
		if !populated {
			return nil, &FormatError{Line: line, Reason: fmt.Sprintf("month %s has no values", m)}
		}
	}
	return t, nil
}

// checkColumns validates indicator column names for both directions, so a
// table that encodes always decodes.
func checkColumns(cols []string) error {
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		if c == "" {
			return &FormatError{Line: 1, Reason: "empty column name"}
		}
		if c == DateColumn || seen[c] {
			return &FormatError{Line: 1, Reason: fmt.Sprintf("duplicate column %q", c)}
		}
		seen[c] = true
	}
	return nil
}

// csvError converts encoding/csv parse errors into FormatErrors.
func csvError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &FormatError{Line: pe.Line, Reason: pe.Err.Error()}
	}
	return fmt.Errorf("read table: %w", err)
}
