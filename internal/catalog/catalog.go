// Package catalog maps upstream BLS series identifiers to display names.
//
// A Catalog is immutable once built. NameFor is total: a code the catalog
// does not know maps to itself, so a series added upstream shows up as its
// own column instead of failing the run.
package catalog

import (
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Series is one catalog entry.
type Series struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Catalog is an ordered, read-only set of series.
type Catalog struct {
	series []Series
	byCode map[string]string
}

// ReservedName is the table file's month key column. No series may use it.
const ReservedName = "Date"

// New builds a catalog from entries in request order.
// Names are NFC-normalized so a column header compares equal no matter how
// the name was typed. Empty codes, empty or reserved names and duplicate
// codes are errors.
func New(entries []Series) (*Catalog, error) {
	c := &Catalog{
		series: make([]Series, 0, len(entries)),
		byCode: make(map[string]string, len(entries)),
	}
	for i, e := range entries {
		if e.Code == "" {
			return nil, fmt.Errorf("catalog entry %d: empty code", i)
		}
		name := norm.NFC.String(e.Name)
		if name == "" {
			return nil, fmt.Errorf("catalog entry %d (%s): empty name", i, e.Code)
		}
		if name == ReservedName {
			return nil, fmt.Errorf("catalog entry %d (%s): name %q is reserved", i, e.Code, name)
		}
		if _, dup := c.byCode[e.Code]; dup {
			return nil, fmt.Errorf("catalog entry %d: duplicate code %s", i, e.Code)
		}
		c.byCode[e.Code] = name
		c.series = append(c.series, Series{Code: e.Code, Name: name})
	}
	return c, nil
}

// Default returns the built-in labor-market catalog.
func Default() *Catalog {
	c, err := New(defaultSeries)
	if err != nil {
		panic(fmt.Sprintf("catalog: built-in series are invalid: %v", err))
	}
	return c
}

var defaultSeries = []Series{
	{Code: "CES0000000001", Name: "Total Nonfarm Payrolls"},
	{Code: "LNS14000000", Name: "Unemployment Rate"},
	{Code: "LNS11300000", Name: "Labor Force Participation Rate"},
	{Code: "CES0500000003", Name: "Average Hourly Earnings"},
	{Code: "LNS12300000", Name: "Employment-Population Ratio"},
	{Code: "CES0600000007", Name: "Average Weekly Hours (Private)"},
}

// NameFor returns the display name for code, or code itself when unknown.
func (c *Catalog) NameFor(code string) string {
	if name, ok := c.byCode[code]; ok {
		return name
	}
	return code
}

// Known reports whether code is in the catalog.
func (c *Catalog) Known(code string) bool {
	_, ok := c.byCode[code]
	return ok
}

// Codes returns series codes in catalog order.
func (c *Catalog) Codes() []string {
	codes := make([]string, len(c.series))
	for i, s := range c.series {
		codes[i] = s.Code
	}
	return codes
}

// Series returns a copy of the catalog entries in order.
func (c *Catalog) Series() []Series {
	out := make([]Series, len(c.series))
	copy(out, c.series)
	return out
}

// Len returns the number of series.
func (c *Catalog) Len() int {
	return len(c.series)
}
