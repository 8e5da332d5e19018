package tablefile

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/laborsync/internal/timeseries"
)

func newGolden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func sampleTable() *timeseries.Table {
	tbl := timeseries.New()
	nov := timeseries.NewMonth(2023, time.November)
	dec := timeseries.NewMonth(2023, time.December)
	jan := timeseries.NewMonth(2024, time.January)

	// Inserted out of order on purpose.
	tbl.Set(jan, "Unemployment Rate", 3.7)
	tbl.Set(jan, "Total Nonfarm Payrolls", 157253)
	tbl.Set(nov, "Unemployment Rate", 3.7)
	tbl.Set(nov, "Total Nonfarm Payrolls", 156900)
	tbl.Set(nov, "Average Hourly Earnings", 34.1)
	tbl.Set(dec, "Average Hourly Earnings", 34.27)
	tbl.Set(dec, "Unemployment Rate", 3.7)
	return tbl
}

func TestEncode_Golden(t *testing.T) {
	data, err := Marshal(sampleTable())
	require.NoError(t, err)
	newGolden(t).Assert(t, "three_months", data)
}

func TestEncode_EmptyTableGolden(t *testing.T) {
	data, err := Marshal(timeseries.New())
	require.NoError(t, err)
	newGolden(t).Assert(t, "empty", data)

	nilData, err := Marshal(nil)
	require.NoError(t, err)
	assert.Equal(t, data, nilData)
}

func TestEncode_QuotesHeaderWithComma(t *testing.T) {
	tbl := timeseries.New()
	feb := timeseries.NewMonth(2024, time.February)
	tbl.Set(feb, "Hours, Weekly (Private)", 34.3)
	tbl.Set(feb, "Unemployment Rate", 3.9)

	data, err := Marshal(tbl)
	require.NoError(t, err)
	newGolden(t).Assert(t, "quoted_header", data)

	back, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.True(t, back.Equal(tbl))
}

func TestRoundTrip_PreservesPrecision(t *testing.T) {
	tbl := timeseries.New()
	m := timeseries.NewMonth(1948, time.January)
	values := map[string]float64{
		"a": 0.1,
		"b": 1.0 / 3.0,
		"c": 123456789.123456,
		"d": 1e-9,
		"e": -4.25,
		"f": 0,
	}
	for k, v := range values {
		tbl.Set(m, k, v)
	}

	data, err := Marshal(tbl)
	require.NoError(t, err)
	back, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)

	for k, v := range values {
		got, ok := back.Get(m, k)
		require.True(t, ok, k)
		assert.Equal(t, v, got, "column %s must round-trip exactly", k)
	}

	again, err := Marshal(back)
	require.NoError(t, err)
	assert.Equal(t, data, again, "load-then-save is byte-stable")
}

func TestDecode_KeepsDeclaredColumnWithoutValues(t *testing.T) {
	src := "Date,A,B\n2024-01-01,1,\n"
	tbl, err := Decode(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, tbl.Columns())

	out, err := Marshal(tbl)
	require.NoError(t, err)
	assert.Equal(t, src, string(out))
}

func TestDecode_AcceptsBOMAndAnyRowOrder(t *testing.T) {
	src := "\ufeffDate,A\n2024-02-01,2\n2024-01-01,1\n"
	tbl, err := Decode(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())

	out, err := Marshal(tbl)
	require.NoError(t, err)
	assert.Equal(t, "Date,A\n2024-01-01,1\n2024-02-01,2\n", string(out))
}

func TestDecode_FormatErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
		line int
	}{
		{"empty file", "", "missing header row", 0},
		{"wrong first column", "Month,A\n2024-01-01,1\n", `first column is "Month"`, 1},
		{"duplicate column", "Date,A,A\n", `duplicate column "A"`, 1},
		{"date column twice", "Date,Date\n", `duplicate column "Date"`, 1},
		{"empty column name", "Date,,A\n", "empty column name", 1},
		{"bad date", "Date,A\n2024/01/01,1\n", "parse month", 2},
		{"not first of month", "Date,A\n2024-01-15,1\n", "day must be 01", 2},
		{"duplicate month", "Date,A\n2024-01-01,1\n2024-01-01,2\n", "duplicate month 2024-01-01", 3},
		{"bad value", "Date,A\n2024-01-01,abc\n", `invalid value "abc"`, 2},
		{"non-finite value", "Date,A\n2024-01-01,NaN\n", "non-finite", 2},
		{"row without values", "Date,A\n2024-01-01,\n", "has no values", 2},
		{"field count", "Date,A,B\n2024-01-01,1\n", "wrong number of fields", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.True(t, IsFormatError(err), "got %T", err)
			assert.Contains(t, err.Error(), tt.want)

			var fe *FormatError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.line, fe.Line)
		})
	}
}

func TestEncode_RefusesReservedColumn(t *testing.T) {
	tbl := timeseries.New()
	tbl.Set(timeseries.NewMonth(2024, time.January), DateColumn, 1)

	var buf bytes.Buffer
	err := Encode(&buf, tbl)
	require.Error(t, err)
	assert.True(t, IsFormatError(err))
	assert.Contains(t, err.Error(), `duplicate column "Date"`)
	assert.Zero(t, buf.Len(), "nothing is written for a refused header")
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "157253", FormatValue(157253))
	assert.Equal(t, "3.7", FormatValue(3.7))
	assert.Equal(t, "0.000000001", FormatValue(1e-9))
	assert.Equal(t, "-0.5", FormatValue(-0.5))
}
