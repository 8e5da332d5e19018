package parser

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/laborsync/internal/catalog"
	"github.com/roach88/laborsync/internal/timeseries"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func TestParse_MonthlyFiltering(t *testing.T) {
	res, err := Parse(readFixture(t, "full_year.json"), catalog.Default())
	require.NoError(t, err)

	assert.Len(t, res.Records, 12, "M13 must never become a record")
	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, res.Rejected)
	assert.Equal(t, 12, res.Table.Len())
	assert.Equal(t, []string{"Unemployment Rate"}, res.Table.Columns())

	v, ok := res.Table.Get(timeseries.NewMonth(2023, time.May), "Unemployment Rate")
	require.True(t, ok)
	assert.Equal(t, 3.7, v)
}

func TestParse_RejectsAreCountedAndDropped(t *testing.T) {
	res, err := Parse(readFixture(t, "mixed_quality.json"), catalog.Default())
	require.NoError(t, err)

	require.Len(t, res.Rejected, 3)
	reasons := map[RejectReason]int{}
	for _, r := range res.Rejected {
		reasons[r.Reason]++
	}
	assert.Equal(t, map[RejectReason]int{
		ReasonNonNumericValue:  1,
		ReasonDisallowedPeriod: 1,
		ReasonNonFiniteValue:   1,
	}, reasons)

	jan := timeseries.NewMonth(2024, time.January)
	feb := timeseries.NewMonth(2024, time.February)
	assert.False(t, res.Table.HasMonth(jan), "every January value was rejected")
	assert.Equal(t, 1, res.Table.Len())

	v, ok := res.Table.Get(feb, "Total Nonfarm Payrolls")
	require.True(t, ok)
	assert.Equal(t, 157806.0, v)
	_, ok = res.Table.Get(feb, "Average Weekly Hours (Private)")
	assert.False(t, ok)
}

func TestParse_RejectionCarriesContext(t *testing.T) {
	res, err := Parse(readFixture(t, "mixed_quality.json"), catalog.Default())
	require.NoError(t, err)

	first := res.Rejected[0]
	assert.Equal(t, "CES0000000001", first.SeriesID)
	assert.Equal(t, "Total Nonfarm Payrolls", first.Indicator)
	assert.Equal(t, "2024", first.Year)
	assert.Equal(t, "M01", first.Period)
	assert.Equal(t, "-", first.Value)
}

func TestParse_UnknownSeriesUsesCode(t *testing.T) {
	payload := []byte(`{"status":"REQUEST_SUCCEEDED","Results":{"series":[
		{"seriesID":"CUUR0000SA0","data":[{"year":"2024","period":"M03","value":"312.332"}]}
	]}}`)
	res, err := Parse(payload, catalog.Default())
	require.NoError(t, err)
	assert.Equal(t, []string{"CUUR0000SA0"}, res.Table.Columns())
	assert.Equal(t, []string{"CUUR0000SA0"}, res.Unknown)
}

func TestParse_NumericFieldsAccepted(t *testing.T) {
	payload := []byte(`{"Results":{"series":[
		{"seriesID":"LNS14000000","data":[{"year":2024,"period":"M03","value":3.8}]}
	]}}`)
	res, err := Parse(payload, catalog.Default())
	require.NoError(t, err)
	v, ok := res.Table.Get(timeseries.NewMonth(2024, time.March), "Unemployment Rate")
	require.True(t, ok)
	assert.Equal(t, 3.8, v)
}

func TestParse_OddScalarFieldsAreRejectedPerObservation(t *testing.T) {
	tests := []struct {
		name   string
		point  string
		reason RejectReason
		raw    string
	}{
		{"boolean value", `{"year":"2024","period":"M02","value":true}`, ReasonNonNumericValue, "true"},
		{"object value", `{"year":"2024","period":"M02","value":{"x":1}}`, ReasonNonNumericValue, `{"x":1}`},
		{"array value", `{"year":"2024","period":"M02","value":[1]}`, ReasonNonNumericValue, "[1]"},
		{"numeric period", `{"year":"2024","period":2,"value":"3.9"}`, ReasonDisallowedPeriod, "3.9"},
		{"boolean year", `{"year":false,"period":"M02","value":"3.9"}`, ReasonInvalidYear, "3.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := []byte(`{"Results":{"series":[{"seriesID":"LNS14000000","data":[
				{"year":"2024","period":"M01","value":"3.7"},` + tt.point + `]}]}}`)
			res, err := Parse(payload, catalog.Default())
			require.NoError(t, err)

			assert.Equal(t, 1, res.Table.Len())
			v, ok := res.Table.Get(timeseries.NewMonth(2024, time.January), "Unemployment Rate")
			require.True(t, ok)
			assert.Equal(t, 3.7, v)

			require.Len(t, res.Rejected, 1)
			assert.Equal(t, tt.reason, res.Rejected[0].Reason)
			assert.Equal(t, tt.raw, res.Rejected[0].Value)
		})
	}
}

func TestParse_DuplicateWithinResponseAveraged(t *testing.T) {
	payload := []byte(`{"Results":{"series":[
		{"seriesID":"LNS14000000","data":[
			{"year":"2024","period":"M03","value":"3.8"},
			{"year":"2024","period":"M03","value":"4.0"}
		]}
	]}}`)
	res, err := Parse(payload, catalog.Default())
	require.NoError(t, err)
	v, _ := res.Table.Get(timeseries.NewMonth(2024, time.March), "Unemployment Rate")
	assert.InDelta(t, 3.9, v, 1e-12)
}

func TestParse_EmptySeriesIsNotAnError(t *testing.T) {
	res, err := Parse([]byte(`{"status":"REQUEST_SUCCEEDED","Results":{"series":[]}}`), catalog.Default())
	require.NoError(t, err)
	assert.True(t, res.Table.Empty())
	assert.Empty(t, res.Records)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		reason  string
	}{
		{"not json", `<html>Service Unavailable</html>`, "invalid JSON"},
		{"no Results", `{"status":"REQUEST_SUCCEEDED"}`, "missing Results.series"},
		{"null series", `{"Results":{"series":null}}`, "missing Results.series"},
		{"series wrong type", `{"Results":{"series":{"a":1}}}`, "invalid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.payload), catalog.Default())
			require.Error(t, err)

			var me *MalformedResponseError
			require.ErrorAs(t, err, &me)
			assert.Contains(t, me.Reason, tt.reason)
			assert.Equal(t, []byte(tt.payload), me.Payload)
			assert.True(t, IsMalformed(err))
		})
	}
}

func TestParse_NotProcessedCapturesUpstreamStatus(t *testing.T) {
	payload := readFixture(t, "not_processed.json")
	_, err := Parse(payload, catalog.Default())
	require.Error(t, err)

	var me *MalformedResponseError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "REQUEST_NOT_PROCESSED", me.Status)
	require.Len(t, me.Messages, 1)
	assert.Contains(t, me.Messages[0], "daily threshold")
	assert.Contains(t, err.Error(), "status=REQUEST_NOT_PROCESSED")
}

func TestMalformedResponseError_TruncatesPayload(t *testing.T) {
	big := make([]byte, 4096)
	for i := range big {
		big[i] = 'x'
	}
	err := &MalformedResponseError{Reason: "test", Payload: big}
	assert.Less(t, len(err.Error()), 600)
	assert.Len(t, err.Payload, 4096)
}

func TestCombine(t *testing.T) {
	first, err := Parse([]byte(`{"Results":{"series":[
		{"seriesID":"LNS14000000","data":[{"year":"2019","period":"M12","value":"3.6"},{"year":"2019","period":"M13","value":"3.7"}]}
	]}}`), catalog.Default())
	require.NoError(t, err)
	second, err := Parse([]byte(`{"Results":{"series":[
		{"seriesID":"LNS14000000","data":[{"year":"2020","period":"M01","value":"3.5"},{"year":"2020","period":"M02","value":"x"}]}
	]}}`), catalog.Default())
	require.NoError(t, err)

	combined := Combine(first, nil, second)
	assert.Equal(t, 2, combined.Table.Len())
	assert.Len(t, combined.Records, 2)
	assert.Equal(t, 1, combined.Skipped)
	assert.Len(t, combined.Rejected, 1)

	assert.True(t, Combine(second, first).Table.Equal(combined.Table), "order does not change the table")
}

func TestCombine_CollisionAcrossPayloadsAveraged(t *testing.T) {
	a, err := Parse([]byte(`{"Results":{"series":[{"seriesID":"LNS14000000","data":[{"year":"2020","period":"M01","value":"3.0"}]}]}}`), catalog.Default())
	require.NoError(t, err)
	b, err := Parse([]byte(`{"Results":{"series":[{"seriesID":"LNS14000000","data":[{"year":"2020","period":"M01","value":"4.0"}]}]}}`), catalog.Default())
	require.NoError(t, err)

	v, _ := Combine(a, b).Table.Get(timeseries.NewMonth(2020, time.January), "Unemployment Rate")
	assert.Equal(t, 3.5, v)
}

func TestCombine_UnknownSeriesDeduplicated(t *testing.T) {
	payload := []byte(`{"Results":{"series":[
		{"seriesID":"CUUR0000SA0","data":[{"year":"2024","period":"M01","value":"308.4"}]},
		{"seriesID":"LNS14000000","data":[{"year":"2024","period":"M01","value":"3.7"}]}
	]}}`)
	a, err := Parse(payload, catalog.Default())
	require.NoError(t, err)
	b, err := Parse(payload, catalog.Default())
	require.NoError(t, err)

	assert.Equal(t, []string{"CUUR0000SA0"}, Combine(a, b).Unknown)
}

func TestCombine_Empty(t *testing.T) {
	res := Combine()
	require.NotNil(t, res.Table)
	assert.True(t, res.Table.Empty())
}
