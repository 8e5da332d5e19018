package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/laborsync/internal/fetch"
	"github.com/roach88/laborsync/internal/store"
	"github.com/roach88/laborsync/internal/timeseries"
)

func TestFixedClock(t *testing.T) {
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	c := NewFixedClock(start)
	assert.Equal(t, start, c.Now())

	c.Advance(time.Hour)
	assert.Equal(t, start.Add(time.Hour), c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestScriptedFetcher_RecordsCalls(t *testing.T) {
	f := StaticFetcher([]byte("ok"))
	ids := []string{"A", "B"}
	body, err := f.Fetch(context.Background(), fetch.Request{SeriesIDs: ids, StartYear: 2020, EndYear: 2024})
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), body)

	ids[0] = "mutated"
	calls := f.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"A", "B"}, calls[0].SeriesIDs, "recorded request is a copy")
	assert.Equal(t, 1, f.CallCount())
}

func TestFailingFetcher(t *testing.T) {
	boom := errors.New("boom")
	_, err := FailingFetcher(boom).Fetch(context.Background(), fetch.Request{})
	assert.ErrorIs(t, err, boom)
}

func TestUpstream_AnswersLikeBLS(t *testing.T) {
	u := NewUpstream()
	jan23 := timeseries.NewMonth(2023, time.January)
	dec23 := timeseries.NewMonth(2023, time.December)
	u.Fill("LNS14000000", jan23, dec23, func(timeseries.Month) float64 { return 3.6 })
	u.Set("LNS14000000", timeseries.NewMonth(2024, time.January), 3.7)
	u.Set("LNS14000000", timeseries.NewMonth(2019, time.May), 3.6)

	body, err := u.Fetch(context.Background(), fetch.Request{
		SeriesIDs: []string{"LNS14000000", "UNKNOWN"},
		StartYear: 2023,
		EndYear:   2024,
	})
	require.NoError(t, err)

	var resp struct {
		Status  string
		Results struct {
			Series []Series `json:"series"`
		}
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "REQUEST_SUCCEEDED", resp.Status)
	require.Len(t, resp.Results.Series, 2)

	data := resp.Results.Series[0].Data
	require.Len(t, data, 14, "13 monthly points in range plus one annual average")
	assert.Equal(t, Point{Year: "2024", Period: "M01", Value: "3.7"}, data[0])
	assert.Equal(t, Point{Year: "2023", Period: "M13", Value: "3.6"}, data[len(data)-1])
	assert.Empty(t, resp.Results.Series[1].Data)
}

func TestUpstream_RespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewUpstream().Fetch(ctx, fetch.Request{SeriesIDs: []string{"A"}, StartYear: 2024, EndYear: 2024})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryTables(t *testing.T) {
	m := NewMemoryTables(nil)
	tbl, err := m.Load()
	require.NoError(t, err)
	assert.Nil(t, tbl)

	src := timeseries.New()
	src.Set(timeseries.NewMonth(2024, time.January), "A", 1)
	require.NoError(t, m.Save(src))
	src.Set(timeseries.NewMonth(2024, time.February), "A", 2)

	got, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len(), "store keeps its own copy")
	assert.Equal(t, 1, m.Saves())

	m.FailSave(errors.New("disk full"))
	assert.Error(t, m.Save(src))
	assert.Equal(t, 1, m.Saves())

	m.FailLoad(errors.New("unreadable"))
	_, err = m.Load()
	assert.Error(t, err)
}

func TestMemoryLedger(t *testing.T) {
	l := NewMemoryLedger()
	require.NoError(t, l.Record(context.Background(), storeRun("r1"), nil))
	assert.Len(t, l.Runs(), 1)
	assert.Empty(t, l.Payloads("r1"))

	l.Fail(errors.New("locked"))
	assert.Error(t, l.Record(context.Background(), storeRun("r2"), nil))
	assert.Len(t, l.Runs(), 1)
}

func storeRun(id string) store.Run {
	return store.Run{ID: id, Outcome: "updated"}
}
