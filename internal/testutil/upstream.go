package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/roach88/laborsync/internal/fetch"
	"github.com/roach88/laborsync/internal/timeseries"
)

// Point is one observation in a BLS v2 response.
type Point struct {
	Year   string `json:"year"`
	Period string `json:"period"`
	Value  string `json:"value"`
}

// Series is one series block in a BLS v2 response.
type Series struct {
	SeriesID string  `json:"seriesID"`
	Data     []Point `json:"data"`
}

// Response renders a successful BLS v2 response body.
func Response(series ...Series) []byte {
	if series == nil {
		series = []Series{}
	}
	for i := range series {
		if series[i].Data == nil {
			series[i].Data = []Point{}
		}
	}
	body := map[string]any{
		"status":       "REQUEST_SUCCEEDED",
		"responseTime": 42,
		"message":      []string{},
		"Results":      map[string]any{"series": series},
	}
	data, err := json.Marshal(body)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal response: %v", err))
	}
	return data
}

// Upstream is an in-memory BLS API. It answers a request with every stored
// observation of the requested series inside the year range, newest first
// like the real API, followed by an M13 annual average per complete year.
type Upstream struct {
	mu     sync.Mutex
	values map[string]map[timeseries.Month]float64
}

// NewUpstream returns an empty upstream.
func NewUpstream() *Upstream {
	return &Upstream{values: make(map[string]map[timeseries.Month]float64)}
}

// Set stores or revises one observation.
func (u *Upstream) Set(code string, m timeseries.Month, v float64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.values[code] == nil {
		u.values[code] = make(map[timeseries.Month]float64)
	}
	u.values[code][m] = v
}

// Fill stores value for code for every month in [from, to].
func (u *Upstream) Fill(code string, from, to timeseries.Month, value func(timeseries.Month) float64) {
	for m := from; !to.Before(m); m = m.AddMonths(1) {
		u.Set(code, m, value(m))
	}
}

// Fetch implements the engine's fetcher contract.
func (u *Upstream) Fetch(ctx context.Context, req fetch.Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	series := make([]Series, 0, len(req.SeriesIDs))
	for _, code := range req.SeriesIDs {
		obs := u.values[code]
		var months []timeseries.Month
		for m := range obs {
			if m.Year >= req.StartYear && m.Year <= req.EndYear {
				months = append(months, m)
			}
		}
		sort.Slice(months, func(i, j int) bool { return months[j].Before(months[i]) })

		s := Series{SeriesID: code, Data: []Point{}}
		perYear := make(map[int][]float64)
		for _, m := range months {
			s.Data = append(s.Data, Point{
				Year:   strconv.Itoa(m.Year),
				Period: fmt.Sprintf("M%02d", int(m.Month)),
				Value:  strconv.FormatFloat(obs[m], 'f', -1, 64),
			})
			perYear[m.Year] = append(perYear[m.Year], obs[m])
		}
		for year := req.EndYear; year >= req.StartYear; year-- {
			vals := perYear[year]
			if len(vals) != 12 {
				continue
			}
			var sum float64
			for _, v := range vals {
				sum += v
			}
			s.Data = append(s.Data, Point{
				Year:   strconv.Itoa(year),
				Period: "M13",
				Value:  strconv.FormatFloat(sum/12, 'f', 1, 64),
			})
		}
		series = append(series, s)
	}
	return Response(series...), nil
}
