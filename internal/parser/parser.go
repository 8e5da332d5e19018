package parser

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/laborsync/internal/catalog"
	"github.com/roach88/laborsync/internal/timeseries"
)

// Result is the parse output for one or more payloads.
type Result struct {
	Table    *timeseries.Table
	Records  []timeseries.Record
	Skipped  int
	Rejected []Rejection
	// Unknown lists series ids absent from the catalog, in first-seen order.
	// Their values are kept under the id itself.
	Unknown []string
}

// envelope is the subset of the BLS v2 response the parser reads.
type envelope struct {
	Status  string   `json:"status"`
	Message []string `json:"message"`
	Results *struct {
		Series *[]seriesEntry `json:"series"`
	} `json:"Results"`
}

type seriesEntry struct {
	SeriesID string      `json:"seriesID"`
	Data     []dataPoint `json:"data"`
}

type dataPoint struct {
	Year   flexString `json:"year"`
	Period flexString `json:"period"`
	Value  flexString `json:"value"`
}

// flexString holds a scalar field as text. Strings are unquoted, anything
// else keeps its raw JSON form so Validate can reject it per observation.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
	default:
		*f = flexString(data)
	}
	return nil
}

// Parse decodes one payload and validates every observation in it.
func Parse(payload []byte, cat *catalog.Catalog) (*Result, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, &MalformedResponseError{
			Reason:  fmt.Sprintf("invalid JSON: %v", err),
			Payload: payload,
		}
	}
	if env.Results == nil || env.Results.Series == nil {
		return nil, &MalformedResponseError{
			Reason:   "missing Results.series",
			Status:   env.Status,
			Messages: env.Message,
			Payload:  payload,
		}
	}

	res := &Result{}
	for _, s := range *env.Results.Series {
		name := cat.NameFor(s.SeriesID)
		if s.SeriesID != "" && !cat.Known(s.SeriesID) {
			res.Unknown = appendUnique(res.Unknown, s.SeriesID)
		}
		for _, d := range s.Data {
			obs := RawObservation{
				SeriesID: s.SeriesID,
				Year:     string(d.Year),
				Period:   string(d.Period),
				Value:    string(d.Value),
			}
			v := Validate(obs, name)
			switch v.Outcome {
			case Accept:
				res.Records = append(res.Records, v.Record)
			case SkipAnnual:
				res.Skipped++
			case Reject:
				res.Rejected = append(res.Rejected, Rejection{
					SeriesID:  obs.SeriesID,
					Indicator: name,
					Year:      obs.Year,
					Period:    obs.Period,
					Value:     obs.Value,
					Reason:    v.Reason,
				})
			}
		}
	}
	res.Table = timeseries.FromRecords(res.Records)
	return res, nil
}

// Combine concatenates results in the given order and reshapes the combined
// records once, so collisions across payloads are averaged like collisions
// within one.
func Combine(results ...*Result) *Result {
	out := &Result{}
	for _, r := range results {
		if r == nil {
			continue
		}
		out.Records = append(out.Records, r.Records...)
		out.Skipped += r.Skipped
		out.Rejected = append(out.Rejected, r.Rejected...)
		for _, id := range r.Unknown {
			out.Unknown = appendUnique(out.Unknown, id)
		}
	}
	out.Table = timeseries.FromRecords(out.Records)
	return out
}

func appendUnique(ids []string, id string) []string {
	for _, have := range ids {
		if have == id {
			return ids
		}
	}
	return append(ids, id)
}
