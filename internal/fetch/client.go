// Package fetch is the HTTP client for the BLS public timeseries API (v2).
//
// The client only moves bytes. It returns the raw response body of a
// successful request and leaves every judgement about its content to the
// parser.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultURL is the BLS v2 timeseries data endpoint.
const DefaultURL = "https://api.bls.gov/publicAPI/v2/timeseries/data/"

// DefaultUserAgent identifies the client to upstream.
const DefaultUserAgent = "laborsync/1"

// MaxResponseBytes caps how much of a response body is read.
const MaxResponseBytes = 32 << 20

// maxErrorBody is how much of a non-2xx body a StatusError keeps.
const maxErrorBody = 512

const redacted = "[redacted]"

// ErrResponseTooLarge is returned when a body exceeds MaxResponseBytes.
var ErrResponseTooLarge = errors.New("response exceeds size limit")

// Request is one upstream query: a batch of series over an inclusive year
// range.
type Request struct {
	SeriesIDs  []string
	StartYear  int
	EndYear    int
	Credential string
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// Client fetches raw payloads from the BLS API.
// The zero value posts to DefaultURL with a 60 second timeout.
type Client struct {
	URL        string
	HTTPClient *http.Client
	UserAgent  string
}

// New returns a client for url with the given per-request timeout.
func New(url string, timeout time.Duration) *Client {
	return &Client{
		URL:        url,
		HTTPClient: &http.Client{Timeout: timeout},
		UserAgent:  DefaultUserAgent,
	}
}

type requestBody struct {
	SeriesID        []string `json:"seriesid"`
	StartYear       string   `json:"startyear"`
	EndYear         string   `json:"endyear"`
	RegistrationKey string   `json:"registrationkey,omitempty"`
	Catalog         bool     `json:"catalog"`
	Calculations    bool     `json:"calculations"`
	AnnualAverage   bool     `json:"annualaverage"`
}

// Fetch posts req and returns the response body. The credential travels only
// in the request body and is scrubbed from any error text.
func (c *Client) Fetch(ctx context.Context, req Request) ([]byte, error) {
	if len(req.SeriesIDs) == 0 {
		return nil, fmt.Errorf("fetch: no series requested")
	}
	if req.StartYear > req.EndYear {
		return nil, fmt.Errorf("fetch: start year %d after end year %d", req.StartYear, req.EndYear)
	}

	body, err := json.Marshal(requestBody{
		SeriesID:        req.SeriesIDs,
		StartYear:       fmt.Sprint(req.StartYear),
		EndYear:         fmt.Sprint(req.EndYear),
		RegistrationKey: req.Credential,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("fetch: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent())

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch %d-%d: %w", req.StartYear, req.EndYear, redact(err, req.Credential))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("fetch %d-%d: read body: %w", req.StartYear, req.EndYear, redact(err, req.Credential))
	}
	if len(data) > MaxResponseBytes {
		return nil, fmt.Errorf("fetch %d-%d: %w", req.StartYear, req.EndYear, ErrResponseTooLarge)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       truncate(scrub(strings.TrimSpace(string(data)), req.Credential), maxErrorBody),
		}
	}

	return data, nil
}

func (c *Client) url() string {
	if c.URL == "" {
		return DefaultURL
	}
	return c.URL
}

func (c *Client) userAgent() string {
	if c.UserAgent == "" {
		return DefaultUserAgent
	}
	return c.UserAgent
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return &http.Client{Timeout: 60 * time.Second}
	}
	return c.HTTPClient
}

// redactedError keeps the wrapped error reachable for errors.Is while its
// message has the credential removed.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, credential string) error {
	return &redactedError{msg: scrub(err.Error(), credential), err: err}
}

func scrub(s, credential string) string {
	if credential == "" {
		return s
	}
	return strings.ReplaceAll(s, credential, redacted)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
