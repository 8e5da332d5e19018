package testutil

import (
	"context"
	"sync"

	"github.com/roach88/laborsync/internal/fetch"
)

// FetchFunc answers one request.
type FetchFunc func(ctx context.Context, req fetch.Request) ([]byte, error)

// ScriptedFetcher answers requests with a function and records every call.
type ScriptedFetcher struct {
	fn FetchFunc

	mu    sync.Mutex
	calls []fetch.Request
}

// NewScriptedFetcher returns a fetcher that delegates to fn.
func NewScriptedFetcher(fn FetchFunc) *ScriptedFetcher {
	return &ScriptedFetcher{fn: fn}
}

// StaticFetcher returns body for every request.
func StaticFetcher(body []byte) *ScriptedFetcher {
	return NewScriptedFetcher(func(context.Context, fetch.Request) ([]byte, error) {
		return body, nil
	})
}

// FailingFetcher returns err for every request.
func FailingFetcher(err error) *ScriptedFetcher {
	return NewScriptedFetcher(func(context.Context, fetch.Request) ([]byte, error) {
		return nil, err
	})
}

// Fetch records req and delegates.
func (f *ScriptedFetcher) Fetch(ctx context.Context, req fetch.Request) ([]byte, error) {
	f.mu.Lock()
	cp := req
	cp.SeriesIDs = append([]string(nil), req.SeriesIDs...)
	f.calls = append(f.calls, cp)
	f.mu.Unlock()
	return f.fn(ctx, req)
}

// Calls returns the recorded requests in arrival order.
func (f *ScriptedFetcher) Calls() []fetch.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fetch.Request(nil), f.calls...)
}

// CallCount returns how many requests were made.
func (f *ScriptedFetcher) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
