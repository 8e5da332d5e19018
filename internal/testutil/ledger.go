package testutil

import (
	"context"
	"sync"

	"github.com/roach88/laborsync/internal/store"
)

// MemoryLedger collects recorded runs.
type MemoryLedger struct {
	mu       sync.Mutex
	runs     []store.Run
	payloads map[string][]store.Payload
	err      error
}

// NewMemoryLedger returns an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{payloads: make(map[string][]store.Payload)}
}

// Record stores run and payloads, or returns the configured failure.
func (l *MemoryLedger) Record(_ context.Context, run store.Run, payloads []store.Payload) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.runs = append(l.runs, run)
	l.payloads[run.ID] = append([]store.Payload(nil), payloads...)
	return nil
}

// Fail makes every Record return err.
func (l *MemoryLedger) Fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

// Runs returns recorded runs in order.
func (l *MemoryLedger) Runs() []store.Run {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]store.Run(nil), l.runs...)
}

// Payloads returns the payloads recorded for runID.
func (l *MemoryLedger) Payloads(runID string) []store.Payload {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]store.Payload(nil), l.payloads[runID]...)
}
