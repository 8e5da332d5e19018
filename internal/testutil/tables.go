package testutil

import (
	"sync"

	"github.com/roach88/laborsync/internal/timeseries"
)

// MemoryTables is an in-memory table store that counts saves.
type MemoryTables struct {
	mu      sync.Mutex
	table   *timeseries.Table
	saves   int
	loadErr error
	saveErr error
}

// NewMemoryTables returns a store holding a clone of initial (nil means
// nothing persisted).
func NewMemoryTables(initial *timeseries.Table) *MemoryTables {
	m := &MemoryTables{}
	if initial != nil {
		m.table = initial.Clone()
	}
	return m
}

// Load returns a clone of the stored table, or nil if none was stored.
func (m *MemoryTables) Load() (*timeseries.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.table == nil {
		return nil, nil
	}
	return m.table.Clone(), nil
}

// Save stores a clone of t.
func (m *MemoryTables) Save(t *timeseries.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if t == nil {
		t = timeseries.New()
	}
	m.table = t.Clone()
	m.saves++
	return nil
}

// FailLoad makes every Load return err.
func (m *MemoryTables) FailLoad(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

// FailSave makes every Save return err.
func (m *MemoryTables) FailSave(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// Table returns a clone of the stored table, or nil if none was stored.
func (m *MemoryTables) Table() *timeseries.Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.table == nil {
		return nil
	}
	return m.table.Clone()
}

// Saves returns how many successful saves happened.
func (m *MemoryTables) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
