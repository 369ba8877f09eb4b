package tablestore

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Store keeping each table as an ordered slice of
// rows. It is safe for concurrent use and serves both tests and single-node
// deployments without external storage.
type Memory struct {
	mu     sync.RWMutex
	tables map[string][]Row
}

// NewMemory creates a Memory store with the given tables pre-created empty.
func NewMemory(tables ...string) *Memory {
	m := &Memory{tables: make(map[string][]Row, len(tables))}
	for _, t := range tables {
		m.tables[t] = []Row{}
	}
	return m
}

// CreateTable adds an empty table if it does not exist yet.
func (m *Memory) CreateTable(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[name]; !ok {
		m.tables[name] = []Row{}
	}
}

// DropTable removes a table entirely. Used by tests to simulate a missing
// backing table.
func (m *Memory) DropTable(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables, name)
}

// Rows implements Store.
func (m *Memory) Rows(ctx context.Context, table string) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows, ok := m.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingTable, table)
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out, nil
}

// Append implements Store.
func (m *Memory) Append(ctx context.Context, table string, row Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.tables[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingTable, table)
	}
	m.tables[table] = append(rows, row.Clone())
	return nil
}

// UpdateCell implements Store.
func (m *Memory) UpdateCell(ctx context.Context, table string, rowIndex int, column string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.tables[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingTable, table)
	}
	if rowIndex < 0 || rowIndex >= len(rows) {
		return fmt.Errorf("tablestore: row %d out of range for %s", rowIndex, table)
	}
	rows[rowIndex][column] = value
	return nil
}
