package audit

import (
	"context"
	"sync"
)

// MemorySink is a simple in-memory append-only sink useful for tests.
// It is not intended for production use.
type MemorySink struct {
	mu      sync.Mutex
	records []Record

	// Err, when set, is returned by Insert and nothing is stored.
	Err error
}

func NewMemorySink() *MemorySink { return &MemorySink{} }

func (m *MemorySink) Insert(ctx context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.records = append(m.records, r)
	return nil
}

func (m *MemorySink) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}
