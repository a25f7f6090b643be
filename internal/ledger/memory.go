package ledger

import "sync"

// Memory is a Store that lives only as long as the process.
type Memory struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemory returns an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

func (m *Memory) Get(src string) (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[src]
	return rec, ok, nil
}

func (m *Memory) Set(rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Source] = rec
	return nil
}

func (m *Memory) Delete(src string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, src)
	return nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.records)
	return nil
}

func (m *Memory) Keys() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedKeys(m.records), nil
}

func (m *Memory) Close() error { return nil }
