package storage

import (
	"context"
	"sync"
)

// MockStore is an in-memory implementation of DataStore for testing
type MockStore struct {
	mu sync.RWMutex

	// Documents by key
	Documents map[string]string

	// Call tracking for assertions
	Calls map[string]int

	// Error injection for testing error paths
	ErrorOnNext map[string]error
}

// NewMockStore creates a new mock store
func NewMockStore() *MockStore {
	return &MockStore{
		Documents:   make(map[string]string),
		Calls:       make(map[string]int),
		ErrorOnNext: make(map[string]error),
	}
}

func (m *MockStore) trackCall(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[name]++
	if err, ok := m.ErrorOnNext[name]; ok {
		delete(m.ErrorOnNext, name)
		return err
	}
	return nil
}

// CallCount returns how many times method was called.
func (m *MockStore) CallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Calls[method]
}

// SetRaw stores a raw value, bypassing call tracking. Useful for seeding
// legacy or corrupt documents.
func (m *MockStore) SetRaw(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Documents[key] = value
}

// Raw returns the stored value without call tracking.
func (m *MockStore) Raw(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.Documents[key]
	return v, ok
}

func (m *MockStore) Close() error {
	return m.trackCall("Close")
}

func (m *MockStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := m.trackCall("Get"); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.Documents[key]
	return v, ok, nil
}

func (m *MockStore) Put(ctx context.Context, key, value string) error {
	if err := m.trackCall("Put"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Documents[key] = value
	return nil
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	if err := m.trackCall("Delete"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Documents, key)
	return nil
}
