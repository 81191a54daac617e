package api

import (
	"context"
	"sync"
)

// MockClient is an in-memory Gateway for tests.
type MockClient struct {
	mu sync.RWMutex

	// Response bodies
	LeaderboardBody []byte
	TradesBody      []byte

	// Last request parameters
	LastTraders string
	LastLimit   int

	// Call tracking
	Calls map[string]int

	// Error injection
	ErrorOnNext map[string]error
	// ErrorAlways fails every call of the named method until cleared.
	ErrorAlways map[string]error
}

var _ Gateway = (*MockClient)(nil)

// NewMockClient creates a new mock gateway.
func NewMockClient() *MockClient {
	return &MockClient{
		Calls:       make(map[string]int),
		ErrorOnNext: make(map[string]error),
		ErrorAlways: make(map[string]error),
	}
}

func (m *MockClient) trackCall(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[name]++
	if err, ok := m.ErrorOnNext[name]; ok {
		delete(m.ErrorOnNext, name)
		return err
	}
	if err, ok := m.ErrorAlways[name]; ok {
		return err
	}
	return nil
}

// LeaderboardJSON returns LeaderboardBody.
func (m *MockClient) LeaderboardJSON(ctx context.Context) ([]byte, error) {
	if err := m.trackCall("LeaderboardJSON"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LeaderboardBody, nil
}

// TradesJSON records the request and returns TradesBody.
func (m *MockClient) TradesJSON(ctx context.Context, traders string, limit int) ([]byte, error) {
	m.mu.Lock()
	m.LastTraders = traders
	m.LastLimit = limit
	m.mu.Unlock()

	if err := m.trackCall("TradesJSON"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.TradesBody, nil
}

// SetTradesBody swaps the trades response.
func (m *MockClient) SetTradesBody(body []byte) {
	m.mu.Lock()
	m.TradesBody = body
	m.mu.Unlock()
}

// SetError makes every call of method fail with err; nil clears it.
func (m *MockClient) SetError(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.ErrorAlways, method)
		return
	}
	m.ErrorAlways[method] = err
}

// CallCount returns how many times method was called.
func (m *MockClient) CallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Calls[method]
}

// LastRequest returns the traders and limit of the last trades call.
func (m *MockClient) LastRequest() (string, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastTraders, m.LastLimit
}
