package sms

import (
	"context"
	"sync"
)

// Call records one message handed to the mock.
type Call struct {
	To   string
	Body string
}

// MockClient records sends instead of delivering them. Used in tests and
// when no Twilio credentials are configured.
type MockClient struct {
	mu    sync.Mutex
	calls []Call
	err   error
}

// NewMockClient creates a new mock client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Send records the message and returns the configured error, if any.
func (m *MockClient) Send(_ context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.calls = append(m.calls, Call{To: to, Body: body})
	return nil
}

// FailWith makes every subsequent Send return err. Pass nil to recover.
func (m *MockClient) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns a copy of the recorded sends.
func (m *MockClient) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}
