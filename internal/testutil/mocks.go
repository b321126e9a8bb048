package testutil

import (
	"encoding/json"
	"sync"

	"github.com/devaloi/toastbox/internal/domain"
)

// MockClient implements hub.Client for testing.
type MockClient struct {
	name     string
	messages [][]byte
	mu       sync.Mutex
}

// NewMockClient creates a new MockClient with the given name.
func NewMockClient(name string) *MockClient {
	return &MockClient{name: name}
}

// Name returns the mock client's name.
func (m *MockClient) Name() string { return m.name }

// Send records a message sent to the mock client.
func (m *MockClient) Send(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.messages = append(m.messages, cp)
}

// GetMessages returns a copy of all messages received by the mock client.
func (m *MockClient) GetMessages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([][]byte, len(m.messages))
	copy(cp, m.messages)
	return cp
}

// Frames returns the received messages whose "type" field equals typ.
func (m *MockClient) Frames(typ string) []map[string]any {
	var out []map[string]any
	for _, raw := range m.GetMessages() {
		var frame map[string]any
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		if frame["type"] == typ {
			out = append(out, frame)
		}
	}
	return out
}

// LastSnapshot returns the most recent snapshot frame, or false if none
// has been received.
func (m *MockClient) LastSnapshot() (domain.SnapshotMessage, bool) {
	msgs := m.GetMessages()
	for i := len(msgs) - 1; i >= 0; i-- {
		var snap domain.SnapshotMessage
		if err := json.Unmarshal(msgs[i], &snap); err != nil {
			continue
		}
		if snap.Type == domain.MsgSnapshot {
			return snap, true
		}
	}
	return domain.SnapshotMessage{}, false
}

// MockHistory implements store.History for testing.
type MockHistory struct {
	mu      sync.Mutex
	entries map[string][]domain.HistoryEntry
	err     error
}

// NewMockHistory creates a new MockHistory.
func NewMockHistory() *MockHistory {
	return &MockHistory{entries: make(map[string][]domain.HistoryEntry)}
}

// FailWith makes every subsequent Record return err.
func (s *MockHistory) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Record keeps an entry in memory.
func (s *MockHistory) Record(entry domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries[entry.Provider] = append(s.entries[entry.Provider], entry)
	return nil
}

// Recent returns entries for a provider, most recent first.
func (s *MockHistory) Recent(provider string, limit int) ([]domain.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.entries[provider]
	out := make([]domain.HistoryEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

// Entries returns every entry recorded for a provider in arrival order.
func (s *MockHistory) Entries(provider string) []domain.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]domain.HistoryEntry, len(s.entries[provider]))
	copy(cp, s.entries[provider])
	return cp
}

// Close is a no-op for the mock history.
func (s *MockHistory) Close() error { return nil }
