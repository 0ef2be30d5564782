// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sync"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu       sync.RWMutex
	progress map[string]*UserProgress // keyed by user ID
	prefs    map[string]string        // keyed by user ID -> persona ID

	// Error injection for failure-path tests
	SaveProgressErr error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		progress: make(map[string]*UserProgress),
		prefs:    make(map[string]string),
	}
}

// LoadProgress returns a copy of the stored ledger.
func (m *MockStore) LoadProgress(ctx context.Context) (map[string]*UserProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]*UserProgress, len(m.progress))
	for id, p := range m.progress {
		out[id] = p.Clone()
	}
	return out, nil
}

// SaveProgress stores a copy of the given progress row.
func (m *MockStore) SaveProgress(ctx context.Context, p *UserProgress) error {
	if m.SaveProgressErr != nil {
		return m.SaveProgressErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress[p.UserID] = p.Clone()
	return nil
}

// ResetProgress clears the ledger.
func (m *MockStore) ResetProgress(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress = make(map[string]*UserProgress)
	return nil
}

// GetPersonaPref returns the stored persona id or ErrNotFound.
func (m *MockStore) GetPersonaPref(ctx context.Context, userID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	personaID, ok := m.prefs[userID]
	if !ok {
		return "", ErrNotFound
	}
	return personaID, nil
}

// SetPersonaPref stores a persona preference.
func (m *MockStore) SetPersonaPref(ctx context.Context, userID, personaID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[userID] = personaID
	return nil
}

// ClearPersonaPref removes a persona preference.
func (m *MockStore) ClearPersonaPref(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.prefs, userID)
	return nil
}

// Close is a no-op for the mock.
func (m *MockStore) Close() error {
	return nil
}
