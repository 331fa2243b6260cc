package drest

import (
	"sort"
	"strings"
	"sync"
)

// MockSet holds canned records served in place of API calls. Once a
// resource name is registered, every operation on that resource is
// answered from the set and never reaches the network. An empty record
// list still counts as registered.
//
// Resource names are case-insensitive. A MockSet is safe for concurrent
// use.
type MockSet struct {
	mu   sync.RWMutex
	data map[string][]Fields
}

// NewMockSet creates an empty mock registry.
func NewMockSet() *MockSet {
	return &MockSet{
		data: map[string][]Fields{},
	}
}

func mockKey(resource string) string {
	return strings.ToLower(resource)
}

// Set registers records for a resource, replacing any previous set.
func (m *MockSet) Set(resource string, records []Fields) {
	copied := make([]Fields, 0, len(records))
	for _, record := range records {
		copied = append(copied, record.Copy())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[mockKey(resource)] = copied
}

// Add appends records to a resource, registering it when new.
func (m *MockSet) Add(resource string, records ...Fields) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := mockKey(resource)
	for _, record := range records {
		m.data[key] = append(m.data[key], record.Copy())
	}

	if m.data[key] == nil {
		m.data[key] = []Fields{}
	}
}

// Has reports whether the resource is registered.
func (m *MockSet) Has(resource string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.data[mockKey(resource)]

	return ok
}

// Records returns a copy of the registered records for a resource.
func (m *MockSet) Records(resource string) []Fields {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.data[mockKey(resource)]

	copied := make([]Fields, 0, len(stored))
	for _, record := range stored {
		copied = append(copied, record.Copy())
	}

	return copied
}

// Len returns the number of registered records for a resource.
func (m *MockSet) Len(resource string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.data[mockKey(resource)])
}

// Resources returns the registered resource names, sorted.
func (m *MockSet) Resources() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.data))
	for name := range m.data {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// FindByID returns a copy of the record whose id field stringifies to id.
func (m *MockSet) FindByID(resource, id string) (Fields, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, record := range m.data[mockKey(resource)] {
		if Stringify(record[IDField]) == id {
			return record.Copy(), true
		}
	}

	return nil, false
}

// ReplaceByID swaps the record with the given id for a new one. It
// reports whether a record was found.
func (m *MockSet) ReplaceByID(resource, id string, record Fields) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := mockKey(resource)
	for i, stored := range m.data[key] {
		if Stringify(stored[IDField]) == id {
			m.data[key][i] = record.Copy()

			return true
		}
	}

	return false
}

// DeleteByID removes the record with the given id. It reports whether a
// record was found.
func (m *MockSet) DeleteByID(resource, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := mockKey(resource)
	for i, stored := range m.data[key] {
		if Stringify(stored[IDField]) == id {
			m.data[key] = append(m.data[key][:i], m.data[key][i+1:]...)

			return true
		}
	}

	return false
}

// Remove unregisters a resource. Subsequent operations on it go to the
// network again.
func (m *MockSet) Remove(resource string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, mockKey(resource))
}

// Clear unregisters every resource.
func (m *MockSet) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = map[string][]Fields{}
}
