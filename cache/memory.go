package cache

import "sync"

// Memory is a process-scoped Cache.
type Memory struct {
	mu     sync.RWMutex
	scopes map[string]map[string]Entry
}

func NewMemory() *Memory {
	return &Memory{scopes: make(map[string]map[string]Entry)}
}

func (m *Memory) Get(scope, key string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.scopes[scope][key]
	if !ok {
		return Entry{}, false, nil
	}
	return Entry{Body: append([]byte(nil), e.Body...), FetchedAt: e.FetchedAt}, true, nil
}

func (m *Memory) Put(scope, key string, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, ok := m.scopes[scope]
	if !ok {
		entries = make(map[string]Entry)
		m.scopes[scope] = entries
	}
	entries[key] = Entry{Body: append([]byte(nil), e.Body...), FetchedAt: e.FetchedAt}
	return nil
}

func (m *Memory) Clear(scope string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.scopes, scope)
	return nil
}

// Len returns the number of entries held for scope.
func (m *Memory) Len(scope string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.scopes[scope])
}
