package search

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]Strategy{}
)

// Register adds a strategy under an engine id. Ids are case-insensitive.
//
// If the id is already in use, Register panics.
func Register(id string, s Strategy) {
	id = strings.ToLower(strings.TrimSpace(id))
	registryMu.Lock()
	defer registryMu.Unlock()

	if id == "" || s == nil {
		panic("search: Register with empty id or nil strategy")
	}
	if _, ok := registry[id]; ok {
		panic(fmt.Sprintf("search: engine %q already registered", id))
	}
	registry[id] = s
}

// Lookup resolves an engine id to its strategy.
func Lookup(id string) (Strategy, error) {
	registryMu.RLock()
	s, ok := registry[strings.ToLower(strings.TrimSpace(id))]
	registryMu.RUnlock()
	if !ok {
		return nil, &ConfigurationError{
			Field:  "engine",
			Reason: fmt.Sprintf("engine %q does not exist (available: %s)", id, strings.Join(Engines(), ", ")),
		}
	}
	return s, nil
}

// Engines returns the registered engine ids, sorted.
func Engines() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
