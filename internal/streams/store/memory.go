// Package store provides streams.Registry implementations.
package store

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/smazurov/streamctl/internal/streams"
)

// Memory is an in-process registry. It is used by tests and by the CLI
// when no registry is configured.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemory creates an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]string)}
}

// Put implements streams.Registry.
func (m *Memory) Put(_ context.Context, name, connectionString string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[name]; exists {
		return streams.ErrDuplicateName(name)
	}
	m.entries[name] = connectionString
	return nil
}

// Get implements streams.Registry.
func (m *Memory) Get(_ context.Context, name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conn, exists := m.entries[name]
	if !exists {
		return "", streams.ErrNotFound(name)
	}
	return conn, nil
}

// Update implements streams.Registry.
func (m *Memory) Update(_ context.Context, name, connectionString string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[name]; !exists {
		return streams.ErrNotFound(name)
	}
	m.entries[name] = connectionString
	return nil
}

// Delete implements streams.Registry.
func (m *Memory) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[name]; !exists {
		return streams.ErrNotFound(name)
	}
	delete(m.entries, name)
	return nil
}

// List implements streams.Registry.
func (m *Memory) List(_ context.Context) ([]streams.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedEntries(m.entries), nil
}

func sortedEntries(entries map[string]string) []streams.Entry {
	out := make([]streams.Entry, 0, len(entries))
	for _, name := range slices.Sorted(maps.Keys(entries)) {
		out = append(out, streams.Entry{Name: name, ConnectionString: entries[name]})
	}
	return out
}
