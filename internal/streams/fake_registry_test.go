package streams

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// fakeRegistry is an in-memory Registry with optional injected failures.
type fakeRegistry struct {
	mu      sync.Mutex
	entries map[string]string
	puts    []string
	failPut map[string]error
	failDel map[string]error
	onPut   func(name string)
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		entries: make(map[string]string),
		failPut: make(map[string]error),
		failDel: make(map[string]error),
	}
}

func (r *fakeRegistry) Put(_ context.Context, name, conn string) error {
	if r.onPut != nil {
		r.onPut(name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.puts = append(r.puts, name)
	if err := r.failPut[name]; err != nil {
		return err
	}
	if _, ok := r.entries[name]; ok {
		return ErrDuplicateName(name)
	}
	r.entries[name] = conn
	return nil
}

func (r *fakeRegistry) Get(_ context.Context, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.entries[name]
	if !ok {
		return "", ErrNotFound(name)
	}
	return conn, nil
}

func (r *fakeRegistry) Update(_ context.Context, name, conn string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; !ok {
		return ErrNotFound(name)
	}
	r.entries[name] = conn
	return nil
}

func (r *fakeRegistry) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failDel[name]; err != nil {
		return err
	}
	if _, ok := r.entries[name]; !ok {
		return ErrNotFound(name)
	}
	delete(r.entries, name)
	return nil
}

func (r *fakeRegistry) List(_ context.Context) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, 0, len(r.entries))
	for _, name := range slices.Sorted(maps.Keys(r.entries)) {
		out = append(out, Entry{Name: name, ConnectionString: r.entries[name]})
	}
	return out, nil
}

func (r *fakeRegistry) snapshot() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.entries)
}
