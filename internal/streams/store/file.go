package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/smazurov/streamctl/internal/streams"
)

// fileFormat reads and writes the streams map of one registry file format.
type fileFormat interface {
	// decode extracts the streams map. data may be empty.
	decode(data []byte) (map[string]string, error)
	// encode writes entries back, keeping whatever else previous held.
	encode(previous []byte, entries map[string]string) ([]byte, error)
}

// fileRegistry is a registry persisted in a single file. The file is read
// on every operation so edits made outside the process are picked up.
type fileRegistry struct {
	path   string
	format fileFormat
	mu     sync.Mutex
}

// Path returns the backing file.
func (r *fileRegistry) Path() string {
	return r.path
}

// load returns the raw file and its streams map. A missing file is empty.
func (r *fileRegistry) load() ([]byte, map[string]string, error) {
	data, err := os.ReadFile(r.path)
	if err != nil && !os.IsNotExist(err) {
		return nil, nil, registryError("failed to read registry file", err)
	}
	entries, err := r.format.decode(data)
	if err != nil {
		return nil, nil, registryError("failed to parse registry file", err)
	}
	if entries == nil {
		entries = make(map[string]string)
	}
	return data, entries, nil
}

func (r *fileRegistry) save(previous []byte, entries map[string]string) error {
	data, err := r.format.encode(previous, entries)
	if err != nil {
		return registryError("failed to encode registry file", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return registryError("failed to create registry directory", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return registryError("failed to write registry file", err)
	}
	return nil
}

// mutate runs fn on the current entries and saves them if fn succeeds.
func (r *fileRegistry) mutate(fn func(entries map[string]string) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous, entries, err := r.load()
	if err != nil {
		return err
	}
	if err := fn(entries); err != nil {
		return err
	}
	return r.save(previous, entries)
}

func (r *fileRegistry) Put(_ context.Context, name, connectionString string) error {
	return r.mutate(func(entries map[string]string) error {
		if _, exists := entries[name]; exists {
			return streams.ErrDuplicateName(name)
		}
		entries[name] = connectionString
		return nil
	})
}

func (r *fileRegistry) Get(_ context.Context, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, entries, err := r.load()
	if err != nil {
		return "", err
	}
	conn, exists := entries[name]
	if !exists {
		return "", streams.ErrNotFound(name)
	}
	return conn, nil
}

func (r *fileRegistry) Update(_ context.Context, name, connectionString string) error {
	return r.mutate(func(entries map[string]string) error {
		if _, exists := entries[name]; !exists {
			return streams.ErrNotFound(name)
		}
		entries[name] = connectionString
		return nil
	})
}

func (r *fileRegistry) Delete(_ context.Context, name string) error {
	return r.mutate(func(entries map[string]string) error {
		if _, exists := entries[name]; !exists {
			return streams.ErrNotFound(name)
		}
		delete(entries, name)
		return nil
	})
}

func (r *fileRegistry) List(_ context.Context) ([]streams.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, entries, err := r.load()
	if err != nil {
		return nil, err
	}
	return sortedEntries(entries), nil
}

func registryError(msg string, cause error) error {
	return streams.NewStreamError(streams.ErrCodeRegistryError, msg, cause)
}

// LoadEntries reads the entries of a registry file without opening a
// registry, for use as a file watcher loader.
func LoadEntries(path, backend string) ([]streams.Entry, error) {
	reg, err := openFile(path, backend)
	if err != nil {
		return nil, err
	}
	return reg.List(context.Background())
}

func openFile(path, backend string) (*fileRegistry, error) {
	switch backend {
	case BackendTOML, "":
		return &fileRegistry{path: path, format: tomlFormat{}}, nil
	case BackendYAML:
		return &fileRegistry{path: path, format: go2rtcFormat{}}, nil
	default:
		return nil, fmt.Errorf("backend %q is not file based", backend)
	}
}
