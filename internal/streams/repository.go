package streams

import (
	"context"
	"time"
)

// Registry is the durable store of stream name to connection string.
// Implementations must be safe for concurrent use.
type Registry interface {
	// Put adds a new entry. It fails with ErrCodeDuplicateName if the name exists.
	Put(ctx context.Context, name, connectionString string) error

	// Get returns the connection string stored under name.
	Get(ctx context.Context, name string) (string, error)

	// Update replaces the connection string of an existing entry.
	Update(ctx context.Context, name, connectionString string) error

	// Delete removes an entry.
	Delete(ctx context.Context, name string) error

	// List returns all entries sorted by name.
	List(ctx context.Context) ([]Entry, error)
}

// Prober checks that a raw source address is reachable.
type Prober interface {
	Probe(ctx context.Context, sourceAddress string, timeout time.Duration) error
}

// DiscoveredSource is a candidate source found on the local network.
type DiscoveredSource struct {
	Address string `json:"address"`
	URL     string `json:"url"`
}

// Scanner looks for candidate sources. Results are advisory only.
type Scanner interface {
	Scan(ctx context.Context, timeout time.Duration) ([]DiscoveredSource, error)
}
