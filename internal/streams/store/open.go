package store

import (
	"context"
	"fmt"

	"github.com/smazurov/streamctl/internal/streams"
)

// Registry backends.
const (
	BackendTOML     = "toml"
	BackendYAML     = "yaml"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Default registry file paths.
const (
	DefaultTOMLPath = "streams.toml"
	DefaultYAMLPath = "go2rtc.yaml"
)

// Options selects and configures a registry backend.
type Options struct {
	Backend     string
	Path        string
	DatabaseURL string
	Postgres    PostgresOptions
}

// Open creates the configured registry. The returned close function must be
// called when the registry is no longer used.
func Open(ctx context.Context, opts Options) (streams.Registry, func(), error) {
	noop := func() {}

	switch opts.Backend {
	case BackendTOML, "":
		return NewTOML(opts.Path), noop, nil
	case BackendYAML:
		return NewGo2RTC(opts.Path), noop, nil
	case BackendMemory:
		return NewMemory(), noop, nil
	case BackendPostgres:
		if opts.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("registry backend %q requires a database url", opts.Backend)
		}
		pg, err := NewPostgres(ctx, opts.DatabaseURL, opts.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown registry backend %q", opts.Backend)
	}
}

// FilePath returns the file backing a file-based backend, or "" otherwise.
func FilePath(opts Options) string {
	switch opts.Backend {
	case BackendTOML, "":
		if opts.Path == "" {
			return DefaultTOMLPath
		}
		return opts.Path
	case BackendYAML:
		if opts.Path == "" {
			return DefaultYAMLPath
		}
		return opts.Path
	default:
		return ""
	}
}
