package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smazurov/streamctl/internal/streams"
)

const pgUniqueViolation = "23505"

const createStreamsTable = `
CREATE TABLE IF NOT EXISTS streams (
	name TEXT PRIMARY KEY,
	url  TEXT NOT NULL
)`

// PostgresOptions tunes the connection pool. Zero values keep pgx defaults.
type PostgresOptions struct {
	MaxConns int32
	MinConns int32
}

// Postgres is a registry stored in a "streams" table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to databaseURL, verifies the connection and creates
// the streams table if needed.
func NewPostgres(ctx context.Context, databaseURL string, opts PostgresOptions) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = opts.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := pool.Exec(ctx, createStreamsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create streams table: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Put implements streams.Registry.
func (p *Postgres) Put(ctx context.Context, name, connectionString string) error {
	_, err := p.pool.Exec(ctx, "INSERT INTO streams (name, url) VALUES ($1, $2)", name, connectionString)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return streams.ErrDuplicateName(name)
	}
	if err != nil {
		return registryError("failed to insert stream", err)
	}
	return nil
}

// Get implements streams.Registry.
func (p *Postgres) Get(ctx context.Context, name string) (string, error) {
	var conn string
	err := p.pool.QueryRow(ctx, "SELECT url FROM streams WHERE name = $1", name).Scan(&conn)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", streams.ErrNotFound(name)
	}
	if err != nil {
		return "", registryError("failed to query stream", err)
	}
	return conn, nil
}

// Update implements streams.Registry.
func (p *Postgres) Update(ctx context.Context, name, connectionString string) error {
	tag, err := p.pool.Exec(ctx, "UPDATE streams SET url = $2 WHERE name = $1", name, connectionString)
	if err != nil {
		return registryError("failed to update stream", err)
	}
	if tag.RowsAffected() == 0 {
		return streams.ErrNotFound(name)
	}
	return nil
}

// Delete implements streams.Registry.
func (p *Postgres) Delete(ctx context.Context, name string) error {
	tag, err := p.pool.Exec(ctx, "DELETE FROM streams WHERE name = $1", name)
	if err != nil {
		return registryError("failed to delete stream", err)
	}
	if tag.RowsAffected() == 0 {
		return streams.ErrNotFound(name)
	}
	return nil
}

// List implements streams.Registry.
func (p *Postgres) List(ctx context.Context) ([]streams.Entry, error) {
	rows, err := p.pool.Query(ctx, "SELECT name, url FROM streams ORDER BY name")
	if err != nil {
		return nil, registryError("failed to list streams", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (streams.Entry, error) {
		var e streams.Entry
		err := row.Scan(&e.Name, &e.ConnectionString)
		return e, err
	})
	if err != nil {
		return nil, registryError("failed to scan streams", err)
	}
	return entries, nil
}
