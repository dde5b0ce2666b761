package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Introspection runs a handful of catalog queries, so a small pool is enough.
const postgresMaxConns = 4

// Querier is the part of a pgx connection or pool the introspector needs
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresClient holds a pgx pool for catalog queries
type PostgresClient struct {
	pool    *pgxpool.Pool
	querier Querier
}

// NewPostgresClient opens a pool and checks that the server answers
func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if cfg.MaxConns == 0 || cfg.MaxConns > postgresMaxConns {
		cfg.MaxConns = postgresMaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{pool: pool, querier: pool}, nil
}

// NewPostgresClientFromQuerier wraps an existing connection, pool or fake
func NewPostgresClientFromQuerier(q Querier) *PostgresClient {
	return &PostgresClient{querier: q}
}

// Close releases the pool. Clients built from a querier own nothing.
func (c *PostgresClient) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}

// Querier returns the handle queries run on
func (c *PostgresClient) Querier() Querier {
	return c.querier
}
