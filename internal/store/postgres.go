package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roach88/cohort/internal/querysql"
)

// Postgres runs statements rendered for querysql.Postgres over a pgx pool.
// Named @placeholders are bound through pgx.NamedArgs.
type Postgres struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds the pool settings.
type PostgresConfig struct {
	DatabaseURL string
	MaxConns    int32
	MinConns    int32
}

// OpenPostgres connects a pool and verifies it with a ping.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Dialect returns querysql.Postgres.
func (p *Postgres) Dialect() querysql.Dialect {
	return querysql.Postgres{}
}

// Count runs a statement that returns a single integer.
func (p *Postgres) Count(ctx context.Context, stmt *querysql.Statement) (int64, error) {
	var n int64
	if err := p.pool.QueryRow(ctx, stmt.SQL, pgx.NamedArgs(stmt.NamedArgs())).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Rows runs a statement and collects every row.
func (p *Postgres) Rows(ctx context.Context, stmt *querysql.Statement) (*Result, error) {
	rows, err := p.pool.Query(ctx, stmt.SQL, pgx.NamedArgs(stmt.NamedArgs()))
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	res := &Result{Columns: make([]string, len(fields))}
	for i, f := range fields {
		res.Columns[i] = f.Name
	}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		res.Rows = append(res.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return res, nil
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
