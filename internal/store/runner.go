package store

import (
	"context"

	"github.com/roach88/cohort/internal/querysql"
)

// Runner executes rendered statements against a warehouse. It never
// compiles anything; statements must be rendered for Dialect().
type Runner interface {
	// Dialect is the SQL dialect the warehouse accepts.
	Dialect() querysql.Dialect

	// Count runs a statement returning one integer, such as a cohort count.
	Count(ctx context.Context, stmt *querysql.Statement) (int64, error)

	// Rows runs a statement and returns every row.
	Rows(ctx context.Context, stmt *querysql.Statement) (*Result, error)

	Close() error
}

// Result is a fully read row set.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

var (
	_ Runner = (*SQLite)(nil)
	_ Runner = (*Postgres)(nil)
)
