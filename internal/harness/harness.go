package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/roach88/cohort/internal/compiler"
	"github.com/roach88/cohort/internal/store"
	"github.com/roach88/cohort/internal/testutil"
)

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	logger zerolog.Logger
}

// WithLogger routes compiler and harness logs to l. Default: zerolog.Nop().
func WithLogger(l zerolog.Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory warehouse seeded from its
// fixtures, with a fixed compilation id so that logs and snapshots are
// reproducible.
//
// Execution flow:
// 1. Create and seed an in-memory warehouse
// 2. Compile the request for the scenario's output shape
// 3. Run the statement (skipped when the request is rejected)
// 4. Evaluate assertions against the outcome
//
// A rejected request is an outcome, not an error: it is recorded in
// Result.Rejection for the assertions to inspect. Errors are returned only
// when the scenario itself cannot run.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	log := cfg.logger.With().Str("scenario", scenario.Name).Logger()

	fixtures, err := scenario.loadFixtures()
	if err != nil {
		return nil, fmt.Errorf("failed to load fixtures: %w", err)
	}

	wh, err := store.OpenMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory warehouse: %w", err)
	}
	defer wh.Close()

	if err := wh.Seed(ctx, fixtures); err != nil {
		return nil, fmt.Errorf("failed to seed warehouse: %w", err)
	}

	out, err := scenario.Output.resolve()
	if err != nil {
		return nil, err
	}

	comp, err := compiler.New(
		compiler.WithDialect(wh.Dialect()),
		compiler.WithIDGenerator(testutil.NewFixedIDGenerator(scenario.CompilationID)),
		compiler.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	compilation, err := comp.Compile(&scenario.Request, out)
	switch {
	case err == nil:
		if err := execute(ctx, wh, compilation, result); err != nil {
			return nil, err
		}
	case compiler.IsBadRequest(err):
		ve, _ := compiler.AsValidationError(err)
		result.Rejection = ve
	default:
		return nil, fmt.Errorf("failed to compile request: %w", err)
	}

	actx := &AssertionContext{
		Warehouse: wh,
		Ctx:       ctx,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	log.Debug().
		Bool("pass", result.Pass).
		Int("failures", len(result.Errors)).
		Msg("scenario finished")

	return result, nil
}

// execute runs a compiled statement and records it in result.
func execute(ctx context.Context, wh *store.SQLite, c *compiler.Compilation, result *Result) error {
	stmt := c.Statement
	result.CompilationID = c.ID
	result.Fingerprint = c.Fingerprint
	result.SQL = stmt.SQL
	for _, p := range stmt.Params {
		result.Params = append(result.Params, Param{Name: p.Name, Value: stmt.Dialect.BindValue(p)})
	}

	if c.Shape == compiler.ShapeCount {
		n, err := wh.Count(ctx, stmt)
		if err != nil {
			return fmt.Errorf("failed to run %s query: %w", c.Shape, err)
		}
		result.Count = &n
		return nil
	}

	rows, err := wh.Rows(ctx, stmt)
	if err != nil {
		return fmt.Errorf("failed to run %s query: %w", c.Shape, err)
	}
	result.Rows = rows
	return nil
}

// errNoRows reports an assertion that needs rows from a count-only run.
var errNoRows = errors.New("scenario produced no rows")
