package compiler

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/roach88/cohort/internal/criteria"
	"github.com/roach88/cohort/internal/queryir"
	"github.com/roach88/cohort/internal/querysql"
)

// Shape selects the outer projection of a compiled cohort query. The cohort
// predicate is identical across shapes.
type Shape string

const (
	ShapeCount        Shape = "count"
	ShapeDemographics Shape = "demographics"
	ShapePersonIDs    Shape = "person_ids"
	ShapeDomainChart  Shape = "domain_chart"
)

// ParseShape converts a command-line style name into a Shape.
func ParseShape(s string) (Shape, error) {
	switch Shape(strings.ToLower(strings.ReplaceAll(s, "-", "_"))) {
	case ShapeCount:
		return ShapeCount, nil
	case ShapeDemographics:
		return ShapeDemographics, nil
	case ShapePersonIDs:
		return ShapePersonIDs, nil
	case ShapeDomainChart:
		return ShapeDomainChart, nil
	default:
		return "", fmt.Errorf("unknown output shape %q (want count, demographics, person_ids or domain_chart)", s)
	}
}

// Output describes what the compiled query returns.
type Output struct {
	Shape Shape

	// Limit caps PersonIDs and DomainChart rows. Zero means no limit for
	// PersonIDs and DefaultChartLimit for DomainChart.
	Limit int

	// Domain is the event domain charted by DomainChart.
	Domain criteria.Domain
}

// DefaultChartLimit is the number of concepts a domain chart returns when no
// limit is given.
const DefaultChartLimit = 10

// Compilation is the result of compiling one request.
type Compilation struct {
	ID          string
	Fingerprint string
	Shape       Shape
	Query       queryir.Query
	Statement   *querysql.Statement
}

// Compiler lowers search requests to parameterized SQL.
//
// A Compiler is immutable after New and safe for concurrent use. Every
// Compile call renders with its own parameter store.
type Compiler struct {
	dialect querysql.Dialect
	tables  Tables
	log     zerolog.Logger
	ids     IDGenerator
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithDialect selects the SQL dialect. Default: SQLite.
func WithDialect(d querysql.Dialect) Option {
	return func(c *Compiler) {
		c.dialect = d
	}
}

// WithTables overrides table names. Empty names keep their defaults.
func WithTables(t Tables) Option {
	return func(c *Compiler) {
		c.tables = t.withDefaults()
	}
}

// WithLogger sets the logger. Default: zerolog.Nop().
func WithLogger(l zerolog.Logger) Option {
	return func(c *Compiler) {
		c.log = l
	}
}

// WithIDGenerator sets the compilation id source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Compiler) {
		c.ids = g
	}
}

// New creates a Compiler.
func New(opts ...Option) (*Compiler, error) {
	c := &Compiler{
		dialect: querysql.SQLite{},
		tables:  DefaultTables(),
		log:     zerolog.Nop(),
		ids:     UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dialect == nil {
		return nil, fmt.Errorf("compiler: dialect is required")
	}
	if err := c.tables.Validate(); err != nil {
		return nil, fmt.Errorf("compiler: %w", err)
	}
	return c, nil
}

// Dialect returns the dialect queries are rendered for.
func (c *Compiler) Dialect() querysql.Dialect {
	return c.dialect
}

// Plan validates req and returns the query tree for out without rendering
// it.
func (c *Compiler) Plan(req *criteria.SearchRequest, out Output) (queryir.Query, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := out.validate(); err != nil {
		return nil, err
	}

	b := &builder{t: c.tables}
	cohort := b.cohort(req)
	q := b.outer(out, cohort)

	if res := queryir.Validate(q); !res.WellFormed {
		return nil, fmt.Errorf("compiler produced a malformed query: %s", strings.Join(res.Problems, "; "))
	}
	return q, nil
}

// Compile validates req, builds the query for out and renders it.
// Validation failures are returned as *ValidationError; no SQL is produced
// for an invalid request.
func (c *Compiler) Compile(req *criteria.SearchRequest, out Output) (*Compilation, error) {
	q, err := c.Plan(req, out)
	if err != nil {
		if ve, ok := AsValidationError(err); ok {
			c.log.Debug().
				Str("code", ve.Code).
				Str("kind", string(ve.Kind)).
				Str("field", ve.Field).
				Msg("request rejected")
		}
		return nil, err
	}

	stmt, err := querysql.Compile(q, c.dialect)
	if err != nil {
		return nil, fmt.Errorf("render %s query: %w", out.Shape, err)
	}

	fp, err := criteria.Fingerprint(req)
	if err != nil {
		return nil, fmt.Errorf("fingerprint request: %w", err)
	}

	comp := &Compilation{
		ID:          c.ids.Generate(),
		Fingerprint: fp,
		Shape:       out.Shape,
		Query:       q,
		Statement:   stmt,
	}

	c.log.Debug().
		Str("compilation_id", comp.ID).
		Str("fingerprint", fp).
		Str("shape", string(out.Shape)).
		Str("dialect", c.dialect.Name()).
		Int("include_groups", len(req.IncludeGroups)).
		Int("exclude_groups", len(req.ExcludeGroups)).
		Int("params", len(stmt.Params)).
		Msg("compiled cohort query")

	return comp, nil
}

// Count compiles a distinct participant count.
func (c *Compiler) Count(req *criteria.SearchRequest) (*Compilation, error) {
	return c.Compile(req, Output{Shape: ShapeCount})
}

// Demographics compiles a gender / race / age-range breakdown.
func (c *Compiler) Demographics(req *criteria.SearchRequest) (*Compilation, error) {
	return c.Compile(req, Output{Shape: ShapeDemographics})
}

// PersonIDs compiles the ordered list of matching person ids.
func (c *Compiler) PersonIDs(req *criteria.SearchRequest, limit int) (*Compilation, error) {
	return c.Compile(req, Output{Shape: ShapePersonIDs, Limit: limit})
}

// DomainChart compiles the most frequent concepts of domain in the cohort.
func (c *Compiler) DomainChart(req *criteria.SearchRequest, domain criteria.Domain, limit int) (*Compilation, error) {
	return c.Compile(req, Output{Shape: ShapeDomainChart, Domain: domain, Limit: limit})
}

func (o Output) validate() error {
	switch o.Shape {
	case ShapeCount, ShapeDemographics, ShapePersonIDs:
	case ShapeDomainChart:
		if o.Domain.Kind() != criteria.KindEvent {
			return invalid(KindRequestStructure, ErrUnknownDomain, "output.domain", "domain chart requires an event domain, got %q", o.Domain)
		}
	default:
		return invalid(KindRequestStructure, ErrUnknownShape, "output.shape", "unknown output shape %q", o.Shape)
	}
	if o.Limit < 0 {
		return invalid(KindRequestStructure, ErrInvalidLimit, "output.limit", "limit must not be negative, got %d", o.Limit)
	}
	return nil
}
