package querysql

import (
	"fmt"
	"time"
)

// Dialect renders the warehouse-specific parts of a query.
//
// Both shipped dialects use @name placeholders: database/sql drivers for
// SQLite bind them through sql.Named, and pgx rewrites them when the
// arguments are pgx.NamedArgs.
type Dialect interface {
	// Name identifies the dialect ("sqlite", "postgres").
	Name() string

	// Placeholder renders a reference to the named parameter.
	Placeholder(name string) string

	// DateAddDays shifts a date expression by a day-count expression.
	DateAddDays(date, days string, negate bool) string

	// AgeYears renders the whole years between a birth date and today.
	AgeYears(birth string) string

	// PathContains tests whether segment is a dot-separated token of path.
	PathContains(path, segment string) string

	// BindValue converts a parameter to the Go value the driver expects.
	BindValue(p Param) any
}

// DialectByName returns a shipped dialect.
func DialectByName(name string) (Dialect, error) {
	switch name {
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	case "postgres", "postgresql", "pgx":
		return Postgres{}, nil
	default:
		return nil, fmt.Errorf("unknown SQL dialect %q (want sqlite or postgres)", name)
	}
}

// SQLite renders for SQLite 3.25+ (window functions). Dates are ISO-8601
// text, so DATE parameters bind as YYYY-MM-DD strings.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) Placeholder(name string) string { return "@" + name }

func (SQLite) DateAddDays(date, days string, negate bool) string {
	sign := "+"
	if negate {
		sign = "-"
	}
	return fmt.Sprintf("date(%s, '%s' || %s || ' days')", date, sign, days)
}

func (SQLite) AgeYears(birth string) string {
	return fmt.Sprintf("CAST(strftime('%%Y.%%m%%d', 'now') - strftime('%%Y.%%m%%d', %s) AS INTEGER)", birth)
}

func (SQLite) PathContains(path, segment string) string {
	return fmt.Sprintf("('.' || %s || '.') LIKE ('%%.' || CAST(%s AS TEXT) || '.%%')", path, segment)
}

func (SQLite) BindValue(p Param) any {
	switch v := p.Value.(type) {
	case time.Time:
		return v.Format(time.DateOnly)
	case bool:
		if v {
			return int64(1)
		}
		return int64(0)
	default:
		return v
	}
}

// Postgres renders for PostgreSQL 12+.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) Placeholder(name string) string { return "@" + name }

func (Postgres) DateAddDays(date, days string, negate bool) string {
	op := "+"
	if negate {
		op = "-"
	}
	return fmt.Sprintf("CAST(%s %s make_interval(days => CAST(%s AS INTEGER)) AS DATE)", date, op, days)
}

func (Postgres) AgeYears(birth string) string {
	return fmt.Sprintf("CAST(DATE_PART('year', AGE(CURRENT_DATE, %s)) AS INTEGER)", birth)
}

func (Postgres) PathContains(path, segment string) string {
	return fmt.Sprintf("('.' || %s || '.') LIKE ('%%.' || CAST(%s AS TEXT) || '.%%')", path, segment)
}

func (Postgres) BindValue(p Param) any {
	return p.Value
}

var (
	_ Dialect = SQLite{}
	_ Dialect = Postgres{}
)
