package querysql

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/cohort/internal/queryir"
)

// Statement is a rendered query ready for submission to a warehouse.
type Statement struct {
	SQL     string
	Params  []Param
	Dialect Dialect
}

// Args returns the parameters as sql.Named arguments for database/sql.
func (s *Statement) Args() []any {
	out := make([]any, 0, len(s.Params))
	for _, p := range s.Params {
		out = append(out, sql.Named(p.Name, s.Dialect.BindValue(p)))
	}
	return out
}

// NamedArgs returns the parameters keyed by name, converted for the
// statement's dialect. pgx accepts the result as pgx.NamedArgs.
func (s *Statement) NamedArgs() map[string]any {
	out := make(map[string]any, len(s.Params))
	for _, p := range s.Params {
		out[p.Name] = s.Dialect.BindValue(p)
	}
	return out
}

// Compile renders q for dialect d.
func Compile(q queryir.Query, d Dialect) (*Statement, error) {
	return NewSQLCompiler(d).Compile(q)
}

// SQLCompiler renders queryir trees for one dialect.
//
// CRITICAL: values are never interpolated. Every *queryir.Value becomes a
// named placeholder bound through a ParameterStore created fresh for each
// Compile call.
type SQLCompiler struct {
	dialect Dialect
}

// NewSQLCompiler creates a compiler for the given dialect.
func NewSQLCompiler(dialect Dialect) *SQLCompiler {
	return &SQLCompiler{dialect: dialect}
}

// Compile renders q and returns the SQL text with its parameter bindings.
func (c *SQLCompiler) Compile(q queryir.Query) (*Statement, error) {
	if q == nil {
		return nil, fmt.Errorf("cannot compile nil query")
	}
	r := &renderer{dialect: c.dialect, params: NewParameterStore("p")}
	text, err := r.compileQuery(q)
	if err != nil {
		return nil, err
	}
	return &Statement{SQL: text, Params: r.params.Params(), Dialect: c.dialect}, nil
}

// renderer carries the state of one Compile call.
type renderer struct {
	dialect Dialect
	params  *ParameterStore
}

func (r *renderer) compileQuery(q queryir.Query) (string, error) {
	switch query := q.(type) {
	case *queryir.Select:
		return r.compileSelect(query)
	case *queryir.UnionAll:
		return r.compileUnionAll(query)
	default:
		return "", fmt.Errorf("unsupported query type: %T", q)
	}
}

func (r *renderer) compileSelect(s *queryir.Select) (string, error) {
	var b strings.Builder
	b.WriteString("SELECT ")
	if s.Distinct {
		b.WriteString("DISTINCT ")
	}
	cols := make([]string, 0, len(s.Columns))
	for _, col := range s.Columns {
		sql, err := r.compileExpr(col.Expr)
		if err != nil {
			return "", fmt.Errorf("compile column: %w", err)
		}
		if col.Alias != "" {
			sql += " AS " + col.Alias
		}
		cols = append(cols, sql)
	}
	b.WriteString(strings.Join(cols, ", "))

	from, err := r.compileSource(s.From)
	if err != nil {
		return "", fmt.Errorf("compile from: %w", err)
	}
	b.WriteString(" FROM ")
	b.WriteString(from)

	for _, j := range s.Joins {
		src, err := r.compileSource(j.Source)
		if err != nil {
			return "", fmt.Errorf("compile join: %w", err)
		}
		on, err := r.compilePredicate(j.On)
		if err != nil {
			return "", fmt.Errorf("compile join ON: %w", err)
		}
		b.WriteString(" JOIN ")
		b.WriteString(src)
		b.WriteString(" ON ")
		b.WriteString(on)
	}

	if s.Where != nil {
		where, err := r.compilePredicate(s.Where)
		if err != nil {
			return "", fmt.Errorf("compile where: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}

	if len(s.GroupBy) > 0 {
		keys, err := r.compileExprList(s.GroupBy)
		if err != nil {
			return "", fmt.Errorf("compile group by: %w", err)
		}
		b.WriteString(" GROUP BY ")
		b.WriteString(keys)
	}

	if s.Having != nil {
		having, err := r.compilePredicate(s.Having)
		if err != nil {
			return "", fmt.Errorf("compile having: %w", err)
		}
		b.WriteString(" HAVING ")
		b.WriteString(having)
	}

	if len(s.OrderBy) > 0 {
		order, err := r.compileOrder(s.OrderBy)
		if err != nil {
			return "", fmt.Errorf("compile order by: %w", err)
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(order)
	}

	if s.Limit != nil {
		limit, err := r.compileExpr(s.Limit)
		if err != nil {
			return "", fmt.Errorf("compile limit: %w", err)
		}
		b.WriteString(" LIMIT ")
		b.WriteString(limit)
	}

	return b.String(), nil
}

func (r *renderer) compileUnionAll(u *queryir.UnionAll) (string, error) {
	if len(u.Queries) == 0 {
		return "", fmt.Errorf("UNION ALL without members")
	}
	parts := make([]string, 0, len(u.Queries))
	for _, q := range u.Queries {
		sql, err := r.compileQuery(q)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	return strings.Join(parts, " UNION ALL "), nil
}

func (r *renderer) compileSource(src queryir.Source) (string, error) {
	switch s := src.(type) {
	case *queryir.Table:
		if s.Alias != "" {
			return s.Name + " " + s.Alias, nil
		}
		return s.Name, nil
	case *queryir.Subquery:
		if s.Alias == "" {
			return "", fmt.Errorf("subquery requires an alias")
		}
		sql, err := r.compileQuery(s.Query)
		if err != nil {
			return "", err
		}
		return "(" + sql + ") " + s.Alias, nil
	default:
		return "", fmt.Errorf("unsupported source type: %T", src)
	}
}

func (r *renderer) compileExprList(exprs []queryir.Expr) (string, error) {
	parts := make([]string, 0, len(exprs))
	for _, e := range exprs {
		sql, err := r.compileExpr(e)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	return strings.Join(parts, ", "), nil
}

func (r *renderer) compileOrder(keys []queryir.Order) (string, error) {
	parts := make([]string, 0, len(keys))
	for _, o := range keys {
		sql, err := r.compileExpr(o.Expr)
		if err != nil {
			return "", err
		}
		if o.Desc {
			sql += " DESC"
		}
		parts = append(parts, sql)
	}
	return strings.Join(parts, ", "), nil
}

func (r *renderer) compileExpr(e queryir.Expr) (string, error) {
	switch x := e.(type) {
	case *queryir.Ref:
		if x.Table != "" {
			return x.Table + "." + x.Name, nil
		}
		return x.Name, nil
	case *queryir.Value:
		name, err := r.params.Add(x)
		if err != nil {
			return "", fmt.Errorf("bind value: %w", err)
		}
		return r.dialect.Placeholder(name), nil
	case *queryir.Literal:
		return strconv.FormatInt(x.V, 10), nil
	case *queryir.Star:
		return "*", nil
	case *queryir.Count:
		if x.Expr == nil {
			return "COUNT(*)", nil
		}
		if _, ok := x.Expr.(*queryir.Star); ok {
			return "COUNT(*)", nil
		}
		inner, err := r.compileExpr(x.Expr)
		if err != nil {
			return "", err
		}
		if x.Distinct {
			return "COUNT(DISTINCT " + inner + ")", nil
		}
		return "COUNT(" + inner + ")", nil
	case *queryir.Rank:
		return r.compileRank(x)
	case *queryir.DateAddDays:
		date, err := r.compileExpr(x.Date)
		if err != nil {
			return "", err
		}
		days, err := r.compileExpr(x.Days)
		if err != nil {
			return "", err
		}
		return r.dialect.DateAddDays(date, days, x.Negate), nil
	case *queryir.AgeYears:
		birth, err := r.compileExpr(x.Birth)
		if err != nil {
			return "", err
		}
		return r.dialect.AgeYears(birth), nil
	case *queryir.Case:
		return r.compileCase(x)
	default:
		return "", fmt.Errorf("unsupported expression type: %T", e)
	}
}

func (r *renderer) compileRank(x *queryir.Rank) (string, error) {
	var b strings.Builder
	b.WriteString("RANK() OVER (")
	if len(x.PartitionBy) > 0 {
		keys, err := r.compileExprList(x.PartitionBy)
		if err != nil {
			return "", err
		}
		b.WriteString("PARTITION BY ")
		b.WriteString(keys)
		b.WriteString(" ")
	}
	order, err := r.compileOrder(x.OrderBy)
	if err != nil {
		return "", err
	}
	b.WriteString("ORDER BY ")
	b.WriteString(order)
	b.WriteString(")")
	return b.String(), nil
}

func (r *renderer) compileCase(x *queryir.Case) (string, error) {
	var b strings.Builder
	b.WriteString("CASE")
	for _, w := range x.Whens {
		cond, err := r.compilePredicate(w.Cond)
		if err != nil {
			return "", err
		}
		then, err := r.compileExpr(w.Then)
		if err != nil {
			return "", err
		}
		b.WriteString(" WHEN ")
		b.WriteString(cond)
		b.WriteString(" THEN ")
		b.WriteString(then)
	}
	if x.Else != nil {
		els, err := r.compileExpr(x.Else)
		if err != nil {
			return "", err
		}
		b.WriteString(" ELSE ")
		b.WriteString(els)
	}
	b.WriteString(" END")
	return b.String(), nil
}

// compilePredicate renders a predicate. OR groups are always parenthesized
// so that they compose safely inside AND chains.
func (r *renderer) compilePredicate(p queryir.Predicate) (string, error) {
	switch x := p.(type) {
	case nil:
		return "1 = 1", nil
	case *queryir.Compare:
		left, err := r.compileExpr(x.Left)
		if err != nil {
			return "", err
		}
		right, err := r.compileExpr(x.Right)
		if err != nil {
			return "", err
		}
		return left + " " + string(x.Op) + " " + right, nil
	case *queryir.Between:
		expr, err := r.compileExpr(x.Expr)
		if err != nil {
			return "", err
		}
		low, err := r.compileExpr(x.Low)
		if err != nil {
			return "", err
		}
		high, err := r.compileExpr(x.High)
		if err != nil {
			return "", err
		}
		return expr + " BETWEEN " + low + " AND " + high, nil
	case *queryir.In:
		if len(x.Values) == 0 {
			return "", fmt.Errorf("IN with empty list")
		}
		expr, err := r.compileExpr(x.Expr)
		if err != nil {
			return "", err
		}
		list, err := r.compileExprList(x.Values)
		if err != nil {
			return "", err
		}
		return expr + negated(x.Negate) + " IN (" + list + ")", nil
	case *queryir.InQuery:
		expr, err := r.compileExpr(x.Expr)
		if err != nil {
			return "", err
		}
		sub, err := r.compileQuery(x.Query)
		if err != nil {
			return "", err
		}
		return expr + negated(x.Negate) + " IN (" + sub + ")", nil
	case *queryir.Exists:
		sub, err := r.compileQuery(x.Query)
		if err != nil {
			return "", err
		}
		if x.Negate {
			return "NOT EXISTS (" + sub + ")", nil
		}
		return "EXISTS (" + sub + ")", nil
	case *queryir.And:
		if len(x.Predicates) == 0 {
			return "1 = 1", nil
		}
		return r.compileJunction(x.Predicates, " AND ", false)
	case *queryir.Or:
		if len(x.Predicates) == 0 {
			return "1 = 0", nil
		}
		return r.compileJunction(x.Predicates, " OR ", true)
	case *queryir.Not:
		inner, err := r.compilePredicate(x.Predicate)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	case *queryir.PathContains:
		path, err := r.compileExpr(x.Path)
		if err != nil {
			return "", err
		}
		seg, err := r.compileExpr(x.Segment)
		if err != nil {
			return "", err
		}
		return r.dialect.PathContains(path, seg), nil
	default:
		return "", fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (r *renderer) compileJunction(preds []queryir.Predicate, sep string, wrap bool) (string, error) {
	parts := make([]string, 0, len(preds))
	for _, sub := range preds {
		sql, err := r.compilePredicate(sub)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	joined := strings.Join(parts, sep)
	if wrap && len(parts) > 1 {
		return "(" + joined + ")", nil
	}
	return joined, nil
}

func negated(neg bool) string {
	if neg {
		return " NOT"
	}
	return ""
}
