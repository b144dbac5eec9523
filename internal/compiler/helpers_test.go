package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/cohort/internal/criteria"
	"github.com/roach88/cohort/internal/queryir"
	"github.com/roach88/cohort/internal/querysql"
	"github.com/roach88/cohort/internal/testutil"
)

func testBuilder() *builder {
	return &builder{t: DefaultTables()}
}

// renderQuery renders q for SQLite.
func renderQuery(t *testing.T, q queryir.Query) *querysql.Statement {
	t.Helper()
	stmt, err := querysql.Compile(q, querysql.SQLite{})
	require.NoError(t, err)
	return stmt
}

// renderWhere renders a predicate and returns the SQL after WHERE.
func renderWhere(t *testing.T, p queryir.Predicate) (string, []querysql.Param) {
	t.Helper()
	stmt := renderQuery(t, &queryir.Select{
		Columns: []queryir.Column{{Expr: queryir.Lit(1)}},
		From:    &queryir.Table{Name: "t"},
		Where:   p,
	})
	const prefix = "SELECT 1 FROM t WHERE "
	require.True(t, strings.HasPrefix(stmt.SQL, prefix), stmt.SQL)
	return strings.TrimPrefix(stmt.SQL, prefix), stmt.Params
}

// paramValues lists bound values in placeholder order.
func paramValues(params []querysql.Param) []any {
	out := make([]any, len(params))
	for i, p := range params {
		out[i] = p.Value
	}
	return out
}

func newTestCompiler(t *testing.T, opts ...Option) *Compiler {
	t.Helper()
	opts = append([]Option{WithIDGenerator(testutil.NewFixedIDGenerator(""))}, opts...)
	c, err := New(opts...)
	require.NoError(t, err)
	return c
}

func sourceCondition(id int64) criteria.SearchParameter {
	return testutil.Concept(criteria.DomainCondition, criteria.TypeICD9CM, id, false)
}
