package querysql

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cohort/internal/queryir"
)

func eventsByConcept(ids ...int64) *queryir.Select {
	values := make([]queryir.Expr, 0, len(ids))
	for _, id := range ids {
		values = append(values, queryir.Int(id))
	}
	return &queryir.Select{
		Columns: []queryir.Column{{Expr: queryir.Col("e", "person_id")}},
		From:    &queryir.Table{Name: "cb_search_all_events", Alias: "e"},
		Where: queryir.AllOf(
			&queryir.In{Expr: queryir.Col("e", "concept_id"), Values: values},
			queryir.Eq(queryir.Col("e", "is_standard"), queryir.Int(1)),
		),
	}
}

func TestCompile_SimpleSelect(t *testing.T) {
	stmt, err := Compile(eventsByConcept(201826, 4193704), SQLite{})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT e.person_id FROM cb_search_all_events e WHERE e.concept_id IN (@p0, @p1) AND e.is_standard = @p2",
		stmt.SQL)
	require.Len(t, stmt.Params, 3)
	assert.Equal(t, int64(201826), stmt.Params[0].Value)

	// Values are never interpolated.
	assert.NotContains(t, stmt.SQL, "201826")
}

func TestCompile_SharedValuesBindOnce(t *testing.T) {
	q := &queryir.UnionAll{Queries: []queryir.Query{
		eventsByConcept(201826),
		eventsByConcept(201826),
	}}
	stmt, err := Compile(q, SQLite{})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT e.person_id FROM cb_search_all_events e WHERE e.concept_id IN (@p0) AND e.is_standard = @p1"+
			" UNION ALL "+
			"SELECT e.person_id FROM cb_search_all_events e WHERE e.concept_id IN (@p0) AND e.is_standard = @p1",
		stmt.SQL)
	assert.Len(t, stmt.Params, 2)
}

func TestCompile_FreshStorePerCall(t *testing.T) {
	c := NewSQLCompiler(SQLite{})
	first, err := c.Compile(eventsByConcept(11, 12, 13))
	require.NoError(t, err)
	second, err := c.Compile(eventsByConcept(9))
	require.NoError(t, err)

	assert.Len(t, first.Params, 4)
	assert.Len(t, second.Params, 2)
	assert.Equal(t, "p0", second.Params[0].Name)
}

func TestCompile_OrIsParenthesized(t *testing.T) {
	q := &queryir.Select{
		Columns: []queryir.Column{{Expr: queryir.Col("", "person_id")}},
		From:    &queryir.Table{Name: "cb_search_person"},
		Where: queryir.AllOf(
			queryir.AnyOf(
				queryir.Eq(queryir.Col("", "has_ehr_data"), queryir.Lit(1)),
				queryir.Eq(queryir.Col("", "has_fitbit"), queryir.Lit(1)),
			),
			&queryir.Not{Predicate: queryir.Eq(queryir.Col("", "gender"), queryir.String("F"))},
		),
	}
	stmt, err := Compile(q, SQLite{})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT person_id FROM cb_search_person WHERE (has_ehr_data = 1 OR has_fitbit = 1) AND NOT (gender = @p0)",
		stmt.SQL)
}

func TestCompile_FullSelect(t *testing.T) {
	inner := eventsByConcept(5)
	q := &queryir.Select{
		Distinct: true,
		Columns: []queryir.Column{
			{Expr: queryir.Col("x", "person_id")},
			{Expr: &queryir.Count{Expr: &queryir.Star{}}, Alias: "n"},
		},
		From: &queryir.Subquery{Query: inner, Alias: "x"},
		Joins: []queryir.Join{{
			Source: &queryir.Table{Name: "person", Alias: "p"},
			On:     queryir.Eq(queryir.Col("p", "person_id"), queryir.Col("x", "person_id")),
		}},
		GroupBy: []queryir.Expr{queryir.Col("x", "person_id")},
		Having:  &queryir.Compare{Left: &queryir.Count{Expr: &queryir.Star{}}, Op: queryir.OpGe, Right: queryir.Int(2)},
		OrderBy: []queryir.Order{{Expr: queryir.Col("x", "person_id"), Desc: true}},
		Limit:   queryir.Lit(10),
	}
	stmt, err := Compile(q, SQLite{})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT DISTINCT x.person_id, COUNT(*) AS n"+
			" FROM (SELECT e.person_id FROM cb_search_all_events e WHERE e.concept_id IN (@p0) AND e.is_standard = @p1) x"+
			" JOIN person p ON p.person_id = x.person_id"+
			" GROUP BY x.person_id HAVING COUNT(*) >= @p2 ORDER BY x.person_id DESC LIMIT 10",
		stmt.SQL)
}

func TestCompile_WindowCaseAndExists(t *testing.T) {
	rank := &queryir.Rank{
		PartitionBy: []queryir.Expr{queryir.Col("e", "person_id")},
		OrderBy:     []queryir.Order{{Expr: queryir.Col("e", "entry_date"), Desc: true}},
	}
	bucket := &queryir.Case{
		Whens: []queryir.When{{
			Cond: &queryir.Between{Expr: queryir.Col("p", "age_at_cdr"), Low: queryir.Lit(18), High: queryir.Lit(44)},
			Then: queryir.String("18-44"),
		}},
		Else: queryir.String("65+"),
	}
	q := &queryir.Select{
		Columns: []queryir.Column{{Expr: rank, Alias: "rn"}, {Expr: bucket, Alias: "age_range"}},
		From:    &queryir.Table{Name: "cb_search_person", Alias: "p"},
		Where:   &queryir.Exists{Query: eventsByConcept(7), Negate: true},
	}
	stmt, err := Compile(q, SQLite{})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT RANK() OVER (PARTITION BY e.person_id ORDER BY e.entry_date DESC) AS rn,"+
			" CASE WHEN p.age_at_cdr BETWEEN 18 AND 44 THEN @p0 ELSE @p1 END AS age_range"+
			" FROM cb_search_person p"+
			" WHERE NOT EXISTS (SELECT e.person_id FROM cb_search_all_events e WHERE e.concept_id IN (@p2) AND e.is_standard = @p3)",
		stmt.SQL)
}

func TestCompile_DialectSpecificExpressions(t *testing.T) {
	q := &queryir.Select{
		Columns: []queryir.Column{{Expr: &queryir.AgeYears{Birth: queryir.Col("p", "dob")}, Alias: "age"}},
		From:    &queryir.Table{Name: "cb_search_person", Alias: "p"},
		Where: &queryir.Compare{
			Left:  queryir.Col("a", "entry_date"),
			Op:    queryir.OpLe,
			Right: &queryir.DateAddDays{Date: queryir.Col("b", "entry_date"), Days: queryir.Int(5), Negate: true},
		},
	}

	lite, err := Compile(q, SQLite{})
	require.NoError(t, err)
	assert.Contains(t, lite.SQL, "a.entry_date <= date(b.entry_date, '-' || @p0 || ' days')")
	assert.Contains(t, lite.SQL, "strftime('%Y.%m%d', p.dob)")

	pg, err := Compile(q, Postgres{})
	require.NoError(t, err)
	assert.Contains(t, pg.SQL, "a.entry_date <= CAST(b.entry_date - make_interval(days => CAST(@p0 AS INTEGER)) AS DATE)")
	assert.Contains(t, pg.SQL, "AGE(CURRENT_DATE, p.dob)")
}

func TestCompile_InQueryNegated(t *testing.T) {
	q := &queryir.Select{
		Columns: []queryir.Column{{Expr: &queryir.Count{Distinct: true, Expr: queryir.Col("p", "person_id")}, Alias: "count"}},
		From:    &queryir.Table{Name: "cb_search_person", Alias: "p"},
		Where:   &queryir.InQuery{Expr: queryir.Col("p", "person_id"), Query: eventsByConcept(3), Negate: true},
	}
	stmt, err := Compile(q, Postgres{})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT COUNT(DISTINCT p.person_id) AS count FROM cb_search_person p WHERE p.person_id NOT IN"+
			" (SELECT e.person_id FROM cb_search_all_events e WHERE e.concept_id IN (@p0) AND e.is_standard = @p1)",
		stmt.SQL)
}

func TestCompile_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		query queryir.Query
	}{
		{"nil query", nil},
		{"subquery without alias", &queryir.Select{
			Columns: []queryir.Column{{Expr: &queryir.Star{}}},
			From:    &queryir.Subquery{Query: eventsByConcept(1)},
		}},
		{"empty IN", &queryir.Select{
			Columns: []queryir.Column{{Expr: &queryir.Star{}}},
			From:    &queryir.Table{Name: "t"},
			Where:   &queryir.In{Expr: queryir.Col("", "x")},
		}},
		{"empty union", &queryir.UnionAll{}},
		{"bad value", &queryir.Select{
			Columns: []queryir.Column{{Expr: &queryir.Value{Type: queryir.TypeInt64, V: 1.5}}},
			From:    &queryir.Table{Name: "t"},
		}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile(tc.query, SQLite{})
			assert.Error(t, err)
		})
	}
}

func TestStatement_Args(t *testing.T) {
	stmt, err := Compile(eventsByConcept(42), SQLite{})
	require.NoError(t, err)

	assert.Equal(t, []any{sql.Named("p0", int64(42)), sql.Named("p1", int64(1))}, stmt.Args())
	assert.Equal(t, map[string]any{"p0": int64(42), "p1": int64(1)}, stmt.NamedArgs())
}
