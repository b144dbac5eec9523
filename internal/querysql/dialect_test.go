package querysql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cohort/internal/queryir"
)

func TestDialectByName(t *testing.T) {
	for _, name := range []string{"sqlite", "sqlite3"} {
		d, err := DialectByName(name)
		require.NoError(t, err)
		assert.Equal(t, "sqlite", d.Name())
	}
	for _, name := range []string{"postgres", "postgresql", "pgx"} {
		d, err := DialectByName(name)
		require.NoError(t, err)
		assert.Equal(t, "postgres", d.Name())
	}

	_, err := DialectByName("bigquery")
	require.Error(t, err)
}

func TestSQLite_DateAddDays(t *testing.T) {
	d := SQLite{}
	assert.Equal(t, "date(b.entry_date, '+' || @p0 || ' days')", d.DateAddDays("b.entry_date", "@p0", false))
	assert.Equal(t, "date(b.entry_date, '-' || @p0 || ' days')", d.DateAddDays("b.entry_date", "@p0", true))
}

func TestPostgres_DateAddDays(t *testing.T) {
	d := Postgres{}
	assert.Equal(t,
		"CAST(b.entry_date - make_interval(days => CAST(@p0 AS INTEGER)) AS DATE)",
		d.DateAddDays("b.entry_date", "@p0", true))
}

func TestPathContains_MatchesWholeSegments(t *testing.T) {
	for _, d := range []Dialect{SQLite{}, Postgres{}} {
		got := d.PathContains("c.path", "p.id")
		assert.Equal(t, "('.' || c.path || '.') LIKE ('%.' || CAST(p.id AS TEXT) || '.%')", got, d.Name())
	}
}

func TestSQLite_BindValue(t *testing.T) {
	d := SQLite{}
	day := time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "2019-03-04", d.BindValue(Param{Type: queryir.TypeDate, Value: day}))
	assert.Equal(t, int64(1), d.BindValue(Param{Type: queryir.TypeBool, Value: true}))
	assert.Equal(t, int64(0), d.BindValue(Param{Type: queryir.TypeBool, Value: false}))
	assert.Equal(t, int64(7), d.BindValue(Param{Type: queryir.TypeInt64, Value: int64(7)}))
}

func TestPostgres_BindValuePassesThrough(t *testing.T) {
	day := time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, day, Postgres{}.BindValue(Param{Type: queryir.TypeDate, Value: day}))
	assert.Equal(t, true, Postgres{}.BindValue(Param{Type: queryir.TypeBool, Value: true}))
}
