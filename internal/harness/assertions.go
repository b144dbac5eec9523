package harness

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/cohort/internal/store"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
// This prevents SQL injection via identifier interpolation.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
// It includes the compiled SQL to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	SQL      string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.SQL != "" {
		fmt.Fprintf(&buf, "\nSQL:\n  %s\n", e.SQL)
	}

	return buf.String()
}

// assertCount checks the cohort size. A rows-shaped run counts its rows.
func assertCount(result *Result, assertion Assertion) error {
	if result.Rejection != nil {
		return rejectedError(AssertCount, fmt.Sprintf("count %d", assertion.Count), result)
	}

	var got int64
	switch {
	case result.Count != nil:
		got = *result.Count
	case result.Rows != nil:
		got = int64(len(result.Rows.Rows))
	default:
		return errNoRows
	}

	if got != assertion.Count {
		return &AssertionError{
			Type:     AssertCount,
			Expected: fmt.Sprintf("count %d", assertion.Count),
			Actual:   fmt.Sprintf("count %d", got),
			SQL:      result.SQL,
		}
	}
	return nil
}

// assertPersonIDs checks the first column of a person_ids run, in order.
func assertPersonIDs(result *Result, assertion Assertion) error {
	if result.Rejection != nil {
		return rejectedError(AssertPersonIDs, fmt.Sprintf("person ids %v", assertion.IDs), result)
	}
	if result.Rows == nil {
		return errNoRows
	}

	got := make([]int64, 0, len(result.Rows.Rows))
	for i, row := range result.Rows.Rows {
		if len(row) == 0 {
			return fmt.Errorf("row %d is empty", i)
		}
		id, ok := row[0].(int64)
		if !ok {
			return fmt.Errorf("row %d: person id has type %T, want int64", i, row[0])
		}
		got = append(got, id)
	}

	want := assertion.IDs
	if want == nil {
		want = []int64{}
	}
	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:     AssertPersonIDs,
			Expected: fmt.Sprintf("person ids %v", want),
			Actual:   fmt.Sprintf("person ids %v", got),
			SQL:      result.SQL,
		}
	}
	return nil
}

// assertRejected checks that compilation failed with the given code.
func assertRejected(result *Result, assertion Assertion) error {
	if result.Rejection == nil {
		return &AssertionError{
			Type:     AssertRejected,
			Expected: fmt.Sprintf("rejection %s", assertion.Code),
			Actual:   "request compiled",
			SQL:      result.SQL,
		}
	}
	if result.Rejection.Code != assertion.Code {
		return &AssertionError{
			Type:     AssertRejected,
			Expected: fmt.Sprintf("rejection %s", assertion.Code),
			Actual:   fmt.Sprintf("rejection %s: %s", result.Rejection.Code, result.Rejection.Message),
		}
	}
	return nil
}

// assertSQLContains checks that the compiled SQL contains a fragment.
func assertSQLContains(result *Result, assertion Assertion) error {
	if result.Rejection != nil {
		return rejectedError(AssertSQLContains, fmt.Sprintf("SQL containing %q", assertion.Fragment), result)
	}
	if !strings.Contains(result.SQL, assertion.Fragment) {
		return &AssertionError{
			Type:     AssertSQLContains,
			Expected: fmt.Sprintf("SQL containing %q", assertion.Fragment),
			Actual:   "fragment not found",
			SQL:      result.SQL,
		}
	}
	return nil
}

// assertWarehouseCount checks how many fixture rows match a filter. It
// guards against scenarios whose fixtures silently fail to load what the
// other assertions rely on.
//
// Security: Table and column names are validated against a whitelist pattern
// to prevent SQL injection via identifier interpolation.
func assertWarehouseCount(ctx context.Context, wh *store.SQLite, assertion Assertion) error {
	if !validIdentifier.MatchString(assertion.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}

	whereSQL, whereArgs, err := buildWhereClause(assertion.Where)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", assertion.Table)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	var got int64
	if err := wh.DB().QueryRowContext(ctx, query, whereArgs...).Scan(&got); err != nil {
		return &AssertionError{
			Type:     AssertWarehouseCount,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	if got != assertion.Count {
		return &AssertionError{
			Type:     AssertWarehouseCount,
			Expected: fmt.Sprintf("%d rows in %s where %s", assertion.Count, assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   fmt.Sprintf("%d rows", got),
		}
	}
	return nil
}

func rejectedError(typ, expected string, result *Result) error {
	return &AssertionError{
		Type:     typ,
		Expected: expected,
		Actual:   fmt.Sprintf("request rejected: %s", result.Rejection.Error()),
	}
}

// buildWhereClause constructs parameterized WHERE clause from assertion.Where.
// Returns SQL fragment, arguments slice, and error. Keys are sorted for determinism.
//
// Security: Column names are validated against a whitelist pattern to prevent
// SQL injection via identifier interpolation.
func buildWhereClause(where map[string]any) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := sortedKeys(where)
	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))

	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, toSQLValue(where[key]))
	}

	return strings.Join(clauses, " AND "), args, nil
}

// toSQLValue converts a YAML-decoded value to a SQL-compatible value.
// Booleans become 0/1 to match the warehouse's flag columns.
func toSQLValue(v any) any {
	switch val := v.(type) {
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	case int:
		return int64(val)
	case string, int64, float64:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Warehouse *store.SQLite
	Ctx       context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides warehouse access for warehouse_count assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertCount:
			err = assertCount(result, assertion)
		case AssertPersonIDs:
			err = assertPersonIDs(result, assertion)
		case AssertRejected:
			err = assertRejected(result, assertion)
		case AssertSQLContains:
			err = assertSQLContains(result, assertion)
		case AssertWarehouseCount:
			if actx == nil || actx.Warehouse == nil {
				err = fmt.Errorf("warehouse_count requires a warehouse")
			} else {
				err = assertWarehouseCount(actx.Ctx, actx.Warehouse, assertion)
			}
		default:
			err = fmt.Errorf("unknown assertion type %q", assertion.Type)
		}

		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion[%d]: %s", i, err.Error()))
		}
	}

	return errs
}
