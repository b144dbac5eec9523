package queryir

import "time"

// Query is a complete SELECT statement or a set operation over statements.
type Query interface {
	queryNode()
}

// Source is something a query reads rows from.
type Source interface {
	sourceNode()
}

// Expr is a scalar expression.
type Expr interface {
	exprNode()
}

// Predicate is a boolean condition.
type Predicate interface {
	predicateNode()
}

// Select is a single SELECT statement.
//
//	SELECT [DISTINCT] <Columns> FROM <From> [JOIN ...] [WHERE <Where>]
//	[GROUP BY <GroupBy>] [HAVING <Having>] [ORDER BY <OrderBy>] [LIMIT <Limit>]
type Select struct {
	Distinct bool
	Columns  []Column
	From     Source
	Joins    []Join
	Where    Predicate // nil = no filter
	GroupBy  []Expr
	Having   Predicate
	OrderBy  []Order
	Limit    Expr // nil = no limit
}

func (*Select) queryNode() {}

// UnionAll concatenates the rows of its queries. All members must project
// the same columns in the same order.
type UnionAll struct {
	Queries []Query
}

func (*UnionAll) queryNode() {}

// Column is one projected expression with an optional alias.
type Column struct {
	Expr  Expr
	Alias string
}

// Join is an inner join of From with Source on On.
type Join struct {
	Source Source
	On     Predicate
}

// Order is one ORDER BY key.
type Order struct {
	Expr Expr
	Desc bool
}

// Table reads a named table.
type Table struct {
	Name  string
	Alias string
}

func (*Table) sourceNode() {}

// Subquery reads the rows of a nested query. Alias is required.
type Subquery struct {
	Query Query
	Alias string
}

func (*Subquery) sourceNode() {}

// Ref references a column, optionally qualified by a table alias.
type Ref struct {
	Table string
	Name  string
}

func (*Ref) exprNode() {}

// ValueType is the declared type of a bound value.
type ValueType string

const (
	TypeInt64   ValueType = "INT64"
	TypeFloat64 ValueType = "FLOAT64"
	TypeString  ValueType = "STRING"
	TypeDate    ValueType = "DATE"
	TypeBool    ValueType = "BOOL"
)

// Value is a typed constant supplied by the request. It is always rendered
// as a named placeholder. V holds int64, float64, string, time.Time (DATE)
// or bool according to Type.
type Value struct {
	Type ValueType
	V    any
}

func (*Value) exprNode() {}

// Literal is an integer constant chosen by the compiler, rendered inline.
type Literal struct {
	V int64
}

func (*Literal) exprNode() {}

// Star is the `*` in COUNT(*).
type Star struct{}

func (*Star) exprNode() {}

// Count is COUNT(*) when Expr is nil or *Star, else COUNT([DISTINCT] Expr).
type Count struct {
	Distinct bool
	Expr     Expr
}

func (*Count) exprNode() {}

// Rank is RANK() OVER (PARTITION BY ... ORDER BY ...).
type Rank struct {
	PartitionBy []Expr
	OrderBy     []Order
}

func (*Rank) exprNode() {}

// DateAddDays shifts Date by Days days, backwards when Negate is set.
type DateAddDays struct {
	Date   Expr
	Days   Expr
	Negate bool
}

func (*DateAddDays) exprNode() {}

// AgeYears is the whole number of years between Birth and the current date.
type AgeYears struct {
	Birth Expr
}

func (*AgeYears) exprNode() {}

// Case is a searched CASE expression.
type Case struct {
	Whens []When
	Else  Expr
}

func (*Case) exprNode() {}

// When is one CASE branch.
type When struct {
	Cond Predicate
	Then Expr
}

// CmpOp is a binary comparison operator.
type CmpOp string

const (
	OpEq CmpOp = "="
	OpNe CmpOp = "<>"
	OpLt CmpOp = "<"
	OpGt CmpOp = ">"
	OpLe CmpOp = "<="
	OpGe CmpOp = ">="
)

// Compare is Left <Op> Right.
type Compare struct {
	Left  Expr
	Op    CmpOp
	Right Expr
}

func (*Compare) predicateNode() {}

// Between is Expr BETWEEN Low AND High (inclusive).
type Between struct {
	Expr Expr
	Low  Expr
	High Expr
}

func (*Between) predicateNode() {}

// In is Expr [NOT] IN (Values...).
type In struct {
	Expr   Expr
	Values []Expr
	Negate bool
}

func (*In) predicateNode() {}

// InQuery is Expr [NOT] IN (Query). Query must project one column.
type InQuery struct {
	Expr   Expr
	Query  Query
	Negate bool
}

func (*InQuery) predicateNode() {}

// Exists is [NOT] EXISTS (Query).
type Exists struct {
	Query  Query
	Negate bool
}

func (*Exists) predicateNode() {}

// And holds when every predicate holds. An empty And is true.
type And struct {
	Predicates []Predicate
}

func (*And) predicateNode() {}

// Or holds when any predicate holds. An empty Or is false.
type Or struct {
	Predicates []Predicate
}

func (*Or) predicateNode() {}

// Not negates a predicate.
type Not struct {
	Predicate Predicate
}

func (*Not) predicateNode() {}

// PathContains holds when Segment is one dot-separated token of the
// materialized hierarchy path Path (first, last or interior).
type PathContains struct {
	Path    Expr
	Segment Expr
}

func (*PathContains) predicateNode() {}

// Col returns a column reference.
func Col(table, name string) *Ref {
	return &Ref{Table: table, Name: name}
}

// Int returns an INT64 value.
func Int(v int64) *Value {
	return &Value{Type: TypeInt64, V: v}
}

// Float returns a FLOAT64 value.
func Float(v float64) *Value {
	return &Value{Type: TypeFloat64, V: v}
}

// String returns a STRING value.
func String(v string) *Value {
	return &Value{Type: TypeString, V: v}
}

// Date returns a DATE value truncated to the day.
func Date(v time.Time) *Value {
	y, m, d := v.Date()
	return &Value{Type: TypeDate, V: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Bool returns a BOOL value.
func Bool(v bool) *Value {
	return &Value{Type: TypeBool, V: v}
}

// Lit returns an inline integer literal.
func Lit(v int64) *Literal {
	return &Literal{V: v}
}

// Eq returns l = r.
func Eq(l, r Expr) *Compare {
	return &Compare{Left: l, Op: OpEq, Right: r}
}

// AllOf conjoins the non-nil predicates. It returns nil when none remain and
// the sole predicate when only one does.
func AllOf(preds ...Predicate) Predicate {
	kept := compact(preds)
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return &And{Predicates: kept}
}

// AnyOf disjoins the non-nil predicates. It returns nil when none remain and
// the sole predicate when only one does.
func AnyOf(preds ...Predicate) Predicate {
	kept := compact(preds)
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return &Or{Predicates: kept}
}

func compact(preds []Predicate) []Predicate {
	kept := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	return kept
}
