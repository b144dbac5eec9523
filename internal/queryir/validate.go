package queryir

import (
	"fmt"
	"time"
)

// ValidationResult lists structural problems found in a query tree.
type ValidationResult struct {
	// WellFormed is true when Problems is empty.
	WellFormed bool

	// Problems describes each malformed node, in traversal order.
	Problems []string
}

// Validate checks that a tree can be rendered: every Select has a source
// and at least one column, every Subquery has an alias, every Join has a
// condition, and no node is nil where a value is required.
//
// Validate is a pure function with no side effects.
func Validate(q Query) ValidationResult {
	v := &validator{}
	v.query(q, "query")
	return ValidationResult{
		WellFormed: len(v.problems) == 0,
		Problems:   v.problems,
	}
}

type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) query(q Query, path string) {
	switch query := q.(type) {
	case nil:
		v.addProblem("%s: nil query", path)
	case *Select:
		v.selectStmt(query, path)
	case *UnionAll:
		if len(query.Queries) == 0 {
			v.addProblem("%s: UNION ALL without members", path)
		}
		for i, member := range query.Queries {
			v.query(member, fmt.Sprintf("%s.union[%d]", path, i))
		}
	default:
		v.addProblem("%s: unknown query type %T", path, q)
	}
}

func (v *validator) selectStmt(s *Select, path string) {
	if len(s.Columns) == 0 {
		v.addProblem("%s: SELECT without columns", path)
	}
	for i, col := range s.Columns {
		v.expr(col.Expr, fmt.Sprintf("%s.columns[%d]", path, i))
	}
	if s.From == nil {
		v.addProblem("%s: SELECT without FROM", path)
	} else {
		v.source(s.From, path+".from")
	}
	for i, j := range s.Joins {
		jp := fmt.Sprintf("%s.joins[%d]", path, i)
		v.source(j.Source, jp)
		if j.On == nil {
			v.addProblem("%s: JOIN without ON condition", jp)
		} else {
			v.predicate(j.On, jp+".on")
		}
	}
	if s.Where != nil {
		v.predicate(s.Where, path+".where")
	}
	for i, g := range s.GroupBy {
		v.expr(g, fmt.Sprintf("%s.groupBy[%d]", path, i))
	}
	if s.Having != nil {
		if len(s.GroupBy) == 0 {
			v.addProblem("%s: HAVING without GROUP BY", path)
		}
		v.predicate(s.Having, path+".having")
	}
	for i, o := range s.OrderBy {
		v.expr(o.Expr, fmt.Sprintf("%s.orderBy[%d]", path, i))
	}
	if s.Limit != nil {
		v.expr(s.Limit, path+".limit")
	}
}

func (v *validator) source(src Source, path string) {
	switch s := src.(type) {
	case nil:
		v.addProblem("%s: nil source", path)
	case *Table:
		if s.Name == "" {
			v.addProblem("%s: table without name", path)
		}
	case *Subquery:
		if s.Alias == "" {
			v.addProblem("%s: subquery without alias", path)
		}
		v.query(s.Query, path+".subquery")
	default:
		v.addProblem("%s: unknown source type %T", path, src)
	}
}

func (v *validator) expr(e Expr, path string) {
	switch x := e.(type) {
	case nil:
		v.addProblem("%s: nil expression", path)
	case *Ref:
		if x.Name == "" {
			v.addProblem("%s: column reference without name", path)
		}
	case *Value:
		v.value(x, path)
	case *Literal, *Star:
	case *Count:
		if x.Distinct && x.Expr == nil {
			v.addProblem("%s: COUNT(DISTINCT) without expression", path)
		}
		if x.Expr != nil {
			v.expr(x.Expr, path+".count")
		}
	case *Rank:
		if len(x.OrderBy) == 0 {
			v.addProblem("%s: RANK() without ORDER BY", path)
		}
		for i, p := range x.PartitionBy {
			v.expr(p, fmt.Sprintf("%s.partitionBy[%d]", path, i))
		}
		for i, o := range x.OrderBy {
			v.expr(o.Expr, fmt.Sprintf("%s.orderBy[%d]", path, i))
		}
	case *DateAddDays:
		v.expr(x.Date, path+".date")
		v.expr(x.Days, path+".days")
	case *AgeYears:
		v.expr(x.Birth, path+".birth")
	case *Case:
		if len(x.Whens) == 0 {
			v.addProblem("%s: CASE without WHEN", path)
		}
		for i, w := range x.Whens {
			v.predicate(w.Cond, fmt.Sprintf("%s.when[%d]", path, i))
			v.expr(w.Then, fmt.Sprintf("%s.then[%d]", path, i))
		}
		if x.Else != nil {
			v.expr(x.Else, path+".else")
		}
	default:
		v.addProblem("%s: unknown expression type %T", path, e)
	}
}

func (v *validator) value(x *Value, path string) {
	ok := false
	switch x.Type {
	case TypeInt64:
		_, ok = x.V.(int64)
	case TypeFloat64:
		_, ok = x.V.(float64)
	case TypeString:
		_, ok = x.V.(string)
	case TypeDate:
		_, ok = x.V.(time.Time)
	case TypeBool:
		_, ok = x.V.(bool)
	}
	if !ok {
		v.addProblem("%s: value %v (%T) does not match type %s", path, x.V, x.V, x.Type)
	}
}

func (v *validator) predicate(p Predicate, path string) {
	switch x := p.(type) {
	case nil:
		v.addProblem("%s: nil predicate", path)
	case *Compare:
		switch x.Op {
		case OpEq, OpNe, OpLt, OpGt, OpLe, OpGe:
		default:
			v.addProblem("%s: unknown comparison operator %q", path, x.Op)
		}
		v.expr(x.Left, path+".left")
		v.expr(x.Right, path+".right")
	case *Between:
		v.expr(x.Expr, path+".expr")
		v.expr(x.Low, path+".low")
		v.expr(x.High, path+".high")
	case *In:
		if len(x.Values) == 0 {
			v.addProblem("%s: IN with empty list", path)
		}
		v.expr(x.Expr, path+".expr")
		for i, val := range x.Values {
			v.expr(val, fmt.Sprintf("%s.values[%d]", path, i))
		}
	case *InQuery:
		v.expr(x.Expr, path+".expr")
		v.query(x.Query, path+".query")
	case *Exists:
		v.query(x.Query, path+".query")
	case *And:
		for i, sub := range x.Predicates {
			v.predicate(sub, fmt.Sprintf("%s.and[%d]", path, i))
		}
	case *Or:
		for i, sub := range x.Predicates {
			v.predicate(sub, fmt.Sprintf("%s.or[%d]", path, i))
		}
	case *Not:
		v.predicate(x.Predicate, path+".not")
	case *PathContains:
		v.expr(x.Path, path+".path")
		v.expr(x.Segment, path+".segment")
	default:
		v.addProblem("%s: unknown predicate type %T", path, p)
	}
}
