package compiler

import (
	"fmt"
	"strconv"

	"github.com/roach88/cohort/internal/criteria"
	"github.com/roach88/cohort/internal/queryir"
)

// builder lowers validated requests to query trees. It holds no per-request
// state; values are bound later, at render time.
type builder struct {
	t Tables
}

// Event-row columns projected for temporal groups.
var eventRowColumns = []string{"person_id", "entry_date", "concept_id", "visit_occurrence_id"}

// itemQuery builds the query for one item. With rows set, event items
// project eventRowColumns; otherwise every item projects person_id only.
func (b *builder) itemQuery(item *criteria.SearchGroupItem, rows bool) queryir.Query {
	switch item.Type.Kind() {
	case criteria.KindEvent:
		return b.eventQuery(item, rows)
	case criteria.KindDemographic:
		return b.demographicQuery(item)
	case criteria.KindPersonFlag:
		return b.personFlagQuery(item.Type)
	default:
		panic(fmt.Sprintf("compiler: unvalidated domain %q", item.Type))
	}
}

// eventQuery matches an item's parameters against the all-events table and
// applies its modifiers.
func (b *builder) eventQuery(item *criteria.SearchGroupItem, rows bool) queryir.Query {
	preds := []queryir.Predicate{b.parameterPredicate(item)}
	preds = append(preds, b.modifierPredicates(item.Modifiers)...)

	occurrences, grouped := findModifier(item.Modifiers, criteria.ModNumOfOccurrences)

	cols := []string{"person_id"}
	if rows || grouped {
		cols = eventRowColumns
	}
	base := &queryir.Select{
		Columns: columns("e", cols),
		From:    &queryir.Table{Name: b.t.Events, Alias: "e"},
		Where:   queryir.AllOf(preds...),
	}
	if !grouped {
		return base
	}
	if rows {
		return b.applyOccurrences(base, occurrences, eventRowColumns)
	}
	return b.applyOccurrences(base, occurrences, []string{"person_id"})
}

// parameterPredicate ORs the fragments of every parameter of an event item.
// Parameters without attributes are batched per standard flag; parameters
// with attributes each get their own fragment.
func (b *builder) parameterPredicate(item *criteria.SearchGroupItem) queryir.Predicate {
	var (
		partitions []bool
		selections = map[bool]*conceptSelection{}
		attributed []queryir.Predicate
	)
	for i := range item.SearchParameters {
		p := &item.SearchParameters[i]
		domain := parameterDomain(item, p)
		if p.HasAttributes() {
			attributed = append(attributed, b.attributeFragment(domain, p))
			continue
		}
		sel, ok := selections[p.Standard]
		if !ok {
			sel = newConceptSelection()
			selections[p.Standard] = sel
			partitions = append(partitions, p.Standard)
		}
		sel.add(domain, *p.ConceptID, p.Group, p.AncestorData)
	}

	frags := make([]queryir.Predicate, 0, len(partitions)+len(attributed))
	for _, standard := range partitions {
		frags = append(frags, queryir.AllOf(
			queryir.Eq(queryir.Col("e", "is_standard"), standardValue(standard)),
			selections[standard].predicate(b, queryir.Col("e", "concept_id"), standard),
		))
	}
	frags = append(frags, attributed...)
	return queryir.AnyOf(frags...)
}

// attributeFragment compiles one parameter with attributes.
//
// Attributes that carry their own concept id describe the components of a
// composite measurement. Their ids replace the parameter's concept and,
// by caller convention, the first constrains systolic and the second
// diastolic. Nothing in the request tags which is which, so swapped input
// silently swaps the columns. Validation allows at most two components,
// each NUM or ANY.
func (b *builder) attributeFragment(domain criteria.Domain, p *criteria.SearchParameter) queryir.Predicate {
	var (
		componentIDs []int64
		components   []queryir.Predicate
		values       []queryir.Predicate
	)
	for _, a := range p.Attributes {
		if a.ConceptID != nil {
			if a.Name == criteria.AttrNum {
				col := queryir.Col("e", componentColumns[len(componentIDs)])
				components = append(components, compare(col, a.Operator, numberValues(a.Operands)))
			}
			componentIDs = append(componentIDs, *a.ConceptID)
			continue
		}
		switch a.Name {
		case criteria.AttrNum:
			values = append(values, compare(queryir.Col("e", "value_as_number"), a.Operator, numberValues(a.Operands)))
		case criteria.AttrCat:
			col := "value_as_concept_id"
			if domain == criteria.DomainSurvey {
				col = "value_source_concept_id"
			}
			values = append(values, compare(queryir.Col("e", col), a.Operator, integerValues(a.Operands)))
		case criteria.AttrSurveyVersionConceptID:
			values = append(values, compare(queryir.Col("e", "survey_version_concept_id"), a.Operator, integerValues(a.Operands)))
		case criteria.AttrAny:
		}
	}

	var concept queryir.Predicate
	if len(componentIDs) > 0 {
		concept = &queryir.In{Expr: queryir.Col("e", "concept_id"), Values: intValues(componentIDs)}
	} else {
		closure := p.AncestorData || (p.Group && domain == criteria.DomainDrug)
		concept = b.expand(queryir.Col("e", "concept_id"), domain, p.Standard, []int64{*p.ConceptID}, p.Group, closure)
	}

	preds := []queryir.Predicate{
		queryir.Eq(queryir.Col("e", "is_standard"), standardValue(p.Standard)),
		concept,
	}
	preds = append(preds, components...)
	preds = append(preds, values...)
	return queryir.AllOf(preds...)
}

// componentColumns are the composite measurement columns, in the order
// component attributes are given.
var componentColumns = []string{"systolic", "diastolic"}

// compare applies a request operator to col. Operands have already been
// validated for arity.
func compare(col queryir.Expr, op criteria.Operator, values []queryir.Expr) queryir.Predicate {
	switch op {
	case criteria.OpEqual:
		return &queryir.Compare{Left: col, Op: queryir.OpEq, Right: values[0]}
	case criteria.OpNotEqual:
		return &queryir.Compare{Left: col, Op: queryir.OpNe, Right: values[0]}
	case criteria.OpLessThan:
		return &queryir.Compare{Left: col, Op: queryir.OpLt, Right: values[0]}
	case criteria.OpGreaterThan:
		return &queryir.Compare{Left: col, Op: queryir.OpGt, Right: values[0]}
	case criteria.OpLessThanOrEqualTo:
		return &queryir.Compare{Left: col, Op: queryir.OpLe, Right: values[0]}
	case criteria.OpGreaterThanOrEqualTo:
		return &queryir.Compare{Left: col, Op: queryir.OpGe, Right: values[0]}
	case criteria.OpIn:
		return &queryir.In{Expr: col, Values: values}
	case criteria.OpNotIn:
		return &queryir.In{Expr: col, Values: values, Negate: true}
	case criteria.OpBetween:
		return &queryir.Between{Expr: col, Low: values[0], High: values[1]}
	default:
		panic(fmt.Sprintf("compiler: unvalidated operator %q", op))
	}
}

// numberValues binds numeric operands, as INT64 when integral and FLOAT64
// otherwise.
func numberValues(operands []string) []queryir.Expr {
	out := make([]queryir.Expr, len(operands))
	for i, s := range operands {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			out[i] = queryir.Int(n)
			continue
		}
		f, _ := parseNumber(s)
		out[i] = queryir.Float(f)
	}
	return out
}

func integerValues(operands []string) []queryir.Expr {
	out := make([]queryir.Expr, len(operands))
	for i, s := range operands {
		n, _ := strconv.ParseInt(s, 10, 64)
		out[i] = queryir.Int(n)
	}
	return out
}

func dateValues(operands []string) []queryir.Expr {
	out := make([]queryir.Expr, len(operands))
	for i, s := range operands {
		d, _ := parseDate(s)
		out[i] = queryir.Date(d)
	}
	return out
}

func columns(table string, names []string) []queryir.Column {
	out := make([]queryir.Column, len(names))
	for i, n := range names {
		out[i] = queryir.Column{Expr: queryir.Col(table, n)}
	}
	return out
}
