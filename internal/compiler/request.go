package compiler

import (
	"github.com/roach88/cohort/internal/criteria"
	"github.com/roach88/cohort/internal/queryir"
)

// Has-data columns of the search person table, by data filter.
var dataFilterColumns = map[criteria.DataFilter]string{
	criteria.HasEHRData:                 "has_ehr_data",
	criteria.HasPhysicalMeasurementData: "has_physical_measurement_data",
	criteria.HasFitbitData:              "has_fitbit",
	criteria.HasWholeGenomeVariant:      "has_whole_genome_variant",
	criteria.HasArrayData:               "has_array_data",
}

// Age buckets of the demographics breakdown, over age at CDR.
var ageRanges = []struct {
	label     string
	low, high int64
}{
	{"18-44", 18, 44},
	{"45-64", 45, 64},
}

const oldestAgeRange = "65+"

// cohort builds the predicate over the search person row p that selects
// the cohort. Include groups are ANDed, each exclude group is a NOT EXISTS,
// and data filters require their has-data flag.
func (b *builder) cohort(req *criteria.SearchRequest) queryir.Predicate {
	var preds []queryir.Predicate
	for i := range req.IncludeGroups {
		preds = append(preds, &queryir.InQuery{
			Expr:  queryir.Col("p", "person_id"),
			Query: b.groupQuery(&req.IncludeGroups[i]),
		})
	}
	for i := range req.ExcludeGroups {
		preds = append(preds, &queryir.Exists{
			Negate: true,
			Query: &queryir.Select{
				Columns: []queryir.Column{{Expr: queryir.Lit(1)}},
				From:    &queryir.Subquery{Query: b.groupQuery(&req.ExcludeGroups[i]), Alias: "x"},
				Where:   queryir.Eq(queryir.Col("x", "person_id"), queryir.Col("p", "person_id")),
			},
		})
	}
	for _, f := range req.DataFilters {
		preds = append(preds, queryir.Eq(queryir.Col("p", dataFilterColumns[f]), queryir.Lit(1)))
	}
	return queryir.AllOf(preds...)
}

// groupQuery returns the person ids matched by a group: the union of its
// items, or the temporal relationship between its partitions.
func (b *builder) groupQuery(g *criteria.SearchGroup) queryir.Query {
	if g.Temporal {
		return b.temporalQuery(g)
	}
	queries := make([]queryir.Query, 0, len(g.Items))
	for i := range g.Items {
		queries = append(queries, b.itemQuery(&g.Items[i], false))
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return &queryir.UnionAll{Queries: queries}
}

// outer wraps the cohort predicate in the projection out asks for.
func (b *builder) outer(out Output, cohort queryir.Predicate) queryir.Query {
	person := &queryir.Table{Name: b.t.SearchPerson, Alias: "p"}
	personID := queryir.Col("p", "person_id")

	switch out.Shape {
	case ShapeDemographics:
		ageRange := queryir.Col("", "age_range")
		return &queryir.Select{
			Columns: []queryir.Column{
				{Expr: queryir.Col("p", "gender")},
				{Expr: queryir.Col("p", "race")},
				{Expr: ageRangeCase(), Alias: "age_range"},
				{Expr: &queryir.Count{Expr: &queryir.Star{}}, Alias: "count"},
			},
			From:    person,
			Where:   cohort,
			GroupBy: []queryir.Expr{queryir.Col("p", "gender"), queryir.Col("p", "race"), ageRange},
			OrderBy: []queryir.Order{
				{Expr: queryir.Col("p", "gender")},
				{Expr: queryir.Col("p", "race")},
				{Expr: ageRange},
			},
		}

	case ShapePersonIDs:
		q := &queryir.Select{
			Columns: []queryir.Column{{Expr: personID}},
			From:    person,
			Where:   cohort,
			OrderBy: []queryir.Order{{Expr: personID}},
		}
		if out.Limit > 0 {
			q.Limit = queryir.Int(int64(out.Limit))
		}
		return q

	case ShapeDomainChart:
		return b.domainChart(out, person, cohort)

	default:
		return &queryir.Select{
			Columns: []queryir.Column{{Expr: &queryir.Count{Distinct: true, Expr: personID}, Alias: "count"}},
			From:    person,
			Where:   cohort,
		}
	}
}

// domainChart counts cohort members per standard concept of one domain and
// keeps the most frequent.
func (b *builder) domainChart(out Output, person *queryir.Table, cohort queryir.Predicate) queryir.Query {
	limit := out.Limit
	if limit == 0 {
		limit = DefaultChartLimit
	}
	domain := queryir.String(string(out.Domain))
	members := &queryir.Select{
		Columns: []queryir.Column{{Expr: queryir.Col("p", "person_id")}},
		From:    person,
		Where:   cohort,
	}
	return &queryir.Select{
		Columns: []queryir.Column{
			{Expr: queryir.Col("c", "name")},
			{Expr: queryir.Col("e", "concept_id")},
			{Expr: &queryir.Count{Distinct: true, Expr: queryir.Col("e", "person_id")}, Alias: "count"},
		},
		From: &queryir.Table{Name: b.t.Events, Alias: "e"},
		Joins: []queryir.Join{{
			Source: &queryir.Table{Name: b.t.Criteria, Alias: "c"},
			On: queryir.AllOf(
				queryir.Eq(queryir.Col("c", "concept_id"), queryir.Col("e", "concept_id")),
				queryir.Eq(queryir.Col("c", "domain_id"), domain),
				queryir.Eq(queryir.Col("c", "is_standard"), standardValue(true)),
				queryir.Eq(queryir.Col("c", "is_selectable"), queryir.Lit(1)),
			),
		}},
		Where: queryir.AllOf(
			queryir.Eq(queryir.Col("e", "domain"), domain),
			queryir.Eq(queryir.Col("e", "is_standard"), standardValue(true)),
			&queryir.InQuery{Expr: queryir.Col("e", "person_id"), Query: members},
		),
		GroupBy: []queryir.Expr{queryir.Col("c", "name"), queryir.Col("e", "concept_id")},
		OrderBy: []queryir.Order{
			{Expr: queryir.Col("", "count"), Desc: true},
			{Expr: queryir.Col("e", "concept_id")},
		},
		Limit: queryir.Int(int64(limit)),
	}
}

func ageRangeCase() queryir.Expr {
	age := queryir.Col("p", "age_at_cdr")
	whens := make([]queryir.When, 0, len(ageRanges)+1)
	for _, r := range ageRanges {
		whens = append(whens, queryir.When{
			Cond: &queryir.Between{Expr: age, Low: queryir.Lit(r.low), High: queryir.Lit(r.high)},
			Then: queryir.String(r.label),
		})
	}
	whens = append(whens, queryir.When{
		Cond: &queryir.Compare{Left: age, Op: queryir.OpGe, Right: queryir.Lit(65)},
		Then: queryir.String(oldestAgeRange),
	})
	return &queryir.Case{Whens: whens}
}
