package compiler

import (
	"github.com/roach88/cohort/internal/criteria"
	"github.com/roach88/cohort/internal/queryir"
)

// temporalQuery relates the two partitions of a temporal group. Rows of
// partition 0 are a, rows of partition 1 are b; a person qualifies when some
// a row and some b row satisfy the group's time relationship.
//
// With a single partition-1 item the relationship is a correlated EXISTS:
//
//	SELECT DISTINCT a.person_id FROM (p0) a
//	WHERE [a.rn = 1 AND] EXISTS (SELECT 1 FROM (p1) b WHERE <join> [AND b.rn = 1])
//
// With several partition-1 items the partitions are joined:
//
//	SELECT DISTINCT a.person_id FROM (p0) a JOIN (p1) b ON <join>
//	[WHERE a.rn = 1 AND b.rn = 1]
func (b *builder) temporalQuery(g *criteria.SearchGroup) queryir.Query {
	var parts [2][]*criteria.SearchGroupItem
	for i := range g.Items {
		item := &g.Items[i]
		parts[*item.TemporalGroup] = append(parts[*item.TemporalGroup], item)
	}

	join := queryir.AllOf(
		queryir.Eq(queryir.Col("a", "person_id"), queryir.Col("b", "person_id")),
		timePredicate(g),
	)

	var firstA, firstB queryir.Predicate
	if g.Mention != criteria.AnyMention {
		firstA = queryir.Eq(queryir.Col("a", "rn"), queryir.Lit(1))
		firstB = queryir.Eq(queryir.Col("b", "rn"), queryir.Lit(1))
	}

	left := &queryir.Subquery{Query: b.partition(g.Mention, parts[0]), Alias: "a"}
	right := &queryir.Subquery{Query: b.partition(g.Mention, parts[1]), Alias: "b"}
	project := []queryir.Column{{Expr: queryir.Col("a", "person_id")}}

	if len(parts[1]) == 1 {
		return &queryir.Select{
			Distinct: true,
			Columns:  project,
			From:     left,
			Where: queryir.AllOf(firstA, &queryir.Exists{Query: &queryir.Select{
				Columns: []queryir.Column{{Expr: queryir.Lit(1)}},
				From:    right,
				Where:   queryir.AllOf(join, firstB),
			}}),
		}
	}
	return &queryir.Select{
		Distinct: true,
		Columns:  project,
		From:     left,
		Joins:    []queryir.Join{{Source: right, On: join}},
		Where:    queryir.AllOf(firstA, firstB),
	}
}

// partition ranks the event rows of each item per person by entry date and
// unions the items. The rank restarts for every item, so FIRST_MENTION and
// LAST_MENTION keep the first (or last) mention of each item.
func (b *builder) partition(mention criteria.Mention, items []*criteria.SearchGroupItem) queryir.Query {
	queries := make([]queryir.Query, 0, len(items))
	for _, item := range items {
		rank := &queryir.Rank{
			PartitionBy: []queryir.Expr{queryir.Col("r", "person_id")},
			OrderBy:     []queryir.Order{{Expr: queryir.Col("r", "entry_date"), Desc: mention == criteria.LastMention}},
		}
		cols := columns("r", []string{"person_id", "entry_date", "visit_occurrence_id"})
		cols = append(cols, queryir.Column{Expr: rank, Alias: "rn"})
		queries = append(queries, &queryir.Select{
			Columns: cols,
			From:    &queryir.Subquery{Query: b.itemQuery(item, true), Alias: "r"},
		})
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return &queryir.UnionAll{Queries: queries}
}

// timePredicate relates row a of partition 0 to row b of partition 1.
func timePredicate(g *criteria.SearchGroup) queryir.Predicate {
	aDate := queryir.Col("a", "entry_date")
	bDate := queryir.Col("b", "entry_date")
	shift := func(negate bool) queryir.Expr {
		return &queryir.DateAddDays{Date: bDate, Days: queryir.Int(*g.TimeValue), Negate: negate}
	}

	switch g.Time {
	case criteria.SameEncounter, criteria.DuringSameEncounterAs:
		return queryir.Eq(queryir.Col("a", "visit_occurrence_id"), queryir.Col("b", "visit_occurrence_id"))
	case criteria.XDaysBefore:
		return &queryir.Compare{Left: aDate, Op: queryir.OpLe, Right: shift(true)}
	case criteria.XDaysAfter:
		return &queryir.Compare{Left: aDate, Op: queryir.OpGe, Right: shift(false)}
	case criteria.WithinXDaysOf:
		return &queryir.Between{Expr: aDate, Low: shift(true), High: shift(false)}
	default:
		return nil
	}
}
