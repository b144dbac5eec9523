package compiler

import (
	"github.com/roach88/cohort/internal/criteria"
	"github.com/roach88/cohort/internal/queryir"
)

// modifierPredicates returns the row-level modifier predicates in their
// fixed order: age at event, event date, encounters. NUM_OF_OCCURRENCES is
// not a row predicate; see applyOccurrences.
func (b *builder) modifierPredicates(mods []criteria.Modifier) []queryir.Predicate {
	var preds []queryir.Predicate
	if m, ok := findModifier(mods, criteria.ModAgeAtEvent); ok {
		preds = append(preds, compare(queryir.Col("e", "age_at_event"), m.Operator, numberValues(m.Operands)))
	}
	if m, ok := findModifier(mods, criteria.ModEventDate); ok {
		preds = append(preds, compare(queryir.Col("e", "entry_date"), m.Operator, dateValues(m.Operands)))
	}
	if m, ok := findModifier(mods, criteria.ModEncounters); ok {
		preds = append(preds, compare(queryir.Col("e", "visit_concept_id"), m.Operator, integerValues(m.Operands)))
	}
	return preds
}

// applyOccurrences keeps the rows of base whose (person, concept) pair
// occurs a qualifying number of times. It wraps everything else, so it is
// always applied last.
//
//	SELECT x.<cols> FROM (base) x
//	JOIN (SELECT o.person_id, o.concept_id FROM (base) o
//	      GROUP BY o.person_id, o.concept_id HAVING COUNT(*) <op>) n
//	  ON x.person_id = n.person_id AND x.concept_id = n.concept_id
func (b *builder) applyOccurrences(base *queryir.Select, m criteria.Modifier, cols []string) *queryir.Select {
	counted := &queryir.Select{
		Columns: columns("o", []string{"person_id", "concept_id"}),
		From:    &queryir.Subquery{Query: base, Alias: "o"},
		GroupBy: []queryir.Expr{queryir.Col("o", "person_id"), queryir.Col("o", "concept_id")},
		Having:  compare(&queryir.Count{Expr: &queryir.Star{}}, m.Operator, numberValues(m.Operands)),
	}
	return &queryir.Select{
		Columns: columns("x", cols),
		From:    &queryir.Subquery{Query: base, Alias: "x"},
		Joins: []queryir.Join{{
			Source: &queryir.Subquery{Query: counted, Alias: "n"},
			On: queryir.AllOf(
				queryir.Eq(queryir.Col("x", "person_id"), queryir.Col("n", "person_id")),
				queryir.Eq(queryir.Col("x", "concept_id"), queryir.Col("n", "concept_id")),
			),
		}},
	}
}

// findModifier returns the modifier named name. Validation guarantees at
// most one per item.
func findModifier(mods []criteria.Modifier, name criteria.ModifierName) (criteria.Modifier, bool) {
	for _, m := range mods {
		if m.Name == name {
			return m, true
		}
	}
	return criteria.Modifier{}, false
}
