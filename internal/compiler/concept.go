package compiler

import (
	"github.com/roach88/cohort/internal/criteria"
	"github.com/roach88/cohort/internal/queryir"
)

// expansionKey identifies a batch of group concept ids that share one
// hierarchy lookup.
type expansionKey struct {
	domain  criteria.Domain
	closure bool
}

// conceptSelection collects the concept ids of several parameters that
// share a standard flag, in first-seen order.
type conceptSelection struct {
	leaves         []int64
	closureLeaves  []int64
	groupOrder     []expansionKey
	groups         map[expansionKey][]int64
	seen           map[int64]bool
	seenClosure    map[int64]bool
	seenGroupByKey map[expansionKey]map[int64]bool
}

func newConceptSelection() *conceptSelection {
	return &conceptSelection{
		groups:         make(map[expansionKey][]int64),
		seen:           make(map[int64]bool),
		seenClosure:    make(map[int64]bool),
		seenGroupByKey: make(map[expansionKey]map[int64]bool),
	}
}

// add records the parameter's concept id under the lookup it needs.
func (s *conceptSelection) add(domain criteria.Domain, id int64, group, ancestor bool) {
	switch {
	case group:
		key := expansionKey{domain: domain, closure: ancestor || domain == criteria.DomainDrug}
		seen, ok := s.seenGroupByKey[key]
		if !ok {
			seen = make(map[int64]bool)
			s.seenGroupByKey[key] = seen
			s.groupOrder = append(s.groupOrder, key)
		}
		if !seen[id] {
			seen[id] = true
			s.groups[key] = append(s.groups[key], id)
		}
	case ancestor:
		if !s.seenClosure[id] {
			s.seenClosure[id] = true
			s.closureLeaves = append(s.closureLeaves, id)
		}
	default:
		if !s.seen[id] {
			s.seen[id] = true
			s.leaves = append(s.leaves, id)
		}
	}
}

// predicate returns the disjunction matching col against every collected
// concept, or nil when nothing was collected.
func (s *conceptSelection) predicate(b *builder, col queryir.Expr, standard bool) queryir.Predicate {
	var preds []queryir.Predicate
	if len(s.leaves) > 0 {
		preds = append(preds, &queryir.In{Expr: col, Values: intValues(s.leaves)})
	}
	if len(s.closureLeaves) > 0 {
		preds = append(preds, &queryir.InQuery{
			Expr:  col,
			Query: b.closureLookup(&queryir.In{Expr: queryir.Col("a", "ancestor_id"), Values: intValues(s.closureLeaves)}),
		})
	}
	for _, key := range s.groupOrder {
		preds = append(preds, b.expand(col, key.domain, standard, s.groups[key], true, key.closure))
	}
	return queryir.AnyOf(preds...)
}

// expand builds the predicate selecting the concepts behind ids. Leaf ids
// match themselves. Group ids match every selectable node whose path runs
// through the group, and with closure the ancestor table is consulted for
// the descendants of those nodes as well.
func (b *builder) expand(col queryir.Expr, domain criteria.Domain, standard bool, ids []int64, group, closure bool) queryir.Predicate {
	if len(ids) == 0 {
		return nil
	}
	switch {
	case !group && !closure:
		return &queryir.In{Expr: col, Values: intValues(ids)}
	case !group:
		return &queryir.InQuery{
			Expr:  col,
			Query: b.closureLookup(&queryir.In{Expr: queryir.Col("a", "ancestor_id"), Values: intValues(ids)}),
		}
	case !closure:
		return &queryir.InQuery{Expr: col, Query: b.pathLookup(domain, standard, ids)}
	default:
		return &queryir.InQuery{
			Expr:  col,
			Query: b.closureLookup(&queryir.InQuery{
				Expr:  queryir.Col("a", "ancestor_id"),
				Query: b.pathLookup(domain, standard, ids),
			}),
		}
	}
}

// pathLookup selects the concept ids of selectable criteria below the given
// group concepts. A node is below a group when the group's id is one of the
// dot-separated segments of the node's path.
func (b *builder) pathLookup(domain criteria.Domain, standard bool, ids []int64) *queryir.Select {
	return &queryir.Select{
		Columns: []queryir.Column{{Expr: queryir.Col("c", "concept_id")}},
		From:    &queryir.Table{Name: b.t.Criteria, Alias: "c"},
		Joins: []queryir.Join{{
			Source: &queryir.Table{Name: b.t.Criteria, Alias: "p"},
			On:     &queryir.PathContains{Path: queryir.Col("c", "path"), Segment: queryir.Col("p", "id")},
		}},
		Where: queryir.AllOf(
			&queryir.In{Expr: queryir.Col("p", "concept_id"), Values: intValues(ids)},
			queryir.Eq(queryir.Col("p", "domain_id"), queryir.String(string(domain))),
			queryir.Eq(queryir.Col("p", "is_standard"), standardValue(standard)),
			queryir.Eq(queryir.Col("p", "is_group"), queryir.Lit(1)),
			queryir.Eq(queryir.Col("c", "domain_id"), queryir.String(string(domain))),
			queryir.Eq(queryir.Col("c", "is_standard"), standardValue(standard)),
			queryir.Eq(queryir.Col("c", "is_selectable"), queryir.Lit(1)),
		),
	}
}

// closureLookup selects descendants from the ancestor closure table. The
// closure holds a self row for every concept.
func (b *builder) closureLookup(ancestors queryir.Predicate) *queryir.Select {
	return &queryir.Select{
		Columns: []queryir.Column{{Expr: queryir.Col("a", "descendant_id")}},
		From:    &queryir.Table{Name: b.t.CriteriaAncestor, Alias: "a"},
		Where:   ancestors,
	}
}

func intValues(ids []int64) []queryir.Expr {
	out := make([]queryir.Expr, len(ids))
	for i, id := range ids {
		out[i] = queryir.Int(id)
	}
	return out
}

// standardValue binds the standard flag as 1 / 0, the representation every
// warehouse table uses.
func standardValue(standard bool) *queryir.Value {
	if standard {
		return queryir.Int(1)
	}
	return queryir.Int(0)
}
