package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/cohort/internal/criteria"
	"github.com/roach88/cohort/internal/queryir"
)

const pathLookupSQL = "SELECT c.concept_id FROM cb_criteria c JOIN cb_criteria p" +
	" ON ('.' || c.path || '.') LIKE ('%.' || CAST(p.id AS TEXT) || '.%')" +
	" WHERE p.concept_id IN (@p0) AND p.domain_id = @p1 AND p.is_standard = @p2 AND p.is_group = 1" +
	" AND c.domain_id = @p1 AND c.is_standard = @p2 AND c.is_selectable = 1"

func TestExpand_LeafPassesThrough(t *testing.T) {
	b := testBuilder()
	sql, params := renderWhere(t, b.expand(queryir.Col("e", "concept_id"), criteria.DomainCondition, true, []int64{44, 45}, false, false))

	assert.Equal(t, "e.concept_id IN (@p0, @p1)", sql)
	assert.Equal(t, []any{int64(44), int64(45)}, paramValues(params))
}

func TestExpand_GroupUsesPathLookup(t *testing.T) {
	b := testBuilder()
	sql, params := renderWhere(t, b.expand(queryir.Col("e", "concept_id"), criteria.DomainCondition, true, []int64{4000}, true, false))

	assert.Equal(t, "e.concept_id IN ("+pathLookupSQL+")", sql)
	assert.Equal(t, []any{int64(4000), "CONDITION", int64(1)}, paramValues(params))
}

func TestExpand_DrugGroupIsTwoHop(t *testing.T) {
	b := testBuilder()
	sql, params := renderWhere(t, b.expand(queryir.Col("e", "concept_id"), criteria.DomainDrug, false, []int64{7000}, true, true))

	assert.Equal(t,
		"e.concept_id IN (SELECT a.descendant_id FROM cb_criteria_ancestor a WHERE a.ancestor_id IN ("+pathLookupSQL+"))",
		sql)
	assert.Equal(t, []any{int64(7000), "DRUG", int64(0)}, paramValues(params))
}

func TestExpand_AncestorLeafUsesClosureOnly(t *testing.T) {
	b := testBuilder()
	sql, _ := renderWhere(t, b.expand(queryir.Col("e", "concept_id"), criteria.DomainDrug, true, []int64{7001}, false, true))

	assert.Equal(t, "e.concept_id IN (SELECT a.descendant_id FROM cb_criteria_ancestor a WHERE a.ancestor_id IN (@p0))", sql)
}

func TestExpand_NoIDs(t *testing.T) {
	b := testBuilder()
	assert.Nil(t, b.expand(queryir.Col("e", "concept_id"), criteria.DomainDrug, true, nil, true, true))
}

func TestConceptSelection_BatchesByLookup(t *testing.T) {
	b := testBuilder()
	sel := newConceptSelection()
	sel.add(criteria.DomainCondition, 101, false, false)
	sel.add(criteria.DomainCondition, 102, false, false)
	sel.add(criteria.DomainCondition, 101, false, false) // duplicate
	sel.add(criteria.DomainDrug, 7001, false, true)
	sel.add(criteria.DomainCondition, 4000, true, false)
	sel.add(criteria.DomainCondition, 4100, true, false)
	sel.add(criteria.DomainDrug, 7000, true, false) // DRUG groups always use the closure

	sql, params := renderWhere(t, sel.predicate(b, queryir.Col("e", "concept_id"), true))

	assert.Equal(t,
		"(e.concept_id IN (@p0, @p1)"+
			" OR e.concept_id IN (SELECT a.descendant_id FROM cb_criteria_ancestor a WHERE a.ancestor_id IN (@p2))"+
			" OR e.concept_id IN (SELECT c.concept_id FROM cb_criteria c JOIN cb_criteria p"+
			" ON ('.' || c.path || '.') LIKE ('%.' || CAST(p.id AS TEXT) || '.%')"+
			" WHERE p.concept_id IN (@p3, @p4) AND p.domain_id = @p5 AND p.is_standard = @p6 AND p.is_group = 1"+
			" AND c.domain_id = @p5 AND c.is_standard = @p6 AND c.is_selectable = 1)"+
			" OR e.concept_id IN (SELECT a.descendant_id FROM cb_criteria_ancestor a WHERE a.ancestor_id IN"+
			" (SELECT c.concept_id FROM cb_criteria c JOIN cb_criteria p"+
			" ON ('.' || c.path || '.') LIKE ('%.' || CAST(p.id AS TEXT) || '.%')"+
			" WHERE p.concept_id IN (@p7) AND p.domain_id = @p8 AND p.is_standard = @p6 AND p.is_group = 1"+
			" AND c.domain_id = @p8 AND c.is_standard = @p6 AND c.is_selectable = 1)))",
		sql)
	assert.Equal(t,
		[]any{int64(101), int64(102), int64(7001), int64(4000), int64(4100), "CONDITION", int64(1), int64(7000), "DRUG"},
		paramValues(params))
}

func TestPathLookup_UsesConfiguredTables(t *testing.T) {
	b := &builder{t: Tables{Criteria: "vocab.criteria", CriteriaAncestor: "vocab.ancestor"}.withDefaults()}
	stmt := renderQuery(t, b.closureLookup(&queryir.InQuery{
		Expr:  queryir.Col("a", "ancestor_id"),
		Query: b.pathLookup(criteria.DomainDrug, true, []int64{1}),
	}))

	assert.Contains(t, stmt.SQL, "FROM vocab.ancestor a")
	assert.Contains(t, stmt.SQL, "FROM vocab.criteria c JOIN vocab.criteria p")
}
