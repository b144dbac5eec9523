package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/cohort/internal/criteria"
	"github.com/roach88/cohort/internal/testutil"
)

// ranked is the partition projection over one item's event rows.
func ranked(rows string, desc bool) string {
	order := "r.entry_date"
	if desc {
		order += " DESC"
	}
	return "SELECT r.person_id, r.entry_date, r.visit_occurrence_id," +
		" RANK() OVER (PARTITION BY r.person_id ORDER BY " + order + ") AS rn FROM (" + rows + ") r"
}

func eventRows(standard, concept string) string {
	return "SELECT e.person_id, e.entry_date, e.concept_id, e.visit_occurrence_id FROM cb_search_all_events e" +
		" WHERE e.is_standard = " + standard + " AND e.concept_id IN (" + concept + ")"
}

func temporalPair(mention criteria.Mention, time criteria.TemporalTime, value int64) criteria.SearchGroup {
	return testutil.TemporalGroup(mention, time, value,
		testutil.InPartition(0, testutil.Item(criteria.DomainCondition, sourceCondition(201))),
		testutil.InPartition(1, testutil.Item(criteria.DomainCondition,
			testutil.Concept(criteria.DomainCondition, criteria.TypeICD10CM, 301, false))),
	)
}

func TestTemporalQuery_FirstMentionDaysAfter(t *testing.T) {
	g := temporalPair(criteria.FirstMention, criteria.XDaysAfter, 5)
	stmt := renderQuery(t, testBuilder().temporalQuery(&g))

	assert.Equal(t,
		"SELECT DISTINCT a.person_id FROM ("+ranked(eventRows("@p0", "@p1"), false)+") a"+
			" WHERE a.rn = 1 AND EXISTS (SELECT 1 FROM ("+ranked(eventRows("@p0", "@p2"), false)+") b"+
			" WHERE a.person_id = b.person_id AND a.entry_date >= date(b.entry_date, '+' || @p3 || ' days') AND b.rn = 1)",
		stmt.SQL)
	assert.Equal(t, []any{int64(0), int64(201), int64(301), int64(5)}, paramValues(stmt.Params))
}

func TestTemporalQuery_LastMentionRanksDescending(t *testing.T) {
	g := temporalPair(criteria.LastMention, criteria.XDaysBefore, 3)
	stmt := renderQuery(t, testBuilder().temporalQuery(&g))

	assert.Equal(t,
		"SELECT DISTINCT a.person_id FROM ("+ranked(eventRows("@p0", "@p1"), true)+") a"+
			" WHERE a.rn = 1 AND EXISTS (SELECT 1 FROM ("+ranked(eventRows("@p0", "@p2"), true)+") b"+
			" WHERE a.person_id = b.person_id AND a.entry_date <= date(b.entry_date, '-' || @p3 || ' days') AND b.rn = 1)",
		stmt.SQL)
}

func TestTemporalQuery_AnyMentionSameEncounter(t *testing.T) {
	g := temporalPair(criteria.AnyMention, criteria.DuringSameEncounterAs, 0)
	stmt := renderQuery(t, testBuilder().temporalQuery(&g))

	assert.Equal(t,
		"SELECT DISTINCT a.person_id FROM ("+ranked(eventRows("@p0", "@p1"), false)+") a"+
			" WHERE EXISTS (SELECT 1 FROM ("+ranked(eventRows("@p0", "@p2"), false)+") b"+
			" WHERE a.person_id = b.person_id AND a.visit_occurrence_id = b.visit_occurrence_id)",
		stmt.SQL)
	assert.Equal(t, []any{int64(0), int64(201), int64(301)}, paramValues(stmt.Params))
}

func TestTemporalQuery_SeveralLaterItemsJoin(t *testing.T) {
	g := testutil.TemporalGroup(criteria.AnyMention, criteria.WithinXDaysOf, 7,
		testutil.InPartition(0, testutil.Item(criteria.DomainCondition, sourceCondition(201))),
		testutil.InPartition(1, testutil.Item(criteria.DomainCondition, sourceCondition(301))),
		testutil.InPartition(1, testutil.Item(criteria.DomainCondition, sourceCondition(302))),
	)
	stmt := renderQuery(t, testBuilder().temporalQuery(&g))

	assert.Equal(t,
		"SELECT DISTINCT a.person_id FROM ("+ranked(eventRows("@p0", "@p1"), false)+") a"+
			" JOIN ("+ranked(eventRows("@p0", "@p2"), false)+" UNION ALL "+ranked(eventRows("@p0", "@p3"), false)+") b"+
			" ON a.person_id = b.person_id AND a.entry_date BETWEEN"+
			" date(b.entry_date, '-' || @p4 || ' days') AND date(b.entry_date, '+' || @p4 || ' days')",
		stmt.SQL)
	assert.Equal(t, []any{int64(0), int64(201), int64(301), int64(302), int64(7)}, paramValues(stmt.Params))
}

func TestTemporalQuery_JoinShapeFiltersMentionInWhere(t *testing.T) {
	g := testutil.TemporalGroup(criteria.FirstMention, criteria.WithinXDaysOf, 7,
		testutil.InPartition(0, testutil.Item(criteria.DomainCondition, sourceCondition(201))),
		testutil.InPartition(1, testutil.Item(criteria.DomainCondition, sourceCondition(301))),
		testutil.InPartition(1, testutil.Item(criteria.DomainCondition, sourceCondition(302))),
	)
	stmt := renderQuery(t, testBuilder().temporalQuery(&g))

	assert.Regexp(t, ` WHERE a\.rn = 1 AND b\.rn = 1$`, stmt.SQL)
}

func TestTemporalQuery_PartitionOrderFollowsTags(t *testing.T) {
	// Partition 1 listed first still becomes b.
	g := testutil.TemporalGroup(criteria.AnyMention, criteria.XDaysAfter, 5,
		testutil.InPartition(1, testutil.Item(criteria.DomainCondition, sourceCondition(301))),
		testutil.InPartition(0, testutil.Item(criteria.DomainCondition, sourceCondition(201))),
	)
	stmt := renderQuery(t, testBuilder().temporalQuery(&g))

	assert.Equal(t, []any{int64(0), int64(201), int64(301), int64(5)}, paramValues(stmt.Params))
}
