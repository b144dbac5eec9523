package testutil

import "github.com/roach88/cohort/internal/criteria"

// Request builds a request from include groups.
func Request(includes ...criteria.SearchGroup) *criteria.SearchRequest {
	return &criteria.SearchRequest{IncludeGroups: includes}
}

// Group builds a non-temporal group.
func Group(items ...criteria.SearchGroupItem) criteria.SearchGroup {
	return criteria.SearchGroup{Items: items}
}

// TemporalGroup builds a temporal group. value is ignored for
// SAME_ENCOUNTER and DURING_SAME_ENCOUNTER_AS.
func TemporalGroup(mention criteria.Mention, time criteria.TemporalTime, value int64, items ...criteria.SearchGroupItem) criteria.SearchGroup {
	g := criteria.SearchGroup{
		Items:    items,
		Temporal: true,
		Mention:  mention,
		Time:     time,
	}
	if time.NeedsValue() {
		g.TimeValue = criteria.Int64(value)
	}
	return g
}

// Item builds an item of the given domain.
func Item(domain criteria.Domain, params ...criteria.SearchParameter) criteria.SearchGroupItem {
	return criteria.SearchGroupItem{Type: domain, SearchParameters: params}
}

// InPartition returns item assigned to temporal partition tg.
func InPartition(tg int, item criteria.SearchGroupItem) criteria.SearchGroupItem {
	item.TemporalGroup = criteria.Int(tg)
	return item
}

// WithModifiers returns item with mods appended.
func WithModifiers(item criteria.SearchGroupItem, mods ...criteria.Modifier) criteria.SearchGroupItem {
	item.Modifiers = append(append([]criteria.Modifier(nil), item.Modifiers...), mods...)
	return item
}

// Concept builds a leaf parameter.
func Concept(domain criteria.Domain, typ string, conceptID int64, standard bool) criteria.SearchParameter {
	return criteria.SearchParameter{
		Domain:    domain,
		Type:      typ,
		ConceptID: criteria.Int64(conceptID),
		Standard:  standard,
	}
}

// ConceptGroup builds a group (parent) parameter.
func ConceptGroup(domain criteria.Domain, typ string, conceptID int64, standard bool) criteria.SearchParameter {
	p := Concept(domain, typ, conceptID, standard)
	p.Group = true
	return p
}

// WithAttributes returns p with attrs appended.
func WithAttributes(p criteria.SearchParameter, attrs ...criteria.Attribute) criteria.SearchParameter {
	p.Attributes = append(append([]criteria.Attribute(nil), p.Attributes...), attrs...)
	return p
}

// Attr builds an attribute.
func Attr(name criteria.AttrName, op criteria.Operator, operands ...string) criteria.Attribute {
	return criteria.Attribute{Name: name, Operator: op, Operands: operands}
}

// ComponentAttr builds a composite-measurement attribute for conceptID.
func ComponentAttr(conceptID int64, op criteria.Operator, operands ...string) criteria.Attribute {
	a := Attr(criteria.AttrNum, op, operands...)
	a.ConceptID = criteria.Int64(conceptID)
	return a
}

// Mod builds a modifier.
func Mod(name criteria.ModifierName, op criteria.Operator, operands ...string) criteria.Modifier {
	return criteria.Modifier{Name: name, Operator: op, Operands: operands}
}

// Demographic builds a PERSON parameter of the given type.
func Demographic(typ string, conceptID int64) criteria.SearchParameter {
	p := criteria.SearchParameter{Domain: criteria.DomainPerson, Type: typ}
	if conceptID != 0 {
		p.ConceptID = criteria.Int64(conceptID)
	}
	return p
}

// Age builds a PERSON AGE parameter constrained by one age attribute.
func Age(name criteria.AttrName, op criteria.Operator, operands ...string) criteria.SearchParameter {
	p := criteria.SearchParameter{Domain: criteria.DomainPerson, Type: criteria.TypeAge}
	p.Attributes = []criteria.Attribute{Attr(name, op, operands...)}
	return p
}
