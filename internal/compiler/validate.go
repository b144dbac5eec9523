package compiler

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/roach88/cohort/internal/criteria"
)

// operandKind is the type every operand of a name must parse as.
type operandKind int

const (
	operandAny operandKind = iota
	operandNumber
	operandDate
	operandInteger
)

var attributeOperands = map[criteria.AttrName]operandKind{
	criteria.AttrNum:                    operandNumber,
	criteria.AttrAge:                    operandNumber,
	criteria.AttrAgeAtConsent:           operandNumber,
	criteria.AttrAgeAtCDR:               operandNumber,
	criteria.AttrCat:                    operandInteger,
	criteria.AttrSurveyVersionConceptID: operandInteger,
	criteria.AttrAny:                    operandAny,
}

// eventAttributes are the attribute names an event parameter may carry.
var eventAttributes = map[criteria.AttrName]bool{
	criteria.AttrNum:                    true,
	criteria.AttrCat:                    true,
	criteria.AttrAny:                    true,
	criteria.AttrSurveyVersionConceptID: true,
}

var modifierOperands = map[criteria.ModifierName]operandKind{
	criteria.ModAgeAtEvent:       operandNumber,
	criteria.ModNumOfOccurrences: operandNumber,
	criteria.ModEventDate:        operandDate,
	criteria.ModEncounters:       operandInteger,
}

// ValidateAttribute checks one attribute. Rules run in order and the first
// failure is returned.
func ValidateAttribute(field string, a criteria.Attribute) error {
	kind, ok := attributeOperands[a.Name]
	if !ok {
		return invalid(KindAttributeValidation, ErrUnknownName, field, "unknown attribute name %q", a.Name)
	}
	if a.Name == criteria.AttrAny && a.Operator == "" {
		return nil
	}
	if err := checkOperands(KindAttributeValidation, field, string(a.Name), a.Operator, a.Operands, kind); err != nil {
		return err
	}
	return nil
}

// ValidateModifier checks one modifier with the same rules as attributes,
// plus calendar-date operands for EVENT_DATE.
func ValidateModifier(field string, m criteria.Modifier) error {
	kind, ok := modifierOperands[m.Name]
	if !ok {
		return invalid(KindModifierValidation, ErrUnknownName, field, "unknown modifier name %q", m.Name)
	}
	if err := checkOperands(KindModifierValidation, field, string(m.Name), m.Operator, m.Operands, kind); err != nil {
		return err
	}
	return nil
}

func checkOperands(kind ErrorKind, field, name string, op criteria.Operator, operands []string, want operandKind) *ValidationError {
	fail := func(code, format string, args ...any) *ValidationError {
		ve := invalid(kind, code, field, format, args...)
		ve.Operator = string(op)
		return ve
	}

	if op == "" {
		return fail(ErrOperatorRequired, "%s requires an operator", name)
	}
	if !op.Known() {
		return fail(ErrUnknownOperator, "%s has unknown operator", name)
	}
	if len(operands) == 0 {
		return fail(ErrOperandsEmpty, "%s requires at least one operand", name)
	}
	if op != criteria.OpBetween && !op.IsList() && len(operands) != 1 {
		return fail(ErrOperandCount, "%s takes exactly one operand, got %d", name, len(operands))
	}
	if op == criteria.OpBetween && len(operands) != 2 {
		return fail(ErrBetweenOperands, "%s BETWEEN takes exactly two operands, got %d", name, len(operands))
	}

	for i, s := range operands {
		switch want {
		case operandNumber:
			if _, err := parseNumber(s); err != nil {
				return fail(ErrOperandNotNumber, "%s operand %d (%q) is not a number", name, i, s)
			}
		case operandDate:
			if _, err := parseDate(s); err != nil {
				return fail(ErrOperandNotDate, "%s operand %d (%q) is not a YYYY-MM-DD date", name, i, s)
			}
		case operandInteger:
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				return fail(ErrOperandNotInteger, "%s operand %d (%q) is not an integer id", name, i, s)
			}
		}
	}
	return nil
}

func parseNumber(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not finite", s)
	}
	return f, nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}

// ValidateRequest walks the whole request (includes, then excludes, group by
// group, item by item) and returns the first violation found, or nil.
func ValidateRequest(req *criteria.SearchRequest) error {
	if req == nil {
		return invalid(KindRequestStructure, ErrNoIncludeGroups, "request", "request is nil")
	}
	if len(req.IncludeGroups) == 0 {
		return invalid(KindRequestStructure, ErrNoIncludeGroups, "includes", "at least one include group is required")
	}
	for i, f := range req.DataFilters {
		if _, ok := dataFilterColumns[f]; !ok {
			return invalid(KindRequestStructure, ErrUnknownDataFilter, fmt.Sprintf("dataFilters[%d]", i), "unknown data filter %q", f)
		}
	}
	for i := range req.IncludeGroups {
		if err := validateGroup(fmt.Sprintf("includes[%d]", i), &req.IncludeGroups[i]); err != nil {
			return err
		}
	}
	for i := range req.ExcludeGroups {
		if err := validateGroup(fmt.Sprintf("excludes[%d]", i), &req.ExcludeGroups[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateGroup(field string, g *criteria.SearchGroup) error {
	if len(g.Items) == 0 {
		return invalid(KindRequestStructure, ErrEmptyGroup, field+".items", "group has no items")
	}

	if g.Temporal {
		if err := validateTemporalHeader(field, g); err != nil {
			return err
		}
	}

	for i := range g.Items {
		if err := validateItem(fmt.Sprintf("%s.items[%d]", field, i), &g.Items[i], g.Temporal); err != nil {
			return err
		}
	}

	if g.Temporal {
		var used [2]bool
		for _, item := range g.Items {
			used[*item.TemporalGroup] = true
		}
		if !used[0] || !used[1] {
			return invalid(KindTemporalStructure, ErrTemporalPartitions, field+".items",
				"temporal group must use both temporalGroup 0 and 1")
		}
	}
	return nil
}

func validateTemporalHeader(field string, g *criteria.SearchGroup) error {
	switch g.Mention {
	case criteria.AnyMention, criteria.FirstMention, criteria.LastMention:
	case "":
		return invalid(KindTemporalStructure, ErrTemporalMention, field+".mention", "temporal group requires a mention")
	default:
		return invalid(KindTemporalStructure, ErrTemporalMention, field+".mention", "unknown mention %q", g.Mention)
	}

	switch g.Time {
	case criteria.SameEncounter, criteria.DuringSameEncounterAs, criteria.XDaysBefore, criteria.XDaysAfter, criteria.WithinXDaysOf:
	case "":
		return invalid(KindTemporalStructure, ErrTemporalTime, field+".time", "temporal group requires a time")
	default:
		return invalid(KindTemporalStructure, ErrTemporalTime, field+".time", "unknown time %q", g.Time)
	}

	if g.Time.NeedsValue() {
		if g.TimeValue == nil {
			return invalid(KindTemporalStructure, ErrTemporalValue, field+".timeValue", "%s requires a time value", g.Time)
		}
		if *g.TimeValue < 0 {
			return invalid(KindTemporalStructure, ErrTemporalValue, field+".timeValue", "time value must not be negative, got %d", *g.TimeValue)
		}
	}
	return nil
}

func validateItem(field string, item *criteria.SearchGroupItem, temporal bool) error {
	kind := item.Type.Kind()
	if kind == criteria.KindUnknown {
		return invalid(KindRequestStructure, ErrUnknownDomain, field+".type", "unknown domain %q", item.Type)
	}
	if len(item.SearchParameters) == 0 {
		return invalid(KindRequestStructure, ErrEmptyItem, field+".searchParameters", "item has no search parameters")
	}

	if temporal {
		if item.TemporalGroup == nil {
			return invalid(KindTemporalStructure, ErrTemporalGroupMissing, field+".temporalGroup", "items of a temporal group require a temporalGroup")
		}
		if tg := *item.TemporalGroup; tg != 0 && tg != 1 {
			return invalid(KindTemporalStructure, ErrTemporalGroupRange, field+".temporalGroup", "temporalGroup must be 0 or 1, got %d", tg)
		}
		if kind != criteria.KindEvent {
			return invalid(KindTemporalStructure, ErrTemporalItemDomain, field+".type", "%s items cannot take part in a temporal group", item.Type)
		}
	}

	for i := range item.SearchParameters {
		if err := validateParameter(fmt.Sprintf("%s.searchParameters[%d]", field, i), item, &item.SearchParameters[i]); err != nil {
			return err
		}
	}

	if kind == criteria.KindDemographic {
		first := item.SearchParameters[0].Type
		for i, p := range item.SearchParameters[1:] {
			if p.Type != first {
				return invalid(KindUnsupportedDemographicType, ErrDemographicMixed, fmt.Sprintf("%s.searchParameters[%d].type", field, i+1),
					"demographic item mixes %s and %s parameters", first, p.Type)
			}
		}
	}

	if len(item.Modifiers) > 0 && kind != criteria.KindEvent {
		return invalid(KindModifierValidation, ErrModifierNotAllowed, field+".modifiers", "%s items do not accept modifiers", item.Type)
	}
	seen := make(map[criteria.ModifierName]bool, len(item.Modifiers))
	for i, m := range item.Modifiers {
		mf := fmt.Sprintf("%s.modifiers[%d]", field, i)
		if seen[m.Name] {
			return invalid(KindModifierValidation, ErrDuplicateModifier, mf, "modifier %s appears more than once", m.Name)
		}
		seen[m.Name] = true
		if err := ValidateModifier(mf, m); err != nil {
			return err
		}
	}
	return nil
}

func validateParameter(field string, item *criteria.SearchGroupItem, p *criteria.SearchParameter) error {
	domain := parameterDomain(item, p)
	if domain.Kind() == criteria.KindUnknown {
		return invalid(KindRequestStructure, ErrUnknownDomain, field+".domain", "unknown domain %q", domain)
	}

	switch item.Type.Kind() {
	case criteria.KindDemographic:
		if err := validateDemographic(field, p); err != nil {
			return err
		}
	case criteria.KindEvent:
		if p.ConceptID == nil && !hasComponentConcepts(p) {
			return invalid(KindAttributeValidation, ErrMissingConcept, field+".conceptId", "%s parameter requires a concept id", domain)
		}
	}

	var components int
	for i, a := range p.Attributes {
		af := fmt.Sprintf("%s.attributes[%d]", field, i)
		if err := ValidateAttribute(af, a); err != nil {
			return err
		}
		if a.ConceptID != nil {
			if err := validateComponent(af, a, components); err != nil {
				return err
			}
			components++
		}
		if item.Type.Kind() == criteria.KindEvent && !eventAttributes[a.Name] && a.ConceptID == nil {
			return invalid(KindAttributeValidation, ErrAttributeNotApplicable, af,
				"attribute %s does not apply to %s parameters", a.Name, domain)
		}
	}
	return nil
}

// validateComponent checks a composite-measurement attribute. Components
// fill the systolic and diastolic slots by position, so only NUM (a bound on
// the slot) and ANY (slot left open) fit, and there are two slots.
func validateComponent(field string, a criteria.Attribute, seen int) error {
	if a.Name != criteria.AttrNum && a.Name != criteria.AttrAny {
		return invalid(KindAttributeValidation, ErrAttributeNotApplicable, field,
			"component attribute must be NUM or ANY, got %s", a.Name)
	}
	if seen >= len(componentColumns) {
		return invalid(KindAttributeValidation, ErrAttributeNotApplicable, field,
			"at most %d component attributes are allowed", len(componentColumns))
	}
	return nil
}

func validateDemographic(field string, p *criteria.SearchParameter) error {
	switch p.Type {
	case criteria.TypeAge:
		if _, ok := ageAttribute(p); !ok {
			return invalid(KindUnsupportedDemographicType, ErrDemographicIncomplete, field+".attributes",
				"AGE parameter requires an AGE, AGE_AT_CONSENT or AGE_AT_CDR attribute")
		}
	case criteria.TypeGender, criteria.TypeSex, criteria.TypeEthnicity, criteria.TypeRace:
		if p.ConceptID == nil {
			return invalid(KindUnsupportedDemographicType, ErrDemographicIncomplete, field+".conceptId",
				"%s parameter requires a concept id", p.Type)
		}
	case criteria.TypeDeceased:
	default:
		return invalid(KindUnsupportedDemographicType, ErrUnsupportedDemographic, field+".type",
			"unsupported demographic type %q", p.Type)
	}
	return nil
}

// parameterDomain is the parameter's own domain, falling back to the item's.
func parameterDomain(item *criteria.SearchGroupItem, p *criteria.SearchParameter) criteria.Domain {
	if p.Domain != "" {
		return p.Domain
	}
	return item.Type
}

func hasComponentConcepts(p *criteria.SearchParameter) bool {
	for _, a := range p.Attributes {
		if a.ConceptID != nil {
			return true
		}
	}
	return false
}
