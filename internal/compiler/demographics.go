package compiler

import (
	"fmt"

	"github.com/roach88/cohort/internal/criteria"
	"github.com/roach88/cohort/internal/queryir"
)

// Concept columns of the person table, by demographic type.
var demographicColumns = map[string]string{
	criteria.TypeGender:    "gender_concept_id",
	criteria.TypeSex:       "sex_at_birth_concept_id",
	criteria.TypeEthnicity: "ethnicity_concept_id",
	criteria.TypeRace:      "race_concept_id",
}

// Has-data columns of the search person table, by person-flag domain.
var personFlagColumns = map[criteria.Domain]string{
	criteria.DomainFitbit:             "has_fitbit",
	criteria.DomainWholeGenomeVariant: "has_whole_genome_variant",
	criteria.DomainArrayData:          "has_array_data",
}

// demographicQuery builds a PERSON item. The first parameter's type decides
// the query; validation guarantees the others share it.
func (b *builder) demographicQuery(item *criteria.SearchGroupItem) queryir.Query {
	first := &item.SearchParameters[0]
	switch first.Type {
	case criteria.TypeAge:
		attr, _ := ageAttribute(first)
		return &queryir.Select{
			Columns: columns("sp", []string{"person_id"}),
			From:    &queryir.Table{Name: b.t.SearchPerson, Alias: "sp"},
			Where:   compare(ageExpr(attr.Name), attr.Operator, numberValues(attr.Operands)),
		}

	case criteria.TypeGender, criteria.TypeSex, criteria.TypeEthnicity, criteria.TypeRace:
		var ids []int64
		seen := map[int64]bool{}
		for _, p := range item.SearchParameters {
			if id := *p.ConceptID; !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		return &queryir.Select{
			Columns: columns("pe", []string{"person_id"}),
			From:    &queryir.Table{Name: b.t.Person, Alias: "pe"},
			Where:   &queryir.In{Expr: queryir.Col("pe", demographicColumns[first.Type]), Values: intValues(ids)},
		}

	case criteria.TypeDeceased:
		return &queryir.Select{
			Columns: columns("pe", []string{"person_id"}),
			From:    &queryir.Table{Name: b.t.Person, Alias: "pe"},
			Where: &queryir.Exists{Query: &queryir.Select{
				Columns: []queryir.Column{{Expr: queryir.Lit(1)}},
				From:    &queryir.Table{Name: b.t.Death, Alias: "d"},
				Where:   queryir.Eq(queryir.Col("d", "person_id"), queryir.Col("pe", "person_id")),
			}},
		}

	default:
		panic(fmt.Sprintf("compiler: unvalidated demographic type %q", first.Type))
	}
}

// personFlagQuery selects the people who have data of a person-flag domain.
func (b *builder) personFlagQuery(domain criteria.Domain) queryir.Query {
	return &queryir.Select{
		Columns: columns("sp", []string{"person_id"}),
		From:    &queryir.Table{Name: b.t.SearchPerson, Alias: "sp"},
		Where:   queryir.Eq(queryir.Col("sp", personFlagColumns[domain]), queryir.Lit(1)),
	}
}

// ageAttribute returns the first age-typed attribute of p.
func ageAttribute(p *criteria.SearchParameter) (criteria.Attribute, bool) {
	for _, a := range p.Attributes {
		switch a.Name {
		case criteria.AttrAge, criteria.AttrAgeAtConsent, criteria.AttrAgeAtCDR:
			return a, true
		}
	}
	return criteria.Attribute{}, false
}

// ageExpr is the search-person expression an age attribute compares.
func ageExpr(name criteria.AttrName) queryir.Expr {
	switch name {
	case criteria.AttrAgeAtConsent:
		return queryir.Col("sp", "age_at_consent")
	case criteria.AttrAgeAtCDR:
		return queryir.Col("sp", "age_at_cdr")
	default:
		return &queryir.AgeYears{Birth: queryir.Col("sp", "dob")}
	}
}
