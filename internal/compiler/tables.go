package compiler

import (
	"fmt"
	"regexp"
)

// Tables names the warehouse tables generated SQL refers to.
type Tables struct {
	Events           string `mapstructure:"events" json:"events"`
	SearchPerson     string `mapstructure:"search_person" json:"search_person"`
	Person           string `mapstructure:"person" json:"person"`
	Death            string `mapstructure:"death" json:"death"`
	Criteria         string `mapstructure:"criteria" json:"criteria"`
	CriteriaAncestor string `mapstructure:"criteria_ancestor" json:"criteria_ancestor"`
}

// DefaultTables returns the standard warehouse layout.
func DefaultTables() Tables {
	return Tables{
		Events:           "cb_search_all_events",
		SearchPerson:     "cb_search_person",
		Person:           "person",
		Death:            "death",
		Criteria:         "cb_criteria",
		CriteriaAncestor: "cb_criteria_ancestor",
	}
}

// Table names are spliced into SQL text, so they are restricted to
// (optionally schema-qualified) identifiers.
var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Validate checks every table name.
func (t Tables) Validate() error {
	for _, f := range []struct{ field, name string }{
		{"events", t.Events},
		{"search_person", t.SearchPerson},
		{"person", t.Person},
		{"death", t.Death},
		{"criteria", t.Criteria},
		{"criteria_ancestor", t.CriteriaAncestor},
	} {
		if !tableNamePattern.MatchString(f.name) {
			return fmt.Errorf("invalid %s table name %q", f.field, f.name)
		}
	}
	return nil
}

// withDefaults fills empty names from DefaultTables.
func (t Tables) withDefaults() Tables {
	d := DefaultTables()
	if t.Events == "" {
		t.Events = d.Events
	}
	if t.SearchPerson == "" {
		t.SearchPerson = d.SearchPerson
	}
	if t.Person == "" {
		t.Person = d.Person
	}
	if t.Death == "" {
		t.Death = d.Death
	}
	if t.Criteria == "" {
		t.Criteria = d.Criteria
	}
	if t.CriteriaAncestor == "" {
		t.CriteriaAncestor = d.CriteriaAncestor
	}
	return t
}
