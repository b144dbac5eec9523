package criteria

// SearchRequest is the root of a criteria tree.
type SearchRequest struct {
	IncludeGroups []SearchGroup `json:"includes" yaml:"includes"`
	ExcludeGroups []SearchGroup `json:"excludes,omitempty" yaml:"excludes,omitempty"`
	DataFilters   []DataFilter  `json:"dataFilters,omitempty" yaml:"dataFilters,omitempty"`
}

// SearchGroup is a set of items matched as a disjunction, or, when Temporal
// is set, two partitions of items related by Mention and Time.
type SearchGroup struct {
	ID        string            `json:"id,omitempty" yaml:"id,omitempty"`
	Items     []SearchGroupItem `json:"items" yaml:"items"`
	Temporal  bool              `json:"temporal,omitempty" yaml:"temporal,omitempty"`
	Mention   Mention           `json:"mention,omitempty" yaml:"mention,omitempty"`
	Time      TemporalTime      `json:"time,omitempty" yaml:"time,omitempty"`
	TimeValue *int64            `json:"timeValue,omitempty" yaml:"timeValue,omitempty"`
}

// SearchGroupItem is one criterion family within a group.
type SearchGroupItem struct {
	ID               string            `json:"id,omitempty" yaml:"id,omitempty"`
	Type             Domain            `json:"type" yaml:"type"`
	SearchParameters []SearchParameter `json:"searchParameters" yaml:"searchParameters"`
	Modifiers        []Modifier        `json:"modifiers,omitempty" yaml:"modifiers,omitempty"`
	TemporalGroup    *int              `json:"temporalGroup,omitempty" yaml:"temporalGroup,omitempty"`
}

// SearchParameter selects one concept (or a hierarchy node) and optionally
// constrains its values through attributes.
type SearchParameter struct {
	ParameterID  string      `json:"parameterId,omitempty" yaml:"parameterId,omitempty"`
	Name         string      `json:"name,omitempty" yaml:"name,omitempty"`
	Domain       Domain      `json:"domain" yaml:"domain"`
	Type         string      `json:"type" yaml:"type"`
	Subtype      string      `json:"subtype,omitempty" yaml:"subtype,omitempty"`
	ConceptID    *int64      `json:"conceptId,omitempty" yaml:"conceptId,omitempty"`
	Group        bool        `json:"group,omitempty" yaml:"group,omitempty"`
	Standard     bool        `json:"standard,omitempty" yaml:"standard,omitempty"`
	AncestorData bool        `json:"ancestorData,omitempty" yaml:"ancestorData,omitempty"`
	Attributes   []Attribute `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// HasAttributes reports whether the parameter carries value constraints.
func (p SearchParameter) HasAttributes() bool {
	return len(p.Attributes) > 0
}

// Attribute constrains the values of the events a parameter matches.
// ConceptID is set only for composite measurements (blood pressure), where
// it names the component the attribute applies to.
type Attribute struct {
	Name      AttrName `json:"name" yaml:"name"`
	Operator  Operator `json:"operator,omitempty" yaml:"operator,omitempty"`
	Operands  []string `json:"operands,omitempty" yaml:"operands,omitempty"`
	ConceptID *int64   `json:"conceptId,omitempty" yaml:"conceptId,omitempty"`
}

// Modifier narrows an item's matched events.
type Modifier struct {
	Name     ModifierName `json:"name" yaml:"name"`
	Operator Operator     `json:"operator" yaml:"operator"`
	Operands []string     `json:"operands" yaml:"operands"`
}

// Int64 returns a pointer to v. Handy for building requests in code.
func Int64(v int64) *int64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
