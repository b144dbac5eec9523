package criteria

// Domain identifies the kind of data a group item or parameter searches.
type Domain string

const (
	DomainCondition              Domain = "CONDITION"
	DomainDrug                   Domain = "DRUG"
	DomainProcedure              Domain = "PROCEDURE"
	DomainMeasurement            Domain = "MEASUREMENT"
	DomainObservation            Domain = "OBSERVATION"
	DomainDevice                 Domain = "DEVICE"
	DomainVisit                  Domain = "VISIT"
	DomainSurvey                 Domain = "SURVEY"
	DomainPhysicalMeasurement    Domain = "PHYSICAL_MEASUREMENT"
	DomainPhysicalMeasurementCSS Domain = "PHYSICAL_MEASUREMENT_CSS"
	DomainPerson                 Domain = "PERSON"
	DomainFitbit                 Domain = "FITBIT"
	DomainWholeGenomeVariant     Domain = "WHOLE_GENOME_VARIANT"
	DomainArrayData              Domain = "ARRAY_DATA"
)

// DomainKind classifies how a domain is searched.
type DomainKind int

const (
	// KindUnknown marks a domain the compiler does not support.
	KindUnknown DomainKind = iota
	// KindEvent domains match rows of the all-events table.
	KindEvent
	// KindDemographic domains match rows of the person tables.
	KindDemographic
	// KindPersonFlag domains match a has-data flag on the person table.
	KindPersonFlag
)

var domainKinds = map[Domain]DomainKind{
	DomainCondition:              KindEvent,
	DomainDrug:                   KindEvent,
	DomainProcedure:              KindEvent,
	DomainMeasurement:            KindEvent,
	DomainObservation:            KindEvent,
	DomainDevice:                 KindEvent,
	DomainVisit:                  KindEvent,
	DomainSurvey:                 KindEvent,
	DomainPhysicalMeasurement:    KindEvent,
	DomainPhysicalMeasurementCSS: KindEvent,
	DomainPerson:                 KindDemographic,
	DomainFitbit:                 KindPersonFlag,
	DomainWholeGenomeVariant:     KindPersonFlag,
	DomainArrayData:              KindPersonFlag,
}

// Kind returns the search kind of d, or KindUnknown.
func (d Domain) Kind() DomainKind {
	return domainKinds[d]
}

// Domains returns every supported domain.
func Domains() []Domain {
	out := make([]Domain, 0, len(domainKinds))
	for d := range domainKinds {
		out = append(out, d)
	}
	return out
}

// Demographic parameter types (SearchParameter.Type in the PERSON domain).
const (
	TypeAge       = "AGE"
	TypeGender    = "GENDER"
	TypeSex       = "SEX"
	TypeEthnicity = "ETHNICITY"
	TypeRace      = "RACE"
	TypeDeceased  = "DECEASED"
)

// Common vocabulary types used by tests and fixtures.
const (
	TypeICD9CM  = "ICD9CM"
	TypeICD10CM = "ICD10CM"
	TypeSNOMED  = "SNOMED"
	TypeATC     = "ATC"
	TypeRxNorm  = "RXNORM"
	TypeLOINC   = "LOINC"
	TypePPI     = "PPI"
	TypeVisit   = "VISIT"
)

// AttrName names an attribute.
type AttrName string

const (
	AttrNum                    AttrName = "NUM"
	AttrCat                    AttrName = "CAT"
	AttrAge                    AttrName = "AGE"
	AttrAgeAtConsent           AttrName = "AGE_AT_CONSENT"
	AttrAgeAtCDR               AttrName = "AGE_AT_CDR"
	AttrAny                    AttrName = "ANY"
	AttrSurveyVersionConceptID AttrName = "SURVEY_VERSION_CONCEPT_ID"
)

// ModifierName names a modifier.
type ModifierName string

const (
	ModAgeAtEvent       ModifierName = "AGE_AT_EVENT"
	ModEventDate        ModifierName = "EVENT_DATE"
	ModEncounters       ModifierName = "ENCOUNTERS"
	ModNumOfOccurrences ModifierName = "NUM_OF_OCCURRENCES"
)

// Operator is a comparison applied to attribute or modifier operands.
type Operator string

const (
	OpEqual                Operator = "EQUAL"
	OpNotEqual             Operator = "NOT_EQUAL"
	OpLessThan             Operator = "LESS_THAN"
	OpGreaterThan          Operator = "GREATER_THAN"
	OpLessThanOrEqualTo    Operator = "LESS_THAN_OR_EQUAL_TO"
	OpGreaterThanOrEqualTo Operator = "GREATER_THAN_OR_EQUAL_TO"
	OpIn                   Operator = "IN"
	OpNotIn                Operator = "NOT_IN"
	OpBetween              Operator = "BETWEEN"
)

// Known reports whether o is a supported operator.
func (o Operator) Known() bool {
	switch o {
	case OpEqual, OpNotEqual, OpLessThan, OpGreaterThan,
		OpLessThanOrEqualTo, OpGreaterThanOrEqualTo,
		OpIn, OpNotIn, OpBetween:
		return true
	}
	return false
}

// IsList reports whether o takes an arbitrary number of operands.
func (o Operator) IsList() bool {
	return o == OpIn || o == OpNotIn
}

// Mention selects which occurrences take part in a temporal relationship.
type Mention string

const (
	AnyMention   Mention = "ANY_MENTION"
	FirstMention Mention = "FIRST_MENTION"
	LastMention  Mention = "LAST_MENTION"
)

// TemporalTime is the relationship between the two temporal partitions.
type TemporalTime string

// SameEncounter and DuringSameEncounterAs are two spellings of one
// relationship.
const (
	SameEncounter         TemporalTime = "SAME_ENCOUNTER"
	DuringSameEncounterAs TemporalTime = "DURING_SAME_ENCOUNTER_AS"
	XDaysBefore           TemporalTime = "X_DAYS_BEFORE"
	XDaysAfter            TemporalTime = "X_DAYS_AFTER"
	WithinXDaysOf         TemporalTime = "WITHIN_X_DAYS_OF"
)

// IsSameEncounter reports whether t relates rows of the same visit.
func (t TemporalTime) IsSameEncounter() bool {
	return t == SameEncounter || t == DuringSameEncounterAs
}

// NeedsValue reports whether t requires a day count.
func (t TemporalTime) NeedsValue() bool {
	return !t.IsSameEncounter()
}

// DataFilter names a has-data restriction applied to the whole cohort.
type DataFilter string

const (
	HasEHRData                 DataFilter = "HAS_EHR_DATA"
	HasPhysicalMeasurementData DataFilter = "HAS_PHYSICAL_MEASUREMENT_DATA"
	HasFitbitData              DataFilter = "HAS_FITBIT_DATA"
	HasWholeGenomeVariant      DataFilter = "HAS_WHOLE_GENOME_VARIANT"
	HasArrayData               DataFilter = "HAS_ARRAY_DATA"
)
