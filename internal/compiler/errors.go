package compiler

import (
	"errors"
	"fmt"
)

// ErrorKind groups validation errors by the part of the request at fault.
type ErrorKind string

const (
	KindAttributeValidation        ErrorKind = "AttributeValidation"
	KindModifierValidation         ErrorKind = "ModifierValidation"
	KindTemporalStructure          ErrorKind = "TemporalStructure"
	KindUnsupportedDemographicType ErrorKind = "UnsupportedDemographicType"
	KindRequestStructure           ErrorKind = "RequestStructure"
)

// Validation error codes (E200-E299)
const (
	// Operator / operand rules shared by attributes and modifiers (E201-E209)
	ErrOperatorRequired  = "E201" // operator is null and name is not ANY
	ErrOperandsEmpty     = "E202" // no operands
	ErrOperandCount      = "E203" // single-valued operator without exactly one operand
	ErrBetweenOperands   = "E204" // BETWEEN without exactly two operands
	ErrOperandNotNumber  = "E205" // numeric name with a non-numeric operand
	ErrOperandNotDate    = "E206" // EVENT_DATE operand is not YYYY-MM-DD
	ErrOperandNotInteger = "E207" // concept-id name with a non-integer operand
	ErrUnknownOperator   = "E208" // operator not recognized
	ErrUnknownName       = "E209" // attribute or modifier name not recognized

	// Item-level rules (E210-E219)
	ErrDuplicateModifier      = "E210" // same modifier twice in one item
	ErrModifierNotAllowed     = "E211" // modifiers on a non-event item
	ErrAttributeNotApplicable = "E212" // attribute name not valid for the parameter's domain

	// Request structure (E220-E229)
	ErrNoIncludeGroups   = "E220" // request has no include groups
	ErrEmptyGroup        = "E221" // group has no items
	ErrUnknownDataFilter = "E222" // data filter name not recognized
	ErrEmptyItem         = "E223" // item has no search parameters
	ErrUnknownDomain     = "E224" // item or parameter domain not recognized
	ErrMissingConcept    = "E225" // event parameter without a concept id
	ErrUnknownShape      = "E226" // output shape not recognized
	ErrInvalidLimit      = "E227" // negative row limit

	// Temporal groups (E230-E239)
	ErrTemporalMention      = "E230" // mention missing or unknown
	ErrTemporalTime         = "E231" // time missing or unknown
	ErrTemporalValue        = "E232" // time value missing or negative
	ErrTemporalGroupMissing = "E233" // item without temporalGroup
	ErrTemporalGroupRange   = "E234" // temporalGroup not 0 or 1
	ErrTemporalPartitions   = "E235" // fewer than two partitions used
	ErrTemporalItemDomain   = "E236" // non-event item in a temporal group

	// Demographics (E240-E249)
	ErrUnsupportedDemographic = "E240" // PERSON parameter type not supported
	ErrDemographicIncomplete  = "E241" // demographic parameter missing its value
	ErrDemographicMixed       = "E242" // demographic item mixes parameter types
)

// ValidationError reports the first rule a request violates. All kinds are
// caller errors: the request must be fixed, never retried.
type ValidationError struct {
	Kind     ErrorKind `json:"kind"`
	Code     string    `json:"code"`
	Field    string    `json:"field"`
	Operator string    `json:"operator,omitempty"`
	Message  string    `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Operator != "" {
		return fmt.Sprintf("[%s] %s (%s): %s", e.Code, e.Field, e.Operator, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// IsBadRequest reports whether err, or any error it wraps, is a
// *ValidationError.
func IsBadRequest(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// AsValidationError extracts the *ValidationError from err's chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

func invalid(kind ErrorKind, code, field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Kind:    kind,
		Code:    code,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}
