// Package errmodel defines the fixed error taxonomy and the immutable
// ValidationError record the validator emits (spec.md §3, §7).
package errmodel

import "fmt"

// ErrorKind is the fixed taxonomy of spec.md §7. It is dispatched through
// a static switch in the planner rather than a class hierarchy, per
// spec.md §9.
type ErrorKind string

const (
	// Structural
	MalformedXml           ErrorKind = "MalformedXml"
	MissingRequiredElement ErrorKind = "MissingRequiredElement"
	InvalidElementOrder    ErrorKind = "InvalidElementOrder"
	UnexpectedElement      ErrorKind = "UnexpectedElement"

	// Cardinality
	TooFewOccurrences  ErrorKind = "TooFewOccurrences"
	TooManyOccurrences ErrorKind = "TooManyOccurrences"

	// Data-type
	InvalidDataType   ErrorKind = "InvalidDataType"
	InvalidFormat     ErrorKind = "InvalidFormat"
	InvalidValueRange ErrorKind = "InvalidValueRange"
	PatternMismatch   ErrorKind = "PatternMismatch"

	// Attribute
	MissingRequiredAttribute ErrorKind = "MissingRequiredAttribute"
	InvalidAttributeValue    ErrorKind = "InvalidAttributeValue"
	UnexpectedAttribute      ErrorKind = "UnexpectedAttribute"

	// Constraint
	SchemaViolation     ErrorKind = "SchemaViolation"
	ConstraintViolation ErrorKind = "ConstraintViolation"

	// Content
	EmptyRequiredContent ErrorKind = "EmptyRequiredContent"
	InvalidContentModel  ErrorKind = "InvalidContentModel"
	MixedContentError    ErrorKind = "MixedContentError"

	// Namespace
	NamespaceError  ErrorKind = "NamespaceError"
	UndefinedPrefix ErrorKind = "UndefinedPrefix"

	// Catch-all
	UnknownError ErrorKind = "UnknownError"
)

// Severity distinguishes a hard validation failure from an advisory
// warning (spec.md §3).
type Severity string

const (
	SeverityError   Severity = "Error"
	SeverityWarning Severity = "Warning"
)

// ValidationError is the immutable record emitted by the validator
// (spec.md §3). Errors are values, never control flow (spec.md §9).
type ValidationError struct {
	Kind     ErrorKind
	Severity Severity

	// Line/Column are 1-based; -1 when unknown.
	Line   int
	Column int

	// Path is the canonical element path, "/name[n]/..." (spec.md §3).
	Path string

	ElementName   string
	AttributeName string

	ActualValue   string
	ExpectedValue string

	SchemaRule string
}

func (e *ValidationError) Error() string {
	where := e.Path
	if e.AttributeName != "" {
		where = fmt.Sprintf("%s/@%s", e.Path, e.AttributeName)
	}
	if e.Line >= 0 {
		return fmt.Sprintf("%s at %s (line %d, col %d): %s", e.Kind, where, e.Line, e.Column, e.SchemaRule)
	}
	return fmt.Sprintf("%s at %s: %s", e.Kind, where, e.SchemaRule)
}

// Result is the output of one validator run (spec.md §4.2).
type Result struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
	TimeMS   int64
}

// NewError is a small builder for the common case: a Severity=Error
// record with unknown location, filled in by the caller.
func NewError(kind ErrorKind, path, elementName string) ValidationError {
	return ValidationError{
		Kind:        kind,
		Severity:    SeverityError,
		Line:        -1,
		Column:      -1,
		Path:        path,
		ElementName: elementName,
	}
}
