package errors

import (
	"fmt"
)

// LoadErrorKind classifies why a source unit could not be loaded.
type LoadErrorKind string

const (
	UnreadableInput LoadErrorKind = "unreadable_input"
	EmptyUnit       LoadErrorKind = "empty_unit"
)

// LoadError reports that a single source unit could not be loaded. It fails
// only the affected unit; the scan continues for the others.
type LoadError struct {
	UnitID string
	Kind   LoadErrorKind
	Reason string
}

// Error implements the error interface for LoadError.
func (e *LoadError) Error() string {
	return fmt.Sprintf("load unit %q: %s: %s", e.UnitID, e.Kind, e.Reason)
}

// NewLoadError creates a new LoadError instance.
func NewLoadError(unitID string, kind LoadErrorKind, reason string) *LoadError {
	return &LoadError{
		UnitID: unitID,
		Kind:   kind,
		Reason: reason,
	}
}

// RuleEvaluationError reports that one rule failed on one statement. The rule
// is isolated; remaining rules and statements keep evaluating.
type RuleEvaluationError struct {
	RuleID string
	UnitID string
	Line   int
	Reason string
}

// Error implements the error interface for RuleEvaluationError.
func (e *RuleEvaluationError) Error() string {
	return fmt.Sprintf("rule %q failed on unit %q line %d: %s", e.RuleID, e.UnitID, e.Line, e.Reason)
}

// NewRuleEvaluationError creates a new RuleEvaluationError instance.
func NewRuleEvaluationError(ruleID, unitID string, line int, reason string) *RuleEvaluationError {
	return &RuleEvaluationError{
		RuleID: ruleID,
		UnitID: unitID,
		Line:   line,
		Reason: reason,
	}
}

// CatalogLoadError reports malformed rule definitions. It is fatal at startup:
// a scan never begins with a broken catalog.
type CatalogLoadError struct {
	Source string
	Err    error
}

// Error implements the error interface for CatalogLoadError.
func (e *CatalogLoadError) Error() string {
	return fmt.Sprintf("load rule catalog from %q: %v", e.Source, e.Err)
}

// Unwrap returns the underlying cause.
func (e *CatalogLoadError) Unwrap() error {
	return e.Err
}

// NewCatalogLoadError creates a new CatalogLoadError instance.
func NewCatalogLoadError(source string, err error) *CatalogLoadError {
	return &CatalogLoadError{
		Source: source,
		Err:    err,
	}
}
