package rules

import (
	"fmt"
	"strings"

	"github.com/codesift-sec/codesift/internal/parse"
	"github.com/codesift-sec/codesift/internal/source"
	"github.com/codesift-sec/codesift/internal/taint"
)

// Category is the closed set of vulnerability classes the catalog detects.
type Category string

const (
	CategoryHardcodedSecret  Category = "hardcoded-secret"
	CategorySQLInjection     Category = "sql-injection"
	CategorySensitiveLogging Category = "sensitive-logging"
	CategoryWeakCrypto       Category = "weak-crypto"
	CategoryUnsafeMutation   Category = "unsafe-mutation"
	CategoryAuthBypass       Category = "auth-bypass"
)

// ParseCategory validates a category string from a rule definition.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryHardcodedSecret, CategorySQLInjection, CategorySensitiveLogging,
		CategoryWeakCrypto, CategoryUnsafeMutation, CategoryAuthBypass:
		return Category(s), nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Severity is a rule's default severity.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// ParseSeverity validates a severity string from a rule definition.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return Severity(s), nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// Rank orders severities for sorting, highest first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Confidence tiers by match specificity.
const (
	ConfidenceLiteral   = 0.9  // exact literal pattern match
	ConfidenceTaint     = 0.75 // taint-based inference
	ConfidenceHeuristic = 0.6  // name heuristic alone
)

// EvalContext carries everything a matcher may inspect for one statement.
// The taint table is fully populated before flow-sensitive rules run.
type EvalContext struct {
	Unit      *source.Unit
	Statement parse.Statement
	Taint     *taint.Table
}

// MatcherFunc is a pure predicate over statement shape plus an optional
// taint precondition. Matchers never see other rules' state.
type MatcherFunc func(ctx EvalContext) []Hit

// Rule is a single immutable detector definition.
type Rule struct {
	ID          string
	Category    Category
	Severity    Severity
	Description string
	FixTemplate string
	Match       MatcherFunc
}

// Hit is one raw match before aggregation.
type Hit struct {
	RuleID     string
	Category   Category
	Severity   Severity
	Confidence float64
	UnitID     string
	Span       source.Span
	Message    string
	Suggestion string
}

// RenderFix substitutes {name} placeholders in a fix template.
func RenderFix(template string, vars map[string]string) string {
	rendered := template
	for name, value := range vars {
		rendered = strings.ReplaceAll(rendered, "{"+name+"}", value)
	}
	return rendered
}

// hit builds a Hit for this rule at the statement's span, rendering the fix
// template with vars.
func (r Rule) hit(ctx EvalContext, confidence float64, message string, vars map[string]string) Hit {
	return Hit{
		RuleID:     r.ID,
		Category:   r.Category,
		Severity:   r.Severity,
		Confidence: confidence,
		UnitID:     ctx.Unit.ID(),
		Span:       ctx.Statement.Span,
		Message:    message,
		Suggestion: RenderFix(r.FixTemplate, vars),
	}
}
