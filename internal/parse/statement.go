package parse

import (
	"github.com/codesift-sec/codesift/internal/source"
)

// StatementKind classifies the shallow syntactic form of a logical statement.
type StatementKind string

const (
	KindAssign      StatementKind = "assign"
	KindLiteralDecl StatementKind = "literal_decl"
	KindCall        StatementKind = "call"
	KindConditional StatementKind = "conditional"
	KindReturn      StatementKind = "return"
	KindFuncDecl    StatementKind = "func_decl"
	KindOpaque      StatementKind = "opaque"
)

// Statement is one logical statement in shallow syntactic form, sufficient
// for pattern matching without a full compiler AST.
type Statement struct {
	Kind StatementKind
	Span source.Span
	Raw  string

	// Target is the bound name for assignments and literal declarations,
	// or the declared name for function declarations.
	Target string

	// Value is the right-hand side of an assignment, the call expression of
	// a call statement, the condition of a conditional, or the returned
	// expression. Nil for opaque statements and bare returns.
	Value *Expr

	// Params holds parameter names for function declarations.
	Params []string
}

// Degradation records a statement that fell back to opaque form. It is a
// warning, not an error: the rest of the unit still parses.
type Degradation struct {
	Span   source.Span `json:"span"`
	Raw    string      `json:"raw"`
	Reason string      `json:"reason"`
}

// IsBinding reports whether the statement binds a name.
func (s Statement) IsBinding() bool {
	return s.Kind == KindAssign || s.Kind == KindLiteralDecl
}

// CallExpr returns the call expression attached to the statement: the value
// of a call statement, or an assignment whose right-hand side is a call.
func (s Statement) CallExpr() *Expr {
	if s.Value != nil && s.Value.Kind == ExprCall {
		return s.Value
	}
	return nil
}
