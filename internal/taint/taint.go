// Package taint implements the intra-procedural dataflow pass: one forward
// sweep over a unit's statements labelling symbols as sensitive, untrusted,
// or clean. There is no interprocedural traversal and no cross-unit state;
// the table is rebuilt for every scan.
package taint

import (
	"strings"

	"github.com/codesift-sec/codesift/internal/parse"
	"github.com/codesift-sec/codesift/internal/source"
)

// Label classifies a value's trust and sensitivity provenance.
type Label string

const (
	Unknown   Label = "unknown"
	Sensitive Label = "sensitive"
	Untrusted Label = "untrusted"
	Clean     Label = "clean"
)

// Table holds the per-unit symbol labels produced by Analyze.
type Table struct {
	unitID string
	labels map[string]Label
	// interpolated marks symbols bound from a string that embeds variables,
	// the shape that makes a sink reachable per the injection rules.
	interpolated map[string]bool
	// stringBound marks symbols last bound from a string construction, so a
	// later bare concatenation over them is recognized as string building.
	stringBound map[string]bool
}

// UnitID returns the unit this table was built for.
func (t *Table) UnitID() string { return t.unitID }

// Label returns the recorded label for a symbol, Unknown when absent.
func (t *Table) Label(name string) Label {
	if t == nil {
		return Unknown
	}
	if label, ok := t.labels[name]; ok {
		return label
	}
	return Unknown
}

// Interpolated reports whether the symbol was bound from a string built by
// concatenation or interpolation.
func (t *Table) Interpolated(name string) bool {
	return t != nil && t.interpolated[name]
}

// set refines a symbol's label. Labels are monotone within the pass: a known
// label is never pushed back to Unknown by a later binding.
func (t *Table) set(name string, label Label) {
	if name == "" {
		return
	}
	if label == Unknown {
		if _, ok := t.labels[name]; ok {
			return
		}
	}
	t.labels[name] = label
}

// Analyze runs the single forward pass over stmts in source order and returns
// the populated symbol table. It must complete before flow-sensitive rules
// evaluate the unit.
func Analyze(unit *source.Unit, stmts []parse.Statement) *Table {
	t := &Table{
		unitID:       unit.ID(),
		labels:       make(map[string]Label),
		interpolated: make(map[string]bool),
		stringBound:  make(map[string]bool),
	}

	for _, stmt := range stmts {
		switch stmt.Kind {
		case parse.KindFuncDecl:
			// parameters are external input until proven otherwise
			for _, param := range stmt.Params {
				t.set(param, Untrusted)
			}
		case parse.KindAssign, parse.KindLiteralDecl:
			label := t.LabelExpr(stmt.Value)
			if isSecretBinding(stmt.Target, stmt.Value) {
				label = Sensitive
			}
			t.set(stmt.Target, label)
			parts, ok := parse.StringParts(stmt.Value)
			if !ok {
				parts, ok = t.concatOverString(stmt.Value)
			}
			if ok {
				if len(parse.VariableParts(parts)) > 0 {
					t.interpolated[stmt.Target] = true
				}
				t.stringBound[stmt.Target] = true
			}
		}
	}
	return t
}

// concatOverString treats a concatenation with no literal string operand,
// e.g. `query + username`, as string construction when one of its operands
// is a symbol already bound from a string.
func (t *Table) concatOverString(e *parse.Expr) ([]parse.StringPart, bool) {
	parts, ok := parse.ConcatOperands(e)
	if !ok {
		return nil, false
	}
	for _, part := range parts {
		if part.Literal {
			continue
		}
		if t.stringBound[part.Text] || t.interpolated[part.Text] {
			return parts, true
		}
	}
	return nil, false
}

// LabelExpr computes the label of an expression from the current table state.
func (t *Table) LabelExpr(e *parse.Expr) Label {
	if e == nil {
		return Unknown
	}
	switch e.Kind {
	case parse.ExprIdent:
		if strings.HasPrefix(e.Name, "process.env.") {
			return Clean
		}
		if label := t.Label(e.Name); label != Unknown {
			return label
		}
		return t.Label(baseName(e.Name))
	case parse.ExprNumber, parse.ExprBool:
		return Clean
	case parse.ExprString:
		labels := make([]Label, 0, len(e.Parts))
		for _, part := range e.Parts {
			if part.Literal {
				labels = append(labels, Clean)
				continue
			}
			labels = append(labels, t.LabelText(part.Text))
		}
		return Combine(labels...)
	case parse.ExprCall:
		switch {
		case IsInputSource(e.Name):
			return Untrusted
		case IsEnvSource(e.Name):
			return Clean
		case IsSanitizer(e.Name):
			return Clean
		}
		labels := []Label{}
		if receiver := baseName(e.Name); receiver != "" {
			labels = append(labels, t.Label(receiver))
		}
		if e.Recv != nil {
			labels = append(labels, t.LabelExpr(e.Recv))
		}
		for _, arg := range e.Args {
			labels = append(labels, t.LabelExpr(arg.Value))
		}
		return Combine(labels...)
	case parse.ExprBinary:
		return Combine(t.LabelExpr(e.Left), t.LabelExpr(e.Right))
	case parse.ExprOpaque:
		if e.Left != nil {
			return t.LabelExpr(e.Left)
		}
		return Unknown
	}
	return Unknown
}

// LabelText labels a variable part captured as raw text inside an
// interpolated string, e.g. the `username` in f"...{username}".
func (t *Table) LabelText(text string) Label {
	if expr, err := parse.ParseExpr(text); err == nil {
		return t.LabelExpr(expr)
	}
	return t.Label(text)
}

// Combine merges labels with taint dominance: untrusted wins over sensitive,
// sensitive over clean. Any unknown operand keeps the result unknown unless a
// taint is already present, so absence of evidence never manufactures taint.
func Combine(labels ...Label) Label {
	hasClean := false
	hasUnknown := false
	result := Unknown
	for _, label := range labels {
		switch label {
		case Untrusted:
			return Untrusted
		case Sensitive:
			result = Sensitive
		case Clean:
			hasClean = true
		case Unknown:
			hasUnknown = true
		}
	}
	if result == Sensitive {
		return Sensitive
	}
	if hasClean && !hasUnknown {
		return Clean
	}
	return Unknown
}

func baseName(dotted string) string {
	if i := strings.IndexByte(dotted, '.'); i > 0 {
		return dotted[:i]
	}
	return dotted
}

func lastSegment(dotted string) string {
	if i := strings.LastIndexByte(dotted, '.'); i >= 0 {
		return dotted[i+1:]
	}
	return dotted
}

var inputSourceCallees = map[string]bool{
	"input":        true,
	"get_json":     true,
	"getjson":      true,
	"read_input":   true,
	"recv":         true,
	"readline":     true,
	"query_params": true,
}

var inputSourcePrefixes = []string{
	"request.", "req.", "flask.request.", "ctx.query", "ctx.request.",
}

// IsInputSource reports whether a callee yields externally controlled data.
func IsInputSource(callee string) bool {
	lower := strings.ToLower(callee)
	for _, prefix := range inputSourcePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return inputSourceCallees[lastSegment(lower)]
}

// IsEnvSource reports whether a callee reads configuration or environment
// values, which are treated as trusted, non-sensitive provenance.
func IsEnvSource(callee string) bool {
	lower := strings.ToLower(callee)
	switch lower {
	case "os.getenv", "getenv", "os.environ.get", "env.get", "process.env.get":
		return true
	}
	return strings.HasPrefix(lower, "os.environ") || strings.HasPrefix(lower, "process.env")
}

var sanitizerCallees = map[string]bool{
	"hashpw":          true,
	"checkpw":         true,
	"gensalt":         true,
	"sha256":          true,
	"sha512":          true,
	"pbkdf2_hmac":     true,
	"scrypt":          true,
	"bcrypt":          true,
	"quote":           true,
	"escape":          true,
	"sanitize":        true,
	"redact":          true,
	"token_urlsafe":   true,
	"token_hex":       true,
	"parameterize":    true,
	"secure_filename": true,
}

// IsSanitizer reports whether a call neutralizes taint, e.g. strong hashing
// or escaping.
func IsSanitizer(callee string) bool {
	return sanitizerCallees[lastSegment(strings.ToLower(callee))]
}

var querySinkCallees = map[string]bool{
	"execute":       true,
	"executemany":   true,
	"executescript": true,
	"query":         true,
	"raw":           true,
	"exec":          true,
	"run_query":     true,
}

// IsQuerySink reports whether a callee executes a database query.
func IsQuerySink(callee string) bool {
	return querySinkCallees[lastSegment(strings.ToLower(callee))]
}

var logSinkCallees = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true,
	"error": true, "exception": true, "critical": true, "log": true,
	"print": true, "println": true, "printf": true, "fatal": true, "trace": true,
}

var logSinkBases = map[string]bool{
	"logger": true, "log": true, "logging": true, "console": true, "fmt": true,
}

// IsLogSink reports whether a callee writes to a log or console.
func IsLogSink(callee string) bool {
	lower := strings.ToLower(callee)
	if lower == "print" || lower == "println" || lower == "puts" {
		return true
	}
	if !logSinkCallees[lastSegment(lower)] {
		return false
	}
	base := baseName(lower)
	if base == lower {
		// bare call like printf(...)
		return true
	}
	return logSinkBases[base] || strings.HasSuffix(base, "logger") || strings.HasSuffix(base, "log")
}

// isSecretBinding applies the secret/credential heuristic to a literal
// binding: a secret-looking name assigned a non-empty string literal, or any
// name assigned a literal that looks like credential material.
func isSecretBinding(target string, value *parse.Expr) bool {
	if value == nil || value.Kind != parse.ExprString {
		return false
	}
	literal := true
	for _, part := range value.Parts {
		if !part.Literal {
			literal = false
			break
		}
	}
	if !literal || strings.TrimSpace(value.Value) == "" {
		return false
	}
	return IsSecretName(target) || LooksLikeCredential(value.Value)
}

var secretNameFragments = []string{
	"key", "secret", "token", "passw", "credential", "auth", "private",
}

// IsSecretName reports whether a symbol name suggests credential material.
func IsSecretName(name string) bool {
	lower := strings.ToLower(name)
	for _, fragment := range secretNameFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

var credentialPrefixes = []string{
	"sk-", "sk_live", "pk_live", "rk_live", "akia", "ghp_", "gho_", "github_pat_",
	"xoxb-", "xoxp-", "eyj", "-----begin",
}

// LooksLikeCredential reports whether a literal value has the shape of a
// real credential, independent of the symbol name it is bound to.
func LooksLikeCredential(value string) bool {
	lower := strings.ToLower(strings.TrimSpace(value))
	for _, prefix := range credentialPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
