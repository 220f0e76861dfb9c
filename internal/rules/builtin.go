package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/codesift-sec/codesift/internal/parse"
	"github.com/codesift-sec/codesift/internal/taint"
)

// Builtins returns the builtin detector set, one or more per category.
func Builtins() []Rule {
	return []Rule{
		hardcodedSecretRule(),
		sqlInjectionRule(),
		sensitiveLoggingRule(),
		weakCryptoRule(),
		unsafeMutationRule(),
		authBypassRule(),
	}
}

// isTestFixture excludes units that are test or fixture material, where
// hardcoded placeholder credentials are expected.
func isTestFixture(unitID string) bool {
	lower := strings.ToLower(unitID)
	return strings.Contains(lower, "test") ||
		strings.Contains(lower, "fixture") ||
		strings.Contains(lower, "example")
}

func hardcodedSecretRule() Rule {
	r := Rule{
		ID:          "hardcoded-secret-literal",
		Category:    CategoryHardcodedSecret,
		Severity:    SeverityCritical,
		Description: "A credential-bearing name is assigned a string literal in source.",
		FixTemplate: `Load {name} from the environment or a secret manager instead of source, e.g. {name} = os.getenv("{env}").`,
	}
	r.Match = func(ctx EvalContext) []Hit {
		stmt := ctx.Statement
		if !stmt.IsBinding() || stmt.Value == nil || stmt.Value.Kind != parse.ExprString {
			return nil
		}
		if isTestFixture(ctx.Unit.ID()) {
			return nil
		}
		value := stmt.Value
		for _, part := range value.Parts {
			if !part.Literal {
				return nil
			}
		}
		if strings.TrimSpace(value.Value) == "" {
			return nil
		}

		credentialShaped := taint.LooksLikeCredential(value.Value)
		if !credentialShaped && !taint.IsSecretName(stmt.Target) {
			return nil
		}
		confidence := ConfidenceHeuristic
		if credentialShaped {
			confidence = ConfidenceLiteral
		}
		return []Hit{r.hit(ctx, confidence,
			fmt.Sprintf("hardcoded credential assigned to %q", stmt.Target),
			map[string]string{
				"name": stmt.Target,
				"env":  envNameFor(stmt.Target),
			})}
	}
	return r
}

var reNonWord = regexp.MustCompile(`\W+`)

// envNameFor derives a conventional environment variable name for a symbol.
func envNameFor(name string) string {
	cleaned := reNonWord.ReplaceAllString(name, "_")
	return strings.Trim(strings.ToUpper(cleaned), "_")
}

func sqlInjectionRule() Rule {
	r := Rule{
		ID:          "sql-string-interpolation",
		Category:    CategorySQLInjection,
		Severity:    SeverityCritical,
		Description: "An untrusted value is interpolated into a query string that reaches a query-execution sink.",
		FixTemplate: `Use a parameterized query and pass {value} as a bound parameter instead of interpolating it.`,
	}
	r.Match = func(ctx EvalContext) []Hit {
		call := ctx.Statement.CallExpr()
		if call == nil || !taint.IsQuerySink(call.Name) {
			return nil
		}
		for _, arg := range call.Args {
			if tainted, name := untrustedInterpolation(arg.Value, ctx.Taint); tainted {
				return []Hit{r.hit(ctx, ConfidenceTaint,
					fmt.Sprintf("query passed to %s() is built from untrusted value %q", call.Name, name),
					map[string]string{"value": name})}
			}
		}
		return nil
	}
	return r
}

// untrustedInterpolation reports whether expr is a string construction with
// an untrusted variable part, or a symbol bound from one. Labels that are
// still unknown never trigger.
func untrustedInterpolation(expr *parse.Expr, table *taint.Table) (bool, string) {
	if expr == nil {
		return false, ""
	}
	if parts, ok := parse.StringParts(expr); ok {
		for _, name := range parse.VariableParts(parts) {
			if table.LabelText(name) == taint.Untrusted {
				return true, name
			}
		}
		return false, ""
	}
	if expr.Kind == parse.ExprIdent &&
		table.Interpolated(expr.Name) &&
		table.Label(expr.Name) == taint.Untrusted {
		return true, expr.Name
	}
	return false, ""
}

func sensitiveLoggingRule() Rule {
	r := Rule{
		ID:          "sensitive-data-logging",
		Category:    CategorySensitiveLogging,
		Severity:    SeverityHigh,
		Description: "A sensitive value reaches a logging or print sink.",
		FixTemplate: `Remove {value} from the log call or replace it with a redacted placeholder.`,
	}
	r.Match = func(ctx EvalContext) []Hit {
		call := ctx.Statement.CallExpr()
		if call == nil || !taint.IsLogSink(call.Name) {
			return nil
		}
		for _, arg := range call.Args {
			if sensitive, name := sensitiveOperand(arg.Value, ctx.Taint); sensitive {
				return []Hit{r.hit(ctx, ConfidenceTaint,
					fmt.Sprintf("sensitive value %q is written to the %s() sink", name, call.Name),
					map[string]string{"value": name})}
			}
		}
		return nil
	}
	return r
}

// sensitiveOperand reports whether expr carries a sensitive-labelled value
// into a sink, either directly or inside an interpolated string.
func sensitiveOperand(expr *parse.Expr, table *taint.Table) (bool, string) {
	if expr == nil {
		return false, ""
	}
	if parts, ok := parse.StringParts(expr); ok {
		for _, name := range parse.VariableParts(parts) {
			if table.LabelText(name) == taint.Sensitive {
				return true, name
			}
		}
		return false, ""
	}
	if expr.Kind == parse.ExprIdent && table.Label(expr.Name) == taint.Sensitive {
		return true, expr.Name
	}
	return false, ""
}

var weakHashNames = map[string]bool{
	"md5": true, "md4": true, "sha1": true, "des": true, "rc4": true,
}

func weakCryptoRule() Rule {
	r := Rule{
		ID:          "weak-hash-algorithm",
		Category:    CategoryWeakCrypto,
		Severity:    SeverityHigh,
		Description: "A known-weak hashing primitive is invoked.",
		FixTemplate: `Replace {algorithm} with a salted strong hash such as bcrypt or SHA-256 with a per-value salt.`,
	}
	r.Match = func(ctx EvalContext) []Hit {
		var hits []Hit
		walkCalls(ctx.Statement.Value, func(call *parse.Expr) {
			algorithm, ok := weakHashAlgorithm(call)
			if !ok || len(hits) > 0 {
				return
			}
			hits = append(hits, r.hit(ctx, ConfidenceLiteral,
				fmt.Sprintf("call to weak hash primitive %q", algorithm),
				map[string]string{"algorithm": algorithm}))
		})
		return hits
	}
	return r
}

// weakHashAlgorithm matches both direct primitives (hashlib.md5) and
// algorithm-by-name constructors (hashlib.new("md5"), crypto.createHash("sha1")).
func weakHashAlgorithm(call *parse.Expr) (string, bool) {
	last := lastSegment(strings.ToLower(call.Name))
	if weakHashNames[last] {
		return last, true
	}
	if last == "new" || last == "createhash" || last == "gethashalgorithm" {
		for _, arg := range call.Args {
			if arg.Value != nil && arg.Value.Kind == parse.ExprString {
				name := strings.ToLower(strings.TrimSpace(arg.Value.Value))
				if weakHashNames[name] {
					return name, true
				}
			}
		}
	}
	return "", false
}

var mutationCallees = map[string]bool{
	"reset": true, "reset_password": true, "truncate": true, "drop": true,
	"drop_all": true, "delete_all": true, "purge": true, "flushall": true,
}

var reDestructiveSQL = regexp.MustCompile(`(?i)^\s*(drop|truncate|delete)\b`)
var reDeleteSQL = regexp.MustCompile(`(?i)^\s*delete\b`)
var reWhereClause = regexp.MustCompile(`(?i)\bwhere\b`)

func unsafeMutationRule() Rule {
	r := Rule{
		ID:          "unsafe-state-reset",
		Category:    CategoryUnsafeMutation,
		Severity:    SeverityMedium,
		Description: "A destructive reset operation runs without a guarding condition.",
		FixTemplate: `Guard {operation} behind an explicit confirmation and scope it with a WHERE clause or target filter.`,
	}
	r.Match = func(ctx EvalContext) []Hit {
		call := ctx.Statement.CallExpr()
		if call == nil {
			return nil
		}
		if taint.IsQuerySink(call.Name) {
			for _, arg := range call.Args {
				if arg.Value == nil || arg.Value.Kind != parse.ExprString {
					continue
				}
				sql := arg.Value.Value
				if !reDestructiveSQL.MatchString(sql) {
					continue
				}
				if reDeleteSQL.MatchString(sql) && reWhereClause.MatchString(sql) {
					continue
				}
				operation := strings.ToUpper(strings.Fields(sql)[0])
				return []Hit{r.hit(ctx, ConfidenceLiteral,
					fmt.Sprintf("unscoped destructive statement %q reaches %s()", operation, call.Name),
					map[string]string{"operation": operation})}
			}
			return nil
		}
		if mutationCallees[lastSegment(strings.ToLower(call.Name))] {
			return []Hit{r.hit(ctx, ConfidenceHeuristic,
				fmt.Sprintf("unguarded call to destructive operation %s()", call.Name),
				map[string]string{"operation": call.Name + "()"})}
		}
		return nil
	}
	return r
}

var privilegedStrings = map[string]bool{
	"admin": true, "root": true, "superuser": true, "administrator": true, "su": true,
}

var identityFragments = []string{
	"user", "role", "admin", "uid", "email", "account", "login",
}

func authBypassRule() Rule {
	r := Rule{
		ID:          "hardcoded-auth-check",
		Category:    CategoryAuthBypass,
		Severity:    SeverityHigh,
		Description: "An authorization gate compares an identity field against a privileged literal.",
		FixTemplate: `Replace the literal comparison on {field} with a role or permission lookup from the authorization layer.`,
	}
	r.Match = func(ctx EvalContext) []Hit {
		if ctx.Statement.Kind != parse.KindConditional {
			return nil
		}
		field := ""
		walkBinary(ctx.Statement.Value, func(b *parse.Expr) {
			if field != "" || (b.Op != "==" && b.Op != "is") {
				return
			}
			if name, ok := privilegedComparison(b.Left, b.Right); ok {
				field = name
			} else if name, ok := privilegedComparison(b.Right, b.Left); ok {
				field = name
			}
		})
		if field == "" {
			return nil
		}
		return []Hit{r.hit(ctx, ConfidenceLiteral,
			fmt.Sprintf("authorization gate compares %q against a privileged literal", field),
			map[string]string{"field": field})}
	}
	return r
}

// privilegedComparison matches `identityField <op> privilegedLiteral`.
func privilegedComparison(left, right *parse.Expr) (string, bool) {
	if left == nil || right == nil || left.Kind != parse.ExprIdent {
		return "", false
	}
	if !isIdentityName(left.Name) {
		return "", false
	}
	switch right.Kind {
	case parse.ExprNumber:
		if right.Value == "0" || right.Value == "1" {
			return left.Name, true
		}
	case parse.ExprString:
		if privilegedStrings[strings.ToLower(strings.TrimSpace(right.Value))] {
			return left.Name, true
		}
	}
	return "", false
}

func isIdentityName(name string) bool {
	lower := strings.ToLower(name)
	last := lastSegment(lower)
	if last == "id" || strings.HasSuffix(last, "_id") {
		return true
	}
	for _, fragment := range identityFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

// walkCalls visits every call expression in the tree.
func walkCalls(e *parse.Expr, fn func(call *parse.Expr)) {
	if e == nil {
		return
	}
	if e.Kind == parse.ExprCall {
		fn(e)
	}
	walkCalls(e.Left, fn)
	walkCalls(e.Right, fn)
	walkCalls(e.Recv, fn)
	for _, arg := range e.Args {
		walkCalls(arg.Value, fn)
	}
}

// walkBinary visits every binary expression in the tree.
func walkBinary(e *parse.Expr, fn func(b *parse.Expr)) {
	if e == nil {
		return
	}
	if e.Kind == parse.ExprBinary {
		fn(e)
	}
	walkBinary(e.Left, fn)
	walkBinary(e.Right, fn)
	walkBinary(e.Recv, fn)
	for _, arg := range e.Args {
		walkBinary(arg.Value, fn)
	}
}

func lastSegment(dotted string) string {
	if i := strings.LastIndexByte(dotted, '.'); i >= 0 {
		return dotted[i+1:]
	}
	return dotted
}
