package parse

import (
	"regexp"
	"strings"

	"github.com/codesift-sec/codesift/internal/source"
)

var (
	rePyFunc    = regexp.MustCompile(`^(?:async\s+)?def\s+([A-Za-z_]\w*)\s*\((.*)\)\s*(?:->\s*[^:]+)?:\s*$`)
	reJSFunc    = regexp.MustCompile(`^(?:async\s+)?function\s+([A-Za-z_]\w*)\s*\((.*)\)\s*\{?\s*$`)
	reArrowFunc = regexp.MustCompile(`^(?:const|let|var)\s+([A-Za-z_]\w*)\s*=\s*(?:async\s+)?\(([^)]*)\)\s*=>`)
	reCond      = regexp.MustCompile(`^(?:if|elif|while|else\s+if)\b\s*(.*?)\s*[:{]?\s*$`)
	reReturn    = regexp.MustCompile(`^return\b\s*(.*?)\s*;?\s*$`)
	reDeclName  = regexp.MustCompile(`^(?:const\s+|let\s+|var\s+)?([A-Za-z_][\w.]*(?:\[[^\]]*\])?)$`)
	reParmName  = regexp.MustCompile(`^[A-Za-z_]\w*$`)
)

// benignPrefixes are structural lines the shallow grammar does not model.
// They become opaque statements without a degradation warning.
var benignPrefixes = []string{
	"import ", "from ", "package ", "use ", "require(", "module.exports",
	"try", "except", "finally", "else", "elif:", "pass", "break", "continue",
	"with ", "for ", "class ", "switch ", "case ", "default:", "do ",
	"@", "}", ")", "]", "export ", "go ", "defer ", "raise ", "throw ",
	"assert ", "del ", "global ", "nonlocal ", "yield",
}

// Parse turns a unit's raw text into the logical statement sequence. Failure
// is local per statement: a malformed line becomes an opaque statement with a
// recorded degradation, and the rest of the unit still parses.
func Parse(unit *source.Unit) ([]Statement, []Degradation) {
	logicals := splitLogical(unit)

	statements := make([]Statement, 0, len(logicals))
	var degradations []Degradation
	for _, logical := range logicals {
		stmt, degradation := classify(logical)
		statements = append(statements, stmt)
		if degradation != nil {
			degradations = append(degradations, *degradation)
		}
	}
	return statements, degradations
}

// logicalLine is a statement's worth of text joined across continuations.
type logicalLine struct {
	text string
	span source.Span
}

// splitLogical joins physical lines into logical statements: bracket depth,
// backslash continuations, and triple-quoted strings all extend a statement
// onto following lines.
func splitLogical(unit *source.Unit) []logicalLine {
	var out []logicalLine

	var buf strings.Builder
	startLine := 0
	depth := 0
	inTriple := false
	tripleDelim := ""
	// // opens a comment everywhere except Python, where it is floor division
	slashComments := unit.Language() != "python"

	flush := func(endLine int) {
		text := buf.String()
		buf.Reset()
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return
		}
		indent := len(text) - len(strings.TrimLeft(text, " \t"))
		out = append(out, logicalLine{
			text: trimmed,
			span: source.Span{
				StartLine:   startLine,
				StartColumn: indent + 1,
				EndLine:     endLine,
				EndColumn:   maxInt(1, len(strings.TrimRight(unit.Line(endLine), " \t"))),
			},
		})
	}

	for n := 1; n <= unit.NumLines(); n++ {
		line := unit.Line(n)
		if buf.Len() == 0 {
			startLine = n
			line = stripComment(line, slashComments)
			if strings.TrimSpace(line) == "" {
				continue
			}
		} else {
			buf.WriteByte('\n')
			if !inTriple {
				line = stripComment(line, slashComments)
			}
		}

		buf.WriteString(line)

		depth, inTriple, tripleDelim = scanLineState(line, depth, inTriple, tripleDelim)
		if inTriple || depth > 0 {
			continue
		}
		if strings.HasSuffix(strings.TrimRight(line, " \t"), "\\") {
			// backslash continuation
			text := buf.String()
			buf.Reset()
			buf.WriteString(strings.TrimSuffix(strings.TrimRight(text, " \t"), "\\"))
			continue
		}
		flush(n)
	}
	if buf.Len() > 0 {
		flush(unit.NumLines())
	}
	return out
}

// scanLineState advances bracket depth and triple-quote state across one
// physical line, ignoring brackets inside quoted strings.
func scanLineState(line string, depth int, inTriple bool, tripleDelim string) (int, bool, string) {
	i := 0
	for i < len(line) {
		if inTriple {
			if strings.HasPrefix(line[i:], tripleDelim) {
				inTriple = false
				i += len(tripleDelim)
				continue
			}
			i++
			continue
		}
		c := line[i]
		switch c {
		case '\'', '"':
			delim := string(c)
			if strings.HasPrefix(line[i:], strings.Repeat(string(c), 3)) {
				delim = strings.Repeat(string(c), 3)
			}
			end := findStringEnd(line, i+len(delim), delim)
			if end < 0 {
				if len(delim) == 3 {
					return depth, true, delim
				}
				// unterminated simple string: give up on state tracking for this line
				return depth, false, ""
			}
			i = end
			continue
		case '`':
			end := findStringEnd(line, i+1, "`")
			if end < 0 {
				return depth, false, ""
			}
			i = end
			continue
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		}
		i++
	}
	return depth, inTriple, tripleDelim
}

// findStringEnd returns the offset just past the closing delimiter, or -1.
func findStringEnd(line string, from int, delim string) int {
	i := from
	for i < len(line) {
		if line[i] == '\\' && len(delim) == 1 {
			i += 2
			continue
		}
		if strings.HasPrefix(line[i:], delim) {
			return i + len(delim)
		}
		i++
	}
	return -1
}

// stripComment removes a trailing # or // comment outside quoted strings.
// slashComments controls whether // counts as a comment opener.
func stripComment(line string, slashComments bool) string {
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			delim := string(c)
			if strings.HasPrefix(line[i:], strings.Repeat(string(c), 3)) {
				delim = strings.Repeat(string(c), 3)
			}
			end := findStringEnd(line, i+len(delim), delim)
			if end < 0 {
				return line
			}
			i = end
		case c == '#':
			return strings.TrimRight(line[:i], " \t")
		case slashComments && c == '/' && i+1 < len(line) && line[i+1] == '/':
			return strings.TrimRight(line[:i], " \t")
		default:
			i++
		}
	}
	return line
}

// classify determines the statement kind of one logical line and parses its
// operand expressions.
func classify(logical logicalLine) (Statement, *Degradation) {
	text := strings.TrimSuffix(strings.TrimSpace(logical.text), ";")
	stmt := Statement{Kind: KindOpaque, Span: logical.span, Raw: text}

	if m := reArrowFunc.FindStringSubmatch(text); m != nil {
		stmt.Kind = KindFuncDecl
		stmt.Target = m[1]
		stmt.Params = splitParams(m[2])
		return stmt, nil
	}
	if m := rePyFunc.FindStringSubmatch(text); m != nil {
		stmt.Kind = KindFuncDecl
		stmt.Target = m[1]
		stmt.Params = splitParams(m[2])
		return stmt, nil
	}
	if m := reJSFunc.FindStringSubmatch(text); m != nil {
		stmt.Kind = KindFuncDecl
		stmt.Target = m[1]
		stmt.Params = splitParams(m[2])
		return stmt, nil
	}
	if m := reCond.FindStringSubmatch(text); m != nil {
		stmt.Kind = KindConditional
		cond := strings.TrimSpace(m[1])
		cond = strings.TrimPrefix(cond, "(")
		cond = strings.TrimSuffix(cond, ")")
		expr, err := ParseExpr(cond)
		if err != nil {
			stmt.Value = &Expr{Kind: ExprOpaque, Raw: cond}
			return stmt, nil
		}
		stmt.Value = expr
		return stmt, nil
	}
	if m := reReturn.FindStringSubmatch(text); m != nil {
		stmt.Kind = KindReturn
		if ret := strings.TrimSpace(m[1]); ret != "" {
			if expr, err := ParseExpr(ret); err == nil {
				stmt.Value = expr
			} else {
				stmt.Value = &Expr{Kind: ExprOpaque, Raw: ret}
			}
		}
		return stmt, nil
	}

	if target, rhs, ok := splitAssignment(text); ok {
		expr, err := ParseExpr(rhs)
		if err != nil {
			return stmt, &Degradation{
				Span:   logical.span,
				Raw:    text,
				Reason: "unparseable assignment right-hand side: " + err.Error(),
			}
		}
		stmt.Target = target
		stmt.Value = expr
		if isPureLiteral(expr) {
			stmt.Kind = KindLiteralDecl
		} else {
			stmt.Kind = KindAssign
		}
		return stmt, nil
	}

	if isBenign(text) {
		return stmt, nil
	}

	expr, err := ParseExpr(text)
	if err != nil {
		return stmt, &Degradation{
			Span:   logical.span,
			Raw:    text,
			Reason: "unrecognized construct: " + err.Error(),
		}
	}
	if expr.Kind == ExprCall {
		stmt.Kind = KindCall
		stmt.Value = expr
	}
	// bare non-call expressions stay opaque without a degradation
	return stmt, nil
}

// splitAssignment finds a top-level assignment operator outside strings and
// brackets, rejecting comparison and arrow forms.
func splitAssignment(text string) (target, rhs string, ok bool) {
	depth := 0
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			delim := string(c)
			if strings.HasPrefix(text[i:], strings.Repeat(string(c), 3)) {
				delim = strings.Repeat(string(c), 3)
			}
			end := findStringEnd(text, i+len(delim), delim)
			if end < 0 {
				return "", "", false
			}
			i = end
			continue
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == '=' && depth == 0:
			if i+1 < len(text) && (text[i+1] == '=' || text[i+1] == '>') {
				i += 2
				continue
			}
			if i > 0 && strings.ContainsRune("=!<>+-*/%&|^", rune(text[i-1])) {
				// augmented or comparison operator: a += b, a <= b
				if op := text[i-1]; strings.ContainsRune("+-*/%&|^", rune(op)) {
					left := strings.TrimSpace(text[:i-1])
					if reDeclName.MatchString(left) {
						target := normalizeTarget(left)
						rest := strings.TrimSpace(text[i+1:])
						// += and %= extend the prior value, keep it in the expression
						if op == '+' || op == '%' {
							rest = target + " " + string(op) + " " + rest
						}
						return target, rest, true
					}
				}
				i++
				continue
			}
			left := normalizeTarget(strings.TrimSpace(text[:i]))
			if !reDeclName.MatchString(left) {
				return "", "", false
			}
			return left, strings.TrimSpace(text[i+1:]), true
		}
		i++
	}
	return "", "", false
}

// normalizeTarget strips declaration keywords and type annotations from an
// assignment target.
func normalizeTarget(left string) string {
	for _, kw := range []string{"const ", "let ", "var "} {
		left = strings.TrimPrefix(left, kw)
	}
	if colon := strings.IndexByte(left, ':'); colon > 0 && !strings.Contains(left[:colon], "[") {
		left = left[:colon]
	}
	return strings.TrimSpace(left)
}

// splitParams extracts plain parameter names from a declaration's parameter
// list, dropping defaults, annotations, and receiver-style names.
func splitParams(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var params []string
	for _, piece := range strings.Split(raw, ",") {
		name := strings.TrimSpace(piece)
		if eq := strings.IndexByte(name, '='); eq >= 0 {
			name = name[:eq]
		}
		if colon := strings.IndexByte(name, ':'); colon >= 0 {
			name = name[:colon]
		}
		name = strings.TrimLeft(strings.TrimSpace(name), "*&.")
		if name == "" || name == "self" || name == "cls" || name == "this" {
			continue
		}
		if reParmName.MatchString(name) {
			params = append(params, name)
		}
	}
	return params
}

// isPureLiteral reports whether an expression is a literal with no variable
// content.
func isPureLiteral(e *Expr) bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case ExprNumber, ExprBool:
		return true
	case ExprString:
		for _, part := range e.Parts {
			if !part.Literal {
				return false
			}
		}
		return true
	}
	return false
}

func isBenign(text string) bool {
	lower := strings.ToLower(text)
	for _, prefix := range benignPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return lower == "elif" || lower == "{" || lower == "else:" || lower == "try:"
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
