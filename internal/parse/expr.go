package parse

import (
	"fmt"
	"strings"
)

// ExprKind classifies a shallow expression node.
type ExprKind string

const (
	ExprIdent  ExprKind = "ident"
	ExprString ExprKind = "string"
	ExprNumber ExprKind = "number"
	ExprBool   ExprKind = "bool"
	ExprCall   ExprKind = "call"
	ExprBinary ExprKind = "binary"
	ExprOpaque ExprKind = "opaque"
)

// StringPart is one segment of a constructed string. Literal parts carry the
// verbatim text; variable parts carry the interpolated expression text.
type StringPart struct {
	Literal bool
	Text    string
}

// Arg is one call argument, positional (Name == "") or named.
type Arg struct {
	Name  string
	Value *Expr
}

// Expr is a shallow expression node produced by the structural parser.
type Expr struct {
	Kind  ExprKind
	Raw   string
	Name  string       // identifier name or dotted callee path
	Value string       // literal value text, unquoted for strings
	Parts []StringPart // string segments, interpolation included
	Op    string       // binary operator
	Left  *Expr
	Right *Expr
	Recv  *Expr // receiver for method calls on literals, e.g. "...{}".format(x)
	Args  []Arg
}

// ParseExpr parses src into a shallow expression tree. It understands
// identifiers, string/number/bool literals, calls with positional and named
// arguments, comparisons, boolean connectives, concatenation, and the common
// interpolation forms (f-strings, template literals, %-formatting, .format).
func ParseExpr(src string) (*Expr, error) {
	p := &exprParser{src: src}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		// Trailing text the shallow grammar cannot place, e.g. slices or
		// ternaries. Keep what parsed and wrap the whole thing as opaque.
		return &Expr{Kind: ExprOpaque, Raw: src, Left: expr}, nil
	}
	expr.Raw = strings.TrimSpace(src)
	return expr, nil
}

type exprParser struct {
	src string
	pos int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n') {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *exprParser) hasKeyword(kw string) bool {
	if !strings.HasPrefix(p.src[p.pos:], kw) {
		return false
	}
	rest := p.src[p.pos+len(kw):]
	return rest == "" || !isIdentChar(rest[0])
}

func (p *exprParser) parseOr() (*Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		switch {
		case p.hasKeyword("or"):
			p.pos += 2
		case strings.HasPrefix(p.src[p.pos:], "||"):
			p.pos += 2
		default:
			return left, nil
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Expr{Kind: ExprBinary, Op: "or", Left: left, Right: right}
	}
}

func (p *exprParser) parseAnd() (*Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		switch {
		case p.hasKeyword("and"):
			p.pos += 3
		case strings.HasPrefix(p.src[p.pos:], "&&"):
			p.pos += 2
		default:
			return left, nil
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &Expr{Kind: ExprBinary, Op: "and", Left: left, Right: right}
	}
}

func (p *exprParser) parseNot() (*Expr, error) {
	p.skipSpace()
	if p.hasKeyword("not") {
		p.pos += 3
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: ExprBinary, Op: "not", Left: operand}, nil
	}
	if p.peek() == '!' && !strings.HasPrefix(p.src[p.pos:], "!=") {
		p.pos++
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: ExprBinary, Op: "not", Left: operand}, nil
	}
	return p.parseComparison()
}

var comparisonOps = []string{"===", "!==", "==", "!=", "<=", ">=", "<", ">"}

func (p *exprParser) parseComparison() (*Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	for _, op := range comparisonOps {
		if strings.HasPrefix(p.src[p.pos:], op) {
			p.pos += len(op)
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			return &Expr{Kind: ExprBinary, Op: normalizeCompareOp(op), Left: left, Right: right}, nil
		}
	}
	for _, kw := range []string{"in", "is"} {
		if p.hasKeyword(kw) {
			p.pos += len(kw)
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			return &Expr{Kind: ExprBinary, Op: kw, Left: left, Right: right}, nil
		}
	}
	return left, nil
}

func normalizeCompareOp(op string) string {
	switch op {
	case "===":
		return "=="
	case "!==":
		return "!="
	}
	return op
}

func (p *exprParser) parseAdditive() (*Expr, error) {
	left, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		var op string
		switch {
		case p.peek() == '+':
			op = "+"
		case p.peek() == '%' && p.pos+1 < len(p.src) && p.src[p.pos+1] == ' ':
			// old-style string formatting: "..." % value
			op = "%"
		default:
			return left, nil
		}
		p.pos++
		right, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		left = &Expr{Kind: ExprBinary, Op: op, Left: left, Right: right}
	}
}

// parsePostfix parses a primary expression followed by attribute access,
// subscripts, and call suffixes.
func (p *exprParser) parsePostfix() (*Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.peek() == '.':
			p.pos++
			attr := p.scanIdent()
			if attr == "" {
				return nil, fmt.Errorf("expected attribute name at offset %d", p.pos)
			}
			if expr.Kind == ExprIdent {
				expr.Name = expr.Name + "." + attr
			} else {
				// method on a non-identifier receiver, e.g. a string literal
				recv := expr
				expr = &Expr{Kind: ExprIdent, Name: attr, Recv: recv}
			}
		case p.peek() == '(':
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			expr = &Expr{Kind: ExprCall, Name: expr.Name, Recv: expr.Recv, Args: args}
		case p.peek() == '[':
			if err := p.skipBalanced('[', ']'); err != nil {
				return nil, err
			}
		default:
			return expr, nil
		}
	}
}

func (p *exprParser) parseArgs() ([]Arg, error) {
	// consume '('
	p.pos++
	var args []Arg
	p.skipSpace()
	if p.peek() == ')' {
		p.pos++
		return args, nil
	}
	for {
		p.skipSpace()
		name := ""
		if ident, ok := p.peekNamedArg(); ok {
			name = ident
			p.pos += len(ident)
			p.skipSpace()
			p.pos++ // consume '='
		}
		value, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		args = append(args, Arg{Name: name, Value: value})
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return args, nil
		default:
			return nil, fmt.Errorf("expected ',' or ')' in argument list at offset %d", p.pos)
		}
	}
}

// peekNamedArg reports whether the cursor sits on `name=` (and not `name==`).
func (p *exprParser) peekNamedArg() (string, bool) {
	i := p.pos
	for i < len(p.src) && isIdentChar(p.src[i]) {
		i++
	}
	if i == p.pos {
		return "", false
	}
	j := i
	for j < len(p.src) && (p.src[j] == ' ' || p.src[j] == '\t') {
		j++
	}
	if j < len(p.src) && p.src[j] == '=' && (j+1 >= len(p.src) || p.src[j+1] != '=') {
		return p.src[p.pos:i], true
	}
	return "", false
}

func (p *exprParser) parsePrimary() (*Expr, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	c := p.src[p.pos]

	switch {
	case c == '\'' || c == '"' || c == '`':
		return p.parseString("")
	case c >= '0' && c <= '9':
		return p.parseNumber(), nil
	case c == '(':
		return p.parseParenthesized()
	case c == '[' || c == '{':
		// collection literal, shallow: skip and keep as opaque
		open, close := c, byte(']')
		if c == '{' {
			close = '}'
		}
		start := p.pos
		if err := p.skipBalanced(open, close); err != nil {
			return nil, err
		}
		return &Expr{Kind: ExprOpaque, Raw: p.src[start:p.pos]}, nil
	case isIdentStart(c):
		ident := p.scanIdent()
		// string literal prefixes: f"...", rb'...', etc.
		if len(ident) <= 2 && p.pos < len(p.src) && (p.peek() == '"' || p.peek() == '\'') && isStringPrefix(ident) {
			return p.parseString(strings.ToLower(ident))
		}
		switch ident {
		case "True", "true", "False", "false":
			return &Expr{Kind: ExprBool, Value: strings.ToLower(ident), Raw: ident}, nil
		case "None", "null", "nil", "undefined":
			return &Expr{Kind: ExprOpaque, Raw: ident}, nil
		}
		return &Expr{Kind: ExprIdent, Name: ident, Raw: ident}, nil
	}
	return nil, fmt.Errorf("unexpected character %q at offset %d", c, p.pos)
}

func (p *exprParser) parseParenthesized() (*Expr, error) {
	// consume '('
	p.pos++
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.peek() == ',' {
		// tuple: keep the first element, skip the rest
		depth := 1
		for p.pos < len(p.src) {
			switch p.src[p.pos] {
			case '(':
				depth++
			case ')':
				depth--
			}
			p.pos++
			if depth == 0 {
				return expr, nil
			}
		}
		return nil, fmt.Errorf("unbalanced parentheses")
	}
	if p.peek() != ')' {
		return nil, fmt.Errorf("expected ')' at offset %d", p.pos)
	}
	p.pos++
	return expr, nil
}

func (p *exprParser) parseNumber() *Expr {
	start := p.pos
	for p.pos < len(p.src) && (isIdentChar(p.src[p.pos]) || p.src[p.pos] == '.') {
		p.pos++
	}
	text := p.src[start:p.pos]
	return &Expr{Kind: ExprNumber, Value: text, Raw: text}
}

// parseString scans a quoted string, including triple-quoted and template
// forms, and splits interpolated segments into Parts.
func (p *exprParser) parseString(prefix string) (*Expr, error) {
	quote := p.src[p.pos]
	delim := string(quote)
	if strings.HasPrefix(p.src[p.pos:], strings.Repeat(string(quote), 3)) {
		delim = strings.Repeat(string(quote), 3)
	}
	p.pos += len(delim)
	start := p.pos
	for {
		if p.pos >= len(p.src) {
			return nil, fmt.Errorf("unterminated string literal")
		}
		if p.src[p.pos] == '\\' && len(delim) == 1 {
			p.pos += 2
			continue
		}
		if strings.HasPrefix(p.src[p.pos:], delim) {
			break
		}
		p.pos++
	}
	body := p.src[start:p.pos]
	p.pos += len(delim)

	interpolated := strings.Contains(prefix, "f") || quote == '`'
	parts := splitStringParts(body, quote, interpolated)
	return &Expr{
		Kind:  ExprString,
		Value: body,
		Parts: parts,
		Raw:   prefix + delim + body + delim,
	}, nil
}

// splitStringParts splits a string body into literal and interpolated parts.
// f-strings use {expr}, template literals use ${expr}.
func splitStringParts(body string, quote byte, interpolated bool) []StringPart {
	if !interpolated {
		return []StringPart{{Literal: true, Text: body}}
	}

	var parts []StringPart
	var literal strings.Builder
	i := 0
	for i < len(body) {
		c := body[i]
		isTemplate := quote == '`'
		open := c == '{' && !isTemplate
		if isTemplate && c == '$' && i+1 < len(body) && body[i+1] == '{' {
			open = true
			i++
		}
		if open {
			if !isTemplate && i+1 < len(body) && body[i+1] == '{' {
				// escaped {{
				literal.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(body[i:], '}')
			if end < 0 {
				literal.WriteByte(c)
				i++
				continue
			}
			if literal.Len() > 0 {
				parts = append(parts, StringPart{Literal: true, Text: literal.String()})
				literal.Reset()
			}
			inner := body[i+1 : i+end]
			// strip a format spec like {amount:.2f}
			if colon := strings.IndexByte(inner, ':'); colon >= 0 {
				inner = inner[:colon]
			}
			parts = append(parts, StringPart{Literal: false, Text: strings.TrimSpace(inner)})
			i += end + 1
			continue
		}
		literal.WriteByte(c)
		i++
	}
	if literal.Len() > 0 {
		parts = append(parts, StringPart{Literal: true, Text: literal.String()})
	}
	if len(parts) == 0 {
		parts = []StringPart{{Literal: true, Text: ""}}
	}
	return parts
}

func (p *exprParser) scanIdent() string {
	start := p.pos
	if p.pos < len(p.src) && isIdentStart(p.src[p.pos]) {
		p.pos++
		for p.pos < len(p.src) && isIdentChar(p.src[p.pos]) {
			p.pos++
		}
	}
	return p.src[start:p.pos]
}

// skipBalanced consumes a balanced bracket pair, honoring quoted strings.
func (p *exprParser) skipBalanced(open, close byte) error {
	depth := 0
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '\'' || c == '"' || c == '`':
			if _, err := p.parseString(""); err != nil {
				return err
			}
			continue
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				p.pos++
				return nil
			}
		}
		p.pos++
	}
	return fmt.Errorf("unbalanced %q", string(open))
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isStringPrefix(ident string) bool {
	for i := 0; i < len(ident); i++ {
		switch ident[i] {
		case 'f', 'F', 'r', 'R', 'b', 'B', 'u', 'U':
		default:
			return false
		}
	}
	return len(ident) > 0
}

// StringParts flattens a string-construction expression into ordered parts,
// each flagged literal or variable. The second return is false when the
// expression does not construct a string at all.
func StringParts(e *Expr) ([]StringPart, bool) {
	if e == nil {
		return nil, false
	}
	switch e.Kind {
	case ExprString:
		return e.Parts, true
	case ExprBinary:
		if e.Op != "+" && e.Op != "%" {
			return nil, false
		}
		left, leftOK := StringParts(e.Left)
		right, rightOK := StringParts(e.Right)
		if !leftOK && !rightOK {
			return nil, false
		}
		if !leftOK {
			left = exprAsParts(e.Left)
		}
		if !rightOK {
			right = exprAsParts(e.Right)
		}
		return append(append([]StringPart{}, left...), right...), true
	case ExprCall:
		// "...{}".format(args) and str.join-style construction
		if e.Name == "format" && e.Recv != nil && e.Recv.Kind == ExprString {
			parts := make([]StringPart, 0, len(e.Recv.Parts)+len(e.Args))
			for _, part := range e.Recv.Parts {
				parts = append(parts, part)
			}
			for _, arg := range e.Args {
				parts = append(parts, exprAsParts(arg.Value)...)
			}
			return parts, true
		}
	}
	return nil, false
}

// exprAsParts renders a non-string operand as a single part: literals stay
// literal, anything else becomes a variable part.
func exprAsParts(e *Expr) []StringPart {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case ExprNumber, ExprBool:
		return []StringPart{{Literal: true, Text: e.Value}}
	case ExprString:
		return e.Parts
	case ExprIdent:
		return []StringPart{{Literal: false, Text: e.Name}}
	case ExprCall:
		return []StringPart{{Literal: false, Text: e.Name}}
	case ExprBinary:
		// nested chains carry no Raw text, decompose into leaf operands
		parts := append([]StringPart{}, exprAsParts(e.Left)...)
		return append(parts, exprAsParts(e.Right)...)
	}
	return []StringPart{{Literal: false, Text: strings.TrimSpace(e.Raw)}}
}

// ConcatOperands flattens a concatenation chain into one part per leaf
// operand. Unlike StringParts it does not require a string literal anywhere
// in the chain; ok is false when e is not a + or % chain at all.
func ConcatOperands(e *Expr) ([]StringPart, bool) {
	if e == nil || e.Kind != ExprBinary || (e.Op != "+" && e.Op != "%") {
		return nil, false
	}
	parts := append([]StringPart{}, exprAsParts(e.Left)...)
	return append(parts, exprAsParts(e.Right)...), true
}

// VariableParts returns the variable part texts of a constructed string.
func VariableParts(parts []StringPart) []string {
	var vars []string
	for _, part := range parts {
		if !part.Literal && part.Text != "" {
			vars = append(vars, part.Text)
		}
	}
	return vars
}
