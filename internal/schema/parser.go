package schema

import (
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
)

// ErrSyntax is returned for malformed type expressions.
var ErrSyntax = errors.New("invalid type expression")

type exprKind int

const (
	exprKeyword exprKind = iota
	exprLiteral
	exprRef
	exprArray
	exprTuple
	exprUnion
	exprIntersection
	exprObject
	exprFunc
)

// expr is a parsed type expression.
type expr struct {
	kind exprKind
	// keyword name, literal text, or reference name (possibly dotted)
	name     string
	args     []*expr
	elem     *expr
	readonly bool
	elems    []*expr
	members  []*member
	params   []param
	result   *expr
	offset   int
}

type member struct {
	name     string
	optional bool
	method   bool
	// index is "string" or "number" for index signatures
	index string
	typ   *expr
}

type param struct {
	name     string
	optional bool
	typ      *expr
}

var keywords = map[string]struct{}{
	"string": {}, "number": {}, "boolean": {}, "null": {}, "undefined": {}, "void": {},
	"any": {}, "unknown": {}, "never": {}, "object": {}, "true": {}, "false": {},
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type lexer struct {
	src  string
	toks []token
}

func lex(src string) ([]token, error) {
	l := &lexer{src: src}
	i := 0
	for i < len(src) {
		ch := src[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
		case ch == '=' && i+1 < len(src) && src[i+1] == '>':
			l.toks = append(l.toks, token{tokPunct, "=>", i})
			i += 2
		case ch == '.' && strings.HasPrefix(src[i:], "..."):
			l.toks = append(l.toks, token{tokPunct, "...", i})
			i += 3
		case strings.IndexByte("<>[](){}|&,;:?.", ch) >= 0:
			l.toks = append(l.toks, token{tokPunct, string(ch), i})
			i++
		case ch == '\'' || ch == '"':
			start := i
			i++
			for i < len(src) && src[i] != ch {
				if src[i] == '\\' {
					i++
				}
				i++
			}
			if i >= len(src) {
				return nil, syntaxErr(src, start, "unterminated string literal")
			}
			i++
			l.toks = append(l.toks, token{tokString, src[start:i], start})
		case ch == '-' || (ch >= '0' && ch <= '9'):
			start := i
			i++
			for i < len(src) && (src[i] >= '0' && src[i] <= '9' || src[i] == '.') {
				i++
			}
			if src[start:i] == "-" {
				return nil, syntaxErr(src, start, "expected number after '-'")
			}
			l.toks = append(l.toks, token{tokNumber, src[start:i], start})
		case isIdentStart(rune(ch)):
			start := i
			for i < len(src) && isIdentPart(rune(src[i])) {
				i++
			}
			l.toks = append(l.toks, token{tokIdent, src[start:i], start})
		default:
			return nil, syntaxErr(src, i, "unexpected character %q", ch)
		}
	}
	l.toks = append(l.toks, token{tokEOF, "", len(src)})
	return l.toks, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func syntaxErr(src string, pos int, format string, args ...interface{}) error {
	err := errors.Wrapf(ErrSyntax, "offset %d in %q: "+format, append([]interface{}{pos, src}, args...)...)
	return errors.WithHint(err, "type expressions use TypeScript syntax, e.g. `{ id: string; tags?: string[] }`")
}

type parser struct {
	src  string
	toks []token
	pos  int
}

// parseExpr parses one complete type expression.
func parseExpr(src string) (*expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	e, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected %q after type", t.text)
	}
	return e, nil
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) is(text string) bool {
	t := p.peek()
	return t.kind == tokPunct && t.text == text
}

func (p *parser) accept(text string) bool {
	if p.is(text) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(text string) error {
	if !p.accept(text) {
		t := p.peek()
		if t.kind == tokEOF {
			return p.errorf(t, "expected %q, got end of input", text)
		}
		return p.errorf(t, "expected %q, got %q", text, t.text)
	}
	return nil
}

func (p *parser) errorf(t token, format string, args ...interface{}) error {
	return syntaxErr(p.src, t.pos, format, args...)
}

func (p *parser) parseType() (*expr, error) {
	start := p.peek().pos
	p.accept("|")
	first, err := p.parseIntersection()
	if err != nil {
		return nil, err
	}
	if !p.is("|") {
		return first, nil
	}
	u := &expr{kind: exprUnion, elems: []*expr{first}, offset: start}
	for p.accept("|") {
		m, err := p.parseIntersection()
		if err != nil {
			return nil, err
		}
		u.elems = append(u.elems, m)
	}
	return u, nil
}

func (p *parser) parseIntersection() (*expr, error) {
	start := p.peek().pos
	p.accept("&")
	first, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if !p.is("&") {
		return first, nil
	}
	in := &expr{kind: exprIntersection, elems: []*expr{first}, offset: start}
	for p.accept("&") {
		m, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		in.elems = append(in.elems, m)
	}
	return in, nil
}

func (p *parser) parsePostfix() (*expr, error) {
	t := p.peek()
	readonly := false
	if t.kind == tokIdent && t.text == "readonly" {
		p.next()
		readonly = true
	}
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.is("[") && p.peekAt(1).kind == tokPunct && p.peekAt(1).text == "]" {
		p.pos += 2
		e = &expr{kind: exprArray, elem: e, offset: e.offset}
	}
	if readonly {
		if e.kind != exprArray {
			return nil, p.errorf(t, "readonly is only valid on array types")
		}
		e.readonly = true
	}
	return e, nil
}

func (p *parser) parsePrimary() (*expr, error) {
	t := p.peek()
	switch t.kind {
	case tokString:
		p.next()
		return &expr{kind: exprLiteral, name: t.text, offset: t.pos}, nil
	case tokNumber:
		p.next()
		return &expr{kind: exprLiteral, name: t.text, offset: t.pos}, nil
	case tokIdent:
		return p.parseNamed()
	case tokEOF:
		return nil, p.errorf(t, "expected a type, got end of input")
	}

	switch t.text {
	case "(":
		if p.looksLikeFunction() {
			return p.parseFunction()
		}
		p.next()
		inner, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return inner, nil
	case "[":
		p.next()
		tup := &expr{kind: exprTuple, offset: t.pos}
		for !p.is("]") {
			el, err := p.parseType()
			if err != nil {
				return nil, err
			}
			tup.elems = append(tup.elems, el)
			if !p.accept(",") {
				break
			}
		}
		if err := p.expect("]"); err != nil {
			return nil, err
		}
		return tup, nil
	case "{":
		return p.parseObject()
	}
	return nil, p.errorf(t, "unexpected %q", t.text)
}

func (p *parser) parseNamed() (*expr, error) {
	t := p.next()
	if _, ok := keywords[t.text]; ok {
		if t.text == "true" || t.text == "false" {
			return &expr{kind: exprLiteral, name: t.text, offset: t.pos}, nil
		}
		return &expr{kind: exprKeyword, name: t.text, offset: t.pos}, nil
	}

	name := t.text
	for p.is(".") && p.peekAt(1).kind == tokIdent {
		p.next()
		name += "." + p.next().text
	}
	ref := &expr{kind: exprRef, name: name, offset: t.pos}
	if p.accept("<") {
		for {
			arg, err := p.parseType()
			if err != nil {
				return nil, err
			}
			ref.args = append(ref.args, arg)
			if !p.accept(",") {
				break
			}
		}
		if err := p.expect(">"); err != nil {
			return nil, err
		}
	}
	return ref, nil
}

// looksLikeFunction decides whether "(" opens a parameter list.
func (p *parser) looksLikeFunction() bool {
	a, b := p.peekAt(1), p.peekAt(2)
	if a.kind == tokPunct && a.text == ")" {
		return true
	}
	if a.kind == tokPunct && a.text == "..." {
		return true
	}
	return a.kind == tokIdent && b.kind == tokPunct && (b.text == ":" || b.text == "?" || b.text == ",")
}

func (p *parser) parseParams() ([]param, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var params []param
	for !p.is(")") {
		p.accept("...")
		t := p.next()
		if t.kind != tokIdent {
			return nil, p.errorf(t, "expected parameter name, got %q", t.text)
		}
		pr := param{name: t.text}
		pr.optional = p.accept("?")
		if p.accept(":") {
			typ, err := p.parseType()
			if err != nil {
				return nil, err
			}
			pr.typ = typ
		}
		params = append(params, pr)
		if !p.accept(",") {
			break
		}
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *parser) parseFunction() (*expr, error) {
	start := p.peek().pos
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	if err := p.expect("=>"); err != nil {
		return nil, err
	}
	result, err := p.parseType()
	if err != nil {
		return nil, err
	}
	return &expr{kind: exprFunc, params: params, result: result, offset: start}, nil
}

func (p *parser) parseObject() (*expr, error) {
	open := p.next()
	obj := &expr{kind: exprObject, offset: open.pos}
	for !p.is("}") {
		m, err := p.parseMember()
		if err != nil {
			return nil, err
		}
		obj.members = append(obj.members, m)
		if !p.accept(";") && !p.accept(",") {
			break
		}
	}
	if err := p.expect("}"); err != nil {
		return nil, err
	}
	return obj, nil
}

func (p *parser) parseMember() (*member, error) {
	t := p.peek()
	if t.kind == tokIdent && t.text == "readonly" {
		if n := p.peekAt(1); n.kind == tokIdent || n.kind == tokString || (n.kind == tokPunct && n.text == "[") {
			p.next()
		}
	}

	if p.accept("[") {
		key := p.next()
		if key.kind != tokIdent {
			return nil, p.errorf(key, "expected index parameter name")
		}
		if err := p.expect(":"); err != nil {
			return nil, err
		}
		kt := p.next()
		if kt.text != "string" && kt.text != "number" {
			return nil, p.errorf(kt, "index signature key must be string or number")
		}
		if err := p.expect("]"); err != nil {
			return nil, err
		}
		if err := p.expect(":"); err != nil {
			return nil, err
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return &member{index: kt.text, typ: typ}, nil
	}

	key := p.next()
	var name string
	switch key.kind {
	case tokIdent:
		name = key.text
	case tokString:
		name = unquote(key.text)
	case tokNumber:
		name = key.text
	default:
		return nil, p.errorf(key, "expected property name, got %q", key.text)
	}

	m := &member{name: name}
	m.optional = p.accept("?")
	if p.is("(") {
		params, err := p.parseParams()
		if err != nil {
			return nil, err
		}
		m.method = true
		result := &expr{kind: exprKeyword, name: "void", offset: key.pos}
		if p.accept(":") {
			if result, err = p.parseType(); err != nil {
				return nil, err
			}
		}
		m.typ = &expr{kind: exprFunc, params: params, result: result, offset: key.pos}
		return m, nil
	}
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	m.typ = typ
	return m, nil
}

func unquote(lit string) string {
	if len(lit) < 2 {
		return lit
	}
	body := lit[1 : len(lit)-1]
	if !strings.Contains(body, `\`) {
		return body
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			i++
		}
		b.WriteByte(body[i])
	}
	return b.String()
}
