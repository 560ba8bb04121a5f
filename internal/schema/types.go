package schema

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/yourorg/routegen/internal/checker"
)

// ErrForeignSite is returned when a symbol is resolved at a node that does
// not belong to a schema universe.
var ErrForeignSite = errors.New("use site does not belong to this schema")

type kind int

const (
	kindKeyword kind = iota
	kindLiteral
	kindEnum
	kindEnumLiteral
	kindUnion
	kindIntersection
	kindObject
	kindArray
	kindTuple
	kindFunc
	kindOpaque
	kindGeneric
	kindNamed
)

const maxAliasChain = 64

// Type is a schema type. Named references resolve their declaration body on
// first use.
type Type struct {
	kind  kind
	flags checker.Flags
	// keyword, literal, opaque or enum member text
	text     string
	members  []*Type
	props    []*Symbol
	strIndex *Type
	numIndex *Type
	elem     *Type
	readonly bool
	sym      *Symbol
	args     []*Type
	params   []*Symbol

	// named references
	alias     *Symbol
	lazy      func() *Type
	body      *Type
	resolving bool
}

var _ checker.Type = (*Type)(nil)

func typeOrNil(t *Type) checker.Type {
	if t == nil {
		return nil
	}
	return t
}

func symOrNil(s *Symbol) checker.Symbol {
	if s == nil {
		return nil
	}
	return s
}

func typeList(ts []*Type) []checker.Type {
	if len(ts) == 0 {
		return nil
	}
	out := make([]checker.Type, len(ts))
	for i, t := range ts {
		out[i] = t
	}
	return out
}

var anyType = &Type{kind: kindKeyword, flags: checker.Any, text: "any"}

func (t *Type) target() *Type {
	if t.body == nil {
		if t.resolving || t.lazy == nil {
			return anyType
		}
		t.resolving = true
		t.body = t.lazy()
		t.resolving = false
		if t.body == nil {
			t.body = anyType
		}
	}
	return t.body
}

// resolved follows alias chains to the structural type.
func (t *Type) resolved() *Type {
	cur := t
	for i := 0; cur.kind == kindNamed; i++ {
		if i > maxAliasChain {
			return anyType
		}
		cur = cur.target()
	}
	return cur
}

func (t *Type) Flags() checker.Flags {
	return t.resolved().flags
}

func (t *Type) Text(site checker.Node) string {
	return t.render(siteModule(site))
}

func (t *Type) render(from string) string {
	switch t.kind {
	case kindNamed:
		return qualify(t.alias, from) + argsText(t.args, from)
	case kindEnum, kindEnumLiteral:
		return qualify(t.sym, from) + t.text
	case kindUnion:
		return joinTexts(t.members, " | ", from)
	case kindIntersection:
		return joinTexts(t.members, " & ", from)
	case kindArray:
		inner := t.elem.render(from)
		if t.elem.needsParens() {
			inner = "(" + inner + ")"
		}
		if t.readonly {
			return "readonly " + inner + "[]"
		}
		return inner + "[]"
	case kindTuple:
		return "[" + joinTexts(t.members, ", ", from) + "]"
	case kindObject:
		return t.renderObject(from)
	case kindFunc:
		return t.renderFunc(from)
	case kindGeneric:
		return t.sym.name + argsText(t.args, from)
	}
	return t.text
}

func (t *Type) needsParens() bool {
	switch t.kind {
	case kindUnion, kindIntersection, kindFunc:
		return true
	}
	return false
}

func qualify(s *Symbol, from string) string {
	if s.module == "" || s.module == from {
		return s.name
	}
	return `import("` + s.module + `").` + s.name
}

func argsText(args []*Type, from string) string {
	if len(args) == 0 {
		return ""
	}
	return "<" + joinTexts(args, ", ", from) + ">"
}

func joinTexts(ts []*Type, sep, from string) string {
	parts := make([]string, len(ts))
	for i, m := range ts {
		parts[i] = m.render(from)
		if sep != ", " && m.kind == kindFunc {
			parts[i] = "(" + parts[i] + ")"
		}
	}
	return strings.Join(parts, sep)
}

func (t *Type) renderObject(from string) string {
	var parts []string
	if t.strIndex != nil {
		parts = append(parts, "[key: string]: "+t.strIndex.render(from))
	}
	if t.numIndex != nil {
		parts = append(parts, "[key: number]: "+t.numIndex.render(from))
	}
	for _, p := range t.props {
		q := ""
		if p.optional {
			q = "?"
		}
		if p.decl != nil && p.decl.kind == checker.MethodSignature && p.typ.kind == kindFunc {
			parts = append(parts, propKey(p.name)+q+p.typ.renderParams(from)+": "+p.typ.result().render(from))
			continue
		}
		parts = append(parts, propKey(p.name)+q+": "+p.typ.render(from))
	}
	if len(parts) == 0 {
		return "{}"
	}
	return "{ " + strings.Join(parts, "; ") + " }"
}

func (t *Type) renderParams(from string) string {
	parts := make([]string, len(t.params))
	for i, p := range t.params {
		q := ""
		if p.optional {
			q = "?"
		}
		parts[i] = p.name + q + ": " + p.typ.render(from)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (t *Type) result() *Type {
	return t.elem
}

func (t *Type) renderFunc(from string) string {
	return t.renderParams(from) + " => " + t.result().render(from)
}

func propKey(name string) string {
	for i, r := range name {
		if !(isIdentStart(r) || (i > 0 && isIdentPart(r))) {
			return "'" + strings.ReplaceAll(name, "'", `\'`) + "'"
		}
	}
	if name == "" {
		return "''"
	}
	return name
}

func (t *Type) AliasSymbol() checker.Symbol {
	if t.kind == kindNamed {
		return symOrNil(t.alias)
	}
	return nil
}

func (t *Type) AliasTypeArguments() []checker.Type {
	if t.kind == kindNamed {
		return typeList(t.args)
	}
	return nil
}

func (t *Type) Symbol() checker.Symbol {
	return symOrNil(t.resolved().sym)
}

func (t *Type) TargetSymbol() checker.Symbol {
	r := t.resolved()
	switch r.kind {
	case kindArray, kindGeneric:
		return symOrNil(r.sym)
	}
	return nil
}

func (t *Type) TypeArguments() []checker.Type {
	r := t.resolved()
	switch r.kind {
	case kindArray:
		return []checker.Type{r.elem}
	case kindGeneric:
		return typeList(r.args)
	}
	return nil
}

func (t *Type) properties() []*Symbol {
	r := t.resolved()
	if r.kind != kindIntersection {
		return r.props
	}
	seen := make(map[string]struct{})
	var out []*Symbol
	for _, m := range r.members {
		for _, p := range m.properties() {
			if _, ok := seen[p.name]; ok {
				continue
			}
			seen[p.name] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

func (t *Type) Properties() []checker.Symbol {
	props := t.properties()
	if len(props) == 0 {
		return nil
	}
	out := make([]checker.Symbol, len(props))
	for i, p := range props {
		out[i] = p
	}
	return out
}

func (t *Type) Property(name string) checker.Symbol {
	for _, p := range t.properties() {
		if p.name == name {
			return p
		}
	}
	return nil
}

func (t *Type) UnionTypes() []checker.Type {
	r := t.resolved()
	switch r.kind {
	case kindUnion, kindIntersection:
		return typeList(r.members)
	}
	return nil
}

func (t *Type) IsArray() bool {
	r := t.resolved()
	return r.kind == kindArray && !r.readonly
}

func (t *Type) IsReadonlyArray() bool {
	r := t.resolved()
	return r.kind == kindArray && r.readonly
}

func (t *Type) IsTuple() bool {
	return t.resolved().kind == kindTuple
}

func (t *Type) TupleElements() []checker.Type {
	r := t.resolved()
	if r.kind != kindTuple {
		return nil
	}
	return typeList(r.members)
}

func (t *Type) ArrayElementType() checker.Type {
	r := t.resolved()
	switch {
	case r.kind == kindArray:
		return r.elem
	case r.kind == kindGeneric && r.sym == builtinSymbols["ArrayLike"] && len(r.args) == 1:
		return r.args[0]
	}
	return nil
}

func (t *Type) indexType(numeric bool) *Type {
	r := t.resolved()
	if r.kind == kindIntersection {
		for _, m := range r.members {
			if idx := m.indexType(numeric); idx != nil {
				return idx
			}
		}
		return nil
	}
	if numeric {
		return r.numIndex
	}
	return r.strIndex
}

func (t *Type) StringIndexType() checker.Type {
	return typeOrNil(t.indexType(false))
}

func (t *Type) NumberIndexType() checker.Type {
	return typeOrNil(t.indexType(true))
}

// Symbol is a declaration, a builtin or an object member.
type Symbol struct {
	name     string
	optional bool
	module   string
	decl     *Node
	typ      *Type
}

var _ checker.Symbol = (*Symbol)(nil)

func (s *Symbol) Name() string   { return s.name }
func (s *Symbol) Optional() bool { return s.optional }
func (s *Symbol) Module() string { return s.module }

func (s *Symbol) Declaration() checker.Node {
	if s.decl == nil {
		return nil
	}
	return s.decl
}

// TypeAt returns the member's type. Optional members include undefined.
func (s *Symbol) TypeAt(site checker.Node) (checker.Type, error) {
	if site != nil {
		if _, ok := site.(*Node); !ok {
			return nil, errors.Wrapf(ErrForeignSite, "resolve %q", s.name)
		}
	}
	if s.typ == nil {
		return nil, nil
	}
	if s.optional {
		return withUndefined(s.typ), nil
	}
	return s.typ, nil
}

var undefinedType = &Type{kind: kindKeyword, flags: checker.Undefined, text: "undefined"}

func withUndefined(t *Type) *Type {
	if t.kind == kindUnion {
		for _, m := range t.members {
			if m.kind == kindKeyword && m.flags == checker.Undefined {
				return t
			}
		}
		members := append(append([]*Type(nil), t.members...), undefinedType)
		return &Type{kind: kindUnion, flags: checker.Union, members: members}
	}
	if t.kind == kindKeyword && t.flags.Has(checker.Undefined|checker.Any|checker.Unknown) {
		return t
	}
	return &Type{kind: kindUnion, flags: checker.Union, members: []*Type{t, undefinedType}}
}

// Node is a declaration or use site inside a module.
type Node struct {
	kind   checker.NodeKind
	module string
	init   *Node
	typ    *Type
}

var _ checker.Node = (*Node)(nil)

func (n *Node) Kind() checker.NodeKind { return n.kind }

func (n *Node) Initializer() checker.Node {
	if n.init == nil {
		return nil
	}
	return n.init
}

func (n *Node) Type() checker.Type {
	return typeOrNil(n.typ)
}

// Module returns the module the node belongs to.
func (n *Node) Module() string { return n.module }

func siteModule(site checker.Node) string {
	if n, ok := site.(*Node); ok && n != nil {
		return n.module
	}
	return ""
}
