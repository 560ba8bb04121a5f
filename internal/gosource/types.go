package gosource

import (
	"go/types"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/yourorg/routegen/internal/checker"
)

type kind int

const (
	kindKeyword kind = iota
	kindOpaque
	kindNamed
	kindUnion
	kindArray
	kindObject
)

// Type adapts a Go type to the capability interface.
type Type struct {
	src   *Source
	kind  kind
	flags checker.Flags
	text  string

	// named
	named *types.Named
	sym   *Symbol
	args  []*Type
	body  *Type

	members []*Type
	elem    *Type

	// object
	strct    *types.Struct
	loaded   bool
	props    []*Symbol
	strIndex *Type
	numIndex *Type
}

var _ checker.Type = (*Type)(nil)

var (
	stringType    = &Type{kind: kindKeyword, flags: checker.String, text: "string"}
	numberType    = &Type{kind: kindKeyword, flags: checker.Number, text: "number"}
	booleanType   = &Type{kind: kindKeyword, flags: checker.Boolean, text: "boolean"}
	nullType      = &Type{kind: kindKeyword, flags: checker.Null, text: "null"}
	undefinedType = &Type{kind: kindKeyword, flags: checker.Undefined, text: "undefined"}
	anyType       = &Type{kind: kindKeyword, flags: checker.Any, text: "any"}
	unknownType   = &Type{kind: kindKeyword, flags: checker.Unknown, text: "unknown"}
	dateType      = &Type{kind: kindOpaque, flags: checker.Object, text: "Date", sym: &Symbol{name: "Date"}}
	bufferType    = &Type{kind: kindOpaque, flags: checker.Object, text: "Buffer", sym: &Symbol{name: "Buffer"}}
)

func (s *Source) typeOf(t types.Type) *Type {
	if cached, ok := s.memo[t]; ok {
		return cached
	}
	out := s.convert(t)
	s.memo[t] = out
	return out
}

func (s *Source) convert(t types.Type) *Type {
	switch tt := types.Unalias(t).(type) {
	case *types.Named:
		obj := tt.Obj()
		if obj.Pkg() != nil && obj.Pkg().Path() == "time" && obj.Name() == "Time" {
			return dateType
		}
		named := &Type{
			src:   s,
			kind:  kindNamed,
			named: tt,
			sym:   &Symbol{name: obj.Name(), module: s.moduleFor(obj.Pkg())},
		}
		// registered before converting arguments so recursive
		// instantiations terminate
		s.memo[t] = named
		if targs := tt.TypeArgs(); targs != nil {
			for i := 0; i < targs.Len(); i++ {
				named.args = append(named.args, s.typeOf(targs.At(i)))
			}
		}
		return named

	case *types.Basic:
		return basicType(tt)

	case *types.Pointer:
		return &Type{kind: kindUnion, flags: checker.Union, members: []*Type{s.typeOf(tt.Elem()), nullType}}

	case *types.Slice:
		if isByte(tt.Elem()) {
			return bufferType
		}
		return &Type{kind: kindArray, flags: checker.Object, elem: s.typeOf(tt.Elem())}

	case *types.Array:
		return &Type{kind: kindArray, flags: checker.Object, elem: s.typeOf(tt.Elem())}

	case *types.Map:
		obj := &Type{src: s, kind: kindObject, flags: checker.Object, loaded: true}
		if b, ok := tt.Key().Underlying().(*types.Basic); ok && b.Info()&types.IsNumeric != 0 {
			obj.numIndex = s.typeOf(tt.Elem())
		} else {
			obj.strIndex = s.typeOf(tt.Elem())
		}
		return obj

	case *types.Interface:
		if tt.Empty() {
			return anyType
		}
		return unknownType

	case *types.Struct:
		return &Type{src: s, kind: kindObject, flags: checker.Object, strct: tt}
	}
	return unknownType
}

func basicType(b *types.Basic) *Type {
	info := b.Info()
	switch {
	case info&types.IsBoolean != 0:
		return booleanType
	case info&types.IsString != 0:
		return stringType
	case info&(types.IsInteger|types.IsFloat) != 0:
		return numberType
	case b.Kind() == types.UntypedNil:
		return nullType
	}
	return unknownType
}

func isByte(t types.Type) bool {
	b, ok := types.Unalias(t).(*types.Basic)
	return ok && b.Kind() == types.Byte
}

func (t *Type) resolved() *Type {
	if t.kind != kindNamed {
		return t
	}
	if t.body == nil {
		t.body = t.src.convert(t.named.Underlying())
	}
	return t.body
}

// fields flattens a struct into members following encoding/json naming:
// embedded structs without a json name contribute their fields in place and
// an outer field shadows an embedded one of the same name.
func (t *Type) fields() []*Symbol {
	if t.loaded {
		return t.props
	}
	t.loaded = true
	t.props = t.src.structFields(t.strct, nil, 0)
	return t.props
}

const maxEmbedDepth = 8

type structEntry struct {
	inner *types.Struct
	field *Symbol
}

func (s *Source) structFields(st *types.Struct, shadow map[string]struct{}, depth int) []*Symbol {
	var entries []structEntry
	blocked := make(map[string]struct{}, len(shadow)+st.NumFields())
	for name := range shadow {
		blocked[name] = struct{}{}
	}

	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		tag := parseJSONTag(st.Tag(i))
		if tag.skip {
			continue
		}

		ft := f.Type()
		ptr, isPtr := types.Unalias(ft).(*types.Pointer)
		if f.Anonymous() && tag.name == "" {
			base := ft
			if isPtr {
				base = ptr.Elem()
			}
			if inner, ok := base.Underlying().(*types.Struct); ok {
				entries = append(entries, structEntry{inner: inner})
				continue
			}
		}
		if !f.Exported() {
			continue
		}
		switch types.Unalias(ft).Underlying().(type) {
		case *types.Chan, *types.Signature:
			continue
		}

		name := tag.name
		if name == "" {
			name = f.Name()
		}
		if _, ok := shadow[name]; ok {
			continue
		}
		blocked[name] = struct{}{}
		entries = append(entries, structEntry{field: &Symbol{
			name:     name,
			optional: tag.omitempty || isPtr,
			decl:     &Node{kind: checker.PropertySignature},
			typ:      s.typeOf(ft),
		}})
	}

	var out []*Symbol
	emitted := make(map[string]struct{})
	for _, e := range entries {
		if e.field != nil {
			emitted[e.field.name] = struct{}{}
			out = append(out, e.field)
			continue
		}
		if depth >= maxEmbedDepth {
			continue
		}
		for _, f := range s.structFields(e.inner, blocked, depth+1) {
			if _, ok := emitted[f.name]; ok {
				continue
			}
			emitted[f.name] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}

type jsonTag struct {
	name      string
	omitempty bool
	skip      bool
}

func parseJSONTag(raw string) jsonTag {
	v, ok := reflect.StructTag(raw).Lookup("json")
	if !ok {
		return jsonTag{}
	}
	if v == "-" {
		return jsonTag{skip: true}
	}
	parts := strings.Split(v, ",")
	tag := jsonTag{name: parts[0]}
	for _, opt := range parts[1:] {
		if opt == "omitempty" || opt == "omitzero" {
			tag.omitempty = true
		}
	}
	return tag
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
		name := t.sym.name
		if t.sym.module != "" && t.sym.module != from {
			name = `import("` + t.sym.module + `").` + name
		}
		if len(t.args) == 0 {
			return name
		}
		parts := make([]string, len(t.args))
		for i, a := range t.args {
			parts[i] = a.render(from)
		}
		return name + "<" + strings.Join(parts, ", ") + ">"
	case kindUnion:
		parts := make([]string, len(t.members))
		for i, m := range t.members {
			parts[i] = m.render(from)
		}
		return strings.Join(parts, " | ")
	case kindArray:
		inner := t.elem.render(from)
		if t.elem.kind == kindUnion {
			inner = "(" + inner + ")"
		}
		return inner + "[]"
	case kindObject:
		var parts []string
		if t.strIndex != nil {
			parts = append(parts, "[key: string]: "+t.strIndex.render(from))
		}
		if t.numIndex != nil {
			parts = append(parts, "[key: number]: "+t.numIndex.render(from))
		}
		if t.strct != nil {
			for _, p := range t.fields() {
				q := ""
				if p.optional {
					q = "?"
				}
				parts = append(parts, propKey(p.name)+q+": "+p.typ.render(from))
			}
		}
		if len(parts) == 0 {
			return "{}"
		}
		return "{ " + strings.Join(parts, "; ") + " }"
	}
	return t.text
}

func propKey(name string) string {
	for i, r := range name {
		ok := r == '_' || r == '$' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || i > 0 && r >= '0' && r <= '9'
		if !ok {
			return "'" + strings.ReplaceAll(name, "'", `\'`) + "'"
		}
	}
	return name
}

func (t *Type) AliasSymbol() checker.Symbol {
	if t.kind == kindNamed {
		return t.sym
	}
	return nil
}

func (t *Type) AliasTypeArguments() []checker.Type {
	if t.kind != kindNamed {
		return nil
	}
	return typeList(t.args)
}

func (t *Type) Symbol() checker.Symbol {
	if t.kind == kindOpaque {
		return t.sym
	}
	return nil
}

func (t *Type) TargetSymbol() checker.Symbol { return nil }

func (t *Type) TypeArguments() []checker.Type {
	if r := t.resolved(); r.kind == kindArray {
		return []checker.Type{r.elem}
	}
	return nil
}

func (t *Type) Properties() []checker.Symbol {
	r := t.resolved()
	if r.kind != kindObject || r.strct == nil {
		return nil
	}
	fields := r.fields()
	if len(fields) == 0 {
		return nil
	}
	out := make([]checker.Symbol, len(fields))
	for i, f := range fields {
		out[i] = f
	}
	return out
}

func (t *Type) Property(name string) checker.Symbol {
	for _, p := range t.Properties() {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

func (t *Type) UnionTypes() []checker.Type {
	if r := t.resolved(); r.kind == kindUnion {
		return typeList(r.members)
	}
	return nil
}

func (t *Type) IsArray() bool         { return t.resolved().kind == kindArray }
func (t *Type) IsReadonlyArray() bool { return false }
func (t *Type) IsTuple() bool         { return false }

func (t *Type) TupleElements() []checker.Type { return nil }

func (t *Type) ArrayElementType() checker.Type {
	if r := t.resolved(); r.kind == kindArray {
		return r.elem
	}
	return nil
}

func (t *Type) StringIndexType() checker.Type {
	if r := t.resolved(); r.strIndex != nil {
		return r.strIndex
	}
	return nil
}

func (t *Type) NumberIndexType() checker.Type {
	if r := t.resolved(); r.numIndex != nil {
		return r.numIndex
	}
	return nil
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

// Symbol is a named Go type or a struct field.
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

// TypeAt returns the field type; optional fields include undefined.
func (s *Symbol) TypeAt(site checker.Node) (checker.Type, error) {
	if site != nil {
		if _, ok := site.(*Node); !ok {
			return nil, errors.Wrapf(ErrForeignSite, "resolve %q", s.name)
		}
	}
	if s.typ == nil {
		return nil, nil
	}
	if !s.optional {
		return s.typ, nil
	}
	if s.typ.kind == kindUnion {
		members := append(append([]*Type(nil), s.typ.members...), undefinedType)
		return &Type{kind: kindUnion, flags: checker.Union, members: members}, nil
	}
	return &Type{kind: kindUnion, flags: checker.Union, members: []*Type{s.typ, undefinedType}}, nil
}

// Node is a use site or field declaration.
type Node struct {
	kind   checker.NodeKind
	module string
}

var _ checker.Node = (*Node)(nil)

func (n *Node) Kind() checker.NodeKind    { return n.kind }
func (n *Node) Initializer() checker.Node { return nil }
func (n *Node) Type() checker.Type        { return nil }

func siteModule(site checker.Node) string {
	if n, ok := site.(*Node); ok && n != nil {
		return n.module
	}
	return ""
}
