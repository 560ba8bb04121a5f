package schema

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/yourorg/routegen/internal/checker"
	"github.com/yourorg/routegen/pkg/types"
)

// ErrUnknownType is returned when a type expression names something that is
// neither declared nor builtin.
var ErrUnknownType = errors.New("unknown type")

// InferRowAlias is the builtin that derives a row shape from a table.
const InferRowAlias = "InferReturning"

type builtin struct {
	arity int
	// build returns the structure for the given arguments.
	build func(args []*Type) *Type
}

var builtinSymbols = map[string]*Symbol{}

var builtins map[string]builtin

func init() {
	for _, name := range []string{
		"Promise", "Array", "ReadonlyArray", "ArrayLike", "Record", "Column",
		"Date", "Buffer", "ArrayBuffer", "Uint8Array", "Blob", "Function", InferRowAlias,
	} {
		builtinSymbols[name] = &Symbol{name: name}
	}

	opaque := func(name string) builtin {
		t := &Type{kind: kindOpaque, flags: checker.Object, text: name, sym: builtinSymbols[name]}
		return builtin{build: func([]*Type) *Type { return t }}
	}
	builtins = map[string]builtin{
		"Date":        opaque("Date"),
		"Buffer":      opaque("Buffer"),
		"ArrayBuffer": opaque("ArrayBuffer"),
		"Uint8Array":  opaque("Uint8Array"),
		"Blob":        opaque("Blob"),
		"Function":    opaque("Function"),
		"Promise": {arity: 1, build: func(args []*Type) *Type {
			return &Type{kind: kindGeneric, flags: checker.Object, sym: builtinSymbols["Promise"], args: args}
		}},
		"Array": {arity: 1, build: func(args []*Type) *Type {
			return newArray(args[0], false)
		}},
		"ReadonlyArray": {arity: 1, build: func(args []*Type) *Type {
			return newArray(args[0], true)
		}},
		"ArrayLike": {arity: 1, build: func(args []*Type) *Type {
			length := &Symbol{name: "length", typ: keywordTypes["number"]}
			return &Type{
				kind: kindGeneric, flags: checker.Object, sym: builtinSymbols["ArrayLike"], args: args,
				props: []*Symbol{length}, numIndex: args[0],
			}
		}},
	}
}

// newArray returns T[] or readonly T[].
func newArray(elem *Type, readonly bool) *Type {
	name := "Array"
	if readonly {
		name = "ReadonlyArray"
	}
	return &Type{kind: kindArray, flags: checker.Object, elem: elem, readonly: readonly, sym: builtinSymbols[name]}
}

var keywordTypes = map[string]*Type{
	"string":    {kind: kindKeyword, flags: checker.String, text: "string"},
	"number":    {kind: kindKeyword, flags: checker.Number, text: "number"},
	"boolean":   {kind: kindKeyword, flags: checker.Boolean, text: "boolean"},
	"null":      {kind: kindKeyword, flags: checker.Null, text: "null"},
	"undefined": undefinedType,
	"void":      {kind: kindKeyword, flags: checker.Void, text: "void"},
	"any":       anyType,
	"unknown":   {kind: kindKeyword, flags: checker.Unknown, text: "unknown"},
	"never":     {kind: kindKeyword, flags: checker.Never, text: "never"},
	"object":    {kind: kindKeyword, flags: checker.Object, text: "object"},
}

type decl struct {
	name   string
	module string
	params []string
	src    string
	body   *expr
	sym    *Symbol
}

type enumDecl struct {
	sym     *Symbol
	typ     *Type
	members map[string]*Type
}

type tableDecl struct {
	typ   *Type
	table types.Table
}

type scope struct {
	decls  map[string]*decl
	enums  map[string]*enumDecl
	tables map[string]*tableDecl
}

// Universe holds every module's declarations and resolves type expressions
// against them.
type Universe struct {
	modules map[string]*scope
	// owners lists, per declared name, the modules declaring it.
	owners map[string][]string
	named  map[*decl]*Type
}

// NewUniverse builds a universe from module declarations. Every declaration
// body is parsed and every name it references is checked.
func NewUniverse(modules map[string]types.ModuleDecl) (*Universe, error) {
	u := &Universe{
		modules: make(map[string]*scope, len(modules)),
		owners:  make(map[string][]string),
		named:   make(map[*decl]*Type),
	}

	paths := make([]string, 0, len(modules))
	for p := range modules {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if path == "" {
			return nil, errors.WithHint(errors.New("module with empty path"), "every key under `modules` must be an import path")
		}
		m := modules[path]
		sc := &scope{
			decls:  make(map[string]*decl),
			enums:  make(map[string]*enumDecl),
			tables: make(map[string]*tableDecl),
		}
		u.modules[path] = sc

		for key, src := range m.Types {
			name, params, err := parseDeclKey(key)
			if err != nil {
				return nil, errors.Wrapf(err, "module %s", path)
			}
			body, err := parseExpr(src)
			if err != nil {
				return nil, errors.Wrapf(err, "module %s: type %s", path, name)
			}
			d := &decl{name: name, module: path, params: params, src: src, body: body}
			d.sym = &Symbol{name: name, module: path, decl: &Node{kind: checker.TypeReference, module: path}}
			sc.decls[name] = d
			u.own(name, path)
		}
		for name, members := range m.Enums {
			e, err := newEnum(path, name, members)
			if err != nil {
				return nil, err
			}
			sc.enums[name] = e
			u.own(name, path)
		}
		for name, table := range m.Tables {
			if !isIdentifier(name) {
				return nil, errors.Newf("module %s: invalid table name %q", path, name)
			}
			sym := &Symbol{name: name, module: path}
			sc.tables[name] = &tableDecl{typ: &Type{kind: kindNamed, alias: sym}, table: table}
			u.own(name, path)
		}
	}

	for _, path := range paths {
		sc := u.modules[path]
		for _, name := range sortedKeys(sc.tables) {
			t := sc.tables[name]
			body, err := u.buildTable(path, name, t.table)
			if err != nil {
				return nil, err
			}
			t.typ.body = body
		}

		names := make([]string, 0, len(sc.decls))
		for n := range sc.decls {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			d := sc.decls[n]
			env := make(map[string]*Type, len(d.params))
			for _, p := range d.params {
				env[p] = keywordTypes["unknown"]
			}
			if _, err := u.build(d.body, path, env); err != nil {
				return nil, errors.Wrapf(err, "module %s: type %s", path, d.name)
			}
		}
	}
	return u, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (u *Universe) own(name, module string) {
	for _, m := range u.owners[name] {
		if m == module {
			return
		}
	}
	u.owners[name] = append(u.owners[name], module)
	sort.Strings(u.owners[name])
}

// parseDeclKey splits "Name<T, U>" into its name and parameters.
func parseDeclKey(key string) (string, []string, error) {
	key = strings.TrimSpace(key)
	open := strings.IndexByte(key, '<')
	if open < 0 {
		if !isIdentifier(key) {
			return "", nil, errors.Newf("invalid declaration name %q", key)
		}
		return key, nil, nil
	}
	if !strings.HasSuffix(key, ">") {
		return "", nil, errors.Newf("invalid declaration name %q", key)
	}
	name := strings.TrimSpace(key[:open])
	if !isIdentifier(name) {
		return "", nil, errors.Newf("invalid declaration name %q", key)
	}
	var params []string
	for _, p := range strings.Split(key[open+1:len(key)-1], ",") {
		p = strings.TrimSpace(p)
		if !isIdentifier(p) {
			return "", nil, errors.Newf("invalid type parameter %q in %q", p, key)
		}
		params = append(params, p)
	}
	return name, params, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !isIdentStart(r) || i > 0 && !isIdentPart(r) {
			return false
		}
	}
	return true
}

func newEnum(module, name string, members []string) (*enumDecl, error) {
	sym := &Symbol{name: name, module: module}
	e := &enumDecl{
		sym:     sym,
		typ:     &Type{kind: kindEnum, flags: checker.EnumLiteral, sym: sym},
		members: make(map[string]*Type, len(members)),
	}
	for _, member := range members {
		if !isIdentifier(member) {
			return nil, errors.Newf("module %s: enum %s: invalid member %q", module, name, member)
		}
		e.members[member] = &Type{kind: kindEnumLiteral, flags: checker.EnumLiteral, sym: sym, text: "." + member}
	}
	return e, nil
}

// buildTable turns a column list into a named object whose members are
// assigned Column<{ data: T; notNull: B }> builders.
func (u *Universe) buildTable(module, name string, table types.Table) (*Type, error) {
	obj := &Type{kind: kindObject, flags: checker.Object}
	for _, col := range table.Columns {
		dataExpr, err := parseExpr(col.Data)
		if err != nil {
			return nil, errors.Wrapf(err, "module %s: table %s: column %s", module, name, col.Name)
		}
		data, err := u.build(dataExpr, module, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "module %s: table %s: column %s", module, name, col.Name)
		}
		notNull := "false"
		if col.NotNull {
			notNull = "true"
		}
		config := &Type{kind: kindObject, flags: checker.Object, props: []*Symbol{
			{name: "data", decl: &Node{kind: checker.PropertySignature, module: module}, typ: data},
			{name: "notNull", decl: &Node{kind: checker.PropertySignature, module: module},
				typ: &Type{kind: kindLiteral, flags: checker.BooleanLiteral, text: notNull}},
		}}
		column := &Type{kind: kindGeneric, flags: checker.Object, sym: builtinSymbols["Column"], args: []*Type{config}}
		obj.props = append(obj.props, &Symbol{
			name: col.Name,
			decl: &Node{
				kind:   checker.PropertyAssignment,
				module: module,
				init:   &Node{kind: checker.OtherNode, module: module, typ: column},
			},
			typ: column,
		})
	}
	return obj, nil
}
