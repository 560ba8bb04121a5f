package schema

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/yourorg/routegen/internal/checker"
)

// build turns a parsed expression into a Type as seen from module. env binds
// type parameters. Named references are resolved lazily.
func (u *Universe) build(e *expr, module string, env map[string]*Type) (*Type, error) {
	switch e.kind {
	case exprKeyword:
		return keywordTypes[e.name], nil

	case exprLiteral:
		return literalType(e.name), nil

	case exprRef:
		return u.buildRef(e, module, env)

	case exprArray:
		elem, err := u.build(e.elem, module, env)
		if err != nil {
			return nil, err
		}
		return newArray(elem, e.readonly), nil

	case exprTuple:
		elems, err := u.buildAll(e.elems, module, env)
		if err != nil {
			return nil, err
		}
		return &Type{kind: kindTuple, flags: checker.Object, members: elems}, nil

	case exprUnion:
		members, err := u.buildAll(e.elems, module, env)
		if err != nil {
			return nil, err
		}
		var flat []*Type
		for _, m := range members {
			if m.kind == kindUnion {
				flat = append(flat, m.members...)
				continue
			}
			flat = append(flat, m)
		}
		return &Type{kind: kindUnion, flags: checker.Union, members: flat}, nil

	case exprIntersection:
		members, err := u.buildAll(e.elems, module, env)
		if err != nil {
			return nil, err
		}
		return &Type{kind: kindIntersection, flags: checker.Intersection, members: members}, nil

	case exprObject:
		return u.buildObject(e, module, env)

	case exprFunc:
		return u.buildFunc(e, module, env)
	}
	return nil, errors.AssertionFailedf("unhandled expression kind %d", e.kind)
}

func (u *Universe) buildAll(es []*expr, module string, env map[string]*Type) ([]*Type, error) {
	out := make([]*Type, 0, len(es))
	for _, e := range es {
		t, err := u.build(e, module, env)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func literalType(text string) *Type {
	switch {
	case text == "true" || text == "false":
		return &Type{kind: kindLiteral, flags: checker.BooleanLiteral, text: text}
	case strings.HasPrefix(text, "'") || strings.HasPrefix(text, `"`):
		body := unquote(text)
		return &Type{kind: kindLiteral, flags: checker.StringLiteral, text: `"` + strings.ReplaceAll(body, `"`, `\"`) + `"`}
	}
	return &Type{kind: kindLiteral, flags: checker.NumberLiteral, text: text}
}

func (u *Universe) buildObject(e *expr, module string, env map[string]*Type) (*Type, error) {
	obj := &Type{kind: kindObject, flags: checker.Object}
	for _, m := range e.members {
		t, err := u.build(m.typ, module, env)
		if err != nil {
			return nil, err
		}
		switch {
		case m.index == "string":
			obj.strIndex = t
		case m.index == "number":
			obj.numIndex = t
		default:
			k := checker.PropertySignature
			if m.method {
				k = checker.MethodSignature
			}
			obj.props = append(obj.props, &Symbol{
				name:     m.name,
				optional: m.optional,
				decl:     &Node{kind: k, module: module},
				typ:      t,
			})
		}
	}
	return obj, nil
}

func (u *Universe) buildFunc(e *expr, module string, env map[string]*Type) (*Type, error) {
	fn := &Type{kind: kindFunc, flags: checker.Object}
	for _, p := range e.params {
		t := anyType
		if p.typ != nil {
			var err error
			if t, err = u.build(p.typ, module, env); err != nil {
				return nil, err
			}
		}
		fn.params = append(fn.params, &Symbol{name: p.name, optional: p.optional, typ: t})
	}
	result, err := u.build(e.result, module, env)
	if err != nil {
		return nil, err
	}
	fn.elem = result
	return fn, nil
}

func (u *Universe) buildRef(e *expr, module string, env map[string]*Type) (*Type, error) {
	if enumName, member, ok := strings.Cut(e.name, "."); ok {
		en, _, err := u.lookupEnum(enumName, module)
		if err != nil {
			return nil, err
		}
		t, ok := en.members[member]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownType, "%s has no member %s", enumName, member)
		}
		if len(e.args) > 0 {
			return nil, errors.Newf("enum member %s takes no type arguments", e.name)
		}
		return t, nil
	}

	if t, ok := env[e.name]; ok {
		if len(e.args) > 0 {
			return nil, errors.Newf("type parameter %s takes no type arguments", e.name)
		}
		return t, nil
	}

	args, err := u.buildAll(e.args, module, env)
	if err != nil {
		return nil, err
	}

	if sc, ok := u.modules[module]; ok {
		if t, found, err := u.fromScope(sc, e.name, args); found {
			return t, err
		}
	}
	if t, found, err := buildBuiltin(e.name, args); found {
		return t, err
	}

	owners := u.owners[e.name]
	switch len(owners) {
	case 0:
		return nil, errors.WithHint(
			errors.Wrapf(ErrUnknownType, "%s", e.name),
			"declare it under `modules.<path>.types` or use a builtin such as Promise, Array, Record or Date",
		)
	case 1:
		t, _, err := u.fromScope(u.modules[owners[0]], e.name, args)
		return t, err
	}
	return nil, errors.WithHint(
		errors.Newf("type %s is declared in several modules: %s", e.name, strings.Join(owners, ", ")),
		"rename one of the declarations",
	)
}

func (u *Universe) fromScope(sc *scope, name string, args []*Type) (*Type, bool, error) {
	if d, ok := sc.decls[name]; ok {
		t, err := u.instantiate(d, args)
		return t, true, err
	}
	if en, ok := sc.enums[name]; ok {
		if len(args) > 0 {
			return nil, true, errors.Newf("enum %s takes no type arguments", name)
		}
		return en.typ, true, nil
	}
	if tb, ok := sc.tables[name]; ok {
		if len(args) > 0 {
			return nil, true, errors.Newf("table %s takes no type arguments", name)
		}
		return tb.typ, true, nil
	}
	return nil, false, nil
}

func (u *Universe) lookupEnum(name, module string) (*enumDecl, string, error) {
	if sc, ok := u.modules[module]; ok {
		if en, ok := sc.enums[name]; ok {
			return en, module, nil
		}
	}
	var found []string
	for _, m := range u.owners[name] {
		if _, ok := u.modules[m].enums[name]; ok {
			found = append(found, m)
		}
	}
	switch len(found) {
	case 0:
		return nil, "", errors.Wrapf(ErrUnknownType, "enum %s", name)
	case 1:
		return u.modules[found[0]].enums[name], found[0], nil
	}
	return nil, "", errors.Newf("enum %s is declared in several modules: %s", name, strings.Join(found, ", "))
}

func (u *Universe) instantiate(d *decl, args []*Type) (*Type, error) {
	if len(args) != len(d.params) {
		return nil, errors.Newf("type %s expects %d type argument(s), got %d", d.name, len(d.params), len(args))
	}
	if len(args) == 0 {
		if t, ok := u.named[d]; ok {
			return t, nil
		}
	}

	t := &Type{kind: kindNamed, alias: d.sym, args: args}
	t.lazy = func() *Type {
		env := make(map[string]*Type, len(args))
		for i, p := range d.params {
			env[p] = args[i]
		}
		body, err := u.build(d.body, d.module, env)
		if err != nil {
			// names were checked when the universe was built
			return anyType
		}
		return body
	}
	if len(args) == 0 {
		u.named[d] = t
	}
	return t, nil
}

func buildBuiltin(name string, args []*Type) (*Type, bool, error) {
	switch name {
	case "Record":
		if len(args) != 2 {
			return nil, true, errors.Newf("Record expects 2 type arguments, got %d", len(args))
		}
		t := &Type{kind: kindNamed, alias: builtinSymbols["Record"], args: args}
		t.lazy = func() *Type { return recordBody(args[0], args[1]) }
		return t, true, nil

	case InferRowAlias:
		if len(args) != 1 {
			return nil, true, errors.Newf("%s expects 1 type argument, got %d", InferRowAlias, len(args))
		}
		t := &Type{kind: kindNamed, alias: builtinSymbols[InferRowAlias], args: args}
		t.lazy = func() *Type { return args[0] }
		return t, true, nil
	}

	b, ok := builtins[name]
	if !ok {
		return nil, false, nil
	}
	if len(args) != b.arity {
		if b.arity == 0 {
			return nil, true, errors.Newf("%s takes no type arguments", name)
		}
		return nil, true, errors.Newf("%s expects %d type argument(s), got %d", name, b.arity, len(args))
	}
	return b.build(args), true, nil
}

// recordBody maps Record<K, V> to an object: literal keys become members,
// string and number keys become index signatures.
func recordBody(key, value *Type) *Type {
	obj := &Type{kind: kindObject, flags: checker.Object}
	k := key.resolved()
	var keys []*Type
	if k.kind == kindUnion {
		keys = k.members
	} else {
		keys = []*Type{k}
	}
	for _, kt := range keys {
		kt = kt.resolved()
		switch {
		case kt.flags.Has(checker.Number):
			obj.numIndex = value
		case kt.flags.Has(checker.StringLiteral):
			obj.props = append(obj.props, &Symbol{name: unquote(kt.text), decl: &Node{kind: checker.PropertySignature}, typ: value})
		case kt.flags.Has(checker.NumberLiteral):
			obj.props = append(obj.props, &Symbol{name: kt.text, decl: &Node{kind: checker.PropertySignature}, typ: value})
		default:
			obj.strIndex = value
		}
	}
	return obj
}
