// Package expand turns a type supplied by the checker capability into its
// canonical, fully flattened text.
//
// Rules are applied in a fixed order and the first match wins:
//
//  1. inferred row shapes (InferReturning<Columns>)
//  2. primitives, literals and the void family
//  3. any / unknown
//  4. opaque named types (Date, Buffer, Function, ...)
//  5. Promise<T>
//  6. cycle/memo check against the expansion cache
//  7. array-like types
//  8. unions
//  9. objects and intersections
//  10. the capability's own rendering, with import qualifications removed
//
// Unrecognised shapes always fall through to rule 10; only failures of the
// capability itself are returned as errors.
package expand

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/yourorg/routegen/internal/checker"
)

// Options tune the rendering.
type Options struct {
	// NormalizeAnyToUnknown renders any as unknown.
	NormalizeAnyToUnknown bool
}

// Recorder is told about every named type the produced text refers to by
// name, so the declaration file can import it.
type Recorder interface {
	Record(module, name string)
}

var opaqueNames = map[string]struct{}{
	"Date":        {},
	"Buffer":      {},
	"ArrayBuffer": {},
	"Uint8Array":  {},
	"Blob":        {},
	"Function":    {},
}

var rootObjectMembers = map[string]struct{}{
	"toString":             {},
	"toLocaleString":       {},
	"valueOf":              {},
	"hasOwnProperty":       {},
	"isPrototypeOf":        {},
	"propertyIsEnumerable": {},
	"constructor":          {},
}

const maxRecordDepth = 8

// Expander expands types. It holds no per-expansion state; every
// top-level call gets its own Cache.
type Expander struct {
	opts Options
	rec  Recorder
}

// New returns an Expander. rec may be nil.
func New(opts Options, rec Recorder) *Expander {
	return &Expander{opts: opts, rec: rec}
}

// Expand renders t as seen from site using a fresh cache.
func Expand(t checker.Type, site checker.Node, opts Options) (string, error) {
	return New(opts, nil).Expand(t, site)
}

// Expand renders t as seen from site. site may be nil.
func (e *Expander) Expand(t checker.Type, site checker.Node) (string, error) {
	return e.ExpandWith(t, site, NewCache())
}

// ExpandWith renders t threading cache through every recursive step.
func (e *Expander) ExpandWith(t checker.Type, site checker.Node, cache *Cache) (string, error) {
	if cache == nil {
		cache = NewCache()
	}
	return e.expand(t, site, cache)
}

// Reference renders t by name without expanding it and records the names
// it refers to.
func (e *Expander) Reference(t checker.Type, site checker.Node) string {
	if t == nil {
		return e.anyKeyword()
	}
	e.recordNamed(t, 0)
	return Sanitize(t.Text(site))
}

func (e *Expander) expand(t checker.Type, site checker.Node, c *Cache) (string, error) {
	if t == nil {
		return e.anyKeyword(), nil
	}

	if text, ok, err := e.expandInferredRow(t, site, c); err != nil || ok {
		return text, err
	}

	flags := t.Flags()
	switch {
	case flags.Has(checker.String):
		return "string", nil
	case flags.Has(checker.Number):
		return "number", nil
	case flags.Has(checker.Boolean):
		return "boolean", nil
	case flags.Has(checker.Null):
		return "null", nil
	case flags.Has(checker.Undefined):
		return "undefined", nil
	case flags.Has(checker.Void):
		return "void", nil
	case flags.Has(checker.Never):
		return "never", nil
	case flags.Has(checker.Literal):
		return t.Text(site), nil
	case flags.Has(checker.EnumLiteral):
		e.recordNamed(t, 0)
		return Sanitize(t.Text(site)), nil
	case flags.Has(checker.Any):
		return e.anyKeyword(), nil
	case flags.Has(checker.Unknown):
		return "unknown", nil
	}

	if name, ok := opaqueName(t); ok {
		e.recordNamed(t, 0)
		return name, nil
	}

	if isPromise(t) {
		args := t.TypeArguments()
		if len(args) == 0 {
			args = t.AliasTypeArguments()
		}
		if len(args) > 0 {
			return e.expand(args[0], site, c)
		}
		return "Promise<" + e.anyKeyword() + ">", nil
	}

	sig := Sanitize(t.Text(site))
	if placeholder, ok := c.Lookup(sig); ok {
		e.recordNamed(t, 0)
		return placeholder, nil
	}
	// a union or array reached again from inside its own expansion
	if c.inProgress(sig) {
		e.recordNamed(t, 0)
		return sig, nil
	}

	if _, ok := arrayLike(t, sig); ok {
		c.enter(sig)
		defer c.leave(sig)
		return e.expandArray(t, site, sig, c)
	}

	if flags.Has(checker.Union) {
		c.enter(sig)
		defer c.leave(sig)
		members := t.UnionTypes()
		parts := make([]string, 0, len(members))
		for _, m := range members {
			text, err := e.expand(m, site, c)
			if err != nil {
				return "", err
			}
			parts = append(parts, text)
		}
		return joinUnique(parts), nil
	}

	if flags.Has(checker.Object | checker.Intersection) {
		return e.expandObject(t, site, sig, c)
	}

	e.recordNamed(t, 0)
	return sig, nil
}

func (e *Expander) anyKeyword() string {
	if e.opts.NormalizeAnyToUnknown {
		return "unknown"
	}
	return "any"
}

func opaqueName(t checker.Type) (string, bool) {
	for _, s := range []checker.Symbol{t.AliasSymbol(), t.Symbol()} {
		name := checker.NameOf(s)
		if _, ok := opaqueNames[name]; ok {
			return name, true
		}
	}
	return "", false
}

func isPromise(t checker.Type) bool {
	for _, s := range []checker.Symbol{t.AliasSymbol(), t.Symbol(), t.TargetSymbol()} {
		if checker.NameOf(s) == "Promise" {
			return true
		}
	}
	return false
}

func (e *Expander) expandArray(t checker.Type, site checker.Node, sig string, c *Cache) (string, error) {
	if t.IsTuple() {
		elems := t.TupleElements()
		parts := make([]string, 0, len(elems))
		for _, el := range elems {
			text, err := e.expand(el, site, c)
			if err != nil {
				return "", err
			}
			parts = append(parts, text)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	}

	elem := t.ArrayElementType()
	if elem == nil {
		e.recordNamed(t, 0)
		return sig, nil
	}
	inner, err := e.expand(elem, site, c)
	if err != nil {
		return "", err
	}
	if needsArrayParens(inner) {
		inner = "(" + inner + ")"
	}
	if t.IsReadonlyArray() {
		return "readonly " + inner + "[]", nil
	}
	return inner + "[]", nil
}

func (e *Expander) expandObject(t checker.Type, site checker.Node, sig string, c *Cache) (string, error) {
	c.add(sig)

	props := t.Properties()
	if len(props) == 0 {
		if idx := t.StringIndexType(); idx != nil {
			inner, err := e.expand(idx, site, c)
			if err != nil {
				return "", err
			}
			return "{ [key: string]: " + inner + " }", nil
		}
		if idx := t.NumberIndexType(); idx != nil {
			inner, err := e.expand(idx, site, c)
			if err != nil {
				return "", err
			}
			return "{ [key: number]: " + inner + " }", nil
		}
		if t.Text(site) == "{}" {
			return "{}", nil
		}
		e.recordNamed(t, 0)
		return sig, nil
	}

	fields := make([]string, 0, len(props))
	for _, p := range props {
		if skipMember(p) {
			continue
		}
		field, err := e.expandProperty(p, site, c)
		if err != nil {
			return "", err
		}
		fields = append(fields, field)
	}
	if len(fields) == 0 {
		return "{}", nil
	}
	return "{ " + strings.Join(fields, "; ") + " }", nil
}

func skipMember(p checker.Symbol) bool {
	name := p.Name()
	if strings.HasPrefix(name, "__") {
		return true
	}
	if _, ok := rootObjectMembers[name]; ok {
		return true
	}
	if decl := p.Declaration(); decl != nil {
		switch decl.Kind() {
		case checker.MethodSignature, checker.MethodDeclaration:
			return true
		}
	}
	return false
}

func (e *Expander) expandProperty(p checker.Symbol, site checker.Node, c *Cache) (string, error) {
	key := FormatPropKey(p.Name())
	q := ""
	if p.Optional() {
		q = "?"
	}

	pt, err := resolveProperty(p, site)
	if err != nil {
		return "", err
	}
	if pt == nil {
		return key + ": any", nil
	}

	if pt.Flags().Has(checker.Any | checker.Unknown) {
		text, ok, err := e.columnDataText(p)
		if err != nil {
			return "", err
		}
		if ok {
			return key + q + ": " + text, nil
		}
	}

	if p.Optional() && pt.Flags().Has(checker.Union) {
		var defined []checker.Type
		for _, m := range pt.UnionTypes() {
			if !m.Flags().Has(checker.Undefined) {
				defined = append(defined, m)
			}
		}
		switch {
		case len(defined) == 1:
			pt = defined[0]
		case len(defined) > 1:
			parts := make([]string, 0, len(defined))
			for _, m := range defined {
				text, err := e.expand(m, site, c)
				if err != nil {
					return "", err
				}
				parts = append(parts, text)
			}
			return key + q + ": " + joinUnique(parts), nil
		}
	}

	text, err := e.expand(pt, site, c)
	if err != nil {
		return "", err
	}
	return key + q + ": " + text, nil
}

// resolveProperty resolves p at the use site when there is one and falls
// back to the property's own declaration.
func resolveProperty(p checker.Symbol, site checker.Node) (checker.Type, error) {
	if site != nil {
		t, err := p.TypeAt(site)
		if err != nil {
			return nil, errors.Wrapf(err, "resolve property %q", p.Name())
		}
		if t != nil {
			return t, nil
		}
	}
	decl := p.Declaration()
	if decl == nil {
		return nil, nil
	}
	t, err := p.TypeAt(decl)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve property %q at its declaration", p.Name())
	}
	return t, nil
}

// recordNamed reports the symbol t is rendered by, and the named type
// arguments it carries, to the recorder.
func (e *Expander) recordNamed(t checker.Type, depth int) {
	if e.rec == nil || t == nil || depth > maxRecordDepth {
		return
	}
	sym := t.AliasSymbol()
	args := t.AliasTypeArguments()
	if sym == nil {
		sym = t.Symbol()
		args = t.TypeArguments()
	}
	if sym != nil && sym.Module() != "" {
		e.rec.Record(sym.Module(), sym.Name())
	}
	for _, a := range args {
		e.recordNamed(a, depth+1)
	}
	if t.Flags().Has(checker.Union | checker.Intersection) {
		for _, m := range t.UnionTypes() {
			e.recordNamed(m, depth+1)
		}
	}
	if el := t.ArrayElementType(); el != nil {
		e.recordNamed(el, depth+1)
	}
}
