package schema

import (
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/routegen/internal/checker"
	"github.com/yourorg/routegen/pkg/types"
)

func TestParseExprRoundTripsText(t *testing.T) {
	u, err := NewUniverse(nil)
	require.NoError(t, err)

	tests := []struct{ src, want string }{
		{"string", "string"},
		{"'a' | \"b\"", `"a" | "b"`},
		{"| 'a' | 'b'", `"a" | "b"`},
		{"(string | number)[]", "(string | number)[]"},
		{"readonly string[]", "readonly string[]"},
		{"{ a: string; b?: number }", "{ a: string; b?: number }"},
		{"{ a: string, b: number, }", "{ a: string; b: number }"},
		{"{ readonly id: string }", "{ id: string }"},
		{"{ 'x-id': string }", "{ 'x-id': string }"},
		{"{ run(a: string, b?: number): void }", "{ run(a: string, b?: number): void }"},
		{"{ [key: string]: boolean }", "{ [key: string]: boolean }"},
		{"(a: string) => void", "(a: string) => void"},
		{"() => Promise<string>", "() => Promise<string>"},
		{"((a: string) => void)[]", "((a: string) => void)[]"},
		{"Record<string, Date>", "Record<string, Date>"},
		{"{ a: string } & { b: number }", "{ a: string } & { b: number }"},
	}
	for _, tt := range tests {
		typ, site, err := u.Resolve(tt.src, "")
		require.NoError(t, err, tt.src)
		assert.Equal(t, tt.want, typ.Text(site), tt.src)
	}
}

func TestParseExprErrors(t *testing.T) {
	for _, src := range []string{
		"",
		"{ a: string",
		"string |",
		"Array<string",
		"'unterminated",
		"readonly string",
		"{ [key: boolean]: string }",
		"string string",
		"#",
	} {
		_, err := parseExpr(src)
		require.Error(t, err, src)
		assert.True(t, errors.Is(err, ErrSyntax), src)
		assert.NotEmpty(t, errors.GetAllHints(err), src)
	}
}

func TestUniverseQualifiesForeignNames(t *testing.T) {
	u, err := NewUniverse(map[string]types.ModuleDecl{
		"./a": {Types: map[string]string{"A": "{ b: B }"}},
		"./b": {Types: map[string]string{"B": "{ id: string }"}},
	})
	require.NoError(t, err)

	typ, site, err := u.Resolve("A[]", "")
	require.NoError(t, err)
	assert.Equal(t, `import("./a").A[]`, typ.Text(site))

	typ, site, err = u.Resolve("A", "./a")
	require.NoError(t, err)
	assert.Equal(t, "A", typ.Text(site))

	b := typ.Property("b")
	require.NotNil(t, b)
	bt, err := b.TypeAt(site)
	require.NoError(t, err)
	assert.Equal(t, `import("./b").B`, bt.Text(site))
	assert.Equal(t, "B", checker.NameOf(bt.AliasSymbol()))
	assert.Equal(t, "./b", bt.AliasSymbol().Module())
	assert.True(t, bt.Flags().Has(checker.Object))
}

func TestUniverseErrors(t *testing.T) {
	tests := []struct {
		name    string
		modules map[string]types.ModuleDecl
		target  error
	}{
		{"unknown name", map[string]types.ModuleDecl{"./a": {Types: map[string]string{"A": "{ b: Missing }"}}}, ErrUnknownType},
		{"bad syntax", map[string]types.ModuleDecl{"./a": {Types: map[string]string{"A": "{ b: }"}}}, ErrSyntax},
		{"bad column", map[string]types.ModuleDecl{"./a": {Tables: map[string]types.Table{
			"t": {Columns: []types.Column{{Name: "c", Data: "Nope"}}},
		}}}, ErrUnknownType},
		{"unknown enum member", map[string]types.ModuleDecl{"./a": {
			Enums: map[string][]string{"E": {"X"}},
			Types: map[string]string{"A": "E.Y"},
		}}, ErrUnknownType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUniverse(tt.modules)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), err.Error())
		})
	}

	for name, modules := range map[string]map[string]types.ModuleDecl{
		"arity":        {"./a": {Types: map[string]string{"P<T>": "{ t: T }", "A": "P"}}},
		"builtin arity": {"./a": {Types: map[string]string{"A": "Promise<string, number>"}}},
		"bad key":      {"./a": {Types: map[string]string{"1A": "string"}}},
		"empty module": {"": {Types: map[string]string{"A": "string"}}},
	} {
		_, err := NewUniverse(modules)
		assert.Error(t, err, name)
	}
}

func TestUniverseAmbiguousNames(t *testing.T) {
	u, err := NewUniverse(map[string]types.ModuleDecl{
		"./a": {Types: map[string]string{"Dup": "string", "UsesDup": "Dup"}},
		"./b": {Types: map[string]string{"Dup": "number"}},
	})
	require.NoError(t, err)

	typ, _, err := u.Resolve("UsesDup", "")
	require.NoError(t, err)
	assert.True(t, typ.Flags().Has(checker.String))

	_, _, err = u.Resolve("Dup", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "./a, ./b")
}

func TestOptionalMembersIncludeUndefined(t *testing.T) {
	u, err := NewUniverse(nil)
	require.NoError(t, err)
	typ, site, err := u.Resolve("{ a?: string; b?: string | undefined; c?: any }", "")
	require.NoError(t, err)

	at := func(name string) checker.Type {
		p := typ.Property(name)
		require.NotNil(t, p)
		assert.True(t, p.Optional())
		pt, err := p.TypeAt(site)
		require.NoError(t, err)
		return pt
	}
	assert.Equal(t, "string | undefined", at("a").Text(site))
	assert.Equal(t, "string | undefined", at("b").Text(site))
	assert.Equal(t, "any", at("c").Text(site))
	assert.Nil(t, typ.Property("missing"))
}

func TestForeignSiteIsRejected(t *testing.T) {
	u, err := NewUniverse(nil)
	require.NoError(t, err)
	typ, _, err := u.Resolve("{ a: string }", "")
	require.NoError(t, err)

	_, err = typ.Property("a").TypeAt(otherNode{})
	assert.True(t, errors.Is(err, ErrForeignSite))

	pt, err := typ.Property("a").TypeAt(nil)
	require.NoError(t, err)
	assert.True(t, pt.Flags().Has(checker.String))
}

func TestBuiltinShapes(t *testing.T) {
	u, err := NewUniverse(nil)
	require.NoError(t, err)

	arr, _, err := u.Resolve("Array<string>", "")
	require.NoError(t, err)
	assert.True(t, arr.IsArray())
	assert.Equal(t, "Array", checker.NameOf(arr.TargetSymbol()))
	require.NotNil(t, arr.ArrayElementType())
	assert.True(t, arr.ArrayElementType().Flags().Has(checker.String))

	ro, _, err := u.Resolve("ReadonlyArray<string>", "")
	require.NoError(t, err)
	assert.True(t, ro.IsReadonlyArray())
	assert.False(t, ro.IsArray())

	tup, _, err := u.Resolve("[string, number]", "")
	require.NoError(t, err)
	assert.True(t, tup.IsTuple())
	assert.Len(t, tup.TupleElements(), 2)

	like, _, err := u.Resolve("ArrayLike<number>", "")
	require.NoError(t, err)
	assert.Equal(t, "ArrayLike", checker.NameOf(like.TargetSymbol()))
	require.NotNil(t, like.NumberIndexType())

	p, _, err := u.Resolve("Promise<string>", "")
	require.NoError(t, err)
	assert.Equal(t, "Promise", checker.NameOf(p.Symbol()))
	assert.Len(t, p.TypeArguments(), 1)

	d, _, err := u.Resolve("Date", "")
	require.NoError(t, err)
	assert.Equal(t, "Date", checker.NameOf(d.Symbol()))
	assert.Nil(t, d.Properties())
}

func TestTableColumns(t *testing.T) {
	u, err := NewUniverse(map[string]types.ModuleDecl{
		"./db": {Tables: map[string]types.Table{"posts": {Columns: []types.Column{
			{Name: "title", Data: "string", NotNull: true},
			{Name: "body", Data: "string"},
		}}}},
	})
	require.NoError(t, err)

	row, _, err := u.Resolve("InferReturning<posts>", "")
	require.NoError(t, err)
	assert.Equal(t, InferRowAlias, checker.NameOf(row.AliasSymbol()))

	args := row.AliasTypeArguments()
	require.Len(t, args, 1)
	props := args[0].Properties()
	require.Len(t, props, 2)
	assert.Equal(t, "title", props[0].Name())

	decl := props[1].Declaration()
	require.NotNil(t, decl)
	assert.Equal(t, checker.PropertyAssignment, decl.Kind())
	init := decl.Initializer()
	require.NotNil(t, init)
	config := init.Type().TypeArguments()[0]
	notNull, err := config.Property("notNull").TypeAt(init)
	require.NoError(t, err)
	assert.Equal(t, "false", notNull.Text(init))
}

func TestLoadYAMLManifest(t *testing.T) {
	doc, err := Load(filepath.Join("..", "..", "testdata", "routes.yaml"))
	require.NoError(t, err)
	require.Len(t, doc.Routes, 6)

	r := doc.Routes[4]
	assert.Equal(t, "/api/memberships", r.Path)
	assert.Equal(t, types.TypeField{Expr: "MembershipQueryDto", Ref: true}, r.Query)
	assert.True(t, r.Body.IsZero())

	typ, site, err := doc.Resolve(doc.Routes[0].Body.Expr)
	require.NoError(t, err)
	assert.Equal(t, `import("./auth/dto/signin.dto").SigninDto`, typ.Text(site))
}

func TestLoadJSONManifest(t *testing.T) {
	doc, err := Load(filepath.Join("..", "..", "testdata", "routes.json"))
	require.NoError(t, err)
	require.Len(t, doc.Routes, 2)
	assert.Equal(t, "WidgetInput", doc.Routes[0].Body.Expr)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join("..", "..", "testdata", "invalid.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownType))
	assert.Contains(t, err.Error(), "Missing")

	_, err = Load(filepath.Join("..", "..", "testdata", "does-not-exist.yaml"))
	require.Error(t, err)

	_, err = Parse([]byte("routes:\n  - path: /x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path and method are required")

	_, err = Parse([]byte("routes: [unclosed"))
	require.Error(t, err)
}

type otherNode struct{}

func (otherNode) Kind() checker.NodeKind    { return checker.OtherNode }
func (otherNode) Initializer() checker.Node { return nil }
func (otherNode) Type() checker.Type        { return nil }
