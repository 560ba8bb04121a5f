// Package gosource implements the type-query capability over Go packages, so
// route slots can reference Go structs with "go:<import path>.<Type>".
package gosource

import (
	"context"
	"fmt"
	"go/types"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/tools/go/packages"

	"github.com/yourorg/routegen/internal/checker"
)

// Prefix marks a route slot expression as a Go type reference.
const Prefix = "go:"

var (
	// ErrUnknownType is returned when a referenced Go type does not exist.
	ErrUnknownType = errors.New("unknown Go type")
	// ErrForeignSite is returned for use sites this package did not create.
	ErrForeignSite = errors.New("use site does not belong to this Go source")
)

// IsRef reports whether expr references a Go type.
func IsRef(expr string) bool {
	return strings.HasPrefix(strings.TrimSpace(expr), Prefix)
}

// Source holds loaded packages and the converted types.
type Source struct {
	pkgs    map[string]*packages.Package
	modules map[string]string
	memo    map[types.Type]*Type
}

// Load loads the packages matching patterns from dir. modules maps Go
// package paths to the TypeScript module that declares their types; named
// types of unmapped packages are rendered without an import.
func Load(ctx context.Context, dir string, modules map[string]string, patterns ...string) (*Source, error) {
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	cfg := &packages.Config{
		Context: ctx,
		Dir:     dir,
		Mode:    packages.NeedName | packages.NeedTypes | packages.NeedSyntax | packages.NeedTypesInfo,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "load Go packages %s", strings.Join(patterns, " ")),
			"check `go.dir` and `go.packages` in the config",
		)
	}
	if len(pkgs) == 0 {
		return nil, errors.Newf("no Go packages found for %s", strings.Join(patterns, " "))
	}

	s := &Source{
		pkgs:    make(map[string]*packages.Package, len(pkgs)),
		modules: modules,
		memo:    make(map[types.Type]*Type),
	}
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			return nil, errors.Newf("package %s: %v", pkg.PkgPath, pkg.Errors)
		}
		s.pkgs[pkg.PkgPath] = pkg
	}
	return s, nil
}

// Packages returns the loaded package paths, sorted.
func (s *Source) Packages() []string {
	out := make([]string, 0, len(s.pkgs))
	for p := range s.pkgs {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Resolve looks up "go:<import path>.<Type>", optionally followed by one or
// more "[]".
func (s *Source) Resolve(ref string) (checker.Type, checker.Node, error) {
	target := strings.TrimPrefix(strings.TrimSpace(ref), Prefix)
	dims := 0
	for strings.HasSuffix(target, "[]") {
		target = strings.TrimSuffix(target, "[]")
		dims++
	}
	dot := strings.LastIndex(target, ".")
	if dot <= 0 || dot == len(target)-1 {
		return nil, nil, errors.WithHint(
			errors.Newf("malformed Go type reference %q", ref),
			"use go:<import path>.<Type>, e.g. go:example.com/api/users.User",
		)
	}
	pkgPath, name := target[:dot], target[dot+1:]

	pkg, ok := s.pkgs[pkgPath]
	if !ok {
		return nil, nil, errors.WithHint(
			errors.Wrapf(ErrUnknownType, "package %s is not loaded", pkgPath),
			fmt.Sprintf("add it to `go.packages`; loaded: %s", strings.Join(s.Packages(), ", ")),
		)
	}
	obj, ok := pkg.Types.Scope().Lookup(name).(*types.TypeName)
	if !ok {
		return nil, nil, errors.Wrapf(ErrUnknownType, "%s.%s", pkgPath, name)
	}

	t := s.typeOf(obj.Type())
	for i := 0; i < dims; i++ {
		t = &Type{kind: kindArray, flags: checker.Object, elem: t}
	}
	return t, &Node{kind: checker.TypeReference}, nil
}

func (s *Source) moduleFor(pkg *types.Package) string {
	if pkg == nil {
		return ""
	}
	return s.modules[pkg.Path()]
}
