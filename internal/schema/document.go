package schema

import (
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/yourorg/routegen/internal/checker"
	"github.com/yourorg/routegen/pkg/types"
)

// Document is a loaded route manifest.
type Document struct {
	Path     string
	Routes   []types.RouteDecl
	Universe *Universe
}

// Load reads a YAML or JSON route manifest.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read manifest %s", path)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "manifest %s", path)
	}
	doc.Path = path
	return doc, nil
}

// Parse decodes manifest bytes. JSON is accepted as a YAML subset.
func Parse(data []byte) (*Document, error) {
	var m types.Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.WithHint(errors.Wrap(err, "decode manifest"), "the manifest has top-level `modules` and `routes` keys")
	}
	u, err := NewUniverse(m.Modules)
	if err != nil {
		return nil, err
	}
	for i, r := range m.Routes {
		if r.Path == "" || r.Method == "" {
			return nil, errors.Newf("route %d: path and method are required", i)
		}
	}
	return &Document{Routes: m.Routes, Universe: u}, nil
}

// Resolve parses src and resolves it at the route site.
func (d *Document) Resolve(src string) (checker.Type, checker.Node, error) {
	return d.Universe.Resolve(src, "")
}

// Resolve parses src as seen from module and returns the type with its use
// site.
func (u *Universe) Resolve(src, module string) (checker.Type, checker.Node, error) {
	e, err := parseExpr(src)
	if err != nil {
		return nil, nil, err
	}
	t, err := u.build(e, module, nil)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "resolve %q", src)
	}
	return t, &Node{kind: checker.TypeReference, module: module}, nil
}
