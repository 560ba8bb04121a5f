package types

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Manifest is the route manifest document: modules of type declarations and
// the routes that reference them.
type Manifest struct {
	Modules map[string]ModuleDecl `yaml:"modules" json:"modules"`
	Routes  []RouteDecl           `yaml:"routes" json:"routes"`
}

// ModuleDecl holds the declarations of one source module.
type ModuleDecl struct {
	// Types maps "Name" or "Name<T, U>" to a type expression.
	Types map[string]string `yaml:"types,omitempty" json:"types,omitempty"`
	// Enums maps an enum name to its member names.
	Enums  map[string][]string `yaml:"enums,omitempty" json:"enums,omitempty"`
	Tables map[string]Table    `yaml:"tables,omitempty" json:"tables,omitempty"`
}

// Table is a persistence table; column order is kept as written.
type Table struct {
	Columns []Column
}

// Column describes one column's storage type.
type Column struct {
	Name    string `yaml:"-"`
	Data    string `yaml:"data"`
	NotNull bool   `yaml:"notNull"`
}

// UnmarshalYAML decodes a column mapping in document order.
func (t *Table) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: table must be a mapping of columns", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var col Column
		if err := node.Content[i+1].Decode(&col); err != nil {
			return err
		}
		col.Name = node.Content[i].Value
		t.Columns = append(t.Columns, col)
	}
	return nil
}

// TypeField is a type expression in a route slot. Ref keeps a named type by
// name instead of expanding it.
type TypeField struct {
	Expr string `yaml:"type" json:"type"`
	Ref  bool   `yaml:"ref,omitempty" json:"ref,omitempty"`
}

// IsZero reports whether the field is unset.
func (f TypeField) IsZero() bool {
	return f.Expr == ""
}

// UnmarshalYAML accepts either a bare expression or {type, ref}.
func (f *TypeField) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		f.Expr = node.Value
		f.Ref = false
		return nil
	}
	type plain TypeField
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*f = TypeField(p)
	return nil
}
