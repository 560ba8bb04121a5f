// Package imports accumulates the named types a generated declaration file
// must import, per source module.
package imports

import "sort"

// Module is one rendered import: a module path and its sorted type names.
type Module struct {
	Path  string
	Names []string
}

// Manifest records module → type-name sets. It only grows.
type Manifest struct {
	modules map[string]map[string]struct{}
}

// New returns an empty manifest.
func New() *Manifest {
	return &Manifest{modules: make(map[string]map[string]struct{})}
}

// Record adds name to module's set. Empty values are ignored.
func (m *Manifest) Record(module, name string) {
	if module == "" || name == "" {
		return
	}
	names, ok := m.modules[module]
	if !ok {
		names = make(map[string]struct{})
		m.modules[module] = names
	}
	names[name] = struct{}{}
}

// Len returns the number of modules recorded.
func (m *Manifest) Len() int {
	return len(m.modules)
}

// Render returns the modules sorted by path, each with deduplicated,
// sorted names.
func (m *Manifest) Render() []Module {
	paths := make([]string, 0, len(m.modules))
	for p := range m.modules {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	out := make([]Module, 0, len(paths))
	for _, p := range paths {
		names := make([]string, 0, len(m.modules[p]))
		for n := range m.modules[p] {
			names = append(names, n)
		}
		sort.Strings(names)
		out = append(out, Module{Path: p, Names: names})
	}
	return out
}
