// Package registry groups expanded route entries by path in a deterministic
// order.
package registry

import (
	"sort"
)

// RouteEntry is one path+verb with its expanded request and response shapes.
type RouteEntry struct {
	Path     string
	Method   string
	Body     string
	Query    string
	Params   string
	Headers  string
	Response string
}

// Key identifies an entry within the registry.
func (e RouteEntry) Key() string {
	return e.Method + " " + e.Path
}

// Registry maps paths to their entries. Paths are sorted ascending and the
// entries of a path are sorted by verb; entries sharing path and verb keep
// the order they were given in.
type Registry struct {
	paths   []string
	entries map[string][]RouteEntry
	dups    []string
}

// Build groups entries by path.
func Build(entries []RouteEntry) *Registry {
	r := &Registry{entries: make(map[string][]RouteEntry)}
	seen := make(map[string]int, len(entries))
	for _, e := range entries {
		if _, ok := r.entries[e.Path]; !ok {
			r.paths = append(r.paths, e.Path)
		}
		r.entries[e.Path] = append(r.entries[e.Path], e)

		seen[e.Key()]++
		if seen[e.Key()] == 2 {
			r.dups = append(r.dups, e.Key())
		}
	}

	sort.Strings(r.paths)
	for _, p := range r.paths {
		group := r.entries[p]
		sort.SliceStable(group, func(i, j int) bool { return group[i].Method < group[j].Method })
	}
	sort.Strings(r.dups)
	return r
}

// Paths returns the registered paths in ascending order.
func (r *Registry) Paths() []string {
	return append([]string(nil), r.paths...)
}

// Entries returns the entries registered for path, sorted by verb.
func (r *Registry) Entries(path string) []RouteEntry {
	return append([]RouteEntry(nil), r.entries[path]...)
}

// Len returns the total number of entries.
func (r *Registry) Len() int {
	n := 0
	for _, group := range r.entries {
		n += len(group)
	}
	return n
}

// All returns every entry in emission order.
func (r *Registry) All() []RouteEntry {
	out := make([]RouteEntry, 0, r.Len())
	for _, p := range r.paths {
		out = append(out, r.entries[p]...)
	}
	return out
}

// Duplicates lists the "VERB path" keys registered more than once. They are
// kept in the registry; callers decide whether to warn.
func (r *Registry) Duplicates() []string {
	return append([]string(nil), r.dups...)
}
