// Package emit serializes a route registry and its import manifest into a
// TypeScript declaration file.
package emit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/yourorg/routegen/internal/imports"
	"github.com/yourorg/routegen/internal/registry"
)

// Marker is the first line of every generated file.
const Marker = "// THIS FILE IS AUTO-GENERATED BY routegen. DO NOT EDIT."

// DefaultMapName names the exported route map interface.
const DefaultMapName = "ApiRoutes"

// Options controls rendering.
type Options struct {
	// MapName overrides the route map interface name.
	MapName string
}

// Emitter renders declaration files.
type Emitter struct {
	mapName string
}

// New returns an Emitter for opts.
func New(opts Options) *Emitter {
	name := opts.MapName
	if name == "" {
		name = DefaultMapName
	}
	return &Emitter{mapName: name}
}

// Render returns the declaration file text with default options.
func Render(reg *registry.Registry, manifest *imports.Manifest) []byte {
	return New(Options{}).Render(reg, manifest)
}

// Write renders with default options and writes outputPath.
func Write(outputPath string, reg *registry.Registry, manifest *imports.Manifest) error {
	return New(Options{}).Write(outputPath, reg, manifest)
}

// Render assembles the full file: marker, imports, helper library, route map.
func (e *Emitter) Render(reg *registry.Registry, manifest *imports.Manifest) []byte {
	b := &strings.Builder{}
	b.WriteString(Marker)
	b.WriteString("\n\n")

	if manifest != nil {
		mods := manifest.Render()
		for _, m := range mods {
			fmt.Fprintf(b, "import type { %s } from %s\n", strings.Join(m.Names, ", "), quote(m.Path))
		}
		if len(mods) > 0 {
			b.WriteByte('\n')
		}
	}

	writeHelpers(b, e.mapName)

	writeDoc(b, strings.NewReplacer(), []string{
		"Route map: path -> route metadata.",
		fmt.Sprintf("Example: %s['/api/auth/signin']", e.mapName),
	})
	fmt.Fprintf(b, "export interface %s {\n", e.mapName)
	if reg != nil {
		for _, path := range reg.Paths() {
			entries := reg.Entries(path)
			metas := make([]string, 0, len(entries))
			for _, r := range entries {
				metas = append(metas, routeMeta(r))
			}
			fmt.Fprintf(b, "  %s: %s\n", quote(path), strings.Join(metas, " | "))
		}
	}
	b.WriteString("}\n")
	return []byte(b.String())
}

func routeMeta(r registry.RouteEntry) string {
	return fmt.Sprintf("RouteMeta<%s, %s, %s, %s, %s, %s>",
		orNever(r.Body), orNever(r.Query), orNever(r.Params), orNever(r.Headers), orNever(r.Response),
		quote(r.Method))
}

func orNever(text string) string {
	if text == "" {
		return "never"
	}
	return text
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

// Write renders the file and replaces outputPath with it. Missing parent
// directories are created. The content goes to a temporary file in the same
// directory first, so a failed write never leaves a partial artifact.
func (e *Emitter) Write(outputPath string, reg *registry.Registry, manifest *imports.Manifest) error {
	return WriteFile(outputPath, e.Render(reg, manifest))
}

// WriteFile atomically replaces path with data.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create output directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "create temp file in %s", dir)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmpName)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return errors.Wrapf(err, "chmod %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrapf(err, "replace %s", path)
	}
	return nil
}
