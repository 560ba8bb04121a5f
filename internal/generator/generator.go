package generator

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/yourorg/routegen/internal/checker"
	"github.com/yourorg/routegen/internal/config"
	"github.com/yourorg/routegen/internal/emit"
	"github.com/yourorg/routegen/internal/expand"
	"github.com/yourorg/routegen/internal/filter"
	"github.com/yourorg/routegen/internal/gosource"
	"github.com/yourorg/routegen/internal/imports"
	"github.com/yourorg/routegen/internal/logger"
	"github.com/yourorg/routegen/internal/registry"
	"github.com/yourorg/routegen/internal/schema"
	"github.com/yourorg/routegen/internal/store"
	"github.com/yourorg/routegen/pkg/types"
)

// ErrStale is returned by Check when the output file does not match what
// generation would produce.
var ErrStale = errors.New("generated output is stale")

// ProgressFunc reports generation progress.
type ProgressFunc func(stage string)

// Output is a rendered declaration file held in memory.
type Output struct {
	Content  []byte
	Hash     string
	Registry *registry.Registry
	Imports  *imports.Manifest
	// Routes lists the emitted routes in declaration order.
	Routes []types.RunRoute
}

// Result describes a finished Generate call.
type Result struct {
	*Output
	Path    string
	Changed bool
	// Run is nil when history is disabled.
	Run *types.Run
}

// Render resolves and expands every route of doc and renders the
// declaration file without touching the filesystem.
func Render(ctx context.Context, doc *schema.Document, cfg *config.Config, onProgress ProgressFunc) (*Output, error) {
	if doc == nil {
		return nil, errors.New("document is nil")
	}
	if cfg == nil {
		cfg = config.Default()
	}

	report(onProgress, "filtering routes")
	routes := filter.Apply(filter.Normalize(doc.Routes, cfg.Filter.Prefix), cfg.Filter)

	manifest := imports.New()
	exp := expand.New(expand.Options{NormalizeAnyToUnknown: cfg.Emit.NormalizeAnyToUnknown}, manifest)
	res := &resolver{doc: doc, cfg: cfg}

	report(onProgress, fmt.Sprintf("expanding %d routes", len(routes)))
	entries := make([]registry.RouteEntry, 0, len(routes))
	runRoutes := make([]types.RunRoute, 0, len(routes))
	for i, r := range routes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry, err := expandRoute(ctx, exp, res, r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
		runRoutes = append(runRoutes, types.RunRoute{
			Seq:        i,
			Method:     entry.Method,
			Path:       entry.Path,
			Controller: r.Controller,
			Response:   entry.Response,
		})
	}

	report(onProgress, "building registry")
	reg := registry.Build(entries)
	for _, key := range reg.Duplicates() {
		logger.Warnw("duplicate route declaration", "route", key)
	}

	report(onProgress, "rendering declarations")
	content := emit.New(emit.Options{MapName: cfg.Emit.MapName}).Render(reg, manifest)
	return &Output{
		Content:  content,
		Hash:     hash(content),
		Registry: reg,
		Imports:  manifest,
		Routes:   runRoutes,
	}, nil
}

// Generate renders doc and writes the result to cfg.Output unless the file
// already holds identical content. When st is non-nil the run is recorded.
// On any failure nothing is written.
func Generate(ctx context.Context, doc *schema.Document, cfg *config.Config, st store.Store, onProgress ProgressFunc) (*Result, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	start := time.Now()

	var run *types.Run
	if st != nil {
		var err error
		run, err = st.CreateRun(cfg.Input, cfg.Output)
		if err != nil {
			return nil, err
		}
	}

	result, err := generate(ctx, doc, cfg, onProgress)
	if run != nil {
		run.Duration = time.Since(start)
		if err != nil {
			run.Status = types.RunFailed
			run.ErrorMsg = err.Error()
		} else {
			run.Status = types.RunSucceeded
			if !result.Changed {
				run.Status = types.RunUnchanged
			}
			run.ContentHash = result.Hash
			run.RouteCount = result.Registry.Len()
			run.PathCount = len(result.Registry.Paths())
		}
		if ferr := st.FinishRun(run); ferr != nil {
			logger.Errorw("record run", "run", run.ID, "error", ferr)
		}
		if err == nil {
			if serr := st.SaveRoutes(run.ID, result.Routes); serr != nil {
				logger.Errorw("record run routes", "run", run.ID, "error", serr)
			}
		}
	}
	if err != nil {
		return nil, err
	}
	result.Run = run

	logger.Infow("generation finished",
		"output", result.Path,
		"routes", result.Registry.Len(),
		"changed", result.Changed,
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

func generate(ctx context.Context, doc *schema.Document, cfg *config.Config, onProgress ProgressFunc) (*Result, error) {
	out, err := Render(ctx, doc, cfg, onProgress)
	if err != nil {
		return nil, err
	}
	result := &Result{Output: out, Path: cfg.Output}

	existing, err := readExisting(cfg.Output)
	if err != nil {
		return nil, err
	}
	if existing != nil && hash(existing) == out.Hash {
		report(onProgress, "output unchanged")
		return result, nil
	}

	report(onProgress, "writing "+cfg.Output)
	if err := emit.WriteFile(cfg.Output, out.Content); err != nil {
		return nil, err
	}
	result.Changed = true
	return result, nil
}

// Check renders doc and compares it with cfg.Output. It returns ErrStale
// when the file is missing or differs.
func Check(ctx context.Context, doc *schema.Document, cfg *config.Config) (*Output, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	out, err := Render(ctx, doc, cfg, nil)
	if err != nil {
		return nil, err
	}
	existing, err := readExisting(cfg.Output)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return out, errors.WithHint(errors.Wrapf(ErrStale, "%s does not exist", cfg.Output), "run `routegen generate`")
	}
	if !bytes.Equal(existing, out.Content) {
		return out, errors.WithHint(errors.Wrapf(ErrStale, "%s is out of date", cfg.Output), "run `routegen generate`")
	}
	return out, nil
}

func expandRoute(ctx context.Context, exp *expand.Expander, res *resolver, r types.RouteDecl) (registry.RouteEntry, error) {
	entry := registry.RouteEntry{Path: r.Path, Method: r.Method}
	slots := []struct {
		name  string
		field types.TypeField
		dst   *string
	}{
		{"body", r.Body, &entry.Body},
		{"query", r.Query, &entry.Query},
		{"params", r.Params, &entry.Params},
		{"headers", r.Headers, &entry.Headers},
		{"response", r.Response, &entry.Response},
	}
	for _, s := range slots {
		if s.field.IsZero() {
			continue
		}
		t, site, err := res.resolve(ctx, s.field.Expr)
		if err != nil {
			return entry, errors.Wrapf(err, "%s %s: %s", r.Method, r.Path, s.name)
		}
		if s.field.Ref {
			*s.dst = exp.Reference(t, site)
			continue
		}
		text, err := exp.Expand(t, site)
		if err != nil {
			return entry, errors.Wrapf(err, "%s %s: expand %s", r.Method, r.Path, s.name)
		}
		*s.dst = text
	}
	return entry, nil
}

// resolver dispatches an expression to the manifest or, for "go:"
// references, to Go packages loaded on first use.
type resolver struct {
	doc *schema.Document
	cfg *config.Config
	src *gosource.Source
}

func (r *resolver) resolve(ctx context.Context, expr string) (checker.Type, checker.Node, error) {
	if !gosource.IsRef(expr) {
		return r.doc.Resolve(expr)
	}
	if r.src == nil {
		logger.Debugw("loading Go packages", "dir", r.cfg.Go.Dir, "patterns", r.cfg.Go.Packages)
		src, err := gosource.Load(ctx, r.cfg.Go.Dir, r.cfg.Go.Imports, r.cfg.Go.Packages...)
		if err != nil {
			return nil, nil, err
		}
		r.src = src
	}
	return r.src.Resolve(expr)
}

func readExisting(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read existing output %s", path)
	}
	return data, nil
}

func hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func report(fn ProgressFunc, msg string) {
	if fn != nil {
		fn(msg)
	}
}
