package filter

import (
	"strings"

	"github.com/yourorg/routegen/internal/config"
	"github.com/yourorg/routegen/pkg/types"
)

// FilterConfig is an alias of config.FilterConfig.
type FilterConfig = config.FilterConfig

// Apply drops routes excluded by the config rules. Order is preserved.
func Apply(routes []types.RouteDecl, cfg FilterConfig) []types.RouteDecl {
	ignored := toUpperSet(cfg.IgnoreMethods)
	out := make([]types.RouteDecl, 0, len(routes))
	for _, r := range routes {
		if _, ok := ignored[strings.ToUpper(strings.TrimSpace(r.Method))]; ok {
			continue
		}
		if hasPrefix(r.Path, cfg.IgnorePaths) {
			continue
		}
		if len(nonEmpty(cfg.IncludePaths)) > 0 && !hasPrefix(r.Path, cfg.IncludePaths) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Normalize upper-cases methods and joins prefix and path into a single
// slash-separated path with a leading slash and no trailing slash.
func Normalize(routes []types.RouteDecl, prefix string) []types.RouteDecl {
	out := make([]types.RouteDecl, len(routes))
	for i, r := range routes {
		r.Method = strings.ToUpper(strings.TrimSpace(r.Method))
		r.Path = JoinPath(prefix, r.Path)
		out[i] = r
	}
	return out
}

// JoinPath joins URL path segments, collapsing repeated slashes.
func JoinPath(parts ...string) string {
	var segs []string
	for _, p := range parts {
		for _, s := range strings.Split(p, "/") {
			if s = strings.TrimSpace(s); s != "" {
				segs = append(segs, s)
			}
		}
	}
	return "/" + strings.Join(segs, "/")
}

func hasPrefix(p string, prefixes []string) bool {
	for _, pref := range prefixes {
		pref = strings.TrimSpace(pref)
		if pref == "" {
			continue
		}
		if strings.HasPrefix(p, pref) {
			return true
		}
	}
	return false
}

func nonEmpty(items []string) []string {
	var out []string
	for _, v := range items {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func toUpperSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, v := range items {
		v = strings.TrimSpace(strings.ToUpper(v))
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}
