package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourorg/routegen/pkg/types"
)

func paths(routes []types.RouteDecl) []string {
	out := make([]string, len(routes))
	for i, r := range routes {
		out[i] = r.Method + " " + r.Path
	}
	return out
}

func TestApplyIgnoresMethodsAndPaths(t *testing.T) {
	cfg := FilterConfig{
		IgnoreMethods: []string{"options", " HEAD "},
		IgnorePaths:   []string{"/internal", " "},
	}
	routes := []types.RouteDecl{
		{Method: "GET", Path: "/users"},
		{Method: "OPTIONS", Path: "/users"},
		{Method: "head", Path: "/users"},
		{Method: "GET", Path: "/internal/metrics"},
		{Method: "POST", Path: "/users"},
	}

	assert.Equal(t, []string{"GET /users", "POST /users"}, paths(Apply(routes, cfg)))
}

func TestApplyIncludePaths(t *testing.T) {
	cfg := FilterConfig{IncludePaths: []string{"/v1/", "/health"}}
	routes := []types.RouteDecl{
		{Method: "GET", Path: "/v2/users"},
		{Method: "GET", Path: "/v1/users"},
		{Method: "GET", Path: "/health"},
	}

	assert.Equal(t, []string{"GET /v1/users", "GET /health"}, paths(Apply(routes, cfg)))
}

func TestApplyBlankIncludeKeepsAll(t *testing.T) {
	routes := []types.RouteDecl{{Method: "GET", Path: "/a"}, {Method: "PUT", Path: "/b"}}
	out := Apply(routes, FilterConfig{IncludePaths: []string{""}})
	assert.Len(t, out, 2)
}

func TestApplyEmptyConfigKeepsEverything(t *testing.T) {
	routes := []types.RouteDecl{{Method: "OPTIONS", Path: "/a"}}
	assert.Len(t, Apply(routes, FilterConfig{}), 1)
}

func TestNormalize(t *testing.T) {
	routes := []types.RouteDecl{
		{Method: "get", Path: "users/"},
		{Method: " Post", Path: "//users//:id"},
		{Method: "GET", Path: "/"},
	}

	out := Normalize(routes, "/api/")
	assert.Equal(t, []string{"GET /api/users", "POST /api/users/:id", "GET /api"}, paths(out))
	assert.Equal(t, "get", routes[0].Method, "input must not be mutated")
}

func TestJoinPath(t *testing.T) {
	cases := map[string][]string{
		"/":             {"", "/"},
		"/users":        {"users"},
		"/api/v1/users": {"/api/", "/v1", "users/"},
		"/a/b":          {"a//b"},
	}
	for want, parts := range cases {
		assert.Equal(t, want, JoinPath(parts...), "%q", parts)
	}
}
