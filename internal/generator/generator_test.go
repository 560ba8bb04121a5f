package generator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/routegen/internal/config"
	"github.com/yourorg/routegen/internal/emit"
	"github.com/yourorg/routegen/internal/schema"
	"github.com/yourorg/routegen/internal/store"
	"github.com/yourorg/routegen/pkg/types"
)

func loadFixture(t *testing.T) *schema.Document {
	t.Helper()
	doc, err := schema.Load(filepath.Join("..", "..", "testdata", "routes.yaml"))
	require.NoError(t, err)
	return doc
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Input = filepath.Join("..", "..", "testdata", "routes.yaml")
	cfg.Output = filepath.Join(t.TempDir(), "generated", "api-routes.d.ts")
	return cfg
}

func TestRenderFixture(t *testing.T) {
	var stages []string
	out, err := Render(context.Background(), loadFixture(t), testConfig(t), func(s string) { stages = append(stages, s) })
	require.NoError(t, err)
	content := string(out.Content)

	assert.True(t, strings.HasPrefix(content, emit.Marker+"\n\n"))
	assert.Contains(t, content, "import type { Membership, MembershipQueryDto } from './memberships/dto'\n")
	assert.Contains(t, content, "import type { Role } from './users/dto'\n")
	assert.Contains(t, content,
		"  '/api/auth/signin': RouteMeta<{ email: string; password: string }, never, never, never, { accessToken: string; refreshToken?: string; expiresIn: number }, 'POST'>\n")
	assert.Contains(t, content,
		"  '/api/memberships': RouteMeta<never, MembershipQueryDto, never, never, { userId: number; orgId: string; since: Date; parent?: Membership }[], 'GET'>\n")
	assert.Contains(t, content, "{ id: number; email: string; bio: string | null; role: Role }[]")
	assert.Contains(t, content, "{ 'x-request-id'?: string }")
	assert.NotContains(t, content, "/api/health")

	assert.Equal(t, []string{"/api/auth/signin", "/api/memberships", "/api/users", "/api/users/:id"}, out.Registry.Paths())
	byID := out.Registry.Entries("/api/users/:id")
	require.Len(t, byID, 2)
	assert.Equal(t, "GET", byID[0].Method)
	assert.Equal(t, "PATCH", byID[1].Method)

	require.Len(t, out.Routes, 5)
	assert.Equal(t, "AuthController.signin", out.Routes[0].Controller)
	assert.Len(t, out.Hash, 64)
	assert.NotEmpty(t, stages)
}

func TestRenderIsDeterministic(t *testing.T) {
	doc := loadFixture(t)
	cfg := testConfig(t)
	first, err := Render(context.Background(), doc, cfg, nil)
	require.NoError(t, err)

	reversed := *doc
	reversed.Routes = make([]types.RouteDecl, len(doc.Routes))
	for i, r := range doc.Routes {
		reversed.Routes[len(doc.Routes)-1-i] = r
	}
	second, err := Render(context.Background(), &reversed, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, string(first.Content), string(second.Content))
}

func TestRenderPrefixAndFilter(t *testing.T) {
	cfg := testConfig(t)
	cfg.Filter.Prefix = "/v2"
	cfg.Filter.IgnoreMethods = nil
	cfg.Filter.IgnorePaths = []string{"/v2/api/users"}

	out, err := Render(context.Background(), loadFixture(t), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/v2/api/auth/signin", "/v2/api/health", "/v2/api/memberships"}, out.Registry.Paths())
	assert.Contains(t, string(out.Content), `RouteMeta<never, never, never, never, "ok", 'OPTIONS'>`)
}

func TestRenderEmitOptions(t *testing.T) {
	doc, err := schema.Parse([]byte(`
routes:
  - path: /echo
    method: post
    body: "{ payload: any }"
    response: any
`))
	require.NoError(t, err)
	cfg := testConfig(t)
	cfg.Emit.MapName = "Endpoints"
	cfg.Emit.NormalizeAnyToUnknown = true

	out, err := Render(context.Background(), doc, cfg, nil)
	require.NoError(t, err)
	content := string(out.Content)
	assert.Contains(t, content, "export interface Endpoints {\n")
	assert.Contains(t, content, "  '/echo': RouteMeta<{ payload: unknown }, never, never, never, unknown, 'POST'>\n")
}

func TestGenerateWritesAndRecordsRun(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer st.Close()

	doc := loadFixture(t)
	cfg := testConfig(t)

	res, err := Generate(context.Background(), doc, cfg, st, nil)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	require.NotNil(t, res.Run)
	assert.Equal(t, types.RunSucceeded, res.Run.Status)

	written, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	assert.Equal(t, string(res.Content), string(written))

	run, err := st.GetRun(res.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, run.RouteCount)
	assert.Equal(t, 4, run.PathCount)
	assert.Equal(t, res.Hash, run.ContentHash)

	routes, err := st.GetRoutes(res.Run.ID)
	require.NoError(t, err)
	assert.Len(t, routes, 5)

	info, err := os.Stat(cfg.Output)
	require.NoError(t, err)

	again, err := Generate(context.Background(), doc, cfg, st, nil)
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Equal(t, types.RunUnchanged, again.Run.Status)

	info2, err := os.Stat(cfg.Output)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), info2.ModTime())

	runs, err := st.ListRuns(0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestGenerateFailureWritesNothing(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer st.Close()

	doc, err := schema.Parse([]byte(`
routes:
  - path: /ok
    method: GET
    response: string
  - path: /broken
    method: GET
    response: DoesNotExist
`))
	require.NoError(t, err)
	cfg := testConfig(t)

	_, err = Generate(context.Background(), doc, cfg, st, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrUnknownType))
	assert.Contains(t, err.Error(), "GET /broken: response")
	assert.NoFileExists(t, cfg.Output)

	runs, err := st.ListRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, types.RunFailed, runs[0].Status)
	assert.NotEmpty(t, runs[0].ErrorMsg)
}

func TestGenerateWithoutStore(t *testing.T) {
	cfg := testConfig(t)
	res, err := Generate(context.Background(), loadFixture(t), cfg, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, res.Run)
	assert.FileExists(t, cfg.Output)
}

func TestCheck(t *testing.T) {
	doc := loadFixture(t)
	cfg := testConfig(t)

	_, err := Check(context.Background(), doc, cfg)
	assert.True(t, errors.Is(err, ErrStale), "missing output is stale")

	_, err = Generate(context.Background(), doc, cfg, nil, nil)
	require.NoError(t, err)
	_, err = Check(context.Background(), doc, cfg)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(cfg.Output, []byte("// edited\n"), 0o644))
	_, err = Check(context.Background(), doc, cfg)
	assert.True(t, errors.Is(err, ErrStale))
}

func TestRenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Render(ctx, loadFixture(t), testConfig(t), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderGoReferences(t *testing.T) {
	if testing.Short() {
		t.Skip("loads Go packages")
	}
	doc, err := schema.Parse([]byte(`
routes:
  - path: /users/:id
    method: GET
    params: "{ id: string }"
    response: go:example.com/api/users.Shadowed
  - path: /users
    method: GET
    response: { type: "go:example.com/api/users.User[]", ref: true }
`))
	require.NoError(t, err)
	cfg := testConfig(t)
	cfg.Go.Dir = filepath.Join("..", "gosource", "testdata", "api")
	cfg.Go.Imports = map[string]string{"example.com/api/users": "./users"}

	out, err := Render(context.Background(), doc, cfg, nil)
	require.NoError(t, err)
	content := string(out.Content)
	assert.Contains(t, content, "  '/users/:id': RouteMeta<never, never, { id: string }, never, { createdAt: Date; id: string }, 'GET'>\n")
	assert.Contains(t, content, "  '/users': RouteMeta<never, never, never, never, User[], 'GET'>\n")
	assert.Contains(t, content, "import type { User } from './users'\n")
}
