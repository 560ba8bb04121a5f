package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/routegen/internal/config"
	"github.com/yourorg/routegen/internal/generator"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	pterm.DisableStyling()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInitGenerateCheck(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := execute(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "created "+config.DefaultPath)
	assert.FileExists(t, "routes.yaml")

	out, err = execute(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "exists "+config.DefaultPath)

	_, err = execute(t, "generate")
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join("generated", "api-routes.d.ts"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "  '/api/users/:id': RouteMeta<never, never, { id: string }, never, { id: number; email: string; createdAt: Date }, 'GET'>\n")

	out, err = execute(t, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "is up to date")

	require.NoError(t, os.WriteFile(filepath.Join("generated", "api-routes.d.ts"), []byte("stale"), 0o644))
	_, err = execute(t, "check")
	assert.True(t, errors.Is(err, generator.ErrStale))
}

func TestGenerateFlagsAndHistory(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := execute(t, "init")
	require.NoError(t, err)

	_, err = execute(t, "generate", "--output", "web/routes.d.ts", "--no-history")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join("web", "routes.d.ts"))

	out, err := execute(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "no runs recorded")

	_, err = execute(t, "generate")
	require.NoError(t, err)
	out, err = execute(t, "history", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "succeeded")
}

func TestRoutesCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := execute(t, "init")
	require.NoError(t, err)

	out, err := execute(t, "routes")
	require.NoError(t, err)
	assert.Contains(t, out, "/api/users/:id")
	assert.Contains(t, out, "POST")
	assert.Contains(t, out, "{ email: string; password: string }")
}

func TestShowAndDeleteRequireRun(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := execute(t, "show")
	assert.Error(t, err)

	_, err = execute(t, "delete", "--run", "missing")
	assert.Error(t, err)
}
