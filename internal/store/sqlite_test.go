package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/routegen/pkg/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history", "routegen.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRunLifecycle(t *testing.T) {
	s := newTestStore(t)

	run, err := s.CreateRun("routes.yaml", "out/api-routes.d.ts")
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, types.RunRunning, run.Status)

	got, err := s.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, "routes.yaml", got.Input)
	assert.Nil(t, got.FinishedAt)

	run.Status = types.RunSucceeded
	run.ContentHash = "abc123"
	run.RouteCount = 5
	run.PathCount = 3
	run.Duration = 1500 * time.Millisecond
	require.NoError(t, s.FinishRun(run))
	require.NotNil(t, run.FinishedAt)

	got, err = s.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RunSucceeded, got.Status)
	assert.Equal(t, "abc123", got.ContentHash)
	assert.Equal(t, 5, got.RouteCount)
	assert.Equal(t, 3, got.PathCount)
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	require.NotNil(t, got.FinishedAt)
}

func TestGetRunNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRun("missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = s.FinishRun(&types.Run{ID: "missing", Status: types.RunFailed})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListRunsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	var ids []string
	for i := 0; i < 3; i++ {
		run, err := s.CreateRun("routes.yaml", "out.d.ts")
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	all, err := s.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[0], all[2].ID)

	limited, err := s.ListRuns(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestRoutesAndCascadeDelete(t *testing.T) {
	s := newTestStore(t)
	run, err := s.CreateRun("routes.yaml", "out.d.ts")
	require.NoError(t, err)

	routes := []types.RunRoute{
		{Method: "GET", Path: "/users", Response: "User[]"},
		{Method: "POST", Path: "/users", Controller: "UsersController", Response: "User"},
	}
	require.NoError(t, s.SaveRoutes(run.ID, routes))
	// Saving again replaces the previous set.
	require.NoError(t, s.SaveRoutes(run.ID, routes))

	got, err := s.GetRoutes(run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Seq)
	assert.Equal(t, run.ID, got[1].RunID)
	assert.Equal(t, "UsersController", got[1].Controller)

	require.NoError(t, s.DeleteRun(run.ID))
	got, err = s.GetRoutes(run.ID)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = s.GetRun(run.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(s.DeleteRun(run.ID), ErrNotFound))
}
