package store

import (
	"github.com/cockroachdb/errors"

	"github.com/yourorg/routegen/pkg/types"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Store keeps the history of generation runs.
type Store interface {
	CreateRun(input, output string) (*types.Run, error)
	FinishRun(run *types.Run) error
	GetRun(id string) (*types.Run, error)
	ListRuns(limit int) ([]types.Run, error)
	DeleteRun(id string) error

	SaveRoutes(runID string, routes []types.RunRoute) error
	GetRoutes(runID string) ([]types.RunRoute, error)

	Close() error
}
