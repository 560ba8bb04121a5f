package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/yourorg/routegen/pkg/types"
)

type SQLiteStore struct {
	db *sql.DB
}

// Open creates the parent directory of path and opens the store there.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create history directory %s", dir)
		}
	}
	return NewSQLiteStore(path)
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open history database")
	}
	s := &SQLiteStore{db: db}
	if err := s.Init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Init() error {
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return errors.Wrap(err, "enable WAL")
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			input TEXT NOT NULL,
			output TEXT NOT NULL,
			content_hash TEXT NOT NULL DEFAULT '',
			route_count INTEGER NOT NULL DEFAULT 0,
			path_count INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error_msg TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			finished_at DATETIME
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);`,
		`CREATE TABLE IF NOT EXISTS run_routes (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			method TEXT NOT NULL,
			path TEXT NOT NULL,
			controller TEXT NOT NULL DEFAULT '',
			response TEXT NOT NULL,
			PRIMARY KEY(run_id, seq)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrap(err, "create history schema")
		}
	}
	return nil
}

func (s *SQLiteStore) CreateRun(input, output string) (*types.Run, error) {
	run := &types.Run{
		ID:        uuid.NewString(),
		Input:     input,
		Output:    output,
		Status:    types.RunRunning,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(`INSERT INTO runs(id,input,output,status,created_at) VALUES(?,?,?,?,?)`,
		run.ID, run.Input, run.Output, run.Status, run.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert run")
	}
	return run, nil
}

// FinishRun stores the final state of run and stamps FinishedAt.
func (s *SQLiteStore) FinishRun(run *types.Run) error {
	now := time.Now().UTC()
	run.FinishedAt = &now
	res, err := s.db.Exec(`UPDATE runs SET content_hash=?, route_count=?, path_count=?, status=?, error_msg=?, duration_ms=?, finished_at=? WHERE id=?`,
		run.ContentHash, run.RouteCount, run.PathCount, run.Status, run.ErrorMsg, run.Duration.Milliseconds(), now, run.ID)
	if err != nil {
		return errors.Wrap(err, "update run")
	}
	return expectRow(res, run.ID)
}

const runColumns = `id,input,output,content_hash,route_count,path_count,status,error_msg,duration_ms,created_at,finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (types.Run, error) {
	var (
		r        types.Run
		ms       int64
		finished sql.NullTime
	)
	if err := row.Scan(&r.ID, &r.Input, &r.Output, &r.ContentHash, &r.RouteCount, &r.PathCount, &r.Status, &r.ErrorMsg, &ms, &r.CreatedAt, &finished); err != nil {
		return r, err
	}
	r.Duration = time.Duration(ms) * time.Millisecond
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return r, nil
}

func (s *SQLiteStore) GetRun(id string) (*types.Run, error) {
	r, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "run %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get run")
	}
	return &r, nil
}

// ListRuns returns runs newest first. limit <= 0 returns all of them.
func (s *SQLiteStore) ListRuns(limit int) ([]types.Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	defer rows.Close()
	var out []types.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteRun(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM run_routes WHERE run_id=?`, id); err != nil {
		return errors.Wrap(err, "delete run routes")
	}
	res, err := tx.Exec(`DELETE FROM runs WHERE id=?`, id)
	if err != nil {
		return errors.Wrap(err, "delete run")
	}
	if err := expectRow(res, id); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveRoutes replaces the routes recorded for runID.
func (s *SQLiteStore) SaveRoutes(runID string, routes []types.RunRoute) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM run_routes WHERE run_id=?`, runID); err != nil {
		return errors.Wrap(err, "clear run routes")
	}
	stmt, err := tx.Prepare(`INSERT INTO run_routes(run_id,seq,method,path,controller,response) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, r := range routes {
		if _, err := stmt.Exec(runID, i, r.Method, r.Path, r.Controller, r.Response); err != nil {
			return errors.Wrapf(err, "insert route %s %s", r.Method, r.Path)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetRoutes(runID string) ([]types.RunRoute, error) {
	rows, err := s.db.Query(`SELECT run_id,seq,method,path,controller,response FROM run_routes WHERE run_id=? ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "get run routes")
	}
	defer rows.Close()
	out := make([]types.RunRoute, 0)
	for rows.Next() {
		var r types.RunRoute
		if err := rows.Scan(&r.RunID, &r.Seq, &r.Method, &r.Path, &r.Controller, &r.Response); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return errors.New("store is nil")
	}
	return s.db.Close()
}

func expectRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "run %s", id)
	}
	return nil
}
