package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/outreach-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	plan       TEXT NOT NULL,
	stage      TEXT NOT NULL DEFAULT 'idle',
	stats      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS snapshots (
	run_id   TEXT NOT NULL REFERENCES runs(id),
	stage    TEXT NOT NULL,
	records  TEXT NOT NULL,
	stats    TEXT NOT NULL,
	saved_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (run_id, stage)
);

CREATE INDEX IF NOT EXISTS idx_runs_stage ON runs(stage);
CREATE INDEX IF NOT EXISTS idx_snapshots_run_id ON snapshots(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, plan model.Plan) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	planJSON, err := json.Marshal(plan)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal plan")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, plan, stage, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(planJSON), string(model.StageIdle), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Plan:      plan,
		Stage:     model.StageIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStage(ctx context.Context, runID string, stage model.Stage) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET stage = ?, updated_at = ? WHERE id = ?`,
		string(stage), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run stage %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, stats *model.RunStats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stats")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET stage = ?, stats = ?, updated_at = ? WHERE id = ?`,
		string(model.StageCompleted), string(statsJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, plan, stage, stats, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, plan, stage, stats, created_at, updated_at FROM runs
		 ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, runID string, stage model.Stage, records []*model.Record, stats *model.RunStats) error {
	recordsJSON, err := json.Marshal(records)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal records")
	}
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stats")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (run_id, stage, records, stats, saved_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, stage) DO UPDATE SET records = excluded.records, stats = excluded.stats, saved_at = excluded.saved_at`,
		runID, string(stage), string(recordsJSON), string(statsJSON), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save snapshot %s/%s", runID, stage)
}

func (s *SQLiteStore) LoadSnapshot(ctx context.Context, runID string, stage model.Stage) ([]*model.Record, *model.RunStats, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT records, stats FROM snapshots WHERE run_id = ? AND stage = ?`,
		runID, string(stage),
	)

	var recordsJSON, statsJSON string
	err := row.Scan(&recordsJSON, &statsJSON)
	if err == sql.ErrNoRows {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: load snapshot")
	}

	var records []*model.Record
	if err := json.Unmarshal([]byte(recordsJSON), &records); err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: unmarshal records")
	}
	stats := &model.RunStats{}
	if err := json.Unmarshal([]byte(statsJSON), stats); err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: unmarshal stats")
	}
	return records, stats, nil
}

func (s *SQLiteStore) LatestStage(ctx context.Context, runID string) (model.Stage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage FROM snapshots WHERE run_id = ?`,
		runID,
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: latest stage")
	}
	defer rows.Close()

	saved := make(map[model.Stage]bool)
	for rows.Next() {
		var st string
		if err := rows.Scan(&st); err != nil {
			return "", eris.Wrap(err, "sqlite: scan stage")
		}
		saved[model.Stage(st)] = true
	}
	if err := rows.Err(); err != nil {
		return "", eris.Wrap(err, "sqlite: latest stage iterate")
	}

	return latestOf(saved)
}

// latestOf returns the furthest pipeline stage present in saved.
func latestOf(saved map[model.Stage]bool) (model.Stage, error) {
	var latest model.Stage
	for _, st := range model.Stages {
		if saved[st] {
			latest = st
		}
	}
	if latest == "" {
		return "", ErrNotFound
	}
	return latest, nil
}

// helpers

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var planJSON string
	var statsJSON sql.NullString

	err := row.Scan(&r.ID, &planJSON, &r.Stage, &statsJSON, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if err := json.Unmarshal([]byte(planJSON), &r.Plan); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal plan")
	}
	if statsJSON.Valid {
		r.Stats = &model.RunStats{}
		if err := json.Unmarshal([]byte(statsJSON.String), r.Stats); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal stats")
		}
	}
	return &r, nil
}
