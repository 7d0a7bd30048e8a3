package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore. Satisfied by
// pgxmock in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	plan       JSONB NOT NULL,
	stage      TEXT NOT NULL DEFAULT 'idle',
	stats      JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS snapshots (
	run_id   TEXT NOT NULL REFERENCES runs(id),
	stage    TEXT NOT NULL,
	records  JSONB NOT NULL,
	stats    JSONB NOT NULL,
	saved_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, stage)
);

CREATE INDEX IF NOT EXISTS idx_runs_stage ON runs(stage);
CREATE INDEX IF NOT EXISTS idx_snapshots_run_id ON snapshots(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, plan model.Plan) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	planJSON, err := json.Marshal(plan)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal plan")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, plan, stage, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, planJSON, string(model.StageIdle), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Plan:      plan,
		Stage:     model.StageIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStage(ctx context.Context, runID string, stage model.Stage) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET stage = $1, updated_at = $2 WHERE id = $3`,
		string(stage), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run stage %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, stats *model.RunStats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal stats")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET stage = $1, stats = $2, updated_at = $3 WHERE id = $4`,
		string(model.StageCompleted), statsJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, plan, stage, stats, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)
	return scanPgRun(row)
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, plan, stage, stats, created_at, updated_at FROM runs
		 ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, runID string, stage model.Stage, records []*model.Record, stats *model.RunStats) error {
	recordsJSON, err := json.Marshal(records)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal records")
	}
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal stats")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO snapshots (run_id, stage, records, stats, saved_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (run_id, stage) DO UPDATE SET records = EXCLUDED.records, stats = EXCLUDED.stats, saved_at = EXCLUDED.saved_at`,
		runID, string(stage), recordsJSON, statsJSON, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save snapshot %s/%s", runID, stage)
}

func (s *PostgresStore) LoadSnapshot(ctx context.Context, runID string, stage model.Stage) ([]*model.Record, *model.RunStats, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT records, stats FROM snapshots WHERE run_id = $1 AND stage = $2`,
		runID, string(stage),
	)

	var recordsJSON, statsJSON []byte
	err := row.Scan(&recordsJSON, &statsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, eris.Wrap(err, "postgres: load snapshot")
	}

	var records []*model.Record
	if err := json.Unmarshal(recordsJSON, &records); err != nil {
		return nil, nil, eris.Wrap(err, "postgres: unmarshal records")
	}
	stats := &model.RunStats{}
	if err := json.Unmarshal(statsJSON, stats); err != nil {
		return nil, nil, eris.Wrap(err, "postgres: unmarshal stats")
	}
	return records, stats, nil
}

func (s *PostgresStore) LatestStage(ctx context.Context, runID string) (model.Stage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT stage FROM snapshots WHERE run_id = $1`,
		runID,
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: latest stage")
	}
	defer rows.Close()

	saved := make(map[model.Stage]bool)
	for rows.Next() {
		var st string
		if err := rows.Scan(&st); err != nil {
			return "", eris.Wrap(err, "postgres: scan stage")
		}
		saved[model.Stage(st)] = true
	}
	if err := rows.Err(); err != nil {
		return "", eris.Wrap(err, "postgres: latest stage iterate")
	}

	return latestOf(saved)
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var planJSON []byte
	var statsJSON []byte

	err := row.Scan(&r.ID, &planJSON, &r.Stage, &statsJSON, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}

	if err := json.Unmarshal(planJSON, &r.Plan); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal plan")
	}
	if len(statsJSON) > 0 {
		r.Stats = &model.RunStats{}
		if err := json.Unmarshal(statsJSON, r.Stats); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal stats")
		}
	}
	return &r, nil
}
