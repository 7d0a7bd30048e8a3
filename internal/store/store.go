package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// ErrNotFound is returned when a run or snapshot does not exist.
var ErrNotFound = eris.New("store: not found")

// Store persists runs and per-stage snapshots so a crashed run can resume
// from the last completed stage. Snapshots are overwrite-by-stage: saving
// the same (run, stage) twice keeps only the latest copy.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, plan model.Plan) (*model.Run, error)
	UpdateRunStage(ctx context.Context, runID string, stage model.Stage) error
	CompleteRun(ctx context.Context, runID string, stats *model.RunStats) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Snapshots
	SaveSnapshot(ctx context.Context, runID string, stage model.Stage, records []*model.Record, stats *model.RunStats) error
	LoadSnapshot(ctx context.Context, runID string, stage model.Stage) ([]*model.Record, *model.RunStats, error)
	LatestStage(ctx context.Context, runID string) (model.Stage, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
