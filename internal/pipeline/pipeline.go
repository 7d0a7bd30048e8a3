// Package pipeline sequences the outreach stages: discover, enrich, filter,
// generate, deliver. Each stage is a full barrier; a snapshot of all records
// plus run statistics is persisted after every stage so a crashed run can
// resume from the last completed stage.
package pipeline

import (
	"time"

	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
	"github.com/sells-group/outreach-cli/pkg/anthropic"
	"github.com/sells-group/outreach-cli/pkg/places"
	"github.com/sells-group/outreach-cli/pkg/telegram"
)

// Orchestrator drives one run through the pipeline stages.
type Orchestrator struct {
	cfg       *config.Config
	store     store.Store
	places    places.Client
	ai        anthropic.Client
	transport telegram.Client // nil unless delivery is enabled
}

// New creates an Orchestrator with all collaborators. transport may be nil
// when delivery is disabled.
func New(cfg *config.Config, st store.Store, placesClient places.Client, aiClient anthropic.Client, transport telegram.Client) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		store:     st,
		places:    placesClient,
		ai:        aiClient,
		transport: transport,
	}
}

// Run executes a full pipeline run for the plan.
func (o *Orchestrator) Run(ctx context.Context, plan model.Plan) (*model.Run, error) {
	if plan.Deliver && o.transport == nil {
		return nil, eris.New("pipeline: delivery enabled but no transport configured")
	}

	run, err := o.store.CreateRun(ctx, plan)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	stats := &model.RunStats{StartedAt: time.Now().UTC()}
	return run, o.advance(ctx, run, model.StageDiscover, nil, stats)
}

// Resume restarts a run from the stage after its last persisted snapshot,
// reusing the snapshot instead of re-running earlier stages.
func (o *Orchestrator) Resume(ctx context.Context, runID string) (*model.Run, error) {
	run, err := o.store.GetRun(ctx, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: get run %s", runID)
	}
	if run.Stage == model.StageCompleted {
		return run, eris.Errorf("pipeline: run %s already completed", runID)
	}
	if run.Plan.Deliver && o.transport == nil {
		return nil, eris.New("pipeline: delivery enabled but no transport configured")
	}

	last, err := o.store.LatestStage(ctx, runID)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			// Nothing persisted yet; start over.
			stats := &model.RunStats{StartedAt: time.Now().UTC()}
			return run, o.advance(ctx, run, model.StageDiscover, nil, stats)
		}
		return nil, eris.Wrapf(err, "pipeline: latest stage %s", runID)
	}

	records, stats, err := o.store.LoadSnapshot(ctx, runID, last)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: load snapshot %s/%s", runID, last)
	}

	zap.L().Info("pipeline: resuming run",
		zap.String("run_id", runID),
		zap.String("from_stage", string(last.Next())),
		zap.Int("records", len(records)),
	)

	return run, o.advance(ctx, run, last.Next(), records, stats)
}

// advance runs the state machine from the given stage to completion. Fatal
// errors mark the run failed; per-item errors inside a stage never surface
// here.
func (o *Orchestrator) advance(ctx context.Context, run *model.Run, from model.Stage, records []*model.Record, stats *model.RunStats) error {
	log := zap.L().With(zap.String("run_id", run.ID))

	started := false
	for _, stage := range model.Stages {
		if stage == from {
			started = true
		}
		if !started {
			continue
		}

		if stage == model.StageDeliver && !run.Plan.Deliver {
			log.Info("pipeline: delivery disabled, skipping stage")
			continue
		}

		if err := o.store.UpdateRunStage(ctx, run.ID, stage); err != nil {
			log.Warn("pipeline: failed to update run stage", zap.Error(err))
		}

		start := time.Now()
		out, err := o.runStage(ctx, stage, run.Plan, records, stats)
		if err != nil {
			log.Error("pipeline: stage failed",
				zap.String("stage", string(stage)),
				zap.Error(err),
			)
			if stErr := o.store.UpdateRunStage(ctx, run.ID, model.StageFailed); stErr != nil {
				log.Warn("pipeline: failed to mark run failed", zap.Error(stErr))
			}
			return eris.Wrapf(err, "pipeline: stage %s", stage)
		}
		records = out

		log.Info("pipeline: stage complete",
			zap.String("stage", string(stage)),
			zap.Int("records", len(records)),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)

		// Persist before advancing so a crash loses at most the next
		// stage's partial work.
		if err := o.store.SaveSnapshot(ctx, run.ID, stage, records, stats); err != nil {
			return eris.Wrapf(err, "pipeline: save snapshot %s", stage)
		}
	}

	stats.EndedAt = time.Now().UTC()
	run.Stage = model.StageCompleted
	run.Stats = stats
	if err := o.store.CompleteRun(ctx, run.ID, stats); err != nil {
		return eris.Wrap(err, "pipeline: complete run")
	}

	log.Info("pipeline: run complete",
		zap.Int("discovered", stats.Discovered),
		zap.Int("enriched_ok", stats.EnrichedOK),
		zap.Int("filtered_in", stats.FilteredIn),
		zap.Int("generated_ok", stats.GeneratedOK),
		zap.Int("generated_fallback", stats.GeneratedFallback),
		zap.Int("delivered", stats.Delivered),
		zap.Int("delivery_failed", stats.DeliveryFailed),
	)
	return nil
}

func (o *Orchestrator) runStage(ctx context.Context, stage model.Stage, plan model.Plan, records []*model.Record, stats *model.RunStats) ([]*model.Record, error) {
	switch stage {
	case model.StageDiscover:
		return o.discover(ctx, plan, stats)
	case model.StageEnrich:
		return o.enrich(ctx, records, stats)
	case model.StageFilter:
		return o.filterStage(plan, records, stats)
	case model.StageGenerate:
		return o.generate(ctx, records, stats)
	case model.StageDeliver:
		return o.deliver(ctx, records, stats)
	default:
		return nil, eris.Errorf("pipeline: unknown stage %s", stage)
	}
}
