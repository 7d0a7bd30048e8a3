package pipeline

import (
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/filter"
	"github.com/sells-group/outreach-cli/internal/model"
)

// filterStage drops records that fail the plan's quality criteria. Dropped
// records are not mutated and not persisted further; filtering is not
// reversible within a run.
func (o *Orchestrator) filterStage(plan model.Plan, records []*model.Record, stats *model.RunStats) ([]*model.Record, error) {
	criteria := filter.FromPlan(plan)

	kept := records[:0:0]
	for _, r := range records {
		if filter.Passes(r, criteria) {
			kept = append(kept, r)
		}
	}

	stats.FilteredIn = len(kept)
	zap.L().Info("quality filter done",
		zap.String("stage", "filter"),
		zap.Int("in", len(records)),
		zap.Int("kept", len(kept)),
	)
	return kept, nil
}
