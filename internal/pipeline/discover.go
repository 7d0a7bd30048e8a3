package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/dedupe"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/pace"
)

// discover runs one text search per plan term, sequentially to respect the
// discovery source's own pacing, feeding every candidate through the
// deduplication index. A failed query loses only its own candidates.
func (o *Orchestrator) discover(ctx context.Context, plan model.Plan, stats *model.RunStats) ([]*model.Record, error) {
	log := zap.L().With(zap.String("stage", "discover"))

	gov := pace.New(time.Duration(o.cfg.Discovery.MinIntervalMs)*time.Millisecond, 0, 0)
	index := dedupe.NewIndex()

	var records []*model.Record
	for _, term := range plan.SearchTerms {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err := gov.Acquire(ctx); err != nil {
			return nil, err
		}

		candidates, err := o.places.TextSearch(ctx, term, plan.Location)
		if err != nil {
			log.Warn("discovery query failed", zap.String("term", term), zap.Error(err))
			continue
		}
		if limit := o.cfg.Places.MaxResultsPerQ; limit > 0 && len(candidates) > limit {
			candidates = candidates[:limit]
		}

		added := 0
		for _, p := range candidates {
			r := &model.Record{
				PlaceID:          p.ID,
				Name:             p.DisplayName.Text,
				Address:          p.FormattedAddress,
				Phone:            p.NationalPhoneNumber,
				Website:          p.WebsiteURI,
				EnrichmentStatus: model.EnrichmentPending,
				GenerationStatus: model.GenerationPending,
			}
			if index.Insert(r) {
				records = append(records, r)
				added++
			}
		}

		log.Info("discovery query done",
			zap.String("term", term),
			zap.Int("candidates", len(candidates)),
			zap.Int("new", added),
		)
	}

	stats.Discovered = len(records)
	return records, nil
}
