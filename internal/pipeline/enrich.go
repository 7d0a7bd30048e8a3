package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/batch"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/pace"
	"github.com/sells-group/outreach-cli/pkg/places"
)

// maxReviewExcerpts caps how many review texts are carried on a record.
const maxReviewExcerpts = 3

// enrich fetches place details for every discovered record. A failed lookup
// marks only that record EnrichmentFailed; it survives into filtering with
// its discovery fields intact.
func (o *Orchestrator) enrich(ctx context.Context, records []*model.Record, stats *model.RunStats) ([]*model.Record, error) {
	log := zap.L().With(zap.String("stage", "enrich"))

	gov := pace.New(time.Duration(o.cfg.Enrich.MinIntervalMs)*time.Millisecond, 0, 0)
	opts := batch.Options{
		BatchSize:       o.cfg.Enrich.BatchSize,
		InterBatchDelay: time.Duration(o.cfg.Enrich.InterBatchDelayMs) * time.Millisecond,
		Governor:        gov,
	}

	outcomes := batch.Run(ctx, records, opts, func(ctx context.Context, r *model.Record) (*places.PlaceDetails, error) {
		if r.PlaceID == "" {
			return nil, eris.New("enrich: record has no place id")
		}
		return o.places.Details(ctx, r.PlaceID)
	})

	for i, out := range outcomes {
		r := records[i]
		if out.Failed() {
			r.EnrichmentStatus = model.EnrichmentFailed
			stats.EnrichFailed++
			continue
		}
		if out.Value == nil {
			// The source could not match the entity; not a transport error.
			r.EnrichmentStatus = model.EnrichmentFailed
			stats.EnrichFailed++
			continue
		}
		applyDetails(r, out.Value)
		r.EnrichmentStatus = model.EnrichmentEnriched
		stats.EnrichedOK++
	}

	log.Info("enrichment done",
		zap.Int("enriched", stats.EnrichedOK),
		zap.Int("failed", stats.EnrichFailed),
	)
	return records, nil
}

// applyDetails sets the enrichment block and overwrites raw fields the
// details endpoint reports with higher confidence. Overwrite, not merge.
func applyDetails(r *model.Record, d *places.PlaceDetails) {
	enr := &model.Enrichment{
		Categories: d.Types,
	}
	if d.Rating > 0 {
		rating := d.Rating
		enr.Rating = &rating
	}
	reviews := d.UserRatingCount
	enr.ReviewCount = &reviews

	if d.OpeningHours != nil {
		enr.OpeningHours = d.OpeningHours.WeekdayDescriptions
	}
	for _, rev := range d.Reviews {
		if rev.Text.Text == "" {
			continue
		}
		enr.ReviewExcerpts = append(enr.ReviewExcerpts, rev.Text.Text)
		if len(enr.ReviewExcerpts) == maxReviewExcerpts {
			break
		}
	}

	if d.DisplayName.Text != "" {
		r.Name = d.DisplayName.Text
	}
	r.Enrichment = enr
}
