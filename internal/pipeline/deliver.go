package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/batch"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/pace"
)

// deliver sends generated content to records with a phone number. The
// delivery governor enforces both spacing and the hourly quota; once the
// quota is exhausted mid-run, remaining records are marked unattempted and
// the stage ends without error. No record is retried within a run.
func (o *Orchestrator) deliver(ctx context.Context, records []*model.Record, stats *model.RunStats) ([]*model.Record, error) {
	log := zap.L().With(zap.String("stage", "deliver"))

	if err := o.transport.Ready(); err != nil {
		return nil, eris.Wrap(err, "deliver: transport not ready")
	}

	var eligible []*model.Record
	for _, r := range records {
		if r.Phone != "" && r.Content != "" {
			eligible = append(eligible, r)
		}
	}
	log.Info("delivery starting",
		zap.Int("eligible", len(eligible)),
		zap.Int("quota_per_hour", o.cfg.Delivery.QuotaPerHour),
	)

	gov := pace.New(
		time.Duration(o.cfg.Delivery.MinIntervalMs)*time.Millisecond,
		o.cfg.Delivery.QuotaPerHour,
		time.Hour,
	)
	opts := batch.Options{
		BatchSize:       o.cfg.Delivery.BatchSize,
		InterBatchDelay: time.Duration(o.cfg.Delivery.InterBatchDelayMs) * time.Millisecond,
	}

	// Stats are shared across concurrently outstanding sends.
	var mu sync.Mutex

	batch.Run(ctx, eligible, opts, func(ctx context.Context, r *model.Record) (struct{}, error) {
		granted, err := gov.AcquireWithinQuota(ctx)
		if err != nil {
			return struct{}{}, nil
		}
		if !granted {
			r.Delivery = &model.DeliveryResult{
				Attempted: false,
				Timestamp: time.Now().UTC(),
			}
			mu.Lock()
			stats.DeliverySkipped++
			mu.Unlock()
			return struct{}{}, nil
		}

		sendErr := o.transport.Send(ctx, r.Phone, r.Content)
		result := &model.DeliveryResult{
			Attempted: true,
			Succeeded: sendErr == nil,
			Timestamp: time.Now().UTC(),
		}
		mu.Lock()
		if sendErr != nil {
			result.ErrorReason = sendErr.Error()
			stats.DeliveryFailed++
		} else {
			stats.Delivered++
		}
		mu.Unlock()
		r.Delivery = result
		return struct{}{}, nil
	})

	// Records cancelled mid-batch or never reached still get a result.
	for _, r := range eligible {
		if r.Delivery == nil {
			r.Delivery = &model.DeliveryResult{
				Attempted: false,
				Timestamp: time.Now().UTC(),
			}
			stats.DeliverySkipped++
		}
	}

	log.Info("delivery done",
		zap.Int("delivered", stats.Delivered),
		zap.Int("failed", stats.DeliveryFailed),
		zap.Int("skipped", stats.DeliverySkipped),
	)
	return records, nil
}
