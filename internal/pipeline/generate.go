package pipeline

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/batch"
	"github.com/sells-group/outreach-cli/internal/classify"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/pace"
	"github.com/sells-group/outreach-cli/pkg/anthropic"
)

// generateSystemPrompt frames the outreach copy request for the model.
const generateSystemPrompt = `You write short, friendly outreach messages to local business owners. Use the business facts provided. Keep it under 60 words, mention one concrete detail from the reviews or rating, and end with a question. Respond with ONLY the message text, no preamble.`

// generate produces personalized outreach content for each filtered record.
// A failed generation call falls back to a deterministic rating-based
// template, so this stage has no hard-failure outcome, only degraded quality.
func (o *Orchestrator) generate(ctx context.Context, records []*model.Record, stats *model.RunStats) ([]*model.Record, error) {
	log := zap.L().With(zap.String("stage", "generate"))

	gov := pace.New(time.Duration(o.cfg.Generate.MinIntervalMs)*time.Millisecond, 0, 0)
	opts := batch.Options{
		BatchSize:       o.cfg.Generate.BatchSize,
		InterBatchDelay: time.Duration(o.cfg.Generate.InterBatchDelayMs) * time.Millisecond,
		Governor:        gov,
	}

	outcomes := batch.Run(ctx, records, opts, func(ctx context.Context, r *model.Record) (string, error) {
		resp, err := o.ai.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     o.cfg.Anthropic.Model,
			MaxTokens: o.cfg.Anthropic.MaxTokens,
			System:    generateSystemPrompt,
			Messages: []anthropic.Message{
				{Role: "user", Content: recordFacts(r)},
			},
		})
		if err != nil {
			return "", err
		}
		resp.Usage.LogUsage(o.cfg.Anthropic.Model, "generate")
		text := strings.TrimSpace(resp.Text)
		if text == "" {
			return "", eris.New("generate: empty completion")
		}
		return text, nil
	})

	for i, out := range outcomes {
		r := records[i]
		if out.Failed() {
			r.Content = classify.FallbackContent(r)
			r.GenerationStatus = model.GenerationFallback
			stats.GeneratedFallback++
			continue
		}
		r.Content = out.Value
		r.GenerationStatus = model.GenerationGenerated
		stats.GeneratedOK++
	}

	log.Info("generation done",
		zap.Int("generated", stats.GeneratedOK),
		zap.Int("fallback", stats.GeneratedFallback),
	)
	return records, nil
}

// recordFacts flattens a record into the fact block sent to the model.
func recordFacts(r *model.Record) string {
	var b strings.Builder
	b.WriteString("Business: " + r.Name + "\n")
	b.WriteString("Category: " + string(classify.Classify(r)) + "\n")
	if r.Address != "" {
		b.WriteString("Address: " + r.Address + "\n")
	}
	if rating, ok := r.Rating(); ok {
		b.WriteString("Rating: " + strconv.FormatFloat(rating, 'f', -1, 64) + "\n")
	}
	if reviews, ok := r.ReviewCount(); ok && reviews > 0 {
		b.WriteString("Review count: " + strconv.Itoa(reviews) + "\n")
	}
	if r.Enrichment != nil {
		for _, excerpt := range r.Enrichment.ReviewExcerpts {
			b.WriteString("Review: " + excerpt + "\n")
		}
	}
	return b.String()
}
