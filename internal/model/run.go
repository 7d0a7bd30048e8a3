package model

import "time"

// Stage identifies one phase of the outreach pipeline.
type Stage string

const (
	StageIdle       Stage = "idle"
	StageDiscover   Stage = "discover"
	StageEnrich     Stage = "enrich"
	StageFilter     Stage = "filter"
	StageGenerate   Stage = "generate"
	StageDeliver    Stage = "deliver"
	StageCompleted  Stage = "completed"
	StageFailed     Stage = "failed"
)

// Stages lists the pipeline stages in execution order.
var Stages = []Stage{StageDiscover, StageEnrich, StageFilter, StageGenerate, StageDeliver}

// Next returns the stage following s in the pipeline order, or StageCompleted
// when s is the last stage.
func (s Stage) Next() Stage {
	for i, st := range Stages {
		if st == s {
			if i+1 < len(Stages) {
				return Stages[i+1]
			}
			return StageCompleted
		}
	}
	return StageCompleted
}

// RunStats holds monotonically incremented per-stage counters for one run.
// Owned by the orchestrator and passed by reference to each stage; read-only
// after run completion.
type RunStats struct {
	Discovered        int `json:"discovered"`
	EnrichedOK        int `json:"enriched_ok"`
	EnrichFailed      int `json:"enrich_failed"`
	FilteredIn        int `json:"filtered_in"`
	GeneratedOK       int `json:"generated_ok"`
	GeneratedFallback int `json:"generated_fallback"`
	Delivered         int `json:"delivered"`
	DeliveryFailed    int `json:"delivery_failed"`
	DeliverySkipped   int `json:"delivery_skipped"`

	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
}

// Run represents one pipeline run tracked in the snapshot store.
type Run struct {
	ID        string    `json:"id"`
	Plan      Plan      `json:"plan"`
	Stage     Stage     `json:"stage"`
	Stats     *RunStats `json:"stats,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Plan describes what a run should do: which queries to search, where,
// which records qualify, and whether to deliver.
type Plan struct {
	SearchTerms []string `json:"search_terms" yaml:"search_terms"`
	Location    string   `json:"location" yaml:"location"`

	MinRating        float64 `json:"min_rating" yaml:"min_rating"`
	MinReviewCount   int     `json:"min_review_count" yaml:"min_review_count"`
	RequirePhone     bool    `json:"require_phone" yaml:"require_phone"`
	RequireReview    bool    `json:"require_review" yaml:"require_review"`

	Deliver bool `json:"deliver" yaml:"deliver"`
}
