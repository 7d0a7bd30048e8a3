package model

import "time"

// EnrichmentStatus tracks the outcome of the enrich stage for one record.
type EnrichmentStatus string

const (
	EnrichmentPending  EnrichmentStatus = "pending"
	EnrichmentEnriched EnrichmentStatus = "enriched"
	EnrichmentFailed   EnrichmentStatus = "failed"
)

// GenerationStatus tracks the outcome of the content generation stage.
type GenerationStatus string

const (
	GenerationPending   GenerationStatus = "pending"
	GenerationGenerated GenerationStatus = "generated"
	GenerationFallback  GenerationStatus = "fallback"
	GenerationFailed    GenerationStatus = "failed"
)

// Enrichment holds place details fetched from the enrichment source.
type Enrichment struct {
	Categories     []string `json:"categories,omitempty"`
	Rating         *float64 `json:"rating,omitempty"`
	ReviewCount    *int     `json:"review_count,omitempty"`
	OpeningHours   []string `json:"opening_hours,omitempty"`
	ReviewExcerpts []string `json:"review_excerpts,omitempty"`
}

// DeliveryResult records the single delivery attempt for a record.
// A record is never retried within a run.
type DeliveryResult struct {
	Attempted   bool      `json:"attempted"`
	Succeeded   bool      `json:"succeeded"`
	ErrorReason string    `json:"error_reason,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Record is one discovered business entity flowing through the pipeline.
// It is created by the discover stage and mutated in place by each
// subsequent stage; the orchestrator owns the sequence exclusively.
type Record struct {
	IdentityKey string `json:"identity_key"`
	PlaceID     string `json:"place_id,omitempty"`

	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`

	Enrichment       *Enrichment      `json:"enrichment,omitempty"`
	EnrichmentStatus EnrichmentStatus `json:"enrichment_status"`

	Content          string           `json:"content,omitempty"`
	GenerationStatus GenerationStatus `json:"generation_status"`

	Delivery *DeliveryResult `json:"delivery,omitempty"`
}

// Rating returns the enriched rating, or false if the record has none.
func (r *Record) Rating() (float64, bool) {
	if r.Enrichment == nil || r.Enrichment.Rating == nil {
		return 0, false
	}
	return *r.Enrichment.Rating, true
}

// ReviewCount returns the enriched review count, or false if absent.
func (r *Record) ReviewCount() (int, bool) {
	if r.Enrichment == nil || r.Enrichment.ReviewCount == nil {
		return 0, false
	}
	return *r.Enrichment.ReviewCount, true
}
