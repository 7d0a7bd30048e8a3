// Package filter selects records eligible for outreach.
package filter

import "github.com/sells-group/outreach-cli/internal/model"

// Criteria configures the quality filter. Zero-valued criteria are not
// enforced.
type Criteria struct {
	MinRating      float64
	MinReviewCount int
	RequirePhone   bool
	RequireReview  bool
}

// FromPlan builds Criteria from a run plan.
func FromPlan(p model.Plan) Criteria {
	return Criteria{
		MinRating:      p.MinRating,
		MinReviewCount: p.MinReviewCount,
		RequirePhone:   p.RequirePhone,
		RequireReview:  p.RequireReview,
	}
}

// Passes reports whether the record satisfies every configured criterion.
// A criterion whose required field is absent fails: a business with no
// rating never passes a MinRating check by default. Pure and idempotent.
func Passes(r *model.Record, c Criteria) bool {
	if c.MinRating > 0 {
		rating, ok := r.Rating()
		if !ok || rating < c.MinRating {
			return false
		}
	}
	if c.MinReviewCount > 0 {
		reviews, ok := r.ReviewCount()
		if !ok || reviews < c.MinReviewCount {
			return false
		}
	}
	if c.RequireReview {
		if r.Enrichment == nil || len(r.Enrichment.ReviewExcerpts) == 0 {
			return false
		}
	}
	if c.RequirePhone && r.Phone == "" {
		return false
	}
	return true
}
