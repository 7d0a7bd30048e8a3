package classify

import "github.com/sells-group/outreach-cli/internal/model"

// categoryNoun maps a category to the noun used in fallback copy.
var categoryNoun = map[Category]string{
	CategoryRestaurant: "restaurant",
	CategoryCafe:       "cafe",
	CategoryBar:        "bar",
	CategorySalon:      "salon",
	CategoryFitness:    "studio",
	CategoryRetail:     "shop",
	CategoryGeneric:    "business",
}

// FallbackContent builds the deterministic template sentence substituted when
// content generation fails. The template is keyed by rating tier and
// category so degraded output still reads as personalized.
func FallbackContent(r *model.Record) string {
	noun := categoryNoun[Classify(r)]

	rating, ok := r.Rating()
	switch {
	case ok && rating >= 4.5:
		return "Hi " + r.Name + "! Your " + noun + " has outstanding reviews, and we'd love to help even more customers find you. Can we share a quick idea?"
	case ok && rating >= 4.0:
		return "Hi " + r.Name + "! Customers clearly enjoy your " + noun + ". We have a simple way to bring more of them through the door. Interested?"
	case ok:
		return "Hi " + r.Name + "! We work with local businesses like your " + noun + " to win more happy customers. Would you be open to a short chat?"
	default:
		return "Hi " + r.Name + "! We help local businesses grow their customer base. Would you be open to a short chat?"
	}
}
