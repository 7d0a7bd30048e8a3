// Package classify assigns an outreach category to a record from its name
// and place types, using an ordered rule list. First match wins, so rules
// are independently testable and their priority is explicit.
package classify

import (
	"strings"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Category is the outreach template family for a business.
type Category string

const (
	CategoryRestaurant Category = "restaurant"
	CategoryCafe       Category = "cafe"
	CategoryBar        Category = "bar"
	CategorySalon      Category = "salon"
	CategoryFitness    Category = "fitness"
	CategoryRetail     Category = "retail"
	CategoryGeneric    Category = "generic"
)

// Rule pairs a predicate with the category it selects.
type Rule struct {
	Category Category
	Keywords []string
}

// DefaultRules is the prioritized rule list. More specific categories come
// first; CategoryGeneric is the implicit fallthrough.
var DefaultRules = []Rule{
	{CategoryCafe, []string{"cafe", "coffee", "espresso", "bakery"}},
	{CategoryBar, []string{"bar", "pub", "brewery", "taproom", "wine"}},
	{CategoryRestaurant, []string{"restaurant", "pizzeria", "bistro", "grill", "diner", "food"}},
	{CategorySalon, []string{"salon", "barber", "spa", "nails", "beauty"}},
	{CategoryFitness, []string{"gym", "fitness", "yoga", "pilates", "crossfit"}},
	{CategoryRetail, []string{"store", "shop", "boutique", "market"}},
}

// Classify returns the first matching category for the record, scanning the
// business name and enriched category tags against DefaultRules.
func Classify(r *model.Record) Category {
	var haystack strings.Builder
	haystack.WriteString(strings.ToLower(r.Name))
	if r.Enrichment != nil {
		for _, tag := range r.Enrichment.Categories {
			haystack.WriteByte(' ')
			haystack.WriteString(strings.ToLower(tag))
		}
	}
	text := haystack.String()

	for _, rule := range DefaultRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, kw) {
				return rule.Category
			}
		}
	}
	return CategoryGeneric
}
