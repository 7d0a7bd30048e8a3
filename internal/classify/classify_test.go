package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/outreach-cli/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		record *model.Record
		want   Category
	}{
		{
			name:   "restaurant from name",
			record: &model.Record{Name: "Mario's Restaurant"},
			want:   CategoryRestaurant,
		},
		{
			name:   "cafe from name",
			record: &model.Record{Name: "Corner Coffee House"},
			want:   CategoryCafe,
		},
		{
			name: "category from enrichment tags",
			record: &model.Record{
				Name:       "The Hideout",
				Enrichment: &model.Enrichment{Categories: []string{"night_club", "bar"}},
			},
			want: CategoryBar,
		},
		{
			name:   "salon keyword",
			record: &model.Record{Name: "Shear Genius Barber Co"},
			want:   CategorySalon,
		},
		{
			name:   "fitness keyword",
			record: &model.Record{Name: "Iron Temple Gym"},
			want:   CategoryFitness,
		},
		{
			name:   "retail keyword",
			record: &model.Record{Name: "Vintage Boutique"},
			want:   CategoryRetail,
		},
		{
			name:   "no match falls through to generic",
			record: &model.Record{Name: "Acme Plumbing"},
			want:   CategoryGeneric,
		},
		{
			name: "cafe outranks restaurant when both match",
			record: &model.Record{
				Name:       "Daily Grind Cafe",
				Enrichment: &model.Enrichment{Categories: []string{"restaurant"}},
			},
			want: CategoryCafe,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.record))
		})
	}
}

func TestFallbackContent(t *testing.T) {
	tests := []struct {
		name     string
		record   *model.Record
		contains []string
	}{
		{
			name: "high rating tier",
			record: &model.Record{
				Name:       "Blue Bottle Cafe",
				Enrichment: &model.Enrichment{Rating: ptr(4.8)},
			},
			contains: []string{"Blue Bottle Cafe", "cafe", "outstanding reviews"},
		},
		{
			name: "mid rating tier",
			record: &model.Record{
				Name:       "Mario's Restaurant",
				Enrichment: &model.Enrichment{Rating: ptr(4.2)},
			},
			contains: []string{"Mario's Restaurant", "restaurant", "clearly enjoy"},
		},
		{
			name: "low rating tier",
			record: &model.Record{
				Name:       "Iron Temple Gym",
				Enrichment: &model.Enrichment{Rating: ptr(3.1)},
			},
			contains: []string{"Iron Temple Gym", "studio", "win more happy customers"},
		},
		{
			name:     "no rating",
			record:   &model.Record{Name: "Acme Plumbing"},
			contains: []string{"Acme Plumbing", "grow their customer base"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FallbackContent(tt.record)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
		})
	}
}

func TestFallbackContent_Deterministic(t *testing.T) {
	r := &model.Record{
		Name:       "Corner Coffee House",
		Enrichment: &model.Enrichment{Rating: ptr(4.6)},
	}

	first := FallbackContent(r)
	assert.Equal(t, first, FallbackContent(r))
	assert.True(t, strings.HasPrefix(first, "Hi Corner Coffee House!"))
}
