package places

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextSearch(t *testing.T) {
	var gotBody textSearchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/places:searchText", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Equal(t, searchFieldMask, r.Header.Get("X-Goog-FieldMask"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(textSearchResponse{Places: []Place{
			{
				ID:                  "p1",
				DisplayName:         DisplayName{Text: "Joe's Pizza"},
				FormattedAddress:    "123 Main St",
				NationalPhoneNumber: "555-0001",
			},
		}})
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(1000))

	places, err := c.TextSearch(context.Background(), "pizza", "Oakland, CA")
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "p1", places[0].ID)
	assert.Equal(t, "Joe's Pizza", places[0].DisplayName.Text)
	assert.Equal(t, "pizza in Oakland, CA", gotBody.TextQuery)
}

func TestTextSearch_EmptyResultIsNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(1000))

	places, err := c.TextSearch(context.Background(), "nothing here", "Nowhere")
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/places/p1", r.URL.Path)
		assert.Equal(t, detailsFieldMask, r.Header.Get("X-Goog-FieldMask"))

		json.NewEncoder(w).Encode(PlaceDetails{
			ID:              "p1",
			DisplayName:     DisplayName{Text: "Joe's Pizza"},
			Types:           []string{"restaurant", "food"},
			Rating:          4.6,
			UserRatingCount: 120,
			Reviews: []Review{
				{Rating: 5, Text: DisplayName{Text: "best slice in town"}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(1000))

	d, err := c.Details(context.Background(), "p1")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, 4.6, d.Rating)
	assert.Equal(t, 120, d.UserRatingCount)
	require.Len(t, d.Reviews, 1)
	assert.Equal(t, "best slice in town", d.Reviews[0].Text.Text)
}

func TestDetails_MissingPlace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(1000))

	d, err := c.Details(context.Background(), "gone")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestDetails_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(PlaceDetails{ID: "p1"})
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(1000)).(*httpClient)
	c.retry.InitialBackoff = 1
	c.retry.MaxBackoff = 1

	d, err := c.Details(context.Background(), "p1")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.EqualValues(t, 3, hits.Load())
}

func TestTextSearch_ClientErrorNotRetried(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "invalid field mask"}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(1000)).(*httpClient)
	c.retry.InitialBackoff = 1

	_, err := c.TextSearch(context.Background(), "pizza", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 400")
	assert.EqualValues(t, 1, hits.Load())
}
