// Package places is a thin client for the Google Places API (New), covering
// the text-search and place-details endpoints the pipeline uses for
// discovery and enrichment.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/outreach-cli/internal/resilience"
)

const defaultBaseURL = "https://places.googleapis.com/v1"

const (
	searchFieldMask  = "places.id,places.displayName,places.formattedAddress,places.nationalPhoneNumber,places.websiteUri"
	detailsFieldMask = "id,displayName,types,rating,userRatingCount,regularOpeningHours,reviews"
)

// Client performs Google Places API operations.
type Client interface {
	// TextSearch runs a text query scoped to a location. An empty result set
	// is not an error.
	TextSearch(ctx context.Context, query, location string) ([]Place, error)
	// Details fetches the detail fields for one place. Returns nil when the
	// place cannot be found.
	Details(ctx context.Context, placeID string) (*PlaceDetails, error)
}

// Place is a candidate returned by text search.
type Place struct {
	ID                  string      `json:"id"`
	DisplayName         DisplayName `json:"displayName"`
	FormattedAddress    string      `json:"formattedAddress"`
	NationalPhoneNumber string      `json:"nationalPhoneNumber"`
	WebsiteURI          string      `json:"websiteUri"`
}

// PlaceDetails is the enrichment detail block for one place.
type PlaceDetails struct {
	ID              string        `json:"id"`
	DisplayName     DisplayName   `json:"displayName"`
	Types           []string      `json:"types"`
	Rating          float64       `json:"rating"`
	UserRatingCount int           `json:"userRatingCount"`
	OpeningHours    *OpeningHours `json:"regularOpeningHours"`
	Reviews         []Review      `json:"reviews"`
}

// DisplayName holds the place's display name.
type DisplayName struct {
	Text string `json:"text"`
}

// OpeningHours holds the weekday hour descriptions.
type OpeningHours struct {
	WeekdayDescriptions []string `json:"weekdayDescriptions"`
}

// Review is one review attached to a place.
type Review struct {
	Rating float64     `json:"rating"`
	Text   DisplayName `json:"text"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(5, 1),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type textSearchRequest struct {
	TextQuery string `json:"textQuery"`
}

type textSearchResponse struct {
	Places []Place `json:"places"`
}

func (c *httpClient) TextSearch(ctx context.Context, query, location string) ([]Place, error) {
	q := query
	if location != "" {
		q = query + " in " + location
	}
	body, err := json.Marshal(textSearchRequest{TextQuery: q})
	if err != nil {
		return nil, eris.Wrap(err, "places: marshal request")
	}

	respBody, err := resilience.DoVal(ctx, c.retry, "places.textSearch", func(ctx context.Context) ([]byte, error) {
		return c.post(ctx, "/places:searchText", searchFieldMask, body)
	})
	if err != nil {
		return nil, err
	}

	var result textSearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "places: unmarshal response")
	}

	return result.Places, nil
}

func (c *httpClient) Details(ctx context.Context, placeID string) (*PlaceDetails, error) {
	respBody, err := resilience.DoVal(ctx, c.retry, "places.details", func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, "/places/"+placeID, detailsFieldMask)
	})
	if err != nil {
		return nil, err
	}
	if respBody == nil {
		return nil, nil
	}

	var details PlaceDetails
	if err := json.Unmarshal(respBody, &details); err != nil {
		return nil, eris.Wrap(err, "places: unmarshal details")
	}
	return &details, nil
}

func (c *httpClient) post(ctx context.Context, path, fieldMask string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "places: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, fieldMask, false)
}

func (c *httpClient) get(ctx context.Context, path, fieldMask string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, eris.Wrap(err, "places: create request")
	}
	return c.do(req, fieldMask, true)
}

// do sends the request under the client rate limit. When allowMissing is set
// a 404 yields (nil, nil) instead of an error, so an unmatched place is not
// treated as a transport failure.
func (c *httpClient) do(req *http.Request, fieldMask string, allowMissing bool) ([]byte, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, eris.Wrap(err, "places: rate limiter wait")
	}

	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "places: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "places: read response")
	}

	if allowMissing && resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("places: unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.RetryableStatus(resp.StatusCode) {
			return nil, resilience.Transient(err, resp.StatusCode)
		}
		return nil, err
	}

	return respBody, nil
}
