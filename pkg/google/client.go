package google

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-harvest/internal/resilience"
)

const defaultBaseURL = "https://places.googleapis.com/v1"

const (
	searchFieldMask = "places.id,places.googleMapsUri,nextPageToken"
	detailFieldMask = "id,displayName,nationalPhoneNumber,websiteUri,formattedAddress,googleMapsUri"
)

// MaxPageSize is the largest page Text Search returns.
const MaxPageSize = 20

// Client performs Google Places API operations.
type Client interface {
	SearchPlaces(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	GetPlace(ctx context.Context, id string) (*Place, error)
}

// SearchRequest is one page of a Places Text Search.
type SearchRequest struct {
	TextQuery string `json:"textQuery"`
	PageSize  int    `json:"pageSize,omitempty"`
	PageToken string `json:"pageToken,omitempty"`
}

// SearchResponse is one page of Text Search results. Places carry only ID
// and GoogleMapsURI; the rest comes from GetPlace.
type SearchResponse struct {
	Places        []Place `json:"places"`
	NextPageToken string  `json:"nextPageToken"`
}

// Place is a Places API place resource.
type Place struct {
	ID                  string      `json:"id"`
	DisplayName         DisplayName `json:"displayName"`
	NationalPhoneNumber string      `json:"nationalPhoneNumber"`
	WebsiteURI          string      `json:"websiteUri"`
	FormattedAddress    string      `json:"formattedAddress"`
	GoogleMapsURI       string      `json:"googleMapsUri"`
}

// DisplayName holds the place's display name.
type DisplayName struct {
	Text string `json:"text"`
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

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Google Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SearchPlaces(ctx context.Context, sr SearchRequest) (*SearchResponse, error) {
	if sr.PageSize > MaxPageSize {
		sr.PageSize = MaxPageSize
	}
	body, err := json.Marshal(sr)
	if err != nil {
		return nil, eris.Wrap(err, "google: marshal search request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchText", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "google: create search request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-FieldMask", searchFieldMask)

	var result SearchResponse
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) GetPlace(ctx context.Context, id string) (*Place, error) {
	if id == "" {
		return nil, eris.New("google: place id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/places/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, eris.Wrap(err, "google: create place request")
	}
	req.Header.Set("X-Goog-FieldMask", detailFieldMask)

	var place Place
	if err := c.do(req, &place); err != nil {
		return nil, eris.Wrapf(err, "google: get place %s", id)
	}
	return &place, nil
}

func (c *httpClient) do(req *http.Request, out any) error {
	req.Header.Set("X-Goog-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "google: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "google: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("google: unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "google: unmarshal response")
	}
	return nil
}
