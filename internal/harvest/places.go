package harvest

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/lead-harvest/pkg/google"
)

// maxPages bounds Text Search pagination per query.
const maxPages = 3

// PlacesSource adapts the Google Places API to Source.
type PlacesSource struct {
	client  google.Client
	limiter *rate.Limiter
}

// NewPlacesSource creates a PlacesSource issuing at most ratePerSec API
// calls per second.
func NewPlacesSource(client google.Client, ratePerSec float64) *PlacesSource {
	if ratePerSec <= 0 {
		ratePerSec = 10
	}
	return &PlacesSource{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1),
	}
}

// Listings pages through Text Search until limit places are collected or
// the results run out.
func (s *PlacesSource) Listings(ctx context.Context, query string, limit int) ([]ListingRef, error) {
	var refs []ListingRef
	token := ""
	for page := 0; page < maxPages && len(refs) < limit; page++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "places: rate limit wait")
		}
		resp, err := s.client.SearchPlaces(ctx, google.SearchRequest{
			TextQuery: query,
			PageSize:  min(limit-len(refs), google.MaxPageSize),
			PageToken: token,
		})
		if err != nil {
			return nil, eris.Wrapf(err, "places: search page %d", page+1)
		}
		for _, p := range resp.Places {
			refs = append(refs, ListingRef{ID: p.ID, URL: p.GoogleMapsURI})
		}
		if resp.NextPageToken == "" {
			break
		}
		token = resp.NextPageToken
	}
	if len(refs) > limit {
		refs = refs[:limit]
	}
	return refs, nil
}

// Detail loads one place's contact fields.
func (s *PlacesSource) Detail(ctx context.Context, ref ListingRef) (RawListing, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return RawListing{}, eris.Wrap(err, "places: rate limit wait")
	}
	p, err := s.client.GetPlace(ctx, ref.ID)
	if err != nil {
		return RawListing{}, &ExtractionError{Ref: ref, Err: err}
	}
	if p.DisplayName.Text == "" {
		return RawListing{}, &ExtractionError{Ref: ref, Err: eris.New("place has no display name")}
	}

	src := p.GoogleMapsURI
	if src == "" {
		src = ref.URL
	}
	return RawListing{
		Name:      p.DisplayName.Text,
		Phone:     p.NationalPhoneNumber,
		Website:   p.WebsiteURI,
		Address:   p.FormattedAddress,
		SourceURL: src,
	}, nil
}
