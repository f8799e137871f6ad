package harvest

import (
	"context"
	"fmt"
)

// ListingRef identifies one listing in a search result page.
type ListingRef struct {
	ID  string
	URL string
}

// RawListing holds the fields extracted from one listing's detail view.
type RawListing struct {
	Name      string
	Phone     string
	Website   string
	Address   string
	SourceURL string
}

// Source is the search collaborator: it runs a query and extracts the
// fields of each listing it returns.
type Source interface {
	Listings(ctx context.Context, query string, limit int) ([]ListingRef, error)
	Detail(ctx context.Context, ref ListingRef) (RawListing, error)
}

// ExtractionError reports a listing whose detail could not be read. The
// harvester logs and skips it.
type ExtractionError struct {
	Ref ListingRef
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("harvest: extract listing %s: %v", e.Ref.ID, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
