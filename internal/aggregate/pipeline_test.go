package aggregate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/lead-harvest/internal/enrich"
	"github.com/sells-group/lead-harvest/internal/harvest"
	"github.com/sells-group/lead-harvest/internal/model"
)

type scriptedSource struct {
	listings map[string]harvest.RawListing
}

func (s scriptedSource) Listings(context.Context, string, int) ([]harvest.ListingRef, error) {
	return []harvest.ListingRef{{ID: "acme"}, {ID: "bolt"}}, nil
}

func (s scriptedSource) Detail(_ context.Context, ref harvest.ListingRef) (harvest.RawListing, error) {
	return s.listings[ref.ID], nil
}

type staticFetcher map[string]*enrich.Page

func (f staticFetcher) Fetch(_ context.Context, url string) (*enrich.Page, error) {
	return f[url], nil
}

func TestPipeline_EndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	src := scriptedSource{listings: map[string]harvest.RawListing{
		"acme": {Name: "Acme Plumbing", Phone: "(512) 555-0100", Website: "https://acme.test", SourceURL: "https://maps.test/acme"},
		"bolt": {Name: "Bolt Electric", Phone: "+1 512 555 0199", SourceURL: "https://maps.test/bolt"},
	}}
	h := harvest.New(src, f.harvest, harvest.Options{BackoffBase: time.Millisecond}, zap.NewNop())
	hres, err := h.Harvest(ctx, "trades in Austin", 10)
	require.NoError(t, err)
	require.Equal(t, 2, hres.Inserted)

	candidates, err := f.harvest.ListCandidatesWithWebsite(ctx)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	fetcher := staticFetcher{"https://acme.test": {Content: `<a href="mailto:office@acme.test">mail</a>`}}
	eres, err := enrich.New(fetcher, f.enrich, enrich.Options{}, zap.NewNop()).Enrich(ctx, candidates)
	require.NoError(t, err)
	require.Len(t, eres.Enrichments, 1)

	sum := f.run(t, nil)
	assert.Equal(t, model.MergeSummary{Read: 2, Inserted: 2}, sum)

	recs := f.masterRecords(t)
	require.Len(t, recs, 2)
	assert.Equal(t, "Acme Plumbing", recs[0].BusinessName)
	assert.Equal(t, "office@acme.test", recs[0].Email)
	assert.Equal(t, "5125550100", recs[0].PhoneNumber)
	assert.Equal(t, "Bolt Electric", recs[1].BusinessName)
	assert.Empty(t, recs[1].Email)
	assert.Empty(t, recs[1].FacebookURL)
	assert.Empty(t, recs[1].InstagramURL)
	assert.Empty(t, recs[1].LinkedInURL)
	assert.Equal(t, "+15125550199", recs[1].PhoneNumber)

	again := f.run(t, nil)
	assert.Zero(t, again.Inserted)
	assert.Zero(t, again.Updated)
	assert.Len(t, f.masterRecords(t), 2)
}
