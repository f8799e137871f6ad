// Package harvest collects business listings for a search query and stores
// them as phase-1 candidates.
package harvest

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-harvest/internal/model"
	"github.com/sells-group/lead-harvest/internal/resilience"
)

var errNoListings = eris.New("harvest: no listings extracted")

// CandidateStore persists harvested candidates.
type CandidateStore interface {
	InsertCandidate(ctx context.Context, c model.Candidate) (bool, error)
}

// Options tunes the retry protocol.
type Options struct {
	MaxAttempts int
	BackoffBase time.Duration
}

// Result summarizes one query's harvest.
type Result struct {
	Query      string
	Attempts   int
	Extracted  int
	// Skipped counts listings the final attempt dropped.
	Skipped    int
	Inserted   int
	Duplicates int
	// Exhausted is set when every attempt failed or came back empty. It is
	// not an error.
	Exhausted  bool
	Candidates []model.Candidate
}

// Harvester runs queries against a Source and stores the listings.
type Harvester struct {
	source Source
	store  CandidateStore
	opts   Options
	log    *zap.Logger
}

// New creates a Harvester. Zero options mean 3 attempts with a 1s base.
func New(source Source, store CandidateStore, opts Options, log *zap.Logger) *Harvester {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	return &Harvester{
		source: source,
		store:  store,
		opts:   opts,
		log:    log.With(zap.String("component", "harvester")),
	}
}

// Harvest extracts up to maxLeads listings for query and inserts them. A
// failed or empty extraction retries the whole query, backing off
// base*2^attempt after every failed attempt. Only storage failures and
// cancellation are returned as errors.
func (h *Harvester) Harvest(ctx context.Context, query string, maxLeads int) (*Result, error) {
	if maxLeads <= 0 {
		return nil, eris.Errorf("harvest: max leads must be positive, got %d", maxLeads)
	}
	log := h.log.With(zap.String("query", query))
	res := &Result{Query: query}

	cfg := resilience.RetryConfig{
		MaxAttempts:    h.opts.MaxAttempts,
		InitialBackoff: h.opts.BackoffBase,
		MaxBackoff:     h.opts.BackoffBase << h.opts.MaxAttempts,
		Multiplier:     2,
		SleepAfterLast: true,
		ShouldRetry:    func(error) bool { return true },
		OnRetry:        resilience.RetryLogger(log, "harvest"),
	}

	candidates, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]model.Candidate, error) {
		res.Attempts++
		out, skipped, err := h.extract(ctx, log, query, maxLeads)
		res.Skipped = skipped
		return out, err
	})
	if err != nil {
		if ctx.Err() != nil {
			return res, eris.Wrap(ctx.Err(), "harvest: cancelled")
		}
		log.Warn("no leads after retries", zap.Int("attempts", res.Attempts), zap.Error(err))
		res.Exhausted = true
		return res, nil
	}

	res.Extracted = len(candidates)
	for _, c := range candidates {
		inserted, err := h.store.InsertCandidate(ctx, c)
		if err != nil {
			return res, eris.Wrapf(err, "harvest: store candidate %q", c.Name)
		}
		if inserted {
			res.Inserted++
		} else {
			res.Duplicates++
		}
		res.Candidates = append(res.Candidates, c)
	}

	log.Info("harvest complete",
		zap.Int("attempts", res.Attempts),
		zap.Int("extracted", res.Extracted),
		zap.Int("skipped", res.Skipped),
		zap.Int("inserted", res.Inserted),
		zap.Int("duplicates", res.Duplicates),
	)
	return res, nil
}

// extract performs one attempt and reports how many listings it skipped.
// An empty outcome is returned as errNoListings so the attempt is retried.
func (h *Harvester) extract(ctx context.Context, log *zap.Logger, query string, maxLeads int) ([]model.Candidate, int, error) {
	refs, err := h.source.Listings(ctx, query, maxLeads)
	if err != nil {
		return nil, 0, eris.Wrap(err, "harvest: list results")
	}
	if len(refs) > maxLeads {
		refs = refs[:maxLeads]
	}

	var out []model.Candidate
	skipped := 0
	for _, ref := range refs {
		if ctx.Err() != nil {
			return nil, skipped, ctx.Err()
		}
		raw, err := h.source.Detail(ctx, ref)
		if err == nil && raw.Name == "" {
			err = eris.New("listing has no name")
		}
		if err != nil {
			var xe *ExtractionError
			if !errors.As(err, &xe) {
				xe = &ExtractionError{Ref: ref, Err: err}
			}
			log.Warn("skipping listing", zap.String("ref", ref.ID), zap.Error(xe))
			skipped++
			continue
		}
		if raw.SourceURL == "" {
			raw.SourceURL = ref.URL
		}
		out = append(out, model.Candidate{
			Name:      raw.Name,
			Phone:     raw.Phone,
			Website:   raw.Website,
			Address:   raw.Address,
			SourceURL: raw.SourceURL,
		})
	}

	if len(out) == 0 {
		return nil, skipped, errNoListings
	}
	return out, skipped, nil
}
