// Package enrich visits harvested candidates' websites and records the
// contact signals found there.
package enrich

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-harvest/internal/model"
	"github.com/sells-group/lead-harvest/internal/resilience"
)

// DefaultTimeout bounds one website visit.
const DefaultTimeout = 15 * time.Second

// EnrichmentStore persists enrichment attempts.
type EnrichmentStore interface {
	InsertEnrichment(ctx context.Context, e model.Enrichment) (int64, error)
	EnrichedLeadIDs(ctx context.Context) (map[int64]bool, error)
}

// Options tunes an Enricher.
type Options struct {
	Timeout      time.Duration
	SkipEnriched bool
}

// Result summarizes one enrichment pass.
type Result struct {
	Attempted   int
	Failed      int
	// Transient counts the failures that looked temporary, such as a 503 or
	// a timeout. They are not retried; a later run can pick them up.
	Transient   int
	WithSignal  int
	Skipped     int
	Enrichments []model.Enrichment
}

// Enricher visits candidate websites one at a time.
type Enricher struct {
	fetcher Fetcher
	store   EnrichmentStore
	opts    Options
	log     *zap.Logger
}

// New creates an Enricher.
func New(fetcher Fetcher, store EnrichmentStore, opts Options, log *zap.Logger) *Enricher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Enricher{
		fetcher: fetcher,
		store:   store,
		opts:    opts,
		log:     log.With(zap.String("component", "enricher")),
	}
}

// Enrich records one enrichment row per candidate with a website, in the
// given order. A failed visit records empty contacts and moves on; only
// storage errors and cancellation stop the pass.
func (e *Enricher) Enrich(ctx context.Context, candidates []model.Candidate) (*Result, error) {
	res := &Result{}

	var done map[int64]bool
	if e.opts.SkipEnriched {
		var err error
		if done, err = e.store.EnrichedLeadIDs(ctx); err != nil {
			return res, eris.Wrap(err, "enrich: load enriched lead ids")
		}
	}

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "enrich: cancelled")
		}
		if c.Website == "" || done[c.ID] {
			res.Skipped++
			continue
		}

		contacts, err := e.visit(ctx, c)
		if err != nil {
			if ctx.Err() != nil {
				return res, eris.Wrap(ctx.Err(), "enrich: cancelled")
			}
			transient := resilience.IsTransient(err)
			e.log.Warn("visit failed, recording empty contacts",
				zap.Int64("lead_id", c.ID),
				zap.String("website", c.Website),
				zap.Bool("transient", transient),
				zap.Error(err),
			)
			res.Failed++
			if transient {
				res.Transient++
			}
		}

		rec := model.Enrichment{LeadID: c.ID, Contacts: contacts}
		id, err := e.store.InsertEnrichment(ctx, rec)
		if err != nil {
			return res, eris.Wrapf(err, "enrich: store lead %d", c.ID)
		}
		rec.ID = id

		res.Attempted++
		if !contacts.Empty() {
			res.WithSignal++
		}
		res.Enrichments = append(res.Enrichments, rec)
		e.log.Info("enriched lead",
			zap.Int64("lead_id", c.ID),
			zap.Bool("email", contacts.Email != ""),
			zap.Bool("facebook", contacts.Facebook != ""),
			zap.Bool("instagram", contacts.Instagram != ""),
			zap.Bool("linkedin", contacts.LinkedIn != ""),
		)
	}

	e.log.Info("enrichment complete",
		zap.Int("attempted", res.Attempted),
		zap.Int("failed", res.Failed),
		zap.Int("failed_transient", res.Transient),
		zap.Int("with_signal", res.WithSignal),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

func (e *Enricher) visit(ctx context.Context, c model.Candidate) (model.Contacts, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	page, err := e.fetcher.Fetch(ctx, CleanURL(c.Website))
	if err != nil {
		return model.Contacts{}, err
	}
	return ExtractContacts(page), nil
}
