// Package aggregate merges harvested candidates and their latest enrichment
// into the deduplicated master store.
package aggregate

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-harvest/internal/model"
	"github.com/sells-group/lead-harvest/internal/schema"
	"github.com/sells-group/lead-harvest/internal/store"
)

// Paths locates the three phase stores.
type Paths struct {
	Harvest    string
	Enrichment string
	Master     string
}

// Aggregator folds phase 1 and phase 2 into the master store.
type Aggregator struct {
	paths    Paths
	identity IdentityResolver
	log      *zap.Logger
}

// New creates an Aggregator. A nil resolver means ExactName.
func New(paths Paths, identity IdentityResolver, log *zap.Logger) *Aggregator {
	if identity == nil {
		identity = ExactName{}
	}
	return &Aggregator{
		paths:    paths,
		identity: identity,
		log:      log.With(zap.String("component", "aggregator"), zap.String("identity", identity.Name())),
	}
}

// Aggregate runs one merge pass. Both upstream stores must exist. Every
// master write of the pass commits together or not at all.
func (a *Aggregator) Aggregate(ctx context.Context) (model.MergeSummary, error) {
	var sum model.MergeSummary

	harvestDB, err := store.OpenReadOnly(ctx, a.paths.Harvest, a.log)
	if err != nil {
		a.log.Error("harvest store unavailable", zap.String("path", a.paths.Harvest), zap.Error(err))
		return sum, eris.Wrap(err, "aggregate: open harvest store")
	}
	defer harvestDB.Close() //nolint:errcheck

	enrichDB, err := store.OpenReadOnly(ctx, a.paths.Enrichment, a.log)
	if err != nil {
		a.log.Error("enrichment store unavailable", zap.String("path", a.paths.Enrichment), zap.Error(err))
		return sum, eris.Wrap(err, "aggregate: open enrichment store")
	}
	defer enrichDB.Close() //nolint:errcheck

	masterDB, err := store.Open(ctx, a.paths.Master, a.log)
	if err != nil {
		return sum, eris.Wrap(err, "aggregate: open master store")
	}
	defer masterDB.Close() //nolint:errcheck

	if err := masterDB.EnsureTable(ctx, schema.Master); err != nil {
		return sum, eris.Wrap(err, "aggregate: ensure master table")
	}

	sum, err = a.Merge(ctx, harvestDB, enrichDB, masterDB)
	if err != nil {
		a.log.Error("merge pass failed, master store unchanged", zap.Error(err))
		return model.MergeSummary{}, err
	}
	return sum, nil
}

// Merge runs the merge pass over already-open stores.
func (a *Aggregator) Merge(ctx context.Context, harvestDB, enrichDB, masterDB *store.DB) (model.MergeSummary, error) {
	var sum model.MergeSummary

	candidates, err := harvestDB.ListCandidates(ctx)
	if err != nil {
		return sum, eris.Wrap(err, "aggregate: read candidates")
	}

	tx, err := masterDB.BeginMaster(ctx)
	if err != nil {
		return sum, eris.Wrap(err, "aggregate: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	idents, err := tx.Identities(ctx)
	if err != nil {
		return sum, eris.Wrap(err, "aggregate: load master identities")
	}
	index := make(map[string]store.MasterIdentity, len(idents))
	for _, id := range idents {
		key := a.identity.Key(id.BusinessName)
		if _, dup := index[key]; !dup {
			index[key] = id
		}
	}

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return sum, eris.Wrap(err, "aggregate: cancelled")
		}
		sum.Read++

		var contacts model.Contacts
		latest, err := enrichDB.LatestEnrichment(ctx, c.ID)
		if err != nil {
			return sum, eris.Wrapf(err, "aggregate: resolve enrichment for lead %d", c.ID)
		}
		if latest != nil {
			contacts = latest.Contacts
		}

		rec := masterRecord(c, contacts)
		key := a.identity.Key(c.Name)
		existing, found := index[key]

		switch {
		case !found:
			id, err := tx.Insert(ctx, rec)
			if err != nil {
				return sum, eris.Wrapf(err, "aggregate: insert %q", c.Name)
			}
			index[key] = store.MasterIdentity{ID: id, BusinessName: rec.BusinessName, HasEmail: rec.Email != ""}
			sum.Inserted++
		case !existing.HasEmail && rec.Email != "":
			rec.ID = existing.ID
			rec.BusinessName = existing.BusinessName
			if err := tx.Update(ctx, rec); err != nil {
				return sum, eris.Wrapf(err, "aggregate: update %q", c.Name)
			}
			existing.HasEmail = true
			index[key] = existing
			sum.Updated++
			a.log.Debug("upgraded record with email", zap.Int64("master_id", existing.ID), zap.String("business_name", existing.BusinessName))
		default:
			sum.Skipped++
		}
	}

	if err := tx.Commit(); err != nil {
		return model.MergeSummary{}, eris.Wrap(err, "aggregate: commit")
	}

	a.log.Info("aggregation complete",
		zap.Int("read", sum.Read),
		zap.Int("inserted", sum.Inserted),
		zap.Int("updated", sum.Updated),
		zap.Int("skipped", sum.Skipped),
	)
	return sum, nil
}

func masterRecord(c model.Candidate, contacts model.Contacts) model.MasterRecord {
	return model.MasterRecord{
		BusinessName: c.Name,
		PhoneNumber:  NormalizePhone(c.Phone),
		Website:      c.Website,
		Email:        contacts.Email,
		FacebookURL:  contacts.Facebook,
		InstagramURL: contacts.Instagram,
		LinkedInURL:  contacts.LinkedIn,
		Address:      c.Address,
		SourceURL:    c.SourceURL,
	}
}
