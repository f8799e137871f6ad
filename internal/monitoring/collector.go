// Package monitoring reports pipeline health: per-store row counts and
// per-run Prometheus counters.
package monitoring

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-harvest/internal/schema"
	"github.com/sells-group/lead-harvest/internal/store"
)

// Target names one phase store and the population counter reported for it.
type Target struct {
	Phase string
	Path  string
	Table string
	// Populated is the predicate counted as the phase's populated rows.
	Populated string
}

// Targets returns the standard target list for the three phase stores.
func Targets(harvestPath, enrichmentPath, masterPath string) []Target {
	return []Target{
		{Phase: "harvest", Path: harvestPath, Table: schema.Harvest, Populated: "website IS NOT NULL AND website != ''"},
		{Phase: "enrichment", Path: enrichmentPath, Table: schema.Enrichment, Populated: "email IS NOT NULL OR facebook IS NOT NULL OR instagram IS NOT NULL OR linkedin IS NOT NULL"},
		{Phase: "master", Path: masterPath, Table: schema.Master, Populated: "email IS NOT NULL"},
	}
}

// StoreStats is one store's row counts.
type StoreStats struct {
	Phase     string `json:"phase"`
	Path      string `json:"path"`
	Exists    bool   `json:"exists"`
	Rows      int    `json:"rows"`
	Populated int    `json:"populated"`
}

// Snapshot holds a point-in-time view of every store.
type Snapshot struct {
	Stores      []StoreStats `json:"stores"`
	CollectedAt time.Time    `json:"collected_at"`
}

// Collector gathers store statistics without creating missing stores.
type Collector struct {
	targets []Target
	log     *zap.Logger
}

// NewCollector creates a Collector over targets.
func NewCollector(targets []Target, log *zap.Logger) *Collector {
	return &Collector{targets: targets, log: log.With(zap.String("component", "monitoring.collector"))}
}

// Collect counts rows in every existing store. A missing store is reported
// with Exists false; any other failure aborts the snapshot.
func (c *Collector) Collect(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{CollectedAt: time.Now().UTC()}
	for _, t := range c.targets {
		st, err := c.collect(ctx, t)
		if err != nil {
			return nil, err
		}
		snap.Stores = append(snap.Stores, st)
	}
	return snap, nil
}

func (c *Collector) collect(ctx context.Context, t Target) (StoreStats, error) {
	st := StoreStats{Phase: t.Phase, Path: t.Path}

	db, err := store.OpenReadOnly(ctx, t.Path, c.log)
	if errors.Is(err, store.ErrStoreMissing) {
		return st, nil
	}
	if err != nil {
		return st, eris.Wrapf(err, "monitoring: open %s store", t.Phase)
	}
	defer db.Close() //nolint:errcheck
	st.Exists = true

	cols, err := db.TableColumns(ctx, t.Table)
	if err != nil {
		return st, eris.Wrapf(err, "monitoring: inspect %s store", t.Phase)
	}
	if len(cols) == 0 {
		return st, nil
	}

	if st.Rows, err = db.CountRows(ctx, t.Table); err != nil {
		return st, eris.Wrapf(err, "monitoring: count %s rows", t.Phase)
	}
	if t.Populated != "" {
		if st.Populated, err = db.CountWhere(ctx, t.Table, t.Populated); err != nil {
			return st, eris.Wrapf(err, "monitoring: count %s populated rows", t.Phase)
		}
	}
	return st, nil
}
