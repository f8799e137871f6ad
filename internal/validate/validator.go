// Package validate gates each pipeline phase: it audits the phase's store
// and produces a pass/fail report.
package validate

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-harvest/internal/schema"
	"github.com/sells-group/lead-harvest/internal/store"
)

// Paths locates the phase stores.
type Paths struct {
	Harvest    string
	Enrichment string
	Master     string
}

// Validator audits phase stores. It never writes to them.
type Validator struct {
	paths Paths
	log   *zap.Logger
}

// New creates a Validator.
func New(paths Paths, log *zap.Logger) *Validator {
	return &Validator{paths: paths, log: log.With(zap.String("component", "validator"))}
}

// check is one phase's population heuristics, run after the common checks
// pass.
type check func(ctx context.Context, db *store.DB, r *Report) error

// Validate audits phase and returns its report. Any failure, including an
// unexpected error, yields a fail report; Validate itself never errors.
func (v *Validator) Validate(ctx context.Context, phase Phase) *Report {
	r := &Report{
		RunID:       uuid.NewString(),
		Phase:       phase,
		Name:        phase.String(),
		Status:      StatusPass,
		GeneratedAt: time.Now().UTC(),
	}
	log := v.log.With(zap.String("phase", phase.String()), zap.String("run_id", r.RunID))

	var table, path string
	var extra check
	switch phase {
	case PhaseHarvest:
		table, path, extra = schema.Harvest, v.paths.Harvest, v.harvestChecks
	case PhaseEnrichment:
		table, path, extra = schema.Enrichment, v.paths.Enrichment, v.enrichmentChecks
	case PhaseAggregate:
		table, path, extra = schema.Master, v.paths.Master, v.masterChecks
	default:
		return r.fail("unknown phase %d", int(phase))
	}
	r.Store = path

	v.run(ctx, r, table, extra)

	if r.Passed() {
		log.Info("validation passed", zap.Int("row_count", r.RowCount), zap.Int("warnings", len(r.Warnings)))
	} else {
		log.Error("validation failed", zap.Int("row_count", r.RowCount), zap.String("error", r.Error))
	}
	for _, w := range r.Warnings {
		log.Warn("validation warning", zap.String("warning", w))
	}
	return r
}

func (v *Validator) run(ctx context.Context, r *Report, table string, extra check) {
	db, err := store.OpenReadOnly(ctx, r.Store, v.log)
	if errors.Is(err, store.ErrStoreMissing) {
		r.fail("store %s does not exist", r.Store)
		return
	}
	if err != nil {
		r.fail("open store: %v", err)
		return
	}
	defer db.Close() //nolint:errcheck

	s, err := schema.Lookup(table)
	if err != nil {
		r.fail("%v", err)
		return
	}
	cols, err := db.TableColumns(ctx, table)
	if err != nil {
		r.fail("inspect columns: %v", err)
		return
	}
	if len(cols) == 0 {
		r.fail("table %s does not exist", table)
		return
	}
	have := make(map[string]bool, len(cols))
	for _, c := range cols {
		have[c] = true
	}
	var missing []string
	for _, c := range s.RequiredColumns() {
		if !have[c] {
			missing = append(missing, c)
		}
		delete(have, c)
	}
	if len(missing) > 0 {
		r.fail("table %s is missing required columns: %s", table, strings.Join(missing, ", "))
		return
	}
	delete(have, "id")
	for _, c := range slices.Sorted(maps.Keys(have)) {
		r.warn("unexpected column %s in %s", c, table)
	}

	if r.RowCount, err = db.CountRows(ctx, table); err != nil {
		r.fail("count rows: %v", err)
		return
	}

	if err := extra(ctx, db, r); err != nil {
		r.fail("%v", err)
	}
}

func (v *Validator) harvestChecks(ctx context.Context, db *store.DB, r *Report) error {
	if r.RowCount == 0 {
		r.fail("%s is empty", schema.Harvest)
		return nil
	}
	websites, err := db.CountWhere(ctx, schema.Harvest, "website IS NOT NULL AND website != ''")
	if err != nil {
		return err
	}
	r.Counters = map[string]int{"with_website": websites}
	if websites == 0 {
		r.warn("no candidate has a website; enrichment will have nothing to visit")
	}
	return nil
}

func (v *Validator) enrichmentChecks(ctx context.Context, db *store.DB, r *Report) error {
	websites, err := v.harvestWebsites(ctx, r)
	if err != nil {
		return err
	}
	if r.RowCount == 0 {
		if websites > 0 {
			r.fail("harvest has %d candidates with a website but %s is empty", websites, schema.Enrichment)
			return nil
		}
		r.warn("%s is empty and harvest has no candidates with a website", schema.Enrichment)
	}

	withContact, err := db.CountWhere(ctx, schema.Enrichment,
		"email IS NOT NULL OR facebook IS NOT NULL OR instagram IS NOT NULL OR linkedin IS NOT NULL")
	if err != nil {
		return err
	}
	emails, err := db.CountWhere(ctx, schema.Enrichment, "email IS NOT NULL")
	if err != nil {
		return err
	}
	r.Counters = map[string]int{"with_contact": withContact, "with_email": emails, "harvest_with_website": websites}
	if r.RowCount > 0 && withContact == 0 {
		r.warn("no enrichment row carries any contact signal")
	}
	return nil
}

// harvestWebsites counts phase-1 candidates with a website. A missing harvest
// store counts as zero with a warning.
func (v *Validator) harvestWebsites(ctx context.Context, r *Report) (int, error) {
	db, err := store.OpenReadOnly(ctx, v.paths.Harvest, v.log)
	if errors.Is(err, store.ErrStoreMissing) {
		r.warn("harvest store %s does not exist; website cross-check skipped", v.paths.Harvest)
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer db.Close() //nolint:errcheck

	cols, err := db.TableColumns(ctx, schema.Harvest)
	if err != nil {
		return 0, err
	}
	if len(cols) == 0 {
		r.warn("harvest table missing; website cross-check skipped")
		return 0, nil
	}
	return db.CountWhere(ctx, schema.Harvest, "website IS NOT NULL AND website != ''")
}

func (v *Validator) masterChecks(ctx context.Context, db *store.DB, r *Report) error {
	if r.RowCount == 0 {
		r.fail("%s is empty", schema.Master)
		return nil
	}
	emails, err := db.CountWhere(ctx, schema.Master, "email IS NOT NULL")
	if err != nil {
		return err
	}
	r.Counters = map[string]int{"with_email": emails}

	phones, err := db.PhoneNumbers(ctx)
	if err != nil {
		return err
	}
	for _, p := range phones {
		if strings.IndexFunc(p, unicode.IsLetter) >= 0 {
			r.warn("phone number %q contains letters", p)
		}
	}
	return nil
}

// ValidateAll validates every phase concurrently. Reports are returned in
// phase order.
func (v *Validator) ValidateAll(ctx context.Context) []*Report {
	phases := Phases()
	reports := make([]*Report, len(phases))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range phases {
		g.Go(func() error {
			reports[i] = v.Validate(gctx, p)
			return nil
		})
	}
	_ = g.Wait()
	return reports
}
