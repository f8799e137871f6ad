package validate

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/lead-harvest/internal/model"
	"github.com/sells-group/lead-harvest/internal/schema"
	"github.com/sells-group/lead-harvest/internal/store"
)

func testPaths(t *testing.T) Paths {
	t.Helper()
	dir := t.TempDir()
	return Paths{
		Harvest:    filepath.Join(dir, "raw_leads.db"),
		Enrichment: filepath.Join(dir, "enriched_data.db"),
		Master:     filepath.Join(dir, "master_leads.db"),
	}
}

func openTable(t *testing.T, path, table string) *store.DB {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, path, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck
	require.NoError(t, db.EnsureTable(ctx, table))
	return db
}

func seedCandidates(t *testing.T, db *store.DB, cands ...model.Candidate) {
	t.Helper()
	for _, c := range cands {
		_, err := db.InsertCandidate(context.Background(), c)
		require.NoError(t, err)
	}
}

func seedMaster(t *testing.T, db *store.DB, recs ...model.MasterRecord) {
	t.Helper()
	ctx := context.Background()
	tx, err := db.BeginMaster(ctx)
	require.NoError(t, err)
	for _, r := range recs {
		_, err := tx.Insert(ctx, r)
		require.NoError(t, err)
	}
	require.NoError(t, tx.Commit())
}

func TestValidate_MissingStoreFailsClosed(t *testing.T) {
	v := New(testPaths(t), zap.NewNop())
	for _, p := range Phases() {
		r := v.Validate(context.Background(), p)
		assert.Equal(t, StatusFail, r.Status, p.String())
		assert.Zero(t, r.RowCount)
		assert.Contains(t, r.Error, "does not exist")
		assert.NotEmpty(t, r.RunID)
	}
}

func TestValidate_MissingColumnFailsBeforeCount(t *testing.T) {
	paths := testPaths(t)
	raw, err := sql.Open("sqlite", paths.Harvest)
	require.NoError(t, err)
	_, err = raw.Exec(`CREATE TABLE lead_harvest (id INTEGER PRIMARY KEY, name TEXT, phone TEXT, website TEXT, notes TEXT)`)
	require.NoError(t, err)
	_, err = raw.Exec(`INSERT INTO lead_harvest (name) VALUES ('Acme')`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	r := New(paths, zap.NewNop()).Validate(context.Background(), PhaseHarvest)
	assert.Equal(t, StatusFail, r.Status)
	assert.Contains(t, r.Error, "address")
	assert.Contains(t, r.Error, "google_maps_url")
	assert.Zero(t, r.RowCount)
}

func TestValidate_MissingTable(t *testing.T) {
	paths := testPaths(t)
	openTable(t, paths.Harvest, schema.Enrichment)

	r := New(paths, zap.NewNop()).Validate(context.Background(), PhaseHarvest)
	assert.Equal(t, StatusFail, r.Status)
	assert.Contains(t, r.Error, "lead_harvest does not exist")
}

func TestValidate_HarvestEmptyFails(t *testing.T) {
	paths := testPaths(t)
	openTable(t, paths.Harvest, schema.Harvest)

	r := New(paths, zap.NewNop()).Validate(context.Background(), PhaseHarvest)
	assert.Equal(t, StatusFail, r.Status)
	assert.Contains(t, r.Error, "empty")
}

func TestValidate_HarvestPasses(t *testing.T) {
	paths := testPaths(t)
	db := openTable(t, paths.Harvest, schema.Harvest)
	seedCandidates(t, db, model.Candidate{Name: "Acme", Website: "https://acme.test"}, model.Candidate{Name: "Bolt"})

	r := New(paths, zap.NewNop()).Validate(context.Background(), PhaseHarvest)
	assert.True(t, r.Passed(), r.Error)
	assert.Equal(t, 2, r.RowCount)
	assert.Equal(t, 1, r.Counters["with_website"])
	assert.Empty(t, r.Warnings)
}

func TestValidate_HarvestWithoutWebsitesWarns(t *testing.T) {
	paths := testPaths(t)
	db := openTable(t, paths.Harvest, schema.Harvest)
	seedCandidates(t, db, model.Candidate{Name: "Acme"})

	r := New(paths, zap.NewNop()).Validate(context.Background(), PhaseHarvest)
	assert.True(t, r.Passed())
	assert.Len(t, r.Warnings, 1)
}

func TestValidate_EnrichmentEmptyWithEligibleInputsFails(t *testing.T) {
	paths := testPaths(t)
	h := openTable(t, paths.Harvest, schema.Harvest)
	seedCandidates(t, h, model.Candidate{Name: "Acme", Website: "https://acme.test"})
	openTable(t, paths.Enrichment, schema.Enrichment)

	r := New(paths, zap.NewNop()).Validate(context.Background(), PhaseEnrichment)
	assert.Equal(t, StatusFail, r.Status)
	assert.Contains(t, r.Error, "1 candidates with a website")
}

func TestValidate_EnrichmentEmptyWithoutEligibleInputsPasses(t *testing.T) {
	paths := testPaths(t)
	h := openTable(t, paths.Harvest, schema.Harvest)
	seedCandidates(t, h, model.Candidate{Name: "Acme"})
	openTable(t, paths.Enrichment, schema.Enrichment)

	r := New(paths, zap.NewNop()).Validate(context.Background(), PhaseEnrichment)
	assert.True(t, r.Passed(), r.Error)
	assert.NotEmpty(t, r.Warnings)
}

func TestValidate_EnrichmentPasses(t *testing.T) {
	paths := testPaths(t)
	h := openTable(t, paths.Harvest, schema.Harvest)
	seedCandidates(t, h, model.Candidate{Name: "Acme", Website: "https://acme.test"})
	e := openTable(t, paths.Enrichment, schema.Enrichment)
	_, err := e.InsertEnrichment(context.Background(), model.Enrichment{LeadID: 1, Contacts: model.Contacts{Email: "hi@acme.test"}})
	require.NoError(t, err)
	_, err = e.InsertEnrichment(context.Background(), model.Enrichment{LeadID: 1})
	require.NoError(t, err)

	r := New(paths, zap.NewNop()).Validate(context.Background(), PhaseEnrichment)
	assert.True(t, r.Passed(), r.Error)
	assert.Equal(t, 2, r.RowCount)
	assert.Equal(t, 1, r.Counters["with_contact"])
	assert.Equal(t, 1, r.Counters["with_email"])
	assert.Equal(t, 1, r.Counters["harvest_with_website"])
}

func TestValidate_MasterPhoneWithLettersIsWarning(t *testing.T) {
	paths := testPaths(t)
	m := openTable(t, paths.Master, schema.Master)
	seedMaster(t, m,
		model.MasterRecord{BusinessName: "Acme", PhoneNumber: "+15551234567", Email: "hi@acme.test"},
		model.MasterRecord{BusinessName: "Flowers", PhoneNumber: "1800FLOWERS"},
	)

	r := New(paths, zap.NewNop()).Validate(context.Background(), PhaseAggregate)
	assert.True(t, r.Passed(), r.Error)
	assert.Equal(t, 2, r.RowCount)
	assert.Equal(t, 1, r.Counters["with_email"])
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0], "1800FLOWERS")
}

func TestValidate_MasterEmptyFails(t *testing.T) {
	paths := testPaths(t)
	openTable(t, paths.Master, schema.Master)

	r := New(paths, zap.NewNop()).Validate(context.Background(), PhaseAggregate)
	assert.Equal(t, StatusFail, r.Status)
}

func TestValidate_UnknownPhase(t *testing.T) {
	r := New(testPaths(t), zap.NewNop()).Validate(context.Background(), Phase(9))
	assert.Equal(t, StatusFail, r.Status)
}

func TestValidateAll(t *testing.T) {
	paths := testPaths(t)
	h := openTable(t, paths.Harvest, schema.Harvest)
	seedCandidates(t, h, model.Candidate{Name: "Acme"})

	reports := New(paths, zap.NewNop()).ValidateAll(context.Background())
	require.Len(t, reports, 3)
	assert.Equal(t, PhaseHarvest, reports[0].Phase)
	assert.True(t, reports[0].Passed())
	assert.False(t, reports[1].Passed())
	assert.False(t, reports[2].Passed())
}

// rollbackJournalStore creates a phase table in a store left in SQLite's
// default DELETE journal mode.
func rollbackJournalStore(t *testing.T, path, table string) *store.DB {
	t.Helper()
	ctx := context.Background()
	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	s, err := schema.Lookup(table)
	require.NoError(t, err)
	for _, stmt := range schema.CreateTableSQL(s) {
		_, err := raw.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	db := store.New(raw, path, zap.NewNop())
	t.Cleanup(func() { db.Close() }) //nolint:errcheck
	return db
}

func journalMode(t *testing.T, path string) string {
	t.Helper()
	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer raw.Close() //nolint:errcheck
	var mode string
	require.NoError(t, raw.QueryRow("PRAGMA journal_mode").Scan(&mode))
	return mode
}

func TestValidateAll_RollbackJournalStores(t *testing.T) {
	ctx := context.Background()
	paths := testPaths(t)

	h := rollbackJournalStore(t, paths.Harvest, schema.Harvest)
	seedCandidates(t, h, model.Candidate{Name: "Acme", Website: "https://acme.test"})
	e := rollbackJournalStore(t, paths.Enrichment, schema.Enrichment)
	_, err := e.InsertEnrichment(ctx, model.Enrichment{LeadID: 1, Contacts: model.Contacts{Email: "hi@acme.test"}})
	require.NoError(t, err)
	m := rollbackJournalStore(t, paths.Master, schema.Master)
	seedMaster(t, m, model.MasterRecord{BusinessName: "Acme", PhoneNumber: "+15551234567", Email: "hi@acme.test"})

	v := New(paths, zap.NewNop())
	for i := 0; i < 20; i++ {
		reports := v.ValidateAll(ctx)
		require.Len(t, reports, 3)
		for _, r := range reports {
			assert.True(t, r.Passed(), "run %d %s: %s", i, r.Name, r.Error)
		}
	}

	for _, p := range []string{paths.Harvest, paths.Enrichment, paths.Master} {
		assert.Equal(t, "delete", journalMode(t, p), p)
	}
}
