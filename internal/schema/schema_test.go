package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Registry(t *testing.T) {
	require.NoError(t, Validate())
}

func TestLookup_Known(t *testing.T) {
	for _, name := range Names() {
		s, err := Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name)
	}
}

func TestLookup_Unknown(t *testing.T) {
	_, err := Lookup("does_not_exist")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "does_not_exist")
}

func TestRequiredColumns(t *testing.T) {
	tests := []struct {
		name string
		want []string
	}{
		{Harvest, []string{"name", "phone", "website", "address", "google_maps_url"}},
		{Enrichment, []string{"lead_id", "email", "facebook", "instagram", "linkedin"}},
		{Master, []string{"business_name", "phone_number", "website", "email", "facebook_url", "instagram_url", "linkedin_url", "address", "source_url"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Lookup(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.RequiredColumns())
		})
	}
}

func TestCreateTableSQL_Harvest(t *testing.T) {
	s, err := Lookup(Harvest)
	require.NoError(t, err)

	stmts := CreateTableSQL(s)
	require.Len(t, stmts, 2)
	assert.True(t, strings.HasPrefix(stmts[0], "CREATE TABLE IF NOT EXISTS lead_harvest ("))
	assert.Contains(t, stmts[0], "id INTEGER PRIMARY KEY AUTOINCREMENT")
	assert.Contains(t, stmts[0], "name TEXT NOT NULL")
	assert.Contains(t, stmts[1], "CREATE UNIQUE INDEX IF NOT EXISTS idx_lead_harvest_natural_key")
	assert.Contains(t, stmts[1], "name, IFNULL(phone, '')")
	assert.Contains(t, stmts[1], "IFNULL(google_maps_url, '')")
}

func TestCreateTableSQL_MasterKeyNotFolded(t *testing.T) {
	s, err := Lookup(Master)
	require.NoError(t, err)

	stmts := CreateTableSQL(s)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[1], "ON master_leads (business_name)")
}

func TestCreateTableSQL_EnrichmentIndex(t *testing.T) {
	s, err := Lookup(Enrichment)
	require.NoError(t, err)

	stmts := CreateTableSQL(s)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE INDEX IF NOT EXISTS idx_enrichment_lead_id ON enrichment (lead_id, id)", stmts[1])
}

func TestSchemaValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		schema Schema
		errMsg string
	}{
		{"empty name", Schema{}, "empty name"},
		{"no columns", Schema{Name: "t"}, "no columns"},
		{"duplicate column", Schema{Name: "t", Columns: []Column{
			{Name: "id", Type: Integer, PrimaryKey: true},
			{Name: "id", Type: Text},
		}}, "duplicate column"},
		{"bad type", Schema{Name: "t", Columns: []Column{
			{Name: "id", Type: "BLOB", PrimaryKey: true},
		}}, "unsupported type"},
		{"no primary key", Schema{Name: "t", Columns: []Column{
			{Name: "a", Type: Text},
		}}, "exactly one primary key"},
		{"unknown natural key", Schema{Name: "t", Columns: []Column{
			{Name: "id", Type: Integer, PrimaryKey: true},
		}, NaturalKey: []string{"missing"}}, "natural key column missing"},
		{"unknown index column", Schema{Name: "t", Columns: []Column{
			{Name: "id", Type: Integer, PrimaryKey: true},
		}, Indexes: []Index{{Name: "idx", Columns: []string{"nope"}}}}, "unknown column nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
