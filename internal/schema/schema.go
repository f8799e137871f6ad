// Package schema is the typed registry of phase tables. Each phase store
// creates its table from one of these descriptors.
package schema

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Logical dataset names. Each doubles as the table name inside its store.
const (
	Harvest    = "lead_harvest"
	Enrichment = "enrichment"
	Master     = "master_leads"
)

// ErrNotFound is returned when a dataset name is absent from the registry.
var ErrNotFound = eris.New("schema: not found")

// ColumnType is a SQLite storage class.
type ColumnType string

const (
	Integer ColumnType = "INTEGER"
	Text    ColumnType = "TEXT"
)

// Column describes one table column.
type Column struct {
	Name       string
	Type       ColumnType
	PrimaryKey bool
	NotNull    bool
}

// Schema is an ordered list of columns plus the natural key used for
// uniqueness. Nullable natural-key columns compare NULL and '' as equal.
type Schema struct {
	Name       string
	Columns    []Column
	NaturalKey []string
	Indexes    []Index
}

// Index is a secondary, non-unique index.
type Index struct {
	Name    string
	Columns []string
}

var registry = map[string]Schema{
	Harvest: {
		Name: Harvest,
		Columns: []Column{
			{Name: "id", Type: Integer, PrimaryKey: true},
			{Name: "name", Type: Text, NotNull: true},
			{Name: "phone", Type: Text},
			{Name: "website", Type: Text},
			{Name: "address", Type: Text},
			{Name: "google_maps_url", Type: Text},
		},
		NaturalKey: []string{"name", "phone", "website", "address", "google_maps_url"},
	},
	Enrichment: {
		Name: Enrichment,
		Columns: []Column{
			{Name: "id", Type: Integer, PrimaryKey: true},
			{Name: "lead_id", Type: Integer, NotNull: true},
			{Name: "email", Type: Text},
			{Name: "facebook", Type: Text},
			{Name: "instagram", Type: Text},
			{Name: "linkedin", Type: Text},
		},
		Indexes: []Index{
			{Name: "idx_enrichment_lead_id", Columns: []string{"lead_id", "id"}},
		},
	},
	Master: {
		Name: Master,
		Columns: []Column{
			{Name: "id", Type: Integer, PrimaryKey: true},
			{Name: "business_name", Type: Text, NotNull: true},
			{Name: "phone_number", Type: Text},
			{Name: "website", Type: Text},
			{Name: "email", Type: Text},
			{Name: "facebook_url", Type: Text},
			{Name: "instagram_url", Type: Text},
			{Name: "linkedin_url", Type: Text},
			{Name: "address", Type: Text},
			{Name: "source_url", Type: Text},
		},
		NaturalKey: []string{"business_name"},
	},
}

// Lookup returns the schema registered under name.
func Lookup(name string) (Schema, error) {
	s, ok := registry[name]
	if !ok {
		return Schema{}, eris.Wrapf(ErrNotFound, "schema %q", name)
	}
	return s, nil
}

// Names returns the registered dataset names in pipeline order.
func Names() []string {
	return []string{Harvest, Enrichment, Master}
}

// Validate checks every registered descriptor once at startup.
func Validate() error {
	for _, name := range Names() {
		s, err := Lookup(name)
		if err != nil {
			return err
		}
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks a single descriptor for structural mistakes.
func (s Schema) Validate() error {
	if s.Name == "" {
		return eris.New("schema: empty name")
	}
	if len(s.Columns) == 0 {
		return eris.Errorf("schema %s: no columns", s.Name)
	}
	seen := make(map[string]bool, len(s.Columns))
	pks := 0
	for _, c := range s.Columns {
		if c.Name == "" {
			return eris.Errorf("schema %s: column with empty name", s.Name)
		}
		if seen[c.Name] {
			return eris.Errorf("schema %s: duplicate column %s", s.Name, c.Name)
		}
		seen[c.Name] = true
		switch c.Type {
		case Integer, Text:
		default:
			return eris.Errorf("schema %s: column %s has unsupported type %q", s.Name, c.Name, c.Type)
		}
		if c.PrimaryKey {
			pks++
		}
	}
	if pks != 1 {
		return eris.Errorf("schema %s: want exactly one primary key, got %d", s.Name, pks)
	}
	for _, k := range s.NaturalKey {
		if !seen[k] {
			return eris.Errorf("schema %s: natural key column %s not defined", s.Name, k)
		}
	}
	for _, idx := range s.Indexes {
		for _, k := range idx.Columns {
			if !seen[k] {
				return eris.Errorf("schema %s: index %s references unknown column %s", s.Name, idx.Name, k)
			}
		}
	}
	return nil
}

// RequiredColumns lists the columns a validator expects, excluding the
// store-assigned primary key.
func (s Schema) RequiredColumns() []string {
	var cols []string
	for _, c := range s.Columns {
		if !c.PrimaryKey {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

func (s Schema) column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// CreateTableSQL renders the DDL statements for s. The result is safe to run
// on every start.
func CreateTableSQL(s Schema) []string {
	defs := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		def := c.Name + " " + string(c.Type)
		if c.PrimaryKey {
			def += " PRIMARY KEY AUTOINCREMENT"
		}
		if c.NotNull {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}

	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", s.Name, strings.Join(defs, ", ")),
	}

	if len(s.NaturalKey) > 0 {
		keys := make([]string, 0, len(s.NaturalKey))
		for _, k := range s.NaturalKey {
			// UNIQUE treats NULLs as distinct; fold them to '' so the
			// natural key dedups optional fields too.
			if c, ok := s.column(k); ok && !c.NotNull {
				keys = append(keys, fmt.Sprintf("IFNULL(%s, '')", k))
				continue
			}
			keys = append(keys, k)
		}
		stmts = append(stmts, fmt.Sprintf(
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_natural_key ON %s (%s)",
			s.Name, s.Name, strings.Join(keys, ", "),
		))
	}

	for _, idx := range s.Indexes {
		stmts = append(stmts, fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			idx.Name, s.Name, strings.Join(idx.Columns, ", "),
		))
	}

	return stmts
}
