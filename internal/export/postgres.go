// Package export delivers master records to downstream systems: a
// spreadsheet for outreach and a Postgres table for the CRM.
package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-harvest/internal/model"
)

// DefaultTable is the Postgres table master records are upserted into.
const DefaultTable = "master_leads"

// Pool is the subset of *pgxpool.Pool the export uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// masterColumns is the COPY column order; masterRow must match it.
var masterColumns = []string{
	"business_name", "phone_number", "website", "email",
	"facebook_url", "instagram_url", "linkedin_url", "address", "source_url",
}

func masterRow(r model.MasterRecord) []any {
	return []any{
		r.BusinessName, nullable(r.PhoneNumber), nullable(r.Website), nullable(r.Email),
		nullable(r.FacebookURL), nullable(r.InstagramURL), nullable(r.LinkedInURL),
		nullable(r.Address), nullable(r.SourceURL),
	}
}

// Postgres upserts master records into a Postgres table keyed on
// business_name.
type Postgres struct {
	pool  Pool
	name  string
	table pgx.Identifier
	stage pgx.Identifier
	log   *zap.Logger
}

// NewPostgres returns a Postgres exporter writing to table, or DefaultTable
// when table is empty. A schema-qualified name such as "crm.leads" is
// accepted.
func NewPostgres(pool Pool, table string, log *zap.Logger) *Postgres {
	if table == "" {
		table = DefaultTable
	}
	ident := pgx.Identifier(strings.Split(table, "."))
	return &Postgres{
		pool:  pool,
		name:  table,
		table: ident,
		stage: pgx.Identifier{"_stage_" + ident[len(ident)-1]},
		log:   log.With(zap.String("component", "export.postgres")),
	}
}

// EnsureTable creates the target table when it does not exist.
func (p *Postgres) EnsureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	business_name TEXT NOT NULL UNIQUE,
	phone_number TEXT,
	website TEXT,
	email TEXT,
	facebook_url TEXT,
	instagram_url TEXT,
	linkedin_url TEXT,
	address TEXT,
	source_url TEXT,
	exported_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, p.table.Sanitize())
	if _, err := p.pool.Exec(ctx, ddl); err != nil {
		return eris.Wrapf(err, "export: create table %s", p.name)
	}
	return nil
}

// Export ensures the table and upserts records. It returns the number of
// rows inserted or changed; a record identical to its stored row is left
// alone.
func (p *Postgres) Export(ctx context.Context, records []model.MasterRecord) (int64, error) {
	if err := p.EnsureTable(ctx); err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	n, err := p.upsert(ctx, records)
	if err != nil {
		p.log.Error("postgres export failed", zap.String("table", p.name), zap.Error(err))
		return 0, err
	}
	p.log.Info("postgres export complete",
		zap.String("table", p.name),
		zap.Int("records", len(records)),
		zap.Int64("rows_affected", n),
	)
	return n, nil
}

// upsert stages records with COPY and merges them in one transaction. The
// staging table drops on commit.
func (p *Postgres) upsert(ctx context.Context, records []model.MasterRecord) (int64, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "export: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	stage := fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		p.stage.Sanitize(), p.table.Sanitize())
	if _, err := tx.Exec(ctx, stage); err != nil {
		return 0, eris.Wrapf(err, "export: create staging table for %s", p.name)
	}

	src := pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
		return masterRow(records[i]), nil
	})
	if _, err := tx.CopyFrom(ctx, p.stage, masterColumns, src); err != nil {
		return 0, eris.Wrapf(err, "export: copy master records for %s", p.name)
	}

	tag, err := tx.Exec(ctx, mergeSQL(p.table, p.stage))
	if err != nil {
		return 0, eris.Wrapf(err, "export: merge into %s", p.name)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "export: commit tx")
	}
	return tag.RowsAffected(), nil
}

// mergeSQL inserts staged records into table. On a business_name conflict
// the stored row takes the staged values only if any of them differ.
func mergeSQL(table, stage pgx.Identifier) string {
	cols := make([]string, len(masterColumns))
	for i, c := range masterColumns {
		cols[i] = pgx.Identifier{c}.Sanitize()
	}
	data := cols[1:]

	set := make([]string, 0, len(data)+1)
	current := make([]string, len(data))
	incoming := make([]string, len(data))
	for i, c := range data {
		set = append(set, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
		current[i] = "t." + c
		incoming[i] = "EXCLUDED." + c
	}
	set = append(set, "exported_at = now()")

	list := strings.Join(cols, ", ")
	return fmt.Sprintf(
		"INSERT INTO %s AS t (%s) SELECT %s FROM %s "+
			"ON CONFLICT (business_name) DO UPDATE SET %s "+
			"WHERE (%s) IS DISTINCT FROM (%s)",
		table.Sanitize(), list, list, stage.Sanitize(),
		strings.Join(set, ", "),
		strings.Join(current, ", "), strings.Join(incoming, ", "),
	)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
