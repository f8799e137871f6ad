package store

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-harvest/internal/schema"
)

// TableColumns returns the column names of table in declaration order. A
// missing table yields an empty slice.
func (d *DB) TableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, eris.Wrapf(err, "store: table info %s", table)
	}
	defer rows.Close() //nolint:errcheck

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "store: scan column name")
		}
		cols = append(cols, name)
	}
	return cols, eris.Wrap(rows.Err(), "store: table info iterate")
}

// CountRows counts every row of a registered table.
func (d *DB) CountRows(ctx context.Context, table string) (int, error) {
	return d.CountWhere(ctx, table, "")
}

// CountWhere counts the rows of a registered table matching the SQL
// predicate where. Predicates are fixed strings owned by callers in this
// module, never user input.
func (d *DB) CountWhere(ctx context.Context, table, where string) (int, error) {
	if _, err := schema.Lookup(table); err != nil {
		return 0, err
	}
	query := `SELECT COUNT(*) FROM ` + table
	if where != "" {
		query += ` WHERE ` + where
	}

	var n int
	if err := d.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, eris.Wrapf(err, "store: count %s", table)
	}
	return n, nil
}

// PhoneNumbers returns every non-null master phone number.
func (d *DB) PhoneNumbers(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT phone_number FROM master_leads WHERE phone_number IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "store: list phone numbers")
	}
	defer rows.Close() //nolint:errcheck

	var out []string
	for rows.Next() {
		var p sql.NullString
		if err := rows.Scan(&p); err != nil {
			return nil, eris.Wrap(err, "store: scan phone number")
		}
		out = append(out, p.String)
	}
	return out, eris.Wrap(rows.Err(), "store: phone numbers iterate")
}
