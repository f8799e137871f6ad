package store

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-harvest/internal/model"
)

const candidateColumns = `id, name, phone, website, address, google_maps_url`

// InsertCandidate inserts c unless an identical natural-key tuple already
// exists. inserted is false for the duplicate case, which is not an error.
func (d *DB) InsertCandidate(ctx context.Context, c model.Candidate) (bool, error) {
	if c.Name == "" {
		return false, eris.New("store: candidate name is required")
	}
	res, err := d.exec(ctx, "insert candidate",
		`INSERT OR IGNORE INTO lead_harvest (name, phone, website, address, google_maps_url) VALUES (?, ?, ?, ?, ?)`,
		c.Name, nullString(c.Phone), nullString(c.Website), nullString(c.Address), nullString(c.SourceURL),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "store: insert candidate rows affected")
	}
	return n == 1, nil
}

// ListCandidates returns every candidate in insertion order.
func (d *DB) ListCandidates(ctx context.Context) ([]model.Candidate, error) {
	return d.queryCandidates(ctx, `SELECT `+candidateColumns+` FROM lead_harvest ORDER BY id`)
}

// ListCandidatesWithWebsite returns candidates carrying a non-empty website,
// in insertion order.
func (d *DB) ListCandidatesWithWebsite(ctx context.Context) ([]model.Candidate, error) {
	return d.queryCandidates(ctx,
		`SELECT `+candidateColumns+` FROM lead_harvest WHERE website IS NOT NULL AND website != '' ORDER BY id`)
}

func (d *DB) queryCandidates(ctx context.Context, query string) ([]model.Candidate, error) {
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "store: list candidates")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "store: list candidates iterate")
}

func scanCandidate(row scannable) (model.Candidate, error) {
	var c model.Candidate
	var phone, website, address, mapsURL sql.NullString
	if err := row.Scan(&c.ID, &c.Name, &phone, &website, &address, &mapsURL); err != nil {
		return c, eris.Wrap(err, "store: scan candidate")
	}
	c.Phone = phone.String
	c.Website = website.String
	c.Address = address.String
	c.SourceURL = mapsURL.String
	return c, nil
}
