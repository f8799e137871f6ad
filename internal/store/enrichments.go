package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-harvest/internal/model"
)

// InsertEnrichment appends one enrichment attempt and returns its id.
// Empty contact fields are stored as NULL.
func (d *DB) InsertEnrichment(ctx context.Context, e model.Enrichment) (int64, error) {
	res, err := d.exec(ctx, "insert enrichment",
		`INSERT INTO enrichment (lead_id, email, facebook, instagram, linkedin) VALUES (?, ?, ?, ?, ?)`,
		e.LeadID, nullString(e.Email), nullString(e.Facebook), nullString(e.Instagram), nullString(e.LinkedIn),
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return id, eris.Wrap(err, "store: enrichment last insert id")
}

// LatestEnrichment returns the enrichment with the highest id for leadID, or
// nil when the lead was never enriched.
func (d *DB) LatestEnrichment(ctx context.Context, leadID int64) (*model.Enrichment, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, lead_id, email, facebook, instagram, linkedin FROM enrichment
		 WHERE lead_id = ? ORDER BY id DESC LIMIT 1`,
		leadID,
	)

	var e model.Enrichment
	var email, facebook, instagram, linkedin sql.NullString
	err := row.Scan(&e.ID, &e.LeadID, &email, &facebook, &instagram, &linkedin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "store: latest enrichment for lead %d", leadID)
	}
	e.Email = email.String
	e.Facebook = facebook.String
	e.Instagram = instagram.String
	e.LinkedIn = linkedin.String
	return &e, nil
}

// EnrichedLeadIDs returns the set of lead ids with at least one enrichment row.
func (d *DB) EnrichedLeadIDs(ctx context.Context) (map[int64]bool, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT DISTINCT lead_id FROM enrichment`)
	if err != nil {
		return nil, eris.Wrap(err, "store: enriched lead ids")
	}
	defer rows.Close() //nolint:errcheck

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "store: scan lead id")
		}
		ids[id] = true
	}
	return ids, eris.Wrap(rows.Err(), "store: enriched lead ids iterate")
}
