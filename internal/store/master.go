package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-harvest/internal/model"
)

const masterColumns = `id, business_name, phone_number, website, email, facebook_url, instagram_url, linkedin_url, address, source_url`

// MasterIdentity is the part of a master record the merge policy decides on.
type MasterIdentity struct {
	ID           int64
	BusinessName string
	HasEmail     bool
}

// MasterTx groups every master-store write of one aggregation pass so the
// pass commits or rolls back as a unit.
type MasterTx struct {
	tx  *sql.Tx
	log *zap.Logger
}

// BeginMaster starts a transaction on the master store.
func (d *DB) BeginMaster(ctx context.Context) (*MasterTx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		d.log.Error("store: begin master tx failed", zap.String("path", d.path), zap.Error(err))
		return nil, eris.Wrap(err, "store: begin master tx")
	}
	return &MasterTx{tx: tx, log: d.log.With(zap.String("path", d.path))}, nil
}

// Identities returns every master record's identity in id order.
func (m *MasterTx) Identities(ctx context.Context) ([]MasterIdentity, error) {
	rows, err := m.tx.QueryContext(ctx,
		`SELECT id, business_name, email IS NOT NULL AND email != '' FROM master_leads ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "store: list master identities")
	}
	defer rows.Close() //nolint:errcheck

	var out []MasterIdentity
	for rows.Next() {
		var mi MasterIdentity
		if err := rows.Scan(&mi.ID, &mi.BusinessName, &mi.HasEmail); err != nil {
			return nil, eris.Wrap(err, "store: scan master identity")
		}
		out = append(out, mi)
	}
	return out, eris.Wrap(rows.Err(), "store: master identities iterate")
}

// Insert adds a new master record and returns its id.
func (m *MasterTx) Insert(ctx context.Context, r model.MasterRecord) (int64, error) {
	res, err := execLogged(ctx, m.tx, m.log, "insert master record",
		`INSERT INTO master_leads (business_name, phone_number, website, email, facebook_url, instagram_url, linkedin_url, address, source_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.BusinessName, nullString(r.PhoneNumber), nullString(r.Website), nullString(r.Email),
		nullString(r.FacebookURL), nullString(r.InstagramURL), nullString(r.LinkedInURL),
		nullString(r.Address), nullString(r.SourceURL),
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return id, eris.Wrap(err, "store: master last insert id")
}

// Update overwrites every non-identity column of the record with id r.ID.
func (m *MasterTx) Update(ctx context.Context, r model.MasterRecord) error {
	res, err := execLogged(ctx, m.tx, m.log, "update master record",
		`UPDATE master_leads SET
			phone_number = ?, website = ?, email = ?, facebook_url = ?, instagram_url = ?,
			linkedin_url = ?, address = ?, source_url = ?
		 WHERE id = ?`,
		nullString(r.PhoneNumber), nullString(r.Website), nullString(r.Email),
		nullString(r.FacebookURL), nullString(r.InstagramURL), nullString(r.LinkedInURL),
		nullString(r.Address), nullString(r.SourceURL), r.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "store: update master rows affected")
	}
	if n == 0 {
		return eris.Errorf("store: master record not found: %d", r.ID)
	}
	return nil
}

// Commit makes the pass durable.
func (m *MasterTx) Commit() error {
	if err := m.tx.Commit(); err != nil {
		m.log.Error("store: commit master tx failed", zap.Error(err))
		return eris.Wrap(err, "store: commit master tx")
	}
	return nil
}

// Rollback discards the pass. Calling it after Commit is a no-op.
func (m *MasterTx) Rollback() error {
	err := m.tx.Rollback()
	if err == nil || errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return eris.Wrap(err, "store: rollback master tx")
}

// ListMaster returns every master record in id order.
func (d *DB) ListMaster(ctx context.Context) ([]model.MasterRecord, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+masterColumns+` FROM master_leads ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "store: list master")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.MasterRecord
	for rows.Next() {
		r, err := scanMaster(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "store: list master iterate")
}

func scanMaster(row scannable) (model.MasterRecord, error) {
	var r model.MasterRecord
	var phone, website, email, fb, ig, li, addr, src sql.NullString
	if err := row.Scan(&r.ID, &r.BusinessName, &phone, &website, &email, &fb, &ig, &li, &addr, &src); err != nil {
		return r, eris.Wrap(err, "store: scan master record")
	}
	r.PhoneNumber = phone.String
	r.Website = website.String
	r.Email = email.String
	r.FacebookURL = fb.String
	r.InstagramURL = ig.String
	r.LinkedInURL = li.String
	r.Address = addr.String
	r.SourceURL = src.String
	return r, nil
}
