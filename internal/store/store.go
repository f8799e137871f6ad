// Package store persists each pipeline phase in its own SQLite file.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/lead-harvest/internal/schema"
)

// ErrStoreMissing is returned by OpenReadOnly when the file is absent.
var ErrStoreMissing = eris.New("store: file does not exist")

// UnavailableError reports that a store's directory or file could not be
// created or opened. It aborts the phase that hit it.
type UnavailableError struct {
	Path string
	Err  error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("store: %s unavailable: %v", e.Path, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err (or any error in its chain) is an
// UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// DB is the handle to one phase's SQLite file.
type DB struct {
	db   *sql.DB
	path string
	log  *zap.Logger
}

// Open creates the containing directory if needed and opens the SQLite file
// at path in WAL mode. Every pooled connection gets the busy timeout before
// any other pragma.
func Open(ctx context.Context, path string, log *zap.Logger) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error("store: create directory failed", zap.String("dir", dir), zap.Error(err))
			return nil, &UnavailableError{Path: path, Err: eris.Wrap(err, "create directory")}
		}
	}
	return open(ctx, path, dsn(path, false), log)
}

// OpenReadOnly opens a store that an earlier phase must already have
// produced, without changing its journal mode or writing to it. A missing
// file yields ErrStoreMissing.
func OpenReadOnly(ctx context.Context, path string, log *zap.Logger) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(ErrStoreMissing, "store: %s", path)
		}
		return nil, &UnavailableError{Path: path, Err: eris.Wrap(err, "stat")}
	}
	return open(ctx, path, dsn(path, true), log)
}

func open(ctx context.Context, path, source string, log *zap.Logger) (*DB, error) {
	db, err := sql.Open("sqlite", source)
	if err != nil {
		log.Error("store: open failed", zap.String("path", path), zap.Error(err))
		return nil, &UnavailableError{Path: path, Err: eris.Wrap(err, "open")}
	}
	// The driver connects lazily; ping so a bad file fails here.
	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck
		log.Error("store: connect failed", zap.String("path", path), zap.Error(err))
		return nil, &UnavailableError{Path: path, Err: eris.Wrap(err, "connect")}
	}

	log.Debug("store: opened", zap.String("path", path))
	return &DB{db: db, path: path, log: log}, nil
}

// dsn builds a file: URI for path. Pragmas apply in order on every new
// connection. The path is made absolute so no segment reads as a URI
// authority.
func dsn(path string, readOnly bool) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	if readOnly {
		q.Set("mode", "ro")
	} else {
		q.Add("_pragma", "journal_mode(WAL)")
		q.Add("_pragma", "synchronous(NORMAL)")
	}
	u := url.URL{Scheme: "file", Path: p, RawQuery: q.Encode()}
	return u.String()
}

// New wraps an already-open *sql.DB.
func New(db *sql.DB, path string, log *zap.Logger) *DB {
	return &DB{db: db, path: path, log: log}
}

// Path returns the file backing the store.
func (d *DB) Path() string { return d.path }

// Close releases the underlying connection pool.
func (d *DB) Close() error {
	return d.db.Close()
}

// EnsureTable creates the table registered under name if it does not exist.
func (d *DB) EnsureTable(ctx context.Context, name string) error {
	s, err := schema.Lookup(name)
	if err != nil {
		d.log.Error("store: schema lookup failed", zap.String("schema", name), zap.Error(err))
		return err
	}
	for _, stmt := range schema.CreateTableSQL(s) {
		if _, err := d.exec(ctx, "ensure table "+name, stmt); err != nil {
			return err
		}
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execLogged runs a write statement. Failures are logged and returned
// wrapped, never swallowed.
func execLogged(ctx context.Context, ex execer, log *zap.Logger, op, query string, args ...any) (sql.Result, error) {
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("store: write failed", zap.String("op", op), zap.Error(err))
		return nil, eris.Wrapf(err, "store: %s", op)
	}
	return res, nil
}

func (d *DB) exec(ctx context.Context, op, query string, args ...any) (sql.Result, error) {
	return execLogged(ctx, d.db, d.log.With(zap.String("path", d.path)), op, query, args...)
}

// nullString maps "" to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type scannable interface {
	Scan(dest ...any) error
}
