// Package storage owns the on-device SQLite database that backs the offline
// cache. The database is opened lazily, once per process, and its schema is
// brought up to SchemaVersion with goose migrations.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/ordersync/internal/client/migrations"
	"github.com/dmitrijs2005/ordersync/internal/dbx"
	"github.com/dmitrijs2005/ordersync/internal/logging"

	_ "modernc.org/sqlite"
)

// SchemaVersion is the highest migration this build knows about.
const SchemaVersion int64 = 2

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const versionTable = "goose_db_version"

// migrateUp is a seam for tests.
var migrateUp = func(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	p, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return err
	}
	_, err = p.Up(ctx)
	return err
}

// Opener opens the database at most once. Concurrent callers of Open share
// the same handle; a failed open is retried by the next caller.
type Opener struct {
	path string
	log  logging.Logger

	mu       sync.Mutex
	db       *sql.DB
	inMemory bool
}

func NewOpener(path string, log logging.Logger) *Opener {
	if log == nil {
		log = logging.Discard()
	}
	return &Opener{path: path, log: log}
}

// Open returns the shared handle, creating the file and applying pending
// migrations on first use.
func (o *Opener) Open(ctx context.Context) (*sql.DB, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.db != nil {
		return o.db, nil
	}

	db, err := open(ctx, o.path)
	if err != nil {
		return nil, err
	}
	o.db = db
	o.inMemory = o.path == MemoryPath
	o.log.Debug(ctx, "local store opened", "path", o.path)
	return db, nil
}

// OpenOrMemory behaves like Open but falls back to an empty in-memory
// database when the on-disk store cannot be used. Data written to the
// fallback is lost on exit.
func (o *Opener) OpenOrMemory(ctx context.Context) (*sql.DB, error) {
	db, err := o.Open(ctx)
	if err == nil {
		return db, nil
	}

	o.log.Warn(ctx, "local store unavailable, using in-memory cache for this session", "path", o.path, "error", err)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.db != nil {
		return o.db, nil
	}
	db, merr := open(ctx, MemoryPath)
	if merr != nil {
		return nil, merr
	}
	o.db = db
	o.inMemory = true
	return db, nil
}

// InMemory reports whether the current handle is not backed by a file.
func (o *Opener) InMemory() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inMemory
}

func (o *Opener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.db == nil {
		return nil
	}
	err := o.db.Close()
	o.db = nil
	return err
}

func open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	// One connection: serialises writers and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	if err := checkVersion(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := migrateUp(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to migrate: %w", ErrStorageUnavailable, err)
	}
	return db, nil
}

func dsn(path string) string {
	if path == MemoryPath {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + "_pragma=busy_timeout(5000)"
}

// checkVersion refuses databases written by a newer build.
func checkVersion(ctx context.Context, db *sql.DB) error {
	ok, err := dbx.TableExists(ctx, db, versionTable)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if !ok {
		return nil
	}

	var current int64
	err = db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version_id), 0) FROM `+versionTable+` WHERE is_applied`).Scan(&current)
	if err != nil {
		return fmt.Errorf("%w: failed to read schema version: %w", ErrStorageUnavailable, err)
	}
	if current > SchemaVersion {
		return fmt.Errorf("%w: found %d, supported %d", ErrSchemaTooNew, current, SchemaVersion)
	}
	return nil
}

// Version returns the schema version recorded in db.
func Version(ctx context.Context, db dbx.DBTX) (int64, error) {
	var v int64
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version_id), 0) FROM `+versionTable+` WHERE is_applied`).Scan(&v)
	if err != nil {
		return 0, MapError(err)
	}
	return v, nil
}
