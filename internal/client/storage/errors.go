package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrStorageUnavailable = errors.New("local storage unavailable")
	ErrDuplicateKey       = errors.New("record with this key already exists")
	ErrNotFound           = errors.New("record not found")
	ErrSchemaTooNew       = fmt.Errorf("%w: database schema is newer than this build supports", ErrStorageUnavailable)
)

// MapError classifies a database/sql error into the store's sentinels.
// Constraint violations become ErrDuplicateKey, missing rows ErrNotFound and
// everything else ErrStorageUnavailable. The original error stays wrapped.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrDuplicateKey) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
	}
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}
