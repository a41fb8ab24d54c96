package records

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/ordersync/internal/client/models"
	"github.com/dmitrijs2005/ordersync/internal/client/storage"
	"github.com/dmitrijs2005/ordersync/internal/dbx"
)

// SQLiteRepository implements Store over one records table.
type SQLiteRepository[T models.Entity[T]] struct {
	db    dbx.DBTX
	table Table
}

// NewSQLiteRepository binds a repository to table. It panics on a table name
// that is not one of the declared collections.
func NewSQLiteRepository[T models.Entity[T]](db dbx.DBTX, table Table) *SQLiteRepository[T] {
	switch table {
	case Clients, Products, Orders, Users:
	default:
		panic(fmt.Sprintf("records: unknown table %q", table))
	}
	return &SQLiteRepository[T]{db: db, table: table}
}

// GetAll returns remote records by ascending id followed by provisional
// records in creation order.
func (r *SQLiteRepository[T]) GetAll(ctx context.Context) ([]T, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT payload FROM `+string(r.table)+`
		ORDER BY CASE WHEN id < 0 THEN 1 ELSE 0 END, ABS(id)`)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", r.table, storage.MapError(err))
	}
	defer rows.Close()

	result := make([]T, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", r.table, storage.MapError(err))
		}
		item, err := decode[T](payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s row: %w", r.table, err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", r.table, storage.MapError(err))
	}
	return result, nil
}

func (r *SQLiteRepository[T]) Get(ctx context.Context, id models.ID) (T, error) {
	var zero T
	var payload []byte
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM `+string(r.table)+` WHERE id = ?`, int64(id)).Scan(&payload)
	if err != nil {
		return zero, fmt.Errorf("failed to get %s[%d]: %w", r.table, id, storage.MapError(err))
	}
	item, err := decode[T](payload)
	if err != nil {
		return zero, fmt.Errorf("failed to decode %s[%d]: %w", r.table, id, err)
	}
	return item, nil
}

// Put upserts item by id.
func (r *SQLiteRepository[T]) Put(ctx context.Context, item T) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode %s record: %w", r.table, err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO `+string(r.table)+` (id, payload) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload`, int64(item.RecordID()), payload)
	if err != nil {
		return fmt.Errorf("failed to upsert %s record: %w", r.table, storage.MapError(err))
	}
	return nil
}

// Add inserts item and fails with storage.ErrDuplicateKey when the id is taken.
func (r *SQLiteRepository[T]) Add(ctx context.Context, item T) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode %s record: %w", r.table, err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO `+string(r.table)+` (id, payload) VALUES (?, ?)`,
		int64(item.RecordID()), payload)
	if err != nil {
		return fmt.Errorf("failed to insert %s record: %w", r.table, storage.MapError(err))
	}
	return nil
}

// Delete removes the record; deleting a missing id is not an error.
func (r *SQLiteRepository[T]) Delete(ctx context.Context, id models.ID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM `+string(r.table)+` WHERE id = ?`, int64(id))
	if err != nil {
		return fmt.Errorf("failed to delete %s[%d]: %w", r.table, id, storage.MapError(err))
	}
	return nil
}

func (r *SQLiteRepository[T]) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM `+string(r.table))
	if err != nil {
		return fmt.Errorf("failed to clear %s: %w", r.table, storage.MapError(err))
	}
	return nil
}

// ReplaceAll clears the table and then puts every item, one statement at a
// time. A failure part-way leaves the table partially repopulated.
func (r *SQLiteRepository[T]) ReplaceAll(ctx context.Context, items []T) error {
	if err := r.Clear(ctx); err != nil {
		return err
	}
	for _, item := range items {
		if err := r.Put(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func decode[T any](payload []byte) (T, error) {
	var item T
	if err := json.Unmarshal(payload, &item); err != nil {
		return item, fmt.Errorf("%w: %w", storage.ErrStorageUnavailable, err)
	}
	return item, nil
}
