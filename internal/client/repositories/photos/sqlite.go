package photos

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/ordersync/internal/client/models"
	"github.com/dmitrijs2005/ordersync/internal/client/storage"
	"github.com/dmitrijs2005/ordersync/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get returns storage.ErrNotFound when ref was never cached.
func (r *SQLiteRepository) Get(ctx context.Context, ref string) (models.Photo, error) {
	p := models.Photo{Ref: ref}
	err := r.db.QueryRowContext(ctx, `SELECT image, fetched_at FROM photos WHERE ref = ?`, ref).
		Scan(&p.Image, &p.FetchedAt)
	if err != nil {
		return models.Photo{}, fmt.Errorf("failed to get photo[%s]: %w", ref, storage.MapError(err))
	}
	return p, nil
}

func (r *SQLiteRepository) Put(ctx context.Context, p models.Photo) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO photos (ref, image, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(ref) DO UPDATE SET image = excluded.image, fetched_at = excluded.fetched_at
	`, p.Ref, p.Image, p.FetchedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert photo[%s]: %w", p.Ref, storage.MapError(err))
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, ref string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM photos WHERE ref = ?`, ref)
	if err != nil {
		return fmt.Errorf("failed to delete photo[%s]: %w", ref, storage.MapError(err))
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM photos`); err != nil {
		return fmt.Errorf("failed to clear photos: %w", storage.MapError(err))
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM photos`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count photos: %w", storage.MapError(err))
	}
	return n, nil
}
