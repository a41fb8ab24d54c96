// Package photos caches product photo blobs keyed by their remote reference.
// Entries are not tied to any product and live until cleared.
package photos

import (
	"context"

	"github.com/dmitrijs2005/ordersync/internal/client/models"
)

type Repository interface {
	Get(ctx context.Context, ref string) (models.Photo, error)
	Put(ctx context.Context, p models.Photo) error
	Delete(ctx context.Context, ref string) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}
