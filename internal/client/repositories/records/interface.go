// Package records stores id-keyed collections (clients, products, orders,
// users) as JSON payloads in the local SQLite database.
package records

import (
	"context"

	"github.com/dmitrijs2005/ordersync/internal/client/models"
)

// Table names one of the id-keyed collections.
type Table string

const (
	Clients  Table = "clients"
	Products Table = "products"
	Orders   Table = "orders"
	Users    Table = "users"
)

// Store is the contract the sync engine depends on. Errors are classified
// with the storage sentinels.
type Store[T any] interface {
	GetAll(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id models.ID) (T, error)
	Put(ctx context.Context, item T) error
	Add(ctx context.Context, item T) error
	Delete(ctx context.Context, id models.ID) error
	Clear(ctx context.Context) error
	ReplaceAll(ctx context.Context, items []T) error
}
