package records

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/ordersync/internal/client/models"
	"github.com/dmitrijs2005/ordersync/internal/client/storage"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	o := storage.NewOpener(storage.MemoryPath, nil)
	db, err := o.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = o.Close() })
	return db
}

func TestPutAndGetAll(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository[models.Client](db, Clients)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, models.Client{ID: 2, FirstName: "Bob"}))
	require.NoError(t, r.Put(ctx, models.Client{ID: -10, FirstName: "Offline1"}))
	require.NoError(t, r.Put(ctx, models.Client{ID: 1, FirstName: "Ann"}))
	require.NoError(t, r.Put(ctx, models.Client{ID: -11, FirstName: "Offline2"}))

	got, err := r.GetAll(ctx)
	require.NoError(t, err)

	names := make([]string, 0, len(got))
	for _, c := range got {
		names = append(names, c.FirstName)
	}
	assert.Equal(t, []string{"Ann", "Bob", "Offline1", "Offline2"}, names)
}

func TestGetAll_Empty(t *testing.T) {
	r := NewSQLiteRepository[models.Product](setupDB(t), Products)
	got, err := r.GetAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPut_Upserts(t *testing.T) {
	r := NewSQLiteRepository[models.Product](setupDB(t), Products)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, models.Product{ID: 5, Title: "Cake", Price: 10}))
	require.NoError(t, r.Put(ctx, models.Product{ID: 5, Title: "Cake", Price: 12, Image: "data:image/png;base64,AA=="}))

	got, err := r.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, models.Money(12), got.Price)
	assert.Equal(t, "data:image/png;base64,AA==", got.Image)

	all, err := r.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAdd_DuplicateKey(t *testing.T) {
	r := NewSQLiteRepository[models.Client](setupDB(t), Clients)
	ctx := context.Background()

	require.NoError(t, r.Add(ctx, models.Client{ID: -1, FirstName: "A"}))
	err := r.Add(ctx, models.Client{ID: -1, FirstName: "B"})
	require.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := r.Get(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, "A", got.FirstName, "failed add must not overwrite")
}

func TestGet_NotFound(t *testing.T) {
	r := NewSQLiteRepository[models.User](setupDB(t), Users)
	_, err := r.Get(context.Background(), 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDelete_IsNoOpWhenAbsent(t *testing.T) {
	r := NewSQLiteRepository[models.Client](setupDB(t), Clients)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, models.Client{ID: 1}))
	require.NoError(t, r.Delete(ctx, 1))
	require.NoError(t, r.Delete(ctx, 1))
	require.NoError(t, r.Delete(ctx, 404))

	all, err := r.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestReplaceAll_IsIdempotent(t *testing.T) {
	r := NewSQLiteRepository[models.Order](setupDB(t), Orders)
	ctx := context.Background()
	clientID := models.ID(3)
	date := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, r.Put(ctx, models.Order{ID: 99, Title: "stale"}))

	items := []models.Order{
		{ID: 1, Title: "a", Date: date, ClientID: &clientID, Products: []models.OrderLine{{ProductID: 1, Quantity: 2, PriceAtOrder: 5}}, Total: 10},
		{ID: 2, Title: "b", Date: date, Products: []models.OrderLine{}},
	}

	require.NoError(t, r.ReplaceAll(ctx, items))
	first, err := r.GetAll(ctx)
	require.NoError(t, err)

	require.NoError(t, r.ReplaceAll(ctx, items))
	second, err := r.GetAll(ctx)
	require.NoError(t, err)

	if diff := cmp.Diff(items, first); diff != "" {
		t.Fatalf("store contents mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, first, second)
}

func TestClear(t *testing.T) {
	r := NewSQLiteRepository[models.Client](setupDB(t), Clients)
	ctx := context.Background()
	require.NoError(t, r.Put(ctx, models.Client{ID: 1}))
	require.NoError(t, r.Clear(ctx))
	require.NoError(t, r.Clear(ctx))
	all, err := r.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestErrorsAreStorageUnavailable(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository[models.Client](db, Clients)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.GetAll(ctx)
	assert.ErrorIs(t, err, storage.ErrStorageUnavailable)
	assert.ErrorIs(t, r.Put(ctx, models.Client{ID: 1}), storage.ErrStorageUnavailable)
	assert.ErrorIs(t, r.Clear(ctx), storage.ErrStorageUnavailable)
	assert.Contains(t, r.Delete(ctx, 1).Error(), "failed to delete clients[1]")
}

func TestNewSQLiteRepository_UnknownTable(t *testing.T) {
	assert.Panics(t, func() {
		NewSQLiteRepository[models.Client](setupDB(t), Table("clients; DROP TABLE orders"))
	})
}
