package services

import (
	"bytes"
	"context"
	"database/sql"
	"image"
	"image/png"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/ordersync/internal/client/connectivity"
	"github.com/dmitrijs2005/ordersync/internal/client/models"
	"github.com/dmitrijs2005/ordersync/internal/client/remote"
	"github.com/dmitrijs2005/ordersync/internal/client/repositories/metadata"
	photorepo "github.com/dmitrijs2005/ordersync/internal/client/repositories/photos"
	"github.com/dmitrijs2005/ordersync/internal/client/repositories/records"
	"github.com/dmitrijs2005/ordersync/internal/client/storage"
)

var now = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

type credFlag bool

func (c credFlag) HasCredential() bool { return bool(c) }

// toggle is a mutable connectivity observer.
type toggle struct{ on atomic.Bool }

func (t *toggle) Online() bool { return t.on.Load() }

var _ connectivity.Observer = (*toggle)(nil)

// fakeRemote is an in-memory API collection.
type fakeRemote[T models.Entity[T]] struct {
	mu      sync.Mutex
	items   map[models.ID]T
	nextID  models.ID
	keys    []string
	calls   map[string]int
	listErr error
	failOn  map[string]error
}

func newFakeRemote[T models.Entity[T]](items ...T) *fakeRemote[T] {
	f := &fakeRemote[T]{items: map[models.ID]T{}, nextID: 100, calls: map[string]int{}, failOn: map[string]error{}}
	for _, it := range items {
		f.items[it.RecordID()] = it
	}
	return f
}

func (f *fakeRemote[T]) List(context.Context) ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["list"]++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]T, 0, len(f.items))
	for _, it := range f.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordID() < out[j].RecordID() })
	return out, nil
}

func (f *fakeRemote[T]) Create(_ context.Context, item T, key string) (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["create"]++
	f.keys = append(f.keys, key)
	if err := f.failOn["create"]; err != nil {
		var zero T
		return zero, err
	}
	f.nextID++
	item = item.WithID(f.nextID)
	f.items[f.nextID] = item
	return item, nil
}

func (f *fakeRemote[T]) Update(_ context.Context, id models.ID, item T) (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["update"]++
	var zero T
	if err := f.failOn["update"]; err != nil {
		return zero, err
	}
	if _, ok := f.items[id]; !ok {
		return zero, remote.ErrNotFound
	}
	f.items[id] = item
	return item, nil
}

func (f *fakeRemote[T]) Delete(_ context.Context, id models.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["delete"]++
	if err := f.failOn["delete"]; err != nil {
		return err
	}
	if _, ok := f.items[id]; !ok {
		return remote.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeRemote[T]) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// fakeSource serves the same PNG for every reference and counts calls.
type fakeSource struct {
	data  []byte
	err   error
	mu    sync.Mutex
	calls map[string]int
}

func newFakeSource(t *testing.T) *fakeSource {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	return &fakeSource{data: buf.Bytes(), calls: map[string]int{}}
}

func (s *fakeSource) Fetch(_ context.Context, ref string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[ref]++
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}

func (s *fakeSource) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled map[models.ID]int
	cancelled map[models.ID]int
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{scheduled: map[models.ID]int{}, cancelled: map[models.ID]int{}}
}

func (s *fakeScheduler) Schedule(_ context.Context, o models.Order) {
	s.mu.Lock()
	s.scheduled[o.ID]++
	s.mu.Unlock()
}

func (s *fakeScheduler) Cancel(id models.ID) {
	s.mu.Lock()
	s.cancelled[id]++
	s.mu.Unlock()
}

type fakeUploader struct {
	got    remote.Upload
	result models.Product
	err    error
}

func (u *fakeUploader) CreateProductWithPhoto(_ context.Context, p models.Product, up remote.Upload, _ string) (models.Product, error) {
	u.got = up
	if u.err != nil {
		return models.Product{}, u.err
	}
	return u.result, nil
}

// env wires every service over one in-memory database.
type env struct {
	db        *sql.DB
	net       *toggle
	deps      Deps
	meta      *metadata.SQLiteRepository
	blobs     *photorepo.SQLiteRepository
	clientsDB *records.SQLiteRepository[models.Client]
	productDB *records.SQLiteRepository[models.Product]
	ordersDB  *records.SQLiteRepository[models.Order]
	usersDB   *records.SQLiteRepository[models.User]

	clientsAPI  *fakeRemote[models.Client]
	productsAPI *fakeRemote[models.Product]
	ordersAPI   *fakeRemote[models.Order]
	source      *fakeSource
	scheduler   *fakeScheduler
	uploader    *fakeUploader

	clients  *ClientService
	products *ProductService
	orders   *OrderService
	engine   *Engine
}

func newEnv(t *testing.T, online bool) *env {
	t.Helper()
	o := storage.NewOpener(storage.MemoryPath, nil)
	db, err := o.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = o.Close() })

	e := &env{db: db, net: &toggle{}}
	e.net.on.Store(online)
	e.meta = metadata.NewSQLiteRepository(db)
	e.blobs = photorepo.NewSQLiteRepository(db)
	e.clientsDB = records.NewSQLiteRepository[models.Client](db, records.Clients)
	e.productDB = records.NewSQLiteRepository[models.Product](db, records.Products)
	e.ordersDB = records.NewSQLiteRepository[models.Order](db, records.Orders)
	e.usersDB = records.NewSQLiteRepository[models.User](db, records.Users)

	clock := now
	e.deps = Deps{
		Net:   e.net,
		Creds: credFlag(true),
		Meta:  e.meta,
		IDs:   NewProvisionalIDs(e.meta, func() time.Time { return clock }),
		Now:   func() time.Time { return clock },
	}

	e.clientsAPI = newFakeRemote[models.Client]()
	e.productsAPI = newFakeRemote[models.Product]()
	e.ordersAPI = newFakeRemote[models.Order]()
	e.source = newFakeSource(t)
	e.scheduler = newFakeScheduler()
	e.uploader = &fakeUploader{}

	resolver := NewPhotoResolver(e.blobs, e.source, PhotoOptions{Concurrency: 3}, nil)
	e.clients = NewClientService(e.clientsDB, e.clientsAPI, e.deps)
	e.products = NewProductService(e.productDB, e.productsAPI, e.uploader, resolver, e.deps)
	e.orders = NewOrderService(e.ordersDB, e.ordersAPI, e.productDB, e.scheduler, e.deps)
	e.engine = NewEngine(e.clients, e.products, e.orders, nil, e.deps)
	return e
}
