package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/ordersync/internal/client/models"
	"github.com/dmitrijs2005/ordersync/internal/client/remote"
)

// Engine groups the collections and runs operations that span them.
type Engine struct {
	Clients  *ClientService
	Products *ProductService
	Orders   *OrderService
	Users    *UserService

	deps Deps
}

func NewEngine(c *ClientService, p *ProductService, o *OrderService, u *UserService, deps Deps) *Engine {
	return &Engine{Clients: c, Products: p, Orders: o, Users: u, deps: deps}
}

// RefreshReport summarises one Refresh.
type RefreshReport struct {
	Clients  View[models.Client]
	Products View[models.Product]
	Orders   View[models.Order]
	User     *models.User
}

// Refresh loads every collection once. Products load before orders so
// order lines can be resolved against a fresh catalogue. The returned error
// joins per-collection refresh failures; cached data is still reported.
func (e *Engine) Refresh(ctx context.Context) (RefreshReport, error) {
	var r RefreshReport
	r.Clients = e.Clients.Load(ctx, nil)
	r.Products = e.Products.Load(ctx, nil)
	r.Orders = e.Orders.Load(ctx, nil)

	errs := []error{wrapView("clients", r.Clients.Err), wrapView("products", r.Products.Err), wrapView("orders", r.Orders.Err)}

	if e.Users != nil {
		u, _, err := e.Users.Load(ctx)
		if err == nil {
			r.User = &u
		} else if !errors.Is(err, ErrNoData) || e.online() {
			errs = append(errs, fmt.Errorf("user: %w", err))
		}
	}
	return r, errors.Join(errs...)
}

func wrapView(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

// PushReport counts records moved from provisional to server ids.
type PushReport struct {
	Clients, Products, Orders int
}

// PushProvisional sends records created offline to the API: clients and
// products first, then orders with their references rewritten.
func (e *Engine) PushProvisional(ctx context.Context) (PushReport, error) {
	var rep PushReport

	clients, errC := e.Clients.PushProvisional(ctx, nil)
	if errors.Is(errC, ErrOffline) || errors.Is(errC, remote.ErrUnauthorized) {
		rep.Clients = len(clients)
		return rep, errC
	}
	products, errP := e.Products.PushProvisional(ctx, nil)
	orders, errO := e.Orders.PushProvisional(ctx, Remap(clients, products))

	rep.Clients, rep.Products, rep.Orders = len(clients), len(products), len(orders)
	return rep, errors.Join(errC, errP, errO)
}

func (e *Engine) online() bool { return e.deps.Net != nil && e.deps.Net.Online() }

type CollectionStatus struct {
	Name        string
	Records     int
	Provisional int
	RefreshedAt time.Time
	Err         error
}

type Status struct {
	Online      bool
	Credential  bool
	Collections []CollectionStatus
}

// Status reports the cache contents without network access.
func (e *Engine) Status(ctx context.Context) Status {
	return Status{
		Online:     e.online(),
		Credential: e.deps.Creds != nil && e.deps.Creds.HasCredential(),
		Collections: []CollectionStatus{
			statusOf(ctx, e.Clients.Collection),
			statusOf(ctx, e.Products.Collection),
			statusOf(ctx, e.Orders.Collection),
		},
	}
}

func statusOf[T models.Entity[T]](ctx context.Context, c *Collection[T]) CollectionStatus {
	st := CollectionStatus{Name: c.name}
	items, err := c.Cached(ctx)
	if err != nil {
		st.Err = err
		return st
	}
	st.Records = len(items)
	for _, it := range items {
		if it.RecordID().IsProvisional() {
			st.Provisional++
		}
	}
	if t, ok := c.Refreshed(ctx); ok {
		st.RefreshedAt = t
	}
	return st
}
