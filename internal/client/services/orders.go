package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/ordersync/internal/client/models"
	"github.com/dmitrijs2005/ordersync/internal/client/repositories/records"
)

// Scheduler is implemented by *notify.Scheduler.
type Scheduler interface {
	Schedule(ctx context.Context, o models.Order)
	Cancel(id models.ID)
}

type OrderService struct {
	*Collection[models.Order]
	products  records.Store[models.Product]
	scheduler Scheduler
}

func NewOrderService(store records.Store[models.Order], rc RemoteCollection[models.Order], products records.Store[models.Product], sch Scheduler, deps Deps) *OrderService {
	s := &OrderService{
		Collection: newCollection[models.Order]("orders", store, rc, deps),
		products:   products,
		scheduler:  sch,
	}
	s.merge = recalculateOrders
	s.prepareLocal = s.snapshotPrices
	s.onLoaded = s.rescheduleAll
	s.onSaved = s.reschedule
	s.onDeleted = s.cancel
	return s
}

func recalculateOrders(_ context.Context, incoming []models.Order, _ map[models.ID]models.Order) []models.Order {
	out := make([]models.Order, len(incoming))
	for i, o := range incoming {
		out[i] = o.Recalculate()
	}
	return out
}

// snapshotPrices fills missing line prices from the cached catalogue so an
// offline order has a meaningful total.
func (s *OrderService) snapshotPrices(ctx context.Context, o models.Order) (models.Order, error) {
	lines := make([]models.OrderLine, len(o.Products))
	copy(lines, o.Products)
	for i, l := range lines {
		if l.PriceAtOrder != 0 {
			continue
		}
		p, err := s.products.Get(ctx, l.ProductID)
		if err != nil {
			s.log.Warn(ctx, "no cached price for order line", "product_id", l.ProductID, "error", err)
			continue
		}
		lines[i].PriceAtOrder = p.Price
	}
	o.Products = lines
	return o.Recalculate(), nil
}

func (s *OrderService) rescheduleAll(ctx context.Context, orders []models.Order) {
	for _, o := range orders {
		s.reschedule(ctx, o)
	}
}

func (s *OrderService) reschedule(ctx context.Context, o models.Order) {
	if s.scheduler == nil {
		return
	}
	s.scheduler.Cancel(o.ID)
	s.scheduler.Schedule(ctx, o)
}

func (s *OrderService) cancel(_ context.Context, id models.ID) {
	if s.scheduler != nil {
		s.scheduler.Cancel(id)
	}
}

// Remap rewrites references to clients and products that were pushed and
// received server ids. An order still pointing at a provisional record
// after the rewrite is rejected with ErrUnresolvedReference.
func Remap(clients, products map[models.ID]models.ID) func(models.Order) (models.Order, error) {
	return func(o models.Order) (models.Order, error) {
		if o.ClientID != nil {
			id := *o.ClientID
			if moved, ok := clients[id]; ok {
				id = moved
			}
			if id.IsProvisional() {
				return o, fmt.Errorf("%w: client %d", ErrUnresolvedReference, id)
			}
			o.ClientID = &id
		}
		lines := make([]models.OrderLine, len(o.Products))
		for i, l := range o.Products {
			if id, ok := products[l.ProductID]; ok {
				l.ProductID = id
			}
			if l.ProductID.IsProvisional() {
				return o, fmt.Errorf("%w: product %d", ErrUnresolvedReference, l.ProductID)
			}
			lines[i] = l
		}
		o.Products = lines
		return o, nil
	}
}
