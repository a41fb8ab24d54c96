package services

import (
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/dmitrijs2005/ordersync/internal/client/models"
)

const (
	UnknownClient  = "Not specified"
	UnknownProduct = "Unknown product"
)

// OrderLineSummary is an order line with the product title resolved.
type OrderLineSummary struct {
	ProductID models.ID
	Title     string
	Quantity  int64
	Price     models.Money
}

// OrderSummary is an order ready for display.
type OrderSummary struct {
	ID          models.ID
	Title       string
	Address     string
	Start       time.Time
	ClientName  string
	Lines       []OrderLineSummary
	Total       models.Money
	Provisional bool
}

// Describe resolves client names and product titles of orders against the
// cached collections.
func Describe(orders []models.Order, clients []models.Client, products []models.Product) []OrderSummary {
	names := make(map[models.ID]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.FullName()
	}
	titles := make(map[models.ID]string, len(products))
	for _, p := range products {
		titles[p.ID] = p.Title
	}

	out := make([]OrderSummary, 0, len(orders))
	for _, o := range orders {
		o = o.Recalculate()
		s := OrderSummary{
			ID:          o.ID,
			Title:       o.Title,
			Address:     o.Address,
			Start:       o.Start(),
			ClientName:  UnknownClient,
			Total:       o.Total,
			Provisional: o.ID.IsProvisional(),
		}
		if o.ClientID != nil {
			if n, ok := names[*o.ClientID]; ok && n != "" {
				s.ClientName = n
			}
		}
		for _, l := range o.Products {
			title, ok := titles[l.ProductID]
			if !ok {
				title = UnknownProduct
			}
			s.Lines = append(s.Lines, OrderLineSummary{ProductID: l.ProductID, Title: title, Quantity: l.Quantity, Price: l.PriceAtOrder})
		}
		out = append(out, s)
	}
	return out
}

func matches(query string, fields ...string) bool {
	folder := cases.Fold()
	q := folder.String(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(folder.String(strings.Join(fields, " ")), q)
}

// SearchClients filters by name or phone, ignoring case.
func SearchClients(items []models.Client, query string) []models.Client {
	out := make([]models.Client, 0, len(items))
	for _, c := range items {
		if matches(query, c.FirstName, c.LastName, c.Phone) {
			out = append(out, c)
		}
	}
	return out
}

// SearchProducts filters by title, ignoring case.
func SearchProducts(items []models.Product, query string) []models.Product {
	out := make([]models.Product, 0, len(items))
	for _, p := range items {
		if matches(query, p.Title) {
			out = append(out, p)
		}
	}
	return out
}

// SearchOrders filters by title, client name or address, ignoring case.
func SearchOrders(items []OrderSummary, query string) []OrderSummary {
	out := make([]OrderSummary, 0, len(items))
	for _, o := range items {
		if matches(query, o.Title, o.ClientName, o.Address) {
			out = append(out, o)
		}
	}
	return out
}
