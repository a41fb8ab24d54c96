package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// OrderLine references a product with the quantity and the unit price
// captured when the order was placed.
type OrderLine struct {
	ProductID    ID    `json:"product_id"`
	Quantity     int64 `json:"quantity"`
	PriceAtOrder Money `json:"price_at_order"`
}

// Subtotal is the line price times the quantity.
func (l OrderLine) Subtotal() Money { return l.PriceAtOrder.Mul(l.Quantity) }

type Order struct {
	ID       ID          `json:"id"`
	Title    string      `json:"title"`
	Address  string      `json:"address"`
	Date     time.Time   `json:"date"`
	ClientID *ID         `json:"client_id"`
	Products []OrderLine `json:"products"`
	Total    Money       `json:"total"`
}

func (o Order) RecordID() ID { return o.ID }

func (o Order) WithID(id ID) Order {
	o.ID = id
	return o
}

// Start is the moment the order begins.
func (o Order) Start() time.Time { return o.Date }

// Validate rejects order lines without a positive quantity or with a
// negative price.
func (o Order) Validate() error {
	for _, l := range o.Products {
		if l.Quantity <= 0 {
			return fmt.Errorf("%w: product %d: quantity must be positive", ErrInvalid, l.ProductID)
		}
		if l.PriceAtOrder < 0 {
			return fmt.Errorf("%w: product %d: price must not be negative", ErrInvalid, l.ProductID)
		}
	}
	return nil
}

// Recalculate recomputes Total from the order lines. Lines coming from the
// API without a quantity count once, and a missing or negative price counts
// as zero. It must run on every store write and every remote read.
func (o Order) Recalculate() Order {
	var total Money
	lines := make([]OrderLine, len(o.Products))
	for i, l := range o.Products {
		if l.Quantity <= 0 {
			l.Quantity = 1
		}
		if l.PriceAtOrder < 0 {
			l.PriceAtOrder = 0
		}
		total += l.Subtotal()
		lines[i] = l
	}
	o.Products = lines
	o.Total = total
	return o
}

// UnmarshalJSON accepts dates with or without a zone offset. Timestamps
// without one are read as local time; a date that cannot be parsed leaves
// Date zero instead of failing the whole record.
func (o *Order) UnmarshalJSON(b []byte) error {
	type plain Order
	aux := struct {
		*plain
		Date json.RawMessage `json:"date"`
	}{plain: (*plain)(o)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	o.Date = parseDate(aux.Date)
	return nil
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseDate(raw json.RawMessage) time.Time {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var ms int64
		if json.Unmarshal(raw, &ms) == nil && ms != 0 {
			return time.UnixMilli(ms)
		}
		return time.Time{}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
