package models

import "fmt"

// Product is a catalogue item. Photo is the remote reference of the product
// picture; Image is the data URI derived from it and is never sent back to
// the remote.
type Product struct {
	ID          ID     `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       Money  `json:"price"`
	Photo       string `json:"photo,omitempty"`
	Image       string `json:"image,omitempty"`
}

func (p Product) RecordID() ID { return p.ID }

// Validate rejects values the API would refuse.
func (p Product) Validate() error {
	if p.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalid)
	}
	return nil
}

func (p Product) WithID(id ID) Product {
	p.ID = id
	return p
}

// Photo is a cached product picture keyed by its remote reference.
type Photo struct {
	Ref       string
	Image     string
	FetchedAt int64
}
