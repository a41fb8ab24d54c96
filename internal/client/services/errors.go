package services

import "errors"

var (
	// ErrOffline rejects updates and deletes while the API is unreachable.
	ErrOffline = errors.New("operation requires a connection: offline")
	// ErrRequiresConnection rejects creates that need server-side processing,
	// such as products with a photo upload.
	ErrRequiresConnection = errors.New("operation cannot be performed offline")
	// ErrNoData means neither the API nor the cache could provide a record.
	ErrNoData = errors.New("no data available")
	// ErrUnresolvedReference keeps an order local while a client or product
	// it points at has not reached the API.
	ErrUnresolvedReference = errors.New("references a record that is not on the server yet")
)
