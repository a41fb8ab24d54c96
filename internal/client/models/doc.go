// Package models defines the records cached locally and exchanged with the
// order-management API: clients, products, orders, the user profile and
// product photo blobs.
package models
