// Package migrations embeds the goose SQL migrations of the local store.
// The highest migration number is the schema version.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
