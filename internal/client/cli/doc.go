// Package cli provides the ordersync command-line client.
//
// It wires configuration, the local cache, the REST client, the
// connectivity monitor, order reminders and the sync engine, then either
// runs one command (sync, status, version) or the interactive shell.
//
// The shell works offline: lists come from the cache, new records get
// local ids and are sent with 'push' once the server is reachable. Edits
// and deletes need a connection.
package cli
