// Package metadata stores small key/value facts next to the cache:
// refresh stamps, the provisional id high-water mark, the notification
// permission decision and the access token of the last login.
package metadata

import (
	"context"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}

// Well-known keys.
const (
	KeyProvisionalHighWater = "provisional_high_water"
	KeyNotificationDecision = "notification_permission"
	KeyAccessToken          = "access_token"
	refreshedPrefix         = "refreshed_at:"
)

// RefreshedKey names the stamp written after a successful refresh of collection.
func RefreshedKey(collection string) string { return refreshedPrefix + collection }
