// Package photos downloads product photos by their remote reference. The
// picture may be served by the order API itself, an S3-compatible bucket or
// Supabase storage.
package photos

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrPhotoUnavailable = errors.New("photo unavailable")

// Source fetches raw photo bytes. All failures wrap ErrPhotoUnavailable.
type Source interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

const (
	KindAPI      = "api"
	KindS3       = "s3"
	KindSupabase = "supabase"
)

func unavailable(ref string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPhotoUnavailable, ref, err)
}

// objectKey joins an optional prefix and a photo reference.
func objectKey(prefix, ref string) string {
	ref = strings.TrimLeft(ref, "/")
	if prefix == "" {
		return ref
	}
	return strings.TrimRight(prefix, "/") + "/" + ref
}
