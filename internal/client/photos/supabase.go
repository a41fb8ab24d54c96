package photos

import (
	"context"
	"strings"

	storage "github.com/supabase-community/storage-go"
)

type SupabaseSettings struct {
	URL    string
	Key    string
	Bucket string
	Prefix string
}

// SupabaseSource downloads photos from a Supabase storage bucket.
type SupabaseSource struct {
	download func(bucket, path string) ([]byte, error)
	bucket   string
	prefix   string
}

func NewSupabaseSource(s SupabaseSettings) *SupabaseSource {
	client := storage.NewClient(strings.TrimRight(s.URL, "/")+"/storage/v1", s.Key, nil)
	return &SupabaseSource{
		download: func(bucket, path string) ([]byte, error) { return client.DownloadFile(bucket, path) },
		bucket:   s.Bucket,
		prefix:   s.Prefix,
	}
}

// Fetch ignores ctx: the storage client has no context support.
func (s *SupabaseSource) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(ref, err)
	}
	data, err := s.download(s.bucket, objectKey(s.prefix, ref))
	if err != nil {
		return nil, unavailable(ref, err)
	}
	return data, nil
}
