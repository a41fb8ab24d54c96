package photos

import (
	"context"
	"fmt"
	"mime"
	"strings"
)

// PhotoFetcher is implemented by *remote.Client.
type PhotoFetcher interface {
	ProductPhoto(ctx context.Context, ref string) ([]byte, string, error)
}

// APISource reads photos from GET /product/photo/{ref}.
type APISource struct {
	remote PhotoFetcher
}

func NewAPISource(r PhotoFetcher) *APISource {
	return &APISource{remote: r}
}

func (s *APISource) Fetch(ctx context.Context, ref string) ([]byte, error) {
	data, contentType, err := s.remote.ProductPhoto(ctx, ref)
	if err != nil {
		return nil, unavailable(ref, err)
	}
	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err != nil || !strings.HasPrefix(mt, "image/") {
			return nil, unavailable(ref, fmt.Errorf("unexpected content type %q", contentType))
		}
	}
	return data, nil
}
