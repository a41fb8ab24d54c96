// Package codec turns raw photo bytes into self-contained data URIs that can
// be stored in the cache and rendered without network access.
package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrEmptyPayload = errors.New("empty payload")
	ErrNotImage     = errors.New("payload is not an image")
	ErrMalformedURI = errors.New("malformed data URI")
)

// Placeholder is shown for products that have no derived image.
const Placeholder = "/images/placeholder.png"

const (
	scheme = "data:"
	marker = ";base64,"
)

// Encode sniffs the MIME type of data and returns a base64 data URI.
func Encode(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyPayload
	}
	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return "", fmt.Errorf("%w: detected %s", ErrNotImage, mime.String())
	}
	return scheme + mime.String() + marker + base64.StdEncoding.EncodeToString(data), nil
}

// Decode splits a data URI produced by Encode into its MIME type and bytes.
func Decode(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, scheme)
	if !ok {
		return "", nil, ErrMalformedURI
	}
	mime, payload, ok := strings.Cut(rest, marker)
	if !ok || mime == "" {
		return "", nil, ErrMalformedURI
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrMalformedURI, err)
	}
	return mime, data, nil
}

// ImageOrPlaceholder returns image, or Placeholder when image is empty.
func ImageOrPlaceholder(image string) string {
	if image == "" {
		return Placeholder
	}
	return image
}
