package codec

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	data := pngBytes(t)

	uri, err := Encode(data)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

	mime, got, err := Decode(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, data, got)
}

func TestEncode_GIF(t *testing.T) {
	uri, err := Encode([]byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/gif;base64,"))
}

func TestEncode_Errors(t *testing.T) {
	_, err := Encode(nil)
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, err = Encode([]byte("<html><body>not found</body></html>"))
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = Encode([]byte(`{"detail":"oops"}`))
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestDecode_Malformed(t *testing.T) {
	for _, in := range []string{
		"",
		"http://example.com/a.png",
		"data:image/png,AAAA",
		"data:;base64,AAAA",
		"data:image/png;base64,@@@",
	} {
		_, _, err := Decode(in)
		assert.ErrorIs(t, err, ErrMalformedURI, in)
	}
}

func TestImageOrPlaceholder(t *testing.T) {
	assert.Equal(t, Placeholder, ImageOrPlaceholder(""))
	assert.Equal(t, "data:image/png;base64,AA==", ImageOrPlaceholder("data:image/png;base64,AA=="))
}
