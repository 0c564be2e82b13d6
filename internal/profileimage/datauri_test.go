package profileimage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDataURI(t *testing.T) {
	data := smallPNG(t)
	uri, err := EncodeDataURI(context.Background(), strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

	mediaType, decoded, err := DecodeDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mediaType)
	assert.Equal(t, data, decoded)
}

func TestEncodeDataURIErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := EncodeDataURI(ctx, strings.NewReader("abc"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEncodeDataURIEmptyFile(t *testing.T) {
	uri, err := EncodeDataURI(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:"), uri)
	assert.True(t, strings.HasSuffix(uri, ";base64,"), uri)

	_, data, err := DecodeDataURI(uri)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestDataURIDropsParameters(t *testing.T) {
	uri := DataURI([]byte("hello world"))
	assert.True(t, strings.HasPrefix(uri, "data:text/plain;base64,"), uri)
}

func TestDecodeDataURIRejects(t *testing.T) {
	tests := []struct {
		name string
		uri  string
	}{
		{"no scheme", "/profile.jpg"},
		{"no payload", "data:image/png;base64"},
		{"not base64", "data:image/png,abc"},
		{"bad payload", "data:image/png;base64,***"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeDataURI(tt.uri)
			assert.Error(t, err)
		})
	}
}

func TestDescribe(t *testing.T) {
	info, err := Describe(smallPNG(t))
	require.NoError(t, err)
	assert.Equal(t, ImageInfo{Format: "png", Width: 2, Height: 3}, info)

	info, err = Describe([]byte("not an image"))
	assert.Error(t, err)
	assert.Equal(t, "unknown", info.Format)
}
