package blob

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallest valid PNG header plus IHDR chunk start
var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	n, err := s.PutObject(ctx, "a/b.png", pngBytes, "image/png")
	require.NoError(t, err)
	assert.Equal(t, int64(len(pngBytes)), n)

	got, err := s.GetObject(ctx, "a/b.png")
	require.NoError(t, err)
	assert.Equal(t, pngBytes, got)

	url, err := s.PresignGet(ctx, "a/b.png", time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))

	require.NoError(t, s.DeleteObject(ctx, "a/b.png"))
	_, err = s.GetObject(ctx, "a/b.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestDecodeImage(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(pngBytes)

	t.Run("RawBase64", func(t *testing.T) {
		img, err := DecodeImage(encoded, 1024)
		require.NoError(t, err)
		assert.Equal(t, "image/png", img.ContentType)
		assert.Equal(t, "png", img.Extension())
		assert.Equal(t, "data:image/png;base64,"+encoded, img.DataURL())
	})

	t.Run("DataURL", func(t *testing.T) {
		img, err := DecodeImage("data:image/png;base64,"+encoded, 1024)
		require.NoError(t, err)
		assert.Equal(t, pngBytes, img.Data)
	})

	t.Run("TooLarge", func(t *testing.T) {
		_, err := DecodeImage(encoded, 4)
		assert.ErrorIs(t, err, ErrImageTooLarge)
	})

	t.Run("NotBase64", func(t *testing.T) {
		_, err := DecodeImage("%%%", 1024)
		assert.ErrorIs(t, err, ErrInvalidImage)
	})

	t.Run("NotAnImage", func(t *testing.T) {
		_, err := DecodeImage(base64.StdEncoding.EncodeToString([]byte("hello world")), 1024)
		assert.ErrorIs(t, err, ErrInvalidImage)
	})
}

func TestMealPhotoKey(t *testing.T) {
	conv := uuid.New()
	key := MealPhotoKey("ana", conv, Image{ContentType: "image/jpeg"})
	assert.True(t, strings.HasPrefix(key, "meal-photos/ana/"+conv.String()+"/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
}
