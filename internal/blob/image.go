package blob

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidImage     = errors.New("invalid image")
	ErrImageTooLarge    = errors.New("image too large")
	allowedImageFormats = map[string]string{
		"image/jpeg": "jpg",
		"image/png":  "png",
		"image/webp": "webp",
		"image/gif":  "gif",
	}
)

// Image is a decoded upload.
type Image struct {
	Data        []byte
	ContentType string
}

// DataURL renders the image the way multimodal chat APIs accept it.
func (img Image) DataURL() string {
	return "data:" + img.ContentType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// Extension returns the file extension for the detected content type.
func (img Image) Extension() string {
	return allowedImageFormats[img.ContentType]
}

// DecodeImage accepts raw base64 or a data URL and sniffs the content type.
func DecodeImage(encoded string, maxBytes int) (Image, error) {
	raw := strings.TrimSpace(encoded)
	if strings.HasPrefix(raw, "data:") {
		_, payload, ok := strings.Cut(raw, ",")
		if !ok {
			return Image{}, fmt.Errorf("%w: malformed data URL", ErrInvalidImage)
		}
		raw = payload
	}

	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(raw)) > maxBytes+2 {
		return Image{}, ErrImageTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: empty", ErrInvalidImage)
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return Image{}, ErrImageTooLarge
	}

	contentType := http.DetectContentType(data)
	if _, ok := allowedImageFormats[contentType]; !ok {
		return Image{}, fmt.Errorf("%w: unsupported content type %s", ErrInvalidImage, contentType)
	}
	return Image{Data: data, ContentType: contentType}, nil
}

// MealPhotoKey namespaces photos by user and conversation.
func MealPhotoKey(userID string, conversationID uuid.UUID, img Image) string {
	return fmt.Sprintf("meal-photos/%s/%s/%s.%s", userID, conversationID, uuid.New(), img.Extension())
}
