package imageutil

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// ErrInvalidImage is returned for empty, oversized or undecodable input.
var ErrInvalidImage = errors.New("invalid image")

// MaxBytes bounds a single uploaded screenshot or fetched asset.
const MaxBytes = 20 << 20

var contentTypes = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// Info describes a decoded image header.
type Info struct {
	Format      string
	ContentType string
	Width       int
	Height      int
}

// Inspect decodes the image header of data without decoding pixels.
// Parameters:
//   - data: raw bytes of a png, jpeg, gif or webp image.
//
// Returns:
//   - Info: format, MIME type and dimensions.
//   - error: wraps ErrInvalidImage if data is empty, too large, corrupt or
//     has zero dimensions.
func Inspect(data []byte) (Info, error) {
	if len(data) == 0 {
		return Info{}, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	if len(data) > MaxBytes {
		return Info{}, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrInvalidImage, len(data), MaxBytes)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, fmt.Errorf("%w: zero dimensions", ErrInvalidImage)
	}

	return Info{
		Format:      format,
		ContentType: contentTypes[format],
		Width:       cfg.Width,
		Height:      cfg.Height,
	}, nil
}
