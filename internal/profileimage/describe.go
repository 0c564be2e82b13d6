package profileimage

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// ImageInfo is what the header of an image says about it.
type ImageInfo struct {
	Format string
	Width  int
	Height int
}

// Describe reads only the image header of data. It is used for event
// logging; callers must not treat an error as a reason to reject data.
func Describe(data []byte) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{Format: "unknown"}, fmt.Errorf("decode image header: %w", err)
	}
	return ImageInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}
