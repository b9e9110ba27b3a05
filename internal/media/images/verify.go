// Package images provides image verification, conversion, placeholder
// hashing, and filesystem storage for the meme library.
package images

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"io"
	"os"

	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// Info describes a verified image file.
type Info struct {
	Format string // jpeg, png, gif, bmp, webp
	Width  int
	Height int
}

// Verify performs a structural validity check on an image file without
// materializing the pixel data: it decodes only the header. A file that
// fails here is either not an image or too mangled to process.
func Verify(path string) (Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	cfg, format, err := image.DecodeConfig(file)
	if err != nil {
		return Info{}, fmt.Errorf("decode image header: %w", err)
	}

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, fmt.Errorf("invalid image dimensions %dx%d", cfg.Width, cfg.Height)
	}

	return Info{
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

// ConvertToJPEG decodes an image from r and re-encodes it as JPEG.
// Uploads are normalized to JPEG so the library holds a single format
// regardless of what clients send.
func ConvertToJPEG(r io.Reader, w io.Writer, quality int) error {
	img, _, err := image.Decode(r)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}

	return nil
}
