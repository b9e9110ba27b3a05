// Package caption generates descriptive captions for images by calling
// an external vision-model service.
package caption

import "context"

// Captioner produces a short descriptive caption for an image file.
type Captioner interface {
	Caption(ctx context.Context, imagePath string) (string, error)
}
