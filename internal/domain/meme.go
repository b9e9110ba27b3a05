// Package domain contains the core data types shared across the application.
package domain

import "time"

// Meme represents a cataloged image in the library.
// A meme exists in the catalog only after the full ingest pipeline has
// run: the file was verified, captioned, renamed, and indexed.
type Meme struct {
	ID       string `json:"id"`
	Filename string `json:"filename"` // Caption-derived filename within the data directory
	Path     string `json:"path"`     // Absolute path on disk

	// Caption data from the vision model.
	Caption string `json:"caption"`

	// Image metadata captured during verification.
	Format    string `json:"format"` // jpeg, png, gif, bmp, webp
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	SizeBytes int64  `json:"size_bytes"`

	// BlurHash placeholder for client-side loading states.
	BlurHash string `json:"blurhash,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
