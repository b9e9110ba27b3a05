// Package search provides full-text caption search over the meme
// library using Bleve.
package search

import (
	"github.com/memevault/memevault-server/internal/domain"
)

// MemeDocument is the indexed representation of a meme.
type MemeDocument struct {
	ID        string
	Caption   string
	Filename  string
	Format    string
	CreatedAt int64 // Unix seconds, for recency sorting
}

// FromMeme builds a search document from a domain meme.
func FromMeme(m *domain.Meme) *MemeDocument {
	return &MemeDocument{
		ID:        m.ID,
		Caption:   m.Caption,
		Filename:  m.Filename,
		Format:    m.Format,
		CreatedAt: m.CreatedAt.Unix(),
	}
}

// ToMap converts the document to a map so field names match the
// lowercase names used in the index mapping.
func (d *MemeDocument) ToMap() map[string]any {
	return map[string]any{
		"id":         d.ID,
		"caption":    d.Caption,
		"filename":   d.Filename,
		"format":     d.Format,
		"created_at": d.CreatedAt,
	}
}
