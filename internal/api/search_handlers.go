package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/memevault/memevault-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchMemes",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search memes",
		Description: "Full-text caption search with fuzzy matching and highlights",
		Tags:        []string{"Search"},
	}, s.handleSearchMemes)

	huma.Register(s.api, huma.Operation{
		OperationID: "reindexMemes",
		Method:      http.MethodPost,
		Path:        "/api/v1/search/reindex",
		Summary:     "Rebuild search index",
		Description: "Rebuilds the search index from the catalog",
		Tags:        []string{"Search"},
	}, s.handleReindexMemes)
}

// === DTOs ===

type SearchMemesInput struct {
	Query   string `query:"q" json:"q" validate:"max=200" doc:"Search query (empty matches all)"`
	Formats string `query:"formats" json:"formats" doc:"Comma-separated format filter (jpeg, png, gif, bmp, webp)"`
	Limit   int    `query:"limit" json:"limit" validate:"gte=0,lte=100" doc:"Page size (default 20)"`
	Offset  int    `query:"offset" json:"offset" validate:"gte=0" doc:"Items to skip"`
	Sort    string `query:"sort" json:"sort" validate:"omitempty,oneof=relevance recent" doc:"Sort key (default relevance)"`
	Order   string `query:"order" json:"order" validate:"omitempty,oneof=asc desc" doc:"Sort order (default desc)"`
}

type SearchHitResponse struct {
	ID         string              `json:"id" doc:"Meme ID"`
	Score      float64             `json:"score" doc:"Relevance score"`
	Caption    string              `json:"caption" doc:"Meme caption"`
	Filename   string              `json:"filename" doc:"Meme filename"`
	Format     string              `json:"format" doc:"Image format"`
	Highlights map[string][]string `json:"highlights,omitempty" doc:"Highlighted caption fragments"`
}

type SearchMemesResponse struct {
	Query  string              `json:"query" doc:"Echoed query"`
	Total  uint64              `json:"total" doc:"Total matches"`
	TookMs int64               `json:"took_ms" doc:"Search duration in milliseconds"`
	Hits   []SearchHitResponse `json:"hits" doc:"Matching memes"`
}

type SearchMemesOutput struct {
	Body SearchMemesResponse
}

type ReindexResponse struct {
	Indexed int `json:"indexed" doc:"Number of memes reindexed"`
}

type ReindexOutput struct {
	Body ReindexResponse
}

// === Handlers ===

func (s *Server) handleSearchMemes(ctx context.Context, input *SearchMemesInput) (*SearchMemesOutput, error) {
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	params := search.DefaultParams()
	params.Query = input.Query
	if input.Formats != "" {
		params.Formats = splitFormats(input.Formats)
	}
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	params.Offset = input.Offset
	if input.Sort != "" {
		params.SortBy = input.Sort
	}
	if input.Order != "" {
		params.SortOrder = input.Order
	}

	result, err := s.memes.Search(ctx, params)
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHitResponse, len(result.Hits))
	for i, h := range result.Hits {
		hits[i] = SearchHitResponse{
			ID:         h.ID,
			Score:      h.Score,
			Caption:    h.Caption,
			Filename:   h.Filename,
			Format:     h.Format,
			Highlights: h.Highlights,
		}
	}

	return &SearchMemesOutput{Body: SearchMemesResponse{
		Query:  result.Query,
		Total:  result.Total,
		TookMs: result.TookMs,
		Hits:   hits,
	}}, nil
}

func (s *Server) handleReindexMemes(ctx context.Context, _ *struct{}) (*ReindexOutput, error) {
	n, err := s.memes.Reindex(ctx)
	if err != nil {
		return nil, err
	}

	return &ReindexOutput{Body: ReindexResponse{Indexed: n}}, nil
}

// splitFormats parses the comma-separated format filter.
func splitFormats(raw string) []string {
	parts := strings.Split(raw, ",")
	formats := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			formats = append(formats, p)
		}
	}
	return formats
}
