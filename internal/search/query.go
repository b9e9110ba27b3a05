package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Params configures a search query.
type Params struct {
	Query   string   // User's search query
	Formats []string // Image formats to include (empty = all)

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // "relevance", "recent"
	SortOrder string // "asc", "desc"

	// Options
	Highlight bool // Include caption match highlighting
}

// DefaultParams returns sensible defaults.
func DefaultParams() Params {
	return Params{
		Limit:     20,
		Offset:    0,
		SortBy:    "relevance",
		SortOrder: "desc",
		Highlight: true,
	}
}

// Result represents the search results.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
}

// Hit represents a single search result.
type Hit struct {
	ID         string              `json:"id"`
	Score      float64             `json:"score"`
	Caption    string              `json:"caption"`
	Filename   string              `json:"filename"`
	Format     string              `json:"format,omitempty"`
	Highlights map[string][]string `json:"highlights,omitempty"`
}

// Search executes a caption search query.
func (s *MemeIndex) Search(ctx context.Context, params Params) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	searchQuery := buildSearchQuery(params)

	searchRequest := bleve.NewSearchRequestOptions(searchQuery, params.Limit, params.Offset, false)

	addSorting(searchRequest, params)

	if params.Highlight {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("caption")
	}

	searchRequest.Fields = []string{"id", "caption", "filename", "format"}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		h := Hit{
			ID:    hit.ID,
			Score: hit.Score,
		}

		if c, ok := hit.Fields["caption"].(string); ok {
			h.Caption = c
		}
		if f, ok := hit.Fields["filename"].(string); ok {
			h.Filename = f
		}
		if f, ok := hit.Fields["format"].(string); ok {
			h.Format = f
		}

		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string][]string, len(hit.Fragments))
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments
				}
			}
		}

		result.Hits = append(result.Hits, h)
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params Params) query.Query {
	var queries []query.Query

	// Main text query: captions carry the signal, filenames echo them.
	if params.Query != "" {
		textQueries := []query.Query{}

		captionMatch := bleve.NewMatchQuery(params.Query)
		captionMatch.SetField("caption")
		captionMatch.SetBoost(3.0)
		textQueries = append(textQueries, captionMatch)

		filenameMatch := bleve.NewMatchQuery(params.Query)
		filenameMatch.SetField("filename")
		filenameMatch.SetBoost(1.0)
		textQueries = append(textQueries, filenameMatch)

		// Fuzzy matching for typo tolerance on captions
		fuzzyQuery := bleve.NewFuzzyQuery(params.Query)
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField("caption")
		fuzzyQuery.SetBoost(0.8)
		textQueries = append(textQueries, fuzzyQuery)

		// Prefix query for autocomplete (minimum 2 chars)
		if len(params.Query) >= 2 {
			prefixQuery := bleve.NewPrefixQuery(strings.ToLower(params.Query))
			prefixQuery.SetField("caption")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		// Combine with OR (match any field)
		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	// Format filter (exact match, OR across formats)
	if len(params.Formats) > 0 {
		formatQueries := make([]query.Query, len(params.Formats))
		for i, f := range params.Formats {
			fq := bleve.NewTermQuery(strings.ToLower(f))
			fq.SetField("format")
			formatQueries[i] = fq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(formatQueries...))
	}

	// Combine all queries with AND
	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}

// addSorting configures sort order.
func addSorting(req *bleve.SearchRequest, params Params) {
	switch params.SortBy {
	case "recent":
		if params.SortOrder == "asc" {
			req.SortBy([]string{"created_at"})
		} else {
			req.SortBy([]string{"-created_at"})
		}
	default:
		// Relevance (score) is default - Bleve handles this
		req.SortBy([]string{"-_score"})
	}
}
